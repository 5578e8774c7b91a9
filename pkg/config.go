package emtf

import (
	"fmt"
	"slices"
)

type Configuration struct {
	Verbosity  int `json:"verbosity" yaml:"verbosity"`
	NumWorkers int `json:"num_workers" yaml:"num_workers"`

	// Input collections
	DTInput  string `json:"dt_input" yaml:"dt_input"`
	CSCInput string `json:"csc_input" yaml:"csc_input"`
	RPCInput string `json:"rpc_input" yaml:"rpc_input"`
	GEMInput string `json:"gem_input" yaml:"gem_input"`
	ME0Input string `json:"me0_input" yaml:"me0_input"`

	DTEnable   bool `json:"dt_enable" yaml:"dt_enable"`
	CSCEnable  bool `json:"csc_enable" yaml:"csc_enable"`
	RPCEnable  bool `json:"rpc_enable" yaml:"rpc_enable"`
	GEMEnable  bool `json:"gem_enable" yaml:"gem_enable"`
	IRPCEnable bool `json:"irpc_enable" yaml:"irpc_enable"`
	ME0Enable  bool `json:"me0_enable" yaml:"me0_enable"`
	Era        Era  `json:"era" yaml:"era"`

	// BX
	MinBX    int `json:"min_bx" yaml:"min_bx"`
	MaxBX    int `json:"max_bx" yaml:"max_bx"`
	BXWindow int `json:"bx_window" yaml:"bx_window"`

	DTInputBXShift  int `json:"dt_input_bx_shift" yaml:"dt_input_bx_shift"`
	CSCInputBXShift int `json:"csc_input_bx_shift" yaml:"csc_input_bx_shift"`
	RPCInputBXShift int `json:"rpc_input_bx_shift" yaml:"rpc_input_bx_shift"`
	GEMInputBXShift int `json:"gem_input_bx_shift" yaml:"gem_input_bx_shift"`
	ME0InputBXShift int `json:"me0_input_bx_shift" yaml:"me0_input_bx_shift"`

	Version      int `json:"version" yaml:"version"`
	PtLUTVersion int `json:"pt_lut_version" yaml:"pt_lut_version"`

	// Primitive conversion
	ZoneBoundaries    []int  `json:"zone_boundaries" yaml:"zone_boundaries"`
	NewZoneBoundaries []int  `json:"new_zone_boundaries" yaml:"new_zone_boundaries"`
	ZoneOverlap       int    `json:"zone_overlap" yaml:"zone_overlap"`
	ZoneOverlapRPC    int    `json:"zone_overlap_rpc" yaml:"zone_overlap_rpc"`
	PhThLUT           string `json:"ph_th_lut" yaml:"ph_th_lut"`
	IncludeNeighbor   bool   `json:"include_neighbor" yaml:"include_neighbor"`
	DuplicateTheta    bool   `json:"duplicate_theta" yaml:"duplicate_theta"`
	FixZonePhi        bool   `json:"fix_zone_phi" yaml:"fix_zone_phi"`
	UseNewZones       bool   `json:"use_new_zones" yaml:"use_new_zones"`

	// Pattern recognition
	PatternDefinitions     []string `json:"pattern_definitions" yaml:"pattern_definitions"`
	SymPatternDefinitions  []string `json:"sym_pattern_definitions" yaml:"sym_pattern_definitions"`
	UseSymmetricalPatterns bool     `json:"use_symmetrical_patterns" yaml:"use_symmetrical_patterns"`

	// Track building
	ThetaWindow    int  `json:"theta_window" yaml:"theta_window"`
	ThetaWindowRPC int  `json:"theta_window_rpc" yaml:"theta_window_rpc"`
	BugME11Dupes   bool `json:"bug_me11_dupes" yaml:"bug_me11_dupes"`

	// Ghost cancellation
	MaxRoadsPerZone   int  `json:"max_roads_per_zone" yaml:"max_roads_per_zone"`
	MaxTracks         int  `json:"max_tracks" yaml:"max_tracks"`
	UseSecondEarliest bool `json:"use_second_earliest" yaml:"use_second_earliest"`
	CancelAcrossZones bool `json:"cancel_across_zones" yaml:"cancel_across_zones"`
	BugSameSectorPt0  bool `json:"bug_same_sector_pt0" yaml:"bug_same_sector_pt0"`

	// Pt assignment
	PtAssignEngine  PtEngine `json:"pt_assign_engine" yaml:"pt_assign_engine"`
	PtAssignVersion int      `json:"pt_assign_version" yaml:"pt_assign_version"`
	BDTXMLDir       string   `json:"bdt_xml_dir" yaml:"bdt_xml_dir"`
	ReadPtLUTFile   bool     `json:"read_pt_lut_file" yaml:"read_pt_lut_file"`
	PtLUTFile       string   `json:"pt_lut_file" yaml:"pt_lut_file"`
	FixMode15HighPt bool     `json:"fix_mode15_high_pt" yaml:"fix_mode15_high_pt"`
	Bug9BitDPhi     bool     `json:"bug_9bit_dphi" yaml:"bug_9bit_dphi"`
	BugMode7CLCT    bool     `json:"bug_mode7_clct" yaml:"bug_mode7_clct"`
	BugNegPt        bool     `json:"bug_neg_pt" yaml:"bug_neg_pt"`
	BugGMTPhi       bool     `json:"bug_gmt_phi" yaml:"bug_gmt_phi"`
	GMTPtBits       int      `json:"gmt_pt_bits" yaml:"gmt_pt_bits"`

	// Output
	RetainHits  bool   `json:"retain_hits" yaml:"retain_hits"`
	OutputLabel string `json:"output_label" yaml:"output_label"`

	// Job
	FileIn      string `json:"file_in" yaml:"file_in"`
	FileOut     string `json:"file_out" yaml:"file_out"`
	MaxEvents   int    `json:"max_events" yaml:"max_events"`
	Skip        int    `json:"skip" yaml:"skip"`
	NoDB        bool   `json:"no_db" yaml:"no_db"`
	DBDriver    string `json:"db_driver" yaml:"db_driver"`
	Host        string `json:"host" yaml:"host"`
	User        string `json:"user" yaml:"user"`
	Passwd      string `json:"pass" yaml:"pass"`
	DBName      string `json:"dbname" yaml:"dbname"`
	RunNumber   int    `json:"run_number" yaml:"run_number"`
	MetricsAddr string `json:"metrics_addr" yaml:"metrics_addr"`

	// HDF5 output
	CompressionLevel int `json:"compression_level" yaml:"compression_level"`
}

var defaultPatternDefinitions = []string{
	// straightness, hits in ME1, hits in ME2, hits in ME3, hits in ME4
	// ME1 values centered at 15, range from 0 - 30
	// ME2,3,4 values centered at 7, range from 0 - 14
	"4,15:15,7:7,7:7,7:7",
	"3,16:16,7:7,7:6,7:6",
	"3,14:14,7:7,8:7,8:7",
	"2,18:17,7:7,7:5,7:5",
	"2,13:12,7:7,10:7,10:7", // should be 9:7 in ME3,4, kept as in firmware
	"1,22:19,7:7,7:0,7:0",
	"1,11:8,7:7,14:7,14:7",
	"0,30:23,7:7,7:0,7:0",
	"0,7:0,7:7,14:7,14:7",
}

var defaultSymPatternDefinitions = []string{
	"4,15:15:15:15,7:7:7:7,7:7:7:7,7:7:7:7",
	"3,16:16:14:14,7:7:7:7,8:7:7:6,8:7:7:6",
	"2,18:17:13:12,7:7:7:7,10:7:7:4,10:7:7:4",
	"1,22:19:11:8,7:7:7:7,14:7:7:0,14:7:7:0",
	"0,30:23:7:0,7:7:7:7,14:7:7:0,14:7:7:0",
}

// DefaultConfiguration returns the simulation configuration.
func DefaultConfiguration() Configuration {
	return Configuration{
		Verbosity:  0,
		NumWorkers: 6,

		DTInput:  "simDtTriggerPrimitiveDigis",
		CSCInput: "simCscTriggerPrimitiveDigis:MPCSORTED",
		RPCInput: "simMuonRPCDigis",
		GEMInput: "simMuonGEMPadDigis",
		ME0Input: "me0TriggerConvertedPseudoDigis",

		CSCEnable: true,
		Era:       Run2_2016,

		MinBX:    -3,
		MaxBX:    +3,
		BXWindow: 3,

		CSCInputBXShift: -6,
		RPCInputBXShift: -6,
		GEMInputBXShift: 0,
		DTInputBXShift:  0,
		ME0InputBXShift: 0,

		Version:      1,
		PtLUTVersion: 4,

		ZoneBoundaries:    []int{0, 41, 49, 87, 127},
		NewZoneBoundaries: []int{0, 36, 54, 96, 127},
		ZoneOverlap:       2,
		ZoneOverlapRPC:    1,
		PhThLUT:           "ph_lut_v1",
		IncludeNeighbor:   true,
		DuplicateTheta:    true,
		FixZonePhi:        true,
		UseNewZones:       false,

		PatternDefinitions:     slices.Clone(defaultPatternDefinitions),
		SymPatternDefinitions:  slices.Clone(defaultSymPatternDefinitions),
		UseSymmetricalPatterns: true,

		ThetaWindow:    4,
		ThetaWindowRPC: 8,
		BugME11Dupes:   false,

		MaxRoadsPerZone:   3,
		MaxTracks:         3,
		UseSecondEarliest: true,
		CancelAcrossZones: true,
		BugSameSectorPt0:  false,

		PtAssignEngine:  PtEngineBDT,
		PtAssignVersion: 5,
		BDTXMLDir:       "v_16_02_21",
		ReadPtLUTFile:   false,
		FixMode15HighPt: true,
		Bug9BitDPhi:     false,
		BugMode7CLCT:    true,
		BugNegPt:        true,
		BugGMTPhi:       false,
		GMTPtBits:       9,

		RetainHits:  true,
		OutputLabel: "simEmtfDigis",

		MaxEvents:        1000000000,
		DBDriver:         "mysql",
		Host:             "localhost",
		User:             "emtfreader",
		Passwd:           "readonly",
		DBName:           "EMTF",
		CompressionLevel: 4,
	}
}

// DataConfiguration is the default configuration reading unpacked
// detector data instead of simulated primitives.
func DataConfiguration() Configuration {
	config := DefaultConfiguration()
	config.CSCInput = "emtfStage2Digis"
	config.RPCInput = "muonRPCDigis"
	config.OutputLabel = "simEmtfDigisData"
	return config
}

// Phase2Configuration enables every subsystem with the timing era merge.
func Phase2Configuration() Configuration {
	config := DefaultConfiguration()
	config.DTEnable = true
	config.CSCEnable = true
	config.RPCEnable = true
	config.GEMEnable = true
	config.IRPCEnable = true
	config.ME0Enable = true
	config.Era = Phase2_timing
	config.PtLUTVersion = 7
	config.PtAssignVersion = 7
	config.BDTXMLDir = "2017_v7"
	return config
}

// ActiveZoneBoundaries returns the boundary sequence in use.
func (c *Configuration) ActiveZoneBoundaries() []int {
	if c.UseNewZones {
		return c.NewZoneBoundaries
	}
	return c.ZoneBoundaries
}

// ActivePatterns returns the pattern table in use.
func (c *Configuration) ActivePatterns() []string {
	if c.UseSymmetricalPatterns {
		return c.SymPatternDefinitions
	}
	return c.PatternDefinitions
}

// Enabled reports whether hits of the given subsystem take part in
// the reconstruction.
func (c *Configuration) Enabled(s Subsystem) bool {
	switch s {
	case DT:
		return c.DTEnable
	case CSC:
		return c.CSCEnable
	case RPC:
		return c.RPCEnable || c.IRPCEnable
	case GEM:
		return c.GEMEnable
	case ME0:
		return c.ME0Enable
	}
	return false
}

// InputLabel returns the collection label of a subsystem.
func (c *Configuration) InputLabel(s Subsystem) string {
	switch s {
	case DT:
		return c.DTInput
	case CSC:
		return c.CSCInput
	case RPC:
		return c.RPCInput
	case GEM:
		return c.GEMInput
	case ME0:
		return c.ME0Input
	}
	return ""
}

// BXShift returns the input BX offset correction of a subsystem.
func (c *Configuration) BXShift(s Subsystem) int {
	switch s {
	case DT:
		return c.DTInputBXShift
	case CSC:
		return c.CSCInputBXShift
	case RPC:
		return c.RPCInputBXShift
	case GEM:
		return c.GEMInputBXShift
	case ME0:
		return c.ME0InputBXShift
	}
	return 0
}

var supportedPtLUTVersions = []int{4, 5, 6, 7}

// Validate checks everything that would make the sector processors
// misbehave. Any error here is fatal at load time.
func (c *Configuration) Validate() error {
	if c.BXWindow < 1 {
		return &ErrInvalidConfig{"bx_window", fmt.Sprintf("must be >= 1, got %d", c.BXWindow)}
	}
	if c.MinBX > c.MaxBX {
		return &ErrInvalidConfig{"min_bx", fmt.Sprintf("%d is after max_bx %d", c.MinBX, c.MaxBX)}
	}
	if err := validateBoundaries("zone_boundaries", c.ZoneBoundaries); err != nil {
		return err
	}
	if c.UseNewZones {
		if err := validateBoundaries("new_zone_boundaries", c.NewZoneBoundaries); err != nil {
			return err
		}
	}
	if c.ZoneOverlap < 0 || c.ZoneOverlapRPC < 0 {
		return &ErrInvalidConfig{"zone_overlap", "must not be negative"}
	}
	if c.PhThLUT != "ph_lut_v1" {
		return &ErrInvalidConfig{"ph_th_lut", fmt.Sprintf("unsupported coordinate LUT %q", c.PhThLUT)}
	}
	if len(c.ActivePatterns()) == 0 {
		return &ErrInvalidConfig{"pattern_definitions", "empty pattern table"}
	}
	if _, err := ParsePatterns(c.ActivePatterns(), c.UseSymmetricalPatterns); err != nil {
		return &ErrInvalidConfig{"pattern_definitions", err.Error()}
	}
	if c.ThetaWindow < 0 || c.ThetaWindowRPC < 0 {
		return &ErrInvalidConfig{"theta_window", "must not be negative"}
	}
	if c.MaxRoadsPerZone < 1 || c.MaxTracks < 1 {
		return &ErrInvalidConfig{"max_tracks", "max_roads_per_zone and max_tracks must be positive"}
	}
	if c.Version != 1 {
		return &ErrInvalidConfig{"version", fmt.Sprintf("unsupported version %d", c.Version)}
	}
	if !slices.Contains(supportedPtLUTVersions, c.PtLUTVersion) {
		return &ErrInvalidConfig{"pt_lut_version", fmt.Sprintf("unsupported version %d", c.PtLUTVersion)}
	}
	if c.PtAssignEngine != PtEngineBDT && c.PtAssignEngine != PtEngineLUT {
		return &ErrInvalidConfig{"pt_assign_engine", "must be bdt or lut"}
	}
	if c.ReadPtLUTFile && c.PtLUTFile == "" {
		return &ErrInvalidConfig{"pt_lut_file", "read_pt_lut_file is set but no file given"}
	}
	if c.GMTPtBits < 1 || c.GMTPtBits > 16 {
		return &ErrInvalidConfig{"gmt_pt_bits", fmt.Sprintf("%d out of range", c.GMTPtBits)}
	}
	if c.NumWorkers < 1 {
		return &ErrInvalidConfig{"num_workers", "must be >= 1"}
	}
	return nil
}

func validateBoundaries(field string, boundaries []int) error {
	if len(boundaries) < 2 {
		return &ErrInvalidConfig{field, "need at least two boundaries"}
	}
	if boundaries[0] != 0 {
		return &ErrInvalidConfig{field, fmt.Sprintf("first boundary must be 0, got %d", boundaries[0])}
	}
	for i := 1; i < len(boundaries); i++ {
		if boundaries[i] <= boundaries[i-1] {
			return &ErrInvalidConfig{field, fmt.Sprintf("not strictly increasing at %d", i)}
		}
	}
	if len(boundaries)-1 > 8 {
		return &ErrInvalidConfig{field, "at most 8 zones"}
	}
	return nil
}

var configuration = DefaultConfiguration()

func GetConfiguration() Configuration {
	return configuration
}

func SetConfiguration(config Configuration) {
	configuration = config
}
