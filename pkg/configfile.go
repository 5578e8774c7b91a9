package emtf

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadConfiguration reads a JSON or YAML configuration file on top of
// the defaults. Fields missing from the file keep their default value.
func LoadConfiguration(filename string) (Configuration, error) {
	config := DefaultConfiguration()
	if filename == "" {
		return config, config.Validate()
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return config, &ErrOpenFile{Filename: filename, Err: err}
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	default:
		err = json.Unmarshal(data, &config)
	}
	if err != nil {
		return config, fmt.Errorf("error parsing %s: %w", filename, err)
	}
	return config, config.Validate()
}

func PrintConfiguration(config Configuration, logger Logger) {
	logger.Info(fmt.Sprintf("File in: %s", config.FileIn), "config")
	logger.Info(fmt.Sprintf("File out: %s", config.FileOut), "config")
	logger.Info(fmt.Sprintf("No DB: %t", config.NoDB), "config")
	logger.Info(fmt.Sprintf("DB driver: %s", config.DBDriver), "config")
	logger.Info(fmt.Sprintf("Host: %s", config.Host), "config")
	logger.Info(fmt.Sprintf("DB name: %s", config.DBName), "config")
	logger.Info(fmt.Sprintf("Max events: %d", config.MaxEvents), "config")
	logger.Info(fmt.Sprintf("Skip: %d", config.Skip), "config")
	logger.Info(fmt.Sprintf("Verbosity: %d", config.Verbosity), "config")
	logger.Info(fmt.Sprintf("Number of workers: %d", config.NumWorkers), "config")
	logger.Info(fmt.Sprintf("Era: %v", config.Era), "config")
	logger.Info(fmt.Sprintf("Enabled: DT %t CSC %t RPC %t GEM %t iRPC %t ME0 %t",
		config.DTEnable, config.CSCEnable, config.RPCEnable, config.GEMEnable, config.IRPCEnable, config.ME0Enable), "config")
	logger.Info(fmt.Sprintf("Inputs: CSC %q RPC %q GEM %q DT %q ME0 %q",
		config.CSCInput, config.RPCInput, config.GEMInput, config.DTInput, config.ME0Input), "config")
	logger.Info(fmt.Sprintf("BX: min %d max %d window %d", config.MinBX, config.MaxBX, config.BXWindow), "config")
	logger.Info(fmt.Sprintf("BX shift: CSC %d RPC %d GEM %d DT %d ME0 %d",
		config.CSCInputBXShift, config.RPCInputBXShift, config.GEMInputBXShift, config.DTInputBXShift, config.ME0InputBXShift), "config")
	logger.Info(fmt.Sprintf("Version: %d, pt LUT version: %d", config.Version, config.PtLUTVersion), "config")
	logger.Info(fmt.Sprintf("Zone boundaries: %v (new %v, use new %t)", config.ZoneBoundaries, config.NewZoneBoundaries, config.UseNewZones), "config")
	logger.Info(fmt.Sprintf("Zone overlap: %d, RPC: %d", config.ZoneOverlap, config.ZoneOverlapRPC), "config")
	logger.Info(fmt.Sprintf("Coordinate LUT: %s", config.PhThLUT), "config")
	logger.Info(fmt.Sprintf("Include neighbor: %t", config.IncludeNeighbor), "config")
	logger.Info(fmt.Sprintf("Duplicate theta: %t", config.DuplicateTheta), "config")
	logger.Info(fmt.Sprintf("Fix zone phi: %t", config.FixZonePhi), "config")
	logger.Info(fmt.Sprintf("Symmetrical patterns: %t", config.UseSymmetricalPatterns), "config")
	logger.Info(fmt.Sprintf("Theta window: %d, RPC: %d", config.ThetaWindow, config.ThetaWindowRPC), "config")
	logger.Info(fmt.Sprintf("Max roads per zone: %d", config.MaxRoadsPerZone), "config")
	logger.Info(fmt.Sprintf("Max tracks: %d", config.MaxTracks), "config")
	logger.Info(fmt.Sprintf("Use second earliest: %t", config.UseSecondEarliest), "config")
	logger.Info(fmt.Sprintf("Cancel across zones: %t", config.CancelAcrossZones), "config")
	logger.Info(fmt.Sprintf("Pt engine: %v, version %d, BDT dir %s", config.PtAssignEngine, config.PtAssignVersion, config.BDTXMLDir), "config")
	logger.Info(fmt.Sprintf("Read pt LUT file: %t (%s)", config.ReadPtLUTFile, config.PtLUTFile), "config")
	logger.Info(fmt.Sprintf("Fix mode 15 high pt: %t", config.FixMode15HighPt), "config")
	logger.Info(fmt.Sprintf("Bugs: 9-bit dphi %t, mode 7 CLCT %t, neg pt %t, GMT phi %t, ME1/1 dupes %t, same sector pt0 %t",
		config.Bug9BitDPhi, config.BugMode7CLCT, config.BugNegPt, config.BugGMTPhi, config.BugME11Dupes, config.BugSameSectorPt0), "config")
}
