package emtf

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresetsValidate(t *testing.T) {
	for name, config := range map[string]Configuration{
		"sim":    DefaultConfiguration(),
		"data":   DataConfiguration(),
		"phase2": Phase2Configuration(),
	} {
		t.Run(name, func(t *testing.T) {
			assert.NoError(t, config.Validate())
		})
	}
}

func TestDefaultConfigurationIsACopy(t *testing.T) {
	config := DefaultConfiguration()
	config.ZoneBoundaries[1] = 50
	config.SymPatternDefinitions[0] = "broken"
	defaults := DefaultConfiguration()
	assert.Equal(t, 41, defaults.ZoneBoundaries[1])
	assert.NoError(t, defaults.Validate())
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Configuration)
		field  string
	}{
		{"bx window", func(c *Configuration) { c.BXWindow = 0 }, "bx_window"},
		{"bx order", func(c *Configuration) { c.MinBX = 4 }, "min_bx"},
		{"boundaries not increasing", func(c *Configuration) { c.ZoneBoundaries = []int{0, 41, 41, 127} }, "zone_boundaries"},
		{"boundaries start", func(c *Configuration) { c.ZoneBoundaries = []int{3, 41, 127} }, "zone_boundaries"},
		{"new boundaries", func(c *Configuration) { c.UseNewZones = true; c.NewZoneBoundaries = []int{0} }, "new_zone_boundaries"},
		{"overlap", func(c *Configuration) { c.ZoneOverlap = -1 }, "zone_overlap"},
		{"coordinate LUT", func(c *Configuration) { c.PhThLUT = "ph_lut_v9" }, "ph_th_lut"},
		{"pattern table", func(c *Configuration) { c.SymPatternDefinitions = []string{"4,15:15"} }, "pattern_definitions"},
		{"max tracks", func(c *Configuration) { c.MaxTracks = 0 }, "max_tracks"},
		{"pt LUT version", func(c *Configuration) { c.PtLUTVersion = 3 }, "pt_lut_version"},
		{"pt LUT file", func(c *Configuration) { c.ReadPtLUTFile = true }, "pt_lut_file"},
		{"workers", func(c *Configuration) { c.NumWorkers = 0 }, "num_workers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfiguration()
			tt.modify(&config)
			err := config.Validate()
			var invalid *ErrInvalidConfig
			require.True(t, errors.As(err, &invalid), "got %v", err)
			assert.Equal(t, tt.field, invalid.Field)
		})
	}
}

func TestEnabledFollowsFlags(t *testing.T) {
	config := DefaultConfiguration()
	assert.True(t, config.Enabled(CSC))
	assert.False(t, config.Enabled(RPC))
	assert.False(t, config.Enabled(DT))

	config.IRPCEnable = true
	assert.True(t, config.Enabled(RPC))

	phase2 := Phase2Configuration()
	for _, s := range []Subsystem{DT, CSC, RPC, GEM, ME0} {
		assert.True(t, phase2.Enabled(s), s.String())
	}
	assert.Equal(t, -6, phase2.BXShift(CSC))
	assert.Equal(t, "simMuonGEMPadDigis", phase2.InputLabel(GEM))
}

func TestLoadConfiguration(t *testing.T) {
	dir := t.TempDir()

	t.Run("no file", func(t *testing.T) {
		config, err := LoadConfiguration("")
		require.NoError(t, err)
		if diff := cmp.Diff(DefaultConfiguration(), config); diff != "" {
			t.Errorf("configuration mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("yaml", func(t *testing.T) {
		filename := filepath.Join(dir, "emtf.yaml")
		content := "max_tracks: 2\nera: Phase2_timing\nrpc_enable: true\npt_assign_engine: lut\nzone_boundaries: [0, 40, 50, 90, 127]\n"
		require.NoError(t, os.WriteFile(filename, []byte(content), 0o644))

		config, err := LoadConfiguration(filename)
		require.NoError(t, err)
		want := DefaultConfiguration()
		want.MaxTracks = 2
		want.Era = Phase2_timing
		want.RPCEnable = true
		want.PtAssignEngine = PtEngineLUT
		want.ZoneBoundaries = []int{0, 40, 50, 90, 127}
		if diff := cmp.Diff(want, config); diff != "" {
			t.Errorf("configuration mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("json", func(t *testing.T) {
		filename := filepath.Join(dir, "emtf.json")
		content := `{"verbosity": 2, "no_db": true, "era": "Run2_2016", "bx_window": 2}`
		require.NoError(t, os.WriteFile(filename, []byte(content), 0o644))

		config, err := LoadConfiguration(filename)
		require.NoError(t, err)
		assert.Equal(t, 2, config.Verbosity)
		assert.True(t, config.NoDB)
		assert.Equal(t, Run2_2016, config.Era)
		assert.Equal(t, 2, config.BXWindow)
		assert.Equal(t, "v_16_02_21", config.BDTXMLDir)
	})

	t.Run("invalid values", func(t *testing.T) {
		filename := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(filename, []byte(`{"bx_window": 0}`), 0o644))
		_, err := LoadConfiguration(filename)
		var invalid *ErrInvalidConfig
		assert.True(t, errors.As(err, &invalid))
	})

	t.Run("unknown era", func(t *testing.T) {
		filename := filepath.Join(dir, "era.yaml")
		require.NoError(t, os.WriteFile(filename, []byte("era: Run1\n"), 0o644))
		_, err := LoadConfiguration(filename)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfiguration(filepath.Join(dir, "missing.yaml"))
		var open *ErrOpenFile
		require.True(t, errors.As(err, &open))
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})
}
