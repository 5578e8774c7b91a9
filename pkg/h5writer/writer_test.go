package h5writer

import (
	"testing"

	emtf "github.com/next-exp/emtf_go/pkg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findParam(params []ConfigParamsHDF5, name string) (int32, bool) {
	for _, p := range params {
		if p.param == convertToHdf5String(name) {
			return p.value, true
		}
	}
	return 0, false
}

func TestConfigParams(t *testing.T) {
	config := emtf.DefaultConfiguration()
	config.MaxTracks = 2
	config.Era = emtf.Phase2_timing
	params := configParams(config)

	value, found := findParam(params, "max_tracks")
	require.True(t, found)
	assert.Equal(t, int32(2), value)

	value, found = findParam(params, "csc_enable")
	require.True(t, found)
	assert.Equal(t, int32(1), value)

	value, found = findParam(params, "era")
	require.True(t, found)
	assert.Equal(t, int32(emtf.Phase2_timing), value)

	for _, hidden := range []string{"pass", "host", "zone_boundaries"} {
		_, found = findParam(params, hidden)
		assert.False(t, found, hidden)
	}
}

func TestConvertTracks(t *testing.T) {
	track := emtf.Track{
		Road:  emtf.Road{Endcap: 2, Sector: 4, Mode: 14, HitIDs: [emtf.NumStations]int{3, 4, -1, -1}},
		Pt:    5.5,
		GMTPt: 12,
	}
	rows := convertTracks(17, []emtf.Track{track})
	require.Len(t, rows, 1)
	assert.Equal(t, uint64(17), rows[0].evt_number)
	assert.Equal(t, int32(2), rows[0].endcap)
	assert.Equal(t, int32(14), rows[0].mode)
	assert.Equal(t, int32(3), rows[0].hit_me1)
	assert.Equal(t, int32(-1), rows[0].hit_me3)
	assert.Equal(t, float32(5.5), rows[0].pt)
	assert.Equal(t, int32(12), rows[0].gmt_pt)
}

func TestConvertToHdf5String(t *testing.T) {
	s := convertToHdf5String("bx_window")
	assert.Equal(t, "bx_window", string(s[:9]))
	assert.Zero(t, s[9])
	assert.Len(t, convertToHdf5String("a very long configuration parameter name"), STRLEN)
}
