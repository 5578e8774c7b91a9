package emtf

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mode15Road() Road {
	road := Road{
		Endcap:       1,
		Mode:         15,
		ModeInv:      15,
		Straightness: 3,
		PhiFP:        2221,
		Theta:        65,
	}
	road.PtData.DeltaPh = [NumStationPairs]int{20, 25, 28, 5, 8, 3}
	road.PtData.SignPh = [NumStationPairs]int{1, 1, 1, 0, 0, 1}
	road.PtData.DeltaTh = [NumStationPairs]int{2, 1, 3, 1, 1, 2}
	road.PtData.CPattern = [NumStations]int{10, 8, 8, 6}
	road.PtData.FR = [NumStations]int{1, 0, 0, 0}
	return road
}

func TestPtAddressRoundTrip(t *testing.T) {
	road := mode15Road()
	address, saturated := PtAddress(&road, 5, false, true)
	assert.False(t, saturated)
	assert.Equal(t, 15, fieldMode.get(address))

	features, mode := AddressFeatures(address, 5)
	assert.Equal(t, 15, mode)
	assert.Equal(t, 20.0, features[FeatureDPhi12])
	assert.Equal(t, -5.0, features[FeatureDPhi23])
	assert.Equal(t, 3.0, features[FeatureDPhi34])
	assert.Zero(t, features[FeatureDPhi13])
	assert.Equal(t, 2.0, features[FeatureDTheta])
	assert.Equal(t, 10.0, features[FeatureCLCT])
	assert.Equal(t, 1.0, features[FeatureFR1])
}

func TestPtAddress9BitDPhi(t *testing.T) {
	wide := mode15Road()
	wide.PtData.DeltaPh[0] = 600
	narrow := mode15Road()
	narrow.PtData.DeltaPh[0] = 600 & 0x1FF

	masked, saturated := PtAddress(&wide, 5, true, true)
	assert.False(t, saturated)
	want, _ := PtAddress(&narrow, 5, false, true)
	assert.Equal(t, want, masked)
	assert.Equal(t, 39, fieldDPhi[0].get(masked))

	full, saturated := PtAddress(&wide, 5, false, true)
	assert.False(t, saturated)
	assert.NotEqual(t, masked, full)
	assert.Equal(t, 103, fieldDPhi[0].get(full))
}

func TestPtAddressSaturation(t *testing.T) {
	road := mode15Road()
	road.PtData.DeltaPh[0] = 1000
	address, saturated := PtAddress(&road, 5, false, true)
	assert.True(t, saturated)
	assert.Equal(t, 127, fieldDPhi[0].get(address))

	// the 9 bit bug wraps the bend instead
	road.PtData.DeltaPh[0] = 512 + 20
	address, saturated = PtAddress(&road, 5, true, true)
	assert.False(t, saturated)
	assert.Equal(t, 20, fieldDPhi[0].get(address))
}

func TestPtAddressLinearVersions(t *testing.T) {
	road := mode15Road()
	road.PtData.DeltaPh[0] = 41
	address, _ := PtAddress(&road, 7, false, true)
	assert.Equal(t, 10, fieldDPhi[0].get(address))
	features, _ := AddressFeatures(address, 7)
	assert.Equal(t, 42.0, features[FeatureDPhi12])
}

func TestPtAddressUnknownMode(t *testing.T) {
	road := Road{Mode: 8, ModeInv: 1}
	address, saturated := PtAddress(&road, 5, false, true)
	assert.Zero(t, address)
	assert.False(t, saturated)
}

func TestCompressCLCT(t *testing.T) {
	assert.Equal(t, 0, compressCLCT(10))
	assert.Equal(t, 1, compressCLCT(9))
	assert.Equal(t, 2, compressCLCT(6))
	assert.Equal(t, 3, compressCLCT(2))
}

func TestClctOfMode7(t *testing.T) {
	road := Road{Mode: 7}
	road.PtData.CPattern = [NumStations]int{0, 8, 6, 6}
	assert.Equal(t, 0, clctOf(&road, true))
	assert.Equal(t, 8, clctOf(&road, false))
}

func TestPtLUTReadWrite(t *testing.T) {
	forest, err := EmbeddedForest(5, "v_16_02_21")
	require.NoError(t, err)
	embedded := NewEmbeddedPtLUT(forest, 4)
	assert.Equal(t, 4, embedded.Lookup(0))

	const nEntries = 64
	var buf bytes.Buffer
	require.NoError(t, WritePtLUT(&buf, embedded, nEntries))
	assert.Equal(t, nEntries/4*8, buf.Len())

	lut, err := ReadPtLUT(bytes.NewReader(buf.Bytes()), nEntries)
	require.NoError(t, err)
	assert.Equal(t, 4, lut.Version())
	for address := uint32(0); address < nEntries; address++ {
		assert.Equal(t, embedded.Lookup(address), lut.Lookup(address), "address %d", address)
	}
	assert.Zero(t, lut.Lookup(nEntries))
}

func TestReadPtLUTErrors(t *testing.T) {
	var full bytes.Buffer
	lut := NewEmbeddedPtLUT(constantForest(t, 0), 4)
	require.NoError(t, WritePtLUT(&full, lut, 16))

	t.Run("truncated", func(t *testing.T) {
		_, err := ReadPtLUT(bytes.NewReader(full.Bytes()[:7]), 16)
		var lutErr *ErrPtLUT
		assert.True(t, errors.As(err, &lutErr))
	})
	t.Run("short", func(t *testing.T) {
		_, err := ReadPtLUT(bytes.NewReader(full.Bytes()), 32)
		var lutErr *ErrPtLUT
		assert.True(t, errors.As(err, &lutErr))
	})
	t.Run("long", func(t *testing.T) {
		_, err := ReadPtLUT(bytes.NewReader(full.Bytes()), 8)
		var lutErr *ErrPtLUT
		assert.True(t, errors.As(err, &lutErr))
	})
}

func TestLoadPtLUTFileErrors(t *testing.T) {
	_, err := LoadPtLUTFile(filepath.Join(t.TempDir(), "missing.dat"), 4)
	var open *ErrOpenFile
	require.True(t, errors.As(err, &open))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	filename := filepath.Join(t.TempDir(), "small.dat")
	require.NoError(t, os.WriteFile(filename, make([]byte, 64), 0o644))
	_, err = LoadPtLUTFile(filename, 4)
	var lutErr *ErrPtLUT
	require.True(t, errors.As(err, &lutErr))
	assert.Equal(t, filename, lutErr.Filename)
}

func TestEmbeddedLUTMatchesForest(t *testing.T) {
	forest, err := EmbeddedForest(5, "v_16_02_21")
	require.NoError(t, err)
	lut := NewEmbeddedPtLUT(forest, 5)

	road := mode15Road()
	address, _ := PtAddress(&road, 5, false, true)
	features, mode := AddressFeatures(address, 5)
	xmlPt, _ := scoreToPt(forest.Score(mode, features), false)
	assert.Equal(t, GMTPt(xmlPt, ptWordBits), lut.Lookup(address))

	// no valid pair in the mode
	assert.Zero(t, lut.Lookup(fieldMode.put(0, 1)))
}
