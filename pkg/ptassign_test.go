package emtf

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAssigner(t *testing.T, config *Configuration, forest *Forest) *PtAssigner {
	t.Helper()
	a, err := NewPtAssigner(config, forest, nil)
	require.NoError(t, err)
	return a
}

func TestScoreToPt(t *testing.T) {
	for _, tt := range []struct {
		name       string
		score      float64
		bugNegPt   bool
		wantPt     float64
		wantCharge int
	}{
		{"zero", 0, true, maxXMLPt, +1},
		{"positive", 0.25, true, 4, +1},
		{"negative with bug", -0.25, true, 1, +1},
		{"negative", -0.25, false, 4, -1},
		{"saturated", 1e-6, false, maxXMLPt, +1},
	} {
		t.Run(tt.name, func(t *testing.T) {
			pt, charge := scoreToPt(tt.score, tt.bugNegPt)
			assert.InDelta(t, tt.wantPt, pt, 1e-9)
			assert.Equal(t, tt.wantCharge, charge)
		})
	}
}

func TestAssignNegativeScore(t *testing.T) {
	forest := constantForest(t, -0.25)

	config := DefaultConfiguration()
	track := newTestAssigner(t, &config, forest).Assign(mode15Road())
	assert.Equal(t, 1.0, track.PtXML)
	assert.Equal(t, +1, track.Charge)
	assert.Equal(t, 3, track.GMTPt)
	assert.Equal(t, 1.0, track.Pt)

	config.BugNegPt = false
	track = newTestAssigner(t, &config, forest).Assign(mode15Road())
	assert.Equal(t, 4.0, track.PtXML)
	assert.Equal(t, -1, track.Charge)
	assert.Equal(t, 12, track.GMTPt)
	assert.Equal(t, 5.5, track.Pt)
}

func TestAssignMode15Saturation(t *testing.T) {
	forest := constantForest(t, 0.001)
	road := mode15Road()
	road.Straightness = MaxStraightness

	config := DefaultConfiguration()
	track := newTestAssigner(t, &config, forest).Assign(road)
	assert.Equal(t, 511, track.GMTPt)
	assert.Equal(t, 255.0, track.Pt)

	config.FixMode15HighPt = false
	track = newTestAssigner(t, &config, forest).Assign(road)
	assert.Equal(t, mode15SaturationPt, track.PtXML)
	assert.Equal(t, 393, track.GMTPt)

	road.Straightness = 3
	track = newTestAssigner(t, &config, forest).Assign(road)
	assert.Equal(t, maxXMLPt, track.PtXML)
}

func TestAssignGMTWords(t *testing.T) {
	config := DefaultConfiguration()
	track := newTestAssigner(t, &config, constantForest(t, 0.1)).Assign(mode15Road())

	assert.Equal(t, 24, track.GMTPhi)
	assert.Equal(t, 131, track.GMTEta)
	assert.Equal(t, 15, track.GMTQuality)
	assert.Equal(t, 0, track.GMTCharge)
	assert.Equal(t, 1, track.GMTChargeValid)
	assert.Equal(t, 15, track.Quality)
	assert.False(t, track.Clamped())
	assert.Zero(t, track.PtAddress)
}

func TestAssignZeroPtAndClamp(t *testing.T) {
	forest, err := EmbeddedForest(5, "v_16_02_21")
	require.NoError(t, err)
	config := DefaultConfiguration()
	a := newTestAssigner(t, &config, forest)

	road := mode15Road()
	road.PtData.DeltaPh[0] = 2000
	road.ZeroPt = true
	track := a.Assign(road)
	assert.True(t, track.Clamped())
	assert.Zero(t, track.Pt)
	assert.Zero(t, track.GMTPt)
	assert.Equal(t, 15|QualityClamped|QualityZeroPt, track.Quality)
}

func TestFeatures(t *testing.T) {
	config := DefaultConfiguration()
	a := newTestAssigner(t, &config, constantForest(t, 0))

	road := mode15Road()
	features := a.Features(&road)
	assert.Equal(t, 20.0, features[FeatureDPhi12])
	assert.Equal(t, -5.0, features[FeatureDPhi23])
	assert.Equal(t, 2.0, features[FeatureDTheta])
	assert.Equal(t, 10.0, features[FeatureCLCT])
	assert.Equal(t, 1.0, features[FeatureFR1])
	assert.Equal(t, 3.0, features[FeatureStraightness])
	assert.Equal(t, 65.0, features[FeatureTheta])

	// stations outside the mode are not features
	road.Mode = 12
	features = a.Features(&road)
	assert.Equal(t, 20.0, features[FeatureDPhi12])
	assert.Zero(t, features[FeatureDPhi23])
}

func TestFeatures9BitDPhi(t *testing.T) {
	road := mode15Road()
	road.PtData.DeltaPh[0] = 600

	config := DefaultConfiguration()
	config.Bug9BitDPhi = false
	features := newTestAssigner(t, &config, constantForest(t, 0)).Features(&road)
	assert.Equal(t, 600.0, features[FeatureDPhi12])

	config.Bug9BitDPhi = true
	features = newTestAssigner(t, &config, constantForest(t, 0)).Features(&road)
	assert.Equal(t, 88.0, features[FeatureDPhi12])
	assert.Equal(t, -5.0, features[FeatureDPhi23])
}

func TestAssignLUTEngine(t *testing.T) {
	forest, err := EmbeddedForest(5, "v_16_02_21")
	require.NoError(t, err)
	config := DefaultConfiguration()
	config.PtAssignEngine = PtEngineLUT
	a := newTestAssigner(t, &config, forest)

	road := Road{Endcap: 1, Mode: 14, ModeInv: 0b0111, Straightness: 4, PhiFP: 2221, Theta: 65}
	road.PtData.CPattern[0] = 10
	track := a.Assign(road)
	assert.NotZero(t, track.PtAddress)
	assert.Equal(t, 255.0, track.PtXML)
	assert.Equal(t, 511, track.GMTPt)
	assert.Equal(t, 0, track.Charge)
}

func TestNewPtAssignerErrors(t *testing.T) {
	config := DefaultConfiguration()
	_, err := NewPtAssigner(&config, nil, nil)
	var unknown *ErrUnknownForest
	assert.True(t, errors.As(err, &unknown))

	forest, err := EmbeddedForest(5, "v_16_02_21")
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, WritePtLUT(&buf, NewEmbeddedPtLUT(forest, 7), 4))
	lut, err := ReadPtLUT(&buf, 4)
	require.NoError(t, err)

	config.PtAssignEngine = PtEngineLUT
	_, err = NewPtAssigner(&config, forest, lut)
	var lutErr *ErrPtLUT
	assert.True(t, errors.As(err, &lutErr))

	config.PtLUTVersion = 7
	_, err = NewPtAssigner(&config, forest, lut)
	assert.NoError(t, err)
}
