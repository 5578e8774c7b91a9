package emtf

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// constantForest scores every mode 15 road with value.
func constantForest(t *testing.T, value float64) *Forest {
	t.Helper()
	forest, err := NewForest(5, "constant", []ForestLine{{Mode: 15, Tree: 0, Path: "", Feature: -1, Value: value}}, nil)
	require.NoError(t, err)
	return forest
}

func TestEmbeddedForest(t *testing.T) {
	forest, err := EmbeddedForest(5, "v_16_02_21")
	require.NoError(t, err)
	assert.Equal(t, trackModes, forest.Modes())
	for _, mode := range forest.Modes() {
		assert.Equal(t, 1, forest.NumTrees(mode))
	}
	assert.Zero(t, forest.NumTrees(8))

	var features Features
	features[FeatureDPhi12] = 100
	assert.InDelta(t, 96.0/1200, forest.Score(14, features), 1e-12)
	features[FeatureDPhi12] = -100
	assert.InDelta(t, -96.0/1200, forest.Score(14, features), 1e-12)
	features[FeatureDPhi12] = 1
	assert.Zero(t, forest.Score(14, features))

	// mode 7 uses the 23 pair and the station 2 scale
	features = Features{}
	features[FeatureDPhi23] = 3
	assert.InDelta(t, 3.0/600, forest.Score(7, features), 1e-12)

	assert.Zero(t, forest.Score(8, features))
}

func TestEmbeddedForestUnknown(t *testing.T) {
	for _, tt := range []struct {
		version int
		dir     string
	}{
		{6, "v_16_02_21"},
		{5, "2017_v7"},
		{5, "missing"},
	} {
		_, err := EmbeddedForest(tt.version, tt.dir)
		var unknown *ErrUnknownForest
		require.True(t, errors.As(err, &unknown))
		assert.Equal(t, tt.version, unknown.Version)
		assert.Equal(t, tt.dir, unknown.Dir)
	}
}

func TestForestLinesRoundTrip(t *testing.T) {
	forest, err := EmbeddedForest(7, "2017_v7")
	require.NoError(t, err)

	rebuilt, err := NewForest(forest.Version, forest.Dir, forest.Lines(), forest.Ranges())
	require.NoError(t, err)
	if diff := cmp.Diff(forest.Lines(), rebuilt.Lines()); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(forest.Ranges(), rebuilt.Ranges()); diff != "" {
		t.Errorf("ranges mismatch (-want +got):\n%s", diff)
	}

	var features Features
	for _, dphi := range []float64{-700, -33, 0, 5, 64, 1023} {
		features[FeatureDPhi12] = dphi
		assert.Equal(t, forest.Score(15, features), rebuilt.Score(15, features))
	}
}

func TestNewForestErrors(t *testing.T) {
	tests := map[string][]ForestLine{
		"mode":         {{Mode: 16, Feature: -1}},
		"feature":      {{Mode: 15, Feature: NumFeatures}},
		"path":         {{Mode: 15, Path: "2", Feature: -1}},
		"single child": {{Mode: 15, Path: "", Feature: 0}, {Mode: 15, Path: "0", Feature: -1}},
		"no feature":   {{Mode: 15, Path: "0", Feature: -1}, {Mode: 15, Path: "1", Feature: -1}},
	}
	for name, lines := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewForest(5, "broken", lines, nil)
			assert.Error(t, err)
		})
	}
}

func TestForestClamp(t *testing.T) {
	forest, err := EmbeddedForest(5, "v_16_02_21")
	require.NoError(t, err)

	var features Features
	features[FeatureDPhi12] = 500
	assert.False(t, forest.Clamp(&features))
	assert.Equal(t, 500.0, features[FeatureDPhi12])

	features[FeatureDPhi23] = -5000
	features[FeatureTheta] = 5000
	assert.True(t, forest.Clamp(&features))
	assert.Equal(t, -float64(maxTrainedDPhi), features[FeatureDPhi23])
	assert.Equal(t, 5000.0, features[FeatureTheta])
}

func TestPrimaryPair(t *testing.T) {
	assert.Equal(t, 0, primaryPair(15))
	assert.Equal(t, 1, primaryPair(11))
	assert.Equal(t, 3, primaryPair(7))
	assert.Equal(t, 5, primaryPair(3))
	assert.Equal(t, -1, primaryPair(8))
}
