package emtf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaultPatterns(t *testing.T) {
	patterns, err := ParsePatterns(defaultPatternDefinitions, false)
	require.NoError(t, err)
	require.Len(t, patterns, 9)
	assert.Equal(t, 4, patterns[0].Straightness)
	assert.Equal(t, []PatternWindow{{Lo: 15, Hi: 15}}, patterns[0].Windows[0])
	assert.Equal(t, []PatternWindow{{Lo: 7, Hi: 10}}, patterns[4].Windows[2])
	assert.Equal(t, 0, patterns[8].Straightness)

	sym, err := ParsePatterns(defaultSymPatternDefinitions, true)
	require.NoError(t, err)
	require.Len(t, sym, 5)
	for i, p := range sym {
		assert.Equal(t, i, p.Index)
		assert.Equal(t, MaxStraightness-i, p.Straightness)
		for st := range p.Windows {
			assert.Len(t, p.Windows[st], 2)
		}
	}
	assert.Equal(t, []PatternWindow{{Lo: 16, Hi: 16}, {Lo: 14, Hi: 14}}, sym[1].Windows[0])
}

func TestParsePatternsErrors(t *testing.T) {
	tests := map[string]struct {
		definitions []string
		symmetric   bool
	}{
		"empty":              {nil, false},
		"missing station":    {[]string{"4,15:15,7:7,7:7"}, false},
		"bad straightness":   {[]string{"x,15:15,7:7,7:7,7:7"}, false},
		"straightness range": {[]string{"5,15:15,7:7,7:7,7:7"}, false},
		"order":              {[]string{"3,16:16,7:7,7:6,7:6", "4,15:15,7:7,7:7,7:7"}, false},
		"window reversed":    {[]string{"4,15:16,7:7,7:7,7:7"}, false},
		"window too wide":    {[]string{"4,31:15,7:7,7:7,7:7"}, false},
		"ME2 window":         {[]string{"4,15:15,15:7,7:7,7:7"}, false},
		"single sided row":   {[]string{"4,15:15,7:7,7:7,7:7"}, true},
		"not a number":       {[]string{"4,15:a,7:7,7:7,7:7"}, false},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePatterns(tt.definitions, tt.symmetric)
			assert.Error(t, err)
		})
	}
}

func TestPatternCovers(t *testing.T) {
	patterns, err := ParsePatterns(defaultSymPatternDefinitions, true)
	require.NoError(t, err)

	straight := &patterns[0]
	assert.True(t, straight.Covers(1, 69, 69))
	assert.False(t, straight.Covers(1, 69, 70))
	assert.True(t, straight.Covers(3, 69, 69))

	bent := &patterns[1]
	assert.True(t, bent.Covers(1, 68, 69))
	assert.True(t, bent.Covers(1, 70, 69))
	assert.False(t, bent.Covers(1, 69, 69))
	assert.False(t, bent.Covers(2, 68, 69))
	assert.True(t, bent.Covers(3, 68, 69))
	assert.True(t, bent.Covers(3, 70, 69))
	assert.False(t, bent.Covers(3, 71, 69))
}
