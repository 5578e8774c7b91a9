package emtf

import (
	"fmt"
	"strconv"
	"strings"
)

// Pattern windows are expressed in zone hits relative to the pattern
// center: ME1 spans 0-30 around 15, ME2-4 span 0-14 around 7.
const (
	me1PatternCenter   = 15
	me1PatternMax      = 30
	otherPatternCenter = 7
	otherPatternMax    = 14
	MaxStraightness    = 4
)

// PatternWindow is an inclusive range of pattern offsets.
type PatternWindow struct {
	Lo int
	Hi int
}

// PatternDefinition is one row of the pattern table. Symmetric patterns
// have two windows per station, one per bend direction.
type PatternDefinition struct {
	Index        int
	Straightness int
	Windows      [NumStations][]PatternWindow
}

func patternCenter(station int) int {
	if station == 1 {
		return me1PatternCenter
	}
	return otherPatternCenter
}

// Covers tells whether a hit at zone hit zh is inside the pattern window
// of station when the pattern is centered on keystrip.
func (p *PatternDefinition) Covers(station int, keystrip int, zh int) bool {
	center := patternCenter(station)
	for _, w := range p.Windows[station-1] {
		if keystrip+(w.Lo-center) <= zh && zh <= keystrip+(w.Hi-center) {
			return true
		}
	}
	return false
}

// ParsePatterns reads the pattern table strings. Single-sided rows are
// "s,a:b,c:d,e:f,g:h", symmetric rows "s,a:b:c:d,..." where each pair is
// written high:low. Rows must come by decreasing straightness: the table
// order is the match priority.
func ParsePatterns(definitions []string, symmetric bool) ([]PatternDefinition, error) {
	if len(definitions) == 0 {
		return nil, fmt.Errorf("empty pattern table")
	}
	wantPairs := 1
	if symmetric {
		wantPairs = 2
	}

	patterns := make([]PatternDefinition, 0, len(definitions))
	for i, definition := range definitions {
		fields := strings.Split(strings.ReplaceAll(definition, " ", ""), ",")
		if len(fields) != NumStations+1 {
			return nil, fmt.Errorf("pattern %d %q: expected %d fields, got %d", i, definition, NumStations+1, len(fields))
		}
		straightness, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("pattern %d %q: bad straightness: %w", i, definition, err)
		}
		if straightness < 0 || straightness > MaxStraightness {
			return nil, fmt.Errorf("pattern %d %q: straightness %d out of range", i, definition, straightness)
		}
		if i > 0 && straightness > patterns[i-1].Straightness {
			return nil, fmt.Errorf("pattern %d %q: table is not ordered by decreasing straightness", i, definition)
		}

		pattern := PatternDefinition{Index: i, Straightness: straightness}
		for station := 1; station <= NumStations; station++ {
			values := strings.Split(fields[station], ":")
			if len(values) != 2*wantPairs {
				return nil, fmt.Errorf("pattern %d %q: station %d needs %d values", i, definition, station, 2*wantPairs)
			}
			maxOffset := otherPatternMax
			if station == 1 {
				maxOffset = me1PatternMax
			}
			for p := 0; p < wantPairs; p++ {
				hi, err1 := strconv.Atoi(values[2*p])
				lo, err2 := strconv.Atoi(values[2*p+1])
				if err1 != nil || err2 != nil {
					return nil, fmt.Errorf("pattern %d %q: station %d: not a number", i, definition, station)
				}
				if lo > hi || lo < 0 || hi > maxOffset {
					return nil, fmt.Errorf("pattern %d %q: station %d: invalid window %d:%d", i, definition, station, hi, lo)
				}
				pattern.Windows[station-1] = append(pattern.Windows[station-1], PatternWindow{Lo: lo, Hi: hi})
			}
		}
		patterns = append(patterns, pattern)
	}
	return patterns, nil
}
