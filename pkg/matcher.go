package emtf

import (
	"fmt"
	"sort"
)

// Layer bits of the pattern detectors. ME3 and ME4 share one layer.
const (
	layerME1  = 1 << 2
	layerME2  = 1 << 1
	layerME34 = 1 << 0
)

// StationPairs lists the station pairs in the order of the delta arrays:
// 12, 13, 14, 23, 24, 34.
var StationPairs = [NumStationPairs][2]int{{1, 2}, {1, 3}, {1, 4}, {2, 3}, {2, 4}, {3, 4}}

// PtData holds the angular differences used by pt assignment. Station
// arrays are indexed by station-1, pair arrays follow StationPairs.
type PtData struct {
	DeltaPh  [NumStationPairs]int `json:"delta_ph"`
	DeltaTh  [NumStationPairs]int `json:"delta_th"`
	SignPh   [NumStationPairs]int `json:"sign_ph"`
	SignTh   [NumStationPairs]int `json:"sign_th"`
	CPattern [NumStations]int     `json:"cpattern"`
	FR       [NumStations]int     `json:"fr"`
	Ph       [NumStations]int     `json:"ph"`
	Th       [NumStations]int     `json:"th"`
}

// Road is one pattern match. Hits are referenced by ID, -1 marks an empty
// station.
type Road struct {
	Endcap       int              `json:"endcap"`
	Sector       int              `json:"sector"`
	SectorIndex  int              `json:"sector_idx"`
	BX           int              `json:"bx"`
	Zone         int              `json:"zone"`
	Keystrip     int              `json:"keystrip"`
	Pattern      int              `json:"pattern"`
	Straightness int              `json:"straightness"`
	LayerCode    int              `json:"layer_code"`
	QualityCode  int              `json:"quality_code"`
	Rank         int              `json:"rank"`
	Mode         int              `json:"mode"`
	ModeInv      int              `json:"mode_inv"`
	PhiFP        int              `json:"phi_fp"`
	Theta        int              `json:"theta_fp"`
	FirstBX      int              `json:"first_bx"`
	SecondBX     int              `json:"second_bx"`
	HitIDs       [NumStations]int `json:"hit_ids"`
	Segments     [NumStations]int `json:"segments"`
	PtData       PtData           `json:"ptlut_data"`
	ZeroPt       bool             `json:"zero_pt"`
}

// NumHits counts the stations with a selected hit.
func (r *Road) NumHits() int {
	n := 0
	for _, id := range r.HitIDs {
		if id >= 0 {
			n++
		}
	}
	return n
}

// Matcher runs the pattern detectors of one zone image. It holds no
// mutable state and can be shared by all sector processors.
type Matcher struct {
	config   *Configuration
	patterns []PatternDefinition
}

func NewMatcher(config *Configuration) (*Matcher, error) {
	patterns, err := ParsePatterns(config.ActivePatterns(), config.UseSymmetricalPatterns)
	if err != nil {
		return nil, &ErrInvalidConfig{Field: "pattern_definitions", Reason: err.Error()}
	}
	return &Matcher{config: config, patterns: patterns}, nil
}

func (m *Matcher) Patterns() []PatternDefinition {
	return m.patterns
}

// NumZones is the number of zones defined by the active boundaries.
func (m *Matcher) NumZones() int {
	return len(m.config.ActiveZoneBoundaries()) - 1
}

// qualityCode interleaves the straightness bits with the layers:
// s2 ME1 s1 ME2 s0 ME34.
func qualityCode(straightness int, layers int) int {
	return ((straightness>>2)&1)<<5 |
		((layers>>2)&1)<<4 |
		((straightness>>1)&1)<<3 |
		((layers>>1)&1)<<2 |
		(straightness&1)<<1 |
		layers&1
}

func stationLayer(station int) int {
	switch station {
	case 1:
		return layerME1
	case 2:
		return layerME2
	}
	return layerME34
}

func countLayers(layers int) int {
	n := 0
	for ; layers != 0; layers >>= 1 {
		n += layers & 1
	}
	return n
}

// MatchZone finds the roads of a zone for output BX bx. hits are the hits
// of the BX window; the ones outside the zone are ignored. Every keystrip
// takes the first pattern of the table with hits in at least two layers.
func (m *Matcher) MatchZone(zone int, bx int, hits []NormalizedHit) []Road {
	var stationHits [NumStations][]*NormalizedHit
	for i := range hits {
		h := &hits[i]
		if h.InZone(zone) {
			stationHits[h.Station-1] = append(stationHits[h.Station-1], h)
		}
	}
	for st := range stationHits {
		sort.SliceStable(stationHits[st], func(i, j int) bool {
			return stationHits[st][i].ID < stationHits[st][j].ID
		})
	}

	var roads []Road
	for k := 0; k < NumZoneHits; k++ {
		for p := range m.patterns {
			pattern := &m.patterns[p]
			layers := 0
			for st := 1; st <= NumStations; st++ {
				for _, h := range stationHits[st-1] {
					if pattern.Covers(st, k, h.ZoneHit) {
						layers |= stationLayer(st)
						break
					}
				}
			}
			if countLayers(layers) < 2 {
				continue
			}

			road := Road{
				BX:           bx,
				Zone:         zone,
				Keystrip:     k,
				Pattern:      p,
				Straightness: pattern.Straightness,
				LayerCode:    layers,
				QualityCode:  qualityCode(pattern.Straightness, layers),
			}
			matched := m.matchPrimitives(pattern, k, &stationHits)
			if m.buildRoad(&road, matched) {
				roads = append(roads, road)
			}
			break
		}
	}

	if m.config.Verbosity > 2 {
		for _, road := range roads {
			logger.Info(fmt.Sprintf("road: z %d k %d pat %d qc %d rank %d mode %d", road.Zone, road.Keystrip, road.Pattern, road.QualityCode, road.Rank, road.Mode), "matcher")
		}
	}
	return roads
}

// matchPrimitives keeps, in each station, the phi segment closest to the
// key phi of the road and every theta copy of it.
func (m *Matcher) matchPrimitives(pattern *PatternDefinition, keystrip int, stationHits *[NumStations][]*NormalizedHit) [NumStations][]*NormalizedHit {
	keyPhi := keystrip << 5
	if !m.config.FixZonePhi {
		keyPhi += 16
	}

	var matched [NumStations][]*NormalizedHit
	for st := 1; st <= NumStations; st++ {
		var candidates []*NormalizedHit
		for _, h := range stationHits[st-1] {
			if pattern.Covers(st, keystrip, h.ZoneHit) {
				candidates = append(candidates, h)
			}
		}
		if len(candidates) == 0 {
			continue
		}
		best := candidates[0]
		for _, h := range candidates[1:] {
			if d, bestD := abs(h.PhiFP-keyPhi), abs(best.PhiFP-keyPhi); d < bestD || (d == bestD && h.ID < best.ID) {
				best = h
			}
		}
		for _, h := range candidates {
			if h.PhiSegment == best.PhiSegment {
				matched[st-1] = append(matched[st-1], h)
			}
		}
	}
	return matched
}

type roadKey struct {
	zone     int
	keystrip int
	pattern  int
}

// roadLifetime counts for how many consecutive output BXs a road has been
// found, so that every road is reported once.
type roadLifetime struct {
	life   map[roadKey]int
	emitAt int
}

func newRoadLifetime(config *Configuration) *roadLifetime {
	emitAt := 1
	if !config.UseSecondEarliest {
		emitAt = max(config.BXWindow-1, 1)
	}
	return &roadLifetime{
		life:   make(map[roadKey]int),
		emitAt: emitAt,
	}
}

// update ages the roads found in one zone at the current BX and returns
// the ones due for emission. Roads no longer found are forgotten.
func (l *roadLifetime) update(zone int, roads []Road) []Road {
	found := make(map[roadKey]bool, len(roads))
	var emitted []Road
	for _, road := range roads {
		key := roadKey{road.Zone, road.Keystrip, road.Pattern}
		found[key] = true
		l.life[key]++
		if l.life[key] == l.emitAt {
			emitted = append(emitted, road)
		}
	}
	for key := range l.life {
		if key.zone == zone && !found[key] {
			delete(l.life, key)
		}
	}
	return emitted
}
