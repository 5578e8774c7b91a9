package emtf

import "sort"

// GhostProximity is the largest keystrip distance, in zone hits, at which
// two roads sharing a segment are considered the same muon.
const GhostProximity = 15

// Canceller removes ghost roads and keeps the best ones per zone.
type Canceller struct {
	config *Configuration
}

func NewCanceller(config *Configuration) *Canceller {
	return &Canceller{config: config}
}

// higherPriority is the total order used to rank roads: straighter first,
// then (with UseSecondEarliest) the earliest second hit, then lower
// keystrip, pattern and zone.
func (c *Canceller) higherPriority(a, b *Road) bool {
	if a.Straightness != b.Straightness {
		return a.Straightness > b.Straightness
	}
	if c.config.UseSecondEarliest && a.SecondBX != b.SecondBX {
		return a.SecondBX < b.SecondBX
	}
	if a.Keystrip != b.Keystrip {
		return a.Keystrip < b.Keystrip
	}
	if a.Pattern != b.Pattern {
		return a.Pattern < b.Pattern
	}
	return a.Zone < b.Zone
}

// IsGhost reports whether two roads describe the same track: close in phi
// and sharing a segment in one station.
func IsGhost(a, b *Road) bool {
	if abs(a.Keystrip-b.Keystrip) > GhostProximity {
		return false
	}
	for st := 0; st < NumStations; st++ {
		if a.Segments[st] >= 0 && a.Segments[st] == b.Segments[st] {
			return true
		}
	}
	return false
}

func (c *Canceller) sortRoads(roads []Road) {
	sort.Slice(roads, func(i, j int) bool {
		return c.higherPriority(&roads[i], &roads[j])
	})
}

// greedy walks roads in priority order and keeps the ones that are not a
// ghost of an already kept road.
func greedy(roads []Road) []Road {
	var kept []Road
	for i := range roads {
		ghost := false
		for j := range kept {
			if IsGhost(&roads[i], &kept[j]) {
				ghost = true
				break
			}
		}
		if !ghost {
			kept = append(kept, roads[i])
		}
	}
	return kept
}

// Cancel selects the surviving roads of one sector and BX. The input is
// not modified. The result is zone-major, then by priority.
func (c *Canceller) Cancel(roads []Road) []Road {
	byZone := make(map[int][]Road)
	for _, road := range roads {
		byZone[road.Zone] = append(byZone[road.Zone], road)
	}

	var survivors []Road
	for _, zoneRoads := range byZone {
		c.sortRoads(zoneRoads)
		kept := greedy(zoneRoads)
		if len(kept) > c.config.MaxRoadsPerZone {
			kept = kept[:c.config.MaxRoadsPerZone]
		}
		if len(kept) > c.config.MaxTracks {
			kept = kept[:c.config.MaxTracks]
		}
		survivors = append(survivors, kept...)
	}

	if c.config.CancelAcrossZones {
		survivors = c.cancelAcrossZones(survivors)
	}

	sort.Slice(survivors, func(i, j int) bool {
		if survivors[i].Zone != survivors[j].Zone {
			return survivors[i].Zone < survivors[j].Zone
		}
		return c.higherPriority(&survivors[i], &survivors[j])
	})
	return survivors
}

// cancelAcrossZones removes ghosts between zones and keeps the best
// MaxTracks of the sector. With BugSameSectorPt0 the ghosts are kept with
// their pt zeroed, as the firmware does.
func (c *Canceller) cancelAcrossZones(roads []Road) []Road {
	c.sortRoads(roads)
	var kept []Road
	for i := range roads {
		ghost := false
		for j := range kept {
			if !kept[j].ZeroPt && IsGhost(&roads[i], &kept[j]) {
				ghost = true
				break
			}
		}
		switch {
		case !ghost:
			kept = append(kept, roads[i])
		case c.config.BugSameSectorPt0:
			road := roads[i]
			road.ZeroPt = true
			kept = append(kept, road)
		}
	}
	if len(kept) > c.config.MaxTracks {
		kept = kept[:c.config.MaxTracks]
	}
	return kept
}
