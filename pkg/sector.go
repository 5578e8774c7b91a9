package emtf

import (
	"fmt"
	"strings"
)

// sectorProcessor runs the pipeline of one (endcap, sector). The stages
// are stateless and shared; the road lifetime is per call.
type sectorProcessor struct {
	endcap     int
	sector     int
	config     *Configuration
	normalizer *Normalizer
	matcher    *Matcher
	canceller  *Canceller
	pt         *PtAssigner
}

type sectorResult struct {
	hits   []NormalizedHit
	tracks []Track
	skips  []HitSkip
}

// windowHits returns the hits with BX in [bx-window+1, bx].
func windowHits(hits []NormalizedHit, bx int, window int) []NormalizedHit {
	var selected []NormalizedHit
	for _, h := range hits {
		if h.BX <= bx && h.BX > bx-window {
			selected = append(selected, h)
		}
	}
	return selected
}

func (sp *sectorProcessor) process(prims []RawPrimitive) sectorResult {
	var result sectorResult
	result.hits, result.skips = sp.normalizer.Normalize(sp.endcap, sp.sector, prims)

	lifetime := newRoadLifetime(sp.config)
	for bx := sp.config.MinBX; bx <= sp.config.MaxBX; bx++ {
		window := windowHits(result.hits, bx, sp.config.BXWindow)

		var roads []Road
		for zone := 0; zone < sp.matcher.NumZones(); zone++ {
			roads = append(roads, lifetime.update(zone, sp.matcher.MatchZone(zone, bx, window))...)
		}
		for i := range roads {
			roads[i].Endcap = sp.endcap
			roads[i].Sector = sp.sector
			roads[i].SectorIndex = sectorIndex(sp.endcap, sp.sector)
		}

		for _, road := range sp.canceller.Cancel(roads) {
			result.tracks = append(result.tracks, sp.pt.Assign(road))
		}
	}

	if sp.config.Verbosity > 0 && (len(result.hits) > 0 || len(result.tracks) > 0) {
		var dump strings.Builder
		DumpSector(&dump, sp.config, sp.endcap, sp.sector, result.hits, result.tracks)
		logger.Info(dump.String(), "sector")
	}
	if sp.config.Verbosity > 1 {
		logger.Info(fmt.Sprintf("endcap %d sector %d: %d hits, %d tracks", sp.endcap, sp.sector, len(result.hits), len(result.tracks)), "sector")
	}
	return result
}
