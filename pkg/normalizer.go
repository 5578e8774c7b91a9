package emtf

import (
	"fmt"
	"sort"
)

// Normalizer turns the raw primitives of an event into the hits seen by
// one sector processor.
type Normalizer struct {
	config     *Configuration
	lut        CoordinateLUT
	boundaries []int
}

func NewNormalizer(config *Configuration) (*Normalizer, error) {
	lut, err := NewCoordinateLUT(config.PhThLUT)
	if err != nil {
		return nil, &ErrInvalidConfig{Field: "ph_th_lut", Reason: err.Error()}
	}
	return &Normalizer{
		config:     config,
		lut:        lut,
		boundaries: config.ActiveZoneBoundaries(),
	}, nil
}

// Normalize is a convenience wrapper building a Normalizer for a single call.
func Normalize(config *Configuration, endcap, sector int, prims []RawPrimitive) ([]NormalizedHit, []HitSkip) {
	n, err := NewNormalizer(config)
	if err != nil {
		skips := make([]HitSkip, 0, len(prims))
		for _, p := range prims {
			skips = append(skips, HitSkip{Primitive: p, Reason: err})
		}
		return nil, skips
	}
	return n.Normalize(endcap, sector, prims)
}

// candidate is a selected primitive waiting for conversion. Segment is the
// input position of the primitive its strip measurement comes from, pos the
// position inside its link after duplication.
type candidate struct {
	prim    RawPrimitive
	sel     selection
	bx      int
	segment int
	pos     int
}

type linkBX struct {
	link int
	bx   int
}

// Normalize selects, converts and merges the primitives of sector
// processor (endcap, sector). Hits come out sorted by BX and link, with
// IDs assigned in that order.
func (n *Normalizer) Normalize(endcap, sector int, prims []RawPrimitive) ([]NormalizedHit, []HitSkip) {
	var skips []HitSkip
	groups := make(map[Subsystem]map[linkBX][]candidate)

	for i := range prims {
		p := prims[i]
		if !n.config.Enabled(p.Subsystem) {
			continue
		}
		// TrackFinder has already dropped malformed primitives; direct
		// callers of Normalize have not.
		if err := validatePrimitive(&p); err != nil {
			skips = append(skips, HitSkip{Primitive: p, Reason: err})
			continue
		}
		if p.Subsystem == RPC && !n.rpcEnabled(&p) {
			continue
		}
		bx := p.BX + n.config.BXShift(p.Subsystem)
		if bx < n.config.MinBX || bx > n.config.MaxBX {
			continue
		}
		if p.Subsystem == CSC && p.Pattern > 10 {
			logger.Error(fmt.Sprintf("patching corrupt CSC LCT pattern: changing %d to 10 (station %d CSC ID %d)", p.Pattern, p.Station, p.CSCID))
			p.Pattern = 10
		}

		sel, ok := n.selectPrimitive(endcap, sector, &p)
		if !ok {
			continue
		}
		if p.Subsystem == CSC || p.Subsystem == GEM {
			p.Subsector = cscSubsector(&p)
		}
		if groups[p.Subsystem] == nil {
			groups[p.Subsystem] = make(map[linkBX][]candidate)
		}
		key := linkBX{sel.Link, bx}
		groups[p.Subsystem][key] = append(groups[p.Subsystem][key], candidate{prim: p, sel: sel, bx: bx, segment: i})
	}

	if n.config.DuplicateTheta {
		for key, cands := range groups[CSC] {
			groups[CSC][key] = duplicateTheta(cands, n.config.BugME11Dupes && isME11Link(key.link))
		}
	}
	for key, cands := range groups[RPC] {
		groups[RPC][key] = cutRPCClusters(cands)
	}
	for _, group := range groups {
		for _, cands := range group {
			for k := range cands {
				cands[k].pos = k
			}
		}
	}

	merged := n.merge(groups)

	hits := make([]NormalizedHit, 0, len(merged))
	segments := make([]int, 0, len(merged))
	for _, c := range merged {
		hit, err := n.convert(endcap, sector, c)
		if err != nil {
			skips = append(skips, HitSkip{Primitive: c.prim, Reason: err})
			continue
		}
		hits = append(hits, hit)
		if c.prim.Subsystem == CSC {
			segments = append(segments, c.segment)
		} else {
			segments = append(segments, -1)
		}
	}

	assignIDs(hits, segments)
	return hits, skips
}

func (n *Normalizer) rpcEnabled(p *RawPrimitive) bool {
	if isIRPC(p.Station, p.Ring) {
		return n.config.IRPCEnable
	}
	return n.config.RPCEnable
}

func (n *Normalizer) selectPrimitive(endcap, sector int, p *RawPrimitive) (selection, bool) {
	switch p.Subsystem {
	case CSC:
		return n.selectCSC(endcap, sector, p)
	case RPC:
		return n.selectRPC(endcap, sector, p)
	case GEM:
		return n.selectGEM(endcap, sector, p)
	case ME0:
		return n.selectME0(endcap, sector, p)
	case DT:
		return n.selectDT(endcap, sector, p)
	}
	return selection{}, false
}

// duplicateTheta keeps at most two LCTs per chamber and BX. Two LCTs with
// different strip and wire are ambiguous: all four strip and wire
// combinations are emitted, (s1,w1) (s2,w1) (s1,w2) (s2,w2).
func duplicateTheta(cands []candidate, forceME11 bool) []candidate {
	switch {
	case len(cands) >= 4:
		logger.Error(fmt.Sprintf("found %d CSC LCTs in one chamber: keeping only two (station %d CSC ID %d)",
			len(cands), cands[0].prim.Station, cands[0].prim.CSCID))
		cands = []candidate{cands[0], cands[3]}
	case len(cands) == 3:
		logger.Error(fmt.Sprintf("found 3 CSC LCTs in one chamber: keeping only two (station %d CSC ID %d)",
			cands[0].prim.Station, cands[0].prim.CSCID))
		cands = cands[:2]
	}
	if len(cands) != 2 {
		return cands
	}

	first, second := cands[0], cands[1]
	ambiguous := first.prim.Strip != second.prim.Strip && first.prim.Wire != second.prim.Wire
	if !ambiguous && !forceME11 {
		return cands
	}
	swappedFirst, swappedSecond := first, second
	swappedFirst.prim.Wire = second.prim.Wire
	swappedSecond.prim.Wire = first.prim.Wire
	return []candidate{first, swappedSecond, swappedFirst, second}
}

const (
	maxRPCClusters      = 2
	maxRPCClusterWidth  = 3
	maxIRPCClusterWidth = 9
)

// cutRPCClusters keeps the first two clusters of each chamber, then drops
// the wide ones, so a wide cluster can push a narrow one out. RE3/3 and
// RE4/3 are ignored when the RE3/2 or RE4/2 half of the link fired.
func cutRPCClusters(cands []candidate) []candidate {
	hasRing2 := false
	perChamber := make(map[int]int)
	kept := cands[:0:0]
	for _, c := range cands {
		if c.prim.Station >= 3 && c.prim.Ring == 2 {
			hasRing2 = true
		}
		chamber := c.prim.Station*10 + c.prim.Ring
		if perChamber[chamber] == maxRPCClusters {
			continue
		}
		perChamber[chamber]++
		kept = append(kept, c)
	}

	cut := kept[:0]
	for _, c := range kept {
		width := c.prim.StripHi - c.prim.Strip + 1
		maxWidth := maxRPCClusterWidth
		if isIRPC(c.prim.Station, c.prim.Ring) {
			maxWidth = maxIRPCClusterWidth
		}
		if width > maxWidth {
			continue
		}
		if hasRing2 && c.prim.Station >= 3 && c.prim.Ring == 3 {
			continue
		}
		cut = append(cut, c)
	}
	return cut
}

// merge combines the subsystems into one list of candidates. In the 2016
// era only CSC and RPC are read and RPC clusters only fill links without a
// CSC stub. The timing era keeps everything.
func (n *Normalizer) merge(groups map[Subsystem]map[linkBX][]candidate) []candidate {
	var merged []candidate
	switch n.config.Era {
	case Phase2_timing:
		for _, s := range []Subsystem{CSC, GEM, ME0, RPC, DT} {
			for _, cands := range groups[s] {
				merged = append(merged, cands...)
			}
		}
	default:
		for _, cands := range groups[CSC] {
			merged = append(merged, cands...)
		}
		for key, cands := range groups[RPC] {
			if _, found := groups[CSC][key]; found {
				continue
			}
			merged = append(merged, cands...)
		}
	}

	// map iteration order is random
	sort.Slice(merged, func(i, j int) bool {
		a, b := &merged[i], &merged[j]
		if a.bx != b.bx {
			return a.bx < b.bx
		}
		if a.sel.Link != b.sel.Link {
			return a.sel.Link < b.sel.Link
		}
		if ra, rb := mergeRank(a.prim.Subsystem), mergeRank(b.prim.Subsystem); ra != rb {
			return ra < rb
		}
		return a.pos < b.pos
	})
	return merged
}

func mergeRank(s Subsystem) int {
	switch s {
	case CSC:
		return 0
	case GEM:
		return 1
	case ME0:
		return 2
	case RPC:
		return 3
	}
	return 4
}

func (n *Normalizer) convert(endcap, sector int, c candidate) (NormalizedHit, error) {
	p := c.prim
	hit := NormalizedHit{
		Subsystem:    p.Subsystem,
		Endcap:       endcap,
		Sector:       sector,
		SectorIndex:  sectorIndex(endcap, sector),
		SourceSector: p.Sector,
		Subsector:    p.Subsector,
		Station:      p.Station,
		Ring:         p.Ring,
		Chamber:      p.Chamber,
		CSCID:        p.CSCID,
		Neighbor:     c.sel.Neighbor,
		Link:         c.sel.Link,
		Strip:        p.Strip,
		Wire:         p.Wire,
		Roll:         p.Roll,
		Pattern:      p.Pattern,
		Quality:      p.Quality,
		Bend:         p.Bend,
		BX:           c.bx,
	}

	var err error
	switch p.Subsystem {
	case CSC:
		err = n.lut.CSC(&hit)
	case RPC:
		err = n.lut.RPC(&hit, c.sel.Slot, p.Strip, p.StripHi)
	case GEM:
		err = n.lut.GEM(&hit, p.Strip, p.StripHi)
	case ME0:
		err = n.lut.ME0(&hit)
	case DT:
		err = n.lut.DT(&hit, c.sel.LocalPhi)
	}
	if err != nil {
		return hit, err
	}

	overlap := n.config.ZoneOverlap
	if p.Subsystem == RPC {
		overlap = n.config.ZoneOverlapRPC
	}
	hit.ZoneMask = zoneMask(hit.Theta, n.boundaries, overlap)
	hit.ZoneHit = zoneHit(hit.PhiFP, n.config.FixZonePhi)
	return hit, nil
}

// zoneMask has bit i set when theta falls in zone i, extended by overlap
// on both sides.
func zoneMask(theta int, boundaries []int, overlap int) uint8 {
	var mask uint8
	for i := 0; i+1 < len(boundaries); i++ {
		if boundaries[i]-overlap <= theta && theta <= boundaries[i+1]+overlap {
			mask |= 1 << uint(i)
		}
	}
	return mask
}

// zoneHit is the phi position in the 160 columns of a zone image, one
// column per 32 phi units.
func zoneHit(phi int, fixZonePhi bool) int {
	zh := phi >> 5
	if fixZonePhi {
		zh = (phi + 16) >> 5
	}
	return clamp(zh, 0, NumZoneHits-1)
}

// assignIDs numbers the hits and points every hit at the ID of the first
// hit sharing its phi measurement. A negative segment is a measurement of
// its own.
func assignIDs(hits []NormalizedHit, segments []int) {
	first := make(map[int]int)
	for i := range hits {
		hits[i].ID = i
		hits[i].PhiSegment = i
		if segments[i] < 0 {
			continue
		}
		if id, found := first[segments[i]]; found {
			hits[i].PhiSegment = id
		} else {
			first[segments[i]] = i
		}
	}
}
