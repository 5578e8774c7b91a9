package emtf

// Chamber link numbering of the sector processor inputs. CSC and RPC share
// the same link space so RPC clusters can fill in missing CSC stubs.
const (
	NumCSCLinks       = 54
	neighborLinkBase  = 45
	me0LinkBase       = 54
	dtLinkBase        = 60
	rpcNeighborPCSt   = 5
	ptLinksPerStation = 9
)

// selection is the result of routing one primitive to a sector processor.
type selection struct {
	Neighbor bool
	Link     int
	Slot     int // RPC chamber slot inside the sector
	LocalPhi int // DT local phi
}

func validatePrimitive(p *RawPrimitive) error {
	bad := func(field string, value int) error {
		return &ErrMalformedPrimitive{Subsystem: p.Subsystem, Field: field, Value: value}
	}
	if !p.Valid {
		return bad("valid", 0)
	}
	if p.Endcap < MinEndcap || p.Endcap > MaxEndcap {
		return bad("endcap", p.Endcap)
	}
	if p.Station < 1 || p.Station > NumStations {
		return bad("station", p.Station)
	}

	switch p.Subsystem {
	case CSC:
		if p.Sector < MinSector || p.Sector > MaxSector {
			return bad("sector", p.Sector)
		}
		if p.Station == 1 && (p.Subsector < 0 || p.Subsector > 2) {
			return bad("subsector", p.Subsector)
		}
		geo, err := cscGeometry(p.Station, p.CSCID, p.Ring)
		if err != nil {
			return bad("csc_id", p.CSCID)
		}
		if p.Strip < 0 || p.Strip >= geo.MaxStrip {
			return bad("strip", p.Strip)
		}
		if p.Wire < 0 || p.Wire >= geo.MaxWire {
			return bad("wire", p.Wire)
		}
		if p.Pattern < 0 || p.Pattern > 14 {
			return bad("pattern", p.Pattern)
		}
	case RPC:
		if p.Sector < MinSector || p.Sector > MaxSector {
			return bad("sector", p.Sector)
		}
		if p.Ring < 1 || p.Ring > 3 {
			return bad("ring", p.Ring)
		}
		maxSub := 6
		if isIRPC(p.Station, p.Ring) {
			maxSub = 3
		}
		if p.Subsector < 1 || p.Subsector > maxSub {
			return bad("subsector", p.Subsector)
		}
		if geo, err := rpcGeometry(p.Station, p.Ring); err == nil {
			if p.Roll < 1 || p.Roll > geo.MaxWire {
				return bad("roll", p.Roll)
			}
			if p.Strip < 1 || p.Strip > geo.MaxStrip {
				return bad("strip", p.Strip)
			}
			if p.StripHi < p.Strip || p.StripHi > geo.MaxStrip {
				return bad("strip_hi", p.StripHi)
			}
		}
	case GEM:
		if p.Sector < MinSector || p.Sector > MaxSector {
			return bad("sector", p.Sector)
		}
		if p.Station > 2 {
			return bad("station", p.Station)
		}
		if p.CSCID < 1 || p.CSCID > 3 {
			return bad("csc_id", p.CSCID)
		}
		if p.Station == 1 && (p.Subsector < 0 || p.Subsector > 2) {
			return bad("subsector", p.Subsector)
		}
		geo := ge11
		if p.Station == 2 {
			geo = ge21
		}
		if p.Roll < 1 || p.Roll > geo.MaxWire {
			return bad("roll", p.Roll)
		}
		if p.Strip < 0 || p.Strip >= geo.MaxStrip {
			return bad("strip", p.Strip)
		}
		if p.StripHi < p.Strip || p.StripHi >= geo.MaxStrip {
			return bad("strip_hi", p.StripHi)
		}
	case ME0:
		if p.Sector < MinSector || p.Sector > MaxSector {
			return bad("sector", p.Sector)
		}
		if p.Station != 1 {
			return bad("station", p.Station)
		}
		if p.CSCID < 1 || p.CSCID > 3 {
			return bad("csc_id", p.CSCID)
		}
		if p.Roll < 1 || p.Roll > me0.MaxWire {
			return bad("roll", p.Roll)
		}
		if p.Strip < 0 || p.Strip >= me0.MaxStrip {
			return bad("strip", p.Strip)
		}
	case DT:
		if p.Chamber < 1 || p.Chamber > 12 {
			return bad("chamber", p.Chamber)
		}
		if abs(p.Strip) >= 900 {
			return bad("strip", p.Strip)
		}
	default:
		return bad("subsystem", int(p.Subsystem))
	}
	return nil
}

// cscSubsector fills in the ME1 subsector when the unpacker did not
// provide it.
func cscSubsector(p *RawPrimitive) int {
	if p.Station != 1 || p.Subsector != 0 {
		return p.Subsector
	}
	if p.Chamber%6 > 2 {
		return 1
	}
	return 2
}

func isCSCNeighbor(station, subsector, cscID int) bool {
	if station == 1 {
		return subsector == 2 && (cscID == 3 || cscID == 6 || cscID == 9)
	}
	return cscID == 3 || cscID == 9
}

// cscLink numbers the CSC chambers: ME1 by subsector and CSC ID (0-17),
// ME2-4 by station and CSC ID (18-44), neighbors 45-53.
func cscLink(station, subsector, cscID int, neighbor bool) int {
	if neighbor {
		chamber := 0
		if station == 1 {
			chamber = (cscID - 1) / 3
		} else {
			chamber = 3 + (station-2)*2
			if cscID > 3 {
				chamber++
			}
		}
		return neighborLinkBase + chamber
	}
	if station == 1 {
		return (subsector-1)*9 + cscID - 1
	}
	return station*9 + cscID - 1
}

func isME11Link(link int) bool {
	return (link >= 0 && link <= 2) || (link >= 9 && link <= 11) || link == neighborLinkBase
}

func (n *Normalizer) selectCSC(endcap, sector int, p *RawPrimitive) (selection, bool) {
	if p.Endcap != endcap {
		return selection{}, false
	}
	subsector := cscSubsector(p)
	if p.Sector == sector {
		return selection{Link: cscLink(p.Station, subsector, p.CSCID, false)}, true
	}
	if n.config.IncludeNeighbor && p.Sector == previousSector(sector) && isCSCNeighbor(p.Station, subsector, p.CSCID) {
		return selection{Neighbor: true, Link: cscLink(p.Station, subsector, p.CSCID, true)}, true
	}
	return selection{}, false
}

// GEM chambers sit in front of the ring 1 CSCs and use the same links.
func (n *Normalizer) selectGEM(endcap, sector int, p *RawPrimitive) (selection, bool) {
	return n.selectCSC(endcap, sector, p)
}

func (n *Normalizer) selectME0(endcap, sector int, p *RawPrimitive) (selection, bool) {
	if p.Endcap != endcap {
		return selection{}, false
	}
	if p.Sector == sector {
		return selection{Link: me0LinkBase + p.CSCID - 1}, true
	}
	if n.config.IncludeNeighbor && p.Sector == previousSector(sector) && p.CSCID == 3 {
		return selection{Neighbor: true, Link: me0LinkBase + 3}, true
	}
	return selection{}, false
}

// rpcChamber maps an RPC station and ring to the chamber numbering of the
// link tables: RE1/2 0, RE2/2 1, RE3/2 2, RE3/3 3, RE4/2 4, RE4/3 5,
// RE3/1 6, RE4/1 7.
func rpcChamber(station, ring int) int {
	if isIRPC(station, ring) {
		return 6 + station - 3
	}
	if station <= 2 {
		return station - 1
	}
	return 2 + (station-3)*2 + (ring - 2)
}

var rpcNeighborChamber = [8]int{1, 4, 6, 6, 8, 8, 5, 7}

// RPC sectors are rotated with respect to CSC sectors: subsectors 1 and 2
// of RPC sector X cover the end of CSC sector X-1.
func (n *Normalizer) selectRPC(endcap, sector int, p *RawPrimitive) (selection, bool) {
	if p.Endcap != endcap {
		return selection{}, false
	}
	if _, err := rpcGeometry(p.Station, p.Ring); err != nil {
		return selection{}, false
	}
	irpc := isIRPC(p.Station, p.Ring)
	chamber := rpcChamber(p.Station, p.Ring)

	cscSector := p.Sector
	neighborSub := 2
	if irpc {
		neighborSub = 1
	}
	if p.Subsector <= neighborSub {
		cscSector = previousSector(p.Sector)
	}

	if cscSector == sector {
		var rpcSub int
		if irpc {
			rpcSub = (p.Subsector + 1) % 3
		} else {
			rpcSub = (p.Subsector + 3) % 6
		}
		pcSt, pcCh := 0, 0
		switch {
		case irpc:
			pcSt, pcCh = p.Station, rpcSub
		case p.Station == 1 && rpcSub < 3:
			pcSt, pcCh = 0, 3+rpcSub
		case p.Station == 1:
			pcSt, pcCh = 1, 3+rpcSub-3
		default:
			pcSt, pcCh = p.Station, 3+rpcSub
		}
		return selection{Link: pcSt*ptLinksPerStation + pcCh, Slot: rpcSub}, true
	}
	if n.config.IncludeNeighbor && p.Sector == sector && p.Subsector == neighborSub {
		link := rpcNeighborPCSt*ptLinksPerStation + rpcNeighborChamber[chamber]
		return selection{Neighbor: true, Link: link, Slot: -1}, true
	}
	return selection{}, false
}

// DT chambers are numbered by the 12 barrel sectors, centered every 30
// degrees starting at 0.
func (n *Normalizer) selectDT(endcap, sector int, p *RawPrimitive) (selection, bool) {
	if p.Endcap != endcap || p.Station > 2 {
		return selection{}, false
	}
	local := (p.Chamber-1)*30*phiUnitsPerDegree + p.Strip - (15+sectorWidth*(sector-1))*phiUnitsPerDegree
	const full = 360 * phiUnitsPerDegree
	for local >= full/2 {
		local -= full
	}
	for local < -full/2 {
		local += full
	}
	link := dtLinkBase + (p.Station-1)*2
	switch {
	case local >= 0 && local < sectorWidth*phiUnitsPerDegree:
		return selection{Link: link, LocalPhi: local}, true
	case n.config.IncludeNeighbor && local >= -10*phiUnitsPerDegree && local < 0:
		return selection{Neighbor: true, Link: link + 1, LocalPhi: local}, true
	}
	return selection{}, false
}
