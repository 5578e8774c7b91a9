package emtf

import (
	"fmt"
	"strings"
)

const (
	MinEndcap = 1
	MaxEndcap = 2
	MinSector = 1
	MaxSector = 6

	NumSectors          = MaxSector - MinSector + 1
	NumSectorProcessors = (MaxEndcap - MinEndcap + 1) * NumSectors
	NumStations         = 4
	NumStationPairs     = 6
	NumZoneHits         = 160

	bwPhi   = 13 // full precision phi
	bwTheta = 7
	maxPhi  = (1 << bwPhi) - 1
	maxTh   = (1 << bwTheta) - 1
)

// RawPrimitive is one trigger primitive as delivered by the unpacker or
// the primitive emulator of a subsystem. Field meaning depends on the
// subsystem:
//
//	CSC: Strip is the half-strip, Wire the wire group, Pattern the CLCT pattern.
//	RPC: Strip..StripHi is the cluster, Roll the eta partition.
//	GEM: Strip..StripHi is the pad cluster, Roll the eta partition.
//	ME0: Strip is the half-strip position, Roll the eta partition.
//	DT:  Chamber is the DT sector (1-12), Strip the signed phi offset from
//	     the chamber center in 1/60 degree.
type RawPrimitive struct {
	Subsystem Subsystem `json:"subsystem"`
	Endcap    int       `json:"endcap"`
	Sector    int       `json:"sector"`
	Subsector int       `json:"subsector"`
	Station   int       `json:"station"`
	Ring      int       `json:"ring"`
	Chamber   int       `json:"chamber"`
	CSCID     int       `json:"csc_id"`
	Strip     int       `json:"strip"`
	StripHi   int       `json:"strip_hi"`
	Wire      int       `json:"wire"`
	Roll      int       `json:"roll"`
	Pattern   int       `json:"pattern"`
	Quality   int       `json:"quality"`
	Bend      int       `json:"bend"`
	BX        int       `json:"bx"`
	Valid     bool      `json:"valid"`
}

// NormalizedHit is a primitive converted to the sector processor
// coordinates. Created by the Normalizer, read-only afterwards.
//
// SectorIndex is the sector processor that owns the hit, SourceSector the
// sector the primitive was recorded in. PhiSegment identifies the physical
// segment the phi measurement comes from: copies made for ambiguous theta
// share it.
type NormalizedHit struct {
	ID           int       `json:"id"`
	Subsystem    Subsystem `json:"subsystem"`
	Endcap       int       `json:"endcap"`
	Sector       int       `json:"sector"`
	SectorIndex  int       `json:"sector_idx"`
	SourceSector int       `json:"source_sector"`
	Subsector    int       `json:"subsector"`
	Station      int       `json:"station"`
	Ring         int       `json:"ring"`
	Chamber      int       `json:"chamber"`
	CSCID        int       `json:"csc_id"`
	Neighbor     bool      `json:"neighbor"`
	Link         int       `json:"link"`
	Strip        int       `json:"strip"`
	Wire         int       `json:"wire"`
	Roll         int       `json:"roll"`
	Pattern      int       `json:"pattern"`
	Quality      int       `json:"quality"`
	Bend         int       `json:"bend"`
	BX           int       `json:"bx"`
	PhiFP        int       `json:"phi_fp"`
	Theta        int       `json:"theta_fp"`
	ZoneMask     uint8     `json:"zone_code"`
	ZoneHit      int       `json:"zone_hit"`
	PhiSegment   int       `json:"phi_segment"`
}

func (h *NormalizedHit) InZone(zone int) bool {
	return h.ZoneMask&(1<<uint(zone)) != 0
}

// HitSkip records a primitive dropped because of malformed content.
type HitSkip struct {
	Primitive RawPrimitive
	Reason    error
}

// InputTag names one input collection of an event.
type InputTag struct {
	Subsystem Subsystem
	Label     string
}

func (t InputTag) String() string {
	return fmt.Sprintf("%v/%s", t.Subsystem, t.Label)
}

func (t InputTag) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *InputTag) UnmarshalText(text []byte) error {
	name, label, found := strings.Cut(string(text), "/")
	if !found {
		return fmt.Errorf("invalid input tag %q", text)
	}
	if err := t.Subsystem.parse(name); err != nil {
		return err
	}
	t.Label = label
	return nil
}

// Event is the unit of work: every input collection of one bunch
// crossing readout.
type Event struct {
	Run    uint64                      `json:"run"`
	ID     uint64                      `json:"event"`
	Inputs map[InputTag][]RawPrimitive `json:"inputs"`
}

func sectorIndex(endcap int, sector int) int {
	return (endcap-MinEndcap)*NumSectors + (sector - MinSector)
}

func previousSector(sector int) int {
	if sector == MinSector {
		return MaxSector
	}
	return sector - 1
}
