package emtf

import (
	"fmt"

	"golang.org/x/exp/constraints"
)

// Angles are handled in 1/60 degree for phi and in the 7-bit theta scale
// documented in thetaFP.
const (
	phiUnitsPerDegree = 60
	sectorPhiOffset   = 22 // degrees before the nominal sector start
	sectorWidth       = 60 // degrees
	thetaMinDeg       = 8.5
	thetaMaxDeg       = 45.0
)

func clamp[T constraints.Integer | constraints.Float](value, lo, hi T) T {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

func abs[T constraints.Signed | constraints.Float](value T) T {
	if value < 0 {
		return -value
	}
	return value
}

// thetaFP converts a polar angle in degrees to the 7-bit theta used by the
// sector processor: th = (deg - 8.5) * 128 / (45 - 8.5), rounded. Zero is
// reserved for invalid so the result is clamped to 1..127.
func thetaFP(deg float64) int {
	th := int((deg-thetaMinDeg)*128/(thetaMaxDeg-thetaMinDeg) + 0.5)
	return clamp(th, 1, maxTh)
}

// ThetaDegrees is the inverse of the fixed-point theta conversion.
func ThetaDegrees(th int) float64 {
	return float64(th)*(thetaMaxDeg-thetaMinDeg)/128 + thetaMinDeg
}

// chamberGeometry describes the phi and theta coverage of one chamber type.
type chamberGeometry struct {
	Name     string
	Width    int // degrees in phi
	MaxStrip int // half-strips, strips or pads
	MaxWire  int // wire groups or eta partitions
	ThetaLo  float64
	ThetaHi  float64
}

var (
	me11a = chamberGeometry{"ME1/1a", 10, 96, 48, 9.5, 22.0}
	me11b = chamberGeometry{"ME1/1b", 10, 128, 48, 9.5, 22.0}
	me12  = chamberGeometry{"ME1/2", 10, 160, 64, 22.0, 33.0}
	me13  = chamberGeometry{"ME1/3", 10, 128, 32, 33.0, 44.5}
	me21  = chamberGeometry{"ME2/1", 20, 160, 112, 10.5, 22.5}
	me31  = chamberGeometry{"ME3/1", 20, 160, 96, 10.0, 20.5}
	me41  = chamberGeometry{"ME4/1", 20, 160, 96, 9.5, 18.5}
	me22  = chamberGeometry{"ME2/2", 10, 160, 64, 22.5, 36.5}
	me32  = chamberGeometry{"ME3/2", 10, 160, 64, 20.5, 33.5}
	me42  = chamberGeometry{"ME4/2", 10, 160, 64, 18.5, 30.5}

	ge11 = chamberGeometry{"GE1/1", 10, 192, 8, me11b.ThetaLo, me11b.ThetaHi}
	ge21 = chamberGeometry{"GE2/1", 20, 384, 8, me21.ThetaLo, me21.ThetaHi}
	me0  = chamberGeometry{"ME0", 20, 384, 8, 5.5, 15.0}
)

// cscGeometry returns the chamber type of a CSC. ME1/1a is reported by the
// unpacker as ring 4.
func cscGeometry(station, cscID, ring int) (chamberGeometry, error) {
	if station == 1 {
		switch {
		case cscID >= 1 && cscID <= 3 && ring == 4:
			return me11a, nil
		case cscID >= 1 && cscID <= 3:
			return me11b, nil
		case cscID >= 4 && cscID <= 6:
			return me12, nil
		case cscID >= 7 && cscID <= 9:
			return me13, nil
		}
		return chamberGeometry{}, fmt.Errorf("invalid ME1 CSC ID %d", cscID)
	}
	if cscID < 1 || cscID > 9 {
		return chamberGeometry{}, fmt.Errorf("invalid ME%d CSC ID %d", station, cscID)
	}
	inner := cscID <= 3
	switch station {
	case 2:
		if inner {
			return me21, nil
		}
		return me22, nil
	case 3:
		if inner {
			return me31, nil
		}
		return me32, nil
	case 4:
		if inner {
			return me41, nil
		}
		return me42, nil
	}
	return chamberGeometry{}, fmt.Errorf("invalid CSC station %d", station)
}

// cscSlot is the position of a chamber inside the sector, in units of the
// chamber width. Neighbor chambers sit at -1.
func cscSlot(station, subsector, cscID int, neighbor bool) int {
	if neighbor {
		return -1
	}
	if station == 1 {
		return (subsector-1)*3 + (cscID-1)%3
	}
	if cscID <= 3 {
		return cscID - 1
	}
	return cscID - 4
}

// slotPhi is the local phi of the low edge of a chamber slot.
func slotPhi(slot int, width int) int {
	return (slot*width + sectorPhiOffset) * phiUnitsPerDegree
}

// stripPhi places twicePos (in 1/2 units of the strip pitch, counted
// from the low chamber edge) inside a chamber at slot.
func stripPhi(slot int, geo chamberGeometry, twicePos int) int {
	phi := slotPhi(slot, geo.Width) + (twicePos*geo.Width*phiUnitsPerDegree/2)/geo.MaxStrip
	return clamp(phi, 0, maxPhi)
}

// wireTheta interpolates the CSC wire group linearly across the chamber.
func wireTheta(geo chamberGeometry, wire int) int {
	deg := geo.ThetaLo + (float64(wire)+0.5)/float64(geo.MaxWire)*(geo.ThetaHi-geo.ThetaLo)
	return thetaFP(deg)
}

// rollTheta interpolates eta partitions, roll 1 being the outermost one
// (largest theta).
func rollTheta(thetaLo, thetaHi float64, nRolls int, roll int) int {
	deg := thetaHi - (float64(roll)-0.5)/float64(nRolls)*(thetaHi-thetaLo)
	return thetaFP(deg)
}

// CoordinateLUT converts chamber-local measurements into sector
// coordinates. The analytic "ph_lut_v1" is the only one built in.
type CoordinateLUT interface {
	Name() string
	CSC(hit *NormalizedHit) error
	RPC(hit *NormalizedHit, slot, stripLo, stripHi int) error
	GEM(hit *NormalizedHit, padLo, padHi int) error
	ME0(hit *NormalizedHit) error
	DT(hit *NormalizedHit, localPhi int) error
}

func NewCoordinateLUT(name string) (CoordinateLUT, error) {
	switch name {
	case "ph_lut_v1":
		return analyticLUT{}, nil
	}
	return nil, fmt.Errorf("unknown coordinate LUT %q", name)
}

type analyticLUT struct{}

func (analyticLUT) Name() string { return "ph_lut_v1" }

func (analyticLUT) CSC(hit *NormalizedHit) error {
	geo, err := cscGeometry(hit.Station, hit.CSCID, hit.Ring)
	if err != nil {
		return err
	}
	slot := cscSlot(hit.Station, hit.Subsector, hit.CSCID, hit.Neighbor)
	hit.PhiFP = stripPhi(slot, geo, 2*hit.Strip+1)
	hit.Theta = wireTheta(geo, hit.Wire)
	return nil
}

func (analyticLUT) RPC(hit *NormalizedHit, slot, stripLo, stripHi int) error {
	geo, err := rpcGeometry(hit.Station, hit.Ring)
	if err != nil {
		return err
	}
	if hit.Neighbor {
		slot = -1
	}
	// 1-based strips: the cluster center is (lo+hi-1)/2 strips from the edge
	hit.PhiFP = stripPhi(slot, geo, stripLo+stripHi-1)
	hit.Theta = rollTheta(geo.ThetaLo, geo.ThetaHi, geo.MaxWire, hit.Roll)
	return nil
}

func (analyticLUT) GEM(hit *NormalizedHit, padLo, padHi int) error {
	geo := ge11
	if hit.Station == 2 {
		geo = ge21
	}
	slot := cscSlot(hit.Station, hit.Subsector, hit.CSCID, hit.Neighbor)
	hit.PhiFP = stripPhi(slot, geo, padLo+padHi+1)
	hit.Theta = rollTheta(geo.ThetaLo, geo.ThetaHi, geo.MaxWire, hit.Roll)
	return nil
}

func (analyticLUT) ME0(hit *NormalizedHit) error {
	slot := hit.CSCID - 1
	if hit.Neighbor {
		slot = -1
	}
	hit.PhiFP = stripPhi(slot, me0, 2*hit.Strip+1)
	hit.Theta = rollTheta(me0.ThetaLo, me0.ThetaHi, me0.MaxWire, hit.Roll)
	return nil
}

var dtThetaDeg = map[int]float64{1: 44.0, 2: 43.0}

func (analyticLUT) DT(hit *NormalizedHit, localPhi int) error {
	deg, ok := dtThetaDeg[hit.Station]
	if !ok {
		return fmt.Errorf("invalid DT station %d", hit.Station)
	}
	hit.PhiFP = clamp(localPhi+sectorPhiOffset*phiUnitsPerDegree, 0, maxPhi)
	hit.Theta = thetaFP(deg)
	return nil
}

// RPC chambers. The ring 2 and 3 chambers of stations 3 and 4 share the
// theta range of the CSC ring 2 chamber in front of them.
var (
	re12 = chamberGeometry{"RE1/2", 10, 32, 3, me12.ThetaLo, me12.ThetaHi}
	re22 = chamberGeometry{"RE2/2", 10, 32, 3, me22.ThetaLo, me22.ThetaHi}
	re32 = chamberGeometry{"RE3/2", 10, 32, 3, me32.ThetaLo, (me32.ThetaLo + me32.ThetaHi) / 2}
	re33 = chamberGeometry{"RE3/3", 10, 32, 3, (me32.ThetaLo + me32.ThetaHi) / 2, me32.ThetaHi}
	re42 = chamberGeometry{"RE4/2", 10, 32, 3, me42.ThetaLo, (me42.ThetaLo + me42.ThetaHi) / 2}
	re43 = chamberGeometry{"RE4/3", 10, 32, 3, (me42.ThetaLo + me42.ThetaHi) / 2, me42.ThetaHi}
	re31 = chamberGeometry{"RE3/1", 20, 192, 5, me31.ThetaLo, me31.ThetaHi}
	re41 = chamberGeometry{"RE4/1", 20, 192, 5, me41.ThetaLo, me41.ThetaHi}
)

func rpcGeometry(station, ring int) (chamberGeometry, error) {
	switch {
	case station == 1 && ring == 2:
		return re12, nil
	case station == 2 && ring == 2:
		return re22, nil
	case station == 3 && ring == 1:
		return re31, nil
	case station == 3 && ring == 2:
		return re32, nil
	case station == 3 && ring == 3:
		return re33, nil
	case station == 4 && ring == 1:
		return re41, nil
	case station == 4 && ring == 2:
		return re42, nil
	case station == 4 && ring == 3:
		return re43, nil
	}
	return chamberGeometry{}, fmt.Errorf("RE%d/%d is not read by the sector processor", station, ring)
}

func isIRPC(station, ring int) bool {
	return station >= 3 && ring == 1
}
