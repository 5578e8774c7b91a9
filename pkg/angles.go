package emtf

const (
	invalidDTheta = maxTh  // 127
	invalidDPhi   = maxPhi // 8191
)

// isFront tells whether a CSC is mounted on the front face of its disk.
// Odd chambers are bolted to the iron, which faces forward in stations 1
// and 2 and backward in 3 and 4. ME1/3 does not overlap and is always at
// the back.
func isFront(station, ring, chamber int) bool {
	if station == 1 && ring == 3 {
		return false
	}
	even := chamber%2 == 0
	if station < 3 {
		return even
	}
	return !even
}

// buildRoad computes the station deltas of a pattern match, drops the
// stations failing the theta window and selects one hit per station. It
// returns false when fewer than two stations survive.
func (m *Matcher) buildRoad(road *Road, matched [NumStations][]*NormalizedHit) bool {
	var (
		bestDTheta [NumStationPairs]int
		bestDPhi   [NumStationPairs]int
		signTheta  [NumStationPairs]int
		signPhi    [NumStationPairs]int
		validPair  [NumStationPairs]bool
		rpcPair    [NumStationPairs]bool
		bestTheta  [NumStations]int
		bestPhi    [NumStations]int
	)
	for i := range bestDTheta {
		bestDTheta[i] = invalidDTheta
		bestDPhi[i] = invalidDPhi
		signPhi[i] = 1 // dphi sign is reversed with respect to dtheta
	}

	for ipair, pair := range StationPairs {
		stA, stB := pair[0]-1, pair[1]-1
		for _, hitA := range matched[stA] {
			for _, hitB := range matched[stB] {
				thA, thB := hitA.Theta, hitB.Theta
				dth := abs(thA - thB)
				if bestDTheta[ipair] >= dth {
					bestDTheta[ipair] = dth
					signTheta[ipair] = boolToInt(thA > thB)
					validPair[ipair] = true
					rpcPair[ipair] = hitA.Subsystem == RPC || hitB.Subsystem == RPC
					bestTheta[stA] = thA
					bestTheta[stB] = thB
				}

				phA, phB := hitA.PhiFP, hitB.PhiFP
				if validPair[ipair] {
					bestDPhi[ipair] = abs(phA - phB)
					signPhi[ipair] = boolToInt(phA <= phB)
					bestPhi[stA] = phA
					bestPhi[stB] = phB
				}
			}
		}
	}

	// valid station masks, bit 0 is ME1
	pairMask := [NumStationPairs]int{0b0011, 0b0101, 0b1001, 0b0110, 0b1010, 0b1100}
	var vmask [3]int
	for ipair := range StationPairs {
		window := m.config.ThetaWindow
		if rpcPair[ipair] {
			window = m.config.ThetaWindowRPC
		}
		if bestDTheta[ipair] <= window {
			vmask[StationPairs[ipair][0]-1] |= pairMask[ipair]
		}
	}
	// merge the masks only if they share a station
	vstat := vmask[0]
	if vstat&vmask[1] != 0 || vstat == 0 {
		vstat |= vmask[1]
	}
	if vstat&vmask[2] != 0 || vstat == 0 {
		vstat |= vmask[2]
	}

	for st := 0; st < NumStations; st++ {
		if vstat&(1<<uint(st)) == 0 {
			matched[st] = nil
		}
	}

	switch {
	case vstat&(1<<1) != 0:
		road.PhiFP, road.Theta = bestPhi[1], bestTheta[1]
	case vstat&(1<<2) != 0:
		road.PhiFP, road.Theta = bestPhi[2], bestTheta[2]
	case vstat&(1<<3) != 0:
		road.PhiFP, road.Theta = bestPhi[3], bestTheta[3]
	}

	// output rank is one bit longer than the quality code to fit ME4
	rank := road.QualityCode << 1
	road.Rank = ((rank>>6)&1)<<6 |
		((rank>>4)&1)<<4 |
		((rank>>2)&1)<<2 |
		(vstat&1)<<5 |
		((vstat>>1)&1)<<3 |
		((vstat>>2)&1)<<1 |
		(vstat>>3)&1
	road.Mode = (vstat&1)<<3 | ((vstat>>1)&1)<<2 | ((vstat>>2)&1)<<1 | (vstat>>3)&1
	road.ModeInv = vstat
	if countLayers(vstat) < 2 {
		road.Rank = 0
		return false
	}

	data := PtData{
		DeltaPh: bestDPhi,
		DeltaTh: bestDTheta,
		SignPh:  signPhi,
		SignTh:  signTheta,
		Ph:      bestPhi,
		Th:      bestTheta,
	}
	var selected []*NormalizedHit
	for st := 0; st < NumStations; st++ {
		road.HitIDs[st] = -1
		road.Segments[st] = -1
		if len(matched[st]) == 0 {
			continue
		}
		front := matched[st][0]
		data.CPattern[st] = front.Pattern
		if front.Subsystem == CSC {
			data.FR[st] = boolToInt(isFront(front.Station, front.Ring, front.Chamber))
		}
		for _, h := range matched[st] {
			if h.Pattern == data.CPattern[st] && h.PhiFP == bestPhi[st] && h.Theta == bestTheta[st] {
				road.HitIDs[st] = h.ID
				road.Segments[st] = h.PhiSegment
				selected = append(selected, h)
				break
			}
		}
	}
	road.PtData = data
	road.FirstBX, road.SecondBX = m.calculateBX(road.BX, selected)
	return true
}

// calculateBX finds the BX of the earliest possible track and the BX at
// which its second hit arrived.
func (m *Matcher) calculateBX(bx int, hits []*NormalizedHit) (int, int) {
	delay := m.config.BXWindow - 1
	hbx := make([]int, delay+1)
	for _, h := range hits {
		for i := delay; i >= 0; i-- {
			if h.BX <= bx-i {
				hbx[i]++
			}
		}
	}

	second := bx
	for i := delay; i >= 0; i-- {
		if hbx[i] >= 2 {
			second = bx - i
			break
		}
	}
	return bx - delay, second
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
