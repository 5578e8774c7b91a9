package emtf

// Pt LUT address layout, 30 bits:
//
//	 0-6  dphi A      7 sign A
//	 8-12 dphi B     13 sign B
//	14-17 dphi C     18 sign C
//	19-21 dtheta     22-23 CLCT
//	24    FR1        26-29 mode_inv
const (
	PtAddressBits = 30
	PtLUTEntries  = 1 << PtAddressBits

	addrModeInvShift = 26
)

type addressField struct {
	shift int
	bits  int
}

var (
	fieldDPhi = [3]addressField{{0, 7}, {8, 5}, {14, 4}}
	fieldSign = [3]addressField{{7, 1}, {13, 1}, {18, 1}}
	fieldDTh  = addressField{19, 3}
	fieldCLCT = addressField{22, 2}
	fieldFR1  = addressField{24, 1}
	fieldMode = addressField{addrModeInvShift, 4}
)

func (f addressField) put(address uint32, value int) uint32 {
	mask := uint32(1)<<uint(f.bits) - 1
	return address | (uint32(value)&mask)<<uint(f.shift)
}

func (f addressField) get(address uint32) int {
	mask := uint32(1)<<uint(f.bits) - 1
	return int((address >> uint(f.shift)) & mask)
}

// pairChains lists the station pairs encoded in the address for each
// mode, indices into StationPairs.
var pairChains = map[int][]int{
	15: {0, 3, 5}, // 12 23 34
	14: {0, 3},    // 12 23
	13: {0, 4},    // 12 24
	11: {1, 5},    // 13 34
	7:  {3, 5},    // 23 34
	12: {0},
	10: {1},
	9:  {2},
	6:  {3},
	5:  {4},
	3:  {5},
}

// compression is a piecewise linear quantizer: exact below fine, then one
// bin every step, saturating at the field width.
type compression struct {
	fine int
	step int
}

// v4 and v5 LUTs use fine bins for small bends; v6 and v7 are linear.
var dphiCompression = map[int][3]compression{
	4: {{32, 8}, {8, 16}, {4, 32}},
	5: {{32, 8}, {8, 16}, {4, 32}},
	6: {{0, 4}, {0, 8}, {0, 16}},
	7: {{0, 4}, {0, 8}, {0, 16}},
}

var dthetaCompression = map[int]compression{
	4: {4, 2},
	5: {4, 2},
	6: {0, 1},
	7: {0, 1},
}

func (c compression) compress(value int, bits int) (int, bool) {
	maxBin := 1<<uint(bits) - 1
	bin := value
	if value >= c.fine {
		bin = c.fine + (value-c.fine)/c.step
	}
	if bin > maxBin {
		return maxBin, true
	}
	return bin, false
}

// decompress returns the representative value of a bin.
func (c compression) decompress(bin int) int {
	if bin < c.fine {
		return bin
	}
	return c.fine + (bin-c.fine)*c.step + c.step/2
}

// CLCT patterns go from 2 (most bent) to 10 (straight).
func compressCLCT(pattern int) int {
	switch {
	case pattern >= 10:
		return 0
	case pattern >= 8:
		return 1
	case pattern >= 6:
		return 2
	}
	return 3
}

var clctRepresentative = [4]int{10, 8, 6, 4}

// signedDPhi returns the dphi of pair ipair with its sign applied.
func signedDPhi(data *PtData, ipair int, bug9Bit bool) int {
	d := data.DeltaPh[ipair]
	if bug9Bit {
		d &= 0x1FF
	}
	if data.SignPh[ipair] == 1 {
		return d
	}
	return -d
}

// PtAddress packs a road into the pt LUT address of the given LUT version.
// The second result tells whether a feature saturated its field.
func PtAddress(road *Road, version int, bug9BitDPhi, bugMode7CLCT bool) (uint32, bool) {
	chain, ok := pairChains[road.Mode]
	if !ok {
		return 0, false
	}
	dphiComp, ok := dphiCompression[version]
	if !ok {
		dphiComp = dphiCompression[4]
	}
	dthComp := dthetaCompression[version]

	saturated := false
	address := fieldMode.put(0, road.ModeInv)
	for i, ipair := range chain {
		d := road.PtData.DeltaPh[ipair]
		if bug9BitDPhi {
			d &= 0x1FF
		}
		bin, sat := dphiComp[i].compress(d, fieldDPhi[i].bits)
		saturated = saturated || sat
		address = fieldDPhi[i].put(address, bin)
		address = fieldSign[i].put(address, road.PtData.SignPh[ipair])
	}

	dth, sat := dthComp.compress(road.PtData.DeltaTh[chain[0]], fieldDTh.bits)
	saturated = saturated || sat
	address = fieldDTh.put(address, dth)
	address = fieldCLCT.put(address, compressCLCT(clctOf(road, bugMode7CLCT)))
	address = fieldFR1.put(address, road.PtData.FR[0])
	return address, saturated
}

// clctOf picks the CLCT pattern used as feature: station 1, or station 2
// for mode 7. The firmware reads the empty station 1 slot for mode 7.
func clctOf(road *Road, bugMode7CLCT bool) int {
	if road.Mode == 7 && !bugMode7CLCT {
		return road.PtData.CPattern[1]
	}
	return road.PtData.CPattern[0]
}

// AddressFeatures decodes an address back to the feature vector the
// forest is evaluated on. The second result is the mode.
func AddressFeatures(address uint32, version int) (Features, int) {
	var features Features
	modeInv := fieldMode.get(address)
	mode := (modeInv&1)<<3 | ((modeInv>>1)&1)<<2 | ((modeInv>>2)&1)<<1 | (modeInv>>3)&1
	chain, ok := pairChains[mode]
	if !ok {
		return features, mode
	}
	dphiComp, ok := dphiCompression[version]
	if !ok {
		dphiComp = dphiCompression[4]
	}
	dthComp := dthetaCompression[version]

	for i, ipair := range chain {
		d := dphiComp[i].decompress(fieldDPhi[i].get(address))
		if fieldSign[i].get(address) == 0 {
			d = -d
		}
		features[FeatureDPhi12+ipair] = float64(d)
	}
	features[FeatureDTheta] = float64(dthComp.decompress(fieldDTh.get(address)))
	features[FeatureCLCT] = float64(clctRepresentative[fieldCLCT.get(address)])
	features[FeatureFR1] = float64(fieldFR1.get(address))
	return features, mode
}
