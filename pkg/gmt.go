package emtf

import "math"

// GMT phi is a 576 bin scale over 360 degrees, counted from the sector
// start. BugGMTPhi keeps the old 6849 multiplier instead of
// 6991 = 2^18 * 576/360/60.
func GMTPhi(phiFP int, bugGMTPhi bool) int {
	scale := 6991
	if bugGMTPhi {
		scale = 6849
	}
	return (phiFP*scale)>>18 - 35
}

const gmtEtaUnit = 0.010875

// GMTEta converts theta to the GMT eta scale, negative in endcap 2. The
// negative values use ones' complement so that each endcap has its own
// zero bin.
func GMTEta(theta int, endcap int) int {
	thetaRad := ThetaDegrees(theta) * math.Pi / 180
	eta := -math.Log(math.Tan(thetaRad / 2))
	gmtEta := int(eta / gmtEtaUnit)
	if endcap == 2 {
		gmtEta = -gmtEta
	}
	if gmtEta < 0 {
		gmtEta = ^(-gmtEta)
	}
	return gmtEta
}

var gmtQualityByMode = [16]int{
	15: 15, 14: 14, 13: 13, 12: 7, 11: 12, 10: 10, 9: 9, 7: 11, 6: 6, 5: 5, 3: 4,
}

func GMTQuality(mode int) int {
	if mode < 0 || mode > 15 {
		return 0
	}
	return gmtQualityByMode[mode]
}

// GMTCharge takes the bend of the first station pair of the mode. A
// negative bend is charge bit 1; a zero bend gives no valid charge.
func GMTCharge(mode int, data *PtData) (charge int, valid int) {
	ipair := primaryPair(mode)
	if ipair < 0 {
		return 0, 0
	}
	phidiff := signedDPhi(data, ipair, false)
	return boolToInt(phidiff < 0), boolToInt(phidiff != 0)
}

// GMTPt encodes pt in 0.5 GeV steps saturating at the field width.
func GMTPt(pt float64, bits int) int {
	gmt := int(2*pt + 1)
	return min(gmt, 1<<uint(bits)-1)
}

// DecodeGMTPt is the inverse of GMTPt at the bin low edge.
func DecodeGMTPt(gmt int) float64 {
	if gmt <= 0 {
		return 0
	}
	return float64(gmt-1) * 0.5
}
