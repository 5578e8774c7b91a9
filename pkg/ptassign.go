package emtf

import (
	"fmt"
	"math"
)

// Track quality word: the mode in the low bits plus flags.
const (
	QualityModeMask = 0xF
	QualityClamped  = 1 << 4
	QualityZeroPt   = 1 << 5
)

const (
	// pt is scaled up to keep the efficiency above 90% at the trigger
	// threshold
	ptScale            = 1.4
	maxXMLPt           = 1000.0
	mode15SaturationPt = 140.0
)

// Track is a road with its pt assignment.
type Track struct {
	Road
	PtAddress      uint32  `json:"pt_address"`
	PtXML          float64 `json:"pt_xml"`
	Pt             float64 `json:"pt"`
	Charge         int     `json:"charge"`
	Quality        int     `json:"quality"`
	GMTPt          int     `json:"gmt_pt"`
	GMTPhi         int     `json:"gmt_phi"`
	GMTEta         int     `json:"gmt_eta"`
	GMTQuality     int     `json:"gmt_quality"`
	GMTCharge      int     `json:"gmt_charge"`
	GMTChargeValid int     `json:"gmt_charge_valid"`
}

func (t *Track) Clamped() bool {
	return t.Quality&QualityClamped != 0
}

// PtAssigner evaluates either the forest directly or the pt LUT.
type PtAssigner struct {
	config *Configuration
	forest *Forest
	lut    PtLUT
}

// NewPtAssigner checks that the model matches the configuration. lut may
// be nil in BDT mode; in LUT mode a nil lut means the embedded LUT.
func NewPtAssigner(config *Configuration, forest *Forest, lut PtLUT) (*PtAssigner, error) {
	if forest == nil {
		return nil, &ErrUnknownForest{Version: config.PtAssignVersion, Dir: config.BDTXMLDir}
	}
	if config.PtAssignEngine == PtEngineLUT {
		if lut == nil {
			lut = NewEmbeddedPtLUT(forest, config.PtLUTVersion)
		}
		if lut.Version() != config.PtLUTVersion {
			return nil, &ErrPtLUT{Filename: config.PtLUTFile, Reason: fmt.Sprintf("version %d, expected %d", lut.Version(), config.PtLUTVersion)}
		}
	}
	return &PtAssigner{config: config, forest: forest, lut: lut}, nil
}

func (a *PtAssigner) Forest() *Forest {
	return a.forest
}

// Features builds the regression input of a road.
func (a *PtAssigner) Features(road *Road) Features {
	var features Features
	for i, pair := range StationPairs {
		if modeHasStation(road.Mode, pair[0]) && modeHasStation(road.Mode, pair[1]) {
			features[FeatureDPhi12+i] = float64(signedDPhi(&road.PtData, i, a.config.Bug9BitDPhi))
		}
	}
	if ipair := primaryPair(road.Mode); ipair >= 0 {
		features[FeatureDTheta] = float64(road.PtData.DeltaTh[ipair])
	}
	features[FeatureCLCT] = float64(clctOf(road, a.config.BugMode7CLCT))
	features[FeatureFR1] = float64(road.PtData.FR[0])
	features[FeatureStraightness] = float64(road.Straightness)
	features[FeatureTheta] = float64(road.Theta)
	return features
}

// scoreToPt turns a signed 1/pt score into pt and charge. BugNegPt keeps
// the legacy rule: a negative pt becomes 1 GeV and the charge is lost.
func scoreToPt(score float64, bugNegPt bool) (float64, int) {
	if score == 0 {
		return maxXMLPt, +1
	}
	if bugNegPt {
		pt := 1 / score
		if pt < 0 {
			return 1, +1
		}
		return math.Min(pt, maxXMLPt), +1
	}
	charge := +1
	if score < 0 {
		charge = -1
	}
	return math.Min(1/math.Abs(score), maxXMLPt), charge
}

// Assign computes pt, charge and the GMT words of a road.
func (a *PtAssigner) Assign(road Road) Track {
	track := Track{Road: road}
	clamped := false

	gmtCharge, gmtChargeValid := GMTCharge(road.Mode, &road.PtData)

	var xmlPt float64
	switch a.config.PtAssignEngine {
	case PtEngineLUT:
		address, saturated := PtAddress(&road, a.config.PtLUTVersion, a.config.Bug9BitDPhi, a.config.BugMode7CLCT)
		track.PtAddress = address
		xmlPt = DecodeGMTPt(a.lut.Lookup(address))
		clamped = saturated
		switch {
		case gmtChargeValid == 0:
			track.Charge = 0
		case gmtCharge == 1:
			track.Charge = -1
		default:
			track.Charge = +1
		}
	default:
		features := a.Features(&road)
		clamped = a.forest.Clamp(&features)
		xmlPt, track.Charge = scoreToPt(a.forest.Score(road.Mode, features), a.config.BugNegPt)
	}

	if !a.config.FixMode15HighPt && road.Mode == 15 && road.Straightness == MaxStraightness {
		xmlPt = math.Min(xmlPt, mode15SaturationPt)
	}
	track.PtXML = xmlPt

	track.GMTPt = GMTPt(xmlPt*ptScale, a.config.GMTPtBits)
	track.Pt = DecodeGMTPt(track.GMTPt)
	if road.ZeroPt {
		track.GMTPt = 0
		track.Pt = 0
	}

	track.GMTPhi = GMTPhi(road.PhiFP, a.config.BugGMTPhi)
	track.GMTEta = GMTEta(road.Theta, road.Endcap)
	track.GMTQuality = GMTQuality(road.Mode)
	track.GMTCharge = gmtCharge
	track.GMTChargeValid = gmtChargeValid

	track.Quality = road.Mode & QualityModeMask
	if clamped {
		track.Quality |= QualityClamped
	}
	if road.ZeroPt {
		track.Quality |= QualityZeroPt
	}
	return track
}
