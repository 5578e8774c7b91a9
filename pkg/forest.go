package emtf

import (
	"fmt"
	"math"
	"sort"
)

// Feature vector layout of the pt regression.
const (
	FeatureDPhi12 = iota
	FeatureDPhi13
	FeatureDPhi14
	FeatureDPhi23
	FeatureDPhi24
	FeatureDPhi34
	FeatureDTheta
	FeatureCLCT
	FeatureFR1
	FeatureStraightness
	FeatureTheta
	NumFeatures
)

type Features [NumFeatures]float64

// TreeNode is a node of a regression tree. Internal nodes send values
// below Cut to NextNodes[0]; leaves carry Value.
type TreeNode struct {
	NextNodes [2]*TreeNode
	Feature   int
	Cut       float64
	Value     float64
}

func (n *TreeNode) isLeaf() bool {
	return n.NextNodes[0] == nil && n.NextNodes[1] == nil
}

// ForestLine is the flat form of one tree node: the path from the root as
// a string of 0 and 1, and either a split (Feature >= 0) or a leaf value.
type ForestLine struct {
	Mode    int     `db:"Mode"`
	Tree    int     `db:"Tree"`
	Path    string  `db:"Path"`
	Feature int     `db:"Feature"`
	Cut     float64 `db:"Cut"`
	Value   float64 `db:"Value"`
}

// FeatureRange is the domain a forest was trained on.
type FeatureRange struct {
	Feature int     `db:"Feature"`
	Min     float64 `db:"MinValue"`
	Max     float64 `db:"MaxValue"`
}

// parseTreeLine walks the path creating the missing nodes and sets the
// last one.
func parseTreeLine(line ForestLine, tree *TreeNode) error {
	current := tree
	for i := 0; i < len(line.Path); i++ {
		bit := line.Path[i] - '0'
		if bit > 1 {
			return fmt.Errorf("invalid tree path %q", line.Path)
		}
		if current.NextNodes[bit] == nil {
			current.NextNodes[bit] = &TreeNode{Feature: -1}
		}
		current = current.NextNodes[bit]
	}
	current.Feature = line.Feature
	current.Cut = line.Cut
	current.Value = line.Value
	return nil
}

// Forest is a boosted decision tree ensemble, one list of trees per
// track mode. The score is a signed 1/pt in 1/GeV.
type Forest struct {
	Version int
	Dir     string
	trees   map[int][]*TreeNode
	ranges  map[int]FeatureRange
}

func NewForest(version int, dir string, lines []ForestLine, ranges []FeatureRange) (*Forest, error) {
	forest := &Forest{
		Version: version,
		Dir:     dir,
		trees:   make(map[int][]*TreeNode),
		ranges:  make(map[int]FeatureRange),
	}
	for _, line := range lines {
		if line.Mode < 0 || line.Mode > 15 {
			return nil, fmt.Errorf("forest %s: invalid mode %d", dir, line.Mode)
		}
		if line.Feature >= NumFeatures {
			return nil, fmt.Errorf("forest %s: invalid feature %d", dir, line.Feature)
		}
		trees := forest.trees[line.Mode]
		for len(trees) <= line.Tree {
			trees = append(trees, &TreeNode{Feature: -1})
		}
		forest.trees[line.Mode] = trees
		if err := parseTreeLine(line, trees[line.Tree]); err != nil {
			return nil, fmt.Errorf("forest %s mode %d tree %d: %w", dir, line.Mode, line.Tree, err)
		}
	}
	for mode, trees := range forest.trees {
		for i, tree := range trees {
			if err := checkTree(tree); err != nil {
				return nil, fmt.Errorf("forest %s mode %d tree %d: %w", dir, mode, i, err)
			}
		}
	}
	for _, r := range ranges {
		forest.ranges[r.Feature] = r
	}
	return forest, nil
}

func checkTree(node *TreeNode) error {
	if node.isLeaf() {
		return nil
	}
	if node.NextNodes[0] == nil || node.NextNodes[1] == nil {
		return fmt.Errorf("split node with a single branch")
	}
	if node.Feature < 0 {
		return fmt.Errorf("split node without feature")
	}
	if err := checkTree(node.NextNodes[0]); err != nil {
		return err
	}
	return checkTree(node.NextNodes[1])
}

// Modes lists the modes with at least one tree.
func (f *Forest) Modes() []int {
	modes := make([]int, 0, len(f.trees))
	for mode := range f.trees {
		modes = append(modes, mode)
	}
	sort.Ints(modes)
	return modes
}

func (f *Forest) NumTrees(mode int) int {
	return len(f.trees[mode])
}

// Clamp brings the features into the trained domain and reports whether
// any of them had to be changed.
func (f *Forest) Clamp(features *Features) bool {
	clamped := false
	for feature, r := range f.ranges {
		v := features[feature]
		if v < r.Min || v > r.Max {
			features[feature] = clamp(v, r.Min, r.Max)
			clamped = true
		}
	}
	return clamped
}

// Score evaluates the trees of mode. Unknown modes score 0.
func (f *Forest) Score(mode int, features Features) float64 {
	score := 0.0
	for _, tree := range f.trees[mode] {
		node := tree
		for !node.isLeaf() {
			bit := 0
			if features[node.Feature] >= node.Cut {
				bit = 1
			}
			node = node.NextNodes[bit]
		}
		score += node.Value
	}
	return score
}

// Lines flattens the forest back to its node list, sorted by mode, tree
// and path.
func (f *Forest) Lines() []ForestLine {
	var lines []ForestLine
	for _, mode := range f.Modes() {
		for i, tree := range f.trees[mode] {
			lines = appendTreeLines(lines, mode, i, "", tree)
		}
	}
	return lines
}

func appendTreeLines(lines []ForestLine, mode, tree int, path string, node *TreeNode) []ForestLine {
	line := ForestLine{Mode: mode, Tree: tree, Path: path, Feature: -1}
	if node.isLeaf() {
		line.Value = node.Value
		return append(lines, line)
	}
	line.Feature = node.Feature
	line.Cut = node.Cut
	lines = append(lines, line)
	for i := 0; i < 2; i++ {
		lines = appendTreeLines(lines, mode, tree, path+string(rune('0'+i)), node.NextNodes[i])
	}
	return lines
}

// Ranges returns the trained domain sorted by feature.
func (f *Forest) Ranges() []FeatureRange {
	ranges := make([]FeatureRange, 0, len(f.ranges))
	for _, r := range f.ranges {
		ranges = append(ranges, r)
	}
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Feature < ranges[j].Feature })
	return ranges
}

// Modes with at least two stations.
var trackModes = []int{3, 5, 6, 7, 9, 10, 11, 12, 13, 14, 15}

// primaryPair is the first station pair of the mode, in StationPairs
// order. It returns -1 for modes with less than two stations.
func primaryPair(mode int) int {
	for i, pair := range StationPairs {
		if modeHasStation(mode, pair[0]) && modeHasStation(mode, pair[1]) {
			return i
		}
	}
	return -1
}

func modeHasStation(mode int, station int) bool {
	return mode&(1<<uint(NumStations-station)) != 0
}

type embeddedModel struct {
	version int
	me1K    float64 // bend to 1/pt scale when ME1 is in the pair
	otherK  float64
}

var embeddedModels = map[string]embeddedModel{
	"v_16_02_21": {version: 5, me1K: 1200, otherK: 600},
	"2017_v7":    {version: 7, me1K: 1000, otherK: 500},
}

const maxTrainedDPhi = 1023

// EmbeddedForest builds one of the built-in models: a single tree per mode
// splitting the bend of the primary station pair in octaves.
func EmbeddedForest(version int, dir string) (*Forest, error) {
	model, ok := embeddedModels[dir]
	if !ok || model.version != version {
		return nil, &ErrUnknownForest{Version: version, Dir: dir}
	}

	var cuts []float64
	for c := 1024.0; c >= 2; c /= 2 {
		cuts = append(cuts, -c)
	}
	for c := 2.0; c <= 1024; c *= 2 {
		cuts = append(cuts, c)
	}

	var lines []ForestLine
	for _, mode := range trackModes {
		ipair := primaryPair(mode)
		k := model.otherK
		if StationPairs[ipair][0] == 1 {
			k = model.me1K
		}
		lines = appendBendTree(lines, mode, "", FeatureDPhi12+ipair, cuts, math.Inf(-1), math.Inf(1), k)
	}

	var ranges []FeatureRange
	for feature := FeatureDPhi12; feature <= FeatureDPhi34; feature++ {
		ranges = append(ranges, FeatureRange{Feature: feature, Min: -maxTrainedDPhi, Max: maxTrainedDPhi})
	}
	return NewForest(version, dir, lines, ranges)
}

// appendBendTree splits [lo, hi) at the median cut. Leaves score the
// middle of their interval, the open ends score at the last cut.
func appendBendTree(lines []ForestLine, mode int, path string, feature int, cuts []float64, lo, hi float64, k float64) []ForestLine {
	if len(cuts) == 0 {
		var mid float64
		switch {
		case math.IsInf(lo, -1):
			mid = hi
		case math.IsInf(hi, 1):
			mid = lo
		default:
			mid = (lo + hi) / 2
		}
		return append(lines, ForestLine{Mode: mode, Path: path, Feature: -1, Value: mid / k})
	}
	m := len(cuts) / 2
	lines = append(lines, ForestLine{Mode: mode, Path: path, Feature: feature, Cut: cuts[m]})
	lines = appendBendTree(lines, mode, path+"0", feature, cuts[:m], lo, cuts[m], k)
	return appendBendTree(lines, mode, path+"1", feature, cuts[m+1:], cuts[m], hi, k)
}
