package ml

import (
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"sort"
)

// DecisionTree is a binary CART classifier. The tree is stored as a
// flat node array: children reference node indices, leaves keep the
// class counts observed during training so predictions carry an
// empirical probability.
type DecisionTree struct {
	MaxDepth        int   `json:"max_depth"`
	MinSamplesSplit int   `json:"min_samples_split"`
	MaxFeatures     int   `json:"max_features"`
	RandomThreshold bool  `json:"random_threshold"`
	Seed            int64 `json:"seed"`

	Nodes      []TreeNode `json:"nodes"`
	Importance []float64  `json:"importance"`
}

type TreeNode struct {
	FeatureIdx  int     `json:"feature_idx"`
	Threshold   float64 `json:"threshold"`
	LeftChild   int     `json:"left_child"`
	RightChild  int     `json:"right_child"`
	ClassCounts []int   `json:"class_counts"`
	IsLeaf      bool    `json:"is_leaf"`
}

func NewDecisionTree(maxDepth int) *DecisionTree {
	if maxDepth <= 0 {
		maxDepth = 8
	}
	return &DecisionTree{
		MaxDepth:        maxDepth,
		MinSamplesSplit: 2,
	}
}

func (dt *DecisionTree) Name() string { return "decision_tree" }

func (dt *DecisionTree) Train(features [][]float64, labels []int) error {
	if len(features) == 0 || len(labels) == 0 {
		return errors.New("ml: features or labels empty")
	}
	if len(features) != len(labels) {
		return errors.New("ml: features and labels size mismatch")
	}
	for _, label := range labels {
		if label < 0 || label >= NumClasses {
			return errors.New("ml: label out of range")
		}
	}
	if dt.MaxDepth <= 0 {
		dt.MaxDepth = 8
	}
	if dt.MinSamplesSplit < 2 {
		dt.MinSamplesSplit = 2
	}

	seed := dt.Seed
	if seed == 0 {
		seed = 1
	}
	rnd := rand.New(rand.NewSource(seed))

	dt.Importance = make([]float64, len(features[0]))
	dt.Nodes = dt.buildNode(features, labels, 0, len(labels), rnd)
	return nil
}

func (dt *DecisionTree) Predict(features []float64) (int, error) {
	proba, err := dt.PredictProba(features)
	if err != nil {
		return 0, err
	}
	return argmax(proba), nil
}

func (dt *DecisionTree) PredictProba(features []float64) ([]float64, error) {
	if len(dt.Nodes) == 0 {
		return nil, errors.New("ml: model not trained")
	}
	idx := 0
	for {
		node := dt.Nodes[idx]
		if node.IsLeaf {
			return countsToProba(node.ClassCounts), nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return nil, errors.New("ml: feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx <= 0 || idx >= len(dt.Nodes) {
			return nil, errors.New("ml: invalid tree state")
		}
	}
}

// Importances returns per-feature impurity decrease accumulated over
// all splits, normalized to sum to one.
func (dt *DecisionTree) Importances() []float64 {
	return normalizeImportance(dt.Importance)
}

func (dt *DecisionTree) State() (json.RawMessage, error) {
	if len(dt.Nodes) == 0 {
		return nil, errors.New("ml: model not trained")
	}
	return json.Marshal(dt)
}

func (dt *DecisionTree) Restore(state json.RawMessage) error {
	return json.Unmarshal(state, dt)
}

func (dt *DecisionTree) buildNode(features [][]float64, labels []int, depth, totalSamples int, rnd *rand.Rand) []TreeNode {
	counts := countLabels(labels)
	if depth >= dt.MaxDepth || len(labels) < dt.MinSamplesSplit || isPure(counts) {
		return []TreeNode{leafNode(counts)}
	}

	parentGini := giniFromCounts(counts, len(labels))
	bestFeature, threshold, childGini, ok := dt.findBestSplit(features, labels, parentGini, rnd)
	if !ok {
		return []TreeNode{leafNode(counts)}
	}

	leftFeatures, leftLabels, rightFeatures, rightLabels := splitData(features, labels, bestFeature, threshold)
	if len(leftLabels) == 0 || len(rightLabels) == 0 {
		return []TreeNode{leafNode(counts)}
	}

	dt.Importance[bestFeature] += float64(len(labels)) / float64(totalSamples) * (parentGini - childGini)

	leftNodes := dt.buildNode(leftFeatures, leftLabels, depth+1, totalSamples, rnd)
	rightNodes := dt.buildNode(rightFeatures, rightLabels, depth+1, totalSamples, rnd)

	root := TreeNode{
		FeatureIdx:  bestFeature,
		Threshold:   threshold,
		LeftChild:   1,
		RightChild:  1 + len(leftNodes),
		ClassCounts: counts,
	}

	nodes := make([]TreeNode, 0, 1+len(leftNodes)+len(rightNodes))
	nodes = append(nodes, root)
	nodes = append(nodes, shiftChildren(leftNodes, 1)...)
	nodes = append(nodes, shiftChildren(rightNodes, 1+len(leftNodes))...)
	return nodes
}

func (dt *DecisionTree) findBestSplit(features [][]float64, labels []int, parentGini float64, rnd *rand.Rand) (int, float64, float64, bool) {
	featureCount := len(features[0])
	candidates := candidateFeatures(featureCount, dt.MaxFeatures, rnd)

	bestFeature := -1
	bestThreshold := 0.0
	bestImpurity := parentGini

	for _, featureIdx := range candidates {
		var threshold, impurity float64
		var ok bool
		if dt.RandomThreshold {
			threshold, impurity, ok = randomSplit(features, labels, featureIdx, rnd)
		} else {
			threshold, impurity, ok = bestSplitForFeature(features, labels, featureIdx)
		}
		if ok && impurity < bestImpurity {
			bestImpurity = impurity
			bestFeature = featureIdx
			bestThreshold = threshold
		}
	}
	if bestFeature == -1 {
		return -1, 0, 0, false
	}
	return bestFeature, bestThreshold, bestImpurity, true
}

// bestSplitForFeature scans midpoints between consecutive distinct
// sorted values, tracking class counts incrementally.
func bestSplitForFeature(features [][]float64, labels []int, featureIdx int) (float64, float64, bool) {
	type sample struct {
		value float64
		label int
	}
	samples := make([]sample, len(features))
	for i := range features {
		samples[i] = sample{value: features[i][featureIdx], label: labels[i]}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].value < samples[j].value })

	total := len(samples)
	rightCounts := countLabels(labels)
	leftCounts := make([]int, NumClasses)

	bestThreshold := 0.0
	bestImpurity := math.MaxFloat64
	found := false

	for i := 0; i < total-1; i++ {
		leftCounts[samples[i].label]++
		rightCounts[samples[i].label]--
		if samples[i].value == samples[i+1].value {
			continue
		}

		left := i + 1
		right := total - left
		impurity := (float64(left)*giniFromCounts(leftCounts, left) +
			float64(right)*giniFromCounts(rightCounts, right)) / float64(total)
		if impurity < bestImpurity {
			bestImpurity = impurity
			bestThreshold = (samples[i].value + samples[i+1].value) / 2
			found = true
		}
	}
	return bestThreshold, bestImpurity, found
}

// randomSplit draws a uniform threshold between the feature's min and
// max (extremely randomized trees).
func randomSplit(features [][]float64, labels []int, featureIdx int, rnd *rand.Rand) (float64, float64, bool) {
	lo, hi := features[0][featureIdx], features[0][featureIdx]
	for _, row := range features {
		v := row[featureIdx]
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo == hi {
		return 0, 0, false
	}
	threshold := lo + rnd.Float64()*(hi-lo)

	leftCounts := make([]int, NumClasses)
	rightCounts := make([]int, NumClasses)
	left, right := 0, 0
	for i, row := range features {
		if row[featureIdx] <= threshold {
			leftCounts[labels[i]]++
			left++
		} else {
			rightCounts[labels[i]]++
			right++
		}
	}
	if left == 0 || right == 0 {
		return 0, 0, false
	}
	total := float64(left + right)
	impurity := (float64(left)*giniFromCounts(leftCounts, left) +
		float64(right)*giniFromCounts(rightCounts, right)) / total
	return threshold, impurity, true
}

func candidateFeatures(featureCount, maxFeatures int, rnd *rand.Rand) []int {
	if maxFeatures <= 0 || maxFeatures >= featureCount {
		all := make([]int, featureCount)
		for i := range all {
			all[i] = i
		}
		return all
	}
	return rnd.Perm(featureCount)[:maxFeatures]
}

func splitData(features [][]float64, labels []int, featureIdx int, threshold float64) ([][]float64, []int, [][]float64, []int) {
	var leftFeatures, rightFeatures [][]float64
	var leftLabels, rightLabels []int
	for i, row := range features {
		if row[featureIdx] <= threshold {
			leftFeatures = append(leftFeatures, row)
			leftLabels = append(leftLabels, labels[i])
		} else {
			rightFeatures = append(rightFeatures, row)
			rightLabels = append(rightLabels, labels[i])
		}
	}
	return leftFeatures, leftLabels, rightFeatures, rightLabels
}

func shiftChildren(nodes []TreeNode, offset int) []TreeNode {
	for i := range nodes {
		if !nodes[i].IsLeaf {
			nodes[i].LeftChild += offset
			nodes[i].RightChild += offset
		}
	}
	return nodes
}

func leafNode(counts []int) TreeNode {
	return TreeNode{
		FeatureIdx:  -1,
		LeftChild:   -1,
		RightChild:  -1,
		ClassCounts: counts,
		IsLeaf:      true,
	}
}

func countLabels(labels []int) []int {
	counts := make([]int, NumClasses)
	for _, label := range labels {
		counts[label]++
	}
	return counts
}

func giniFromCounts(counts []int, total int) float64 {
	if total == 0 {
		return 0
	}
	impurity := 1.0
	for _, count := range counts {
		p := float64(count) / float64(total)
		impurity -= p * p
	}
	return impurity
}

func isPure(counts []int) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func countsToProba(counts []int) []float64 {
	total := 0
	for _, c := range counts {
		total += c
	}
	proba := make([]float64, len(counts))
	if total == 0 {
		return proba
	}
	for i, c := range counts {
		proba[i] = float64(c) / float64(total)
	}
	return proba
}

func argmax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}

func normalizeImportance(importance []float64) []float64 {
	out := make([]float64, len(importance))
	sum := 0.0
	for _, v := range importance {
		sum += v
	}
	if sum == 0 {
		return out
	}
	for i, v := range importance {
		out[i] = v / sum
	}
	return out
}
