package dataset

import (
	"errors"
	"math"
	"math/rand"
	"sort"
)

// SMOTE oversamples the minority class with synthetic points
// interpolated between a minority sample and one of its k nearest
// minority neighbors, until both classes have the same count. Rows must
// be complete (impute first).
func SMOTE(rows [][]float64, labels []int, k int, seed int64) ([][]float64, []int, error) {
	if len(rows) != len(labels) {
		return nil, nil, errors.New("smote: rows/labels length mismatch")
	}
	if len(rows) == 0 {
		return nil, nil, errors.New("smote: empty dataset")
	}
	if k <= 0 {
		k = 5
	}
	for _, row := range rows {
		for _, v := range row {
			if math.IsNaN(v) {
				return nil, nil, errors.New("smote: dataset contains missing values")
			}
		}
	}

	counts := make(map[int]int)
	for _, label := range labels {
		counts[label]++
	}
	if len(counts) != 2 {
		return nil, nil, errors.New("smote: expected exactly two classes")
	}

	minority, majority := 0, 1
	if counts[0] > counts[1] {
		minority, majority = 1, 0
	}
	need := counts[majority] - counts[minority]
	if need == 0 {
		return rows, labels, nil
	}
	if counts[minority] < 2 {
		return nil, nil, errors.New("smote: minority class too small")
	}

	var minorityRows [][]float64
	for i, label := range labels {
		if label == minority {
			minorityRows = append(minorityRows, rows[i])
		}
	}
	if k >= len(minorityRows) {
		k = len(minorityRows) - 1
	}

	outRows := append([][]float64(nil), rows...)
	outLabels := append([]int(nil), labels...)

	rnd := rand.New(rand.NewSource(seed))
	for n := 0; n < need; n++ {
		base := minorityRows[rnd.Intn(len(minorityRows))]
		neighbor := nearestNeighbors(minorityRows, base, k)[rnd.Intn(k)]
		gap := rnd.Float64()

		synthetic := make([]float64, len(base))
		for j := range base {
			synthetic[j] = base[j] + gap*(neighbor[j]-base[j])
		}
		outRows = append(outRows, synthetic)
		outLabels = append(outLabels, minority)
	}

	return outRows, outLabels, nil
}

// nearestNeighbors returns the k rows closest to target, excluding
// exact self matches at distance zero only once.
func nearestNeighbors(rows [][]float64, target []float64, k int) [][]float64 {
	type candidate struct {
		dist float64
		row  []float64
	}
	candidates := make([]candidate, 0, len(rows))
	selfSkipped := false
	for _, row := range rows {
		d := squaredDistance(row, target)
		if d == 0 && !selfSkipped {
			selfSkipped = true
			continue
		}
		candidates = append(candidates, candidate{dist: d, row: row})
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].dist < candidates[j].dist
	})
	if k > len(candidates) {
		k = len(candidates)
	}
	neighbors := make([][]float64, k)
	for i := 0; i < k; i++ {
		neighbors[i] = candidates[i].row
	}
	return neighbors
}

func squaredDistance(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
