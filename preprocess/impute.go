package preprocess

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
)

// Imputer fills missing (NaN) cells using statistics learned from the
// training matrix.
type Imputer interface {
	Fit(rows [][]float64) error
	Transform(rows [][]float64) ([][]float64, error)
	Strategy() string
}

// NewImputer builds an imputer by strategy name. k only applies to the
// knn strategy.
func NewImputer(strategy string, k int) (Imputer, error) {
	switch strategy {
	case "mean":
		return &MeanImputer{}, nil
	case "median":
		return &MedianImputer{}, nil
	case "knn":
		if k <= 0 {
			k = 5
		}
		return &KNNImputer{K: k}, nil
	default:
		return nil, fmt.Errorf("preprocess: unknown imputation strategy %q", strategy)
	}
}

type MeanImputer struct {
	Statistics []float64 `json:"statistics"`
}

func (m *MeanImputer) Strategy() string { return "mean" }

func (m *MeanImputer) Fit(rows [][]float64) error {
	stats, err := columnStats(rows, mean)
	if err != nil {
		return err
	}
	m.Statistics = stats
	return nil
}

func (m *MeanImputer) Transform(rows [][]float64) ([][]float64, error) {
	return fillWithStatistics(rows, m.Statistics)
}

type MedianImputer struct {
	Statistics []float64 `json:"statistics"`
}

func (m *MedianImputer) Strategy() string { return "median" }

func (m *MedianImputer) Fit(rows [][]float64) error {
	stats, err := columnStats(rows, median)
	if err != nil {
		return err
	}
	m.Statistics = stats
	return nil
}

func (m *MedianImputer) Transform(rows [][]float64) ([][]float64, error) {
	return fillWithStatistics(rows, m.Statistics)
}

// KNNImputer fills a missing cell with the column mean over the K
// reference rows nearest to the incomplete row. Distances use only the
// mutually observed columns, scaled up by the unobserved fraction. The
// fitted state keeps the training matrix completed by column means so
// neighbor search always has full rows to work with.
type KNNImputer struct {
	K          int         `json:"k"`
	Statistics []float64   `json:"statistics"`
	Reference  [][]float64 `json:"reference"`
}

func (m *KNNImputer) Strategy() string { return "knn" }

func (m *KNNImputer) Fit(rows [][]float64) error {
	stats, err := columnStats(rows, mean)
	if err != nil {
		return err
	}
	m.Statistics = stats

	m.Reference = make([][]float64, len(rows))
	for i, row := range rows {
		completed := make([]float64, len(row))
		for j, v := range row {
			if math.IsNaN(v) {
				completed[j] = stats[j]
			} else {
				completed[j] = v
			}
		}
		m.Reference[i] = completed
	}
	return nil
}

func (m *KNNImputer) Transform(rows [][]float64) ([][]float64, error) {
	if len(m.Reference) == 0 {
		return nil, errors.New("preprocess: imputer not fitted")
	}
	out := make([][]float64, len(rows))
	for i, row := range rows {
		if len(row) != len(m.Statistics) {
			return nil, fmt.Errorf("preprocess: row has %d columns, expected %d", len(row), len(m.Statistics))
		}
		out[i] = m.imputeRow(row)
	}
	return out, nil
}

func (m *KNNImputer) imputeRow(row []float64) []float64 {
	out := append([]float64(nil), row...)

	missing := false
	observed := 0
	for _, v := range row {
		if math.IsNaN(v) {
			missing = true
		} else {
			observed++
		}
	}
	if !missing {
		return out
	}
	if observed == 0 {
		copy(out, m.Statistics)
		return out
	}

	type neighbor struct {
		dist float64
		idx  int
	}
	neighbors := make([]neighbor, len(m.Reference))
	scale := float64(len(row)) / float64(observed)
	for i, ref := range m.Reference {
		sum := 0.0
		for j, v := range row {
			if math.IsNaN(v) {
				continue
			}
			d := v - ref[j]
			sum += d * d
		}
		neighbors[i] = neighbor{dist: sum * scale, idx: i}
	}
	sort.Slice(neighbors, func(i, j int) bool { return neighbors[i].dist < neighbors[j].dist })

	k := m.K
	if k > len(neighbors) {
		k = len(neighbors)
	}
	for j, v := range row {
		if !math.IsNaN(v) {
			continue
		}
		sum := 0.0
		for n := 0; n < k; n++ {
			sum += m.Reference[neighbors[n].idx][j]
		}
		if k > 0 {
			out[j] = sum / float64(k)
		} else {
			out[j] = m.Statistics[j]
		}
	}
	return out
}

// imputerEnvelope is the persisted form: the strategy selects the
// concrete type on decode.
type imputerEnvelope struct {
	Strategy string          `json:"strategy"`
	State    json.RawMessage `json:"state"`
}

// EncodeImputer serializes a fitted imputer with its strategy tag.
func EncodeImputer(imp Imputer) ([]byte, error) {
	state, err := json.Marshal(imp)
	if err != nil {
		return nil, err
	}
	return json.Marshal(imputerEnvelope{Strategy: imp.Strategy(), State: state})
}

// DecodeImputer restores an imputer serialized by EncodeImputer.
func DecodeImputer(data []byte) (Imputer, error) {
	var envelope imputerEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}
	imp, err := NewImputer(envelope.Strategy, 0)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(envelope.State, imp); err != nil {
		return nil, err
	}
	return imp, nil
}

func columnStats(rows [][]float64, stat func([]float64) float64) ([]float64, error) {
	if len(rows) == 0 {
		return nil, errors.New("preprocess: empty training matrix")
	}
	cols := len(rows[0])
	stats := make([]float64, cols)
	for j := 0; j < cols; j++ {
		var values []float64
		for _, row := range rows {
			if len(row) != cols {
				return nil, errors.New("preprocess: ragged training matrix")
			}
			if !math.IsNaN(row[j]) {
				values = append(values, row[j])
			}
		}
		if len(values) == 0 {
			return nil, fmt.Errorf("preprocess: column %d has no observed values", j)
		}
		stats[j] = stat(values)
	}
	return stats, nil
}

func fillWithStatistics(rows [][]float64, stats []float64) ([][]float64, error) {
	if len(stats) == 0 {
		return nil, errors.New("preprocess: imputer not fitted")
	}
	out := make([][]float64, len(rows))
	for i, row := range rows {
		if len(row) != len(stats) {
			return nil, fmt.Errorf("preprocess: row has %d columns, expected %d", len(row), len(stats))
		}
		filled := make([]float64, len(row))
		for j, v := range row {
			if math.IsNaN(v) {
				filled[j] = stats[j]
			} else {
				filled[j] = v
			}
		}
		out[i] = filled
	}
	return out, nil
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
