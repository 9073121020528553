package ml

import (
	"encoding/json"
	"errors"
	"sort"
)

// KNN is a lazy classifier: training stores the samples, prediction
// votes over the K nearest by Euclidean distance.
type KNN struct {
	K int `json:"k"`

	X [][]float64 `json:"x"`
	Y []int       `json:"y"`
}

func NewKNN(k int) *KNN {
	if k <= 0 {
		k = 5
	}
	return &KNN{K: k}
}

func (m *KNN) Name() string { return "knn" }

func (m *KNN) Train(features [][]float64, labels []int) error {
	if len(features) == 0 {
		return errors.New("ml: features empty")
	}
	if len(features) != len(labels) {
		return errors.New("ml: features and labels size mismatch")
	}
	m.X = features
	m.Y = labels
	return nil
}

func (m *KNN) Predict(features []float64) (int, error) {
	proba, err := m.PredictProba(features)
	if err != nil {
		return 0, err
	}
	return argmax(proba), nil
}

func (m *KNN) PredictProba(features []float64) ([]float64, error) {
	if len(m.X) == 0 {
		return nil, errors.New("ml: model not trained")
	}
	if len(features) != len(m.X[0]) {
		return nil, errors.New("ml: feature dimension mismatch")
	}

	type neighbor struct {
		dist  float64
		label int
	}
	neighbors := make([]neighbor, len(m.X))
	for i, row := range m.X {
		sum := 0.0
		for j, v := range row {
			d := v - features[j]
			sum += d * d
		}
		neighbors[i] = neighbor{dist: sum, label: m.Y[i]}
	}
	sort.Slice(neighbors, func(i, j int) bool { return neighbors[i].dist < neighbors[j].dist })

	k := m.K
	if k > len(neighbors) {
		k = len(neighbors)
	}
	counts := make([]int, NumClasses)
	for i := 0; i < k; i++ {
		counts[neighbors[i].label]++
	}
	return countsToProba(counts), nil
}

func (m *KNN) State() (json.RawMessage, error) {
	if len(m.X) == 0 {
		return nil, errors.New("ml: model not trained")
	}
	return json.Marshal(m)
}

func (m *KNN) Restore(state json.RawMessage) error {
	return json.Unmarshal(state, m)
}
