package ml

import (
	"encoding/json"
	"errors"
	"math"
)

// LogisticRegression fits a binary sigmoid model with batch gradient
// descent on cross-entropy loss.
type LogisticRegression struct {
	LearningRate float64 `json:"learning_rate"`
	Epochs       int     `json:"epochs"`
	L2           float64 `json:"l2"`

	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

func NewLogisticRegression(learningRate float64, epochs int) *LogisticRegression {
	if learningRate <= 0 {
		learningRate = 0.1
	}
	if epochs <= 0 {
		epochs = 300
	}
	return &LogisticRegression{LearningRate: learningRate, Epochs: epochs}
}

func (lr *LogisticRegression) Name() string { return "logistic_regression" }

func (lr *LogisticRegression) Train(features [][]float64, labels []int) error {
	if len(features) == 0 {
		return errors.New("ml: features empty")
	}
	if len(features) != len(labels) {
		return errors.New("ml: features and labels size mismatch")
	}

	n := len(features)
	dims := len(features[0])
	lr.Weights = make([]float64, dims)
	lr.Bias = 0

	gradW := make([]float64, dims)
	for epoch := 0; epoch < lr.Epochs; epoch++ {
		for j := range gradW {
			gradW[j] = 0
		}
		gradB := 0.0

		for i, row := range features {
			p := sigmoid(lr.decision(row))
			err := p - float64(labels[i])
			for j, v := range row {
				gradW[j] += err * v
			}
			gradB += err
		}

		for j := range lr.Weights {
			grad := gradW[j]/float64(n) + lr.L2*lr.Weights[j]
			lr.Weights[j] -= lr.LearningRate * grad
		}
		lr.Bias -= lr.LearningRate * gradB / float64(n)
	}
	return nil
}

func (lr *LogisticRegression) Predict(features []float64) (int, error) {
	proba, err := lr.PredictProba(features)
	if err != nil {
		return 0, err
	}
	return argmax(proba), nil
}

func (lr *LogisticRegression) PredictProba(features []float64) ([]float64, error) {
	if len(lr.Weights) == 0 {
		return nil, errors.New("ml: model not trained")
	}
	if len(features) != len(lr.Weights) {
		return nil, errors.New("ml: feature dimension mismatch")
	}
	p := sigmoid(lr.decision(features))
	return []float64{1 - p, p}, nil
}

func (lr *LogisticRegression) State() (json.RawMessage, error) {
	if len(lr.Weights) == 0 {
		return nil, errors.New("ml: model not trained")
	}
	return json.Marshal(lr)
}

func (lr *LogisticRegression) Restore(state json.RawMessage) error {
	return json.Unmarshal(state, lr)
}

func (lr *LogisticRegression) decision(features []float64) float64 {
	sum := lr.Bias
	for j, v := range features {
		sum += lr.Weights[j] * v
	}
	return sum
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
