package ml

import (
	"encoding/json"
	"errors"
	"math"
)

// varianceFloor keeps log-likelihoods finite for near-constant
// features.
const varianceFloor = 1e-9

// GaussianNB models each feature as an independent normal distribution
// per class.
type GaussianNB struct {
	Priors    []float64   `json:"priors"`
	Means     [][]float64 `json:"means"`
	Variances [][]float64 `json:"variances"`
}

func NewGaussianNB() *GaussianNB { return &GaussianNB{} }

func (nb *GaussianNB) Name() string { return "naive_bayes" }

func (nb *GaussianNB) Train(features [][]float64, labels []int) error {
	if len(features) == 0 {
		return errors.New("ml: features empty")
	}
	if len(features) != len(labels) {
		return errors.New("ml: features and labels size mismatch")
	}

	dims := len(features[0])
	counts := make([]int, NumClasses)
	nb.Means = make([][]float64, NumClasses)
	nb.Variances = make([][]float64, NumClasses)
	for c := 0; c < NumClasses; c++ {
		nb.Means[c] = make([]float64, dims)
		nb.Variances[c] = make([]float64, dims)
	}

	for i, row := range features {
		c := labels[i]
		if c < 0 || c >= NumClasses {
			return errors.New("ml: label out of range")
		}
		counts[c]++
		for j, v := range row {
			nb.Means[c][j] += v
		}
	}
	for c := 0; c < NumClasses; c++ {
		if counts[c] == 0 {
			return errors.New("ml: class absent from training data")
		}
		for j := range nb.Means[c] {
			nb.Means[c][j] /= float64(counts[c])
		}
	}

	for i, row := range features {
		c := labels[i]
		for j, v := range row {
			d := v - nb.Means[c][j]
			nb.Variances[c][j] += d * d
		}
	}
	nb.Priors = make([]float64, NumClasses)
	for c := 0; c < NumClasses; c++ {
		for j := range nb.Variances[c] {
			nb.Variances[c][j] /= float64(counts[c])
			if nb.Variances[c][j] < varianceFloor {
				nb.Variances[c][j] = varianceFloor
			}
		}
		nb.Priors[c] = float64(counts[c]) / float64(len(labels))
	}
	return nil
}

func (nb *GaussianNB) Predict(features []float64) (int, error) {
	proba, err := nb.PredictProba(features)
	if err != nil {
		return 0, err
	}
	return argmax(proba), nil
}

func (nb *GaussianNB) PredictProba(features []float64) ([]float64, error) {
	if len(nb.Priors) == 0 {
		return nil, errors.New("ml: model not trained")
	}
	if len(features) != len(nb.Means[0]) {
		return nil, errors.New("ml: feature dimension mismatch")
	}

	logLik := make([]float64, NumClasses)
	for c := 0; c < NumClasses; c++ {
		ll := math.Log(nb.Priors[c])
		for j, v := range features {
			variance := nb.Variances[c][j]
			d := v - nb.Means[c][j]
			ll += -0.5*math.Log(2*math.Pi*variance) - d*d/(2*variance)
		}
		logLik[c] = ll
	}

	// Softmax over log-likelihoods, shifted for stability.
	maxLL := logLik[0]
	for _, ll := range logLik[1:] {
		if ll > maxLL {
			maxLL = ll
		}
	}
	proba := make([]float64, NumClasses)
	sum := 0.0
	for c, ll := range logLik {
		proba[c] = math.Exp(ll - maxLL)
		sum += proba[c]
	}
	for c := range proba {
		proba[c] /= sum
	}
	return proba, nil
}

func (nb *GaussianNB) State() (json.RawMessage, error) {
	if len(nb.Priors) == 0 {
		return nil, errors.New("ml: model not trained")
	}
	return json.Marshal(nb)
}

func (nb *GaussianNB) Restore(state json.RawMessage) error {
	return json.Unmarshal(state, nb)
}
