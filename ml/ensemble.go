package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
)

// Voting combines independently trained members. Soft voting averages
// class probabilities, hard voting counts predicted labels.
type Voting struct {
	Mode    string `json:"mode"` // soft or hard
	Members []Classifier
}

func NewVoting(mode string, members []Classifier) *Voting {
	if mode != "hard" {
		mode = "soft"
	}
	return &Voting{Mode: mode, Members: members}
}

func (v *Voting) Name() string { return "voting_" + v.Mode }

func (v *Voting) Train(features [][]float64, labels []int) error {
	if len(v.Members) == 0 {
		return errors.New("ml: voting ensemble has no members")
	}
	for _, member := range v.Members {
		if err := member.Train(features, labels); err != nil {
			return fmt.Errorf("ml: train %s: %w", member.Name(), err)
		}
	}
	return nil
}

func (v *Voting) Predict(features []float64) (int, error) {
	proba, err := v.PredictProba(features)
	if err != nil {
		return 0, err
	}
	return argmax(proba), nil
}

func (v *Voting) PredictProba(features []float64) ([]float64, error) {
	if len(v.Members) == 0 {
		return nil, errors.New("ml: model not trained")
	}

	if v.Mode == "hard" {
		counts := make([]int, NumClasses)
		for _, member := range v.Members {
			label, err := member.Predict(features)
			if err != nil {
				return nil, err
			}
			counts[label]++
		}
		return countsToProba(counts), nil
	}

	proba := make([]float64, NumClasses)
	for _, member := range v.Members {
		memberProba, err := member.PredictProba(features)
		if err != nil {
			return nil, err
		}
		for i, p := range memberProba {
			proba[i] += p
		}
	}
	for i := range proba {
		proba[i] /= float64(len(v.Members))
	}
	return proba, nil
}

type votingState struct {
	Mode    string            `json:"mode"`
	Members []json.RawMessage `json:"members"`
}

func (v *Voting) State() (json.RawMessage, error) {
	state := votingState{Mode: v.Mode}
	for _, member := range v.Members {
		encoded, err := Encode(member)
		if err != nil {
			return nil, err
		}
		state.Members = append(state.Members, encoded)
	}
	return json.Marshal(state)
}

func (v *Voting) Restore(state json.RawMessage) error {
	var decoded votingState
	if err := json.Unmarshal(state, &decoded); err != nil {
		return err
	}
	v.Mode = decoded.Mode
	v.Members = v.Members[:0]
	for _, raw := range decoded.Members {
		member, err := Decode(raw)
		if err != nil {
			return err
		}
		v.Members = append(v.Members, member)
	}
	return nil
}

// Bagging trains N copies of a base model, each on a bootstrap sample,
// and averages their probabilities.
type Bagging struct {
	Base        string `json:"base"`
	NEstimators int    `json:"n_estimators"`
	Seed        int64  `json:"seed"`
	Members     []Classifier
}

func NewBagging(base string, nEstimators int, seed int64) *Bagging {
	if nEstimators <= 0 {
		nEstimators = 10
	}
	return &Bagging{Base: base, NEstimators: nEstimators, Seed: seed}
}

func (b *Bagging) Name() string { return "bagging_" + shortBaseName(b.Base) }

func (b *Bagging) Train(features [][]float64, labels []int) error {
	if len(features) == 0 {
		return errors.New("ml: features empty")
	}
	if len(features) != len(labels) {
		return errors.New("ml: features and labels size mismatch")
	}

	seed := b.Seed
	if seed == 0 {
		seed = 1
	}
	rnd := rand.New(rand.NewSource(seed))

	n := len(features)
	b.Members = make([]Classifier, 0, b.NEstimators)
	for i := 0; i < b.NEstimators; i++ {
		member, err := New(b.Base)
		if err != nil {
			return err
		}

		sampleX := make([][]float64, n)
		sampleY := make([]int, n)
		for j := 0; j < n; j++ {
			pick := rnd.Intn(n)
			sampleX[j] = features[pick]
			sampleY[j] = labels[pick]
		}
		if err := member.Train(sampleX, sampleY); err != nil {
			return err
		}
		b.Members = append(b.Members, member)
	}
	return nil
}

func (b *Bagging) Predict(features []float64) (int, error) {
	proba, err := b.PredictProba(features)
	if err != nil {
		return 0, err
	}
	return argmax(proba), nil
}

func (b *Bagging) PredictProba(features []float64) ([]float64, error) {
	if len(b.Members) == 0 {
		return nil, errors.New("ml: model not trained")
	}
	proba := make([]float64, NumClasses)
	for _, member := range b.Members {
		memberProba, err := member.PredictProba(features)
		if err != nil {
			return nil, err
		}
		for i, p := range memberProba {
			proba[i] += p
		}
	}
	for i := range proba {
		proba[i] /= float64(len(b.Members))
	}
	return proba, nil
}

type baggingState struct {
	Base        string            `json:"base"`
	NEstimators int               `json:"n_estimators"`
	Seed        int64             `json:"seed"`
	Members     []json.RawMessage `json:"members"`
}

func (b *Bagging) State() (json.RawMessage, error) {
	state := baggingState{Base: b.Base, NEstimators: b.NEstimators, Seed: b.Seed}
	for _, member := range b.Members {
		encoded, err := Encode(member)
		if err != nil {
			return nil, err
		}
		state.Members = append(state.Members, encoded)
	}
	return json.Marshal(state)
}

func (b *Bagging) Restore(state json.RawMessage) error {
	var decoded baggingState
	if err := json.Unmarshal(state, &decoded); err != nil {
		return err
	}
	b.Base = decoded.Base
	b.NEstimators = decoded.NEstimators
	b.Seed = decoded.Seed
	b.Members = b.Members[:0]
	for _, raw := range decoded.Members {
		member, err := Decode(raw)
		if err != nil {
			return err
		}
		b.Members = append(b.Members, member)
	}
	return nil
}

func shortBaseName(base string) string {
	switch base {
	case "decision_tree":
		return "tree"
	default:
		return base
	}
}
