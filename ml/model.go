package ml

import (
	"encoding/json"
	"fmt"
)

// NumClasses is fixed: potability is a binary target (0 = not safe,
// 1 = safe).
const NumClasses = 2

// Classifier is the common contract for every model in the zoo.
// PredictProba returns one probability per class, indexed by label.
type Classifier interface {
	Train(features [][]float64, labels []int) error
	Predict(features []float64) (int, error)
	PredictProba(features []float64) ([]float64, error)
	Name() string
	State() (json.RawMessage, error)
	Restore(state json.RawMessage) error
}

// New builds a classifier with default hyperparameters by registered
// name. It is also the restore path for persisted bundles.
func New(name string) (Classifier, error) {
	switch name {
	case "decision_tree":
		return NewDecisionTree(8), nil
	case "random_forest":
		return NewRandomForest(100, 12, 0), nil
	case "extra_trees":
		return NewExtraTrees(100, 12, 0), nil
	case "logistic_regression":
		return NewLogisticRegression(0.1, 300), nil
	case "knn":
		return NewKNN(5), nil
	case "naive_bayes":
		return NewGaussianNB(), nil
	case "voting_soft":
		return NewVoting("soft", defaultVotingMembers()), nil
	case "voting_hard":
		return NewVoting("hard", defaultVotingMembers()), nil
	case "bagging_tree":
		return NewBagging("decision_tree", 10, 0), nil
	default:
		return nil, fmt.Errorf("ml: unsupported model type %q", name)
	}
}

func defaultVotingMembers() []Classifier {
	return []Classifier{
		NewRandomForest(100, 12, 0),
		NewLogisticRegression(0.1, 300),
		NewGaussianNB(),
	}
}

// envelope carries a classifier with its type tag so bundles can be
// decoded without knowing the concrete type up front.
type envelope struct {
	Type  string          `json:"type"`
	State json.RawMessage `json:"state"`
}

// Encode serializes a trained classifier with its type tag.
func Encode(c Classifier) ([]byte, error) {
	state, err := c.State()
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Type: c.Name(), State: state})
}

// Decode restores a classifier serialized by Encode.
func Decode(data []byte) (Classifier, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	model, err := New(env.Type)
	if err != nil {
		return nil, err
	}
	if err := model.Restore(env.State); err != nil {
		return nil, err
	}
	return model, nil
}
