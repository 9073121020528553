package ml

import (
	"math"
	"testing"
)

var zooNames = []string{
	"decision_tree",
	"random_forest",
	"extra_trees",
	"logistic_regression",
	"knn",
	"naive_bayes",
	"voting_soft",
	"voting_hard",
	"bagging_tree",
}

func TestFactoryKnownModels(t *testing.T) {
	for _, name := range zooNames {
		model, err := New(name)
		if err != nil {
			t.Errorf("New(%q): %v", name, err)
			continue
		}
		if model.Name() != name {
			t.Errorf("New(%q).Name() = %q", name, model.Name())
		}
	}
}

func TestFactoryUnknownModel(t *testing.T) {
	if _, err := New("svm"); err == nil {
		t.Fatal("expected error for unknown model")
	}
}

func TestZooTrainsAndPredicts(t *testing.T) {
	features, labels := separableData()
	for _, name := range zooNames {
		name := name
		t.Run(name, func(t *testing.T) {
			model, err := New(name)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if err := model.Train(features, labels); err != nil {
				t.Fatalf("Train: %v", err)
			}

			label, err := model.Predict([]float64{0.1, 0.6})
			if err != nil {
				t.Fatalf("Predict: %v", err)
			}
			if label != 0 {
				t.Errorf("predicted %d for cluster 0 point", label)
			}
			label, err = model.Predict([]float64{10.2, 10.2})
			if err != nil {
				t.Fatalf("Predict: %v", err)
			}
			if label != 1 {
				t.Errorf("predicted %d for cluster 1 point", label)
			}

			proba, err := model.PredictProba([]float64{10.2, 10.2})
			if err != nil {
				t.Fatalf("PredictProba: %v", err)
			}
			if len(proba) != NumClasses {
				t.Fatalf("proba length %d", len(proba))
			}
			if sum := proba[0] + proba[1]; math.Abs(sum-1) > 1e-9 {
				t.Errorf("probabilities sum to %v", sum)
			}
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	features, labels := separableData()
	for _, name := range []string{"random_forest", "naive_bayes", "voting_soft", "bagging_tree"} {
		name := name
		t.Run(name, func(t *testing.T) {
			model, err := New(name)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if err := model.Train(features, labels); err != nil {
				t.Fatalf("Train: %v", err)
			}
			data, err := Encode(model)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			restored, err := Decode(data)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if restored.Name() != name {
				t.Errorf("restored name = %q", restored.Name())
			}
			for _, point := range [][]float64{{0, 0.5}, {10.5, 10}, {4, 6}} {
				want, err := model.Predict(point)
				if err != nil {
					t.Fatalf("Predict original: %v", err)
				}
				got, err := restored.Predict(point)
				if err != nil {
					t.Fatalf("Predict restored: %v", err)
				}
				if got != want {
					t.Errorf("restored model disagrees at %v: %d vs %d", point, got, want)
				}
			}
		})
	}
}

func TestForestDeterministicWithSeed(t *testing.T) {
	features, labels := separableData()
	a := NewRandomForest(20, 6, 7)
	b := NewRandomForest(20, 6, 7)
	if err := a.Train(features, labels); err != nil {
		t.Fatalf("Train: %v", err)
	}
	if err := b.Train(features, labels); err != nil {
		t.Fatalf("Train: %v", err)
	}
	for _, point := range [][]float64{{1, 1}, {9, 9}, {5, 5}} {
		pa, err := a.PredictProba(point)
		if err != nil {
			t.Fatalf("PredictProba: %v", err)
		}
		pb, err := b.PredictProba(point)
		if err != nil {
			t.Fatalf("PredictProba: %v", err)
		}
		if pa[0] != pb[0] || pa[1] != pb[1] {
			t.Errorf("same seed gives different probabilities at %v", point)
		}
	}
}
