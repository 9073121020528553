package registry

import (
	"math"
	"os"
	"testing"
	"time"

	"aquasense/dataset"
	"aquasense/ml"
	"aquasense/preprocess"
)

func trainedBundle(t *testing.T) *Bundle {
	t.Helper()

	var features [][]float64
	var labels []int
	for i := 0; i < 20; i++ {
		jitter := float64(i) * 0.1
		features = append(features, []float64{jitter, jitter})
		labels = append(labels, 0)
		features = append(features, []float64{10 + jitter, 10 + jitter})
		labels = append(labels, 1)
	}

	imputer, err := preprocess.NewImputer("mean", 0)
	if err != nil {
		t.Fatalf("NewImputer: %v", err)
	}
	if err := imputer.Fit(features); err != nil {
		t.Fatalf("Fit imputer: %v", err)
	}
	scaler := &preprocess.StandardScaler{}
	if err := scaler.Fit(features); err != nil {
		t.Fatalf("Fit scaler: %v", err)
	}
	scaled, err := scaler.Transform(features)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}

	model := ml.NewDecisionTree(5)
	if err := model.Train(scaled, labels); err != nil {
		t.Fatalf("Train: %v", err)
	}

	return &Bundle{
		Model:   model,
		Imputer: imputer,
		Scaler:  scaler,
		Metadata: Metadata{
			ModelName:    "decision_tree",
			ModelType:    "decision_tree",
			Accuracy:     0.95,
			Imputation:   "mean",
			FeatureNames: dataset.FeatureNames()[:2],
			TrainingRows: len(features),
		},
	}
}

func TestSaveAndLoadBundle(t *testing.T) {
	dir := t.TempDir()
	bundle := trainedBundle(t)

	ts, err := SaveBundle(dir, bundle, time.Date(2026, 3, 14, 9, 30, 45, 0, time.UTC))
	if err != nil {
		t.Fatalf("SaveBundle: %v", err)
	}
	if ts != "20260314_093045" {
		t.Errorf("timestamp = %s", ts)
	}

	loaded, err := Load(dir, ts)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Metadata.ModelName != "decision_tree" {
		t.Errorf("metadata model name = %s", loaded.Metadata.ModelName)
	}
	if loaded.Metadata.Accuracy != 0.95 {
		t.Errorf("metadata accuracy = %v", loaded.Metadata.Accuracy)
	}
	if loaded.Imputer.Strategy() != "mean" {
		t.Errorf("imputer strategy = %s", loaded.Imputer.Strategy())
	}

	// The restored pipeline and model agree with the originals.
	for _, point := range [][]float64{{0.5, math.NaN()}, {10.5, 10.2}} {
		wantVec, err := bundle.Pipeline().Apply(point)
		if err != nil {
			t.Fatalf("Apply original: %v", err)
		}
		gotVec, err := loaded.Pipeline().Apply(point)
		if err != nil {
			t.Fatalf("Apply restored: %v", err)
		}
		for j := range wantVec {
			if math.Abs(wantVec[j]-gotVec[j]) > 1e-12 {
				t.Fatalf("pipeline mismatch at %v: %v vs %v", point, gotVec, wantVec)
			}
		}
		want, err := bundle.Model.Predict(wantVec)
		if err != nil {
			t.Fatalf("Predict original: %v", err)
		}
		got, err := loaded.Model.Predict(gotVec)
		if err != nil {
			t.Fatalf("Predict restored: %v", err)
		}
		if got != want {
			t.Errorf("restored model disagrees at %v", point)
		}
	}
}

func TestLoadLatestPicksNewest(t *testing.T) {
	dir := t.TempDir()
	bundle := trainedBundle(t)

	if _, err := SaveBundle(dir, bundle, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("SaveBundle: %v", err)
	}
	bundle.Metadata.ModelName = "newer"
	if _, err := SaveBundle(dir, bundle, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("SaveBundle: %v", err)
	}

	stamps, err := List(dir)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(stamps) != 2 {
		t.Fatalf("expected 2 versions, got %v", stamps)
	}

	latest, err := LoadLatest(dir)
	if err != nil {
		t.Fatalf("LoadLatest: %v", err)
	}
	if latest.Metadata.ModelName != "newer" {
		t.Errorf("latest model = %s", latest.Metadata.ModelName)
	}
}

func TestListMetadata(t *testing.T) {
	dir := t.TempDir()
	bundle := trainedBundle(t)

	if _, err := SaveBundle(dir, bundle, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("SaveBundle: %v", err)
	}
	bundle.Metadata.ModelName = "random_forest"
	bundle.Metadata.Accuracy = 0.98
	if _, err := SaveBundle(dir, bundle, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("SaveBundle: %v", err)
	}

	metas, err := ListMetadata(dir)
	if err != nil {
		t.Fatalf("ListMetadata: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(metas))
	}
	if metas[0].TrainingDate != "20260101_000000" || metas[1].TrainingDate != "20260201_000000" {
		t.Errorf("not oldest first: %s, %s", metas[0].TrainingDate, metas[1].TrainingDate)
	}
	if metas[0].ModelName != "decision_tree" || metas[1].ModelName != "random_forest" {
		t.Errorf("model names = %s, %s", metas[0].ModelName, metas[1].ModelName)
	}
	if metas[1].Accuracy != 0.98 {
		t.Errorf("accuracy = %v", metas[1].Accuracy)
	}
}

func TestListMetadataEmptyDir(t *testing.T) {
	metas, err := ListMetadata(t.TempDir())
	if err != nil {
		t.Fatalf("ListMetadata: %v", err)
	}
	if len(metas) != 0 {
		t.Errorf("expected no entries, got %v", metas)
	}
}

func TestLoadLatestEmptyDir(t *testing.T) {
	if _, err := LoadLatest(t.TempDir()); !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestRegistryReloadAndCallback(t *testing.T) {
	dir := t.TempDir()
	reg := NewRegistry(dir, nil)

	if reg.Current() != nil {
		t.Fatal("fresh registry should have no bundle")
	}
	if err := reg.Reload(); err == nil {
		t.Fatal("reload on empty dir should fail")
	}

	var reloaded []string
	reg.OnReload(func(meta Metadata) {
		reloaded = append(reloaded, meta.TrainingDate)
	})

	bundle := trainedBundle(t)
	ts, err := SaveBundle(dir, bundle, time.Now())
	if err != nil {
		t.Fatalf("SaveBundle: %v", err)
	}
	if err := reg.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if current := reg.Current(); current == nil || current.Metadata.TrainingDate != ts {
		t.Error("current bundle not updated")
	}
	if len(reloaded) != 1 || reloaded[0] != ts {
		t.Errorf("callback not invoked: %v", reloaded)
	}
}
