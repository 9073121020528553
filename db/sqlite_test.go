package db

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	if err := InitDB(path); err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	t.Cleanup(func() { Close() })
}

func TestSaveAndQueryPredictions(t *testing.T) {
	openTestDB(t)

	rec := PredictionRecord{
		Inputs:         []float64{7, 150, 400, 3, 200, 450, 8, 60, 3},
		PredictedLabel: 1,
		Confidence:     0.91,
		ModelVersion:   "20260101_120000",
		Warnings:       []string{"ph (15) is outside typical range (0-14)"},
		CreatedAt:      time.Now(),
	}
	if err := SavePrediction(rec); err != nil {
		t.Fatalf("SavePrediction: %v", err)
	}
	if err := SavePrediction(PredictionRecord{
		Inputs:         []float64{6, 100, 300, 2, 180, 400, 7, 50, 2},
		PredictedLabel: 0,
		Confidence:     0.8,
		ModelVersion:   "20260101_120000",
	}); err != nil {
		t.Fatalf("SavePrediction: %v", err)
	}

	records, err := RecentPredictions(10)
	if err != nil {
		t.Fatalf("RecentPredictions: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	// Newest first.
	if records[0].PredictedLabel != 0 {
		t.Errorf("newest record label = %d", records[0].PredictedLabel)
	}
	if records[1].Confidence != 0.91 {
		t.Errorf("confidence = %v", records[1].Confidence)
	}
	if len(records[1].Warnings) != 1 {
		t.Errorf("warnings = %v", records[1].Warnings)
	}
	if records[1].Inputs[0] != 7 {
		t.Errorf("inputs = %v", records[1].Inputs)
	}
}

func TestSavePredictionValidatesInputs(t *testing.T) {
	openTestDB(t)
	err := SavePrediction(PredictionRecord{Inputs: []float64{1, 2, 3}})
	if err == nil {
		t.Fatal("expected error for short input vector")
	}
}

func TestTrainingLogRoundTrip(t *testing.T) {
	openTestDB(t)

	entries := []TrainingEntry{
		{ModelName: "decision_tree", Imputation: "mean", Accuracy: 0.66, F1: 0.52, DataPoints: 3276},
		{ModelName: "random_forest", Imputation: "knn", Accuracy: 0.71, F1: 0.58, DataPoints: 3276},
	}
	for _, entry := range entries {
		if err := SaveTrainingLog(entry); err != nil {
			t.Fatalf("SaveTrainingLog: %v", err)
		}
	}

	loaded, err := LoadTrainingLog(0)
	if err != nil {
		t.Fatalf("LoadTrainingLog: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(loaded))
	}
	if loaded[0].ModelName != "random_forest" {
		t.Errorf("newest entry = %s", loaded[0].ModelName)
	}
	if loaded[1].Accuracy != 0.66 {
		t.Errorf("accuracy = %v", loaded[1].Accuracy)
	}
	if loaded[0].TrainedAt.IsZero() {
		t.Error("trained_at not set")
	}
}

func TestQueriesRequireInit(t *testing.T) {
	Close()
	if _, err := RecentPredictions(5); err == nil {
		t.Error("expected error before InitDB")
	}
	if err := SaveTrainingLog(TrainingEntry{}); err == nil {
		t.Error("expected error before InitDB")
	}
}
