package preprocess

import (
	"math"
	"testing"
)

func nan() float64 { return math.NaN() }

func TestMeanImputerFillsMissing(t *testing.T) {
	rows := [][]float64{
		{1, 10},
		{nan(), 20},
		{3, nan()},
	}
	imp, err := NewImputer("mean", 0)
	if err != nil {
		t.Fatalf("NewImputer: %v", err)
	}
	if err := imp.Fit(rows); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	out, err := imp.Transform(rows)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if out[1][0] != 2 {
		t.Errorf("imputed value = %v, want 2", out[1][0])
	}
	if out[2][1] != 15 {
		t.Errorf("imputed value = %v, want 15", out[2][1])
	}
	if out[0][0] != 1 {
		t.Errorf("observed value changed: %v", out[0][0])
	}
}

func TestMedianImputer(t *testing.T) {
	rows := [][]float64{
		{1}, {2}, {100}, {nan()},
	}
	imp, _ := NewImputer("median", 0)
	if err := imp.Fit(rows); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	out, err := imp.Transform(rows)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if out[3][0] != 2 {
		t.Errorf("median imputed value = %v, want 2", out[3][0])
	}
}

func TestKNNImputerUsesNearestRows(t *testing.T) {
	rows := [][]float64{
		{1, 1},
		{1.1, 1.2},
		{100, 100},
		{101, 99},
	}
	imp, _ := NewImputer("knn", 2)
	if err := imp.Fit(rows); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	out, err := imp.Transform([][]float64{{1.05, nan()}})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	// Two nearest rows are (1,1) and (1.1,1.2).
	if math.Abs(out[0][1]-1.1) > 1e-9 {
		t.Errorf("knn imputed value = %v, want 1.1", out[0][1])
	}
}

func TestImputerEncodeDecode(t *testing.T) {
	rows := [][]float64{{1, 4}, {3, nan()}}
	imp, _ := NewImputer("mean", 0)
	if err := imp.Fit(rows); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	data, err := EncodeImputer(imp)
	if err != nil {
		t.Fatalf("EncodeImputer: %v", err)
	}
	restored, err := DecodeImputer(data)
	if err != nil {
		t.Fatalf("DecodeImputer: %v", err)
	}
	if restored.Strategy() != "mean" {
		t.Errorf("restored strategy = %s", restored.Strategy())
	}
	out, err := restored.Transform([][]float64{{nan(), nan()}})
	if err != nil {
		t.Fatalf("Transform after decode: %v", err)
	}
	if out[0][0] != 2 || out[0][1] != 4 {
		t.Errorf("restored imputer output = %v", out[0])
	}
}

func TestUnknownStrategy(t *testing.T) {
	if _, err := NewImputer("mode", 0); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}

func TestStandardScaler(t *testing.T) {
	rows := [][]float64{
		{0, 5},
		{10, 5},
	}
	var s StandardScaler
	if err := s.Fit(rows); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	out, err := s.Transform(rows)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if math.Abs(out[0][0]+1) > 1e-9 || math.Abs(out[1][0]-1) > 1e-9 {
		t.Errorf("scaled column = [%v %v], want [-1 1]", out[0][0], out[1][0])
	}
	// Constant column maps to zero.
	if out[0][1] != 0 || out[1][1] != 0 {
		t.Errorf("constant column should scale to 0, got [%v %v]", out[0][1], out[1][1])
	}
}

func TestScalerNotFitted(t *testing.T) {
	var s StandardScaler
	if _, err := s.TransformRow([]float64{1}); err == nil {
		t.Fatal("expected error for unfitted scaler")
	}
}

func TestPipelineApply(t *testing.T) {
	rows := [][]float64{
		{0, 1},
		{10, 3},
	}
	imp, _ := NewImputer("mean", 0)
	if err := imp.Fit(rows); err != nil {
		t.Fatalf("Fit imputer: %v", err)
	}
	var s StandardScaler
	if err := s.Fit(rows); err != nil {
		t.Fatalf("Fit scaler: %v", err)
	}
	p := Pipeline{Imputer: imp, Scaler: &s}

	out, err := p.Apply([]float64{nan(), 1})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	// Missing first value imputes to the mean, which scales to 0.
	if out[0] != 0 {
		t.Errorf("imputed+scaled value = %v, want 0", out[0])
	}
	if math.Abs(out[1]+1) > 1e-9 {
		t.Errorf("scaled value = %v, want -1", out[1])
	}
}
