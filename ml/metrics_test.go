package ml

import (
	"math"
	"testing"
)

func TestAccuracy(t *testing.T) {
	yTrue := []int{0, 1, 1, 0}
	yPred := []int{0, 1, 0, 0}
	if got := Accuracy(yTrue, yPred); got != 0.75 {
		t.Errorf("Accuracy = %v, want 0.75", got)
	}
	if got := Accuracy(nil, nil); got != 0 {
		t.Errorf("Accuracy on empty = %v", got)
	}
}

func TestConfusionMatrix(t *testing.T) {
	yTrue := []int{0, 0, 1, 1, 1}
	yPred := []int{0, 1, 1, 1, 0}
	cm := ConfusionMatrix(yTrue, yPred)
	if cm[0][0] != 1 || cm[0][1] != 1 || cm[1][0] != 1 || cm[1][1] != 2 {
		t.Errorf("unexpected confusion matrix: %v", cm)
	}
}

func TestPrecisionRecallF1(t *testing.T) {
	yTrue := []int{1, 1, 1, 0, 0}
	yPred := []int{1, 1, 0, 1, 0}
	precision, recall, f1 := PrecisionRecallF1(yTrue, yPred, 1)
	if math.Abs(precision-2.0/3.0) > 1e-9 {
		t.Errorf("precision = %v", precision)
	}
	if math.Abs(recall-2.0/3.0) > 1e-9 {
		t.Errorf("recall = %v", recall)
	}
	if math.Abs(f1-2.0/3.0) > 1e-9 {
		t.Errorf("f1 = %v", f1)
	}
}

func TestPrecisionRecallNoPositives(t *testing.T) {
	precision, recall, f1 := PrecisionRecallF1([]int{0, 0}, []int{0, 0}, 1)
	if precision != 0 || recall != 0 || f1 != 0 {
		t.Errorf("expected zeros, got %v %v %v", precision, recall, f1)
	}
}

func TestROCAUCPerfectRanking(t *testing.T) {
	yTrue := []int{0, 0, 1, 1}
	scores := []float64{0.1, 0.2, 0.8, 0.9}
	if got := ROCAUC(yTrue, scores); math.Abs(got-1) > 1e-9 {
		t.Errorf("AUC = %v, want 1", got)
	}
}

func TestROCAUCUninformativeScores(t *testing.T) {
	yTrue := []int{0, 1, 0, 1}
	scores := []float64{0.5, 0.5, 0.5, 0.5}
	if got := ROCAUC(yTrue, scores); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("AUC = %v, want 0.5", got)
	}
}

func TestROCAUCSingleClass(t *testing.T) {
	if got := ROCAUC([]int{1, 1}, []float64{0.2, 0.9}); got != 0 {
		t.Errorf("AUC = %v, want 0 for single class", got)
	}
}

func TestEvaluateSeparableModel(t *testing.T) {
	features, labels := separableData()
	model := NewKNN(3)
	if err := model.Train(features, labels); err != nil {
		t.Fatalf("Train: %v", err)
	}
	testX := [][]float64{{0.1, 0.5}, {0.3, 0.8}, {10.1, 10.2}, {9.8, 10.5}}
	testY := []int{0, 0, 1, 1}
	eval, err := Evaluate(model, testX, testY)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if eval.Accuracy != 1 {
		t.Errorf("accuracy = %v, want 1", eval.Accuracy)
	}
	if eval.Precision != 1 || eval.Recall != 1 || eval.F1 != 1 {
		t.Errorf("unexpected metrics: %+v", eval)
	}
	if math.Abs(eval.AUC-1) > 1e-9 {
		t.Errorf("AUC = %v, want 1", eval.AUC)
	}
	if eval.Confusion[0][0] != 2 || eval.Confusion[1][1] != 2 {
		t.Errorf("unexpected confusion: %v", eval.Confusion)
	}
}
