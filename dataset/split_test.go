package dataset

import (
	"math"
	"reflect"
	"testing"
)

func makeImbalanced(n0, n1 int) ([][]float64, []int) {
	var rows [][]float64
	var labels []int
	for i := 0; i < n0; i++ {
		rows = append(rows, []float64{float64(i), 0})
		labels = append(labels, 0)
	}
	for i := 0; i < n1; i++ {
		rows = append(rows, []float64{float64(i), 1})
		labels = append(labels, 1)
	}
	return rows, labels
}

func TestStratifiedSplitKeepsClassRatio(t *testing.T) {
	rows, labels := makeImbalanced(80, 20)
	trainX, trainY, testX, testY := StratifiedSplit(rows, labels, 0.2, 42)

	if len(trainX) != len(trainY) || len(testX) != len(testY) {
		t.Fatal("feature and label lengths diverge")
	}
	if len(trainX)+len(testX) != 100 {
		t.Fatalf("samples lost: train %d test %d", len(trainX), len(testX))
	}

	testOnes := 0
	for _, y := range testY {
		if y == 1 {
			testOnes++
		}
	}
	if testOnes != 4 {
		t.Errorf("test split has %d positives, want 4", testOnes)
	}
	if len(testX) != 20 {
		t.Errorf("test split size %d, want 20", len(testX))
	}
}

func TestStratifiedSplitDeterministic(t *testing.T) {
	rows, labels := makeImbalanced(30, 30)
	_, aTrainY, aTestX, _ := StratifiedSplit(rows, labels, 0.25, 7)
	_, bTrainY, bTestX, _ := StratifiedSplit(rows, labels, 0.25, 7)
	if !reflect.DeepEqual(aTrainY, bTrainY) || !reflect.DeepEqual(aTestX, bTestX) {
		t.Error("same seed should produce identical splits")
	}
}

func TestSMOTEBalancesClasses(t *testing.T) {
	rows, labels := makeImbalanced(40, 10)
	balancedX, balancedY, err := SMOTE(rows, labels, 5, 42)
	if err != nil {
		t.Fatalf("SMOTE: %v", err)
	}
	counts := map[int]int{}
	for _, y := range balancedY {
		counts[y]++
	}
	if counts[0] != counts[1] {
		t.Errorf("classes not balanced: %v", counts)
	}
	if len(balancedX) != len(balancedY) {
		t.Error("feature and label lengths diverge")
	}
	for _, row := range balancedX {
		for _, v := range row {
			if math.IsNaN(v) {
				t.Fatal("synthetic sample contains NaN")
			}
		}
	}
}

func TestSMOTERejectsMissingValues(t *testing.T) {
	rows := [][]float64{{1, math.NaN()}, {2, 3}, {4, 5}, {6, 7}}
	labels := []int{0, 0, 0, 1}
	if _, _, err := SMOTE(rows, labels, 3, 1); err == nil {
		t.Fatal("expected error for NaN input")
	}
}
