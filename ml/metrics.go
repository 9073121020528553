package ml

import "sort"

// Evaluation holds the standard binary-classification metrics with
// label 1 as the positive class.
type Evaluation struct {
	Accuracy  float64   `json:"accuracy"`
	Precision float64   `json:"precision"`
	Recall    float64   `json:"recall"`
	F1        float64   `json:"f1"`
	AUC       float64   `json:"auc"`
	Confusion [2][2]int `json:"confusion"`
}

func Accuracy(yTrue, yPred []int) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(yTrue))
}

// ConfusionMatrix returns counts indexed as [actual][predicted].
func ConfusionMatrix(yTrue, yPred []int) [2][2]int {
	var cm [2][2]int
	for i := range yTrue {
		if yTrue[i] >= 0 && yTrue[i] < 2 && yPred[i] >= 0 && yPred[i] < 2 {
			cm[yTrue[i]][yPred[i]]++
		}
	}
	return cm
}

// PrecisionRecallF1 computes the three metrics for the given positive
// label. Undefined ratios (no predicted or no actual positives) are
// reported as zero.
func PrecisionRecallF1(yTrue, yPred []int, positive int) (precision, recall, f1 float64) {
	var truePositive, predictedPositive, actualPositive int
	for i := range yTrue {
		if yPred[i] == positive {
			predictedPositive++
			if yTrue[i] == positive {
				truePositive++
			}
		}
		if yTrue[i] == positive {
			actualPositive++
		}
	}
	if predictedPositive > 0 {
		precision = float64(truePositive) / float64(predictedPositive)
	}
	if actualPositive > 0 {
		recall = float64(truePositive) / float64(actualPositive)
	}
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}
	return precision, recall, f1
}

// ROCAUC computes the area under the ROC curve from positive-class
// scores using the rank statistic, with average ranks for ties.
func ROCAUC(yTrue []int, scores []float64) float64 {
	type scored struct {
		score float64
		label int
	}
	items := make([]scored, len(yTrue))
	positives, negatives := 0, 0
	for i := range yTrue {
		items[i] = scored{score: scores[i], label: yTrue[i]}
		if yTrue[i] == 1 {
			positives++
		} else {
			negatives++
		}
	}
	if positives == 0 || negatives == 0 {
		return 0
	}

	sort.Slice(items, func(i, j int) bool { return items[i].score < items[j].score })

	// Assign average ranks within tied score groups.
	rankSum := 0.0
	i := 0
	for i < len(items) {
		j := i
		for j < len(items) && items[j].score == items[i].score {
			j++
		}
		avgRank := float64(i+j+1) / 2 // ranks are 1-based
		for k := i; k < j; k++ {
			if items[k].label == 1 {
				rankSum += avgRank
			}
		}
		i = j
	}

	p := float64(positives)
	n := float64(negatives)
	return (rankSum - p*(p+1)/2) / (p * n)
}

// Evaluate runs a trained classifier over a test set and collects all
// metrics.
func Evaluate(model Classifier, testX [][]float64, testY []int) (Evaluation, error) {
	preds := make([]int, len(testX))
	scores := make([]float64, len(testX))
	for i, row := range testX {
		proba, err := model.PredictProba(row)
		if err != nil {
			return Evaluation{}, err
		}
		preds[i] = argmax(proba)
		scores[i] = proba[1]
	}

	precision, recall, f1 := PrecisionRecallF1(testY, preds, 1)
	return Evaluation{
		Accuracy:  Accuracy(testY, preds),
		Precision: precision,
		Recall:    recall,
		F1:        f1,
		AUC:       ROCAUC(testY, scores),
		Confusion: ConfusionMatrix(testY, preds),
	}, nil
}
