package dataset

import "math/rand"

// StratifiedSplit shuffles each class independently with the given seed
// and splits rows into train/test so that both sides keep the original
// class proportions.
func StratifiedSplit(rows [][]float64, labels []int, testRatio float64, seed int64) (trainX [][]float64, trainY []int, testX [][]float64, testY []int) {
	if testRatio <= 0 || testRatio >= 1 {
		testRatio = 0.2
	}

	byClass := make(map[int][]int)
	for i, label := range labels {
		byClass[label] = append(byClass[label], i)
	}

	rnd := rand.New(rand.NewSource(seed))
	for _, label := range sortedKeys(byClass) {
		indices := byClass[label]
		rnd.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})

		testCount := int(float64(len(indices)) * testRatio)
		for i, idx := range indices {
			if i < testCount {
				testX = append(testX, rows[idx])
				testY = append(testY, labels[idx])
			} else {
				trainX = append(trainX, rows[idx])
				trainY = append(trainY, labels[idx])
			}
		}
	}
	return trainX, trainY, testX, testY
}

func sortedKeys(m map[int][]int) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		j := i
		for j > 0 && keys[j-1] > keys[j] {
			keys[j-1], keys[j] = keys[j], keys[j-1]
			j--
		}
	}
	return keys
}
