package ml

import (
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"sync"
)

// RandomForest bags seeded decision trees trained in parallel. With
// Bootstrap disabled and RandomThreshold enabled it behaves as
// extremely randomized trees.
type RandomForest struct {
	NEstimators     int   `json:"n_estimators"`
	MaxDepth        int   `json:"max_depth"`
	MaxFeatures     int   `json:"max_features"`
	Bootstrap       bool  `json:"bootstrap"`
	RandomThreshold bool  `json:"random_threshold"`
	Seed            int64 `json:"seed"`

	Trees []*DecisionTree `json:"trees"`

	extra bool
}

func NewRandomForest(nEstimators, maxDepth int, seed int64) *RandomForest {
	if nEstimators <= 0 {
		nEstimators = 100
	}
	return &RandomForest{
		NEstimators: nEstimators,
		MaxDepth:    maxDepth,
		Bootstrap:   true,
		Seed:        seed,
	}
}

func NewExtraTrees(nEstimators, maxDepth int, seed int64) *RandomForest {
	forest := NewRandomForest(nEstimators, maxDepth, seed)
	forest.Bootstrap = false
	forest.RandomThreshold = true
	forest.extra = true
	return forest
}

func (rf *RandomForest) Name() string {
	if rf.extra || rf.RandomThreshold {
		return "extra_trees"
	}
	return "random_forest"
}

func (rf *RandomForest) Train(features [][]float64, labels []int) error {
	if len(features) == 0 {
		return errors.New("ml: features empty")
	}
	if len(features) != len(labels) {
		return errors.New("ml: features and labels size mismatch")
	}

	maxFeatures := rf.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = int(math.Sqrt(float64(len(features[0]))))
		if maxFeatures < 1 {
			maxFeatures = 1
		}
	}
	seed := rf.Seed
	if seed == 0 {
		seed = 1
	}

	n := len(features)
	rf.Trees = make([]*DecisionTree, rf.NEstimators)

	var wg sync.WaitGroup
	errCh := make(chan error, rf.NEstimators)
	for i := 0; i < rf.NEstimators; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			// Each tree gets its own source to avoid lock contention.
			treeRand := rand.New(rand.NewSource(seed + int64(idx)))

			sampleX := features
			sampleY := labels
			if rf.Bootstrap {
				sampleX = make([][]float64, n)
				sampleY = make([]int, n)
				for j := 0; j < n; j++ {
					pick := treeRand.Intn(n)
					sampleX[j] = features[pick]
					sampleY[j] = labels[pick]
				}
			}

			tree := NewDecisionTree(rf.MaxDepth)
			tree.MaxFeatures = maxFeatures
			tree.RandomThreshold = rf.RandomThreshold
			tree.Seed = seed + int64(idx)
			if err := tree.Train(sampleX, sampleY); err != nil {
				errCh <- err
				return
			}
			rf.Trees[idx] = tree
		}(i)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			return err
		}
	}
	return nil
}

func (rf *RandomForest) Predict(features []float64) (int, error) {
	proba, err := rf.PredictProba(features)
	if err != nil {
		return 0, err
	}
	return argmax(proba), nil
}

func (rf *RandomForest) PredictProba(features []float64) ([]float64, error) {
	if len(rf.Trees) == 0 {
		return nil, errors.New("ml: model not trained")
	}
	proba := make([]float64, NumClasses)
	for _, tree := range rf.Trees {
		treeProba, err := tree.PredictProba(features)
		if err != nil {
			return nil, err
		}
		for i, p := range treeProba {
			proba[i] += p
		}
	}
	for i := range proba {
		proba[i] /= float64(len(rf.Trees))
	}
	return proba, nil
}

// Importances averages the impurity-decrease importances over all
// trees.
func (rf *RandomForest) Importances() []float64 {
	if len(rf.Trees) == 0 {
		return nil
	}
	sum := make([]float64, len(rf.Trees[0].Importance))
	for _, tree := range rf.Trees {
		for i, v := range tree.Importances() {
			sum[i] += v
		}
	}
	for i := range sum {
		sum[i] /= float64(len(rf.Trees))
	}
	return normalizeImportance(sum)
}

func (rf *RandomForest) State() (json.RawMessage, error) {
	if len(rf.Trees) == 0 {
		return nil, errors.New("ml: model not trained")
	}
	return json.Marshal(rf)
}

func (rf *RandomForest) Restore(state json.RawMessage) error {
	if err := json.Unmarshal(state, rf); err != nil {
		return err
	}
	rf.extra = rf.RandomThreshold
	return nil
}
