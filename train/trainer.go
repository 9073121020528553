package train

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"aquasense/dataset"
	"aquasense/db"
	"aquasense/ml"
	"aquasense/preprocess"
	"aquasense/registry"
)

// Config controls one training run.
type Config struct {
	DataPath  string   `yaml:"data_path"`
	Encoding  string   `yaml:"encoding"`
	ModelsDir string   `yaml:"models_dir"`
	TestRatio float64  `yaml:"test_ratio"`
	Seed      int64    `yaml:"seed"`
	SMOTE     bool     `yaml:"smote"`
	SMOTEK    int      `yaml:"smote_k"`
	Imputers  []string `yaml:"imputers"`
	Models    []string `yaml:"models"`
}

// DefaultModels is the full candidate zoo in training order.
func DefaultModels() []string {
	return []string{
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
}

// DefaultImputers lists the compared missing-value strategies.
func DefaultImputers() []string { return []string{"mean", "median", "knn"} }

func (c *Config) applyDefaults() {
	if c.TestRatio <= 0 || c.TestRatio >= 1 {
		c.TestRatio = 0.2
	}
	if c.Seed == 0 {
		c.Seed = 42
	}
	if c.SMOTEK <= 0 {
		c.SMOTEK = 5
	}
	if len(c.Imputers) == 0 {
		c.Imputers = DefaultImputers()
	}
	if len(c.Models) == 0 {
		c.Models = DefaultModels()
	}
	if c.ModelsDir == "" {
		c.ModelsDir = "models"
	}
}

// ModelScore is one candidate's evaluation on the held-out split.
type ModelScore struct {
	Model        string        `json:"model"`
	Imputation   string        `json:"imputation"`
	Evaluation   ml.Evaluation `json:"evaluation"`
	TrainSeconds float64       `json:"train_seconds"`
}

// Result summarizes a completed run.
type Result struct {
	Timestamp string       `json:"timestamp"`
	Best      ModelScore   `json:"best"`
	Scores    []ModelScore `json:"scores"`
	Rows      int          `json:"rows"`
	Bundle    *registry.Bundle
}

// Run loads the dataset, trains every configured model under every
// imputation strategy, persists the best bundle by test accuracy and
// returns the full score table.
func Run(ctx context.Context, cfg Config, logger *zap.Logger) (*Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.applyDefaults()

	ds, err := dataset.LoadCSV(cfg.DataPath, cfg.Encoding)
	if err != nil {
		return nil, fmt.Errorf("train: load dataset: %w", err)
	}
	counts := ds.LabelCounts()
	logger.Info("dataset loaded",
		zap.String("path", cfg.DataPath),
		zap.Int("rows", len(ds.Rows)),
		zap.Int("not_potable", counts[0]),
		zap.Int("potable", counts[1]))

	var (
		scores     []ModelScore
		best       ModelScore
		bestBundle *registry.Bundle
	)

	for _, strategy := range cfg.Imputers {
		imputer, err := preprocess.NewImputer(strategy, 5)
		if err != nil {
			return nil, err
		}
		if err := imputer.Fit(ds.Rows); err != nil {
			return nil, fmt.Errorf("train: fit %s imputer: %w", strategy, err)
		}
		complete, err := imputer.Transform(ds.Rows)
		if err != nil {
			return nil, err
		}

		trainX, trainY, testX, testY := dataset.StratifiedSplit(complete, ds.Labels, cfg.TestRatio, cfg.Seed)

		if cfg.SMOTE {
			balancedX, balancedY, err := dataset.SMOTE(trainX, trainY, cfg.SMOTEK, cfg.Seed)
			if err != nil {
				return nil, fmt.Errorf("train: smote: %w", err)
			}
			trainX, trainY = balancedX, balancedY
		}

		scaler := &preprocess.StandardScaler{}
		if err := scaler.Fit(trainX); err != nil {
			return nil, err
		}
		scaledTrain, err := scaler.Transform(trainX)
		if err != nil {
			return nil, err
		}
		scaledTest, err := scaler.Transform(testX)
		if err != nil {
			return nil, err
		}

		for _, name := range cfg.Models {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			model, err := ml.New(name)
			if err != nil {
				return nil, err
			}
			started := time.Now()
			if err := model.Train(scaledTrain, trainY); err != nil {
				return nil, fmt.Errorf("train: %s: %w", name, err)
			}
			eval, err := ml.Evaluate(model, scaledTest, testY)
			if err != nil {
				return nil, fmt.Errorf("train: evaluate %s: %w", name, err)
			}

			score := ModelScore{
				Model:        name,
				Imputation:   strategy,
				Evaluation:   eval,
				TrainSeconds: time.Since(started).Seconds(),
			}
			scores = append(scores, score)
			logger.Info("model evaluated",
				zap.String("model", name),
				zap.String("imputation", strategy),
				zap.Float64("accuracy", eval.Accuracy),
				zap.Float64("f1", eval.F1),
				zap.Float64("auc", eval.AUC))

			if bestBundle == nil || eval.Accuracy > best.Evaluation.Accuracy {
				best = score
				bestBundle = &registry.Bundle{
					Model:   model,
					Imputer: imputer,
					Scaler:  scaler,
					Metadata: registry.Metadata{
						ModelName:    name,
						ModelType:    model.Name(),
						Accuracy:     eval.Accuracy,
						Precision:    eval.Precision,
						Recall:       eval.Recall,
						F1:           eval.F1,
						AUC:          eval.AUC,
						Imputation:   strategy,
						FeatureNames: ds.Features,
						TrainingRows: len(trainX),
						PreprocessingSteps: []string{
							strategy + "_imputation",
							"standard_scaling",
						},
						FeatureImportance: importancesByName(model, ds.Features),
					},
				}
			}
		}
	}

	if bestBundle == nil {
		return nil, errors.New("train: no model trained")
	}

	ts, err := registry.SaveBundle(cfg.ModelsDir, bestBundle, time.Now())
	if err != nil {
		return nil, err
	}
	if err := registry.SaveComparison(cfg.ModelsDir, ts, scores); err != nil {
		return nil, err
	}
	logger.Info("best model saved",
		zap.String("model", best.Model),
		zap.String("imputation", best.Imputation),
		zap.Float64("accuracy", best.Evaluation.Accuracy),
		zap.String("version", ts))

	logScores(scores, len(ds.Rows), logger)

	return &Result{
		Timestamp: ts,
		Best:      best,
		Scores:    scores,
		Rows:      len(ds.Rows),
		Bundle:    bestBundle,
	}, nil
}

// logScores writes the run into the training_log table when the
// database is open. Failures are logged, never fatal.
func logScores(scores []ModelScore, rows int, logger *zap.Logger) {
	now := time.Now()
	for _, score := range scores {
		err := db.SaveTrainingLog(db.TrainingEntry{
			ModelName:  score.Model,
			Imputation: score.Imputation,
			Accuracy:   score.Evaluation.Accuracy,
			Precision:  score.Evaluation.Precision,
			Recall:     score.Evaluation.Recall,
			F1:         score.Evaluation.F1,
			AUC:        score.Evaluation.AUC,
			DataPoints: rows,
			TrainedAt:  now,
		})
		if err != nil {
			logger.Debug("training log skipped", zap.Error(err))
			return
		}
	}
}

// importancesByName maps feature importances to column names for
// models that expose them.
func importancesByName(model ml.Classifier, features []string) map[string]float64 {
	var values []float64
	switch m := model.(type) {
	case *ml.DecisionTree:
		values = m.Importances()
	case *ml.RandomForest:
		values = m.Importances()
	default:
		return nil
	}
	if len(values) != len(features) {
		return nil
	}
	byName := make(map[string]float64, len(features))
	for i, name := range features {
		byName[name] = values[i]
	}
	return byName
}
