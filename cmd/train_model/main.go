package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"aquasense/db"
	"aquasense/logging"
	"aquasense/train"
)

func main() {
	dataPath := flag.String("data", "data/water_potability.csv", "path to training CSV")
	encoding := flag.String("encoding", "utf-8", "CSV character encoding")
	modelsDir := flag.String("models", "models", "artifact output directory")
	dbPath := flag.String("db", "", "SQLite path for the training log (optional)")
	testRatio := flag.Float64("test-ratio", 0.2, "held-out test fraction")
	seed := flag.Int64("seed", 42, "random seed")
	smote := flag.Bool("smote", true, "oversample the minority class")
	imputers := flag.String("imputers", "mean,median,knn", "comma separated imputation strategies")
	models := flag.String("model-list", "", "comma separated models, empty for the full zoo")
	flag.Parse()

	logger := logging.New(logging.Config{Level: "info"})
	defer logger.Sync()

	if *dbPath != "" {
		if err := db.InitDB(*dbPath); err != nil {
			fmt.Fprintf(os.Stderr, "open database: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()
	}

	cfg := train.Config{
		DataPath:  *dataPath,
		Encoding:  *encoding,
		ModelsDir: *modelsDir,
		TestRatio: *testRatio,
		Seed:      *seed,
		SMOTE:     *smote,
		Imputers:  splitList(*imputers),
		Models:    splitList(*models),
	}

	result, err := train.Run(context.Background(), cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "training failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n%-22s %-8s %9s %9s %9s %9s %9s\n",
		"MODEL", "IMPUTE", "ACC", "PREC", "RECALL", "F1", "AUC")
	for _, score := range result.Scores {
		eval := score.Evaluation
		fmt.Printf("%-22s %-8s %9.4f %9.4f %9.4f %9.4f %9.4f\n",
			score.Model, score.Imputation,
			eval.Accuracy, eval.Precision, eval.Recall, eval.F1, eval.AUC)
	}
	fmt.Printf("\nbest: %s (%s imputation), accuracy %.4f, saved as version %s\n",
		result.Best.Model, result.Best.Imputation,
		result.Best.Evaluation.Accuracy, result.Timestamp)
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var parts []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
