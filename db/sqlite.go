package db

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var database *sql.DB

// InitDB initializes the SQLite database
func InitDB(path string) error {
	var err error
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000&_cache_size=10000&_synchronous=NORMAL"
	database, err = sql.Open("sqlite3", dsn)
	if err != nil {
		return err
	}

	query := `
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        ph REAL,
        hardness REAL,
        solids REAL,
        chloramines REAL,
        sulfate REAL,
        conductivity REAL,
        organic_carbon REAL,
        trihalomethanes REAL,
        turbidity REAL,
        predicted_label INTEGER,
        confidence REAL,
        model_version VARCHAR(30),
        warnings TEXT,
        created_at DATETIME
    );
    CREATE TABLE IF NOT EXISTS training_log (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        model_name VARCHAR(50),
        imputation VARCHAR(20),
        accuracy REAL,
        precision_score REAL,
        recall REAL,
        f1 REAL,
        auc REAL,
        data_points INTEGER,
        trained_at DATETIME
    );
    `
	_, err = database.Exec(query)
	return err
}

// Close closes the database connection
func Close() error {
	if database == nil {
		return nil
	}
	err := database.Close()
	database = nil
	return err
}

// PredictionRecord is one served prediction.
type PredictionRecord struct {
	ID             int64     `json:"id"`
	Inputs         []float64 `json:"inputs"`
	PredictedLabel int       `json:"predicted_label"`
	Confidence     float64   `json:"confidence"`
	ModelVersion   string    `json:"model_version"`
	Warnings       []string  `json:"warnings,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// SavePrediction stores a served prediction
func SavePrediction(rec PredictionRecord) error {
	if database == nil {
		return errors.New("db: not initialized")
	}
	if len(rec.Inputs) != 9 {
		return errors.New("db: expected 9 input values")
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := database.Exec(`
        INSERT INTO predictions
        (ph, hardness, solids, chloramines, sulfate, conductivity,
         organic_carbon, trihalomethanes, turbidity,
         predicted_label, confidence, model_version, warnings, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Inputs[0], rec.Inputs[1], rec.Inputs[2], rec.Inputs[3],
		rec.Inputs[4], rec.Inputs[5], rec.Inputs[6], rec.Inputs[7], rec.Inputs[8],
		rec.PredictedLabel, rec.Confidence, rec.ModelVersion,
		strings.Join(rec.Warnings, "; "), createdAt)
	return err
}

// RecentPredictions returns the latest served predictions, newest first
func RecentPredictions(limit int) ([]PredictionRecord, error) {
	if database == nil {
		return nil, errors.New("db: not initialized")
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := database.Query(`
        SELECT id, ph, hardness, solids, chloramines, sulfate, conductivity,
               organic_carbon, trihalomethanes, turbidity,
               predicted_label, confidence, model_version, warnings, created_at
        FROM predictions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []PredictionRecord
	for rows.Next() {
		var rec PredictionRecord
		var warnings string
		inputs := make([]float64, 9)
		err := rows.Scan(&rec.ID,
			&inputs[0], &inputs[1], &inputs[2], &inputs[3], &inputs[4],
			&inputs[5], &inputs[6], &inputs[7], &inputs[8],
			&rec.PredictedLabel, &rec.Confidence, &rec.ModelVersion,
			&warnings, &rec.CreatedAt)
		if err != nil {
			return nil, err
		}
		rec.Inputs = inputs
		if warnings != "" {
			rec.Warnings = strings.Split(warnings, "; ")
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// TrainingEntry is one model's scores from a training run.
type TrainingEntry struct {
	ID         int64     `json:"id"`
	ModelName  string    `json:"model_name"`
	Imputation string    `json:"imputation"`
	Accuracy   float64   `json:"accuracy"`
	Precision  float64   `json:"precision"`
	Recall     float64   `json:"recall"`
	F1         float64   `json:"f1"`
	AUC        float64   `json:"auc"`
	DataPoints int       `json:"data_points"`
	TrainedAt  time.Time `json:"trained_at"`
}

// SaveTrainingLog stores one model's evaluation from a training run
func SaveTrainingLog(entry TrainingEntry) error {
	if database == nil {
		return errors.New("db: not initialized")
	}
	trainedAt := entry.TrainedAt
	if trainedAt.IsZero() {
		trainedAt = time.Now()
	}
	_, err := database.Exec(`
        INSERT INTO training_log
        (model_name, imputation, accuracy, precision_score, recall, f1, auc, data_points, trained_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ModelName, entry.Imputation, entry.Accuracy, entry.Precision,
		entry.Recall, entry.F1, entry.AUC, entry.DataPoints, trainedAt)
	return err
}

// LoadTrainingLog returns training history, newest first
func LoadTrainingLog(limit int) ([]TrainingEntry, error) {
	if database == nil {
		return nil, errors.New("db: not initialized")
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := database.Query(`
        SELECT id, model_name, imputation, accuracy, precision_score, recall, f1, auc, data_points, trained_at
        FROM training_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []TrainingEntry
	for rows.Next() {
		var entry TrainingEntry
		err := rows.Scan(&entry.ID, &entry.ModelName, &entry.Imputation,
			&entry.Accuracy, &entry.Precision, &entry.Recall, &entry.F1,
			&entry.AUC, &entry.DataPoints, &entry.TrainedAt)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
