package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"aquasense/ml"
	"aquasense/preprocess"
)

// TimestampLayout names artifact files, e.g. water_quality_model_20250114_093045.json.
const TimestampLayout = "20060102_150405"

const metadataPrefix = "model_metadata_"

// Metadata describes a persisted model bundle.
type Metadata struct {
	ModelName          string             `json:"model_name"`
	ModelType          string             `json:"model_type"`
	Accuracy           float64            `json:"accuracy"`
	Precision          float64            `json:"precision"`
	Recall             float64            `json:"recall"`
	F1                 float64            `json:"f1"`
	AUC                float64            `json:"auc"`
	Imputation         string             `json:"imputation"`
	FeatureNames       []string           `json:"feature_names"`
	TrainingDate       string             `json:"training_date"`
	TrainingRows       int                `json:"training_rows"`
	ModelFile          string             `json:"model_file"`
	ScalerFile         string             `json:"scaler_file"`
	ImputerFile        string             `json:"imputer_file"`
	PreprocessingSteps []string           `json:"preprocessing_steps"`
	FeatureImportance  map[string]float64 `json:"feature_importance,omitempty"`
}

// Bundle is a trained model together with the transforms that produced
// its training matrix.
type Bundle struct {
	Model    ml.Classifier
	Imputer  preprocess.Imputer
	Scaler   *preprocess.StandardScaler
	Metadata Metadata
}

// Pipeline returns the bundle's preprocessing chain.
func (b *Bundle) Pipeline() *preprocess.Pipeline {
	return &preprocess.Pipeline{Imputer: b.Imputer, Scaler: b.Scaler}
}

// SaveBundle writes the four artifact files for one trained bundle and
// returns the timestamp that names them.
func SaveBundle(dir string, bundle *Bundle, at time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	ts := at.Format(TimestampLayout)

	modelState, err := ml.Encode(bundle.Model)
	if err != nil {
		return "", fmt.Errorf("registry: encode model: %w", err)
	}
	imputerState, err := preprocess.EncodeImputer(bundle.Imputer)
	if err != nil {
		return "", fmt.Errorf("registry: encode imputer: %w", err)
	}
	scalerState, err := json.Marshal(bundle.Scaler)
	if err != nil {
		return "", fmt.Errorf("registry: encode scaler: %w", err)
	}

	meta := bundle.Metadata
	meta.TrainingDate = ts
	meta.ModelFile = "water_quality_model_" + ts + ".json"
	meta.ScalerFile = "scaler_" + ts + ".json"
	meta.ImputerFile = "imputer_" + ts + ".json"
	metaState, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", err
	}

	metaFile := metadataPrefix + ts + ".json"
	files := map[string][]byte{
		meta.ModelFile:   modelState,
		meta.ScalerFile:  scalerState,
		meta.ImputerFile: imputerState,
		metaFile:         metaState,
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return "", err
		}
	}
	bundle.Metadata = meta
	return ts, nil
}

// SaveComparison writes the full per-model score table for one run.
func SaveComparison(dir, ts string, scores interface{}) error {
	data, err := json.MarshalIndent(scores, "", "  ")
	if err != nil {
		return err
	}
	name := filepath.Join(dir, "all_models_comparison_"+ts+".json")
	return os.WriteFile(name, data, 0o644)
}

// Load reads the bundle saved under the given timestamp.
func Load(dir, ts string) (*Bundle, error) {
	metaData, err := os.ReadFile(filepath.Join(dir, metadataPrefix+ts+".json"))
	if err != nil {
		return nil, err
	}
	var meta Metadata
	if err := json.Unmarshal(metaData, &meta); err != nil {
		return nil, fmt.Errorf("registry: parse metadata: %w", err)
	}

	modelData, err := os.ReadFile(filepath.Join(dir, meta.ModelFile))
	if err != nil {
		return nil, err
	}
	model, err := ml.Decode(modelData)
	if err != nil {
		return nil, fmt.Errorf("registry: decode model: %w", err)
	}

	imputerData, err := os.ReadFile(filepath.Join(dir, meta.ImputerFile))
	if err != nil {
		return nil, err
	}
	imputer, err := preprocess.DecodeImputer(imputerData)
	if err != nil {
		return nil, fmt.Errorf("registry: decode imputer: %w", err)
	}

	scalerData, err := os.ReadFile(filepath.Join(dir, meta.ScalerFile))
	if err != nil {
		return nil, err
	}
	var scaler preprocess.StandardScaler
	if err := json.Unmarshal(scalerData, &scaler); err != nil {
		return nil, fmt.Errorf("registry: decode scaler: %w", err)
	}

	return &Bundle{Model: model, Imputer: imputer, Scaler: &scaler, Metadata: meta}, nil
}

// List returns the timestamps of every saved bundle, oldest first.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var stamps []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, metadataPrefix) && strings.HasSuffix(name, ".json") {
			stamps = append(stamps, strings.TrimSuffix(strings.TrimPrefix(name, metadataPrefix), ".json"))
		}
	}
	sort.Strings(stamps)
	return stamps, nil
}

// ListMetadata loads the metadata document of every saved bundle,
// oldest first.
func ListMetadata(dir string) ([]Metadata, error) {
	stamps, err := List(dir)
	if err != nil {
		return nil, err
	}
	metas := make([]Metadata, 0, len(stamps))
	for _, ts := range stamps {
		data, err := os.ReadFile(filepath.Join(dir, metadataPrefix+ts+".json"))
		if err != nil {
			return nil, err
		}
		var meta Metadata
		if err := json.Unmarshal(data, &meta); err != nil {
			return nil, fmt.Errorf("registry: parse metadata %s: %w", ts, err)
		}
		metas = append(metas, meta)
	}
	return metas, nil
}

// LoadLatest loads the most recently saved bundle.
func LoadLatest(dir string) (*Bundle, error) {
	stamps, err := List(dir)
	if err != nil {
		return nil, err
	}
	if len(stamps) == 0 {
		return nil, os.ErrNotExist
	}
	return Load(dir, stamps[len(stamps)-1])
}
