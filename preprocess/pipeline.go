package preprocess

import "errors"

// Pipeline replays the training-time preprocessing on new samples:
// impute first, then scale. This is exactly what a persisted bundle
// applies before prediction.
type Pipeline struct {
	Imputer Imputer
	Scaler  *StandardScaler
}

// Apply runs a single sample through the pipeline.
func (p *Pipeline) Apply(row []float64) ([]float64, error) {
	if p.Imputer == nil || p.Scaler == nil {
		return nil, errors.New("preprocess: incomplete pipeline")
	}
	imputed, err := p.Imputer.Transform([][]float64{row})
	if err != nil {
		return nil, err
	}
	return p.Scaler.TransformRow(imputed[0])
}

// ApplyAll runs a matrix through the pipeline.
func (p *Pipeline) ApplyAll(rows [][]float64) ([][]float64, error) {
	if p.Imputer == nil || p.Scaler == nil {
		return nil, errors.New("preprocess: incomplete pipeline")
	}
	imputed, err := p.Imputer.Transform(rows)
	if err != nil {
		return nil, err
	}
	return p.Scaler.Transform(imputed)
}
