package preprocess

import (
	"errors"
	"fmt"
	"math"
)

// StandardScaler centers each column to zero mean and unit variance.
type StandardScaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

func (s *StandardScaler) Fit(rows [][]float64) error {
	if len(rows) == 0 {
		return errors.New("preprocess: empty training matrix")
	}
	cols := len(rows[0])
	s.Mean = make([]float64, cols)
	s.Std = make([]float64, cols)

	for j := 0; j < cols; j++ {
		sum := 0.0
		for _, row := range rows {
			if len(row) != cols {
				return errors.New("preprocess: ragged training matrix")
			}
			sum += row[j]
		}
		s.Mean[j] = sum / float64(len(rows))

		variance := 0.0
		for _, row := range rows {
			d := row[j] - s.Mean[j]
			variance += d * d
		}
		s.Std[j] = math.Sqrt(variance / float64(len(rows)))
	}
	return nil
}

func (s *StandardScaler) Transform(rows [][]float64) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		scaled, err := s.TransformRow(row)
		if err != nil {
			return nil, err
		}
		out[i] = scaled
	}
	return out, nil
}

func (s *StandardScaler) TransformRow(row []float64) ([]float64, error) {
	if len(s.Mean) == 0 {
		return nil, errors.New("preprocess: scaler not fitted")
	}
	if len(row) != len(s.Mean) {
		return nil, fmt.Errorf("preprocess: row has %d columns, expected %d", len(row), len(s.Mean))
	}
	out := make([]float64, len(row))
	for j, v := range row {
		if s.Std[j] != 0 {
			out[j] = (v - s.Mean[j]) / s.Std[j]
		}
	}
	return out, nil
}
