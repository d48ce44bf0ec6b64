package features

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// minStd is the standard deviation below which a column is treated as
// constant and left unscaled.
const minStd = 1e-12

// Scaler standardizes feature columns with statistics fitted on a training
// population. It is read-only after fitting and safe for concurrent use.
type Scaler struct {
	Columns []string  `json:"columns" yaml:"columns"`
	Mean    []float64 `json:"mean" yaml:"mean"`
	Std     []float64 `json:"std" yaml:"std"`
}

// FitScaler flattens an [N x T x F] batch to [N*T x F] and computes the
// population mean and standard deviation of every column.
func FitScaler(batch []*mat.Dense, columns []string) (*Scaler, error) {
	flat, err := flatten(batch, len(columns))
	if err != nil {
		return nil, err
	}

	s := &Scaler{
		Columns: append([]string(nil), columns...),
		Mean:    make([]float64, len(columns)),
		Std:     make([]float64, len(columns)),
	}
	for j := range columns {
		mean, std := stat.PopMeanStdDev(mat.Col(nil, j, flat), nil)
		if std < minStd {
			std = 1
		}
		s.Mean[j] = mean
		s.Std[j] = std
	}
	return s, nil
}

// Width returns the number of fitted columns.
func (s *Scaler) Width() int {
	return len(s.Mean)
}

// Validate checks the fitted statistics for consistency.
func (s *Scaler) Validate() error {
	if len(s.Mean) == 0 || len(s.Mean) != len(s.Std) || len(s.Columns) != len(s.Mean) {
		return fmt.Errorf("%w: scaler has %d columns, %d means and %d deviations",
			ErrColumnMismatch, len(s.Columns), len(s.Mean), len(s.Std))
	}
	for j, v := range s.Std {
		if v <= 0 {
			return fmt.Errorf("scaler column %s has non-positive deviation %g", s.Columns[j], v)
		}
	}
	return nil
}

// Transform standardizes a batch with the fitted statistics. The batch is
// flattened to [rows x F], scaled per column and reshaped back, so a batch
// of one scales exactly as its rows would inside a larger batch.
func (s *Scaler) Transform(batch []*mat.Dense) ([]*mat.Dense, error) {
	flat, err := flatten(batch, s.Width())
	if err != nil {
		return nil, err
	}

	flat.Apply(func(_, j int, v float64) float64 {
		return (v - s.Mean[j]) / s.Std[j]
	}, flat)

	out := make([]*mat.Dense, len(batch))
	offset := 0
	for i, m := range batch {
		r, c := m.Dims()
		out[i] = mat.DenseCopyOf(flat.Slice(offset, offset+r, 0, c))
		offset += r
	}
	return out, nil
}

// TransformSequence standardizes a single [T x F] sequence.
func (s *Scaler) TransformSequence(seq *mat.Dense) (*mat.Dense, error) {
	out, err := s.Transform([]*mat.Dense{seq})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func flatten(batch []*mat.Dense, width int) (*mat.Dense, error) {
	if len(batch) == 0 {
		return nil, errors.New("empty batch")
	}
	if width <= 0 {
		return nil, fmt.Errorf("%w: no columns", ErrColumnMismatch)
	}

	total := 0
	for i, m := range batch {
		r, c := m.Dims()
		if c != width {
			return nil, fmt.Errorf("%w: sequence %d has %d columns, expected %d", ErrColumnMismatch, i, c, width)
		}
		total += r
	}

	flat := mat.NewDense(total, width, nil)
	offset := 0
	for _, m := range batch {
		r, _ := m.Dims()
		flat.Slice(offset, offset+r, 0, width).(*mat.Dense).Copy(m)
		offset += r
	}
	return flat, nil
}
