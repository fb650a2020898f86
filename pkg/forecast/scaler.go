package forecast

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Scaler standardizes each feature column to zero mean and unit variance.
type Scaler struct {
	means []float64
	stds  []float64
}

// FitScaler computes the mean and standard deviation of each column of x.
// Columns without variance are left unscaled.
func FitScaler(x *mat.Dense) *Scaler {
	_, cols := x.Dims()
	s := &Scaler{
		means: make([]float64, cols),
		stds:  make([]float64, cols),
	}
	for j := 0; j < cols; j++ {
		col := mat.Col(nil, j, x)
		mean, std := stat.MeanStdDev(col, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		s.means[j] = mean
		s.stds[j] = std
	}
	return s
}

// Transform returns a scaled copy of x.
func (s *Scaler) Transform(x *mat.Dense) *mat.Dense {
	rows, cols := x.Dims()
	out := mat.NewDense(rows, cols, nil)
	out.Apply(func(_, j int, v float64) float64 {
		return (v - s.means[j]) / s.stds[j]
	}, x)
	return out
}

// TransformVec returns a scaled copy of a single feature vector.
func (s *Scaler) TransformVec(v []float64) []float64 {
	out := make([]float64, len(v))
	for j, f := range v {
		out[j] = (f - s.means[j]) / s.stds[j]
	}
	return out
}
