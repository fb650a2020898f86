package forecast

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

// defaultL2 is the ridge penalty. Small, but enough to keep the normal
// equations positive definite when a feature is constant.
const defaultL2 = 1e-3

// Ridge is an L2 regularized linear regressor with an intercept.
type Ridge struct {
	l2        float64
	intercept float64
	coef      []float64
}

// NewRidge creates an unfitted Ridge with penalty l2.
func NewRidge(l2 float64) *Ridge {
	return &Ridge{l2: l2}
}

// Fit solves (XᵀX + λI)β = Xᵀy with x augmented by an intercept column. The
// intercept is not penalized.
func (r *Ridge) Fit(x *mat.Dense, y []float64) error {
	rows, cols := x.Dims()
	if rows == 0 || rows != len(y) {
		return errors.New("mismatched training data")
	}

	// augment with a leading column of ones for the intercept
	n := cols + 1
	design := mat.NewDense(rows, n, nil)
	for i := 0; i < rows; i++ {
		design.Set(i, 0, 1)
		for j := 0; j < cols; j++ {
			design.Set(i, j+1, x.At(i, j))
		}
	}

	var xtx mat.Dense
	xtx.Mul(design.T(), design)
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			v := xtx.At(i, j)
			if i == j && i > 0 {
				v += r.l2
			}
			sym.SetSym(i, j, v)
		}
	}

	var xty mat.VecDense
	xty.MulVec(design.T(), mat.NewVecDense(rows, y))

	var chol mat.Cholesky
	if ok := chol.Factorize(sym); !ok {
		return errors.New("normal equations are not positive definite")
	}
	var beta mat.VecDense
	if err := chol.SolveVecTo(&beta, &xty); err != nil {
		return err
	}

	r.intercept = beta.AtVec(0)
	r.coef = make([]float64, cols)
	for j := 0; j < cols; j++ {
		r.coef[j] = beta.AtVec(j + 1)
	}
	return nil
}

// Predict returns the prediction for a single feature vector.
func (r *Ridge) Predict(v []float64) float64 {
	out := r.intercept
	for j, c := range r.coef {
		out += c * v[j]
	}
	return out
}
