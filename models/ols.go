package models

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

type OLSOptions struct {
	FitIntercept bool
}

// Validate returns default options when none are provided
func (o *OLSOptions) Validate() (*OLSOptions, error) {
	if o == nil {
		return NewDefaultOLSOptions(), nil
	}
	return o, nil
}

func NewDefaultOLSOptions() *OLSOptions {
	return &OLSOptions{
		FitIntercept: true,
	}
}

// OLSRegression computes ordinary least squares using QR factorization
type OLSRegression struct {
	opt       *OLSOptions
	coef      []float64
	intercept float64
}

func NewOLSRegression(opt *OLSOptions) (*OLSRegression, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &OLSRegression{
		opt: opt,
	}, nil
}

func (o *OLSRegression) Fit(x, y mat.Matrix) error {
	if o.opt == nil {
		return ErrNoOptions
	}
	if x == nil {
		return ErrNoTrainingMatrix
	}
	if y == nil {
		return ErrNoTargetMatrix
	}
	m, _ := x.Dims()

	ym, _ := y.Dims()
	if ym != m {
		return fmt.Errorf("training data has %d rows and target has %d row, %w", m, ym, ErrTargetLenMismatch)
	}

	if o.opt.FitIntercept {
		x = withOnes(x)
	}
	_, n := x.Dims()
	if m < n {
		return fmt.Errorf("got %d observations for %d features, %w", m, n, ErrUnderdetermined)
	}

	qr := new(mat.QR)
	qr.Factorize(x)

	var c mat.Dense
	if err := qr.SolveTo(&c, false, y); err != nil {
		var cond mat.Condition
		if errors.As(err, &cond) {
			return fmt.Errorf("condition number %.3g, %w", float64(cond), ErrSingularMatrix)
		}
		return err
	}
	coef := mat.Col(nil, 0, &c)
	for _, v := range coef {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrSingularMatrix
		}
	}

	if o.opt.FitIntercept {
		o.intercept = coef[0]
		o.coef = coef[1:]
	} else {
		o.intercept = 0
		o.coef = coef
	}

	return nil
}

func (o *OLSRegression) Predict(x mat.Matrix) ([]float64, error) {
	if o.opt == nil {
		return nil, ErrNoOptions
	}
	if x == nil {
		return nil, ErrNoDesignMatrix
	}
	return predict(x, o.intercept, o.coef)
}

func (o *OLSRegression) Score(x, y mat.Matrix) (float64, error) {
	if o.opt == nil {
		return 0.0, ErrNoOptions
	}
	return score(o, x, y)
}

func (o *OLSRegression) Intercept() float64 {
	return o.intercept
}

func (o *OLSRegression) Coef() []float64 {
	c := make([]float64, len(o.coef))
	copy(c, o.coef)
	return c
}

// withOnes prepends a constant 1.0 column to x
func withOnes(x mat.Matrix) mat.Matrix {
	m, n := x.Dims()
	xOnes := mat.NewDense(m, n+1, nil)
	for i := 0; i < m; i++ {
		xOnes.Set(i, 0, 1.0)
		for j := 0; j < n; j++ {
			xOnes.Set(i, j+1, x.At(i, j))
		}
	}
	return xOnes
}

func predict(x mat.Matrix, intercept float64, coef []float64) ([]float64, error) {
	m, n := x.Dims()
	if n != len(coef) {
		return nil, fmt.Errorf("got %d features in design matrix, but expected %d, %w", n, len(coef), ErrFeatureLenMismatch)
	}
	res := make([]float64, m)
	if n == 0 {
		floats.AddConst(intercept, res)
		return res, nil
	}

	var prod mat.VecDense
	prod.MulVec(x, mat.NewVecDense(n, coef))
	for i := 0; i < m; i++ {
		res[i] = prod.AtVec(i) + intercept
	}
	return res, nil
}

func score(model Model, x, y mat.Matrix) (float64, error) {
	if x == nil {
		return 0.0, ErrNoDesignMatrix
	}
	if y == nil {
		return 0.0, ErrNoTargetMatrix
	}

	m, _ := x.Dims()
	ym, _ := y.Dims()
	if m != ym {
		return 0.0, fmt.Errorf("design matrix has %d rows and target has %d rows, %w", m, ym, ErrTargetLenMismatch)
	}

	res, err := model.Predict(x)
	if err != nil {
		return 0.0, err
	}

	ySlice := mat.Col(nil, 0, y)
	r2 := stat.RSquaredFrom(res, ySlice, nil)
	if math.IsNaN(r2) {
		return 1.0, nil
	}
	return r2, nil
}
