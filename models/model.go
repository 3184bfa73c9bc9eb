// Package models is a collection of linear regression fitting implementations used by the
// trend and seasonality fits of the forecasting models
package models

import (
	"gonum.org/v1/gonum/mat"
)

// Model is a linear regression fit against a design matrix x with m rows of observations and
// n feature columns, and a target matrix y with m rows and a single column.
type Model interface {
	Fit(x, y mat.Matrix) error
	Predict(x mat.Matrix) ([]float64, error)
	Score(x, y mat.Matrix) (float64, error)
	Intercept() float64
	Coef() []float64
}
