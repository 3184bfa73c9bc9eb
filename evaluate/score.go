// Package evaluate scores forecasts against the held out observations
package evaluate

import (
	"errors"
	"fmt"
	"math"

	"github.com/aouyang1/go-salesforecast/forecast"
	"github.com/aouyang1/go-salesforecast/timedataset"
	"github.com/goccy/go-json"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrResLenMismatch = errors.New("predicted and actual have different lengths")
	ErrMisaligned     = errors.New("forecast and actual dates are misaligned")
	ErrNonFinite      = errors.New("forecast contains non-finite values")
	ErrNoActuals      = errors.New("no actual observations")
)

// Align pairs the forecast with the actual observations. Both must cover exactly the same
// dates in the same order.
func Align(res *forecast.Result, actual *timedataset.TimeDataset) ([]float64, []float64, error) {
	if actual.Len() == 0 {
		return nil, nil, ErrNoActuals
	}
	if res.Len() != actual.Len() {
		return nil, nil, fmt.Errorf("forecast has %d points and actual has %d, %w",
			res.Len(), actual.Len(), ErrMisaligned)
	}
	for i := range res.T {
		if !res.T[i].Equal(actual.T[i]) {
			return nil, nil, fmt.Errorf("first mismatch at position %d, forecast %s actual %s, %w",
				i, res.T[i].Format("2006-01-02"), actual.T[i].Format("2006-01-02"), ErrMisaligned)
		}
	}
	return res.Forecast, actual.Y, nil
}

// Scores summarizes the accuracy of a forecast. Undefined metrics are NaN, e.g. MAPE when
// every actual is zero.
type Scores struct {
	N     int     `json:"n"`
	RMSE  float64 `json:"rmse"`  // root mean squared error
	MSE   float64 `json:"mse"`   // mean squared error
	MAE   float64 `json:"mae"`   // mean absolute error
	MAPE  float64 `json:"mape"`  // mean absolute percent error over non-zero actuals
	MASE  float64 `json:"mase"`  // mean absolute scaled error
	RMSSE float64 `json:"rmsse"` // root mean squared scaled error
	R2    float64 `json:"r2"`    // coefficient of determination
}

// NewScores scores the forecast against actual. The scaled errors divide by the in-sample
// errors of the seasonal naive forecast of train with the given period, falling back to the
// naive forecast when train is shorter than two periods.
func NewScores(res *forecast.Result, actual, train *timedataset.TimeDataset, period int) (*Scores, error) {
	predicted, observed, err := Align(res, actual)
	if err != nil {
		return nil, err
	}
	for i, p := range predicted {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, fmt.Errorf("%s at %s, %w", res.Model, res.T[i].Format("2006-01-02"), ErrNonFinite)
		}
	}

	mse, err := MSE(predicted, observed)
	if err != nil {
		return nil, fmt.Errorf("unable to compute mean squared error, %w", err)
	}
	mae, err := MAE(predicted, observed)
	if err != nil {
		return nil, fmt.Errorf("unable to compute mean absolute error, %w", err)
	}
	mape, err := MAPE(predicted, observed)
	if err != nil {
		return nil, fmt.Errorf("unable to compute mean absolute percent error, %w", err)
	}

	var trainY []float64
	if train != nil {
		trainY = train.Y
	}
	absScale, sqScale := naiveScale(trainY, period)

	return &Scores{
		N:     len(observed),
		RMSE:  math.Sqrt(mse),
		MSE:   mse,
		MAE:   mae,
		MAPE:  mape,
		MASE:  ratio(mae, absScale),
		RMSSE: math.Sqrt(ratio(mse, sqScale)),
		R2:    rSquared(observed, mse),
	}, nil
}

func MSE(predicted, actual []float64) (float64, error) {
	if len(predicted) != len(actual) {
		return 0, ErrResLenMismatch
	}

	mse := 0.0
	for i := 0; i < len(actual); i++ {
		mse += math.Pow(actual[i]-predicted[i], 2.0)
	}
	mse /= float64(len(actual))
	return mse, nil
}

func MAE(predicted, actual []float64) (float64, error) {
	if len(predicted) != len(actual) {
		return 0, ErrResLenMismatch
	}

	mae := 0.0
	for i := 0; i < len(actual); i++ {
		mae += math.Abs(actual[i] - predicted[i])
	}
	mae /= float64(len(actual))
	return mae, nil
}

// MAPE averages over the non-zero actuals only. Returns NaN when every actual is zero.
func MAPE(predicted, actual []float64) (float64, error) {
	if len(predicted) != len(actual) {
		return 0, ErrResLenMismatch
	}

	mape := 0.0
	n := 0
	for i := 0; i < len(actual); i++ {
		if actual[i] == 0 {
			continue
		}
		mape += math.Abs((actual[i] - predicted[i]) / actual[i])
		n++
	}
	if n == 0 {
		return math.NaN(), nil
	}
	return mape / float64(n), nil
}

// naiveScale returns the mean absolute and mean squared in-sample errors of the seasonal
// naive forecast
func naiveScale(y []float64, period int) (float64, float64) {
	lag := period
	if lag < 1 || len(y) < 2*lag {
		lag = 1
	}
	if len(y) <= lag {
		return math.NaN(), math.NaN()
	}

	var abs, sq float64
	for i := lag; i < len(y); i++ {
		d := y[i] - y[i-lag]
		abs += math.Abs(d)
		sq += d * d
	}
	n := float64(len(y) - lag)
	return abs / n, sq / n
}

func ratio(num, denom float64) float64 {
	if math.IsNaN(denom) || denom == 0 {
		return math.NaN()
	}
	return num / denom
}

func rSquared(actual []float64, mse float64) float64 {
	_, variance := stat.PopMeanVariance(actual, nil)
	if variance == 0 {
		return math.NaN()
	}
	return 1 - mse/variance
}

type jsonScores struct {
	N     int      `json:"n"`
	RMSE  *float64 `json:"rmse"`
	MSE   *float64 `json:"mse"`
	MAE   *float64 `json:"mae"`
	MAPE  *float64 `json:"mape"`
	MASE  *float64 `json:"mase"`
	RMSSE *float64 `json:"rmsse"`
	R2    *float64 `json:"r2"`
}

// MarshalJSON encodes undefined metrics as null
func (s Scores) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonScores{
		N:     s.N,
		RMSE:  finite(s.RMSE),
		MSE:   finite(s.MSE),
		MAE:   finite(s.MAE),
		MAPE:  finite(s.MAPE),
		MASE:  finite(s.MASE),
		RMSSE: finite(s.RMSSE),
		R2:    finite(s.R2),
	})
}

// UnmarshalJSON decodes null metrics as NaN
func (s *Scores) UnmarshalJSON(data []byte) error {
	var js jsonScores
	if err := json.Unmarshal(data, &js); err != nil {
		return err
	}
	*s = Scores{
		N:     js.N,
		RMSE:  orNaN(js.RMSE),
		MSE:   orNaN(js.MSE),
		MAE:   orNaN(js.MAE),
		MAPE:  orNaN(js.MAPE),
		MASE:  orNaN(js.MASE),
		RMSSE: orNaN(js.RMSSE),
		R2:    orNaN(js.R2),
	}
	return nil
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
