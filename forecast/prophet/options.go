package prophet

import (
	"errors"
	"fmt"
	"io"

	"github.com/aouyang1/go-salesforecast/forecast"
	"github.com/aouyang1/go-salesforecast/models"
)

type SeasonalityMode string

const (
	SeasonalityAdditive       SeasonalityMode = "additive"
	SeasonalityMultiplicative SeasonalityMode = "multiplicative"
)

const (
	DefaultRegularization  = 1.0
	DefaultALSIterations   = 100
	DefaultALSTolerance    = 1e-6
	DefaultOutlierLower    = 0.05
	DefaultOutlierUpper    = 0.95
	DefaultOutlierTukey    = 1.5
	DefaultMinTrainingDays = 14
)

var (
	ErrUnknownSeasonalityMode = errors.New("unknown seasonality mode")
	ErrNegativeRegularization = errors.New("negative changepoint regularization")
	ErrInvalidPercentiles     = errors.New("outlier percentiles must satisfy 0 <= lower < upper <= 1")
)

// OutlierOptions configures repeated fits that drop training points outside the tukey fences
// of the residual percentiles. NumPasses of 0 disables outlier removal.
type OutlierOptions struct {
	NumPasses       int     `json:"num_passes" mapstructure:"num_passes"`
	LowerPercentile float64 `json:"lower_percentile" mapstructure:"lower_percentile"`
	UpperPercentile float64 `json:"upper_percentile" mapstructure:"upper_percentile"`
	TukeyFactor     float64 `json:"tukey_factor" mapstructure:"tukey_factor"`
}

func NewDefaultOutlierOptions() OutlierOptions {
	return OutlierOptions{
		LowerPercentile: DefaultOutlierLower,
		UpperPercentile: DefaultOutlierUpper,
		TukeyFactor:     DefaultOutlierTukey,
	}
}

// Options configures the trend, seasonality and holiday terms of the decomposable model as well
// as the solver settings.
type Options struct {
	SeasonalityMode SeasonalityMode `json:"seasonality_mode" mapstructure:"seasonality_mode"`

	ChangepointOptions ChangepointOptions `json:"changepoint_options" mapstructure:"changepoint_options"`
	SeasonalityOptions SeasonalityOptions `json:"seasonality_options" mapstructure:"seasonality_options"`
	HolidayOptions     HolidayOptions     `json:"holiday_options" mapstructure:"holiday_options"`
	OutlierOptions     OutlierOptions     `json:"outlier_options" mapstructure:"outlier_options"`

	// Lasso related options applied to the changepoint rate changes only
	Regularization float64 `json:"regularization" mapstructure:"regularization"`
	Iterations     int     `json:"iterations" mapstructure:"iterations"`
	Tolerance      float64 `json:"tolerance" mapstructure:"tolerance"`

	// alternating least squares of the multiplicative mode
	ALSIterations int     `json:"als_iterations" mapstructure:"als_iterations"`
	ALSTolerance  float64 `json:"als_tolerance" mapstructure:"als_tolerance"`

	Level float64 `json:"level" mapstructure:"level"`
}

// NewDefaultOptions returns multiplicative seasonality with automatic changepoints, weekly and
// yearly seasonality and the national holidays.
func NewDefaultOptions() *Options {
	return &Options{
		SeasonalityMode:    SeasonalityMultiplicative,
		ChangepointOptions: NewDefaultChangepointOptions(),
		SeasonalityOptions: NewDefaultSeasonalityOptions(),
		HolidayOptions:     NewDefaultHolidayOptions(),
		OutlierOptions:     NewDefaultOutlierOptions(),
		Regularization:     DefaultRegularization,
		Iterations:         models.DefaultIterations,
		Tolerance:          models.DefaultTolerance,
		ALSIterations:      DefaultALSIterations,
		ALSTolerance:       DefaultALSTolerance,
		Level:              forecast.DefaultLevel,
	}
}

func (o *Options) Validate() (*Options, error) {
	if o == nil {
		return NewDefaultOptions(), nil
	}
	switch o.SeasonalityMode {
	case SeasonalityAdditive, SeasonalityMultiplicative:
	case "":
		o.SeasonalityMode = SeasonalityMultiplicative
	default:
		return nil, fmt.Errorf("%q, %w", o.SeasonalityMode, ErrUnknownSeasonalityMode)
	}
	if o.Regularization < 0 {
		return nil, ErrNegativeRegularization
	}
	if _, err := forecast.NormalQuantile(o.Level); err != nil {
		return nil, err
	}
	if o.Iterations <= 0 {
		o.Iterations = models.DefaultIterations
	}
	if o.Tolerance <= 0 {
		o.Tolerance = models.DefaultTolerance
	}
	if o.ALSIterations <= 0 {
		o.ALSIterations = DefaultALSIterations
	}
	if o.ALSTolerance <= 0 {
		o.ALSTolerance = DefaultALSTolerance
	}
	if o.OutlierOptions.NumPasses > 0 {
		lo, hi := o.OutlierOptions.LowerPercentile, o.OutlierOptions.UpperPercentile
		if lo < 0 || hi > 1 || lo >= hi {
			return nil, fmt.Errorf("got %.2f and %.2f, %w", lo, hi, ErrInvalidPercentiles)
		}
	}
	return o, nil
}

// TablePrint writes a summary of the configured terms
func (o *Options) TablePrint(w io.Writer, prefix, indent string, indentGrowth int) error {
	fmt.Fprintf(w, "%s%sSeasonality Mode: %s\n", prefix, indentExpand(indent, indentGrowth), o.SeasonalityMode)
	fmt.Fprintf(w, "%s%sRegularization: %.3f\n", prefix, indentExpand(indent, indentGrowth), o.Regularization)
	if err := o.ChangepointOptions.TablePrint(w, prefix, indent, indentGrowth); err != nil {
		return err
	}
	if err := o.SeasonalityOptions.TablePrint(w, prefix, indent, indentGrowth); err != nil {
		return err
	}
	return o.HolidayOptions.TablePrint(w, prefix, indent, indentGrowth)
}
