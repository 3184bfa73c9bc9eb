// Package feature names the regressors of the prophet style model and stores their values
package feature

import "fmt"

// Kind classifies a regressor by the model component it contributes to
type Kind string

const (
	KindGrowth      Kind = "growth"
	KindChangepoint Kind = "changepoint"
	KindSeasonality Kind = "seasonality"
	KindEvent       Kind = "event"
)

// Fourier components of a seasonality term
const (
	Sin = "sin"
	Cos = "cos"
)

const (
	GrowthIntercept = "intercept"
	GrowthLinear    = "linear"
)

// Feature is a named regressor. Its key must be unique within a Set.
type Feature struct {
	Kind Kind   `json:"kind"`
	Name string `json:"name"`

	// Component is the fourier component of a seasonality term
	Component string `json:"component,omitempty"`
	Order     int    `json:"order,omitempty"`
}

// Intercept is the constant growth term
func Intercept() Feature {
	return Feature{Kind: KindGrowth, Name: GrowthIntercept}
}

// Linear is the slope growth term
func Linear() Feature {
	return Feature{Kind: KindGrowth, Name: GrowthLinear}
}

// NewChangepoint is a ramp term that changes the trend slope from the named changepoint on
func NewChangepoint(name string) Feature {
	return Feature{Kind: KindChangepoint, Name: name}
}

// NewSeasonality is the fourier term of the given order and component of a seasonal cycle
func NewSeasonality(name, component string, order int) Feature {
	return Feature{Kind: KindSeasonality, Name: name, Component: component, Order: order}
}

// NewEvent is an indicator of the days a holiday window covers
func NewEvent(name string) Feature {
	return Feature{Kind: KindEvent, Name: name}
}

// String returns the key of the feature
func (f Feature) String() string {
	switch f.Kind {
	case KindGrowth:
		return "growth_" + f.Name
	case KindChangepoint:
		return "chpnt_" + f.Name
	case KindSeasonality:
		return fmt.Sprintf("seas_%s_%02d_%s", f.Name, f.Order, f.Component)
	case KindEvent:
		return "event_" + f.Name
	}
	return fmt.Sprintf("%s_%s", f.Kind, f.Name)
}
