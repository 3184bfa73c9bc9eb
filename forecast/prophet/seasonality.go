package prophet

import (
	"fmt"
	"io"
	"math"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/aouyang1/go-salesforecast/feature"
)

const (
	LabelSeasWeekly = "weekly"
	LabelSeasYearly = "yearly"
)

// SeasonalityOptions configures the fourier seasonal components to fit for
type SeasonalityOptions struct {
	SeasonalityConfigs []SeasonalityConfig `json:"seasonality_configs" mapstructure:"seasonality_configs"`
}

func (s SeasonalityOptions) TablePrint(w io.Writer, prefix, indent string, indentGrowth int) error {
	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	noCfg := " None"
	if len(s.SeasonalityConfigs) > 0 {
		noCfg = ""
		fmt.Fprintf(tbl, "%s%sName\tPeriod\tOrders\t\n", prefix, indentExpand(indent, indentGrowth+1))
	}
	fmt.Fprintf(w, "%s%sSeasonality:%s\n", prefix, indentExpand(indent, indentGrowth), noCfg)
	for _, seasCfg := range s.SeasonalityConfigs {
		fmt.Fprintf(tbl, "%s%s%s\t%s\t%d\t\n",
			prefix, indentExpand(indent, indentGrowth+1),
			seasCfg.Name, seasCfg.Period, seasCfg.Orders)
	}
	return tbl.Flush()
}

// NewDefaultSeasonalityOptions generates weekly and yearly seasonality. Yearly terms are only
// fit once the history covers two years.
func NewDefaultSeasonalityOptions() SeasonalityOptions {
	return SeasonalityOptions{
		SeasonalityConfigs: []SeasonalityConfig{
			NewWeeklySeasonalityConfig(3),
			NewYearlySeasonalityConfig(10),
		},
	}
}

// active returns the valid configs sorted by period, with duplicate periods removed and configs
// whose minimum span exceeds the history dropped.
func (s SeasonalityOptions) active(history time.Duration) []SeasonalityConfig {
	cfgs := make([]SeasonalityConfig, len(s.SeasonalityConfigs))
	copy(cfgs, s.SeasonalityConfigs)
	sort.Slice(cfgs, func(i, j int) bool {
		if cfgs[i].Period != cfgs[j].Period {
			return cfgs[i].Period < cfgs[j].Period
		}
		if cfgs[i].Orders != cfgs[j].Orders {
			return cfgs[i].Orders > cfgs[j].Orders
		}
		return cfgs[i].Name < cfgs[j].Name
	})

	res := make([]SeasonalityConfig, 0, len(cfgs))
	var lastValidPeriod time.Duration
	for _, seasCfg := range cfgs {
		if seasCfg.Period <= 0 || seasCfg.Period <= lastValidPeriod || seasCfg.Name == "" || seasCfg.Orders <= 0 {
			continue
		}
		lastValidPeriod = seasCfg.Period
		if history < seasCfg.MinHistory {
			continue
		}
		res = append(res, seasCfg)
	}
	return res
}

// SeasonalityConfig represents a single seasonality to model with Orders pairs of sine and
// cosine terms of the Period. MinHistory is the shortest training window it is fit on.
type SeasonalityConfig struct {
	Name       string        `json:"name" mapstructure:"name"`
	Orders     int           `json:"orders" mapstructure:"orders"`
	Period     time.Duration `json:"period" mapstructure:"period"`
	MinHistory time.Duration `json:"min_history" mapstructure:"min_history"`
}

// NewSeasonalityConfig creates a new seasonality config given a name, period and orders
func NewSeasonalityConfig(name string, period time.Duration, orders int) SeasonalityConfig {
	if orders < 0 {
		orders = 0
	}

	return SeasonalityConfig{
		Name:   name,
		Orders: orders,
		Period: period,
	}
}

// NewWeeklySeasonalityConfig creates a weekly seasonality config given a specified number of orders
func NewWeeklySeasonalityConfig(orders int) SeasonalityConfig {
	cfg := NewSeasonalityConfig(LabelSeasWeekly, 7*24*time.Hour, orders)
	cfg.MinHistory = 14 * 24 * time.Hour
	return cfg
}

// NewYearlySeasonalityConfig creates a yearly seasonality config of 365.25 days
func NewYearlySeasonalityConfig(orders int) SeasonalityConfig {
	cfg := NewSeasonalityConfig(LabelSeasYearly, time.Duration(365.25*24*float64(time.Hour)), orders)
	cfg.MinHistory = 730 * 24 * time.Hour
	return cfg
}

// generateFourierFeatures evaluates every order of the config on the unix epoch so the phase
// does not depend on the training window.
func generateFourierFeatures(t []time.Time, cfgs []SeasonalityConfig) *feature.Set {
	x := feature.NewSet()
	for _, cfg := range cfgs {
		period := cfg.Period.Seconds()
		for order := 1; order <= cfg.Orders; order++ {
			sinVals := make([]float64, len(t))
			cosVals := make([]float64, len(t))
			for i, tPnt := range t {
				rad := 2.0 * math.Pi * float64(order) * float64(tPnt.Unix()) / period
				sinVals[i] = math.Sin(rad)
				cosVals[i] = math.Cos(rad)
			}
			x.Set(feature.NewSeasonality(cfg.Name, feature.Sin, order), sinVals)
			x.Set(feature.NewSeasonality(cfg.Name, feature.Cos, order), cosVals)
		}
	}
	return x
}
