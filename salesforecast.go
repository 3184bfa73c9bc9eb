// Package salesforecast runs the retail sales forecasting pipeline: it loads the sales tables,
// projects each target store and product family onto a gap filled daily series, splits it at
// a calendar cutoff, fits every configured model to the training days and scores the
// forecasts over the held out days.
package salesforecast

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/aouyang1/go-salesforecast/aggregate"
	"github.com/aouyang1/go-salesforecast/dataset"
	"github.com/aouyang1/go-salesforecast/forecast"
)

const (
	DefaultStore       = 1
	DefaultFamily      = "GROCERY I"
	DefaultHorizon     = 15
	DefaultPeriod      = 7
	DefaultMaxLag      = 28
	DefaultParallelism = 1
	DefaultDataDir     = "data"
	DefaultOutputDir   = "out"
)

// DefaultCutoff is the first day held out for evaluation
var DefaultCutoff = time.Date(2017, 8, 1, 0, 0, 0, 0, time.UTC)

var (
	ErrNoTargets      = errors.New("no target series")
	ErrNoModels       = errors.New("no models configured")
	ErrInvalidHorizon = errors.New("horizon must be positive")
	ErrInvalidPeriod  = errors.New("seasonal period must be positive")
	ErrUnsetCutoff    = errors.New("unset cutoff")
	ErrNoFamily       = errors.New("target has no product family")
	ErrDuplicateModel = errors.New("duplicate model name")
)

// Target names a store and product family series
type Target struct {
	Store  int    `json:"store" mapstructure:"store"`
	Family string `json:"family" mapstructure:"family"`
}

func (t Target) String() string {
	return dataset.SeriesKey{Store: t.Store, Family: t.Family}.String()
}

// Closure is a one off day on which a store is known to be closed
type Closure struct {
	Date   time.Time `json:"date" mapstructure:"date"`
	Reason string    `json:"reason" mapstructure:"reason"`
}

// Options configures a pipeline run
type Options struct {
	// DataDir holds the default file names. Any path set in Files takes precedence.
	DataDir   string        `json:"data_dir" mapstructure:"data_dir"`
	Files     dataset.Files `json:"files" mapstructure:"files"`
	OutputDir string        `json:"output_dir" mapstructure:"output_dir"`

	Targets []Target       `json:"targets" mapstructure:"targets"`
	Models  []ModelOptions `json:"models" mapstructure:"models"`

	// Cutoff is the first evaluation day. Training uses only days strictly before it.
	Cutoff  time.Time `json:"cutoff" mapstructure:"cutoff"`
	Horizon int       `json:"horizon" mapstructure:"horizon"`
	Period  int       `json:"period" mapstructure:"period"`
	Level   float64   `json:"level" mapstructure:"level"`
	MaxLag  int       `json:"max_lag" mapstructure:"max_lag"`

	Parallelism int  `json:"parallelism" mapstructure:"parallelism"`
	StrictFits  bool `json:"strict_fits" mapstructure:"strict_fits"`
	CacheSize   int  `json:"cache_size" mapstructure:"cache_size"`
	Charts      bool `json:"charts" mapstructure:"charts"`
	Metrics     bool `json:"metrics" mapstructure:"metrics"`

	Closures []Closure `json:"closures" mapstructure:"closures"`
}

func NewDefaultOptions() *Options {
	return &Options{
		DataDir:     DefaultDataDir,
		OutputDir:   DefaultOutputDir,
		Targets:     []Target{{Store: DefaultStore, Family: DefaultFamily}},
		Models:      DefaultModels(DefaultPeriod),
		Cutoff:      DefaultCutoff,
		Horizon:     DefaultHorizon,
		Period:      DefaultPeriod,
		Level:       forecast.DefaultLevel,
		MaxLag:      DefaultMaxLag,
		Parallelism: DefaultParallelism,
		CacheSize:   aggregate.DefaultCacheSize,
		Charts:      true,
		Metrics:     true,
	}
}

// Validate fills unset values with their defaults and checks the rest
func (o *Options) Validate() (*Options, error) {
	if o == nil {
		o = NewDefaultOptions()
	}
	if len(o.Targets) == 0 {
		return nil, ErrNoTargets
	}
	for _, t := range o.Targets {
		if strings.TrimSpace(t.Family) == "" {
			return nil, fmt.Errorf("store %d, %w", t.Store, ErrNoFamily)
		}
	}
	if len(o.Models) == 0 {
		return nil, ErrNoModels
	}
	if o.Cutoff.IsZero() {
		return nil, ErrUnsetCutoff
	}
	if o.Horizon <= 0 {
		return nil, fmt.Errorf("got %d, %w", o.Horizon, ErrInvalidHorizon)
	}
	if o.Period <= 0 {
		return nil, fmt.Errorf("got %d, %w", o.Period, ErrInvalidPeriod)
	}
	if o.Level == 0 {
		o.Level = forecast.DefaultLevel
	}
	if _, err := forecast.NormalQuantile(o.Level); err != nil {
		return nil, err
	}
	// results are keyed by model name
	names := make(map[string]int, len(o.Models))
	for i, m := range o.Models {
		f, err := m.Fitter(o.Period, o.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid model %d, %w", i, err)
		}
		if prev, exists := names[f.Name()]; exists {
			return nil, fmt.Errorf("models %d and %d are both %q, %w", prev, i, f.Name(), ErrDuplicateModel)
		}
		names[f.Name()] = i
	}
	if o.MaxLag <= 0 {
		o.MaxLag = 4 * o.Period
	}
	if o.Parallelism <= 0 {
		o.Parallelism = DefaultParallelism
	}
	if o.CacheSize <= 0 {
		o.CacheSize = aggregate.DefaultCacheSize
	}
	dirFiles := dataset.DirFiles(o.DataDir)
	if o.Files.Sales == "" {
		o.Files.Sales = dirFiles.Sales
	}
	if o.Files.Stores == "" {
		o.Files.Stores = dirFiles.Stores
	}
	if o.Files.Transactions == "" {
		o.Files.Transactions = dirFiles.Transactions
	}
	if o.Files.Promotions == "" {
		o.Files.Promotions = dirFiles.Promotions
	}
	return o, nil
}

// TablePrint writes a summary of the run configuration
func (o *Options) TablePrint(w io.Writer, prefix, indent string) error {
	fmt.Fprintf(w, "%sCutoff: %s\n", prefix, o.Cutoff.Format(time.DateOnly))
	fmt.Fprintf(w, "%sHorizon: %d\n", prefix, o.Horizon)
	fmt.Fprintf(w, "%sPeriod: %d\n", prefix, o.Period)
	fmt.Fprintf(w, "%sLevel: %.2f\n", prefix, o.Level)

	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "%sTargets:\n", prefix)
	fmt.Fprintf(tbl, "%s%sStore\tFamily\t\n", prefix, indent)
	for _, t := range o.Targets {
		fmt.Fprintf(tbl, "%s%s%d\t%s\t\n", prefix, indent, t.Store, t.Family)
	}
	if err := tbl.Flush(); err != nil {
		return err
	}

	names := make([]string, 0, len(o.Models))
	for _, m := range o.Models {
		names = append(names, string(m.Kind))
	}
	fmt.Fprintf(w, "%sModels: %s\n", prefix, strings.Join(names, ", "))
	return nil
}
