package salesforecast

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/aouyang1/go-salesforecast/evaluate"
	"github.com/aouyang1/go-salesforecast/forecast"
	"github.com/aouyang1/go-salesforecast/stats"
	"github.com/goccy/go-json"
)

// Report is the outcome of a pipeline run
type Report struct {
	RunID    string          `json:"run_id"`
	Started  time.Time       `json:"started"`
	Finished time.Time       `json:"finished"`
	Cutoff   time.Time       `json:"cutoff"`
	Horizon  int             `json:"horizon"`
	Targets  []*TargetReport `json:"targets"`
}

// TargetReport holds the diagnostics and model comparison of one series
type TargetReport struct {
	Series     string `json:"series"`
	Store      int    `json:"store"`
	Family     string `json:"family"`
	Cluster    int    `json:"cluster"`
	Days       int    `json:"days"`
	FilledDays int    `json:"filled_days"`
	TrainDays  int    `json:"train_days"`
	TestDays   int    `json:"test_days"`

	Diagnostics Diagnostics        `json:"diagnostics"`
	Scores      *evaluate.Table    `json:"scores"`
	Forecasts   []*forecast.Result `json:"forecasts"`
	FitErrors   map[string]string  `json:"fit_errors,omitempty"`
	Best        string             `json:"best,omitempty"`
}

// Diagnostics describes the training series
type Diagnostics struct {
	KPSS             *stats.KPSSResult `json:"kpss,omitempty"`
	Stationary       bool              `json:"stationary"`
	Differences      int               `json:"differences"`
	SeasonalDiffs    int               `json:"seasonal_differences"`
	DominantLag      int               `json:"dominant_lag"`
	SignificantLags  []int             `json:"significant_lags"`
	PartialLags      []int             `json:"significant_partial_lags"`
	SeasonalStrength float64           `json:"seasonal_strength"`
	TrendStrength    float64           `json:"trend_strength"`
}

// WriteJSON writes the indented report
func (r *Report) WriteJSON(w io.Writer) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("unable to encode report, %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("unable to write report, %w", err)
	}
	return nil
}

// TablePrint writes a text summary of every target
func (r *Report) TablePrint(w io.Writer, prefix, indent string) error {
	fmt.Fprintf(w, "%sRun: %s\n", prefix, r.RunID)
	fmt.Fprintf(w, "%sCutoff: %s Horizon: %d\n", prefix, r.Cutoff.Format(time.DateOnly), r.Horizon)
	for _, t := range r.Targets {
		if err := t.TablePrint(w, prefix+indent, indent); err != nil {
			return err
		}
	}
	return nil
}

func (t *TargetReport) TablePrint(w io.Writer, prefix, indent string) error {
	fmt.Fprintf(w, "%sSeries: %s (cluster %d)\n", prefix, t.Series, t.Cluster)

	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tbl, "%s%sDays\tFilled\tTrain\tTest\tDominant Lag\tStationary\t\n", prefix, indent)
	fmt.Fprintf(tbl, "%s%s%d\t%d\t%d\t%d\t%d\t%t\t\n", prefix, indent,
		t.Days, t.FilledDays, t.TrainDays, t.TestDays, t.Diagnostics.DominantLag, t.Diagnostics.Stationary)
	if err := tbl.Flush(); err != nil {
		return err
	}

	if t.Scores != nil {
		fmt.Fprintf(w, "%sAccuracy:\n", prefix)
		if err := t.Scores.TablePrint(w, prefix, indent, 1); err != nil {
			return err
		}
	}
	if len(t.FitErrors) > 0 {
		fmt.Fprintf(w, "%sFit Errors:\n", prefix)
		models := make([]string, 0, len(t.FitErrors))
		for m := range t.FitErrors {
			models = append(models, m)
		}
		sort.Strings(models)
		for _, m := range models {
			fmt.Fprintf(w, "%s%s%s: %s\n", prefix, indent, m, t.FitErrors[m])
		}
	}
	if t.Best != "" {
		fmt.Fprintf(w, "%sBest: %s\n", prefix, t.Best)
	}
	return nil
}
