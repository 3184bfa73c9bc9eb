package salesforecast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aouyang1/go-salesforecast/aggregate"
	"github.com/aouyang1/go-salesforecast/dataset"
	"github.com/aouyang1/go-salesforecast/evaluate"
	"github.com/aouyang1/go-salesforecast/event"
	"github.com/aouyang1/go-salesforecast/forecast"
	"github.com/aouyang1/go-salesforecast/metrics"
	"github.com/aouyang1/go-salesforecast/plot"
	"github.com/aouyang1/go-salesforecast/stats"
	"github.com/aouyang1/go-salesforecast/timedataset"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Output file names written under the output directory
const (
	ReportFile   = "report.json"
	ForecastFile = "forecast.html"
	ExploreFile  = "explore.html"
	MetricsFile  = "salesforecast.prom"
)

const diagnosticAlpha = 0.05

var ErrHorizonExceedsTest = errors.New("horizon exceeds the held out days")

// Pipeline fits and evaluates every configured model on every target series of one dataset
type Pipeline struct {
	opt      *Options
	ds       *dataset.Dataset
	cache    *aggregate.Cache
	fitters  []forecast.Fitter
	closures *event.ClosureCalendar
	metrics  *metrics.Metrics
}

// New validates the options and loads the dataset from the configured files
func New(opt *Options) (*Pipeline, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid options, %w", err)
	}
	ds, err := dataset.Load(opt.Files)
	if err != nil {
		return nil, fmt.Errorf("unable to load dataset, %w", err)
	}
	return NewFromDataset(opt, ds)
}

// NewFromDataset builds a pipeline over an already loaded dataset
func NewFromDataset(opt *Options, ds *dataset.Dataset) (*Pipeline, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid options, %w", err)
	}

	cache, err := aggregate.NewCache(ds, opt.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("unable to create slice cache, %w", err)
	}

	fitters := make([]forecast.Fitter, 0, len(opt.Models))
	for _, m := range opt.Models {
		f, err := m.Fitter(opt.Period, opt.Level)
		if err != nil {
			return nil, fmt.Errorf("unable to create %s fitter, %w", m.Kind, err)
		}
		fitters = append(fitters, f)
	}

	closures := event.NewClosureCalendar(nil)
	for _, c := range opt.Closures {
		closures.AddClosure(c.Date, c.Reason)
	}

	p := &Pipeline{
		opt:      opt,
		ds:       ds,
		cache:    cache,
		fitters:  fitters,
		closures: closures,
	}
	if opt.Metrics {
		p.metrics = metrics.New()
	}
	return p, nil
}

// Dataset returns the loaded dataset
func (p *Pipeline) Dataset() *dataset.Dataset {
	return p.ds
}

// Metrics returns the collectors of the run, nil when disabled
func (p *Pipeline) Metrics() *metrics.Metrics {
	return p.metrics
}

// Run fits and scores every model on every target. Fit failures are recorded in the report
// unless StrictFits is set. The report, forecast charts and metrics are written to the
// output directory when one is configured.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID:   uuid.NewString(),
		Started: time.Now(),
		Cutoff:  p.opt.Cutoff,
		Horizon: p.opt.Horizon,
	}
	slog.Info("starting run", "run_id", report.RunID, "targets", len(p.opt.Targets), "models", len(p.fitters))

	var charts []components.Charter
	for _, target := range p.opt.Targets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tr, c, err := p.runTarget(ctx, target)
		if err != nil {
			return nil, fmt.Errorf("unable to run %s, %w", target, err)
		}
		report.Targets = append(report.Targets, tr)
		charts = append(charts, c...)
	}

	report.Finished = time.Now()
	p.metrics.SetCacheStats(p.cache.Stats())
	p.metrics.Finish(report.Finished)

	if err := p.writeRun(report, charts); err != nil {
		return nil, err
	}
	slog.Info("finished run", "run_id", report.RunID, "duration", report.Finished.Sub(report.Started).String())
	return report, nil
}

type outcome struct {
	name     string
	result   *forecast.Result
	err      error
	duration time.Duration
}

func (p *Pipeline) runTarget(ctx context.Context, target Target) (*TargetReport, []components.Charter, error) {
	slice, err := p.cache.Select(target.Store, target.Family)
	if err != nil {
		return nil, nil, err
	}
	if err := slice.Validate(); err != nil {
		return nil, nil, fmt.Errorf("slice is not a daily calendar, %w", err)
	}
	td, err := slice.Dataset()
	if err != nil {
		return nil, nil, err
	}

	train, test, err := td.Split(p.opt.Cutoff)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to split at %s, %w", p.opt.Cutoff.Format(time.DateOnly), err)
	}
	if test.Len() < p.opt.Horizon {
		return nil, nil, fmt.Errorf("horizon %d with %d held out days, %w", p.opt.Horizon, test.Len(), ErrHorizonExceedsTest)
	}
	test = test.Head(p.opt.Horizon)

	series := target.String()
	filled := slice.Filled.GetCardinality()
	p.metrics.SetFilledDays(series, filled)

	tr := &TargetReport{
		Series:     series,
		Store:      target.Store,
		Family:     target.Family,
		Cluster:    slice.Cluster,
		Days:       slice.Len(),
		FilledDays: int(filled),
		TrainDays:  train.Len(),
		TestDays:   test.Len(),
		Scores:     evaluate.NewTable(),
		FitErrors:  make(map[string]string),
	}

	diag, dec := diagnose(train.Y, p.opt.Period, p.opt.MaxLag)
	tr.Diagnostics = diag

	outcomes, err := p.fitAll(ctx, train)
	if err != nil {
		return nil, nil, err
	}

	results := make(map[string]*forecast.Result, len(outcomes))
	for _, o := range outcomes {
		p.metrics.ObserveFit(o.name, o.duration, o.err)
		if o.err != nil {
			if p.opt.StrictFits {
				return nil, nil, o.err
			}
			slog.Warn("unable to fit model", "series", series, "model", o.name, "error", o.err.Error())
			tr.Scores.Add(o.name, nil, o.err)
			tr.FitErrors[o.name] = o.err.Error()
			continue
		}

		scores, err := evaluate.NewScores(o.result, test, train, p.opt.Period)
		if err != nil {
			slog.Warn("unable to score model", "series", series, "model", o.name, "error", err.Error())
			tr.Scores.Add(o.name, nil, err)
			tr.FitErrors[o.name] = err.Error()
			continue
		}
		tr.Scores.Add(o.name, scores, nil)
		tr.Forecasts = append(tr.Forecasts, o.result)
		results[o.name] = o.result
		p.metrics.SetRMSE(series, o.name, scores.RMSE)
	}

	var bestModel string
	if best, ok := tr.Scores.Best(); ok {
		tr.Best = best.Model
		bestModel = results[best.Model].Model
	}

	if !p.opt.Charts {
		return tr, nil, nil
	}
	charts := []components.Charter{
		plot.ForecastComparison(comparisonWindow(train, test, 4*p.opt.Horizon), tr.Forecasts, bestModel),
	}
	if dec.stl != nil {
		charts = append(charts, plot.DecompositionLine(series+" STL", train.T, train.Y, dec.stl))
	}
	if dec.acf != nil {
		charts = append(charts, plot.ACFBar(series+" ACF", dec.acf))
	}
	if dec.pacf != nil {
		charts = append(charts, plot.ACFBar(series+" PACF", dec.pacf))
	}
	return tr, charts, nil
}

// fitAll fits every model concurrently up to the configured parallelism. Outcomes keep the
// configuration order.
func (p *Pipeline) fitAll(ctx context.Context, train *timedataset.TimeDataset) ([]outcome, error) {
	outcomes := make([]outcome, len(p.fitters))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opt.Parallelism)
	for i, f := range p.fitters {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = fitOne(f, train, p.opt.Horizon)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func fitOne(f forecast.Fitter, train *timedataset.TimeDataset, horizon int) outcome {
	start := time.Now()
	o := outcome{name: f.Name()}

	model, err := f.Fit(train)
	if err == nil {
		o.result, err = model.Forecast(horizon)
	}
	o.err = forecast.NewFitError(f.Name(), err)
	o.duration = time.Since(start)

	slog.Debug("fit model", "model", o.name, "duration", o.duration.String(), "failed", o.err != nil)
	return o
}

// decomposition holds the chart inputs of the training series diagnostics
type decomposition struct {
	stl       *stats.STLResult
	acf, pacf *stats.ACFResult
}

func diagnose(y []float64, period, maxLag int) (Diagnostics, decomposition) {
	var d Diagnostics
	var res decomposition

	kpss, err := stats.KPSS(y, stats.KPSSLevel, 0)
	if err != nil {
		slog.Warn("unable to run kpss test", "error", err.Error())
	} else {
		d.KPSS = kpss
		d.Stationary = kpss.Stationary(diagnosticAlpha)
	}
	d.Differences = stats.NDiffs(y, diagnosticAlpha, 2)

	res.acf = stats.ACFWithConfidence(y, maxLag)
	if res.acf != nil {
		d.DominantLag = stats.DominantLag(res.acf.Values, 1, maxLag)
		d.SignificantLags = stats.SignificantLags(res.acf.Values, res.acf.ConfBounds)
	}
	res.pacf = stats.PACFWithConfidence(y, maxLag)
	if res.pacf != nil {
		d.PartialLags = stats.SignificantLags(res.pacf.Values, res.pacf.ConfBounds)
	}

	if period < 2 {
		return d, res
	}
	d.SeasonalDiffs = stats.NSDiffs(y, period, 1)
	stl, err := stats.STL(y, period, nil)
	if err != nil {
		slog.Warn("unable to decompose series", "period", period, "error", err.Error())
		return d, res
	}
	res.stl = stl
	d.SeasonalStrength = stl.SeasonalStrength()
	d.TrendStrength = stl.TrendStrength()
	return d, res
}

// comparisonWindow joins the last n training days with the test days
func comparisonWindow(train, test *timedataset.TimeDataset, n int) *timedataset.TimeDataset {
	tail := train.Tail(n)
	res := &timedataset.TimeDataset{
		T: make([]time.Time, 0, tail.Len()+test.Len()),
		Y: make([]float64, 0, tail.Len()+test.Len()),
	}
	res.T = append(append(res.T, tail.T...), test.T...)
	res.Y = append(append(res.Y, tail.Y...), test.Y...)
	return res
}

func (p *Pipeline) writeRun(report *Report, charts []components.Charter) error {
	if p.opt.OutputDir == "" {
		return nil
	}
	if err := os.MkdirAll(p.opt.OutputDir, 0o755); err != nil {
		return fmt.Errorf("unable to create output directory, %w", err)
	}

	f, err := os.Create(filepath.Join(p.opt.OutputDir, ReportFile))
	if err != nil {
		return fmt.Errorf("unable to create report file, %w", err)
	}
	defer f.Close()
	if err := report.WriteJSON(f); err != nil {
		return err
	}

	if p.opt.Charts && len(charts) > 0 {
		if err := p.writeCharts(ForecastFile, charts); err != nil {
			return err
		}
	}
	if p.metrics != nil {
		if err := p.metrics.WriteTextfile(filepath.Join(p.opt.OutputDir, MetricsFile)); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) writeCharts(name string, charts []components.Charter) error {
	f, err := os.Create(filepath.Join(p.opt.OutputDir, name))
	if err != nil {
		return fmt.Errorf("unable to create chart file, %w", err)
	}
	defer f.Close()
	if err := plot.Render(f, charts...); err != nil {
		return fmt.Errorf("unable to render charts, %w", err)
	}
	return nil
}
