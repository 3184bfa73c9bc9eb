package salesforecast

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/aouyang1/go-salesforecast/aggregate"
	"github.com/aouyang1/go-salesforecast/plot"
	"github.com/go-echarts/go-echarts/v2/components"
)

// Explore renders the exploratory charts of the dataset and every target to w
func (p *Pipeline) Explore(ctx context.Context, w io.Writer) error {
	charts := []components.Charter{
		plot.DailyTotalsLine(aggregate.DailyTotals(p.ds)),
		plot.BoxPlot("Sales by Store", aggregate.StoreTotals(p.ds)),
	}

	stores := make(map[int]bool)
	for _, target := range p.opt.Targets {
		if err := ctx.Err(); err != nil {
			return err
		}
		slice, err := p.cache.Select(target.Store, target.Family)
		if err != nil {
			return fmt.Errorf("unable to select %s, %w", target, err)
		}
		charts = append(charts,
			plot.SalesLine(slice),
			plot.TransactionScatter(slice),
			plot.WeekdayBox(slice),
		)
		if !stores[target.Store] {
			stores[target.Store] = true
			charts = append(charts, plot.BoxPlot(
				fmt.Sprintf("Store %d Sales by Family", target.Store),
				aggregate.FamilyTotals(p.ds, target.Store),
			))
		}
	}

	slog.Info("rendering exploratory charts", "charts", len(charts))
	return plot.Render(w, charts...)
}

// ClosureCheck compares the zero filled days of a series with the closure calendar
type ClosureCheck struct {
	Series      string            `json:"series"`
	Filled      int               `json:"filled"`
	Explained   map[string]string `json:"explained"`
	Unexplained []time.Time       `json:"unexplained"`
}

// Consistent reports whether every filled day is a known closure
func (c ClosureCheck) Consistent() bool {
	return len(c.Unexplained) == 0
}

// Closures checks whether the zero filled days of every target fall on known store closures
func (p *Pipeline) Closures(ctx context.Context) ([]ClosureCheck, error) {
	checks := make([]ClosureCheck, 0, len(p.opt.Targets))
	for _, target := range p.opt.Targets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		slice, err := p.cache.Select(target.Store, target.Family)
		if err != nil {
			return nil, fmt.Errorf("unable to select %s, %w", target, err)
		}

		filled := slice.FilledDays()
		explained, unexplained := p.closures.Explain(filled)
		check := ClosureCheck{
			Series:      target.String(),
			Filled:      len(filled),
			Explained:   make(map[string]string, len(explained)),
			Unexplained: unexplained,
		}
		for day, reason := range explained {
			check.Explained[day.Format(time.DateOnly)] = reason
		}
		if !check.Consistent() {
			slog.Warn("filled days without a known closure",
				"series", check.Series,
				"unexplained", len(unexplained),
				"first", unexplained[0].Format(time.DateOnly),
			)
		}
		checks = append(checks, check)
	}
	return checks, nil
}

// ClosuresTablePrint writes one row per series followed by the unexplained days
func ClosuresTablePrint(w io.Writer, checks []ClosureCheck, prefix, indent string) error {
	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tbl, "%sSeries\tFilled\tExplained\tUnexplained\t\n", prefix)
	for _, c := range checks {
		fmt.Fprintf(tbl, "%s%s\t%d\t%d\t%d\t\n", prefix, c.Series, c.Filled, len(c.Explained), len(c.Unexplained))
	}
	if err := tbl.Flush(); err != nil {
		return err
	}

	for _, c := range checks {
		if c.Consistent() {
			continue
		}
		days := make([]string, 0, len(c.Unexplained))
		for _, d := range c.Unexplained {
			days = append(days, d.Format(time.DateOnly))
		}
		sort.Strings(days)
		fmt.Fprintf(w, "%s%s unexplained:\n", prefix, c.Series)
		for _, d := range days {
			fmt.Fprintf(w, "%s%s%s\n", prefix, indent, d)
		}
	}
	return nil
}
