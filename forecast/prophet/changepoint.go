package prophet

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/aouyang1/go-salesforecast/feature"
)

const (
	DefaultAutoNumChangepoints = 25
	DefaultChangepointRange    = 0.8
)

// Changepoint is a point in time after which the trend may change its rate
type Changepoint struct {
	T    time.Time `json:"time"`
	Name string    `json:"name"`
}

func NewChangepoint(name string, t time.Time) Changepoint {
	return Changepoint{t, name}
}

// ChangepointOptions configures the piecewise linear trend. With Auto set, AutoNumChangepoints
// changepoints are placed uniformly over the first Range fraction of the training history
// replacing any explicit changepoints. Their rate changes are shrunk by the lasso penalty.
type ChangepointOptions struct {
	Changepoints        []Changepoint `json:"changepoints" mapstructure:"changepoints"`
	Auto                bool          `json:"auto" mapstructure:"auto"`
	AutoNumChangepoints int           `json:"auto_num_changepoints" mapstructure:"auto_num_changepoints"`
	Range               float64       `json:"range" mapstructure:"range"`
}

// NewDefaultChangepointOptions generates a set of default changepoint options
func NewDefaultChangepointOptions() ChangepointOptions {
	return ChangepointOptions{
		Auto:                true,
		AutoNumChangepoints: DefaultAutoNumChangepoints,
		Range:               DefaultChangepointRange,
	}
}

func (c ChangepointOptions) TablePrint(w io.Writer, prefix, indent string, indentGrowth int) error {
	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	noCfg := " None"
	if len(c.Changepoints) > 0 {
		noCfg = ""
		fmt.Fprintf(tbl, "%s%sName\tDate\t\n", prefix, indentExpand(indent, indentGrowth+1))
	}
	fmt.Fprintf(w, "%s%sChangepoints:%s\n", prefix, indentExpand(indent, indentGrowth), noCfg)
	for _, chpt := range c.Changepoints {
		fmt.Fprintf(tbl, "%s%s%s\t%s\t\n",
			prefix, indentExpand(indent, indentGrowth+1),
			chpt.Name, chpt.T.Format(time.DateOnly))
	}
	return tbl.Flush()
}

// GenerateAutoChangepoints places the automatic changepoints on observed times of the history.
// The first observation never holds a changepoint.
func (c *ChangepointOptions) GenerateAutoChangepoints(t []time.Time) []Changepoint {
	if !c.Auto {
		return c.Changepoints
	}
	if c.AutoNumChangepoints <= 0 {
		c.AutoNumChangepoints = DefaultAutoNumChangepoints
	}
	if c.Range <= 0 || c.Range > 1 {
		c.Range = DefaultChangepointRange
	}

	histSize := int(math.Floor(float64(len(t)) * c.Range))
	n := min(c.AutoNumChangepoints, histSize-1)
	if n <= 0 {
		c.Changepoints = nil
		return nil
	}

	chpts := make([]Changepoint, 0, n)
	for i := 1; i <= n; i++ {
		idx := int(math.Round(float64(i) * float64(histSize-1) / float64(n)))
		chpts = append(chpts, NewChangepoint("auto_"+strconv.Itoa(i-1), t[idx]))
	}

	// replace existing changepoints
	c.Changepoints = chpts
	return chpts
}

// generateChangepointFeatures builds one hinge feature max(0, s(t) - s(cp)) per changepoint on
// the scaled time axis. Changepoints after the training end are skipped since they would only
// produce zeroes in the training design.
func generateChangepointFeatures(chpts []Changepoint, t []time.Time, sc scaler) *feature.Set {
	feat := feature.NewSet()
	for i, chpt := range chpts {
		if chpt.T.After(sc.end) {
			continue
		}
		name := strconv.Itoa(i)
		if chpt.Name != "" {
			name = chpt.Name
		}

		s0 := sc.scale(chpt.T)
		hinge := make([]float64, len(t))
		for j, tPnt := range t {
			if v := sc.scale(tPnt) - s0; v > 0 {
				hinge[j] = v
			}
		}
		feat.Set(feature.NewChangepoint(name), hinge)
	}
	return feat
}

// scaler maps time onto [0, 1] over the training window
type scaler struct {
	start time.Time
	end   time.Time
}

func newScaler(t []time.Time) scaler {
	return scaler{start: t[0], end: t[len(t)-1]}
}

func (s scaler) scale(t time.Time) float64 {
	span := s.end.Sub(s.start).Seconds()
	if span <= 0 {
		return 0
	}
	return t.Sub(s.start).Seconds() / span
}

func indentExpand(indent string, growth int) string {
	indentByte := []byte(indent)
	out := make([]byte, 0, len(indent)*growth)
	for i := 0; i < growth; i++ {
		out = append(out, indentByte...)
	}
	return string(out)
}
