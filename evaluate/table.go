package evaluate

import (
	"fmt"
	"io"
	"math"
	"sort"
	"text/tabwriter"

	"github.com/goccy/go-json"
)

// Entry is the evaluation of one model. Err holds the reason a model could not be fit or
// scored, in which case Scores is nil.
type Entry struct {
	Model  string  `json:"model"`
	Scores *Scores `json:"scores,omitempty"`
	Err    string  `json:"error,omitempty"`
}

// Table collects the evaluation of every model of a series
type Table struct {
	entries []Entry
}

func NewTable() *Table {
	return &Table{}
}

// Add records the scores of a model or the error that prevented scoring
func (t *Table) Add(model string, scores *Scores, err error) {
	e := Entry{Model: model, Scores: scores}
	if err != nil {
		e.Scores = nil
		e.Err = err.Error()
	}
	t.entries = append(t.entries, e)
}

// Len returns the number of models
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Entries returns the entries sorted by RMSE ascending. Failed models come last in insertion
// order.
func (t *Table) Entries() []Entry {
	res := make([]Entry, len(t.entries))
	copy(res, t.entries)
	sort.SliceStable(res, func(i, j int) bool {
		return less(res[i], res[j])
	})
	return res
}

func less(a, b Entry) bool {
	ar, aok := rmse(a)
	br, bok := rmse(b)
	if aok != bok {
		return aok
	}
	if !aok {
		return false
	}
	return ar < br
}

func rmse(e Entry) (float64, bool) {
	if e.Scores == nil || math.IsNaN(e.Scores.RMSE) {
		return 0, false
	}
	return e.Scores.RMSE, true
}

// Best returns the scored model with the lowest RMSE
func (t *Table) Best() (Entry, bool) {
	entries := t.Entries()
	if len(entries) == 0 {
		return Entry{}, false
	}
	if _, ok := rmse(entries[0]); !ok {
		return Entry{}, false
	}
	return entries[0], true
}

// Failed returns the models that could not be scored keyed by name
func (t *Table) Failed() map[string]string {
	res := make(map[string]string)
	for _, e := range t.entries {
		if e.Err != "" {
			res[e.Model] = e.Err
		}
	}
	return res
}

func (t *Table) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Entries())
}

func (t *Table) UnmarshalJSON(data []byte) error {
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	t.entries = entries
	return nil
}

// TablePrint writes the entries sorted by RMSE
func (t *Table) TablePrint(w io.Writer, prefix, indent string, indentGrowth int) error {
	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	pad := prefix + indentExpand(indent, indentGrowth)
	fmt.Fprintf(tbl, "%sModel\tRMSE\tMAE\tMAPE\tMASE\tRMSSE\tR2\t\n", pad)
	for _, e := range t.Entries() {
		if e.Scores == nil {
			fmt.Fprintf(tbl, "%s%s\t%s\t\n", pad, e.Model, e.Err)
			continue
		}
		s := e.Scores
		fmt.Fprintf(tbl, "%s%s\t%.3f\t%.3f\t%.3f\t%.3f\t%.3f\t%.3f\t\n",
			pad, e.Model, s.RMSE, s.MAE, s.MAPE, s.MASE, s.RMSSE, s.R2)
	}
	return tbl.Flush()
}

func indentExpand(indent string, growth int) string {
	res := ""
	for i := 0; i < growth; i++ {
		res += indent
	}
	return res
}
