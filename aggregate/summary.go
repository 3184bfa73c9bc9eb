package aggregate

import (
	"sort"
	"strconv"
	"time"

	"github.com/aouyang1/go-salesforecast/dataset"
	"github.com/aouyang1/go-salesforecast/timedataset"
	"gonum.org/v1/gonum/floats"
)

// Group is a named series of daily values used for distribution summaries
type Group struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// Total returns the sum of the values
func (g Group) Total() float64 {
	return floats.Sum(g.Values)
}

// DailyTotals sums the sales of every store and family per calendar day
func DailyTotals(ds *dataset.Dataset) *timedataset.TimeDataset {
	start, end := ds.DateRange()
	days := timedataset.Days(start, end)
	y := make([]float64, len(days))
	for _, rec := range ds.Sales {
		y[dayIndex(start, rec.Date)] += rec.Sales
	}
	return &timedataset.TimeDataset{T: days, Y: y}
}

// FamilyTotals returns the daily sales of each family of a store sorted by total sales,
// largest first.
func FamilyTotals(ds *dataset.Dataset, store int) []Group {
	start, _ := ds.DateRange()
	n := ds.Days()

	var groups []Group
	for _, family := range ds.Families() {
		recs := ds.SalesFor(store, family)
		if len(recs) == 0 {
			continue
		}
		vals := make([]float64, n)
		for _, rec := range recs {
			vals[dayIndex(start, rec.Date)] = rec.Sales
		}
		groups = append(groups, Group{Name: family, Values: vals})
	}
	sortByTotal(groups)
	return groups
}

// StoreTotals returns the daily sales of each store over all families sorted by total sales,
// largest first.
func StoreTotals(ds *dataset.Dataset) []Group {
	start, _ := ds.DateRange()
	n := ds.Days()

	byStore := make(map[int][]float64)
	for _, rec := range ds.Sales {
		vals, exists := byStore[rec.Store]
		if !exists {
			vals = make([]float64, n)
			byStore[rec.Store] = vals
		}
		vals[dayIndex(start, rec.Date)] += rec.Sales
	}

	groups := make([]Group, 0, len(byStore))
	for _, id := range ds.StoreIDs() {
		vals, exists := byStore[id]
		if !exists {
			continue
		}
		groups = append(groups, Group{Name: storeName(id), Values: vals})
	}
	sortByTotal(groups)
	return groups
}

// WeekdayProfile groups the sales of a slice by day of week starting on Monday
func WeekdayProfile(s *Slice) []Group {
	groups := make([]Group, 7)
	for i := range groups {
		groups[i].Name = time.Weekday((i + 1) % 7).String()
	}
	for i, t := range s.T {
		idx := (int(t.Weekday()) + 6) % 7
		groups[idx].Values = append(groups[idx].Values, s.Sales[i])
	}
	return groups
}

func sortByTotal(groups []Group) {
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Total() > groups[j].Total()
	})
}

func storeName(id int) string {
	return "store_" + strconv.Itoa(id)
}
