// Package aggregate projects the loaded tables onto single store and product family series
// with a complete daily calendar.
package aggregate

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/RoaringBitmap/roaring"
	"github.com/aouyang1/go-salesforecast/dataset"
	"github.com/aouyang1/go-salesforecast/timedataset"
)

var (
	ErrUnknownStore  = errors.New("unknown store")
	ErrUnknownFamily = errors.New("unknown product family")
)

// Slice is a single store and family series with one row per calendar day. Days without a
// sales record are zero filled and their offsets from the first day are kept in Filled.
type Slice struct {
	Key          dataset.SeriesKey `json:"key"`
	Cluster      int               `json:"cluster"`
	T            []time.Time       `json:"time"`
	Sales        []float64         `json:"sales"`
	Transactions []float64         `json:"transactions"`
	OnPromotion  []float64         `json:"onpromotion"`
	Filled       *roaring.Bitmap   `json:"-"`

	promotions map[time.Time]float64
}

// Select projects the dataset onto one store and family over the dataset-wide date range.
// Missing sales and transactions are zero filled, never interpolated. Promotion records take
// precedence over the flags of the sales records.
func Select(ds *dataset.Dataset, store int, family string) (*Slice, error) {
	meta, known := ds.Store(store)
	if !known && len(ds.TransactionsFor(store)) == 0 && !hasStoreSales(ds, store) {
		return nil, fmt.Errorf("store %d, %w", store, ErrUnknownStore)
	}
	if !ds.HasFamily(family) {
		return nil, fmt.Errorf("family %q, %w", family, ErrUnknownFamily)
	}

	start, end := ds.DateRange()
	days := timedataset.Days(start, end)
	n := len(days)

	s := &Slice{
		Key:          dataset.SeriesKey{Store: store, Family: family},
		Cluster:      meta.Cluster,
		T:            days,
		Sales:        make([]float64, n),
		Transactions: make([]float64, n),
		OnPromotion:  make([]float64, n),
		Filled:       roaring.New(),
		promotions:   ds.PromotionsFor(store, family),
	}

	recorded := roaring.New()
	for _, rec := range ds.SalesFor(store, family) {
		idx := dayIndex(start, rec.Date)
		s.Sales[idx] = rec.Sales
		s.OnPromotion[idx] = rec.OnPromotion
		recorded.Add(uint32(idx))
	}
	s.Filled.AddRange(0, uint64(n))
	s.Filled.AndNot(recorded)

	txns := ds.TransactionsFor(store)
	for i, d := range days {
		s.Transactions[i] = txns[d]
		if p, exists := s.promotions[d]; exists {
			s.OnPromotion[i] = p
		}
	}

	slog.Debug("selected slice",
		"series", s.Key.String(),
		"days", n,
		"filled", s.Filled.GetCardinality(),
	)
	return s, nil
}

func hasStoreSales(ds *dataset.Dataset, store int) bool {
	for _, f := range ds.Families() {
		if len(ds.SalesFor(store, f)) > 0 {
			return true
		}
	}
	return false
}

func dayIndex(start, t time.Time) int {
	return int(timedataset.TruncateDay(t).Sub(start) / (24 * time.Hour))
}

// Len returns the number of days in the slice
func (s *Slice) Len() int {
	if s == nil {
		return 0
	}
	return len(s.T)
}

// Dataset returns the sales as a time dataset
func (s *Slice) Dataset() (*timedataset.TimeDataset, error) {
	return timedataset.NewUnivariateDataset(s.T, s.Sales)
}

// FilledDays returns the days that were zero filled in chronological order
func (s *Slice) FilledDays() []time.Time {
	if s.Filled == nil {
		return nil
	}
	days := make([]time.Time, 0, s.Filled.GetCardinality())
	it := s.Filled.Iterator()
	for it.HasNext() {
		days = append(days, s.T[it.Next()])
	}
	return days
}

// IsFilled reports whether day i was zero filled
func (s *Slice) IsFilled(i int) bool {
	return s.Filled != nil && i >= 0 && s.Filled.Contains(uint32(i))
}

// PromotionOn returns the promotion count of any day including days past the sales history
func (s *Slice) PromotionOn(t time.Time) float64 {
	day := timedataset.TruncateDay(t)
	if p, exists := s.promotions[day]; exists {
		return p
	}
	if len(s.T) > 0 && !day.Before(s.T[0]) {
		if idx := dayIndex(s.T[0], day); idx < len(s.T) {
			return s.OnPromotion[idx]
		}
	}
	return 0
}

// Validate checks the slice has exactly one row per calendar day
func (s *Slice) Validate() error {
	td, err := s.Dataset()
	if err != nil {
		return err
	}
	return td.Contiguous(24 * time.Hour)
}
