package dataset

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Default file names of a dataset directory
const (
	SalesFile        = "train.csv"
	StoresFile       = "stores.csv"
	TransactionsFile = "transactions.csv"
	PromotionsFile   = "test.csv"
)

var ErrNoSales = errors.New("no sales records")

// SalesRecord is the quantity of one product family sold by one store on one day
type SalesRecord struct {
	Date        time.Time `json:"date"`
	Store       int       `json:"store_nbr"`
	Family      string    `json:"family"`
	Sales       float64   `json:"sales"`
	OnPromotion float64   `json:"onpromotion"`
}

// Promoted reports whether any item of the family was on promotion
func (s SalesRecord) Promoted() bool {
	return s.OnPromotion > 0
}

type TransactionRecord struct {
	Date         time.Time `json:"date"`
	Store        int       `json:"store_nbr"`
	Transactions float64   `json:"transactions"`
}

type Store struct {
	Store   int    `json:"store_nbr"`
	City    string `json:"city"`
	State   string `json:"state"`
	Type    string `json:"type"`
	Cluster int    `json:"cluster"`
}

type PromotionRecord struct {
	Date        time.Time `json:"date"`
	Store       int       `json:"store_nbr"`
	Family      string    `json:"family"`
	OnPromotion float64   `json:"onpromotion"`
}

// SeriesKey identifies a single store and product family projection
type SeriesKey struct {
	Store  int
	Family string
}

func (k SeriesKey) String() string {
	return fmt.Sprintf("%d/%s", k.Store, k.Family)
}

type salesKey struct {
	date   time.Time
	store  int
	family string
}

type storeDay struct {
	date  time.Time
	store int
}

// LoadSales reads sales records. Rows come back in file order.
func LoadSales(r io.Reader) ([]SalesRecord, error) {
	tbl, err := newTable("sales", r, "date", "store_nbr", "family", "sales")
	if err != nil {
		return nil, err
	}
	hasPromo := tbl.has("onpromotion")

	var records []SalesRecord
	seen := make(map[salesKey]struct{})
	for {
		rec, err := tbl.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		var s SalesRecord
		if s.Date, err = tbl.date(rec, "date"); err != nil {
			return nil, err
		}
		if s.Store, err = tbl.int(rec, "store_nbr"); err != nil {
			return nil, err
		}
		s.Family = tbl.str(rec, "family")
		if s.Sales, err = tbl.count(rec, "sales"); err != nil {
			return nil, err
		}
		if hasPromo {
			if s.OnPromotion, err = tbl.count(rec, "onpromotion"); err != nil {
				return nil, err
			}
		}

		key := salesKey{s.Date, s.Store, s.Family}
		if _, exists := seen[key]; exists {
			return nil, tbl.parseErr("date", s.Date.Format(DateLayout),
				fmt.Errorf("store %d family %q, %w", s.Store, s.Family, ErrDuplicateKey))
		}
		seen[key] = struct{}{}
		records = append(records, s)
	}
	return records, nil
}

// LoadStores reads the store metadata table
func LoadStores(r io.Reader) ([]Store, error) {
	tbl, err := newTable("stores", r, "store_nbr", "cluster")
	if err != nil {
		return nil, err
	}

	var stores []Store
	seen := make(map[int]struct{})
	for {
		rec, err := tbl.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		s := Store{
			City:  tbl.str(rec, "city"),
			State: tbl.str(rec, "state"),
			Type:  tbl.str(rec, "type"),
		}
		if s.Store, err = tbl.int(rec, "store_nbr"); err != nil {
			return nil, err
		}
		if s.Cluster, err = tbl.int(rec, "cluster"); err != nil {
			return nil, err
		}
		if _, exists := seen[s.Store]; exists {
			return nil, tbl.parseErr("store_nbr", tbl.str(rec, "store_nbr"), ErrDuplicateKey)
		}
		seen[s.Store] = struct{}{}
		stores = append(stores, s)
	}
	return stores, nil
}

// LoadTransactions reads the daily transaction counts per store
func LoadTransactions(r io.Reader) ([]TransactionRecord, error) {
	tbl, err := newTable("transactions", r, "date", "store_nbr", "transactions")
	if err != nil {
		return nil, err
	}

	var records []TransactionRecord
	seen := make(map[storeDay]struct{})
	for {
		rec, err := tbl.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		var tr TransactionRecord
		if tr.Date, err = tbl.date(rec, "date"); err != nil {
			return nil, err
		}
		if tr.Store, err = tbl.int(rec, "store_nbr"); err != nil {
			return nil, err
		}
		if tr.Transactions, err = tbl.count(rec, "transactions"); err != nil {
			return nil, err
		}

		key := storeDay{tr.Date, tr.Store}
		if _, exists := seen[key]; exists {
			return nil, tbl.parseErr("date", tr.Date.Format(DateLayout),
				fmt.Errorf("store %d, %w", tr.Store, ErrDuplicateKey))
		}
		seen[key] = struct{}{}
		records = append(records, tr)
	}
	return records, nil
}

// LoadPromotions reads promotion flags, typically of the days following the sales history
func LoadPromotions(r io.Reader) ([]PromotionRecord, error) {
	tbl, err := newTable("promotions", r, "date", "store_nbr", "family", "onpromotion")
	if err != nil {
		return nil, err
	}

	var records []PromotionRecord
	seen := make(map[salesKey]struct{})
	for {
		rec, err := tbl.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		var p PromotionRecord
		if p.Date, err = tbl.date(rec, "date"); err != nil {
			return nil, err
		}
		if p.Store, err = tbl.int(rec, "store_nbr"); err != nil {
			return nil, err
		}
		p.Family = tbl.str(rec, "family")
		if p.OnPromotion, err = tbl.count(rec, "onpromotion"); err != nil {
			return nil, err
		}

		key := salesKey{p.Date, p.Store, p.Family}
		if _, exists := seen[key]; exists {
			return nil, tbl.parseErr("date", p.Date.Format(DateLayout),
				fmt.Errorf("store %d family %q, %w", p.Store, p.Family, ErrDuplicateKey))
		}
		seen[key] = struct{}{}
		records = append(records, p)
	}
	return records, nil
}

// Files names the input tables. An empty Promotions path skips promotions.
type Files struct {
	Sales        string `json:"sales" mapstructure:"sales"`
	Stores       string `json:"stores" mapstructure:"stores"`
	Transactions string `json:"transactions" mapstructure:"transactions"`
	Promotions   string `json:"promotions" mapstructure:"promotions"`
}

// DirFiles returns the default file names under dir
func DirFiles(dir string) Files {
	return Files{
		Sales:        filepath.Join(dir, SalesFile),
		Stores:       filepath.Join(dir, StoresFile),
		Transactions: filepath.Join(dir, TransactionsFile),
		Promotions:   filepath.Join(dir, PromotionsFile),
	}
}

// Load reads every table and indexes them into a Dataset. A missing promotions file is not an
// error.
func Load(files Files) (*Dataset, error) {
	sales, err := loadFile(files.Sales, LoadSales)
	if err != nil {
		return nil, err
	}
	stores, err := loadFile(files.Stores, LoadStores)
	if err != nil {
		return nil, err
	}
	transactions, err := loadFile(files.Transactions, LoadTransactions)
	if err != nil {
		return nil, err
	}

	var promotions []PromotionRecord
	if files.Promotions != "" {
		promotions, err = loadFile(files.Promotions, LoadPromotions)
		if errors.Is(err, fs.ErrNotExist) {
			slog.Info("no promotions file, skipping", "path", files.Promotions)
			err = nil
		}
		if err != nil {
			return nil, err
		}
	}

	slog.Debug("loaded dataset",
		"sales", len(sales),
		"stores", len(stores),
		"transactions", len(transactions),
		"promotions", len(promotions),
	)
	return New(sales, stores, transactions, promotions)
}

func loadFile[T any](path string, load func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open table, %w", err)
	}
	defer f.Close()

	records, err := load(f)
	if err != nil {
		var parseErr *ParseError
		if errors.As(err, &parseErr) {
			parseErr.File = path
			return nil, parseErr
		}
		return nil, fmt.Errorf("unable to load %s, %w", path, err)
	}
	return records, nil
}

// Dataset holds the loaded tables indexed for projection. It is read only after New.
type Dataset struct {
	Sales        []SalesRecord
	Stores       []Store
	Transactions []TransactionRecord
	Promotions   []PromotionRecord

	start time.Time
	end   time.Time

	stores       map[int]Store
	families     []string
	series       map[SeriesKey][]SalesRecord
	transactions map[int]map[time.Time]float64
	promotions   map[SeriesKey]map[time.Time]float64
}

// New indexes the tables. Sales are sorted by date, store, then family.
func New(sales []SalesRecord, stores []Store, transactions []TransactionRecord, promotions []PromotionRecord) (*Dataset, error) {
	if len(sales) == 0 {
		return nil, ErrNoSales
	}

	sorted := make([]SalesRecord, len(sales))
	copy(sorted, sales)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Store != b.Store {
			return a.Store < b.Store
		}
		return a.Family < b.Family
	})

	ds := &Dataset{
		Sales:        sorted,
		Stores:       stores,
		Transactions: transactions,
		Promotions:   promotions,
		start:        sorted[0].Date,
		end:          sorted[len(sorted)-1].Date,
		stores:       make(map[int]Store, len(stores)),
		series:       make(map[SeriesKey][]SalesRecord),
		transactions: make(map[int]map[time.Time]float64),
		promotions:   make(map[SeriesKey]map[time.Time]float64),
	}

	for _, s := range stores {
		ds.stores[s.Store] = s
	}

	families := make(map[string]struct{})
	for _, s := range sorted {
		key := SeriesKey{s.Store, s.Family}
		ds.series[key] = append(ds.series[key], s)
		families[s.Family] = struct{}{}
	}
	for f := range families {
		ds.families = append(ds.families, f)
	}
	sort.Strings(ds.families)

	for _, tr := range transactions {
		byDay, exists := ds.transactions[tr.Store]
		if !exists {
			byDay = make(map[time.Time]float64)
			ds.transactions[tr.Store] = byDay
		}
		byDay[tr.Date] = tr.Transactions
	}

	for _, p := range promotions {
		key := SeriesKey{p.Store, p.Family}
		byDay, exists := ds.promotions[key]
		if !exists {
			byDay = make(map[time.Time]float64)
			ds.promotions[key] = byDay
		}
		byDay[p.Date] = p.OnPromotion
	}
	return ds, nil
}

// DateRange returns the first and last day of the sales history
func (d *Dataset) DateRange() (time.Time, time.Time) {
	return d.start, d.end
}

// Days returns the number of calendar days covered by the sales history
func (d *Dataset) Days() int {
	return int(d.end.Sub(d.start)/(24*time.Hour)) + 1
}

// Store returns the metadata of a store
func (d *Dataset) Store(id int) (Store, bool) {
	s, exists := d.stores[id]
	return s, exists
}

// StoreIDs returns the ids of every store with metadata or sales, ascending
func (d *Dataset) StoreIDs() []int {
	ids := make(map[int]struct{}, len(d.stores))
	for id := range d.stores {
		ids[id] = struct{}{}
	}
	for key := range d.series {
		ids[key.Store] = struct{}{}
	}
	res := make([]int, 0, len(ids))
	for id := range ids {
		res = append(res, id)
	}
	sort.Ints(res)
	return res
}

// Families returns the product families with any sales record, sorted
func (d *Dataset) Families() []string {
	res := make([]string, len(d.families))
	copy(res, d.families)
	return res
}

// HasFamily reports whether any store sells the family
func (d *Dataset) HasFamily(family string) bool {
	idx := sort.SearchStrings(d.families, family)
	return idx < len(d.families) && d.families[idx] == family
}

// SalesFor returns the recorded sales of one store and family in date order
func (d *Dataset) SalesFor(store int, family string) []SalesRecord {
	return d.series[SeriesKey{store, family}]
}

// TransactionsFor returns the transaction count of a store keyed by day
func (d *Dataset) TransactionsFor(store int) map[time.Time]float64 {
	return d.transactions[store]
}

// PromotionsFor returns the promotion counts of a series keyed by day
func (d *Dataset) PromotionsFor(store int, family string) map[time.Time]float64 {
	return d.promotions[SeriesKey{store, family}]
}
