package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the layout of every date column
const DateLayout = time.DateOnly

var (
	ErrMissingColumn = errors.New("missing required column")
	ErrDuplicateKey  = errors.New("duplicate primary key")
	ErrEmptyTable    = errors.New("table has no header")
	ErrNonFinite     = errors.New("value is not finite")
	ErrNegative      = errors.New("value is negative")
)

// ParseError locates a malformed field
type ParseError struct {
	File   string
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d column %q value %q, %v", e.File, e.Line, e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// table reads a header addressed csv. Columns not listed as required are ignored unless read
// explicitly.
type table struct {
	file string
	r    *csv.Reader
	cols map[string]int
	line int
}

func newTable(file string, r io.Reader, required ...string) (*table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s, %w", file, ErrEmptyTable)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read %s header, %w", file, err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		cols[h] = i
	}
	for _, col := range required {
		if _, exists := cols[col]; !exists {
			return nil, fmt.Errorf("%s has no %q column, %w", file, col, ErrMissingColumn)
		}
	}
	return &table{file: file, r: reader, cols: cols, line: 1}, nil
}

func (t *table) has(col string) bool {
	_, exists := t.cols[col]
	return exists
}

// next returns the next record or io.EOF
func (t *table) next() ([]string, error) {
	rec, err := t.r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		var csvErr *csv.ParseError
		if errors.As(err, &csvErr) {
			return nil, &ParseError{File: t.file, Line: csvErr.Line, Err: csvErr.Err}
		}
		return nil, err
	}
	t.line++
	return rec, nil
}

func (t *table) parseErr(col, value string, err error) error {
	return &ParseError{File: t.file, Line: t.line, Column: col, Value: value, Err: err}
}

func (t *table) str(rec []string, col string) string {
	idx, exists := t.cols[col]
	if !exists || idx >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[idx])
}

func (t *table) date(rec []string, col string) (time.Time, error) {
	v := t.str(rec, col)
	d, err := time.ParseInLocation(DateLayout, v, time.UTC)
	if err != nil {
		return time.Time{}, t.parseErr(col, v, err)
	}
	return d, nil
}

func (t *table) int(rec []string, col string) (int, error) {
	v := t.str(rec, col)
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, t.parseErr(col, v, err)
	}
	return i, nil
}

// count parses a non-negative number. Integral values may carry a decimal part such as 3.0.
func (t *table) count(rec []string, col string) (float64, error) {
	v := t.str(rec, col)
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, t.parseErr(col, v, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, t.parseErr(col, v, ErrNonFinite)
	}
	if f < 0 {
		return 0, t.parseErr(col, v, ErrNegative)
	}
	return f, nil
}
