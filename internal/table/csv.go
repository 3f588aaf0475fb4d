package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// outcomeTokens maps common binary encodings to 0/1. Matching is
// case-insensitive after trimming whitespace.
var outcomeTokens = map[string]int{
	"1": 1, "0": 0,
	"yes": 1, "no": 0,
	"true": 1, "false": 0,
	"y": 1, "n": 0,
	"t": 1, "f": 0,
}

// ReadCSV reads a header-first CSV stream into a table of categorical
// columns. Empty cells become missing values. Column order follows the
// header.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("csv: empty input, expected a header row")
	}
	if err != nil {
		return nil, fmt.Errorf("csv: reading header: %w", err)
	}

	values := make([][]string, len(header))
	missing := make([][]bool, len(header))

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: reading row: %w", err)
		}
		for i := range header {
			cell := strings.TrimSpace(rec[i])
			values[i] = append(values[i], cell)
			missing[i] = append(missing[i], cell == "")
		}
	}

	cols := make(map[string]Column, len(header))
	names := make([]string, 0, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		col, err := NewCategorical(values[i], missing[i])
		if err != nil {
			return nil, err
		}
		cols[name] = col
		names = append(names, name)
	}
	return New(names, cols)
}

// CleanReport summarizes what outcome coercion did, for transparency in
// logs and export artifacts.
type CleanReport struct {
	// Rows is the row count after cleaning.
	Rows int `json:"rows"`
	// DroppedRows counts rows removed because the outcome was missing or
	// not coercible to 0/1.
	DroppedRows int `json:"dropped_rows"`
	// CoercedTokens counts outcome cells that required token mapping
	// (yes/no, true/false, ...) rather than being literal 0/1.
	CoercedTokens int `json:"coerced_tokens"`
}

// CoerceOutcome derives a new table in which the named categorical column
// is replaced by a 0/1 binary column. Rows whose outcome cannot be coerced
// are dropped from every column, keeping the table rectangular.
//
// Accepted encodings: 0/1, yes/no, true/false, y/n, t/f (case-insensitive),
// and any numeric value, which coerces to 1 when strictly positive.
func CoerceOutcome(t *Table, outcomeCol string) (*Table, CleanReport, error) {
	src, err := t.Categorical(outcomeCol)
	if err != nil {
		return nil, CleanReport{}, err
	}

	keep := make([]int, 0, t.Len())
	outcome := make([]int, 0, t.Len())
	report := CleanReport{}

	for i := 0; i < t.Len(); i++ {
		cell, ok := src.Value(i)
		if !ok {
			report.DroppedRows++
			continue
		}
		v, coerced, ok := coerceBinaryToken(cell)
		if !ok {
			report.DroppedRows++
			continue
		}
		if coerced {
			report.CoercedTokens++
		}
		keep = append(keep, i)
		outcome = append(outcome, v)
	}
	report.Rows = len(keep)

	names := t.Columns()
	cols := make(map[string]Column, len(names))
	for _, name := range names {
		if name == outcomeCol {
			bin, err := NewBinary(outcome)
			if err != nil {
				return nil, CleanReport{}, err
			}
			cols[name] = bin
			continue
		}
		cat, err := t.Categorical(name)
		if err != nil {
			return nil, CleanReport{}, err
		}
		vals := make([]string, 0, len(keep))
		miss := make([]bool, 0, len(keep))
		for _, row := range keep {
			v, ok := cat.Value(row)
			vals = append(vals, v)
			miss = append(miss, !ok)
		}
		filtered, err := NewCategorical(vals, miss)
		if err != nil {
			return nil, CleanReport{}, err
		}
		cols[name] = filtered
	}

	out, err := New(names, cols)
	if err != nil {
		return nil, CleanReport{}, err
	}
	return out, report, nil
}

// ParseBinaryToken maps a raw cell to 0/1 using the same encodings as
// outcome coercion. Exposed for mapping transforms that normalize flags
// ahead of ingestion.
func ParseBinaryToken(cell string) (value int, ok bool) {
	v, _, ok := coerceBinaryToken(cell)
	return v, ok
}

// coerceBinaryToken maps a raw cell to 0/1. The second return reports
// whether a non-literal encoding was used.
func coerceBinaryToken(cell string) (value int, coerced, ok bool) {
	s := strings.ToLower(strings.TrimSpace(cell))
	if v, found := outcomeTokens[s]; found {
		return v, s != "0" && s != "1", true
	}
	// ParseFloat accepts "nan" and "inf"; those are not outcomes.
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false, false
	}
	if f > 0 {
		return 1, true, true
	}
	return 0, true, true
}
