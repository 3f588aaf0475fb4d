// Package table provides the typed columnar dataset consumed by the
// fairness engine.
//
// The table is the strict boundary between ingestion and statistics: by the
// time a Table reaches the engine, every column is already typed and every
// outcome value is a clean 0/1. There is no dynamic expression evaluation
// anywhere on this path - mapping documents (see internal/mapping) produce
// tables through a closed set of declared transforms.
//
// Tables are immutable after construction. Deriving a new table (outcome
// coercion, mapping application) always allocates fresh columns.
package table

import (
	"fmt"
	"strings"
)

// Column is one typed column of a Table.
type Column interface {
	// Len returns the number of rows.
	Len() int
}

// Categorical is a string-valued column with per-row missingness.
type Categorical struct {
	values  []string
	missing []bool
}

// NewCategorical builds a categorical column. missing may be nil when every
// value is present; otherwise it must be the same length as values.
func NewCategorical(values []string, missing []bool) (*Categorical, error) {
	if missing != nil && len(missing) != len(values) {
		return nil, fmt.Errorf("categorical column: %d values but %d missing flags", len(values), len(missing))
	}
	if missing == nil {
		missing = make([]bool, len(values))
	}
	return &Categorical{
		values:  append([]string(nil), values...),
		missing: append([]bool(nil), missing...),
	}, nil
}

// Len returns the number of rows.
func (c *Categorical) Len() int { return len(c.values) }

// Value returns the value at row i and whether it is present.
func (c *Categorical) Value(i int) (string, bool) {
	if c.missing[i] {
		return "", false
	}
	return c.values[i], true
}

// Binary is an already-coerced 0/1 outcome column with no missing values.
type Binary struct {
	values []int
}

// NewBinary builds a binary column. Every value must be 0 or 1.
func NewBinary(values []int) (*Binary, error) {
	for i, v := range values {
		if v != 0 && v != 1 {
			return nil, fmt.Errorf("binary column: row %d has non-binary value %d", i, v)
		}
	}
	return &Binary{values: append([]int(nil), values...)}, nil
}

// Len returns the number of rows.
func (b *Binary) Len() int { return len(b.values) }

// Value returns the 0/1 value at row i.
func (b *Binary) Value(i int) int { return b.values[i] }

// Table is an immutable, column-ordered dataset.
type Table struct {
	names []string
	cols  map[string]Column
	rows  int
}

// New builds a table from named columns in the given order. All columns
// must have the same length and names must be unique and non-empty.
func New(names []string, cols map[string]Column) (*Table, error) {
	if len(names) != len(cols) {
		return nil, fmt.Errorf("table: %d names but %d columns", len(names), len(cols))
	}

	rows := -1
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if name == "" {
			return nil, fmt.Errorf("table: empty column name")
		}
		if seen[name] {
			return nil, fmt.Errorf("table: duplicate column %q", name)
		}
		seen[name] = true

		col, ok := cols[name]
		if !ok {
			return nil, fmt.Errorf("table: column %q named but not provided", name)
		}
		if rows == -1 {
			rows = col.Len()
		} else if col.Len() != rows {
			return nil, fmt.Errorf("table: column %q has %d rows, want %d", name, col.Len(), rows)
		}
	}
	if rows == -1 {
		rows = 0
	}

	copied := make(map[string]Column, len(cols))
	for k, v := range cols {
		copied[k] = v
	}
	return &Table{names: append([]string(nil), names...), cols: copied, rows: rows}, nil
}

// Len returns the number of rows.
func (t *Table) Len() int { return t.rows }

// Columns returns the column names in declaration order.
func (t *Table) Columns() []string { return append([]string(nil), t.names...) }

// Categorical returns the named categorical column.
func (t *Table) Categorical(name string) (*Categorical, error) {
	col, ok := t.cols[name]
	if !ok {
		return nil, fmt.Errorf("table: no column %q (have %s)", name, strings.Join(t.names, ", "))
	}
	c, ok := col.(*Categorical)
	if !ok {
		return nil, fmt.Errorf("table: column %q is not categorical", name)
	}
	return c, nil
}

// CategoricalColumn returns copies of the named column's values and
// missingness mask. This is the accessor the fairness engine's dataset
// boundary consumes; copying keeps the table immutable from its point of
// view.
func (t *Table) CategoricalColumn(name string) ([]string, []bool, error) {
	c, err := t.Categorical(name)
	if err != nil {
		return nil, nil, err
	}
	return append([]string(nil), c.values...), append([]bool(nil), c.missing...), nil
}

// OutcomeColumn returns a copy of the named binary column's 0/1 values.
func (t *Table) OutcomeColumn(name string) ([]int, error) {
	b, err := t.Binary(name)
	if err != nil {
		return nil, err
	}
	return append([]int(nil), b.values...), nil
}

// Binary returns the named binary column.
func (t *Table) Binary(name string) (*Binary, error) {
	col, ok := t.cols[name]
	if !ok {
		return nil, fmt.Errorf("table: no column %q (have %s)", name, strings.Join(t.names, ", "))
	}
	b, ok := col.(*Binary)
	if !ok {
		return nil, fmt.Errorf("table: column %q is not a coerced 0/1 outcome", name)
	}
	return b, nil
}
