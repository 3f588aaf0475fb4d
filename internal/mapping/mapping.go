// Package mapping builds canonical tables from raw ingested columns.
//
// A mapping document is a small YAML DSL: each output column is declared as
// a reference to an input column, a constant, or one of a closed set of
// transforms (boolify, concat, equals, coalesce). The set is deliberately
// closed - there is no expression evaluation, so a mapping document can
// never execute anything. Documents are validated against an embedded CUE
// schema before use.
package mapping

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/equienroll/equiaudit/internal/table"
)

// SchemaVersion is the only mapping document version this build accepts.
const SchemaVersion = 1

// Document is a parsed, validated mapping specification.
type Document struct {
	// Version is the document schema version.
	Version int `yaml:"version"`

	// Columns maps each output column name to its spec.
	Columns map[string]ColumnSpec `yaml:"columns"`
}

// ColumnSpec declares how one output column is produced. Exactly one form
// must be set.
type ColumnSpec struct {
	// From copies an input column verbatim.
	From string `yaml:"from,omitempty"`

	// Const fills every row with a literal value.
	Const string `yaml:"const,omitempty"`

	// Boolify normalizes a flag column (yes/no, true/false, 0/1, ...) to
	// "1"/"0"; unrecognized cells become missing.
	Boolify string `yaml:"boolify,omitempty"`

	// Concat joins input columns row-wise with Sep (default single space).
	// A missing part makes the whole row missing.
	Concat []string `yaml:"concat,omitempty"`
	Sep    string   `yaml:"sep,omitempty"`

	// Equals produces "1" where the column equals the value, else "0".
	Equals *EqualsSpec `yaml:"equals,omitempty"`

	// Coalesce takes the first present value across the listed columns.
	Coalesce []string `yaml:"coalesce,omitempty"`
}

// EqualsSpec is the operand pair of an equals transform.
type EqualsSpec struct {
	Column string `yaml:"column"`
	Value  string `yaml:"value"`
}

// kind returns the name of the single form set on the spec, or an error
// when zero or multiple forms are set.
func (s ColumnSpec) kind() (string, error) {
	var kinds []string
	if s.From != "" {
		kinds = append(kinds, "from")
	}
	if s.Const != "" {
		kinds = append(kinds, "const")
	}
	if s.Boolify != "" {
		kinds = append(kinds, "boolify")
	}
	if len(s.Concat) > 0 {
		kinds = append(kinds, "concat")
	}
	if s.Equals != nil {
		kinds = append(kinds, "equals")
	}
	if len(s.Coalesce) > 0 {
		kinds = append(kinds, "coalesce")
	}

	switch len(kinds) {
	case 1:
		return kinds[0], nil
	case 0:
		return "", fmt.Errorf("column spec declares no form")
	default:
		return "", fmt.Errorf("column spec declares multiple forms: %s", strings.Join(kinds, ", "))
	}
}

// Parse decodes and validates a mapping document. Validation runs the CUE
// schema first (shape), then the Go invariants (exactly-one-form,
// supported version).
func Parse(data []byte) (*Document, error) {
	if err := validateSchema(data); err != nil {
		return nil, err
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("mapping: decoding document: %w", err)
	}

	if doc.Version != SchemaVersion {
		return nil, fmt.Errorf("mapping: unsupported version %d (want %d)", doc.Version, SchemaVersion)
	}
	if len(doc.Columns) == 0 {
		return nil, fmt.Errorf("mapping: document declares no output columns")
	}
	for name, spec := range doc.Columns {
		if _, err := spec.kind(); err != nil {
			return nil, fmt.Errorf("mapping: column %q: %w", name, err)
		}
	}
	return &doc, nil
}

// Load reads and parses a mapping document from disk.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("mapping: reading %s: %w", path, err)
	}
	return Parse(data)
}

// Apply materializes the document's output columns from the input table.
// The result contains only the declared outputs, in sorted name order, with
// the same row count as the input.
func (d *Document) Apply(in *table.Table) (*table.Table, error) {
	names := make([]string, 0, len(d.Columns))
	for name := range d.Columns {
		names = append(names, name)
	}
	sort.Strings(names)

	cols := make(map[string]table.Column, len(names))
	for _, name := range names {
		col, err := d.Columns[name].materialize(in)
		if err != nil {
			return nil, fmt.Errorf("mapping: column %q: %w", name, err)
		}
		cols[name] = col
	}
	return table.New(names, cols)
}

// materialize produces one output column from the input table.
func (s ColumnSpec) materialize(in *table.Table) (table.Column, error) {
	rows := in.Len()

	kind, err := s.kind()
	if err != nil {
		return nil, err
	}

	switch kind {
	case "from":
		values, missing, err := in.CategoricalColumn(s.From)
		if err != nil {
			return nil, err
		}
		return table.NewCategorical(values, missing)

	case "const":
		values := make([]string, rows)
		for i := range values {
			values[i] = s.Const
		}
		return table.NewCategorical(values, nil)

	case "boolify":
		values, missing, err := in.CategoricalColumn(s.Boolify)
		if err != nil {
			return nil, err
		}
		out := make([]string, rows)
		miss := make([]bool, rows)
		for i := 0; i < rows; i++ {
			if missing[i] {
				miss[i] = true
				continue
			}
			v, ok := table.ParseBinaryToken(values[i])
			if !ok {
				miss[i] = true
				continue
			}
			out[i] = fmt.Sprintf("%d", v)
		}
		return table.NewCategorical(out, miss)

	case "concat":
		sep := s.Sep
		if sep == "" {
			sep = " "
		}
		parts := make([][]string, len(s.Concat))
		missings := make([][]bool, len(s.Concat))
		for i, src := range s.Concat {
			values, missing, err := in.CategoricalColumn(src)
			if err != nil {
				return nil, err
			}
			parts[i], missings[i] = values, missing
		}
		out := make([]string, rows)
		miss := make([]bool, rows)
		for row := 0; row < rows; row++ {
			joined := make([]string, len(parts))
			for i := range parts {
				if missings[i][row] {
					miss[row] = true
					break
				}
				joined[i] = parts[i][row]
			}
			if !miss[row] {
				out[row] = strings.Join(joined, sep)
			}
		}
		return table.NewCategorical(out, miss)

	case "equals":
		values, missing, err := in.CategoricalColumn(s.Equals.Column)
		if err != nil {
			return nil, err
		}
		out := make([]string, rows)
		miss := make([]bool, rows)
		for i := 0; i < rows; i++ {
			if missing[i] {
				miss[i] = true
				continue
			}
			if values[i] == s.Equals.Value {
				out[i] = "1"
			} else {
				out[i] = "0"
			}
		}
		return table.NewCategorical(out, miss)

	case "coalesce":
		sources := make([][]string, len(s.Coalesce))
		missings := make([][]bool, len(s.Coalesce))
		for i, src := range s.Coalesce {
			values, missing, err := in.CategoricalColumn(src)
			if err != nil {
				return nil, err
			}
			sources[i], missings[i] = values, missing
		}
		out := make([]string, rows)
		miss := make([]bool, rows)
		for row := 0; row < rows; row++ {
			miss[row] = true
			for i := range sources {
				if !missings[i][row] {
					out[row] = sources[i][row]
					miss[row] = false
					break
				}
			}
		}
		return table.NewCategorical(out, miss)

	default:
		return nil, fmt.Errorf("unsupported transform %q", kind)
	}
}
