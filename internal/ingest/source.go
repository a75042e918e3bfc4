package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ksyounes98/agri-risk-etl/internal/domain"
)

// ColumnSpec maps one source column onto a canonical numeric feature.
// The raw value is normalized as value*Scale + Offset; a zero Scale means 1
// (no scaling), so `scale: 0.01` turns percentages into 0–1 fractions.
type ColumnSpec struct {
	Field  string  `yaml:"field"`
	Scale  float64 `yaml:"scale"`
	Offset float64 `yaml:"offset"`
}

// Normalize applies the scale/offset to a raw parsed value.
func (c ColumnSpec) Normalize(v float64) float64 {
	scale := c.Scale
	if scale == 0 {
		scale = 1
	}
	return v*scale + c.Offset
}

// SourceSpec describes one tabular source: where it lives, which column joins
// it to the others, and how its columns map onto canonical fields.
type SourceSpec struct {
	Name      string                `yaml:"name"`
	Path      string                `yaml:"path"`
	KeyColumn string                `yaml:"key_column"`
	Columns   map[string]ColumnSpec `yaml:"columns"` // source column -> numeric feature
	Labels    map[string]string     `yaml:"labels"`  // source column -> categorical label
	LatColumn string                `yaml:"lat_column"`
	LonColumn string                `yaml:"lon_column"`
}

// Validate checks the spec is usable before any file is opened.
func (s SourceSpec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("source missing name")
	}
	if s.Path == "" {
		return fmt.Errorf("source %q: missing path", s.Name)
	}
	if s.KeyColumn == "" {
		return fmt.Errorf("source %q: missing key_column", s.Name)
	}
	if len(s.Columns) == 0 && len(s.Labels) == 0 {
		return fmt.Errorf("source %q: no columns or labels mapped", s.Name)
	}
	for col, spec := range s.Columns {
		if spec.Field == "" {
			return fmt.Errorf("source %q: column %q has no canonical field", s.Name, col)
		}
	}
	return nil
}

// headerIndex builds a column name -> position map from a CSV header row.
// Header names are trimmed; the platform's exports occasionally pad them.
func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	return idx
}

// cell returns the trimmed value of the named column in a row, or "" when the
// column is absent or the row is short.
func cell(row []string, idx map[string]int, column string) string {
	i, ok := idx[column]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parseCell parses a numeric cell. Empty cells mean "missing", not zero.
func parseCell(s string) (float64, bool, error) {
	if s == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

// readAll reads a whole CSV stream, returning the header index and data rows.
// Rows are allowed ragged; per-row length problems surface later as cell-level
// parse errors rather than aborting the read.
func readAll(spec SourceSpec, r io.Reader) (map[string]int, [][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("source %q: read csv: %w", spec.Name, err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("source %q: empty file", spec.Name)
	}

	idx := headerIndex(rows[0])
	if _, ok := idx[spec.KeyColumn]; !ok {
		return nil, nil, &domain.SchemaError{Source: spec.Name, Column: spec.KeyColumn}
	}
	return idx, rows[1:], nil
}
