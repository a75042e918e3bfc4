package domain

import "fmt"

// SchemaError reports a structural defect in a source: the join key or another
// required column is absent. Schema errors are fatal to the run: a source
// without the join key cannot be merged at all.
type SchemaError struct {
	Source string // configured source name
	Column string // missing column
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("source %q: required column %q not found", e.Source, e.Column)
}

// ValidationError reports a single value outside its valid domain. Collected
// per row into the audit report; never fatal to the batch.
type ValidationError struct {
	ParcelID string
	Field    string
	Value    float64
	Min, Max float64
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("parcel %s: %s=%g outside valid range [%g, %g]",
		e.ParcelID, e.Field, e.Value, e.Min, e.Max)
}

// InsufficientDataError reports that a parcel still lacks features the scoring
// configuration requires after cleaning. The parcel is excluded from the
// output; the batch continues.
type InsufficientDataError struct {
	ParcelID string
	Missing  []string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("parcel %s: required features missing after cleaning: %v",
		e.ParcelID, e.Missing)
}
