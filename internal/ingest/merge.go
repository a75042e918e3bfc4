package ingest

import (
	"fmt"
	"io"
	"sort"

	"github.com/ksyounes98/agri-risk-etl/internal/domain"
)

// Merger accumulates parcel records across sources, outer-join style: a parcel
// present in any source appears in the output, with fields from sources that
// don't know it left unset. The join map is built incrementally per source.
type Merger struct {
	records map[string]*domain.ParcelRecord
	errs    []error // collected per-row/per-column problems, never fatal
	rows    map[string]int
}

// NewMerger creates an empty merger.
func NewMerger() *Merger {
	return &Merger{
		records: make(map[string]*domain.ParcelRecord),
		rows:    make(map[string]int),
	}
}

// MergeSource joins one source into the accumulated record set.
// A missing join key column is a *domain.SchemaError and aborts the run;
// everything below that (missing mapped columns, unparseable cells) is
// collected into Errors and the merge continues.
func (m *Merger) MergeSource(spec SourceSpec, r io.Reader) error {
	idx, rows, err := readAll(spec, r)
	if err != nil {
		return err
	}

	// A mapped column absent from the header degrades that column for the
	// whole source, reported once.
	for col := range spec.Columns {
		if _, ok := idx[col]; !ok {
			m.errs = append(m.errs, &domain.SchemaError{Source: spec.Name, Column: col})
		}
	}

	for n, row := range rows {
		parcelID := cell(row, idx, spec.KeyColumn)
		if parcelID == "" {
			m.errs = append(m.errs, fmt.Errorf("source %q row %d: empty %s", spec.Name, n+2, spec.KeyColumn))
			continue
		}

		rec := m.record(parcelID)
		m.rows[spec.Name]++
		if !contains(rec.Sources, spec.Name) {
			rec.Sources = append(rec.Sources, spec.Name)
		}

		m.mergeNumeric(spec, idx, row, n, rec)
		m.mergeLabels(spec, idx, row, rec)
		m.mergeGeo(spec, idx, row, n, rec)
	}
	return nil
}

func (m *Merger) mergeNumeric(spec SourceSpec, idx map[string]int, row []string, n int, rec *domain.ParcelRecord) {
	for col, cspec := range spec.Columns {
		raw := cell(row, idx, col)
		v, present, err := parseCell(raw)
		if err != nil {
			m.errs = append(m.errs, fmt.Errorf("source %q row %d: column %q: %w", spec.Name, n+2, col, err))
			continue
		}
		if present {
			rec.SetFeature(cspec.Field, cspec.Normalize(v))
		}
	}
}

func (m *Merger) mergeLabels(spec SourceSpec, idx map[string]int, row []string, rec *domain.ParcelRecord) {
	for col, label := range spec.Labels {
		if v := cell(row, idx, col); v != "" {
			rec.Labels[label] = v
		}
	}
}

func (m *Merger) mergeGeo(spec SourceSpec, idx map[string]int, row []string, n int, rec *domain.ParcelRecord) {
	if spec.LatColumn == "" || spec.LonColumn == "" {
		return
	}
	lat, latOK, latErr := parseCell(cell(row, idx, spec.LatColumn))
	lon, lonOK, lonErr := parseCell(cell(row, idx, spec.LonColumn))
	if latErr != nil || lonErr != nil {
		m.errs = append(m.errs, fmt.Errorf("source %q row %d: bad coordinates", spec.Name, n+2))
		return
	}
	if latOK && lonOK {
		rec.Geo = domain.Geo{Lat: lat, Lon: lon}
	}
}

// record returns the accumulated record for a parcel, creating it on first sight.
func (m *Merger) record(parcelID string) *domain.ParcelRecord {
	if rec, ok := m.records[parcelID]; ok {
		return rec
	}
	rec := domain.NewParcelRecord(parcelID)
	m.records[parcelID] = &rec
	return &rec
}

// Records returns the merged set sorted by parcel ID, so downstream stages see
// a deterministic order regardless of source file ordering.
func (m *Merger) Records() []domain.ParcelRecord {
	out := make([]domain.ParcelRecord, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ParcelID < out[j].ParcelID })
	return out
}

// Errors returns the collected non-fatal problems, in merge order.
func (m *Merger) Errors() []error { return m.errs }

// RowCounts returns rows successfully attributed to a parcel, per source.
func (m *Merger) RowCounts() map[string]int { return m.rows }

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
