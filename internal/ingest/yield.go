package ingest

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/ksyounes98/agri-risk-etl/internal/analysis"
	"github.com/ksyounes98/agri-risk-etl/internal/domain"
)

// YieldHistorySpec describes the append-only yield history source.
type YieldHistorySpec struct {
	Path        string `yaml:"path"`
	KeyColumn   string `yaml:"key_column"`
	YearColumn  string `yaml:"year_column"`
	YieldColumn string `yaml:"yield_column"`

	// Backfill copies the most recent year's yield into parcels whose
	// monitoring data lacks one.
	Backfill bool `yaml:"backfill"`

	// DeriveTrend fits a per-parcel linear trend over the history and records
	// the slope as the yield_trend feature, available to scoring.
	DeriveTrend bool `yaml:"derive_trend"`
}

// Validate checks the spec is usable.
func (s YieldHistorySpec) Validate() error {
	if s.Path == "" {
		return fmt.Errorf("yield_history: missing path")
	}
	if s.KeyColumn == "" || s.YearColumn == "" || s.YieldColumn == "" {
		return fmt.Errorf("yield_history: key_column, year_column and yield_column are all required")
	}
	return nil
}

// ReadYieldHistory parses the history CSV. Row-level problems are collected,
// not fatal; a missing join key column is a *domain.SchemaError.
func ReadYieldHistory(spec YieldHistorySpec, r io.Reader) ([]domain.HistoricalYield, []error, error) {
	src := SourceSpec{Name: "yield_history", KeyColumn: spec.KeyColumn}
	idx, rows, err := readAll(src, r)
	if err != nil {
		return nil, nil, err
	}
	for _, col := range []string{spec.YearColumn, spec.YieldColumn} {
		if _, ok := idx[col]; !ok {
			return nil, nil, &domain.SchemaError{Source: "yield_history", Column: col}
		}
	}

	var (
		history []domain.HistoricalYield
		errs    []error
	)
	for n, row := range rows {
		parcelID := cell(row, idx, spec.KeyColumn)
		if parcelID == "" {
			errs = append(errs, fmt.Errorf("yield_history row %d: empty %s", n+2, spec.KeyColumn))
			continue
		}
		year, err := strconv.Atoi(cell(row, idx, spec.YearColumn))
		if err != nil {
			errs = append(errs, fmt.Errorf("yield_history row %d: year: %w", n+2, err))
			continue
		}
		y, present, err := parseCell(cell(row, idx, spec.YieldColumn))
		if err != nil || !present {
			errs = append(errs, fmt.Errorf("yield_history row %d: missing or bad yield", n+2))
			continue
		}
		history = append(history, domain.HistoricalYield{ParcelID: parcelID, Year: year, Yield: y})
	}

	sort.Slice(history, func(i, j int) bool {
		if history[i].ParcelID != history[j].ParcelID {
			return history[i].ParcelID < history[j].ParcelID
		}
		return history[i].Year < history[j].Year
	})
	return history, errs, nil
}

// BackfillYield fills the yield feature of records missing one with the most
// recent historical yield for that parcel. Records that already carry a yield
// are left alone.
func BackfillYield(records []domain.ParcelRecord, history []domain.HistoricalYield) int {
	latest := make(map[string]domain.HistoricalYield, len(history))
	for _, h := range history {
		if cur, ok := latest[h.ParcelID]; !ok || h.Year > cur.Year {
			latest[h.ParcelID] = h
		}
	}

	filled := 0
	for i := range records {
		if _, ok := records[i].Feature(domain.FeatureYield); ok {
			continue
		}
		if h, ok := latest[records[i].ParcelID]; ok {
			records[i].SetFeature(domain.FeatureYield, h.Yield)
			filled++
		}
	}
	return filled
}

// DeriveYieldTrends fits a linear trend per parcel over its yield history and
// stores the slope (t/ha per year) as the yield_trend feature. Parcels with
// fewer than two observations get no trend.
func DeriveYieldTrends(records []domain.ParcelRecord, history []domain.HistoricalYield) int {
	derived := 0
	for i := range records {
		result, err := analysis.AnalyzeYield(history, records[i].ParcelID)
		if err != nil {
			continue
		}
		records[i].SetFeature(domain.FeatureYieldTrend, result.Trend.Slope)
		derived++
	}
	return derived
}
