package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/ksyounes98/agri-risk-etl/internal/domain"
)

// Report is the ingestion audit summary for one run.
type Report struct {
	RowsPerSource map[string]int `json:"rows_per_source"`
	Parcels       int            `json:"parcels"`
	YieldRecords  int            `json:"yield_records"`
	Backfilled    int            `json:"backfilled"`
	TrendsDerived int            `json:"trends_derived"`
	Errors        []string       `json:"errors,omitempty"`
}

// FileIngestor reads the configured CSV sources from disk and merges them into
// a Dataset. It implements the pipeline's Ingestor stage.
type FileIngestor struct {
	sources []SourceSpec
	yields  *YieldHistorySpec
	logger  *slog.Logger
}

// NewFileIngestor creates an ingestor over the given source specs. The yield
// history spec may be nil when no history source is configured.
func NewFileIngestor(sources []SourceSpec, yields *YieldHistorySpec, logger *slog.Logger) *FileIngestor {
	return &FileIngestor{sources: sources, yields: yields, logger: logger}
}

// Ingest reads and merges every source. Schema errors (missing join key) are
// fatal; row-level problems are collected into the report.
func (f *FileIngestor) Ingest(ctx context.Context) (domain.Dataset, Report, error) {
	merger := NewMerger()

	for _, spec := range f.sources {
		if err := ctx.Err(); err != nil {
			return domain.Dataset{}, Report{}, err
		}
		file, err := os.Open(spec.Path)
		if err != nil {
			return domain.Dataset{}, Report{}, fmt.Errorf("source %q: %w", spec.Name, err)
		}
		err = merger.MergeSource(spec, file)
		file.Close()
		if err != nil {
			return domain.Dataset{}, Report{}, err
		}
	}

	dataset := domain.Dataset{Parcels: merger.Records()}
	report := Report{
		RowsPerSource: merger.RowCounts(),
		Parcels:       len(dataset.Parcels),
	}
	for _, err := range merger.Errors() {
		report.Errors = append(report.Errors, err.Error())
	}

	if f.yields != nil {
		if err := f.ingestYields(&dataset, &report); err != nil {
			return domain.Dataset{}, Report{}, err
		}
	}

	f.logger.Info("ingest complete",
		"parcels", report.Parcels,
		"yield_records", report.YieldRecords,
		"backfilled", report.Backfilled,
		"row_errors", len(report.Errors),
	)
	return dataset, report, nil
}

func (f *FileIngestor) ingestYields(dataset *domain.Dataset, report *Report) error {
	file, err := os.Open(f.yields.Path)
	if err != nil {
		return fmt.Errorf("yield_history: %w", err)
	}
	defer file.Close()

	history, errs, err := ReadYieldHistory(*f.yields, file)
	if err != nil {
		return err
	}
	for _, e := range errs {
		report.Errors = append(report.Errors, e.Error())
	}

	dataset.YieldHistory = history
	report.YieldRecords = len(history)
	if f.yields.Backfill {
		report.Backfilled = BackfillYield(dataset.Parcels, history)
	}
	if f.yields.DeriveTrend {
		report.TrendsDerived = DeriveYieldTrends(dataset.Parcels, history)
	}
	return nil
}
