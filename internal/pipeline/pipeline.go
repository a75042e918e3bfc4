package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/ksyounes98/agri-risk-etl/internal/clean"
	"github.com/ksyounes98/agri-risk-etl/internal/domain"
	"github.com/ksyounes98/agri-risk-etl/internal/ingest"
	"github.com/ksyounes98/agri-risk-etl/internal/observability"
	"github.com/ksyounes98/agri-risk-etl/internal/score"
)

// Ingestor reads and merges the configured sources into a dataset.
type Ingestor interface {
	Ingest(ctx context.Context) (domain.Dataset, ingest.Report, error)
}

// Cleaner applies missing-value policies and outlier filtering.
type Cleaner interface {
	Clean(ctx context.Context, records []domain.ParcelRecord) ([]domain.ParcelRecord, clean.Report, error)
}

// Scorer computes one RiskScore per scorable parcel.
type Scorer interface {
	Score(ctx context.Context, records []domain.ParcelRecord) ([]domain.RiskScore, score.Report, error)
}

// Exporter hands the scored set to a downstream consumer.
type Exporter interface {
	Export(ctx context.Context, scores []domain.RiskScore) error
}

// RunReport is the audit summary of one complete pipeline run.
type RunReport struct {
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Ingest     ingest.Report `json:"ingest"`
	Cleaning   clean.Report  `json:"cleaning"`
	Scoring    score.Report  `json:"scoring"`
	Exported   int           `json:"exported"`
}

// Pipeline orchestrates the ingest-clean-score-export sequence. A run is
/// atomic: nothing is exported unless ingestion, cleaning, and scoring all
// completed for the whole batch.
type Pipeline struct {
	ingestor Ingestor
	cleaner  Cleaner
	scorer   Scorer
	exporter Exporter
	enricher *GeoEnricher // optional, nil disables geocoding

	logger  *slog.Logger
	metrics *observability.Metrics

	interval time.Duration
	ready    atomic.Bool
	last     atomic.Pointer[RunReport]
}

// New creates a Pipeline. interval of zero means run once; a positive
// interval re-runs the pipeline on that period until the context is cancelled.
func New(i Ingestor, c Cleaner, s Scorer, e Exporter, enricher *GeoEnricher,
	logger *slog.Logger, metrics *observability.Metrics, interval time.Duration) *Pipeline {
	return &Pipeline{
		ingestor: i,
		cleaner:  c,
		scorer:   s,
		exporter: e,
		enricher: enricher,
		logger:   logger,
		metrics:  metrics,
		interval: interval,
	}
}

// CheckReadiness returns nil once at least one run has completed.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed a run yet")
	}
	return nil
}

// LastReport returns the audit report of the most recent successful run, or
// nil before the first one.
func (p *Pipeline) LastReport() *RunReport {
	return p.last.Load()
}

// Run executes the pipeline. In one-shot mode (interval zero) it returns the
// first run's error. In interval mode it keeps rerunning until the context is
// cancelled, retrying failed runs with exponential backoff.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline starting", "interval", p.interval)

	if p.interval == 0 {
		return p.runOnce(ctx)
	}

	// Exponential backoff for failed runs: start at 200ms, double each
	// retry, cap at 5s, reset on success.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		err := p.runOnce(ctx)
		switch {
		case ctx.Err() != nil:
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		case err != nil:
			p.logger.Error("pipeline run failed", "error", err)
			if !sleepWithContext(ctx, backoff) {
				return nil
			}
			backoff = nextBackoff(backoff, maxBackoff)
		default:
			backoff = 200 * time.Millisecond
			if !sleepWithContext(ctx, p.interval) {
				return nil
			}
		}
	}
}

// runOnce performs one full ingest-clean-score-export cycle.
func (p *Pipeline) runOnce(ctx context.Context) error {
	start := domain.Now()
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	report := RunReport{StartedAt: start}

	dataset, ingestReport, err := p.ingestor.Ingest(ctx)
	if err != nil {
		p.metrics.Runs.WithLabelValues("error").Inc()
		return err
	}
	report.Ingest = ingestReport
	p.metrics.RowsIngested.Add(float64(sumRows(ingestReport.RowsPerSource)))
	p.metrics.RowErrors.Add(float64(len(ingestReport.Errors)))

	cleaned, cleanReport, err := p.cleaner.Clean(ctx, dataset.Parcels)
	if err != nil {
		p.metrics.Runs.WithLabelValues("error").Inc()
		return err
	}
	report.Cleaning = cleanReport
	p.metrics.RowsDropped.Add(float64(cleanReport.RowsDropped))
	p.metrics.RowErrors.Add(float64(len(cleanReport.Errors)))
	for _, n := range cleanReport.Imputed {
		p.metrics.ValuesImputed.Add(float64(n))
	}

	cleaned = p.enricher.Enrich(ctx, cleaned)

	scores, scoreReport, err := p.scorer.Score(ctx, cleaned)
	if err != nil {
		p.metrics.Runs.WithLabelValues("error").Inc()
		return err
	}
	report.Scoring = scoreReport
	p.metrics.ScoresComputed.Add(float64(scoreReport.Scored))
	p.metrics.ScoringErrors.Add(float64(scoreReport.Skipped))

	if err := p.exporter.Export(ctx, scores); err != nil {
		p.metrics.Runs.WithLabelValues("error").Inc()
		return err
	}
	report.Exported = len(scores)
	report.FinishedAt = domain.Now()

	p.metrics.Runs.WithLabelValues("success").Inc()
	p.metrics.RunDuration.Observe(report.FinishedAt.Sub(start).Seconds())
	p.last.Store(&report)
	p.ready.Store(true)

	p.logger.Info("run complete",
		"parcels", ingestReport.Parcels,
		"cleaned", cleanReport.RowsOut,
		"scored", scoreReport.Scored,
		"skipped", scoreReport.Skipped,
		"duration", report.FinishedAt.Sub(start),
	)
	return nil
}

func sumRows(rows map[string]int) int {
	total := 0
	for _, n := range rows {
		total += n
	}
	return total
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
