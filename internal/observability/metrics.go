package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the risk
// scoring pipeline.
type Metrics struct {
	RowsIngested   prometheus.Counter
	RowErrors      prometheus.Counter
	RowsDropped    prometheus.Counter
	ValuesImputed  prometheus.Counter
	ScoresComputed prometheus.Counter
	ScoringErrors  prometheus.Counter
	ParcelsSkipped prometheus.Counter // unlocated parcels left out of the map export

	RunDuration     prometheus.Histogram
	Runs            *prometheus.CounterVec // labels: outcome={success,error}
	PipelineRunning prometheus.Gauge

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeAPIDuration prometheus.Histogram
	GeocodeEnabled     prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RowsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agri_risk",
			Name:      "rows_ingested_total",
			Help:      "Total parcel rows read across all CSV sources.",
		}),
		RowErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agri_risk",
			Name:      "row_errors_total",
			Help:      "Total row-level ingestion and cleaning problems collected into audit reports.",
		}),
		RowsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agri_risk",
			Name:      "rows_dropped_total",
			Help:      "Total records removed by cleaning (drop policy or outlier filter).",
		}),
		ValuesImputed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agri_risk",
			Name:      "values_imputed_total",
			Help:      "Total missing values filled by an imputation policy.",
		}),
		ScoresComputed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agri_risk",
			Name:      "scores_computed_total",
			Help:      "Total risk scores produced.",
		}),
		ScoringErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agri_risk",
			Name:      "scoring_errors_total",
			Help:      "Total parcels excluded from scoring for insufficient data.",
		}),
		ParcelsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agri_risk",
			Name:      "export_parcels_skipped_total",
			Help:      "Total scored parcels skipped at export for missing coordinates.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "agri_risk",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete ingest-clean-score-export run.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agri_risk",
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome.",
		}, []string{"outcome"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "agri_risk",
			Name:      "pipeline_running",
			Help:      "1 while a pipeline run is in progress, 0 otherwise.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agri_risk",
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agri_risk",
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "agri_risk",
			Name:      "geocode_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "agri_risk",
			Name:      "geocode_enabled",
			Help:      "1 when geocoding enrichment is enabled, 0 otherwise.",
		}),
	}

	prometheus.MustRegister(
		m.RowsIngested,
		m.RowErrors,
		m.RowsDropped,
		m.ValuesImputed,
		m.ScoresComputed,
		m.ScoringErrors,
		m.ParcelsSkipped,
		m.RunDuration,
		m.Runs,
		m.PipelineRunning,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
	)

	return m
}

// NewMetricsForTesting creates Metrics without touching the default registry,
// avoiding "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		RowsIngested:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "agri_risk", Name: "rows_ingested_total"}),
		RowErrors:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: "agri_risk", Name: "row_errors_total"}),
		RowsDropped:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "agri_risk", Name: "rows_dropped_total"}),
		ValuesImputed:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "agri_risk", Name: "values_imputed_total"}),
		ScoresComputed:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "agri_risk", Name: "scores_computed_total"}),
		ScoringErrors:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "agri_risk", Name: "scoring_errors_total"}),
		ParcelsSkipped:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "agri_risk", Name: "export_parcels_skipped_total"}),
		RunDuration:        prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "agri_risk", Name: "run_duration_seconds"}),
		Runs:               prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "agri_risk", Name: "runs_total"}, []string{"outcome"}),
		PipelineRunning:    prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "agri_risk", Name: "pipeline_running"}),
		GeocodeRequests:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "agri_risk", Name: "geocode_requests_total"}, []string{"outcome"}),
		GeocodeCache:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "agri_risk", Name: "geocode_cache_total"}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "agri_risk", Name: "geocode_api_duration_seconds"}),
		GeocodeEnabled:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "agri_risk", Name: "geocode_enabled"}),
	}
}
