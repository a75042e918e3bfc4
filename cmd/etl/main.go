package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ksyounes98/agri-risk-etl/internal/adapter/geojson"
	httpadapter "github.com/ksyounes98/agri-risk-etl/internal/adapter/http"
	kafkaadapter "github.com/ksyounes98/agri-risk-etl/internal/adapter/kafka"
	"github.com/ksyounes98/agri-risk-etl/internal/adapter/mapbox"
	"github.com/ksyounes98/agri-risk-etl/internal/clean"
	"github.com/ksyounes98/agri-risk-etl/internal/config"
	"github.com/ksyounes98/agri-risk-etl/internal/domain"
	"github.com/ksyounes98/agri-risk-etl/internal/ingest"
	"github.com/ksyounes98/agri-risk-etl/internal/observability"
	"github.com/ksyounes98/agri-risk-etl/internal/pipeline"
	"github.com/ksyounes98/agri-risk-etl/internal/score"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		observability.NewLogger("error", "json").Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	pipelineCfg, err := config.LoadPipeline(cfg.PipelineConfigPath)
	if err != nil {
		logger.Error("failed to load pipeline config", "path", cfg.PipelineConfigPath, "error", err)
		os.Exit(1)
	}

	// Geocoding enrichment is feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN.
	var enricher *pipeline.GeoEnricher
	if cfg.MapboxEnabled {
		var geocoder domain.Geocoder = mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, logger, metrics)
		geocoder = mapbox.NewCachedGeocoder(geocoder, cfg.MapboxCacheSize, metrics)
		enricher = pipeline.NewGeoEnricher(geocoder, logger)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	ingestor := ingest.NewFileIngestor(pipelineCfg.Sources, pipelineCfg.YieldHistory, logger)
	cleaner := clean.New(pipelineCfg.Cleaning, logger)
	scorer := score.New(pipelineCfg.Scoring, logger)

	exporters := pipeline.MultiExporter{geojson.NewExporter(cfg.OutputPath, logger, metrics)}
	if cfg.KafkaEnabled {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		exporters = append(exporters, writer)
		logger.Info("kafka sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaSinkTopic)
	}

	p := pipeline.New(ingestor, cleaner, scorer, exporters, enricher, logger, metrics, cfg.RunInterval)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// One-shot mode: run the pipeline once and exit with its status.
	if cfg.RunInterval == 0 {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline run failed", "error", err)
			os.Exit(1)
		}
		logger.Info("pipeline run complete", "output", cfg.OutputPath)
		return
	}

	// Interval mode: serve health, readiness, metrics, and run reports while
	// the pipeline reruns on its schedule.
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
