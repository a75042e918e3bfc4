package pipeline

import (
	"context"
	"log/slog"

	"github.com/ksyounes98/agri-risk-etl/internal/domain"
)

// GeoEnricher fills missing parcel coordinates from locality labels via a
// Geocoder, between cleaning and scoring. A nil *GeoEnricher is a no-op, so
// the pipeline needs no feature flag checks of its own.
type GeoEnricher struct {
	geocoder domain.Geocoder
	logger   *slog.Logger
}

// NewGeoEnricher creates an enricher around a geocoder.
func NewGeoEnricher(geocoder domain.Geocoder, logger *slog.Logger) *GeoEnricher {
	return &GeoEnricher{geocoder: geocoder, logger: logger}
}

// Enrich geocodes every record lacking coordinates. Lookup failures leave the
// record unlocated; they never fail the batch.
func (e *GeoEnricher) Enrich(ctx context.Context, records []domain.ParcelRecord) []domain.ParcelRecord {
	if e == nil || e.geocoder == nil {
		return records
	}
	for i := range records {
		records[i] = domain.EnrichWithGeocoding(ctx, records[i], e.geocoder, e.logger)
	}
	return records
}
