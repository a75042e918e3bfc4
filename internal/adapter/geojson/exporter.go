// Package geojson writes scored parcels as a GeoJSON FeatureCollection, the
// hand-off format for map-rendering collaborators (leaflet, folium, mapbox).
package geojson

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ksyounes98/agri-risk-etl/internal/domain"
	"github.com/ksyounes98/agri-risk-etl/internal/observability"
)

// Exporter serializes RiskScores to a GeoJSON file. It implements the
// pipeline's Exporter stage.
type Exporter struct {
	path    string
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewExporter creates an exporter writing to the given path.
func NewExporter(path string, logger *slog.Logger, metrics *observability.Metrics) *Exporter {
	return &Exporter{path: path, logger: logger, metrics: metrics}
}

// Export writes the full score set atomically: the collection is marshalled
// to a temp file in the target directory and renamed into place, so a map
// consumer never reads a half-written file. Unlocated parcels are skipped
// with a warning since a heat map cannot place them.
func (e *Exporter) Export(ctx context.Context, scores []domain.RiskScore) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	features := make([]feature, 0, len(scores))
	for _, s := range scores {
		if s.Geo.IsZero() {
			e.logger.Warn("parcel has no coordinates, skipping in map export", "parcel_id", s.ParcelID)
			e.metrics.ParcelsSkipped.Inc()
			continue
		}
		features = append(features, feature{
			Type:     "Feature",
			Geometry: geometry{Type: "Point", Coordinates: [2]float64{s.Geo.Lon, s.Geo.Lat}},
			Properties: properties{
				ParcelID:   s.ParcelID,
				Score:      s.Score,
				Category:   s.Category,
				Factors:    s.Factors,
				ComputedAt: s.ComputedAt,
			},
		})
	}

	data, err := json.MarshalIndent(featureCollection{Type: "FeatureCollection", Features: features}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal feature collection: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(e.path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(e.path), ".risk_scores-*.geojson")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write geojson: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), e.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("publish geojson: %w", err)
	}

	e.logger.Info("geojson export complete", "path", e.path, "features", len(features), "skipped", len(scores)-len(features))
	return nil
}

// GeoJSON wire types. Coordinates are [lon, lat] per RFC 7946.

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Type       string     `json:"type"`
	Geometry   geometry   `json:"geometry"`
	Properties properties `json:"properties"`
}

type geometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

type properties struct {
	ParcelID   string             `json:"parcel_id"`
	Score      float64            `json:"score"`
	Category   string             `json:"category"`
	Factors    map[string]float64 `json:"factors"`
	ComputedAt time.Time          `json:"computed_at"`
}
