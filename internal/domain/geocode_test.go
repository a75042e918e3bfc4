package domain

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubGeocoder struct {
	result GeocodingResult
	err    error
	calls  int
}

func (s *stubGeocoder) ForwardGeocode(_ context.Context, _, _ string) (GeocodingResult, error) {
	s.calls++
	return s.result, s.err
}

func TestEnrichWithGeocoding(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	t.Run("fills missing coordinates from locality", func(t *testing.T) {
		geo := &stubGeocoder{result: GeocodingResult{Lat: 46.2, Lon: 5.2, Confidence: 0.9}}
		rec := NewParcelRecord("P001")
		rec.Labels[LabelLocality] = "Bourg-en-Bresse"
		rec.Labels[LabelRegion] = "Ain"

		out := EnrichWithGeocoding(ctx, rec, geo, logger)
		assert.Equal(t, Geo{Lat: 46.2, Lon: 5.2}, out.Geo)
		assert.Equal(t, 1, geo.calls)
	})

	t.Run("nil geocoder is a no-op", func(t *testing.T) {
		rec := NewParcelRecord("P001")
		rec.Labels[LabelLocality] = "Bourg-en-Bresse"

		out := EnrichWithGeocoding(ctx, rec, nil, logger)
		assert.True(t, out.Geo.IsZero())
	})

	t.Run("existing coordinates are kept", func(t *testing.T) {
		geo := &stubGeocoder{result: GeocodingResult{Lat: 1, Lon: 1}}
		rec := NewParcelRecord("P001")
		rec.Geo = Geo{Lat: 46.2, Lon: 5.2}
		rec.Labels[LabelLocality] = "Bourg-en-Bresse"

		out := EnrichWithGeocoding(ctx, rec, geo, logger)
		assert.Equal(t, Geo{Lat: 46.2, Lon: 5.2}, out.Geo)
		assert.Zero(t, geo.calls)
	})

	t.Run("lookup failure leaves record unlocated", func(t *testing.T) {
		geo := &stubGeocoder{err: errors.New("rate limited")}
		rec := NewParcelRecord("P001")
		rec.Labels[LabelLocality] = "Bourg-en-Bresse"

		out := EnrichWithGeocoding(ctx, rec, geo, logger)
		assert.True(t, out.Geo.IsZero())
	})

	t.Run("empty result leaves record unlocated", func(t *testing.T) {
		geo := &stubGeocoder{}
		rec := NewParcelRecord("P001")
		rec.Labels[LabelLocality] = "Nowhere"

		out := EnrichWithGeocoding(ctx, rec, geo, logger)
		assert.True(t, out.Geo.IsZero())
	})

	t.Run("no locality label skips the lookup", func(t *testing.T) {
		geo := &stubGeocoder{result: GeocodingResult{Lat: 1, Lon: 1}}
		rec := NewParcelRecord("P001")

		out := EnrichWithGeocoding(ctx, rec, geo, logger)
		assert.True(t, out.Geo.IsZero())
		assert.Zero(t, geo.calls)
	})
}
