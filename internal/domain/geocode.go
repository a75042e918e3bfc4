package domain

import (
	"context"
	"log/slog"
)

// EnrichWithGeocoding fills in coordinates for a parcel that has none, using
// its locality/region labels. If geocoder is nil, the locality is unknown, or
// the lookup fails, the record is returned unchanged (graceful degradation --
// the parcel is later skipped at export rather than failing the run).
func EnrichWithGeocoding(ctx context.Context, record ParcelRecord, geocoder Geocoder, logger *slog.Logger) ParcelRecord {
	if geocoder == nil || !record.Geo.IsZero() {
		return record
	}

	locality := record.Labels[LabelLocality]
	if locality == "" {
		return record
	}

	result, err := geocoder.ForwardGeocode(ctx, locality, record.Labels[LabelRegion])
	if err != nil {
		logger.Warn("forward geocoding failed",
			"parcel_id", record.ParcelID,
			"locality", locality,
			"region", record.Labels[LabelRegion],
			"error", err,
		)
		return record
	}
	if result.Lat == 0 && result.Lon == 0 {
		return record
	}

	record.Geo = Geo{Lat: result.Lat, Lon: result.Lon}
	return record
}
