package domain

import "time"

// Canonical feature names. Source CSV columns are mapped onto these by the
// ingest configuration; cleaning policies and scoring weights are keyed by them.
const (
	FeatureYield         = "yield"
	FeaturePH            = "ph"
	FeatureOrganicMatter = "organic_matter"
	FeatureTemperature   = "temperature"
	FeatureSoilMoisture  = "soil_moisture"
	FeaturePrecipitation = "precipitation"
	FeaturePesticide     = "pesticide"
	FeatureFertilizer    = "fertilizer"
	FeatureRootDepth     = "root_depth"
	FeatureNDVI          = "ndvi"
	FeatureYieldTrend    = "yield_trend" // derived: OLS slope over yield history, t/ha per year
)

// Canonical label names for categorical parcel attributes.
const (
	LabelCrop        = "crop"
	LabelSoilType    = "soil_type"
	LabelSoilTexture = "soil_texture"
	LabelDrainage    = "drainage"
	LabelLocality    = "locality"
	LabelRegion      = "region"
)

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat,omitempty"`
	Lon float64 `json:"lon,omitempty"`
}

// IsZero reports whether no coordinates have been set. (0,0) is open ocean
// off the Gulf of Guinea, so it doubles as the "unlocated" sentinel.
func (g Geo) IsZero() bool {
	return g.Lat == 0 && g.Lon == 0
}

// ParcelRecord is one merged parcel observation. Numeric features live in the
// Features map keyed by canonical name; a missing key means the value was
// absent from every source. Categorical attributes live in Labels.
//
// After cleaning, every feature referenced by the scoring configuration is
// guaranteed present and inside its configured valid range.
type ParcelRecord struct {
	ParcelID string             `json:"parcel_id"`
	Geo      Geo                `json:"geo,omitempty"`
	Features map[string]float64 `json:"features"`
	Labels   map[string]string  `json:"labels,omitempty"`

	// Sources lists the configured source names that contributed at least
	// one field, in merge order.
	Sources []string `json:"sources,omitempty"`
}

// NewParcelRecord creates an empty record for the given parcel.
func NewParcelRecord(parcelID string) ParcelRecord {
	return ParcelRecord{
		ParcelID: parcelID,
		Features: make(map[string]float64),
		Labels:   make(map[string]string),
	}
}

// Feature returns the named feature value and whether it is present.
func (r ParcelRecord) Feature(name string) (float64, bool) {
	v, ok := r.Features[name]
	return v, ok
}

// SetFeature records a feature value, allocating the map on first use.
func (r *ParcelRecord) SetFeature(name string, value float64) {
	if r.Features == nil {
		r.Features = make(map[string]float64)
	}
	r.Features[name] = value
}

// Clone returns a deep copy. Cleaning operates on copies so callers keep the
// pre-cleaning batch intact.
func (r ParcelRecord) Clone() ParcelRecord {
	out := r
	out.Features = make(map[string]float64, len(r.Features))
	for k, v := range r.Features {
		out.Features[k] = v
	}
	out.Labels = make(map[string]string, len(r.Labels))
	for k, v := range r.Labels {
		out.Labels[k] = v
	}
	out.Sources = append([]string(nil), r.Sources...)
	return out
}

// HistoricalYield is one append-only yield observation for a parcel.
type HistoricalYield struct {
	ParcelID string  `json:"parcel_id"`
	Year     int     `json:"year"`
	Yield    float64 `json:"yield"` // tonnes per hectare
}

// RiskScore is the terminal artifact of a scoring run: an immutable snapshot
// of one parcel's risk at ComputedAt. Never mutated after creation.
type RiskScore struct {
	ParcelID string  `json:"parcel_id"`
	Score    float64 `json:"score"` // always in [0,1]
	Category string  `json:"category"`
	Geo      Geo     `json:"geo,omitempty"`

	// Factors maps each scored feature to its weighted contribution to the
	// final score. Contributions sum to Score before clamping.
	Factors map[string]float64 `json:"factors"`

	ComputedAt time.Time `json:"computed_at"`
}

// Dataset is the output of ingestion: merged parcel records plus the raw
// yield history that produced any backfilled yield features.
type Dataset struct {
	Parcels      []ParcelRecord
	YieldHistory []HistoricalYield
}
