// Package domain models per-parcel agricultural observations and the risk
// scores derived from them.
//
// # Data Sources
//
// Input data arrives as CSV extracts from the farm monitoring platform, one
// file per concern:
//
//	monitoring_cultures.csv    per-parcel crop monitoring (ndvi, yield, coords)
//	meteo_detaillee.csv        weather readings (temperature, precipitation)
//	sols.csv                   soil analyses (ph, organic matter, texture)
//	historique_rendements.csv  yearly yield history per parcel
//
// Column headers follow the platform's French naming: "parcelle_id" is the
// join key, "rendement" is yield in tonnes per hectare, "matiere_organique"
// is organic matter as a percentage, "annee" is the harvest year. The ingest
// configuration maps these onto the canonical feature names defined here, so
// the rest of the pipeline never sees source column names.
//
// # Units and Ranges
//
//	yield           t/ha, non-negative
//	ph              0–14 (hard domain bound, enforced regardless of config)
//	organic_matter  fraction 0–1 after normalization (sources report percent)
//	soil_moisture   fraction 0–1
//	precipitation   mm
//	temperature     °C
//
// Missing values are permitted before cleaning and are represented by key
// absence in [ParcelRecord.Features], never by sentinel numbers. After
// cleaning, every feature the scoring configuration references is present and
// within its configured valid range.
//
// # Risk Categories
//
// The continuous score in [0,1] is quartile-binned into very_low, low,
// moderate, high by [Categorize]. The four-level scale is a user-facing
// simplification for map popups and dashboard filters.
package domain
