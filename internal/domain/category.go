package domain

// Risk category labels, lowest to highest risk.
const (
	CategoryVeryLow  = "very_low"
	CategoryLow      = "low"
	CategoryModerate = "moderate"
	CategoryHigh     = "high"
)

// Categorize maps a normalized score in [0,1] onto a four-level risk label.
// The quartile bins are a user-facing simplification of the continuous score,
// carried over from the original dashboard's Très Bas / Bas / Modéré / Élevé
// classification.
func Categorize(score float64) string {
	switch {
	case score < 0.25:
		return CategoryVeryLow
	case score < 0.5:
		return CategoryLow
	case score < 0.75:
		return CategoryModerate
	default:
		return CategoryHigh
	}
}
