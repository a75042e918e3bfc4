package score

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/ksyounes98/agri-risk-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(id string, features map[string]float64) domain.ParcelRecord {
	rec := domain.NewParcelRecord(id)
	for k, v := range features {
		rec.SetFeature(k, v)
	}
	return rec
}

func phOrganicConfig() Config {
	return Config{
		Required: []string{domain.FeaturePH, domain.FeatureOrganicMatter},
		Features: map[string]FeatureSpec{
			domain.FeaturePH:            {Weight: 0.5, Transform: TransformSpec{Type: TransformLinear, Min: 0, Max: 14}},
			domain.FeatureOrganicMatter: {Weight: 0.5, Transform: TransformSpec{Type: TransformIdentity}},
		},
	}
}

func TestScorer_WeightedExample(t *testing.T) {
	// ph=6.5 normalized by /14, organic matter already a fraction (0.03),
	// equal weights: 0.5*(6.5/14) + 0.5*0.03 ≈ 0.247.
	rec := record("P001", map[string]float64{
		domain.FeaturePH:            6.5,
		domain.FeatureOrganicMatter: 0.03,
		domain.FeatureYield:         5000, // unconfigured, ignored
	})

	scores, report, err := New(phOrganicConfig(), slog.Default()).Score(context.Background(), []domain.ParcelRecord{rec})
	require.NoError(t, err)
	require.Len(t, scores, 1)

	assert.InDelta(t, 0.247, scores[0].Score, 0.001)
	assert.Equal(t, domain.CategoryVeryLow, scores[0].Category)
	assert.InDelta(t, 0.5*6.5/14, scores[0].Factors[domain.FeaturePH], 1e-9)
	assert.InDelta(t, 0.015, scores[0].Factors[domain.FeatureOrganicMatter], 1e-9)
	assert.Equal(t, 1, report.Scored)
	assert.Zero(t, report.Skipped)
}

func TestScorer_Deterministic(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)))
	defer domain.SetClock(nil)

	records := []domain.ParcelRecord{
		record("P002", map[string]float64{domain.FeaturePH: 8, domain.FeatureOrganicMatter: 0.1}),
		record("P001", map[string]float64{domain.FeaturePH: 6.5, domain.FeatureOrganicMatter: 0.03}),
	}
	scorer := New(phOrganicConfig(), slog.Default())

	first, _, err := scorer.Score(context.Background(), records)
	require.NoError(t, err)
	second, _, err := scorer.Score(context.Background(), records)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("scoring not deterministic (-first +second):\n%s", diff)
	}

	// Output ordered by parcel ID regardless of input order.
	assert.Equal(t, "P001", first[0].ParcelID)
	assert.Equal(t, "P002", first[1].ParcelID)
	assert.Equal(t, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), first[0].ComputedAt)
}

func TestScorer_BoundsAndTransforms(t *testing.T) {
	t.Run("score always within [0,1]", func(t *testing.T) {
		cfg := Config{Features: map[string]FeatureSpec{
			domain.FeatureNDVI: {Weight: 1, Transform: TransformSpec{Type: TransformIdentity}},
		}}
		recs := []domain.ParcelRecord{
			record("P001", map[string]float64{domain.FeatureNDVI: 12}),
			record("P002", map[string]float64{domain.FeatureNDVI: -3}),
		}
		scores, _, err := New(cfg, slog.Default()).Score(context.Background(), recs)
		require.NoError(t, err)
		assert.Equal(t, 1.0, scores[0].Score)
		assert.Equal(t, 0.0, scores[1].Score)
	})

	t.Run("inverse transform flips safety direction", func(t *testing.T) {
		// Higher yield is safer, so risk = 1 - normalized yield.
		tr := TransformSpec{Type: TransformInverse, Min: 0, Max: 12}
		assert.InDelta(t, 0.5, tr.Apply(6), 1e-9)
		assert.InDelta(t, 0.0, tr.Apply(12), 1e-9)
		assert.InDelta(t, 1.0, tr.Apply(0), 1e-9)
		assert.InDelta(t, 1.0, tr.Apply(-5), 1e-9, "clamped below range")
	})

	t.Run("linear transform clamps outside range", func(t *testing.T) {
		tr := TransformSpec{Type: TransformLinear, Min: 0, Max: 14}
		assert.InDelta(t, 1.0, tr.Apply(20), 1e-9)
		assert.InDelta(t, 0.0, tr.Apply(-1), 1e-9)
	})
}

func TestScorer_MissingRequiredFeatureSkipsParcel(t *testing.T) {
	records := []domain.ParcelRecord{
		record("P001", map[string]float64{domain.FeaturePH: 6.5, domain.FeatureOrganicMatter: 0.03}),
		record("P002", map[string]float64{domain.FeaturePH: 7.0}), // organic matter missing
	}

	scores, report, err := New(phOrganicConfig(), slog.Default()).Score(context.Background(), records)
	require.NoError(t, err, "per-parcel failure must not fail the batch")
	require.Len(t, scores, 1)
	assert.Equal(t, "P001", scores[0].ParcelID)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "organic_matter")
}

func TestScorer_OptionalFeatureRenormalizes(t *testing.T) {
	cfg := Config{
		Required: []string{domain.FeaturePH},
		Features: map[string]FeatureSpec{
			domain.FeaturePH:   {Weight: 0.5, Transform: TransformSpec{Type: TransformLinear, Min: 0, Max: 14}},
			domain.FeatureNDVI: {Weight: 0.5, Transform: TransformSpec{Type: TransformIdentity}},
		},
	}
	// ndvi absent: ph carries the whole weight.
	rec := record("P001", map[string]float64{domain.FeaturePH: 7})

	scores, _, err := New(cfg, slog.Default()).Score(context.Background(), []domain.ParcelRecord{rec})
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.InDelta(t, 0.5, scores[0].Score, 1e-9)
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, phOrganicConfig().Validate())

	t.Run("no features", func(t *testing.T) {
		assert.Error(t, Config{}.Validate())
	})
	t.Run("negative weight", func(t *testing.T) {
		cfg := Config{Features: map[string]FeatureSpec{
			"ph": {Weight: -1, Transform: TransformSpec{Type: TransformIdentity}},
		}}
		assert.Error(t, cfg.Validate())
	})
	t.Run("all weights zero", func(t *testing.T) {
		cfg := Config{Features: map[string]FeatureSpec{
			"ph": {Weight: 0, Transform: TransformSpec{Type: TransformIdentity}},
		}}
		assert.Error(t, cfg.Validate())
	})
	t.Run("unknown transform", func(t *testing.T) {
		cfg := Config{Features: map[string]FeatureSpec{
			"ph": {Weight: 1, Transform: TransformSpec{Type: "zscore"}},
		}}
		assert.Error(t, cfg.Validate())
	})
	t.Run("inverted transform range", func(t *testing.T) {
		cfg := Config{Features: map[string]FeatureSpec{
			"ph": {Weight: 1, Transform: TransformSpec{Type: TransformLinear, Min: 14, Max: 0}},
		}}
		assert.Error(t, cfg.Validate())
	})
	t.Run("required but unconfigured", func(t *testing.T) {
		cfg := Config{
			Required: []string{"yield"},
			Features: map[string]FeatureSpec{
				"ph": {Weight: 1, Transform: TransformSpec{Type: TransformIdentity}},
			},
		}
		assert.Error(t, cfg.Validate())
	})
}
