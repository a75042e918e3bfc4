// Package score computes bounded per-parcel risk scores from cleaned records
// via a configurable weighted-feature function.
package score

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/ksyounes98/agri-risk-etl/internal/domain"
)

// Transform types.
const (
	TransformLinear   = "linear"   // (x-min)/(max-min), clamped: higher value, higher risk
	TransformInverse  = "inverse"  // 1 - linear: lower value, higher risk
	TransformIdentity = "identity" // x clamped to [0,1], for pre-normalized features
)

// TransformSpec normalizes one raw feature value into [0,1].
type TransformSpec struct {
	Type string  `yaml:"type"`
	Min  float64 `yaml:"min"`
	Max  float64 `yaml:"max"`
}

// Apply runs the transform. The result is always in [0,1].
func (t TransformSpec) Apply(v float64) float64 {
	switch t.Type {
	case TransformIdentity:
		return clamp01(v)
	case TransformInverse:
		return 1 - clamp01((v-t.Min)/(t.Max-t.Min))
	default: // linear
		return clamp01((v - t.Min) / (t.Max - t.Min))
	}
}

// FeatureSpec is one term of the scoring function.
type FeatureSpec struct {
	Weight    float64       `yaml:"weight"`
	Transform TransformSpec `yaml:"transform"`
}

// Config is the externally supplied scoring function: which features count,
// how each is normalized, and how much each weighs. Nothing here is
// hard-coded into the pipeline.
type Config struct {
	// Required features must be present post-cleaning; a parcel missing any
	// of them is excluded with an InsufficientDataError.
	Required []string               `yaml:"required"`
	Features map[string]FeatureSpec `yaml:"features"`
}

// Validate rejects empty or malformed scoring configuration.
func (c Config) Validate() error {
	if len(c.Features) == 0 {
		return fmt.Errorf("scoring: no features configured")
	}
	total := 0.0
	for name, spec := range c.Features {
		if spec.Weight < 0 {
			return fmt.Errorf("scoring: feature %q: negative weight %g", name, spec.Weight)
		}
		total += spec.Weight
		switch spec.Transform.Type {
		case TransformIdentity:
		case TransformLinear, TransformInverse:
			if spec.Transform.Min >= spec.Transform.Max {
				return fmt.Errorf("scoring: feature %q: transform min %g >= max %g",
					name, spec.Transform.Min, spec.Transform.Max)
			}
		default:
			return fmt.Errorf("scoring: feature %q: unknown transform %q", name, spec.Transform.Type)
		}
	}
	if total == 0 {
		return fmt.Errorf("scoring: all weights are zero")
	}
	for _, name := range c.Required {
		if _, ok := c.Features[name]; !ok {
			return fmt.Errorf("scoring: required feature %q is not configured", name)
		}
	}
	return nil
}

// Report is the scoring audit summary for one run.
type Report struct {
	Scored  int      `json:"scored"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}

// Scorer computes RiskScores from cleaned records. Per-parcel failures are
// reported and the parcel excluded; they never fail the batch.
type Scorer struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Scorer.
func New(cfg Config, logger *slog.Logger) *Scorer {
	return &Scorer{cfg: cfg, logger: logger}
}

// Score computes one RiskScore per parcel, in parcel-ID order. Scores are
// deterministic: the same records and config always yield the same set.
func (s *Scorer) Score(ctx context.Context, records []domain.ParcelRecord) ([]domain.RiskScore, Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, Report{}, err
	}

	ordered := append([]domain.ParcelRecord(nil), records...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ParcelID < ordered[j].ParcelID })

	var report Report
	scores := make([]domain.RiskScore, 0, len(ordered))
	for _, rec := range ordered {
		risk, err := s.scoreRecord(rec)
		if err != nil {
			report.Skipped++
			report.Errors = append(report.Errors, err.Error())
			s.logger.Warn("parcel excluded from scoring", "parcel_id", rec.ParcelID, "error", err)
			continue
		}
		scores = append(scores, risk)
	}
	report.Scored = len(scores)

	s.logger.Info("scoring complete", "scored", report.Scored, "skipped", report.Skipped)
	return scores, report, nil
}

// scoreRecord evaluates the weighted-feature function for one parcel:
//
//	score = clamp01( Σ wᵢ·fᵢ(xᵢ) / Σ wᵢ )
//
// summed over configured features the record carries. Features absent from
// the record (and not required) drop out of both numerator and denominator,
// so the remaining weights renormalize among themselves.
func (s *Scorer) scoreRecord(rec domain.ParcelRecord) (domain.RiskScore, error) {
	var missing []string
	for _, name := range s.cfg.Required {
		if _, ok := rec.Feature(name); !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return domain.RiskScore{}, &domain.InsufficientDataError{ParcelID: rec.ParcelID, Missing: missing}
	}

	totalWeight := 0.0
	for _, name := range sortedFeatures(s.cfg.Features) {
		if _, ok := rec.Feature(name); ok {
			totalWeight += s.cfg.Features[name].Weight
		}
	}
	if totalWeight == 0 {
		return domain.RiskScore{}, &domain.InsufficientDataError{ParcelID: rec.ParcelID, Missing: sortedFeatures(s.cfg.Features)}
	}

	factors := make(map[string]float64)
	sum := 0.0
	for _, name := range sortedFeatures(s.cfg.Features) {
		spec := s.cfg.Features[name]
		v, ok := rec.Feature(name)
		if !ok || spec.Weight == 0 {
			continue
		}
		contribution := spec.Weight * spec.Transform.Apply(v) / totalWeight
		factors[name] = contribution
		sum += contribution
	}

	return domain.RiskScore{
		ParcelID:   rec.ParcelID,
		Score:      clamp01(sum),
		Category:   domain.Categorize(clamp01(sum)),
		Geo:        rec.Geo,
		Factors:    factors,
		ComputedAt: domain.Now(),
	}, nil
}

func sortedFeatures(m map[string]FeatureSpec) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
