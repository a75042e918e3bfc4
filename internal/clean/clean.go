// Package clean applies missing-value policies and outlier filtering to
// merged parcel records, producing the cleaned batch the scorer consumes.
package clean

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/ksyounes98/agri-risk-etl/internal/domain"
)

// Missing-value strategies.
const (
	StrategyDropRow        = "drop_row"
	StrategyImputeMean     = "impute_mean"
	StrategyImputeMedian   = "impute_median"
	StrategyImputeConstant = "impute_constant"
)

// PolicySpec selects the missing-value strategy for one feature. Value is
// only consulted for impute_constant.
type PolicySpec struct {
	Strategy string  `yaml:"strategy"`
	Value    float64 `yaml:"value"`
}

// Range bounds the valid domain of a feature. Rows with a present value
// outside the range are removed as outliers.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Contains reports whether v lies inside the closed interval.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Config is the cleaning policy: per-feature missing-value handling plus
// valid ranges for outlier filtering. pH is always bounded by its chemical
// domain [0,14]; a configured ph range may only narrow that.
type Config struct {
	Policies    map[string]PolicySpec `yaml:"policies"`
	ValidRanges map[string]Range      `yaml:"valid_ranges"`
}

// phDomain is the hard chemical bound on pH, enforced regardless of config.
var phDomain = Range{Min: 0, Max: 14}

// Validate rejects unknown strategies and inverted ranges.
func (c Config) Validate() error {
	for feature, policy := range c.Policies {
		switch policy.Strategy {
		case StrategyDropRow, StrategyImputeMean, StrategyImputeMedian, StrategyImputeConstant:
		default:
			return fmt.Errorf("cleaning: feature %q: unknown strategy %q", feature, policy.Strategy)
		}
	}
	for feature, r := range c.ValidRanges {
		if r.Min >= r.Max {
			return fmt.Errorf("cleaning: feature %q: min %g >= max %g", feature, r.Min, r.Max)
		}
	}
	return nil
}

// Report is the cleaning audit summary for one run.
type Report struct {
	RowsIn      int            `json:"rows_in"`
	RowsOut     int            `json:"rows_out"`
	RowsDropped int            `json:"rows_dropped"`
	Imputed     map[string]int `json:"imputed,omitempty"` // feature -> fill count
	Outliers    int            `json:"outliers"`
	Errors      []string       `json:"errors,omitempty"`
}

// Cleaner applies a Config to record batches. Stateless between runs: all
// statistics are recomputed from each input, so identical input and config
// always produce identical output.
type Cleaner struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Cleaner.
func New(cfg Config, logger *slog.Logger) *Cleaner {
	return &Cleaner{cfg: cfg, logger: logger}
}

// Clean returns a cleaned copy of the batch. Input records are never mutated.
//
// Imputation statistics (mean/median) are computed over the raw input before
// any fill, so a row missing ph under impute_mean receives the dataset mean of
// the values that were actually observed. Running Clean on already-clean data
// changes nothing: no value is missing, so no policy fires, and in-range
// values pass the filter untouched.
func (c *Cleaner) Clean(ctx context.Context, records []domain.ParcelRecord) ([]domain.ParcelRecord, Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, Report{}, err
	}

	report := Report{RowsIn: len(records), Imputed: make(map[string]int)}
	fills := c.fillValues(records, &report)

	out := make([]domain.ParcelRecord, 0, len(records))
	for _, rec := range records {
		cleaned, keep := c.cleanRecord(rec, fills, &report)
		if keep {
			out = append(out, cleaned)
		} else {
			report.RowsDropped++
		}
	}
	report.RowsOut = len(out)

	c.logger.Info("cleaning complete",
		"rows_in", report.RowsIn,
		"rows_out", report.RowsOut,
		"dropped", report.RowsDropped,
		"outliers", report.Outliers,
	)
	return out, report, nil
}

// cleanRecord applies missing-value policies then the outlier filter to one
// record. Returns the cleaned copy and whether it survives.
func (c *Cleaner) cleanRecord(rec domain.ParcelRecord, fills map[string]float64, report *Report) (domain.ParcelRecord, bool) {
	out := rec.Clone()

	for _, feature := range sortedKeys(c.cfg.Policies) {
		if _, present := out.Feature(feature); present {
			continue
		}
		policy := c.cfg.Policies[feature]
		switch policy.Strategy {
		case StrategyDropRow:
			return out, false
		case StrategyImputeConstant:
			out.SetFeature(feature, policy.Value)
			report.Imputed[feature]++
		case StrategyImputeMean, StrategyImputeMedian:
			fill, ok := fills[feature]
			if !ok {
				// No observed values anywhere: nothing to impute from. The
				// row survives with the feature absent; scoring decides.
				continue
			}
			out.SetFeature(feature, fill)
			report.Imputed[feature]++
		}
	}

	for _, feature := range sortedKeys(c.cfg.ValidRanges) {
		v, present := out.Feature(feature)
		if !present {
			continue
		}
		if r := c.boundedRange(feature); !r.Contains(v) {
			report.Outliers++
			report.Errors = append(report.Errors, (&domain.ValidationError{
				ParcelID: out.ParcelID, Field: feature, Value: v, Min: r.Min, Max: r.Max,
			}).Error())
			return out, false
		}
	}

	// pH stays domain-checked even when no range is configured for it.
	if _, configured := c.cfg.ValidRanges[domain.FeaturePH]; !configured {
		if v, present := out.Feature(domain.FeaturePH); present && !phDomain.Contains(v) {
			report.Outliers++
			report.Errors = append(report.Errors, (&domain.ValidationError{
				ParcelID: out.ParcelID, Field: domain.FeaturePH, Value: v, Min: phDomain.Min, Max: phDomain.Max,
			}).Error())
			return out, false
		}
	}

	return out, true
}

// boundedRange returns the configured range, intersected with the hard pH
// domain for the ph feature.
func (c *Cleaner) boundedRange(feature string) Range {
	r := c.cfg.ValidRanges[feature]
	if feature != domain.FeaturePH {
		return r
	}
	if r.Min < phDomain.Min {
		r.Min = phDomain.Min
	}
	if r.Max > phDomain.Max {
		r.Max = phDomain.Max
	}
	return r
}

// fillValues computes the mean/median fill value per feature whose policy
// needs one, over the values present in the raw input.
func (c *Cleaner) fillValues(records []domain.ParcelRecord, report *Report) map[string]float64 {
	fills := make(map[string]float64)
	for _, feature := range sortedKeys(c.cfg.Policies) {
		policy := c.cfg.Policies[feature]
		if policy.Strategy != StrategyImputeMean && policy.Strategy != StrategyImputeMedian {
			continue
		}

		var values []float64
		for _, rec := range records {
			if v, ok := rec.Feature(feature); ok {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			report.Errors = append(report.Errors,
				fmt.Sprintf("feature %q: no observed values, %s impossible", feature, policy.Strategy))
			continue
		}

		if policy.Strategy == StrategyImputeMean {
			fills[feature] = mean(values)
		} else {
			fills[feature] = median(values)
		}
	}
	return fills
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func median(values []float64) float64 {
	s := append([]float64(nil), values...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
