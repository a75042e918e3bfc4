// Package analysis derives yield statistics from per-parcel historical data:
// linear trends, residuals, moving averages, and summary statistics.
package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/ksyounes98/agri-risk-etl/internal/domain"
)

// Trend is a fitted linear yield trend over time.
type Trend struct {
	Slope     float64 `json:"slope"`     // t/ha per year
	Intercept float64 `json:"intercept"` // t/ha at year zero
	// MeanVariation is the slope relative to the mean yield, i.e. the average
	// fractional change per year. Zero when the mean is zero.
	MeanVariation float64 `json:"mean_variation"`
}

// Summary holds descriptive statistics of a yield series.
type Summary struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"` // sample standard deviation
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// YieldAnalysis is the full analysis result for one parcel.
type YieldAnalysis struct {
	ParcelID  string    `json:"parcel_id"`
	Years     []int     `json:"years"`
	Trend     Trend     `json:"trend"`
	Summary   Summary   `json:"summary"`
	Residuals []float64 `json:"residuals"` // observed minus fitted, per year
}

// AnalyzeYield fits an ordinary-least-squares trend to a parcel's yield
// history. At least two observations are required for a fit.
func AnalyzeYield(history []domain.HistoricalYield, parcelID string) (YieldAnalysis, error) {
	var years []int
	var yields []float64
	for _, h := range history {
		if h.ParcelID == parcelID {
			years = append(years, h.Year)
			yields = append(yields, h.Yield)
		}
	}
	if len(years) == 0 {
		return YieldAnalysis{}, fmt.Errorf("no yield history for parcel %s", parcelID)
	}
	if len(years) < 2 {
		return YieldAnalysis{}, fmt.Errorf("parcel %s: need at least 2 observations, have %d", parcelID, len(years))
	}

	sort.Sort(byYear{years, yields})

	slope, intercept := leastSquares(years, yields)
	summary := summarize(yields)

	residuals := make([]float64, len(yields))
	for i, y := range yields {
		residuals[i] = y - (slope*float64(years[i]) + intercept)
	}

	meanVariation := 0.0
	if summary.Mean != 0 {
		meanVariation = slope / summary.Mean
	}

	return YieldAnalysis{
		ParcelID:  parcelID,
		Years:     years,
		Trend:     Trend{Slope: slope, Intercept: intercept, MeanVariation: meanVariation},
		Summary:   summary,
		Residuals: residuals,
	}, nil
}

// MovingAverage returns the trailing moving average of values with the given
// window. The first window-1 positions average whatever is available so the
// output has the same length as the input.
func MovingAverage(values []float64, window int) []float64 {
	if window < 1 {
		window = 1
	}
	out := make([]float64, len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		n := window
		if i+1 < window {
			n = i + 1
		} else if i >= window {
			sum -= values[i-window]
		}
		out[i] = sum / float64(n)
	}
	return out
}

// leastSquares fits y = slope*x + intercept by the closed-form OLS solution.
func leastSquares(xs []int, ys []float64) (slope, intercept float64) {
	n := float64(len(xs))
	var sumX, sumY, sumXY, sumXX float64
	for i := range xs {
		x := float64(xs[i])
		sumX += x
		sumY += ys[i]
		sumXY += x * ys[i]
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, sumY / n
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}

func summarize(ys []float64) Summary {
	s := Summary{Min: math.Inf(1), Max: math.Inf(-1)}
	for _, y := range ys {
		s.Mean += y
		s.Min = math.Min(s.Min, y)
		s.Max = math.Max(s.Max, y)
	}
	s.Mean /= float64(len(ys))

	if len(ys) > 1 {
		var ss float64
		for _, y := range ys {
			d := y - s.Mean
			ss += d * d
		}
		s.Std = math.Sqrt(ss / float64(len(ys)-1))
	}
	return s
}

// byYear sorts parallel year/yield slices by year.
type byYear struct {
	years  []int
	yields []float64
}

func (b byYear) Len() int           { return len(b.years) }
func (b byYear) Less(i, j int) bool { return b.years[i] < b.years[j] }
func (b byYear) Swap(i, j int) {
	b.years[i], b.years[j] = b.years[j], b.years[i]
	b.yields[i], b.yields[j] = b.yields[j], b.yields[i]
}
