package analysis

import (
	"testing"

	"github.com/ksyounes98/agri-risk-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func history(parcelID string, pairs ...float64) []domain.HistoricalYield {
	var out []domain.HistoricalYield
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, domain.HistoricalYield{ParcelID: parcelID, Year: int(pairs[i]), Yield: pairs[i+1]})
	}
	return out
}

func TestAnalyzeYield_LinearSeries(t *testing.T) {
	// Perfectly linear: yield = 0.5*year - 1003.5, so 2020 -> 6.5.
	h := history("P001", 2020, 6.5, 2021, 7.0, 2022, 7.5, 2023, 8.0)

	result, err := AnalyzeYield(h, "P001")
	require.NoError(t, err)

	assert.InDelta(t, 0.5, result.Trend.Slope, 1e-9)
	assert.InDelta(t, 7.25, result.Summary.Mean, 1e-9)
	assert.InDelta(t, 6.5, result.Summary.Min, 1e-9)
	assert.InDelta(t, 8.0, result.Summary.Max, 1e-9)
	assert.InDelta(t, 0.5/7.25, result.Trend.MeanVariation, 1e-9)
	for _, r := range result.Residuals {
		assert.InDelta(t, 0, r, 1e-9)
	}
}

func TestAnalyzeYield_UnsortedInput(t *testing.T) {
	h := history("P001", 2023, 8.0, 2020, 6.5, 2022, 7.5, 2021, 7.0)

	result, err := AnalyzeYield(h, "P001")
	require.NoError(t, err)
	assert.Equal(t, []int{2020, 2021, 2022, 2023}, result.Years)
	assert.InDelta(t, 0.5, result.Trend.Slope, 1e-9)
}

func TestAnalyzeYield_FiltersOtherParcels(t *testing.T) {
	h := append(history("P001", 2020, 6.0, 2021, 6.0), history("P002", 2020, 1.0, 2021, 9.0)...)

	result, err := AnalyzeYield(h, "P001")
	require.NoError(t, err)
	assert.InDelta(t, 0, result.Trend.Slope, 1e-9)
	assert.InDelta(t, 6.0, result.Summary.Mean, 1e-9)
	assert.InDelta(t, 0, result.Summary.Std, 1e-9)
}

func TestAnalyzeYield_Errors(t *testing.T) {
	t.Run("unknown parcel", func(t *testing.T) {
		_, err := AnalyzeYield(history("P001", 2020, 6.0, 2021, 6.5), "P999")
		assert.Error(t, err)
	})
	t.Run("single observation", func(t *testing.T) {
		_, err := AnalyzeYield(history("P001", 2020, 6.0), "P001")
		assert.Error(t, err)
	})
}

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{2, 4, 6, 8}, 2)
	assert.Equal(t, []float64{2, 3, 5, 7}, got)

	t.Run("window larger than series", func(t *testing.T) {
		got := MovingAverage([]float64{3, 5}, 10)
		assert.Equal(t, []float64{3, 4}, got)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, MovingAverage(nil, 3))
	})
}
