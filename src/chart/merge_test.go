package chart

import (
	"encoding/json"
	"fmt"
	"testing"

	"stock-forecast/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func values(ptrs []*float64) []interface{} {
	out := make([]interface{}, len(ptrs))
	for i, p := range ptrs {
		if p != nil {
			out[i] = *p
		}
	}
	return out
}

func TestMerge_TwoDaysOnePrediction(t *testing.T) {
	h := []models.MHistoricalPoint{
		{Date: "2024-01-01", Price: 100},
		{Date: "2024-01-02", Price: 102},
	}
	p := []models.MPredictionPoint{{PredictedPrice: 105}}

	m := Merge(h, p)

	assert.Equal(t, []string{"2024-01-01", "2024-01-02", "2024-01-03"}, m.Labels)
	assert.Equal(t, []interface{}{100.0, 102.0, nil}, values(m.Actual))
	assert.Equal(t, []interface{}{nil, nil, 105.0}, values(m.Predicted))
	assert.Zero(t, m.DroppedPredictions)
}

func TestMerge_NoHistoryDropsPredictions(t *testing.T) {
	m := Merge(nil, []models.MPredictionPoint{{PredictedPrice: 50}})

	assert.Empty(t, m.Labels)
	assert.Empty(t, m.Actual)
	assert.Empty(t, m.Predicted)
	assert.Equal(t, 1, m.DroppedPredictions)
	assert.NoError(t, m.Check())
}

func TestMerge_LengthInvariant(t *testing.T) {
	for hLen := 1; hLen <= 6; hLen++ {
		for pLen := 0; pLen <= 12; pLen++ {
			t.Run(fmt.Sprintf("h%d_p%d", hLen, pLen), func(t *testing.T) {
				h := make([]models.MHistoricalPoint, hLen)
				for i := range h {
					h[i] = models.MHistoricalPoint{Date: fmt.Sprintf("2024-03-%02d 00:00:00-04:00", i+1), Price: float64(i)}
				}
				p := make([]models.MPredictionPoint, pLen)
				for i := range p {
					p[i] = models.MPredictionPoint{PredictedPrice: float64(100 + i)}
				}

				m := Merge(h, p)
				require.NoError(t, m.Check())
				assert.Equal(t, hLen+pLen, m.Len())

				for i := 0; i < hLen; i++ {
					assert.NotNil(t, m.Actual[i])
					assert.Nil(t, m.Predicted[i])
				}
				for i := hLen; i < hLen+pLen; i++ {
					assert.Nil(t, m.Actual[i])
					assert.NotNil(t, m.Predicted[i])
				}
			})
		}
	}
}

func TestMerge_StripsTimeOfDay(t *testing.T) {
	h := []models.MHistoricalPoint{
		{Date: "2024-02-28 00:00:00-05:00", Price: 1},
		{Date: "2024-02-29 00:00:00-05:00", Price: 2},
	}
	m := Merge(h, []models.MPredictionPoint{{PredictedPrice: 3}, {PredictedPrice: 4}})

	assert.Equal(t, []string{"2024-02-28", "2024-02-29", "2024-03-01", "2024-03-02"}, m.Labels)
}

func TestMerge_MissingDatesDegradeToEmptyLabels(t *testing.T) {
	h := []models.MHistoricalPoint{
		{Date: "", Price: 1},
		{Date: "garbage", Price: 2},
	}
	m := Merge(h, []models.MPredictionPoint{{PredictedPrice: 3}})

	require.NoError(t, m.Check())
	assert.Equal(t, []string{"", "garbage", ""}, m.Labels)
	assert.Equal(t, []interface{}{1.0, 2.0, nil}, values(m.Actual))
}

func TestMerge_Idempotent(t *testing.T) {
	h := []models.MHistoricalPoint{{Date: "2024-05-31", Price: 10}}
	p := []models.MPredictionPoint{{PredictedPrice: 11}, {PredictedPrice: 12}}

	first := Merge(h, p)
	second := Merge(h, p)
	assert.Equal(t, first, second)

	// Results do not alias the inputs or each other.
	*first.Actual[0] = 999
	assert.Equal(t, 10.0, h[0].Price)
	assert.Equal(t, 10.0, *second.Actual[0])
}

func TestMerge_JSONUsesNullForAbsent(t *testing.T) {
	m := Merge(
		[]models.MHistoricalPoint{{Date: "2024-01-01", Price: 1.5}},
		[]models.MPredictionPoint{{PredictedPrice: 2.5}},
	)

	raw, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"labels": ["2024-01-01", "2024-01-02"],
		"actual": [1.5, null],
		"predicted": [null, 2.5]
	}`, string(raw))
}
