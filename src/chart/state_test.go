package chart

import (
	"errors"
	"testing"

	"stock-forecast/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	aapl1mo = models.MSelection{Symbol: "AAPL", Period: models.PeriodOneMonth}
	msft6mo = models.MSelection{Symbol: "MSFT", Period: models.PeriodSixMonths}
)

func history(prices ...float64) []models.MHistoricalPoint {
	out := make([]models.MHistoricalPoint, len(prices))
	for i, p := range prices {
		out[i] = models.MHistoricalPoint{Date: NextDates(day(2024, 1, 1), i+1)[i], Price: p}
	}
	return out
}

func predictions(prices ...float64) []models.MPredictionPoint {
	out := make([]models.MPredictionPoint, len(prices))
	for i, p := range prices {
		out[i] = models.MPredictionPoint{PredictedPrice: p}
	}
	return out
}

func TestReduce_SelectionStartsLoading(t *testing.T) {
	s := Reduce(NewState(), SelectionChanged{Selection: aapl1mo})

	assert.Equal(t, PhaseLoading, s.Phase)
	assert.Equal(t, uint64(1), s.Generation)
	assert.Equal(t, aapl1mo, s.Selection)
	assert.Equal(t, 0, s.Merged.Len())
}

func TestReduce_HistoryLoadedReady(t *testing.T) {
	s := Reduce(NewState(), SelectionChanged{Selection: aapl1mo})
	s = Reduce(s, HistoryLoaded{Generation: 1, Points: history(1, 2, 3)})

	assert.Equal(t, PhaseReady, s.Phase)
	assert.Equal(t, 3, s.Merged.Len())
	assert.NoError(t, s.Err)
}

func TestReduce_IdleIgnoresResults(t *testing.T) {
	s := Reduce(NewState(), StockUpdate{Generation: 0, Points: history(1)})

	assert.Equal(t, PhaseIdle, s.Phase)
	assert.Empty(t, s.Historical)
	assert.Equal(t, 1, s.Discarded)
}

// A push replacing history after predictions exist recomputes with the new
// historical length and the existing prediction length.
func TestReduce_PushAfterPredictionsRecomputes(t *testing.T) {
	s := Reduce(NewState(), SelectionChanged{Selection: aapl1mo})
	s = Reduce(s, HistoryLoaded{Generation: 1, Points: history(1, 2)})
	s = Reduce(s, PredictionsUpdate{Generation: 1, Points: predictions(5, 6, 7)})
	require.Equal(t, 5, s.Merged.Len())

	s = Reduce(s, StockUpdate{Generation: 1, Points: history(1, 2, 3, 4)})

	require.NoError(t, s.Merged.Check())
	assert.Equal(t, 4+3, s.Merged.Len())
	assert.Equal(t, "2024-01-06", s.Merged.Labels[4])
	assert.Equal(t, 5.0, *s.Merged.Predicted[4])
}

func TestReduce_StaleResultsDiscarded(t *testing.T) {
	s := Reduce(NewState(), SelectionChanged{Selection: aapl1mo})
	s = Reduce(s, SelectionChanged{Selection: msft6mo})
	require.Equal(t, uint64(2), s.Generation)

	// The AAPL fetch lands after the switch to MSFT.
	s = Reduce(s, HistoryLoaded{Generation: 1, Points: history(100, 101)})
	s = Reduce(s, PredictionsUpdate{Generation: 1, Points: predictions(102)})
	s = Reduce(s, HistoryFailed{Generation: 1, Err: errors.New("late")})

	assert.Equal(t, PhaseLoading, s.Phase)
	assert.Empty(t, s.Historical)
	assert.Empty(t, s.Predictions)
	assert.NoError(t, s.Err)
	assert.Equal(t, 3, s.Discarded)

	s = Reduce(s, HistoryLoaded{Generation: 2, Points: history(300)})
	assert.Equal(t, PhaseReady, s.Phase)
	assert.Equal(t, 300.0, s.Historical[0].Price)
}

func TestReduce_SelectionChangeClearsForeignSeries(t *testing.T) {
	s := Reduce(NewState(), SelectionChanged{Selection: aapl1mo})
	s = Reduce(s, HistoryLoaded{Generation: 1, Points: history(1, 2)})
	s = Reduce(s, PredictionsUpdate{Generation: 1, Points: predictions(3)})

	s = Reduce(s, SelectionChanged{Selection: msft6mo})

	assert.Empty(t, s.Historical)
	assert.Empty(t, s.Predictions)
	assert.Equal(t, 0, s.Merged.Len())
}

func TestReduce_ReselectKeepsSeriesUntilReplaced(t *testing.T) {
	s := Reduce(NewState(), SelectionChanged{Selection: aapl1mo})
	s = Reduce(s, HistoryLoaded{Generation: 1, Points: history(1, 2)})

	s = Reduce(s, SelectionChanged{Selection: aapl1mo})

	assert.Equal(t, PhaseLoading, s.Phase)
	assert.Equal(t, uint64(2), s.Generation)
	assert.Len(t, s.Historical, 2)
}

func TestReduce_FetchFailureKeepsStaleSeries(t *testing.T) {
	s := Reduce(NewState(), SelectionChanged{Selection: aapl1mo})
	s = Reduce(s, HistoryLoaded{Generation: 1, Points: history(1, 2)})
	s = Reduce(s, SelectionChanged{Selection: aapl1mo})

	boom := errors.New("connection refused")
	s = Reduce(s, HistoryFailed{Generation: 2, Err: boom})

	assert.Equal(t, PhaseReady, s.Phase)
	assert.ErrorIs(t, s.Err, boom)
	assert.True(t, s.Stale)
	assert.Equal(t, 2, s.Merged.Len())

	// The next good replacement clears the error.
	s = Reduce(s, StockUpdate{Generation: 2, Points: history(5)})
	assert.NoError(t, s.Err)
	assert.False(t, s.Stale)
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	s0 := Reduce(NewState(), SelectionChanged{Selection: aapl1mo})
	s0 = Reduce(s0, HistoryLoaded{Generation: 1, Points: history(1)})

	_ = Reduce(s0, StockUpdate{Generation: 1, Points: history(7, 8, 9)})
	_ = Reduce(s0, SelectionChanged{Selection: msft6mo})

	assert.Equal(t, uint64(1), s0.Generation)
	assert.Len(t, s0.Historical, 1)
	assert.Equal(t, 1, s0.Merged.Len())
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "idle", PhaseIdle.String())
	assert.Equal(t, "loading", PhaseLoading.String())
	assert.Equal(t, "ready", PhaseReady.String())
	assert.Equal(t, "unknown", Phase(9).String())
}
