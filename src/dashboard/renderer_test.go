package dashboard

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"stock-forecast/src/chart"
	"stock-forecast/src/logger"
	"stock-forecast/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogRenderer(t *testing.T) {
	var buf bytes.Buffer
	r := NewLogRenderer(logger.NewLoggerWithOutput("DEBUG", "render", &buf))

	st := chart.NewState()
	st = chart.Reduce(st, chart.SelectionChanged{Selection: models.MSelection{Symbol: "AAPL", Period: models.PeriodOneMonth}})
	st = chart.Reduce(st, chart.HistoryLoaded{Generation: 1, Points: history(10, 11)})
	st = chart.Reduce(st, chart.PredictionsUpdate{Generation: 1, Points: []models.MPredictionPoint{{PredictedPrice: 12}}})

	require.NoError(t, r.Render(st))
	out := buf.String()
	assert.Contains(t, out, "AAPL/1mo [ready gen=1] points=3")
	assert.Contains(t, out, "2024-01-03=11.00 2024-01-04=~12.00")
}

func TestLogRenderer_ReportsStaleError(t *testing.T) {
	var buf bytes.Buffer
	r := NewLogRenderer(logger.NewLoggerWithOutput("INFO", "render", &buf))

	st := chart.Reduce(chart.NewState(), chart.SelectionChanged{Selection: models.MSelection{Symbol: "AAPL"}})
	st = chart.Reduce(st, chart.HistoryFailed{Generation: 1, Err: errors.New("bad status: 502")})

	require.NoError(t, r.Render(st))
	assert.Contains(t, buf.String(), "bad status: 502 (showing previous data)")
}

type countingRenderer struct{ n int }

func (c *countingRenderer) Render(chart.State) error {
	c.n++
	return nil
}

func TestDrive_StopsWhenUpdatesClose(t *testing.T) {
	updates := make(chan chart.State, 2)
	updates <- chart.NewState()
	updates <- chart.NewState()
	close(updates)

	r := &countingRenderer{}
	require.NoError(t, Drive(context.Background(), updates, r))
	assert.Equal(t, 2, r.n)
}
