package utils

import (
	"context"
	"io"
	"testing"
	"time"

	"stock-forecast/src/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logger.Logger {
	return logger.NewLoggerWithOutput("ERROR", "utils-test", io.Discard)
}

func TestMICForSymbol(t *testing.T) {
	assert.Equal(t, "xnys", MICForSymbol("AAPL"))
	assert.Equal(t, "xlon", MICForSymbol("VOD.L"))
	assert.Equal(t, "xpar", MICForSymbol("mc.pa"))
	assert.Equal(t, "xnys", MICForSymbol("BRK.B"))
}

func TestGetCalendar_IsShared(t *testing.T) {
	assert.Same(t, GetCalendar("AAPL"), GetCalendar("MSFT"))
}

func TestMarketScheduler_IsOpen(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	ms := NewMarketScheduler(quietLogger())

	// Wednesday 2024-01-10, mid-session and after close
	ms.Now = func() time.Time { return time.Date(2024, 1, 10, 11, 0, 0, 0, ny) }
	assert.True(t, ms.IsOpen("AAPL"))

	ms.Now = func() time.Time { return time.Date(2024, 1, 10, 20, 0, 0, 0, ny) }
	assert.False(t, ms.IsOpen("AAPL"))

	// Saturday
	ms.Now = func() time.Time { return time.Date(2024, 1, 13, 11, 0, 0, 0, ny) }
	assert.False(t, ms.IsOpen("AAPL"))
	assert.Empty(t, ms.OpenSymbols([]string{"AAPL", "MSFT"}))
}

type countingRefresher struct {
	calls  int
	opened []bool
}

func (c *countingRefresher) SubscribedSymbols() []string {
	return []string{"AAPL"}
}

func (c *countingRefresher) RefreshSelections(_ context.Context, open func(string) bool) int {
	c.calls++
	c.opened = append(c.opened, open("AAPL"))
	return 1
}

func TestRefreshScheduler_RunOnce(t *testing.T) {
	ms := NewMarketScheduler(quietLogger())
	ms.Now = func() time.Time { return time.Date(2024, 1, 13, 16, 0, 0, 0, time.UTC) }
	r := &countingRefresher{}

	s := NewRefreshScheduler(context.Background(), ms, r, quietLogger())
	s.RunOnce()

	assert.Equal(t, 1, r.calls)
	assert.Equal(t, []bool{false}, r.opened)
	assert.EqualValues(t, 1, s.Runs())
}

func TestRefreshScheduler_SkipsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &countingRefresher{}

	s := NewRefreshScheduler(ctx, NewMarketScheduler(quietLogger()), r, quietLogger())
	s.RunOnce()
	assert.Zero(t, r.calls)
}

func TestRefreshScheduler_Register(t *testing.T) {
	s := NewRefreshScheduler(context.Background(), NewMarketScheduler(quietLogger()), &countingRefresher{}, quietLogger())

	assert.NoError(t, s.Register("@every 1m"))
	assert.Error(t, s.Register("not a cron expression"))
	assert.Len(t, s.Cron.Entries(), 1)
}
