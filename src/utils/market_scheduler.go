package utils

import (
	"time"

	"stock-forecast/src/logger"
)

// MarketScheduler decides whether a symbol's market is worth polling now.
type MarketScheduler struct {
	Logger *logger.Logger
	Now    func() time.Time
}

// -----------------------------------------------------------------------------

func NewMarketScheduler(l *logger.Logger) *MarketScheduler {
	return &MarketScheduler{Logger: l, Now: time.Now}
}

// -----------------------------------------------------------------------------

// IsOpen reports whether the exchange listing symbol is open right now.
func (ms *MarketScheduler) IsOpen(symbol string) bool {
	return GetCalendar(symbol).IsOpenOnMinute(ms.Now().UTC())
}

// -----------------------------------------------------------------------------

// OpenSymbols filters symbols down to those whose market is open, logging
// how many were skipped.
func (ms *MarketScheduler) OpenSymbols(symbols []string) []string {
	open := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if ms.IsOpen(s) {
			open = append(open, s)
		}
	}
	if skipped := len(symbols) - len(open); skipped > 0 {
		ms.Logger.Debug("MarketScheduler: %d/%d symbols on closed markets", skipped, len(symbols))
	}
	return open
}
