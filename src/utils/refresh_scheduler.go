package utils

import (
	"context"
	"fmt"
	"sync/atomic"

	"stock-forecast/src/logger"

	"github.com/robfig/cron/v3"
)

// Refresher re-pushes every subscribed selection accepted by open and reports
// how many it refreshed.
type Refresher interface {
	SubscribedSymbols() []string
	RefreshSelections(ctx context.Context, open func(symbol string) bool) int
}

// RefreshScheduler drives periodic pushes on a cron spec, skipping symbols
// whose exchange is closed.
type RefreshScheduler struct {
	Cron      *cron.Cron
	Market    *MarketScheduler
	Refresher Refresher
	Logger    *logger.Logger
	Ctx       context.Context

	runs    atomic.Int64
	running atomic.Bool
}

// -----------------------------------------------------------------------------

func NewRefreshScheduler(ctx context.Context, market *MarketScheduler, r Refresher, log *logger.Logger) *RefreshScheduler {
	return &RefreshScheduler{
		Cron:      cron.New(),
		Market:    market,
		Refresher: r,
		Logger:    log,
		Ctx:       ctx,
	}
}

// -----------------------------------------------------------------------------

// Register adds the refresh job. expr accepts five-field expressions and
// descriptors such as "@every 1m".
func (s *RefreshScheduler) Register(expr string) error {
	if _, err := s.Cron.AddFunc(expr, s.RunOnce); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *RefreshScheduler) Start() {
	s.Cron.Start()
	s.Logger.Info("Refresh scheduler started")
}

// -----------------------------------------------------------------------------

// Stop waits for a running refresh to finish.
func (s *RefreshScheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Logger.Info("Refresh scheduler stopped")
}

// -----------------------------------------------------------------------------

// RunOnce performs one refresh pass. Overlapping ticks are skipped.
func (s *RefreshScheduler) RunOnce() {
	if !s.running.CompareAndSwap(false, true) {
		s.Logger.Warning("Previous refresh still running, skipping tick")
		return
	}
	defer s.running.Store(false)

	if s.Ctx.Err() != nil {
		return
	}

	open := make(map[string]bool)
	for _, symbol := range s.Market.OpenSymbols(s.Refresher.SubscribedSymbols()) {
		open[symbol] = true
	}
	n := s.Refresher.RefreshSelections(s.Ctx, func(symbol string) bool { return open[symbol] })
	s.runs.Add(1)
	s.Logger.Debug("Refresh pass %d pushed %d selection(s)", s.runs.Load(), n)
}

// -----------------------------------------------------------------------------

func (s *RefreshScheduler) Runs() int64 {
	return s.runs.Load()
}
