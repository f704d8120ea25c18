package chart

import (
	"stock-forecast/src/models"
)

// Phase is the lifecycle position of a dashboard State.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	}
	return "unknown"
}

// State is everything the chart shows for the current selection.
//
// Generation increases on every selection change. Results are tagged with
// the generation they were requested under, and Reduce drops any result
// whose tag is not the current generation.
type State struct {
	Phase       Phase
	Selection   models.MSelection
	Generation  uint64
	Historical  []models.MHistoricalPoint
	Predictions []models.MPredictionPoint
	Merged      MergedSeries

	// Err is the last fetch failure for the current generation. Stale is
	// set with it when the series on display predate the failure.
	Err   error
	Stale bool

	// Discarded counts results dropped for carrying an old generation.
	Discarded int
}

// NewState returns the Idle state with an empty merged series.
func NewState() State {
	return State{Merged: Merge(nil, nil)}
}

// Event is one input to Reduce.
type Event interface {
	isEvent()
}

// SelectionChanged starts a new generation for the given selection.
type SelectionChanged struct {
	Selection models.MSelection
}

// HistoryLoaded is a successful historical fetch.
type HistoryLoaded struct {
	Generation uint64
	Points     []models.MHistoricalPoint
}

// HistoryFailed is a failed historical fetch.
type HistoryFailed struct {
	Generation uint64
	Err        error
}

// StockUpdate is a pushed full replacement of the historical series.
type StockUpdate struct {
	Generation uint64
	Points     []models.MHistoricalPoint
}

// PredictionsUpdate is a pushed full replacement of the prediction series.
type PredictionsUpdate struct {
	Generation uint64
	Points     []models.MPredictionPoint
}

func (SelectionChanged) isEvent()  {}
func (HistoryLoaded) isEvent()     {}
func (HistoryFailed) isEvent()     {}
func (StockUpdate) isEvent()       {}
func (PredictionsUpdate) isEvent() {}

// Reduce is the pure transition function of the dashboard. It never
// mutates s; series are replaced wholesale and Merged is recomputed on
// every accepted replacement.
func Reduce(s State, e Event) State {
	switch ev := e.(type) {
	case SelectionChanged:
		next := s
		next.Generation = s.Generation + 1
		next.Phase = PhaseLoading
		next.Err = nil
		next.Stale = false
		// Another symbol or period makes everything on display foreign.
		// Re-selecting the same pair keeps it until the new data lands.
		if ev.Selection != s.Selection {
			next.Selection = ev.Selection
			next.Historical = nil
			next.Predictions = nil
			next.Merged = Merge(nil, nil)
		}
		return next

	case HistoryLoaded:
		if !s.accepts(ev.Generation) {
			return s.discard()
		}
		return s.withHistorical(ev.Points)

	case StockUpdate:
		if !s.accepts(ev.Generation) {
			return s.discard()
		}
		return s.withHistorical(ev.Points)

	case HistoryFailed:
		if !s.accepts(ev.Generation) {
			return s.discard()
		}
		next := s
		next.Phase = PhaseReady
		next.Err = ev.Err
		next.Stale = true
		return next

	case PredictionsUpdate:
		if !s.accepts(ev.Generation) {
			return s.discard()
		}
		next := s
		next.Predictions = ev.Points
		next.Merged = Merge(next.Historical, next.Predictions)
		return next
	}
	return s
}

func (s State) accepts(generation uint64) bool {
	return s.Phase != PhaseIdle && generation == s.Generation
}

func (s State) discard() State {
	s.Discarded++
	return s
}

func (s State) withHistorical(points []models.MHistoricalPoint) State {
	s.Historical = points
	s.Merged = Merge(s.Historical, s.Predictions)
	s.Phase = PhaseReady
	s.Err = nil
	s.Stale = false
	return s
}
