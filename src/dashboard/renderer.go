package dashboard

import (
	"context"
	"strconv"
	"strings"

	"stock-forecast/src/chart"
	"stock-forecast/src/logger"
)

// Renderer draws one chart State. Implementations must not keep references
// to the slices in the state.
type Renderer interface {
	Render(state chart.State) error
}

// LogRenderer writes a one-line summary of each state plus the tail of the
// merged series.
type LogRenderer struct {
	Logger *logger.Logger
	Tail   int
}

func NewLogRenderer(log *logger.Logger) *LogRenderer {
	return &LogRenderer{Logger: log, Tail: 5}
}

func (r *LogRenderer) Render(state chart.State) error {
	m := state.Merged
	r.Logger.Info("%s [%s gen=%d] points=%d actual=%d predicted=%d dropped=%d discarded=%d",
		state.Selection, state.Phase, state.Generation, m.Len(),
		len(state.Historical), len(state.Predictions), m.DroppedPredictions, state.Discarded)

	if state.Err != nil {
		stale := ""
		if state.Stale {
			stale = " (showing previous data)"
		}
		r.Logger.Warning("%s: %v%s", state.Selection, state.Err, stale)
	}

	start := m.Len() - r.Tail
	if start < 0 {
		start = 0
	}
	var b strings.Builder
	for i := start; i < m.Len(); i++ {
		b.WriteString(m.Labels[i])
		b.WriteString("=")
		b.WriteString(formatPoint(m.Actual[i], m.Predicted[i]))
		if i < m.Len()-1 {
			b.WriteString(" ")
		}
	}
	if b.Len() > 0 {
		r.Logger.Debug("tail: %s", b.String())
	}
	return nil
}

// -----------------------------------------------------------------------------

func formatPoint(actual, predicted *float64) string {
	switch {
	case actual != nil:
		return strconv.FormatFloat(*actual, 'f', 2, 64)
	case predicted != nil:
		return "~" + strconv.FormatFloat(*predicted, 'f', 2, 64)
	}
	return "-"
}

// -----------------------------------------------------------------------------

// Drive renders every update until the session closes its updates channel
// or ctx ends.
func Drive(ctx context.Context, updates <-chan chart.State, r Renderer) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case st, ok := <-updates:
			if !ok {
				return nil
			}
			if err := r.Render(st); err != nil {
				return err
			}
		}
	}
}
