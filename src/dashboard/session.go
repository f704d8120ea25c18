package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"stock-forecast/src/chart"
	"stock-forecast/src/helpers"
	"stock-forecast/src/logger"
	"stock-forecast/src/models"
)

// Fetcher loads one selection's history.
type Fetcher interface {
	Fetch(ctx context.Context, sel models.MSelection) ([]models.MHistoricalPoint, error)
}

// PushChannel is the subset of RealtimeChannel a Session needs.
type PushChannel interface {
	Subscribe(sel models.MSelection, generation uint64) error
	Events() <-chan models.MPushMessage
}

// ErrSessionClosed is returned by SetSelection once Run has returned.
var ErrSessionClosed = errors.New("dashboard session closed")

// Session owns the chart State. A single goroutine (Run) applies every
// selection change, fetch result and push event through chart.Reduce, so
// no two handlers ever race on the state.
type Session struct {
	Fetcher      Fetcher
	Channel      PushChannel // nil runs without push updates
	Logger       *logger.Logger
	FetchTimeout time.Duration

	selections chan models.MSelection
	results    chan chart.Event
	updates    chan chart.State
	done       chan struct{}
}

// -----------------------------------------------------------------------------

func NewSession(fetcher Fetcher, channel PushChannel, log *logger.Logger) *Session {
	return &Session{
		Fetcher:      fetcher,
		Channel:      channel,
		Logger:       log,
		FetchTimeout: 10 * time.Second,
		selections:   make(chan models.MSelection, 16),
		results:      make(chan chart.Event, 16),
		updates:      make(chan chart.State, 1),
		done:         make(chan struct{}),
	}
}

// -----------------------------------------------------------------------------

// Updates carries the latest State after every transition. Only the most
// recent snapshot is kept if the reader falls behind. It is closed when Run
// returns.
func (s *Session) Updates() <-chan chart.State {
	return s.updates
}

// -----------------------------------------------------------------------------

// SetSelection validates and queues a selection change. An empty period
// means 1mo.
func (s *Session) SetSelection(sel models.MSelection) error {
	sel.Symbol = strings.ToUpper(strings.TrimSpace(sel.Symbol))
	if sel.Symbol == "" {
		return helpers.NewValidationError("symbol is required")
	}
	period, err := models.ParsePeriod(string(sel.Period))
	if err != nil {
		return helpers.NewValidationError(err.Error())
	}
	sel.Period = period

	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}

	select {
	case s.selections <- sel:
		return nil
	case <-s.done:
		return ErrSessionClosed
	}
}

// -----------------------------------------------------------------------------

// Run is the event loop. It returns ctx.Err() when ctx ends.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.updates)
	defer close(s.done)

	state := chart.NewState()
	var pushes <-chan models.MPushMessage
	if s.Channel != nil {
		pushes = s.Channel.Events()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case sel := <-s.selections:
			state = chart.Reduce(state, chart.SelectionChanged{Selection: sel})
			s.startFetch(ctx, sel, state.Generation)
			if s.Channel != nil {
				if err := s.Channel.Subscribe(sel, state.Generation); err != nil {
					s.Logger.Warning("Subscribe %s failed: %v", sel, err)
				}
			}

		case ev := <-s.results:
			state = chart.Reduce(state, ev)

		case msg, ok := <-pushes:
			if !ok {
				s.Logger.Warning("Push channel closed; continuing without live updates")
				pushes = nil
				continue
			}
			ev, err := PushEvent(msg)
			if err != nil {
				s.Logger.Warning("Ignoring push %s: %v", msg.Event, err)
				continue
			}
			state = chart.Reduce(state, ev)
		}

		s.publish(state)
	}
}

// -----------------------------------------------------------------------------

func (s *Session) startFetch(ctx context.Context, sel models.MSelection, generation uint64) {
	go func() {
		fetchCtx, cancel := context.WithTimeout(ctx, s.FetchTimeout)
		defer cancel()

		var ev chart.Event
		points, err := s.Fetcher.Fetch(fetchCtx, sel)
		if err != nil {
			s.Logger.Warning("History fetch %s (gen %d) failed: %v", sel, generation, err)
			ev = chart.HistoryFailed{Generation: generation, Err: err}
		} else {
			ev = chart.HistoryLoaded{Generation: generation, Points: points}
		}

		select {
		case s.results <- ev:
		case <-ctx.Done():
		}
	}()
}

// -----------------------------------------------------------------------------

func (s *Session) publish(state chart.State) {
	select {
	case s.updates <- state:
		return
	default:
	}
	// replace the unread snapshot
	select {
	case <-s.updates:
	default:
	}
	s.updates <- state
}

// -----------------------------------------------------------------------------

// PushEvent converts a push envelope into a reducer event.
func PushEvent(msg models.MPushMessage) (chart.Event, error) {
	switch msg.Event {
	case models.EventStockUpdate:
		var points []models.MHistoricalPoint
		if err := json.Unmarshal(msg.Data, &points); err != nil {
			return nil, helpers.NewDataSourceError("malformed stock_update payload", err)
		}
		return chart.StockUpdate{Generation: msg.Generation, Points: points}, nil

	case models.EventPredictions:
		var points []models.MPredictionPoint
		if err := json.Unmarshal(msg.Data, &points); err != nil {
			return nil, helpers.NewDataSourceError("malformed predictions payload", err)
		}
		return chart.PredictionsUpdate{Generation: msg.Generation, Points: points}, nil

	case models.EventError:
		return chart.HistoryFailed{
			Generation: msg.Generation,
			Err:        helpers.NewDataSourceError("server: "+msg.Message, nil),
		}, nil
	}
	return nil, fmt.Errorf("unknown event %q", msg.Event)
}
