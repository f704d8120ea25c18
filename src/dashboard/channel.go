package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"stock-forecast/src/helpers"
	"stock-forecast/src/logger"
	"stock-forecast/src/models"

	"github.com/gorilla/websocket"
)

const (
	writeWait   = 5 * time.Second
	eventBuffer = 64
)

// ErrNotConnected is returned by Subscribe before Connect or after Close.
var ErrNotConnected = errors.New("realtime channel is not connected")

// RealtimeChannel is the dashboard's push connection. It is built
// explicitly, bound to one session, and torn down with Close.
type RealtimeChannel struct {
	URL    string
	Logger *logger.Logger
	Dialer *websocket.Dialer

	mu        sync.Mutex
	conn      *websocket.Conn
	events    chan models.MPushMessage
	done      chan struct{}
	closeOnce sync.Once
}

// -----------------------------------------------------------------------------

func NewRealtimeChannel(url string, log *logger.Logger) *RealtimeChannel {
	return &RealtimeChannel{
		URL:    url,
		Logger: log,
		Dialer: websocket.DefaultDialer,
		events: make(chan models.MPushMessage, eventBuffer),
		done:   make(chan struct{}),
	}
}

// -----------------------------------------------------------------------------

// Connect dials the server and starts the read pump. A channel connects once.
func (rc *RealtimeChannel) Connect(ctx context.Context) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if rc.conn != nil {
		return errors.New("realtime channel already connected")
	}
	select {
	case <-rc.done:
		return ErrNotConnected
	default:
	}

	conn, _, err := rc.Dialer.DialContext(ctx, rc.URL, nil)
	if err != nil {
		return helpers.NewNetworkError("dial "+rc.URL, 0, err)
	}
	rc.conn = conn
	rc.Logger.Info("Connected to %s", rc.URL)

	go rc.readPump(conn)
	return nil
}

// -----------------------------------------------------------------------------

// Events yields decoded push envelopes. It is closed when the connection ends.
func (rc *RealtimeChannel) Events() <-chan models.MPushMessage {
	return rc.events
}

// -----------------------------------------------------------------------------

// Subscribe binds the connection to sel. The server tags every answer with
// generation.
func (rc *RealtimeChannel) Subscribe(sel models.MSelection, generation uint64) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if rc.conn == nil {
		return ErrNotConnected
	}

	rc.conn.SetWriteDeadline(time.Now().Add(writeWait))
	err := rc.conn.WriteJSON(models.MSubscribeCommand{
		Command:    "subscribe",
		Symbol:     sel.Symbol,
		Period:     sel.Period,
		Generation: generation,
	})
	if err != nil {
		return helpers.NewNetworkError("subscribe "+sel.String(), 0, err)
	}
	return nil
}

// -----------------------------------------------------------------------------

// Close ends the connection. It is safe to call more than once.
func (rc *RealtimeChannel) Close() error {
	var err error
	rc.closeOnce.Do(func() {
		close(rc.done)

		rc.mu.Lock()
		conn := rc.conn
		rc.conn = nil
		rc.mu.Unlock()

		if conn == nil {
			close(rc.events)
			return
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		err = conn.Close()
	})
	return err
}

// -----------------------------------------------------------------------------

func (rc *RealtimeChannel) readPump(conn *websocket.Conn) {
	defer close(rc.events)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-rc.done:
			default:
				rc.Logger.Warning("Push channel read failed: %v", err)
			}
			return
		}

		var msg models.MPushMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			rc.Logger.Warning("Skipping undecodable push frame: %v", err)
			continue
		}

		switch msg.Event {
		case models.EventStockUpdate, models.EventPredictions, models.EventError:
		default:
			rc.Logger.Debug("Skipping unknown push event %q", msg.Event)
			continue
		}

		select {
		case rc.events <- msg:
		case <-rc.done:
			return
		}
	}
}
