package dashboard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"stock-forecast/src/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pushServer answers every subscribe with junk, an unknown event and a
// stock_update echoing the command's generation.
func pushServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var cmd models.MSubscribeCommand
			if err := conn.ReadJSON(&cmd); err != nil {
				return
			}
			_ = conn.WriteMessage(websocket.TextMessage, []byte("not json"))
			_ = conn.WriteJSON(models.MPushMessage{Event: "heartbeat"})
			_ = conn.WriteJSON(models.MPushMessage{
				Event: models.EventStockUpdate, Symbol: cmd.Symbol, Period: cmd.Period,
				Generation: cmd.Generation, Data: []byte(`[{"Date":"2024-01-02","price":1}]`),
			})
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func TestRealtimeChannel_SubscribeAndReceive(t *testing.T) {
	srv := pushServer(t)
	rc := NewRealtimeChannel(wsURL(srv), quietLogger())
	require.NoError(t, rc.Connect(context.Background()))
	defer rc.Close()

	require.NoError(t, rc.Subscribe(models.MSelection{Symbol: "AAPL", Period: models.PeriodOneMonth}, 7))

	select {
	case msg := <-rc.Events():
		assert.Equal(t, models.EventStockUpdate, msg.Event)
		assert.Equal(t, uint64(7), msg.Generation)
		assert.Equal(t, "AAPL", msg.Symbol)
	case <-time.After(5 * time.Second):
		t.Fatal("no push received")
	}
}

func TestRealtimeChannel_SubscribeBeforeConnect(t *testing.T) {
	rc := NewRealtimeChannel("ws://127.0.0.1:1/ws", quietLogger())
	assert.ErrorIs(t, rc.Subscribe(models.MSelection{Symbol: "AAPL"}, 1), ErrNotConnected)
}

func TestRealtimeChannel_CloseEndsEvents(t *testing.T) {
	srv := pushServer(t)
	rc := NewRealtimeChannel(wsURL(srv), quietLogger())
	require.NoError(t, rc.Connect(context.Background()))

	require.NoError(t, rc.Close())
	assert.NoError(t, rc.Close())

	select {
	case _, ok := <-rc.Events():
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("events channel not closed")
	}

	assert.ErrorIs(t, rc.Subscribe(models.MSelection{Symbol: "AAPL"}, 1), ErrNotConnected)
	assert.Error(t, rc.Connect(context.Background()))
}

func TestRealtimeChannel_DialFailure(t *testing.T) {
	rc := NewRealtimeChannel("ws://127.0.0.1:1/ws", quietLogger())
	assert.Error(t, rc.Connect(context.Background()))
}
