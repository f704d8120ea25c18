package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"stock-forecast/src/helpers"
	"stock-forecast/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// delivery is a message addressed to one client.
type delivery struct {
	client  *Client
	message *models.MPushMessage
}

// selectionPush is the pair of frames produced for one selection.
type selectionPush struct {
	history     json.RawMessage
	predictions json.RawMessage
	err         error
}

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// handleWebsockets is the main Hub loop
func (s *FastAPIServer) handleWebsockets() {
	for {
		select {
		case <-s.ctx.Done():
			s.clientsMu.Lock()
			for client := range s.clients {
				delete(s.clients, client)
				close(client.send)
			}
			s.clientsMu.Unlock()
			return

		case client := <-s.register:
			s.clientsMu.Lock()
			s.clients[client] = struct{}{}
			s.clientsMu.Unlock()
			s.Logger.Info("Client %s connected (%d total)", client.ID, s.ConnectionCount())

		case client := <-s.unregister:
			s.clientsMu.Lock()
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.send)
			}
			s.clientsMu.Unlock()

		case d := <-s.deliver:
			s.clientsMu.Lock()
			if _, ok := s.clients[d.client]; ok {
				select {
				case d.client.send <- d.message:
				default:
					// Client too slow, disconnect to prevent Hub blocking
					s.Logger.Warning("Dropping slow client %s", d.client.ID)
					delete(s.clients, d.client)
					close(d.client.send)
				}
			}
			s.clientsMu.Unlock()
		}
	}
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) registerClient(c *Client) bool {
	select {
	case s.register <- c:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) unregisterClient(c *Client) {
	select {
	case s.unregister <- c:
	case <-s.ctx.Done():
	}
}

// -----------------------------------------------------------------------------

// send queues a message for one client. It never blocks past shutdown.
func (s *FastAPIServer) send(c *Client, msg *models.MPushMessage) {
	select {
	case s.deliver <- delivery{client: c, message: msg}:
	case <-s.ctx.Done():
	}
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) ConnectionCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) subscriptions() []subscription {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	subs := make([]subscription, 0, len(s.clients))
	for client := range s.clients {
		if sub, ok := client.current(); ok {
			subs = append(subs, sub)
		}
	}
	return subs
}

// -----------------------------------------------------------------------------

// SubscribedSymbols lists each symbol some client is subscribed to, once.
func (s *FastAPIServer) SubscribedSymbols() []string {
	seen := make(map[string]bool)
	var symbols []string
	for _, sub := range s.subscriptions() {
		if !seen[sub.selection.Symbol] {
			seen[sub.selection.Symbol] = true
			symbols = append(symbols, sub.selection.Symbol)
		}
	}
	return symbols
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

// handleWebSocket upgrades the connection. With ?symbol= it is bound right
// away and gets a generation-0 push.
func (s *FastAPIServer) handleWebSocket(c *gin.Context) {
	var initial *models.MSelection
	if c.Query("symbol") != "" {
		sel, err := s.selectionFromQuery(c)
		if err != nil {
			writeError(c, err)
			return
		}
		initial = &sel
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := newClient(s, conn)
	if initial != nil {
		client.bind(*initial, 0)
	}
	if !s.registerClient(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()

	if initial != nil {
		go s.pushSelection(client, *initial, 0)
	}
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

func (s *FastAPIServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MSubscribeCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse command from %s: %v, disconnecting client", client.ID, err)
		client.conn.Close()
		return
	}

	if cmd.Command != "subscribe" {
		s.Logger.Debug("Ignoring command %q from %s", cmd.Command, client.ID)
		return
	}

	sel := cmd.Selection()
	sel.Symbol = strings.ToUpper(strings.TrimSpace(sel.Symbol))
	if sel.Symbol == "" {
		s.send(client, errorMessage(sel, cmd.Generation, helpers.NewValidationError("symbol is required")))
		return
	}
	period, err := models.ParsePeriod(string(sel.Period))
	if err != nil {
		s.send(client, errorMessage(sel, cmd.Generation, err))
		return
	}
	sel.Period = period

	client.bind(sel, cmd.Generation)
	go s.pushSelection(client, sel, cmd.Generation)
}

// -----------------------------------------------------------------------------
// Push Flow
// -----------------------------------------------------------------------------

// pushSelection sends stock_update then predictions for sel to one client.
func (s *FastAPIServer) pushSelection(client *Client, sel models.MSelection, generation uint64) {
	push := s.buildPush(s.ctx, sel, false)
	s.deliverPush(client, sel, generation, push)
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) deliverPush(client *Client, sel models.MSelection, generation uint64, push selectionPush) {
	if push.err != nil {
		s.send(client, errorMessage(sel, generation, push.err))
		return
	}

	s.send(client, &models.MPushMessage{
		Event: models.EventStockUpdate, Symbol: sel.Symbol, Period: sel.Period,
		Generation: generation, Data: push.history,
	})
	if push.predictions != nil {
		s.send(client, &models.MPushMessage{
			Event: models.EventPredictions, Symbol: sel.Symbol, Period: sel.Period,
			Generation: generation, Data: push.predictions,
		})
	}
}

// -----------------------------------------------------------------------------

// buildPush fetches history, forecasts it and records the forecast.
func (s *FastAPIServer) buildPush(ctx context.Context, sel models.MSelection, fresh bool) selectionPush {
	points, err := s.history(ctx, sel, fresh)
	if err != nil {
		s.Logger.Warning("History for %s failed: %v", sel, err)
		return selectionPush{err: err}
	}

	push := selectionPush{history: encodeData(points)}

	rec, err := s.Predictor.Predict(sel, points)
	if err != nil {
		var vErr *helpers.ValidationError
		if errors.As(err, &vErr) && len(points) == 0 {
			push.predictions = encodeData([]models.MPredictionPoint{})
			return push
		}
		s.Logger.Warning("Forecast for %s failed: %v", sel, err)
		return push
	}
	push.predictions = encodeData(rec.Predictions)

	if err := s.Errors.Execute(ctx, "save forecast", 1, func(ctx context.Context) error {
		return s.Store.SaveForecast(ctx, rec)
	}); err != nil {
		s.Logger.Warning("Forecast for %s not recorded: %v", sel, err)
	}
	return push
}

// -----------------------------------------------------------------------------

// RefreshSelections re-fetches every subscribed selection accepted by open
// and pushes it to its subscribers. It returns the number of selections
// refreshed.
func (s *FastAPIServer) RefreshSelections(ctx context.Context, open func(symbol string) bool) int {
	bySelection := make(map[models.MSelection][]subscription)
	for _, sub := range s.subscriptions() {
		bySelection[sub.selection] = append(bySelection[sub.selection], sub)
	}

	refreshed := 0
	for sel, subs := range bySelection {
		if ctx.Err() != nil {
			break
		}
		if open != nil && !open(sel.Symbol) {
			continue
		}

		push := s.buildPush(ctx, sel, true)
		for _, sub := range subs {
			// the client may have re-subscribed while we fetched
			if cur, ok := sub.client.current(); !ok || cur.selection != sel || cur.generation != sub.generation {
				continue
			}
			s.deliverPush(sub.client, sel, sub.generation, push)
		}
		refreshed++
	}

	if refreshed > 0 {
		s.Logger.Info("Refreshed %d selection(s) for %d client(s)", refreshed, s.ConnectionCount())
	}
	return refreshed
}

// -----------------------------------------------------------------------------

func errorMessage(sel models.MSelection, generation uint64, err error) *models.MPushMessage {
	return &models.MPushMessage{
		Event:      models.EventError,
		Symbol:     sel.Symbol,
		Period:     sel.Period,
		Generation: generation,
		Message:    err.Error(),
	}
}
