package models

import "encoding/json"

// Push channel event names.
const (
	EventStockUpdate = "stock_update"
	EventPredictions = "predictions"
	EventError       = "error"
)

// MPushMessage is the envelope of every server -> client websocket frame.
// Generation echoes the value of the subscribe command the event answers
// (0 for the connect-time push).
type MPushMessage struct {
	Event      string          `json:"event"`
	Symbol     string          `json:"symbol"`
	Period     Period          `json:"period"`
	Generation uint64          `json:"generation"`
	Data       json.RawMessage `json:"data,omitempty"`
	Message    string          `json:"message,omitempty"`
}

// MSubscribeCommand is the client -> server command binding a connection to
// a selection.
type MSubscribeCommand struct {
	Command    string `json:"command"`
	Symbol     string `json:"symbol"`
	Period     Period `json:"period"`
	Generation uint64 `json:"generation"`
}

// Selection returns the selection the command asks for.
func (c MSubscribeCommand) Selection() MSelection {
	return MSelection{Symbol: c.Symbol, Period: c.Period}
}
