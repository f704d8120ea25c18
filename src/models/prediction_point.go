package models

// MPredictionPoint is one forecast price. Its position in the series is the
// day offset after the last historical date; Date is informational only.
type MPredictionPoint struct {
	PredictedPrice float64 `json:"predicted_price"`
	Date           string  `json:"date,omitempty"`
}
