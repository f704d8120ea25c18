package models

import "time"

// MForecastRecord is one emitted forecast as kept by the forecast log.
type MForecastRecord struct {
	Symbol      string             `json:"symbol"`
	Period      Period             `json:"period"`
	LastClose   float64            `json:"last_close"`
	Slope       float64            `json:"slope"`
	Intercept   float64            `json:"intercept"`
	Predictions []MPredictionPoint `json:"predictions"`
	CreatedAt   time.Time          `json:"created_at"`
}
