package models

// MHistoricalPoint is one realized price. The JSON field names match the
// /api/stocks wire format ("Date" is capitalized there).
type MHistoricalPoint struct {
	Date  string  `json:"Date"`
	Price float64 `json:"price"`
}
