package interfaces

import "stock-forecast/src/models"

// -----------------------------------------------------------------------------
// IPredictor turns a historical series into a forecast.
// -----------------------------------------------------------------------------

type IPredictor interface {
	Predict(sel models.MSelection, history []models.MHistoricalPoint) (models.MForecastRecord, error)
}
