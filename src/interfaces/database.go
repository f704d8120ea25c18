package interfaces

import (
	"context"

	"stock-forecast/src/models"
)

// -----------------------------------------------------------------------------
// IForecastStore defines the contract for the forecast log.
// -----------------------------------------------------------------------------

type IForecastStore interface {

	// -----------------------------------------------------------------------------

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SaveForecast appends one emitted forecast.
	SaveForecast(ctx context.Context, rec models.MForecastRecord) error

	// -----------------------------------------------------------------------------

	// LatestForecast returns the most recent forecast for a selection, or nil.
	LatestForecast(ctx context.Context, sel models.MSelection) (*models.MForecastRecord, error)

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
