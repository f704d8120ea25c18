package interfaces

import (
	"context"

	"stock-forecast/src/models"
)

// -----------------------------------------------------------------------------
// IHistoricalSource fetches the historical series for a selection.
// -----------------------------------------------------------------------------

type IHistoricalSource interface {

	// Name returns the unique identifier of the source
	Name() string

	// -----------------------------------------------------------------------------

	// FetchHistory returns the chronological daily closes for the selection.
	FetchHistory(ctx context.Context, sel models.MSelection) ([]models.MHistoricalPoint, error)
}
