package interfaces

import (
	"context"

	"stock-forecast/src/models"
)

// -----------------------------------------------------------------------------
// IHistoryCache caches historical responses per selection.
// -----------------------------------------------------------------------------

type IHistoryCache interface {
	Get(ctx context.Context, sel models.MSelection) ([]models.MHistoricalPoint, bool)
	Set(ctx context.Context, sel models.MSelection, points []models.MHistoricalPoint) error
}
