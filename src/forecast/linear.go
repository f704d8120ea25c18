package forecast

import (
	"math"
	"time"

	"stock-forecast/src/chart"
	"stock-forecast/src/helpers"
	"stock-forecast/src/models"

	"gonum.org/v1/gonum/stat"
)

// LinearTrend fits price = intercept + slope*dayIndex by ordinary least
// squares and extends the line Horizon points past the last observation.
type LinearTrend struct {
	Horizon int
	Now     func() time.Time
}

func NewLinearTrend(horizon int) *LinearTrend {
	return &LinearTrend{Horizon: horizon, Now: time.Now}
}

// Predict implements interfaces.IPredictor. Prediction dates start today,
// one per calendar day, as informational labels only.
func (lt *LinearTrend) Predict(sel models.MSelection, history []models.MHistoricalPoint) (models.MForecastRecord, error) {
	if len(history) == 0 {
		return models.MForecastRecord{}, helpers.NewValidationError("cannot forecast an empty history for " + sel.String())
	}

	xs := make([]float64, len(history))
	ys := make([]float64, len(history))
	for i, p := range history {
		xs[i] = float64(i)
		ys[i] = p.Price
	}

	var intercept, slope float64
	if len(history) == 1 {
		intercept = ys[0]
	} else {
		intercept, slope = stat.LinearRegression(xs, ys, nil, false)
	}
	if math.IsNaN(slope) || math.IsNaN(intercept) {
		return models.MForecastRecord{}, helpers.NewDataSourceError("regression did not converge for "+sel.String(), nil)
	}

	now := lt.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	dates := append([]string{today.Format(chart.DateLayout)}, chart.NextDates(today, lt.Horizon-1)...)

	preds := make([]models.MPredictionPoint, lt.Horizon)
	for i := range preds {
		x := float64(len(history) + i)
		preds[i] = models.MPredictionPoint{
			PredictedPrice: intercept + slope*x,
			Date:           dates[i],
		}
	}

	return models.MForecastRecord{
		Symbol:      sel.Symbol,
		Period:      sel.Period,
		LastClose:   ys[len(ys)-1],
		Slope:       slope,
		Intercept:   intercept,
		Predictions: preds,
		CreatedAt:   now.UTC(),
	}, nil
}
