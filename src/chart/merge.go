package chart

import (
	"fmt"

	"stock-forecast/src/models"
)

// MergedSeries is the date-aligned view of a historical and a prediction
// series. A nil value is an absent point (JSON null), never zero.
//
// The non-absent ranges of Actual and Predicted are disjoint: the predicted
// trace starts on the slot after the last actual point.
type MergedSeries struct {
	Labels    []string   `json:"labels"`
	Actual    []*float64 `json:"actual"`
	Predicted []*float64 `json:"predicted"`

	// DroppedPredictions counts prediction points left out because there
	// was no historical date to anchor them to.
	DroppedPredictions int `json:"dropped_predictions,omitempty"`
}

// Len is the number of slots on the label axis.
func (m MergedSeries) Len() int {
	return len(m.Labels)
}

// Check verifies that the three axes have the same length.
func (m MergedSeries) Check() error {
	if len(m.Actual) != len(m.Labels) || len(m.Predicted) != len(m.Labels) {
		return fmt.Errorf("merged series misaligned: labels=%d actual=%d predicted=%d",
			len(m.Labels), len(m.Actual), len(m.Predicted))
	}
	return nil
}

// Merge aligns historical and predictions on one label axis.
//
// Historical slots come first, labelled with their date token. Prediction i
// is placed i+1 calendar days after the last historical date. With no
// historical points there is no anchor, so the predictions are dropped and
// counted in DroppedPredictions. If the last historical date cannot be
// parsed, the future slots are kept with empty labels.
func Merge(historical []models.MHistoricalPoint, predictions []models.MPredictionPoint) MergedSeries {
	if len(historical) == 0 {
		return MergedSeries{
			Labels:             []string{},
			Actual:             []*float64{},
			Predicted:          []*float64{},
			DroppedPredictions: len(predictions),
		}
	}

	total := len(historical) + len(predictions)
	merged := MergedSeries{
		Labels:    make([]string, 0, total),
		Actual:    make([]*float64, 0, total),
		Predicted: make([]*float64, 0, total),
	}

	for _, p := range historical {
		price := p.Price
		merged.Labels = append(merged.Labels, DateLabel(p.Date))
		merged.Actual = append(merged.Actual, &price)
		merged.Predicted = append(merged.Predicted, nil)
	}

	future := make([]string, len(predictions))
	if last, ok := ParseCalendarDate(historical[len(historical)-1].Date); ok {
		future = NextDates(last, len(predictions))
	}

	for i, p := range predictions {
		price := p.PredictedPrice
		merged.Labels = append(merged.Labels, future[i])
		merged.Actual = append(merged.Actual, nil)
		merged.Predicted = append(merged.Predicted, &price)
	}

	return merged
}
