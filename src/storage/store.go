package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"stock-forecast/src/interfaces"
	"stock-forecast/src/logger"
	"stock-forecast/src/models"
)

// NewForecastStore picks the forecast log backend from config. An empty
// db_type yields a store that accepts and forgets everything.
func NewForecastStore(cfg *models.MConfig, log *logger.Logger) (interfaces.IForecastStore, error) {
	switch cfg.Storage.DBType {
	case "":
		return NoopStore{}, nil
	case "sqlite":
		return NewAsyncSQLiteDB(cfg, log)
	case "postgres":
		return NewPostgresDB(cfg, log)
	}
	return nil, fmt.Errorf("unsupported db_type %q", cfg.Storage.DBType)
}

// -----------------------------------------------------------------------------

// NoopStore is used when no forecast log is configured.
type NoopStore struct{}

func (NoopStore) Initialize() error { return nil }
func (NoopStore) SaveForecast(context.Context, models.MForecastRecord) error {
	return nil
}
func (NoopStore) LatestForecast(context.Context, models.MSelection) (*models.MForecastRecord, error) {
	return nil, nil
}
func (NoopStore) Close() error { return nil }

// -----------------------------------------------------------------------------

type forecastRow struct {
	symbol      string
	period      string
	lastClose   float64
	slope       float64
	intercept   float64
	predictions []byte
	createdAt   int64
}

// -----------------------------------------------------------------------------

func toRow(rec models.MForecastRecord) (forecastRow, error) {
	preds, err := json.Marshal(rec.Predictions)
	if err != nil {
		return forecastRow{}, err
	}
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return forecastRow{
		symbol:      rec.Symbol,
		period:      string(rec.Period),
		lastClose:   rec.LastClose,
		slope:       rec.Slope,
		intercept:   rec.Intercept,
		predictions: preds,
		createdAt:   created.UTC().UnixMilli(),
	}, nil
}

// -----------------------------------------------------------------------------

func (r forecastRow) record() (*models.MForecastRecord, error) {
	rec := &models.MForecastRecord{
		Symbol:    r.symbol,
		Period:    models.Period(r.period),
		LastClose: r.lastClose,
		Slope:     r.slope,
		Intercept: r.intercept,
		CreatedAt: time.UnixMilli(r.createdAt).UTC(),
	}
	if err := json.Unmarshal(r.predictions, &rec.Predictions); err != nil {
		return nil, fmt.Errorf("corrupt predictions column: %w", err)
	}
	return rec, nil
}
