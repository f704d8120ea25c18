package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"testing"
	"time"

	"stock-forecast/src/helpers"
	"stock-forecast/src/logger"
	"stock-forecast/src/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPostgres(t *testing.T) (*PostgresDB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &PostgresDB{
		Config: &models.MConfig{},
		DB:     db,
		Schema: "stock-forecast",
		Logger: logger.NewLoggerWithOutput("ERROR", "postgres-test", io.Discard),
	}, mock
}

func TestPostgres_CreateTables(t *testing.T) {
	pg, mock := newMockPostgres(t)

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "stock-forecast".forecasts`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`ON "stock-forecast".forecasts (symbol, period, created_at)`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, pg.createTables())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SaveForecast(t *testing.T) {
	pg, mock := newMockPostgres(t)
	created := time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)
	rec := models.MForecastRecord{
		Symbol: "AAPL", Period: models.PeriodOneMonth, LastClose: 180, Slope: 1.5, Intercept: 170,
		Predictions: []models.MPredictionPoint{{PredictedPrice: 181.5, Date: "2024-01-05"}},
		CreatedAt:   created,
	}
	preds, err := json.Marshal(rec.Predictions)
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "stock-forecast".forecasts`)).
		WithArgs("AAPL", "1mo", 180.0, 1.5, 170.0, string(preds), created.UnixMilli()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, pg.SaveForecast(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SaveForecastFailureIsDatabaseError(t *testing.T) {
	pg, mock := newMockPostgres(t)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO`)).WillReturnError(errors.New("connection reset"))

	err := pg.SaveForecast(context.Background(), models.MForecastRecord{Symbol: "AAPL", Period: models.PeriodOneMonth})
	var dbErr *helpers.DatabaseError
	assert.ErrorAs(t, err, &dbErr)
}

func TestPostgres_LatestForecast(t *testing.T) {
	pg, mock := newMockPostgres(t)
	created := time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)

	cols := []string{"symbol", "period", "last_close", "slope", "intercept", "predictions", "created_at"}
	mock.ExpectQuery(regexp.QuoteMeta(`FROM "stock-forecast".forecasts WHERE symbol = $1 AND period = $2`)).
		WithArgs("AAPL", "1mo").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("AAPL", "1mo", 180.0, 1.5, 170.0, []byte(`[{"predicted_price":181.5}]`), created.UnixMilli()))

	got, err := pg.LatestForecast(context.Background(), models.MSelection{Symbol: "AAPL", Period: models.PeriodOneMonth})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "AAPL", got.Symbol)
	assert.Equal(t, models.PeriodOneMonth, got.Period)
	assert.Equal(t, 180.0, got.LastClose)
	assert.Equal(t, 1.5, got.Slope)
	assert.Equal(t, 170.0, got.Intercept)
	assert.Equal(t, created, got.CreatedAt)
	require.Len(t, got.Predictions, 1)
	assert.Equal(t, 181.5, got.Predictions[0].PredictedPrice)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_LatestForecastNoRows(t *testing.T) {
	pg, mock := newMockPostgres(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT symbol, period`)).
		WithArgs("MSFT", "6mo").
		WillReturnRows(sqlmock.NewRows([]string{"symbol"}))

	got, err := pg.LatestForecast(context.Background(), models.MSelection{Symbol: "MSFT", Period: models.PeriodSixMonths})
	require.NoError(t, err)
	assert.Nil(t, got)
}
