package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"stock-forecast/src/helpers"
	"stock-forecast/src/logger"
	"stock-forecast/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type AsyncSQLiteDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewAsyncSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*AsyncSQLiteDB, error) {
	return &AsyncSQLiteDB{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Initialize() error {
	db, err := sql.Open("sqlite", d.Config.Storage.DBPath)
	if err != nil {
		return helpers.NewDatabaseError("open sqlite", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return helpers.NewDatabaseError("ping sqlite", err)
	}

	// one writer at a time
	db.SetMaxOpenConns(1)
	d.DB = db

	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.createTables()
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) createTables() error {
	query := `
		CREATE TABLE IF NOT EXISTS forecasts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol TEXT NOT NULL,
			period TEXT NOT NULL,
			last_close REAL,
			slope REAL,
			intercept REAL,
			predictions TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create forecasts: %w", err)
	}

	if _, err := d.DB.Exec(`CREATE INDEX IF NOT EXISTS idx_forecasts_selection ON forecasts (symbol, period, created_at)`); err != nil {
		return fmt.Errorf("failed to index forecasts: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) SaveForecast(ctx context.Context, rec models.MForecastRecord) error {
	row, err := toRow(rec)
	if err != nil {
		return err
	}

	_, err = d.DB.ExecContext(ctx, `
		INSERT INTO forecasts (symbol, period, last_close, slope, intercept, predictions, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		row.symbol, row.period, row.lastClose, row.slope, row.intercept, string(row.predictions), row.createdAt)
	if err != nil {
		return helpers.NewDatabaseError("save forecast for "+rec.Symbol, err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) LatestForecast(ctx context.Context, sel models.MSelection) (*models.MForecastRecord, error) {
	var row forecastRow
	var preds string
	err := d.DB.QueryRowContext(ctx, `
		SELECT symbol, period, last_close, slope, intercept, predictions, created_at
		FROM forecasts WHERE symbol = ? AND period = ?
		ORDER BY created_at DESC, id DESC LIMIT 1`,
		sel.Symbol, string(sel.Period),
	).Scan(&row.symbol, &row.period, &row.lastClose, &row.slope, &row.intercept, &preds, &row.createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, helpers.NewDatabaseError("load forecast for "+sel.String(), err)
	}
	row.predictions = []byte(preds)
	return row.record()
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
