package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"stock-forecast/src/helpers"
	"stock-forecast/src/logger"
	"stock-forecast/src/models"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

type PostgresDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

// NewPostgresDB uses the executable name as the schema so several services
// can share one database.
func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable name: %w", err)
	}
	name := filepath.Base(exe)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	return &PostgresDB{
		Config: cfg,
		Schema: name,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	db, err := sql.Open("postgres", d.Config.Storage.DBConnectionString)
	if err != nil {
		return helpers.NewDatabaseError("open postgres", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return helpers.NewDatabaseError("ping postgres", err)
	}

	d.DB = db

	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", d.Schema, err)
	}

	if err := d.createTables(); err != nil {
		return err
	}

	d.Logger.Info("PostgresDB initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) table() string {
	return fmt.Sprintf(`"%s".forecasts`, d.Schema)
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) createTables() error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			symbol TEXT NOT NULL,
			period TEXT NOT NULL,
			last_close DOUBLE PRECISION,
			slope DOUBLE PRECISION,
			intercept DOUBLE PRECISION,
			predictions JSONB NOT NULL,
			created_at BIGINT NOT NULL
		);
	`, d.table())
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create forecasts: %w", err)
	}

	idx := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_forecasts_selection ON %s (symbol, period, created_at)`, d.table())
	if _, err := d.DB.Exec(idx); err != nil {
		return fmt.Errorf("failed to index forecasts: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) SaveForecast(ctx context.Context, rec models.MForecastRecord) error {
	row, err := toRow(rec)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (symbol, period, last_close, slope, intercept, predictions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`, d.table())
	if _, err := d.DB.ExecContext(ctx, query,
		row.symbol, row.period, row.lastClose, row.slope, row.intercept, string(row.predictions), row.createdAt); err != nil {
		return helpers.NewDatabaseError("save forecast for "+rec.Symbol, err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) LatestForecast(ctx context.Context, sel models.MSelection) (*models.MForecastRecord, error) {
	query := fmt.Sprintf(`
		SELECT symbol, period, last_close, slope, intercept, predictions, created_at
		FROM %s WHERE symbol = $1 AND period = $2
		ORDER BY created_at DESC, id DESC LIMIT 1`, d.table())

	var row forecastRow
	err := d.DB.QueryRowContext(ctx, query, sel.Symbol, string(sel.Period)).
		Scan(&row.symbol, &row.period, &row.lastClose, &row.slope, &row.intercept, &row.predictions, &row.createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, helpers.NewDatabaseError("load forecast for "+sel.String(), err)
	}
	return row.record()
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
