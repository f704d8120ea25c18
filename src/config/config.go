package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"stock-forecast/src/helpers"
	"stock-forecast/src/models"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the YAML file.
const (
	EnvHost        = "FORECAST_HOST"
	EnvPort        = "FORECAST_PORT"
	EnvLogLevel    = "FORECAST_LOG_LEVEL"
	EnvDBType      = "FORECAST_DB_TYPE"
	EnvDBPath      = "FORECAST_DB_PATH"
	EnvDBConn      = "FORECAST_DB_CONNECTION_STRING"
	EnvRedisAddr   = "FORECAST_REDIS_ADDR"
	EnvServerURL   = "FORECAST_SERVER_URL"
	defaultHorizon = 10
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new Config from a YAML file, a .env file next to the
// working directory (optional) and FORECAST_* environment variables
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Unmarshal data into the models struct. Keys present in the file
	// overwrite the preset values, so an explicit zero horizon survives.
	modelConfig := models.MConfig{
		Forecast: models.MForecastConfig{HorizonDays: defaultHorizon},
	}
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.applyDefaults()

	// 3. Environment overlay
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := config.applyEnv(); err != nil {
		return nil, err
	}

	// 4. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, helpers.NewConfigurationError("config validation failed", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	if c.DataSource.Name == "" {
		c.DataSource.Name = "yahoo"
	}
	if c.DataSource.DefaultSymbol == "" {
		c.DataSource.DefaultSymbol = "AAPL"
	}
	if c.DataSource.DefaultPeriod == "" {
		c.DataSource.DefaultPeriod = string(models.PeriodOneMonth)
	}
	if c.Cache.TTLSeconds == 0 {
		c.Cache.TTLSeconds = 60
	}
	if c.Dashboard.RequestTimeout == 0 {
		c.Dashboard.RequestTimeout = 10
	}
}

// -----------------------------------------------------------------------------

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvHost); v != "" {
		c.Host = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", EnvPort, v, err)
		}
		c.Port = port
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvDBType); v != "" {
		c.Storage.DBType = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		c.Storage.DBPath = v
	}
	if v := os.Getenv(EnvDBConn); v != "" {
		c.Storage.DBConnectionString = v
	}
	if v := os.Getenv(EnvRedisAddr); v != "" {
		c.Cache.RedisAddr = v
		c.Cache.Enabled = true
	}
	if v := os.Getenv(EnvServerURL); v != "" {
		c.Dashboard.ServerURL = v
	}
	return nil
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}
	if c.GrpcPort != 0 && (c.GrpcPort <= 1024 || c.GrpcPort > 65535) {
		return fmt.Errorf("invalid grpc port number: %d", c.GrpcPort)
	}

	// Storage is optional; a type implies its location
	switch c.Storage.DBType {
	case "":
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return fmt.Errorf("connection string cannot be empty for postgres")
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.Storage.DBType)
	}

	if c.Cache.Enabled && c.Cache.RedisAddr == "" {
		return fmt.Errorf("redis address cannot be empty when cache is enabled")
	}
	if c.Cache.TTLSeconds < 0 {
		return fmt.Errorf("cache ttl cannot be negative")
	}

	if c.Network.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}
	if c.Network.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.Network.ConcurrentRequests <= 0 {
		return fmt.Errorf("concurrent requests must be greater than 0")
	}

	if c.DataSource.RefreshCron == "" {
		return fmt.Errorf("data source refresh_cron cannot be empty")
	}
	if _, err := cron.ParseStandard(c.DataSource.RefreshCron); err != nil {
		return fmt.Errorf("invalid refresh_cron '%s': %w", c.DataSource.RefreshCron, err)
	}
	if _, err := models.ParsePeriod(c.DataSource.DefaultPeriod); err != nil {
		return fmt.Errorf("data source default period: %w", err)
	}

	if c.Forecast.HorizonDays < 0 {
		return fmt.Errorf("forecast horizon cannot be negative")
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
