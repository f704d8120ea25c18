package models

// MConfig Structure
type MConfig struct {
	Name       string            `yaml:"name"`
	Host       string            `yaml:"host"`
	Port       int               `yaml:"port"`
	LogLevel   string            `yaml:"log_level"`
	GrpcHost   string            `yaml:"grpc_host"`
	GrpcPort   int               `yaml:"grpc_port"`
	Storage    MStorageConfig    `yaml:"storage"`
	Cache      MCacheConfig      `yaml:"cache"`
	Network    MNetworkConfig    `yaml:"network"`
	DataSource MDataSourceConfig `yaml:"data_source"`
	Forecast   MForecastConfig   `yaml:"forecast"`
	Dashboard  MDashboardConfig  `yaml:"dashboard"`
}

// MStorageConfig selects the forecast log backend. An empty DBType disables it.
type MStorageConfig struct {
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
}

type MCacheConfig struct {
	Enabled    bool   `yaml:"enabled"`
	RedisAddr  string `yaml:"redis_addr"`
	RedisDB    int    `yaml:"redis_db"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

type MNetworkConfig struct {
	Enabled            bool     `yaml:"enabled"`
	Proxies            []string `yaml:"proxies,omitempty"`
	RequestTimeout     int      `yaml:"timeout"`
	MaxRetries         int      `yaml:"retries"`
	ConcurrentRequests int      `yaml:"concurrent_requests"`
	UserAgent          string   `yaml:"user_agent"`
}

type MDataSourceConfig struct {
	Name          string `yaml:"name"`
	DefaultSymbol string `yaml:"default_symbol"`
	DefaultPeriod string `yaml:"default_period"`
	RefreshCron   string `yaml:"refresh_cron"` // e.g. "@every 1m"
}

type MForecastConfig struct {
	HorizonDays int `yaml:"horizon_days"`
}

// MDashboardConfig is read by cmd/dashboard only.
type MDashboardConfig struct {
	ServerURL      string `yaml:"server_url"`
	RequestTimeout int    `yaml:"timeout"`
}
