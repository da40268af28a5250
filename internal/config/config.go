package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP           HTTPConfig       `yaml:"http"`
	Database       DatabaseConfig   `yaml:"database"`
	Backup         BackupConfig     `yaml:"backup"`
	Redis          RedisConfig      `yaml:"redis"`
	Kafka          KafkaConfig      `yaml:"kafka"`
	Google         GoogleConfig     `yaml:"google"`
	Monitoring     MonitoringConfig `yaml:"monitoring"`
	Logging        LoggingConfig    `yaml:"logging"`
	Booking        BookingConfig    `yaml:"booking"`
	PropertiesPath string           `yaml:"properties_path"`
}

type HTTPConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	RatePerSecond  float64  `yaml:"rate_per_second"`
	RateBurst      int      `yaml:"rate_burst"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	IntervalHours int    `yaml:"interval_hours"`
	StoragePath   string `yaml:"storage_path"`
	RetentionDays int    `yaml:"retention_days"`
}

type RedisConfig struct {
	Address                string `yaml:"address"`
	Password               string `yaml:"password"`
	DB                     int    `yaml:"db"`
	AvailabilityTTLSeconds int    `yaml:"availability_ttl_seconds"`
}

type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type GoogleConfig struct {
	SheetsEnabled   bool   `yaml:"sheets_enabled"`
	CredentialsFile string `yaml:"credentials_file"`
	SpreadsheetID   string `yaml:"spreadsheet_id"`
	SheetName       string `yaml:"sheet_name"`
	SyncIntervalMin int    `yaml:"sync_interval_minutes"`
}

type MonitoringConfig struct {
	HealthCheckPort   int  `yaml:"health_check_port"`
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console | json
}

type BookingConfig struct {
	SessionTimeoutMinutes int `yaml:"session_timeout_minutes"`
	MaxQuoteNights        int `yaml:"max_quote_nights"`
	MaxAdvanceDays        int `yaml:"max_advance_days"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/vilo.db"
	}
	if cfg.PropertiesPath == "" {
		cfg.PropertiesPath = "configs/properties.yaml"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.Backup.StoragePath == "" {
		cfg.Backup.StoragePath = "data/backups"
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "vilo.bookings"
	}
	if cfg.Google.SheetName == "" {
		cfg.Google.SheetName = "Bookings"
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadProperties loads the property catalog referenced by the config.
func (c *Config) LoadProperties() (*PropertiesConfig, error) {
	return LoadPropertiesConfig(c.PropertiesPath)
}

func (c *Config) SessionTimeout() time.Duration {
	if c.Booking.SessionTimeoutMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.Booking.SessionTimeoutMinutes) * time.Minute
}

// MaxQuoteNights caps the length of a quoted or booked stay.
func (c *Config) MaxQuoteNights() int {
	if c.Booking.MaxQuoteNights <= 0 {
		return 90
	}
	return c.Booking.MaxQuoteNights
}

// MaxAdvanceDays limits how far ahead a stay may start.
func (c *Config) MaxAdvanceDays() int {
	if c.Booking.MaxAdvanceDays <= 0 {
		return 365
	}
	return c.Booking.MaxAdvanceDays
}

func (c *Config) AvailabilityTTL() time.Duration {
	if c.Redis.AvailabilityTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Redis.AvailabilityTTLSeconds) * time.Second
}

func (c *Config) SheetsSyncInterval() time.Duration {
	if c.Google.SyncIntervalMin <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.Google.SyncIntervalMin) * time.Minute
}

// Interval returns the time between backups, daily by default.
func (b BackupConfig) Interval() time.Duration {
	if b.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(b.IntervalHours) * time.Hour
}
