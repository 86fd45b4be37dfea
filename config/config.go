// Package config loads the kuro configuration from YAML, the environment
// and an optional .env file.
package config

import (
	"path/filepath"
	"time"
)

const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongodb"
)

type Config struct {
	DataDir    string           `yaml:"data_dir" validate:"required"`
	Storage    StorageConfig    `yaml:"storage"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Context    ContextConfig    `yaml:"context"`
	Web        WebConfig        `yaml:"web"`
	Log        LogConfig        `yaml:"log"`
}

type StorageConfig struct {
	Driver   string `yaml:"driver" validate:"oneof=file sqlite postgres mongodb"`
	DSN      string `yaml:"dsn"`
	Database string `yaml:"database"`
}

type ClassifierConfig struct {
	Enabled             bool    `yaml:"enabled"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold" validate:"gt=0,lte=1"`
	MinRecords          int     `yaml:"min_records" validate:"min=2"`
}

type ContextConfig struct {
	Size int `yaml:"size" validate:"min=1,max=1000"`
}

type WebConfig struct {
	Enabled          bool          `yaml:"enabled"`
	Engine           string        `yaml:"engine" validate:"required"`
	BaseURL          string        `yaml:"base_url" validate:"omitempty,url"`
	Timeout          time.Duration `yaml:"timeout" validate:"gt=0"`
	NegativeCacheTTL time.Duration `yaml:"negative_cache_ttl" validate:"min=0"`
	UserAgent        string        `yaml:"user_agent"`
}

type LogConfig struct {
	Level      string `yaml:"level" validate:"oneof=debug info warn error"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" validate:"min=0"`
	MaxBackups int    `yaml:"max_backups" validate:"min=0"`
	MaxAgeDays int    `yaml:"max_age_days" validate:"min=0"`
}

// Default is a working configuration: JSON file storage under
// ./aprendizado, classifier on, web lookup on.
func Default() *Config {
	return &Config{
		DataDir: "aprendizado",
		Storage: StorageConfig{Driver: DriverFile},
		Classifier: ClassifierConfig{
			Enabled:             true,
			ConfidenceThreshold: 0.55,
			MinRecords:          5,
		},
		Context: ContextConfig{Size: 10},
		Web: WebConfig{
			Enabled:          true,
			Engine:           "google",
			BaseURL:          "https://www.google.com",
			Timeout:          10 * time.Second,
			NegativeCacheTTL: 10 * time.Minute,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// SQLitePath is the database file used when the sqlite driver has no dsn.
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "kuro.db")
}
