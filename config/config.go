// Package config loads pipeline configuration from a YAML file with
// ${VAR} environment expansion, falling back to environment variables and
// built-in defaults when no file is given.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root pipeline configuration.
type Config struct {
	Pipeline PipelineConfig `yaml:"pipeline"`
	Binance  BinanceConfig  `yaml:"binance"`
	Holidays HolidaysConfig `yaml:"holidays"`
	Database DatabaseConfig `yaml:"database"`
	Output   OutputConfig   `yaml:"output"`
}

// PipelineConfig fixes the run context: the one exchange and timeframe
// every bridge and fact row of a run is tagged with, and the default date
// window for the date dimension.
type PipelineConfig struct {
	Exchange  string `yaml:"exchange"`
	Timeframe string `yaml:"timeframe"`
	DimStart  string `yaml:"dim_start"`
	DimEnd    string `yaml:"dim_end"`
}

// BinanceConfig holds kline extractor settings.
type BinanceConfig struct {
	BaseURL string `yaml:"base_url"`
	Limit   int    `yaml:"limit"`
}

// HolidaysConfig holds the holiday source settings.
type HolidaysConfig struct {
	BaseURL  string `yaml:"base_url"`
	FromYear int    `yaml:"from_year"`
	ToYear   int    `yaml:"to_year"`
}

// DatabaseConfig holds the Postgres sink connection.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

// OutputConfig holds file sink settings.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// DSN renders the gorm/pgx connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// Default returns the configuration used when no file is supplied. Database
// settings fall back to environment variables the way the ingest tooling
// always has.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads a YAML config file, expands ${VAR} references, applies
// defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Pipeline.Exchange == "" {
		c.Pipeline.Exchange = "Binance"
	}
	if c.Pipeline.Timeframe == "" {
		c.Pipeline.Timeframe = "1d"
	}
	if c.Pipeline.DimStart == "" {
		c.Pipeline.DimStart = "2015-01-01"
	}
	if c.Pipeline.DimEnd == "" {
		c.Pipeline.DimEnd = "2025-12-31"
	}
	if c.Binance.BaseURL == "" {
		c.Binance.BaseURL = "https://api3.binance.com"
	}
	if c.Binance.Limit <= 0 {
		c.Binance.Limit = 500
	}
	if c.Holidays.BaseURL == "" {
		c.Holidays.BaseURL = "https://date.nager.at"
	}
	if c.Holidays.FromYear == 0 {
		c.Holidays.FromYear = 2017
	}
	if c.Holidays.ToYear == 0 {
		c.Holidays.ToYear = 2024
	}
	if c.Database.Host == "" {
		c.Database.Host = getEnv("DB_HOST", "localhost")
	}
	if c.Database.Port == "" {
		c.Database.Port = getEnv("DB_PORT", "5432")
	}
	if c.Database.User == "" {
		c.Database.User = getEnv("DB_USER", "postgres")
	}
	if c.Database.Password == "" {
		c.Database.Password = getEnv("DB_PASSWORD", "password")
	}
	if c.Database.Name == "" {
		c.Database.Name = getEnv("DB_NAME", "cryptostar")
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "data"
	}
}

// Validate rejects configurations that would corrupt a run.
func (c *Config) Validate() error {
	if c.Pipeline.Exchange == "" {
		return fmt.Errorf("pipeline.exchange must be set")
	}
	if c.Pipeline.Timeframe == "" {
		return fmt.Errorf("pipeline.timeframe must be set")
	}
	if c.Holidays.FromYear > c.Holidays.ToYear {
		return fmt.Errorf("holidays.from_year %d is after holidays.to_year %d", c.Holidays.FromYear, c.Holidays.ToYear)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
