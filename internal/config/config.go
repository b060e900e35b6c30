package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application settings, populated from the environment.
// All variables are prefixed with FLIPPER_, e.g. FLIPPER_USER_AGENT.
type Config struct {
	// Upstream prices API.
	BaseURL   string `envconfig:"BASE_URL" default:"https://prices.runescape.wiki/api/v1/osrs"`
	UserAgent string `envconfig:"USER_AGENT" default:"osrs-flipper - flipping analysis tool"`

	// Volume enrichment budget. The wiki asks clients to stay well under
	// their implicit rate limits, so the defaults are conservative.
	MaxEnrichItems    int     `envconfig:"MAX_ENRICH_ITEMS" default:"50"`
	RequestsPerSecond float64 `envconfig:"REQUESTS_PER_SECOND" default:"2"`
	EnrichWorkers     int     `envconfig:"ENRICH_WORKERS" default:"2"`

	// Local snapshot database. Empty disables snapshotting.
	DBPath string `envconfig:"DB_PATH" default:"flipper.db"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// .env is a convenience for local runs; absence is not an error.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("flipper", &cfg); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests per second must be positive, got %v", c.RequestsPerSecond)
	}
	if c.EnrichWorkers <= 0 {
		return fmt.Errorf("enrich workers must be positive, got %d", c.EnrichWorkers)
	}
	if c.MaxEnrichItems <= 0 {
		return fmt.Errorf("max enrich items must be positive, got %d", c.MaxEnrichItems)
	}
	return nil
}
