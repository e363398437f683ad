package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config application configuration
type Config struct {
	// Database
	DatabasePath string `env:"CLEANY_DB_PATH" envDefault:"./data/cleany.db"`

	// Gmail pacing. The Gmail API throttles aggressively on bulk mutation;
	// these defaults mirror what the API tolerates in practice.
	PageSize       int64         `env:"CLEANY_PAGE_SIZE" envDefault:"100"`
	MaxBulkRecords int           `env:"CLEANY_MAX_BULK" envDefault:"500"`
	PageDelay      time.Duration `env:"CLEANY_PAGE_DELAY" envDefault:"200ms"`
	DeletePaceN    int           `env:"CLEANY_DELETE_PACE_EVERY" envDefault:"20"`
	RequestTimeout time.Duration `env:"CLEANY_REQUEST_TIMEOUT" envDefault:"30s"`

	// Classifier (LLM completion endpoint, optional)
	ClassifierURL   string `env:"CLEANY_CLASSIFIER_URL"`
	ClassifierKey   string `env:"CLEANY_CLASSIFIER_KEY"`
	ClassifierModel string `env:"CLEANY_CLASSIFIER_MODEL" envDefault:"gemini-2.5-flash-lite"`

	// Preferences
	MinConfidence float64 `env:"CLEANY_MIN_CONFIDENCE" envDefault:"0.7"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"` // "json" or "text"
}

// ClassifierEnabled returns true if the LLM classifier endpoint is configured
func (c *Config) ClassifierEnabled() bool {
	return c.ClassifierURL != "" && c.ClassifierKey != ""
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.PageSize < 1 || cfg.PageSize > 500 {
		return nil, fmt.Errorf("CLEANY_PAGE_SIZE must be between 1 and 500, got %d", cfg.PageSize)
	}
	if cfg.MinConfidence < 0 || cfg.MinConfidence > 1 {
		return nil, fmt.Errorf("CLEANY_MIN_CONFIDENCE must be between 0.0 and 1.0, got %f", cfg.MinConfidence)
	}

	return cfg, nil
}
