package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all dashboard settings, populated from environment variables.
type Config struct {
	BackendURL     string        `envconfig:"BACKEND_URL" default:"http://localhost:8000" validate:"required,url"`
	BackendTimeout time.Duration `envconfig:"BACKEND_TIMEOUT" default:"15s" validate:"gt=0"`

	// Location search (Nominatim-compatible geocoder).
	GeocoderURL       string        `envconfig:"GEOCODER_URL" default:"https://nominatim.openstreetmap.org" validate:"required,url"`
	GeocoderUserAgent string        `envconfig:"GEOCODER_USER_AGENT" default:"SmartAgri-AI" validate:"required"`
	GeocoderTimeout   time.Duration `envconfig:"GEOCODER_TIMEOUT" default:"5s" validate:"gt=0"`
	GeocoderRPS       float64       `envconfig:"GEOCODER_RPS" default:"1" validate:"gt=0"`
	GeocoderCacheSize int           `envconfig:"GEOCODER_CACHE_SIZE" default:"256" validate:"gt=0"`
	SearchDebounce    time.Duration `envconfig:"SEARCH_DEBOUNCE" default:"500ms" validate:"gte=0"`

	StatePath   string        `envconfig:"STATE_PATH"`
	RelayMaxAge time.Duration `envconfig:"RELAY_MAX_AGE" default:"6h" validate:"gt=0"`

	// Simulation mode synthesises labelled placeholder results when the
	// backend is unreachable. Off by default.
	SimulationMode bool  `envconfig:"SIMULATION_MODE" default:"false"`
	SimulationSeed int64 `envconfig:"SIMULATION_SEED" default:"0"`

	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:":3000" validate:"required"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	LogFormat       string        `envconfig:"LOG_FORMAT" default:"text" validate:"oneof=json text"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s" validate:"gt=0"`

	// Outcome journal; disabled when no brokers are configured.
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"agri-outcomes"`
}

// JournalEnabled reports whether submit outcomes are published to Kafka.
func (c *Config) JournalEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads configuration from an optional .env file and the environment,
// applying defaults where unset.
func Load() (*Config, error) {
	// A missing .env is fine; existing environment variables win.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if cfg.StatePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("STATE_PATH is not set and home directory is unknown: %w", err)
		}
		cfg.StatePath = filepath.Join(home, ".agridash", "state.db")
	}

	if err := validator.New().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, fmt.Errorf("invalid %s: %w", envName(verrs[0].StructField()), err)
		}
		return nil, err
	}
	if cfg.JournalEnabled() && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_BROKERS is set but KAFKA_TOPIC is empty")
	}

	return &cfg, nil
}

var envNames = map[string]string{
	"BackendURL":        "BACKEND_URL",
	"BackendTimeout":    "BACKEND_TIMEOUT",
	"GeocoderURL":       "GEOCODER_URL",
	"GeocoderUserAgent": "GEOCODER_USER_AGENT",
	"GeocoderTimeout":   "GEOCODER_TIMEOUT",
	"GeocoderRPS":       "GEOCODER_RPS",
	"GeocoderCacheSize": "GEOCODER_CACHE_SIZE",
	"SearchDebounce":    "SEARCH_DEBOUNCE",
	"RelayMaxAge":       "RELAY_MAX_AGE",
	"HTTPAddr":          "HTTP_ADDR",
	"LogLevel":          "LOG_LEVEL",
	"LogFormat":         "LOG_FORMAT",
	"ShutdownTimeout":   "SHUTDOWN_TIMEOUT",
}

func envName(field string) string {
	if name, ok := envNames[field]; ok {
		return name
	}
	return field
}
