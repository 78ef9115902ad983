// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"dex-swaps-lab/internal/domain"
	"dex-swaps-lab/internal/ingestion"
	"dex-swaps-lab/internal/registry"
	"dex-swaps-lab/internal/subgraph"
)

// Config holds settings shared by the commands.
type Config struct {
	// Sources
	EndpointTemplate string
	Sources          []string // empty = every registered source
	Mode             domain.ConcurrencyMode

	// Fetching
	FetchWorkers int
	RowLimit     int
	FetchTimeout time.Duration
	LoadTimeout  time.Duration
	HTTPTimeout  time.Duration

	// Logging
	LogLevel  string
	LogFormat string

	// Archive
	PostgresDSN   string
	ClickHouseDSN string

	// Server
	ListenAddr       string
	MetricsNamespace string
}

// Load reads an optional .env file, then the environment. Existing
// environment variables win over .env entries.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment.
func FromEnv() (*Config, error) {
	mode, err := ParseMode(getEnv("FETCH_MODE", domain.Parallel.String()))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		EndpointTemplate: getEnv("SUBGRAPH_ENDPOINT_TEMPLATE", registry.DefaultEndpointTemplate),
		Sources:          getEnvSlice("SOURCES", nil),
		Mode:             mode,
		FetchWorkers:     getEnvInt("FETCH_WORKERS", ingestion.DefaultWorkers),
		RowLimit:         getEnvInt("ROW_LIMIT", subgraph.DefaultRowLimit),
		FetchTimeout:     getEnvDuration("FETCH_TIMEOUT", 0),
		LoadTimeout:      getEnvDuration("LOAD_TIMEOUT", 0),
		HTTPTimeout:      getEnvDuration("HTTP_TIMEOUT", subgraph.DefaultTimeout),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "console"),
		PostgresDSN:      os.Getenv("POSTGRES_DSN"),
		ClickHouseDSN:    os.Getenv("CLICKHOUSE_DSN"),
		ListenAddr:       getEnv("LISTEN_ADDR", ":8080"),
		MetricsNamespace: getEnv("METRICS_NAMESPACE", "dex_swaps_lab"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and that every named source is registered.
func (c *Config) Validate() error {
	if c.FetchWorkers <= 0 {
		return fmt.Errorf("FETCH_WORKERS must be positive, got %d", c.FetchWorkers)
	}
	if c.RowLimit <= 0 {
		return fmt.Errorf("ROW_LIMIT must be positive, got %d", c.RowLimit)
	}
	if c.FetchTimeout < 0 || c.LoadTimeout < 0 || c.HTTPTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	if !strings.Contains(c.EndpointTemplate, "{id}") {
		return fmt.Errorf("SUBGRAPH_ENDPOINT_TEMPLATE must contain {id}: %q", c.EndpointTemplate)
	}
	for _, id := range c.Sources {
		if !registry.Known(domain.SourceID(id)) {
			return fmt.Errorf("unknown source %q", id)
		}
	}
	return nil
}

// SourceDescriptors resolves the configured source subset against the template.
func (c *Config) SourceDescriptors() ([]domain.SourceDescriptor, error) {
	if len(c.Sources) == 0 {
		return registry.WithTemplate(c.EndpointTemplate), nil
	}
	return registry.Select(c.EndpointTemplate, c.Sources)
}

// ParseMode parses "parallel" or "sequential".
func ParseMode(s string) (domain.ConcurrencyMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", domain.Parallel.String():
		return domain.Parallel, nil
	case domain.Sequential.String():
		return domain.Sequential, nil
	default:
		return domain.Parallel, fmt.Errorf("unknown mode %q (want parallel or sequential)", s)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
