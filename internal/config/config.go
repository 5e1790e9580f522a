// Package config handles application configuration from environment variables
// and an optional YAML routes file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/Sternrassler/airtable-proxy/pkg/airtable"
	"github.com/Sternrassler/airtable-proxy/pkg/cache"
	"github.com/Sternrassler/airtable-proxy/pkg/proxy"
)

// Config holds all application configuration
type Config struct {
	Port      int    `env:"PORT" envDefault:"8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY"`

	// RequestTimeout bounds one inbound request; 0 disables it
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"60s"`

	Airtable AirtableConfig `envPrefix:"AIRTABLE_"`

	// RateMinInterval is the minimum spacing between upstream calls
	RateMinInterval time.Duration `env:"RATE_MIN_INTERVAL" envDefault:"210ms"`

	// TableRoutes maps public table keys to upstream table names,
	// e.g. TABLE_ROUTES="ai=AI Projects,team=Team Members"
	TableRoutes     map[string]string `env:"TABLE_ROUTES" envSeparator:"," envKeyValSeparator:"="`
	TableRoutesFile string            `env:"TABLE_ROUTES_FILE"`

	Cache cache.Config `envPrefix:"CACHE_"`
}

// AirtableConfig holds upstream settings
type AirtableConfig struct {
	APIKey   string        `env:"API_KEY"`
	BaseID   string        `env:"BASE_ID"`
	BaseURL  string        `env:"BASE_URL" envDefault:"https://api.airtable.com/v0"`
	View     string        `env:"VIEW" envDefault:"Grid view"`
	PageSize int           `env:"PAGE_SIZE" envDefault:"100"`
	Timeout  time.Duration `env:"TIMEOUT" envDefault:"30s"`
}

// routesFile is the YAML layout of TABLE_ROUTES_FILE:
//
//	routes:
//	  ai: AI Projects
//	  team: Team Members
type routesFile struct {
	Routes map[string]string `yaml:"routes"`
}

// Load reads configuration from the process environment
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return finish(cfg)
}

// LoadEnvironment reads configuration from the given variables instead of
// the process environment
func LoadEnvironment(environ map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	if cfg.TableRoutesFile == "" {
		return cfg, nil
	}

	fileRoutes, err := readRoutesFile(cfg.TableRoutesFile)
	if err != nil {
		return nil, err
	}

	// Environment entries win over the file.
	merged := make(map[string]string, len(fileRoutes)+len(cfg.TableRoutes))
	for k, v := range fileRoutes {
		merged[k] = v
	}
	for k, v := range cfg.TableRoutes {
		merged[k] = v
	}
	cfg.TableRoutes = merged

	return cfg, nil
}

func readRoutesFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read routes file: %w", err)
	}

	var rf routesFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse routes file %s: %w", path, err)
	}
	return rf.Routes, nil
}

// Routes returns the table routes
func (c *Config) Routes() proxy.Routes {
	routes := make(proxy.Routes, len(c.TableRoutes))
	for k, v := range c.TableRoutes {
		routes[k] = v
	}
	return routes
}

// AirtableClientConfig builds the upstream client configuration
func (c *Config) AirtableClientConfig() airtable.Config {
	cfg := airtable.DefaultConfig(c.Airtable.APIKey, c.Airtable.BaseID)
	cfg.BaseURL = c.Airtable.BaseURL
	cfg.Timeout = c.Airtable.Timeout
	return cfg
}

// ValidateRoutes checks the route table alone; enough for cache maintenance
func (c *Config) ValidateRoutes() error {
	routes := c.Routes()
	if err := routes.Validate(); err != nil {
		return err
	}
	for _, key := range routes.Keys() {
		if _, err := cache.NewKey(key, 0); err != nil {
			return fmt.Errorf("table route %q: %w", key, err)
		}
	}
	return nil
}

// Validate ensures the configuration is complete enough to serve requests
func (c *Config) Validate() error {
	if c.Airtable.APIKey == "" {
		return fmt.Errorf("AIRTABLE_API_KEY is required")
	}
	if c.Airtable.BaseID == "" {
		return fmt.Errorf("AIRTABLE_BASE_ID is required")
	}
	if c.Airtable.PageSize < 1 || c.Airtable.PageSize > airtable.MaxPageSize {
		return fmt.Errorf("AIRTABLE_PAGE_SIZE must be between 1-%d, got %d", airtable.MaxPageSize, c.Airtable.PageSize)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1-65535, got %d", c.Port)
	}
	if c.RateMinInterval < 0 {
		return fmt.Errorf("RATE_MIN_INTERVAL must not be negative, got %s", c.RateMinInterval)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must not be negative, got %s", c.RequestTimeout)
	}
	return c.ValidateRoutes()
}
