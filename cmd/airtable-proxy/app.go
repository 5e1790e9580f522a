package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/airtable-proxy/internal/config"
	"github.com/Sternrassler/airtable-proxy/pkg/airtable"
	"github.com/Sternrassler/airtable-proxy/pkg/cache"
	"github.com/Sternrassler/airtable-proxy/pkg/logging"
	"github.com/Sternrassler/airtable-proxy/pkg/pagination"
	"github.com/Sternrassler/airtable-proxy/pkg/proxy"
	"github.com/Sternrassler/airtable-proxy/pkg/ratelimit"
)

// app is the composition root shared by every subcommand. gate and fetcher
// are nil for cache-only commands.
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	backend cache.Backend
	cache   *cache.Manager
	gate    *ratelimit.Gate
	fetcher *proxy.Fetcher
}

func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Pretty: cfg.LogPretty,
	})
	return cfg, logger, nil
}

func openCache(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	backend, err := cache.Open(ctx, cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		backend: backend,
		cache:   cache.NewManager(backend, logging.NewLogger("cache")),
	}, nil
}

// newCacheApp opens only the page cache. Upstream credentials are not needed.
func newCacheApp(ctx context.Context) (*app, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateRoutes(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return openCache(ctx, cfg, logger)
}

// newApp wires the full fetch pipeline.
func newApp(ctx context.Context) (*app, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	client, err := airtable.New(cfg.AirtableClientConfig())
	if err != nil {
		return nil, fmt.Errorf("create airtable client: %w", err)
	}

	a, err := openCache(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	a.gate = ratelimit.NewGate(cfg.RateMinInterval, logging.NewLogger("rate-gate"))

	walker := pagination.NewWalker(client, a.gate, pagination.Config{
		View:     cfg.Airtable.View,
		PageSize: cfg.Airtable.PageSize,
		Timeout:  cfg.Airtable.Timeout,
	})
	a.fetcher = proxy.NewFetcher(cfg.Routes(), a.cache, walker)

	logger.Info().
		Str("cache_driver", a.backend.Name()).
		Strs("tables", cfg.Routes().Keys()).
		Dur("rate_min_interval", cfg.RateMinInterval).
		Int("page_size", cfg.Airtable.PageSize).
		Msg("Pipeline ready")

	return a, nil
}

// Close releases the gate and the cache backend.
func (a *app) Close() {
	if a.gate != nil {
		a.gate.Close()
	}
	if err := a.backend.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to close cache backend")
	}
}
