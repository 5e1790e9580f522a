// Package proxy implements the page fetch pipeline: resolve the table, look
// the page up in the cache, and on a miss walk the upstream and store the
// result.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/Sternrassler/airtable-proxy/pkg/cache"
	"github.com/Sternrassler/airtable-proxy/pkg/pagination"
	"github.com/Sternrassler/airtable-proxy/pkg/records"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrUnknownTable is returned for a table key with no route.
	ErrUnknownTable = errors.New("unknown table")

	// ErrInvalidPage is returned for a negative page index.
	ErrInvalidPage = errors.New("invalid page index")
)

var fetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "proxy_fetch_total",
	Help: "Total page fetches by result (hit, miss, error)",
}, []string{"result"})

// PageWalker materializes one upstream page. *pagination.Walker implements it.
type PageWalker interface {
	Walk(ctx context.Context, req pagination.Request) (records.Page, error)
}

// Fetcher serves pages from the cache, falling back to the upstream.
type Fetcher struct {
	routes Routes
	cache  *cache.Manager
	walker PageWalker
	group  singleflight.Group
	logger zerolog.Logger
}

// NewFetcher wires the pipeline.
func NewFetcher(routes Routes, manager *cache.Manager, walker PageWalker) *Fetcher {
	if manager == nil {
		panic("proxy: cache manager must not be nil")
	}
	if walker == nil {
		panic("proxy: walker must not be nil")
	}
	return &Fetcher{
		routes: routes,
		cache:  manager,
		walker: walker,
		logger: log.With().Str("component", "fetcher").Logger(),
	}
}

// Routes returns the table routes.
func (f *Fetcher) Routes() Routes {
	return f.routes
}

// Cache returns the cache manager.
func (f *Fetcher) Cache() *cache.Manager {
	return f.cache
}

// Key validates (table, page) and returns the cache key for it.
func (f *Fetcher) Key(table string, page int) (cache.Key, error) {
	return f.routes.Key(table, page)
}

// FetchPage returns page of the listing behind table. A cached page is
// returned without any upstream call. On a miss the page is walked, stored
// and returned; a failed store is logged and does not fail the fetch.
// Failed walks are never cached.
//
// Concurrent misses for the same page share one walk. The walk runs to
// completion even if every waiting caller gives up, and its result is cached.
func (f *Fetcher) FetchPage(ctx context.Context, table string, page int) (records.Page, error) {
	upstream, ok := f.routes.Resolve(table)
	if !ok {
		fetchTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	if page < 0 {
		fetchTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %d", ErrInvalidPage, page)
	}

	key, err := cache.NewKey(table, page)
	if err != nil {
		fetchTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	if cached, hit := f.cache.Get(ctx, key); hit {
		fetchTotal.WithLabelValues("hit").Inc()
		f.logger.Debug().Str("key", key.String()).Msg("Serving cached page")
		return cached, nil
	}

	// The walk outlives the caller that started it; each caller stops
	// waiting on its own context.
	walkCtx := context.WithoutCancel(ctx)
	ch := f.group.DoChan(key.String(), func() (any, error) {
		result, err := f.walker.Walk(walkCtx, pagination.Request{Table: upstream, Page: page})
		if err != nil {
			return nil, err
		}

		if err := f.cache.Set(walkCtx, key, result); err != nil {
			f.logger.Warn().Err(err).Str("key", key.String()).Msg("Failed to cache page")
		}
		return result, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		fetchTotal.WithLabelValues("error").Inc()
		return nil, ctx.Err()
	}
	if res.Err != nil {
		fetchTotal.WithLabelValues("error").Inc()
		return nil, res.Err
	}
	v, shared := res.Val, res.Shared

	fetchTotal.WithLabelValues("miss").Inc()
	f.logger.Debug().
		Str("key", key.String()).
		Str("upstream_table", upstream).
		Bool("shared", shared).
		Msg("Fetched page from upstream")

	return v.(records.Page), nil
}

// Purge removes the cached entry for (table, page).
func (f *Fetcher) Purge(ctx context.Context, table string, page int) error {
	return Purge(ctx, f.routes, f.cache, table, page)
}

// Purge removes the cached entry for (table, page) without needing an
// upstream. ErrNotFound from the cache is returned when nothing was stored.
func Purge(ctx context.Context, routes Routes, manager *cache.Manager, table string, page int) error {
	key, err := routes.Key(table, page)
	if err != nil {
		return err
	}
	if err := manager.Delete(ctx, key); err != nil {
		return err
	}
	log.Info().Str("component", "fetcher").Str("key", key.String()).Msg("Purged cached page")
	return nil
}

// ParsePage converts a path segment to a page index. Only non-negative
// decimal integers are accepted.
func ParsePage(s string) (int, error) {
	if s == "" || s[0] == '+' || s[0] == '-' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPage, s)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPage, s)
	}
	return n, nil
}
