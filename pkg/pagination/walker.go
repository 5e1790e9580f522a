package pagination

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/airtable-proxy/pkg/airtable"
	"github.com/Sternrassler/airtable-proxy/pkg/ratelimit"
	"github.com/Sternrassler/airtable-proxy/pkg/records"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	pagesWalkedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagination_pages_walked_total",
		Help: "Total upstream pages consumed by pagination walks",
	})

	walksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pagination_walks_total",
		Help: "Total pagination walks by outcome",
	}, []string{"outcome"})
)

// Lister fetches one upstream page. *airtable.Client implements it.
type Lister interface {
	ListRecords(ctx context.Context, table string, opts airtable.ListOptions) (*airtable.ListResponse, error)
}

// Config holds walker defaults
type Config struct {
	// View is sent with every request
	View string
	// PageSize is the number of records per upstream page (1..100)
	PageSize int
	// Timeout per upstream call, measured from admission by the gate
	Timeout time.Duration
}

// DefaultConfig returns the walker defaults
func DefaultConfig() Config {
	return Config{
		View:     "Grid view",
		PageSize: airtable.MaxPageSize,
		Timeout:  30 * time.Second,
	}
}

// Request names the page to materialize. Empty View and zero PageSize fall
// back to the walker's Config.
type Request struct {
	Table    string
	View     string
	PageSize int
	Page     int
}

// Walker drives Walk state machines against the upstream.
type Walker struct {
	lister Lister
	gate   *ratelimit.Gate
	config Config
	logger zerolog.Logger
}

// NewWalker creates a walker. All upstream calls go through gate.
func NewWalker(lister Lister, gate *ratelimit.Gate, config Config) *Walker {
	if lister == nil {
		panic("pagination: lister must not be nil")
	}
	if gate == nil {
		panic("pagination: gate must not be nil")
	}
	if config.PageSize <= 0 {
		config.PageSize = airtable.MaxPageSize
	}

	return &Walker{
		lister: lister,
		gate:   gate,
		config: config,
		logger: log.With().Str("component", "walker").Logger(),
	}
}

// Walk returns page req.Page of req.Table, walking from the first page.
// It fails with *ExhaustedError when the listing ends first, or with the
// upstream error of the first failed call.
func (w *Walker) Walk(ctx context.Context, req Request) (records.Page, error) {
	start := time.Now()

	opts := airtable.ListOptions{View: req.View, PageSize: req.PageSize}
	if opts.View == "" {
		opts.View = w.config.View
	}
	if opts.PageSize <= 0 {
		opts.PageSize = w.config.PageSize
	}

	walk := NewWalk(req.Page)
	for walk.State() == AwaitingPage {
		opts.Offset = walk.Offset()

		resp, err := ratelimit.Schedule(ctx, w.gate, func(ctx context.Context) (*airtable.ListResponse, error) {
			if w.config.Timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, w.config.Timeout)
				defer cancel()
			}
			return w.lister.ListRecords(ctx, req.Table, opts)
		})
		if err == nil {
			pagesWalkedTotal.Inc()
		}

		state := walk.Step(resp, err)
		w.logger.Debug().
			Str("table", req.Table).
			Int("target", req.Page).
			Int("pages_seen", walk.PagesSeen()).
			Str("state", state.String()).
			Msg("Walk step")
	}

	state := walk.State()
	walksTotal.WithLabelValues(state.String()).Inc()

	page, err := walk.Result()
	if err != nil {
		w.logger.Warn().
			Err(err).
			Str("table", req.Table).
			Int("target", req.Page).
			Int("pages_seen", walk.PagesSeen()).
			Str("state", state.String()).
			Msg("Walk failed")
		if state == Failed {
			return nil, fmt.Errorf("list %s page %d: %w", req.Table, walk.PagesSeen(), err)
		}
		return nil, err
	}

	w.logger.Info().
		Str("table", req.Table).
		Int("page", req.Page).
		Int("records", len(page)).
		Int("pages_walked", walk.PagesSeen()).
		Dur("duration", time.Since(start)).
		Msg("Walk complete")

	return page, nil
}
