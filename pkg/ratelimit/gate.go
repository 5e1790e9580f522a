package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// ErrGateClosed is returned for calls submitted to, or still queued in, a
// closed Gate.
var ErrGateClosed = errors.New("rate gate closed")

// Prometheus metrics for the rate gate.
var (
	gateQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rate_gate_queue_depth",
		Help: "Number of upstream calls waiting for admission",
	})

	gateAdmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rate_gate_admitted_total",
		Help: "Total number of upstream calls admitted by the rate gate",
	})

	gateWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rate_gate_wait_seconds",
		Help:    "Time calls spent queued before admission",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	gateLockoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rate_gate_lockouts_total",
		Help: "Total number of upstream lockouts that paused admissions",
	})
)

type job struct {
	ctx      context.Context
	fn       func(context.Context) error
	enqueued time.Time
	result   chan error
}

// Gate serializes the start of upstream calls. Calls are admitted in
// submission order with at least the configured interval between two
// admissions. Submission never blocks on the queue; the caller waits only
// for its own call.
//
// Admitted calls run concurrently with later admissions. The gate paces
// start times, not completions.
type Gate struct {
	interval time.Duration
	limiter  *rate.Limiter
	lockout  LockoutState
	logger   zerolog.Logger
	onAdmit  func(time.Time)

	mu     sync.Mutex
	queue  []*job
	closed bool

	wake    chan struct{}
	done    chan struct{}
	stopped chan struct{}
}

// Option configures a Gate.
type Option func(*Gate)

// WithAdmitHook calls fn with the admission time of every call, before the
// call starts. fn runs on the gate's loop and must not block.
func WithAdmitHook(fn func(time.Time)) Option {
	return func(g *Gate) {
		g.onAdmit = fn
	}
}

// NewGate starts a gate that admits one call per interval. An interval of
// zero or less disables pacing; FIFO order and lockouts still apply.
func NewGate(interval time.Duration, logger zerolog.Logger, opts ...Option) *Gate {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}

	g := &Gate{
		interval: interval,
		limiter:  rate.NewLimiter(limit, 1),
		logger:   logger,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	go g.run()
	return g
}

// Interval returns the configured minimum spacing.
func (g *Gate) Interval() time.Duration {
	return g.interval
}

// Pending returns the number of calls waiting for admission.
func (g *Gate) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.queue)
}

// Lockout exposes the gate's lockout state.
func (g *Gate) Lockout() *LockoutState {
	return &g.lockout
}

// Do queues fn and waits for it to be admitted and to return. The error of
// fn is returned unchanged; the gate never retries.
//
// If ctx ends while the call is still queued, the call is dropped and
// ctx.Err() is returned. Once admitted, fn receives ctx and Do waits for it.
func (g *Gate) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	j := &job{
		ctx:      ctx,
		fn:       fn,
		enqueued: time.Now(),
		result:   make(chan error, 1),
	}

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return ErrGateClosed
	}
	g.queue = append(g.queue, j)
	gateQueueDepth.Set(float64(len(g.queue)))
	g.mu.Unlock()

	select {
	case g.wake <- struct{}{}:
	default:
	}

	select {
	case err := <-j.result:
		return err
	case <-ctx.Done():
		if g.remove(j) {
			return ctx.Err()
		}
		// Already admitted: fn owns the outcome now.
		return <-j.result
	}
}

// Schedule runs fn through the gate and returns its result.
func Schedule[T any](ctx context.Context, g *Gate, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := g.Do(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		out = v
		return err
	})
	return out, err
}

// Close stops admissions and fails every queued call with ErrGateClosed.
// Calls already admitted run to completion. Close is idempotent.
func (g *Gate) Close() error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		<-g.stopped
		return nil
	}
	g.closed = true
	pending := g.queue
	g.queue = nil
	gateQueueDepth.Set(0)
	g.mu.Unlock()

	close(g.done)
	for _, j := range pending {
		j.result <- ErrGateClosed
	}
	<-g.stopped
	return nil
}

func (g *Gate) remove(target *job) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	for i, j := range g.queue {
		if j == target {
			g.queue = append(g.queue[:i], g.queue[i+1:]...)
			gateQueueDepth.Set(float64(len(g.queue)))
			return true
		}
	}
	return false
}

func (g *Gate) run() {
	defer close(g.stopped)

	for {
		if !g.waitForWork() {
			return
		}
		admitted, ok := g.waitForSlot()
		if !ok {
			return
		}

		j := g.pop()
		if j == nil {
			// The head was cancelled while we waited; the slot is spent.
			continue
		}

		if g.onAdmit != nil {
			g.onAdmit(admitted)
		}

		waited := admitted.Sub(j.enqueued)
		gateAdmittedTotal.Inc()
		gateWaitSeconds.Observe(waited.Seconds())
		g.logger.Debug().
			Dur("waited", waited).
			Int("pending", g.Pending()).
			Msg("Upstream call admitted")

		go g.execute(j)
	}
}

// waitForWork blocks until the queue is non-empty or the gate closes.
func (g *Gate) waitForWork() bool {
	for {
		g.mu.Lock()
		n := len(g.queue)
		g.mu.Unlock()
		if n > 0 {
			return true
		}

		select {
		case <-g.wake:
		case <-g.done:
			return false
		}
	}
}

// waitForSlot blocks until both the lockout and the interval allow the next
// admission and returns the admission time. The token is taken at that
// instant, so the next slot opens a full interval after it no matter how
// late a timer fired.
func (g *Gate) waitForSlot() (time.Time, bool) {
	for {
		if wait := g.lockout.Remaining(); wait > 0 {
			if !g.sleep(wait) {
				return time.Time{}, false
			}
			continue
		}

		now := time.Now()
		if g.limiter.AllowN(now, 1) {
			return now, true
		}

		wait := time.Duration((1 - g.limiter.TokensAt(now)) * float64(g.interval))
		if wait < time.Microsecond {
			wait = time.Microsecond
		}
		if !g.sleep(wait) {
			return time.Time{}, false
		}
	}
}

// sleep waits for d and reports false if the gate closed first.
func (g *Gate) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-g.done:
		return false
	}
}

func (g *Gate) pop() *job {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.queue) == 0 {
		return nil
	}
	j := g.queue[0]
	g.queue[0] = nil
	g.queue = g.queue[1:]
	gateQueueDepth.Set(float64(len(g.queue)))
	return j
}

func (g *Gate) execute(j *job) {
	err := j.fn(j.ctx)

	if d, ok := RetryAfter(err); ok {
		until := g.lockout.Trip(d)
		gateLockoutsTotal.Inc()
		g.logger.Error().
			Err(err).
			Dur("retry_after", d).
			Time("locked_until", until).
			Msg("Upstream lockout - pausing admissions")
	}

	j.result <- err
}
