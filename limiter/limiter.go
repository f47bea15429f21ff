// Package limiter serializes and paces outbound transport calls. Calls to
// the same destination run strictly in submission order with a minimum gap
// between starts; a global limiter bounds the overall call rate. Rate-limit
// failures that carry a retry hint are retried exactly once.
package limiter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	// DefaultGlobalGap approximates the Bot API's overall ceiling of about
	// 30 calls per second across all chats.
	DefaultGlobalGap = 40 * time.Millisecond
	// DefaultDestGap approximates the per-conversation limit of roughly one
	// message per second, with headroom.
	DefaultDestGap = 1100 * time.Millisecond

	defaultRetryPadding = 1 * time.Second
	defaultIdleTimeout  = 5 * time.Minute
	destQueueCap        = 1024
)

type Options struct {
	GlobalGap time.Duration
	DestGap   time.Duration
	// RetryAfter normalizes a transport fault to an optional retry delay.
	// When nil, no call is ever retried.
	RetryAfter   func(error) (time.Duration, bool)
	RetryPadding time.Duration
	IdleTimeout  time.Duration
	Logger       *slog.Logger
}

type call struct {
	id   string
	ctx  context.Context
	fn   func(context.Context) error
	done chan error
}

type destQueue struct {
	jobs chan *call
}

type Limiter struct {
	global       *rate.Limiter
	destGap      time.Duration
	retryAfter   func(error) (time.Duration, bool)
	retryPadding time.Duration
	idleTimeout  time.Duration
	logger       *slog.Logger

	mu     sync.Mutex
	queues map[string]*destQueue
}

func New(opts Options) *Limiter {
	if opts.GlobalGap <= 0 {
		opts.GlobalGap = DefaultGlobalGap
	}
	if opts.DestGap <= 0 {
		opts.DestGap = DefaultDestGap
	}
	if opts.RetryPadding <= 0 {
		opts.RetryPadding = defaultRetryPadding
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = defaultIdleTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Limiter{
		global:       rate.NewLimiter(rate.Every(opts.GlobalGap), 1),
		destGap:      opts.DestGap,
		retryAfter:   opts.RetryAfter,
		retryPadding: opts.RetryPadding,
		idleTimeout:  opts.IdleTimeout,
		logger:       opts.Logger,
		queues:       make(map[string]*destQueue),
	}
}

// Do enqueues fn behind every pending call for dest and blocks until it has
// settled. The returned error is fn's own failure (after the single retry,
// if one applied), or ctx's error if the caller gave up first.
func (l *Limiter) Do(ctx context.Context, dest string, fn func(context.Context) error) error {
	if fn == nil {
		return fmt.Errorf("limiter: nil call")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	c := &call{
		id:   uuid.NewString(),
		ctx:  ctx,
		fn:   fn,
		done: make(chan error, 1),
	}

	l.mu.Lock()
	q, ok := l.queues[dest]
	if !ok {
		q = &destQueue{jobs: make(chan *call, destQueueCap)}
		l.queues[dest] = q
		go l.runWorker(dest, q)
	}
	select {
	case q.jobs <- c:
		l.mu.Unlock()
	default:
		l.mu.Unlock()
		return fmt.Errorf("limiter: queue for %s is full", dest)
	}

	select {
	case err := <-c.done:
		return err
	case <-ctx.Done():
		// The worker still drains the call; it just reports to nobody.
		return ctx.Err()
	}
}

// runWorker drains one destination queue in FIFO order. It exits after the
// queue has been idle for a while, so the queue map does not grow unbounded
// in a long-running process.
func (l *Limiter) runWorker(dest string, q *destQueue) {
	idle := time.NewTimer(l.idleTimeout)
	defer idle.Stop()
	var lastStart time.Time
	for {
		select {
		case c := <-q.jobs:
			l.process(dest, c, &lastStart)
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(l.idleTimeout)
		case <-idle.C:
			l.mu.Lock()
			if len(q.jobs) == 0 {
				delete(l.queues, dest)
				l.mu.Unlock()
				return
			}
			l.mu.Unlock()
			idle.Reset(l.idleTimeout)
		}
	}
}

func (l *Limiter) process(dest string, c *call, lastStart *time.Time) {
	if err := c.ctx.Err(); err != nil {
		c.done <- err
		return
	}

	if err := l.pace(c.ctx, *lastStart); err != nil {
		c.done <- err
		return
	}
	*lastStart = time.Now()
	err := c.fn(c.ctx)
	if err == nil || l.retryAfter == nil {
		c.done <- err
		return
	}

	delay, ok := l.retryAfter(err)
	if !ok {
		c.done <- err
		return
	}
	l.logger.Warn("delivery_rate_limited", "dest", dest, "call_id", c.id, "retry_in", (delay + l.retryPadding).String())
	if err := sleepCtx(c.ctx, delay+l.retryPadding); err != nil {
		c.done <- err
		return
	}
	if err := l.global.Wait(c.ctx); err != nil {
		c.done <- err
		return
	}
	*lastStart = time.Now()
	// Exactly one retry; a second rate-limit failure propagates.
	c.done <- c.fn(c.ctx)
}

// pace blocks until both the per-destination gap and the global gap allow
// another call to start.
func (l *Limiter) pace(ctx context.Context, lastStart time.Time) error {
	if !lastStart.IsZero() {
		if wait := l.destGap - time.Since(lastStart); wait > 0 {
			if err := sleepCtx(ctx, wait); err != nil {
				return err
			}
		}
	}
	return l.global.Wait(ctx)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
