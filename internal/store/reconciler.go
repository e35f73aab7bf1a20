package store

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"
)

// ReconcilerConfig bounds background persistence.
type ReconcilerConfig struct {
	Workers    int           // tasks running at once
	MaxRetries uint64        // retries after the first attempt; zero means one attempt
	BaseDelay  time.Duration // first retry delay, doubled each attempt
	MaxDelay   time.Duration // cap on a single retry delay
}

// DefaultReconcilerConfig fills zero Workers, BaseDelay and MaxDelay.
// MaxRetries is taken as given.
var DefaultReconcilerConfig = ReconcilerConfig{
	Workers:    4,
	MaxRetries: 5,
	BaseDelay:  100 * time.Millisecond,
	MaxDelay:   5 * time.Second,
}

// Task is one secondary write, such as persisting a renumbered day.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Reconciler runs secondary writes in the background with bounded retry.
// The number of writes not yet finished is observable through Pending, and
// writes that exhausted their retries are counted by Failed.
type Reconciler struct {
	cfg ReconcilerConfig
	log *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	sem    chan struct{}
	wg     sync.WaitGroup

	mu     sync.Mutex
	idle   chan struct{} // closed when pending drops to zero
	closed bool

	pending   atomic.Int64
	failed    atomic.Int64
	succeeded atomic.Int64
}

// NewReconciler returns a running Reconciler. Stop it with Close.
func NewReconciler(log *slog.Logger, cfg ReconcilerConfig) *Reconciler {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultReconcilerConfig.Workers
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultReconcilerConfig.BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultReconcilerConfig.MaxDelay
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Reconciler{
		cfg:    cfg,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
		sem:    make(chan struct{}, cfg.Workers),
	}
}

// Enqueue schedules t. It returns false when the Reconciler is closed.
func (r *Reconciler) Enqueue(t Task) bool {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.log.Warn("reconciler closed, dropping task", "task", t.Name)
		return false
	}
	if r.pending.Add(1) == 1 {
		r.idle = make(chan struct{})
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go r.run(t)
	return true
}

func (r *Reconciler) run(t Task) {
	defer r.wg.Done()
	defer r.finish()

	select {
	case r.sem <- struct{}{}:
	case <-r.ctx.Done():
		r.failed.Add(1)
		return
	}
	defer func() { <-r.sem }()

	attempt := 0
	err := retry.Do(r.ctx, r.backoff(), func(ctx context.Context) error {
		attempt++
		if err := t.Run(ctx); err != nil {
			r.log.Debug("background write attempt failed", "task", t.Name, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		r.failed.Add(1)
		r.log.Warn("background write failed", "task", t.Name, "attempts", attempt, "error", err)
		return
	}
	r.succeeded.Add(1)
}

func (r *Reconciler) backoff() retry.Backoff {
	b := retry.NewExponential(r.cfg.BaseDelay)
	b = retry.WithCappedDuration(r.cfg.MaxDelay, b)
	return retry.WithMaxRetries(r.cfg.MaxRetries, b)
}

func (r *Reconciler) finish() {
	r.mu.Lock()
	if r.pending.Add(-1) == 0 {
		close(r.idle)
	}
	r.mu.Unlock()
}

// Pending returns the number of tasks enqueued and not yet finished.
func (r *Reconciler) Pending() int64 { return r.pending.Load() }

// Failed returns the number of tasks that gave up after their last retry.
func (r *Reconciler) Failed() int64 { return r.failed.Load() }

// Succeeded returns the number of tasks that completed.
func (r *Reconciler) Succeeded() int64 { return r.succeeded.Load() }

// Flush blocks until no task is pending or ctx is done.
func (r *Reconciler) Flush(ctx context.Context) error {
	r.mu.Lock()
	if r.pending.Load() == 0 {
		r.mu.Unlock()
		return nil
	}
	idle := r.idle
	r.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting tasks, waits for pending ones until ctx is done, then
// cancels whatever is still retrying.
func (r *Reconciler) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	err := r.Flush(ctx)
	r.cancel()
	r.wg.Wait()
	return err
}
