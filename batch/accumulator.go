// Package batch accumulates flattened sensor rows and flushes them to the
// durable store when a size threshold is reached or a timer elapses.
//
// The pending buffer is the only structure in the pipeline mutated from two
// sides (the message handler and the flush timer). Offer and the timer
// serialize on a mutex; a flush swaps the buffer out under that lock and
// performs the insert outside it, so offers arriving during a slow store
// round trip are neither blocked nor lost: they land in the next batch.
package batch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/abbas701/Surveillance-robot/metric"
	"github.com/abbas701/Surveillance-robot/telemetry"
)

// Inserter is the durable-write dependency of the accumulator
type Inserter interface {
	InsertRows(ctx context.Context, rows []telemetry.Row) error
}

// Option configures an Accumulator
type Option func(*Accumulator)

// WithLogger sets the accumulator logger
func WithLogger(l *slog.Logger) Option {
	return func(a *Accumulator) { a.logger = l }
}

// WithMetrics sets the metrics sink
func WithMetrics(m *metric.Metrics) Option {
	return func(a *Accumulator) { a.metrics = m }
}

// WithDropHook sets a callback invoked when a flush fails and its rows are
// dropped. This is the operator-alert hook: batch failure is real data
// loss and deployments can attach notification to it.
func WithDropHook(fn func(rows int, err error)) Option {
	return func(a *Accumulator) { a.onDrop = fn }
}

// Accumulator buffers sensor rows between durable writes
type Accumulator struct {
	store   Inserter
	maxSize int
	maxAge  time.Duration
	logger  *slog.Logger
	metrics *metric.Metrics
	onDrop  func(int, error)

	mu      sync.Mutex
	pending []telemetry.Row

	tickerDone chan struct{}
	startOnce  sync.Once
}

// New creates an accumulator flushing at maxSize rows or maxAge, whichever
// comes first
func New(store Inserter, maxSize int, maxAge time.Duration, opts ...Option) *Accumulator {
	a := &Accumulator{
		store:      store,
		maxSize:    maxSize,
		maxAge:     maxAge,
		logger:     slog.Default(),
		metrics:    metric.NewUnregistered(),
		tickerDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Start launches the flush timer. The timer is owned by the accumulator
// and stops when ctx is cancelled, tying its lifetime to service shutdown.
func (a *Accumulator) Start(ctx context.Context) {
	a.startOnce.Do(func() {
		go a.run(ctx)
	})
}

func (a *Accumulator) run(ctx context.Context) {
	defer close(a.tickerDone)

	ticker := time.NewTicker(a.maxAge)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if a.Len() > 0 {
				a.Flush(ctx)
			}
		}
	}
}

// Offer appends a row to the pending batch. When the batch reaches maxSize
// the flush happens synchronously before Offer returns.
func (a *Accumulator) Offer(ctx context.Context, row telemetry.Row) {
	a.mu.Lock()
	a.pending = append(a.pending, row)
	full := len(a.pending) >= a.maxSize
	a.metrics.BatchPending.Set(float64(len(a.pending)))
	a.mu.Unlock()

	if full {
		a.Flush(ctx)
	}
}

// Len returns the number of rows currently pending
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

// Flush swaps the pending batch for an empty one and writes the swapped
// rows in a single multi-row insert. On failure the batch is dropped:
// rows are not requeued, trading durability for bounded memory when the
// store is down. The loss is logged loudly and reported to the drop hook.
func (a *Accumulator) Flush(ctx context.Context) {
	a.mu.Lock()
	rows := a.pending
	a.pending = nil
	a.metrics.BatchPending.Set(0)
	a.mu.Unlock()

	if len(rows) == 0 {
		return
	}

	start := time.Now()
	err := a.store.InsertRows(ctx, rows)
	a.metrics.FlushDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		a.metrics.BatchFlushes.WithLabelValues("failure").Inc()
		a.logger.Error("batch flush failed, dropping rows",
			"rows", len(rows),
			"error", err)
		if a.onDrop != nil {
			a.onDrop(len(rows), err)
		}
		return
	}

	a.metrics.BatchFlushes.WithLabelValues("success").Inc()
	a.metrics.RowsInserted.Add(float64(len(rows)))
	a.logger.Debug("batch flushed", "rows", len(rows))
}

// Wait blocks until the flush timer goroutine has exited. Used during
// shutdown after cancelling the accumulator's context.
func (a *Accumulator) Wait(timeout time.Duration) bool {
	select {
	case <-a.tickerDone:
		return true
	case <-time.After(timeout):
		return false
	}
}
