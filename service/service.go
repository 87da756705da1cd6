// Package service wires the telemetry relay together: broker transport,
// topic dispatch, recent-history cache, batched durable persistence, and
// the outbound command path. It owns lifecycle management and exposes the
// query surface consumers read from.
package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/abbas701/Surveillance-robot/batch"
	"github.com/abbas701/Surveillance-robot/command"
	"github.com/abbas701/Surveillance-robot/config"
	"github.com/abbas701/Surveillance-robot/errors"
	"github.com/abbas701/Surveillance-robot/ingest"
	"github.com/abbas701/Surveillance-robot/metric"
	"github.com/abbas701/Surveillance-robot/status"
	"github.com/abbas701/Surveillance-robot/store"
	"github.com/abbas701/Surveillance-robot/telemetry"
)

// Status represents the current lifecycle state of the relay
type Status int

// Possible lifecycle states
const (
	StatusStopped Status = iota
	StatusStarting
	StatusRunning
	StatusStopping
)

// String returns the string representation of Status
func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusStarting:
		return "starting"
	case StatusRunning:
		return "running"
	case StatusStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Transport is the pub/sub broker dependency
type Transport interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context, subject string, handler func(context.Context, []byte)) error
	Publish(ctx context.Context, subject string, data []byte) error
	Close(ctx context.Context) error
	IsHealthy() bool
	OnHealthChange(fn func(bool))
}

// Recorder is the durable store dependency
type Recorder interface {
	EnsureSchema(ctx context.Context) error
	InsertRows(ctx context.Context, rows []telemetry.Row) error
	InsertCalibrationFeedback(ctx context.Context, fb *telemetry.CalibrationFeedback) error
	CalibrationHistory(ctx context.Context, limit int) ([]store.FeedbackRow, error)
	Close()
}

// RecentCache is the recent-history cache dependency
type RecentCache interface {
	PushLatest(ctx context.Context, payload []byte)
	PushNetwork(ctx context.Context, payload []byte)
	FetchAll(ctx context.Context) []json.RawMessage
	FetchNetwork(ctx context.Context) []json.RawMessage
	FetchLatest(ctx context.Context) json.RawMessage
	Ping(ctx context.Context) error
	Close() error
}

// Option is a functional option for configuring Service
type Option func(*Service)

// WithLogger sets a custom logger for the service
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink for the relay pipeline
func WithMetrics(m *metric.Metrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// Service is the telemetry relay: it consumes robot topics from the
// broker, fans telemetry out to the cache and the batching pipeline,
// and republishes operator commands back to the robot.
type Service struct {
	cfg       *config.Config
	transport Transport
	recorder  Recorder
	cache     RecentCache

	accumulator *batch.Accumulator
	dispatcher  *ingest.Dispatcher
	register    *status.Register
	commands    *command.Publisher
	metrics     *metric.Metrics
	logger      *slog.Logger

	status atomic.Value // Status
	cancel context.CancelFunc
	mu     sync.Mutex
}

// New assembles a relay over the given transport, durable store, and
// recent-history cache. Nothing connects until Start.
func New(cfg *config.Config, transport Transport, recorder Recorder, cache RecentCache, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "service", "new", "validate config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Service{
		cfg:       cfg,
		transport: transport,
		recorder:  recorder,
		cache:     cache,
		metrics:   metric.NewUnregistered(),
		logger:    slog.Default().With("service", "telemetry-relay"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.register = status.NewRegister()
	s.accumulator = batch.New(recorder, cfg.Batch.MaxSize, cfg.BatchMaxAge(),
		batch.WithLogger(s.logger),
		batch.WithMetrics(s.metrics),
	)
	s.dispatcher = ingest.NewDispatcher(cache, s.accumulator, recorder, s.register,
		ingest.WithLogger(s.logger),
		ingest.WithMetrics(s.metrics),
	)
	s.commands = command.NewPublisher(transport,
		command.WithLogger(s.logger),
		command.WithMetrics(s.metrics),
	)

	s.status.Store(StatusStopped)
	return s, nil
}

// Status returns the current lifecycle state
func (s *Service) Status() Status {
	return s.status.Load().(Status)
}

// Start connects the relay to its backends and begins consuming robot
// topics. The durable store must be reachable; the cache is allowed to
// be down and the relay degrades to persistence-only.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.Status()
	if current == StatusRunning || current == StatusStarting {
		return nil
	}
	s.status.Store(StatusStarting)

	if err := s.recorder.EnsureSchema(ctx); err != nil {
		s.status.Store(StatusStopped)
		return err
	}

	if err := s.cache.Ping(ctx); err != nil {
		s.logger.Warn("recent-history cache unreachable, continuing without it", "error", err)
	}

	s.transport.OnHealthChange(func(healthy bool) {
		s.register.SetConnected(healthy)
		if healthy {
			s.metrics.BrokerConnected.Set(1)
		} else {
			s.metrics.BrokerConnected.Set(0)
		}
	})

	if err := s.transport.Connect(ctx); err != nil {
		s.status.Store(StatusStopped)
		return err
	}
	s.register.SetConnected(true)
	s.metrics.BrokerConnected.Set(1)

	for _, subject := range ingest.ConsumedSubjects() {
		subject := subject
		err := s.transport.Subscribe(ctx, subject, func(msgCtx context.Context, data []byte) {
			s.dispatcher.Dispatch(msgCtx, subject, data)
		})
		if err != nil {
			s.status.Store(StatusStopped)
			return errors.WrapTransient(err, "service", "start", "subscribe "+subject)
		}
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.accumulator.Start(runCtx)

	s.status.Store(StatusRunning)
	s.logger.Info("relay started",
		"broker", s.cfg.Broker.URL,
		"subjects", ingest.ConsumedSubjects(),
		"batch_size", s.cfg.Batch.MaxSize,
		"batch_age", s.cfg.BatchMaxAge(),
	)
	return nil
}

// Stop drains the broker connection, flushes any pending batch, and
// releases the backends. Safe to call more than once.
func (s *Service) Stop(timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.Status()
	if current == StatusStopped || current == StatusStopping {
		return nil
	}
	s.status.Store(StatusStopping)

	if timeout == 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Drain first so no new rows arrive after the final flush.
	if err := s.transport.Close(ctx); err != nil {
		s.logger.Warn("broker drain failed", "error", err)
	}
	s.register.SetConnected(false)
	s.metrics.BrokerConnected.Set(0)

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.accumulator.Flush(ctx)
	if !s.accumulator.Wait(timeout) {
		s.logger.Warn("timed out waiting for batch pipeline shutdown")
	}

	if err := s.cache.Close(); err != nil {
		s.logger.Warn("cache close failed", "error", err)
	}
	s.recorder.Close()

	s.status.Store(StatusStopped)
	s.logger.Info("relay stopped")
	return nil
}

// AllRecent returns cached sensor payloads oldest first
func (s *Service) AllRecent(ctx context.Context) []json.RawMessage {
	return s.cache.FetchAll(ctx)
}

// Latest returns the most recent cached sensor payload, or nil
func (s *Service) Latest(ctx context.Context) json.RawMessage {
	return s.cache.FetchLatest(ctx)
}

// RecentNetwork returns cached network metric payloads oldest first
func (s *Service) RecentNetwork(ctx context.Context) []json.RawMessage {
	return s.cache.FetchNetwork(ctx)
}

// RobotStatus returns the last reported robot status string and whether
// the broker link is up
func (s *Service) RobotStatus() (string, bool) {
	return s.register.Get()
}

// CalibrationHistory returns the most recent calibration feedback rows
func (s *Service) CalibrationHistory(ctx context.Context, limit int) ([]store.FeedbackRow, error) {
	return s.recorder.CalibrationHistory(ctx, limit)
}

// SubmitCommand validates and republishes a locomotion command to the robot
func (s *Service) SubmitCommand(ctx context.Context, payload map[string]any) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.CommandTimeout())
	defer cancel()
	return s.commands.PublishCommand(ctx, payload)
}

// SubmitCalibration requests calibration of the named quantity
func (s *Service) SubmitCalibration(ctx context.Context, quantity string) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.CommandTimeout())
	defer cancel()
	return s.commands.PublishCalibration(ctx, quantity)
}
