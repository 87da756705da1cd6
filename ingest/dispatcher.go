// Package ingest routes inbound broker messages to their handlers: sensor
// telemetry fans out to the recent-history cache and the batch accumulator,
// status updates overwrite the status register, calibration feedback is
// persisted immediately, and network metrics are cached only.
//
// Topic handling is isolated: a decode or mapping failure on one topic
// never blocks a later message on another. Unknown topics are logged and
// dropped, not errors.
package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/abbas701/Surveillance-robot/metric"
	"github.com/abbas701/Surveillance-robot/telemetry"
)

// Broker subjects. The robot publishes on the slash-separated MQTT names;
// the relay's NATS vocabulary maps them dot-separated.
const (
	SubjectSensorData          = "robot.sensor_data"
	SubjectStatus              = "robot.status"
	SubjectCalibrationFeedback = "robot.calibration.feedback"
	SubjectNetwork             = "robot.network"
	SubjectLocomotion          = "robot.locomotion"
	SubjectCalibration         = "robot.calibration"
)

// ConsumedSubjects returns the fixed topic set the relay subscribes to
func ConsumedSubjects() []string {
	return []string{
		SubjectSensorData,
		SubjectStatus,
		SubjectCalibrationFeedback,
		SubjectNetwork,
	}
}

// HistoryWriter is the recent-history cache dependency
type HistoryWriter interface {
	PushLatest(ctx context.Context, payload []byte)
	PushNetwork(ctx context.Context, payload []byte)
}

// RowSink is the batch accumulator dependency
type RowSink interface {
	Offer(ctx context.Context, row telemetry.Row)
}

// FeedbackWriter is the immediate durable-write dependency for
// calibration feedback
type FeedbackWriter interface {
	InsertCalibrationFeedback(ctx context.Context, fb *telemetry.CalibrationFeedback) error
}

// StatusWriter is the status register dependency
type StatusWriter interface {
	SetStatus(status string)
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithLogger sets the dispatcher logger
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithMetrics sets the metrics sink
func WithMetrics(m *metric.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// Dispatcher routes decoded messages by topic identity
type Dispatcher struct {
	history  HistoryWriter
	rows     RowSink
	feedback FeedbackWriter
	status   StatusWriter
	logger   *slog.Logger
	metrics  *metric.Metrics
}

// NewDispatcher creates a dispatcher over the pipeline's sinks
func NewDispatcher(
	history HistoryWriter,
	rows RowSink,
	feedback FeedbackWriter,
	status StatusWriter,
	opts ...Option,
) *Dispatcher {
	d := &Dispatcher{
		history:  history,
		rows:     rows,
		feedback: feedback,
		status:   status,
		logger:   slog.Default(),
		metrics:  metric.NewUnregistered(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch routes one inbound message. It never returns an error: every
// failure mode is contained here so the subscription callback survives any
// payload the producer sends.
func (d *Dispatcher) Dispatch(ctx context.Context, subject string, data []byte) {
	d.metrics.MessagesReceived.WithLabelValues(subject).Inc()

	switch subject {
	case SubjectSensorData:
		d.handleSensor(ctx, data)
	case SubjectStatus:
		d.handleStatus(data)
	case SubjectCalibrationFeedback:
		d.handleFeedback(ctx, data)
	case SubjectNetwork:
		d.handleNetwork(ctx, data)
	default:
		d.logger.Warn("dropping message on unknown topic", "topic", subject)
	}
}

// handleSensor fans a telemetry record out to both consumers: the cache
// gets the raw record for live reads, the accumulator gets the flattened
// row for durable history.
func (d *Dispatcher) handleSensor(ctx context.Context, data []byte) {
	rec, err := telemetry.DecodeRecord(data)
	if err != nil {
		d.metrics.DecodeFailures.WithLabelValues(telemetry.KindSensor.String()).Inc()
		d.logger.Warn("dropping undecodable sensor payload", "error", err)
		return
	}

	// Cache path first: the dashboard shows the record even when it
	// cannot be persisted.
	d.history.PushLatest(ctx, data)

	row, ok := telemetry.MapRow(rec)
	if !ok {
		// Not an error state: the record lacks the groups the durable
		// schema needs. It does not count toward the batch size.
		d.metrics.MappingSkips.Inc()
		d.logger.Debug("sensor record skipped for durable storage",
			"has_environment", rec.Environment != nil,
			"has_imu", rec.IMU != nil)
		return
	}

	d.rows.Offer(ctx, row)
}

// handleStatus stores the raw status string. The payload is not JSON.
func (d *Dispatcher) handleStatus(data []byte) {
	st := strings.TrimSpace(string(data))
	if st == "" {
		d.metrics.DecodeFailures.WithLabelValues(telemetry.KindStatus.String()).Inc()
		d.logger.Warn("dropping empty status message")
		return
	}
	d.status.SetStatus(st)
	d.logger.Info("robot status updated", "status", st)
}

// handleFeedback persists calibration feedback immediately. Feedback is
// low-frequency, so it bypasses the batch buffer entirely.
func (d *Dispatcher) handleFeedback(ctx context.Context, data []byte) {
	fb, err := telemetry.DecodeCalibrationFeedback(data)
	if err != nil {
		d.metrics.DecodeFailures.WithLabelValues(telemetry.KindCalibrationFeedback.String()).Inc()
		d.logger.Warn("dropping undecodable calibration feedback", "error", err)
		return
	}

	if err := d.feedback.InsertCalibrationFeedback(ctx, fb); err != nil {
		d.logger.Error("calibration feedback insert failed",
			"status", fb.Status,
			"quantity", fb.Quantity,
			"error", err)
		return
	}
	d.logger.Info("calibration feedback stored", "status", fb.Status, "quantity", fb.Quantity)
}

// handleNetwork caches network metrics; they are never persisted
func (d *Dispatcher) handleNetwork(ctx context.Context, data []byte) {
	if !json.Valid(data) {
		d.metrics.DecodeFailures.WithLabelValues(telemetry.KindNetwork.String()).Inc()
		d.logger.Warn("dropping undecodable network payload")
		return
	}
	d.history.PushNetwork(ctx, data)
}
