// Package command validates and republishes operator commands to the
// robot: locomotion commands and calibration requests.
//
// Commands are operator-initiated, so transport failures surface to the
// caller instead of being dropped silently; the HTTP layer translates them
// to a service-unavailable response.
package command

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/abbas701/Surveillance-robot/errors"
	"github.com/abbas701/Surveillance-robot/ingest"
	"github.com/abbas701/Surveillance-robot/metric"
)

// Transport is the outbound pub/sub dependency
type Transport interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Locomotion is an operator movement command. Defaults mirror what the
// robot controller assumes when fields are omitted.
type Locomotion struct {
	Action string  `json:"action"`
	Speed  float64 `json:"speed"`
	Angle  float64 `json:"angle"`
	Mode   string  `json:"mode"`
	Value  any     `json:"value,omitempty"`
}

// defaultMode is the locomotion mode assumed when the operator omits one
const defaultMode = "manual-precise"

// Publisher republishes operator commands to the transport
type Publisher struct {
	transport Transport
	logger    *slog.Logger
	metrics   *metric.Metrics
}

// Option configures a Publisher
type Option func(*Publisher)

// WithLogger sets the publisher logger
func WithLogger(l *slog.Logger) Option {
	return func(p *Publisher) { p.logger = l }
}

// WithMetrics sets the metrics sink
func WithMetrics(m *metric.Metrics) Option {
	return func(p *Publisher) { p.metrics = m }
}

// NewPublisher creates a command publisher
func NewPublisher(transport Transport, opts ...Option) *Publisher {
	p := &Publisher{
		transport: transport,
		logger:    slog.Default(),
		metrics:   metric.NewUnregistered(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PublishCommand validates and republishes a locomotion command. The
// payload must carry an action; validation happens before any transport
// interaction so a missing action never reaches the broker.
func (p *Publisher) PublishCommand(ctx context.Context, payload map[string]any) error {
	action, _ := payload["action"].(string)
	if action == "" {
		return errors.WrapInvalid(errors.ErrMissingAction, "Publisher", "PublishCommand", "validate payload")
	}

	cmd := Locomotion{
		Action: action,
		Mode:   defaultMode,
	}
	if v, ok := numeric(payload["speed"]); ok {
		cmd.Speed = v
	}
	if v, ok := numeric(payload["angle"]); ok {
		cmd.Angle = v
	}
	if v, ok := payload["mode"].(string); ok && v != "" {
		cmd.Mode = v
	}
	if v, ok := payload["value"]; ok {
		cmd.Value = v
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		return errors.WrapInvalid(err, "Publisher", "PublishCommand", "encode command")
	}

	if err := p.transport.Publish(ctx, ingest.SubjectLocomotion, data); err != nil {
		return errors.Wrap(err, "Publisher", "PublishCommand", "publish command")
	}

	p.metrics.CommandsPublished.WithLabelValues(ingest.SubjectLocomotion).Inc()
	p.logger.Info("published locomotion command", "action", action, "mode", cmd.Mode)
	return nil
}

// numeric coerces the loosely typed values command payloads carry: JSON
// decoding yields float64, direct callers pass Go integers, and decoders
// configured with UseNumber yield json.Number.
func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// PublishCalibration republishes a calibration request for one quantity
func (p *Publisher) PublishCalibration(ctx context.Context, quantity string) error {
	if quantity == "" {
		return errors.WrapInvalid(errors.ErrMissingQuantity, "Publisher", "PublishCalibration", "validate quantity")
	}

	data, err := json.Marshal(map[string]string{"quantity": quantity})
	if err != nil {
		return errors.WrapInvalid(err, "Publisher", "PublishCalibration", "encode request")
	}

	if err := p.transport.Publish(ctx, ingest.SubjectCalibration, data); err != nil {
		return errors.Wrap(err, "Publisher", "PublishCalibration", "publish request")
	}

	p.metrics.CommandsPublished.WithLabelValues(ingest.SubjectCalibration).Inc()
	p.logger.Info("published calibration request", "quantity", quantity)
	return nil
}
