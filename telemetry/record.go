// Package telemetry defines the wire-format records published by the robot
// and the flattening of nested sensor payloads into the fixed-width rows the
// durable schema expects.
//
// The producer owns the wire format. Any sensor leaf may be absent, a
// number, a numeric string, or the literal sentinel "Sensor Not Found",
// so leaves decode as untyped values and are normalized at mapping time.
package telemetry

import (
	"encoding/json"

	"github.com/abbas701/Surveillance-robot/errors"
)

// Kind identifies which topic a payload arrived on, and therefore which
// decoder applies.
type Kind int

const (
	// KindSensor is a nested sensor-telemetry record
	KindSensor Kind = iota
	// KindStatus is a raw status string, not JSON
	KindStatus
	// KindCalibrationFeedback is a calibration feedback report
	KindCalibrationFeedback
	// KindNetwork is an opaque network-metrics report, cached only
	KindNetwork
)

// String returns the string representation of Kind
func (k Kind) String() string {
	switch k {
	case KindSensor:
		return "sensor"
	case KindStatus:
		return "status"
	case KindCalibrationFeedback:
		return "calibration_feedback"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// Record is a sensor-telemetry message as published by the robot.
// Sub-groups are pointers so absence is distinguishable from zero values.
type Record struct {
	Environment *Environment    `json:"environment,omitempty"`
	IMU         *IMU            `json:"imu,omitempty"`
	Battery     *Battery        `json:"battery,omitempty"`
	Encoders    *Encoders       `json:"encoders,omitempty"`
	Movement    json.RawMessage `json:"movement,omitempty"`
	Timestamp   float64         `json:"timestamp"`
}

// Environment groups the environmental sensor readings
type Environment struct {
	Temperature any         `json:"temperature,omitempty"`
	Pressure    any         `json:"pressure,omitempty"`
	Altitude    any         `json:"altitude,omitempty"`
	MQ2         *GasReading `json:"MQ2,omitempty"`
	MQ135       *GasReading `json:"MQ135,omitempty"`
}

// GasReading is an ADC-backed reading reported as a voltage
type GasReading struct {
	Voltage any `json:"voltage,omitempty"`
}

// Axes holds a three-axis IMU reading
type Axes struct {
	X any `json:"x,omitempty"`
	Y any `json:"y,omitempty"`
	Z any `json:"z,omitempty"`
}

// Tilt holds the computed roll and pitch angles
type Tilt struct {
	Roll  any `json:"roll,omitempty"`
	Pitch any `json:"pitch,omitempty"`
}

// IMU groups accelerometer, gyroscope and tilt readings
type IMU struct {
	Accel *Axes `json:"accel,omitempty"`
	Gyro  *Axes `json:"gyro,omitempty"`
	Tilt  *Tilt `json:"tilt,omitempty"`
}

// Battery groups the two battery ADC channels
type Battery struct {
	Current *GasReading `json:"battery_current,omitempty"`
	Voltage *GasReading `json:"battery_voltage,omitempty"`
}

// Encoder holds one wheel encoder reading
type Encoder struct {
	RPM   any `json:"rpm,omitempty"`
	Ticks any `json:"ticks,omitempty"`
}

// Encoders groups the left and right wheel encoders
type Encoders struct {
	Left  *Encoder `json:"left_encoder,omitempty"`
	Right *Encoder `json:"right_encoder,omitempty"`
}

// CalibrationFeedback is the robot's report on a calibration request.
// It is persisted immediately as a single row, never batched.
type CalibrationFeedback struct {
	Status   string   `json:"status"`
	Quantity string   `json:"quantity"`
	Value    *float64 `json:"value,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// DecodeRecord parses a sensor-telemetry payload. The record is rejected
// outright only when both the environment and imu groups are absent: such a
// message cannot be mapped to a durable row and carries nothing the
// dashboard renders either.
func DecodeRecord(data []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.WrapInvalid(errors.ErrMalformedPayload, "telemetry", "DecodeRecord", "parse sensor payload")
	}
	if rec.Environment == nil && rec.IMU == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingGroups, "telemetry", "DecodeRecord", "check required groups")
	}
	return &rec, nil
}

// DecodeCalibrationFeedback parses a calibration-feedback payload
func DecodeCalibrationFeedback(data []byte) (*CalibrationFeedback, error) {
	var fb CalibrationFeedback
	if err := json.Unmarshal(data, &fb); err != nil {
		return nil, errors.WrapInvalid(errors.ErrMalformedPayload,
			"telemetry", "DecodeCalibrationFeedback", "parse feedback payload")
	}
	return &fb, nil
}
