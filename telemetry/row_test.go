package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnInvariants(t *testing.T) {
	assert.Len(t, Columns, ColumnCount)
	assert.Equal(t, "accel_x", Columns[0])
	assert.Equal(t, "timestamp", Columns[ColumnCount-1])
}

func TestMapRowFull(t *testing.T) {
	rec, err := DecodeRecord([]byte(fullPayload))
	require.NoError(t, err)

	row, ok := MapRow(rec)
	require.True(t, ok)

	vals := row.Values()
	require.Len(t, vals, ColumnCount)

	want := func(f float64) *float64 { return &f }
	assert.Equal(t, want(0.01), row.AccelX)
	assert.Equal(t, want(-0.02), row.AccelY)
	assert.Equal(t, want(9.81), row.AccelZ)
	assert.Equal(t, want(0.1), row.GyroX)
	assert.Equal(t, want(1.5), row.Roll)
	assert.Equal(t, want(-2.5), row.Pitch)
	assert.Equal(t, want(1012.5), row.Pressure)
	assert.Equal(t, want(24.3), row.Temperature)
	// Sentinel altitude normalizes to null
	assert.Nil(t, row.Altitude)
	assert.Equal(t, want(0.41), row.MQ2)
	// Numeric string parses to float
	assert.Equal(t, want(0.39), row.MQ135)
	assert.Equal(t, want(1.2), row.BatteryCurrent)
	assert.Equal(t, want(11.9), row.BatteryVoltage)
	assert.Equal(t, want(60), row.LeftRPM)
	assert.Equal(t, want(1200), row.LeftTicks)
	assert.Equal(t, want(58), row.RightRPM)
	assert.Equal(t, want(1188), row.RightTicks)

	// Seconds-to-milliseconds conversion
	assert.Equal(t, time.UnixMilli(1700000000500).UTC(), row.Timestamp)
}

func TestMapRowValuesOrder(t *testing.T) {
	rec, err := DecodeRecord([]byte(fullPayload))
	require.NoError(t, err)
	row, ok := MapRow(rec)
	require.True(t, ok)

	vals := row.Values()
	assert.Equal(t, row.AccelX, vals[0])
	assert.Equal(t, row.GyroZ, vals[5])
	assert.Equal(t, row.Roll, vals[6])
	assert.Equal(t, row.Pressure, vals[8])
	assert.Equal(t, row.MQ2, vals[11])
	assert.Equal(t, row.BatteryCurrent, vals[13])
	assert.Equal(t, row.LeftRPM, vals[15])
	assert.Equal(t, row.RightTicks, vals[18])
	assert.Equal(t, row.Timestamp, vals[19])
}

func TestMapRowMissingGroup(t *testing.T) {
	rec := &Record{IMU: &IMU{Accel: &Axes{X: 1.0}}, Timestamp: 1}
	_, ok := MapRow(rec)
	assert.False(t, ok)

	rec = &Record{Environment: &Environment{Temperature: 20.0}, Timestamp: 1}
	_, ok = MapRow(rec)
	assert.False(t, ok)

	_, ok = MapRow(nil)
	assert.False(t, ok)
}

func TestMapRowAbsentSubgroupsYieldNulls(t *testing.T) {
	rec := &Record{
		Environment: &Environment{Temperature: 21.0},
		IMU:         &IMU{},
		Timestamp:   1700000000,
	}
	row, ok := MapRow(rec)
	require.True(t, ok)

	assert.Nil(t, row.AccelX)
	assert.Nil(t, row.GyroY)
	assert.Nil(t, row.Roll)
	assert.Nil(t, row.MQ2)
	assert.Nil(t, row.BatteryCurrent)
	assert.Nil(t, row.LeftRPM)
	require.NotNil(t, row.Temperature)
	assert.Equal(t, 21.0, *row.Temperature)
	assert.Equal(t, time.UnixMilli(1700000000000).UTC(), row.Timestamp)
}
