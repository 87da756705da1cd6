package store

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abbas701/Surveillance-robot/errors"
	"github.com/abbas701/Surveillance-robot/telemetry"
)

func sampleRow(accelX float64) telemetry.Row {
	return telemetry.Row{
		AccelX:    &accelX,
		Timestamp: time.UnixMilli(1700000000500).UTC(),
	}
}

func TestBuildSensorInsertSingleRow(t *testing.T) {
	query, args, err := buildSensorInsert([]telemetry.Row{sampleRow(1.0)})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(query, "INSERT INTO sensor_data (accel_x, accel_y, accel_z,"))
	assert.Contains(t, query, "timestamp) VALUES ")
	assert.Contains(t, query, "($1, $2, $3,")
	assert.Contains(t, query, "$20)")
	assert.NotContains(t, query, "$21")
	require.Len(t, args, telemetry.ColumnCount)

	// First arg is accel_x, last is the timestamp
	require.NotNil(t, args[0])
	assert.Equal(t, 1.0, *(args[0].(*float64)))
	assert.Equal(t, time.UnixMilli(1700000000500).UTC(), args[19])
}

func TestBuildSensorInsertPlaceholderMath(t *testing.T) {
	rows := []telemetry.Row{sampleRow(1), sampleRow(2), sampleRow(3)}
	query, args, err := buildSensorInsert(rows)
	require.NoError(t, err)

	require.Len(t, args, 3*telemetry.ColumnCount)
	// Row boundaries: row 1 ends at $20, row 2 spans $21..$40, row 3 $41..$60
	assert.Contains(t, query, "($1, ")
	assert.Contains(t, query, "($21, ")
	assert.Contains(t, query, "($41, ")
	assert.Contains(t, query, "$60)")
	assert.NotContains(t, query, "$61")

	// One statement, one VALUES clause
	assert.Equal(t, 1, strings.Count(query, "VALUES"))
	assert.Equal(t, 1, strings.Count(query, "INSERT INTO"))

	// Row order is preserved in the argument list
	for i := 0; i < 3; i++ {
		v := args[i*telemetry.ColumnCount].(*float64)
		require.NotNil(t, v)
		assert.Equal(t, float64(i+1), *v)
	}
}

func TestBuildSensorInsertPlaceholderCount(t *testing.T) {
	for _, n := range []int{1, 2, 10, 25} {
		rows := make([]telemetry.Row, n)
		for i := range rows {
			rows[i] = sampleRow(float64(i))
		}
		query, args, err := buildSensorInsert(rows)
		require.NoError(t, err)
		assert.Len(t, args, n*telemetry.ColumnCount, "n=%d", n)
		assert.Equal(t, n*telemetry.ColumnCount, strings.Count(query, "$"), "n=%d", n)
		assert.Contains(t, query, fmt.Sprintf("$%d)", n*telemetry.ColumnCount))
	}
}

func TestBuildSensorInsertNullFields(t *testing.T) {
	row := telemetry.Row{Timestamp: time.Now().UTC()}
	_, args, err := buildSensorInsert([]telemetry.Row{row})
	require.NoError(t, err)

	// All 19 sensor fields are nil pointers, bound as SQL NULL
	for i := 0; i < telemetry.ColumnCount-1; i++ {
		assert.Nil(t, args[i], "arg %d", i)
	}
	assert.NotNil(t, args[telemetry.ColumnCount-1])
}

func TestBuildSensorInsertEmptyBatch(t *testing.T) {
	_, _, err := buildSensorInsert(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrEmptyBatch)
}
