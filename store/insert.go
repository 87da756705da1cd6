package store

import (
	"strconv"
	"strings"

	"github.com/abbas701/Surveillance-robot/errors"
	"github.com/abbas701/Surveillance-robot/telemetry"
)

// buildSensorInsert constructs one multi-row parameterized INSERT covering
// every row in the batch. Placeholders are numbered row-major:
// row i binds $(i*20+1) through $(i*20+20), matching telemetry.Columns
// order exactly.
func buildSensorInsert(rows []telemetry.Row) (string, []any, error) {
	if len(rows) == 0 {
		return "", nil, errors.WrapInvalid(errors.ErrEmptyBatch, "Store", "buildSensorInsert", "check batch size")
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO sensor_data (")
	sb.WriteString(strings.Join(telemetry.Columns, ", "))
	sb.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*telemetry.ColumnCount)
	for i, row := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for col := 0; col < telemetry.ColumnCount; col++ {
			if col > 0 {
				sb.WriteString(", ")
			}
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(i*telemetry.ColumnCount + col + 1))
		}
		sb.WriteByte(')')
		args = append(args, row.Values()...)
	}

	return sb.String(), args, nil
}
