package telemetry

import "time"

// Columns lists the sensor_data columns in their authoritative order.
// Row.Values MUST produce arguments in exactly this order: the multi-row
// insert binds positionally, and a mismatch corrupts data silently.
var Columns = []string{
	"accel_x", "accel_y", "accel_z",
	"gyro_x", "gyro_y", "gyro_z",
	"roll_angle", "pitch_angle",
	"pressure", "temperature", "altitude",
	"mq_2", "mq_135",
	"battery_current", "battery_voltage",
	"left_rpm", "left_ticks", "right_rpm", "right_ticks",
	"timestamp",
}

// ColumnCount is the fixed width of a flattened sensor row
const ColumnCount = 20

// Row is a sensor record flattened to the durable schema: 19 nullable
// numeric fields plus an absolute timestamp.
type Row struct {
	AccelX *float64
	AccelY *float64
	AccelZ *float64

	GyroX *float64
	GyroY *float64
	GyroZ *float64

	Roll  *float64
	Pitch *float64

	Pressure    *float64
	Temperature *float64
	Altitude    *float64

	MQ2   *float64
	MQ135 *float64

	BatteryCurrent *float64
	BatteryVoltage *float64

	LeftRPM    *float64
	LeftTicks  *float64
	RightRPM   *float64
	RightTicks *float64

	Timestamp time.Time
}

// Values returns the row's fields as insert arguments in Columns order
func (r Row) Values() []any {
	return []any{
		r.AccelX, r.AccelY, r.AccelZ,
		r.GyroX, r.GyroY, r.GyroZ,
		r.Roll, r.Pitch,
		r.Pressure, r.Temperature, r.Altitude,
		r.MQ2, r.MQ135,
		r.BatteryCurrent, r.BatteryVoltage,
		r.LeftRPM, r.LeftTicks, r.RightRPM, r.RightTicks,
		r.Timestamp,
	}
}

// MapRow flattens a record into a durable row. It returns false when the
// environment or imu group is absent: the record is unusable for durable
// storage, though the cache path still accepts it.
func MapRow(rec *Record) (Row, bool) {
	if rec == nil || rec.Environment == nil || rec.IMU == nil {
		return Row{}, false
	}

	row := Row{
		Pressure:    normalizeField(rec.Environment.Pressure),
		Temperature: normalizeField(rec.Environment.Temperature),
		Altitude:    normalizeField(rec.Environment.Altitude),
		// Unix seconds to milliseconds before building the instant
		Timestamp: time.UnixMilli(int64(rec.Timestamp * 1000)).UTC(),
	}

	if a := rec.IMU.Accel; a != nil {
		row.AccelX = normalizeField(a.X)
		row.AccelY = normalizeField(a.Y)
		row.AccelZ = normalizeField(a.Z)
	}
	if g := rec.IMU.Gyro; g != nil {
		row.GyroX = normalizeField(g.X)
		row.GyroY = normalizeField(g.Y)
		row.GyroZ = normalizeField(g.Z)
	}
	if t := rec.IMU.Tilt; t != nil {
		row.Roll = normalizeField(t.Roll)
		row.Pitch = normalizeField(t.Pitch)
	}
	if mq := rec.Environment.MQ2; mq != nil {
		row.MQ2 = normalizeField(mq.Voltage)
	}
	if mq := rec.Environment.MQ135; mq != nil {
		row.MQ135 = normalizeField(mq.Voltage)
	}
	if b := rec.Battery; b != nil {
		if b.Current != nil {
			row.BatteryCurrent = normalizeField(b.Current.Voltage)
		}
		if b.Voltage != nil {
			row.BatteryVoltage = normalizeField(b.Voltage.Voltage)
		}
	}
	if e := rec.Encoders; e != nil {
		if e.Left != nil {
			row.LeftRPM = normalizeField(e.Left.RPM)
			row.LeftTicks = normalizeField(e.Left.Ticks)
		}
		if e.Right != nil {
			row.RightRPM = normalizeField(e.Right.RPM)
			row.RightTicks = normalizeField(e.Right.Ticks)
		}
	}

	return row, true
}
