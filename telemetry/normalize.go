package telemetry

import "strconv"

// sentinelValues are the placeholder strings the robot publishes when a
// sensor could not be read. Add new sentinels here; call sites go through
// Normalize and never compare literals themselves.
var sentinelValues = map[string]struct{}{
	"Sensor Not Found": {},
}

// Normalize applies the sentinel-to-null convention to a single leaf value:
// sentinels and nil become nil, numeric strings are parsed to float64, and
// anything else passes through unchanged.
func Normalize(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		if _, ok := sentinelValues[t]; ok {
			return nil
		}
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return f
		}
		return t
	default:
		return v
	}
}

// normalizeField normalizes a leaf and coerces it to a nullable column
// value. Non-numeric survivors normalize to null as well: every sensor
// column in the durable schema is numeric, so an unexpected string has no
// representation there.
func normalizeField(v any) *float64 {
	switch t := Normalize(v).(type) {
	case float64:
		return &t
	case float32:
		f := float64(t)
		return &f
	case int:
		f := float64(t)
		return &f
	case int64:
		f := float64(t)
		return &f
	default:
		return nil
	}
}
