package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSentinel(t *testing.T) {
	assert.Nil(t, Normalize("Sensor Not Found"))
	assert.Nil(t, Normalize(nil))
}

func TestNormalizeNumericString(t *testing.T) {
	assert.Equal(t, 12.5, Normalize("12.5"))
	assert.Equal(t, float64(-3), Normalize("-3"))
}

func TestNormalizePassThrough(t *testing.T) {
	assert.Equal(t, float64(7), Normalize(float64(7)))
	assert.Equal(t, 7, Normalize(7))
	assert.Equal(t, "calibrating", Normalize("calibrating"))
	assert.Equal(t, true, Normalize(true))
}

func TestNormalizeFieldCoercion(t *testing.T) {
	v := normalizeField(9.81)
	require.NotNil(t, v)
	assert.Equal(t, 9.81, *v)

	v = normalizeField("2.5")
	require.NotNil(t, v)
	assert.Equal(t, 2.5, *v)

	v = normalizeField(int(42))
	require.NotNil(t, v)
	assert.Equal(t, float64(42), *v)

	assert.Nil(t, normalizeField("Sensor Not Found"))
	assert.Nil(t, normalizeField(nil))
	// Non-numeric survivors have no numeric column representation
	assert.Nil(t, normalizeField("calibrating"))
	assert.Nil(t, normalizeField(true))
}
