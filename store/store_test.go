package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abbas701/Surveillance-robot/config"
	"github.com/abbas701/Surveillance-robot/errors"
)

func TestConnectUnreachableSurfacesCause(t *testing.T) {
	cfg := config.StoreConfig{
		Host:           "127.0.0.1",
		Port:           1,
		User:           "robot",
		Database:       "telemetry",
		MaxConns:       1,
		ConnectTimeout: 500,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := Connect(ctx, cfg, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrStorageUnavailable)
	assert.True(t, errors.IsFatal(err))
	// The underlying dial failure stays in the chain for boot diagnostics
	assert.Contains(t, err.Error(), "127.0.0.1")
}

func TestConnectRejectsBadDSN(t *testing.T) {
	cfg := config.StoreConfig{
		Host: "db host with spaces", Port: 5432, User: "robot", Database: "telemetry",
		MaxConns: 1, ConnectTimeout: 500,
	}
	_, err := Connect(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
}
