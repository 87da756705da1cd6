// Package store persists telemetry durably in PostgreSQL: batched sensor
// rows via a single multi-row insert, and calibration feedback as immediate
// single-row writes.
//
// A single bounded connection pool is shared across all operations.
// Connection attempts use a bounded timeout so a dead database fails the
// flush path fast instead of hanging it.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/abbas701/Surveillance-robot/config"
	"github.com/abbas701/Surveillance-robot/errors"
	"github.com/abbas701/Surveillance-robot/telemetry"
)

const schema = `
CREATE TABLE IF NOT EXISTS sensor_data (
	id BIGSERIAL PRIMARY KEY,
	accel_x DOUBLE PRECISION,
	accel_y DOUBLE PRECISION,
	accel_z DOUBLE PRECISION,
	gyro_x DOUBLE PRECISION,
	gyro_y DOUBLE PRECISION,
	gyro_z DOUBLE PRECISION,
	roll_angle DOUBLE PRECISION,
	pitch_angle DOUBLE PRECISION,
	pressure DOUBLE PRECISION,
	temperature DOUBLE PRECISION,
	altitude DOUBLE PRECISION,
	mq_2 DOUBLE PRECISION,
	mq_135 DOUBLE PRECISION,
	battery_current DOUBLE PRECISION,
	battery_voltage DOUBLE PRECISION,
	left_rpm DOUBLE PRECISION,
	left_ticks DOUBLE PRECISION,
	right_rpm DOUBLE PRECISION,
	right_ticks DOUBLE PRECISION,
	timestamp TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS calibration_feedback (
	id BIGSERIAL PRIMARY KEY,
	status TEXT NOT NULL,
	quantity TEXT NOT NULL,
	value DOUBLE PRECISION,
	error TEXT,
	timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// Store is the durable telemetry store
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Connect opens the connection pool and verifies reachability within the
// configured timeout. An unreachable store here is fatal to startup: the
// relay cannot make durable progress without it.
func Connect(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, errors.WrapFatal(err, "Store", "Connect", "parse connection string")
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.ConnConfig.ConnectTimeout = time.Duration(cfg.ConnectTimeout) * time.Millisecond

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errors.WrapFatal(err, "Store", "Connect", "create pool")
	}

	pingCtx, cancel := context.WithTimeout(ctx, poolCfg.ConnConfig.ConnectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, errors.WrapFatal(fmt.Errorf("%w: %w", errors.ErrStorageUnavailable, err),
			"Store", "Connect", "ping database")
	}

	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}, nil
}

// EnsureSchema creates the telemetry tables if they do not exist
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return errors.WrapFatal(err, "Store", "EnsureSchema", "create tables")
	}
	return nil
}

// InsertRows writes a batch of sensor rows in one multi-row parameterized
// insert, a single statement and a single round trip.
func (s *Store) InsertRows(ctx context.Context, rows []telemetry.Row) error {
	query, args, err := buildSensorInsert(rows)
	if err != nil {
		return err
	}

	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return errors.WrapTransient(err, "Store", "InsertRows", "exec batch insert")
	}
	return nil
}

// InsertCalibrationFeedback persists one feedback report immediately
func (s *Store) InsertCalibrationFeedback(ctx context.Context, fb *telemetry.CalibrationFeedback) error {
	const query = `INSERT INTO calibration_feedback (status, quantity, value, error) VALUES ($1, $2, $3, $4)`

	var errText *string
	if fb.Error != "" {
		errText = &fb.Error
	}

	if _, err := s.pool.Exec(ctx, query, fb.Status, fb.Quantity, fb.Value, errText); err != nil {
		return errors.WrapTransient(err, "Store", "InsertCalibrationFeedback", "exec insert")
	}
	return nil
}

// FeedbackRow is a persisted calibration feedback report
type FeedbackRow struct {
	ID        int64
	Status    string
	Quantity  string
	Value     *float64
	Error     *string
	Timestamp time.Time
}

// CalibrationHistory returns the most recent feedback rows, newest first
func (s *Store) CalibrationHistory(ctx context.Context, limit int) ([]FeedbackRow, error) {
	const query = `SELECT id, status, quantity, value, error, timestamp
		FROM calibration_feedback ORDER BY timestamp DESC LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, errors.WrapTransient(err, "Store", "CalibrationHistory", "query feedback")
	}
	defer rows.Close()

	var out []FeedbackRow
	for rows.Next() {
		var fr FeedbackRow
		if err := rows.Scan(&fr.ID, &fr.Status, &fr.Quantity, &fr.Value, &fr.Error, &fr.Timestamp); err != nil {
			return nil, errors.Wrap(err, "Store", "CalibrationHistory", "scan row")
		}
		out = append(out, fr)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapTransient(err, "Store", "CalibrationHistory", "read rows")
	}
	return out, nil
}

// Close releases the connection pool
func (s *Store) Close() {
	s.pool.Close()
}
