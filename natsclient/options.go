package natsclient

import (
	"fmt"
	"log"
	"log/slog"
	"time"

	"github.com/abbas701/Surveillance-robot/pkg/retry"
)

// Logger interface for injecting custom loggers
type Logger interface {
	Printf(format string, v ...any)
	Errorf(format string, v ...any)
}

// defaultLogger implements Logger using the standard log package
type defaultLogger struct{}

func (l *defaultLogger) Printf(format string, v ...any) {
	log.Printf("[broker] "+format, v...)
}

func (l *defaultLogger) Errorf(format string, v ...any) {
	log.Printf("[broker error] "+format, v...)
}

// SlogAdapter bridges the client's Logger interface to slog
type SlogAdapter struct {
	L *slog.Logger
}

// Printf logs at info level
func (a SlogAdapter) Printf(format string, v ...any) {
	a.L.Info(fmt.Sprintf(format, v...))
}

// Errorf logs at error level
func (a SlogAdapter) Errorf(format string, v ...any) {
	a.L.Error(fmt.Sprintf(format, v...))
}

// ClientOption is a functional option for configuring the Client
type ClientOption func(*Client) error

// WithMaxReconnects sets the maximum number of reconnection attempts.
// Reconnection is always bounded; negative values are rejected.
func WithMaxReconnects(n int) ClientOption {
	return func(c *Client) error {
		if n < 0 {
			return fmt.Errorf("max reconnects must be >= 0, got %d", n)
		}
		c.maxReconnects = n
		return nil
	}
}

// WithReconnectWait sets the wait time between reconnection attempts
func WithReconnectWait(d time.Duration) ClientOption {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("reconnect wait must be positive, got %v", d)
		}
		c.reconnectWait = d
		return nil
	}
}

// WithConnectTimeout sets the dial timeout for connection attempts
func WithConnectTimeout(d time.Duration) ClientOption {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("connect timeout must be positive, got %v", d)
		}
		c.timeout = d
		return nil
	}
}

// WithMessageTimeout sets the deadline on the context handed to each
// subscription handler
func WithMessageTimeout(d time.Duration) ClientOption {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("message timeout must be positive, got %v", d)
		}
		c.messageTimeout = d
		return nil
	}
}

// WithConnectRetry sets the backoff policy for the initial connect
func WithConnectRetry(cfg retry.Config) ClientOption {
	return func(c *Client) error {
		c.connectRetry = cfg
		return nil
	}
}

// WithClientName sets the connection name reported to the broker
func WithClientName(name string) ClientOption {
	return func(c *Client) error {
		if name == "" {
			return fmt.Errorf("client name cannot be empty")
		}
		c.clientName = name
		return nil
	}
}

// WithLogger sets a custom logger for the client
func WithLogger(logger Logger) ClientOption {
	return func(c *Client) error {
		if logger == nil {
			logger = &defaultLogger{}
		}
		c.logger = logger
		return nil
	}
}

// WithHealthCallback sets a callback invoked on connect/disconnect
// transitions. It feeds the status register's connected flag.
func WithHealthCallback(fn func(bool)) ClientOption {
	return func(c *Client) error {
		c.onHealthChange = fn
		return nil
	}
}

// WithReconnectCallback sets a callback invoked after each reconnection
func WithReconnectCallback(fn func()) ClientOption {
	return func(c *Client) error {
		c.onReconnect = fn
		return nil
	}
}
