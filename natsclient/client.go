// Package natsclient manages the relay's connection to the NATS broker:
// bounded reconnection, subscription management, publishing, and health
// callbacks that feed the status register and metrics.
package natsclient

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/abbas701/Surveillance-robot/errors"
	"github.com/abbas701/Surveillance-robot/pkg/retry"
)

// ConnectionStatus represents the state of the broker connection
type ConnectionStatus int

// Possible connection statuses
const (
	StatusDisconnected ConnectionStatus = iota
	StatusConnecting
	StatusConnected
	StatusReconnecting
	StatusClosed
)

// String returns the string representation of ConnectionStatus
func (s ConnectionStatus) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ErrNotConnected is returned for publish/subscribe attempts while the
// broker connection is down.
var ErrNotConnected = errors.ErrNotConnected

// Client manages a NATS connection with bounded reconnection.
// Reconnection is never infinite: after maxReconnects attempts the client
// reports itself unhealthy and stays down until external intervention,
// keeping the rest of the process (query surface included) reachable.
type Client struct {
	url    string
	status atomic.Value // stores ConnectionStatus
	logger Logger

	conn *nats.Conn
	subs []*nats.Subscription

	// Connection options
	maxReconnects  int
	reconnectWait  time.Duration
	timeout        time.Duration
	drainTimeout   time.Duration
	messageTimeout time.Duration
	connectRetry   retry.Config
	clientName     string

	// Callbacks
	onHealthChange func(bool)
	onReconnect    func()

	// Synchronization
	mu      sync.RWMutex
	closeMu sync.Mutex
	closed  atomic.Bool
}

// NewClient creates a new broker client with optional configuration
func NewClient(url string, opts ...ClientOption) (*Client, error) {
	c := &Client{
		url:            url,
		logger:         &defaultLogger{},
		maxReconnects:  10,
		reconnectWait:  2 * time.Second,
		timeout:        5 * time.Second,
		drainTimeout:   10 * time.Second,
		messageTimeout: 30 * time.Second,
		connectRetry:   retry.Broker(),
		clientName:     "telemetry-relay",
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.WrapInvalid(err, "Client", "NewClient", "apply option")
		}
	}

	c.status.Store(StatusDisconnected)
	return c, nil
}

// URL returns the broker URL
func (c *Client) URL() string {
	return c.url
}

// Status returns the current connection status
func (c *Client) Status() ConnectionStatus {
	val := c.status.Load()
	if val == nil {
		return StatusDisconnected
	}
	return val.(ConnectionStatus)
}

func (c *Client) setStatus(status ConnectionStatus) {
	c.status.Store(status)
}

// IsHealthy returns true if the broker connection is up
func (c *Client) IsHealthy() bool {
	return c.Status() == StatusConnected
}

// buildOptions translates client configuration to NATS connection options
func (c *Client) buildOptions() []nats.Option {
	return []nats.Option{
		nats.Name(c.clientName),
		nats.MaxReconnects(c.maxReconnects),
		nats.ReconnectWait(c.reconnectWait),
		nats.Timeout(c.timeout),
		nats.DrainTimeout(c.drainTimeout),
		nats.DisconnectErrHandler(c.handleDisconnect),
		nats.ReconnectHandler(c.handleReconnect),
		nats.ClosedHandler(c.handleClosed),
	}
}

// Connect establishes the broker connection with bounded backoff.
// Individual dial failures are retried per the configured retry policy;
// once connected, the NATS client's own bounded reconnect takes over.
func (c *Client) Connect(ctx context.Context) error {
	if c.closed.Load() {
		return errors.WrapInvalid(stderrors.New("client is closed"), "Client", "Connect", "check state")
	}

	c.setStatus(StatusConnecting)
	c.logger.Printf("Connecting to broker at %s", c.url)

	conn, err := retry.DoWithResult(ctx, c.connectRetry, func() (*nats.Conn, error) {
		return nats.Connect(c.url, c.buildOptions()...)
	})
	if err != nil {
		c.setStatus(StatusDisconnected)
		return errors.WrapTransient(err, "Client", "Connect", "establish connection")
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.setStatus(StatusConnected)
	c.logger.Printf("Connected to broker at %s", c.url)
	c.notifyHealth(true)
	return nil
}

// Subscribe subscribes to a subject. The handler receives the raw message
// body; per-message contexts are derived from the subscription context.
func (c *Client) Subscribe(ctx context.Context, subject string, handler func(context.Context, []byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || !c.conn.IsConnected() {
		return ErrNotConnected
	}

	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		msgCtx, cancel := context.WithTimeout(ctx, c.messageTimeout)
		defer cancel()
		handler(msgCtx, msg.Data)
	})
	if err != nil {
		return errors.WrapTransient(err, "Client", "Subscribe", "subscribe "+subject)
	}

	c.subs = append(c.subs, sub)
	return nil
}

// Publish publishes a message to a subject
func (c *Client) Publish(_ context.Context, subject string, data []byte) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil || !conn.IsConnected() {
		return ErrNotConnected
	}

	if err := conn.Publish(subject, data); err != nil {
		return errors.WrapTransient(err, "Client", "Publish", "publish "+subject)
	}
	return nil
}

// Close drains subscriptions and closes the connection. Safe to call more
// than once.
func (c *Client) Close(ctx context.Context) error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed.Swap(true) {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for _, sub := range c.subs {
		if err := sub.Unsubscribe(); err != nil {
			errs = append(errs, errors.Wrap(err, "Client", "Close", "unsubscribe"))
		}
	}
	c.subs = nil

	if c.conn != nil {
		drainDone := make(chan error, 1)
		go func() { drainDone <- c.conn.Drain() }()

		select {
		case err := <-drainDone:
			if err != nil {
				errs = append(errs, errors.Wrap(err, "Client", "Close", "drain connection"))
			}
		case <-time.After(c.drainTimeout):
			errs = append(errs, errors.WrapTransient(errors.ErrConnectionTimeout, "Client", "Close", "drain"))
		case <-ctx.Done():
			errs = append(errs, errors.Wrap(ctx.Err(), "Client", "Close", "drain cancelled"))
		}

		c.conn.Close()
		c.conn = nil
	}

	c.setStatus(StatusClosed)
	return stderrors.Join(errs...)
}

// OnHealthChange sets a callback for health status changes
func (c *Client) OnHealthChange(fn func(bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onHealthChange = fn
}

func (c *Client) notifyHealth(healthy bool) {
	c.mu.RLock()
	fn := c.onHealthChange
	c.mu.RUnlock()
	if fn != nil {
		fn(healthy)
	}
}

func (c *Client) handleDisconnect(_ *nats.Conn, err error) {
	c.setStatus(StatusReconnecting)
	if err != nil {
		c.logger.Errorf("Broker disconnected: %v", err)
	} else {
		c.logger.Printf("Broker disconnected")
	}
	c.notifyHealth(false)
}

func (c *Client) handleReconnect(conn *nats.Conn) {
	c.setStatus(StatusConnected)
	c.logger.Printf("Broker reconnected to %s", conn.ConnectedUrl())

	c.mu.RLock()
	onReconnect := c.onReconnect
	c.mu.RUnlock()
	if onReconnect != nil {
		onReconnect()
	}
	c.notifyHealth(true)
}

// handleClosed fires when the NATS client gives up reconnecting for good.
// The process stays up in degraded health so status and history queries
// remain reachable.
func (c *Client) handleClosed(_ *nats.Conn) {
	if c.closed.Load() {
		return
	}
	c.setStatus(StatusDisconnected)
	c.logger.Errorf("Broker connection closed after exhausting %d reconnect attempts", c.maxReconnects)
	c.notifyHealth(false)
}
