package natsclient

import (
	"context"
	"crypto/tls"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/semlink/errors"
)

// ConnectionStatus represents the state of the NATS connection
type ConnectionStatus int

// Possible connection statuses
const (
	StatusDisconnected ConnectionStatus = iota
	StatusConnecting
	StatusConnected
	StatusReconnecting
	StatusCircuitOpen
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
	case StatusCircuitOpen:
		return "circuit_open"
	default:
		return "unknown"
	}
}

// Error messages
var (
	ErrNotConnected = stderrors.New("not connected to NATS")
	ErrCircuitOpen  = stderrors.New("circuit breaker is open")
)

// Client manages a NATS connection with circuit breaker pattern
type Client struct {
	url      string
	status   atomic.Value // stores ConnectionStatus
	failures atomic.Int32
	logger   *slog.Logger

	conn *nats.Conn
	js   jetstream.JetStream

	circuitThreshold int32

	maxReconnects int
	reconnectWait time.Duration
	timeout       time.Duration

	username string
	password string
	token    string

	clientName string
	tlsConfig  *tls.Config

	mu      sync.RWMutex
	closeMu sync.Mutex
	closed  atomic.Bool
}

// NewClient creates a new NATS client with optional configuration
func NewClient(url string, opts ...ClientOption) (*Client, error) {
	if url == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Client", "NewClient", "url validation")
	}
	c := &Client{
		url:              url,
		logger:           slog.Default(),
		maxReconnects:    -1,
		reconnectWait:    2 * time.Second,
		timeout:          5 * time.Second,
		circuitThreshold: 5,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.WrapInvalid(err, "Client", "NewClient", "apply option")
		}
	}

	c.status.Store(StatusDisconnected)
	return c, nil
}

// URL returns the NATS server URL
func (m *Client) URL() string {
	return m.url
}

// Status returns the current connection status
func (m *Client) Status() ConnectionStatus {
	return m.status.Load().(ConnectionStatus)
}

func (m *Client) setStatus(status ConnectionStatus) {
	m.status.Store(status)
}

// IsHealthy reports whether the client is connected
func (m *Client) IsHealthy() bool {
	return m.Status() == StatusConnected
}

// Failures returns the consecutive failure count
func (m *Client) Failures() int32 {
	return m.failures.Load()
}

func (m *Client) recordFailure() {
	if m.failures.Add(1) >= m.circuitThreshold {
		m.setStatus(StatusCircuitOpen)
		m.logger.Warn("NATS circuit breaker opened", "url", m.url, "failures", m.failures.Load())
	}
}

func (m *Client) resetCircuit() {
	m.failures.Store(0)
}

func (m *Client) connectionOptions() []nats.Option {
	opts := []nats.Option{
		nats.MaxReconnects(m.maxReconnects),
		nats.ReconnectWait(m.reconnectWait),
		nats.Timeout(m.timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if m.closed.Load() {
				return
			}
			m.setStatus(StatusReconnecting)
			m.logger.Warn("NATS disconnected", "url", m.url, "error", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			m.setStatus(StatusConnected)
			m.resetCircuit()
			m.logger.Info("NATS reconnected", "url", m.url)
		}),
	}
	if m.username != "" && m.password != "" {
		opts = append(opts, nats.UserInfo(m.username, m.password))
	}
	if m.token != "" {
		opts = append(opts, nats.Token(m.token))
	}
	if m.clientName != "" {
		opts = append(opts, nats.Name(m.clientName))
	}
	if m.tlsConfig != nil {
		opts = append(opts, nats.Secure(m.tlsConfig))
	}
	return opts
}

// Connect establishes the connection and the JetStream context. An open
// circuit is tested again on every call; success closes it.
func (m *Client) Connect(ctx context.Context) error {
	m.setStatus(StatusConnecting)
	m.logger.Debug("connecting to NATS", "url", m.url)

	connectDone := make(chan error, 1)
	go func() {
		conn, err := nats.Connect(m.url, m.connectionOptions()...)
		if err != nil {
			connectDone <- err
			return
		}
		js, err := jetstream.New(conn)
		if err != nil {
			conn.Close()
			connectDone <- err
			return
		}

		m.mu.Lock()
		m.conn = conn
		m.js = js
		m.mu.Unlock()
		connectDone <- nil
	}()

	select {
	case err := <-connectDone:
		if err != nil {
			m.setStatus(StatusDisconnected)
			m.recordFailure()
			if m.Status() == StatusCircuitOpen {
				return ErrCircuitOpen
			}
			return errors.WrapTransient(err, "Client", "Connect", "establish connection")
		}
	case <-ctx.Done():
		m.setStatus(StatusDisconnected)
		m.recordFailure()
		return errors.WrapTransient(ctx.Err(), "Client", "Connect", "connection cancelled")
	}

	m.setStatus(StatusConnected)
	m.resetCircuit()
	m.logger.Info("connected to NATS", "url", m.url)
	return nil
}

// Close drains and closes the connection. Calling Close twice is a no-op.
func (m *Client) Close(_ context.Context) error {
	m.closeMu.Lock()
	defer m.closeMu.Unlock()

	if m.closed.Load() {
		return nil
	}
	m.closed.Store(true)

	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	if m.conn != nil {
		if derr := m.conn.Drain(); derr != nil {
			err = errors.WrapTransient(derr, "Client", "Close", "drain connection")
			m.conn.Close()
		}
		m.conn = nil
	}
	m.js = nil
	m.password = ""
	m.token = ""
	m.setStatus(StatusDisconnected)
	return err
}

// JetStream returns the JetStream context
func (m *Client) JetStream() (jetstream.JetStream, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.js == nil {
		return nil, errors.WrapTransient(ErrNotConnected, "Client", "JetStream", "get JetStream context")
	}
	return m.js, nil
}

func (m *Client) ready() (jetstream.JetStream, error) {
	switch m.Status() {
	case StatusCircuitOpen:
		return nil, ErrCircuitOpen
	case StatusConnected:
	default:
		return nil, ErrNotConnected
	}
	js, err := m.JetStream()
	if err != nil {
		m.recordFailure()
		return nil, err
	}
	return js, nil
}

// CreateKeyValueBucket gets the bucket named in cfg, creating it when absent.
func (m *Client) CreateKeyValueBucket(ctx context.Context, cfg jetstream.KeyValueConfig) (jetstream.KeyValue, error) {
	js, err := m.ready()
	if err != nil {
		return nil, err
	}

	bucket, err := js.KeyValue(ctx, cfg.Bucket)
	if err == nil {
		m.resetCircuit()
		return bucket, nil
	}

	bucket, err = js.CreateKeyValue(ctx, cfg)
	if err != nil {
		if isAlreadyExistsError(err) {
			// created concurrently by another client
			bucket, err = js.KeyValue(ctx, cfg.Bucket)
			if err == nil {
				m.resetCircuit()
				return bucket, nil
			}
		}
		m.recordFailure()
		return nil, errors.Wrap(err, "Client", "CreateKeyValueBucket", fmt.Sprintf("create bucket %s", cfg.Bucket))
	}

	m.logger.Info("created KV bucket", "bucket", cfg.Bucket)
	m.resetCircuit()
	return bucket, nil
}

// GetKeyValueBucket gets an existing KV bucket
func (m *Client) GetKeyValueBucket(ctx context.Context, name string) (jetstream.KeyValue, error) {
	js, err := m.ready()
	if err != nil {
		return nil, err
	}

	bucket, err := js.KeyValue(ctx, name)
	if err != nil {
		m.recordFailure()
		return nil, errors.Wrap(err, "Client", "GetKeyValueBucket", fmt.Sprintf("get bucket %s", name))
	}
	m.resetCircuit()
	return bucket, nil
}

// isAlreadyExistsError checks if an error indicates a KV bucket already exists
func isAlreadyExistsError(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, jetstream.ErrBucketExists) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "bucket name already in use") ||
		strings.Contains(errStr, "already exists") ||
		strings.Contains(errStr, "stream name already in use")
}
