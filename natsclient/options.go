package natsclient

import (
	"crypto/tls"
	"log/slog"
	"time"

	"github.com/c360/semlink/config"
	"github.com/c360/semlink/errors"
	"github.com/c360/semlink/pkg/tlsutil"
)

// ClientOption configures a Client. Options that reject their input make
// NewClient fail with an invalid error.
type ClientOption func(*Client) error

// Option keys read by OptionsFromMap, next to the tlsutil keys.
const (
	OptUsername         = "username"
	OptPassword         = "password"
	OptToken            = "token"
	OptTimeout          = "timeout"
	OptReconnectWait    = "reconnect_wait"
	OptMaxReconnects    = "max_reconnects"
	OptCircuitThreshold = "circuit_threshold"
)

// OptionsFromMap translates a backend option map into client options.
// Missing keys keep the client defaults.
func OptionsFromMap(options map[string]any) ([]ClientOption, error) {
	var opts []ClientOption
	if user := config.GetString(options, OptUsername, ""); user != "" {
		opts = append(opts, WithCredentials(user, config.GetString(options, OptPassword, "")))
	}
	if token := config.GetString(options, OptToken, ""); token != "" {
		opts = append(opts, WithToken(token))
	}
	if d := config.GetDuration(options, OptTimeout, 0); d > 0 {
		opts = append(opts, WithTimeout(d))
	}
	if d := config.GetDuration(options, OptReconnectWait, 0); d > 0 {
		opts = append(opts, WithReconnectWait(d))
	}
	if config.HasKey(options, OptMaxReconnects) {
		opts = append(opts, WithMaxReconnects(config.GetInt(options, OptMaxReconnects, -1)))
	}
	if config.HasKey(options, OptCircuitThreshold) {
		opts = append(opts, WithCircuitBreakerThreshold(int32(config.GetInt(options, OptCircuitThreshold, 0))))
	}

	tlsConfig, err := tlsutil.LoadClientTLSConfig(tlsutil.FromOptions(options))
	if err != nil {
		return nil, err
	}
	if tlsConfig != nil {
		opts = append(opts, WithTLSConfig(tlsConfig))
	}
	return opts, nil
}

// WithMaxReconnects caps reconnection attempts; -1 retries forever.
func WithMaxReconnects(n int) ClientOption {
	return func(c *Client) error {
		c.maxReconnects = n
		return nil
	}
}

// WithReconnectWait sets the pause between reconnection attempts.
func WithReconnectWait(d time.Duration) ClientOption {
	return func(c *Client) error {
		if d <= 0 {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "Client", "WithReconnectWait",
				"reconnect wait must be positive")
		}
		c.reconnectWait = d
		return nil
	}
}

// WithLogger replaces slog.Default(). nil is ignored.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) error {
		if logger != nil {
			c.logger = logger
		}
		return nil
	}
}

// WithCircuitBreakerThreshold sets how many consecutive failures open the circuit.
func WithCircuitBreakerThreshold(threshold int32) ClientOption {
	return func(c *Client) error {
		if threshold < 1 {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "Client", "WithCircuitBreakerThreshold",
				"threshold must be positive")
		}
		c.circuitThreshold = threshold
		return nil
	}
}

// WithCredentials authenticates with a user name and password.
func WithCredentials(username, password string) ClientOption {
	return func(c *Client) error {
		c.username, c.password = username, password
		return nil
	}
}

// WithToken authenticates with a token.
func WithToken(token string) ClientOption {
	return func(c *Client) error {
		c.token = token
		return nil
	}
}

// WithName sets the connection name shown by the server.
func WithName(name string) ClientOption {
	return func(c *Client) error {
		c.clientName = name
		return nil
	}
}

// WithTimeout bounds the initial connection.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) error {
		c.timeout = d
		return nil
	}
}

// WithTLSConfig dials with TLS.
func WithTLSConfig(cfg *tls.Config) ClientOption {
	return func(c *Client) error {
		c.tlsConfig = cfg
		return nil
	}
}
