package natsclient

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semlink/errors"
)

func TestNewClient(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		c, err := NewClient("nats://localhost:4222")
		require.NoError(t, err)
		assert.Equal(t, "nats://localhost:4222", c.URL())
		assert.Equal(t, StatusDisconnected, c.Status())
		assert.False(t, c.IsHealthy())
	})

	t.Run("empty url", func(t *testing.T) {
		_, err := NewClient("")
		require.Error(t, err)
		assert.True(t, errors.IsInvalid(err))
	})

	t.Run("invalid option", func(t *testing.T) {
		_, err := NewClient("nats://localhost:4222", WithCircuitBreakerThreshold(0))
		require.Error(t, err)
		assert.True(t, errors.IsInvalid(err))
	})
}

func TestConnectionStatus_String(t *testing.T) {
	tests := []struct {
		status ConnectionStatus
		want   string
	}{
		{StatusDisconnected, "disconnected"},
		{StatusConnecting, "connecting"},
		{StatusConnected, "connected"},
		{StatusReconnecting, "reconnecting"},
		{StatusCircuitOpen, "circuit_open"},
		{ConnectionStatus(42), "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.String())
		})
	}
}

func TestClient_CircuitBreaker(t *testing.T) {
	c, err := NewClient("nats://127.0.0.1:1",
		WithCircuitBreakerThreshold(2),
		WithMaxReconnects(0),
		WithTimeout(200*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = c.Connect(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
	assert.Equal(t, int32(1), c.Failures())

	err = c.Connect(ctx)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, StatusCircuitOpen, c.Status())

	_, err = c.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{Bucket: "documents"})
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestClient_NotConnected(t *testing.T) {
	c, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	_, err = c.GetKeyValueBucket(context.Background(), "documents")
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = c.JetStream()
	assert.ErrorIs(t, err, ErrNotConnected)

	require.NoError(t, c.Close(context.Background()))
	require.NoError(t, c.Close(context.Background()))
}

func TestIsKVNotFoundError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sentinel", ErrKVKeyNotFound, true},
		{"jetstream", jetstream.ErrKeyNotFound, true},
		{"deleted", fmt.Errorf("get: %w", jetstream.ErrKeyDeleted), true},
		{"message", fmt.Errorf("nats: key not found"), true},
		{"other", fmt.Errorf("connection refused"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsKVNotFoundError(tt.err))
		})
	}
}

func TestOptionsFromMap(t *testing.T) {
	t.Run("backend options", func(t *testing.T) {
		opts, err := OptionsFromMap(map[string]any{
			"username":          "semlink",
			"password":          "secret",
			"timeout":           "2s",
			"reconnect_wait":    "250ms",
			"max_reconnects":    float64(3),
			"circuit_threshold": 7,
		})
		require.NoError(t, err)

		c, err := NewClient("nats://localhost:4222", opts...)
		require.NoError(t, err)
		assert.Equal(t, "semlink", c.username)
		assert.Equal(t, "secret", c.password)
		assert.Equal(t, 2*time.Second, c.timeout)
		assert.Equal(t, 250*time.Millisecond, c.reconnectWait)
		assert.Equal(t, 3, c.maxReconnects)
		assert.Equal(t, int32(7), c.circuitThreshold)
		assert.Nil(t, c.tlsConfig)
	})

	t.Run("defaults kept", func(t *testing.T) {
		opts, err := OptionsFromMap(nil)
		require.NoError(t, err)
		assert.Empty(t, opts)

		c, err := NewClient("nats://localhost:4222", opts...)
		require.NoError(t, err)
		assert.Equal(t, 2*time.Second, c.reconnectWait)
		assert.Equal(t, -1, c.maxReconnects)
	})

	t.Run("invalid values", func(t *testing.T) {
		for name, options := range map[string]map[string]any{
			"zero threshold":   {"circuit_threshold": 0},
			"cert without key": {"tls_cert_file": "client.pem"},
		} {
			t.Run(name, func(t *testing.T) {
				opts, err := OptionsFromMap(options)
				if err == nil {
					_, err = NewClient("nats://localhost:4222", opts...)
				}
				require.Error(t, err)
				assert.True(t, errors.IsInvalid(err))
			})
		}
	})

	t.Run("token", func(t *testing.T) {
		opts, err := OptionsFromMap(map[string]any{"token": "t0k"})
		require.NoError(t, err)
		c, err := NewClient("nats://localhost:4222", opts...)
		require.NoError(t, err)
		assert.Equal(t, "t0k", c.token)
		assert.Empty(t, c.username)
	})
}

func TestWithReconnectWait_RejectsNonPositive(t *testing.T) {
	_, err := NewClient("nats://localhost:4222", WithReconnectWait(0))
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}
