package cache

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/c360/semlink/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "default", config: DefaultConfig()},
		{name: "disabled ignores sizes", config: Config{Enabled: false, MaxSize: -1}},
		{name: "zero size", config: Config{Enabled: true}, wantErr: true},
		{name: "negative ttl", config: Config{Enabled: true, MaxSize: 1, TTL: -time.Second}, wantErr: true},
		{name: "no ttl", config: Config{Enabled: true, MaxSize: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsInvalid(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNewFromConfig(t *testing.T) {
	c, err := NewFromConfig[int](Config{Enabled: false})
	require.NoError(t, err)
	assert.IsType(t, noopCache[int]{}, c)

	c, err = NewFromConfig[int](Config{Enabled: true, MaxSize: 2, TTL: time.Minute})
	require.NoError(t, err)
	lru, ok := c.(*lruCache[int])
	require.True(t, ok)
	assert.Equal(t, 2, lru.maxSize)
	assert.Equal(t, time.Minute, lru.ttl)

	_, err = NewFromConfig[int](Config{Enabled: true})
	assert.Error(t, err)
}

func TestConfig_Decode(t *testing.T) {
	tests := []struct {
		name   string
		decode func(*Config) error
	}{
		{
			name: "json duration string",
			decode: func(c *Config) error {
				return json.Unmarshal([]byte(`{"enabled":true,"max_size":5,"ttl":"90s"}`), c)
			},
		},
		{
			name: "json nanoseconds",
			decode: func(c *Config) error {
				return json.Unmarshal([]byte(`{"enabled":true,"max_size":5,"ttl":90000000000}`), c)
			},
		},
		{
			name: "yaml",
			decode: func(c *Config) error {
				return yaml.Unmarshal([]byte("enabled: true\nmax_size: 5\nttl: 90s\n"), c)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Config
			require.NoError(t, tt.decode(&c))
			assert.True(t, c.Enabled)
			assert.Equal(t, 5, c.MaxSize)
			assert.Equal(t, 90*time.Second, c.TTL)
		})
	}

	var c Config
	assert.Error(t, json.Unmarshal([]byte(`{"ttl":"soon"}`), &c))
}
