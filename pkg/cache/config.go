package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/c360/semlink/errors"
)

// Config contains configuration for cache creation.
type Config struct {
	// Enabled determines if caching is enabled.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// MaxSize is the maximum number of entries.
	MaxSize int `json:"max_size" yaml:"max_size"`

	// TTL expires entries after they were set. Zero disables expiry.
	TTL time.Duration `json:"ttl" yaml:"ttl"`
}

// DefaultConfig returns a default cache configuration.
func DefaultConfig() Config {
	return Config{
		Enabled: true,
		MaxSize: 1000,
		TTL:     5 * time.Minute,
	}
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.MaxSize <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "cache", "Validate",
			fmt.Sprintf("max_size must be positive, got %d", c.MaxSize))
	}
	if c.TTL < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "cache", "Validate",
			fmt.Sprintf("ttl cannot be negative, got %v", c.TTL))
	}
	return nil
}

// NewFromConfig creates a cache based on the provided configuration.
// Returns a no-op cache if config.Enabled is false.
func NewFromConfig[V any](config Config, options ...Option[V]) (Cache[V], error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if !config.Enabled {
		return NewNoop[V](), nil
	}
	if config.TTL > 0 {
		options = append(options, WithTTL[V](config.TTL))
	}
	return NewLRU[V](config.MaxSize, options...)
}

// UnmarshalJSON accepts duration strings ("5m") as well as nanosecond integers for ttl.
func (c *Config) UnmarshalJSON(data []byte) error {
	type Alias Config
	aux := &struct {
		TTL json.RawMessage `json:"ttl,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(c),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.TTL) > 0 {
		ttl, err := parseDurationField(aux.TTL, "ttl")
		if err != nil {
			return err
		}
		c.TTL = ttl
	}
	return nil
}

func parseDurationField(data json.RawMessage, fieldName string) (time.Duration, error) {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		duration, err := time.ParseDuration(str)
		if err != nil {
			return 0, fmt.Errorf("invalid duration string for %s: %w", fieldName, err)
		}
		return duration, nil
	}

	var nsec int64
	if err := json.Unmarshal(data, &nsec); err != nil {
		return 0, fmt.Errorf("field %s must be either a duration string (e.g., '1h') or integer nanoseconds", fieldName)
	}
	return time.Duration(nsec), nil
}
