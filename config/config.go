package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/c360/semlink/errors"
	"github.com/c360/semlink/pkg/cache"
	"github.com/c360/semlink/vocabulary"
)

// Config represents the complete application configuration
type Config struct {
	Version  string         `json:"version,omitempty"` // Semantic version (e.g., "1.0.0")
	Log      LogConfig      `json:"log"`
	Registry RegistryConfig `json:"registry"`
	Cache    cache.Config   `json:"cache"`
	Metrics  MetricsConfig  `json:"metrics"`
	// Contexts maps fragment names to context files.
	Contexts map[string]string `json:"contexts,omitempty"`
	// Schemas lists schema files compiled into entity types.
	Schemas   []string         `json:"schemas,omitempty"`
	Resolvers []ResolverConfig `json:"resolvers,omitempty"`
}

// LogConfig selects the slog handler
type LogConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// RegistryConfig tunes resolver dispatch
type RegistryConfig struct {
	// Concurrency bounds the namespaces resolved in parallel; 0 means unbounded.
	Concurrency int `json:"concurrency,omitempty"`
	// Timeout bounds a whole resolution request; 0 means no timeout.
	Timeout time.Duration `json:"timeout,omitempty"`
}

// MetricsConfig controls the prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Port    int    `json:"port,omitempty"`
	Path    string `json:"path,omitempty"`
}

// ResolverConfig binds a namespace to a backend. Options are backend specific
// and read with the Get* helpers.
type ResolverConfig struct {
	Namespace string `json:"namespace"`
	// Base is an absolute IRI prefix also routed to this resolver.
	Base    string         `json:"base,omitempty"`
	Backend string         `json:"backend"`
	Cache   bool           `json:"cache,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

// SafeConfig provides thread-safe access to configuration
type SafeConfig struct {
	mu     sync.RWMutex
	config *Config
}

// NewSafeConfig creates a new thread-safe config wrapper
func NewSafeConfig(cfg *Config) *SafeConfig {
	if cfg == nil {
		cfg = &Config{}
	}
	return &SafeConfig{
		config: cfg,
	}
}

// Get returns a deep copy of the current configuration
func (sc *SafeConfig) Get() *Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.config.Clone()
}

// Update atomically replaces the configuration after validation
func (sc *SafeConfig) Update(cfg *Config) error {
	if cfg == nil {
		return errors.WrapInvalid(errors.ErrMissingConfig, "SafeConfig", "Update", "nil config")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.config = cfg
	return nil
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return &Config{}
	}

	data, err := json.Marshal(c)
	if err != nil {
		copied := *c
		return &copied
	}

	var clone Config
	if err := json.Unmarshal(data, &clone); err != nil {
		copied := *c
		return &copied
	}
	return &clone
}

// Default returns the configuration used before any layer is applied
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Registry: RegistryConfig{
			Concurrency: 8,
			Timeout:     30 * time.Second,
		},
		Cache: cache.DefaultConfig(),
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}

func invalid(format string, args ...any) error {
	return errors.WrapInvalid(fmt.Errorf("%w: "+format, append([]any{errors.ErrInvalidConfig}, args...)...),
		"Config", "Validate", "config validation")
}

// Validate checks if the config is valid
func (c *Config) Validate() error {
	if c.Version != "" {
		if _, _, _, err := parseSemVer(c.Version); err != nil {
			return invalid("version: %v", err)
		}
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return invalid("log.level %q must be debug, info, warn or error", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "json", "text":
	default:
		return invalid("log.format %q must be json or text", c.Log.Format)
	}

	if c.Registry.Concurrency < 0 {
		return invalid("registry.concurrency cannot be negative")
	}
	if c.Registry.Timeout < 0 {
		return invalid("registry.timeout cannot be negative")
	}

	if err := c.Cache.Validate(); err != nil {
		return err
	}

	if c.Metrics.Enabled && (c.Metrics.Port < 0 || c.Metrics.Port > 65535) {
		return invalid("metrics.port %d out of range", c.Metrics.Port)
	}

	for name, path := range c.Contexts {
		if name == "" || path == "" {
			return invalid("context %q needs a name and a file", name)
		}
	}

	seen := make(map[string]bool, len(c.Resolvers))
	for i, r := range c.Resolvers {
		if r.Namespace == "" {
			return invalid("resolvers[%d].namespace is required", i)
		}
		if strings.Contains(r.Namespace, ":") {
			return invalid("resolvers[%d].namespace %q cannot contain ':'", i, r.Namespace)
		}
		if seen[r.Namespace] {
			return invalid("resolvers[%d]: namespace %q configured twice", i, r.Namespace)
		}
		seen[r.Namespace] = true
		if r.Backend == "" {
			return invalid("resolvers[%d].backend is required", i)
		}
		if r.Base != "" && !vocabulary.IsAbsolute(r.Base) {
			return invalid("resolvers[%d].base %q is not an absolute IRI", i, r.Base)
		}
	}

	return nil
}

// SaveToFile saves the configuration to a JSON file
func (c *Config) SaveToFile(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return safeWriteFile(path, data)
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// CompareVersions compares two semver version strings
// Returns:
//
//	-1 if v1 < v2
//	 0 if v1 == v2
//	 1 if v1 > v2
//	error if either version is invalid
func CompareVersions(v1, v2 string) (int, error) {
	a1, b1, c1, err := parseSemVer(v1)
	if err != nil {
		return 0, fmt.Errorf("invalid version '%s': %w", v1, err)
	}
	a2, b2, c2, err := parseSemVer(v2)
	if err != nil {
		return 0, fmt.Errorf("invalid version '%s': %w", v2, err)
	}

	for _, pair := range [][2]int{{a1, a2}, {b1, b2}, {c1, c2}} {
		switch {
		case pair[0] > pair[1]:
			return 1, nil
		case pair[0] < pair[1]:
			return -1, nil
		}
	}
	return 0, nil
}

// parseSemVer parses a semantic version string (e.g., "1.2.3")
func parseSemVer(version string) (int, int, int, error) {
	if version == "" {
		return 0, 0, 0, fmt.Errorf("version cannot be empty")
	}

	parts := strings.Split(strings.TrimPrefix(version, "v"), ".")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("version must be in format 'major.minor.patch', got '%s'", version)
	}

	var nums [3]int
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, 0, 0, fmt.Errorf("invalid version component '%s'", part)
		}
		nums[i] = n
	}
	return nums[0], nums[1], nums[2], nil
}
