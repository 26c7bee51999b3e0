package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/c360/semlink/errors"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "SEMLINK"

// Loader handles configuration loading with layers and overrides
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
	getenv     func(string) string
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		envPrefix: EnvPrefix,
		getenv:    os.Getenv,
	}
}

// AddLayer adds a configuration file layer. Later layers override earlier ones.
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation enables or disables configuration validation
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// LoadFile loads configuration from a single file
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load merges defaults, every layer and environment overrides, in that order.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()

	for _, path := range l.layers {
		raw, err := l.loadRaw(path)
		if err != nil {
			return nil, errors.Wrap(err, "Loader", "Load", fmt.Sprintf("load %s", path))
		}
		cfg, err = mergeFromMap(cfg, raw)
		if err != nil {
			return nil, errors.WrapInvalid(err, "Loader", "Load", fmt.Sprintf("merge %s", path))
		}
	}

	if err := l.applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Load is a shortcut for a validating Loader over paths.
func Load(paths ...string) (*Config, error) {
	l := NewLoader()
	for _, p := range paths {
		l.AddLayer(p)
	}
	l.EnableValidation(true)
	return l.Load()
}

// loadRaw reads a JSON or YAML layer into a map. Relative context and schema
// paths are made relative to the layer's directory.
func (l *Loader) loadRaw(path string) (map[string]any, error) {
	data, err := safeReadFile(path)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Loader", "loadRaw", "read config")
	}

	var raw map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, errors.WrapInvalid(err, "Loader", "loadRaw", "yaml decode")
		}
	default:
		if err := validateJSONDepth(data); err != nil {
			return nil, errors.WrapInvalid(err, "Loader", "loadRaw", "json structure")
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, errors.WrapInvalid(err, "Loader", "loadRaw", "json decode")
		}
	}

	if err := parseDurations(raw); err != nil {
		return nil, errors.WrapInvalid(err, "Loader", "loadRaw", "duration")
	}
	resolvePaths(raw, filepath.Dir(path))
	return raw, nil
}

// mergeFromMap merges configuration from a raw map, only overriding fields present in the map
func mergeFromMap(base *Config, override map[string]any) (*Config, error) {
	if override == nil {
		return base, nil
	}

	baseJSON, err := json.Marshal(base)
	if err != nil {
		return nil, err
	}
	var baseMap map[string]any
	if err := json.Unmarshal(baseJSON, &baseMap); err != nil {
		return nil, err
	}

	mergedJSON, err := json.Marshal(deepMergeMaps(baseMap, override))
	if err != nil {
		return nil, err
	}
	var merged Config
	if err := json.Unmarshal(mergedJSON, &merged); err != nil {
		return nil, err
	}
	return &merged, nil
}

// deepMergeMaps recursively merges two maps, with override taking precedence.
// Lists are replaced, not appended.
func deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		result[k] = v
	}

	for k, v := range override {
		if v == nil {
			continue
		}
		if baseMap, ok := base[k].(map[string]any); ok {
			if overrideMap, ok := v.(map[string]any); ok {
				result[k] = deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}
		result[k] = v
	}
	return result
}

// parseDurations converts registry.timeout duration strings to nanoseconds.
// cache.ttl is handled by cache.Config itself.
func parseDurations(raw map[string]any) error {
	registry, ok := raw["registry"].(map[string]any)
	if !ok {
		return nil
	}
	if s, ok := registry["timeout"].(string); ok {
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("registry.timeout: %w", err)
		}
		registry["timeout"] = d.Nanoseconds()
	}
	return nil
}

func resolvePaths(raw map[string]any, dir string) {
	rel := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}

	if contexts, ok := raw["contexts"].(map[string]any); ok {
		for name, v := range contexts {
			if p, ok := v.(string); ok {
				contexts[name] = rel(p)
			}
		}
	}
	if schemas, ok := raw["schemas"].([]any); ok {
		for i, v := range schemas {
			if p, ok := v.(string); ok {
				schemas[i] = rel(p)
			}
		}
	}
}

// applyEnvOverrides applies SEMLINK_* environment variable overrides
func (l *Loader) applyEnvOverrides(cfg *Config) error {
	env := func(key string) (string, error) {
		name := l.envPrefix + "_" + key
		val := l.getenv(name)
		if err := validateEnvVar(name, val); err != nil {
			return "", errors.WrapInvalid(err, "Loader", "applyEnvOverrides", name)
		}
		return val, nil
	}
	envInt := func(key string, dst *int) error {
		val, err := env(key)
		if err != nil || val == "" {
			return err
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			return errors.WrapInvalid(err, "Loader", "applyEnvOverrides", l.envPrefix+"_"+key)
		}
		*dst = n
		return nil
	}
	envBool := func(key string, dst *bool) error {
		val, err := env(key)
		if err != nil || val == "" {
			return err
		}
		b, err := strconv.ParseBool(val)
		if err != nil {
			return errors.WrapInvalid(err, "Loader", "applyEnvOverrides", l.envPrefix+"_"+key)
		}
		*dst = b
		return nil
	}

	if val, err := env("LOG_LEVEL"); err != nil {
		return err
	} else if val != "" {
		cfg.Log.Level = val
	}
	if val, err := env("LOG_FORMAT"); err != nil {
		return err
	} else if val != "" {
		cfg.Log.Format = val
	}

	for _, apply := range []func() error{
		func() error { return envBool("METRICS_ENABLED", &cfg.Metrics.Enabled) },
		func() error { return envInt("METRICS_PORT", &cfg.Metrics.Port) },
		func() error { return envBool("CACHE_ENABLED", &cfg.Cache.Enabled) },
		func() error { return envInt("CACHE_MAX_SIZE", &cfg.Cache.MaxSize) },
		func() error { return envInt("REGISTRY_CONCURRENCY", &cfg.Registry.Concurrency) },
	} {
		if err := apply(); err != nil {
			return err
		}
	}
	return nil
}
