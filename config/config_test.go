package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/c360/semlink/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestLoader(env map[string]string) *Loader {
	l := NewLoader()
	l.getenv = func(key string) string { return env[key] }
	return l
}

func TestLoader_LoadJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "semlink.json", `{
		"version": "1.2.0",
		"log": {"level": "debug"},
		"registry": {"concurrency": 4, "timeout": "5s"},
		"cache": {"enabled": true, "max_size": 50, "ttl": "1m"},
		"contexts": {"demo": "contexts/demo.json", "abs": "/etc/semlink/abs.json"},
		"schemas": ["schemas/Person.json"],
		"resolvers": [
			{"namespace": "demo", "backend": "memory"},
			{"namespace": "wd", "base": "https://www.wikidata.org/entity/", "backend": "sparql",
			 "options": {"endpoint": "https://query.wikidata.org/sparql", "rate": 2}}
		]
	}`)

	cfg, err := newTestLoader(nil).LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "1.2.0", cfg.Version)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format, "defaults survive partial layers")
	assert.Equal(t, 4, cfg.Registry.Concurrency)
	assert.Equal(t, 5*time.Second, cfg.Registry.Timeout)
	assert.Equal(t, 50, cfg.Cache.MaxSize)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.Equal(t, filepath.Join(dir, "contexts/demo.json"), cfg.Contexts["demo"])
	assert.Equal(t, "/etc/semlink/abs.json", cfg.Contexts["abs"])
	assert.Equal(t, []string{filepath.Join(dir, "schemas/Person.json")}, cfg.Schemas)

	require.Len(t, cfg.Resolvers, 2)
	assert.Equal(t, "sparql", cfg.Resolvers[1].Backend)
	assert.Equal(t, "https://query.wikidata.org/sparql", GetString(cfg.Resolvers[1].Options, "endpoint", ""))
	assert.Equal(t, 2, GetInt(cfg.Resolvers[1].Options, "rate", 0))
	assert.NoError(t, cfg.Validate())
}

func TestLoader_Layers(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "base.json", `{
		"log": {"level": "info", "format": "json"},
		"resolvers": [{"namespace": "a", "backend": "memory"}, {"namespace": "b", "backend": "memory"}]
	}`)
	override := writeFile(t, dir, "prod.yaml", `
log:
  level: warn
metrics:
  enabled: true
  port: 9100
resolvers:
  - namespace: c
    backend: sqlite
    options:
      dsn: file:semlink.db
`)

	l := newTestLoader(nil)
	l.AddLayer(base)
	l.AddLayer(override)
	l.EnableValidation(true)
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9100, cfg.Metrics.Port)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	require.Len(t, cfg.Resolvers, 1, "lists are replaced by later layers")
	assert.Equal(t, "file:semlink.db", GetString(cfg.Resolvers[0].Options, "dsn", ""))
}

func TestLoader_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "semlink.json", `{"log": {"level": "info"}}`)

	cfg, err := newTestLoader(map[string]string{
		"SEMLINK_LOG_LEVEL":            "error",
		"SEMLINK_METRICS_ENABLED":      "true",
		"SEMLINK_METRICS_PORT":         "9200",
		"SEMLINK_CACHE_MAX_SIZE":       "10",
		"SEMLINK_REGISTRY_CONCURRENCY": "2",
	}).LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Log.Level)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9200, cfg.Metrics.Port)
	assert.Equal(t, 10, cfg.Cache.MaxSize)
	assert.Equal(t, 2, cfg.Registry.Concurrency)

	_, err = newTestLoader(map[string]string{"SEMLINK_METRICS_PORT": "ninety"}).LoadFile(path)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestLoader_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		path string
	}{
		{name: "missing file", path: filepath.Join(dir, "missing.json")},
		{name: "unsupported extension", path: writeFile(t, dir, "semlink.toml", `log = {}`)},
		{name: "malformed json", path: writeFile(t, dir, "bad.json", `{"log": {`)},
		{name: "malformed yaml", path: writeFile(t, dir, "bad.yaml", "log: [\n")},
		{name: "bad duration", path: writeFile(t, dir, "dur.json", `{"registry": {"timeout": "soon"}}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestLoader(nil).LoadFile(tt.path)
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		valid  bool
	}{
		{name: "defaults", mutate: func(*Config) {}, valid: true},
		{name: "bad version", mutate: func(c *Config) { c.Version = "1.0" }},
		{name: "bad log level", mutate: func(c *Config) { c.Log.Level = "loud" }},
		{name: "bad log format", mutate: func(c *Config) { c.Log.Format = "xml" }},
		{name: "negative concurrency", mutate: func(c *Config) { c.Registry.Concurrency = -1 }},
		{name: "bad cache", mutate: func(c *Config) { c.Cache.MaxSize = 0 }},
		{name: "bad metrics port", mutate: func(c *Config) { c.Metrics = MetricsConfig{Enabled: true, Port: 70000} }},
		{name: "empty context file", mutate: func(c *Config) { c.Contexts = map[string]string{"demo": ""} }},
		{name: "resolver without namespace", mutate: func(c *Config) {
			c.Resolvers = []ResolverConfig{{Backend: "memory"}}
		}},
		{name: "resolver namespace with colon", mutate: func(c *Config) {
			c.Resolvers = []ResolverConfig{{Namespace: "a:b", Backend: "memory"}}
		}},
		{name: "duplicate namespace", mutate: func(c *Config) {
			c.Resolvers = []ResolverConfig{{Namespace: "a", Backend: "memory"}, {Namespace: "a", Backend: "sqlite"}}
		}},
		{name: "resolver without backend", mutate: func(c *Config) {
			c.Resolvers = []ResolverConfig{{Namespace: "a"}}
		}},
		{name: "relative base", mutate: func(c *Config) {
			c.Resolvers = []ResolverConfig{{Namespace: "a", Backend: "memory", Base: "ex:"}}
		}},
		{name: "absolute base", mutate: func(c *Config) {
			c.Resolvers = []ResolverConfig{{Namespace: "a", Backend: "memory", Base: "https://example.org/"}}
		}, valid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
		})
	}
}

func TestConfig_SaveAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.json")

	cfg := Default()
	cfg.Version = "2.0.0"
	cfg.Resolvers = []ResolverConfig{{Namespace: "demo", Backend: "memory", Cache: true}}
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", loaded.Version)
	assert.Equal(t, cfg.Cache.TTL, loaded.Cache.TTL)
	assert.True(t, loaded.Resolvers[0].Cache)
}

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		v1, v2 string
		want   int
	}{
		{"1.0.0", "1.0.0", 0},
		{"v1.2.0", "1.1.9", 1},
		{"1.2.3", "1.10.0", -1},
		{"2.0.0", "10.0.0", -1},
	}
	for _, tt := range tests {
		t.Run(tt.v1+"_"+tt.v2, func(t *testing.T) {
			got, err := CompareVersions(tt.v1, tt.v2)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := CompareVersions("1.x.0", "1.0.0")
	assert.Error(t, err)
}

func TestHelpers(t *testing.T) {
	opts := map[string]any{
		"url":     "nats://localhost:4222",
		"port":    float64(4222),
		"rate":    2.5,
		"strict":  true,
		"urls":    []any{"a", "b"},
		"mixed":   []any{"a", 1},
		"timeout": "3s",
		"wait":    float64(1000),
	}

	assert.Equal(t, "nats://localhost:4222", GetString(opts, "url", ""))
	assert.Equal(t, "fallback", GetString(opts, "port", "fallback"))
	assert.Equal(t, 4222, GetInt(opts, "port", 0))
	assert.Equal(t, 2.5, GetFloat64(opts, "rate", 0))
	assert.True(t, GetBool(opts, "strict", false))
	assert.Equal(t, []string{"a", "b"}, GetStringSlice(opts, "urls", nil))
	assert.Nil(t, GetStringSlice(opts, "mixed", nil))
	assert.Equal(t, 3*time.Second, GetDuration(opts, "timeout", 0))
	assert.Equal(t, time.Microsecond, GetDuration(opts, "wait", 0))
	assert.Equal(t, time.Minute, GetDuration(opts, "missing", time.Minute))
	assert.True(t, HasKey(opts, "url"))
	assert.False(t, HasKey(opts, "missing"))
}
