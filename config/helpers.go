package config

import (
	"time"
)

// Backend options arrive as map[string]any from JSON (numbers are float64) or
// YAML (numbers are int). The getters below accept either and fall back to
// def when the key is missing or holds the wrong kind of value.

// GetString returns the string stored under key.
func GetString(opts map[string]any, key string, def string) string {
	if s, ok := opts[key].(string); ok {
		return s
	}
	return def
}

// GetInt returns the number stored under key truncated to int.
func GetInt(opts map[string]any, key string, def int) int {
	if n, ok := number(opts[key]); ok {
		return int(n)
	}
	return def
}

// GetFloat64 returns the number stored under key.
func GetFloat64(opts map[string]any, key string, def float64) float64 {
	if n, ok := number(opts[key]); ok {
		return n
	}
	return def
}

// GetBool returns the boolean stored under key.
func GetBool(opts map[string]any, key string, def bool) bool {
	if b, ok := opts[key].(bool); ok {
		return b
	}
	return def
}

// GetStringSlice returns a list of strings. A decoded []any qualifies only
// when every element is a string.
func GetStringSlice(opts map[string]any, key string, def []string) []string {
	switch v := opts[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return def
			}
			out[i] = s
		}
		return out
	}
	return def
}

// HasKey reports whether key is present, whatever its value.
func HasKey(opts map[string]any, key string) bool {
	_, ok := opts[key]
	return ok
}

// GetDuration accepts "5s" style strings, time.Duration values and plain
// numbers of nanoseconds. Negative numbers fall back to def.
func GetDuration(opts map[string]any, key string, def time.Duration) time.Duration {
	switch v := opts[key].(type) {
	case time.Duration:
		return v
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	default:
		if n, ok := number(v); ok && n >= 0 {
			return time.Duration(n)
		}
	}
	return def
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
