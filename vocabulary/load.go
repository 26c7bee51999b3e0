package vocabulary

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/c360/semlink/errors"
)

// LoadFile reads a context fragment from a JSON or YAML file.
// A top-level "@context" wrapper is kept and unwrapped at Parse time.
func LoadFile(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "Context", "LoadFile", "read "+path)
	}
	return Decode(data, filepath.Ext(path))
}

// Decode unmarshals a fragment in the format named by ext (".json", ".yaml", ".yml").
func Decode(data []byte, ext string) (any, error) {
	var raw any
	switch strings.ToLower(ext) {
	case ".json", ".jsonld":
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, errors.WrapInvalid(err, "Context", "Decode", "json unmarshal")
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, errors.WrapInvalid(err, "Context", "Decode", "yaml unmarshal")
		}
		raw = normalizeYAML(raw)
	default:
		return nil, errors.WrapInvalid(fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext),
			"Context", "Decode", "format detection")
	}
	return raw, nil
}

// LoadFile reads a fragment file and registers it under the file's base name,
// e.g. "contexts/Entity.json" registers "Entity.json".
func (r *Registry) LoadFile(path string) (string, error) {
	raw, err := LoadFile(path)
	if err != nil {
		return "", err
	}
	name := filepath.Base(path)
	r.Register(name, raw)
	return name, nil
}

// normalizeYAML converts any map[any]any left by the YAML decoder for
// non-string keys into map[string]any so fragments look like decoded JSON.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = normalizeYAML(item)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[fmt.Sprint(k)] = normalizeYAML(item)
		}
		return out
	case []any:
		for i, item := range t {
			t[i] = normalizeYAML(item)
		}
		return t
	}
	return v
}
