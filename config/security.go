package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Limits applied to configuration input.
const (
	maxConfigSize = 10 << 20
	maxJSONDepth  = 100
	maxEnvVarLen  = 10000
	maxPathLen    = 4096
)

// validateConfigPath rejects empty, overlong or escaping paths and anything
// that is not a JSON or YAML file. Relative paths must stay inside the
// working directory.
func validateConfigPath(path string) error {
	switch {
	case path == "":
		return fmt.Errorf("empty config path")
	case len(path) > maxPathLen:
		return fmt.Errorf("config path longer than %d bytes", maxPathLen)
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("working directory: %w", err)
		}
		rel, err := filepath.Rel(cwd, filepath.Join(cwd, path))
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return fmt.Errorf("config path %s leaves the working directory", path)
		}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return nil
	default:
		return fmt.Errorf("config file %s is neither JSON nor YAML", path)
	}
}

// safeReadFile reads a regular config file no larger than maxConfigSize.
func safeReadFile(path string) ([]byte, error) {
	if err := validateConfigPath(path); err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s is not a regular file", path)
	}
	if info.Size() > maxConfigSize {
		return nil, fmt.Errorf("config file %s has %d bytes, limit %d", path, info.Size(), maxConfigSize)
	}
	return os.ReadFile(path)
}

// safeWriteFile writes data readable by the owner only.
func safeWriteFile(path string, data []byte) error {
	if err := validateConfigPath(path); err != nil {
		return err
	}
	if len(data) > maxConfigSize {
		return fmt.Errorf("config data has %d bytes, limit %d", len(data), maxConfigSize)
	}
	return os.WriteFile(path, data, 0o600)
}

func validateEnvVar(key, value string) error {
	if len(value) > maxEnvVarLen {
		return fmt.Errorf("%s is longer than %d bytes", key, maxEnvVarLen)
	}
	if strings.ContainsRune(value, 0) {
		return fmt.Errorf("%s contains a NUL byte", key)
	}
	return nil
}

// validateJSONDepth walks the token stream and fails once nesting exceeds
// maxJSONDepth. Syntax errors are left to the decoder that runs afterwards.
func validateJSONDepth(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	depth := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil
		}
		d, ok := tok.(json.Delim)
		if !ok {
			continue
		}
		switch d {
		case '{', '[':
			depth++
			if depth > maxJSONDepth {
				return fmt.Errorf("JSON nesting deeper than %d", maxJSONDepth)
			}
		default:
			depth--
		}
	}
}
