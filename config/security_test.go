package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateConfigPath(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"absolute json", filepath.Join(dir, "semlink.json"), false},
		{"absolute yaml", filepath.Join(dir, "semlink.yml"), false},
		{"relative inside", "configs/semlink.yaml", false},
		{"relative escape", "../semlink.json", true},
		{"empty", "", true},
		{"wrong extension", filepath.Join(dir, "semlink.toml"), true},
		{"too long", "/" + strings.Repeat("a", maxPathLen) + ".json", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateConfigPath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSafeReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "semlink.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"log":{}}`), 0o600))

	data, err := safeReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"log":{}}`, string(data))

	_, err = safeReadFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	sub := filepath.Join(dir, "dir.json")
	require.NoError(t, os.Mkdir(sub, 0o700))
	_, err = safeReadFile(sub)
	assert.Error(t, err)
}

func TestValidateJSONDepth(t *testing.T) {
	deep := strings.Repeat("[", maxJSONDepth+1) + strings.Repeat("]", maxJSONDepth+1)
	ok := strings.Repeat("[", maxJSONDepth) + strings.Repeat("]", maxJSONDepth)

	assert.Error(t, validateJSONDepth([]byte(deep)))
	assert.NoError(t, validateJSONDepth([]byte(ok)))
	assert.NoError(t, validateJSONDepth([]byte(`{"a":"[[[[{{{{"}`)))
}

func TestValidateEnvVar(t *testing.T) {
	assert.NoError(t, validateEnvVar("SEMLINK_LOG_LEVEL", "debug"))
	assert.NoError(t, validateEnvVar("SEMLINK_LOG_LEVEL", ""))
	assert.Error(t, validateEnvVar("SEMLINK_LOG_LEVEL", "de\x00bug"))
	assert.Error(t, validateEnvVar("SEMLINK_LOG_LEVEL", strings.Repeat("x", maxEnvVarLen+1)))
}
