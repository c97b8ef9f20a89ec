package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "127.0.0.1:8765", cfg.Server.Address())
	assert.Equal(t, DefaultCatalogPath, cfg.Catalog.Path)
	assert.Equal(t, []string{HTTPClientTarget}, cfg.Log.ExcludeTargets)
	assert.Equal(t, DefaultRequestTimeout, cfg.HTTP.RequestTimeout.Std())
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
catalog:
  path: /tmp/models.json
log:
  level: debug
http:
  request_timeout: 45s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, DefaultHost, cfg.Server.Host)
	assert.Equal(t, "/tmp/models.json", cfg.Catalog.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, DefaultLogMaxSizeMB, cfg.Log.MaxSizeMB)
	assert.Equal(t, 45*time.Second, cfg.HTTP.RequestTimeout.Std())
	assert.Equal(t, DefaultDialTimeout, cfg.HTTP.DialTimeout.Std())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "bad port",
			body:    "server:\n  port: 70000\n",
			wantErr: "server.port",
		},
		{
			name:    "bad level",
			body:    "log:\n  level: chatty\n",
			wantErr: "log.level",
		},
		{
			name:    "bad duration",
			body:    "http:\n  request_timeout: soon\n",
			wantErr: "parse duration",
		},
		{
			name:    "empty catalog path",
			body:    "catalog:\n  path: \"\"\n",
			wantErr: "catalog.path",
		},
		{
			name:    "malformed yaml",
			body:    "server: [",
			wantErr: "parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")
}
