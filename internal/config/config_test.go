package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoad tests the Load function with various scenarios
func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		yaml        string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "default configuration with no env vars",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
				assert.Equal(t, "supermarket_sales.csv", cfg.Data.Path)
				assert.Equal(t, "latin1", cfg.Data.Encoding)
				assert.Equal(t, "info", cfg.Logging.Level)
				assert.True(t, cfg.Security.RateLimit.Enabled)
				assert.Equal(t, 100.0, cfg.Security.RateLimit.RPS)
			},
		},
		{
			name: "data options from environment",
			env: map[string]string{
				"SALES_DATA_PATH":     "/srv/sales.csv",
				"SALES_DATA_ENCODING": "utf-8",
				"SALES_SERVER_PORT":   "9090",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/srv/sales.csv", cfg.Data.Path)
				assert.Equal(t, "utf-8", cfg.Data.Encoding)
				assert.Equal(t, 9090, cfg.Server.Port)
			},
		},
		{
			name: "yaml file overlays defaults",
			yaml: "data:\n  path: from-file.csv\n  encoding: iso-8859-15\nlogging:\n  level: debug\n",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "from-file.csv", cfg.Data.Path)
				assert.Equal(t, "iso-8859-15", cfg.Data.Encoding)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, 8080, cfg.Server.Port)
			},
		},
		{
			name: "environment wins over yaml",
			yaml: "data:\n  path: from-file.csv\n",
			env:  map[string]string{"SALES_DATA_PATH": "from-env.csv"},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "from-env.csv", cfg.Data.Path)
			},
		},
		{
			name:    "unknown encoding",
			env:     map[string]string{"SALES_DATA_ENCODING": "klingon-8"},
			wantErr: true,
		},
		{
			name:    "invalid port number",
			env:     map[string]string{"SALES_SERVER_PORT": "99999"},
			wantErr: true,
		},
		{
			name:    "malformed yaml",
			yaml:    "data: [unterminated",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			t.Chdir(dir)

			if tt.yaml != "" {
				path := filepath.Join(dir, "custom.yaml")
				require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))
				t.Setenv("SALES_CONFIG", path)
			} else {
				t.Setenv("SALES_CONFIG", "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "empty data path",
			mutate:  func(c *Config) { c.Data.Path = "  " },
			wantErr: "data path",
		},
		{
			name:    "bad logging output",
			mutate:  func(c *Config) { c.Logging.Output = "syslog" },
			wantErr: "logging output",
		},
		{
			name:    "cors without origins",
			mutate:  func(c *Config) { c.Security.AllowedOrigins = nil },
			wantErr: "allowed origin",
		},
		{
			name:    "zero read timeout",
			mutate:  func(c *Config) { c.Server.ReadTimeout = 0 },
			wantErr: "read timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateFillsEncoding(t *testing.T) {
	cfg := Default()
	cfg.Data.Encoding = ""
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultEncoding, cfg.Data.Encoding)
}
