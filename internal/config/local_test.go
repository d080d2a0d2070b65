package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConfigDir(t *testing.T) {
	t.Parallel()

	dir, err := ConfigDir()

	require.NoError(t, err)
	require.Contains(t, dir, ".prnbridge")
}

func TestConfigFilePath(t *testing.T) {
	t.Parallel()

	path, err := ConfigFilePath()

	require.NoError(t, err)
	require.Contains(t, path, ".prnbridge")
	require.Contains(t, path, "config.yaml")
}

func TestLoadLocalFile(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		content     string
		errContains string
		validateCfg func(t *testing.T, dir string, cfg *Settings)
		wantErr     bool
	}{
		"valid config file": {
			content: `
backend:
  base_url: "https://backend.example.test"
  client_id: "backend-client"
  client_secret: "backend-secret"
  token_url: "https://login.example.test/token"
npwd:
  base_url: "https://npwd.example.test"
remote_timeout: 45s
runners:
  update_prns:
    enabled: false
    max_batch_size: 200
    default_start_date: "2024-03-01"
`,
			validateCfg: func(t *testing.T, dir string, cfg *Settings) {
				t.Helper()
				require.Equal(t, "https://backend.example.test", cfg.Backend.BaseURL)
				require.True(t, cfg.Backend.Authenticated())
				require.Equal(t, "https://npwd.example.test", cfg.Npwd.BaseURL)
				require.Equal(t, 45*time.Second, cfg.RemoteTimeout)
				require.False(t, cfg.Runners.UpdatePrns.Enabled)
				require.Equal(t, 200, cfg.Runners.UpdatePrns.MaxBatchSize)
				require.Equal(t, "2024-03-01", cfg.Runners.UpdatePrns.DefaultStartDate)
				require.True(t, cfg.Runners.UpdatedProducers.Enabled)
				require.Equal(t, "2024-01-01", cfg.Runners.UpdatedProducers.DefaultStartDate)
				require.Equal(t, StateSQLite, cfg.State.Backend)
				require.Equal(t, filepath.Join(dir, "watermarks.db"), cfg.State.SQLitePath)
				require.Equal(t, "prn-issued", cfg.Email.IssuedTemplate)
			},
		},
		"state backend override": {
			content: `
state:
  backend: ssm
  ssm_prefix: /local/watermarks
`,
			validateCfg: func(t *testing.T, _ string, cfg *Settings) {
				t.Helper()
				require.Equal(t, StateSSM, cfg.State.Backend)
				require.Equal(t, "/local/watermarks", cfg.State.SSMPrefix)
			},
		},
		"invalid yaml": {
			content:     `invalid: yaml: content: [}`,
			wantErr:     true,
			errContains: "parsing config",
		},
		"invalid runner settings": {
			content: `
runners:
  update_prns:
    default_start_date: "01/03/2024"
`,
			wantErr:     true,
			errContains: "invalid config",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			configPath := filepath.Join(dir, "config.yaml")
			require.NoError(t, os.WriteFile(configPath, []byte(tc.content), 0o600))

			cfg, err := loadLocalFile(configPath)

			if tc.wantErr {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.errContains)
				require.Nil(t, cfg)
			} else {
				require.NoError(t, err)
				require.NotNil(t, cfg)
				tc.validateCfg(t, dir, cfg)
			}
		})
	}
}

func TestLoadLocalFileNotFound(t *testing.T) {
	t.Parallel()

	_, err := loadLocalFile(filepath.Join(t.TempDir(), "nonexistent.yaml"))

	require.Error(t, err)
	require.Contains(t, err.Error(), "config file not found")
	require.Contains(t, err.Error(), "prnbridge init")
}

func TestLocalConfigExists(t *testing.T) {
	// Cannot use t.Parallel() with t.Setenv().
	home := t.TempDir()
	t.Setenv("HOME", home)

	require.False(t, LocalConfigExists())

	require.NoError(t, os.MkdirAll(filepath.Join(home, ".prnbridge"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(home, ".prnbridge", "config.yaml"), []byte("{}"), 0o600))

	require.True(t, LocalConfigExists())
}
