package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		wantErr     bool
		errContains string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:        "invalid port",
			mutate:      func(c *Config) { c.Server.Port = 0 },
			wantErr:     true,
			errContains: "server.port",
		},
		{
			name:        "base path without slash",
			mutate:      func(c *Config) { c.Server.BasePath = "huntarr" },
			wantErr:     true,
			errContains: "base_path",
		},
		{
			name:        "empty config dir",
			mutate:      func(c *Config) { c.Paths.ConfigDir = "" },
			wantErr:     true,
			errContains: "config_dir",
		},
		{
			name:        "unknown log level",
			mutate:      func(c *Config) { c.Log.Level = "verbose" },
			wantErr:     true,
			errContains: "log.level",
		},
		{
			name:        "unknown log format",
			mutate:      func(c *Config) { c.Log.Format = "xml" },
			wantErr:     true,
			errContains: "log.format",
		},
		{
			name:        "zero coordinator interval",
			mutate:      func(c *Config) { c.Hunting.CoordinatorInterval = 0 },
			wantErr:     true,
			errContains: "coordinator_interval",
		},
		{
			name:        "zero settings cache ttl",
			mutate:      func(c *Config) { c.Hunting.SettingsCacheTTL = 0 },
			wantErr:     true,
			errContains: "settings_cache_ttl",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestConfig_DeepCopy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Auth.JWTSecret = "secret"

	cp := cfg.DeepCopy()
	require.NotNil(t, cp)
	assert.Equal(t, cfg, cp)

	cp.Auth.JWTSecret = "changed"
	cp.Hunting.CoordinatorInterval = time.Minute
	assert.Equal(t, "secret", cfg.Auth.JWTSecret)
	assert.Equal(t, 30*time.Second, cfg.Hunting.CoordinatorInterval)

	var nilCfg *Config
	assert.Nil(t, nilCfg.DeepCopy())
}

func TestManager_UpdateConfigNotifiesCallbacks(t *testing.T) {
	m := NewManager(DefaultConfig(), "")

	var gotOld, gotNew *Config
	m.OnConfigChange(func(oldConfig, newConfig *Config) {
		gotOld = oldConfig
		gotNew = newConfig
	})

	next := DefaultConfig()
	next.Log.Level = "debug"
	require.NoError(t, m.UpdateConfig(next))

	require.NotNil(t, gotOld)
	assert.Equal(t, "info", gotOld.Log.Level)
	assert.Equal(t, "debug", gotNew.Log.Level)
	assert.Equal(t, "debug", m.GetConfigGetter()().Log.Level)
}

func TestManager_ValidateConfigUpdate(t *testing.T) {
	m := NewManager(DefaultConfig(), "")

	next := DefaultConfig()
	next.Server.Port = 9999
	assert.Error(t, m.ValidateConfigUpdate(next))

	next = DefaultConfig()
	next.Log.Level = "warn"
	assert.NoError(t, m.ValidateConfigUpdate(next))
}

func TestSaveAndLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Server.Port = 8123
	cfg.Paths.ConfigDir = filepath.Join(dir, "data")
	cfg.Hunting.QueueCheckInterval = 5 * time.Minute
	require.NoError(t, SaveToFile(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8123, loaded.Server.Port)
	assert.Equal(t, 5*time.Minute, loaded.Hunting.QueueCheckInterval)
	assert.Equal(t, filepath.Join(dir, "data", "history"), loaded.HistoryDir())
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, SaveToFile(DefaultConfig(), path))

	t.Setenv("HUNTARR_AUTH_JWT_SECRET", "from-env")
	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", loaded.Auth.JWTSecret)
}

func TestSaveToFile_EmptyPath(t *testing.T) {
	assert.Error(t, SaveToFile(DefaultConfig(), ""))
}
