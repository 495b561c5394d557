package config

import (
	"fmt"
	"path/filepath"
)

// HistoryDir returns the root directory of the per-instance history files.
func (c *Config) HistoryDir() string {
	return filepath.Join(c.Paths.ConfigDir, "history")
}

// ListenAddr returns the host:port the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetLogLevel returns the configured log level, defaulting to info.
func (c *Config) GetLogLevel() string {
	if c.Log.Level == "" {
		return "info"
	}

	return c.Log.Level
}
