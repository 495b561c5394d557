package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jinzhu/copier"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the complete boot configuration of the daemon.
// Runtime app settings (instances, hunt counts) live in the settings store.
type Config struct {
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Paths    PathsConfig    `yaml:"paths" mapstructure:"paths"`
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Auth     AuthConfig     `yaml:"auth" mapstructure:"auth"`
	Hunting  HuntingConfig  `yaml:"hunting" mapstructure:"hunting"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	BasePath string `yaml:"base_path" mapstructure:"base_path"`
}

// PathsConfig holds on-disk locations
type PathsConfig struct {
	ConfigDir string `yaml:"config_dir" mapstructure:"config_dir"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LogConfig represents logging configuration with rotation support
type LogConfig struct {
	File       string `yaml:"file" mapstructure:"file"`               // Log file path (empty = console only)
	Level      string `yaml:"level" mapstructure:"level"`             // Log level (debug, info, warn, error)
	Format     string `yaml:"format" mapstructure:"format"`           // text or json
	MaxSize    int    `yaml:"max_size" mapstructure:"max_size"`       // Max size in MB before rotation
	MaxAge     int    `yaml:"max_age" mapstructure:"max_age"`         // Max age in days to keep files
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"` // Max number of old files to keep
	Compress   bool   `yaml:"compress" mapstructure:"compress"`       // Compress old log files
}

// AuthConfig represents session and Plex configuration
type AuthConfig struct {
	JWTSecret     string        `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	TokenDuration time.Duration `yaml:"token_duration" mapstructure:"token_duration"`
	CookieSecure  bool          `yaml:"cookie_secure" mapstructure:"cookie_secure"`
	Issuer        string        `yaml:"issuer" mapstructure:"issuer"`
	PlexClientID  string        `yaml:"plex_client_id" mapstructure:"plex_client_id"`
}

// HuntingConfig controls scheduler cadences
type HuntingConfig struct {
	CoordinatorInterval time.Duration `yaml:"coordinator_interval" mapstructure:"coordinator_interval"`
	QueueCheckInterval  time.Duration `yaml:"queue_check_interval" mapstructure:"queue_check_interval"`
	SupervisorInterval  time.Duration `yaml:"supervisor_interval" mapstructure:"supervisor_interval"`
	ShutdownTimeout     time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	SettingsCacheTTL    time.Duration `yaml:"settings_cache_ttl" mapstructure:"settings_cache_ttl"`
}

// DeepCopy returns a deep copy of the configuration
func (c *Config) DeepCopy() *Config {
	if c == nil {
		return nil
	}

	copyCfg := &Config{}
	if err := copier.CopyWithOption(copyCfg, c, copier.Option{DeepCopy: true}); err != nil {
		shallow := *c
		return &shallow
	}

	return copyCfg
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("server.base_path must start with /")
	}

	if c.Paths.ConfigDir == "" {
		return fmt.Errorf("paths.config_dir cannot be empty")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path cannot be empty")
	}

	if c.Log.Level != "" {
		switch strings.ToLower(c.Log.Level) {
		case "debug", "info", "warn", "error":
		default:
			return fmt.Errorf("log.level must be one of: debug, info, warn, error")
		}
	}

	if c.Log.Format != "" && c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be one of: text, json")
	}

	if c.Log.MaxSize < 0 {
		return fmt.Errorf("log.max_size must be non-negative")
	}

	if c.Log.MaxAge < 0 {
		return fmt.Errorf("log.max_age must be non-negative")
	}

	if c.Log.MaxBackups < 0 {
		return fmt.Errorf("log.max_backups must be non-negative")
	}

	if c.Auth.TokenDuration <= 0 {
		return fmt.Errorf("auth.token_duration must be greater than 0")
	}

	if c.Hunting.CoordinatorInterval <= 0 {
		return fmt.Errorf("hunting.coordinator_interval must be greater than 0")
	}

	if c.Hunting.QueueCheckInterval <= 0 {
		return fmt.Errorf("hunting.queue_check_interval must be greater than 0")
	}

	if c.Hunting.SupervisorInterval <= 0 {
		return fmt.Errorf("hunting.supervisor_interval must be greater than 0")
	}

	if c.Hunting.ShutdownTimeout <= 0 {
		return fmt.Errorf("hunting.shutdown_timeout must be greater than 0")
	}

	if c.Hunting.SettingsCacheTTL <= 0 {
		return fmt.Errorf("hunting.settings_cache_ttl must be greater than 0")
	}

	return nil
}

// ConfigGetter is a function that returns the current configuration
type ConfigGetter func() *Config

// ChangeCallback represents a function called when configuration changes
type ChangeCallback func(oldConfig, newConfig *Config)

// Manager manages configuration state and persistence
type Manager struct {
	current    *Config
	configFile string
	mutex      sync.RWMutex
	callbacks  []ChangeCallback
}

// NewManager creates a new configuration manager
func NewManager(config *Config, configFile string) *Manager {
	return &Manager{
		current:    config,
		configFile: configFile,
	}
}

// GetConfig returns the current configuration
func (m *Manager) GetConfig() *Config {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.current
}

// GetConfigGetter returns a function that returns the current configuration
func (m *Manager) GetConfigGetter() ConfigGetter {
	return m.GetConfig
}

// UpdateConfig updates the current configuration
func (m *Manager) UpdateConfig(config *Config) error {
	m.mutex.Lock()
	var oldConfig *Config
	if m.current != nil {
		oldConfig = m.current.DeepCopy()
	}
	m.current = config
	callbacks := make([]ChangeCallback, len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.mutex.Unlock()

	// Notify callbacks after releasing the lock
	for _, callback := range callbacks {
		callback(oldConfig, config)
	}
	return nil
}

// OnConfigChange registers a callback to be called when configuration changes
func (m *Manager) OnConfigChange(callback ChangeCallback) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.callbacks = append(m.callbacks, callback)
}

// ValidateConfigUpdate validates configuration updates with additional restrictions
func (m *Manager) ValidateConfigUpdate(newConfig *Config) error {
	if err := newConfig.Validate(); err != nil {
		return err
	}

	m.mutex.RLock()
	currentConfig := m.current
	m.mutex.RUnlock()

	if currentConfig != nil {
		if newConfig.Server.Port != currentConfig.Server.Port {
			return fmt.Errorf("server port cannot be changed at runtime - requires restart")
		}

		if newConfig.Database.Path != currentConfig.Database.Path {
			return fmt.Errorf("database path cannot be changed at runtime - requires restart")
		}

		if newConfig.Paths.ConfigDir != currentConfig.Paths.ConfigDir {
			return fmt.Errorf("paths.config_dir cannot be changed at runtime - requires restart")
		}
	}

	return nil
}

// ReloadConfig reloads configuration from file
func (m *Manager) ReloadConfig() error {
	config, err := LoadConfig(m.configFile)
	if err != nil {
		return err
	}

	return m.UpdateConfig(config)
}

// SaveConfig saves the current configuration to file
func (m *Manager) SaveConfig() error {
	m.mutex.RLock()
	config := m.current
	m.mutex.RUnlock()

	if config == nil {
		return fmt.Errorf("no configuration to save")
	}

	return SaveToFile(config, m.configFile)
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 9705,
		},
		Paths: PathsConfig{
			ConfigDir: "./config",
		},
		Database: DatabaseConfig{
			Path: "./config/huntarr.db",
		},
		Log: LogConfig{
			File:       "",     // Empty = console only
			Level:      "info", // Default log level
			Format:     "text",
			MaxSize:    50,
			MaxAge:     14,
			MaxBackups: 5,
			Compress:   true,
		},
		Auth: AuthConfig{
			TokenDuration: 7 * 24 * time.Hour,
			Issuer:        "huntarr",
		},
		Hunting: HuntingConfig{
			CoordinatorInterval: 30 * time.Second,
			QueueCheckInterval:  120 * time.Second,
			SupervisorInterval:  15 * time.Second,
			ShutdownTimeout:     10 * time.Second,
			SettingsCacheTTL:    5 * time.Second,
		},
	}
}

// SaveToFile saves a configuration to a YAML file
func SaveToFile(config *Config, filename string) error {
	if filename == "" {
		return fmt.Errorf("no config file path provided")
	}

	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadConfig loads configuration from file and merges with defaults.
// Values can be overridden with HUNTARR_ prefixed environment variables.
func LoadConfig(configFile string) (*Config, error) {
	config := DefaultConfig()

	v := viper.New()
	v.SetEnvPrefix("HUNTARR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if configFile != "" {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
		return nil, fmt.Errorf("no configuration file found. Please create config.yaml or use --config flag")
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}
