package config

import (
	"log/slog"
	"time"
)

// LoggingUpdater defines interface for components that can update logging levels
type LoggingUpdater interface {
	UpdateLevel(level string) error
}

// HuntingUpdater defines interface for components that can change their cadences
type HuntingUpdater interface {
	UpdateIntervals(coordinator, queueCheck time.Duration)
}

// ComponentRegistry holds references to updatable components
type ComponentRegistry struct {
	Logging LoggingUpdater
	Hunting HuntingUpdater
	logger  *slog.Logger
}

// NewComponentRegistry creates a new component registry
func NewComponentRegistry(logger *slog.Logger) *ComponentRegistry {
	if logger == nil {
		logger = slog.Default()
	}

	return &ComponentRegistry{
		logger: logger,
	}
}

// RegisterLogging registers a logging updater
func (r *ComponentRegistry) RegisterLogging(updater LoggingUpdater) {
	r.Logging = updater
}

// RegisterHunting registers a hunting cadence updater
func (r *ComponentRegistry) RegisterHunting(updater HuntingUpdater) {
	r.Hunting = updater
}

// ApplyUpdates pushes the differences between two configurations to the registered components
func (r *ComponentRegistry) ApplyUpdates(oldConfig, newConfig *Config) {
	if newConfig == nil {
		return
	}

	if r.Logging != nil && (oldConfig == nil || oldConfig.Log.Level != newConfig.Log.Level) {
		if err := r.Logging.UpdateLevel(newConfig.GetLogLevel()); err != nil {
			r.logger.Error("Failed to update log level", "error", err)
		} else {
			r.logger.Info("Log level updated", "level", newConfig.GetLogLevel())
		}
	}

	if r.Hunting != nil && (oldConfig == nil ||
		oldConfig.Hunting.CoordinatorInterval != newConfig.Hunting.CoordinatorInterval ||
		oldConfig.Hunting.QueueCheckInterval != newConfig.Hunting.QueueCheckInterval) {
		r.Hunting.UpdateIntervals(newConfig.Hunting.CoordinatorInterval, newConfig.Hunting.QueueCheckInterval)
		r.logger.Info("Hunting intervals updated",
			"coordinator_interval", newConfig.Hunting.CoordinatorInterval,
			"queue_check_interval", newConfig.Hunting.QueueCheckInterval)
	}
}
