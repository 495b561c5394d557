package slogutil

import (
	"log/slog"
	"sync/atomic"
)

type DynamicLeveler struct {
	level atomic.Value
}

// NewDynamicLeveler creates a leveler starting at the given level.
func NewDynamicLeveler(level slog.Level) *DynamicLeveler {
	dl := &DynamicLeveler{}
	dl.level.Store(level)

	return dl
}

// Level returns the current logging level.
func (dl *DynamicLeveler) Level() slog.Level {
	if v, ok := dl.level.Load().(slog.Level); ok {
		return v
	}

	return slog.LevelInfo
}

// SetLevel updates the logging level.
func (dl *DynamicLeveler) SetLevel(level slog.Level) {
	dl.level.Store(level)
}

// UpdateLevel implements config.LoggingUpdater.
func (dl *DynamicLeveler) UpdateLevel(level string) error {
	dl.SetLevel(ParseLevel(level))
	return nil
}
