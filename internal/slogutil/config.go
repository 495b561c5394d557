package slogutil

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/javi11/huntarr/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

type ReplaceAttrFunc func(groups []string, a slog.Attr) slog.Attr

type Config struct {
	Level       slog.Leveler
	ReplaceAttr ReplaceAttrFunc
	Hooks       []Hook
	AddSource   bool
	JSON        bool
}

func defaultLevel() slog.Level {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		return ParseLevel(v)
	}

	return slog.LevelInfo
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewHandler builds a hook-aware handler writing to w.
func NewHandler(w io.Writer, cfg Config) Handler {
	if cfg.Level == nil {
		cfg.Level = defaultLevel()
	}

	opts := &slog.HandlerOptions{
		Level:       cfg.Level,
		AddSource:   cfg.AddSource,
		ReplaceAttr: cfg.ReplaceAttr,
	}

	var base slog.Handler
	if cfg.JSON {
		opts.ReplaceAttr = changeMsgKey(cfg.ReplaceAttr)
		base = slog.NewJSONHandler(w, opts)
	} else {
		base = slog.NewTextHandler(w, opts)
	}

	return WrapHandler(base).WithHooks(cfg.Hooks...)
}

// SetupLogRotation configures slog with log rotation using lumberjack
// If logConfig.File is empty, it logs to console only
// If logConfig.File is configured, it logs to both console and file
// The returned leveler can change the level of the logger at runtime.
func SetupLogRotation(logConfig config.LogConfig) (*slog.Logger, *DynamicLeveler) {
	var writer io.Writer = os.Stdout

	if logConfig.File != "" {
		fileWriter := &lumberjack.Logger{
			Filename:   logConfig.File,
			MaxSize:    logConfig.MaxSize,    // MB
			MaxBackups: logConfig.MaxBackups, // number of old files
			MaxAge:     logConfig.MaxAge,     // days
			Compress:   logConfig.Compress,   // compress old files
		}
		writer = io.MultiWriter(os.Stdout, fileWriter)
	}

	level := logConfig.Level
	if level == "" {
		level = "info"
	}

	leveler := NewDynamicLeveler(ParseLevel(level))

	handler := NewHandler(writer, Config{
		Level: leveler,
		JSON:  logConfig.Format == "json",
	})

	return slog.New(handler), leveler
}
