package slogutil

import (
	"context"
	"log/slog"
	"os"
	"slices"
	"strings"
)

// Hook mutates a record before it reaches the underlying handler.
type Hook interface {
	Run(ctx context.Context, r *slog.Record)
}

// Handler forwards records to a slog.Handler after running its hooks. The
// default hooks attach the app_type and instance carried by the context and
// mask credentials.
type Handler struct {
	handler slog.Handler
	hooks   []Hook
}

// WrapHandler installs the default hooks around h. A nil h logs text to stdout.
func WrapHandler(h slog.Handler) Handler {
	if h == nil {
		h = slog.NewTextHandler(os.Stdout, nil)
	}

	return Handler{
		handler: h,
		hooks:   []Hook{dataHook{}, redactHook{}},
	}
}

func (h Handler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.handler.Enabled(ctx, l)
}

func (h Handler) Handle(ctx context.Context, r slog.Record) error {
	if len(h.hooks) == 0 {
		return h.handler.Handle(ctx, r)
	}

	r = r.Clone()
	for _, hook := range h.hooks {
		hook.Run(ctx, &r)
	}

	return h.handler.Handle(ctx, r)
}

func (h Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.with(h.handler.WithAttrs(redactAttrs(attrs)))
}

func (h Handler) WithGroup(name string) slog.Handler {
	return h.with(h.handler.WithGroup(name))
}

// WithHooks returns a copy running hooks after the existing ones.
func (h Handler) WithHooks(hooks ...Hook) Handler {
	if len(hooks) == 0 {
		return h
	}

	return Handler{handler: h.handler, hooks: slices.Concat(h.hooks, hooks)}
}

func (h Handler) with(next slog.Handler) Handler {
	return Handler{handler: next, hooks: h.hooks}
}

// Redacted replaces the value of sensitive attributes.
const Redacted = "[REDACTED]"

// sensitiveKeys are attribute names whose values never reach the log output.
var sensitiveKeys = []string{"api_key", "apikey", "password", "token", "plex_token", "secret", "two_fa_secret"}

func isSensitive(key string) bool {
	return slices.Contains(sensitiveKeys, strings.ToLower(key))
}

type redactHook struct{}

func (redactHook) Run(_ context.Context, r *slog.Record) {
	var masked bool
	attrs := make([]slog.Attr, 0, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		if isSensitive(a.Key) {
			a.Value = slog.StringValue(Redacted)
			masked = true
		}
		attrs = append(attrs, a)
		return true
	})
	if !masked {
		return
	}

	clean := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	clean.AddAttrs(attrs...)
	*r = clean
}

func redactAttrs(attrs []slog.Attr) []slog.Attr {
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		if isSensitive(a.Key) {
			a.Value = slog.StringValue(Redacted)
		}
		out[i] = a
	}
	return out
}

// MessageKey replaces slog's "msg" key in JSON output.
const MessageKey = "message"

func changeMsgKey(fn ReplaceAttrFunc) ReplaceAttrFunc {
	return func(groups []string, a slog.Attr) slog.Attr {
		if len(groups) == 0 && a.Key == slog.MessageKey {
			a = slog.String(MessageKey, a.Value.String())
		}

		if fn != nil {
			return fn(groups, a)
		}

		return a
	}
}
