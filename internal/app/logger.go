package app

import (
	"context"
	"io"
	"log/slog"
)

// Tag prefixes every log message the application emits.
const Tag = "[More-Light]"

// newLogger creates and configures a new slog.Logger instance. It does not
// set the global logger, allowing for isolated logger instances.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler

	if formatStr == "json" {
		handler = slog.NewJSONHandler(outW, handlerOpts)
	} else {
		handler = slog.NewTextHandler(outW, handlerOpts)
	}

	return slog.New(&tagHandler{Handler: handler, tag: Tag})
}

// tagHandler prefixes each record's message with a fixed tag.
type tagHandler struct {
	slog.Handler
	tag string
}

func (h *tagHandler) Handle(ctx context.Context, r slog.Record) error {
	r.Message = h.tag + " " + r.Message
	return h.Handler.Handle(ctx, r)
}

func (h *tagHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &tagHandler{Handler: h.Handler.WithAttrs(attrs), tag: h.tag}
}

func (h *tagHandler) WithGroup(name string) slog.Handler {
	return &tagHandler{Handler: h.Handler.WithGroup(name), tag: h.tag}
}
