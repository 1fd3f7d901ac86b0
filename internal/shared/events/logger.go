package events

import (
	"context"
	"log/slog"
	"sort"

	"github.com/ThreeDotsLabs/watermill"
)

// levelTrace sits below slog's debug level.
const levelTrace = slog.LevelDebug - 4

// slogAdapter routes watermill's logs into the bus logger. Watermill logs
// once per message at Info, so Info is lowered to Debug.
type slogAdapter struct {
	logger *slog.Logger
}

func newSlogAdapter(logger *slog.Logger) watermill.LoggerAdapter {
	return &slogAdapter{logger: logger.With("source", "watermill")}
}

func (a *slogAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.log(slog.LevelError, msg, fields.Add(watermill.LogFields{"error": err}))
}

func (a *slogAdapter) Info(msg string, fields watermill.LogFields) {
	a.log(slog.LevelDebug, msg, fields)
}

func (a *slogAdapter) Debug(msg string, fields watermill.LogFields) {
	a.log(slog.LevelDebug, msg, fields)
}

func (a *slogAdapter) Trace(msg string, fields watermill.LogFields) {
	a.log(levelTrace, msg, fields)
}

func (a *slogAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &slogAdapter{logger: a.logger.With(attrs(fields)...)}
}

func (a *slogAdapter) log(level slog.Level, msg string, fields watermill.LogFields) {
	ctx := context.Background()
	if !a.logger.Enabled(ctx, level) {
		return
	}
	a.logger.Log(ctx, level, msg, attrs(fields)...)
}

func attrs(fields watermill.LogFields) []any {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]any, 0, len(keys))
	for _, k := range keys {
		out = append(out, slog.Any(k, fields[k]))
	}
	return out
}
