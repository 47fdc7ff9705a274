package config

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel maps a LOG_LEVEL value to a slog level. Unknown values mean info.
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

// SetupLogging initializes the global slog logger with JSON output at the specified level.
// Extra handlers, such as the OTel log bridge, receive every record the JSON handler accepts.
func SetupLogging(level string, extra ...slog.Handler) {
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: ParseLevel(level)})
	if len(extra) > 0 {
		handler = newFanout(handler, extra...)
	}
	slog.SetDefault(slog.New(handler))
}

// fanout sends records to several handlers. The primary handler gates the level.
type fanout struct {
	primary slog.Handler
	others  []slog.Handler
}

func newFanout(primary slog.Handler, others ...slog.Handler) *fanout {
	return &fanout{primary: primary, others: others}
}

func (f *fanout) Enabled(ctx context.Context, level slog.Level) bool {
	return f.primary.Enabled(ctx, level)
}

func (f *fanout) Handle(ctx context.Context, r slog.Record) error {
	errs := []error{f.primary.Handle(ctx, r.Clone())}
	for _, h := range f.others {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f *fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	others := make([]slog.Handler, len(f.others))
	for i, h := range f.others {
		others[i] = h.WithAttrs(attrs)
	}
	return newFanout(f.primary.WithAttrs(attrs), others...)
}

func (f *fanout) WithGroup(name string) slog.Handler {
	others := make([]slog.Handler, len(f.others))
	for i, h := range f.others {
		others[i] = h.WithGroup(name)
	}
	return newFanout(f.primary.WithGroup(name), others...)
}
