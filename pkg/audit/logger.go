package audit

import (
	"context"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger writes audit events. Writes are synchronous: an event is on disk (or in the
// rotator's buffer) before Log returns.
type Logger interface {
	Log(ctx context.Context, event *Event) error
	Sync() error
	Close() error
}

// Config represents audit logger configuration.
type Config struct {
	// Path is the audit log file. Rotated by size.
	Path string

	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

// DefaultConfig returns default audit logger configuration.
func DefaultConfig() *Config {
	return &Config{
		Path:       "logs/audit.log",
		MaxSize:    100,
		MaxBackups: 10,
		MaxAge:     30,
		Compress:   true,
	}
}

type zapLogger struct {
	logger *zap.Logger
	closer func() error
	mu     sync.Mutex
	closed bool
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "logged_at",
		LevelKey:       "level",
		MessageKey:     "message",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
	}
}

// NewLogger creates an append-only JSON audit logger backed by a rotating file.
func NewLogger(config *Config) (Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Path == "" {
		return nil, fmt.Errorf("audit log path is required")
	}

	rotator := &lumberjack.Logger{
		Filename:   config.Path,
		MaxSize:    config.MaxSize,
		MaxBackups: config.MaxBackups,
		MaxAge:     config.MaxAge,
		Compress:   config.Compress,
	}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig()),
		zapcore.AddSync(rotator),
		zapcore.InfoLevel,
	)
	return &zapLogger{logger: zap.New(core), closer: rotator.Close}, nil
}

// NewLoggerFromCore wraps an existing zap core. Used for stdout auditing and in tests.
func NewLoggerFromCore(core zapcore.Core) Logger {
	return &zapLogger{logger: zap.New(core), closer: func() error { return nil }}
}

// NewStdoutLogger writes audit events as JSON lines to stdout.
func NewStdoutLogger() Logger {
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), zapcore.Lock(os.Stdout), zapcore.InfoLevel)
	return NewLoggerFromCore(core)
}

func (l *zapLogger) Log(ctx context.Context, event *Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return fmt.Errorf("audit logger is closed")
	}

	fields := []zap.Field{
		zap.Time("timestamp", event.Timestamp),
		zap.String("correlation_id", event.CorrelationID),
		zap.String("event_type", string(event.EventType)),
		zap.String("result", string(event.Result)),
		zap.String("command", event.Command),
	}
	if event.Requester != "" {
		fields = append(fields, zap.String("requester", event.Requester))
	}
	if event.KubeContext != "" {
		fields = append(fields, zap.String("kube_context", event.KubeContext))
	}
	if event.Keyword != "" {
		fields = append(fields, zap.String("keyword", event.Keyword))
	}
	if event.Error != "" {
		fields = append(fields, zap.String("error", event.Error))
	}
	if event.DurationMs > 0 {
		fields = append(fields, zap.Int64("duration_ms", event.DurationMs))
	}

	level := zapcore.InfoLevel
	if event.Result == ResultDenied {
		level = zapcore.WarnLevel
	}
	if ce := l.logger.Check(level, string(event.EventType)); ce != nil {
		ce.Write(fields...)
	}
	return nil
}

func (l *zapLogger) Sync() error {
	return l.logger.Sync()
}

func (l *zapLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	_ = l.logger.Sync()
	return l.closer()
}
