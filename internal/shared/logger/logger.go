package logger

import (
	"context"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a structured logger for one service. Every entry carries the
// service name, hostname, an action tag, and the request id from ctx, so
// log lines from different services correlate across a saga.
type Logger struct {
	zl       *zap.Logger
	service  string
	hostname string
}

// NewLogger builds a JSON logger writing to stdout.
func NewLogger(service string) *Logger {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.RFC3339TimeEncoder
	encCfg.MessageKey = "message"
	encCfg.LevelKey = "level"
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.Lock(os.Stdout),
		zapcore.DebugLevel,
	)

	return &Logger{
		zl:       zap.New(core),
		service:  service,
		hostname: hostname,
	}
}

type ctxKey string

const requestIDKey ctxKey = "request_id"

// WithRequestID returns a context carrying a request id (propagated across
// HTTP and mq hops).
func (logger *Logger) WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, requestIDKey, rid)
}

// RequestIDFrom extracts the request id placed by WithRequestID, or "".
func RequestIDFrom(ctx context.Context) string {
	if v := ctx.Value(requestIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func (logger *Logger) fields(ctx context.Context, action string, details any) []zap.Field {
	fs := []zap.Field{
		zap.String("service", logger.service),
		zap.String("hostname", logger.hostname),
		zap.String("action", action),
		zap.String("request_id", RequestIDFrom(ctx)),
	}
	if details != nil {
		fs = append(fs, zap.Any("details", details))
	}
	return fs
}

func (logger *Logger) Info(ctx context.Context, action, msg string, details any) {
	logger.zl.Info(msg, logger.fields(ctx, action, details)...)
}

func (logger *Logger) Debug(ctx context.Context, action, msg string, details any) {
	logger.zl.Debug(msg, logger.fields(ctx, action, details)...)
}

func (logger *Logger) Error(ctx context.Context, action, msg string, err error) {
	fs := logger.fields(ctx, action, nil)
	if err != nil {
		fs = append(fs, zap.Error(err))
	}
	logger.zl.Error(msg, fs...)
}

// Sync flushes buffered entries; call on shutdown.
func (logger *Logger) Sync() {
	_ = logger.zl.Sync()
}
