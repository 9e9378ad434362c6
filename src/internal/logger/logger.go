package logger

import (
	"encoding/json"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Fields map[string]any

var sensitiveKeys = map[string]struct{}{
	"password":       {},
	"channelkey":     {},
	"channel_key":    {},
	"channelkeyhash": {},
	"secret":         {},
	"webhooksecret":  {},
	"webhook_secret": {},
	"authorization":  {},
}

var current atomic.Pointer[zap.Logger]

func init() {
	current.Store(zap.NewNop())
	if l, err := New("info"); err == nil {
		current.Store(l)
	}
}

// New builds a JSON zap logger at the given level.
func New(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true

	return cfg.Build(zap.AddCallerSkip(1))
}

// Init replaces the process logger.
func Init(level string) error {
	l, err := New(level)
	if err != nil {
		return err
	}
	Set(l)
	return nil
}

func Set(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	current.Store(l)
}

func Sync() error {
	return current.Load().Sync()
}

func Debug(message string, fields Fields) {
	current.Load().Debug(message, zapFields(fields)...)
}

func Info(message string, fields Fields) {
	current.Load().Info(message, zapFields(fields)...)
}

func Warn(message string, fields Fields) {
	current.Load().Warn(message, zapFields(fields)...)
}

func Error(message string, err error, fields Fields) {
	out := zapFields(fields)
	if err != nil {
		out = append(out, zap.String("error", err.Error()))
	}
	current.Load().Error(message, out...)
}

func SanitizePayload(payload any) any {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "<unavailable>"
	}

	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return "<unavailable>"
	}

	return sanitizeValue(data)
}

func zapFields(fields Fields) []zap.Field {
	if len(fields) == 0 {
		return nil
	}

	out := make([]zap.Field, 0, len(fields))
	for key, value := range fields {
		if isSensitiveKey(key) {
			out = append(out, zap.String(key, "******"))
			continue
		}
		out = append(out, zap.Any(key, value))
	}
	return out
}

func sanitizeValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, inner := range typed {
			if isSensitiveKey(key) {
				out[key] = "******"
				continue
			}
			out[key] = sanitizeValue(inner)
		}
		return out
	case []any:
		out := make([]any, 0, len(typed))
		for _, item := range typed {
			out = append(out, sanitizeValue(item))
		}
		return out
	default:
		return value
	}
}

func isSensitiveKey(key string) bool {
	normalized := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(key), "-", ""))
	_, ok := sensitiveKeys[normalized]
	return ok
}
