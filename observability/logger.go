package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// ErrorLogField is the key used for error fields in logs
	ErrorLogField string = "error"
)

// Level is the severity of a log record.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// ParseLevel converts a case-insensitive level name into a Level.
func ParseLevel(s string) (Level, error) {
	switch Level(strings.ToUpper(strings.TrimSpace(s))) {
	case LevelDebug:
		return LevelDebug, nil
	case LevelInfo:
		return LevelInfo, nil
	case LevelWarn, "WARNING":
		return LevelWarn, nil
	case LevelError:
		return LevelError, nil
	}
	return "", fmt.Errorf("unknown log level %q", s)
}

// Logger is the log sink used by the protocol engine.
type Logger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})

	// Structured writes data as an indented JSON document at the given level.
	Structured(level Level, data interface{})

	WithFields(fields map[string]interface{}) Logger
	WithContext(ctx context.Context) Logger
	WithErr(err error) Logger
}

func encodeStructured(data interface{}) (string, error) {
	if raw, ok := data.(json.RawMessage); ok {
		var v interface{}
		if err := json.Unmarshal(raw, &v); err == nil {
			data = v
		}
	}
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// NullLogger - a logger that does nothing
type NullLogger struct{}

// NewNullLogger creates a new NullLogger
func NewNullLogger() Logger {
	return &NullLogger{}
}

func (l *NullLogger) Debug(args ...interface{})                        {}
func (l *NullLogger) Info(args ...interface{})                         {}
func (l *NullLogger) Warn(args ...interface{})                         {}
func (l *NullLogger) Error(args ...interface{})                        {}
func (l *NullLogger) Structured(level Level, data interface{})         {}
func (l *NullLogger) WithFields(fields map[string]interface{}) Logger { return l }
func (l *NullLogger) WithContext(ctx context.Context) Logger          { return l }
func (l *NullLogger) WithErr(err error) Logger                        { return l }

// LogrusLogger implements the Logger interface using logrus
type LogrusLogger struct {
	entry *logrus.Entry
}

// NewLogrusLogger creates a new LogrusLogger with the provided logrus.Logger
func NewLogrusLogger(logger *logrus.Logger) Logger {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogrusLogger{
		entry: logrus.NewEntry(logger),
	}
}

func (l *LogrusLogger) Debug(args ...interface{}) {
	l.entry.Debug(args...)
}

func (l *LogrusLogger) Info(args ...interface{}) {
	l.entry.Info(args...)
}

func (l *LogrusLogger) Warn(args ...interface{}) {
	l.entry.Warn(args...)
}

func (l *LogrusLogger) Error(args ...interface{}) {
	l.entry.Error(args...)
}

// Structured logs data as indented JSON at the given level.
func (l *LogrusLogger) Structured(level Level, data interface{}) {
	text, err := encodeStructured(data)
	if err != nil {
		l.entry.WithError(err).Error("Failed to encode structured log record")
		return
	}
	l.entry.Log(LogrusLevel(level), text)
}

// WithFields adds fields to the logger and returns a new LogrusLogger
func (l *LogrusLogger) WithFields(fields map[string]interface{}) Logger {
	return &LogrusLogger{
		entry: l.entry.WithFields(logrus.Fields(fields)),
	}
}

// WithContext adds context to the logger and returns a new LogrusLogger
func (l *LogrusLogger) WithContext(ctx context.Context) Logger {
	return &LogrusLogger{
		entry: l.entry.WithContext(ctx),
	}
}

// WithErr adds an error to the logger and returns a new LogrusLogger
func (l *LogrusLogger) WithErr(err error) Logger {
	return &LogrusLogger{
		entry: l.entry.WithError(err),
	}
}

// LogrusLevel maps a Level onto its logrus equivalent.
func LogrusLevel(level Level) logrus.Level {
	switch level {
	case LevelDebug:
		return logrus.DebugLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelError:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// ZapLogger implements the Logger interface using uber-go/zap
type ZapLogger struct {
	logger *zap.Logger
	sugar  *zap.SugaredLogger
	fields []zapcore.Field
}

// NewZapLogger creates a new ZapLogger with the provided zap.Logger
func NewZapLogger(logger *zap.Logger) Logger {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}
	return &ZapLogger{
		logger: logger,
		sugar:  logger.Sugar(),
		fields: []zapcore.Field{},
	}
}

func (l *ZapLogger) Debug(args ...interface{}) {
	l.sugar.Debug(args...)
}

func (l *ZapLogger) Info(args ...interface{}) {
	l.sugar.Info(args...)
}

func (l *ZapLogger) Warn(args ...interface{}) {
	l.sugar.Warn(args...)
}

func (l *ZapLogger) Error(args ...interface{}) {
	l.sugar.Error(args...)
}

// Structured logs data as indented JSON at the given level.
func (l *ZapLogger) Structured(level Level, data interface{}) {
	text, err := encodeStructured(data)
	if err != nil {
		l.sugar.With(zap.Error(err)).Error("Failed to encode structured log record")
		return
	}
	switch level {
	case LevelDebug:
		l.sugar.Debug(text)
	case LevelWarn:
		l.sugar.Warn(text)
	case LevelError:
		l.sugar.Error(text)
	default:
		l.sugar.Info(text)
	}
}

// WithFields adds fields to the logger and returns a new ZapLogger
func (l *ZapLogger) WithFields(fields map[string]interface{}) Logger {
	zapFields := make([]zapcore.Field, 0, len(fields))
	for k, v := range fields {
		zapFields = append(zapFields, zap.Any(k, v))
	}

	logger := l.logger.With(zapFields...)
	return &ZapLogger{
		logger: logger,
		sugar:  logger.Sugar(),
		fields: append(append([]zapcore.Field{}, l.fields...), zapFields...),
	}
}

// WithContext is a no-op for ZapLogger
func (l *ZapLogger) WithContext(ctx context.Context) Logger {
	return l
}

// WithErr adds an error to the logger and returns a new ZapLogger
func (l *ZapLogger) WithErr(err error) Logger {
	logger := l.logger.With(zap.Error(err))
	return &ZapLogger{
		logger: logger,
		sugar:  logger.Sugar(),
		fields: append(append([]zapcore.Field{}, l.fields...), zap.Error(err)),
	}
}

// ZapLevel maps a Level onto its zap equivalent.
func ZapLevel(level Level) zapcore.Level {
	switch level {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
