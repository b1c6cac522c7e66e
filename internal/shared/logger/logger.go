package logger

import (
	"context"
	"io"
	"os"

	"queue-maintenance/internal/shared/contextkeys"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Constants for configuration
const (
	// Log levels
	logLevelDebug = "DEBUG"
	logLevelInfo  = "INFO"
	logLevelWarn  = "WARN"
	logLevelError = "ERROR"
	logLevelFatal = "FATAL"

	// Log formats
	logFormatJSON = "json"

	// Environment types
	envProduction = "production"
	envProd       = "prod"

	// Timestamp format
	timestampFormat = "2006-01-02T15:04:05.000Z07:00"
	textTimestamp   = "2006-01-02 15:04:05"
)

// Logger defines the interface for structured logging operations.
// Message arguments may be mixed with zap.Field values; those are lifted into
// structured fields instead of being printed as part of the message.
type Logger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
	Fatal(args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
	WithFields(fields map[string]interface{}) Logger
	WithContext(ctx context.Context) Logger
	WithComponent(component string) Logger
}

// LogrusLogger implements the Logger interface using logrus
type LogrusLogger struct {
	entry *logrus.Entry
}

// NewLogger creates a new logger instance configured from the environment
func NewLogger() Logger {
	return NewLoggerWithWriter(os.Stdout, getLogLevel(), getLogFormatter())
}

// NewLoggerWithConfig creates a logger with custom configuration
func NewLoggerWithConfig(level string, format string) Logger {
	parsedLevel, err := logrus.ParseLevel(level)
	if err != nil {
		parsedLevel = logrus.InfoLevel
	}

	var formatter logrus.Formatter
	switch format {
	case logFormatJSON:
		formatter = &logrus.JSONFormatter{TimestampFormat: timestampFormat}
	default:
		formatter = &logrus.TextFormatter{FullTimestamp: true, TimestampFormat: timestampFormat}
	}

	return NewLoggerWithWriter(os.Stdout, parsedLevel, formatter)
}

// NewLoggerWithWriter creates a logger writing to out. Used by tests to capture output.
func NewLoggerWithWriter(out io.Writer, level logrus.Level, formatter logrus.Formatter) Logger {
	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetFormatter(formatter)
	logger.SetOutput(out)

	return &LogrusLogger{
		entry: logrus.NewEntry(logger),
	}
}

// Debug logs a debug message
func (l *LogrusLogger) Debug(args ...interface{}) {
	msg, fields := splitFields(args)
	l.entry.WithFields(fields).Debug(msg...)
}

// Info logs an info message
func (l *LogrusLogger) Info(args ...interface{}) {
	msg, fields := splitFields(args)
	l.entry.WithFields(fields).Info(msg...)
}

// Warn logs a warning message
func (l *LogrusLogger) Warn(args ...interface{}) {
	msg, fields := splitFields(args)
	l.entry.WithFields(fields).Warn(msg...)
}

// Error logs an error message
func (l *LogrusLogger) Error(args ...interface{}) {
	msg, fields := splitFields(args)
	l.entry.WithFields(fields).Error(msg...)
}

// Fatal logs a fatal message and exits
func (l *LogrusLogger) Fatal(args ...interface{}) {
	msg, fields := splitFields(args)
	l.entry.WithFields(fields).Fatal(msg...)
}

// Debugf logs a formatted debug message
func (l *LogrusLogger) Debugf(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

// Infof logs a formatted info message
func (l *LogrusLogger) Infof(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

// Warnf logs a formatted warning message
func (l *LogrusLogger) Warnf(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}

// Errorf logs a formatted error message
func (l *LogrusLogger) Errorf(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

// Fatalf logs a formatted fatal message and exits
func (l *LogrusLogger) Fatalf(format string, args ...interface{}) {
	l.entry.Fatalf(format, args...)
}

// WithFields adds structured fields to the logger
func (l *LogrusLogger) WithFields(fields map[string]interface{}) Logger {
	return &LogrusLogger{
		entry: l.entry.WithFields(logrus.Fields(fields)),
	}
}

// WithContext adds the run and request identifiers carried by ctx
func (l *LogrusLogger) WithContext(ctx context.Context) Logger {
	fields := logrus.Fields{}

	l.addContextField(ctx, contextkeys.RunIDKey, "run_id", fields)
	l.addContextField(ctx, contextkeys.RequestIDKey, "request_id", fields)
	l.addContextField(ctx, contextkeys.ComponentKey, "component", fields)
	l.addContextField(ctx, contextkeys.OperationKey, "operation", fields)
	l.addContextField(ctx, contextkeys.CollectionKey, "collection", fields)

	return &LogrusLogger{
		entry: l.entry.WithFields(fields),
	}
}

// addContextField extracts a value from context and adds it to fields if present
func (l *LogrusLogger) addContextField(ctx context.Context, key interface{}, fieldName string, fields logrus.Fields) {
	if val := ctx.Value(key); val != nil {
		if strVal, ok := val.(string); ok && strVal != "" {
			fields[fieldName] = strVal
		}
	}
}

// WithComponent adds component name to the logger
func (l *LogrusLogger) WithComponent(component string) Logger {
	return &LogrusLogger{
		entry: l.entry.WithField("component", component),
	}
}

// splitFields separates zap fields from plain message arguments.
func splitFields(args []interface{}) ([]interface{}, logrus.Fields) {
	fields := logrus.Fields{}
	msg := make([]interface{}, 0, len(args))
	for _, arg := range args {
		field, ok := arg.(zap.Field)
		if !ok {
			msg = append(msg, arg)
			continue
		}
		enc := zapcore.NewMapObjectEncoder()
		field.AddTo(enc)
		for k, v := range enc.Fields {
			fields[k] = v
		}
	}
	return msg, fields
}

// getLogLevel determines the log level from environment
func getLogLevel() logrus.Level {
	level := os.Getenv("LOG_LEVEL")
	switch level {
	case logLevelDebug, "debug":
		return logrus.DebugLevel
	case logLevelInfo, "info":
		return logrus.InfoLevel
	case logLevelWarn, "warn", "WARNING", "warning":
		return logrus.WarnLevel
	case logLevelError, "error":
		return logrus.ErrorLevel
	case logLevelFatal, "fatal":
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}

// getLogFormatter determines the log formatter from environment
func getLogFormatter() logrus.Formatter {
	env := os.Getenv("ENVIRONMENT")
	format := os.Getenv("LOG_FORMAT")

	if format == logFormatJSON || env == envProduction || env == envProd {
		return &logrus.JSONFormatter{
			TimestampFormat: timestampFormat,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		}
	}

	// Text formatter for development
	return &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: textTimestamp,
	}
}

// Nop returns a logger that discards everything
func Nop() Logger {
	return NewLoggerWithWriter(io.Discard, logrus.PanicLevel, &logrus.TextFormatter{})
}
