package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"queue-maintenance/internal/shared/contextkeys"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newJSONLogger(buf *bytes.Buffer) Logger {
	return NewLoggerWithWriter(buf, logrus.DebugLevel, &logrus.JSONFormatter{})
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestLoggerInterface_Contract(t *testing.T) {
	var _ Logger = NewLogger()
	var _ Logger = NewLoggerWithConfig("info", "json")
	var _ Logger = Nop()
}

func TestLogrusLogger_ZapFieldsBecomeStructured(t *testing.T) {
	var buf bytes.Buffer
	log := newJSONLogger(&buf)

	log.Info("Collection cleared", zap.String("collection", "requests"), zap.Int("deleted", 3))

	entry := decodeLine(t, &buf)
	assert.Equal(t, "Collection cleared", entry["msg"])
	assert.Equal(t, "requests", entry["collection"])
	assert.EqualValues(t, 3, entry["deleted"])
}

func TestLogrusLogger_ZapErrorField(t *testing.T) {
	var buf bytes.Buffer
	log := newJSONLogger(&buf)

	log.Error("Batch commit failed", zap.Error(errors.New("deadline exceeded")))

	entry := decodeLine(t, &buf)
	assert.Equal(t, "Batch commit failed", entry["msg"])
	assert.Equal(t, "deadline exceeded", entry["error"])
	assert.Equal(t, "error", entry["level"])
}

func TestLogrusLogger_WithContext(t *testing.T) {
	var buf bytes.Buffer
	log := newJSONLogger(&buf)

	ctx := context.WithValue(context.Background(), contextkeys.RunIDKey, "run-1")
	ctx = context.WithValue(ctx, contextkeys.OperationKey, "reset-counters")
	log.WithContext(ctx).Info("started")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "run-1", entry["run_id"])
	assert.Equal(t, "reset-counters", entry["operation"])
	assert.NotContains(t, entry, "request_id")
}

func TestLogrusLogger_WithComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	log := newJSONLogger(&buf).WithComponent("scheduler").WithFields(map[string]interface{}{"cron": "15 11 * * *"})

	log.Warn("skipped")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "scheduler", entry["component"])
	assert.Equal(t, "15 11 * * *", entry["cron"])
}

func TestNewLoggerWithConfig_InvalidLevelFallsBackToInfo(t *testing.T) {
	log := NewLoggerWithConfig("not-a-level", "text").(*LogrusLogger)
	assert.Equal(t, logrus.InfoLevel, log.entry.Logger.GetLevel())
}

func TestGetLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	assert.Equal(t, logrus.DebugLevel, getLogLevel())
	t.Setenv("LOG_LEVEL", "WARNING")
	assert.Equal(t, logrus.WarnLevel, getLogLevel())
	t.Setenv("LOG_LEVEL", "")
	assert.Equal(t, logrus.InfoLevel, getLogLevel())
}

func TestGetLogFormatter(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("LOG_FORMAT", "")
	_, isJSON := getLogFormatter().(*logrus.JSONFormatter)
	assert.True(t, isJSON)

	t.Setenv("ENVIRONMENT", "development")
	_, isText := getLogFormatter().(*logrus.TextFormatter)
	assert.True(t, isText)
}
