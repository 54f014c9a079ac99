package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestScopedLoggersCarryFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	UseLogger(zap.New(core))
	t.Cleanup(func() { globalLogger = nil })

	WithConnection("conn-1").Infow("Sync state reset", "reason", "manual_reset")
	WithRequest("req-9", "/api/v1/erp/connections").Warnw("slow")
	Error("boom", "import_id", "imp-3")

	entries := logs.All()
	require.Len(t, entries, 3)

	assert.Equal(t, "conn-1", entries[0].ContextMap()["connection_id"])
	assert.Equal(t, "manual_reset", entries[0].ContextMap()["reason"])

	assert.Equal(t, "req-9", entries[1].ContextMap()["request_id"])
	assert.Equal(t, "/api/v1/erp/connections", entries[1].ContextMap()["endpoint"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)

	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.Equal(t, "imp-3", entries[2].ContextMap()["import_id"])
}

func TestGetLoggerFallsBackBeforeInit(t *testing.T) {
	globalLogger = nil
	t.Cleanup(func() { globalLogger = nil })

	assert.NotNil(t, GetLogger())
	assert.NoError(t, Init("development"))
	assert.NotNil(t, GetLogger())
}
