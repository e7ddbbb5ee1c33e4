package main

import (
	"fmt"
	"testing"

	"tee-signer/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// drainPending empties the buffer of entries waiting for a host callback
func drainPending() []pendingLogEntry {
	callbackMutex.Lock()
	defer callbackMutex.Unlock()
	pending := pendingLogs
	pendingLogs = nil
	return pending
}

func TestHostLoggerLevels(t *testing.T) {
	cases := []struct {
		name        string
		development bool
		enclave     bool
		enabled     []zapcore.Level
		disabled    []zapcore.Level
	}{
		{"Production", false, false, []zapcore.Level{zapcore.InfoLevel, zapcore.WarnLevel}, []zapcore.Level{zapcore.DebugLevel}},
		{"Development", true, false, []zapcore.Level{zapcore.DebugLevel}, nil},
		{"Enclave", false, true, []zapcore.Level{zapcore.ErrorLevel}, []zapcore.Level{zapcore.InfoLevel, zapcore.WarnLevel}},
		{"Enclave wins over development", true, true, []zapcore.Level{zapcore.ErrorLevel}, []zapcore.Level{zapcore.DebugLevel, zapcore.WarnLevel}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			zl, err := CreateLoggerWithHostCallback("libsigner-test", tc.development, tc.enclave)
			require.NoError(t, err)
			for _, lvl := range tc.enabled {
				assert.True(t, zl.Core().Enabled(lvl), lvl.String())
			}
			for _, lvl := range tc.disabled {
				assert.False(t, zl.Core().Enabled(lvl), lvl.String())
			}
		})
	}
}

func TestEnclaveHostLoggerIsErrorOnly(t *testing.T) {
	zl, err := CreateLoggerWithHostCallback("libsigner-test", false, true)
	require.NoError(t, err)
	l := shared.WrapLogger(zl, shared.LoggerConfig{EnclaveMode: true})

	drainPending()
	l.Info("Signer configured")
	l.Warn("Attestation device busy")
	l.Security("Unknown intent code coerced to default scope", zap.Uint8("intent_code", 9))
	l.WithOperation("tee_signer_public_key_hex").Critical("Panic recovered at C boundary")

	pending := drainPending()
	require.Len(t, pending, 2)
	assert.Equal(t, "error", pending[0].level)
	assert.Contains(t, pending[0].fieldsJSON, `"security_event":true`)
	assert.Contains(t, pending[0].fieldsJSON, `"service":"libsigner-test"`)
	assert.Equal(t, "error", pending[1].level)
	assert.Contains(t, pending[1].fieldsJSON, `"operation":"tee_signer_public_key_hex"`)
}

func TestPendingLogsAreBounded(t *testing.T) {
	zl := zap.New(NewHostCore(zapcore.DebugLevel))

	drainPending()
	for i := 0; i < maxPendingLogs+5; i++ {
		zl.Info(fmt.Sprintf("entry %d", i))
	}

	pending := drainPending()
	require.Len(t, pending, maxPendingLogs)
	assert.Equal(t, "entry 5", pending[0].message)
	assert.Equal(t, fmt.Sprintf("entry %d", maxPendingLogs+4), pending[maxPendingLogs-1].message)
}

func TestDisableCallback(t *testing.T) {
	assert.EqualValues(t, 0, tee_signer_set_log_callback(nil))
	callbackMutex.RLock()
	defer callbackMutex.RUnlock()
	assert.False(t, callbackEnabled)
}
