package main

/*
#include <stdlib.h>

typedef void (*tee_signer_log_cb)(const char* level, const char* message, const char* fields);

static tee_signer_log_cb host_log_callback = NULL;

static inline void call_host_log(const char* level, const char* message, const char* fields) {
    if (host_log_callback != NULL) {
        host_log_callback(level, message, fields);
    }
}

static void store_log_callback(tee_signer_log_cb callback) {
    host_log_callback = callback;
}
*/
import "C"
import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"unsafe"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	callbackMutex   sync.RWMutex
	callbackEnabled bool
)

// Entries logged before the host registers its callback
type pendingLogEntry struct {
	level      string
	message    string
	fieldsJSON string
}

var pendingLogs []pendingLogEntry

const maxPendingLogs = 200

// HostCore implements zapcore.Core and forwards entries to the host callback
type HostCore struct {
	zapcore.LevelEnabler
	fields []zapcore.Field
	mu     *sync.Mutex
}

// NewHostCore creates a core forwarding entries at or above enabler
func NewHostCore(enabler zapcore.LevelEnabler) *HostCore {
	return &HostCore{
		LevelEnabler: enabler,
		mu:           &sync.Mutex{},
	}
}

// With adds structured context to the core
func (c *HostCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &HostCore{
		LevelEnabler: c.LevelEnabler,
		fields:       merged,
		mu:           c.mu,
	}
}

// Check determines whether the supplied Entry should be logged
func (c *HostCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return ce.AddCore(entry, c)
	}
	return ce
}

// Write encodes the entry fields as JSON and hands them to the host
func (c *HostCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	enc := zapcore.NewMapObjectEncoder()
	for _, field := range c.fields {
		field.AddTo(enc)
	}
	for _, field := range fields {
		field.AddTo(enc)
	}
	enc.Fields["caller"] = entry.Caller.String()
	enc.Fields["timestamp"] = entry.Time.Format("2006-01-02T15:04:05.000Z07:00")
	if entry.LoggerName != "" {
		enc.Fields["logger"] = entry.LoggerName
	}

	fieldsJSON, err := json.Marshal(enc.Fields)
	if err != nil {
		fieldsJSON = []byte(fmt.Sprintf(`{"encode_error":%q}`, err.Error()))
	}

	callbackMutex.RLock()
	enabled := callbackEnabled
	callbackMutex.RUnlock()

	if !enabled {
		callbackMutex.Lock()
		if len(pendingLogs) >= maxPendingLogs {
			pendingLogs = pendingLogs[1:]
		}
		pendingLogs = append(pendingLogs, pendingLogEntry{
			level:      entry.Level.String(),
			message:    entry.Message,
			fieldsJSON: string(fieldsJSON),
		})
		callbackMutex.Unlock()
		return nil
	}

	sendToHost(entry.Level.String(), entry.Message, string(fieldsJSON))
	return nil
}

// Sync is a no-op; the host callback is synchronous
func (c *HostCore) Sync() error {
	return nil
}

func sendToHost(level, message, fieldsJSON string) {
	levelC := C.CString(level)
	messageC := C.CString(message)
	fieldsC := C.CString(fieldsJSON)
	defer C.free(unsafe.Pointer(levelC))
	defer C.free(unsafe.Pointer(messageC))
	defer C.free(unsafe.Pointer(fieldsC))

	C.call_host_log(levelC, messageC, fieldsC)
}

// CreateLoggerWithHostCallback creates a zap logger that writes to stdout and
// to the host callback. Enclave mode keeps both outputs to errors only.
func CreateLoggerWithHostCallback(serviceName string, development, enclaveMode bool) (*zap.Logger, error) {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	level := zapcore.InfoLevel
	switch {
	case enclaveMode:
		level = zapcore.ErrorLevel
	case development:
		level = zapcore.DebugLevel
	}

	var consoleCore zapcore.Core
	if development && !enclaveMode {
		consoleCore = zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(os.Stdout), level)
	} else {
		consoleCore = zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(os.Stdout), level)
	}

	var opts []zap.Option
	if !enclaveMode {
		opts = append(opts, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	}
	logger := zap.New(zapcore.NewTee(consoleCore, NewHostCore(level)), opts...)

	return logger.With(zap.String("service", serviceName)), nil
}

// setHostCallback registers the host log callback, or disables it when
// callback is nil. Buffered entries are flushed on registration.
func setHostCallback(callback unsafe.Pointer) int {
	callbackMutex.Lock()

	if callback == nil {
		C.store_log_callback(nil)
		callbackEnabled = false
		callbackMutex.Unlock()
		return 0
	}

	C.store_log_callback(C.tee_signer_log_cb(callback))
	callbackEnabled = true
	pending := pendingLogs
	pendingLogs = nil
	callbackMutex.Unlock()

	for _, entry := range pending {
		sendToHost(entry.level, entry.message, entry.fieldsJSON)
	}
	return len(pending)
}
