package shared

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerConfig holds the configuration for the logger
type LoggerConfig struct {
	ServiceName string
	EnclaveMode bool // error-only output inside the enclave
	Development bool
}

// Logger wraps zap.Logger with signer-specific helpers
type Logger struct {
	*zap.Logger
	serviceName string
	enclaveMode bool
}

// NewLogger creates a new logger instance based on the configuration
func NewLogger(config LoggerConfig) (*Logger, error) {
	var zapConfig zap.Config

	switch {
	case config.EnclaveMode:
		// Keep enclave output to errors so key material and payloads never reach the console
		zapConfig = zap.NewProductionConfig()
		zapConfig.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
		zapConfig.DisableCaller = true
		zapConfig.DisableStacktrace = true
	case config.Development:
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	default:
		zapConfig = zap.NewProductionConfig()
		zapConfig.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	zapLogger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}

	return WrapLogger(zapLogger, config), nil
}

// WrapLogger attaches service fields to an existing zap logger. Used by the C
// library (host callback core) and by tests (zaptest).
func WrapLogger(zapLogger *zap.Logger, config LoggerConfig) *Logger {
	if config.ServiceName != "" {
		zapLogger = zapLogger.With(
			zap.String("service", config.ServiceName),
			zap.Bool("enclave_mode", config.EnclaveMode),
		)
	}
	return &Logger{
		Logger:      zapLogger,
		serviceName: config.ServiceName,
		enclaveMode: config.EnclaveMode,
	}
}

// NopLogger returns a logger that discards everything
func NopLogger() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// NewLoggerFromConfig creates a logger from the loaded service configuration
func NewLoggerFromConfig(cfg *Config) (*Logger, error) {
	return NewLogger(LoggerConfig{
		ServiceName: cfg.ServiceName,
		EnclaveMode: cfg.EnclaveMode,
		Development: cfg.Development,
	})
}

// WithHandle scopes the logger to one keypair handle
func (l *Logger) WithHandle(keyID string) *zap.Logger {
	if keyID == "" {
		return l.Logger
	}
	return l.Logger.With(zap.String("key_id", keyID))
}

// WithOperation scopes the logger to a boundary operation, keeping the
// Critical and Security helpers
func (l *Logger) WithOperation(op string) *Logger {
	return &Logger{
		Logger:      l.Logger.With(zap.String("operation", op)),
		serviceName: l.serviceName,
		enclaveMode: l.enclaveMode,
	}
}

// Critical error logging - always logs even in enclave mode
func (l *Logger) Critical(msg string, fields ...zap.Field) {
	l.Logger.Error(msg, append(fields, zap.Bool("critical", true))...)
}

// Security events are always logged regardless of mode
func (l *Logger) Security(msg string, fields ...zap.Field) {
	if ce := l.Logger.Check(zapcore.WarnLevel, msg); ce != nil {
		ce.Write(append(fields, zap.Bool("security_event", true))...)
		return
	}
	// Enclave mode drops warnings; escalate so the event is not lost
	l.Logger.Error(msg, append(fields, zap.Bool("security_event", true))...)
}

// DebugIf only logs outside the enclave
func (l *Logger) DebugIf(msg string, fields ...zap.Field) {
	if !l.enclaveMode {
		l.Logger.Debug(msg, fields...)
	}
}

// InfoIf only logs outside the enclave
func (l *Logger) InfoIf(msg string, fields ...zap.Field) {
	if !l.enclaveMode {
		l.Logger.Info(msg, fields...)
	}
}

// ServiceName returns the configured service name
func (l *Logger) ServiceName() string {
	return l.serviceName
}

// Sync flushes any buffered log entries
func (l *Logger) Sync() error {
	return l.Logger.Sync()
}
