package shared

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Attestation driver selections
const (
	DriverNSM  = "nsm"
	DriverNoop = "noop"
	DriverAuto = "auto"
)

// Config is the signer configuration, read from the environment
type Config struct {
	ServiceName string `json:"service_name"`
	EnclaveMode bool   `json:"enclave_mode"`
	Development bool   `json:"development"`

	// StrictIntent rejects unknown intent codes instead of coercing them to ProcessData
	StrictIntent bool `json:"strict_intent"`

	// AttestationDriver is one of DriverNSM, DriverNoop or DriverAuto
	AttestationDriver string `json:"attestation_driver"`

	// AttestationRetries bounds attempts to open a busy NSM device
	AttestationRetries int `json:"attestation_retries"`
}

// LoadConfig reads an optional .env file and then the process environment.
// A missing .env file is not an error: inside the enclave the environment is
// baked into the image.
func LoadConfig(serviceName string, envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, NewConfigError("failed to load env file", err)
	}
	return ConfigFromEnv(serviceName)
}

// ConfigFromEnv builds the configuration from the current environment only
func ConfigFromEnv(serviceName string) (*Config, error) {
	cfg := &Config{
		ServiceName:        GetEnvOrDefault("SIGNER_SERVICE_NAME", serviceName),
		EnclaveMode:        GetEnvBoolOrDefault("ENCLAVE_MODE", false),
		Development:        GetEnvBoolOrDefault("DEVELOPMENT", false),
		StrictIntent:       GetEnvBoolOrDefault("SIGNER_STRICT_INTENT", false),
		AttestationDriver:  strings.ToLower(GetEnvOrDefault("SIGNER_ATTESTATION_DRIVER", DriverAuto)),
		AttestationRetries: GetEnvIntOrDefault("SIGNER_ATTESTATION_RETRIES", DefaultRetryConfig().MaxAttempts),
	}
	if cfg.AttestationRetries < 1 {
		return nil, NewConfigError("SIGNER_ATTESTATION_RETRIES must be at least 1", nil)
	}

	switch cfg.AttestationDriver {
	case DriverNSM, DriverNoop, DriverAuto:
	default:
		return nil, NewConfigError("unknown attestation driver "+strconv.Quote(cfg.AttestationDriver), nil)
	}
	return cfg, nil
}

// UseNSM reports whether the hardware driver should be used
func (c *Config) UseNSM() bool {
	switch c.AttestationDriver {
	case DriverNSM:
		return true
	case DriverNoop:
		return false
	default:
		return c.EnclaveMode
	}
}

// Helper functions for environment variable handling
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func GetEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func GetEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
