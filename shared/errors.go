package shared

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is checks
var (
	ErrUnknownIntent    = errors.New("unknown intent scope")
	ErrInvalidSignature = errors.New("signature verification failed")
	ErrKeyMismatch      = errors.New("attested public key does not match")
)

// SignerError is the base error type for all signer errors
type SignerError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Cause   error  `json:"cause,omitempty"`
}

// Error implements the error interface
func (e *SignerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the error unwrapping interface
func (e *SignerError) Unwrap() error {
	return e.Cause
}

// AttestationError represents a failed exchange with the attestation driver
type AttestationError struct {
	*SignerError
	Stage string `json:"stage"` // open, send, response
}

// NewAttestationError creates a new attestation error
func NewAttestationError(stage string, cause error) *AttestationError {
	return &AttestationError{
		SignerError: &SignerError{
			Type:    "attestation_error",
			Message: fmt.Sprintf("attestation failed during %s", stage),
			Cause:   cause,
		},
		Stage: stage,
	}
}

// IntentError represents a rejected or unverifiable intent message
type IntentError struct {
	*SignerError
}

// NewIntentError creates a new intent error
func NewIntentError(message string, cause error) *IntentError {
	return &IntentError{
		SignerError: &SignerError{
			Type:    "intent_error",
			Message: message,
			Cause:   cause,
		},
	}
}

// ConfigError represents invalid configuration
type ConfigError struct {
	*SignerError
}

// NewConfigError creates a new configuration error
func NewConfigError(message string, cause error) *ConfigError {
	return &ConfigError{
		SignerError: &SignerError{
			Type:    "config_error",
			Message: message,
			Cause:   cause,
		},
	}
}

// IsAttestationError checks if an error is an attestation error
func IsAttestationError(err error) bool {
	var ae *AttestationError
	return errors.As(err, &ae)
}
