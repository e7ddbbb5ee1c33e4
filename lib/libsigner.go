// Command lib builds libsigner, the C shared library for hosts such as Bun or
// Node FFI:
//
//	go build -buildmode=c-shared -o libsigner.so ./lib
//
// Usage order and memory:
//  1. tee_signer_generate_keypair returns a handle (0 on failure)
//  2. tee_signer_public_key_hex / tee_signer_get_attestation (optional)
//  3. tee_signer_sign_intent_json or tee_signer_sign_intent_bcs
//  4. tee_signer_free_cstr on every returned string, exactly once
//  5. tee_signer_free_keypair exactly once at the end
//
// Pointers and lengths must be valid. A handle must not be used after it is
// freed, and must not be used from two threads at once without host locking.
package main

/*
#include <stddef.h>
#include <stdint.h>
#include <stdlib.h>
*/
import "C"
import (
	"unsafe"

	"tee-signer/keypair"
	"tee-signer/shared"
	"tee-signer/signer"

	"go.uber.org/zap"
)

const libraryVersion = "1.0.0"

var (
	logger  *shared.Logger
	service *signer.Service
)

// guard recovers from contract violations (invalid handles, driver faults) so
// they never unwind into the host. It must be deferred directly.
func guard(op string, fallback func()) {
	if r := recover(); r != nil {
		if logger != nil {
			logger.WithOperation(op).Critical("Panic recovered at C boundary",
				zap.Any("panic", r),
				zap.Stack("stack"))
		}
		if fallback != nil {
			fallback()
		}
	}
}

func toCString(s string) *C.char {
	return C.CString(s)
}

// payloadBytes views host memory for the duration of the call. The codec
// copies it before building the message.
func payloadBytes(ptr *C.uint8_t, n C.size_t) []byte {
	if ptr == nil || n == 0 {
		return []byte{}
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(ptr)), int(n))
}

//export tee_signer_generate_keypair
func tee_signer_generate_keypair() (handle C.uintptr_t) {
	defer guard("tee_signer_generate_keypair", func() { handle = 0 })
	return C.uintptr_t(service.CreateKeypair())
}

//export tee_signer_free_keypair
func tee_signer_free_keypair(handle C.uintptr_t) {
	defer guard("tee_signer_free_keypair", nil)
	service.DestroyKeypair(keypair.Handle(handle))
}

//export tee_signer_public_key_hex
func tee_signer_public_key_hex(handle C.uintptr_t) (result *C.char) {
	defer guard("tee_signer_public_key_hex", func() { result = toCString("") })
	return toCString(service.PublicKeyHex(keypair.Handle(handle)))
}

//export tee_signer_public_key_address
func tee_signer_public_key_address(handle C.uintptr_t) (result *C.char) {
	defer guard("tee_signer_public_key_address", func() { result = toCString("") })
	return toCString(service.PublicKeyAddress(keypair.Handle(handle)))
}

//export tee_signer_get_attestation
func tee_signer_get_attestation(handle C.uintptr_t) (result *C.char) {
	defer guard("tee_signer_get_attestation", func() { result = toCString("") })
	return toCString(service.RequestAttestation(keypair.Handle(handle)))
}

// tee_signer_sign_intent_json returns
// {"response":{"intent":N,"timestamp_ms":N,"data":"<base64>"},"signature":"<hex>"}
//
//export tee_signer_sign_intent_json
func tee_signer_sign_intent_json(handle C.uintptr_t, payload *C.uint8_t, payloadLen C.size_t, timestampMs C.uint64_t, intentCode C.uint8_t) (result *C.char) {
	defer guard("tee_signer_sign_intent_json", func() { result = toCString("") })
	return toCString(service.SignIntentStructured(
		keypair.Handle(handle),
		payloadBytes(payload, payloadLen),
		uint64(timestampMs),
		uint8(intentCode),
	))
}

// tee_signer_sign_intent_bcs returns
// {"intent_message_bcs":"<hex>","signature":"<hex>"}
//
//export tee_signer_sign_intent_bcs
func tee_signer_sign_intent_bcs(handle C.uintptr_t, payload *C.uint8_t, payloadLen C.size_t, timestampMs C.uint64_t, intentCode C.uint8_t) (result *C.char) {
	defer guard("tee_signer_sign_intent_bcs", func() { result = toCString("") })
	return toCString(service.SignIntentFlat(
		keypair.Handle(handle),
		payloadBytes(payload, payloadLen),
		uint64(timestampMs),
		uint8(intentCode),
	))
}

//export tee_signer_free_cstr
func tee_signer_free_cstr(str *C.char) {
	defer guard("tee_signer_free_cstr", nil)
	if str != nil {
		C.free(unsafe.Pointer(str))
	}
}

//export tee_signer_get_version
func tee_signer_get_version() (version *C.char) {
	defer guard("tee_signer_get_version", func() { version = toCString(libraryVersion + "-error") })
	return toCString(libraryVersion)
}

// tee_signer_set_log_callback takes a
// void (*)(const char* level, const char* message, const char* fields_json)
// or NULL to disable forwarding. The strings are only valid during the call.
//
//export tee_signer_set_log_callback
func tee_signer_set_log_callback(callback unsafe.Pointer) C.int {
	defer guard("tee_signer_set_log_callback", nil)
	flushed := setHostCallback(callback)
	if callback != nil && logger != nil {
		logger.Info("Host log callback registered", zap.Int("flushed_entries", flushed))
	}
	return 0
}

func main() {
	// Required for CGO shared library
}

func init() {
	cfg, err := shared.LoadConfig("libsigner")
	if err != nil {
		// Fall back to the plain environment; a bad .env must not stop the host
		cfg, err = shared.ConfigFromEnv("libsigner")
		if err != nil {
			cfg = &shared.Config{ServiceName: "libsigner", AttestationDriver: shared.DriverAuto}
		}
	}

	zapLogger, err := CreateLoggerWithHostCallback(cfg.ServiceName, cfg.Development, cfg.EnclaveMode)
	if err != nil {
		logger, err = shared.NewLoggerFromConfig(cfg)
		if err != nil {
			logger = shared.NopLogger()
		}
	} else {
		logger = shared.WrapLogger(zapLogger, shared.LoggerConfig{
			EnclaveMode: cfg.EnclaveMode,
			Development: cfg.Development,
		})
	}

	service = signer.NewFromConfig(cfg, logger)
}
