// Package signer exposes the boundary operations of the attested signer as
// plain Go calls. Every method returns a value, never an error: failures
// become the empty string or the null handle, matching what the C library
// hands back to its host.
package signer

import (
	"io"

	"tee-signer/attestation"
	"tee-signer/intent"
	"tee-signer/keypair"
	"tee-signer/shared"

	"go.uber.org/zap"
)

// Options configures a Service
type Options struct {
	Rand         io.Reader          // nil means crypto/rand
	Driver       attestation.Driver // nil means NoopDriver
	Logger       *shared.Logger
	StrictIntent bool

	// Retry bounds NSM session opens; nil means a single attempt
	Retry *shared.RetryConfig
}

// Service holds the handle registry, intent codec and attestation binder
type Service struct {
	keys   *keypair.Registry
	codec  *intent.Codec
	binder *attestation.Binder
	logger *shared.Logger
}

// New creates a service
func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NopLogger()
	}
	driver := opts.Driver
	if driver == nil {
		driver = &attestation.NoopDriver{}
	}

	return &Service{
		keys:   keypair.NewRegistry(keypair.NewGenerator(opts.Rand), logger),
		codec:  intent.NewCodec(intent.WithStrictScopes(opts.StrictIntent), intent.WithLogger(logger)),
		binder: attestation.NewBinder(driver, logger, attestation.WithRetry(opts.Retry)),
		logger: logger,
	}
}

// NewFromConfig creates a service wired to the configured attestation driver
func NewFromConfig(cfg *shared.Config, logger *shared.Logger) *Service {
	var driver attestation.Driver = &attestation.NoopDriver{}
	if cfg.UseNSM() {
		driver = attestation.NSMDriver{}
	}
	if logger != nil {
		logger.InfoIf("Signer configured",
			zap.Bool("nsm", cfg.UseNSM()),
			zap.Bool("strict_intent", cfg.StrictIntent),
			zap.Int("attestation_retries", cfg.AttestationRetries))
	}
	retry := shared.DefaultRetryConfig()
	retry.MaxAttempts = cfg.AttestationRetries
	return New(Options{
		Driver:       driver,
		Logger:       logger,
		StrictIntent: cfg.StrictIntent,
		Retry:        retry,
	})
}

// CreateKeypair generates a keypair and returns its handle, or NullHandle if
// the randomness source fails
func (s *Service) CreateKeypair() keypair.Handle {
	h, err := s.keys.Create()
	if err != nil {
		s.logger.Critical("Failed to create keypair", zap.Error(err))
		return keypair.NullHandle
	}
	return h
}

// DestroyKeypair wipes the keypair. NullHandle is a no-op; any other handle
// must be destroyed exactly once.
func (s *Service) DestroyKeypair(h keypair.Handle) {
	s.keys.Destroy(h)
}

// PublicKeyHex returns the 64-character hex public key of a live handle
func (s *Service) PublicKeyHex(h keypair.Handle) string {
	return s.keys.Resolve(h).PublicKeyHex()
}

// PublicKeyAddress returns the on-chain address of a live handle's key
func (s *Service) PublicKeyAddress(h keypair.Handle) string {
	return s.keys.Resolve(h).Address()
}

// RequestAttestation returns a hex attestation document bound to the
// handle's public key, or "" if the device cannot produce one
func (s *Service) RequestAttestation(h keypair.Handle) string {
	kp := s.keys.Resolve(h)
	return s.binder.AttestHex(kp.PublicKey())
}

// SignIntentStructured returns the structured envelope as JSON, or "" when
// the intent code is rejected in strict mode
func (s *Service) SignIntentStructured(h keypair.Handle, payload []byte, timestampMs uint64, code uint8) string {
	kp := s.keys.Resolve(h)
	resp, err := s.codec.SignStructured(kp, payload, timestampMs, code)
	if err != nil {
		s.logger.WithHandle(kp.ID()).Error("Intent signing rejected", zap.Error(err))
		return ""
	}
	return intent.MarshalString(resp)
}

// SignIntentFlat returns the flat envelope as JSON, or "" when the intent
// code is rejected in strict mode
func (s *Service) SignIntentFlat(h keypair.Handle, payload []byte, timestampMs uint64, code uint8) string {
	kp := s.keys.Resolve(h)
	resp, err := s.codec.SignFlat(kp, payload, timestampMs, code)
	if err != nil {
		s.logger.WithHandle(kp.ID()).Error("Intent signing rejected", zap.Error(err))
		return ""
	}
	return intent.MarshalString(resp)
}

// LiveHandles returns the number of handles not yet destroyed
func (s *Service) LiveHandles() int {
	return s.keys.Len()
}

// Logger returns the service logger
func (s *Service) Logger() *shared.Logger {
	return s.logger
}
