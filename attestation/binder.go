package attestation

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"

	"tee-signer/shared"

	"github.com/hf/nsm/request"
	"go.uber.org/zap"
)

// Binder asks the driver for documents that embed a public key as the
// attested public_key field
type Binder struct {
	driver Driver
	retry  *shared.RetryConfig
	logger *shared.Logger
}

// BinderOption configures a Binder
type BinderOption func(*Binder)

// WithRetry sets the retry policy for opening device sessions. Only
// transient device errors are retried.
func WithRetry(cfg *shared.RetryConfig) BinderOption {
	return func(b *Binder) {
		if cfg != nil {
			b.retry = cfg
		}
	}
}

// NewBinder creates a binder over driver
func NewBinder(driver Driver, logger *shared.Logger, opts ...BinderOption) *Binder {
	if logger == nil {
		logger = shared.NopLogger()
	}
	b := &Binder{
		driver: driver,
		retry:  shared.NoRetry(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Binder) open() (Session, error) {
	var sess Session
	attempt := 0
	err := shared.RetryWithBackoff(b.retry, func() error {
		attempt++
		var err error
		sess, err = b.driver.Open()
		if err != nil && shared.IsTransient(err) {
			b.logger.Warn("Attestation device busy", zap.Int("attempt", attempt), zap.Error(err))
		}
		return err
	})
	return sess, err
}

// Attest returns a fresh document committing to pub. Nothing is cached; every
// call is a round trip to the device.
func (b *Binder) Attest(pub ed25519.PublicKey) ([]byte, error) {
	sess, err := b.open()
	if err != nil {
		return nil, shared.NewAttestationError("open", err)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			b.logger.Error("Failed to close attestation session", zap.Error(err))
		}
	}()

	res, err := sess.Send(&request.Attestation{PublicKey: pub})
	if err != nil {
		return nil, shared.NewAttestationError("send", err)
	}
	if res.Error != "" {
		return nil, shared.NewAttestationError("response", errors.New(string(res.Error)))
	}
	if res.Attestation == nil || res.Attestation.Document == nil {
		return nil, shared.NewAttestationError("response", errors.New("attestation response missing attestation document"))
	}
	return res.Attestation.Document, nil
}

// AttestHex returns the hex document, or "" when the device is unavailable
// or answers with anything but a document
func (b *Binder) AttestHex(pub ed25519.PublicKey) string {
	doc, err := b.Attest(pub)
	if err != nil {
		b.logger.Error("Attestation unavailable", zap.Error(err))
		return ""
	}
	b.logger.InfoIf("Attestation document issued", zap.Int("document_len", len(doc)))
	return hex.EncodeToString(doc)
}
