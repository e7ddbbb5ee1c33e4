package attestation

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"tee-signer/shared"

	"github.com/anjuna-security/go-nitro-attestation/verifier"
)

// VerifyBinding validates the document signature and certificate chain
// against the AWS Nitro root, then checks that it attests pub
func VerifyBinding(raw []byte, pub ed25519.PublicKey) (*Document, error) {
	sr, err := verifier.NewSignedAttestationReport(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse nitro attestation document: %w", err)
	}
	if err := verifier.Validate(sr, nil); err != nil {
		return nil, fmt.Errorf("nitro attestation validation failed: %w", err)
	}
	return CheckBinding(raw, pub)
}

// CheckBinding decodes the document and checks that its public_key field is
// pub, byte for byte. It performs no signature validation.
func CheckBinding(raw []byte, pub ed25519.PublicKey) (*Document, error) {
	doc, err := ParseDocument(raw)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(doc.PublicKey, pub) {
		return nil, fmt.Errorf("%w: document has %x, expected %x", shared.ErrKeyMismatch, doc.PublicKey, []byte(pub))
	}
	return doc, nil
}
