package attestation

import (
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// coseSign1Tag is the optional CBOR tag (18) in front of a COSE_Sign1 array
const coseSign1Tag = 0xd2

// Document is the payload of a Nitro attestation document. See page 70 of
// https://docs.aws.amazon.com/pdfs/enclaves/latest/user/enclaves-user.pdf
type Document struct {
	ModuleID    string          `cbor:"module_id" json:"module_id"`
	Timestamp   uint64          `cbor:"timestamp" json:"timestamp"`
	Digest      string          `cbor:"digest" json:"digest"`
	PCRs        map[uint][]byte `cbor:"pcrs" json:"pcrs"`
	Certificate []byte          `cbor:"certificate" json:"certificate"`
	CABundle    [][]byte        `cbor:"cabundle" json:"cabundle"`
	PublicKey   []byte          `cbor:"public_key" json:"public_key,omitempty"`
	UserData    []byte          `cbor:"user_data" json:"user_data,omitempty"`
	Nonce       []byte          `cbor:"nonce" json:"nonce,omitempty"`
}

type coseSign1 struct {
	_           struct{} `cbor:",toarray"`
	Protected   []byte
	Unprotected cbor.RawMessage
	Payload     []byte
	Signature   []byte
}

// ParseDocument decodes the COSE_Sign1 envelope and its payload. It does not
// check the signature or the certificate chain; use VerifyBinding for that.
func ParseDocument(raw []byte) (*Document, error) {
	if len(raw) == 0 {
		return nil, errors.New("empty attestation document")
	}
	if raw[0] == coseSign1Tag {
		raw = raw[1:]
	}

	var envelope coseSign1
	if err := cbor.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode COSE_Sign1 envelope: %w", err)
	}
	if len(envelope.Payload) == 0 {
		return nil, errors.New("attestation document has no payload")
	}

	var doc Document
	if err := cbor.Unmarshal(envelope.Payload, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode attestation payload: %w", err)
	}
	return &doc, nil
}

// IssuedAt returns the document timestamp
func (d *Document) IssuedAt() time.Time {
	return time.UnixMilli(int64(d.Timestamp))
}
