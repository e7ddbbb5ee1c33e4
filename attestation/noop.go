package attestation

import (
	"crypto/rand"
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/hf/nsm/request"
	"github.com/hf/nsm/response"
)

// NoopModuleID marks documents produced by NoopDriver
const NoopModuleID = "noop"

// coseAlgES384 is the COSE algorithm id Nitro uses
const coseAlgES384 = -35

// NoopDriver produces unsigned, well-formed documents outside an enclave.
// They carry the requested public key, a random nonce and the current time,
// so consecutive documents differ the way hardware ones do. They never pass
// VerifyBinding.
type NoopDriver struct {
	Now  func() time.Time
	Rand io.Reader
}

// Open returns a session that answers attestation requests only
func (d *NoopDriver) Open() (Session, error) {
	return &noopSession{driver: d}, nil
}

type noopSession struct {
	driver *NoopDriver
	closed bool
}

func (s *noopSession) Send(req request.Request) (response.Response, error) {
	if s.closed {
		return response.Response{}, fmt.Errorf("noop session already closed")
	}

	att, ok := req.(*request.Attestation)
	if !ok {
		return response.Response{Error: response.ErrorCode("InvalidOperation")}, nil
	}

	doc, err := s.driver.document(att)
	if err != nil {
		return response.Response{Error: response.ErrorCode("InternalError")}, nil
	}
	return response.Response{Attestation: &response.Attestation{Document: doc}}, nil
}

func (s *noopSession) Close() error {
	s.closed = true
	return nil
}

func (d *NoopDriver) document(att *request.Attestation) ([]byte, error) {
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	r := d.Rand
	if r == nil {
		r = rand.Reader
	}

	nonce := att.Nonce
	if nonce == nil {
		nonce = make([]byte, 16)
		if _, err := io.ReadFull(r, nonce); err != nil {
			return nil, err
		}
	}

	pcrs := make(map[uint][]byte, 3)
	for i := uint(0); i < 3; i++ {
		pcrs[i] = make([]byte, 48)
	}

	payload, err := cbor.Marshal(Document{
		ModuleID:  NoopModuleID,
		Timestamp: uint64(now().UnixMilli()),
		Digest:    "SHA384",
		PCRs:      pcrs,
		CABundle:  [][]byte{},
		PublicKey: att.PublicKey,
		UserData:  att.UserData,
		Nonce:     nonce,
	})
	if err != nil {
		return nil, err
	}

	protected, err := cbor.Marshal(map[int]int{1: coseAlgES384})
	if err != nil {
		return nil, err
	}

	return cbor.Marshal(coseSign1{
		Protected:   protected,
		Unprotected: cbor.RawMessage{0xa0}, // empty map
		Payload:     payload,
		Signature:   []byte{},
	})
}
