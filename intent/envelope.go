package intent

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"tee-signer/shared"

	"go.uber.org/zap"
)

// Signer signs canonical message bytes. *keypair.KeyPair satisfies it.
type Signer interface {
	Sign(msg []byte) []byte
}

// SignedResponse is the structured envelope: the message as JSON plus a hex
// signature over its BCS encoding.
type SignedResponse[T any] struct {
	Response  Message[T] `json:"response"`
	Signature string     `json:"signature"`
}

// SignedBCSResponse is the flat envelope: the exact signed bytes and the
// signature, both hex, for verifiers that check raw bytes.
type SignedBCSResponse struct {
	IntentMessageBCS string `json:"intent_message_bcs"`
	Signature        string `json:"signature"`
}

// SignMessage signs an arbitrary typed message
func SignMessage[T any](s Signer, msg Message[T]) *SignedResponse[T] {
	sig := s.Sign(Encode(msg))
	return &SignedResponse[T]{
		Response:  msg,
		Signature: hex.EncodeToString(sig),
	}
}

// Codec signs byte payloads on behalf of the boundary operations
type Codec struct {
	strict bool
	logger *shared.Logger
}

// Option configures a Codec
type Option func(*Codec)

// WithStrictScopes rejects unknown intent codes instead of coercing them
func WithStrictScopes(strict bool) Option {
	return func(c *Codec) {
		c.strict = strict
	}
}

// WithLogger sets the codec logger
func WithLogger(logger *shared.Logger) Option {
	return func(c *Codec) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCodec creates a codec
func NewCodec(opts ...Option) *Codec {
	c := &Codec{logger: shared.NopLogger()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type signedMessage struct {
	msg       Message[[]byte]
	canonical []byte
	signature []byte
}

// sign runs the steps shared by both envelope forms, so both always sign the
// same canonical bytes
func (c *Codec) sign(s Signer, payload []byte, timestampMs uint64, code uint8) (*signedMessage, error) {
	scope, known := ParseScope(code)
	if !known {
		if c.strict {
			return nil, shared.NewIntentError(fmt.Sprintf("intent code %d is not registered", code), shared.ErrUnknownIntent)
		}
		c.logger.Security("Unknown intent code coerced to default scope",
			zap.Uint8("intent_code", code),
			zap.Stringer("scope", scope))
	}

	data := make([]byte, len(payload))
	copy(data, payload)

	msg := NewMessage(scope, timestampMs, data)
	canonical := Encode(msg)

	c.logger.DebugIf("Signing intent message",
		zap.Stringer("scope", scope),
		zap.Uint64("timestamp_ms", timestampMs),
		zap.Int("payload_len", len(data)),
		zap.Int("bcs_len", len(canonical)))

	return &signedMessage{
		msg:       msg,
		canonical: canonical,
		signature: s.Sign(canonical),
	}, nil
}

// SignStructured signs payload and returns the structured envelope
func (c *Codec) SignStructured(s Signer, payload []byte, timestampMs uint64, code uint8) (*SignedResponse[[]byte], error) {
	sm, err := c.sign(s, payload, timestampMs, code)
	if err != nil {
		return nil, err
	}
	return &SignedResponse[[]byte]{
		Response:  sm.msg,
		Signature: hex.EncodeToString(sm.signature),
	}, nil
}

// SignFlat signs payload and returns the flat envelope
func (c *Codec) SignFlat(s Signer, payload []byte, timestampMs uint64, code uint8) (*SignedBCSResponse, error) {
	sm, err := c.sign(s, payload, timestampMs, code)
	if err != nil {
		return nil, err
	}
	return &SignedBCSResponse{
		IntentMessageBCS: hex.EncodeToString(sm.canonical),
		Signature:        hex.EncodeToString(sm.signature),
	}, nil
}

// MarshalString renders an envelope as compact JSON. The envelope types only
// hold strings, integers and byte slices, so marshalling cannot fail.
func MarshalString(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("intent: json encoding of %T failed: %v", v, err))
	}
	return string(b)
}
