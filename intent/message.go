// Package intent builds, signs and verifies intent messages: purpose-tagged,
// timestamped envelopes whose BCS encoding is the exact byte string that gets
// signed.
package intent

import (
	"fmt"

	"tee-signer/shared"

	"github.com/fardream/go-bcs/bcs"
)

// Message is the signed envelope. Field order is the BCS field order.
type Message[T any] struct {
	Intent      Scope  `json:"intent"`
	TimestampMs uint64 `json:"timestamp_ms"` // caller clock, not server time
	Data        T      `json:"data"`
}

// NewMessage builds a message
func NewMessage[T any](scope Scope, timestampMs uint64, data T) Message[T] {
	return Message[T]{
		Intent:      scope,
		TimestampMs: timestampMs,
		Data:        data,
	}
}

// Encode returns the canonical BCS bytes of msg. Message has a fixed shape,
// so a failure here means a broken build and panics.
func Encode[T any](msg Message[T]) []byte {
	b, err := bcs.Marshal(msg)
	if err != nil {
		panic(fmt.Sprintf("intent: bcs encoding of %T failed: %v", msg, err))
	}
	return b
}

// Decode parses canonical bytes produced by Encode for a byte payload
func Decode(b []byte) (Message[[]byte], error) {
	var msg Message[[]byte]
	n, err := bcs.Unmarshal(b, &msg)
	if err != nil {
		return Message[[]byte]{}, fmt.Errorf("failed to decode intent message: %w", err)
	}
	if n != len(b) {
		return Message[[]byte]{}, fmt.Errorf("failed to decode intent message: %d trailing bytes", len(b)-n)
	}
	if !msg.Intent.Known() {
		return Message[[]byte]{}, fmt.Errorf("failed to decode intent message: %w: %s", shared.ErrUnknownIntent, msg.Intent)
	}
	if msg.Data == nil {
		msg.Data = []byte{}
	}
	return msg, nil
}
