package intent

import (
	"encoding/hex"
	"errors"
	"testing"

	"tee-signer/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScope(t *testing.T) {
	scope, known := ParseScope(0)
	assert.Equal(t, ProcessData, scope)
	assert.True(t, known)

	for _, code := range []uint8{1, 7, 127, 128, 255} {
		scope, known := ParseScope(code)
		assert.Equal(t, ProcessData, scope, "code %d", code)
		assert.False(t, known, "code %d", code)
	}

	assert.Equal(t, "ProcessData", ProcessData.String())
	assert.Equal(t, "Scope(9)", Scope(9).String())
}

func TestEncode(t *testing.T) {
	t.Run("Known vector", func(t *testing.T) {
		msg := NewMessage(ProcessData, 1700000000000, []byte("hello"))
		assert.Equal(t, "000068e5cf8b0100000568656c6c6f", hex.EncodeToString(Encode(msg)))
	})

	t.Run("Empty payload", func(t *testing.T) {
		msg := NewMessage(ProcessData, 0, []byte{})
		assert.Equal(t, "00000000000000000000", hex.EncodeToString(Encode(msg)))
	})

	t.Run("Multi-byte length prefix", func(t *testing.T) {
		msg := NewMessage(ProcessData, 1, make([]byte, 128))
		b := Encode(msg)
		require.Len(t, b, 1+8+2+128)
		assert.Equal(t, []byte{0x80, 0x01}, b[9:11])
	})

	t.Run("Deterministic", func(t *testing.T) {
		a := Encode(NewMessage(ProcessData, 42, []byte{1, 2, 3}))
		b := Encode(NewMessage(ProcessData, 42, []byte{1, 2, 3}))
		assert.Equal(t, a, b)
	})
}

func TestDecode(t *testing.T) {
	t.Run("Round trip", func(t *testing.T) {
		msg := NewMessage(ProcessData, 1700000000000, []byte("hello"))
		decoded, err := Decode(Encode(msg))
		require.NoError(t, err)
		assert.Equal(t, msg, decoded)
	})

	t.Run("Empty payload", func(t *testing.T) {
		decoded, err := Decode(Encode(NewMessage(ProcessData, 5, []byte{})))
		require.NoError(t, err)
		assert.Empty(t, decoded.Data)
		assert.NotNil(t, decoded.Data)
	})

	t.Run("Trailing bytes", func(t *testing.T) {
		b := append(Encode(NewMessage(ProcessData, 5, []byte("x"))), 0xff)
		_, err := Decode(b)
		assert.ErrorContains(t, err, "trailing")
	})

	t.Run("Truncated", func(t *testing.T) {
		b := Encode(NewMessage(ProcessData, 5, []byte("hello")))
		_, err := Decode(b[:len(b)-2])
		assert.Error(t, err)
	})

	t.Run("Unregistered scope", func(t *testing.T) {
		b := Encode(NewMessage(Scope(5), 5, []byte("x")))
		_, err := Decode(b)
		assert.True(t, errors.Is(err, shared.ErrUnknownIntent))
	})
}
