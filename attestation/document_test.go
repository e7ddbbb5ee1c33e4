package attestation

import (
	"errors"
	"testing"

	"tee-signer/shared"

	"github.com/fxamacker/cbor/v2"
	"github.com/hf/nsm/request"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopDocument(t *testing.T, pub []byte) []byte {
	sess, err := (&NoopDriver{}).Open()
	require.NoError(t, err)
	defer sess.Close()

	res, err := sess.Send(&request.Attestation{PublicKey: pub, UserData: []byte("app")})
	require.NoError(t, err)
	require.NotNil(t, res.Attestation)
	return res.Attestation.Document
}

func TestParseDocument(t *testing.T) {
	pub := testPublicKey(t)
	raw := noopDocument(t, pub)

	t.Run("Untagged", func(t *testing.T) {
		doc, err := ParseDocument(raw)
		require.NoError(t, err)
		assert.Equal(t, []byte(pub), doc.PublicKey)
		assert.Equal(t, []byte("app"), doc.UserData)
		assert.Len(t, doc.Nonce, 16)
		assert.Equal(t, "SHA384", doc.Digest)
		assert.False(t, doc.IssuedAt().IsZero())
	})

	t.Run("Tagged", func(t *testing.T) {
		doc, err := ParseDocument(append([]byte{coseSign1Tag}, raw...))
		require.NoError(t, err)
		assert.Equal(t, []byte(pub), doc.PublicKey)
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := ParseDocument(nil)
		assert.Error(t, err)
	})

	t.Run("Not COSE", func(t *testing.T) {
		_, err := ParseDocument([]byte("not an attestation document"))
		assert.Error(t, err)
	})

	t.Run("Empty payload", func(t *testing.T) {
		b, err := cbor.Marshal(coseSign1{Protected: []byte{0xa0}, Unprotected: cbor.RawMessage{0xa0}, Signature: []byte{}})
		require.NoError(t, err)
		_, err = ParseDocument(b)
		assert.ErrorContains(t, err, "no payload")
	})
}

func TestCheckBinding(t *testing.T) {
	pub := testPublicKey(t)
	other := testPublicKey(t)
	raw := noopDocument(t, pub)

	_, err := CheckBinding(raw, pub)
	assert.NoError(t, err)

	_, err = CheckBinding(raw, other)
	assert.True(t, errors.Is(err, shared.ErrKeyMismatch))

	_, err = CheckBinding(noopDocument(t, nil), pub)
	assert.True(t, errors.Is(err, shared.ErrKeyMismatch))
}

func TestVerifyBindingRejectsUnsignedDocuments(t *testing.T) {
	pub := testPublicKey(t)

	_, err := VerifyBinding(noopDocument(t, pub), pub)
	assert.Error(t, err)

	_, err = VerifyBinding([]byte{0x01, 0x02}, pub)
	assert.Error(t, err)
}
