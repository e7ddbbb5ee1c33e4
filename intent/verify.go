package intent

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"tee-signer/shared"
)

func verifySignature(pub ed25519.PublicKey, canonical []byte, sigHex string) error {
	if len(pub) != ed25519.PublicKeySize {
		return shared.NewIntentError(fmt.Sprintf("public key must be %d bytes, got %d", ed25519.PublicKeySize, len(pub)), nil)
	}
	sig, err := shared.DecodeHex(sigHex)
	if err != nil {
		return shared.NewIntentError("signature is not hex", err)
	}
	if !ed25519.Verify(pub, canonical, sig) {
		return shared.NewIntentError("signature does not match message", shared.ErrInvalidSignature)
	}
	return nil
}

// VerifyMessage re-encodes the structured message and checks the signature
// against it
func VerifyMessage[T any](pub ed25519.PublicKey, resp *SignedResponse[T]) error {
	return verifySignature(pub, Encode(resp.Response), resp.Signature)
}

// VerifyFlat checks the signature over the relayed bytes and returns the
// decoded message
func VerifyFlat(pub ed25519.PublicKey, resp *SignedBCSResponse) (Message[[]byte], error) {
	canonical, err := shared.DecodeHex(resp.IntentMessageBCS)
	if err != nil {
		return Message[[]byte]{}, shared.NewIntentError("intent_message_bcs is not hex", err)
	}
	if err := verifySignature(pub, canonical, resp.Signature); err != nil {
		return Message[[]byte]{}, err
	}
	msg, err := Decode(canonical)
	if err != nil {
		return Message[[]byte]{}, shared.NewIntentError("signed bytes are not an intent message", err)
	}
	// Non-minimal length prefixes decode to the same message; only the canonical form is accepted
	if !bytes.Equal(Encode(msg), canonical) {
		return Message[[]byte]{}, shared.NewIntentError("signed bytes are not canonical", nil)
	}
	return msg, nil
}
