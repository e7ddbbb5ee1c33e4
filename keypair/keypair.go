// Package keypair owns the ephemeral Ed25519 keys held by the signer and the
// opaque handles that let a host process refer to them.
package keypair

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// PublicKeySize is the size of an exported public key in bytes
const PublicKeySize = ed25519.PublicKeySize

// ed25519Flag is the signature scheme flag prefixed to the public key when
// deriving an on-chain address
const ed25519Flag byte = 0x00

// KeyPair is one ephemeral signing key. It lives only in process memory and is
// wiped by Destroy.
type KeyPair struct {
	id      uuid.UUID
	private ed25519.PrivateKey
	public  ed25519.PublicKey
}

// Generator creates keypairs from an injected randomness source
type Generator struct {
	rand io.Reader
}

// NewGenerator returns a generator reading from r, or from crypto/rand when r is nil
func NewGenerator(r io.Reader) *Generator {
	if r == nil {
		r = rand.Reader
	}
	return &Generator{rand: r}
}

// Generate creates a fresh keypair
func (g *Generator) Generate() (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(g.rand)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key: %w", err)
	}
	return &KeyPair{
		id:      uuid.New(),
		private: priv,
		public:  pub,
	}, nil
}

// ID is a random correlation id for logs. It is unrelated to the key bytes.
func (k *KeyPair) ID() string {
	return k.id.String()
}

// PublicKey returns a copy of the public key
func (k *KeyPair) PublicKey() ed25519.PublicKey {
	pub := make(ed25519.PublicKey, len(k.public))
	copy(pub, k.public)
	return pub
}

// PublicKeyHex returns the public key as 64 lowercase hex characters
func (k *KeyPair) PublicKeyHex() string {
	return hex.EncodeToString(k.public)
}

// Address returns the 0x-prefixed blake2b-256 digest of flag || public key,
// the form Sui uses to identify an Ed25519 account.
func (k *KeyPair) Address() string {
	buf := make([]byte, 0, 1+len(k.public))
	buf = append(buf, ed25519Flag)
	buf = append(buf, k.public...)
	sum := blake2b.Sum256(buf)
	return "0x" + hex.EncodeToString(sum[:])
}

// Sign signs msg with the private key. Ed25519 is deterministic, so equal
// messages always produce equal signatures.
func (k *KeyPair) Sign(msg []byte) []byte {
	return ed25519.Sign(k.private, msg)
}

// Destroy zeroes the key material. The KeyPair must not be used afterwards.
func (k *KeyPair) Destroy() {
	clear(k.private)
	clear(k.public)
	k.private = nil
	k.public = nil
}
