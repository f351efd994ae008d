// Package crypto is the façade the rest of the engine uses for every
// cryptographic primitive: hashing, signing keys, key agreement, and
// authenticated encryption. Callers never see curve arithmetic or AEAD
// nonce handling directly — they see 32-byte and 64-byte values and a
// handful of verbs.
package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
)

// AuthorID is a 32-byte globally unique replica identifier (an Ed25519
// public key). AuthorIDs are totally ordered by lexicographic byte
// comparison; that order is the canonical CRDT tie-breaker.
type AuthorID [32]byte

// Less reports whether a precedes b under the canonical byte-lexical order.
func Less(a, b AuthorID) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// Hash is a 32-byte blake3 digest.
type Hash [32]byte

// Signature is a 64-byte Ed25519 signature.
type Signature [64]byte

// SharedSecret is a 32-byte X25519 Diffie-Hellman output.
type SharedSecret [32]byte

// ErrDecrypt is returned when an AEAD open fails authentication.
var ErrDecrypt = errors.New("crypto: authentication failed")

// HashBytes computes the blake3 hash of message with no domain separation.
// Callers that need domain-separated hashing (as oplog does for its Merkle
// tree) must prefix message themselves before calling this.
func HashBytes(message []byte) Hash {
	sum := blake3.Sum256(message)
	return Hash(sum)
}

// KeyPair is an Ed25519 signing key plus its corresponding public key and
// X25519 agreement key material derived from the same seed.
type KeyPair struct {
	Public  AuthorID
	private ed25519.PrivateKey
}

// Generate creates a new random KeyPair using the OS CSPRNG.
func Generate() (KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, fmt.Errorf("crypto: generate key: %w", err)
	}
	var kp KeyPair
	copy(kp.Public[:], pub)
	kp.private = priv
	return kp, nil
}

// Sign produces a 64-byte Ed25519 signature over message.
func (kp KeyPair) Sign(message []byte) Signature {
	sig := ed25519.Sign(kp.private, message)
	var out Signature
	copy(out[:], sig)
	return out
}

// Verify reports whether signature is a valid Ed25519 signature over
// message under pub. Never panics; a malformed signature or key simply
// fails verification.
func Verify(pub AuthorID, message []byte, signature Signature) bool {
	return ed25519.Verify(ed25519.PublicKey(pub[:]), message, signature[:])
}

// ECDH derives a shared secret between kp's private key and peer's public
// key via X25519, after converting both Ed25519 keys onto the birational
// Montgomery curve. Both sides of a conversation derive the same secret
// regardless of who calls ECDH.
func (kp KeyPair) ECDH(peer AuthorID) (SharedSecret, error) {
	scalar, err := ed25519PrivateToX25519(kp.private)
	if err != nil {
		return SharedSecret{}, err
	}
	peerX, err := ed25519PublicToX25519(peer)
	if err != nil {
		return SharedSecret{}, err
	}
	shared, err := curve25519.X25519(scalar, peerX)
	if err != nil {
		return SharedSecret{}, fmt.Errorf("crypto: ecdh: %w", err)
	}
	var out SharedSecret
	copy(out[:], shared)
	return out, nil
}

// Seal authenticated-encrypts message under the shared secret using
// XChaCha20-Poly1305, returning a random 24-byte nonce prepended to the
// ciphertext.
func (s SharedSecret) Seal(message []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s[:])
	if err != nil {
		return nil, fmt.Errorf("crypto: new aead: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("crypto: nonce: %w", err)
	}
	sealed := aead.Seal(nil, nonce, message, nil)
	return append(nonce, sealed...), nil
}

// Open authenticated-decrypts a payload produced by Seal. It returns
// ErrDecrypt, never a panic, when authentication fails or the key is wrong.
func (s SharedSecret) Open(payload []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s[:])
	if err != nil {
		return nil, fmt.Errorf("crypto: new aead: %w", err)
	}
	if len(payload) < aead.NonceSize() {
		return nil, ErrDecrypt
	}
	nonce, ciphertext := payload[:aead.NonceSize()], payload[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plain, nil
}
