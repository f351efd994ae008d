package crypto

import (
	"crypto/ed25519"
	"crypto/sha512"
	"fmt"

	"filippo.io/edwards25519"
)

// ed25519PrivateToX25519 converts an Ed25519 signing key to the X25519
// scalar used for Diffie-Hellman, following the standard birational map:
// hash the 32-byte seed with SHA-512 and clamp the low half exactly as
// X25519 key generation does. This is the same derivation ed25519-dalek's
// to_scalar_bytes performs.
func ed25519PrivateToX25519(priv ed25519.PrivateKey) ([]byte, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("crypto: malformed ed25519 private key")
	}
	seed := priv.Seed()
	digest := sha512.Sum512(seed)
	scalar := make([]byte, 32)
	copy(scalar, digest[:32])
	scalar[0] &= 248
	scalar[31] &= 127
	scalar[31] |= 64
	return scalar, nil
}

// ed25519PublicToX25519 converts an Ed25519 public key to its X25519
// Montgomery u-coordinate via the birational equivalence between the
// Edwards and Montgomery forms of Curve25519.
func ed25519PublicToX25519(pub AuthorID) ([]byte, error) {
	point, err := new(edwards25519.Point).SetBytes(pub[:])
	if err != nil {
		return nil, fmt.Errorf("crypto: invalid public key: %w", err)
	}
	return point.BytesMontgomery(), nil
}
