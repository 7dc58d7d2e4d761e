// Package keyring implements the narrow cryptography contract the chain
// engine consumes: signing, verifying and fingerprinting Ed25519 key pairs,
// plus password-protected storage of a private key on disk. None of this is
// invoked by the chain/block/ledger packages themselves -- they only depend
// on the Verify function shape -- but a real worker needs somewhere to keep
// and use its signing key, so it lives here rather than being left purely
// abstract.
package keyring

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"goledger.dev/chainledger/internal/payload"
)

// KeyPair is an Ed25519 signing key pair.
type KeyPair struct {
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

// Generate creates a fresh random Ed25519 key pair.
func Generate() (KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, fmt.Errorf("keyring: generate: %w", err)
	}
	return KeyPair{Public: pub, Private: priv}, nil
}

// Fingerprint hashes a public key's raw byte encoding with SHA-256,
// matching the account identity used throughout the payload/chain model.
func Fingerprint(pub ed25519.PublicKey) payload.Fingerprint {
	return payload.Fingerprint(sha256.Sum256(pub))
}

// Sign produces a Signed envelope: the signature covers the deterministic
// encoding of p alone, never the signature itself.
func Sign(kp KeyPair, p payload.Payload) (payload.Signed, error) {
	bytes, err := p.MarshalBinary()
	if err != nil {
		return payload.Signed{}, fmt.Errorf("keyring: sign: %w", err)
	}
	raw := ed25519.Sign(kp.Private, bytes)
	var sig payload.Signature
	copy(sig[:], raw)
	return payload.NewSigned(sig, p), nil
}

// Verify reports whether s.Signature is a valid Ed25519 signature over
// s.Payload's deterministic encoding under pub.
func Verify(pub ed25519.PublicKey, s payload.Signed) bool {
	bytes, err := s.SignedBytes()
	if err != nil {
		return false
	}
	return ed25519.Verify(pub, bytes, s.Signature[:])
}
