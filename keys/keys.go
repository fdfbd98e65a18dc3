// go-keyboot - Permissioned network key bootstrapping
// Copyright (c) 2020 Péter Szilágyi. All rights reserved.

// Package keys implements the cryptographic primitives of a node: an Ed25519
// signing keypair and an X25519 encryption keypair derived from the same seed.
package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/sha3"
)

// ErrInvalidSeed is returned if a seed is neither 32 raw bytes nor 64 hex chars.
var ErrInvalidSeed = errors.New("invalid seed")

// SigningKey is the secret Ed25519 seed of a node. Everything else is derived
// from it.
type SigningKey []byte

// VerifyKey is the public half of a node's Ed25519 signing keypair, used by the
// peers to verify message signatures.
type VerifyKey []byte

// SecretKey is the secret X25519 scalar of a node, used in secure channel
// establishment.
type SecretKey []byte

// PublicKey is the public half of a node's X25519 encryption keypair.
type PublicKey []byte

// Fingerprint is a short, universally unique identifier for a public value.
type Fingerprint string

// GenerateSigningKey creates a signing key from the given seed. If the seed is
// nil, a new random one is generated.
func GenerateSigningKey(seed []byte) (SigningKey, error) {
	if seed == nil {
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, err
		}
		return SigningKey(priv.Seed()), nil
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("%w: %d bytes, want %d", ErrInvalidSeed, len(seed), ed25519.SeedSize)
	}
	return SigningKey(append([]byte{}, seed...)), nil
}

// ParseSeed converts a user supplied seed into raw bytes. Both the raw 32 char
// form and the 64 char hex form are accepted.
func ParseSeed(seed string) ([]byte, error) {
	switch len(seed) {
	case ed25519.SeedSize:
		return []byte(seed), nil
	case 2 * ed25519.SeedSize:
		blob, err := hex.DecodeString(seed)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
		}
		return blob, nil
	default:
		return nil, fmt.Errorf("%w: length %d", ErrInvalidSeed, len(seed))
	}
}

// Verify returns the public verification key belonging to a signing key.
func (key SigningKey) Verify() VerifyKey {
	return VerifyKey(ed25519.NewKeyFromSeed(key).Public().(ed25519.PublicKey))
}

// Sign signs a message with the full Ed25519 private key.
func (key SigningKey) Sign(msg []byte) []byte {
	return ed25519.Sign(ed25519.NewKeyFromSeed(key), msg)
}

// Secret derives the X25519 secret key from the signing seed. It is the same
// conversion libsodium does for Ed25519 secrets.
func (key SigningKey) Secret() SecretKey {
	hash := sha512.Sum512(key)

	secret := make([]byte, curve25519.ScalarSize)
	copy(secret, hash[:curve25519.ScalarSize])

	secret[0] &= 248
	secret[31] &= 127
	secret[31] |= 64

	return SecretKey(secret)
}

// Public returns the X25519 public key belonging to a secret key.
func (key SecretKey) Public() (PublicKey, error) {
	pub, err := curve25519.X25519(key, curve25519.Basepoint)
	if err != nil {
		return nil, err
	}
	return PublicKey(pub), nil
}

// Valid checks whether a signature was made by the owner of the key.
func (key VerifyKey) Valid(msg []byte, sig []byte) bool {
	if len(key) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(key), msg, sig)
}

// String implements fmt.Stringer, hex encoding the key.
func (key VerifyKey) String() string { return hex.EncodeToString(key) }

// String implements fmt.Stringer, hex encoding the key.
func (key PublicKey) String() string { return hex.EncodeToString(key) }

// Fingerprint returns a short identifier of a verification key.
//
// Note, this method is heavy. Cache it.
func (key VerifyKey) Fingerprint() Fingerprint { return fingerprint(key) }

// Fingerprint returns a short identifier of a public key.
//
// Note, this method is heavy. Cache it.
func (key PublicKey) Fingerprint() Fingerprint { return fingerprint(key) }

func fingerprint(blob []byte) Fingerprint {
	hash := sha3.Sum256(blob)
	return Fingerprint(base64.RawURLEncoding.EncodeToString(hash[:12]))
}

// ParseVerifyKey decodes a hex verification key.
func ParseVerifyKey(s string) (VerifyKey, error) {
	blob, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(blob) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("invalid verification key length: %d", len(blob))
	}
	return VerifyKey(blob), nil
}

// ParsePublicKey decodes a hex public key.
func ParsePublicKey(s string) (PublicKey, error) {
	blob, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(blob) != curve25519.PointSize {
		return nil, fmt.Errorf("invalid public key length: %d", len(blob))
	}
	return PublicKey(blob), nil
}
