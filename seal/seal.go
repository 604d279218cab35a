// This file is part of ratnet, a decentralised overlay router.
//
// SPDX-License-Identifier: AGPL3.0-or-later

// Package seal is the external cryptographic primitive the router's
// opaque `sign` field is produced and consumed by. Nothing in the
// routing, collection or IPC packages imports this package: it exists
// so test helpers and client tooling have a concrete, real
// implementation to exercise rather than leaving the primitive
// interface unfulfilled. It builds on the NaCl constructions from
// golang.org/x/crypto: simple, authenticated, and a close match for
// the "nonce + ciphertext envelope" shape callers need.
package seal

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/nacl/box"
	"golang.org/x/crypto/nacl/secretbox"
)

// NonceSize is the width of both the secretbox and box nonce.
const NonceSize = 24

// SymmetricSeal encrypts plaintext under a shared 32-byte key, returning
// a freshly generated nonce alongside the ciphertext.
func SymmetricSeal(key [32]byte, plaintext []byte) (nonce [NonceSize]byte, ciphertext []byte, err error) {
	if _, err = rand.Read(nonce[:]); err != nil {
		return nonce, nil, fmt.Errorf("seal: nonce generation failed: %w", err)
	}
	ciphertext = secretbox.Seal(nil, plaintext, &nonce, &key)
	return nonce, ciphertext, nil
}

// SymmetricOpen reverses SymmetricSeal, failing if the ciphertext was
// tampered with or the key/nonce do not match.
func SymmetricOpen(key [32]byte, nonce [NonceSize]byte, ciphertext []byte) ([]byte, error) {
	plaintext, ok := secretbox.Open(nil, ciphertext, &nonce, &key)
	if !ok {
		return nil, fmt.Errorf("seal: symmetric open failed: authentication mismatch")
	}
	return plaintext, nil
}

// BoxSeal encrypts plaintext from ourPriv to peerPub, returning a
// freshly generated nonce alongside the ciphertext.
func BoxSeal(peerPub, ourPriv *[32]byte, plaintext []byte) (nonce [NonceSize]byte, ciphertext []byte, err error) {
	if _, err = rand.Read(nonce[:]); err != nil {
		return nonce, nil, fmt.Errorf("seal: nonce generation failed: %w", err)
	}
	ciphertext = box.Seal(nil, plaintext, &nonce, peerPub, ourPriv)
	return nonce, ciphertext, nil
}

// BoxOpen reverses BoxSeal.
func BoxOpen(peerPub, ourPriv *[32]byte, nonce [NonceSize]byte, ciphertext []byte) ([]byte, error) {
	plaintext, ok := box.Open(nil, ciphertext, &nonce, peerPub, ourPriv)
	if !ok {
		return nil, fmt.Errorf("seal: box open failed: authentication mismatch")
	}
	return plaintext, nil
}

// GenerateKeyPair creates a new NaCl box key pair for a node's long-term
// signing identity.
func GenerateKeyPair() (pub, priv *[32]byte, err error) {
	pub, priv, err = box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("seal: key generation failed: %w", err)
	}
	return pub, priv, nil
}
