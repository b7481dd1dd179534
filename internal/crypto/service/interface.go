// Package service provides cryptographic services for envelope encryption.
// Implements AEAD ciphers (AES-256-GCM, ChaCha20-Poly1305) and the envelope
// engine that seals secret values under the master key chain.
package service

import (
	cryptoDomain "github.com/shieldops/secrets/internal/crypto/domain"
)

// AEAD defines the interface for Authenticated Encryption with Associated Data.
type AEAD interface {
	// Encrypt encrypts plaintext with optional AAD and returns ciphertext and nonce.
	Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error)

	// Decrypt decrypts ciphertext using the provided nonce and AAD.
	Decrypt(ciphertext, nonce, aad []byte) ([]byte, error)
}

// AEADManager defines the interface for creating AEAD cipher instances.
type AEADManager interface {
	// CreateCipher creates an AEAD cipher instance for the specified algorithm.
	CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error)
}

// Engine seals and opens secret values using envelope encryption.
//
// Encrypt always seals under the active master key; Decrypt resolves the
// master key named in the envelope, so values sealed under previous keys stay
// readable after rotation. A tampered envelope or an unavailable key version
// yields ErrDecryptionFailed or ErrMasterKeyNotFound, never garbled plaintext.
type Engine interface {
	// Encrypt seals plaintext under a fresh data key wrapped by the active master key.
	Encrypt(plaintext []byte) (cryptoDomain.Envelope, error)

	// Decrypt opens an envelope previously produced by Encrypt.
	Decrypt(env cryptoDomain.Envelope) ([]byte, error)
}
