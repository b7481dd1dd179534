package domain

// Envelope carries everything needed to decrypt a single encrypted value.
//
// Each value is sealed with a fresh random data key, and the data key is
// wrapped under one of the configured master keys. KeyID names the master key
// that wrapped the data key, so ciphertext sealed under a previous master key
// stays readable after the active key changes.
type Envelope struct {
	// KeyID is the ID of the master key that wrapped the data key.
	KeyID string
	// Algorithm is the AEAD algorithm used for both the data key wrap and the payload.
	Algorithm Algorithm
	// WrappedKey is the data key encrypted under the master key.
	WrappedKey []byte
	// KeyNonce is the nonce used when wrapping the data key.
	KeyNonce []byte
	// Ciphertext is the payload encrypted under the data key (tag appended).
	Ciphertext []byte
	// Nonce is the nonce used when encrypting the payload.
	Nonce []byte
}
