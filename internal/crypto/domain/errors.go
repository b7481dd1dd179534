package domain

import (
	"github.com/shieldops/secrets/internal/errors"
)

// Cryptographic operation error definitions.
var (
	// ErrUnsupportedAlgorithm indicates the requested encryption algorithm is not supported.
	ErrUnsupportedAlgorithm = errors.Wrap(errors.ErrInvalidInput, "unsupported algorithm")

	// ErrInvalidKeySize indicates the cryptographic key size is invalid.
	// All keys must be exactly 32 bytes (256 bits).
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrDecryptionFailed indicates a decryption operation failed: wrong key,
	// tampered ciphertext, invalid nonce, or corrupted data. The specific cause
	// is not disclosed to prevent information leakage.
	ErrDecryptionFailed = errors.Wrap(errors.ErrInvalidInput, "decryption failed")

	// ErrMasterKeyNotFound indicates the master key referenced by an envelope
	// is not present in the configured key chain.
	ErrMasterKeyNotFound = errors.Wrap(errors.ErrInvalidInput, "master key not found")

	// Master key chain loading errors.
	ErrMasterKeysNotSet        = errors.New("MASTER_KEYS environment variable is not set")
	ErrActiveMasterKeyIDNotSet = errors.New("ACTIVE_MASTER_KEY_ID environment variable is not set")
	ErrInvalidMasterKeysFormat = errors.New("invalid MASTER_KEYS format, expected \"id:base64key\" entries")
	ErrInvalidMasterKeyBase64  = errors.New("invalid base64 in MASTER_KEYS entry")
	ErrActiveMasterKeyNotFound = errors.New("active master key not present in MASTER_KEYS")
)
