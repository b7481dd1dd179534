// Package domain defines the core cryptographic domain models for envelope encryption.
//
// It implements a two-tier key hierarchy: Master Key → Data Key → Data. Each
// encrypted value gets a fresh data key wrapped under the active master key,
// enabling master key rotation without re-encrypting stored values. Supports
// AESGCM and ChaCha20 algorithms with 256-bit keys.
package domain

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// MasterKey represents a cryptographic master key used to wrap data keys.
//
// Master keys are the root of the envelope encryption hierarchy. They are
// loaded from the environment, either as plaintext base64 (development) or as
// KMS-wrapped ciphertext unwrapped at startup (production).
type MasterKey struct {
	ID  string
	Key []byte
}

// MasterKeyChain manages a collection of master keys with one designated as active.
//
// The chain enables key rotation by maintaining multiple master keys
// simultaneously: new envelopes are sealed with the active key while old keys
// remain available to open envelopes they sealed.
//
// Thread safety: the chain uses sync.Map internally for concurrent access.
type MasterKeyChain struct {
	activeID string
	keys     sync.Map
}

// ActiveMasterKeyID returns the ID of the currently active master key.
func (m *MasterKeyChain) ActiveMasterKeyID() string {
	return m.activeID
}

// Get retrieves a master key from the chain by its ID.
func (m *MasterKeyChain) Get(id string) (*MasterKey, bool) {
	if masterKey, ok := m.keys.Load(id); ok {
		return masterKey.(*MasterKey), ok
	}

	return nil, false
}

// Close securely clears all master keys from memory and resets the chain.
func (m *MasterKeyChain) Close() {
	m.keys.Range(func(key, value interface{}) bool {
		if mk, ok := value.(*MasterKey); ok {
			Zero(mk.Key)
		}
		return true
	})
	m.activeID = ""
	m.keys.Clear()
}

// KeyDecrypter unwraps KMS-protected key material. *gocloud secrets.Keeper
// satisfies this interface.
type KeyDecrypter interface {
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

// LoadMasterKeyChainFromEnv loads master keys stored as plaintext base64 in
// the environment:
//
//	MASTER_KEYS="key1:base64key,key2:base64key"
//	ACTIVE_MASTER_KEY_ID="key2"
//
// Each key must decode to exactly 32 bytes. Use LoadMasterKeyChain when the
// entries are KMS-wrapped.
func LoadMasterKeyChainFromEnv() (*MasterKeyChain, error) {
	return loadMasterKeyChain(context.Background(), nil, nil)
}

// LoadMasterKeyChain loads master keys from the environment, unwrapping each
// entry through the decrypter when one is provided. Entries are KMS
// ciphertext (base64) when a decrypter is set, plaintext base64 otherwise.
func LoadMasterKeyChain(
	ctx context.Context,
	decrypter KeyDecrypter,
	logger *slog.Logger,
) (*MasterKeyChain, error) {
	return loadMasterKeyChain(ctx, decrypter, logger)
}

func loadMasterKeyChain(
	ctx context.Context,
	decrypter KeyDecrypter,
	logger *slog.Logger,
) (*MasterKeyChain, error) {
	raw := os.Getenv("MASTER_KEYS")
	if raw == "" {
		return nil, ErrMasterKeysNotSet
	}

	active := os.Getenv("ACTIVE_MASTER_KEY_ID")
	if active == "" {
		return nil, ErrActiveMasterKeyIDNotSet
	}

	mkc := &MasterKeyChain{activeID: active}

	parts := strings.SplitSeq(raw, ",")
	for part := range parts {
		p := strings.SplitN(strings.TrimSpace(part), ":", 2)
		if len(p) != 2 {
			mkc.Close()
			return nil, fmt.Errorf("%w: %q", ErrInvalidMasterKeysFormat, part)
		}
		id := p[0]
		key, err := base64.StdEncoding.DecodeString(p[1])
		if err != nil {
			mkc.Close()
			return nil, fmt.Errorf("%w for %s: %v", ErrInvalidMasterKeyBase64, id, err)
		}

		if decrypter != nil {
			unwrapped, err := decrypter.Decrypt(ctx, key)
			Zero(key)
			if err != nil {
				mkc.Close()
				return nil, fmt.Errorf("failed to unwrap master key %s: %w", id, err)
			}
			key = unwrapped
			if logger != nil {
				logger.Debug("master key unwrapped via KMS", slog.String("key_id", id))
			}
		}

		if len(key) != 32 {
			Zero(key)
			mkc.Close()
			return nil, fmt.Errorf(
				"%w: master key %s must be 32 bytes, got %d",
				ErrInvalidKeySize,
				id,
				len(key),
			)
		}
		mkc.keys.Store(id, &MasterKey{ID: id, Key: key})
	}

	if _, ok := mkc.Get(active); !ok {
		mkc.Close()
		return nil, fmt.Errorf("%w: ACTIVE_MASTER_KEY_ID=%s", ErrActiveMasterKeyNotFound, active)
	}

	return mkc, nil
}

// NewMasterKeyChain builds a chain from in-memory keys, with the given key
// active. Intended for tests and tooling; production loads from the environment.
func NewMasterKeyChain(activeID string, keys ...*MasterKey) *MasterKeyChain {
	mkc := &MasterKeyChain{activeID: activeID}
	for _, k := range keys {
		mkc.keys.Store(k.ID, k)
	}
	return mkc
}
