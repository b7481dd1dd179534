package service

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/shieldops/secrets/internal/crypto/domain"
)

func newTestChain(t *testing.T, activeID string, ids ...string) *cryptoDomain.MasterKeyChain {
	t.Helper()
	keys := make([]*cryptoDomain.MasterKey, 0, len(ids))
	for _, id := range ids {
		key := make([]byte, 32)
		_, err := rand.Read(key)
		require.NoError(t, err)
		keys = append(keys, &cryptoDomain.MasterKey{ID: id, Key: key})
	}
	return cryptoDomain.NewMasterKeyChain(activeID, keys...)
}

func TestEngineRoundTrip(t *testing.T) {
	for _, alg := range []cryptoDomain.Algorithm{cryptoDomain.AESGCM, cryptoDomain.ChaCha20} {
		t.Run(string(alg), func(t *testing.T) {
			chain := newTestChain(t, "v1", "v1")
			engine := NewEngine(chain, NewAEADManager(), alg)

			plaintext := []byte("super-secret-api-key")
			env, err := engine.Encrypt(plaintext)
			require.NoError(t, err)
			assert.Equal(t, "v1", env.KeyID)
			assert.Equal(t, alg, env.Algorithm)
			assert.NotEmpty(t, env.WrappedKey)
			assert.NotEmpty(t, env.Ciphertext)
			assert.NotContains(t, string(env.Ciphertext), "super-secret")

			decrypted, err := engine.Decrypt(env)
			require.NoError(t, err)
			assert.Equal(t, plaintext, decrypted)
		})
	}
}

func TestEngineFreshDataKeyPerValue(t *testing.T) {
	chain := newTestChain(t, "v1", "v1")
	engine := NewEngine(chain, NewAEADManager(), cryptoDomain.AESGCM)

	env1, err := engine.Encrypt([]byte("same plaintext"))
	require.NoError(t, err)
	env2, err := engine.Encrypt([]byte("same plaintext"))
	require.NoError(t, err)

	assert.NotEqual(t, env1.WrappedKey, env2.WrappedKey)
	assert.NotEqual(t, env1.Ciphertext, env2.Ciphertext)
	assert.NotEqual(t, env1.Nonce, env2.Nonce)
}

func TestEngineDecryptAfterMasterKeyRotation(t *testing.T) {
	// Seal under v1, then decrypt with a chain whose active key moved to v2
	// but still carries v1.
	oldChain := newTestChain(t, "v1", "v1")
	oldEngine := NewEngine(oldChain, NewAEADManager(), cryptoDomain.AESGCM)

	env, err := oldEngine.Encrypt([]byte("sealed before rotation"))
	require.NoError(t, err)

	v1, ok := oldChain.Get("v1")
	require.True(t, ok)
	v2Key := make([]byte, 32)
	_, err = rand.Read(v2Key)
	require.NoError(t, err)

	newChain := cryptoDomain.NewMasterKeyChain("v2",
		&cryptoDomain.MasterKey{ID: "v1", Key: v1.Key},
		&cryptoDomain.MasterKey{ID: "v2", Key: v2Key},
	)
	newEngine := NewEngine(newChain, NewAEADManager(), cryptoDomain.AESGCM)

	decrypted, err := newEngine.Decrypt(env)
	require.NoError(t, err)
	assert.Equal(t, []byte("sealed before rotation"), decrypted)

	// New writes use the active key.
	env2, err := newEngine.Encrypt([]byte("sealed after rotation"))
	require.NoError(t, err)
	assert.Equal(t, "v2", env2.KeyID)
}

func TestEngineDecryptUnknownMasterKey(t *testing.T) {
	chain := newTestChain(t, "v1", "v1")
	engine := NewEngine(chain, NewAEADManager(), cryptoDomain.AESGCM)

	env, err := engine.Encrypt([]byte("payload"))
	require.NoError(t, err)

	env.KeyID = "missing"
	_, err = engine.Decrypt(env)
	assert.ErrorIs(t, err, cryptoDomain.ErrMasterKeyNotFound)
}

func TestEngineDecryptTamperedEnvelope(t *testing.T) {
	chain := newTestChain(t, "v1", "v1")
	engine := NewEngine(chain, NewAEADManager(), cryptoDomain.AESGCM)

	t.Run("tampered ciphertext", func(t *testing.T) {
		env, err := engine.Encrypt([]byte("payload"))
		require.NoError(t, err)

		env.Ciphertext[0] ^= 0xff
		_, err = engine.Decrypt(env)
		assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
	})

	t.Run("tampered wrapped key", func(t *testing.T) {
		env, err := engine.Encrypt([]byte("payload"))
		require.NoError(t, err)

		env.WrappedKey[0] ^= 0xff
		_, err = engine.Decrypt(env)
		assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
	})

	t.Run("wrong master key material", func(t *testing.T) {
		env, err := engine.Encrypt([]byte("payload"))
		require.NoError(t, err)

		otherChain := newTestChain(t, "v1", "v1")
		otherEngine := NewEngine(otherChain, NewAEADManager(), cryptoDomain.AESGCM)
		_, err = otherEngine.Decrypt(env)
		assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
	})
}

func TestEngineEncryptWithoutActiveKey(t *testing.T) {
	chain := cryptoDomain.NewMasterKeyChain("v9")
	engine := NewEngine(chain, NewAEADManager(), cryptoDomain.AESGCM)

	_, err := engine.Encrypt([]byte("payload"))
	assert.ErrorIs(t, err, cryptoDomain.ErrMasterKeyNotFound)
}
