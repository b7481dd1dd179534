package domain

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomKeyBase64(t *testing.T) string {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(key)
}

func TestLoadMasterKeyChainFromEnv(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		t.Setenv("MASTER_KEYS", "key1:"+randomKeyBase64(t)+",key2:"+randomKeyBase64(t))
		t.Setenv("ACTIVE_MASTER_KEY_ID", "key2")

		chain, err := LoadMasterKeyChainFromEnv()
		require.NoError(t, err)
		defer chain.Close()

		assert.Equal(t, "key2", chain.ActiveMasterKeyID())

		key1, ok := chain.Get("key1")
		assert.True(t, ok)
		assert.Len(t, key1.Key, 32)

		_, ok = chain.Get("missing")
		assert.False(t, ok)
	})

	t.Run("MissingMasterKeys", func(t *testing.T) {
		t.Setenv("MASTER_KEYS", "")
		_, err := LoadMasterKeyChainFromEnv()
		assert.ErrorIs(t, err, ErrMasterKeysNotSet)
	})

	t.Run("MissingActiveID", func(t *testing.T) {
		t.Setenv("MASTER_KEYS", "key1:"+randomKeyBase64(t))
		t.Setenv("ACTIVE_MASTER_KEY_ID", "")
		_, err := LoadMasterKeyChainFromEnv()
		assert.ErrorIs(t, err, ErrActiveMasterKeyIDNotSet)
	})

	t.Run("MalformedEntry", func(t *testing.T) {
		t.Setenv("MASTER_KEYS", "no-separator")
		t.Setenv("ACTIVE_MASTER_KEY_ID", "key1")
		_, err := LoadMasterKeyChainFromEnv()
		assert.ErrorIs(t, err, ErrInvalidMasterKeysFormat)
	})

	t.Run("WrongKeySize", func(t *testing.T) {
		short := base64.StdEncoding.EncodeToString([]byte("too-short"))
		t.Setenv("MASTER_KEYS", "key1:"+short)
		t.Setenv("ACTIVE_MASTER_KEY_ID", "key1")
		_, err := LoadMasterKeyChainFromEnv()
		assert.ErrorIs(t, err, ErrInvalidKeySize)
	})

	t.Run("ActiveKeyNotPresent", func(t *testing.T) {
		t.Setenv("MASTER_KEYS", "key1:"+randomKeyBase64(t))
		t.Setenv("ACTIVE_MASTER_KEY_ID", "other")
		_, err := LoadMasterKeyChainFromEnv()
		assert.ErrorIs(t, err, ErrActiveMasterKeyNotFound)
	})
}

// staticDecrypter fakes a KMS keeper by xoring with a fixed byte.
type staticDecrypter struct {
	fail bool
}

func (d *staticDecrypter) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	if d.fail {
		return nil, errors.New("kms unavailable")
	}
	out := make([]byte, len(ciphertext))
	for i, b := range ciphertext {
		out[i] = b ^ 0xff
	}
	return out, nil
}

func TestLoadMasterKeyChainWithDecrypter(t *testing.T) {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	wrapped := make([]byte, len(key))
	for i, b := range key {
		wrapped[i] = b ^ 0xff
	}

	t.Setenv("MASTER_KEYS", "prod:"+base64.StdEncoding.EncodeToString(wrapped))
	t.Setenv("ACTIVE_MASTER_KEY_ID", "prod")

	t.Run("Unwraps", func(t *testing.T) {
		chain, err := LoadMasterKeyChain(context.Background(), &staticDecrypter{}, nil)
		require.NoError(t, err)
		defer chain.Close()

		mk, ok := chain.Get("prod")
		require.True(t, ok)
		assert.Equal(t, key, mk.Key)
	})

	t.Run("DecrypterFailure", func(t *testing.T) {
		_, err := LoadMasterKeyChain(context.Background(), &staticDecrypter{fail: true}, nil)
		assert.Error(t, err)
	})
}

func TestMasterKeyChainClose(t *testing.T) {
	key := make([]byte, 32)
	key[0] = 0xaa

	chain := NewMasterKeyChain("k1", &MasterKey{ID: "k1", Key: key})
	chain.Close()

	assert.Empty(t, chain.ActiveMasterKeyID())
	_, ok := chain.Get("k1")
	assert.False(t, ok)
	assert.Equal(t, byte(0), key[0])
}
