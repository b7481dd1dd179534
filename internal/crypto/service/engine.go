package service

import (
	"crypto/rand"
	"fmt"

	cryptoDomain "github.com/shieldops/secrets/internal/crypto/domain"
)

// envelopeEngine implements Engine using a master key chain and AEADManager.
//
// Master key rotation is rewrap-on-write: each envelope records which master
// key wrapped its data key, rotation only changes the key used for new writes,
// and previous keys stay in the chain for decryption. There is no automatic
// batch rewrap of existing envelopes.
type envelopeEngine struct {
	chain       *cryptoDomain.MasterKeyChain
	aeadManager AEADManager
	algorithm   cryptoDomain.Algorithm
}

// NewEngine creates an envelope encryption Engine that seals new values with
// the chain's active master key using the given algorithm.
func NewEngine(
	chain *cryptoDomain.MasterKeyChain,
	aeadManager AEADManager,
	algorithm cryptoDomain.Algorithm,
) Engine {
	return &envelopeEngine{
		chain:       chain,
		aeadManager: aeadManager,
		algorithm:   algorithm,
	}
}

// Encrypt seals plaintext under a fresh 32-byte data key wrapped by the
// active master key. The data key is zeroed before returning.
func (e *envelopeEngine) Encrypt(plaintext []byte) (cryptoDomain.Envelope, error) {
	masterKey, ok := e.chain.Get(e.chain.ActiveMasterKeyID())
	if !ok {
		return cryptoDomain.Envelope{}, cryptoDomain.ErrMasterKeyNotFound
	}

	// Generate a random 32-byte data key
	dataKey := make([]byte, 32)
	if _, err := rand.Read(dataKey); err != nil {
		return cryptoDomain.Envelope{}, fmt.Errorf("failed to generate data key: %w", err)
	}
	defer cryptoDomain.Zero(dataKey)

	// Wrap the data key under the master key
	masterCipher, err := e.aeadManager.CreateCipher(masterKey.Key, e.algorithm)
	if err != nil {
		return cryptoDomain.Envelope{}, err
	}

	wrappedKey, keyNonce, err := masterCipher.Encrypt(dataKey, []byte(masterKey.ID))
	if err != nil {
		return cryptoDomain.Envelope{}, fmt.Errorf("failed to wrap data key: %w", err)
	}

	// Seal the payload under the data key
	dataCipher, err := e.aeadManager.CreateCipher(dataKey, e.algorithm)
	if err != nil {
		return cryptoDomain.Envelope{}, err
	}

	ciphertext, nonce, err := dataCipher.Encrypt(plaintext, nil)
	if err != nil {
		return cryptoDomain.Envelope{}, fmt.Errorf("failed to encrypt value: %w", err)
	}

	return cryptoDomain.Envelope{
		KeyID:      masterKey.ID,
		Algorithm:  e.algorithm,
		WrappedKey: wrappedKey,
		KeyNonce:   keyNonce,
		Ciphertext: ciphertext,
		Nonce:      nonce,
	}, nil
}

// Decrypt opens an envelope using the master key it names. Any authentication
// failure is reported as ErrDecryptionFailed without further detail.
func (e *envelopeEngine) Decrypt(env cryptoDomain.Envelope) ([]byte, error) {
	masterKey, ok := e.chain.Get(env.KeyID)
	if !ok {
		return nil, cryptoDomain.ErrMasterKeyNotFound
	}

	masterCipher, err := e.aeadManager.CreateCipher(masterKey.Key, env.Algorithm)
	if err != nil {
		return nil, err
	}

	dataKey, err := masterCipher.Decrypt(env.WrappedKey, env.KeyNonce, []byte(masterKey.ID))
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	defer cryptoDomain.Zero(dataKey)

	dataCipher, err := e.aeadManager.CreateCipher(dataKey, env.Algorithm)
	if err != nil {
		return nil, err
	}

	plaintext, err := dataCipher.Decrypt(env.Ciphertext, env.Nonce, nil)
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}

	return plaintext, nil
}
