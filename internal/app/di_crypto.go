package app

import (
	"context"
	"fmt"

	cryptoDomain "github.com/shieldops/secrets/internal/crypto/domain"
	cryptoService "github.com/shieldops/secrets/internal/crypto/service"
)

// MasterKeyChain returns the loaded master key chain.
// Keys are loaded from the environment, unwrapped through the configured KMS
// keeper when KMS_KEY_URI is set.
func (c *Container) MasterKeyChain() (*cryptoDomain.MasterKeyChain, error) {
	c.masterKeyChainInit.Do(func() {
		var err error
		c.masterKeyChain, err = c.initMasterKeyChain()
		if err != nil {
			c.initErrors["masterKeyChain"] = err
		}
	})
	if storedErr, exists := c.initErrors["masterKeyChain"]; exists {
		return nil, storedErr
	}
	return c.masterKeyChain, nil
}

// Engine returns the envelope encryption engine.
func (c *Container) Engine() (cryptoService.Engine, error) {
	c.engineInit.Do(func() {
		var err error
		c.engine, err = c.initEngine()
		if err != nil {
			c.initErrors["engine"] = err
		}
	})
	if storedErr, exists := c.initErrors["engine"]; exists {
		return nil, storedErr
	}
	return c.engine, nil
}

// initMasterKeyChain loads master keys, optionally unwrapping them via KMS.
func (c *Container) initMasterKeyChain() (*cryptoDomain.MasterKeyChain, error) {
	logger := c.Logger()

	if c.config.KMSKeyURI == "" {
		chain, err := cryptoDomain.LoadMasterKeyChainFromEnv()
		if err != nil {
			return nil, fmt.Errorf("failed to load master keys: %w", err)
		}
		return chain, nil
	}

	kmsService := cryptoService.NewKMSService()
	keeper, err := kmsService.OpenKeeper(context.Background(), c.config.KMSKeyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	c.kmsKeeper = keeper

	chain, err := cryptoDomain.LoadMasterKeyChain(context.Background(), keeper, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load KMS-wrapped master keys: %w", err)
	}
	return chain, nil
}

// initEngine creates the envelope encryption engine.
func (c *Container) initEngine() (cryptoService.Engine, error) {
	chain, err := c.MasterKeyChain()
	if err != nil {
		return nil, fmt.Errorf("failed to get master key chain for engine: %w", err)
	}

	return cryptoService.NewEngine(chain, cryptoService.NewAEADManager(), cryptoDomain.AESGCM), nil
}
