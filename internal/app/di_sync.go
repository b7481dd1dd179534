package app

import (
	"context"
	"fmt"

	secretsUseCase "github.com/shieldops/secrets/internal/secrets/usecase"
	syncerProvider "github.com/shieldops/secrets/internal/syncer/provider"
	"github.com/shieldops/secrets/internal/syncer/repository"
	syncerUsecase "github.com/shieldops/secrets/internal/syncer/usecase"
)

// SyncEventRepository returns the sync event outbox repository instance.
func (c *Container) SyncEventRepository() (syncerUsecase.EventRepository, error) {
	c.syncEventRepoInit.Do(func() {
		var err error
		c.syncEventRepo, err = c.initSyncEventRepository()
		if err != nil {
			c.initErrors["syncEventRepo"] = err
		}
	})
	if storedErr, exists := c.initErrors["syncEventRepo"]; exists {
		return nil, storedErr
	}
	return c.syncEventRepo, nil
}

// SyncProviders returns the configured external providers.
func (c *Container) SyncProviders(ctx context.Context) ([]syncerProvider.Provider, error) {
	c.syncProvidersInit.Do(func() {
		var err error
		c.syncProviders, err = c.initSyncProviders(ctx)
		if err != nil {
			c.initErrors["syncProviders"] = err
		}
	})
	if storedErr, exists := c.initErrors["syncProviders"]; exists {
		return nil, storedErr
	}
	return c.syncProviders, nil
}

// Syncer returns the sync processor, or nil when sync is disabled. It also
// attaches itself to the secret manager as the sync notifier, closing the
// manager-syncer loop.
func (c *Container) Syncer(ctx context.Context) (*syncerUsecase.Syncer, error) {
	c.syncerInit.Do(func() {
		var err error
		c.syncer, err = c.initSyncer(ctx)
		if err != nil {
			c.initErrors["syncer"] = err
		}
	})
	if storedErr, exists := c.initErrors["syncer"]; exists {
		return nil, storedErr
	}
	return c.syncer, nil
}

// initSyncEventRepository creates the sync event repository instance.
func (c *Container) initSyncEventRepository() (syncerUsecase.EventRepository, error) {
	if c.config.DBDriver == "memory" {
		return repository.NewMemorySyncEventRepository(), nil
	}

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for sync event repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return repository.NewMySQLSyncEventRepository(db), nil
	case "postgres":
		return repository.NewPostgreSQLSyncEventRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initSyncProviders builds providers from the configured names.
func (c *Container) initSyncProviders(ctx context.Context) ([]syncerProvider.Provider, error) {
	names := c.config.SyncProviderNames()
	providers := make([]syncerProvider.Provider, 0, len(names))

	for _, name := range names {
		switch name {
		case "vault":
			p, err := syncerProvider.NewVaultProvider(c.config.Vault)
			if err != nil {
				return nil, fmt.Errorf("failed to create vault provider: %w", err)
			}
			providers = append(providers, p)
		case "aws":
			p, err := syncerProvider.NewAWSProvider(ctx, c.config.AWS)
			if err != nil {
				return nil, fmt.Errorf("failed to create aws provider: %w", err)
			}
			providers = append(providers, p)
		default:
			return nil, fmt.Errorf("unknown sync provider: %s", name)
		}
	}

	return providers, nil
}

// initSyncer creates the sync processor and wires it into the secret manager.
func (c *Container) initSyncer(ctx context.Context) (*syncerUsecase.Syncer, error) {
	if !c.config.SyncEnabled {
		return nil, nil
	}

	providers, err := c.SyncProviders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get providers for syncer: %w", err)
	}
	if len(providers) == 0 {
		c.Logger().Warn("sync enabled but no providers configured - sync disabled")
		return nil, nil
	}

	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for syncer: %w", err)
	}

	eventRepo, err := c.SyncEventRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get event repository for syncer: %w", err)
	}

	manager, err := c.SecretManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get secret manager for syncer: %w", err)
	}

	syncer := syncerUsecase.NewSyncer(
		syncerUsecase.Config{
			Interval:     c.config.SyncInterval,
			Timeout:      c.config.SyncTimeout,
			BatchSize:    c.config.SyncBatchSize,
			MaxRetries:   c.config.SyncMaxRetries,
			RetryBackoff: c.config.SyncInterval,
		},
		txManager,
		eventRepo,
		providers,
		manager,
		c.Counters(),
		c.Logger(),
	)

	manager.SetNotifier(syncer)

	return syncer, nil
}

var _ secretsUseCase.SyncNotifier = (*syncerUsecase.Syncer)(nil)
