package app

import (
	"fmt"

	"github.com/shieldops/secrets/internal/metrics"
	secretsHTTP "github.com/shieldops/secrets/internal/secrets/http"
	"github.com/shieldops/secrets/internal/secrets/repository"
	secretsUseCase "github.com/shieldops/secrets/internal/secrets/usecase"
)

// SecretRepository returns the secret repository instance.
func (c *Container) SecretRepository() (secretsUseCase.SecretRepository, error) {
	c.secretRepoInit.Do(func() {
		var err error
		c.secretRepo, err = c.initSecretRepository()
		if err != nil {
			c.initErrors["secretRepo"] = err
		}
	})
	if storedErr, exists := c.initErrors["secretRepo"]; exists {
		return nil, storedErr
	}
	return c.secretRepo, nil
}

// Counters returns the in-process operation counters shared between the
// secret manager and the sync processor.
func (c *Container) Counters() *secretsUseCase.Counters {
	c.countersInit.Do(func() {
		c.counters = secretsUseCase.NewCounters()
	})
	return c.counters
}

// SecretManager returns the concrete secret manager. The sync processor needs
// it as its secret source, which is why the concrete type is exposed next to
// the SecretUseCase interface.
func (c *Container) SecretManager() (*secretsUseCase.SecretManager, error) {
	c.secretManagerInit.Do(func() {
		var err error
		c.secretManager, err = c.initSecretManager()
		if err != nil {
			c.initErrors["secretManager"] = err
		}
	})
	if storedErr, exists := c.initErrors["secretManager"]; exists {
		return nil, storedErr
	}
	return c.secretManager, nil
}

// SecretUseCase returns the secret use case, wrapped with metrics when
// metrics are enabled.
func (c *Container) SecretUseCase() (secretsUseCase.SecretUseCase, error) {
	c.secretUseCaseInit.Do(func() {
		var err error
		c.secretUseCase, err = c.initSecretUseCase()
		if err != nil {
			c.initErrors["secretUseCase"] = err
		}
	})
	if storedErr, exists := c.initErrors["secretUseCase"]; exists {
		return nil, storedErr
	}
	return c.secretUseCase, nil
}

// SecretHandler returns the secret HTTP handler instance.
func (c *Container) SecretHandler() (*secretsHTTP.SecretHandler, error) {
	c.secretHandlerInit.Do(func() {
		var err error
		c.secretHandler, err = c.initSecretHandler()
		if err != nil {
			c.initErrors["secretHandler"] = err
		}
	})
	if storedErr, exists := c.initErrors["secretHandler"]; exists {
		return nil, storedErr
	}
	return c.secretHandler, nil
}

// Sweeper returns the expiration sweeper instance.
func (c *Container) Sweeper() (*secretsUseCase.Sweeper, error) {
	c.sweeperInit.Do(func() {
		var err error
		c.sweeper, err = c.initSweeper()
		if err != nil {
			c.initErrors["sweeper"] = err
		}
	})
	if storedErr, exists := c.initErrors["sweeper"]; exists {
		return nil, storedErr
	}
	return c.sweeper, nil
}

// initSecretRepository creates the secret repository instance.
func (c *Container) initSecretRepository() (secretsUseCase.SecretRepository, error) {
	if c.config.DBDriver == "memory" {
		return repository.NewMemorySecretRepository(), nil
	}

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for secret repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return repository.NewMySQLSecretRepository(db), nil
	case "postgres":
		return repository.NewPostgreSQLSecretRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initSecretManager creates the secret manager with all its dependencies.
// The sync notifier starts as a noop; the Syncer accessor attaches the real
// one when sync is enabled.
func (c *Container) initSecretManager() (*secretsUseCase.SecretManager, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for secret manager: %w", err)
	}

	secretRepo, err := c.SecretRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get secret repository for secret manager: %w", err)
	}

	engine, err := c.Engine()
	if err != nil {
		return nil, fmt.Errorf("failed to get engine for secret manager: %w", err)
	}

	manager := secretsUseCase.NewSecretManager(
		txManager,
		secretRepo,
		engine,
		secretsUseCase.NopSyncNotifier{},
		c.Counters(),
		c.AuditLogger(),
		c.Logger(),
		c.config.UpdateRetryAttempts,
	)

	return manager, nil
}

// initSecretUseCase wraps the manager with the metrics decorator when enabled.
func (c *Container) initSecretUseCase() (secretsUseCase.SecretUseCase, error) {
	manager, err := c.SecretManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get secret manager for secret use case: %w", err)
	}

	if !c.config.MetricsEnabled {
		return manager, nil
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for secret use case: %w", err)
	}

	return secretsUseCase.NewSecretUseCaseWithMetrics(manager, businessMetrics), nil
}

// initSecretHandler creates the secret HTTP handler.
func (c *Container) initSecretHandler() (*secretsHTTP.SecretHandler, error) {
	useCase, err := c.SecretUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get secret use case for secret handler: %w", err)
	}

	return secretsHTTP.NewSecretHandler(useCase, c.Logger()), nil
}

// initSweeper creates the expiration sweeper.
func (c *Container) initSweeper() (*secretsUseCase.Sweeper, error) {
	useCase, err := c.SecretUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get secret use case for sweeper: %w", err)
	}

	return secretsUseCase.NewSweeper(secretsUseCase.SweeperConfig{
		Schedule:  c.config.SweepSchedule,
		Interval:  c.config.SweepInterval,
		BatchSize: c.config.SweepBatchSize,
	}, useCase, c.Logger()), nil
}

// BusinessMetrics returns the business metrics recorder.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	c.businessMetricsInit.Do(func() {
		var err error
		c.businessMetrics, err = c.initBusinessMetrics()
		if err != nil {
			c.initErrors["businessMetrics"] = err
		}
	})
	if storedErr, exists := c.initErrors["businessMetrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// MetricsProvider returns the OpenTelemetry metrics provider, or nil when
// metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	c.metricsProviderInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		var err error
		c.metricsProvider, err = metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["metricsProvider"] = err
		}
	})
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// initBusinessMetrics creates the business metrics recorder, falling back to
// a noop when metrics are disabled.
func (c *Container) initBusinessMetrics() (metrics.BusinessMetrics, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for business metrics: %w", err)
	}
	if provider == nil {
		return metrics.NewNoOpBusinessMetrics(), nil
	}

	businessMetrics, err := metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}
	return businessMetrics, nil
}
