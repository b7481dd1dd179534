package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shieldops/secrets/internal/app"
	"github.com/shieldops/secrets/internal/config"
)

// RunSweepExpired runs a single expiration sweep pass and exits. Useful for
// operating the sweep from an external scheduler instead of the built-in one.
func RunSweepExpired(ctx context.Context, batchSize int) error {
	cfg := config.Load()

	container := app.NewContainer(cfg)
	logger := container.Logger()

	defer closeContainer(container, logger)

	useCase, err := container.SecretUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize secret use case: %w", err)
	}

	transitioned, err := useCase.SweepExpired(ctx, batchSize)
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}

	logger.Info("expiration sweep completed", slog.Int("transitioned", transitioned))
	return nil
}
