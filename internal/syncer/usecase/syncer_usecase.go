// Package usecase implements the background sync processor that mirrors
// secret changes to external providers. Delivery is best-effort: failures are
// counted and retried with backoff, and never surface to the caller whose
// mutation enqueued the event.
package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shieldops/secrets/internal/database"
	apperrors "github.com/shieldops/secrets/internal/errors"
	"github.com/shieldops/secrets/internal/syncer/domain"
	"github.com/shieldops/secrets/internal/syncer/provider"
)

// Config holds sync processor configuration.
type Config struct {
	// Interval between processing passes.
	Interval time.Duration
	// Timeout bounds every individual provider call.
	Timeout time.Duration
	// BatchSize caps how many events one pass picks up.
	BatchSize int
	// MaxRetries is the attempt budget before an event is parked as failed.
	MaxRetries int
	// RetryBackoff is the base delay before a failed event becomes due again;
	// it grows linearly with the attempt count.
	RetryBackoff time.Duration
}

// EventRepository defines sync event persistence operations.
type EventRepository interface {
	Create(ctx context.Context, event *domain.Event) error
	GetPendingEvents(ctx context.Context, limit int) ([]*domain.Event, error)
	Update(ctx context.Context, event *domain.Event) error
}

// SecretSource resolves a secret into its provider-facing record at delivery
// time. Decrypting here keeps plaintext out of the event queue.
type SecretSource interface {
	LoadRecord(ctx context.Context, secretID uuid.UUID) (*domain.Record, error)
}

// Counters receives sync outcome signals for the manager's statistics.
type Counters interface {
	SyncSucceeded()
	SyncFailed()
}

// Syncer processes pending sync events against the configured providers.
type Syncer struct {
	config    Config
	txManager database.TxManager
	eventRepo EventRepository
	providers []provider.Provider
	source    SecretSource
	counters  Counters
	logger    *slog.Logger

	healthMu sync.RWMutex
	health   map[string]domain.ProviderHealth
}

// NewSyncer creates a sync processor.
func NewSyncer(
	config Config,
	txManager database.TxManager,
	eventRepo EventRepository,
	providers []provider.Provider,
	source SecretSource,
	counters Counters,
	logger *slog.Logger,
) *Syncer {
	return &Syncer{
		config:    config,
		txManager: txManager,
		eventRepo: eventRepo,
		providers: providers,
		source:    source,
		counters:  counters,
		logger:    logger,
		health:    make(map[string]domain.ProviderHealth),
	}
}

// Enqueue records a sync event. Call inside the same transaction as the local
// write so the event and the mutation commit or roll back together.
func (s *Syncer) Enqueue(ctx context.Context, event *domain.Event) error {
	if len(s.providers) == 0 {
		return nil
	}
	return s.eventRepo.Create(ctx, event)
}

// Start runs the processing loop until the context is cancelled.
func (s *Syncer) Start(ctx context.Context) error {
	s.logger.Info("starting sync processor",
		slog.Duration("interval", s.config.Interval),
		slog.Int("batch_size", s.config.BatchSize),
		slog.Int("providers", len(s.providers)),
	)

	s.RefreshHealth(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stopping sync processor")
			return ctx.Err()
		case <-ticker.C:
			if err := s.ProcessEvents(ctx); err != nil {
				s.logger.Error("failed to process sync events", slog.Any("error", err))
			}
			s.RefreshHealth(ctx)
		}
	}
}

// ProcessEvents picks up one batch of due events and delivers them inside a
// transaction, so an event row locked here stays invisible to other workers.
func (s *Syncer) ProcessEvents(ctx context.Context) error {
	if len(s.providers) == 0 {
		return nil
	}

	return s.txManager.WithTx(ctx, func(ctx context.Context) error {
		events, err := s.eventRepo.GetPendingEvents(ctx, s.config.BatchSize)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		s.logger.Info("processing sync events", slog.Int("count", len(events)))

		for _, event := range events {
			if err := s.deliver(ctx, event); err != nil {
				s.logger.Error("failed to deliver sync event",
					slog.String("event_id", event.ID.String()),
					slog.String("secret_name", event.SecretName),
					slog.String("operation", string(event.Operation)),
					slog.Any("error", err),
				)
				s.counters.SyncFailed()

				event.Attempts++
				event.LastError = err.Error()
				if event.Attempts >= s.config.MaxRetries {
					event.Status = domain.EventStatusFailed
				} else {
					event.ScheduledAt = time.Now().UTC().Add(
						s.config.RetryBackoff * time.Duration(event.Attempts),
					)
				}
				if err := s.eventRepo.Update(ctx, event); err != nil {
					return err
				}
				continue
			}

			s.counters.SyncSucceeded()
			now := time.Now().UTC()
			event.Status = domain.EventStatusProcessed
			event.ProcessedAt = &now
			if err := s.eventRepo.Update(ctx, event); err != nil {
				return err
			}
		}
		return nil
	})
}

// deliver replays one event against every provider. The first provider error
// aborts the event; redelivery is idempotent per secret version.
func (s *Syncer) deliver(ctx context.Context, event *domain.Event) error {
	switch event.Operation {
	case domain.OperationDelete:
		return s.eachProvider(ctx, func(ctx context.Context, p provider.Provider) error {
			return p.Delete(ctx, event.SecretName)
		})
	case domain.OperationPush:
		record, err := s.source.LoadRecord(ctx, event.SecretID)
		if err != nil {
			// The secret vanished between enqueue and delivery; a later
			// delete event covers the remote copy.
			if apperrors.Is(err, apperrors.ErrNotFound) {
				return nil
			}
			return err
		}
		return s.eachProvider(ctx, func(ctx context.Context, p provider.Provider) error {
			return p.Push(ctx, *record)
		})
	default:
		return apperrors.Wrap(apperrors.ErrInvalidInput, "unknown sync operation "+string(event.Operation))
	}
}

// eachProvider runs one call per provider under the configured timeout.
func (s *Syncer) eachProvider(
	ctx context.Context,
	call func(ctx context.Context, p provider.Provider) error,
) error {
	for _, p := range s.providers {
		callCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
		err := call(callCtx, p)
		cancel()
		if err != nil {
			return err
		}
	}
	return nil
}

// RefreshHealth pings every provider under the configured timeout and caches
// the results for health reporting.
func (s *Syncer) RefreshHealth(ctx context.Context) {
	for _, p := range s.providers {
		callCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
		err := p.Ping(callCtx)
		cancel()

		status := domain.ProviderHealth{
			Name:      p.Name(),
			Reachable: err == nil,
			CheckedAt: time.Now().UTC(),
		}
		if err != nil {
			status.Error = err.Error()
		}

		s.healthMu.Lock()
		s.health[p.Name()] = status
		s.healthMu.Unlock()
	}
}

// Health returns the cached provider reachability snapshot. It never blocks
// on provider calls.
func (s *Syncer) Health() []domain.ProviderHealth {
	s.healthMu.RLock()
	defer s.healthMu.RUnlock()

	out := make([]domain.ProviderHealth, 0, len(s.providers))
	for _, p := range s.providers {
		if status, ok := s.health[p.Name()]; ok {
			out = append(out, status)
		}
	}
	return out
}
