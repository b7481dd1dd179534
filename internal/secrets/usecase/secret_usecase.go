package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shieldops/secrets/internal/audit"
	cryptoService "github.com/shieldops/secrets/internal/crypto/service"
	"github.com/shieldops/secrets/internal/database"
	apperrors "github.com/shieldops/secrets/internal/errors"
	secretsDomain "github.com/shieldops/secrets/internal/secrets/domain"
	secretsService "github.com/shieldops/secrets/internal/secrets/service"
	syncerDomain "github.com/shieldops/secrets/internal/syncer/domain"
)

// SecretManager implements SecretUseCase. It also implements the sync
// processor's SecretSource through LoadRecord, so push events are resolved
// into plaintext records only at delivery time.
type SecretManager struct {
	txManager     database.TxManager
	secretRepo    SecretRepository
	engine        cryptoService.Engine
	notifier      SyncNotifier
	counters      *Counters
	auditLogger   audit.Logger
	logger        *slog.Logger
	retryAttempts int
}

// NewSecretManager creates a secret manager with the provided dependencies.
// retryAttempts bounds the read-modify-write retry loop on version conflicts;
// values below one are raised to one.
func NewSecretManager(
	txManager database.TxManager,
	secretRepo SecretRepository,
	engine cryptoService.Engine,
	notifier SyncNotifier,
	counters *Counters,
	auditLogger audit.Logger,
	logger *slog.Logger,
	retryAttempts int,
) *SecretManager {
	if retryAttempts < 1 {
		retryAttempts = 1
	}
	return &SecretManager{
		txManager:     txManager,
		secretRepo:    secretRepo,
		engine:        engine,
		notifier:      notifier,
		counters:      counters,
		auditLogger:   auditLogger,
		logger:        logger,
		retryAttempts: retryAttempts,
	}
}

var _ SecretUseCase = (*SecretManager)(nil)

// SetNotifier attaches the sync notifier after construction. The manager and
// the sync processor reference each other, so one side is wired late; call
// this before serving traffic.
func (s *SecretManager) SetNotifier(notifier SyncNotifier) {
	s.notifier = notifier
}

// Create encrypts and stores a new secret at version 1, enqueueing a push
// event in the same transaction.
func (s *SecretManager) Create(
	ctx context.Context,
	input CreateSecretInput,
) (*secretsDomain.Secret, error) {
	if err := validateCreateInput(input); err != nil {
		s.auditLogger.Record(ctx, "secret_create", "", audit.OutcomeError)
		return nil, err
	}

	envelope, err := s.engine.Encrypt(input.Value)
	if err != nil {
		s.counters.ErrorRecorded()
		s.auditLogger.Record(ctx, "secret_create", "", audit.OutcomeError)
		return nil, err
	}

	now := time.Now().UTC()
	secret := &secretsDomain.Secret{
		ID:          uuid.Must(uuid.NewV7()),
		Name:        input.Name,
		Type:        input.Type,
		Status:      secretsDomain.StatusActive,
		Envelope:    envelope,
		Version:     1,
		Tags:        cloneTags(input.Tags),
		Description: input.Description,
		Owner:       input.Owner,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if input.ExpiresInDays > 0 {
		expiresAt := now.AddDate(0, 0, input.ExpiresInDays)
		secret.ExpiresAt = &expiresAt
	}

	err = s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.secretRepo.Create(txCtx, secret); err != nil {
			return err
		}
		return s.notifier.Enqueue(txCtx, syncerDomain.NewEvent(
			secret.ID, secret.Name, secret.Version, syncerDomain.OperationPush,
		))
	})
	if err != nil {
		s.auditLogger.Record(ctx, "secret_create", "", audit.OutcomeError)
		return nil, err
	}

	s.auditLogger.Record(ctx, "secret_create", secret.ID.String(), audit.OutcomeSuccess)
	return secret, nil
}

// Get retrieves and decrypts a secret, recording the access. A decryption
// failure marks the secret's status as error on a best-effort basis.
func (s *SecretManager) Get(
	ctx context.Context,
	id secretsDomain.Identifier,
) (*secretsDomain.Secret, error) {
	secret, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	plaintext, err := s.engine.Decrypt(secret.Envelope)
	if err != nil {
		s.markError(ctx, secret)
		s.counters.ErrorRecorded()
		s.auditLogger.Record(ctx, "secret_get", secret.ID.String(), audit.OutcomeError)
		return nil, err
	}
	secret.Plaintext = plaintext

	now := time.Now().UTC()
	if err := s.secretRepo.RecordAccess(ctx, secret.ID, now); err != nil {
		// The value was already served; losing one access stamp is acceptable.
		s.logger.Warn("failed to record secret access",
			slog.String("secret_id", secret.ID.String()),
			slog.Any("error", err),
		)
	} else {
		secret.AccessCount++
		secret.LastAccessedAt = &now
	}

	s.counters.AccessRecorded()
	s.auditLogger.Record(ctx, "secret_get", secret.ID.String(), audit.OutcomeSuccess)
	return secret, nil
}

// GetMetadata retrieves a secret without touching its encrypted value. The
// access counter and last-accessed stamp are left alone; only value reads
// count as accesses.
func (s *SecretManager) GetMetadata(
	ctx context.Context,
	id secretsDomain.Identifier,
) (*secretsDomain.Secret, error) {
	secret, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	return secret.Clone(), nil
}

// Update applies a partial update under optimistic concurrency. Version
// conflicts are retried from a fresh read up to the configured attempt budget.
func (s *SecretManager) Update(
	ctx context.Context,
	id secretsDomain.Identifier,
	input UpdateSecretInput,
) (*secretsDomain.Secret, error) {
	if input.NewName != nil && *input.NewName == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "secret name must not be empty")
	}

	var updated *secretsDomain.Secret
	err := s.withRetry(func() error {
		secret, err := s.resolve(ctx, id)
		if err != nil {
			return err
		}

		next := secret.Clone()
		valueChanged := len(input.NewValue) > 0
		if valueChanged {
			envelope, err := s.engine.Encrypt(input.NewValue)
			if err != nil {
				return err
			}
			next.Envelope = envelope
			next.Version = secret.Version + 1
		}
		if input.NewName != nil {
			next.Name = *input.NewName
		}
		if input.NewDescription != nil {
			next.Description = *input.NewDescription
		}
		if input.NewTags != nil {
			next.Tags = cloneTags(input.NewTags)
		}
		next.UpdatedAt = time.Now().UTC()

		err = s.txManager.WithTx(ctx, func(txCtx context.Context) error {
			if err := s.secretRepo.Update(txCtx, next, secret.Version); err != nil {
				return err
			}
			if !valueChanged {
				return nil
			}
			return s.notifier.Enqueue(txCtx, syncerDomain.NewEvent(
				next.ID, next.Name, next.Version, syncerDomain.OperationPush,
			))
		})
		if err != nil {
			return err
		}

		updated = next
		return nil
	})
	if err != nil {
		s.auditLogger.Record(ctx, "secret_update", id.String(), audit.OutcomeError)
		return nil, err
	}

	s.auditLogger.Record(ctx, "secret_update", updated.ID.String(), audit.OutcomeSuccess)
	return updated, nil
}

// Rotate replaces the secret value and bumps the version by one. When
// newValue is empty a value appropriate for the secret type is generated.
func (s *SecretManager) Rotate(
	ctx context.Context,
	id secretsDomain.Identifier,
	newValue []byte,
) (*secretsDomain.Secret, error) {
	var rotated *secretsDomain.Secret
	err := s.withRetry(func() error {
		secret, err := s.resolve(ctx, id)
		if err != nil {
			return err
		}

		value := newValue
		if len(value) == 0 {
			generator, err := secretsService.NewValueGenerator(secret.Type)
			if err != nil {
				return err
			}
			value, err = generator.Generate()
			if err != nil {
				return err
			}
		}

		envelope, err := s.engine.Encrypt(value)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		next := secret.Clone()
		next.Envelope = envelope
		next.Version = secret.Version + 1
		next.Status = secretsDomain.StatusActive
		next.RotatedAt = &now
		next.UpdatedAt = now

		err = s.txManager.WithTx(ctx, func(txCtx context.Context) error {
			if err := s.secretRepo.Update(txCtx, next, secret.Version); err != nil {
				return err
			}
			return s.notifier.Enqueue(txCtx, syncerDomain.NewEvent(
				next.ID, next.Name, next.Version, syncerDomain.OperationPush,
			))
		})
		if err != nil {
			return err
		}

		next.Plaintext = value
		rotated = next
		return nil
	})
	if err != nil {
		s.counters.ErrorRecorded()
		s.auditLogger.Record(ctx, "secret_rotate", id.String(), audit.OutcomeError)
		return nil, err
	}

	s.counters.RotationRecorded()
	s.auditLogger.Record(ctx, "secret_rotate", rotated.ID.String(), audit.OutcomeSuccess)
	return rotated, nil
}

// Delete permanently removes a secret, enqueueing a delete event in the same
// transaction so external copies are removed as well.
func (s *SecretManager) Delete(ctx context.Context, id secretsDomain.Identifier) error {
	secret, err := s.resolve(ctx, id)
	if err != nil {
		return err
	}

	err = s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.secretRepo.Delete(txCtx, secret.ID); err != nil {
			return err
		}
		return s.notifier.Enqueue(txCtx, syncerDomain.NewEvent(
			secret.ID, secret.Name, secret.Version, syncerDomain.OperationDelete,
		))
	})
	if err != nil {
		s.auditLogger.Record(ctx, "secret_delete", secret.ID.String(), audit.OutcomeError)
		return err
	}

	s.auditLogger.Record(ctx, "secret_delete", secret.ID.String(), audit.OutcomeSuccess)
	return nil
}

// List returns secrets matching the filter plus the total match count.
func (s *SecretManager) List(
	ctx context.Context,
	filter secretsDomain.Filter,
	limit, offset int,
) ([]*secretsDomain.Secret, uint64, error) {
	secrets, err := s.secretRepo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.secretRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return secrets, total, nil
}

// Search returns secrets whose selected fields contain the query.
func (s *SecretManager) Search(
	ctx context.Context,
	query string,
	fields secretsDomain.SearchFields,
	limit, offset int,
) ([]*secretsDomain.Secret, error) {
	if query == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "search query must not be empty")
	}
	return s.secretRepo.Search(ctx, query, fields, limit, offset)
}

// Stats merges stored secret counts with the in-process operation counters.
func (s *SecretManager) Stats(ctx context.Context) (*secretsDomain.Stats, error) {
	byType, byStatus, err := s.secretRepo.Stats(ctx)
	if err != nil {
		return nil, err
	}

	var total uint64
	for _, count := range byType {
		total += count
	}

	snapshot := s.counters.Snapshot()
	return &secretsDomain.Stats{
		TotalSecrets:  total,
		ByType:        byType,
		ByStatus:      byStatus,
		AccessCount:   snapshot.Access,
		RotationCount: snapshot.Rotations,
		ErrorCount:    snapshot.Errors,
		SyncCount:     snapshot.Syncs,
	}, nil
}

// Health probes the secret store and reports cached provider reachability.
func (s *SecretManager) Health(ctx context.Context) (*Health, error) {
	health := &Health{
		Providers: s.notifier.Health(),
		CheckedAt: time.Now().UTC(),
	}

	if _, err := s.secretRepo.Count(ctx, secretsDomain.Filter{}); err != nil {
		health.Status = HealthUnavailable
		return health, nil
	}
	health.Storage = true

	health.Status = HealthOK
	for _, p := range health.Providers {
		if !p.Reachable {
			health.Status = HealthDegraded
			break
		}
	}
	return health, nil
}

// SweepExpired transitions active secrets whose expiry has passed to expired,
// one batch at a time. Records that lose their compare-and-swap to a
// concurrent write are left for the next scan. Nothing is ever deleted.
func (s *SecretManager) SweepExpired(ctx context.Context, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 100
	}

	swept := 0
	for {
		if err := ctx.Err(); err != nil {
			return swept, err
		}

		now := time.Now().UTC()
		filter := secretsDomain.Filter{
			Status:        secretsDomain.StatusActive,
			ExpiresBefore: &now,
		}
		batch, err := s.secretRepo.List(ctx, filter, batchSize, 0)
		if err != nil {
			return swept, err
		}
		if len(batch) == 0 {
			return swept, nil
		}

		transitioned := 0
		for _, secret := range batch {
			next := secret.Clone()
			next.Status = secretsDomain.StatusExpired
			next.UpdatedAt = time.Now().UTC()

			err := s.secretRepo.Update(ctx, next, secret.Version)
			switch {
			case err == nil:
				transitioned++
			case apperrors.Is(err, apperrors.ErrConflict), apperrors.Is(err, apperrors.ErrNotFound):
				// Lost to a concurrent write or delete; the next scan
				// re-evaluates the record if it still exists.
			default:
				return swept, err
			}
		}
		swept += transitioned

		if len(batch) < batchSize || transitioned == 0 {
			return swept, nil
		}
	}
}

// LoadRecord resolves a secret into its provider-facing record, decrypting at
// delivery time so plaintext never sits in the event queue.
func (s *SecretManager) LoadRecord(
	ctx context.Context,
	secretID uuid.UUID,
) (*syncerDomain.Record, error) {
	secret, err := s.secretRepo.GetByID(ctx, secretID)
	if err != nil {
		return nil, err
	}

	plaintext, err := s.engine.Decrypt(secret.Envelope)
	if err != nil {
		return nil, err
	}

	return &syncerDomain.Record{
		Name:    secret.Name,
		Value:   plaintext,
		Version: secret.Version,
		Type:    string(secret.Type),
		Tags:    secret.Tags,
	}, nil
}

// resolve loads a secret through the index named by the identifier.
func (s *SecretManager) resolve(
	ctx context.Context,
	id secretsDomain.Identifier,
) (*secretsDomain.Secret, error) {
	if id.IsZero() {
		return nil, secretsDomain.ErrEmptyIdentifier
	}
	if id.IsByID() {
		return s.secretRepo.GetByID(ctx, id.ID())
	}
	return s.secretRepo.GetByName(ctx, id.Name())
}

// markError flags a secret whose envelope failed to decrypt. Best-effort: a
// concurrent write winning the compare-and-swap is only logged.
func (s *SecretManager) markError(ctx context.Context, secret *secretsDomain.Secret) {
	next := secret.Clone()
	next.Status = secretsDomain.StatusError
	next.UpdatedAt = time.Now().UTC()

	if err := s.secretRepo.Update(ctx, next, secret.Version); err != nil {
		s.logger.Warn("failed to mark secret status as error",
			slog.String("secret_id", secret.ID.String()),
			slog.Any("error", err),
		)
	}
}

// withRetry runs op, retrying only on version conflicts up to the configured
// attempt budget. The last conflict is surfaced to the caller.
func (s *SecretManager) withRetry(op func() error) error {
	var err error
	for attempt := 0; attempt < s.retryAttempts; attempt++ {
		err = op()
		if err == nil || !apperrors.Is(err, secretsDomain.ErrVersionConflict) {
			return err
		}
	}
	return err
}

// validateCreateInput checks the required create fields.
func validateCreateInput(input CreateSecretInput) error {
	if input.Name == "" {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "secret name is required")
	}
	if len(input.Value) == 0 {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "secret value is required")
	}
	if _, err := secretsDomain.ParseSecretType(string(input.Type)); err != nil {
		return err
	}
	return nil
}

// cloneTags copies a tag map so callers cannot mutate stored state.
func cloneTags(tags map[string]string) map[string]string {
	if tags == nil {
		return nil
	}
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		out[k] = v
	}
	return out
}
