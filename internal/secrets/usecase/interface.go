// Package usecase implements business logic orchestration for secret
// management. The manager coordinates the envelope encryption engine,
// repositories, and the external sync queue to provide versioned secret
// storage with optimistic concurrency control.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	secretsDomain "github.com/shieldops/secrets/internal/secrets/domain"
	syncerDomain "github.com/shieldops/secrets/internal/syncer/domain"
)

// SecretRepository defines the interface for Secret persistence operations.
type SecretRepository interface {
	Create(ctx context.Context, secret *secretsDomain.Secret) error
	GetByID(ctx context.Context, id uuid.UUID) (*secretsDomain.Secret, error)
	GetByName(ctx context.Context, name string) (*secretsDomain.Secret, error)
	// Update replaces the stored record only if its version still equals
	// expectedVersion, returning ErrVersionConflict otherwise.
	Update(ctx context.Context, secret *secretsDomain.Secret, expectedVersion uint) error
	Delete(ctx context.Context, id uuid.UUID) error
	RecordAccess(ctx context.Context, id uuid.UUID, at time.Time) error
	List(ctx context.Context, filter secretsDomain.Filter, limit, offset int) ([]*secretsDomain.Secret, error)
	Count(ctx context.Context, filter secretsDomain.Filter) (uint64, error)
	Search(
		ctx context.Context,
		query string,
		fields secretsDomain.SearchFields,
		limit, offset int,
	) ([]*secretsDomain.Secret, error)
	Stats(ctx context.Context) (map[secretsDomain.SecretType]uint64, map[secretsDomain.SecretStatus]uint64, error)
}

// SyncNotifier enqueues outward mirror events and reports provider health.
// Implemented by the sync processor; NopSyncNotifier serves deployments
// without external providers.
type SyncNotifier interface {
	Enqueue(ctx context.Context, event *syncerDomain.Event) error
	Health() []syncerDomain.ProviderHealth
}

// NopSyncNotifier discards sync events. Used when external sync is disabled.
type NopSyncNotifier struct{}

// Enqueue does nothing.
func (NopSyncNotifier) Enqueue(ctx context.Context, event *syncerDomain.Event) error {
	return nil
}

// Health reports no providers.
func (NopSyncNotifier) Health() []syncerDomain.ProviderHealth {
	return nil
}

// CreateSecretInput carries the fields for creating a new secret.
type CreateSecretInput struct {
	// Name is the unique logical key for the secret.
	Name string
	// Value is the plaintext to encrypt and store.
	Value []byte
	// Type classifies the credential.
	Type secretsDomain.SecretType
	// ExpiresInDays sets the expiry relative to creation; zero means no expiry.
	ExpiresInDays int
	// Tags are optional key/value labels.
	Tags map[string]string
	// Description is optional free-text metadata.
	Description string
	// Owner identifies who is responsible for the secret.
	Owner string
}

// UpdateSecretInput carries the fields for updating a secret. Nil fields are
// left unchanged; only a non-empty NewValue bumps the version.
type UpdateSecretInput struct {
	// NewValue replaces the encrypted value when non-empty.
	NewValue []byte
	// NewName renames the secret; the new name must be unused.
	NewName *string
	// NewDescription replaces the description.
	NewDescription *string
	// NewTags replaces the full tag set.
	NewTags map[string]string
}

// Health status values.
const (
	HealthOK          = "ok"
	HealthDegraded    = "degraded"
	HealthUnavailable = "unavailable"
)

// Health reports the manager's view of its dependencies. Built from cached
// provider state and a single storage probe; it never takes exclusive locks.
type Health struct {
	// Status is ok, degraded (a provider is unreachable), or unavailable
	// (storage is unreachable).
	Status string
	// Storage reports whether the secret store answered the probe.
	Storage bool
	// Providers carries the last known reachability of each sync provider.
	Providers []syncerDomain.ProviderHealth
	// CheckedAt is when this snapshot was taken.
	CheckedAt time.Time
}

// SecretUseCase defines the interface for secret management business logic.
type SecretUseCase interface {
	// Create encrypts and stores a new secret at version 1.
	Create(ctx context.Context, input CreateSecretInput) (*secretsDomain.Secret, error)

	// Get retrieves and decrypts a secret by ID or name, recording the access.
	// Expired secrets remain retrievable; expiry only drives the status sweep.
	//
	// Security Note: The returned Secret contains plaintext data in the
	// Plaintext field. Callers MUST zero this data after use by calling
	// cryptoDomain.Zero(secret.Plaintext).
	Get(ctx context.Context, id secretsDomain.Identifier) (*secretsDomain.Secret, error)

	// GetMetadata retrieves a secret without decrypting its value. Unlike Get
	// it does not count as an access.
	GetMetadata(ctx context.Context, id secretsDomain.Identifier) (*secretsDomain.Secret, error)

	// Update applies a partial update. A value change re-encrypts under a
	// fresh data key and bumps the version by one; metadata-only updates keep
	// the version.
	Update(
		ctx context.Context,
		id secretsDomain.Identifier,
		input UpdateSecretInput,
	) (*secretsDomain.Secret, error)

	// Rotate replaces the secret value, generating one appropriate for the
	// secret type when newValue is empty. Rotation always bumps the version
	// and resets the status to active.
	Rotate(
		ctx context.Context,
		id secretsDomain.Identifier,
		newValue []byte,
	) (*secretsDomain.Secret, error)

	// Delete permanently removes a secret. There is no recovery window.
	Delete(ctx context.Context, id secretsDomain.Identifier) error

	// List returns secrets matching the filter plus the total match count.
	List(
		ctx context.Context,
		filter secretsDomain.Filter,
		limit, offset int,
	) ([]*secretsDomain.Secret, uint64, error)

	// Search returns secrets whose selected fields contain the query.
	Search(
		ctx context.Context,
		query string,
		fields secretsDomain.SearchFields,
		limit, offset int,
	) ([]*secretsDomain.Secret, error)

	// Stats aggregates stored secret counts with in-process operation counters.
	Stats(ctx context.Context) (*secretsDomain.Stats, error)

	// Health reports storage and provider reachability.
	Health(ctx context.Context) (*Health, error)

	// BulkCreate creates many secrets with per-item isolation: one failure
	// never aborts the remaining items.
	BulkCreate(ctx context.Context, inputs []CreateSecretInput) (*BulkResult, error)

	// BulkDelete deletes many secrets with per-item isolation.
	BulkDelete(ctx context.Context, ids []secretsDomain.Identifier) (*BulkResult, error)

	// BulkRotate rotates many secrets with per-item isolation.
	BulkRotate(ctx context.Context, ids []secretsDomain.Identifier) (*BulkResult, error)

	// SweepExpired transitions active secrets whose expiry has passed to
	// expired, in batches. It returns the number of secrets transitioned and
	// never deletes anything.
	SweepExpired(ctx context.Context, batchSize int) (int, error)
}
