// Package repository implements data persistence for secret management.
// Repositories support PostgreSQL, MySQL, and an in-memory store, all with
// compare-and-swap versioned updates and a unique name index.
package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	secretsDomain "github.com/shieldops/secrets/internal/secrets/domain"
)

// MemorySecretRepository implements Secret persistence in process memory.
// Useful for tests and single-node deployments without a database. All
// mutation runs under a single mutex, so compare-and-swap and the name
// uniqueness index are always consistent.
type MemorySecretRepository struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*secretsDomain.Secret
	nameIdx map[string]uuid.UUID
}

// NewMemorySecretRepository creates an empty in-memory Secret repository.
func NewMemorySecretRepository() *MemorySecretRepository {
	return &MemorySecretRepository{
		byID:    make(map[uuid.UUID]*secretsDomain.Secret),
		nameIdx: make(map[string]uuid.UUID),
	}
}

// Create inserts a new secret, enforcing name uniqueness.
func (m *MemorySecretRepository) Create(_ context.Context, secret *secretsDomain.Secret) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.nameIdx[secret.Name]; exists {
		return secretsDomain.ErrNameTaken
	}
	if _, exists := m.byID[secret.ID]; exists {
		return secretsDomain.ErrNameTaken
	}

	stored := secret.Clone()
	m.byID[secret.ID] = stored
	m.nameIdx[secret.Name] = secret.ID
	return nil
}

// GetByID retrieves a secret by its immutable identifier.
func (m *MemorySecretRepository) GetByID(_ context.Context, id uuid.UUID) (*secretsDomain.Secret, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	secret, ok := m.byID[id]
	if !ok {
		return nil, secretsDomain.ErrSecretNotFound
	}
	return m.export(secret), nil
}

// GetByName retrieves a secret through the name index.
func (m *MemorySecretRepository) GetByName(_ context.Context, name string) (*secretsDomain.Secret, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.nameIdx[name]
	if !ok {
		return nil, secretsDomain.ErrSecretNotFound
	}
	return m.export(m.byID[id]), nil
}

// Update replaces the stored record if its version still equals
// expectedVersion. Rename keeps the name index consistent and rejects a name
// already held by another secret.
func (m *MemorySecretRepository) Update(
	_ context.Context,
	secret *secretsDomain.Secret,
	expectedVersion uint,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.byID[secret.ID]
	if !ok {
		return secretsDomain.ErrSecretNotFound
	}
	if current.Version != expectedVersion {
		return secretsDomain.ErrVersionConflict
	}
	if secret.Name != current.Name {
		if _, taken := m.nameIdx[secret.Name]; taken {
			return secretsDomain.ErrNameTaken
		}
		delete(m.nameIdx, current.Name)
		m.nameIdx[secret.Name] = secret.ID
	}

	stored := secret.Clone()
	stored.AccessCount = current.AccessCount
	stored.LastAccessedAt = current.LastAccessedAt
	m.byID[secret.ID] = stored
	return nil
}

// Delete removes a secret and its name index entry permanently.
func (m *MemorySecretRepository) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	secret, ok := m.byID[id]
	if !ok {
		return secretsDomain.ErrSecretNotFound
	}
	delete(m.nameIdx, secret.Name)
	delete(m.byID, id)
	return nil
}

// RecordAccess increments the access counter and stamps the last read time
// without touching the version.
func (m *MemorySecretRepository) RecordAccess(_ context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	secret, ok := m.byID[id]
	if !ok {
		return secretsDomain.ErrSecretNotFound
	}
	secret.AccessCount++
	t := at
	secret.LastAccessedAt = &t
	return nil
}

// List returns secrets matching the filter, newest first, paginated.
func (m *MemorySecretRepository) List(
	_ context.Context,
	filter secretsDomain.Filter,
	limit, offset int,
) ([]*secretsDomain.Secret, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := make([]*secretsDomain.Secret, 0)
	for _, secret := range m.byID {
		if filter.Matches(secret) {
			matches = append(matches, m.export(secret))
		}
	}
	return paginate(matches, limit, offset), nil
}

// Count returns the number of secrets matching the filter.
func (m *MemorySecretRepository) Count(_ context.Context, filter secretsDomain.Filter) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var count uint64
	for _, secret := range m.byID {
		if filter.Matches(secret) {
			count++
		}
	}
	return count, nil
}

// Search returns secrets whose selected fields contain the query,
// case-insensitive, newest first, paginated.
func (m *MemorySecretRepository) Search(
	_ context.Context,
	query string,
	fields secretsDomain.SearchFields,
	limit, offset int,
) ([]*secretsDomain.Secret, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := make([]*secretsDomain.Secret, 0)
	for _, secret := range m.byID {
		if secret.MatchesQuery(query, fields) {
			matches = append(matches, m.export(secret))
		}
	}
	return paginate(matches, limit, offset), nil
}

// Stats returns secret counts grouped by type and by status.
func (m *MemorySecretRepository) Stats(
	_ context.Context,
) (map[secretsDomain.SecretType]uint64, map[secretsDomain.SecretStatus]uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byType := make(map[secretsDomain.SecretType]uint64)
	byStatus := make(map[secretsDomain.SecretStatus]uint64)
	for _, secret := range m.byID {
		byType[secret.Type]++
		byStatus[secret.Status]++
	}
	return byType, byStatus, nil
}

// export copies a stored record so callers cannot mutate the store.
func (m *MemorySecretRepository) export(secret *secretsDomain.Secret) *secretsDomain.Secret {
	return secret.Clone()
}

// paginate orders newest first (id as tie-break) and applies offset/limit.
func paginate(secrets []*secretsDomain.Secret, limit, offset int) []*secretsDomain.Secret {
	sort.Slice(secrets, func(i, j int) bool {
		if !secrets[i].CreatedAt.Equal(secrets[j].CreatedAt) {
			return secrets[i].CreatedAt.After(secrets[j].CreatedAt)
		}
		return secrets[i].ID.String() > secrets[j].ID.String()
	})

	if offset >= len(secrets) {
		return []*secretsDomain.Secret{}
	}
	secrets = secrets[offset:]
	if limit > 0 && limit < len(secrets) {
		secrets = secrets[:limit]
	}
	return secrets
}
