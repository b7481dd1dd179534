package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shieldops/secrets/internal/audit"
	"github.com/shieldops/secrets/internal/database"
	secretsDomain "github.com/shieldops/secrets/internal/secrets/domain"
	"github.com/shieldops/secrets/internal/secrets/repository"
	syncerDomain "github.com/shieldops/secrets/internal/syncer/domain"
	syncerProvider "github.com/shieldops/secrets/internal/syncer/provider"
	syncerRepository "github.com/shieldops/secrets/internal/syncer/repository"
	syncerUsecase "github.com/shieldops/secrets/internal/syncer/usecase"
)

// recordingProvider mirrors pushes into memory, optionally failing every call.
type recordingProvider struct {
	mu      sync.Mutex
	failing bool
	pushed  map[string]syncerDomain.Record
	deleted []string
}

func newRecordingProvider(failing bool) *recordingProvider {
	return &recordingProvider{
		failing: failing,
		pushed:  make(map[string]syncerDomain.Record),
	}
}

func (p *recordingProvider) Name() string { return "recording" }

func (p *recordingProvider) Push(_ context.Context, record syncerDomain.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failing {
		return errors.New("provider unavailable")
	}
	p.pushed[record.Name] = record
	return nil
}

func (p *recordingProvider) Pull(_ context.Context, name string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	record, ok := p.pushed[name]
	if !ok {
		return nil, errors.New("not found")
	}
	return record.Value, nil
}

func (p *recordingProvider) Delete(_ context.Context, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failing {
		return errors.New("provider unavailable")
	}
	delete(p.pushed, name)
	p.deleted = append(p.deleted, name)
	return nil
}

func (p *recordingProvider) Ping(_ context.Context) error {
	if p.failing {
		return errors.New("provider unavailable")
	}
	return nil
}

func (p *recordingProvider) record(name string) (syncerDomain.Record, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	record, ok := p.pushed[name]
	return record, ok
}

// newSyncedManagerWithProvider wires a manager to a real sync processor
// backed by the in-memory event queue and the given provider.
func newSyncedManagerWithProvider(
	t *testing.T,
	p *recordingProvider,
) (*SecretManager, *syncerUsecase.Syncer, *Counters) {
	t.Helper()

	counters := NewCounters()
	manager := NewSecretManager(
		database.NewNoopTxManager(),
		repository.NewMemorySecretRepository(),
		newTestEngine(t),
		nil,
		counters,
		audit.NopLogger{},
		slog.New(slog.DiscardHandler),
		3,
	)

	syncer := syncerUsecase.NewSyncer(
		syncerUsecase.Config{
			Interval:     time.Second,
			Timeout:      time.Second,
			BatchSize:    10,
			MaxRetries:   3,
			RetryBackoff: time.Minute,
		},
		database.NewNoopTxManager(),
		syncerRepository.NewMemorySyncEventRepository(),
		[]syncerProvider.Provider{p},
		manager,
		counters,
		slog.New(slog.DiscardHandler),
	)
	manager.notifier = syncer
	return manager, syncer, counters
}

func TestSecretManager_ProviderOutage(t *testing.T) {
	provider := newRecordingProvider(true)
	manager, syncer, counters := newSyncedManagerWithProvider(t, provider)
	ctx := context.Background()

	// The local write succeeds even though the provider is down.
	created, err := manager.Create(ctx, testCreateInput("survives-outage"))
	require.NoError(t, err)

	require.NoError(t, syncer.ProcessEvents(ctx))

	got, err := manager.Get(ctx, secretsDomain.ByID(created.ID))
	require.NoError(t, err)
	assert.Equal(t, []byte("s3cret-value"), got.Plaintext)

	snapshot := counters.Snapshot()
	assert.Equal(t, uint64(1), snapshot.Errors)
	assert.Equal(t, uint64(0), snapshot.Syncs)
}

func TestSecretManager_RotateEndToEnd(t *testing.T) {
	provider := newRecordingProvider(false)
	manager, syncer, counters := newSyncedManagerWithProvider(t, provider)
	ctx := context.Background()

	created, err := manager.Create(ctx, testCreateInput("end-to-end"))
	require.NoError(t, err)
	require.NoError(t, syncer.ProcessEvents(ctx))

	mirrored, ok := provider.record("end-to-end")
	require.True(t, ok)
	assert.Equal(t, []byte("s3cret-value"), mirrored.Value)
	assert.Equal(t, uint(1), mirrored.Version)

	rotated, err := manager.Rotate(ctx, secretsDomain.ByID(created.ID), nil)
	require.NoError(t, err)
	require.NoError(t, syncer.ProcessEvents(ctx))

	mirrored, ok = provider.record("end-to-end")
	require.True(t, ok)
	assert.Equal(t, rotated.Plaintext, mirrored.Value)
	assert.Equal(t, uint(2), mirrored.Version)

	require.NoError(t, manager.Delete(ctx, secretsDomain.ByID(created.ID)))
	require.NoError(t, syncer.ProcessEvents(ctx))

	_, ok = provider.record("end-to-end")
	assert.False(t, ok)

	snapshot := counters.Snapshot()
	assert.Equal(t, uint64(3), snapshot.Syncs)
	assert.Equal(t, uint64(0), snapshot.Errors)
}
