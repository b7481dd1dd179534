package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shieldops/secrets/internal/database"
	secretsDomain "github.com/shieldops/secrets/internal/secrets/domain"
	"github.com/shieldops/secrets/internal/syncer/domain"
	"github.com/shieldops/secrets/internal/syncer/provider"
	"github.com/shieldops/secrets/internal/syncer/repository"
)

type fakeProvider struct {
	name     string
	pushErr  error
	pings    atomic.Int64
	pingErr  error
	pushes   []domain.Record
	deletes  []string
	slowness time.Duration
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Push(ctx context.Context, record domain.Record) error {
	if f.slowness > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(f.slowness):
		}
	}
	if f.pushErr != nil {
		return f.pushErr
	}
	f.pushes = append(f.pushes, record)
	return nil
}

func (f *fakeProvider) Pull(_ context.Context, _ string) ([]byte, error) {
	return nil, domain.ErrSyncFailed
}

func (f *fakeProvider) Delete(_ context.Context, name string) error {
	f.deletes = append(f.deletes, name)
	return nil
}

func (f *fakeProvider) Ping(_ context.Context) error {
	f.pings.Add(1)
	return f.pingErr
}

type fakeSource struct {
	records map[uuid.UUID]*domain.Record
}

func (f *fakeSource) LoadRecord(_ context.Context, id uuid.UUID) (*domain.Record, error) {
	record, ok := f.records[id]
	if !ok {
		return nil, secretsDomain.ErrSecretNotFound
	}
	return record, nil
}

type fakeCounters struct {
	succeeded atomic.Int64
	failed    atomic.Int64
}

func (f *fakeCounters) SyncSucceeded() { f.succeeded.Add(1) }
func (f *fakeCounters) SyncFailed()    { f.failed.Add(1) }

func newTestSyncer(providers []provider.Provider, source SecretSource) (*Syncer, *repository.MemorySyncEventRepository, *fakeCounters) {
	repo := repository.NewMemorySyncEventRepository()
	counters := &fakeCounters{}
	syncer := NewSyncer(
		Config{
			Interval:     time.Second,
			Timeout:      100 * time.Millisecond,
			BatchSize:    50,
			MaxRetries:   3,
			RetryBackoff: time.Minute,
		},
		database.NewNoopTxManager(),
		repo,
		providers,
		source,
		counters,
		slog.New(slog.DiscardHandler),
	)
	return syncer, repo, counters
}

func TestSyncerProcessPushEvent(t *testing.T) {
	ctx := context.Background()
	secretID := uuid.Must(uuid.NewV7())
	prov := &fakeProvider{name: "vault"}
	source := &fakeSource{records: map[uuid.UUID]*domain.Record{
		secretID: {Name: "db-password", Value: []byte("s3cr3t"), Version: 2},
	}}
	syncer, repo, counters := newTestSyncer([]provider.Provider{prov}, source)

	event := domain.NewEvent(secretID, "db-password", 2, domain.OperationPush)
	require.NoError(t, syncer.Enqueue(ctx, event))
	require.NoError(t, syncer.ProcessEvents(ctx))

	require.Len(t, prov.pushes, 1)
	assert.Equal(t, "db-password", prov.pushes[0].Name)
	assert.Equal(t, []byte("s3cr3t"), prov.pushes[0].Value)
	assert.Equal(t, int64(1), counters.succeeded.Load())
	assert.Equal(t, int64(0), counters.failed.Load())

	pending, err := repo.GetPendingEvents(ctx, 50)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestSyncerProcessDeleteEvent(t *testing.T) {
	ctx := context.Background()
	prov := &fakeProvider{name: "aws"}
	syncer, _, counters := newTestSyncer([]provider.Provider{prov}, &fakeSource{})

	event := domain.NewEvent(uuid.Must(uuid.NewV7()), "doomed", 1, domain.OperationDelete)
	require.NoError(t, syncer.Enqueue(ctx, event))
	require.NoError(t, syncer.ProcessEvents(ctx))

	assert.Equal(t, []string{"doomed"}, prov.deletes)
	assert.Equal(t, int64(1), counters.succeeded.Load())
}

func TestSyncerFailureSchedulesRetry(t *testing.T) {
	ctx := context.Background()
	prov := &fakeProvider{name: "vault", pushErr: errors.New("connection refused")}
	secretID := uuid.Must(uuid.NewV7())
	source := &fakeSource{records: map[uuid.UUID]*domain.Record{
		secretID: {Name: "db-password", Value: []byte("v"), Version: 1},
	}}
	syncer, repo, counters := newTestSyncer([]provider.Provider{prov}, source)

	event := domain.NewEvent(secretID, "db-password", 1, domain.OperationPush)
	require.NoError(t, syncer.Enqueue(ctx, event))
	require.NoError(t, syncer.ProcessEvents(ctx))

	assert.Equal(t, int64(1), counters.failed.Load())
	assert.Equal(t, int64(0), counters.succeeded.Load())

	// The event is rescheduled into the future, so it is not due yet.
	due, err := repo.GetPendingEvents(ctx, 50)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestSyncerExhaustedRetriesParksEvent(t *testing.T) {
	ctx := context.Background()
	prov := &fakeProvider{name: "vault", pushErr: errors.New("connection refused")}
	secretID := uuid.Must(uuid.NewV7())
	source := &fakeSource{records: map[uuid.UUID]*domain.Record{
		secretID: {Name: "db-password", Value: []byte("v"), Version: 1},
	}}
	syncer, repo, counters := newTestSyncer([]provider.Provider{prov}, source)

	event := domain.NewEvent(secretID, "db-password", 1, domain.OperationPush)
	event.Attempts = 2 // One attempt away from the budget
	require.NoError(t, syncer.Enqueue(ctx, event))
	require.NoError(t, syncer.ProcessEvents(ctx))

	assert.Equal(t, int64(1), counters.failed.Load())

	// Parked as failed: no longer pending even after the backoff window.
	due, err := repo.GetPendingEvents(ctx, 50)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestSyncerPushForDeletedSecretIsProcessed(t *testing.T) {
	ctx := context.Background()
	prov := &fakeProvider{name: "vault"}
	syncer, repo, counters := newTestSyncer([]provider.Provider{prov}, &fakeSource{})

	event := domain.NewEvent(uuid.Must(uuid.NewV7()), "gone", 1, domain.OperationPush)
	require.NoError(t, syncer.Enqueue(ctx, event))
	require.NoError(t, syncer.ProcessEvents(ctx))

	assert.Empty(t, prov.pushes)
	assert.Equal(t, int64(1), counters.succeeded.Load())

	pending, err := repo.GetPendingEvents(ctx, 50)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestSyncerProviderCallIsTimeBounded(t *testing.T) {
	ctx := context.Background()
	prov := &fakeProvider{name: "vault", slowness: time.Second}
	secretID := uuid.Must(uuid.NewV7())
	source := &fakeSource{records: map[uuid.UUID]*domain.Record{
		secretID: {Name: "slow", Value: []byte("v"), Version: 1},
	}}
	syncer, _, counters := newTestSyncer([]provider.Provider{prov}, source)

	event := domain.NewEvent(secretID, "slow", 1, domain.OperationPush)
	require.NoError(t, syncer.Enqueue(ctx, event))

	start := time.Now()
	require.NoError(t, syncer.ProcessEvents(ctx))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, int64(1), counters.failed.Load())
}

func TestSyncerHealth(t *testing.T) {
	ctx := context.Background()
	healthy := &fakeProvider{name: "vault"}
	unhealthy := &fakeProvider{name: "aws", pingErr: errors.New("dial tcp: timeout")}
	syncer, _, _ := newTestSyncer([]provider.Provider{healthy, unhealthy}, &fakeSource{})

	assert.Empty(t, syncer.Health())

	syncer.RefreshHealth(ctx)

	health := syncer.Health()
	require.Len(t, health, 2)
	assert.Equal(t, "vault", health[0].Name)
	assert.True(t, health[0].Reachable)
	assert.Equal(t, "aws", health[1].Name)
	assert.False(t, health[1].Reachable)
	assert.Contains(t, health[1].Error, "timeout")
}

func TestSyncerEnqueueWithoutProvidersIsNoop(t *testing.T) {
	ctx := context.Background()
	syncer, repo, _ := newTestSyncer(nil, &fakeSource{})

	event := domain.NewEvent(uuid.Must(uuid.NewV7()), "unmirrored", 1, domain.OperationPush)
	require.NoError(t, syncer.Enqueue(ctx, event))

	pending, err := repo.GetPendingEvents(ctx, 50)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
