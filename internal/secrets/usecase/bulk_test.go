package usecase

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	secretsDomain "github.com/shieldops/secrets/internal/secrets/domain"
)

func TestSecretManager_BulkCreate(t *testing.T) {
	manager, _, _, _ := newTestManager(t, 3)
	ctx := context.Background()

	// The third item collides with the first by name.
	inputs := []CreateSecretInput{
		testCreateInput("bulk-a"),
		testCreateInput("bulk-b"),
		testCreateInput("bulk-a"),
		testCreateInput("bulk-c"),
	}

	result, err := manager.BulkCreate(ctx, inputs)
	require.NoError(t, err)
	assert.Equal(t, 4, result.Total)
	assert.Equal(t, 3, result.SuccessCount)
	assert.Equal(t, 1, result.ErrorCount)
	require.Len(t, result.Results, 4)

	// Results keep the input order.
	for i, r := range result.Results {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, inputs[i].Name, r.Name)
	}

	failures := 0
	for _, r := range result.Results {
		if !r.Success {
			failures++
			assert.Equal(t, "bulk-a", r.Name)
			assert.NotEmpty(t, r.Error)
			assert.Equal(t, uuid.Nil, r.ID)
		} else {
			assert.NotEqual(t, uuid.Nil, r.ID)
		}
	}
	assert.Equal(t, 1, failures)

	// The failed duplicate never touched the other items.
	_, total, err := manager.List(ctx, secretsDomain.Filter{}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), total)
}

func TestSecretManager_BulkDelete(t *testing.T) {
	manager, _, _, _ := newTestManager(t, 3)
	ctx := context.Background()

	a, err := manager.Create(ctx, testCreateInput("bulk-del-a"))
	require.NoError(t, err)
	b, err := manager.Create(ctx, testCreateInput("bulk-del-b"))
	require.NoError(t, err)

	ids := []secretsDomain.Identifier{
		secretsDomain.ByID(a.ID),
		secretsDomain.ByName("no-such-secret"),
		secretsDomain.ByID(b.ID),
	}

	result, err := manager.BulkDelete(ctx, ids)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 1, result.ErrorCount)
	assert.False(t, result.Results[1].Success)
	assert.NotEmpty(t, result.Results[1].Error)

	_, total, err := manager.List(ctx, secretsDomain.Filter{}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), total)
}

func TestSecretManager_BulkRotate(t *testing.T) {
	manager, repo, _, counters := newTestManager(t, 3)
	ctx := context.Background()

	a, err := manager.Create(ctx, testCreateInput("bulk-rot-a"))
	require.NoError(t, err)
	b, err := manager.Create(ctx, testCreateInput("bulk-rot-b"))
	require.NoError(t, err)

	ids := []secretsDomain.Identifier{
		secretsDomain.ByID(a.ID),
		secretsDomain.ByID(b.ID),
		secretsDomain.ByName("missing"),
	}

	result, err := manager.BulkRotate(ctx, ids)
	require.NoError(t, err)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 1, result.ErrorCount)

	for _, id := range []uuid.UUID{a.ID, b.ID} {
		secret, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, uint(2), secret.Version)
		assert.NotNil(t, secret.RotatedAt)
	}
	assert.Equal(t, uint64(2), counters.Snapshot().Rotations)
}
