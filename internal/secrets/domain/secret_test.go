package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shieldops/secrets/internal/errors"
)

func TestParseSecretType(t *testing.T) {
	st, err := ParseSecretType("api_key")
	require.NoError(t, err)
	assert.Equal(t, TypeAPIKey, st)

	_, err = ParseSecretType("totp")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestParseSecretStatus(t *testing.T) {
	st, err := ParseSecretStatus("pending_rotation")
	require.NoError(t, err)
	assert.Equal(t, StatusPendingRotation, st)

	_, err = ParseSecretStatus("archived")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestSecretIsExpired(t *testing.T) {
	now := time.Now().UTC()

	secret := &Secret{}
	assert.False(t, secret.IsExpired(now))

	past := now.Add(-time.Hour)
	secret.ExpiresAt = &past
	assert.True(t, secret.IsExpired(now))

	future := now.Add(time.Hour)
	secret.ExpiresAt = &future
	assert.False(t, secret.IsExpired(now))
}

func TestSecretMatchesTags(t *testing.T) {
	secret := &Secret{Tags: map[string]string{"env": "prod", "team": "payments"}}

	assert.True(t, secret.MatchesTags(nil))
	assert.True(t, secret.MatchesTags(map[string]string{"env": "prod"}))
	assert.True(t, secret.MatchesTags(map[string]string{"env": "prod", "team": "payments"}))
	assert.False(t, secret.MatchesTags(map[string]string{"env": "staging"}))
	assert.False(t, secret.MatchesTags(map[string]string{"region": "eu"}))
}

func TestSecretMatchesQuery(t *testing.T) {
	secret := &Secret{
		Name:        "prod-db-password",
		Description: "Primary database credentials",
		Tags:        map[string]string{"env": "Production"},
	}
	all := DefaultSearchFields()

	assert.True(t, secret.MatchesQuery("DB-PASS", all))
	assert.True(t, secret.MatchesQuery("primary", all))
	assert.True(t, secret.MatchesQuery("production", all))
	assert.False(t, secret.MatchesQuery("staging", all))

	nameOnly := SearchFields{Name: true}
	assert.False(t, secret.MatchesQuery("primary", nameOnly))
}

func TestSecretClone(t *testing.T) {
	now := time.Now().UTC()
	secret := &Secret{
		ID:        uuid.Must(uuid.NewV7()),
		Name:      "db-password",
		Plaintext: []byte("s3cr3t"),
		Tags:      map[string]string{"env": "prod"},
		ExpiresAt: &now,
	}

	clone := secret.Clone()
	assert.Nil(t, clone.Plaintext)
	assert.Equal(t, secret.Name, clone.Name)

	clone.Tags["env"] = "staging"
	assert.Equal(t, "prod", secret.Tags["env"])

	*clone.ExpiresAt = now.Add(time.Hour)
	assert.Equal(t, now, *secret.ExpiresAt)
}

func TestIdentifier(t *testing.T) {
	id := uuid.Must(uuid.NewV7())

	byID := ByID(id)
	assert.True(t, byID.IsByID())
	assert.Equal(t, id, byID.ID())
	assert.False(t, byID.IsZero())
	assert.Equal(t, id.String(), byID.String())

	byName := ByName("db-password")
	assert.False(t, byName.IsByID())
	assert.Equal(t, "db-password", byName.Name())
	assert.Equal(t, "db-password", byName.String())

	assert.True(t, ByID(uuid.Nil).IsZero())
	assert.True(t, ByName("").IsZero())
}

func TestFilterMatches(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	secret := &Secret{
		Type:      TypePassword,
		Status:    StatusActive,
		Owner:     "platform",
		Tags:      map[string]string{"env": "prod"},
		ExpiresAt: &past,
	}

	assert.True(t, Filter{}.Matches(secret))
	assert.True(t, Filter{Type: TypePassword, Status: StatusActive}.Matches(secret))
	assert.True(t, Filter{Owner: "platform", Tags: map[string]string{"env": "prod"}}.Matches(secret))
	assert.True(t, Filter{ExpiresBefore: &now}.Matches(secret))

	assert.False(t, Filter{Type: TypeAPIKey}.Matches(secret))
	assert.False(t, Filter{Status: StatusRevoked}.Matches(secret))
	assert.False(t, Filter{Owner: "security"}.Matches(secret))
	assert.False(t, Filter{Tags: map[string]string{"env": "staging"}}.Matches(secret))

	noExpiry := &Secret{Status: StatusActive}
	assert.False(t, Filter{ExpiresBefore: &now}.Matches(noExpiry))
}

func TestParseSearchFields(t *testing.T) {
	fields, err := ParseSearchFields(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultSearchFields(), fields)

	fields, err = ParseSearchFields([]string{"name", "tags"})
	require.NoError(t, err)
	assert.Equal(t, SearchFields{Name: true, Tags: true}, fields)

	_, err = ParseSearchFields([]string{"owner"})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}
