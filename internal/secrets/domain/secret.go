// Package domain defines the core domain models and types for secret
// management. Secrets carry an encrypted value envelope, typed metadata, and a
// monotonically increasing version used for optimistic concurrency control.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/shieldops/secrets/internal/crypto/domain"
)

// SecretType classifies what kind of credential a secret holds.
type SecretType string

// Supported secret types.
const (
	TypePassword             SecretType = "password"
	TypeAPIKey               SecretType = "api_key"
	TypeJWTToken             SecretType = "jwt_token"
	TypeEncryptionKey        SecretType = "encryption_key"
	TypeDatabaseCredentials  SecretType = "database_credentials"
	TypeExternalServiceToken SecretType = "external_service_token"
	TypeSSHKey               SecretType = "ssh_key"
	TypeCertificate          SecretType = "certificate"
	TypeConfigSecret         SecretType = "config_secret"
	TypeCustom               SecretType = "custom"
)

// SecretTypes lists all valid secret types.
var SecretTypes = []SecretType{
	TypePassword,
	TypeAPIKey,
	TypeJWTToken,
	TypeEncryptionKey,
	TypeDatabaseCredentials,
	TypeExternalServiceToken,
	TypeSSHKey,
	TypeCertificate,
	TypeConfigSecret,
	TypeCustom,
}

// ParseSecretType validates and converts a string to a SecretType.
func ParseSecretType(s string) (SecretType, error) {
	for _, t := range SecretTypes {
		if SecretType(s) == t {
			return t, nil
		}
	}
	return "", ErrUnknownSecretType
}

// SecretStatus represents the lifecycle state of a secret.
type SecretStatus string

// Lifecycle states.
const (
	StatusActive          SecretStatus = "active"
	StatusExpired         SecretStatus = "expired"
	StatusRevoked         SecretStatus = "revoked"
	StatusPendingRotation SecretStatus = "pending_rotation"
	StatusError           SecretStatus = "error"
)

// SecretStatuses lists all valid lifecycle states.
var SecretStatuses = []SecretStatus{
	StatusActive,
	StatusExpired,
	StatusRevoked,
	StatusPendingRotation,
	StatusError,
}

// ParseSecretStatus validates and converts a string to a SecretStatus.
func ParseSecretStatus(s string) (SecretStatus, error) {
	for _, st := range SecretStatuses {
		if SecretStatus(s) == st {
			return st, nil
		}
	}
	return "", ErrUnknownSecretStatus
}

// Secret represents an encrypted secret with metadata and versioning.
type Secret struct {
	// ID is the immutable unique identifier assigned at creation.
	ID uuid.UUID
	// Name is the logical key used to access the secret; unique within the store.
	Name string
	// Type classifies the credential held by this secret.
	Type SecretType
	// Status is the current lifecycle state.
	Status SecretStatus
	// Envelope contains the encrypted value and its wrapped data key.
	Envelope cryptoDomain.Envelope
	// Plaintext holds the decrypted value in memory only; must be zeroed after use.
	Plaintext []byte `json:"-"`
	// Version starts at 1 and increments by exactly 1 on every value-changing write.
	Version uint
	// Tags are arbitrary key/value labels used for filtering.
	Tags map[string]string
	// Description is free-text metadata.
	Description string
	// Owner identifies who is responsible for this secret.
	Owner string
	// AccessCount is incremented on every successful value read.
	AccessCount uint64
	// CreatedAt is the UTC timestamp when the secret was created.
	CreatedAt time.Time
	// UpdatedAt is the UTC timestamp of the last write.
	UpdatedAt time.Time
	// RotatedAt marks the last rotation (nil if never rotated).
	RotatedAt *time.Time
	// ExpiresAt marks when the secret expires (nil if it never expires).
	ExpiresAt *time.Time
	// LastAccessedAt marks the last value read (nil if never read).
	LastAccessedAt *time.Time
}

// IsExpired reports whether the secret's expiry time has passed at the given instant.
func (s *Secret) IsExpired(now time.Time) bool {
	return s.ExpiresAt != nil && s.ExpiresAt.Before(now)
}

// MatchesTags reports whether the secret's tags contain every key/value pair
// in filter. An empty filter matches everything.
func (s *Secret) MatchesTags(filter map[string]string) bool {
	for k, v := range filter {
		if s.Tags[k] != v {
			return false
		}
	}
	return true
}

// MatchesQuery reports whether query is a case-insensitive substring of any of
// the requested fields (name, description, or tag keys/values).
func (s *Secret) MatchesQuery(query string, fields SearchFields) bool {
	q := strings.ToLower(query)
	if fields.Name && strings.Contains(strings.ToLower(s.Name), q) {
		return true
	}
	if fields.Description && strings.Contains(strings.ToLower(s.Description), q) {
		return true
	}
	if fields.Tags {
		for k, v := range s.Tags {
			if strings.Contains(strings.ToLower(k), q) || strings.Contains(strings.ToLower(v), q) {
				return true
			}
		}
	}
	return false
}

// Clone returns a deep copy of the secret without plaintext.
func (s *Secret) Clone() *Secret {
	clone := *s
	clone.Plaintext = nil
	if s.Tags != nil {
		clone.Tags = make(map[string]string, len(s.Tags))
		for k, v := range s.Tags {
			clone.Tags[k] = v
		}
	}
	if s.RotatedAt != nil {
		t := *s.RotatedAt
		clone.RotatedAt = &t
	}
	if s.ExpiresAt != nil {
		t := *s.ExpiresAt
		clone.ExpiresAt = &t
	}
	if s.LastAccessedAt != nil {
		t := *s.LastAccessedAt
		clone.LastAccessedAt = &t
	}
	return &clone
}

// Stats aggregates secret counts and operation counters for reporting.
type Stats struct {
	TotalSecrets  uint64
	ByType        map[SecretType]uint64
	ByStatus      map[SecretStatus]uint64
	AccessCount   uint64
	RotationCount uint64
	ErrorCount    uint64
	SyncCount     uint64
}
