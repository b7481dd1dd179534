// Package domain defines the entities used for best-effort mirroring of
// secrets to external providers. Mutations enqueue a sync event in the same
// transaction as the local write; a background processor delivers it later, so
// provider latency or outages never touch the request path.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Operation is the kind of change a sync event mirrors outward.
type Operation string

const (
	OperationPush   Operation = "push"
	OperationDelete Operation = "delete"
)

// EventStatus represents the delivery state of a sync event.
type EventStatus string

const (
	EventStatusPending   EventStatus = "pending"
	EventStatusProcessed EventStatus = "processed"
	EventStatusFailed    EventStatus = "failed"
)

// Event is one pending outward mirror of a secret change. It carries only
// identifying metadata; the processor re-reads and decrypts the secret at
// delivery time so plaintext is never stored in the queue.
type Event struct {
	ID            uuid.UUID
	SecretID      uuid.UUID
	SecretName    string
	SecretVersion uint
	Operation     Operation
	Status        EventStatus
	Attempts      int
	LastError     string
	CreatedAt     time.Time
	ScheduledAt   time.Time
	ProcessedAt   *time.Time
}

// NewEvent builds a pending sync event for a secret change.
func NewEvent(secretID uuid.UUID, name string, version uint, op Operation) *Event {
	now := time.Now().UTC()
	return &Event{
		ID:            uuid.Must(uuid.NewV7()),
		SecretID:      secretID,
		SecretName:    name,
		SecretVersion: version,
		Operation:     op,
		Status:        EventStatusPending,
		CreatedAt:     now,
		ScheduledAt:   now,
	}
}

// Record is the provider-facing view of a secret pushed outward.
type Record struct {
	Name    string
	Value   []byte
	Version uint
	Type    string
	Tags    map[string]string
}

// ProviderHealth reports the last known reachability of one external provider.
type ProviderHealth struct {
	Name      string
	Reachable bool
	CheckedAt time.Time
	Error     string
}
