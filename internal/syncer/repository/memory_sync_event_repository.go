package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	syncerDomain "github.com/shieldops/secrets/internal/syncer/domain"
)

// MemorySyncEventRepository keeps sync events in process memory. Used with the
// memory database driver and in tests.
type MemorySyncEventRepository struct {
	mu     sync.Mutex
	events map[uuid.UUID]*syncerDomain.Event
}

// NewMemorySyncEventRepository creates an empty in-memory sync event repository.
func NewMemorySyncEventRepository() *MemorySyncEventRepository {
	return &MemorySyncEventRepository{events: make(map[uuid.UUID]*syncerDomain.Event)}
}

// Create inserts a new sync event.
func (r *MemorySyncEventRepository) Create(_ context.Context, event *syncerDomain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *event
	r.events[event.ID] = &copied
	return nil
}

// GetPendingEvents retrieves due pending events, oldest first.
func (r *MemorySyncEventRepository) GetPendingEvents(
	_ context.Context,
	limit int,
) ([]*syncerDomain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	var due []*syncerDomain.Event
	for _, event := range r.events {
		if event.Status == syncerDomain.EventStatusPending && !event.ScheduledAt.After(now) {
			copied := *event
			due = append(due, &copied)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ScheduledAt.Before(due[j].ScheduledAt) })
	if limit > 0 && limit < len(due) {
		due = due[:limit]
	}
	return due, nil
}

// Update updates a sync event's delivery state.
func (r *MemorySyncEventRepository) Update(_ context.Context, event *syncerDomain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.events[event.ID]; !ok {
		return syncerDomain.ErrEventNotFound
	}
	copied := *event
	r.events[event.ID] = &copied
	return nil
}
