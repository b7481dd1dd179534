package usecase

import (
	"sync/atomic"
)

// Counters tracks in-process operation totals reported by Stats. The sync
// processor feeds SyncSucceeded and SyncFailed so external delivery outcomes
// land in the same place as local operation outcomes.
type Counters struct {
	access    atomic.Uint64
	rotations atomic.Uint64
	errors    atomic.Uint64
	syncs     atomic.Uint64
}

// NewCounters creates a zeroed counter set.
func NewCounters() *Counters {
	return &Counters{}
}

// AccessRecorded counts one successful value read.
func (c *Counters) AccessRecorded() {
	c.access.Add(1)
}

// RotationRecorded counts one completed rotation.
func (c *Counters) RotationRecorded() {
	c.rotations.Add(1)
}

// ErrorRecorded counts one failed operation.
func (c *Counters) ErrorRecorded() {
	c.errors.Add(1)
}

// SyncSucceeded counts one sync event delivered to all providers.
func (c *Counters) SyncSucceeded() {
	c.syncs.Add(1)
}

// SyncFailed counts a failed delivery attempt as an error. The sync counter
// stays untouched so it only ever reflects completed deliveries.
func (c *Counters) SyncFailed() {
	c.errors.Add(1)
}

// CounterSnapshot is a point-in-time copy of the counters.
type CounterSnapshot struct {
	Access    uint64
	Rotations uint64
	Errors    uint64
	Syncs     uint64
}

// Snapshot returns the current counter values.
func (c *Counters) Snapshot() CounterSnapshot {
	return CounterSnapshot{
		Access:    c.access.Load(),
		Rotations: c.rotations.Load(),
		Errors:    c.errors.Load(),
		Syncs:     c.syncs.Load(),
	}
}
