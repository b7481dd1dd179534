package domain

import (
	"github.com/shieldops/secrets/internal/errors"
)

// Syncer-specific error definitions.
var (
	// ErrSyncFailed indicates a provider call failed; the event stays queued for retry.
	ErrSyncFailed = errors.Wrap(errors.ErrUnavailable, "external sync failed")
	// ErrEventNotFound indicates the sync event does not exist.
	ErrEventNotFound = errors.Wrap(errors.ErrNotFound, "sync event not found")
	// ErrUnknownProvider indicates a provider name outside the configured set.
	ErrUnknownProvider = errors.Wrap(errors.ErrInvalidInput, "unknown sync provider")
)
