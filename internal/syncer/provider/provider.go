// Package provider implements external secret backend adapters. Providers
// mirror secrets outward on a best-effort basis; every call is expected to be
// wrapped in a bounded timeout by the caller.
package provider

import (
	"context"

	syncerDomain "github.com/shieldops/secrets/internal/syncer/domain"
)

// Provider is the capability interface implemented per external backend.
type Provider interface {
	// Name identifies the provider in health reports and logs.
	Name() string

	// Push mirrors a secret value outward. Idempotent per secret version.
	Push(ctx context.Context, record syncerDomain.Record) error

	// Pull retrieves the value currently held by the backend.
	Pull(ctx context.Context, name string) ([]byte, error)

	// Delete removes the secret from the backend. Deleting an absent secret
	// is not an error.
	Delete(ctx context.Context, name string) error

	// Ping verifies the backend is reachable and authenticated.
	Ping(ctx context.Context) error
}
