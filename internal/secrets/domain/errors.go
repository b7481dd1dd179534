package domain

import (
	"github.com/shieldops/secrets/internal/errors"
)

// Secret-specific error definitions.
var (
	// ErrSecretNotFound indicates the identifier did not resolve to a secret.
	ErrSecretNotFound = errors.Wrap(errors.ErrNotFound, "secret not found")
	// ErrNameTaken indicates the name is already used by another secret.
	ErrNameTaken = errors.Wrap(errors.ErrConflict, "secret name already in use")
	// ErrVersionConflict indicates a compare-and-swap lost against a concurrent write.
	ErrVersionConflict = errors.Wrap(errors.ErrConflict, "secret version conflict")
	// ErrUnknownSecretType indicates the secret type is not one of the enumerated values.
	ErrUnknownSecretType = errors.Wrap(errors.ErrInvalidInput, "unknown secret type")
	// ErrUnknownSecretStatus indicates the status is not one of the enumerated values.
	ErrUnknownSecretStatus = errors.Wrap(errors.ErrInvalidInput, "unknown secret status")
	// ErrEmptyIdentifier indicates an identifier with neither id nor name.
	ErrEmptyIdentifier = errors.Wrap(errors.ErrInvalidInput, "empty secret identifier")
	// ErrUnknownSearchField indicates a search field outside name/description/tags.
	ErrUnknownSearchField = errors.Wrap(errors.ErrInvalidInput, "unknown search field")
)
