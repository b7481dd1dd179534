package domain

import (
	"github.com/google/uuid"
)

// Identifier names a secret either by its immutable ID or by its unique name.
// The tag makes resolution explicit instead of overloading a single string
// with a by_name flag.
type Identifier struct {
	id   uuid.UUID
	name string
	byID bool
}

// ByID builds an Identifier that resolves through the primary index.
func ByID(id uuid.UUID) Identifier {
	return Identifier{id: id, byID: true}
}

// ByName builds an Identifier that resolves through the name index.
func ByName(name string) Identifier {
	return Identifier{name: name}
}

// IsByID reports whether the identifier resolves by ID.
func (i Identifier) IsByID() bool {
	return i.byID
}

// ID returns the secret ID; only meaningful when IsByID is true.
func (i Identifier) ID() uuid.UUID {
	return i.id
}

// Name returns the secret name; only meaningful when IsByID is false.
func (i Identifier) Name() string {
	return i.name
}

// IsZero reports whether the identifier carries neither an id nor a name.
func (i Identifier) IsZero() bool {
	if i.byID {
		return i.id == uuid.Nil
	}
	return i.name == ""
}

// String renders the identifier for logging and audit records.
func (i Identifier) String() string {
	if i.byID {
		return i.id.String()
	}
	return i.name
}
