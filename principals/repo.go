package principals

import "errors"

// ErrNotFound is the canonical miss for principal lookups. Callers branch on
// it to separate "no such principal" from a failing store.
var ErrNotFound = errors.New("principal not found")

// Repo is the credential store adapter for principal records. The store owns
// the records exclusively; every token validation re-reads the current
// session marker through it, so a committed marker write is immediately
// visible to all validators.
type Repo interface {
	Upsert(principal *Principal) error
	Delete(id string) error
	GetByID(id string) (*Principal, error)
	GetByEmail(email string) (*Principal, error)

	// SetSessionMarker overwrites the principal's marker unconditionally.
	// An empty marker means no live session.
	SetSessionMarker(id string, marker string) error
}
