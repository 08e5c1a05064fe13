// Package sessions implements the session registry: the single mutable
// marker per principal that ties token validity to the store. Rather than a
// revocation list, "log out everywhere" is one marker write; any token
// minted under the previous marker fails its next validation. The trade-off
// is at most one concurrent session per principal.
package sessions

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/pkg/errors"
	"github.com/tablepilot/auth-service/principals"
)

// markerLength is the number of random bytes per marker (256 bits).
const markerLength = 32

// Registry mints, clears and compares session markers. It holds no state of
// its own; the principal repo is the single point of truth, so a committed
// mint or clear is immediately visible to every validator.
type Registry struct {
	repo principals.Repo
}

// NewRegistry creates a Registry backed by the given principal repo.
func NewRegistry(repo principals.Repo) (*Registry, error) {
	if repo == nil {
		return nil, errors.New("[NewRegistry] principal repo is required")
	}
	return &Registry{repo: repo}, nil
}

// Mint generates a fresh marker from a cryptographically secure source,
// stores it on the principal and returns it for embedding into a token. Any
// prior marker is overwritten unconditionally: when two logins race, the
// last write wins and the loser's token fails on its next validation.
func (r *Registry) Mint(principalID string) (string, error) {
	bytes := make([]byte, markerLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", errors.Wrap(err, "[Registry.Mint] rand.Read")
	}

	marker := hex.EncodeToString(bytes)
	if err := r.repo.SetSessionMarker(principalID, marker); err != nil {
		return "", errors.Wrap(err, "[Registry.Mint] SetSessionMarker")
	}
	return marker, nil
}

// Clear removes the principal's marker, invalidating all outstanding tokens.
// Idempotent: clearing an already-absent marker is a no-op write.
func (r *Registry) Clear(principalID string) error {
	if err := r.repo.SetSessionMarker(principalID, ""); err != nil {
		return errors.Wrap(err, "[Registry.Clear] SetSessionMarker")
	}
	return nil
}

// Matches reports whether marker is the principal's current live marker. An
// absent stored marker matches nothing, including an empty candidate.
func (r *Registry) Matches(principalID, marker string) (bool, error) {
	p, err := r.repo.GetByID(principalID)
	if err != nil {
		return false, errors.Wrap(err, "[Registry.Matches] GetByID")
	}
	if p.SessionMarker == "" {
		return false, nil
	}
	return p.SessionMarker == marker, nil
}
