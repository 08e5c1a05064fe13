package fakeprincipalrepo

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tablepilot/auth-service/principals"
)

var _ principals.Repo = (*FakePrincipalRepo)(nil)

// FakePrincipalRepo is an in-memory principal store used in tests and for
// local development.
type FakePrincipalRepo struct {
	principals map[string]*principals.Principal
	emailIDs   map[string]string // email to principal id
	lock       sync.RWMutex
}

func NewFakePrincipalRepo() *FakePrincipalRepo {
	return &FakePrincipalRepo{
		principals: make(map[string]*principals.Principal),
		emailIDs:   make(map[string]string),
	}
}

func (pr *FakePrincipalRepo) Upsert(p *principals.Principal) error {
	pr.lock.Lock()
	defer pr.lock.Unlock()

	if p.ID == "" {
		p.ID = uuid.New().String()
	} else if existing, ok := pr.principals[p.ID]; ok && existing.Email != p.Email {
		// Drop the stale email index entry so the old address stops resolving.
		delete(pr.emailIDs, existing.Email)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	p.UpdatedAt = time.Now()

	cp := *p
	pr.principals[p.ID] = &cp
	pr.emailIDs[p.Email] = p.ID
	return nil
}

func (pr *FakePrincipalRepo) Delete(id string) error {
	pr.lock.Lock()
	defer pr.lock.Unlock()

	p, ok := pr.principals[id]
	if !ok {
		return principals.ErrNotFound
	}
	delete(pr.emailIDs, p.Email)
	delete(pr.principals, id)
	return nil
}

func (pr *FakePrincipalRepo) GetByID(id string) (*principals.Principal, error) {
	pr.lock.RLock()
	defer pr.lock.RUnlock()

	p, ok := pr.principals[id]
	if !ok {
		return nil, principals.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (pr *FakePrincipalRepo) GetByEmail(email string) (*principals.Principal, error) {
	pr.lock.RLock()
	defer pr.lock.RUnlock()

	id, ok := pr.emailIDs[email]
	if !ok {
		return nil, principals.ErrNotFound
	}
	cp := *pr.principals[id]
	return &cp, nil
}

func (pr *FakePrincipalRepo) SetSessionMarker(id string, marker string) error {
	pr.lock.Lock()
	defer pr.lock.Unlock()

	p, ok := pr.principals[id]
	if !ok {
		return principals.ErrNotFound
	}
	p.SessionMarker = marker
	p.UpdatedAt = time.Now()
	return nil
}
