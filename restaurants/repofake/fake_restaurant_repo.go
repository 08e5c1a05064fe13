package fakerestaurantrepo

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tablepilot/auth-service/restaurants"
)

var _ restaurants.Repo = (*FakeRestaurantRepo)(nil)

// FakeRestaurantRepo is an in-memory restaurant store used in tests and for
// local development.
type FakeRestaurantRepo struct {
	restaurants map[string]*restaurants.Restaurant
	ownerIDs    map[string]string // owner id to restaurant id
	lock        sync.RWMutex
}

func NewFakeRestaurantRepo() *FakeRestaurantRepo {
	return &FakeRestaurantRepo{
		restaurants: make(map[string]*restaurants.Restaurant),
		ownerIDs:    make(map[string]string),
	}
}

func (rr *FakeRestaurantRepo) Upsert(r *restaurants.Restaurant) error {
	rr.lock.Lock()
	defer rr.lock.Unlock()

	if r.ID == "" {
		r.ID = uuid.New().String()
	} else if existing, ok := rr.restaurants[r.ID]; ok && existing.OwnerID != r.OwnerID {
		delete(rr.ownerIDs, existing.OwnerID)
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	r.UpdatedAt = time.Now()

	cp := *r
	rr.restaurants[r.ID] = &cp
	rr.ownerIDs[r.OwnerID] = r.ID
	return nil
}

func (rr *FakeRestaurantRepo) Delete(restaurantID string) error {
	rr.lock.Lock()
	defer rr.lock.Unlock()

	r, ok := rr.restaurants[restaurantID]
	if !ok {
		return restaurants.ErrNotFound
	}
	delete(rr.ownerIDs, r.OwnerID)
	delete(rr.restaurants, restaurantID)
	return nil
}

func (rr *FakeRestaurantRepo) Get(restaurantID string) (*restaurants.Restaurant, error) {
	rr.lock.RLock()
	defer rr.lock.RUnlock()

	r, ok := rr.restaurants[restaurantID]
	if !ok {
		return nil, restaurants.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (rr *FakeRestaurantRepo) GetByOwnerID(ownerID string) (*restaurants.Restaurant, error) {
	rr.lock.RLock()
	defer rr.lock.RUnlock()

	id, ok := rr.ownerIDs[ownerID]
	if !ok {
		return nil, restaurants.ErrNotFound
	}
	cp := *rr.restaurants[id]
	return &cp, nil
}

func (rr *FakeRestaurantRepo) SetVerificationStatus(restaurantID string, status restaurants.VerificationStatus) error {
	rr.lock.Lock()
	defer rr.lock.Unlock()

	r, ok := rr.restaurants[restaurantID]
	if !ok {
		return restaurants.ErrNotFound
	}
	r.VerificationStatus = status
	r.UpdatedAt = time.Now()
	return nil
}

func (rr *FakeRestaurantRepo) SetAccountStatus(restaurantID string, status restaurants.AccountStatus) error {
	rr.lock.Lock()
	defer rr.lock.Unlock()

	r, ok := rr.restaurants[restaurantID]
	if !ok {
		return restaurants.ErrNotFound
	}
	r.AccountStatus = status
	r.UpdatedAt = time.Now()
	return nil
}
