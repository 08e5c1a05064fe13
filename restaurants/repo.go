package restaurants

import "errors"

// ErrNotFound is the canonical miss for restaurant lookups.
var ErrNotFound = errors.New("restaurant not found")

type Repo interface {
	Upsert(restaurant *Restaurant) error
	Delete(restaurantID string) error
	Get(restaurantID string) (*Restaurant, error)
	GetByOwnerID(ownerID string) (*Restaurant, error)

	SetVerificationStatus(restaurantID string, status VerificationStatus) error
	SetAccountStatus(restaurantID string, status AccountStatus) error
}
