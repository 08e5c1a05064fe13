package restaurants

import "time"

// VerificationStatus is the outcome of the platform's review of a restaurant.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
)

// Valid reports whether v is a known verification status.
func (v VerificationStatus) Valid() bool {
	switch v {
	case VerificationPending, VerificationVerified, VerificationRejected:
		return true
	}
	return false
}

// AccountStatus is the restaurant's standing on the platform, independent of
// verification.
type AccountStatus string

const (
	AccountActive    AccountStatus = "active"
	AccountSuspended AccountStatus = "suspended"
)

// Valid reports whether a is a known account status.
func (a AccountStatus) Valid() bool {
	switch a {
	case AccountActive, AccountSuspended:
		return true
	}
	return false
}

// Restaurant is the tenant record. Only the lifecycle pair
// (VerificationStatus, AccountStatus) is consumed by this core; the menu,
// staff and table documents hang off the same ID elsewhere.
type Restaurant struct {
	ID                 string             `json:"id"`
	Name               string             `json:"name"`
	OwnerID            string             `json:"owner_id"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	AccountStatus      AccountStatus      `json:"account_status"`
	CreatedAt          time.Time          `json:"created_at,omitempty"`
	UpdatedAt          time.Time          `json:"updated_at,omitempty"`
}
