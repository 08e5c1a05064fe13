package token

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/tablepilot/auth-service/principals"
)

// Use distinguishes short-lived access tokens from the longer-lived refresh
// tokens used to reissue them. A token presented for the wrong use is
// invalid.
type Use string

const (
	UseAccess  Use = "access"
	UseRefresh Use = "refresh"
)

// Claims is the self-contained payload of a bearer token. The session
// marker (sid) ties the token to the principal's single live session: once
// the stored marker rotates or clears, the token is logically revoked even
// though signature and expiry still check out.
type Claims struct {
	jwt.RegisteredClaims
	Role          principals.RoleType `json:"role"`
	SessionMarker string              `json:"sid"`
	TokenUse      Use                 `json:"use"`
}

// PrincipalID returns the subject claim.
func (c *Claims) PrincipalID() string {
	return c.Subject
}
