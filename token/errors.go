package token

import "errors"

// Validation failure kinds. ErrExpiredToken is distinct so clients can tell
// "re-login" from "refresh"; ErrSessionInvalidated is distinct so the forced
// logout / suspension path is observable internally, though the HTTP layer
// deliberately collapses it into the generic invalid-token response.
var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token expired")
	ErrPrincipalNotFound  = errors.New("token principal not found")
	ErrSessionInvalidated = errors.New("session invalidated")
)
