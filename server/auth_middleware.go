package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/tablepilot/auth-service/principals"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

// ContextKeyPrincipal stores the resolved principal for the request.
const ContextKeyPrincipal ContextKey = "principal"

// bearerToken extracts the opaque token string from the Authorization
// header, or "" if the header is missing or malformed.
func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

// RequireAuth validates the bearer token through the full pipeline
// (signature, expiry, principal load, session-marker compare) and injects
// the resolved principal into the request context. Every failure produces
// the same generic 401.
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				s.auth.EmitInvalidToken(r.RemoteAddr, "missing bearer token")
				writeAuthFailure(w)
				return
			}

			p, err := s.tokens.Resolve(raw)
			if err != nil {
				s.auth.EmitInvalidToken(r.RemoteAddr, err.Error())
				writeAuthFailure(w)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyPrincipal, p)
			next(w, r.WithContext(ctx))
		}
	}
}

// RequireRole validates the bearer token and additionally checks that the
// principal's role is in the route's required set.
func (s *Server) RequireRole(roles ...principals.RoleType) func(http.HandlerFunc) http.HandlerFunc {
	required := make(map[principals.RoleType]bool, len(roles))
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		required[role] = true
		names = append(names, string(role))
	}
	requiredList := strings.Join(names, ",")

	return func(next http.HandlerFunc) http.HandlerFunc {
		authed := s.RequireAuth()(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFrom(r.Context())
			if p == nil || !required[p.Role] {
				if p != nil {
					s.auth.EmitAuthorizationDenied(p, r.RemoteAddr, requiredList)
				}
				writeJSON(w, http.StatusForbidden, errorResponse{Error: "insufficient role"})
				return
			}
			next(w, r)
		})
		return authed
	}
}

// RequireDiner, RequireOwner and RequireSuperadmin are the per-role
// specializations; they all reduce to the same membership check.
func (s *Server) RequireDiner() func(http.HandlerFunc) http.HandlerFunc {
	return s.RequireRole(principals.RoleDiner)
}

func (s *Server) RequireOwner() func(http.HandlerFunc) http.HandlerFunc {
	return s.RequireRole(principals.RoleRestaurantOwner)
}

func (s *Server) RequireSuperadmin() func(http.HandlerFunc) http.HandlerFunc {
	return s.RequireRole(principals.RoleSuperadmin)
}

// OptionalAuth resolves a principal when a valid token is presented and
// otherwise leaves the request anonymous. It never fails the request.
func (s *Server) OptionalAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if p := s.tokens.ResolveOptional(bearerToken(r)); p != nil {
				ctx := context.WithValue(r.Context(), ContextKeyPrincipal, p)
				r = r.WithContext(ctx)
			}
			next(w, r)
		}
	}
}

// PrincipalFrom returns the resolved principal from a request context, or
// nil for anonymous requests.
func PrincipalFrom(ctx context.Context) *principals.Principal {
	p, _ := ctx.Value(ContextKeyPrincipal).(*principals.Principal)
	return p
}
