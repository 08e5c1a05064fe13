package server

import (
	"encoding/json"
	"net/http"

	"github.com/tablepilot/auth-service/auth"
	apperrors "github.com/tablepilot/auth-service/internal/errors"
	"github.com/tablepilot/auth-service/principals"
	"github.com/tablepilot/auth-service/restaurants"
)

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperrors.Wrap(apperrors.KindValidation, err, "malformed request body")
	}
	return nil
}

// LoginHandler authenticates a principal and returns a token pair, or the
// blocking gate decision with no tokens.
func (s *Server) LoginHandler() http.HandlerFunc {
	type loginRequest struct {
		Identifier string `json:"identifier"`
		Secret     string `json:"secret"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, err)
			return
		}

		result, err := s.auth.Login(req.Identifier, req.Secret, r.RemoteAddr)
		if err != nil {
			s.writeError(w, err)
			return
		}
		if !result.Decision.Granted {
			// Valid credentials, blocked tenant: 403 with reason + redirect.
			writeJSON(w, http.StatusForbidden, result)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// LogoutHandler clears the caller's session marker.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := PrincipalFrom(r.Context())
		if err := s.auth.Logout(p, r.RemoteAddr); err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusNoContent, nil)
	}
}

// RefreshHandler reissues a short-lived access token from a refresh token,
// subject to the same session-marker check as any other validation.
func (s *Server) RefreshHandler() http.HandlerFunc {
	type refreshRequest struct {
		RefreshToken string `json:"refresh_token"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, err)
			return
		}

		result, err := s.auth.Refresh(req.RefreshToken, r.RemoteAddr)
		if err != nil {
			if apperrors.KindOf(err) == apperrors.KindAuthentication {
				writeAuthFailure(w)
				return
			}
			s.writeError(w, err)
			return
		}
		if !result.Decision.Granted {
			writeJSON(w, http.StatusForbidden, result)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// StatusHandler re-runs the access gate for the authenticated caller.
func (s *Server) StatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := PrincipalFrom(r.Context())
		decision, err := s.auth.Status(p)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, decision)
	}
}

// WhoAmIHandler reports the caller's identity. Anonymous callers get an
// anonymous body rather than a 401, so clients can render either state from
// one endpoint.
func (s *Server) WhoAmIHandler() http.HandlerFunc {
	type whoAmIResponse struct {
		Authenticated bool                `json:"authenticated"`
		Principal     *principals.Summary `json:"principal,omitempty"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		p := PrincipalFrom(r.Context())
		if p == nil {
			writeJSON(w, http.StatusOK, whoAmIResponse{Authenticated: false})
			return
		}
		summary := p.Summary()
		writeJSON(w, http.StatusOK, whoAmIResponse{Authenticated: true, Principal: &summary})
	}
}

// OwnerSignupHandler registers a restaurant owner with a pending restaurant.
func (s *Server) OwnerSignupHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var params auth.RegisterOwnerParams
		if err := decodeJSON(r, &params); err != nil {
			s.writeError(w, err)
			return
		}

		summary, err := s.auth.RegisterOwner(params)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, summary)
	}
}

// SetVerificationHandler records a verification outcome for a restaurant.
func (s *Server) SetVerificationHandler() http.HandlerFunc {
	type verificationRequest struct {
		Status restaurants.VerificationStatus `json:"status"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req verificationRequest
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, err)
			return
		}

		if err := s.auth.SetVerificationStatus(r.PathValue("id"), req.Status); err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusNoContent, nil)
	}
}

// SetAccountStatusHandler records an account-standing change. Suspension
// invalidates the owner's outstanding tokens as a side effect.
func (s *Server) SetAccountStatusHandler() http.HandlerFunc {
	type accountStatusRequest struct {
		Status restaurants.AccountStatus `json:"status"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req accountStatusRequest
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, err)
			return
		}

		if err := s.auth.SetAccountStatus(r.PathValue("id"), req.Status); err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusNoContent, nil)
	}
}

// HealthHandler reports liveness.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
