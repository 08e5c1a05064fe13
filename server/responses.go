package server

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
	apperrors "github.com/tablepilot/auth-service/internal/errors"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// genericAuthFailure is the single body returned for every rejected bearer
// token. Invalid, expired and session-invalidated tokens are deliberately
// indistinguishable to the client; a stale-token holder must not learn
// account state from the response.
const genericAuthFailure = "invalid or expired token"

// writeError maps an error's kind onto an HTTP status. Internal errors are
// never surfaced with detail: the client gets a generic message while the
// full chain is logged server-side.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	kind := apperrors.KindOf(err)
	if kind == apperrors.KindInternal {
		log.Error().Err(err).Msg("internal error")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	msg := err.Error()
	var appErr *apperrors.Error
	if apperrors.As(err, &appErr) {
		msg = appErr.Msg
	}
	writeJSON(w, kind.HTTPStatus(), errorResponse{Error: msg})
}

func writeAuthFailure(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, errorResponse{Error: genericAuthFailure})
}
