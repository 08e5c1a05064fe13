package server

import (
	"net/http"

	"github.com/pkg/errors"
	"github.com/tablepilot/auth-service/auth"
	"github.com/tablepilot/auth-service/internal/config"
	"github.com/tablepilot/auth-service/token"
)

// Server exposes the authentication core over HTTP. Exact paths are a
// caller concern; everything interesting lives in the auth service.
type Server struct {
	env    string
	mux    *http.ServeMux
	routes []string
	config *config.Config
	auth   *auth.Service
	tokens *token.Manager
}

func New(cfg *config.Config, authService *auth.Service, tokens *token.Manager) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("[Server.New] config is required")
	}
	if authService == nil {
		return nil, errors.New("[Server.New] auth service is required")
	}
	if tokens == nil {
		return nil, errors.New("[Server.New] token manager is required")
	}

	s := &Server{
		env:    cfg.Env,
		mux:    http.NewServeMux(),
		config: cfg,
		auth:   authService,
		tokens: tokens,
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// ChainMiddleware applies middleware in reverse order so the first listed
// wrapper runs first.
func ChainMiddleware(routeFunction http.HandlerFunc, mw ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	chainedHandler := routeFunction
	for i := len(mw) - 1; i >= 0; i-- {
		chainedHandler = mw[i](chainedHandler)
	}
	return chainedHandler
}
