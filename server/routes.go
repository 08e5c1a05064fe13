package server

import (
	"net/http"

	"github.com/rs/zerolog/log"
)

const (
	RouteAuthLogin    = "/auth/login"
	RouteAuthLogout   = "/auth/logout"
	RouteAuthRefresh  = "/auth/refresh"
	RouteAuthStatus   = "/auth/status"
	RouteOwnerSignup  = "/auth/signup/owner"
	RouteWhoAmI       = "/auth/whoami"
	RouteAdminVerify  = "/admin/restaurants/{id}/verification"
	RouteAdminAccount = "/admin/restaurants/{id}/account-status"
	RouteHealth       = "/healthz"
)

func (s *Server) initRoutes() {
	api := s.apiMiddleware()

	s.RegisterRouteFunc("POST "+RouteAuthLogin, ChainMiddleware(s.LoginHandler(), api...))
	s.RegisterRouteFunc("POST "+RouteAuthRefresh, ChainMiddleware(s.RefreshHandler(), api...))
	s.RegisterRouteFunc("POST "+RouteOwnerSignup, ChainMiddleware(s.OwnerSignupHandler(), api...))

	s.RegisterRouteFunc("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), append(api, s.RequireAuth())...))
	s.RegisterRouteFunc("GET "+RouteAuthStatus, ChainMiddleware(s.StatusHandler(), append(api, s.RequireAuth())...))
	s.RegisterRouteFunc("GET "+RouteWhoAmI, ChainMiddleware(s.WhoAmIHandler(), append(api, s.OptionalAuth())...))

	superadmin := append(api, s.RequireSuperadmin())
	s.RegisterRouteFunc("PUT "+RouteAdminVerify, ChainMiddleware(s.SetVerificationHandler(), superadmin...))
	s.RegisterRouteFunc("PUT "+RouteAdminAccount, ChainMiddleware(s.SetAccountStatusHandler(), superadmin...))

	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
}

func (s *Server) apiMiddleware() []func(http.HandlerFunc) http.HandlerFunc {
	return []func(http.HandlerFunc) http.HandlerFunc{
		s.LoggingMiddleware,
		s.RecoverMiddleware,
	}
}

func (s *Server) logRoutes() {
	for _, route := range s.routes {
		log.Debug().Str("route", route).Msg("registered")
	}
}
