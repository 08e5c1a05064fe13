package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tablepilot/auth-service/auth"
	"github.com/tablepilot/auth-service/internal/config"
	"github.com/tablepilot/auth-service/principals"
	fakeprincipalrepo "github.com/tablepilot/auth-service/principals/repofake"
	fakerestaurantrepo "github.com/tablepilot/auth-service/restaurants/repofake"
	"github.com/tablepilot/auth-service/server"
	"github.com/tablepilot/auth-service/sessions"
	"github.com/tablepilot/auth-service/token"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config.Load: %w", err)
	}
	displayAppname(cfg.AppName)

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	principalRepo := fakeprincipalrepo.NewFakePrincipalRepo()
	restaurantRepo := fakerestaurantrepo.NewFakeRestaurantRepo()

	registry, err := sessions.NewRegistry(principalRepo)
	if err != nil {
		return fmt.Errorf("sessions.NewRegistry: %w", err)
	}

	tokens, err := token.New(
		principalRepo,
		token.NewHMACSigner(cfg.SigningSecret),
		token.WithTokenExpiry(cfg.AccessTokenTTL, cfg.RefreshTokenTTL),
	)
	if err != nil {
		return fmt.Errorf("token.New: %w", err)
	}

	authService, err := auth.NewService(
		auth.Repos{Principals: principalRepo, Restaurants: restaurantRepo},
		registry,
		tokens,
		auth.WithEventLogger(server.NewZerologEventLogger(log.Logger)),
		auth.WithBcryptCost(cfg.BcryptCost),
	)
	if err != nil {
		return fmt.Errorf("auth.NewService: %w", err)
	}

	if err := seedSuperadmin(principalRepo, cfg.BcryptCost); err != nil {
		return fmt.Errorf("seedSuperadmin: %w", err)
	}

	srv, err := server.New(cfg, authService, tokens)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	httpServer := &http.Server{Addr: cfg.Port, Handler: srv}
	go listenAndServe(httpServer)
	waitForStopSignal()
	return shutdown(httpServer)
}

// seedSuperadmin ensures a platform superadmin exists so the admin routes
// are reachable on a fresh datastore.
func seedSuperadmin(repo principals.Repo, bcryptCost int) error {
	// Stored emails are lowercased, and login normalizes the identifier the
	// same way; seed the admin in that canonical form.
	email := strings.ToLower(strings.TrimSpace(os.Getenv("SUPERADMIN_EMAIL")))
	password := os.Getenv("SUPERADMIN_PASSWORD")
	if email == "" || password == "" {
		log.Warn().Msg("SUPERADMIN_EMAIL/SUPERADMIN_PASSWORD not set, skipping superadmin seed")
		return nil
	}

	if _, err := repo.GetByEmail(email); err == nil {
		return nil
	} else if !errors.Is(err, principals.ErrNotFound) {
		return err
	}

	hash, err := principals.HashPassword(password, bcryptCost)
	if err != nil {
		return err
	}
	return repo.Upsert(&principals.Principal{
		Email:        email,
		Name:         "Platform Admin",
		Role:         principals.RoleSuperadmin,
		PasswordHash: hash,
	})
}

func listenAndServe(server *http.Server) {
	log.Info().Str("addr", server.Addr).Msg("server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("server.ListenAndServe")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
