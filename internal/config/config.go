// Package config loads process-wide configuration from the environment once
// at startup. The resulting struct is passed by reference into each
// component; nothing in the service reads environment variables after Load
// returns.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	portEnvVar            = "PORT"
	appNameEnvVar         = "APP_NAME"
	envEnvVar             = "ENV"
	signingSecretEnvVar   = "TOKEN_SIGNING_SECRET"
	accessTokenTTLEnvVar  = "ACCESS_TOKEN_TTL"
	refreshTokenTTLEnvVar = "REFRESH_TOKEN_TTL"
	bcryptCostEnvVar      = "BCRYPT_COST"
)

const minSigningSecretLength = 32

// Config holds every process-wide setting. Read-only after Load.
type Config struct {
	Port            string
	AppName         string
	Env             string
	SigningSecret   string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	BcryptCost      int
}

// Load builds a Config from the environment. The signing secret is the only
// required variable; everything else has a development default.
func Load() (*Config, error) {
	secret := os.Getenv(signingSecretEnvVar)
	if secret == "" {
		return nil, fmt.Errorf("config: %s is required", signingSecretEnvVar)
	}
	if len(secret) < minSigningSecretLength {
		return nil, fmt.Errorf("config: %s must be at least %d bytes", signingSecretEnvVar, minSigningSecretLength)
	}

	accessTTL, err := durationEnv(accessTokenTTLEnvVar, 15*time.Minute)
	if err != nil {
		return nil, err
	}
	refreshTTL, err := durationEnv(refreshTokenTTLEnvVar, 7*24*time.Hour)
	if err != nil {
		return nil, err
	}
	cost, err := intEnv(bcryptCostEnvVar, bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("config: %s out of range [%d,%d]", bcryptCostEnvVar, bcrypt.MinCost, bcrypt.MaxCost)
	}

	port := getEnv(portEnvVar, "8080")
	if port[0] != ':' {
		port = ":" + port
	}

	return &Config{
		Port:            port,
		AppName:         getEnv(appNameEnvVar, "Table Pilot Auth"),
		Env:             getEnv(envEnvVar, "DEV"),
		SigningSecret:   secret,
		AccessTokenTTL:  accessTTL,
		RefreshTokenTTL: refreshTTL,
		BcryptCost:      cost,
	}, nil
}

// IsProduction reports whether the service runs with production hardening
// (generic error bodies, no debug detail to clients).
func (c *Config) IsProduction() bool {
	return c.Env == "PROD" || c.Env == "production"
}

func getEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

func durationEnv(envVar string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s: %w", envVar, err)
	}
	return d, nil
}

func intEnv(envVar string, defaultValue int) (int, error) {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s: %w", envVar, err)
	}
	return n, nil
}
