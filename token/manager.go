// Package token issues and validates the signed, time-bound bearer tokens
// presented on every protected request. The Manager owns no persistent
// state: it is a pure transform over the signing secret plus a single read
// of the principal record for the session-marker check.
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/tablepilot/auth-service/principals"
)

// Manager creates and validates bearer tokens.
type Manager struct {
	principalRepo   principals.Repo
	signer          Signer
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
	nowFunc         func() time.Time
}

type ManagerOption func(*Manager)

// WithTokenExpiry sets the access and refresh token lifetimes.
func WithTokenExpiry(accessTokenTTL, refreshTokenTTL time.Duration) ManagerOption {
	return func(m *Manager) {
		m.accessTokenTTL = accessTokenTTL
		m.refreshTokenTTL = refreshTokenTTL
	}
}

// WithNowFunc sets the clock (primarily for testing).
func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

// New creates a Manager. The principal repo is read on every Resolve so a
// committed marker write is observed by the very next validation.
func New(principalRepo principals.Repo, signer Signer, options ...ManagerOption) (*Manager, error) {
	if principalRepo == nil {
		return nil, errors.New("[token.New] principal repo is required")
	}
	if signer == nil {
		return nil, errors.New("[token.New] signer is required")
	}

	m := &Manager{
		principalRepo: principalRepo,
		signer:        signer,
		nowFunc:       time.Now,
	}

	for _, opt := range options {
		opt(m)
	}

	if m.accessTokenTTL == 0 {
		m.accessTokenTTL = 15 * time.Minute
	}
	if m.refreshTokenTTL == 0 {
		m.refreshTokenTTL = 7 * 24 * time.Hour
	}

	return m, nil
}

// AccessTokenTTL returns the configured access token lifetime.
func (m *Manager) AccessTokenTTL() time.Duration {
	return m.accessTokenTTL
}

// Issue creates a signed access token embedding the principal's identity,
// role and the session marker it was minted under.
func (m *Manager) Issue(p *principals.Principal, sessionMarker string) (string, error) {
	return m.issue(p, sessionMarker, UseAccess, m.accessTokenTTL)
}

// IssueRefresh creates a signed refresh token. Refresh tokens carry the same
// session marker and are subject to the same marker check on use.
func (m *Manager) IssueRefresh(p *principals.Principal, sessionMarker string) (string, error) {
	return m.issue(p, sessionMarker, UseRefresh, m.refreshTokenTTL)
}

func (m *Manager) issue(p *principals.Principal, sessionMarker string, use Use, ttl time.Duration) (string, error) {
	now := m.nowFunc()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.New().String(),
		},
		Role:          p.Role,
		SessionMarker: sessionMarker,
		TokenUse:      use,
	}

	signed, err := m.signer.Sign(claims)
	if err != nil {
		return "", errors.Wrap(err, "[Manager.issue] Sign")
	}
	return signed, nil
}

// Validate checks signature, expiry and shape of an access token and returns
// its claims. It does not touch the store; use Resolve for the full check
// including the session marker.
func (m *Manager) Validate(rawToken string) (*Claims, error) {
	return m.validate(rawToken, UseAccess)
}

// ValidateRefresh is Validate for refresh tokens.
func (m *Manager) ValidateRefresh(rawToken string) (*Claims, error) {
	return m.validate(rawToken, UseRefresh)
}

func (m *Manager) validate(rawToken string, use Use) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(
		rawToken,
		claims,
		m.signer.GetVerificationKey,
		jwt.WithTimeFunc(m.nowFunc),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		// A token presented at exactly its expiry instant is expired:
		// jwt/v5 requires now to be strictly before exp.
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenUse != use {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Resolve performs the full validation pipeline for an access token:
// signature, expiry, principal lookup, session-marker comparison. On success
// it returns the live principal record.
func (m *Manager) Resolve(rawToken string) (*principals.Principal, error) {
	claims, err := m.Validate(rawToken)
	if err != nil {
		return nil, err
	}
	return m.resolveClaims(claims)
}

// ResolveRefresh is Resolve for refresh tokens.
func (m *Manager) ResolveRefresh(rawToken string) (*principals.Principal, error) {
	claims, err := m.ValidateRefresh(rawToken)
	if err != nil {
		return nil, err
	}
	return m.resolveClaims(claims)
}

// ResolveOptional performs the same validation as Resolve but converts every
// failure into "no principal resolved", for routes that behave differently
// for anonymous and authenticated callers without requiring authentication.
func (m *Manager) ResolveOptional(rawToken string) *principals.Principal {
	if rawToken == "" {
		return nil
	}
	p, err := m.Resolve(rawToken)
	if err != nil {
		return nil
	}
	return p
}

func (m *Manager) resolveClaims(claims *Claims) (*principals.Principal, error) {
	p, err := m.principalRepo.GetByID(claims.Subject)
	if err != nil {
		if errors.Is(err, principals.ErrNotFound) {
			return nil, ErrPrincipalNotFound
		}
		return nil, errors.Wrap(err, "[Manager.resolveClaims] GetByID")
	}

	// The marker comparison is the revocation mechanism: a forced logout or
	// suspension rotates/clears the stored marker and every token minted
	// under the old one stops validating here.
	if p.SessionMarker == "" || p.SessionMarker != claims.SessionMarker {
		return nil, ErrSessionInvalidated
	}

	return p, nil
}
