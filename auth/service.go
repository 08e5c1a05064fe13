// Package auth is the canonical authentication pipeline: every role-specific
// entry point (diner, restaurant owner, superadmin) funnels through the same
// credential check, access gate and token issuance, so the validation rules
// cannot drift between roles.
package auth

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	apperrors "github.com/tablepilot/auth-service/internal/errors"
	"github.com/tablepilot/auth-service/principals"
	"github.com/tablepilot/auth-service/restaurants"
	"github.com/tablepilot/auth-service/sessions"
	"github.com/tablepilot/auth-service/token"
)

// ErrInvalidCredentials is returned for both an unknown identifier and a
// wrong secret. The two cases are deliberately indistinguishable to the
// caller.
var ErrInvalidCredentials = apperrors.New(apperrors.KindAuthentication, "invalid credentials")

// dummyPasswordHash is compared against when the identifier is unknown, so
// both credential failures cost one bcrypt comparison and cannot be told
// apart by response timing.
const dummyPasswordHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Repos holds all repository dependencies for the Service.
type Repos struct {
	Principals  principals.Repo
	Restaurants restaurants.Repo
}

// Service wires the credential verifier, session registry, token manager and
// access gate into the operations exposed over HTTP.
type Service struct {
	repos      Repos
	registry   *sessions.Registry
	tokens     *token.Manager
	events     EventLogger
	bcryptCost int
	nowFunc    func() time.Time
}

type ServiceOption func(*Service)

// WithEventLogger sets the security event sink.
func WithEventLogger(logger EventLogger) ServiceOption {
	return func(s *Service) {
		s.events = logger
	}
}

// WithBcryptCost sets the bcrypt cost used when hashing new passwords.
func WithBcryptCost(cost int) ServiceOption {
	return func(s *Service) {
		s.bcryptCost = cost
	}
}

// WithNowFunc sets the clock (primarily for testing).
func WithNowFunc(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowFunc = now
	}
}

// NewService initializes the Service with required dependencies.
func NewService(repos Repos, registry *sessions.Registry, tokens *token.Manager, options ...ServiceOption) (*Service, error) {
	if repos.Principals == nil {
		return nil, errors.New("[NewService] Principals repo is required")
	}
	if repos.Restaurants == nil {
		return nil, errors.New("[NewService] Restaurants repo is required")
	}
	if registry == nil {
		return nil, errors.New("[NewService] session registry is required")
	}
	if tokens == nil {
		return nil, errors.New("[NewService] token manager is required")
	}

	s := &Service{
		repos:      repos,
		registry:   registry,
		tokens:     tokens,
		events:     NopEventLogger{},
		bcryptCost: 12,
		nowFunc:    time.Now,
	}

	for _, opt := range options {
		opt(s)
	}

	return s, nil
}

// LoginResult carries either a fresh token pair with the principal summary,
// or a non-granting gate decision with no tokens.
type LoginResult struct {
	Token        string               `json:"token,omitempty"`
	RefreshToken string               `json:"refresh_token,omitempty"`
	Principal    *principals.Summary  `json:"principal,omitempty"`
	Decision     restaurants.Decision `json:"decision"`
}

// Login verifies credentials, runs the access gate for owners, and on a
// granting decision mints a fresh session marker and issues the token pair.
// A blocked decision returns no tokens and a nil error; the decision itself
// tells the caller why and where to redirect.
func (s *Service) Login(identifier, secret, remoteAddr string) (*LoginResult, error) {
	// Emails are stored lowercased; normalize the identifier the same way.
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" || secret == "" {
		return nil, apperrors.New(apperrors.KindValidation, "identifier and secret are required")
	}

	p, err := s.repos.Principals.GetByEmail(identifier)
	if err != nil && !errors.Is(err, principals.ErrNotFound) {
		// A failing store is an outage, not a credential problem.
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to load principal")
	}
	if err != nil {
		// Unknown identifier and wrong secret collapse to one failure.
		principals.CheckPasswordHash(secret, dummyPasswordHash)
		s.emit(EventLoginFailed, AnonymousActor, "", remoteAddr, map[string]string{"identifier": identifier})
		return nil, ErrInvalidCredentials
	}
	if !principals.CheckPasswordHash(secret, p.PasswordHash) {
		s.emit(EventLoginFailed, AnonymousActor, "", remoteAddr, map[string]string{"identifier": identifier})
		return nil, ErrInvalidCredentials
	}

	decision, err := s.gateFor(p)
	if err != nil {
		return nil, err
	}
	if !decision.Granted {
		s.emit(EventLoginFailed, p.ID, p.Role, remoteAddr, map[string]string{"reason": string(decision.Reason)})
		return &LoginResult{Decision: decision}, nil
	}

	marker, err := s.registry.Mint(p.ID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to start session")
	}

	accessToken, err := s.tokens.Issue(p, marker)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to issue token")
	}
	refreshToken, err := s.tokens.IssueRefresh(p, marker)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to issue refresh token")
	}

	s.emit(EventLoginSucceeded, p.ID, p.Role, remoteAddr, nil)

	summary := p.Summary()
	return &LoginResult{
		Token:        accessToken,
		RefreshToken: refreshToken,
		Principal:    &summary,
		Decision:     decision,
	}, nil
}

// Logout clears the caller's session marker, invalidating every outstanding
// token for the principal. Idempotent.
func (s *Service) Logout(p *principals.Principal, remoteAddr string) error {
	if err := s.registry.Clear(p.ID); err != nil {
		return apperrors.Wrap(apperrors.KindInternal, err, "failed to clear session")
	}
	s.emit(EventLogoutCompleted, p.ID, p.Role, remoteAddr, nil)
	return nil
}

// RefreshResult carries the reissued access token, or a non-granting gate
// decision when the tenant's state changed since login.
type RefreshResult struct {
	Token    string               `json:"token,omitempty"`
	Decision restaurants.Decision `json:"decision"`
}

// Refresh validates a refresh token through the full session-marker check,
// re-runs the access gate, and reissues a short-lived access token under the
// same marker.
func (s *Service) Refresh(rawRefreshToken, remoteAddr string) (*RefreshResult, error) {
	p, err := s.tokens.ResolveRefresh(rawRefreshToken)
	if err != nil {
		s.emit(EventTokenRefreshFailed, AnonymousActor, "", remoteAddr, map[string]string{"error": err.Error()})
		return nil, apperrors.Wrap(apperrors.KindAuthentication, err, "invalid refresh token")
	}

	decision, err := s.gateFor(p)
	if err != nil {
		return nil, err
	}
	if !decision.Granted {
		s.emit(EventTokenRefreshFailed, p.ID, p.Role, remoteAddr, map[string]string{"reason": string(decision.Reason)})
		return &RefreshResult{Decision: decision}, nil
	}

	accessToken, err := s.tokens.Issue(p, p.SessionMarker)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to issue token")
	}

	s.emit(EventTokenRefreshed, p.ID, p.Role, remoteAddr, nil)
	return &RefreshResult{Token: accessToken, Decision: decision}, nil
}

// Status re-runs the access gate for an already-authenticated principal so a
// client can poll its access state without re-submitting credentials.
func (s *Service) Status(p *principals.Principal) (restaurants.Decision, error) {
	return s.gateFor(p)
}

// gateFor evaluates the access gate for owners; diners and superadmins have
// no tenant lifecycle and are always granted.
func (s *Service) gateFor(p *principals.Principal) (restaurants.Decision, error) {
	if p.Role != principals.RoleRestaurantOwner {
		return restaurants.Decision{Granted: true}, nil
	}

	r, err := s.repos.Restaurants.GetByOwnerID(p.ID)
	if errors.Is(err, restaurants.ErrNotFound) {
		return restaurants.Decision{}, apperrors.Wrap(apperrors.KindNotFound, err, "restaurant not found")
	}
	if err != nil {
		return restaurants.Decision{}, apperrors.Wrap(apperrors.KindInternal, err, "failed to load restaurant")
	}
	return restaurants.EvaluateRestaurant(r), nil
}

// RegisterOwnerParams is the input to owner signup.
type RegisterOwnerParams struct {
	Email          string `json:"email"`
	Name           string `json:"name"`
	Password       string `json:"password"`
	RestaurantName string `json:"restaurant_name"`
}

// RegisterOwner creates an owner principal and its restaurant in the
// (pending, active) state. No token is minted: the access gate blocks
// pending restaurants, so the owner polls Status until verified.
func (s *Service) RegisterOwner(params RegisterOwnerParams) (*principals.Summary, error) {
	params.Email = strings.TrimSpace(strings.ToLower(params.Email))
	if params.Email == "" || !strings.Contains(params.Email, "@") {
		return nil, apperrors.New(apperrors.KindValidation, "a valid email is required")
	}
	if strings.TrimSpace(params.RestaurantName) == "" {
		return nil, apperrors.New(apperrors.KindValidation, "restaurant name is required")
	}
	if err := principals.ValidatePasswordStrength(params.Password); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, err, "weak password")
	}

	if _, err := s.repos.Principals.GetByEmail(params.Email); err == nil {
		return nil, apperrors.New(apperrors.KindConflict, "email already registered")
	} else if !errors.Is(err, principals.ErrNotFound) {
		// A failed uniqueness check must not fall through to a create.
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to check email")
	}

	hash, err := principals.HashPassword(params.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to hash password")
	}

	owner := &principals.Principal{
		Email:        params.Email,
		Name:         strings.TrimSpace(params.Name),
		Role:         principals.RoleRestaurantOwner,
		PasswordHash: hash,
	}
	if err := s.repos.Principals.Upsert(owner); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to create principal")
	}

	if err := s.repos.Restaurants.Upsert(&restaurants.Restaurant{
		Name:               strings.TrimSpace(params.RestaurantName),
		OwnerID:            owner.ID,
		VerificationStatus: restaurants.VerificationPending,
		AccountStatus:      restaurants.AccountActive,
	}); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to create restaurant")
	}

	summary := owner.Summary()
	return &summary, nil
}

// SetVerificationStatus records a verification outcome. Rejection does not
// clear the owner's session marker: a rejected restaurant never passed the
// gate, so its owner never held a token.
func (s *Service) SetVerificationStatus(restaurantID string, status restaurants.VerificationStatus) error {
	if !status.Valid() {
		return apperrors.Newf(apperrors.KindValidation, "unknown verification status %q", status)
	}
	if _, err := s.repos.Restaurants.Get(restaurantID); err != nil {
		if errors.Is(err, restaurants.ErrNotFound) {
			return apperrors.Wrap(apperrors.KindNotFound, err, "restaurant not found")
		}
		return apperrors.Wrap(apperrors.KindInternal, err, "failed to load restaurant")
	}
	if err := s.repos.Restaurants.SetVerificationStatus(restaurantID, status); err != nil {
		return apperrors.Wrap(apperrors.KindInternal, err, "failed to set verification status")
	}
	return nil
}

// SetAccountStatus records an account-standing change. Suspending clears the
// owner's session marker in the same operation, so tokens minted while the
// account was active stop validating immediately.
func (s *Service) SetAccountStatus(restaurantID string, status restaurants.AccountStatus) error {
	if !status.Valid() {
		return apperrors.Newf(apperrors.KindValidation, "unknown account status %q", status)
	}
	r, err := s.repos.Restaurants.Get(restaurantID)
	if err != nil {
		if errors.Is(err, restaurants.ErrNotFound) {
			return apperrors.Wrap(apperrors.KindNotFound, err, "restaurant not found")
		}
		return apperrors.Wrap(apperrors.KindInternal, err, "failed to load restaurant")
	}
	if err := s.repos.Restaurants.SetAccountStatus(restaurantID, status); err != nil {
		return apperrors.Wrap(apperrors.KindInternal, err, "failed to set account status")
	}

	if status == restaurants.AccountSuspended {
		if err := s.registry.Clear(r.OwnerID); err != nil {
			return apperrors.Wrap(apperrors.KindInternal, err, "failed to invalidate owner session")
		}
	}
	return nil
}

// EmitInvalidToken records a rejected bearer token. Called from the HTTP
// middleware, which owns the request context the event needs.
func (s *Service) EmitInvalidToken(remoteAddr string, detail string) {
	s.emit(EventInvalidTokenPresented, AnonymousActor, "", remoteAddr, map[string]string{"error": detail})
}

// EmitAuthorizationDenied records a role-check failure for a valid principal.
func (s *Service) EmitAuthorizationDenied(p *principals.Principal, remoteAddr string, required string) {
	s.emit(EventAuthorizationDenied, p.ID, p.Role, remoteAddr, map[string]string{"required_role": required})
}

func (s *Service) emit(kind EventKind, actorID string, role principals.RoleType, remoteAddr string, details map[string]string) {
	s.events.Log(Event{
		Kind:       kind,
		ActorID:    actorID,
		Role:       role,
		RemoteAddr: remoteAddr,
		Timestamp:  s.nowFunc(),
		Details:    details,
	})
}
