package auth_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tablepilot/auth-service/auth"
	apperrors "github.com/tablepilot/auth-service/internal/errors"
	"github.com/tablepilot/auth-service/principals"
	fakeprincipalrepo "github.com/tablepilot/auth-service/principals/repofake"
	"github.com/tablepilot/auth-service/restaurants"
	fakerestaurantrepo "github.com/tablepilot/auth-service/restaurants/repofake"
	"github.com/tablepilot/auth-service/sessions"
	"github.com/tablepilot/auth-service/token"
)

const (
	secretStr         = "0123456789abcdef0123456789abcdef"
	testOwnerEmail    = "owner@example.com"
	testOwnerPassword = "Password123"
	testRemoteAddr    = "203.0.113.7:51234"
)

type recordingEventLogger struct {
	mu     sync.Mutex
	events []auth.Event
}

func (l *recordingEventLogger) Log(event auth.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *recordingEventLogger) kinds() []auth.EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	kinds := make([]auth.EventKind, 0, len(l.events))
	for _, e := range l.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

type testFixture struct {
	principalRepo  *fakeprincipalrepo.FakePrincipalRepo
	restaurantRepo *fakerestaurantrepo.FakeRestaurantRepo
	registry       *sessions.Registry
	tokens         *token.Manager
	events         *recordingEventLogger
	service        *auth.Service
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		principalRepo:  fakeprincipalrepo.NewFakePrincipalRepo(),
		restaurantRepo: fakerestaurantrepo.NewFakeRestaurantRepo(),
		events:         &recordingEventLogger{},
	}

	registry, err := sessions.NewRegistry(f.principalRepo)
	require.NoError(t, err)
	f.registry = registry

	tokens, err := token.New(f.principalRepo, token.NewHMACSigner(secretStr))
	require.NoError(t, err)
	f.tokens = tokens

	service, err := auth.NewService(
		auth.Repos{Principals: f.principalRepo, Restaurants: f.restaurantRepo},
		registry,
		tokens,
		auth.WithEventLogger(f.events),
		auth.WithBcryptCost(4), // min cost keeps the suite fast
	)
	require.NoError(t, err)
	f.service = service
	return f
}

// createOwner stores an owner principal and a restaurant in the given
// lifecycle state, returning the principal.
func (f *testFixture) createOwner(t *testing.T, verification restaurants.VerificationStatus, account restaurants.AccountStatus) (*principals.Principal, *restaurants.Restaurant) {
	t.Helper()

	hash, err := principals.HashPassword(testOwnerPassword, 4)
	require.NoError(t, err)

	owner := &principals.Principal{
		Email:        testOwnerEmail,
		Name:         "Pat Owner",
		Role:         principals.RoleRestaurantOwner,
		PasswordHash: hash,
	}
	require.NoError(t, f.principalRepo.Upsert(owner))

	r := &restaurants.Restaurant{
		Name:               "The Copper Pot",
		OwnerID:            owner.ID,
		VerificationStatus: verification,
		AccountStatus:      account,
	}
	require.NoError(t, f.restaurantRepo.Upsert(r))
	return owner, r
}

func (f *testFixture) createPrincipal(t *testing.T, email string, role principals.RoleType) *principals.Principal {
	t.Helper()

	hash, err := principals.HashPassword(testOwnerPassword, 4)
	require.NoError(t, err)
	p := &principals.Principal{Email: email, Role: role, PasswordHash: hash}
	require.NoError(t, f.principalRepo.Upsert(p))
	return p
}

func TestLoginVerifiedActiveOwner(t *testing.T) {
	f := setupTestFixture(t)
	owner, _ := f.createOwner(t, restaurants.VerificationVerified, restaurants.AccountActive)

	result, err := f.service.Login(testOwnerEmail, testOwnerPassword, testRemoteAddr)
	require.NoError(t, err)
	require.True(t, result.Decision.Granted)
	require.NotEmpty(t, result.Token)
	require.NotEmpty(t, result.RefreshToken)
	require.Equal(t, owner.ID, result.Principal.ID)
	require.Equal(t, principals.RoleRestaurantOwner, result.Principal.Role)

	resolved, err := f.tokens.Resolve(result.Token)
	require.NoError(t, err)
	require.Equal(t, owner.ID, resolved.ID)

	require.Contains(t, f.events.kinds(), auth.EventLoginSucceeded)
}

func TestLoginPendingOwnerGetsNoToken(t *testing.T) {
	f := setupTestFixture(t)
	owner, _ := f.createOwner(t, restaurants.VerificationPending, restaurants.AccountActive)

	result, err := f.service.Login(testOwnerEmail, testOwnerPassword, testRemoteAddr)
	require.NoError(t, err)
	require.False(t, result.Decision.Granted)
	require.Equal(t, restaurants.ReasonVerificationPending, result.Decision.Reason)
	require.Empty(t, result.Token)
	require.Empty(t, result.RefreshToken)

	// No session was started either.
	stored, err := f.principalRepo.GetByID(owner.ID)
	require.NoError(t, err)
	require.Empty(t, stored.SessionMarker)

	require.Contains(t, f.events.kinds(), auth.EventLoginFailed)
}

func TestSuspensionInvalidatesOutstandingTokens(t *testing.T) {
	f := setupTestFixture(t)
	_, r := f.createOwner(t, restaurants.VerificationVerified, restaurants.AccountActive)

	result, err := f.service.Login(testOwnerEmail, testOwnerPassword, testRemoteAddr)
	require.NoError(t, err)
	require.True(t, result.Decision.Granted)

	require.NoError(t, f.service.SetAccountStatus(r.ID, restaurants.AccountSuspended))

	// The unexpired token fails with session-invalidated, not expired.
	_, err = f.tokens.Resolve(result.Token)
	require.ErrorIs(t, err, token.ErrSessionInvalidated)
	require.NotErrorIs(t, err, token.ErrExpiredToken)
}

func TestRejectionDoesNotClearSession(t *testing.T) {
	f := setupTestFixture(t)
	owner, r := f.createOwner(t, restaurants.VerificationVerified, restaurants.AccountActive)

	result, err := f.service.Login(testOwnerEmail, testOwnerPassword, testRemoteAddr)
	require.NoError(t, err)

	require.NoError(t, f.service.SetVerificationStatus(r.ID, restaurants.VerificationRejected))

	// The marker is untouched: the token still resolves.
	resolved, err := f.tokens.Resolve(result.Token)
	require.NoError(t, err)
	require.Equal(t, owner.ID, resolved.ID)

	// But the gate now blocks.
	decision, err := f.service.Status(resolved)
	require.NoError(t, err)
	require.False(t, decision.Granted)
	require.Equal(t, restaurants.ReasonVerificationRejected, decision.Reason)
}

func TestSecondLoginInvalidatesFirstToken(t *testing.T) {
	f := setupTestFixture(t)
	f.createOwner(t, restaurants.VerificationVerified, restaurants.AccountActive)

	first, err := f.service.Login(testOwnerEmail, testOwnerPassword, testRemoteAddr)
	require.NoError(t, err)
	second, err := f.service.Login(testOwnerEmail, testOwnerPassword, testRemoteAddr)
	require.NoError(t, err)

	// Exactly one session is live: the loser's token fails on next use.
	_, err = f.tokens.Resolve(first.Token)
	require.ErrorIs(t, err, token.ErrSessionInvalidated)

	_, err = f.tokens.Resolve(second.Token)
	require.NoError(t, err)
}

func TestWrongSecretAndUnknownIdentifierAreIndistinguishable(t *testing.T) {
	f := setupTestFixture(t)
	f.createOwner(t, restaurants.VerificationVerified, restaurants.AccountActive)

	_, errWrongSecret := f.service.Login(testOwnerEmail, "WrongPassword1", testRemoteAddr)
	_, errUnknownUser := f.service.Login("nobody@example.com", testOwnerPassword, testRemoteAddr)

	require.ErrorIs(t, errWrongSecret, auth.ErrInvalidCredentials)
	require.ErrorIs(t, errUnknownUser, auth.ErrInvalidCredentials)
	require.Equal(t, errWrongSecret.Error(), errUnknownUser.Error())
	require.Equal(t, apperrors.KindAuthentication, apperrors.KindOf(errWrongSecret))

	// The fixed hash burned on the unknown-identifier path must never grant
	// access, whatever secret is submitted.
	_, err := f.service.Login("nobody@example.com", "password", testRemoteAddr)
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

// brokenPrincipalRepo simulates a store outage on email lookups.
type brokenPrincipalRepo struct {
	principals.Repo
	err error
}

func (r brokenPrincipalRepo) GetByEmail(string) (*principals.Principal, error) {
	return nil, r.err
}

func TestStoreOutageIsNotACredentialFailure(t *testing.T) {
	f := setupTestFixture(t)
	f.createOwner(t, restaurants.VerificationVerified, restaurants.AccountActive)

	storeErr := errors.New("connection reset by peer")
	service, err := auth.NewService(
		auth.Repos{
			Principals:  brokenPrincipalRepo{Repo: f.principalRepo, err: storeErr},
			Restaurants: f.restaurantRepo,
		},
		f.registry,
		f.tokens,
		auth.WithBcryptCost(4),
	)
	require.NoError(t, err)

	_, err = service.Login(testOwnerEmail, testOwnerPassword, testRemoteAddr)
	require.NotErrorIs(t, err, auth.ErrInvalidCredentials)
	require.Equal(t, apperrors.KindInternal, apperrors.KindOf(err))

	// A failed uniqueness check must not fall through to a create.
	_, err = service.RegisterOwner(auth.RegisterOwnerParams{
		Email:          "new@example.com",
		Password:       "Password123",
		RestaurantName: "Unreachable Bistro",
	})
	require.Equal(t, apperrors.KindInternal, apperrors.KindOf(err))
}

func TestDinerAndSuperadminHaveNoTenantGate(t *testing.T) {
	f := setupTestFixture(t)
	f.createPrincipal(t, "diner@example.com", principals.RoleDiner)
	f.createPrincipal(t, "admin@example.com", principals.RoleSuperadmin)

	for _, email := range []string{"diner@example.com", "admin@example.com"} {
		result, err := f.service.Login(email, testOwnerPassword, testRemoteAddr)
		require.NoError(t, err)
		require.True(t, result.Decision.Granted)
		require.NotEmpty(t, result.Token)
	}
}

func TestLogoutInvalidatesTokens(t *testing.T) {
	f := setupTestFixture(t)
	f.createOwner(t, restaurants.VerificationVerified, restaurants.AccountActive)

	result, err := f.service.Login(testOwnerEmail, testOwnerPassword, testRemoteAddr)
	require.NoError(t, err)

	resolved, err := f.tokens.Resolve(result.Token)
	require.NoError(t, err)

	require.NoError(t, f.service.Logout(resolved, testRemoteAddr))

	_, err = f.tokens.Resolve(result.Token)
	require.ErrorIs(t, err, token.ErrSessionInvalidated)

	// Logout is idempotent.
	require.NoError(t, f.service.Logout(resolved, testRemoteAddr))
	require.Contains(t, f.events.kinds(), auth.EventLogoutCompleted)
}

func TestRefreshReissuesAccessToken(t *testing.T) {
	f := setupTestFixture(t)
	owner, _ := f.createOwner(t, restaurants.VerificationVerified, restaurants.AccountActive)

	login, err := f.service.Login(testOwnerEmail, testOwnerPassword, testRemoteAddr)
	require.NoError(t, err)

	refreshed, err := f.service.Refresh(login.RefreshToken, testRemoteAddr)
	require.NoError(t, err)
	require.True(t, refreshed.Decision.Granted)
	require.NotEmpty(t, refreshed.Token)

	resolved, err := f.tokens.Resolve(refreshed.Token)
	require.NoError(t, err)
	require.Equal(t, owner.ID, resolved.ID)

	require.Contains(t, f.events.kinds(), auth.EventTokenRefreshed)
}

func TestRefreshAfterLogoutFails(t *testing.T) {
	f := setupTestFixture(t)
	f.createOwner(t, restaurants.VerificationVerified, restaurants.AccountActive)

	login, err := f.service.Login(testOwnerEmail, testOwnerPassword, testRemoteAddr)
	require.NoError(t, err)

	resolved, err := f.tokens.Resolve(login.Token)
	require.NoError(t, err)
	require.NoError(t, f.service.Logout(resolved, testRemoteAddr))

	_, err = f.service.Refresh(login.RefreshToken, testRemoteAddr)
	require.Error(t, err)
	require.Equal(t, apperrors.KindAuthentication, apperrors.KindOf(err))
	require.Contains(t, f.events.kinds(), auth.EventTokenRefreshFailed)
}

func TestRefreshObservesLifecycleChanges(t *testing.T) {
	f := setupTestFixture(t)
	_, r := f.createOwner(t, restaurants.VerificationVerified, restaurants.AccountActive)

	login, err := f.service.Login(testOwnerEmail, testOwnerPassword, testRemoteAddr)
	require.NoError(t, err)

	// Rejection leaves the session alive, so the refresh token still passes
	// the marker check; the gate blocks the reissue instead.
	require.NoError(t, f.service.SetVerificationStatus(r.ID, restaurants.VerificationRejected))

	refreshed, err := f.service.Refresh(login.RefreshToken, testRemoteAddr)
	require.NoError(t, err)
	require.False(t, refreshed.Decision.Granted)
	require.Equal(t, restaurants.ReasonVerificationRejected, refreshed.Decision.Reason)
	require.Empty(t, refreshed.Token)
}

func TestRegisterOwner(t *testing.T) {
	f := setupTestFixture(t)

	summary, err := f.service.RegisterOwner(auth.RegisterOwnerParams{
		Email:          "new@example.com",
		Name:           "New Owner",
		Password:       "Password123",
		RestaurantName: "Brand New Bistro",
	})
	require.NoError(t, err)
	require.Equal(t, principals.RoleRestaurantOwner, summary.Role)

	r, err := f.restaurantRepo.GetByOwnerID(summary.ID)
	require.NoError(t, err)
	require.Equal(t, restaurants.VerificationPending, r.VerificationStatus)
	require.Equal(t, restaurants.AccountActive, r.AccountStatus)

	// The gate blocks a fresh signup until verification.
	result, err := f.service.Login("new@example.com", "Password123", testRemoteAddr)
	require.NoError(t, err)
	require.False(t, result.Decision.Granted)
}

func TestRegisterOwnerValidation(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.service.RegisterOwner(auth.RegisterOwnerParams{
		Email:          "weak@example.com",
		Password:       "short",
		RestaurantName: "Weak Sauce",
	})
	require.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	_, err = f.service.RegisterOwner(auth.RegisterOwnerParams{
		Email:          "no-at-sign",
		Password:       "Password123",
		RestaurantName: "No Email",
	})
	require.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestRegisterOwnerDuplicateEmail(t *testing.T) {
	f := setupTestFixture(t)
	f.createOwner(t, restaurants.VerificationVerified, restaurants.AccountActive)

	_, err := f.service.RegisterOwner(auth.RegisterOwnerParams{
		Email:          testOwnerEmail,
		Password:       "Password123",
		RestaurantName: "Copycat Kitchen",
	})
	require.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
}

func TestSetAccountStatusUnknownRestaurant(t *testing.T) {
	f := setupTestFixture(t)

	err := f.service.SetAccountStatus("no-such-id", restaurants.AccountSuspended)
	require.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

	err = f.service.SetAccountStatus("no-such-id", restaurants.AccountStatus("bogus"))
	require.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestReinstatedOwnerLogsBackIn(t *testing.T) {
	f := setupTestFixture(t)
	_, r := f.createOwner(t, restaurants.VerificationVerified, restaurants.AccountActive)

	_, err := f.service.Login(testOwnerEmail, testOwnerPassword, testRemoteAddr)
	require.NoError(t, err)
	require.NoError(t, f.service.SetAccountStatus(r.ID, restaurants.AccountSuspended))

	// While suspended: correct credentials, blocked decision.
	blocked, err := f.service.Login(testOwnerEmail, testOwnerPassword, testRemoteAddr)
	require.NoError(t, err)
	require.Equal(t, restaurants.ReasonAccountSuspended, blocked.Decision.Reason)

	require.NoError(t, f.service.SetAccountStatus(r.ID, restaurants.AccountActive))

	granted, err := f.service.Login(testOwnerEmail, testOwnerPassword, testRemoteAddr)
	require.NoError(t, err)
	require.True(t, granted.Decision.Granted)
	require.NotEmpty(t, granted.Token)

	_, err = f.tokens.Resolve(granted.Token)
	require.NoError(t, err)
}

func TestLoginEventCarriesRemoteAddr(t *testing.T) {
	f := setupTestFixture(t)
	f.createOwner(t, restaurants.VerificationVerified, restaurants.AccountActive)

	_, err := f.service.Login(testOwnerEmail, testOwnerPassword, testRemoteAddr)
	require.NoError(t, err)

	f.events.mu.Lock()
	defer f.events.mu.Unlock()
	require.NotEmpty(t, f.events.events)
	last := f.events.events[len(f.events.events)-1]
	require.Equal(t, auth.EventLoginSucceeded, last.Kind)
	require.Equal(t, testRemoteAddr, last.RemoteAddr)
	require.False(t, last.Timestamp.IsZero())
}
