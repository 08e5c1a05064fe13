package token_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tablepilot/auth-service/principals"
	fakeprincipalrepo "github.com/tablepilot/auth-service/principals/repofake"
	"github.com/tablepilot/auth-service/token"
)

const (
	secretStr  = "0123456789abcdef0123456789abcdef"
	testMarker = "marker-1"
	accessTTL  = 15 * time.Minute
	refreshTTL = 24 * time.Hour
)

type testFixture struct {
	repo      *fakeprincipalrepo.FakePrincipalRepo
	manager   *token.Manager
	principal *principals.Principal
	now       time.Time
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		repo: fakeprincipalrepo.NewFakePrincipalRepo(),
		now:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	f.principal = &principals.Principal{
		Email:         "owner@example.com",
		Role:          principals.RoleRestaurantOwner,
		SessionMarker: testMarker,
	}
	require.NoError(t, f.repo.Upsert(f.principal))

	manager, err := token.New(
		f.repo,
		token.NewHMACSigner(secretStr),
		token.WithTokenExpiry(accessTTL, refreshTTL),
		token.WithNowFunc(func() time.Time { return f.now }),
	)
	require.NoError(t, err)
	f.manager = manager
	return f
}

func TestIssueValidateRoundTrip(t *testing.T) {
	f := setupTestFixture(t)

	raw, err := f.manager.Issue(f.principal, testMarker)
	require.NoError(t, err)

	claims, err := f.manager.Validate(raw)
	require.NoError(t, err)
	require.Equal(t, f.principal.ID, claims.PrincipalID())
	require.Equal(t, principals.RoleRestaurantOwner, claims.Role)
	require.Equal(t, testMarker, claims.SessionMarker)
	require.Equal(t, token.UseAccess, claims.TokenUse)

	resolved, err := f.manager.Resolve(raw)
	require.NoError(t, err)
	require.Equal(t, f.principal.ID, resolved.ID)
	require.Equal(t, f.principal.Role, resolved.Role)
}

func TestValidateRejectsTamperedToken(t *testing.T) {
	f := setupTestFixture(t)

	raw, err := f.manager.Issue(f.principal, testMarker)
	require.NoError(t, err)

	tampered := raw + "xx"
	_, err = f.manager.Validate(tampered)
	require.ErrorIs(t, err, token.ErrInvalidToken)

	_, err = f.manager.Validate("not-a-token")
	require.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestValidateRejectsWrongSigningKey(t *testing.T) {
	f := setupTestFixture(t)

	other, err := token.New(
		f.repo,
		token.NewHMACSigner("another-secret-another-secret-32"),
		token.WithNowFunc(func() time.Time { return f.now }),
	)
	require.NoError(t, err)

	raw, err := other.Issue(f.principal, testMarker)
	require.NoError(t, err)

	_, err = f.manager.Validate(raw)
	require.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestExpiryBoundaryIsInclusive(t *testing.T) {
	f := setupTestFixture(t)

	raw, err := f.manager.Issue(f.principal, testMarker)
	require.NoError(t, err)

	// One second before expiry: still valid.
	f.now = f.now.Add(accessTTL - time.Second)
	_, err = f.manager.Validate(raw)
	require.NoError(t, err)

	// At exactly the expiry instant: expired.
	f.now = f.now.Add(time.Second)
	_, err = f.manager.Validate(raw)
	require.ErrorIs(t, err, token.ErrExpiredToken)
}

func TestExpiredIsDistinctFromInvalid(t *testing.T) {
	f := setupTestFixture(t)

	raw, err := f.manager.Issue(f.principal, testMarker)
	require.NoError(t, err)

	f.now = f.now.Add(accessTTL + time.Hour)
	_, err = f.manager.Validate(raw)
	require.ErrorIs(t, err, token.ErrExpiredToken)
	require.NotErrorIs(t, err, token.ErrInvalidToken)
}

func TestResolveRejectsDeletedPrincipal(t *testing.T) {
	f := setupTestFixture(t)

	raw, err := f.manager.Issue(f.principal, testMarker)
	require.NoError(t, err)

	require.NoError(t, f.repo.Delete(f.principal.ID))
	_, err = f.manager.Resolve(raw)
	require.ErrorIs(t, err, token.ErrPrincipalNotFound)
}

// brokenPrincipalRepo simulates a store outage on reads.
type brokenPrincipalRepo struct {
	principals.Repo
	err error
}

func (r brokenPrincipalRepo) GetByID(string) (*principals.Principal, error) {
	return nil, r.err
}

func TestResolveSurfacesStoreFailure(t *testing.T) {
	f := setupTestFixture(t)

	raw, err := f.manager.Issue(f.principal, testMarker)
	require.NoError(t, err)

	storeErr := errors.New("connection reset by peer")
	broken, err := token.New(
		brokenPrincipalRepo{Repo: f.repo, err: storeErr},
		token.NewHMACSigner(secretStr),
		token.WithTokenExpiry(accessTTL, refreshTTL),
		token.WithNowFunc(func() time.Time { return f.now }),
	)
	require.NoError(t, err)

	// An outage is not a missing principal and not an invalid token.
	_, err = broken.Resolve(raw)
	require.ErrorIs(t, err, storeErr)
	require.NotErrorIs(t, err, token.ErrPrincipalNotFound)
	require.NotErrorIs(t, err, token.ErrInvalidToken)
}

func TestResolveRejectsRotatedMarker(t *testing.T) {
	f := setupTestFixture(t)

	raw, err := f.manager.Issue(f.principal, testMarker)
	require.NoError(t, err)

	// A second login rotated the marker: the unexpired token is revoked.
	require.NoError(t, f.repo.SetSessionMarker(f.principal.ID, "marker-2"))
	_, err = f.manager.Resolve(raw)
	require.ErrorIs(t, err, token.ErrSessionInvalidated)
	require.NotErrorIs(t, err, token.ErrExpiredToken)
}

func TestResolveRejectsClearedMarker(t *testing.T) {
	f := setupTestFixture(t)

	raw, err := f.manager.Issue(f.principal, testMarker)
	require.NoError(t, err)

	require.NoError(t, f.repo.SetSessionMarker(f.principal.ID, ""))
	_, err = f.manager.Resolve(raw)
	require.ErrorIs(t, err, token.ErrSessionInvalidated)
}

func TestTokenUseIsEnforcedBothWays(t *testing.T) {
	f := setupTestFixture(t)

	access, err := f.manager.Issue(f.principal, testMarker)
	require.NoError(t, err)
	refresh, err := f.manager.IssueRefresh(f.principal, testMarker)
	require.NoError(t, err)

	_, err = f.manager.Validate(refresh)
	require.ErrorIs(t, err, token.ErrInvalidToken)

	_, err = f.manager.ValidateRefresh(access)
	require.ErrorIs(t, err, token.ErrInvalidToken)

	_, err = f.manager.ResolveRefresh(refresh)
	require.NoError(t, err)
}

func TestRefreshTokenOutlivesAccessToken(t *testing.T) {
	f := setupTestFixture(t)

	refresh, err := f.manager.IssueRefresh(f.principal, testMarker)
	require.NoError(t, err)

	f.now = f.now.Add(accessTTL + time.Hour)
	_, err = f.manager.ValidateRefresh(refresh)
	require.NoError(t, err)

	f.now = f.now.Add(refreshTTL)
	_, err = f.manager.ValidateRefresh(refresh)
	require.ErrorIs(t, err, token.ErrExpiredToken)
}

func TestResolveOptionalSwallowsAllFailures(t *testing.T) {
	f := setupTestFixture(t)

	require.Nil(t, f.manager.ResolveOptional(""))
	require.Nil(t, f.manager.ResolveOptional("garbage"))

	raw, err := f.manager.Issue(f.principal, "stale-marker")
	require.NoError(t, err)
	require.Nil(t, f.manager.ResolveOptional(raw))

	raw, err = f.manager.Issue(f.principal, testMarker)
	require.NoError(t, err)
	resolved := f.manager.ResolveOptional(raw)
	require.NotNil(t, resolved)
	require.Equal(t, f.principal.ID, resolved.ID)
}
