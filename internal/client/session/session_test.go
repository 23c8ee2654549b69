package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/starfallrpg/starfall-client/internal/client/api"
	"github.com/starfallrpg/starfall-client/internal/client/creds"
	"github.com/starfallrpg/starfall-client/internal/client/models"
	"github.com/starfallrpg/starfall-client/internal/logging"
)

// ---- helpers ----

// callRecorder collects cross-component call order for ordering assertions.
type callRecorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *callRecorder) add(name string) {
	r.mu.Lock()
	r.calls = append(r.calls, name)
	r.mu.Unlock()
}

func (r *callRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func indexOf(calls []string, name string) int {
	for i, c := range calls {
		if c == name {
			return i
		}
	}
	return -1
}

// ---- fake api client ----

// fakeAPI implements api.Client for session unit tests.
type fakeAPI struct {
	rec *callRecorder

	mu          sync.Mutex
	token       string
	authFailure func()

	RegisterRet *api.AuthResult
	RegisterErr error

	LoginRet *api.AuthResult
	LoginErr error

	SetPasswordRet string
	SetPasswordErr error

	GetUserRet   *models.User
	GetUserErr   error
	GetUserFn    func(ctx context.Context) (*models.User, error)
	GetUserCalls int

	ListHeroesRet   []*models.OwnedHero
	ListHeroesErr   error
	ListHeroesFn    func(ctx context.Context) ([]*models.OwnedHero, error)
	ListHeroesCalls int

	GetHeroFn      func(ctx context.Context, id string) (*models.OwnedHero, error)
	GetHeroCalls   int
	LastGetHeroIDs []string

	PullRet   *models.GachaPullResult
	PullErr   error
	UpgradeFn func(ctx context.Context, id string) (*models.OwnedHero, error)
	ClaimRet  *models.IdleReward
	ClaimErr  error

	CatalogRet   []*models.HeroCatalogEntry
	CatalogErr   error
	CatalogCalls int
	RatingRet    int
	RatingErr    error

	LastLoginUser    string
	LastRegisterUser string
}

func (f *fakeAPI) SetToken(token string) {
	f.rec.add("api.SetToken")
	f.mu.Lock()
	f.token = token
	f.mu.Unlock()
}

func (f *fakeAPI) ClearToken() {
	f.rec.add("api.ClearToken")
	f.mu.Lock()
	f.token = ""
	f.mu.Unlock()
}

func (f *fakeAPI) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeAPI) SetAuthFailureHandler(fn func()) {
	f.mu.Lock()
	f.authFailure = fn
	f.mu.Unlock()
}

func (f *fakeAPI) Register(ctx context.Context, username, password string) (*api.AuthResult, error) {
	f.rec.add("api.Register")
	f.LastRegisterUser = username
	return f.RegisterRet, f.RegisterErr
}

func (f *fakeAPI) Login(ctx context.Context, username, password string) (*api.AuthResult, error) {
	f.rec.add("api.Login")
	f.LastLoginUser = username
	return f.LoginRet, f.LoginErr
}

func (f *fakeAPI) SetPassword(ctx context.Context, username, password string) (string, error) {
	f.rec.add("api.SetPassword")
	return f.SetPasswordRet, f.SetPasswordErr
}

func (f *fakeAPI) GetUser(ctx context.Context) (*models.User, error) {
	f.rec.add("api.GetUser")
	f.GetUserCalls++
	if f.GetUserFn != nil {
		return f.GetUserFn(ctx)
	}
	if f.GetUserErr != nil {
		return nil, f.GetUserErr
	}
	if f.GetUserRet == nil {
		return nil, api.ErrUnavailable
	}
	u := *f.GetUserRet
	return &u, nil
}

func (f *fakeAPI) ListHeroes(ctx context.Context) ([]*models.OwnedHero, error) {
	f.rec.add("api.ListHeroes")
	f.ListHeroesCalls++
	if f.ListHeroesFn != nil {
		return f.ListHeroesFn(ctx)
	}
	return f.ListHeroesRet, f.ListHeroesErr
}

func (f *fakeAPI) GetHero(ctx context.Context, instanceID string) (*models.OwnedHero, error) {
	f.rec.add("api.GetHero")
	f.GetHeroCalls++
	f.LastGetHeroIDs = append(f.LastGetHeroIDs, instanceID)
	if f.GetHeroFn != nil {
		return f.GetHeroFn(ctx, instanceID)
	}
	return &models.OwnedHero{InstanceID: instanceID}, nil
}

func (f *fakeAPI) ListCatalog(ctx context.Context) ([]*models.HeroCatalogEntry, error) {
	f.rec.add("api.ListCatalog")
	f.CatalogCalls++
	return f.CatalogRet, f.CatalogErr
}

func (f *fakeAPI) PullGacha(ctx context.Context, count int) (*models.GachaPullResult, error) {
	f.rec.add("api.PullGacha")
	return f.PullRet, f.PullErr
}

func (f *fakeAPI) UpgradeHero(ctx context.Context, instanceID string) (*models.OwnedHero, error) {
	f.rec.add("api.UpgradeHero")
	if f.UpgradeFn != nil {
		return f.UpgradeFn(ctx, instanceID)
	}
	return &models.OwnedHero{InstanceID: instanceID, Level: 2}, nil
}

func (f *fakeAPI) ClaimIdleRewards(ctx context.Context) (*models.IdleReward, error) {
	f.rec.add("api.ClaimIdleRewards")
	return f.ClaimRet, f.ClaimErr
}

func (f *fakeAPI) GetCombatRating(ctx context.Context) (int, error) {
	f.rec.add("api.GetCombatRating")
	return f.RatingRet, f.RatingErr
}

// ---- fake credential store ----

type fakeStore struct {
	rec *callRecorder

	mu    sync.Mutex
	saved *creds.Credentials

	LoadErr  error
	SaveErr  error
	ClearErr error

	// ClearHook runs inside Clear, before the state change.
	ClearHook func()

	// SaveHook runs inside Save, before the state change.
	SaveHook func()
}

func (f *fakeStore) Load(ctx context.Context) (*creds.Credentials, error) {
	f.rec.add("creds.Load")
	if f.LoadErr != nil {
		return nil, f.LoadErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saved == nil {
		return nil, nil
	}
	c := *f.saved
	return &c, nil
}

func (f *fakeStore) Save(ctx context.Context, c *creds.Credentials) error {
	f.rec.add("creds.Save")
	if f.SaveHook != nil {
		f.SaveHook()
	}
	if f.SaveErr != nil {
		return f.SaveErr
	}
	cp := *c
	f.mu.Lock()
	f.saved = &cp
	f.mu.Unlock()
	return nil
}

func (f *fakeStore) Clear(ctx context.Context) error {
	f.rec.add("creds.Clear")
	if f.ClearHook != nil {
		f.ClearHook()
	}
	if f.ClearErr != nil {
		return f.ClearErr
	}
	f.mu.Lock()
	f.saved = nil
	f.mu.Unlock()
	return nil
}

func newTestSession(t *testing.T, opts ...Option) (*Session, *fakeAPI, *fakeStore) {
	t.Helper()
	rec := &callRecorder{}
	fapi := &fakeAPI{rec: rec}
	fstore := &fakeStore{rec: rec}
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	s := New(fapi, fstore, log, opts...)
	return s, fapi, fstore
}

// ---- hydration ----

func TestHydrateAuth_NoCredentials_Anonymous(t *testing.T) {
	s, fapi, _ := newTestSession(t)

	require.NoError(t, s.HydrateAuth(context.Background()))

	snap := s.Snapshot()
	require.Equal(t, StateAnonymous, snap.State)
	require.True(t, snap.Hydrated)
	require.Nil(t, snap.User)
	require.Zero(t, fapi.GetUserCalls, "no credentials means no validation request")
}

func TestHydrateAuth_ValidCredentials_Authenticated(t *testing.T) {
	s, fapi, fstore := newTestSession(t)
	fstore.saved = &creds.Credentials{Username: "ada", Token: "t1"}
	fapi.GetUserRet = &models.User{Username: "ada", Gold: 500}

	require.NoError(t, s.HydrateAuth(context.Background()))

	snap := s.Snapshot()
	require.Equal(t, StateAuthenticated, snap.State)
	require.Equal(t, "ada", snap.User.Username)
	require.Equal(t, "t1", fapi.Token())

	// the token must be installed before the validation request goes out
	calls := fapi.rec.snapshot()
	require.Less(t, indexOf(calls, "api.SetToken"), indexOf(calls, "api.GetUser"))
}

func TestHydrateAuth_Idempotent(t *testing.T) {
	s, fapi, fstore := newTestSession(t)
	fstore.saved = &creds.Credentials{Username: "ada", Token: "t1"}
	fapi.GetUserRet = &models.User{Username: "ada"}

	require.NoError(t, s.HydrateAuth(context.Background()))
	first := s.Snapshot()

	require.NoError(t, s.HydrateAuth(context.Background()))
	second := s.Snapshot()

	require.Equal(t, 1, fapi.GetUserCalls, "second hydration must be a no-op")
	require.Equal(t, first.State, second.State)
	require.Equal(t, first.User, second.User)
}

func TestHydrateAuth_InvalidToken_FullReset(t *testing.T) {
	s, fapi, fstore := newTestSession(t)
	fstore.saved = &creds.Credentials{Username: "ada", Token: "expired"}
	fapi.GetUserFn = func(ctx context.Context) (*models.User, error) {
		// the real transport fires the auth-failure hook on a 401
		if fapi.authFailure != nil {
			fapi.authFailure()
		}
		return nil, api.ErrUnauthorized
	}

	require.NoError(t, s.HydrateAuth(context.Background()), "an invalid token is not a hydration error")

	snap := s.Snapshot()
	require.Equal(t, StateAnonymous, snap.State)
	require.True(t, snap.Hydrated)
	require.Nil(t, snap.User)
	require.Empty(t, fapi.Token())
	require.Nil(t, fstore.saved, "persisted credentials must be cleared")
}

func TestHydrateAuth_NetworkFailure_TypedErrorNoHalfState(t *testing.T) {
	s, fapi, fstore := newTestSession(t)
	fstore.saved = &creds.Credentials{Username: "ada", Token: "t1"}
	fapi.GetUserErr = api.ErrUnavailable

	err := s.HydrateAuth(context.Background())
	require.ErrorIs(t, err, api.ErrUnavailable)

	snap := s.Snapshot()
	require.Equal(t, StateUnhydrated, snap.State, "hydration failure must be retryable")
	require.False(t, snap.Hydrated)
	require.Nil(t, snap.User)
	require.Empty(t, fapi.Token(), "token and user are either both set or both absent")

	// retry succeeds once the network is back
	fapi.GetUserErr = nil
	fapi.GetUserRet = &models.User{Username: "ada"}
	require.NoError(t, s.HydrateAuth(context.Background()))
	require.Equal(t, StateAuthenticated, s.State())
}

// ---- login / register / set-password ----

func TestLoginWithPassword_Success(t *testing.T) {
	s, fapi, fstore := newTestSession(t)
	fapi.LoginRet = &api.AuthResult{
		User:  &models.User{Username: "ada", Gold: 100},
		Token: "t1",
	}

	require.NoError(t, s.LoginWithPassword(context.Background(), "ada", "x"))

	snap := s.Snapshot()
	require.Equal(t, StateAuthenticated, snap.State)
	require.Equal(t, "ada", snap.User.Username)
	require.Equal(t, "t1", fapi.Token())
	require.Empty(t, snap.Heroes, "cache stays empty until heroes are fetched")
	require.Equal(t, "t1", fstore.saved.Token)
}

func TestLoginWithPassword_PersistsCanonicalUsername(t *testing.T) {
	s, fapi, fstore := newTestSession(t)
	fapi.LoginRet = &api.AuthResult{
		User:  &models.User{Username: "ada"},
		Token: "t1",
	}

	// caller input differs in case and whitespace from the canonical name
	require.NoError(t, s.LoginWithPassword(context.Background(), "  Ada ", "x"))

	require.Equal(t, "ada", fstore.saved.Username,
		"stored username must come from the server response, not caller input")
}

func TestLoginWithPassword_LegacyAccount(t *testing.T) {
	s, fapi, _ := newTestSession(t)
	fapi.LoginErr = api.ErrLegacyNeedsPassword

	err := s.LoginWithPassword(context.Background(), "oldtimer", "pw")
	require.ErrorIs(t, err, api.ErrLegacyNeedsPassword)
	require.Equal(t, StateLegacyNeedsPassword, s.State())
}

func TestRegister_Success(t *testing.T) {
	s, fapi, fstore := newTestSession(t)
	fapi.RegisterRet = &api.AuthResult{
		User:  &models.User{Username: "grace"},
		Token: "t9",
	}

	require.NoError(t, s.Register(context.Background(), "grace", "pw"))
	require.Equal(t, StateAuthenticated, s.State())
	require.Equal(t, "grace", fstore.saved.Username)
}

func TestSetPasswordForLegacyAccount_FetchesUserThenAuthenticates(t *testing.T) {
	s, fapi, fstore := newTestSession(t)
	fapi.SetPasswordRet = "t2"
	fapi.GetUserRet = &models.User{Username: "oldtimer"}

	require.NoError(t, s.SetPasswordForLegacyAccount(context.Background(), "oldtimer", "newpw"))

	snap := s.Snapshot()
	require.Equal(t, StateAuthenticated, snap.State)
	require.Equal(t, "oldtimer", snap.User.Username)
	require.Equal(t, "t2", fstore.saved.Token)

	// set-password carries no user body, so a user fetch must happen
	calls := fapi.rec.snapshot()
	require.Less(t, indexOf(calls, "api.SetPassword"), indexOf(calls, "api.GetUser"))
}

func TestLoginWithPassword_LogoutDuringPersist_SideEffectsUndone(t *testing.T) {
	s, fapi, fstore := newTestSession(t)
	fapi.LoginRet = &api.AuthResult{User: &models.User{Username: "ada"}, Token: "t1"}

	// a logout completes between the auth commit's epoch check and the
	// credential save; its cleanup must not be overwritten
	fstore.SaveHook = func() {
		require.NoError(t, s.Logout(context.Background()))
	}

	require.NoError(t, s.LoginWithPassword(context.Background(), "ada", "x"))

	require.Nil(t, fstore.saved, "logged-out credentials must not be re-persisted")
	require.Empty(t, fapi.Token(), "transport token must not be re-armed")
	require.Equal(t, StateAnonymous, s.State())
}

func TestSetPasswordForLegacyAccount_LogoutDuringUserFetch_TokenRemoved(t *testing.T) {
	s, fapi, fstore := newTestSession(t)
	fapi.SetPasswordRet = "t2"
	fapi.GetUserFn = func(ctx context.Context) (*models.User, error) {
		// set-password installed the fresh token on the transport; a logout
		// lands while the follow-up user fetch is in flight
		require.NoError(t, s.Logout(ctx))
		return &models.User{Username: "oldtimer"}, nil
	}

	require.NoError(t, s.SetPasswordForLegacyAccount(context.Background(), "oldtimer", "newpw"))

	require.Empty(t, fapi.Token(), "stale set-password token must be cleared")
	require.Nil(t, fstore.saved)
	require.Equal(t, StateAnonymous, s.State())
}

// ---- logout ----

func TestLogout_OrderAndState(t *testing.T) {
	s, fapi, fstore := newTestSession(t)
	fapi.LoginRet = &api.AuthResult{User: &models.User{Username: "ada"}, Token: "t1"}
	require.NoError(t, s.LoginWithPassword(context.Background(), "ada", "x"))

	epochBefore := s.epochs.Current()

	// the epoch must already be bumped by the time storage is cleared
	fstore.ClearHook = func() {
		require.Greater(t, s.epochs.Current(), epochBefore,
			"epoch bump must precede credential clearing")
	}

	require.NoError(t, s.Logout(context.Background()))

	calls := fapi.rec.snapshot()
	require.Less(t, indexOf(calls, "creds.Clear"), indexOf(calls, "api.ClearToken"),
		"persisted credentials are cleared before the transport token")

	snap := s.Snapshot()
	require.Equal(t, StateAnonymous, snap.State)
	require.Nil(t, snap.User)
	require.Empty(t, snap.Heroes)
	require.Empty(t, fapi.Token())
	require.Nil(t, fstore.saved)
}

func TestLogout_EpochStrictlyIncreases(t *testing.T) {
	s, _, _ := newTestSession(t)

	prev := s.epochs.Current()
	for i := 0; i < 5; i++ {
		_ = s.Logout(context.Background())
		cur := s.epochs.Current()
		require.Greater(t, cur, prev)
		prev = cur
	}
}

func TestForceLogout_InstalledOnTransport(t *testing.T) {
	s, fapi, fstore := newTestSession(t)
	fapi.LoginRet = &api.AuthResult{User: &models.User{Username: "ada"}, Token: "t1"}
	require.NoError(t, s.LoginWithPassword(context.Background(), "ada", "x"))

	require.NotNil(t, fapi.authFailure, "session must register the force-logout hook")
	fapi.authFailure()

	require.Equal(t, StateAnonymous, s.State())
	require.Nil(t, fstore.saved)
	require.Empty(t, fapi.Token())
}

// ---- stale hydration ----

func TestHydrateAuth_LogoutDuringValidation_ResultDiscarded(t *testing.T) {
	s, fapi, fstore := newTestSession(t)
	fstore.saved = &creds.Credentials{Username: "ada", Token: "t1"}
	fapi.GetUserFn = func(ctx context.Context) (*models.User, error) {
		// a logout lands while the validation request is in flight
		require.NoError(t, s.Logout(ctx))
		return &models.User{Username: "ada"}, nil
	}

	require.NoError(t, s.HydrateAuth(context.Background()))

	snap := s.Snapshot()
	require.Equal(t, StateAnonymous, snap.State, "state must equal the post-logout state")
	require.Nil(t, snap.User, "the stale validation result must never be applied")
}

func TestLoginWithPassword_ServerError_NotAuthenticated(t *testing.T) {
	s, fapi, _ := newTestSession(t)
	fapi.LoginErr = &api.APIError{Status: 401, Detail: "wrong password"}

	err := s.LoginWithPassword(context.Background(), "ada", "nope")
	require.Error(t, err)

	var apiErr *api.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, "wrong password", apiErr.Detail)
	require.NotEqual(t, StateAuthenticated, s.State())
}
