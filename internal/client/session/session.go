// Package session owns the authenticated session lifecycle of the Starfall
// client: credential hydration, login/register/logout flows, the epoch
// guard that discards stale asynchronous results, the safe mutation
// wrapper, and the indexed cache of owned heroes. It is the single source
// of truth for user and hero state consumed by every screen.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/starfallrpg/starfall-client/internal/client/api"
	"github.com/starfallrpg/starfall-client/internal/client/creds"
	"github.com/starfallrpg/starfall-client/internal/client/models"
	"github.com/starfallrpg/starfall-client/internal/logging"
)

// State of the session lifecycle.
type State string

const (
	StateUnhydrated          State = "unhydrated"
	StateHydrating           State = "hydrating"
	StateAuthenticated       State = "authenticated"
	StateAnonymous           State = "anonymous"
	StateLegacyNeedsPassword State = "legacy_needs_password"
)

// Session is the orchestrator. It is the only writer of the auth session,
// the cached user, and the hero cache; any goroutine may read via
// Snapshot. The mutex guards the synchronous critical sections and is
// never held across a network call; the gaps between them are covered by
// the epoch guard.
type Session struct {
	api   api.Client
	creds creds.Store
	log   logging.Logger

	epochs epochGuard

	mu       sync.RWMutex
	state    State
	hydrated bool
	user     *models.User
	username string
	token    string
	heroes   heroCache
	catalog  []*models.HeroCatalogEntry

	targetedRefreshLimit int
}

// Option configures a Session at construction.
type Option func(*Session)

// WithTargetedRefreshLimit overrides the threshold above which a post-gacha
// refresh switches from targeted per-hero fetches to one bulk fetch.
func WithTargetedRefreshLimit(n int) Option {
	return func(s *Session) { s.targetedRefreshLimit = n }
}

// New constructs a Session and installs its logout sequence as the
// transport's auth-failure handler, so an expired or revoked token anywhere
// in the app tears the session down through the same ordered path.
func New(client api.Client, store creds.Store, log logging.Logger, opts ...Option) *Session {
	s := &Session{
		api:                  client,
		creds:                store,
		log:                  log,
		state:                StateUnhydrated,
		targetedRefreshLimit: defaultTargetedRefreshLimit,
	}
	s.heroes.init()
	for _, opt := range opts {
		opt(s)
	}
	client.SetAuthFailureHandler(s.forceLogout)
	return s
}

// Snapshot is a read-only view of the session handed to screens. All
// contained values are copies; mutating them has no effect on the session.
type Snapshot struct {
	State      State
	Hydrated   bool
	User       *models.User
	Heroes     []*models.OwnedHero
	HeroesByID map[string]*models.OwnedHero
}

// Snapshot returns the current session state for rendering.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		State:      s.state,
		Hydrated:   s.hydrated,
		Heroes:     s.heroes.cloneList(),
		HeroesByID: s.heroes.cloneIndex(),
	}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) isAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state == StateAuthenticated && s.user != nil
}

// HydrateAuth restores a previously persisted session and validates it
// against the server. Idempotent: once the session is hydrated (whether
// into Authenticated or Anonymous) further calls are no-ops.
//
// Ordering: the token is installed on the transport before any request is
// issued, otherwise the validation request would be treated as anonymous.
// An invalid or expired token performs a full local reset and lands in
// Anonymous without surfacing an error; a network failure rolls back to
// Unhydrated and returns a typed error so the caller can retry. The
// session is never left half-authenticated.
func (s *Session) HydrateAuth(ctx context.Context) error {
	s.mu.Lock()
	if s.hydrated || s.state == StateHydrating {
		s.mu.Unlock()
		return nil
	}
	s.state = StateHydrating
	s.mu.Unlock()

	epoch := s.epochs.Current()

	stored, err := s.creds.Load(ctx)
	if err != nil {
		// An unreadable credential row (tampered or foreign database) is
		// treated like an invalid token: reset and continue anonymously.
		s.log.Warn(ctx, "stored credentials unreadable, resetting", "error", err)
		stored = nil
	}
	if stored == nil {
		s.resetToAnonymous(ctx, epoch)
		return nil
	}

	// Token first, then validate it server-side.
	s.api.SetToken(stored.Token)

	user, err := s.api.GetUser(ctx)
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			// The transport already ran the force-logout sequence; make
			// sure the local reset happened even if no handler was fired.
			s.resetToAnonymous(ctx, epoch)
			return nil
		}
		// Transport failure: undo the token install and allow a retry.
		s.api.ClearToken()
		s.mu.Lock()
		if s.epochs.Valid(epoch) && s.state == StateHydrating {
			s.state = StateUnhydrated
		}
		s.mu.Unlock()
		return fmt.Errorf("hydrate auth: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.epochs.Valid(epoch) {
		// A logout superseded this hydration; its result is void.
		return nil
	}
	s.user = user
	s.username = user.Username
	s.token = stored.Token
	s.state = StateAuthenticated
	s.hydrated = true
	s.log.Info(ctx, "session hydrated", "username", user.Username)
	return nil
}

// resetToAnonymous performs the full local reset: persisted credentials,
// transport token, and in-memory state, committing Anonymous only if the
// captured epoch is still current (a concurrent logout has already left
// the session in its own clean state).
func (s *Session) resetToAnonymous(ctx context.Context, epoch int64) {
	if err := s.creds.Clear(ctx); err != nil {
		s.log.Error(ctx, "failed to clear credentials", "error", err)
	}
	s.api.ClearToken()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.epochs.Valid(epoch) {
		return
	}
	s.clearMemoryLocked()
}

func (s *Session) clearMemoryLocked() {
	s.user = nil
	s.username = ""
	s.token = ""
	s.heroes.clear()
	s.state = StateAnonymous
	s.hydrated = true
}

// Register creates a new account and authenticates as it.
func (s *Session) Register(ctx context.Context, username, password string) error {
	epoch := s.epochs.Current()

	res, err := s.api.Register(ctx, username, password)
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	return s.adoptAuth(ctx, epoch, res)
}

// LoginWithPassword authenticates an existing account. A server-reported
// legacy account (403) moves the session into LegacyNeedsPassword and
// returns api.ErrLegacyNeedsPassword so the UI can offer the set-password
// flow instead of a generic failure.
func (s *Session) LoginWithPassword(ctx context.Context, username, password string) error {
	epoch := s.epochs.Current()

	res, err := s.api.Login(ctx, username, password)
	if err != nil {
		if errors.Is(err, api.ErrLegacyNeedsPassword) {
			s.mu.Lock()
			if s.epochs.Valid(epoch) {
				s.state = StateLegacyNeedsPassword
			}
			s.mu.Unlock()
		}
		return err
	}
	return s.adoptAuth(ctx, epoch, res)
}

// SetPasswordForLegacyAccount upgrades a pre-password account. The
// set-password response carries only a token, so a fresh user fetch
// follows before the session authenticates.
func (s *Session) SetPasswordForLegacyAccount(ctx context.Context, username, password string) error {
	epoch := s.epochs.Current()

	token, err := s.api.SetPassword(ctx, username, password)
	if err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	if !s.epochs.Valid(epoch) {
		return nil
	}

	s.api.SetToken(token)
	user, err := s.api.GetUser(ctx)
	if err != nil {
		s.api.ClearToken()
		return fmt.Errorf("fetch user after set-password: %w", err)
	}

	return s.adoptAuth(ctx, epoch, &api.AuthResult{User: user, Token: token})
}

// adoptAuth commits a successful authentication: persist credentials under
// the server's canonical username (never the caller's input), install the
// token on the transport, and publish the user. A stale epoch voids the
// whole result, including any side effect already applied: a logout that
// wins the race between the persist and the final check must not leave
// re-persisted credentials or a re-armed transport token behind.
func (s *Session) adoptAuth(ctx context.Context, epoch int64, res *api.AuthResult) error {
	if res.User == nil || res.Token == "" {
		return fmt.Errorf("adopt auth: %w", api.ErrUnavailable)
	}
	if !s.epochs.Valid(epoch) {
		s.discardAuth(ctx)
		return nil
	}

	if err := s.creds.Save(ctx, &creds.Credentials{Username: res.User.Username, Token: res.Token}); err != nil {
		return fmt.Errorf("persist credentials: %w", err)
	}
	s.api.SetToken(res.Token)

	s.mu.Lock()
	if !s.epochs.Valid(epoch) {
		s.mu.Unlock()
		s.discardAuth(ctx)
		return nil
	}
	u := *res.User
	s.user = &u
	s.username = res.User.Username
	s.token = res.Token
	s.state = StateAuthenticated
	s.hydrated = true
	s.mu.Unlock()
	s.log.Info(ctx, "authenticated", "username", res.User.Username)
	return nil
}

// discardAuth undoes the side effects of an authentication superseded by a
// logout: whatever credentials or transport token it installed after the
// logout's own cleanup are cleared again, unless a newer authentication
// has already committed its own.
func (s *Session) discardAuth(ctx context.Context) {
	s.mu.RLock()
	committed := s.state == StateAuthenticated
	s.mu.RUnlock()
	if committed {
		return
	}

	s.log.Debug(ctx, "discarding superseded authentication")
	if err := s.creds.Clear(ctx); err != nil {
		s.log.Error(ctx, "failed to clear superseded credentials", "error", err)
	}
	s.api.ClearToken()
}

// Logout tears the session down. The order is load-bearing:
//
//  1. bump the epoch, so in-flight operations discard their results;
//  2. clear persisted credentials, so a crash cannot resurrect them;
//  3. clear the transport token, so nothing can re-authenticate;
//  4. clear the in-memory user, token, and hero cache.
func (s *Session) Logout(ctx context.Context) error {
	s.epochs.Bump()

	clearErr := s.creds.Clear(ctx)
	s.api.ClearToken()

	s.mu.Lock()
	s.clearMemoryLocked()
	s.mu.Unlock()

	if clearErr != nil {
		return fmt.Errorf("clear credentials: %w", clearErr)
	}
	s.log.Info(ctx, "logged out")
	return nil
}

// forceLogout is the transport's auth-failure hook. It runs the exact
// logout sequence; by the time any failed request returns, the epoch is
// bumped and the token gone.
func (s *Session) forceLogout() {
	ctx := context.Background()
	s.log.Warn(ctx, "authorization failure, forcing logout")
	if err := s.Logout(ctx); err != nil {
		s.log.Error(ctx, "forced logout incomplete", "error", err)
	}
}
