package session

import (
	"context"
	"errors"

	"github.com/starfallrpg/starfall-client/internal/client/api"
	"github.com/starfallrpg/starfall-client/internal/client/models"
)

// genericFailureDetail is shown when the server gave no reason.
const genericFailureDetail = "something went wrong, please try again"

// Result is the discriminated outcome of a safe mutation. Exactly one of
// the three shapes occurs:
//
//   - OK:    the mutation succeeded, Data holds the server response;
//   - !OK:   the mutation failed, Detail holds the server's reason or a
//     generic fallback;
//   - Stale: a logout superseded the mutation while it was in flight; the
//     result was discarded. Not a failure, carries no detail, and must
//     not be surfaced to the player.
type Result[T any] struct {
	OK     bool
	Data   T
	Detail string
	Stale  bool
}

// MutationOpts configures one safe mutation call site.
type MutationOpts[T any] struct {
	// RefreshUser re-fetches the user resource after success, so any
	// balance the mutation touched is never displayed speculatively.
	RefreshUser bool

	// OnSuccess runs after a successful, non-stale mutation (and after the
	// user refresh, if any). Used e.g. to refresh the hero cache after a
	// gacha pull.
	OnSuccess func(ctx context.Context, data T)
}

// Mutate wraps a state-changing server call so that no error ever escapes:
// every economic operation (currency spend, hero upgrade, gacha pull)
// returns a Result the caller can branch on. Calling a mutation with no
// authenticated user is a programmer error and panics.
func Mutate[T any](ctx context.Context, s *Session, opts MutationOpts[T], fn func(ctx context.Context) (T, error)) Result[T] {
	if !s.isAuthenticated() {
		panic("session: mutation requires an authenticated user")
	}

	epoch := s.epochs.Current()

	data, err := fn(ctx)

	if !s.epochs.Valid(epoch) {
		// A newer session took over mid-flight. The network side ran to
		// completion, but its local effects are void.
		s.log.Debug(ctx, "discarding stale mutation result", "epoch", epoch)
		return Result[T]{Stale: true}
	}

	if err != nil {
		return Result[T]{Detail: failureDetail(err)}
	}

	if opts.RefreshUser {
		s.refreshUser(ctx, epoch)
	}
	if opts.OnSuccess != nil {
		opts.OnSuccess(ctx, data)
	}
	return Result[T]{OK: true, Data: data}
}

// failureDetail extracts the server-provided human-readable reason when
// present, else the generic fallback.
func failureDetail(err error) string {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return genericFailureDetail
}

// refreshUser re-fetches the user resource and publishes it under the
// captured epoch. Failures are logged, not surfaced: the next refresh or
// screen load will catch the server up.
func (s *Session) refreshUser(ctx context.Context, epoch int64) {
	user, err := s.api.GetUser(ctx)
	if err != nil {
		s.log.Warn(ctx, "user refresh after mutation failed", "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.epochs.Valid(epoch) {
		return
	}
	s.user = user
}

// PullGacha performs a gacha pull, refreshes the user balances, and brings
// the hero cache up to date with the pull's contents.
func (s *Session) PullGacha(ctx context.Context, count int) Result[*models.GachaPullResult] {
	return Mutate(ctx, s, MutationOpts[*models.GachaPullResult]{
		RefreshUser: true,
		OnSuccess: func(ctx context.Context, pull *models.GachaPullResult) {
			if err := s.RefreshHeroesAfterGacha(ctx, pull); err != nil {
				s.log.Warn(ctx, "hero refresh after gacha failed", "error", err)
			}
		},
	}, func(ctx context.Context) (*models.GachaPullResult, error) {
		return s.api.PullGacha(ctx, count)
	})
}

// UpgradeHero levels up one owned hero. The upgraded hero is force-
// refreshed into the cache since the bulk list is now stale for it.
func (s *Session) UpgradeHero(ctx context.Context, instanceID string) Result[*models.OwnedHero] {
	return Mutate(ctx, s, MutationOpts[*models.OwnedHero]{
		RefreshUser: true,
		OnSuccess: func(ctx context.Context, h *models.OwnedHero) {
			if _, err := s.HeroByID(ctx, h.InstanceID, true); err != nil {
				s.log.Warn(ctx, "hero refresh after upgrade failed", "error", err)
			}
		},
	}, func(ctx context.Context) (*models.OwnedHero, error) {
		return s.api.UpgradeHero(ctx, instanceID)
	})
}

// ClaimIdleRewards claims accrued idle rewards and refreshes the balances
// they were paid into.
func (s *Session) ClaimIdleRewards(ctx context.Context) Result[*models.IdleReward] {
	return Mutate(ctx, s, MutationOpts[*models.IdleReward]{
		RefreshUser: true,
	}, func(ctx context.Context) (*models.IdleReward, error) {
		return s.api.ClaimIdleRewards(ctx)
	})
}
