package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/starfallrpg/starfall-client/internal/client/api"
	"github.com/starfallrpg/starfall-client/internal/client/models"
)

func authenticate(t *testing.T, s *Session, fapi *fakeAPI) {
	t.Helper()
	fapi.LoginRet = &api.AuthResult{User: &models.User{Username: "ada", Gems: 1000}, Token: "t1"}
	require.NoError(t, s.LoginWithPassword(context.Background(), "ada", "x"))
}

func TestMutate_Success_RefreshesUser(t *testing.T) {
	s, fapi, _ := newTestSession(t)
	authenticate(t, s, fapi)
	fapi.GetUserRet = &models.User{Username: "ada", Gems: 700}

	res := Mutate(context.Background(), s, MutationOpts[string]{RefreshUser: true},
		func(ctx context.Context) (string, error) { return "done", nil })

	require.True(t, res.OK)
	require.Equal(t, "done", res.Data)
	require.False(t, res.Stale)
	require.Equal(t, int64(700), s.Snapshot().User.Gems,
		"user must reflect the post-mutation balance")
}

func TestMutate_Success_NoRefreshWhenDisabled(t *testing.T) {
	s, fapi, _ := newTestSession(t)
	authenticate(t, s, fapi)
	before := fapi.GetUserCalls

	res := Mutate(context.Background(), s, MutationOpts[string]{},
		func(ctx context.Context) (string, error) { return "done", nil })

	require.True(t, res.OK)
	require.Equal(t, before, fapi.GetUserCalls)
}

func TestMutate_Failure_ServerDetailVerbatim(t *testing.T) {
	s, fapi, _ := newTestSession(t)
	authenticate(t, s, fapi)
	before := fapi.GetUserCalls

	res := Mutate(context.Background(), s, MutationOpts[string]{RefreshUser: true},
		func(ctx context.Context) (string, error) {
			return "", &api.APIError{Status: 400, Detail: "not enough gems"}
		})

	require.False(t, res.OK)
	require.Equal(t, "not enough gems", res.Detail)
	require.Equal(t, before, fapi.GetUserCalls,
		"a failed mutation must not refresh the user: the balance was never spent")
}

func TestMutate_Failure_GenericFallbackDetail(t *testing.T) {
	s, fapi, _ := newTestSession(t)
	authenticate(t, s, fapi)

	res := Mutate(context.Background(), s, MutationOpts[string]{},
		func(ctx context.Context) (string, error) { return "", api.ErrUnavailable })

	require.False(t, res.OK)
	require.Equal(t, genericFailureDetail, res.Detail)
}

func TestMutate_OnSuccess_ReceivesData(t *testing.T) {
	s, fapi, _ := newTestSession(t)
	authenticate(t, s, fapi)

	var got int
	res := Mutate(context.Background(), s, MutationOpts[int]{
		OnSuccess: func(ctx context.Context, data int) { got = data },
	}, func(ctx context.Context) (int, error) { return 42, nil })

	require.True(t, res.OK)
	require.Equal(t, 42, got)
}

func TestMutate_LogoutMidFlight_ResultDiscarded(t *testing.T) {
	s, fapi, _ := newTestSession(t)
	authenticate(t, s, fapi)

	var hookRan bool
	res := Mutate(context.Background(), s, MutationOpts[string]{
		RefreshUser: true,
		OnSuccess:   func(ctx context.Context, data string) { hookRan = true },
	}, func(ctx context.Context) (string, error) {
		// forced logout lands between mutation start and resolve
		require.NoError(t, s.Logout(ctx))
		return "too late", nil
	})

	require.False(t, res.OK)
	require.True(t, res.Stale)
	require.Empty(t, res.Detail, "a stale result is not a failure")
	require.False(t, hookRan)

	snap := s.Snapshot()
	require.Equal(t, StateAnonymous, snap.State, "state must equal the post-logout state")
	require.Nil(t, snap.User)
}

func TestMutate_Unauthenticated_Panics(t *testing.T) {
	s, _, _ := newTestSession(t)

	require.Panics(t, func() {
		Mutate(context.Background(), s, MutationOpts[string]{},
			func(ctx context.Context) (string, error) { return "", nil })
	})
}

func TestUpgradeHero_ForceRefreshesUpgradedHero(t *testing.T) {
	s, fapi, _ := newTestSession(t)
	authenticate(t, s, fapi)
	fapi.GetUserRet = &models.User{Username: "ada"}
	fapi.UpgradeFn = func(ctx context.Context, id string) (*models.OwnedHero, error) {
		return &models.OwnedHero{InstanceID: id, Level: 5}, nil
	}
	fapi.GetHeroFn = func(ctx context.Context, id string) (*models.OwnedHero, error) {
		return &models.OwnedHero{InstanceID: id, Level: 5, Power: 900}, nil
	}

	res := s.UpgradeHero(context.Background(), "h1")
	require.True(t, res.OK)
	require.Equal(t, []string{"h1"}, fapi.LastGetHeroIDs)

	h, ok := s.SelectHeroByID("h1")
	require.True(t, ok)
	require.Equal(t, 5, h.Level)
	require.Equal(t, 900, h.Power)
}

func TestClaimIdleRewards_RefreshesUser(t *testing.T) {
	s, fapi, _ := newTestSession(t)
	authenticate(t, s, fapi)
	fapi.ClaimRet = &models.IdleReward{Gold: 250, ElapsedSecs: 3600}
	fapi.GetUserRet = &models.User{Username: "ada", Gold: 1250}

	res := s.ClaimIdleRewards(context.Background())
	require.True(t, res.OK)
	require.Equal(t, int64(250), res.Data.Gold)
	require.Equal(t, int64(1250), s.Snapshot().User.Gold)
}
