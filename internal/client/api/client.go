// Package api is the transport layer of the Starfall client: a thin REST
// client carrying the current bearer token, with a settable force-logout
// hook invoked on authorization failures.
package api

import (
	"context"

	"github.com/starfallrpg/starfall-client/internal/client/models"
)

// AuthResult is the server response to register and login calls. Username
// inside User is canonical; callers must persist it instead of their own
// input to avoid case/whitespace drift.
type AuthResult struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// Client defines the remote game API consumed by the session layer.
//
// Contract:
//   - SetToken/ClearToken: install or remove the bearer token used on all
//     subsequent authenticated requests.
//   - SetAuthFailureHandler: install the callback invoked whenever any
//     request fails with an authorization error. The transport never
//     imports the session package; the session injects itself here once
//     at boot.
//   - All remote calls honor context cancellation and timeouts.
//   - Failures are sentinel errors (ErrUnavailable, ErrUnauthorized,
//     ErrLegacyNeedsPassword) or *APIError for business failures.
type Client interface {
	SetToken(token string)
	ClearToken()
	SetAuthFailureHandler(fn func())

	Register(ctx context.Context, username, password string) (*AuthResult, error)
	Login(ctx context.Context, username, password string) (*AuthResult, error)
	SetPassword(ctx context.Context, username, password string) (token string, err error)

	GetUser(ctx context.Context) (*models.User, error)
	ListHeroes(ctx context.Context) ([]*models.OwnedHero, error)
	GetHero(ctx context.Context, instanceID string) (*models.OwnedHero, error)
	ListCatalog(ctx context.Context) ([]*models.HeroCatalogEntry, error)

	PullGacha(ctx context.Context, count int) (*models.GachaPullResult, error)
	UpgradeHero(ctx context.Context, instanceID string) (*models.OwnedHero, error)
	ClaimIdleRewards(ctx context.Context) (*models.IdleReward, error)
	GetCombatRating(ctx context.Context) (int, error)
}
