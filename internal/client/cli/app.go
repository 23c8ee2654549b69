// Package cli implements the interactive terminal client for Starfall: a
// small REPL over the session layer, mirroring the screens of the mobile
// client (login, hero roster, gacha, idle rewards).
package cli

import (
	"bufio"
	"context"
	"os"

	"github.com/starfallrpg/starfall-client/internal/client/api"
	"github.com/starfallrpg/starfall-client/internal/client/config"
	"github.com/starfallrpg/starfall-client/internal/client/creds"
	"github.com/starfallrpg/starfall-client/internal/client/session"
	"github.com/starfallrpg/starfall-client/internal/client/storage"
	"github.com/starfallrpg/starfall-client/internal/logging"

	_ "modernc.org/sqlite"
)

type App struct {
	config  *config.Config
	session *session.Session
	log     logging.Logger
	reader  *bufio.Reader
}

func NewApp(c *config.Config, log logging.Logger) (*App, error) {
	ctx := context.Background()

	db, err := storage.InitDatabase(ctx, c.DatabaseDSN)
	if err != nil {
		log.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	apiClient := api.NewHTTPClient(c.ServerEndpointURL, c.RequestTimeout, log)
	store := creds.NewSQLiteStore(db)
	sess := session.New(apiClient, store, log)

	return &App{
		config:  c,
		session: sess,
		log:     log,
		reader:  bufio.NewReader(os.Stdin),
	}, nil
}

func (a *App) Run(ctx context.Context) {
	if err := a.session.HydrateAuth(ctx); err != nil {
		a.log.Warn(ctx, "session restore failed, starting anonymously", "error", err)
	}
	a.Root(ctx)
}

func (a *App) isLoggedIn() bool {
	return a.session.State() == session.StateAuthenticated
}
