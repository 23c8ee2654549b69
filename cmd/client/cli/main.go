package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/starfallrpg/starfall-client/internal/client/cli"
	"github.com/starfallrpg/starfall-client/internal/client/config"
	"github.com/starfallrpg/starfall-client/internal/logging"
)

func main() {
	cfg := config.LoadConfig()

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	app, err := cli.NewApp(cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(context.Background())
}
