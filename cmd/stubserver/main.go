package main

import (
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/starfallrpg/starfall-client/internal/logging"
	"github.com/starfallrpg/starfall-client/internal/stubserver"
)

func main() {
	addr := flag.String("a", "127.0.0.1:8080", "address to listen on")
	legacy := flag.String("legacy", "", "seed a legacy account without a password, for testing the set-password flow")
	flag.Parse()

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	srv := stubserver.New(logger)
	if *legacy != "" {
		srv.AddLegacyAccount(*legacy)
	}

	log.Printf("stub server listening on %s", *addr)
	if err := http.ListenAndServe(*addr, srv.Handler()); err != nil {
		log.Fatalf("%v", err)
	}
}
