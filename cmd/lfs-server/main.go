package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"lfs-gateway/internal/httpapi"
	"lfs-gateway/internal/logging"
	"lfs-gateway/internal/server"
)

func main() {
	// Parse the positional deployment selection, then the environment
	args := os.Args[1:]

	cfg := &server.Config{}
	if err := cfg.ParseArgs(args); err != nil {
		log.Fatalf("Error: %v", err)
	}
	if err := cfg.ParseEnv(); err != nil {
		log.Fatalf("Error: %v", err)
	}

	// Wire the selected implementations
	logger := logging.New()
	services, err := server.Compose(context.Background(), cfg, logger)
	if err != nil {
		log.Fatalf("Error composing server: %v", err)
	}

	r := httpapi.NewRouter(services)

	addr := "0.0.0.0:3000"
	log.Printf("Starting lfs-gateway on %s", addr)
	if cfg.WithProxy {
		log.Printf("Transfer mode: proxy")
	} else {
		log.Printf("Transfer mode: signer")
	}
	if cfg.WithLocks {
		log.Printf("Locks: postgres")
	} else {
		log.Printf("Locks: disabled")
	}

	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("Error starting server: %v", err)
	}
}
