package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"

	"relay-lab/auth"
	"relay-lab/gateway"
	"relay-lab/internal"
	"relay-lab/repositories"
	"relay-lab/runtime"
	"relay-lab/runtime/workers"
	"relay-lab/services"
	signal2 "relay-lab/signal"
)

// Exit codes for the relay server.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function manages the OS exit code based on run()'s return.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// This pattern is preferred over calling os.Exit or panic directly because:
// 1. It ensures all 'defer' statements (like database cleanup) are executed before the program exits.
// 2. It improves testability by decoupling the initialization logic from the main entry point.
// 3. It provides a structured way to handle graceful shutdowns for the gateway and background workers.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := internal.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	//  Defer will be executed before run() returned anything to main()
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Core components
	registry := runtime.NewRegistry(log)
	messageRepository := repositories.NewMessageRepository(db, log, config.LimitMessages)
	messageService := services.NewMessageService(log, messageRepository, registry, config.MaxContentLength)
	callService := services.NewCallService(signal2.NewEngine(log, registry))
	verifier := auth.NewTokenVerifier(config.JWTSecret)

	gw := gateway.NewGateway(log, verifier, registry, messageService, callService,
		config.ConnectionBufferSize, config.WriteTimeout)

	mux := http.NewServeMux()
	mux.Handle("/ws", gw)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler: mux,
	}

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Supervision: the gateway server plus the background maintenance workers.
	sup := workers.NewSupervisor(log)
	sup.Add(
		workers.NewHTTPServerWorker(log, server),
		workers.NewBadgerGCWorker(log, db, config.GCInterval),
		workers.NewHeartbeatWorker(log, registry, config.MetricInterval),
	)

	// Run blocks until the context is canceled and every worker returned.
	sup.Run(ctx)

	log.Info("Program stopped cleanly")
	return exitOK, nil
}
