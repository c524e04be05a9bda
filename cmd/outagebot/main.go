// Command outagebot runs the outage counter chat bot.
//
// # Usage
//
//	outagebot -config bot.yaml
//	outagebot -config bot.yaml -exec "what is the high score"
//
// # Configuration
//
// The bot can be configured via:
// - A YAML config file (-config)
// - A .env file (-env, default ./.env when present)
// - Environment variables (OUTAGEBOT_*, OP_CONNECT_*)
// - Command-line flags
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pilot-net/outage-counter/internal/api"
	"github.com/pilot-net/outage-counter/internal/command"
	"github.com/pilot-net/outage-counter/internal/config"
	"github.com/pilot-net/outage-counter/internal/metrics"
	"github.com/pilot-net/outage-counter/internal/secrets"
	"github.com/pilot-net/outage-counter/internal/store"
	"github.com/pilot-net/outage-counter/internal/tracker"
)

func main() {
	var (
		configFile = flag.String("config", "", "Path to config file")
		envFile    = flag.String("env", "", "Path to .env file")
		listen     = flag.String("listen", "", "HTTP listen address (overrides config)")
		execText   = flag.String("exec", "", "Run a single command, print the reply and exit")
		debug      = flag.Bool("debug", false, "Enable debug logging")
		version    = flag.Bool("version", false, "Print version and exit")
	)
	flag.Parse()

	if *version {
		fmt.Println("outagebot v0.1.0")
		os.Exit(0)
	}

	// Set up logging
	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))

	// Load configuration
	cfg := config.DefaultConfig()
	if *configFile != "" {
		var err error
		cfg, err = config.LoadFromFile(*configFile)
		if err != nil {
			logger.Error("failed to load config", "error", err)
			os.Exit(1)
		}
	}
	if err := config.LoadDotEnv(*envFile); err != nil {
		logger.Error("failed to load env file", "error", err)
		os.Exit(1)
	}
	cfg.ApplyEnvOverrides()
	if *listen != "" {
		cfg.Server.Listen = *listen
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := secrets.ResolveStoreURL(ctx, cfg, logger); err != nil {
		logger.Error("failed to resolve secrets", "error", err)
		os.Exit(1)
	}

	// Connect to the outage store
	st, err := store.Open(ctx, cfg.Store, logger)
	if err != nil {
		logger.Error("failed to open outage store", "backend", cfg.Store.Backend, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	loc, _ := cfg.Tracker.Location() // checked by Validate
	tr := tracker.New(st, logger, tracker.WithLocation(loc))
	dispatcher := command.NewDispatcher(tr, logger)

	if *execText != "" {
		code := execOnce(dispatcher, *execText, logger)
		st.Close()
		cancel()
		os.Exit(code)
	}

	collector := metrics.NewCollector(st, cfg.Store.Backend, logger)
	apiServer := api.NewServer(dispatcher, tr, collector, cfg.RateLimit, logger)

	server := &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      apiServer,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server
	go func() {
		logger.Info("starting server", "listen", cfg.Server.Listen, "backend", cfg.Store.Backend)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	logger.Info("shutting down", "signal", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}

// execOnce runs one command and returns the process exit code.
func execOnce(d *command.Dispatcher, text string, logger *slog.Logger) int {
	ctx, cancel := context.WithTimeout(context.Background(), config.StoreOperationTimeout)
	defer cancel()

	reply, err := d.Handle(ctx, text)
	switch {
	case errors.Is(err, command.ErrUnknownCommand):
		fmt.Fprintln(os.Stderr, command.HelpText())
		return 2
	case err != nil:
		logger.Error("command failed", "error", err)
		return 1
	}

	fmt.Println(reply)
	return 0
}
