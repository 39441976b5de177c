package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/parlor-chat/parlor/internal/v1/catalog"
	"github.com/parlor-chat/parlor/internal/v1/config"
	"github.com/parlor-chat/parlor/internal/v1/logging"
	"github.com/parlor-chat/parlor/internal/v1/ops"
	"github.com/parlor-chat/parlor/internal/v1/room"
	"github.com/parlor-chat/parlor/internal/v1/server"
)

func main() {
	// Load .env file for local development.
	// Try multiple paths to handle different ways of running the app
	envPaths := []string{".env", "../../../.env", "../../.env"}
	var envLoaded bool

	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			slog.Info("Loaded environment from", "path", path)
			envLoaded = true
			break
		}
	}

	if !envLoaded {
		slog.Warn("No .env file found in any expected location, relying on environment variables")
	}

	// Validate environment variables before starting the server
	cfg, err := config.ValidateEnv()
	if err != nil {
		slog.Error("Environment validation failed", "error", err)
		os.Exit(1)
	}

	if cfg.DevelopmentMode {
		slog.Info("Running in DEVELOPMENT MODE")
	}

	if err := logging.Initialize(cfg.DevelopmentMode); err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}
	defer logging.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The room catalog is embedded and immutable for the lifetime of the
	// process.
	rooms, err := catalog.Load()
	if err != nil {
		logging.Error(ctx, "failed to load room catalog", zap.Error(err))
		os.Exit(1)
	}

	dir, err := room.NewDirectory(rooms)
	if err != nil {
		logging.Error(ctx, "invalid room catalog", zap.Error(err))
		os.Exit(1)
	}

	srv := server.New(cfg.ListenAddr(), dir)

	// Bind before wiring anything else so a bad port fails fast.
	if err := srv.Listen(); err != nil {
		logging.Error(ctx, "failed to bind chat listener", zap.Error(err))
		os.Exit(1)
	}

	var wg sync.WaitGroup

	// Operational HTTP listener: /metrics and /health. OPS_ADDR="" disables it.
	if cfg.OpsAddr != "" {
		handler := ops.NewHandler(func() bool { return true })
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ops.Serve(ctx, cfg.OpsAddr, handler); err != nil {
				logging.Error(ctx, "ops listener failed", zap.Error(err))
			}
		}()
		logging.Info(ctx, "ops listener starting", zap.String("addr", cfg.OpsAddr))
	}

	if err := srv.Run(ctx); err != nil {
		logging.Error(ctx, "chat server failed", zap.Error(err))
		os.Exit(1)
	}

	stop()
	wg.Wait()

	logging.Info(context.Background(), "server exiting")
}
