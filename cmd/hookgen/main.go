package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/tjfontaine/hookgen/internal/config"
	"github.com/tjfontaine/hookgen/internal/runtime"
	"github.com/tjfontaine/hookgen/internal/telemetry"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	path := os.Getenv("HOOKGEN_CONFIG")
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := runtime.NewLogger(os.Stdout, cfg.Log)
	slog.SetDefault(logger)

	shutdown, err := telemetry.InitTracer(cfg.Telemetry, logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	app, err := runtime.New(cfg, runtime.WithLogger(logger))
	if err != nil {
		logger.Error("failed to create app", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Start(ctx); err != nil {
		logger.Error("server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
