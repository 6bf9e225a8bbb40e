package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aristath/mevengine/internal/config"
	"github.com/aristath/mevengine/internal/core"
	"github.com/aristath/mevengine/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Config{Level: "info", Pretty: true}).Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.DevMode})

	log.Info().Msg("starting MEV engine")

	engine, err := core.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to wire engine")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Int("port", cfg.Port).Msg("engine wired, starting run loop")

	if err := engine.Run(ctx); err != nil {
		log.Error().Err(err).Msg("engine exited with error")
		os.Exit(1)
	}

	log.Info().Msg("engine stopped")
}
