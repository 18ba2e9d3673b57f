package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/corvidchat/corvid/internal/app"
	"github.com/corvidchat/corvid/internal/config"
	"github.com/corvidchat/corvid/internal/logger"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg, path, err := config.Load(&logger.Log, configPath)
	if err != nil {
		logger.Log.Fatal().Err(err).Str("path", path).Msg("Failed to load config")
	}
	logger.SetLevelByName(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(cfg)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to start")
	}

	logger.Log.Info().Str("config", path).Msg("corvid starting")
	if err := application.Run(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Client exited with error")
	}
	logger.Log.Info().Msg("corvid stopped")
}
