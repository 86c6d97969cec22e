// Command migrate applies the embedded schema migrations to the configured
// database.
package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/avagner/authcore/internal/config"
	"github.com/avagner/authcore/internal/migrate"
)

func main() {
	cfgPath := flag.String("config", "", "path to a config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		zap.Must(zap.NewProduction()).Fatal("load config", zap.Error(err))
	}

	var logger *zap.Logger
	if cfg.Development() {
		logger = zap.Must(zap.NewDevelopment())
	} else {
		logger = zap.Must(zap.NewProduction())
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	version, err := migrate.Up(ctx, cfg.DSN())
	if err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}
	logger.Info("schema up to date", zap.Int64("version", version))
}
