package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sparta-defense/internal/alertlog"
	"sparta-defense/internal/analytics"
	"sparta-defense/internal/bot"
	"sparta-defense/internal/config"
	"sparta-defense/internal/httpapi"
	"sparta-defense/internal/storage"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

func main() {
	app := &cli.Command{
		Name:  "sparta",
		Usage: "Guild defense alert bot",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration file (default CONFIG_PATH or config.yaml)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Override the configured log level",
			},
		},
		Action: run,
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, c *cli.Command) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if level := c.String("log-level"); level != "" {
		cfg.LogLevel = level
	}

	logger, err := config.BuildLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	store, err := storage.New(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		logger.Error("storage init failed", zap.Error(err))
		return err
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		logger.Error("migrations failed", zap.Error(err))
		return err
	}

	alertLogger := alertlog.NewLogger(store, logger.Named("alertlog"), cfg.Alerts.NotifyRetries)
	analyticsService := analytics.New(store)

	botSvc, err := bot.New(cfg, logger, store, alertLogger, analyticsService)
	if err != nil {
		logger.Error("bot init failed", zap.Error(err))
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := botSvc.Start(ctx); err != nil {
		logger.Error("bot start failed", zap.Error(err))
		return err
	}
	logger.Info("bot started", zap.String("database", cfg.Database.Driver))

	var server *httpapi.Server
	if cfg.Health.Enabled {
		server = httpapi.NewServer(logger.Named("http"), botSvc.Coordinator(), store)
		server.Start(cfg.Health.Addr)
	}

	<-ctx.Done()
	logger.Info("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if server != nil {
		_ = server.Shutdown(shutdownCtx)
	}
	botSvc.Close(shutdownCtx)
	return nil
}
