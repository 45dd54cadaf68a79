package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/sherryycxie/tables/internal/client/auth"
	"github.com/sherryycxie/tables/internal/client/cli"
	"github.com/sherryycxie/tables/internal/client/client"
	"github.com/sherryycxie/tables/internal/client/config"
	"github.com/sherryycxie/tables/internal/client/coordinator"
	"github.com/sherryycxie/tables/internal/client/realtime"
	"github.com/sherryycxie/tables/internal/client/registry"
	"github.com/sherryycxie/tables/internal/client/reminders"
	"github.com/sherryycxie/tables/internal/client/repositories/remote"
	"github.com/sherryycxie/tables/internal/client/rest"
	"github.com/sherryycxie/tables/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config.LoadConfig()); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})

	local, err := client.OpenLocal(ctx, cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer local.Close()

	if cfg.ResetLocal {
		n, err := local.Reset(ctx)
		if err != nil {
			return err
		}
		logger.Info(ctx, "local state cleared", "keys", n)
	}

	restClient, err := rest.New(cfg.APIURL, cfg.AnonKey, rest.WithTimeout(cfg.RequestTimeout))
	if err != nil {
		return err
	}
	rt, err := realtime.New(cfg.APIURL, cfg.AnonKey, logger, realtime.WithHeartbeat(cfg.HeartbeatInterval))
	if err != nil {
		return err
	}
	defer rt.Close()

	scheduler := reminders.NewScheduler(logger)
	defer scheduler.Close()

	coord := coordinator.New(coordinator.Deps{
		Auth:         auth.New(cfg.APIURL, cfg.AnonKey, local.Metadata),
		Repos:        remote.NewRepositories(restClient),
		Feed:         registry.FromRealtime(rt),
		Tokens:       rt,
		Local:        local.Metadata,
		Reminders:    scheduler,
		Logger:       logger,
		PollInterval: cfg.PollInterval,
	})
	defer coord.Close(context.WithoutCancel(ctx))

	if err := coord.RestoreSession(ctx); err != nil {
		logger.Info(ctx, "no saved session", "err", err)
	}

	app := cli.NewApp(coord, logger, cli.WithReminders(scheduler))
	return app.Run(ctx)
}
