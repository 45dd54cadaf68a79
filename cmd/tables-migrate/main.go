package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/sherryycxie/tables/internal/logging"
	"github.com/sherryycxie/tables/internal/server/config"
	"github.com/sherryycxie/tables/internal/server/schema"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	logger := logging.New(logging.Options{Level: cfg.LogLevel})

	db, err := schema.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer db.Close()

	if cfg.Down {
		err = schema.Down(ctx, db)
	} else {
		err = schema.Up(ctx, db)
	}
	if err != nil {
		logger.Error(ctx, "migration failed", "err", err)
		db.Close()
		log.Fatalf("%v", err)
	}

	v, err := schema.Version(ctx, db)
	if err != nil {
		logger.Warn(ctx, "read schema version", "err", err)
		return
	}
	logger.Info(ctx, "schema migrated", "version", v)
}
