package main

import (
	"context"
	"fmt"
	"os"

	"general-store/internal/adapters/cli"
	"general-store/internal/app"
	"general-store/internal/cache"
	"general-store/internal/config"
	"general-store/internal/db"
	"general-store/internal/logger"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, cli.Usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	lookupCache, err := cache.New(cfg.Redis, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lookup cache: %v\n", err)
		os.Exit(1)
	}
	defer lookupCache.Close()

	svc := app.NewAppService(app.NewServices(pool, log), lookupCache, log)
	if err := cli.Run(ctx, svc, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
