package main

import (
	"flag"
	"fmt"
	"os"

	"general-store/internal/config"
	"general-store/internal/db"
	"general-store/internal/logger"

	"go.uber.org/zap"
)

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: migrate [-log-level level] <command>

Commands:
  up        apply all pending migrations
  down      roll back every migration
  version   print the current schema version`)
}

func main() {
	var logLevel string
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	log := logger.New(logger.Config{Level: logLevel, Format: "console"})
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration", zap.Error(err))
	}

	m, err := db.NewMigrator(cfg.Database.URL, log)
	if err != nil {
		log.Fatal("failed to create migrator", zap.Error(err))
	}
	defer m.Close()

	switch command {
	case "up":
		if err := m.Up(); err != nil {
			log.Fatal("migration up failed", zap.Error(err))
		}
	case "down":
		if err := m.Down(); err != nil {
			log.Fatal("migration down failed", zap.Error(err))
		}
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			log.Fatal("failed to read schema version", zap.Error(err))
		}
		fmt.Printf("version %d (dirty: %t)\n", version, dirty)
	default:
		printUsage()
		os.Exit(1)
	}
}
