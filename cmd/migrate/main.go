// Package main applies or reverts the embedded database schema.
//
// Usage:
//
//	migrate up
//	migrate down [N]
//	migrate version
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"freshledger/internal/config"
	"freshledger/internal/infrastructure/storage/postgres"
	"freshledger/internal/infrastructure/storage/postgres/migrations"
	"freshledger/pkg/logger"
)

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Development: cfg.IsDevelopment(), Process: "migrate"})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()
	poolCfg := postgres.PoolConfigFor(cfg.DatabaseURL, postgres.RoleMigrate, cfg.DBMaxConns, 0)
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	m, err := migrations.New(pool.Unwrap())
	if err != nil {
		log.Fatalw("failed to create migrator", "error", err)
	}

	switch os.Args[1] {
	case "up":
		if err := m.Up(); err != nil {
			log.Fatalw("migrate up failed", "error", err)
		}
	case "down":
		n := 1
		if len(os.Args) > 2 {
			n, err = strconv.Atoi(os.Args[2])
			if err != nil || n < 1 {
				log.Fatalw("invalid step count", "arg", os.Args[2])
			}
		}
		if err := m.Down(n); err != nil {
			log.Fatalw("migrate down failed", "steps", n, "error", err)
		}
	case "version":
	default:
		usage()
	}

	version, dirty, err := m.Version()
	if err != nil {
		log.Fatalw("failed to read schema version", "error", err)
	}
	log.Infow("schema version", "version", version, "dirty", dirty)
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: migrate up | down [N] | version")
	os.Exit(2)
}
