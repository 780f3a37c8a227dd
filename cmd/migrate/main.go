// Command migrate runs schema operations for the API database.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"bucketlist/internal/config"
	"bucketlist/internal/database"
	"bucketlist/internal/middleware"
	"bucketlist/internal/token"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate <up|reset|purge-tokens>")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	middleware.ConfigureLogger(cfg.Env)

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	ctx := context.Background()
	switch strings.ToLower(strings.TrimSpace(flag.Arg(0))) {
	case "up":
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
		log.Println("migrations applied")
	case "reset":
		if cfg.IsProduction() {
			return fmt.Errorf("refusing to reset a production database")
		}
		if err := database.Reset(ctx, db); err != nil {
			return err
		}
		log.Println("schema dropped and recreated")
	case "purge-tokens":
		n, err := token.NewDBBlacklist(db).PurgeExpired(ctx, time.Now())
		if err != nil {
			return err
		}
		log.Printf("purged %d expired blacklist entries", n)
	default:
		return usage()
	}
	return nil
}
