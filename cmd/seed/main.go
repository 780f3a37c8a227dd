// Command seed fills the database with demo data.
package main

import (
	"context"
	"flag"
	"log"

	"bucketlist/internal/config"
	"bucketlist/internal/database"
	"bucketlist/internal/middleware"
	"bucketlist/internal/seed"
)

func main() {
	presetPath := flag.String("preset", "", "YAML preset file (defaults to the built-in preset)")
	users := flag.Int("users", 0, "Override the number of users")
	clean := flag.Bool("clean", false, "Drop and recreate all tables first")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	middleware.ConfigureLogger(cfg.Env)
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	preset := seed.DefaultPreset()
	if *presetPath != "" {
		if preset, err = seed.LoadPreset(*presetPath); err != nil {
			log.Fatalf("Failed to load preset: %v", err)
		}
	}
	if *users > 0 {
		preset.Users = *users
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	s := seed.NewSeeder(db, cfg.BcryptCost)
	if *clean {
		if err := s.Clear(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	} else if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	summary, err := s.Run(ctx, preset)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Printf("Created %d users, %d buckets, %d upvotes, %d comments",
		summary.Users, summary.Buckets, summary.Upvotes, summary.Comments)
	log.Printf("All seeded users have the password: %s", preset.Password)
}
