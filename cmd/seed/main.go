// Command seed fills the database with demo content.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"quill/internal/config"
	"quill/internal/database"
	"quill/internal/middleware"
	"quill/internal/seed"
)

func main() {
	presetPath := flag.String("preset", "", "YAML preset file (defaults to the built-in preset)")
	printToken := flag.Bool("token", false, "Print a development bearer token for the first seeded profile")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	preset := seed.DefaultPreset
	if *presetPath != "" {
		if preset, err = seed.LoadPreset(*presetPath); err != nil {
			log.Fatalf("Failed to load preset: %v", err)
		}
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	sum, err := seed.NewSeeder(db).Run(context.Background(), preset)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	if *printToken && len(sum.Profiles) > 0 {
		first := sum.Profiles[0]
		tok, err := middleware.NewAuthenticator(cfg.JWTSecret).SignToken(first.ID, 24*time.Hour)
		if err != nil {
			log.Fatalf("Failed to sign token: %v", err)
		}
		fmt.Printf("profile %s (id %d)\nAuthorization: Bearer %s\n", first.Username, first.ID, tok)
	}
}
