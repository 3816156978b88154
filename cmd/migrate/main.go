package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/guildboard/guildboard/internal/authz"
	"github.com/guildboard/guildboard/internal/config"
	"github.com/guildboard/guildboard/internal/store/postgres"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := postgres.New(ctx, postgres.Config{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Database,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: 2,
		MaxIdleConns: 1,
	})
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer db.Close()

	fmt.Println("Connected to database")

	fmt.Println("Applying initial schema...")
	if err := db.Migrate(ctx, postgres.InitialSchema); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	if len(os.Args) > 1 && os.Args[1] == "--seed" {
		n, err := authz.EnsureRolesSeeded(ctx, postgres.NewRoleRepository(db), authz.SeedRoles)
		if err != nil {
			log.Fatalf("Role seeding failed: %v", err)
		}
		res, err := authz.EnsureSeeded(ctx, postgres.NewPermissionRepository(db), authz.Manifest)
		if err != nil {
			log.Fatalf("Catalog seeding failed: %v", err)
		}
		fmt.Printf("Seeded %d roles, %d permissions (%d already present)\n", n, res.Created, res.Existing)
	}

	fmt.Println("Migration successful.")
}
