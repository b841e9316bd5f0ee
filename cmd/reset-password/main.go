package main

import (
	"context"
	"flag"
	"log"

	"go-recycling-ledger/internal/repository"
	"go-recycling-ledger/internal/service"
	"go-recycling-ledger/pkg/config"
	"go-recycling-ledger/pkg/database"
	"go-recycling-ledger/pkg/jwt"
	"go-recycling-ledger/pkg/logger"
)

// Operator tool: sets a user's password, or creates the user with -create.
//
//	go run ./cmd/reset-password -email ana@coop.org -password s3cret
//	go run ./cmd/reset-password -create -email ana@coop.org -name "Ana" -password s3cret
func main() {
	email := flag.String("email", "", "user email")
	password := flag.String("password", "", "new password (min 6 characters)")
	name := flag.String("name", "", "full name, with -create")
	create := flag.Bool("create", false, "create the user if it does not exist")
	flag.Parse()

	if *email == "" || *password == "" {
		flag.Usage()
		log.Fatal("❌ -email and -password are required")
	}

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	zl := logger.New(cfg.LogLevel, cfg.LogFormat)

	// 2. Setup Database
	db, err := database.Connect(cfg, zl)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("❌ migrate: %v", err)
	}

	auth := service.NewAuthService(repository.NewUserRepo(db), jwt.NewManager(cfg.JWTSecret, cfg.JWTTTL, cfg.JWTIssuer), zl)
	ctx := service.WithActor(context.Background(), "reset-password")

	// 3. Create or update
	if *create {
		user, created, err := auth.EnsureUser(ctx, *email, *name, *password)
		if err != nil {
			log.Fatalf("❌ Failed to create user: %v", err)
		}
		if created {
			log.Printf("✅ User %s created", user.Email)
			return
		}
	}

	if err := auth.SetPassword(ctx, *email, *password); err != nil {
		log.Fatalf("❌ Failed to update password: %v", err)
	}
	log.Printf("✅ Success! Password for %s has been reset", *email)
}
