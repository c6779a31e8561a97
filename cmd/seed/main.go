package main

import (
	"context"
	"errors"
	"flag"

	"github.com/joho/godotenv"

	"github.com/oksasatya/go-user-session/config"
	"github.com/oksasatya/go-user-session/internal/domain/entity"
	repo "github.com/oksasatya/go-user-session/internal/domain/repository"
	pginfra "github.com/oksasatya/go-user-session/internal/infrastructure/postgres"
	"github.com/oksasatya/go-user-session/pkg/helpers"
)

// seed creates a demo account through the same repository the API uses.
func main() {
	username := flag.String("username", "demo", "username")
	email := flag.String("email", "demo@example.com", "email")
	password := flag.String("password", "password123", "password")
	avatar := flag.String("avatar", "https://storage.googleapis.com/public/avatars/default.png", "avatar url")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)
	ctx := context.Background()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), 2, 1, cfg.DBMaxConnLife)
	if err != nil {
		logger.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()
	users := pginfra.NewUserRepository(pool)

	hash, err := helpers.HashPassword(*password)
	if err != nil {
		logger.Fatalf("failed to hash password: %v", err)
	}
	u := &entity.User{
		Username:     *username,
		Email:        *email,
		FullName:     "Demo User",
		PasswordHash: hash,
		AvatarURL:    *avatar,
	}
	if err := users.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicateIdentity) {
			logger.WithField("username", *username).Info("demo user already exists")
			return
		}
		logger.Fatalf("failed to seed user: %v", err)
	}
	logger.WithField("id", u.ID).WithField("username", u.Username).Info("seeded user")
}
