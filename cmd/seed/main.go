package main

import (
	"context"
	"errors"

	"github.com/angelmondragon/carline-backend/internal/bootstrap"
	"github.com/angelmondragon/carline-backend/internal/roster"
	"github.com/angelmondragon/carline-backend/internal/seed"
	"github.com/angelmondragon/carline-backend/internal/users"
)

func main() {
	ctx := context.Background()
	rt := bootstrap.MustStart(ctx, "seed")
	defer rt.Close()
	ctx = rt.Context(ctx)

	if rt.Config.App.IsProd() {
		rt.Exit(ctx, "refusing to seed", errors.New("demo accounts are never created in production"))
	}

	userRepo := users.NewRepository(rt.DB.DB())
	accounts, err := users.NewService(userRepo, rt.DB, rt.Config.Password, rt.Logger)
	if err != nil {
		rt.Exit(ctx, "failed to create users service", err)
	}
	seeder, err := seed.NewSeeder(accounts, userRepo, roster.NewRepository(rt.DB.DB()), rt.Logger)
	if err != nil {
		rt.Exit(ctx, "failed to create seeder", err)
	}
	if _, err := seeder.Run(ctx, seed.Demo()); err != nil {
		rt.Exit(ctx, "seeding finished with errors", err)
	}
}
