// Command seed creates a console login together with the merchant it owns.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_console/internal/config"
	"github.com/GTDGit/gtd_console/internal/database"
	"github.com/GTDGit/gtd_console/internal/models"
	"github.com/GTDGit/gtd_console/internal/repository"
	"github.com/GTDGit/gtd_console/internal/service"
)

func main() {
	var email, password, name, merchant string
	flag.StringVar(&email, "email", "", "login email")
	flag.StringVar(&password, "password", "", "login password")
	flag.StringVar(&name, "name", "", "display name of the user")
	flag.StringVar(&merchant, "merchant", "", "merchant name (defaults to the user name)")
	flag.Parse()

	if email == "" || password == "" {
		fmt.Fprintln(os.Stderr, "usage: seed -email <email> -password <password> [-name <name>] [-merchant <merchant>]")
		os.Exit(2)
	}
	if merchant == "" {
		merchant = name
	}
	if merchant == "" {
		merchant = email
	}

	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := database.Connect(&cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	authSvc := service.NewAuthService(repository.NewUserRepository(db))
	user, err := authSvc.CreateUser(ctx, email, password, name)
	if err != nil {
		log.Fatal().Err(err).Str("email", email).Msg("failed to create user")
	}

	m := &models.Merchant{UserID: user.ID, Name: merchant}
	if err := repository.NewMerchantRepository(db).Create(ctx, m); err != nil {
		log.Fatal().Err(err).Int("user_id", user.ID).Msg("failed to create merchant")
	}

	log.Info().Int("user_id", user.ID).Int("merchant_id", m.ID).Str("email", email).Msg("console account created")
}
