package main

import (
	"context"
	"errors"
	"os"

	"amafaranga/internal/config"
	"amafaranga/internal/logger"
	"amafaranga/internal/models"
	"amafaranga/internal/repositories"
	"amafaranga/internal/services/auth"
	"amafaranga/internal/services/recipient"
	"amafaranga/internal/utils/validation"

	"github.com/shopspring/decimal"
)

func main() {
	config.LoadEnv()
	log := logger.New()

	adminPassword := os.Getenv("ADMIN_PASSWORD")
	adminPhone := os.Getenv("ADMIN_PHONE")
	adminName := config.GetEnv("ADMIN_NAME", "Administrator")
	adminCard := os.Getenv("ADMIN_CARD_NUMBER")

	if adminPassword == "" || adminPhone == "" {
		log.Fatal().Msg("ADMIN_PASSWORD and ADMIN_PHONE must be set in environment")
	}
	v := validation.New()
	v.Password(adminPassword, "ADMIN_PASSWORD")
	v.Check(validation.IsPhone(adminPhone), "ADMIN_PHONE", "must be a phone number")
	v.Check(adminCard == "" || validation.IsCardNumber(adminCard), "ADMIN_CARD_NUMBER", "must be ten digits")
	if err := v.Err(); err != nil {
		log.Fatal().Err(err).Msg("invalid admin settings")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := repositories.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer func() {
		if err := repositories.Close(db); err != nil {
			log.Warn().Err(err).Msg("failed to close PostgreSQL connection")
		}
	}()
	if err := repositories.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	ctx := context.Background()
	store := repositories.NewGormStore(db, repositories.NewLocalFeed(), log)

	if adminCard != "" {
		existing, err := store.FindAccountByCardNumber(ctx, adminCard)
		if err == nil {
			log.Info().Str("account_id", existing.ID).Msg("Admin account already exists")
			return
		}
		if !errors.Is(err, repositories.ErrNotFound) {
			log.Fatal().Err(err).Msg("failed to look up admin card")
		}
	} else {
		adminCard, err = recipient.GenerateCardNumber()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to generate card number")
		}
	}

	hashedPassword, err := auth.HashPassword(adminPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to hash password")
	}

	admin := &models.Account{
		CardNumber:   adminCard,
		FullNames:    adminName,
		Phone:        adminPhone,
		PasswordHash: hashedPassword,
		Role:         models.RoleAdmin,
		Balance:      decimal.Zero,
	}
	if err := store.CreateAccount(ctx, admin); err != nil {
		log.Fatal().Err(err).Msg("failed to create admin account")
	}

	log.Info().
		Str("account_id", admin.ID).
		Str("card_number", admin.CardNumber).
		Msg("Admin account created")
}
