// Package auth issues tokens for card-number and password logins.
package auth

import (
	"context"
	"errors"
	"time"

	apperrors "amafaranga/internal/errors"
	"amafaranga/internal/models"
	"amafaranga/internal/utils"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = &apperrors.DomainError{
	Code:    "INVALID_CREDENTIALS",
	Message: "invalid credentials",
}

type AccountFinder interface {
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	FindAccountByCardNumber(ctx context.Context, cardNumber string) (*models.Account, error)
}

type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type Service struct {
	accounts  AccountFinder
	secret    string
	accessTTL time.Duration
	log       zerolog.Logger
}

func NewService(accounts AccountFinder, secret string, accessTTL time.Duration, log zerolog.Logger) *Service {
	return &Service{
		accounts:  accounts,
		secret:    secret,
		accessTTL: accessTTL,
		log:       log.With().Str("component", "auth").Logger(),
	}
}

func (s *Service) Login(ctx context.Context, cardNumber, password string) (*models.Account, *Tokens, error) {
	account, err := s.accounts.FindAccountByCardNumber(ctx, cardNumber)
	if err != nil {
		s.log.Info().Str("card_number", mask(cardNumber)).Msg("login failed: unknown card")
		return nil, nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		s.log.Info().Str("account_id", account.ID).Msg("login failed: wrong password")
		return nil, nil, ErrInvalidCredentials
	}

	tokens, err := s.issue(account)
	if err != nil {
		return nil, nil, err
	}
	return account, tokens, nil
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	_, claims, err := utils.ParseToken(refreshToken, s.secret)
	if err != nil || claims.TokenType != models.TokenRefresh {
		return nil, ErrInvalidCredentials
	}

	account, err := s.accounts.GetAccount(ctx, claims.AccountID)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(account)
}

// VerifyToken validates an access token.
func (s *Service) VerifyToken(token string) (*models.AccountClaims, error) {
	_, claims, err := utils.ParseToken(token, s.secret)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != models.TokenAccess {
		return nil, errors.New("not an access token")
	}
	return claims, nil
}

func (s *Service) issue(account *models.Account) (*Tokens, error) {
	access, refresh, err := utils.GenerateTokens(&models.AccountClaims{
		AccountID:   account.ID,
		CardNumber:  account.CardNumber,
		Role:        account.Role,
		Permissions: models.GetDefaultPermissions(account.Role),
	}, s.secret, s.accessTTL)
	if err != nil {
		s.log.Error().Err(err).Msg("token generation failed")
		return nil, errors.New("error generating tokens")
	}
	return &Tokens{AccessToken: access, RefreshToken: refresh}, nil
}

// HashPassword returns the bcrypt hash stored on accounts.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func mask(card string) string {
	if len(card) <= 4 {
		return card
	}
	return "******" + card[len(card)-4:]
}
