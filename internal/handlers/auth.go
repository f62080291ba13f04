package handlers

import (
	"amafaranga/internal/services/auth"
	"amafaranga/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

type AuthHandler struct {
	authService *auth.Service
	log         zerolog.Logger
}

func NewAuthHandler(authService *auth.Service, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, log: log}
}

// Login handles POST /api/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input struct {
		CardNumber string `json:"card_number"`
		Password   string `json:"password"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}
	if input.CardNumber == "" || input.Password == "" {
		return utils.BadRequest(c, "card_number and password are required")
	}

	account, tokens, err := h.authService.Login(c.UserContext(), input.CardNumber, input.Password)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return utils.Success(c, fiber.Map{
		"account":       account,
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
	})
}

// Refresh handles POST /api/refresh.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var input struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.BodyParser(&input); err != nil || input.RefreshToken == "" {
		return utils.BadRequest(c, "refresh_token is required")
	}

	tokens, err := h.authService.Refresh(c.UserContext(), input.RefreshToken)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return utils.Success(c, tokens)
}
