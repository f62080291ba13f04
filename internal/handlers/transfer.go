package handlers

import (
	"amafaranga/internal/middleware"
	"amafaranga/internal/services/transfer"
	"amafaranga/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// TransferHandler exposes P2P transfer endpoints.
type TransferHandler struct {
	service *transfer.Service
	log     zerolog.Logger
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(s *transfer.Service, log zerolog.Logger) *TransferHandler {
	return &TransferHandler{service: s, log: log}
}

// Transfer handles POST /api/transfers.
func (h *TransferHandler) Transfer(c *fiber.Ctx) error {
	claims, err := accountClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var req struct {
		CardNumber string          `json:"card_number"`
		Amount     decimal.Decimal `json:"amount"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "invalid request")
	}

	receipt, err := h.service.Transfer(c.UserContext(), transfer.Request{
		SenderID:            claims.AccountID,
		RecipientCardNumber: req.CardNumber,
		Amount:              req.Amount,
		IdempotencyKey:      c.Get(middleware.IdempotencyHeader),
	})
	if err != nil {
		return respondError(c, h.log, err)
	}

	if receipt.Replayed {
		return utils.Success(c, receipt)
	}
	return utils.Created(c, receipt)
}
