package handlers

import (
	"amafaranga/internal/models"
	"amafaranga/internal/services/settlement"
	"amafaranga/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type SettlementHandler struct {
	service *settlement.Service
	log     zerolog.Logger
}

func NewSettlementHandler(service *settlement.Service, log zerolog.Logger) *SettlementHandler {
	return &SettlementHandler{service: service, log: log}
}

// RequestWithdrawal handles POST /api/withdrawals.
func (h *SettlementHandler) RequestWithdrawal(c *fiber.Ctx) error {
	claims, err := accountClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		Amount    decimal.Decimal `json:"amount"`
		Phone     string          `json:"phone"`
		FullNames string          `json:"full_names"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request")
	}

	req, err := h.service.RequestWithdrawal(c.UserContext(), settlement.WithdrawalInput{
		AccountID: claims.AccountID,
		Amount:    input.Amount,
		Phone:     input.Phone,
		FullNames: input.FullNames,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return utils.Created(c, req)
}

// RequestDeposit handles POST /api/deposits.
func (h *SettlementHandler) RequestDeposit(c *fiber.Ctx) error {
	claims, err := accountClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		Amount     decimal.Decimal `json:"amount"`
		FullNames  string          `json:"full_names"`
		Screenshot string          `json:"screenshot"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request")
	}

	req, err := h.service.RequestDeposit(c.UserContext(), settlement.DepositInput{
		AccountID:      claims.AccountID,
		Amount:         input.Amount,
		FullNames:      input.FullNames,
		ProofReference: input.Screenshot,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return utils.Created(c, req)
}

// ListMine handles GET /api/settlements.
func (h *SettlementHandler) ListMine(c *fiber.Ctx) error {
	claims, err := accountClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	reqs, err := h.service.ListForAccount(c.UserContext(), claims.AccountID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return utils.Success(c, fiber.Map{"settlements": nonNil(reqs)})
}

// ListPending handles GET /api/admin/settlements?kind=.
func (h *SettlementHandler) ListPending(c *fiber.Ctx) error {
	kind := models.SettlementKind(c.Query("kind"))
	switch kind {
	case "", models.SettlementDeposit, models.SettlementWithdrawal:
	default:
		return utils.BadRequest(c, "kind must be deposit or withdrawal")
	}

	reqs, err := h.service.ListPending(c.UserContext(), kind)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return utils.Success(c, fiber.Map{"settlements": nonNil(reqs)})
}

// Decide handles POST /api/admin/settlements/:id/decision.
func (h *SettlementHandler) Decide(c *fiber.Ctx) error {
	claims, err := accountClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		Approve *bool  `json:"approve"`
		Note    string `json:"note"`
	}
	if err := c.BodyParser(&input); err != nil || input.Approve == nil {
		return utils.BadRequest(c, "approve is required")
	}

	req, err := h.service.Settle(c.UserContext(), c.Params("id"), settlement.Decision{
		Approve: *input.Approve,
		AdminID: claims.AccountID,
		Note:    input.Note,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return utils.Success(c, req)
}

func nonNil(reqs []models.SettlementRequest) []models.SettlementRequest {
	if reqs == nil {
		return []models.SettlementRequest{}
	}
	return reqs
}
