package handlers

import (
	"errors"

	apperrors "amafaranga/internal/errors"
	"amafaranga/internal/models"
	"amafaranga/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

var statusByCode = map[string]int{
	apperrors.ErrInvalidAmount.Code:        fiber.StatusBadRequest,
	apperrors.ErrIncompleteCardNumber.Code: fiber.StatusBadRequest,
	apperrors.ErrInvalidRequest.Code:       fiber.StatusBadRequest,
	apperrors.ErrUnknownGame.Code:          fiber.StatusBadRequest,
	apperrors.ErrInvalidMetric.Code:        fiber.StatusBadRequest,
	"INVALID_CREDENTIALS":                  fiber.StatusUnauthorized,
	apperrors.ErrRecipientNotFound.Code:    fiber.StatusNotFound,
	apperrors.ErrAccountNotFound.Code:      fiber.StatusNotFound,
	apperrors.ErrSettlementNotFound.Code:   fiber.StatusNotFound,
	apperrors.ErrAlreadySettled.Code:       fiber.StatusConflict,
	apperrors.ErrIdempotencyKeyReused.Code: fiber.StatusUnprocessableEntity,
}

// respondError maps domain failures to HTTP. Anything unrecognised is logged
// and reported as a bare 500.
func respondError(c *fiber.Ctx, log zerolog.Logger, err error) error {
	var funds *apperrors.InsufficientFundsError
	if errors.As(err, &funds) {
		return utils.Failure(c, fiber.StatusUnprocessableEntity, apperrors.ErrInsufficientFunds.Code, err.Error(), fiber.Map{
			"fee":       funds.Fee,
			"total":     funds.Total,
			"shortfall": funds.Shortfall(),
		})
	}

	if errors.Is(err, apperrors.ErrCommitFailure) {
		log.Error().Err(err).Str("path", c.Path()).Msg("commit failure")
		code := apperrors.ErrCommitFailure.Code
		if errors.Is(err, apperrors.ErrConcurrentUpdate) {
			code = apperrors.ErrConcurrentUpdate.Code
		}
		return utils.Failure(c, fiber.StatusServiceUnavailable, code, apperrors.ErrCommitFailure.Message, fiber.Map{
			"retryable": true,
		})
	}

	var domain *apperrors.DomainError
	if errors.As(err, &domain) {
		status, ok := statusByCode[domain.Code]
		if !ok {
			status = fiber.StatusBadRequest
		}
		return utils.Failure(c, status, domain.Code, domain.Message, nil)
	}

	log.Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
	return utils.InternalError(c, "internal error")
}

// accountClaims is a helper function to reduce duplication
func accountClaims(c *fiber.Ctx) (*models.AccountClaims, error) {
	claims, ok := c.Locals("claims").(*models.AccountClaims)
	if !ok || claims == nil {
		return nil, fiber.ErrUnauthorized
	}
	return claims, nil
}
