package handlers

import (
	"amafaranga/internal/services/recipient"
	"amafaranga/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

type RecipientHandler struct {
	resolver *recipient.Resolver
	log      zerolog.Logger
}

func NewRecipientHandler(resolver *recipient.Resolver, log zerolog.Logger) *RecipientHandler {
	return &RecipientHandler{resolver: resolver, log: log}
}

// Lookup handles GET /api/recipients/:card so the sender can confirm who
// they are paying. Only the public identity is returned.
func (h *RecipientHandler) Lookup(c *fiber.Ctx) error {
	account, err := h.resolver.Resolve(c.UserContext(), c.Params("card"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return utils.Success(c, fiber.Map{
		"card_number": account.CardNumber,
		"full_names":  account.FullNames,
	})
}
