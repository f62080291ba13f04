package handlers

import (
	"amafaranga/internal/models"
	"amafaranga/internal/services/games"
	"amafaranga/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

type GamesHandler struct {
	service *games.Service
	log     zerolog.Logger
}

func NewGamesHandler(service *games.Service, log zerolog.Logger) *GamesHandler {
	return &GamesHandler{service: service, log: log}
}

// Complete handles POST /api/games/:game/complete.
func (h *GamesHandler) Complete(c *fiber.Ctx) error {
	claims, err := accountClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		Metric  float64     `json:"metric"`
		Logs    models.JSON `json:"logs"`
		MatchID string      `json:"match_id"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request")
	}

	result, err := h.service.Complete(c.UserContext(), games.Completion{
		AccountID: claims.AccountID,
		Game:      models.GameKind(c.Params("game")),
		Metric:    input.Metric,
		Logs:      input.Logs,
		MatchID:   input.MatchID,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return utils.Created(c, result)
}

// History handles GET /api/games/:game/history. best is the top result of
// the returned page.
func (h *GamesHandler) History(c *fiber.Ctx) error {
	claims, err := accountClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	game := models.GameKind(c.Params("game"))
	limit := utils.QueryLimit(c, 10, games.DefaultHistoryLimit)
	results, err := h.service.History(c.UserContext(), claims.AccountID, game, limit)
	if err != nil {
		return respondError(c, h.log, err)
	}
	if results == nil {
		results = []models.GameResult{}
	}
	return utils.Success(c, fiber.Map{
		"results": results,
		"best":    games.Best(game, results),
	})
}
