// Package games accepts mini-game completion callbacks. Only the
// (metric, logs) contract matters here; rendering and wagering live
// elsewhere.
package games

import (
	"context"
	"math"

	apperrors "amafaranga/internal/errors"
	"amafaranga/internal/models"

	"github.com/rs/zerolog"
)

// DefaultHistoryLimit caps History when no limit is given.
const DefaultHistoryLimit = 20

type Repository interface {
	SaveGameResult(ctx context.Context, result *models.GameResult) error
	ListGameResults(ctx context.Context, accountID string, game models.GameKind, limit int) ([]models.GameResult, error)
}

// Completion is what a game reports when a round ends.
type Completion struct {
	AccountID string
	Game      models.GameKind
	Metric    float64
	Logs      models.JSON
	MatchID   string
}

type Service struct {
	repo Repository
	log  zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log.With().Str("component", "games").Logger()}
}

// ParseGame maps a route value to a known game.
func ParseGame(s string) (models.GameKind, error) {
	switch g := models.GameKind(s); g {
	case models.GameArithmetic, models.GameTyping, models.GameSlidingTile:
		return g, nil
	default:
		return "", apperrors.ErrUnknownGame
	}
}

func (s *Service) Complete(ctx context.Context, c Completion) (*models.GameResult, error) {
	if _, err := ParseGame(string(c.Game)); err != nil {
		return nil, err
	}
	if math.IsNaN(c.Metric) || math.IsInf(c.Metric, 0) || c.Metric <= 0 {
		return nil, apperrors.ErrInvalidMetric
	}

	result := &models.GameResult{
		AccountID: c.AccountID,
		Game:      c.Game,
		Metric:    c.Metric,
		Logs:      c.Logs,
	}
	if c.MatchID != "" {
		matchID := c.MatchID
		result.MatchID = &matchID
	}

	if err := s.repo.SaveGameResult(ctx, result); err != nil {
		return nil, &apperrors.CommitError{Op: "save game result", Cause: err}
	}

	s.log.Info().
		Str("account_id", c.AccountID).
		Str("game", string(c.Game)).
		Float64("metric", c.Metric).
		Msg("game completed")
	return result, nil
}

// History lists an account's results for one game, newest first.
func (s *Service) History(ctx context.Context, accountID string, game models.GameKind, limit int) ([]models.GameResult, error) {
	if _, err := ParseGame(string(game)); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > DefaultHistoryLimit {
		limit = DefaultHistoryLimit
	}
	results, err := s.repo.ListGameResults(ctx, accountID, game, limit)
	if err != nil {
		return nil, &apperrors.CommitError{Op: "list game results", Cause: err}
	}
	return results, nil
}

// Better reports whether metric a beats metric b. Arithmetic and sliding
// tile are timed in seconds so lower wins; typing is words per minute.
func Better(game models.GameKind, a, b float64) bool {
	if game == models.GameTyping {
		return a > b
	}
	return a < b
}

// Best picks the winning result among results, or nil when there are none.
func Best(game models.GameKind, results []models.GameResult) *models.GameResult {
	var best *models.GameResult
	for i := range results {
		if best == nil || Better(game, results[i].Metric, best.Metric) {
			best = &results[i]
		}
	}
	return best
}
