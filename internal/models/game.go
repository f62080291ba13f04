package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type GameKind string

const (
	GameArithmetic  GameKind = "arithmetic"
	GameTyping      GameKind = "typing"
	GameSlidingTile GameKind = "sliding_tile"
)

// GameResult is one completion callback from a mini-game. Metric is elapsed
// seconds for arithmetic and sliding tile, words per minute for typing.
type GameResult struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	AccountID string    `gorm:"type:uuid;not null;index" json:"account_id"`
	Game      GameKind  `gorm:"type:varchar(32);not null;index" json:"game"`
	Metric    float64   `gorm:"not null" json:"metric"`
	Logs      JSON      `gorm:"type:jsonb" json:"logs"`
	MatchID   *string   `gorm:"index" json:"match_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (g *GameResult) BeforeCreate(tx *gorm.DB) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	return nil
}
