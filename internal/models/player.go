package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Player status values
const (
	PlayerStatusActive  = "active"
	PlayerStatusSettled = "settled"
)

// Result / choice values for a player's exam outcome
const (
	ResultPass = "pass"
	ResultFail = "fail"
)

// Player represents an exam candidate users can bet on. Odds are quoted
// for both outcomes and are only meaningful while the player is active;
// once settled, Result is fixed and the market is closed.
type Player struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	Name       string          `gorm:"size:100;not null" json:"name"`
	Status     string          `gorm:"size:20;default:active;index" json:"status"` // active, settled
	PassOdds   decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"pass_odds"`
	FailOdds   decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"fail_odds"`
	Result     string          `gorm:"size:20" json:"result,omitempty"` // pass, fail, empty while active
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	ResolvedAt *time.Time      `json:"resolved_at,omitempty"`
}

// TableName specifies the table name for Player model
func (Player) TableName() string {
	return "players"
}

// OddsFor returns the player's current price for the given choice.
func (p *Player) OddsFor(choice string) decimal.Decimal {
	if choice == ResultPass {
		return p.PassOdds
	}
	return p.FailOdds
}

// RegisterPlayerRequest is the admin request to open a market on a player
type RegisterPlayerRequest struct {
	Name     string  `json:"name" binding:"required"`
	PassOdds float64 `json:"pass_odds" binding:"required,gt=1"`
	FailOdds float64 `json:"fail_odds" binding:"required,gt=1"`
}

// UpdateOddsRequest is the admin request to move a player's quoted odds
type UpdateOddsRequest struct {
	PassOdds float64 `json:"pass_odds" binding:"required,gt=1"`
	FailOdds float64 `json:"fail_odds" binding:"required,gt=1"`
}

// SettlePlayerRequest is the admin request to record a player's final result
type SettlePlayerRequest struct {
	Result string `json:"result" binding:"required,oneof=pass fail"`
}

// ActivePlayerView is the public listing entry for an open market,
// including the stake aggregate across all legs referencing the player.
type ActivePlayerView struct {
	ID          uint            `json:"id"`
	Name        string          `json:"name"`
	Status      string          `json:"status"`
	PassOdds    decimal.Decimal `json:"pass_odds"`
	FailOdds    decimal.Decimal `json:"fail_odds"`
	TotalStaked int64           `json:"total_staked"`
	LastUpdated time.Time       `json:"last_updated"`
}
