package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bet types
const (
	BetTypeSingle = "single"
	BetTypeParlay = "parlay"
)

// Bet status values
const (
	BetStatusPending = "pending"
	BetStatusWon     = "won"
	BetStatusLost    = "lost"
)

// Leg outcome values
const (
	LegOutcomePending = "pending"
	LegOutcomeWon     = "won"
	LegOutcomeLost    = "lost"
)

// Bet is an immutable wager record. Stake is debited at creation;
// TotalOdds and PotentialPayout are computed once from the legs' locked
// prices and never recomputed. Only leg outcomes and the aggregate
// status/settled_at change afterwards, driven by player settlement.
// TotalOdds and PotentialPayout columns carry no scale: products of
// two-decimal leg prices grow past any fixed scale, and a scaled column
// would round on insert while the payout must floor exactly at credit.
type Bet struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uint            `gorm:"not null;index" json:"user_id"`
	Type            string          `gorm:"size:20;not null;index" json:"type"` // single, parlay
	Stake           int64           `gorm:"not null" json:"stake"`
	TotalOdds       decimal.Decimal `gorm:"type:numeric;not null" json:"total_odds"`
	PotentialPayout decimal.Decimal `gorm:"type:numeric;not null" json:"potential_payout"`
	Status          string          `gorm:"size:20;default:pending;index" json:"status"` // pending, won, lost
	Legs            []BettingLeg    `gorm:"foreignKey:BetID" json:"legs"`
	CreatedAt       time.Time       `json:"created_at"`
	SettledAt       *time.Time      `json:"settled_at,omitempty"`
}

// TableName specifies the table name for Bet model
func (Bet) TableName() string {
	return "bets"
}

// BettingLeg is one player+choice component of a bet. OddsAtPlacement is
// the price locked when the bet was created; later odds movement on the
// player never touches it. Outcome transitions exactly once, from
// pending to won or lost, when the referenced player settles.
// PlayerID is indexed so settlement can fan out to affected bets
// without scanning the whole bets table.
type BettingLeg struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	BetID           uuid.UUID       `gorm:"type:uuid;not null;index" json:"bet_id"`
	PlayerID        uint            `gorm:"not null;index" json:"player_id"`
	PlayerName      string          `gorm:"size:100" json:"player_name"`
	Choice          string          `gorm:"size:20;not null" json:"choice"` // pass, fail
	OddsAtPlacement decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"odds_at_placement"`
	Outcome         string          `gorm:"size:20;default:pending;index" json:"outcome"` // pending, won, lost
	CreatedAt       time.Time       `json:"created_at"`
}

// TableName specifies the table name for BettingLeg model
func (BettingLeg) TableName() string {
	return "betting_legs"
}

// SingleBetRequest is one entry of a batch single-bet placement
type SingleBetRequest struct {
	PlayerID uint   `json:"player_id" binding:"required"`
	Choice   string `json:"choice" binding:"required,oneof=pass fail"`
	Stake    int64  `json:"stake" binding:"required,gt=0"`
}

// PlaceSingleBetsRequest places a batch of independent single bets.
// The batch is applied all-or-nothing against the balance.
type PlaceSingleBetsRequest struct {
	Bets []SingleBetRequest `json:"bets" binding:"required,dive"`
}

// ParlayLegRequest is one leg of a parlay placement
type ParlayLegRequest struct {
	PlayerID uint   `json:"player_id" binding:"required"`
	Choice   string `json:"choice" binding:"required,oneof=pass fail"`
}

// PlaceParlayBetRequest places a single multi-leg bet with one shared stake
type PlaceParlayBetRequest struct {
	Stake int64              `json:"stake" binding:"required,gt=0"`
	Legs  []ParlayLegRequest `json:"legs" binding:"required,dive"`
}

// PlacementResult is returned from both placement paths
type PlacementResult struct {
	Bets             []Bet `json:"bets"`
	TotalStaked      int64 `json:"total_staked"`
	RemainingBalance int64 `json:"remaining_balance"`
}

// HistoryFilter narrows a history query; empty fields match everything
type HistoryFilter struct {
	Status string // pending, won, lost
	Type   string // single, parlay
}

// HistoryStats aggregates the owner's full bet set, not the filtered page
type HistoryStats struct {
	TotalBets            int64           `json:"total_bets"`
	TotalStaked          int64           `json:"total_staked"`
	PendingCount         int64           `json:"pending_count"`
	TotalPotentialPayout decimal.Decimal `json:"total_potential_payout"`
}

// Pagination describes the window of a history page
type Pagination struct {
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	HasMore bool  `json:"has_more"`
}

// HistoryPage is the result of a history query
type HistoryPage struct {
	Bets       []Bet        `json:"bets"`
	Stats      HistoryStats `json:"stats"`
	Pagination Pagination   `json:"pagination"`
}
