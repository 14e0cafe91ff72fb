package models

import (
	"time"
)

// Ledger transaction types
const (
	TransactionTypeSignupBonus = "signup_bonus"
	TransactionTypeBetPlaced   = "bet_placed"
	TransactionTypeBetWon      = "bet_won"
)

// Transaction is an append-only ledger entry. One row is written inside
// the same database transaction as every balance mutation.
type Transaction struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	Type        string    `gorm:"size:50;not null;index" json:"type"` // signup_bonus, bet_placed, bet_won
	Amount      int64     `gorm:"not null" json:"amount"`             // signed: debits negative, credits positive
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for Transaction model
func (Transaction) TableName() string {
	return "transactions"
}
