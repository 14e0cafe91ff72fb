package models

import (
	"time"
)

// User represents a betting principal with an internal ledger balance.
// Balance is stored in integer currency units and is only ever mutated
// through the ledger service (debit/credit), never negative.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Balance   int64     `gorm:"not null;default:0" json:"balance"`
	IsAdmin   bool      `gorm:"default:false" json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}
