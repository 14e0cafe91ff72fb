package services

import (
	"fmt"

	"exam-betting/internal/models"

	"gorm.io/gorm"
)

// LedgerService owns all balance mutations. Debit and Credit run against
// the transaction handle supplied by the caller so that funds movement
// and the business records it pays for commit or roll back together.
// Every mutation appends a Transaction row.
type LedgerService struct {
	db *gorm.DB
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{db: db}
}

// Debit removes amount from the user's balance. The funds check and the
// decrement are a single guarded UPDATE, so a concurrent debit can never
// drive the balance negative. Fails with ErrInsufficientFunds and no
// mutation when the balance is short.
func (s *LedgerService) Debit(tx *gorm.DB, userID uint, amount int64, txType, description string) error {
	if amount <= 0 {
		return invalidf("debit amount must be positive, got %d", amount)
	}

	result := tx.Model(&models.User{}).
		Where("id = ? AND balance >= ?", userID, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if result.Error != nil {
		return fmt.Errorf("failed to debit user %d: %w", userID, result.Error)
	}

	if result.RowsAffected == 0 {
		var count int64
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to look up user %d: %w", userID, err)
		}
		if count == 0 {
			return ErrUnknownUser
		}
		return fmt.Errorf("%w: stake %d exceeds balance", ErrInsufficientFunds, amount)
	}

	entry := models.Transaction{
		UserID:      userID,
		Type:        txType,
		Amount:      -amount,
		Description: description,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to record ledger entry: %w", err)
	}

	return nil
}

// Credit adds amount to the user's balance.
func (s *LedgerService) Credit(tx *gorm.DB, userID uint, amount int64, txType, description string) error {
	if amount <= 0 {
		return invalidf("credit amount must be positive, got %d", amount)
	}

	result := tx.Model(&models.User{}).
		Where("id = ?", userID).
		Update("balance", gorm.Expr("balance + ?", amount))
	if result.Error != nil {
		return fmt.Errorf("failed to credit user %d: %w", userID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUnknownUser
	}

	entry := models.Transaction{
		UserID:      userID,
		Type:        txType,
		Amount:      amount,
		Description: description,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to record ledger entry: %w", err)
	}

	return nil
}

// Balance returns the user's current balance.
func (s *LedgerService) Balance(tx *gorm.DB, userID uint) (int64, error) {
	var user models.User
	if err := tx.First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, ErrUnknownUser
		}
		return 0, fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	return user.Balance, nil
}
