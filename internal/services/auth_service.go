package services

import (
	"context"
	"fmt"
	"log"

	"exam-betting/internal/models"

	"gorm.io/gorm"
)

// AuthService handles login. Identity verification proper lives outside
// this core; a login here is find-or-create by email, with the signup
// bonus credited through the ledger on first sight.
type AuthService struct {
	db             *gorm.DB
	ledger         *LedgerService
	initialBalance int64
}

// NewAuthService creates a new AuthService
func NewAuthService(db *gorm.DB, ledger *LedgerService, initialBalance int64) *AuthService {
	return &AuthService{
		db:             db,
		ledger:         ledger,
		initialBalance: initialBalance,
	}
}

// Login finds or creates a user by email. New users start with the
// configured initial balance, recorded as a signup_bonus ledger entry.
func (s *AuthService) Login(ctx context.Context, email, name string) (*models.User, error) {
	if email == "" {
		return nil, invalidf("email is required")
	}

	var user models.User

	err := runInTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		result := tx.Where("email = ?", email).First(&user)
		if result.Error == nil {
			return nil
		}
		if result.Error != gorm.ErrRecordNotFound {
			return fmt.Errorf("failed to look up user: %w", result.Error)
		}

		user = models.User{
			Email: email,
			Name:  name,
		}
		if err := tx.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		if s.initialBalance > 0 {
			if err := s.ledger.Credit(tx, user.ID, s.initialBalance,
				models.TransactionTypeSignupBonus, "initial balance"); err != nil {
				return err
			}
			user.Balance = s.initialBalance
		}

		log.Printf("New user created: %s (ID: %d)", email, user.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &user, nil
}
