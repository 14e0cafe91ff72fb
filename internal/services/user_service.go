package services

import (
	"context"
	"fmt"

	"exam-betting/internal/models"

	"gorm.io/gorm"
)

// UserProfile is a user together with their betting aggregates.
type UserProfile struct {
	User        models.User `json:"user"`
	TotalBets   int64       `json:"total_bets"`
	TotalStaked int64       `json:"total_staked"`
}

// UserService handles user-related business logic
type UserService struct {
	db *gorm.DB
}

// NewUserService creates a new UserService
func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// GetUserByID retrieves a user by ID
func (s *UserService) GetUserByID(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrUnknownUser
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

// GetProfile returns the user with lifetime bet count and total staked.
func (s *UserService) GetProfile(ctx context.Context, userID uint) (*UserProfile, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile := UserProfile{User: *user}

	db := s.db.WithContext(ctx).Model(&models.Bet{}).Where("user_id = ?", userID)
	if err := db.Session(&gorm.Session{}).Count(&profile.TotalBets).Error; err != nil {
		return nil, fmt.Errorf("failed to count bets: %w", err)
	}

	if err := db.Session(&gorm.Session{}).Select("COALESCE(SUM(stake), 0)").Scan(&profile.TotalStaked).Error; err != nil {
		return nil, fmt.Errorf("failed to sum stakes: %w", err)
	}

	return &profile, nil
}
