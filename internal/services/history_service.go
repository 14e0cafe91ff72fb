package services

import (
	"context"
	"fmt"

	"exam-betting/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// HistoryService serves read-only projections of an owner's bets. It
// never mutates state and is safe to call concurrently with settlement.
type HistoryService struct {
	db *gorm.DB
}

// NewHistoryService creates a new HistoryService
func NewHistoryService(db *gorm.DB) *HistoryService {
	return &HistoryService{db: db}
}

// GetHistory returns the owner's bets matching the filter, newest first,
// plus aggregate stats computed over the owner's unfiltered bet set.
func (s *HistoryService) GetHistory(
	ctx context.Context,
	userID uint,
	filter models.HistoryFilter,
	limit, offset int,
) (*models.HistoryPage, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	if err := validateHistoryFilter(filter); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)

	query := db.Model(&models.Bet{}).Where("user_id = ?", userID)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count bets: %w", err)
	}

	var bets []models.Bet
	if err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Preload("Legs").
		Find(&bets).Error; err != nil {
		return nil, fmt.Errorf("failed to load bets: %w", err)
	}

	stats, err := s.ownerStats(db, userID)
	if err != nil {
		return nil, err
	}

	return &models.HistoryPage{
		Bets:  bets,
		Stats: *stats,
		Pagination: models.Pagination{
			Total:   total,
			Limit:   limit,
			Offset:  offset,
			HasMore: int64(offset+len(bets)) < total,
		},
	}, nil
}

// ownerStats aggregates over every bet the owner has, ignoring the
// request filter. TotalPotentialPayout sums only pending bets, since a
// resolved bet no longer has potential.
func (s *HistoryService) ownerStats(db *gorm.DB, userID uint) (*models.HistoryStats, error) {
	var stats models.HistoryStats

	base := db.Model(&models.Bet{}).Where("user_id = ?", userID)

	if err := base.Session(&gorm.Session{}).Count(&stats.TotalBets).Error; err != nil {
		return nil, fmt.Errorf("failed to count total bets: %w", err)
	}

	if err := base.Session(&gorm.Session{}).
		Select("COALESCE(SUM(stake), 0)").
		Scan(&stats.TotalStaked).Error; err != nil {
		return nil, fmt.Errorf("failed to sum stakes: %w", err)
	}

	if err := base.Session(&gorm.Session{}).
		Where("status = ?", models.BetStatusPending).
		Count(&stats.PendingCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count pending bets: %w", err)
	}

	var pendingPayout decimal.NullDecimal
	if err := base.Session(&gorm.Session{}).
		Where("status = ?", models.BetStatusPending).
		Select("SUM(potential_payout)").
		Scan(&pendingPayout).Error; err != nil {
		return nil, fmt.Errorf("failed to sum potential payouts: %w", err)
	}
	if pendingPayout.Valid {
		stats.TotalPotentialPayout = pendingPayout.Decimal
	} else {
		stats.TotalPotentialPayout = decimal.Zero
	}

	return &stats, nil
}

func validateHistoryFilter(filter models.HistoryFilter) error {
	switch filter.Status {
	case "", models.BetStatusPending, models.BetStatusWon, models.BetStatusLost:
	default:
		return invalidf("unknown status filter %q", filter.Status)
	}
	switch filter.Type {
	case "", models.BetTypeSingle, models.BetTypeParlay:
	default:
		return invalidf("unknown type filter %q", filter.Type)
	}
	return nil
}
