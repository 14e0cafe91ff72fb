package services

import (
	"context"
	"fmt"
	"log"

	"exam-betting/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PlayerService is the market registry: it opens markets on players,
// moves quoted odds while a market is active, and serves listings with
// stake aggregates.
type PlayerService struct {
	db *gorm.DB
}

// NewPlayerService creates a new PlayerService
func NewPlayerService(db *gorm.DB) *PlayerService {
	return &PlayerService{db: db}
}

// RegisterPlayer opens a new active market on an exam candidate.
func (s *PlayerService) RegisterPlayer(ctx context.Context, name string, passOdds, failOdds float64) (*models.Player, error) {
	if name == "" {
		return nil, invalidf("player name is required")
	}
	pass := decimal.NewFromFloat(passOdds)
	fail := decimal.NewFromFloat(failOdds)
	if err := validateOdds(pass, fail); err != nil {
		return nil, err
	}

	player := models.Player{
		Name:     name,
		Status:   models.PlayerStatusActive,
		PassOdds: pass,
		FailOdds: fail,
	}

	if err := s.db.WithContext(ctx).Create(&player).Error; err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}

	log.Printf("Player %d (%s) registered: pass %s / fail %s", player.ID, player.Name, pass, fail)
	return &player, nil
}

// UpdateOdds moves the quoted odds of an active market. Existing legs
// keep the price locked at their placement.
func (s *PlayerService) UpdateOdds(ctx context.Context, playerID uint, passOdds, failOdds float64) (*models.Player, error) {
	pass := decimal.NewFromFloat(passOdds)
	fail := decimal.NewFromFloat(failOdds)
	if err := validateOdds(pass, fail); err != nil {
		return nil, err
	}

	var player models.Player
	err := runInTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if err := tx.First(&player, playerID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("%w: player %d", ErrUnknownPlayer, playerID)
			}
			return fmt.Errorf("failed to load player: %w", err)
		}

		if player.Status != models.PlayerStatusActive {
			return fmt.Errorf("%w: player %d settled as %s", ErrAlreadySettled, player.ID, player.Result)
		}

		player.PassOdds = pass
		player.FailOdds = fail
		if err := tx.Save(&player).Error; err != nil {
			return fmt.Errorf("failed to update odds: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &player, nil
}

// GetPlayer retrieves a player by ID.
func (s *PlayerService) GetPlayer(ctx context.Context, playerID uint) (*models.Player, error) {
	var player models.Player
	if err := s.db.WithContext(ctx).First(&player, playerID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: player %d", ErrUnknownPlayer, playerID)
		}
		return nil, fmt.Errorf("failed to load player: %w", err)
	}
	return &player, nil
}

// GetActivePlayers lists open markets with the total stake wagered
// across all legs referencing each player.
func (s *PlayerService) GetActivePlayers(ctx context.Context) ([]models.ActivePlayerView, error) {
	var players []models.Player
	if err := s.db.WithContext(ctx).
		Where("status = ?", models.PlayerStatusActive).
		Order("id").
		Find(&players).Error; err != nil {
		return nil, fmt.Errorf("failed to load players: %w", err)
	}

	staked, err := s.totalStakedByPlayer(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]models.ActivePlayerView, 0, len(players))
	for _, p := range players {
		views = append(views, models.ActivePlayerView{
			ID:          p.ID,
			Name:        p.Name,
			Status:      p.Status,
			PassOdds:    p.PassOdds,
			FailOdds:    p.FailOdds,
			TotalStaked: staked[p.ID],
			LastUpdated: p.UpdatedAt,
		})
	}
	return views, nil
}

// GetAllPlayers lists every market including settled ones (admin view).
func (s *PlayerService) GetAllPlayers(ctx context.Context) ([]models.Player, error) {
	var players []models.Player
	if err := s.db.WithContext(ctx).Order("id").Find(&players).Error; err != nil {
		return nil, fmt.Errorf("failed to load players: %w", err)
	}
	return players, nil
}

// totalStakedByPlayer aggregates bet stakes per referenced player in one
// grouped query over the leg index.
func (s *PlayerService) totalStakedByPlayer(ctx context.Context) (map[uint]int64, error) {
	type row struct {
		PlayerID uint
		Total    int64
	}

	var rows []row
	err := s.db.WithContext(ctx).
		Table("betting_legs").
		Select("betting_legs.player_id AS player_id, COALESCE(SUM(bets.stake), 0) AS total").
		Joins("JOIN bets ON bets.id = betting_legs.bet_id").
		Group("betting_legs.player_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate stakes: %w", err)
	}

	totals := make(map[uint]int64, len(rows))
	for _, r := range rows {
		totals[r.PlayerID] = r.Total
	}
	return totals, nil
}

func validateOdds(pass, fail decimal.Decimal) error {
	one := decimal.NewFromInt(1)
	if !pass.GreaterThan(one) {
		return invalidf("pass odds must be greater than 1.0, got %s", pass)
	}
	if !fail.GreaterThan(one) {
		return invalidf("fail odds must be greater than 1.0, got %s", fail)
	}
	return nil
}
