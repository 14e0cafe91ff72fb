package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"exam-betting/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SettlementService records a player's final exam result and resolves
// every bet referencing that player. Settling a player is the single
// path that sets leg outcomes; it is idempotent per player and one
// settlement call is one transaction, so concurrent settlements of
// different players commute.
type SettlementService struct {
	db     *gorm.DB
	ledger *LedgerService
	mu     sync.Mutex
}

// NewSettlementService creates a new SettlementService
func NewSettlementService(db *gorm.DB, ledger *LedgerService) *SettlementService {
	return &SettlementService{
		db:     db,
		ledger: ledger,
	}
}

// SettlePlayer marks the player settled with the given result, resolves
// all pending legs on that player, and recomputes the status of every
// affected bet, crediting potential payouts for bets whose legs are now
// all won. Returns the number of bets whose status changed; a leg
// update on an already terminal bet does not count. A second call for
// the same player fails with ErrAlreadySettled and mutates nothing.
func (s *SettlementService) SettlePlayer(ctx context.Context, playerID uint, result string) (int, error) {
	if result != models.ResultPass && result != models.ResultFail {
		return 0, invalidf("result must be pass or fail, got %q", result)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	affected := 0

	err := runInTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		affected = 0

		var player models.Player
		if err := tx.First(&player, playerID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("%w: player %d", ErrUnknownPlayer, playerID)
			}
			return fmt.Errorf("failed to load player: %w", err)
		}

		if player.Status != models.PlayerStatusActive {
			return fmt.Errorf("%w: player %d settled as %s", ErrAlreadySettled, player.ID, player.Result)
		}

		now := time.Now()
		update := tx.Model(&player).Updates(map[string]interface{}{
			"status":      models.PlayerStatusSettled,
			"result":      result,
			"resolved_at": now,
		})
		if update.Error != nil {
			return fmt.Errorf("failed to settle player: %w", update.Error)
		}

		// Fan out through the player index on legs rather than scanning bets.
		var legs []models.BettingLeg
		if err := tx.Where("player_id = ? AND outcome = ?", playerID, models.LegOutcomePending).
			Find(&legs).Error; err != nil {
			return fmt.Errorf("failed to load pending legs: %w", err)
		}

		touchedBets := make(map[uuid.UUID]bool, len(legs))
		for _, leg := range legs {
			outcome := models.LegOutcomeLost
			if leg.Choice == result {
				outcome = models.LegOutcomeWon
			}
			if err := tx.Model(&models.BettingLeg{}).
				Where("id = ?", leg.ID).
				Update("outcome", outcome).Error; err != nil {
				return fmt.Errorf("failed to update leg %d: %w", leg.ID, err)
			}
			touchedBets[leg.BetID] = true
		}

		for betID := range touchedBets {
			changed, err := s.resolveBet(tx, betID)
			if err != nil {
				return err
			}
			if changed {
				affected++
			}
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	log.Printf("Player %d settled as %s, %d bet(s) affected", playerID, result, affected)
	return affected, nil
}

// resolveBet recomputes one bet's aggregate status from its legs and
// reports whether the status changed. A single lost leg dooms the bet
// immediately; a bet pays out only once every leg is won; otherwise it
// stays pending.
func (s *SettlementService) resolveBet(tx *gorm.DB, betID uuid.UUID) (bool, error) {
	var bet models.Bet
	if err := tx.Preload("Legs").First(&bet, "id = ?", betID).Error; err != nil {
		return false, fmt.Errorf("failed to load bet %s: %w", betID, err)
	}

	if bet.Status != models.BetStatusPending {
		return false, nil
	}

	status := aggregateStatus(bet.Legs)
	if status == models.BetStatusPending {
		return false, nil
	}

	if err := tx.Model(&bet).Updates(map[string]interface{}{
		"status":     status,
		"settled_at": settledNow(),
	}).Error; err != nil {
		return false, fmt.Errorf("failed to update bet %s: %w", bet.ID, err)
	}

	if status == models.BetStatusWon {
		amount := payoutCreditAmount(bet.PotentialPayout)
		if err := s.ledger.Credit(tx, bet.UserID, amount, models.TransactionTypeBetWon,
			fmt.Sprintf("payout for bet %s", bet.ID)); err != nil {
			return false, err
		}
		log.Printf("Bet %s won, paid out %d to user %d", bet.ID, amount, bet.UserID)
	}

	return true, nil
}

// aggregateStatus folds leg outcomes into a bet status: lost if any leg
// lost, won if all legs won, pending otherwise. The fold is independent
// of the order legs were resolved in.
func aggregateStatus(legs []models.BettingLeg) string {
	allWon := true
	for _, leg := range legs {
		switch leg.Outcome {
		case models.LegOutcomeLost:
			return models.BetStatusLost
		case models.LegOutcomePending:
			allWon = false
		}
	}
	if allWon {
		return models.BetStatusWon
	}
	return models.BetStatusPending
}
