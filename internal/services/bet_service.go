package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"exam-betting/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BetService validates and persists wagers. Placement debits the stake
// and creates the bet records inside one database transaction, so a
// placement either fully applies or leaves no trace.
type BetService struct {
	db       *gorm.DB
	ledger   *LedgerService
	minStake int64
}

// NewBetService creates a new BetService
func NewBetService(db *gorm.DB, ledger *LedgerService, minStake int64) *BetService {
	return &BetService{
		db:       db,
		ledger:   ledger,
		minStake: minStake,
	}
}

// PlaceSingleBets places a batch of independent single bets for one
// owner. Each request becomes its own Bet with its own stake, but the
// batch is applied all-or-nothing: total funds are validated before any
// debit, and every debit and insert shares one transaction.
func (s *BetService) PlaceSingleBets(
	ctx context.Context,
	userID uint,
	requests []models.SingleBetRequest,
) (*models.PlacementResult, error) {
	if len(requests) == 0 {
		return nil, invalidf("bet list is empty")
	}

	var totalStake int64
	for i, req := range requests {
		if err := s.validateStake(req.Stake); err != nil {
			return nil, err
		}
		if req.Choice != models.ResultPass && req.Choice != models.ResultFail {
			return nil, invalidf("bet %d: choice must be pass or fail", i)
		}
		totalStake += req.Stake
	}

	var result models.PlacementResult

	err := runInTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		players, err := s.loadActivePlayers(tx, playerIDsFromSingles(requests))
		if err != nil {
			return err
		}

		// Total funds are checked before any individual debit; a short
		// balance rejects the whole batch.
		balance, err := s.ledger.Balance(tx, userID)
		if err != nil {
			return err
		}
		if totalStake > balance {
			return fmt.Errorf("%w: total stake %d exceeds balance %d",
				ErrInsufficientFunds, totalStake, balance)
		}

		bets := make([]models.Bet, 0, len(requests))
		for _, req := range requests {
			player := players[req.PlayerID]
			odds := player.OddsFor(req.Choice)

			bet := models.Bet{
				ID:              uuid.New(),
				UserID:          userID,
				Type:            models.BetTypeSingle,
				Stake:           req.Stake,
				TotalOdds:       odds,
				PotentialPayout: PotentialPayout(req.Stake, odds),
				Status:          models.BetStatusPending,
				Legs: []models.BettingLeg{{
					PlayerID:        player.ID,
					PlayerName:      player.Name,
					Choice:          req.Choice,
					OddsAtPlacement: odds,
					Outcome:         models.LegOutcomePending,
				}},
			}

			if err := s.ledger.Debit(tx, userID, req.Stake, models.TransactionTypeBetPlaced,
				fmt.Sprintf("single bet on player %d (%s)", player.ID, req.Choice)); err != nil {
				return err
			}
			if err := tx.Create(&bet).Error; err != nil {
				return fmt.Errorf("failed to create bet: %w", err)
			}
			bets = append(bets, bet)
		}

		remaining, err := s.ledger.Balance(tx, userID)
		if err != nil {
			return err
		}

		result = models.PlacementResult{
			Bets:             bets,
			TotalStaked:      totalStake,
			RemainingBalance: remaining,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("User %d placed %d single bet(s), total stake %d", userID, len(result.Bets), totalStake)
	return &result, nil
}

// PlaceParlayBet places one multi-leg bet with a shared stake. Combined
// odds are the exact product of the legs' prices locked at placement.
func (s *BetService) PlaceParlayBet(
	ctx context.Context,
	userID uint,
	stake int64,
	legs []models.ParlayLegRequest,
) (*models.PlacementResult, error) {
	if len(legs) < 2 {
		return nil, invalidf("parlay requires at least 2 legs, got %d", len(legs))
	}
	if err := s.validateStake(stake); err != nil {
		return nil, err
	}

	seen := make(map[uint]bool, len(legs))
	for i, leg := range legs {
		if leg.Choice != models.ResultPass && leg.Choice != models.ResultFail {
			return nil, invalidf("leg %d: choice must be pass or fail", i)
		}
		if seen[leg.PlayerID] {
			return nil, invalidf("duplicate leg for player %d", leg.PlayerID)
		}
		seen[leg.PlayerID] = true
	}

	var result models.PlacementResult

	err := runInTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		players, err := s.loadActivePlayers(tx, playerIDsFromParlay(legs))
		if err != nil {
			return err
		}

		balance, err := s.ledger.Balance(tx, userID)
		if err != nil {
			return err
		}
		if stake > balance {
			return fmt.Errorf("%w: stake %d exceeds balance %d", ErrInsufficientFunds, stake, balance)
		}

		betLegs := make([]models.BettingLeg, 0, len(legs))
		lockedOdds := make([]decimal.Decimal, 0, len(legs))
		for _, leg := range legs {
			player := players[leg.PlayerID]
			odds := player.OddsFor(leg.Choice)
			lockedOdds = append(lockedOdds, odds)
			betLegs = append(betLegs, models.BettingLeg{
				PlayerID:        player.ID,
				PlayerName:      player.Name,
				Choice:          leg.Choice,
				OddsAtPlacement: odds,
				Outcome:         models.LegOutcomePending,
			})
		}

		totalOdds := ComposeOdds(lockedOdds)
		bet := models.Bet{
			ID:              uuid.New(),
			UserID:          userID,
			Type:            models.BetTypeParlay,
			Stake:           stake,
			TotalOdds:       totalOdds,
			PotentialPayout: PotentialPayout(stake, totalOdds),
			Status:          models.BetStatusPending,
			Legs:            betLegs,
		}

		if err := s.ledger.Debit(tx, userID, stake, models.TransactionTypeBetPlaced,
			fmt.Sprintf("parlay bet, %d legs", len(legs))); err != nil {
			return err
		}
		if err := tx.Create(&bet).Error; err != nil {
			return fmt.Errorf("failed to create parlay bet: %w", err)
		}

		remaining, err := s.ledger.Balance(tx, userID)
		if err != nil {
			return err
		}

		result = models.PlacementResult{
			Bets:             []models.Bet{bet},
			TotalStaked:      stake,
			RemainingBalance: remaining,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("User %d placed parlay bet %s, stake %d over %d legs",
		userID, result.Bets[0].ID, stake, len(legs))
	return &result, nil
}

// GetBet retrieves one of the owner's bets with its legs.
func (s *BetService) GetBet(ctx context.Context, userID uint, betID uuid.UUID) (*models.Bet, error) {
	var bet models.Bet
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", betID, userID).
		Preload("Legs").
		First(&bet).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrUnknownBet
		}
		return nil, fmt.Errorf("failed to load bet: %w", err)
	}
	return &bet, nil
}

func (s *BetService) validateStake(stake int64) error {
	if stake < s.minStake {
		return invalidf("stake %d is below minimum %d", stake, s.minStake)
	}
	return nil
}

// loadActivePlayers resolves the requested player ids, rejecting any
// reference to a missing or already settled player. The rows are read
// under a row lock so a settlement committing mid-placement cannot slip
// between the status check and the bet insert; placement either sees
// the player still active or observes the settled status and rejects.
func (s *BetService) loadActivePlayers(tx *gorm.DB, ids []uint) (map[uint]*models.Player, error) {
	var players []models.Player
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).Find(&players).Error; err != nil {
		return nil, fmt.Errorf("failed to load players: %w", err)
	}

	byID := make(map[uint]*models.Player, len(players))
	for i := range players {
		byID[players[i].ID] = &players[i]
	}

	for _, id := range ids {
		player, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: player %d", ErrUnknownPlayer, id)
		}
		if player.Status != models.PlayerStatusActive {
			return nil, invalidf("player %d (%s) is not active", player.ID, player.Name)
		}
	}

	return byID, nil
}

func playerIDsFromSingles(requests []models.SingleBetRequest) []uint {
	ids := make([]uint, 0, len(requests))
	for _, req := range requests {
		ids = append(ids, req.PlayerID)
	}
	return ids
}

func playerIDsFromParlay(legs []models.ParlayLegRequest) []uint {
	ids := make([]uint, 0, len(legs))
	for _, leg := range legs {
		ids = append(ids, leg.PlayerID)
	}
	return ids
}

// payoutCreditAmount converts an exact decimal payout into integer
// ledger units, rounding down.
func payoutCreditAmount(payout decimal.Decimal) int64 {
	return payout.Floor().IntPart()
}

// settledNow is shared by settlement paths stamping terminal bets.
func settledNow() *time.Time {
	t := time.Now()
	return &t
}
