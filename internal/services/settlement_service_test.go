package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"exam-betting/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestSettleSingleBetWon(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, 1000000)
	player := createTestPlayer(t, db, "Minsu", 1.85, 2.10)

	ledger := NewLedgerService(db)
	betSvc := NewBetService(db, ledger, testMinStake)
	settleSvc := NewSettlementService(db, ledger)
	ctx := context.Background()

	result, err := betSvc.PlaceSingleBets(ctx, user.ID, []models.SingleBetRequest{
		{PlayerID: player.ID, Choice: models.ResultPass, Stake: 50000},
	})
	if err != nil {
		t.Fatalf("PlaceSingleBets failed: %v", err)
	}
	if result.RemainingBalance != 950000 {
		t.Fatalf("expected 950000 after debit, got %d", result.RemainingBalance)
	}

	affected, err := settleSvc.SettlePlayer(ctx, player.ID, models.ResultPass)
	if err != nil {
		t.Fatalf("SettlePlayer failed: %v", err)
	}
	if affected != 1 {
		t.Errorf("expected 1 affected bet, got %d", affected)
	}

	bet := reloadBet(t, db, &result.Bets[0])
	if bet.Status != models.BetStatusWon {
		t.Errorf("expected bet won, got %s", bet.Status)
	}
	if bet.Legs[0].Outcome != models.LegOutcomeWon {
		t.Errorf("expected leg won, got %s", bet.Legs[0].Outcome)
	}
	if bet.SettledAt == nil {
		t.Error("expected settled_at to be set")
	}

	if got := userBalance(t, db, user.ID); got != 1042500 {
		t.Errorf("expected balance 1042500 after payout, got %d", got)
	}
}

func TestSettleSingleBetLost(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, 1000000)
	player := createTestPlayer(t, db, "Minsu", 1.85, 2.10)

	ledger := NewLedgerService(db)
	betSvc := NewBetService(db, ledger, testMinStake)
	settleSvc := NewSettlementService(db, ledger)
	ctx := context.Background()

	result, err := betSvc.PlaceSingleBets(ctx, user.ID, []models.SingleBetRequest{
		{PlayerID: player.ID, Choice: models.ResultPass, Stake: 50000},
	})
	if err != nil {
		t.Fatalf("PlaceSingleBets failed: %v", err)
	}

	if _, err := settleSvc.SettlePlayer(ctx, player.ID, models.ResultFail); err != nil {
		t.Fatalf("SettlePlayer failed: %v", err)
	}

	bet := reloadBet(t, db, &result.Bets[0])
	if bet.Status != models.BetStatusLost {
		t.Errorf("expected bet lost, got %s", bet.Status)
	}
	if got := userBalance(t, db, user.ID); got != 950000 {
		t.Errorf("lost bet must not pay out, balance %d", got)
	}
}

func TestSettlePlayerIdempotent(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, 1000000)
	player := createTestPlayer(t, db, "Minsu", 1.85, 2.10)

	ledger := NewLedgerService(db)
	betSvc := NewBetService(db, ledger, testMinStake)
	settleSvc := NewSettlementService(db, ledger)
	ctx := context.Background()

	if _, err := betSvc.PlaceSingleBets(ctx, user.ID, []models.SingleBetRequest{
		{PlayerID: player.ID, Choice: models.ResultPass, Stake: 50000},
	}); err != nil {
		t.Fatalf("PlaceSingleBets failed: %v", err)
	}

	if _, err := settleSvc.SettlePlayer(ctx, player.ID, models.ResultPass); err != nil {
		t.Fatalf("first SettlePlayer failed: %v", err)
	}
	balanceAfterFirst := userBalance(t, db, user.ID)

	_, err := settleSvc.SettlePlayer(ctx, player.ID, models.ResultPass)
	if !errors.Is(err, ErrAlreadySettled) {
		t.Fatalf("expected ErrAlreadySettled, got %v", err)
	}

	if got := userBalance(t, db, user.ID); got != balanceAfterFirst {
		t.Errorf("duplicate settlement moved balance: %d vs %d", got, balanceAfterFirst)
	}
}

func TestSettleUnknownPlayer(t *testing.T) {
	db := setupTestDB(t)
	settleSvc := NewSettlementService(db, NewLedgerService(db))

	_, err := settleSvc.SettlePlayer(context.Background(), 9999, models.ResultPass)
	if !errors.Is(err, ErrUnknownPlayer) {
		t.Errorf("expected ErrUnknownPlayer, got %v", err)
	}
}

func TestParlayLosingLegShortCircuits(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, 1000000)
	p1 := createTestPlayer(t, db, "Minsu", 1.85, 2.10)
	p2 := createTestPlayer(t, db, "Jiyoung", 2.10, 1.70)

	ledger := NewLedgerService(db)
	betSvc := NewBetService(db, ledger, testMinStake)
	settleSvc := NewSettlementService(db, ledger)
	ctx := context.Background()

	result, err := betSvc.PlaceParlayBet(ctx, user.ID, 60000, []models.ParlayLegRequest{
		{PlayerID: p1.ID, Choice: models.ResultPass},
		{PlayerID: p2.ID, Choice: models.ResultPass},
	})
	if err != nil {
		t.Fatalf("PlaceParlayBet failed: %v", err)
	}

	// First leg wins; bet stays pending while the second leg is open.
	if _, err := settleSvc.SettlePlayer(ctx, p1.ID, models.ResultPass); err != nil {
		t.Fatalf("SettlePlayer p1 failed: %v", err)
	}
	bet := reloadBet(t, db, &result.Bets[0])
	if bet.Status != models.BetStatusPending {
		t.Fatalf("expected pending after one won leg, got %s", bet.Status)
	}

	// Second leg loses; the whole parlay is lost immediately.
	if _, err := settleSvc.SettlePlayer(ctx, p2.ID, models.ResultFail); err != nil {
		t.Fatalf("SettlePlayer p2 failed: %v", err)
	}
	bet = reloadBet(t, db, &result.Bets[0])
	if bet.Status != models.BetStatusLost {
		t.Errorf("expected lost after losing leg, got %s", bet.Status)
	}

	if got := userBalance(t, db, user.ID); got != 940000 {
		t.Errorf("lost parlay must not pay out, balance %d", got)
	}
}

func TestParlayAllLegsWonPaysOut(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, 1000000)
	p1 := createTestPlayer(t, db, "Minsu", 1.85, 2.10)
	p2 := createTestPlayer(t, db, "Jiyoung", 2.10, 1.70)

	ledger := NewLedgerService(db)
	betSvc := NewBetService(db, ledger, testMinStake)
	settleSvc := NewSettlementService(db, ledger)
	ctx := context.Background()

	result, err := betSvc.PlaceParlayBet(ctx, user.ID, 60000, []models.ParlayLegRequest{
		{PlayerID: p1.ID, Choice: models.ResultPass},
		{PlayerID: p2.ID, Choice: models.ResultPass},
	})
	if err != nil {
		t.Fatalf("PlaceParlayBet failed: %v", err)
	}

	if _, err := settleSvc.SettlePlayer(ctx, p1.ID, models.ResultPass); err != nil {
		t.Fatalf("SettlePlayer p1 failed: %v", err)
	}
	if _, err := settleSvc.SettlePlayer(ctx, p2.ID, models.ResultPass); err != nil {
		t.Fatalf("SettlePlayer p2 failed: %v", err)
	}

	bet := reloadBet(t, db, &result.Bets[0])
	if bet.Status != models.BetStatusWon {
		t.Errorf("expected won parlay, got %s", bet.Status)
	}

	// 940000 + 60000*1.85*2.10 = 1173100
	if got := userBalance(t, db, user.ID); got != 1173100 {
		t.Errorf("expected balance 1173100 after parlay payout, got %d", got)
	}
}

// runTwoPlayerParlay places one parlay spanning both players and settles
// them in the given order, returning the final bet status and balance.
func runTwoPlayerParlay(t *testing.T, firstPass, secondPass bool, settleFirstPlayerFirst bool) (string, int64) {
	t.Helper()

	db := setupTestDB(t)
	user := createTestUser(t, db, 1000000)
	p1 := createTestPlayer(t, db, "Minsu", 1.85, 2.10)
	p2 := createTestPlayer(t, db, "Jiyoung", 2.10, 1.70)

	ledger := NewLedgerService(db)
	betSvc := NewBetService(db, ledger, testMinStake)
	settleSvc := NewSettlementService(db, ledger)
	ctx := context.Background()

	result, err := betSvc.PlaceParlayBet(ctx, user.ID, 60000, []models.ParlayLegRequest{
		{PlayerID: p1.ID, Choice: models.ResultPass},
		{PlayerID: p2.ID, Choice: models.ResultPass},
	})
	if err != nil {
		t.Fatalf("PlaceParlayBet failed: %v", err)
	}

	resultFor := func(pass bool) string {
		if pass {
			return models.ResultPass
		}
		return models.ResultFail
	}

	settle := func(playerID uint, pass bool) {
		if _, err := settleSvc.SettlePlayer(ctx, playerID, resultFor(pass)); err != nil {
			t.Fatalf("SettlePlayer %d failed: %v", playerID, err)
		}
	}

	if settleFirstPlayerFirst {
		settle(p1.ID, firstPass)
		settle(p2.ID, secondPass)
	} else {
		settle(p2.ID, secondPass)
		settle(p1.ID, firstPass)
	}

	bet := reloadBet(t, db, &result.Bets[0])
	return bet.Status, userBalance(t, db, user.ID)
}

func TestSettlementOrderCommutes(t *testing.T) {
	outcomes := []struct {
		firstPass  bool
		secondPass bool
	}{
		{true, true},
		{true, false},
		{false, true},
		{false, false},
	}

	for _, oc := range outcomes {
		name := fmt.Sprintf("p1=%v/p2=%v", oc.firstPass, oc.secondPass)
		t.Run(name, func(t *testing.T) {
			statusAB, balanceAB := runTwoPlayerParlay(t, oc.firstPass, oc.secondPass, true)
			statusBA, balanceBA := runTwoPlayerParlay(t, oc.firstPass, oc.secondPass, false)

			if statusAB != statusBA {
				t.Errorf("settlement order changed status: %s vs %s", statusAB, statusBA)
			}
			if balanceAB != balanceBA {
				t.Errorf("settlement order changed balance: %d vs %d", balanceAB, balanceBA)
			}
		})
	}
}

func TestSettlementFansOutToAllBets(t *testing.T) {
	db := setupTestDB(t)
	player := createTestPlayer(t, db, "Minsu", 1.85, 2.10)
	other := createTestPlayer(t, db, "Jiyoung", 2.10, 1.70)

	ledger := NewLedgerService(db)
	betSvc := NewBetService(db, ledger, testMinStake)
	settleSvc := NewSettlementService(db, ledger)
	ctx := context.Background()

	// Several owners bet on the same player, pass and fail sides.
	var users []*models.User
	for i := 0; i < 3; i++ {
		user := models.User{
			Email:   fmt.Sprintf("bettor%d@example.com", i),
			Name:    fmt.Sprintf("Bettor %d", i),
			Balance: 500000,
		}
		if err := db.Create(&user).Error; err != nil {
			t.Fatalf("failed to create user: %v", err)
		}
		users = append(users, &user)
	}

	choices := []string{models.ResultPass, models.ResultFail, models.ResultPass}
	for i, user := range users {
		if _, err := betSvc.PlaceSingleBets(ctx, user.ID, []models.SingleBetRequest{
			{PlayerID: player.ID, Choice: choices[i], Stake: 50000},
		}); err != nil {
			t.Fatalf("PlaceSingleBets for user %d failed: %v", user.ID, err)
		}
	}

	// A bet on another player must not be touched.
	if _, err := betSvc.PlaceSingleBets(ctx, users[0].ID, []models.SingleBetRequest{
		{PlayerID: other.ID, Choice: models.ResultPass, Stake: 50000},
	}); err != nil {
		t.Fatalf("PlaceSingleBets on other player failed: %v", err)
	}

	affected, err := settleSvc.SettlePlayer(ctx, player.ID, models.ResultPass)
	if err != nil {
		t.Fatalf("SettlePlayer failed: %v", err)
	}
	if affected != 3 {
		t.Errorf("expected 3 affected bets, got %d", affected)
	}

	var pendingLegs int64
	db.Model(&models.BettingLeg{}).
		Where("player_id = ? AND outcome = ?", player.ID, models.LegOutcomePending).
		Count(&pendingLegs)
	if pendingLegs != 0 {
		t.Errorf("expected no pending legs on settled player, got %d", pendingLegs)
	}

	var untouched int64
	db.Model(&models.BettingLeg{}).
		Where("player_id = ? AND outcome = ?", other.ID, models.LegOutcomePending).
		Count(&untouched)
	if untouched != 1 {
		t.Errorf("bet on other player was touched: %d pending legs", untouched)
	}

	// pass bettors win 92500 each, fail bettor gets nothing back.
	if got := userBalance(t, db, users[0].ID); got != 500000-100000+92500 {
		t.Errorf("winner 0 balance: %d", got)
	}
	if got := userBalance(t, db, users[1].ID); got != 450000 {
		t.Errorf("loser balance: %d", got)
	}
	if got := userBalance(t, db, users[2].ID); got != 542500 {
		t.Errorf("winner 2 balance: %d", got)
	}
}

func TestWonBetPayoutStoredExactAndFlooredAtCredit(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, 1000000)
	p1 := createTestPlayer(t, db, "Minsu", 1.85, 2.10)
	p2 := createTestPlayer(t, db, "Jiyoung", 2.10, 1.70)

	ledger := NewLedgerService(db)
	betSvc := NewBetService(db, ledger, testMinStake)
	settleSvc := NewSettlementService(db, ledger)
	ctx := context.Background()

	// 50087 * 1.85 * 2.10 = 194587.995 exactly. The stored payout must
	// survive the round trip unrounded, and the credit floors it.
	result, err := betSvc.PlaceParlayBet(ctx, user.ID, 50087, []models.ParlayLegRequest{
		{PlayerID: p1.ID, Choice: models.ResultPass},
		{PlayerID: p2.ID, Choice: models.ResultPass},
	})
	if err != nil {
		t.Fatalf("PlaceParlayBet failed: %v", err)
	}

	stored := reloadBet(t, db, &result.Bets[0])
	want, err := decimal.NewFromString("194587.995")
	if err != nil {
		t.Fatalf("bad decimal literal: %v", err)
	}
	if !stored.PotentialPayout.Equal(want) {
		t.Errorf("stored payout rounded: expected %s, got %s", want, stored.PotentialPayout)
	}

	if _, err := settleSvc.SettlePlayer(ctx, p1.ID, models.ResultPass); err != nil {
		t.Fatalf("SettlePlayer p1 failed: %v", err)
	}
	if _, err := settleSvc.SettlePlayer(ctx, p2.ID, models.ResultPass); err != nil {
		t.Fatalf("SettlePlayer p2 failed: %v", err)
	}

	// 1000000 - 50087 + 194587, not 194588.
	if got := userBalance(t, db, user.ID); got != 1144500 {
		t.Errorf("expected balance 1144500 after floored payout, got %d", got)
	}
}

func TestSettleCountsOnlyStatusChanges(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, 1000000)
	p1 := createTestPlayer(t, db, "Minsu", 1.85, 2.10)
	p2 := createTestPlayer(t, db, "Jiyoung", 2.10, 1.70)

	ledger := NewLedgerService(db)
	betSvc := NewBetService(db, ledger, testMinStake)
	settleSvc := NewSettlementService(db, ledger)
	ctx := context.Background()

	if _, err := betSvc.PlaceParlayBet(ctx, user.ID, 60000, []models.ParlayLegRequest{
		{PlayerID: p1.ID, Choice: models.ResultPass},
		{PlayerID: p2.ID, Choice: models.ResultPass},
	}); err != nil {
		t.Fatalf("PlaceParlayBet failed: %v", err)
	}

	// First leg loses, the parlay is lost: one status change.
	affected, err := settleSvc.SettlePlayer(ctx, p1.ID, models.ResultFail)
	if err != nil {
		t.Fatalf("SettlePlayer p1 failed: %v", err)
	}
	if affected != 1 {
		t.Errorf("expected 1 bet changed, got %d", affected)
	}

	// Second settlement updates the remaining leg, but the bet is
	// already terminal and must not be counted again.
	affected, err = settleSvc.SettlePlayer(ctx, p2.ID, models.ResultPass)
	if err != nil {
		t.Fatalf("SettlePlayer p2 failed: %v", err)
	}
	if affected != 0 {
		t.Errorf("expected 0 bets changed on terminal parlay, got %d", affected)
	}
}

func TestConcurrentPlacementAndSettlement(t *testing.T) {
	db := setupTestDB(t)

	// One pooled connection serializes the transactions the way the
	// row locks do against a server database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access pool: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	p1 := createTestPlayer(t, db, "Minsu", 1.85, 2.10)
	p2 := createTestPlayer(t, db, "Jiyoung", 2.10, 1.70)

	var users []*models.User
	for i := 0; i < 4; i++ {
		user := models.User{
			Email:   fmt.Sprintf("bettor%d@example.com", i),
			Name:    fmt.Sprintf("Bettor %d", i),
			Balance: 500000,
		}
		if err := db.Create(&user).Error; err != nil {
			t.Fatalf("failed to create user: %v", err)
		}
		users = append(users, &user)
	}

	ledger := NewLedgerService(db)
	betSvc := NewBetService(db, ledger, testMinStake)
	settleSvc := NewSettlementService(db, ledger)
	ctx := context.Background()

	var wg sync.WaitGroup
	errCh := make(chan error, len(users)+2)

	for i, user := range users {
		wg.Add(1)
		go func(userID uint, playerID uint) {
			defer wg.Done()
			_, err := betSvc.PlaceSingleBets(ctx, userID, []models.SingleBetRequest{
				{PlayerID: playerID, Choice: models.ResultPass, Stake: 50000},
			})
			errCh <- err
		}(user.ID, []uint{p1.ID, p2.ID}[i%2])
	}

	for _, playerID := range []uint{p1.ID, p2.ID} {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			_, err := settleSvc.SettlePlayer(ctx, id, models.ResultPass)
			errCh <- err
		}(playerID)
	}

	wg.Wait()
	close(errCh)

	// A placement losing the race is rejected cleanly; anything else is
	// a real failure.
	for err := range errCh {
		if err != nil && !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("unexpected error: %v", err)
		}
	}

	// No leg on a settled player may be left pending, and with both
	// players settled no bet may be left pending either.
	var stranded int64
	db.Model(&models.BettingLeg{}).
		Joins("JOIN players ON players.id = betting_legs.player_id").
		Where("players.status = ? AND betting_legs.outcome = ?",
			models.PlayerStatusSettled, models.LegOutcomePending).
		Count(&stranded)
	if stranded != 0 {
		t.Errorf("found %d pending legs on settled players", stranded)
	}

	var pendingBets int64
	db.Model(&models.Bet{}).Where("status = ?", models.BetStatusPending).Count(&pendingBets)
	if pendingBets != 0 {
		t.Errorf("found %d pending bets after all players settled", pendingBets)
	}
}

// BenchmarkSettlePlayer measures settlement fan-out over a populated
// leg index.
func BenchmarkSettlePlayer(b *testing.B) {
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
		if err != nil {
			b.Fatalf("failed to connect database: %v", err)
		}
		if err := db.AutoMigrate(
			&models.User{}, &models.Transaction{}, &models.Player{},
			&models.Bet{}, &models.BettingLeg{},
		); err != nil {
			b.Fatalf("failed to migrate database: %v", err)
		}

		ledger := NewLedgerService(db)
		betSvc := NewBetService(db, ledger, testMinStake)
		settleSvc := NewSettlementService(db, ledger)
		ctx := context.Background()

		user := models.User{Email: "bench@example.com", Name: "Bench", Balance: 100000000}
		db.Create(&user)

		player := models.Player{
			Name: "Bench Player", Status: models.PlayerStatusActive,
			PassOdds: decimal.NewFromFloat(1.85), FailOdds: decimal.NewFromFloat(2.10),
		}
		db.Create(&player)

		for j := 0; j < 50; j++ {
			if _, err := betSvc.PlaceSingleBets(ctx, user.ID, []models.SingleBetRequest{
				{PlayerID: player.ID, Choice: models.ResultPass, Stake: 50000},
			}); err != nil {
				b.Fatalf("placement failed: %v", err)
			}
		}
		b.StartTimer()

		if _, err := settleSvc.SettlePlayer(ctx, player.ID, models.ResultPass); err != nil {
			b.Fatalf("SettlePlayer failed: %v", err)
		}
	}
}
