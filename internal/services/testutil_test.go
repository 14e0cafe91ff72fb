package services

import (
	"testing"

	"exam-betting/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testMinStake = 50000

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Discard,
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Transaction{},
		&models.Player{},
		&models.Bet{},
		&models.BettingLeg{},
	)
	if err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	return db
}

func createTestUser(t *testing.T, db *gorm.DB, balance int64) *models.User {
	t.Helper()

	user := models.User{
		Email:   "bettor@example.com",
		Name:    "Bettor",
		Balance: balance,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return &user
}

func createTestPlayer(t *testing.T, db *gorm.DB, name string, passOdds, failOdds float64) *models.Player {
	t.Helper()

	player := models.Player{
		Name:     name,
		Status:   models.PlayerStatusActive,
		PassOdds: decimal.NewFromFloat(passOdds),
		FailOdds: decimal.NewFromFloat(failOdds),
	}
	if err := db.Create(&player).Error; err != nil {
		t.Fatalf("failed to create player: %v", err)
	}
	return &player
}

func userBalance(t *testing.T, db *gorm.DB, userID uint) int64 {
	t.Helper()

	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		t.Fatalf("failed to load user %d: %v", userID, err)
	}
	return user.Balance
}

func reloadBet(t *testing.T, db *gorm.DB, bet *models.Bet) *models.Bet {
	t.Helper()

	var loaded models.Bet
	if err := db.Preload("Legs").First(&loaded, "id = ?", bet.ID).Error; err != nil {
		t.Fatalf("failed to reload bet %s: %v", bet.ID, err)
	}
	return &loaded
}
