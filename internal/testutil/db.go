package testutil

import (
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/internal/model"
)

// NewTestDB opens an in-memory SQLite database private to the test and migrates every model.
// The connection is closed when the test finishes.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	if err := db.AutoMigrate(model.AllModels()...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

// SeedAccount inserts a linked account with an encrypted refresh token placeholder
func SeedAccount(t *testing.T, db *gorm.DB, discordUserID, ebayUserID string) *model.EbayAccount {
	t.Helper()

	account := &model.EbayAccount{
		DiscordUserID:   discordUserID,
		EbayUserID:      ebayUserID,
		Environment:     model.EnvProduction,
		Scopes:          "https://api.ebay.com/oauth/api_scope/sell.fulfillment.readonly",
		RefreshTokenEnc: "v1:placeholder",
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to seed account: %v", err)
	}
	return account
}
