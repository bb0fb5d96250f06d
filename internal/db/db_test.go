package db

import (
	"path/filepath"
	"testing"

	"roundup/internal/config"
	"roundup/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := &config.Config{DBDriver: "sqlite", DBPath: filepath.Join(t.TempDir(), "data", "test.db")}
	gdb, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, Migrate(gdb))
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

func TestCreateUserWithResources(t *testing.T) {
	gdb := openTestDB(t)
	user := domain.User{Email: "a@b.co", FirstName: "Ada", LastName: "Byron", PasswordHash: "x"}
	require.NoError(t, CreateUserWithResources(gdb, &user, nil))
	assert.NotEmpty(t, user.ID)

	var wallet domain.Wallet
	require.NoError(t, gdb.Where("user_id = ?", user.ID).First(&wallet).Error)
	assert.Zero(t, wallet.TotalBalance)

	var cfg domain.RoundingConfig
	require.NoError(t, gdb.Where("user_id = ?", user.ID).First(&cfg).Error)
	assert.True(t, cfg.IsEnabled)
	assert.Equal(t, 1.0, cfg.RoundingUnit)
	assert.Equal(t, 1, cfg.Multiplier)

	var vc domain.VirtualCard
	require.NoError(t, gdb.Where("user_id = ?", user.ID).First(&vc).Error)
	assert.Len(t, vc.CardNumber, 16)

	var p domain.InvestmentPortfolio
	require.NoError(t, gdb.Where("user_id = ?", user.ID).First(&p).Error)
	assert.Equal(t, domain.RiskMedium, p.RiskLevel)
}

func TestCreateUserWithResourcesRollsBack(t *testing.T) {
	gdb := openTestDB(t)
	first := domain.User{Email: "dup@b.co", FirstName: "Ada", LastName: "Byron", PasswordHash: "x"}
	require.NoError(t, CreateUserWithResources(gdb, &first, nil))

	second := domain.User{Email: "dup@b.co", FirstName: "Bob", LastName: "Byron", PasswordHash: "x"}
	assert.Error(t, CreateUserWithResources(gdb, &second, nil))

	var wallets int64
	require.NoError(t, gdb.Model(&domain.Wallet{}).Count(&wallets).Error)
	assert.EqualValues(t, 1, wallets)
}

func TestSeedAdmin(t *testing.T) {
	gdb := openTestDB(t)
	require.NoError(t, SeedAdmin(gdb, "Root@Example.com:supersecret"))

	var user domain.User
	require.NoError(t, gdb.Where("email = ?", "root@example.com").First(&user).Error)
	assert.Equal(t, domain.RoleAdmin, user.Role)

	// Seeding again promotes in place
	require.NoError(t, SeedAdmin(gdb, "root@example.com:supersecret"))
	var count int64
	require.NoError(t, gdb.Model(&domain.User{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	assert.Error(t, SeedAdmin(gdb, "nopassword"))
}
