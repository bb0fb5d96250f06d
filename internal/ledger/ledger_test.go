package ledger_test

import (
	"path/filepath"
	"testing"

	"roundup/internal/config"
	"roundup/internal/db"
	"roundup/internal/domain"
	"roundup/internal/ledger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setup(t *testing.T) (*gorm.DB, string) {
	t.Helper()
	gdb, err := db.Open(&config.Config{DBDriver: "sqlite", DBPath: filepath.Join(t.TempDir(), "ledger.db")})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	user := domain.User{Email: "l@b.co", FirstName: "Led", LastName: "Ger", PasswordHash: "x"}
	require.NoError(t, db.CreateUserWithResources(gdb, &user, nil))
	return gdb, user.ID
}

func TestCreditAndDebit(t *testing.T) {
	gdb, userID := setup(t)

	require.NoError(t, gdb.Transaction(func(tx *gorm.DB) error {
		for i := 0; i < 3; i++ {
			if _, err := ledger.Credit(tx, userID, decimal.RequireFromString("0.1"), decimal.RequireFromString("0.1")); err != nil {
				return err
			}
		}
		return nil
	}))

	var w domain.Wallet
	require.NoError(t, gdb.Where("user_id = ?", userID).First(&w).Error)
	assert.Equal(t, 0.3, w.TotalBalance)
	assert.Equal(t, 0.3, w.MonthlyBalance)

	err := gdb.Transaction(func(tx *gorm.DB) error {
		_, err := ledger.Debit(tx, userID, decimal.RequireFromString("0.31"))
		return err
	})
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	require.NoError(t, gdb.Transaction(func(tx *gorm.DB) error {
		_, err := ledger.Debit(tx, userID, decimal.RequireFromString("0.3"))
		return err
	}))
	require.NoError(t, gdb.Where("user_id = ?", userID).First(&w).Error)
	assert.Equal(t, 0.0, w.TotalBalance)
	assert.Equal(t, 0.3, w.MonthlyBalance)
}

func TestUnknownWallet(t *testing.T) {
	gdb, _ := setup(t)
	err := gdb.Transaction(func(tx *gorm.DB) error {
		_, err := ledger.Credit(tx, "missing", decimal.NewFromInt(1), decimal.Zero)
		return err
	})
	assert.ErrorIs(t, err, ledger.ErrWalletNotFound)
}
