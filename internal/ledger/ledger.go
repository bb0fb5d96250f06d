// Package ledger applies balance changes to wallets inside a caller's database transaction.
package ledger

import (
	"errors"
	"time"

	"roundup/internal/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrInsufficientFunds is returned when a debit exceeds the wallet balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrWalletNotFound is returned when the user has no wallet.
	ErrWalletNotFound = errors.New("wallet not found")
)

// Money converts a stored amount to a decimal.
func Money(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f).Round(2)
}

// Float converts a decimal to the stored representation.
func Float(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// LockWallet loads the user's wallet, locking the row on databases that support it.
func LockWallet(tx *gorm.DB, userID string) (*domain.Wallet, error) {
	var w domain.Wallet
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("user_id = ?", userID).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// Credit adds total to the wallet's total balance and monthly to its monthly balance.
func Credit(tx *gorm.DB, userID string, total, monthly decimal.Decimal) (*domain.Wallet, error) {
	w, err := LockWallet(tx, userID)
	if err != nil {
		return nil, err
	}
	w.TotalBalance = Float(Money(w.TotalBalance).Add(total))
	w.MonthlyBalance = Float(Money(w.MonthlyBalance).Add(monthly))
	if err := save(tx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// Debit removes amount from the wallet's total balance. The monthly balance
// tracks savings inflow and is left untouched.
func Debit(tx *gorm.DB, userID string, amount decimal.Decimal) (*domain.Wallet, error) {
	w, err := LockWallet(tx, userID)
	if err != nil {
		return nil, err
	}
	balance := Money(w.TotalBalance)
	if balance.LessThan(amount) {
		return nil, ErrInsufficientFunds
	}
	w.TotalBalance = Float(balance.Sub(amount))
	// Conditional on the balance so the row can never go negative, even without row locks
	res := tx.Model(&domain.Wallet{}).
		Where("id = ? AND total_balance >= ?", w.ID, Float(amount)).
		Updates(map[string]any{"total_balance": w.TotalBalance, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrInsufficientFunds
	}
	return w, nil
}

func save(tx *gorm.DB, w *domain.Wallet) error {
	return tx.Model(&domain.Wallet{}).Where("id = ?", w.ID).Updates(map[string]any{
		"total_balance":   w.TotalBalance,
		"monthly_balance": w.MonthlyBalance,
		"updated_at":      time.Now().UTC(),
	}).Error
}
