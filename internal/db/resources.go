package db

import (
	"time" // Timestamps

	"roundup/internal/domain"    // Importing domain models
	"roundup/internal/simulator" // Mock card credentials

	"gorm.io/gorm" // GORM ORM library
)

// CreateUserWithResources inserts a user together with the wallet, rounding
// config, virtual card and investment portfolio every account owns. extra runs
// inside the same transaction.
func CreateUserWithResources(db *gorm.DB, user *domain.User, extra func(tx *gorm.DB) error) error {
	src := simulator.Default
	now := time.Now().UTC()
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		resources := []any{
			&domain.Wallet{UserID: user.ID, LastMonthlyReset: now},
			&domain.RoundingConfig{UserID: user.ID, IsEnabled: true, RoundingUnit: 1, Multiplier: 1},
			&domain.VirtualCard{
				UserID:     user.ID,
				CardNumber: src.VirtualCardNumber(),
				Expiry:     src.CardExpiry(now),
				CVV:        src.CVV(),
				IsActive:   true,
			},
			&domain.InvestmentPortfolio{UserID: user.ID, RiskLevel: domain.RiskMedium},
		}
		for _, r := range resources {
			if err := tx.Create(r).Error; err != nil {
				return err
			}
		}
		if extra != nil {
			return extra(tx)
		}
		return nil
	})
}
