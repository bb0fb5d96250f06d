package scheduler

import (
	"context" // Job cancellation
	"time"    // Run times and dates

	"roundup/internal/domain"    // Deposit, wallet and portfolio models
	"roundup/internal/events"    // Domain events
	"roundup/internal/ledger"    // Wallet credits
	"roundup/internal/metrics"   // Job counters
	"roundup/internal/simulator" // Mock investment returns
	"roundup/internal/utils"     // Cache invalidation

	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
	"gorm.io/gorm"                 // GORM ORM library
)

// Jobs contains the logic for all scheduled tasks.
type Jobs struct {
	db  *gorm.DB          // Ledger store
	rdb *redis.Client     // Wallet cache, optional
	pub events.Publisher  // Event sink, optional
	src *simulator.Source // Investment return source
}

// NewJobs creates a new Jobs runner. rdb and pub may be nil.
func NewJobs(db *gorm.DB, rdb *redis.Client, pub events.Publisher, src *simulator.Source) *Jobs {
	if src == nil {
		src = simulator.Default
	}
	return &Jobs{db: db, rdb: rdb, pub: pub, src: src}
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// RunRecurringDeposits credits every active deposit due on or before now's date and
// moves its next date past today. Missed periods are skipped, not back-filled.
func (j *Jobs) RunRecurringDeposits(ctx context.Context, now time.Time) (int, error) {
	today := startOfDay(now)
	var due []domain.RecurringDeposit
	err := j.db.WithContext(ctx).
		Where("is_active = ? AND next_date <= ?", true, today.Format(domain.DateLayout)).
		Order("next_date").
		Find(&due).Error
	if err != nil {
		return 0, err
	}

	executed := 0
	for _, d := range due {
		next, err := time.Parse(domain.DateLayout, d.NextDate)
		if err != nil {
			next = today
		}
		for !next.After(today) {
			next = domain.NextDate(next, d.Frequency)
		}
		amount := ledger.Money(d.Amount)
		ran := false
		err = j.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			// Claim the run by its current next_date so overlapping runs credit once
			res := tx.Model(&domain.RecurringDeposit{}).
				Where("id = ? AND next_date = ? AND is_active = ?", d.ID, d.NextDate, true).
				Updates(map[string]any{"next_date": next.Format(domain.DateLayout), "last_run_at": now.UTC()})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return nil
			}
			if _, err := ledger.Credit(tx, d.UserID, amount, amount); err != nil {
				return err
			}
			ran = true
			return nil
		})
		if err != nil {
			logrus.WithFields(logrus.Fields{"deposit_id": d.ID, "user_id": d.UserID, "error": err.Error()}).
				Error("Recurring deposit failed")
			continue
		}
		if !ran {
			continue
		}
		executed++
		metrics.RecurringExecuted.Inc()
		logrus.WithFields(logrus.Fields{
			"user_id":    d.UserID,
			"deposit_id": d.ID,
			"amount":     d.Amount,
			"type":       "recurring_deposit",
			"next_date":  next.Format(domain.DateLayout),
		}).Info("Recurring deposit executed")
		_ = utils.InvalidateWallet(ctx, j.rdb, d.UserID)
		events.Emit(ctx, j.pub, events.RecurringExecuted, d.UserID, map[string]any{
			"depositId": d.ID,
			"amount":    d.Amount,
			"nextDate":  next.Format(domain.DateLayout),
		})
	}
	return executed, nil
}

// ResetMonthlyBalances zeroes the monthly balance of wallets not yet reset this month.
func (j *Jobs) ResetMonthlyBalances(ctx context.Context, now time.Time) (int, error) {
	today := startOfDay(now)
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)

	var userIDs []string
	err := j.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.Wallet{}).
			Where("last_monthly_reset < ?", monthStart).
			Pluck("user_id", &userIDs).Error; err != nil {
			return err
		}
		if len(userIDs) == 0 {
			return nil
		}
		return tx.Model(&domain.Wallet{}).
			Where("user_id IN ?", userIDs).
			Updates(map[string]any{"monthly_balance": 0, "last_monthly_reset": today}).Error
	})
	if err != nil {
		return 0, err
	}
	for _, id := range userIDs {
		_ = utils.InvalidateWallet(ctx, j.rdb, id)
	}
	if len(userIDs) > 0 {
		logrus.WithField("wallets", len(userIDs)).Info("Monthly balances reset")
	}
	return len(userIDs), nil
}

// ApplyInvestmentReturns applies one simulated monthly return to every funded portfolio.
func (j *Jobs) ApplyInvestmentReturns(ctx context.Context, now time.Time) (int, error) {
	var portfolios []domain.InvestmentPortfolio
	if err := j.db.WithContext(ctx).Where("balance > 0").Find(&portfolios).Error; err != nil {
		return 0, err
	}
	updated := 0
	for _, p := range portfolios {
		balance := j.src.InvestmentReturn(ledger.Money(p.Balance), p.RiskLevel)
		if balance.IsNegative() {
			balance = ledger.Money(0)
		}
		err := j.db.WithContext(ctx).Model(&domain.InvestmentPortfolio{}).
			Where("id = ?", p.ID).
			Updates(map[string]any{"balance": ledger.Float(balance), "updated_at": now.UTC()}).Error
		if err != nil {
			logrus.WithFields(logrus.Fields{"portfolio_id": p.ID, "error": err.Error()}).Error("Investment return failed")
			continue
		}
		updated++
		logrus.WithFields(logrus.Fields{
			"user_id": p.UserID,
			"before":  p.Balance,
			"after":   ledger.Float(balance),
			"risk":    p.RiskLevel,
		}).Debug("Investment return applied")
	}
	return updated, nil
}
