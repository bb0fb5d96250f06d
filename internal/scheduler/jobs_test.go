package scheduler

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"roundup/internal/config"
	"roundup/internal/db"
	"roundup/internal/domain"
	"roundup/internal/events"
	"roundup/internal/simulator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestJobs(t *testing.T) (*Jobs, *gorm.DB, *events.Recorder) {
	t.Helper()
	gdb, err := db.Open(&config.Config{DBDriver: "sqlite", DBPath: filepath.Join(t.TempDir(), "jobs.db")})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	rec := &events.Recorder{}
	return NewJobs(gdb, nil, rec, simulator.New(42)), gdb, rec
}

func newUser(t *testing.T, gdb *gorm.DB, email string) string {
	t.Helper()
	u := domain.User{Email: email, FirstName: "Job", LastName: "Runner", PasswordHash: "x"}
	require.NoError(t, db.CreateUserWithResources(gdb, &u, nil))
	return u.ID
}

func wallet(t *testing.T, gdb *gorm.DB, userID string) domain.Wallet {
	t.Helper()
	var w domain.Wallet
	require.NoError(t, gdb.Where("user_id = ?", userID).First(&w).Error)
	return w
}

func TestRunRecurringDeposits(t *testing.T) {
	jobs, gdb, rec := newTestJobs(t)
	userID := newUser(t, gdb, "rec@example.com")
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	deposits := []domain.RecurringDeposit{
		{UserID: userID, Amount: 25, Frequency: domain.FrequencyDaily, NextDate: "2026-03-07", IsActive: true},
		{UserID: userID, Amount: 100, Frequency: domain.FrequencyMonthly, NextDate: "2026-03-10", IsActive: true},
		{UserID: userID, Amount: 7, Frequency: domain.FrequencyWeekly, NextDate: "2026-03-11", IsActive: true},
		{UserID: userID, Amount: 50, Frequency: domain.FrequencyWeekly, NextDate: "2026-03-01", IsActive: true},
	}
	for i := range deposits {
		require.NoError(t, gdb.Create(&deposits[i]).Error)
	}
	// Paused deposits are skipped
	require.NoError(t, gdb.Model(&deposits[3]).Update("is_active", false).Error)

	n, err := jobs.RunRecurringDeposits(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	w := wallet(t, gdb, userID)
	assert.Equal(t, 125.0, w.TotalBalance) // Missed daily runs are not back-filled
	assert.Equal(t, 125.0, w.MonthlyBalance)

	var daily, monthly domain.RecurringDeposit
	require.NoError(t, gdb.First(&daily, "id = ?", deposits[0].ID).Error)
	require.NoError(t, gdb.First(&monthly, "id = ?", deposits[1].ID).Error)
	assert.Equal(t, "2026-03-11", daily.NextDate)
	assert.Equal(t, "2026-04-10", monthly.NextDate)
	assert.NotNil(t, daily.LastRunAt)
	assert.Equal(t, []string{events.RecurringExecuted, events.RecurringExecuted}, rec.Types())

	// A second run the same day credits nothing
	n, err = jobs.RunRecurringDeposits(context.Background(), now.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 125.0, wallet(t, gdb, userID).TotalBalance)
}

func TestResetMonthlyBalances(t *testing.T) {
	jobs, gdb, _ := newTestJobs(t)
	stale := newUser(t, gdb, "stale@example.com")
	fresh := newUser(t, gdb, "fresh@example.com")
	now := time.Date(2026, 5, 2, 0, 5, 0, 0, time.UTC)

	require.NoError(t, gdb.Model(&domain.Wallet{}).Where("user_id = ?", stale).Updates(map[string]any{
		"total_balance": 40, "monthly_balance": 12.5, "last_monthly_reset": time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
	}).Error)
	require.NoError(t, gdb.Model(&domain.Wallet{}).Where("user_id = ?", fresh).Updates(map[string]any{
		"monthly_balance": 3, "last_monthly_reset": time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
	}).Error)

	n, err := jobs.ResetMonthlyBalances(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	w := wallet(t, gdb, stale)
	assert.Zero(t, w.MonthlyBalance)
	assert.Equal(t, 40.0, w.TotalBalance)
	assert.Equal(t, "2026-05-02", w.LastMonthlyReset.UTC().Format(domain.DateLayout))
	assert.Equal(t, 3.0, wallet(t, gdb, fresh).MonthlyBalance)

	n, err = jobs.ResetMonthlyBalances(context.Background(), now)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestApplyInvestmentReturns(t *testing.T) {
	jobs, gdb, _ := newTestJobs(t)
	funded := newUser(t, gdb, "funded@example.com")
	empty := newUser(t, gdb, "empty@example.com")
	require.NoError(t, gdb.Model(&domain.InvestmentPortfolio{}).Where("user_id = ?", funded).
		Updates(map[string]any{"balance": 100, "total_invested": 100}).Error)

	n, err := jobs.ApplyInvestmentReturns(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var p domain.InvestmentPortfolio
	require.NoError(t, gdb.Where("user_id = ?", funded).First(&p).Error)
	assert.GreaterOrEqual(t, p.Balance, 98.0)
	assert.LessOrEqual(t, p.Balance, 108.0)
	assert.Equal(t, 100.0, p.TotalInvested)

	var untouched domain.InvestmentPortfolio
	require.NoError(t, gdb.Where("user_id = ?", empty).First(&untouched).Error)
	assert.Zero(t, untouched.Balance)
}

func TestSchedulerRejectsBadSchedule(t *testing.T) {
	jobs, _, _ := newTestJobs(t)
	s := New(jobs, Schedules{Recurring: "@hourly", MonthlyReset: "not a schedule", Investment: "0 1 1 * *"})
	err := s.Start()
	<-s.Stop().Done()
	assert.Error(t, err)
}
