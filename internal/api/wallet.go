package api

import (
	"context"  // Context for Redis operations
	"net/http" // HTTP status codes
	"sort"     // Ordering aggregated buckets
	"time"     // Date windows

	"roundup/internal/domain" // Importing domain models
	"roundup/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/redis/go-redis/v9"  // Redis client
	"github.com/shopspring/decimal" // Exact money arithmetic
	"gorm.io/gorm"                  // GORM ORM library
)

// CardBreakdown is one card's share of the wallet
type CardBreakdown struct {
	CardID       string  `json:"cardId"`       // Card ID
	Nickname     string  `json:"nickname"`     // Card nickname
	LastFour     string  `json:"lastFour"`     // Last four digits
	CardType     string  `json:"cardType"`     // Card network
	CardColor    string  `json:"cardColor"`    // UI colour
	TotalRoundup float64 `json:"totalRoundup"` // Round-ups produced by the card
	TxCount      int64   `json:"txCount"`      // Purchases on the card
}

// WalletSummary is the response of GET /wallet
type WalletSummary struct {
	TotalBalance     float64         `json:"totalBalance"`     // Spendable savings
	MonthlyBalance   float64         `json:"monthlyBalance"`   // Saved since the last monthly reset
	LastMonthlyReset string          `json:"lastMonthlyReset"` // YYYY-MM-DD
	CardBreakdown    []CardBreakdown `json:"cardBreakdown"`    // Per-card round-ups
	Cached           bool            `json:"cached"`           // Served from Redis
}

// DailySavings is one day of round-ups
type DailySavings struct {
	Date   string  `json:"date"`   // YYYY-MM-DD
	Amount float64 `json:"amount"` // Round-ups that day
	Count  int     `json:"count"`  // Purchases with a round-up
}

// MonthlySavings is one month of round-ups
type MonthlySavings struct {
	Month  string  `json:"month"`  // YYYY-MM
	Amount float64 `json:"amount"` // Round-ups that month
}

// WalletStats aggregates the user's round-up transactions
type WalletStats struct {
	TotalTransactions int64   `json:"totalTransactions"` // Purchases with a round-up
	TotalSaved        float64 `json:"totalSaved"`        // Sum of round-ups
	AvgRoundup        float64 `json:"avgRoundup"`        // Mean round-up
	MaxRoundup        float64 `json:"maxRoundup"`        // Largest round-up
	TotalSpent        float64 `json:"totalSpent"`        // Sum of purchase amounts
	Cached            bool    `json:"cached"`            // Served from Redis
}

// GetWalletHandler returns balances and the per-card breakdown, cached for utils.CacheTTL
func GetWalletHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		userID := currentUserID(c)
		cacheKey := utils.WalletCacheKey(userID) // Cache key for wallet
		var summary WalletSummary
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &summary); err == nil && found {
			summary.Cached = true
			c.JSON(http.StatusOK, summary)
			return
		}
		// If not in cache, fetch from DB
		var wallet domain.Wallet
		if err := db.Where("user_id = ?", userID).First(&wallet).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Wallet not found"})
			return
		}
		breakdown := []CardBreakdown{}
		err := db.Table("cards").
			Select("cards.id AS card_id, cards.nickname, cards.last_four, cards.card_type, cards.card_color, " +
				"COALESCE(SUM(transactions.roundup_amount), 0) AS total_roundup, COUNT(transactions.id) AS tx_count").
			Joins("LEFT JOIN transactions ON transactions.card_id = cards.id").
			Where("cards.user_id = ?", userID).
			Group("cards.id, cards.nickname, cards.last_four, cards.card_type, cards.card_color, cards.created_at").
			Order("cards.created_at").
			Scan(&breakdown).Error
		if err != nil {
			internalError(c, err, "Failed to fetch wallet")
			return
		}
		if breakdown == nil {
			breakdown = []CardBreakdown{}
		}
		for i := range breakdown {
			breakdown[i].TotalRoundup = round2(breakdown[i].TotalRoundup)
		}
		summary = WalletSummary{
			TotalBalance:     wallet.TotalBalance,
			MonthlyBalance:   wallet.MonthlyBalance,
			LastMonthlyReset: wallet.LastMonthlyReset.UTC().Format(domain.DateLayout),
			CardBreakdown:    breakdown,
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, summary, utils.CacheTTL) // Cache the summary
		c.JSON(http.StatusOK, summary)
	}
}

// GetWalletHistoryHandler returns daily round-ups for the last N days and the last six months
func GetWalletHistoryHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := currentUserID(c)
		days := queryInt(c, "days", 30, 1, 365)
		now := time.Now().UTC()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		dailySince := today.AddDate(0, 0, -(days - 1))
		monthlySince := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -5, 0)
		since := dailySince
		if monthlySince.Before(since) {
			since = monthlySince
		}

		var rows []struct {
			RoundupAmount float64
			CreatedAt     time.Time
		}
		// Bucketing happens here rather than in SQL so every dialect groups the same way
		err := db.Model(&domain.Transaction{}).
			Select("roundup_amount, created_at").
			Where("user_id = ? AND roundup_amount > 0 AND created_at >= ?", userID, since).
			Scan(&rows).Error
		if err != nil {
			internalError(c, err, "Failed to fetch history")
			return
		}

		daily := map[string]*DailySavings{}
		monthly := map[string]decimal.Decimal{}
		for _, r := range rows {
			t := r.CreatedAt.UTC()
			amt := decimal.NewFromFloat(r.RoundupAmount)
			if !t.Before(dailySince) {
				key := t.Format(domain.DateLayout)
				d, ok := daily[key]
				if !ok {
					d = &DailySavings{Date: key}
					daily[key] = d
				}
				d.Amount = decimal.NewFromFloat(d.Amount).Add(amt).Round(2).InexactFloat64()
				d.Count++
			}
			if !t.Before(monthlySince) {
				key := t.Format("2006-01")
				monthly[key] = monthly[key].Add(amt)
			}
		}

		dailyOut := make([]DailySavings, 0, len(daily))
		for _, d := range daily {
			dailyOut = append(dailyOut, *d)
		}
		sort.Slice(dailyOut, func(i, j int) bool { return dailyOut[i].Date < dailyOut[j].Date })
		monthlyOut := make([]MonthlySavings, 0, len(monthly))
		for k, v := range monthly {
			monthlyOut = append(monthlyOut, MonthlySavings{Month: k, Amount: v.Round(2).InexactFloat64()})
		}
		sort.Slice(monthlyOut, func(i, j int) bool { return monthlyOut[i].Month > monthlyOut[j].Month }) // Newest first

		c.JSON(http.StatusOK, gin.H{"daily": dailyOut, "monthly": monthlyOut})
	}
}

// GetWalletStatsHandler aggregates the user's round-ups, cached for utils.CacheTTL
func GetWalletStatsHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		userID := currentUserID(c)
		stats, err := walletStats(ctx, db, rdb, userID)
		if err != nil {
			internalError(c, err, "Failed to fetch stats")
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

func walletStats(ctx context.Context, db *gorm.DB, rdb *redis.Client, userID string) (WalletStats, error) {
	cacheKey := utils.StatsCacheKey(userID)
	var stats WalletStats
	if found, err := utils.GetCache(ctx, rdb, cacheKey, &stats); err == nil && found {
		stats.Cached = true
		return stats, nil
	}
	err := db.Model(&domain.Transaction{}).
		Select("COUNT(*) AS total_transactions, COALESCE(SUM(roundup_amount), 0) AS total_saved, "+
			"COALESCE(AVG(roundup_amount), 0) AS avg_roundup, COALESCE(MAX(roundup_amount), 0) AS max_roundup, "+
			"COALESCE(SUM(amount), 0) AS total_spent").
		Where("user_id = ? AND roundup_amount > 0", userID).
		Scan(&stats).Error
	if err != nil {
		return WalletStats{}, err
	}
	stats.TotalSaved = round2(stats.TotalSaved)
	stats.AvgRoundup = round2(stats.AvgRoundup)
	stats.MaxRoundup = round2(stats.MaxRoundup)
	stats.TotalSpent = round2(stats.TotalSpent)
	_ = utils.SetCache(ctx, rdb, cacheKey, stats, utils.CacheTTL)
	return stats, nil
}
