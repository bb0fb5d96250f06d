package api

import (
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"strings"  // String manipulation
	"time"     // Date filters

	"roundup/internal/domain" // Importing domain models
	"roundup/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"gorm.io/gorm"                 // GORM ORM library
)

// UserAdminResponse represents the user data returned to admin
type UserAdminResponse struct {
	ID         string         `json:"id"`         // User ID
	Email      string         `json:"email"`      // Login email
	FirstName  string         `json:"firstName"`  // First name
	LastName   string         `json:"lastName"`   // Last name
	Role       string         `json:"role"`       // User role
	IsVerified bool           `json:"isVerified"` // Email verified
	CreatedAt  time.Time      `json:"createdAt"`  // Registration time
	Wallet     *domain.Wallet `json:"wallet"`     // Associated wallet
}

// AdminTransactionView is a transaction with its owner, as listed to admins
type AdminTransactionView struct {
	UserID string `json:"userId"` // Owner
	TransactionView
}

// adminPage is the cached shape of a paginated admin listing
type adminPage[T any] struct {
	Items      []T   `json:"items"`       // Page contents
	Page       int   `json:"page"`        // Current page
	PageSize   int   `json:"page_size"`   // Page size
	Total      int64 `json:"total"`       // Total matching rows
	TotalPages int   `json:"total_pages"` // Total pages
}

// respond writes the page under key with the cached flag
func (p adminPage[T]) respond(c *gin.Context, key string, cached bool) {
	c.JSON(http.StatusOK, gin.H{
		key:           p.Items,      // Page contents
		"page":        p.Page,       // Current page
		"page_size":   p.PageSize,   // Page size
		"total":       p.Total,      // Total matching rows
		"total_pages": p.TotalPages, // Total pages
		"cached":      cached,       // Indicate whether the response came from cache
	})
}

// parseDateFilter accepts YYYY-MM-DD or RFC 3339; endOfDay widens a bare date to cover the whole day
func parseDateFilter(s string, endOfDay bool) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, true
}

// ListUsersHandler returns all users with their wallet info
func ListUsersHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		page, pageSize, offset := pagination(c)
		// Create a cache key based on pagination parameters
		cacheKey := "admin:users:page=" + strconv.Itoa(page) + ":size=" + strconv.Itoa(pageSize)
		var cached adminPage[UserAdminResponse]
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			cached.respond(c, "users", true)
			return
		}
		var total int64 // Total user count
		if err := db.Model(&domain.User{}).Count(&total).Error; err != nil {
			internalError(c, err, "Failed to count users")
			return
		}
		var users []domain.User
		// Preload Wallet relation, apply offset and limit for pagination
		if err := db.Preload("Wallet").Order("created_at desc").Offset(offset).Limit(pageSize).Find(&users).Error; err != nil {
			internalError(c, err, "Failed to fetch users")
			return
		}
		resp := make([]UserAdminResponse, len(users))
		// Map users to response format
		for i, u := range users {
			resp[i] = UserAdminResponse{
				ID:         u.ID,
				Email:      u.Email,
				FirstName:  u.FirstName,
				LastName:   u.LastName,
				Role:       u.Role,
				IsVerified: u.IsVerified,
				CreatedAt:  u.CreatedAt,
				Wallet:     u.Wallet,
			}
		}
		result := adminPage[UserAdminResponse]{
			Items:      resp,
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: (int(total) + pageSize - 1) / pageSize, // Calculate total pages
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, result, utils.CacheTTL) // Cache for future requests
		result.respond(c, "users", false)
	}
}

// ListAllTransactionsHandler returns transactions across users, filterable by user, card and date
func ListAllTransactionsHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		page, pageSize, offset := pagination(c)
		// Build cache key from all query params
		keyParts := []string{"page=" + strconv.Itoa(page), "size=" + strconv.Itoa(pageSize)}
		for _, k := range []string{"user_id", "card_id", "from", "to"} {
			keyParts = append(keyParts, k+"="+c.Query(k))
		}
		cacheKey := "admin:txs:" + strings.Join(keyParts, ":")
		var cached adminPage[AdminTransactionView]
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			cached.respond(c, "transactions", true)
			return
		}

		query := db.Model(&domain.Transaction{}).Joins("JOIN cards ON cards.id = transactions.card_id") // Start building the query
		if userID := c.Query("user_id"); userID != "" {
			query = query.Where("transactions.user_id = ?", userID) // Filter by user
		}
		if cardID := c.Query("card_id"); cardID != "" {
			query = query.Where("transactions.card_id = ?", cardID) // Filter by card
		}
		if from := c.Query("from"); from != "" {
			t, ok := parseDateFilter(from, false)
			if !ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid from date"})
				return
			}
			query = query.Where("transactions.created_at >= ?", t) // Filter by start date
		}
		if to := c.Query("to"); to != "" {
			t, ok := parseDateFilter(to, true)
			if !ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid to date"})
				return
			}
			query = query.Where("transactions.created_at <= ?", t) // Filter by end date
		}
		var total int64
		if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
			internalError(c, err, "Failed to count transactions")
			return
		}
		txs := []AdminTransactionView{}
		err := query.Select("transactions.user_id, " + transactionViewColumns).
			Order("transactions.created_at desc").Offset(offset).Limit(pageSize).
			Scan(&txs).Error
		if err != nil {
			internalError(c, err, "Failed to fetch transactions")
			return
		}
		if txs == nil {
			txs = []AdminTransactionView{}
		}
		result := adminPage[AdminTransactionView]{
			Items:      txs,
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: (int(total) + pageSize - 1) / pageSize,
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, result, utils.CacheTTL)
		result.respond(c, "transactions", false)
	}
}
