package api

import (
	"net/http" // HTTP status codes
	"time"     // Timestamps

	"roundup/internal/domain" // Importing domain models

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// TransactionView is a transaction joined with the card it was made on
type TransactionView struct {
	ID            string    `json:"id"`
	CardID        string    `json:"cardId"`
	Merchant      string    `json:"merchant"`
	Category      string    `json:"category"`
	Amount        float64   `json:"amount"`
	RoundupAmount float64   `json:"roundupAmount"`
	Description   string    `json:"description"`
	CreatedAt     time.Time `json:"createdAt"`
	CardNickname  string    `json:"cardNickname"`
	LastFour      string    `json:"lastFour"`
	CardType      string    `json:"cardType"`
	CardColor     string    `json:"cardColor"`
}

const transactionViewColumns = "transactions.id, transactions.card_id, transactions.merchant, transactions.category, " +
	"transactions.amount, transactions.roundup_amount, transactions.description, transactions.created_at, " +
	"cards.nickname AS card_nickname, cards.last_four, cards.card_type, cards.card_color"

// ListTransactionsHandler pages through the user's transactions, optionally for one card
func ListTransactionsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := queryInt(c, "limit", 20, 1, 100)
		offset := queryInt(c, "offset", 0, 0, 1<<31-1)

		query := db.Model(&domain.Transaction{}).
			Joins("JOIN cards ON cards.id = transactions.card_id").
			Where("transactions.user_id = ?", currentUserID(c))
		if cardID := c.Query("cardId"); cardID != "" {
			query = query.Where("transactions.card_id = ?", cardID) // Filter by card
		}
		var total int64
		if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
			internalError(c, err, "Failed to count transactions")
			return
		}
		txs := []TransactionView{}
		err := query.Select(transactionViewColumns).
			Order("transactions.created_at desc").
			Limit(limit).Offset(offset).
			Scan(&txs).Error
		if err != nil {
			internalError(c, err, "Failed to fetch transactions")
			return
		}
		if txs == nil {
			txs = []TransactionView{}
		}
		c.JSON(http.StatusOK, gin.H{"transactions": txs, "total": total, "limit": limit, "offset": offset})
	}
}
