package api

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"roundup/internal/domain"    // Importing domain models
	"roundup/internal/events"    // Domain events
	"roundup/internal/ledger"    // Wallet balance changes
	"roundup/internal/metrics"   // Prometheus collectors
	"roundup/internal/rounding"  // Round-up arithmetic
	"roundup/internal/simulator" // Mock purchases
	"roundup/internal/utils"     // Utility functions

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/redis/go-redis/v9"  // Redis client
	"github.com/shopspring/decimal" // Exact money arithmetic
	"github.com/sirupsen/logrus"    // Logging library
	"gorm.io/gorm"                  // GORM ORM library
)

var errCardLimit = errors.New("card limit reached")

// AddCardRequest is the body of POST /cards
type AddCardRequest struct {
	Nickname  string `json:"nickname" binding:"required,max=50"`                               // Display name
	LastFour  string `json:"lastFour" binding:"required,lastfour"`                             // Last four digits
	CardType  string `json:"cardType" binding:"omitempty,oneof=visa mastercard amex isracard"` // Card network
	CardColor string `json:"cardColor" binding:"omitempty,max=16"`                             // UI colour
	BankName  string `json:"bankName" binding:"omitempty,max=64"`                              // Issuing bank
}

// SimulateRequest optionally overrides parts of the generated purchase
type SimulateRequest struct {
	Merchant string   `json:"merchant" binding:"omitempty,max=64"`        // Merchant name
	Category string   `json:"category" binding:"omitempty,max=64"`        // Spending category
	Amount   *float64 `json:"amount" binding:"omitempty,gt=0,lte=100000"` // Purchase amount
}

// ListCardsHandler returns the user's cards, newest first
func ListCardsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var cards []domain.Card
		if err := db.Where("user_id = ?", currentUserID(c)).Order("created_at desc").Find(&cards).Error; err != nil {
			internalError(c, err, "Failed to fetch cards")
			return
		}
		c.JSON(http.StatusOK, gin.H{"cards": cards})
	}
}

// AddCardHandler links a mock card, up to domain.MaxCardsPerUser
func AddCardHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AddCardRequest
		if !bindJSON(c, &req) {
			return
		}
		userID := currentUserID(c)
		card := domain.Card{
			UserID:    userID,
			Nickname:  strings.TrimSpace(req.Nickname),
			LastFour:  req.LastFour,
			CardType:  req.CardType,
			CardColor: req.CardColor,
			BankName:  req.BankName,
			IsActive:  true,
		}
		if card.CardType == "" {
			card.CardType = "visa"
		}
		if card.CardColor == "" {
			card.CardColor = "#6C63FF"
		}
		if card.BankName == "" {
			card.BankName = "Mock Bank"
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			var count int64
			if err := tx.Model(&domain.Card{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
				return err
			}
			if count >= domain.MaxCardsPerUser {
				return errCardLimit
			}
			return tx.Create(&card).Error
		})
		if errors.Is(err, errCardLimit) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Maximum 5 cards allowed"})
			return
		} else if err != nil {
			internalError(c, err, "Failed to add card")
			return
		}
		_ = utils.InvalidateWallet(c.Request.Context(), rdb, userID) // Breakdown lists every card
		logrus.WithFields(logrus.Fields{"user_id": userID, "card_id": card.ID}).Info("Card added")
		c.JSON(http.StatusCreated, gin.H{"card": card})
	}
}

// DeleteCardHandler removes a card and its transactions
func DeleteCardHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := currentUserID(c)
		cardID := c.Param("id")
		err := db.Transaction(func(tx *gorm.DB) error {
			res := tx.Where("id = ? AND user_id = ?", cardID, userID).Delete(&domain.Card{})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
			return tx.Where("card_id = ?", cardID).Delete(&domain.Transaction{}).Error
		})
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Card not found"})
			return
		} else if err != nil {
			internalError(c, err, "Failed to delete card")
			return
		}
		_ = utils.InvalidateWallet(c.Request.Context(), rdb, userID) // Breakdown changed
		logrus.WithFields(logrus.Fields{"user_id": userID, "card_id": cardID}).Info("Card deleted")
		c.JSON(http.StatusOK, gin.H{"message": "Card deleted"})
	}
}

// ToggleCardHandler flips a card between active and inactive
func ToggleCardHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var card domain.Card
		if err := db.Where("id = ? AND user_id = ?", c.Param("id"), currentUserID(c)).First(&card).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Card not found"})
			return
		}
		card.IsActive = !card.IsActive
		if err := db.Model(&domain.Card{}).Where("id = ?", card.ID).Update("is_active", card.IsActive).Error; err != nil {
			internalError(c, err, "Failed to update card")
			return
		}
		c.JSON(http.StatusOK, gin.H{"isActive": card.IsActive, "card": card})
	}
}

// loadRoundingConfig returns the user's round-up settings, defaulting when none are stored
func loadRoundingConfig(db *gorm.DB, userID string) (rounding.Config, error) {
	var rc domain.RoundingConfig
	err := db.Where("user_id = ?", userID).First(&rc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return rounding.Config{Enabled: true, Unit: decimal.NewFromInt(1), Multiplier: 1}, nil
	} else if err != nil {
		return rounding.Config{}, err
	}
	return rounding.Config{
		Enabled:    rc.IsEnabled,
		Unit:       decimal.NewFromFloat(rc.RoundingUnit),
		Multiplier: rc.Multiplier,
	}, nil
}

// SimulateTransactionHandler records a mock purchase on an active card and sweeps its round-up into the wallet
func SimulateTransactionHandler(db *gorm.DB, rdb *redis.Client, pub events.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SimulateRequest
		if !bindOptionalJSON(c, &req) {
			return
		}
		userID := currentUserID(c)
		var card domain.Card
		if err := db.Where("id = ? AND user_id = ? AND is_active = ?", c.Param("id"), userID, true).First(&card).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Card not found or inactive"})
			return
		}
		cfg, err := loadRoundingConfig(db, userID)
		if err != nil {
			internalError(c, err, "Failed to simulate transaction")
			return
		}

		purchase := simulator.Default.Purchase()
		if m := strings.TrimSpace(req.Merchant); m != "" {
			purchase.Merchant = m
			purchase.Category = simulator.CategoryFor(m)
			purchase.Description = "Purchase at " + m
		}
		if cat := strings.TrimSpace(req.Category); cat != "" {
			purchase.Category = cat
		}
		if req.Amount != nil {
			purchase.Amount = money(*req.Amount)
			if !purchase.Amount.IsPositive() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Amount must be positive"})
				return
			}
		}
		roundup := rounding.Apply(purchase.Amount, cfg)

		txn := domain.Transaction{
			UserID:        userID,
			CardID:        card.ID,
			Merchant:      purchase.Merchant,
			Category:      purchase.Category,
			Amount:        ledger.Float(purchase.Amount),
			RoundupAmount: ledger.Float(roundup),
			Description:   purchase.Description,
		}
		// Record the purchase and credit the round-up atomically
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&txn).Error; err != nil {
				return err
			}
			if roundup.IsPositive() {
				if _, err := ledger.Credit(tx, userID, roundup, roundup); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": userID,      // Card owner
				"card_id": card.ID,     // Card charged
				"error":   err.Error(), // Error message
			}).Error("Simulated transaction failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to simulate transaction"})
			return
		}

		metrics.RoundupTransactions.Inc()
		metrics.RoundupAmount.Add(roundup.InexactFloat64())
		logrus.WithFields(logrus.Fields{
			"user_id":  userID,            // Card owner
			"card_id":  card.ID,           // Card charged
			"merchant": txn.Merchant,      // Merchant
			"amount":   txn.Amount,        // Purchase amount
			"roundup":  txn.RoundupAmount, // Amount swept into the wallet
			"type":     "roundup",         // Ledger entry type
		}).Info("Round-up transaction")
		_ = utils.InvalidateWallet(c.Request.Context(), rdb, userID)
		events.Emit(c.Request.Context(), pub, events.TransactionSimulated, userID, gin.H{
			"transactionId": txn.ID,
			"cardId":        card.ID,
			"amount":        txn.Amount,
			"roundupAmount": txn.RoundupAmount,
		})
		c.JSON(http.StatusCreated, gin.H{"transaction": txn, "roundupAmount": txn.RoundupAmount})
	}
}
