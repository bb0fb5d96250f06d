package api

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"roundup/internal/domain"    // Importing domain models
	"roundup/internal/events"    // Domain events
	"roundup/internal/ledger"    // Wallet balance changes
	"roundup/internal/metrics"   // Prometheus collectors
	"roundup/internal/simulator" // Mock market drift
	"roundup/internal/utils"     // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
	"gorm.io/gorm/clause"          // Row locking
)

var (
	errVirtualCardNotFound = errors.New("virtual card not found")
	errPortfolioNotFound   = errors.New("portfolio not found")
)

// TransferRequest is the body of POST /transfers
type TransferRequest struct {
	Amount       float64 `json:"amount"`                            // Amount to move out of the wallet
	TransferType string  `json:"transferType"`                      // virtual_card or investment
	Notes        *string `json:"notes" binding:"omitempty,max=255"` // Optional memo
}

// RiskRequest is the body of PUT /transfers/investment/risk
type RiskRequest struct {
	RiskLevel string `json:"riskLevel"` // low, medium or high
}

// PortfolioView is a portfolio with its unrealised profit
type PortfolioView struct {
	domain.InvestmentPortfolio
	Profit float64 `json:"profit"` // balance minus total invested
}

func newPortfolioView(p domain.InvestmentPortfolio) PortfolioView {
	return PortfolioView{
		InvestmentPortfolio: p,
		Profit:              ledger.Float(ledger.Money(p.Balance).Sub(ledger.Money(p.TotalInvested))),
	}
}

// ListTransfersHandler returns the user's 50 most recent transfers
func ListTransfersHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		transfers := []domain.Transfer{}
		if err := db.Where("user_id = ?", currentUserID(c)).Order("created_at desc").Limit(50).Find(&transfers).Error; err != nil {
			internalError(c, err, "Failed to fetch transfers")
			return
		}
		c.JSON(http.StatusOK, gin.H{"transfers": transfers})
	}
}

// CreateTransferHandler moves wallet money to the virtual card or the investment portfolio
func CreateTransferHandler(db *gorm.DB, rdb *redis.Client, pub events.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TransferRequest
		if !bindJSON(c, &req) {
			return
		}
		if req.TransferType != domain.TransferVirtualCard && req.TransferType != domain.TransferInvestment {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transfer type"})
			return
		}
		amount := money(req.Amount)
		if !amount.IsPositive() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Amount must be positive"})
			return
		}
		if req.Notes != nil {
			notes := strings.TrimSpace(*req.Notes)
			req.Notes = &notes
		}
		userID := currentUserID(c)
		transfer := domain.Transfer{
			UserID:       userID,
			Amount:       ledger.Float(amount),
			TransferType: req.TransferType,
			Status:       "completed",
			Notes:        req.Notes,
		}

		// Atomic transfer
		err := db.Transaction(func(tx *gorm.DB) error {
			wallet, err := ledger.LockWallet(tx, userID)
			if err != nil {
				return err
			}
			if ledger.Money(wallet.TotalBalance).LessThan(amount) {
				return ledger.ErrInsufficientFunds
			}
			switch req.TransferType {
			case domain.TransferVirtualCard:
				var card domain.VirtualCard
				if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("user_id = ?", userID).First(&card).Error; err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						return errVirtualCardNotFound
					}
					return err
				}
				newBalance := ledger.Float(ledger.Money(card.Balance).Add(amount))
				if err := tx.Model(&domain.VirtualCard{}).Where("id = ?", card.ID).Update("balance", newBalance).Error; err != nil {
					return err
				}
				transfer.DestinationLabel = "Virtual Card •••• " + card.CardNumber[len(card.CardNumber)-4:]
			case domain.TransferInvestment:
				var p domain.InvestmentPortfolio
				if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("user_id = ?", userID).First(&p).Error; err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						return errPortfolioNotFound
					}
					return err
				}
				if err := tx.Model(&domain.InvestmentPortfolio{}).Where("id = ?", p.ID).Updates(map[string]any{
					"balance":        ledger.Float(ledger.Money(p.Balance).Add(amount)),
					"total_invested": ledger.Float(ledger.Money(p.TotalInvested).Add(amount)),
				}).Error; err != nil {
					return err
				}
				transfer.DestinationLabel = "Investment Portfolio"
			}
			if _, err := ledger.Debit(tx, userID, amount); err != nil {
				return err
			}
			return tx.Create(&transfer).Error
		})
		switch {
		case errors.Is(err, ledger.ErrInsufficientFunds):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient balance"})
			return
		case errors.Is(err, errVirtualCardNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Virtual card not found"})
			return
		case errors.Is(err, errPortfolioNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Portfolio not found"})
			return
		case errors.Is(err, ledger.ErrWalletNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Wallet not found"})
			return
		case err != nil:
			logrus.WithFields(logrus.Fields{
				"user_id": userID,           // Sender user ID
				"type":    req.TransferType, // Destination
				"amount":  transfer.Amount,  // Transfer amount
				"error":   err.Error(),      // Error message
			}).Error("Transfer failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Transfer failed"})
			return
		}

		metrics.Transfers.WithLabelValues(transfer.TransferType).Inc()
		logrus.WithFields(logrus.Fields{
			"user_id":     userID,                // Sender user ID
			"transfer_id": transfer.ID,           // Transfer record
			"amount":      transfer.Amount,       // Transfer amount
			"type":        transfer.TransferType, // Destination
		}).Info("Transfer transaction")
		_ = utils.InvalidateWallet(c.Request.Context(), rdb, userID)
		events.Emit(c.Request.Context(), pub, events.TransferCompleted, userID, gin.H{
			"transferId":   transfer.ID,
			"amount":       transfer.Amount,
			"transferType": transfer.TransferType,
		})
		c.JSON(http.StatusCreated, gin.H{"transfer": transfer})
	}
}

// GetVirtualCardHandler returns the user's virtual card
func GetVirtualCardHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var card domain.VirtualCard
		if err := db.Where("user_id = ?", currentUserID(c)).First(&card).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Virtual card not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"virtualCard": card})
	}
}

// GetInvestmentHandler drifts the portfolio's return like a live market tick and returns it
func GetInvestmentHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var p domain.InvestmentPortfolio
		if err := db.Where("user_id = ?", currentUserID(c)).First(&p).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Portfolio not found"})
			return
		}
		p.ReturnPercent = simulator.Default.DriftReturn(p.ReturnPercent, p.RiskLevel)
		if err := db.Model(&domain.InvestmentPortfolio{}).Where("id = ?", p.ID).Update("return_percent", p.ReturnPercent).Error; err != nil {
			internalError(c, err, "Failed to fetch portfolio")
			return
		}
		c.JSON(http.StatusOK, gin.H{"portfolio": newPortfolioView(p)})
	}
}

// UpdateRiskLevelHandler changes the portfolio's risk level
func UpdateRiskLevelHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RiskRequest
		if !bindJSON(c, &req) {
			return
		}
		if !domain.ValidRiskLevel(req.RiskLevel) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Risk level must be low, medium or high"})
			return
		}
		var p domain.InvestmentPortfolio
		if err := db.Where("user_id = ?", currentUserID(c)).First(&p).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Portfolio not found"})
			return
		}
		if err := db.Model(&domain.InvestmentPortfolio{}).Where("id = ?", p.ID).Update("risk_level", req.RiskLevel).Error; err != nil {
			internalError(c, err, "Failed to update risk level")
			return
		}
		p.RiskLevel = req.RiskLevel
		c.JSON(http.StatusOK, gin.H{"portfolio": newPortfolioView(p)})
	}
}
