package api

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation
	"time"     // Scheduling dates

	"roundup/internal/domain" // Importing domain models
	"roundup/internal/ledger" // Money rounding

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// RecurringRequest is the body of POST /recurring
type RecurringRequest struct {
	Amount    float64 `json:"amount"`    // Amount credited per run
	Frequency string  `json:"frequency"` // daily, weekly or monthly
}

// ListRecurringHandler returns the user's recurring deposits
func ListRecurringHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		deposits := []domain.RecurringDeposit{}
		if err := db.Where("user_id = ?", currentUserID(c)).Order("created_at desc").Find(&deposits).Error; err != nil {
			internalError(c, err, "Failed to fetch recurring deposits")
			return
		}
		c.JSON(http.StatusOK, gin.H{"deposits": deposits})
	}
}

// CreateRecurringHandler schedules a recurring deposit, first run one period from today
func CreateRecurringHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RecurringRequest
		if !bindJSON(c, &req) {
			return
		}
		frequency := strings.ToLower(strings.TrimSpace(req.Frequency))
		amount := money(req.Amount)
		if !amount.IsPositive() || !domain.ValidFrequency(frequency) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Valid amount and frequency (daily/weekly/monthly) required"})
			return
		}
		deposit := domain.RecurringDeposit{
			UserID:    currentUserID(c),
			Amount:    ledger.Float(amount),
			Frequency: frequency,
			NextDate:  domain.NextDate(time.Now().UTC(), frequency).Format(domain.DateLayout),
			IsActive:  true,
		}
		if err := db.Create(&deposit).Error; err != nil {
			internalError(c, err, "Failed to create recurring deposit")
			return
		}
		logrus.WithFields(logrus.Fields{
			"user_id":    deposit.UserID,    // Owner
			"deposit_id": deposit.ID,        // Schedule
			"amount":     deposit.Amount,    // Amount per run
			"frequency":  deposit.Frequency, // Period
		}).Info("Recurring deposit scheduled")
		c.JSON(http.StatusCreated, gin.H{"deposit": deposit})
	}
}

// ToggleRecurringHandler pauses or resumes a recurring deposit
func ToggleRecurringHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var deposit domain.RecurringDeposit
		if err := db.Where("id = ? AND user_id = ?", c.Param("id"), currentUserID(c)).First(&deposit).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Recurring deposit not found"})
			return
		}
		deposit.IsActive = !deposit.IsActive
		if err := db.Model(&domain.RecurringDeposit{}).Where("id = ?", deposit.ID).Update("is_active", deposit.IsActive).Error; err != nil {
			internalError(c, err, "Failed to update recurring deposit")
			return
		}
		c.JSON(http.StatusOK, gin.H{"isActive": deposit.IsActive})
	}
}

// DeleteRecurringHandler removes a recurring deposit
func DeleteRecurringHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		res := db.Where("id = ? AND user_id = ?", c.Param("id"), currentUserID(c)).Delete(&domain.RecurringDeposit{})
		if res.Error != nil {
			internalError(c, res.Error, "Failed to delete recurring deposit")
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Recurring deposit not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Recurring deposit deleted"})
	}
}
