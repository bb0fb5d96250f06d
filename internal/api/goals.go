package api

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes
	"strings"  // String manipulation
	"time"     // Completion timestamps

	"roundup/internal/domain" // Importing domain models
	"roundup/internal/events" // Domain events
	"roundup/internal/ledger" // Wallet balance changes
	"roundup/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/redis/go-redis/v9"  // Redis client
	"github.com/shopspring/decimal" // Exact money arithmetic
	"github.com/sirupsen/logrus"    // Logging library
	"gorm.io/gorm"                  // GORM ORM library
	"gorm.io/gorm/clause"           // Row locking
)

var errGoalCompleted = errors.New("goal already completed")

// GoalRequest is the body of POST /goals and PATCH /goals/:id; omitted fields are left unchanged on update
type GoalRequest struct {
	Name         *string  `json:"name" binding:"omitempty,max=100"` // Goal name
	Emoji        *string  `json:"emoji" binding:"omitempty,max=16"` // Display emoji
	TargetAmount *float64 `json:"targetAmount"`                     // Amount to save
	Deadline     *string  `json:"deadline"`                         // YYYY-MM-DD, empty clears it
}

// ContributeRequest is the body of POST /goals/:id/contribute
type ContributeRequest struct {
	Amount float64 `json:"amount"` // Requested contribution
}

// parseDeadline validates an optional YYYY-MM-DD deadline; an empty string clears it
func parseDeadline(s *string) (*string, bool) {
	if s == nil {
		return nil, true
	}
	d := strings.TrimSpace(*s)
	if d == "" {
		return nil, true
	}
	if _, err := time.Parse(domain.DateLayout, d); err != nil {
		return nil, false
	}
	return &d, true
}

// ListGoalsHandler returns the user's goals, open ones first
func ListGoalsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		goals := []domain.Goal{}
		if err := db.Where("user_id = ?", currentUserID(c)).Order("is_completed asc, created_at desc").Find(&goals).Error; err != nil {
			internalError(c, err, "Failed to fetch goals")
			return
		}
		c.JSON(http.StatusOK, gin.H{"goals": goals})
	}
}

// CreateGoalHandler adds a savings goal
func CreateGoalHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req GoalRequest
		if !bindJSON(c, &req) {
			return
		}
		var name string
		if req.Name != nil {
			name = strings.TrimSpace(*req.Name)
		}
		if name == "" || req.TargetAmount == nil || !money(*req.TargetAmount).IsPositive() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Name and a positive target amount are required"})
			return
		}
		deadline, ok := parseDeadline(req.Deadline)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Deadline must be a YYYY-MM-DD date"})
			return
		}
		goal := domain.Goal{
			UserID:       currentUserID(c),
			Name:         name,
			Emoji:        domain.DefaultGoalEmoji,
			TargetAmount: ledger.Float(money(*req.TargetAmount)),
			Deadline:     deadline,
		}
		if req.Emoji != nil && strings.TrimSpace(*req.Emoji) != "" {
			goal.Emoji = strings.TrimSpace(*req.Emoji)
		}
		if err := db.Create(&goal).Error; err != nil {
			internalError(c, err, "Failed to create goal")
			return
		}
		c.JSON(http.StatusCreated, gin.H{"goal": goal})
	}
}

// UpdateGoalHandler partially updates a goal
func UpdateGoalHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req GoalRequest
		if !bindJSON(c, &req) {
			return
		}
		var goal domain.Goal
		if err := db.Where("id = ? AND user_id = ?", c.Param("id"), currentUserID(c)).First(&goal).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Goal not found"})
			return
		}
		updates := map[string]any{}
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Name cannot be empty"})
				return
			}
			updates["name"] = name
			goal.Name = name
		}
		if req.Emoji != nil && strings.TrimSpace(*req.Emoji) != "" {
			goal.Emoji = strings.TrimSpace(*req.Emoji)
			updates["emoji"] = goal.Emoji
		}
		if req.Deadline != nil {
			deadline, ok := parseDeadline(req.Deadline)
			if !ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Deadline must be a YYYY-MM-DD date"})
				return
			}
			goal.Deadline = deadline
			updates["deadline"] = deadline
		}
		if req.TargetAmount != nil {
			target := money(*req.TargetAmount)
			if !target.IsPositive() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Target amount must be positive"})
				return
			}
			goal.TargetAmount = ledger.Float(target)
			updates["target_amount"] = goal.TargetAmount
			// A new target may complete or reopen the goal
			completed := !ledger.Money(goal.CurrentAmount).LessThan(target)
			if completed != goal.IsCompleted {
				goal.IsCompleted = completed
				goal.CompletedAt = nil
				if completed {
					now := time.Now().UTC()
					goal.CompletedAt = &now
				}
				updates["is_completed"] = goal.IsCompleted
				updates["completed_at"] = goal.CompletedAt
			}
		}
		if len(updates) > 0 {
			if err := db.Model(&domain.Goal{}).Where("id = ?", goal.ID).Updates(updates).Error; err != nil {
				internalError(c, err, "Failed to update goal")
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"goal": goal})
	}
}

// DeleteGoalHandler removes a goal. Contributions are not refunded to the wallet
func DeleteGoalHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		res := db.Where("id = ? AND user_id = ?", c.Param("id"), currentUserID(c)).Delete(&domain.Goal{})
		if res.Error != nil {
			internalError(c, res.Error, "Failed to delete goal")
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Goal not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Goal deleted"})
	}
}

// ContributeGoalHandler moves wallet money into a goal, clamped to what the goal still needs
func ContributeGoalHandler(db *gorm.DB, rdb *redis.Client, pub events.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ContributeRequest
		if !bindJSON(c, &req) {
			return
		}
		amount := money(req.Amount)
		if !amount.IsPositive() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Amount must be positive"})
			return
		}
		userID := currentUserID(c)
		var goal domain.Goal
		var contributed decimal.Decimal
		justCompleted := false
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("id = ? AND user_id = ?", c.Param("id"), userID).First(&goal).Error; err != nil {
				return err
			}
			if goal.IsCompleted {
				return errGoalCompleted
			}
			current := ledger.Money(goal.CurrentAmount)
			remaining := ledger.Money(goal.TargetAmount).Sub(current)
			contributed = decimal.Min(amount, remaining)
			if !contributed.IsPositive() {
				return errGoalCompleted
			}
			if _, err := ledger.Debit(tx, userID, contributed); err != nil {
				return err
			}
			goal.CurrentAmount = ledger.Float(current.Add(contributed))
			updates := map[string]any{"current_amount": goal.CurrentAmount}
			if contributed.Equal(remaining) {
				now := time.Now().UTC()
				goal.IsCompleted = true
				goal.CompletedAt = &now
				justCompleted = true
				updates["is_completed"] = true
				updates["completed_at"] = now
			}
			return tx.Model(&domain.Goal{}).Where("id = ?", goal.ID).Updates(updates).Error
		})
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Goal not found"})
			return
		case errors.Is(err, errGoalCompleted):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Goal already completed"})
			return
		case errors.Is(err, ledger.ErrInsufficientFunds), errors.Is(err, ledger.ErrWalletNotFound):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient wallet balance"})
			return
		case err != nil:
			internalError(c, err, "Contribution failed")
			return
		}

		logrus.WithFields(logrus.Fields{
			"user_id": userID,                       // Goal owner
			"goal_id": goal.ID,                      // Goal funded
			"amount":  contributed.InexactFloat64(), // Actual contribution
			"type":    "goal_contribution",          // Ledger entry type
		}).Info("Goal contribution")
		_ = utils.InvalidateWallet(c.Request.Context(), rdb, userID)
		if justCompleted {
			events.Emit(c.Request.Context(), pub, events.GoalCompleted, userID, gin.H{"goalId": goal.ID, "name": goal.Name})
		}
		c.JSON(http.StatusOK, gin.H{"goal": goal, "justCompleted": justCompleted})
	}
}
