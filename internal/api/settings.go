package api

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"roundup/internal/domain"   // Importing domain models
	"roundup/internal/rounding" // Rounding bounds
	"roundup/internal/utils"    // Utility functions

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/redis/go-redis/v9"  // Redis client
	"github.com/shopspring/decimal" // Exact money arithmetic
	"gorm.io/gorm"                  // GORM ORM library
)

// RoundingRequest is the body of PUT /settings/rounding; omitted fields are left unchanged
type RoundingRequest struct {
	IsEnabled    *bool    `json:"isEnabled"`    // Round-ups on or off
	RoundingUnit *float64 `json:"roundingUnit"` // Round up to the next multiple of this
	Multiplier   *int     `json:"multiplier"`   // 1, 2 or 3
}

// ProfileRequest is the body of PUT /settings/profile; omitted fields are left unchanged
type ProfileRequest struct {
	FirstName *string `json:"firstName"`                        // 2-50 characters after trimming
	LastName  *string `json:"lastName"`                         // 2-50 characters after trimming
	Phone     *string `json:"phone" binding:"omitempty,max=32"` // Empty clears it
}

// GetRoundingHandler returns the user's rounding configuration
func GetRoundingHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var rc domain.RoundingConfig
		if err := db.Where("user_id = ?", currentUserID(c)).First(&rc).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Config not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"config": rc})
	}
}

// UpdateRoundingHandler partially updates the rounding configuration
func UpdateRoundingHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RoundingRequest
		if !bindJSON(c, &req) {
			return
		}
		var rc domain.RoundingConfig
		if err := db.Where("user_id = ?", currentUserID(c)).First(&rc).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Config not found"})
			return
		}
		updates := map[string]any{}
		if req.RoundingUnit != nil {
			unit := decimal.NewFromFloat(*req.RoundingUnit)
			if !rounding.ValidUnit(unit) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Rounding unit must be between 1 and 1000"})
				return
			}
			rc.RoundingUnit = unit.InexactFloat64()
			updates["rounding_unit"] = rc.RoundingUnit
		}
		if req.Multiplier != nil {
			if !rounding.ValidMultiplier(*req.Multiplier) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Multiplier must be 1, 2 or 3"})
				return
			}
			rc.Multiplier = *req.Multiplier
			updates["multiplier"] = rc.Multiplier
		}
		if req.IsEnabled != nil {
			rc.IsEnabled = *req.IsEnabled
			updates["is_enabled"] = rc.IsEnabled
		}
		if len(updates) > 0 {
			if err := db.Model(&domain.RoundingConfig{}).Where("id = ?", rc.ID).Updates(updates).Error; err != nil {
				internalError(c, err, "Failed to update settings")
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"config": rc})
	}
}

// UpdateProfileHandler partially updates the user's name and phone
func UpdateProfileHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ProfileRequest
		if !bindJSON(c, &req) {
			return
		}
		userID := currentUserID(c)
		var user domain.User
		if err := db.First(&user, "id = ?", userID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		updates := map[string]any{}
		if req.FirstName != nil {
			name := strings.TrimSpace(*req.FirstName)
			if !validName(name) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "First name must be 2-50 characters"})
				return
			}
			user.FirstName = name
			updates["first_name"] = name
		}
		if req.LastName != nil {
			name := strings.TrimSpace(*req.LastName)
			if !validName(name) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Last name must be 2-50 characters"})
				return
			}
			user.LastName = name
			updates["last_name"] = name
		}
		if req.Phone != nil {
			phone := strings.TrimSpace(*req.Phone)
			user.Phone = nil
			if phone != "" {
				user.Phone = &phone
			}
			updates["phone"] = user.Phone
		}
		if len(updates) > 0 {
			if err := db.Model(&domain.User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
				internalError(c, err, "Failed to update profile")
				return
			}
			_ = utils.DeletePrefix(c.Request.Context(), rdb, "admin:users:") // Admin listings show names
		}
		c.JSON(http.StatusOK, gin.H{"user": user})
	}
}
