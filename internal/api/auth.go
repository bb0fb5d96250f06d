package api

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes
	"strings"  // String manipulation
	"time"     // Expiry times

	"roundup/internal/config"    // Token secrets and lifetimes
	"roundup/internal/db"        // Account provisioning
	"roundup/internal/domain"    // Importing domain models
	"roundup/internal/events"    // Domain events
	"roundup/internal/simulator" // Mock OTPs and avatar colours
	"roundup/internal/utils"     // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client for cache invalidation
	"github.com/sirupsen/logrus"   // Logrus for structured logging
	"golang.org/x/crypto/bcrypt"   // Password hashing
	"gorm.io/gorm"                 // GORM ORM library
)

// RegisterRequest is the body of POST /auth/register
type RegisterRequest struct {
	Email     string  `json:"email" binding:"required,email,max=255"` // Login email
	Password  string  `json:"password" binding:"required,password"`   // Plain password, hashed before storage
	FirstName string  `json:"firstName" binding:"required"`           // 2-50 characters after trimming
	LastName  string  `json:"lastName" binding:"required"`            // 2-50 characters after trimming
	Phone     *string `json:"phone" binding:"omitempty,max=32"`       // Optional phone number
}

// VerifyOTPRequest is the body of POST /auth/verify-otp
type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`        // Account email
	Code  string `json:"code" binding:"required,len=6,numeric"` // 6-digit code
	Type  string `json:"type"`                                  // verify (default) or reset
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`    // Account email
	Password string `json:"password" binding:"required"` // Plain password
}

// ForgotPasswordRequest is the body of POST /auth/forgot-password
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"` // Account email
}

// ResetPasswordRequest is the body of POST /auth/reset-password
type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`        // Account email
	Code        string `json:"code" binding:"required,len=6,numeric"` // Reset code from forgot-password
	NewPassword string `json:"newPassword" binding:"required,password"`
}

// RefreshRequest is the body of POST /auth/refresh and POST /auth/logout
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"` // Token issued at login or verification
}

// normalizeEmail lower-cases and trims an email
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// otpType maps client spellings onto stored OTP types
func otpType(t string) (string, bool) {
	switch strings.ToLower(t) {
	case "", domain.OTPVerify:
		return domain.OTPVerify, true
	case domain.OTPReset, "password_reset":
		return domain.OTPReset, true
	}
	return "", false
}

// issueOTP retires earlier unused codes of the same type and stores a fresh one
func issueOTP(tx *gorm.DB, cfg *config.Config, user *domain.User, otpType string) (string, error) {
	if err := tx.Model(&domain.OTPCode{}).
		Where("user_id = ? AND type = ? AND used = ?", user.ID, otpType, false).
		Update("used", true).Error; err != nil {
		return "", err
	}
	code := simulator.Default.OTP()
	otp := domain.OTPCode{
		UserID:    user.ID,
		Email:     user.Email,
		Code:      code,
		Type:      otpType,
		ExpiresAt: time.Now().UTC().Add(cfg.OTPTTL),
	}
	if err := tx.Create(&otp).Error; err != nil {
		return "", err
	}
	// Delivery is mocked, the code only goes to the log
	logrus.WithFields(logrus.Fields{"email": user.Email, "type": otpType}).Infof("[MOCK OTP] %s", code)
	return code, nil
}

// findOTP returns the newest unused code matching email, code and type
func findOTP(tx *gorm.DB, email, code, otpType string) (*domain.OTPCode, error) {
	var otp domain.OTPCode
	err := tx.Where("email = ? AND code = ? AND type = ? AND used = ?", email, code, otpType, false).
		Order("created_at desc").First(&otp).Error
	if err != nil {
		return nil, err
	}
	return &otp, nil
}

// issueTokens signs an access and refresh pair and stores the refresh token's hash
func issueTokens(tx *gorm.DB, cfg *config.Config, user *domain.User) (utils.TokenPair, error) {
	access, err := utils.GenerateJWT(user.ID, user.Email, user.Role, cfg.JWTSecret, cfg.JWTExpiresIn)
	if err != nil {
		return utils.TokenPair{}, err
	}
	refresh, err := utils.GenerateJWT(user.ID, user.Email, user.Role, cfg.JWTRefreshSecret, cfg.JWTRefreshExpiresIn)
	if err != nil {
		return utils.TokenPair{}, err
	}
	stored := domain.RefreshToken{
		UserID:    user.ID,
		TokenHash: utils.HashToken(refresh), // Only the hash is persisted
		ExpiresAt: time.Now().UTC().Add(cfg.JWTRefreshExpiresIn),
	}
	if err := tx.Create(&stored).Error; err != nil {
		return utils.TokenPair{}, err
	}
	return utils.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// RegisterHandler creates an account with its wallet, virtual card and portfolio
func RegisterHandler(gdb *gorm.DB, rdb *redis.Client, cfg *config.Config, pub events.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if !bindJSON(c, &req) {
			return
		}
		req.FirstName = strings.TrimSpace(req.FirstName)
		req.LastName = strings.TrimSpace(req.LastName)
		if !validName(req.FirstName) || !validName(req.LastName) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "First and last name must be 2-50 characters"})
			return
		}
		email := normalizeEmail(req.Email)
		var count int64
		if err := gdb.Model(&domain.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			internalError(c, err, "Registration failed")
			return
		}
		if count > 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			internalError(c, err, "Failed to hash password")
			return
		}
		if req.Phone != nil {
			phone := strings.TrimSpace(*req.Phone)
			if phone == "" {
				req.Phone = nil
			} else {
				req.Phone = &phone
			}
		}
		user := domain.User{
			Email:        email,
			Phone:        req.Phone,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			PasswordHash: string(hash),
			Role:         domain.RoleUser,
			AvatarColor:  simulator.Default.AvatarColor(),
		}
		var code string
		err = db.CreateUserWithResources(gdb, &user, func(tx *gorm.DB) error {
			var err error
			code, err = issueOTP(tx, cfg, &user, domain.OTPVerify)
			return err
		})
		if err != nil {
			// A concurrent registration may have won the unique index
			if gdb.Model(&domain.User{}).Where("email = ?", email).Count(&count); count > 0 {
				c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
				return
			}
			internalError(c, err, "Registration failed")
			return
		}
		logrus.WithFields(logrus.Fields{"user_id": user.ID, "email": email}).Info("User registered")
		_ = utils.DeletePrefix(c.Request.Context(), rdb, "admin:users:") // Admin listings include every user
		events.Emit(c.Request.Context(), pub, events.UserRegistered, user.ID, gin.H{"email": email})
		events.Emit(c.Request.Context(), pub, events.OTPIssued, user.ID, gin.H{"type": domain.OTPVerify})

		resp := gin.H{
			"message": "Registration successful. Check your email for the verification code.",
			"email":   email,
		}
		if cfg.IsDevelopment() {
			resp["otp"] = code // Exposed only in development for testing
		}
		c.JSON(http.StatusCreated, resp)
	}
}

// VerifyOTPHandler consumes a verification code and signs the user in.
// Reset codes are only checked here and are consumed by ResetPasswordHandler.
func VerifyOTPHandler(gdb *gorm.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req VerifyOTPRequest
		if !bindJSON(c, &req) {
			return
		}
		typ, ok := otpType(req.Type)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid code type"})
			return
		}
		otp, err := findOTP(gdb, normalizeEmail(req.Email), req.Code, typ)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired code"})
			return
		} else if err != nil {
			internalError(c, err, "Verification failed")
			return
		}
		if otp.ExpiresAt.Before(time.Now()) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Code has expired"})
			return
		}
		if typ == domain.OTPReset {
			c.JSON(http.StatusOK, gin.H{"message": "OTP verified"})
			return
		}

		var user domain.User
		var tokens utils.TokenPair
		err = gdb.Transaction(func(tx *gorm.DB) error {
			// Mark used only if still unused, so a code cannot be redeemed twice
			res := tx.Model(&domain.OTPCode{}).Where("id = ? AND used = ?", otp.ID, false).Update("used", true)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
			if err := tx.Model(&domain.User{}).Where("id = ?", otp.UserID).Update("is_verified", true).Error; err != nil {
				return err
			}
			if err := tx.First(&user, "id = ?", otp.UserID).Error; err != nil {
				return err
			}
			var err error
			tokens, err = issueTokens(tx, cfg, &user)
			return err
		})
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired code"})
			return
		} else if err != nil {
			internalError(c, err, "Verification failed")
			return
		}
		logrus.WithField("user_id", user.ID).Info("Email verified")
		c.JSON(http.StatusOK, gin.H{
			"message":      "Email verified successfully",
			"accessToken":  tokens.AccessToken,
			"refreshToken": tokens.RefreshToken,
			"user":         user,
		})
	}
}

// LoginHandler authenticates a user and returns an access and refresh pair
func LoginHandler(gdb *gorm.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if !bindJSON(c, &req) {
			return
		}
		var user domain.User
		if err := gdb.Where("email = ?", normalizeEmail(req.Email)).First(&user).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}
		// Compare provided password with stored hash
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}
		tokens, err := issueTokens(gdb, cfg, &user)
		if err != nil {
			internalError(c, err, "Failed to generate token")
			return
		}
		logrus.WithField("user_id", user.ID).Info("User logged in")
		c.JSON(http.StatusOK, gin.H{
			"accessToken":  tokens.AccessToken,
			"refreshToken": tokens.RefreshToken,
			"user":         user,
		})
	}
}

// ForgotPasswordHandler issues a reset code without revealing whether the email exists
func ForgotPasswordHandler(gdb *gorm.DB, cfg *config.Config, pub events.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ForgotPasswordRequest
		if !bindJSON(c, &req) {
			return
		}
		var user domain.User
		err := gdb.Where("email = ?", normalizeEmail(req.Email)).First(&user).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			internalError(c, err, "Failed to issue reset code")
			return
		}
		if err == nil {
			var code string
			if err := gdb.Transaction(func(tx *gorm.DB) error {
				var err error
				code, err = issueOTP(tx, cfg, &user, domain.OTPReset)
				return err
			}); err != nil {
				internalError(c, err, "Failed to issue reset code")
				return
			}
			events.Emit(c.Request.Context(), pub, events.OTPIssued, user.ID, gin.H{"type": domain.OTPReset})
			if cfg.IsDevelopment() {
				c.JSON(http.StatusOK, gin.H{"message": "Reset code sent", "otp": code})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"message": "If the email exists, a reset code has been sent."})
	}
}

// ResetPasswordHandler consumes a reset code, sets the new password and signs out every session
func ResetPasswordHandler(gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ResetPasswordRequest
		if !bindJSON(c, &req) {
			return
		}
		email := normalizeEmail(req.Email)
		var user domain.User
		if err := gdb.Where("email = ?", email).First(&user).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		otp, err := findOTP(gdb, email, req.Code, domain.OTPReset)
		if err != nil || otp.ExpiresAt.Before(time.Now()) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired code"})
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			internalError(c, err, "Failed to hash password")
			return
		}
		err = gdb.Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&domain.OTPCode{}).Where("id = ? AND used = ?", otp.ID, false).Update("used", true)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
			if err := tx.Model(&domain.User{}).Where("id = ?", user.ID).Update("password_hash", string(hash)).Error; err != nil {
				return err
			}
			return tx.Where("user_id = ?", user.ID).Delete(&domain.RefreshToken{}).Error
		})
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired code"})
			return
		} else if err != nil {
			internalError(c, err, "Password reset failed")
			return
		}
		logrus.WithField("user_id", user.ID).Info("Password reset")
		c.JSON(http.StatusOK, gin.H{"message": "Password reset successfully"})
	}
}

// RefreshHandler exchanges a stored refresh token for a new access token
func RefreshHandler(gdb *gorm.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RefreshRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Refresh token required"})
			return
		}
		claims, err := utils.ParseJWT(req.RefreshToken, cfg.JWTRefreshSecret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token"})
			return
		}
		var stored domain.RefreshToken
		err = gdb.Where("token_hash = ? AND user_id = ?", utils.HashToken(req.RefreshToken), claims.UserID).First(&stored).Error
		if err != nil || stored.ExpiresAt.Before(time.Now()) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token"})
			return
		}
		// The stored role wins over the one frozen into the refresh token
		var user domain.User
		if err := gdb.First(&user, "id = ?", claims.UserID).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token"})
			return
		}
		access, err := utils.GenerateJWT(user.ID, user.Email, user.Role, cfg.JWTSecret, cfg.JWTExpiresIn)
		if err != nil {
			internalError(c, err, "Failed to generate token")
			return
		}
		c.JSON(http.StatusOK, gin.H{"accessToken": access})
	}
}

// LogoutHandler revokes the given refresh token
func LogoutHandler(gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RefreshRequest
		if !bindOptionalJSON(c, &req) {
			return
		}
		if req.RefreshToken != "" {
			err := gdb.Where("token_hash = ? AND user_id = ?", utils.HashToken(req.RefreshToken), currentUserID(c)).
				Delete(&domain.RefreshToken{}).Error
			if err != nil {
				internalError(c, err, "Logout failed")
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
	}
}

// MeHandler returns the authenticated user's profile
func MeHandler(gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var user domain.User
		if err := gdb.First(&user, "id = ?", currentUserID(c)).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": user})
	}
}
