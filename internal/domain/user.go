package domain

import (
	"time" // Timestamps

	"github.com/google/uuid" // UUID primary keys
	"gorm.io/gorm"           // GORM hooks
)

// User roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User Model
type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`                         // Primary key
	Email        string    `gorm:"uniqueIndex;size:255;not null" json:"email"`           // Lower-cased email
	Phone        *string   `gorm:"size:32" json:"phone"`                                 // Optional phone number
	FirstName    string    `gorm:"size:50;not null" json:"firstName"`                    // First name
	LastName     string    `gorm:"size:50;not null" json:"lastName"`                     // Last name
	PasswordHash string    `gorm:"not null" json:"-"`                                    // Bcrypt hash
	IsVerified   bool      `gorm:"not null;default:false" json:"isVerified"`             // Email verified via OTP
	Role         string    `gorm:"size:16;not null;default:user" json:"role"`            // Role: user or admin
	AvatarColor  string    `gorm:"size:16;default:#6C63FF" json:"avatarColor"`           // UI avatar colour
	CreatedAt    time.Time `json:"createdAt"`                                            // Creation time
	UpdatedAt    time.Time `json:"updatedAt"`                                            // Last update time
	Wallet       *Wallet   `gorm:"constraint:OnDelete:CASCADE;" json:"wallet,omitempty"` // One-to-one wallet
}

// BeforeCreate assigns a UUID when none is set
func (u *User) BeforeCreate(*gorm.DB) error {
	u.ID = ensureID(u.ID)
	return nil
}

// OTP purposes
const (
	OTPVerify = "verify"
	OTPReset  = "reset"
)

// OTPCode is a one-time code issued for email verification or password reset
type OTPCode struct {
	ID        string    `gorm:"primaryKey;size:36"`
	UserID    string    `gorm:"size:36;index;not null"`
	User      User      `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	Email     string    `gorm:"size:255;index;not null"`
	Code      string    `gorm:"size:6;not null"`
	Type      string    `gorm:"size:16;not null"`
	ExpiresAt time.Time `gorm:"not null"`
	Used      bool      `gorm:"not null;default:false"`
	CreatedAt time.Time
}

func (o *OTPCode) BeforeCreate(*gorm.DB) error {
	o.ID = ensureID(o.ID)
	return nil
}

// RefreshToken stores the SHA-256 of an issued refresh token
type RefreshToken struct {
	ID        string    `gorm:"primaryKey;size:36"`
	UserID    string    `gorm:"size:36;index;not null"`
	User      User      `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	TokenHash string    `gorm:"size:64;index;not null"`
	ExpiresAt time.Time `gorm:"not null"`
	CreatedAt time.Time
}

func (r *RefreshToken) BeforeCreate(*gorm.DB) error {
	r.ID = ensureID(r.ID)
	return nil
}

func ensureID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}
