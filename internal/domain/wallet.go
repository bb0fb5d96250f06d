package domain

import (
	"time"

	"gorm.io/gorm"
)

// Wallet Model
type Wallet struct {
	ID               string    `gorm:"primaryKey;size:36" json:"id"`             // Primary key
	UserID           string    `gorm:"size:36;uniqueIndex;not null" json:"-"`    // Foreign key to User
	TotalBalance     float64   `gorm:"not null;default:0" json:"totalBalance"`   // All-time swept savings minus outflows
	MonthlyBalance   float64   `gorm:"not null;default:0" json:"monthlyBalance"` // Savings since the last monthly reset
	LastMonthlyReset time.Time `json:"lastMonthlyReset"`                         // Day of the last reset
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func (w *Wallet) BeforeCreate(*gorm.DB) error {
	w.ID = ensureID(w.ID)
	return nil
}

// RoundingConfig holds a user's round-up preferences
type RoundingConfig struct {
	ID           string    `gorm:"primaryKey;size:36" json:"-"`
	UserID       string    `gorm:"size:36;uniqueIndex;not null" json:"-"`
	User         User      `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	IsEnabled    bool      `gorm:"not null;default:true" json:"isEnabled"`
	RoundingUnit float64   `gorm:"not null;default:1" json:"roundingUnit"`
	Multiplier   int       `gorm:"not null;default:1" json:"multiplier"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (r *RoundingConfig) BeforeCreate(*gorm.DB) error {
	r.ID = ensureID(r.ID)
	return nil
}
