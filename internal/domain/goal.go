package domain

import (
	"time"

	"gorm.io/gorm"
)

// DefaultGoalEmoji is used when a goal is created without one
const DefaultGoalEmoji = "🎯"

// Goal is a savings target funded from the wallet
type Goal struct {
	ID            string     `gorm:"primaryKey;size:36" json:"id"`
	UserID        string     `gorm:"size:36;index;not null" json:"-"`
	User          User       `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	Name          string     `gorm:"size:100;not null" json:"name"`
	Emoji         string     `gorm:"size:16" json:"emoji"`
	TargetAmount  float64    `gorm:"not null" json:"targetAmount"`
	CurrentAmount float64    `gorm:"not null;default:0" json:"currentAmount"`
	Deadline      *string    `gorm:"size:10" json:"deadline"`
	IsCompleted   bool       `gorm:"not null;default:false" json:"isCompleted"`
	CreatedAt     time.Time  `json:"createdAt"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
}

func (g *Goal) BeforeCreate(*gorm.DB) error {
	g.ID = ensureID(g.ID)
	return nil
}

// Recurring deposit frequencies
const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

// DateLayout is the calendar-day format used for next_date and deadlines
const DateLayout = "2006-01-02"

// ValidFrequency reports whether f is a supported frequency
func ValidFrequency(f string) bool {
	return f == FrequencyDaily || f == FrequencyWeekly || f == FrequencyMonthly
}

// NextDate returns the calendar day one period after from
func NextDate(from time.Time, frequency string) time.Time {
	switch frequency {
	case FrequencyDaily:
		return from.AddDate(0, 0, 1)
	case FrequencyWeekly:
		return from.AddDate(0, 0, 7)
	default:
		return from.AddDate(0, 1, 0)
	}
}

// RecurringDeposit credits the wallet on a fixed schedule
type RecurringDeposit struct {
	ID        string     `gorm:"primaryKey;size:36" json:"id"`
	UserID    string     `gorm:"size:36;index;not null" json:"-"`
	User      User       `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	Amount    float64    `gorm:"not null" json:"amount"`
	Frequency string     `gorm:"size:8;not null" json:"frequency"`
	NextDate  string     `gorm:"size:10;index;not null" json:"nextDate"`
	IsActive  bool       `gorm:"not null;default:true" json:"isActive"`
	LastRunAt *time.Time `json:"lastRunAt"`
	CreatedAt time.Time  `json:"createdAt"`
}

func (r *RecurringDeposit) BeforeCreate(*gorm.DB) error {
	r.ID = ensureID(r.ID)
	return nil
}
