package domain

import (
	"time"

	"gorm.io/gorm"
)

// MaxCardsPerUser caps the number of linked payment cards
const MaxCardsPerUser = 5

// Card is a mock linked payment card
type Card struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"size:36;index;not null" json:"-"`
	User      User      `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	Nickname  string    `gorm:"size:50;not null" json:"nickname"`
	LastFour  string    `gorm:"size:4;not null" json:"lastFour"`
	CardType  string    `gorm:"size:16;not null;default:visa" json:"cardType"`
	CardColor string    `gorm:"size:16;default:#6C63FF" json:"cardColor"`
	BankName  string    `gorm:"size:64;default:Mock Bank" json:"bankName"`
	IsActive  bool      `gorm:"not null;default:true" json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

func (c *Card) BeforeCreate(*gorm.DB) error {
	c.ID = ensureID(c.ID)
	return nil
}

// Transaction is a simulated card purchase and the round-up it produced
type Transaction struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	UserID        string    `gorm:"size:36;index;not null" json:"-"`
	User          User      `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	CardID        string    `gorm:"size:36;index;not null" json:"cardId"`
	Card          Card      `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	Merchant      string    `gorm:"size:64;not null" json:"merchant"`
	Category      string    `gorm:"size:64;not null" json:"category"`
	Amount        float64   `gorm:"not null" json:"amount"`
	RoundupAmount float64   `gorm:"not null;default:0" json:"roundupAmount"`
	Description   string    `gorm:"size:255" json:"description"`
	CreatedAt     time.Time `gorm:"index" json:"createdAt"`
}

func (t *Transaction) BeforeCreate(*gorm.DB) error {
	t.ID = ensureID(t.ID)
	return nil
}
