package domain

import (
	"time"

	"gorm.io/gorm"
)

// Transfer destinations
const (
	TransferVirtualCard = "virtual_card"
	TransferInvestment  = "investment"
)

// Transfer moves wallet money to the virtual card or the investment portfolio
type Transfer struct {
	ID               string    `gorm:"primaryKey;size:36" json:"id"`
	UserID           string    `gorm:"size:36;index;not null" json:"-"`
	User             User      `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	Amount           float64   `gorm:"not null" json:"amount"`
	TransferType     string    `gorm:"size:16;not null" json:"transferType"`
	DestinationLabel string    `gorm:"size:64;not null" json:"destinationLabel"`
	Status           string    `gorm:"size:16;not null;default:completed" json:"status"`
	Notes            *string   `gorm:"size:255" json:"notes"`
	CreatedAt        time.Time `gorm:"index" json:"createdAt"`
}

func (t *Transfer) BeforeCreate(*gorm.DB) error {
	t.ID = ensureID(t.ID)
	return nil
}

// VirtualCard is the mock debit card issued at registration
type VirtualCard struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	UserID     string    `gorm:"size:36;uniqueIndex;not null" json:"-"`
	User       User      `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	CardNumber string    `gorm:"size:16;not null" json:"cardNumber"`
	Expiry     string    `gorm:"size:5;not null" json:"expiry"`
	CVV        string    `gorm:"size:3;not null" json:"cvv"`
	Balance    float64   `gorm:"not null;default:0" json:"balance"`
	IsActive   bool      `gorm:"not null;default:true" json:"isActive"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (v *VirtualCard) BeforeCreate(*gorm.DB) error {
	v.ID = ensureID(v.ID)
	return nil
}

// Investment risk levels
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// ValidRiskLevel reports whether level is a known risk level
func ValidRiskLevel(level string) bool {
	return level == RiskLow || level == RiskMedium || level == RiskHigh
}

// InvestmentPortfolio is the mock portfolio funded by transfers
type InvestmentPortfolio struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	UserID        string    `gorm:"size:36;uniqueIndex;not null" json:"-"`
	User          User      `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	Balance       float64   `gorm:"not null;default:0" json:"balance"`
	TotalInvested float64   `gorm:"not null;default:0" json:"totalInvested"`
	ReturnPercent float64   `gorm:"not null;default:0" json:"returnPercent"`
	RiskLevel     string    `gorm:"size:8;not null;default:medium" json:"riskLevel"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (p *InvestmentPortfolio) BeforeCreate(*gorm.DB) error {
	p.ID = ensureID(p.ID)
	return nil
}
