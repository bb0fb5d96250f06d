// Package simulator generates the mock financial data the app runs on:
// card purchases, virtual card credentials, OTPs and investment returns.
package simulator

import (
	"fmt"       // Code formatting
	"math/rand" // Seedable mock values
	"strings"   // Builders and matching
	"sync"      // Source lock
	"time"      // Seed and expiry dates

	"github.com/shopspring/decimal" // Exact purchase amounts
)

// Merchant is a mock merchant and its spending category.
type Merchant struct {
	Name     string // Display name
	Category string // Spending category
}

// Merchants is the catalogue purchases are drawn from.
var Merchants = []Merchant{
	{"Shufersal", "Groceries"},
	{"Rami Levi", "Groceries"},
	{"McDonalds", "Food & Dining"},
	{"Aroma Cafe", "Food & Dining"},
	{"Yellow", "Transport"},
	{"Gett", "Transport"},
	{"Netflix", "Entertainment"},
	{"Spotify", "Entertainment"},
	{"Zara", "Shopping"},
	{"H&M", "Shopping"},
	{"Super-Pharm", "Health"},
	{"Golf & Co", "Shopping"},
	{"Electra", "Electronics"},
	{"Castro", "Shopping"},
	{"Fox", "Shopping"},
}

// AvatarColors is the palette new users are assigned from.
var AvatarColors = []string{"#6C63FF", "#00D4FF", "#00E5A0", "#FF6B6B", "#FFD93D"}

// Purchase is a generated card purchase.
type Purchase struct {
	Merchant    string          // Merchant name
	Category    string          // Merchant category
	Amount      decimal.Decimal // Purchase amount
	Description string          // Transaction description
}

// Source produces mock values. It is safe for concurrent use.
type Source struct {
	mu  sync.Mutex // Guards rnd
	rnd *rand.Rand // Not safe for concurrent use on its own
}

// New returns a Source seeded with seed.
func New(seed int64) *Source {
	return &Source{rnd: rand.New(rand.NewSource(seed))}
}

// Default is the process-wide source used by the HTTP handlers.
var Default = New(time.Now().UnixNano())

func (s *Source) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Intn(n)
}

func (s *Source) float() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Float64()
}

// Purchase draws a merchant and an amount between 10.00 and 499.90 in steps of 0.10.
func (s *Source) Purchase() Purchase {
	m := Merchants[s.intn(len(Merchants))]
	base := int64(s.intn(490) + 10)
	tenths := int64(s.intn(10))
	amount := decimal.NewFromInt(base).Add(decimal.New(tenths, -1))
	return Purchase{
		Merchant:    m.Name,
		Category:    m.Category,
		Amount:      amount,
		Description: "Purchase at " + m.Name,
	}
}

// CategoryFor returns the catalogue category of merchant, or "Other".
func CategoryFor(merchant string) string {
	for _, m := range Merchants {
		if strings.EqualFold(m.Name, merchant) {
			return m.Category
		}
	}
	return "Other"
}

// VirtualCardNumber returns a 16 digit Visa-like number.
func (s *Source) VirtualCardNumber() string {
	var b strings.Builder
	b.WriteString("4580")
	for i := 0; i < 12; i++ {
		b.WriteByte(byte('0' + s.intn(10)))
	}
	return b.String()
}

// CardExpiry returns an MM/YY expiry three years after now.
func (s *Source) CardExpiry(now time.Time) string {
	month := s.intn(12) + 1
	return fmt.Sprintf("%02d/%02d", month, (now.Year()+3)%100)
}

// CVV returns a three digit code.
func (s *Source) CVV() string {
	return fmt.Sprintf("%d", s.intn(900)+100)
}

// OTP returns a six digit code.
func (s *Source) OTP() string {
	return fmt.Sprintf("%d", 100000+s.intn(900000))
}

// AvatarColor picks a palette colour.
func (s *Source) AvatarColor() string {
	return AvatarColors[s.intn(len(AvatarColors))]
}

// Return percent bounds for the mock portfolio.
const (
	MinReturnPercent = -10.0
	MaxReturnPercent = 25.0
)

func riskScale(risk string) float64 {
	switch risk {
	case "low":
		return 0.5
	case "high":
		return 2
	default:
		return 1
	}
}

// DriftReturn nudges current by a small random amount biased upwards and clamps
// the result to [MinReturnPercent, MaxReturnPercent] with two decimals.
func (s *Source) DriftReturn(current float64, risk string) float64 {
	drift := (s.float() - 0.4) * 0.5 * riskScale(risk)
	next := current + drift
	if next < MinReturnPercent {
		next = MinReturnPercent
	}
	if next > MaxReturnPercent {
		next = MaxReturnPercent
	}
	return decimal.NewFromFloat(next).Round(2).InexactFloat64()
}

// InvestmentReturn applies a monthly return between -2% and +8% (scaled by risk) to principal.
func (s *Source) InvestmentReturn(principal decimal.Decimal, risk string) decimal.Decimal {
	rate := (s.float()*10 - 2) / 100 * riskScale(risk)
	return principal.Mul(decimal.NewFromFloat(1 + rate)).Round(2)
}
