// Package rounding computes the round-up swept into the savings wallet for each purchase.
package rounding

import (
	"github.com/shopspring/decimal"
)

// Bounds accepted for a user's rounding configuration.
var (
	MaxUnit     = decimal.NewFromInt(1000)
	Multipliers = []int{1, 2, 3}
)

// Config is the subset of a user's rounding settings the calculation needs.
type Config struct {
	Enabled    bool
	Unit       decimal.Decimal
	Multiplier int
}

// Roundup returns the difference between amount and the next multiple of unit,
// rounded to cents. The result is always in [0, unit).
func Roundup(amount, unit decimal.Decimal) decimal.Decimal {
	if !unit.IsPositive() || amount.IsNegative() {
		return decimal.Zero
	}
	remainder := amount.Mod(unit)
	if remainder.IsZero() {
		return decimal.Zero
	}
	up := unit.Sub(remainder).Round(2)
	if up.GreaterThanOrEqual(unit) {
		return decimal.Zero
	}
	return up
}

// TargetAmount is the purchase amount after rounding up.
func TargetAmount(amount, unit decimal.Decimal) decimal.Decimal {
	return amount.Add(Roundup(amount, unit)).Round(2)
}

// Apply returns the amount credited to the wallet for a purchase under cfg.
func Apply(amount decimal.Decimal, cfg Config) decimal.Decimal {
	if !cfg.Enabled {
		return decimal.Zero
	}
	m := cfg.Multiplier
	if !ValidMultiplier(m) {
		m = 1
	}
	return Roundup(amount, cfg.Unit).Mul(decimal.NewFromInt(int64(m))).Round(2)
}

// ValidUnit reports whether unit is in (0, 1000].
func ValidUnit(unit decimal.Decimal) bool {
	return unit.IsPositive() && unit.LessThanOrEqual(MaxUnit)
}

// ValidMultiplier reports whether m is one of the supported multipliers.
func ValidMultiplier(m int) bool {
	for _, v := range Multipliers {
		if v == m {
			return true
		}
	}
	return false
}
