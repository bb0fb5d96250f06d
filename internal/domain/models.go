package domain

// Models lists every table in migration order
func Models() []any {
	return []any{
		&User{},
		&OTPCode{},
		&RefreshToken{},
		&Wallet{},
		&RoundingConfig{},
		&Card{},
		&Transaction{},
		&Transfer{},
		&VirtualCard{},
		&InvestmentPortfolio{},
		&Goal{},
		&RecurringDeposit{},
	}
}
