package domain

import (
	"github.com/shopspring/decimal"
)

// CoinsPerUSD is the mocked exchange rate: 100 coins ≈ 1 USD.
const CoinsPerUSD = 100

// CoinsToUSD converts a coin amount to dollars, rounded to cents.
func CoinsToUSD(coins int64) decimal.Decimal {
	return decimal.NewFromInt(coins).Div(decimal.NewFromInt(CoinsPerUSD)).Round(2)
}

// TopUpPackage is a preset top-up amount with bonus coins
type TopUpPackage struct {
	Amount  int64 `json:"amount"`
	Bonus   int64 `json:"bonus"`
	Popular bool  `json:"popular"`
}

// TopUpPackages lists the preset amounts offered in the wallet
var TopUpPackages = []TopUpPackage{
	{Amount: 1000, Bonus: 0},
	{Amount: 2500, Bonus: 100},
	{Amount: 5000, Bonus: 300, Popular: true},
	{Amount: 10000, Bonus: 750},
	{Amount: 25000, Bonus: 2000},
}

// PackageBonus returns the bonus for an amount matching a preset package, or 0.
func PackageBonus(amount int64) int64 {
	for _, p := range TopUpPackages {
		if p.Amount == amount {
			return p.Bonus
		}
	}
	return 0
}

// PaymentMethod identifies how a top-up is paid.
type PaymentMethod struct {
	Kind       string `json:"kind"` // paypal, bank, whatsapp, card
	CardNumber string `json:"card_number,omitempty"`
	Reference  string `json:"reference,omitempty"`
}

const (
	MethodPayPal   = "paypal"
	MethodBank     = "bank"
	MethodWhatsApp = "whatsapp"
	MethodCard     = "card"

	// MethodCoins is the payment method recorded on orders paid from the wallet.
	MethodCoins = "coins"
)

// IsSupportedMethod reports whether kind is a known top-up method
func IsSupportedMethod(kind string) bool {
	switch kind {
	case MethodPayPal, MethodBank, MethodWhatsApp, MethodCard:
		return true
	}
	return false
}
