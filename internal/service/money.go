package service

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// FormatAmount renders amount in currency for display, e.g. "$1,420.00".
// Unknown currency codes fall back to "1420.00 XYZ".
func FormatAmount(amount float64, currency string) string {
	code := strings.ToUpper(strings.TrimSpace(currency))
	cur := money.GetCurrency(code)
	if cur == nil {
		return decimal.NewFromFloat(amount).StringFixed(2) + " " + code
	}

	factor := decimal.NewFromInt(10).Pow(decimal.NewFromInt(int64(cur.Fraction)))
	minor := decimal.NewFromFloat(amount).Mul(factor).Round(0)
	return money.New(minor.IntPart(), code).Display()
}
