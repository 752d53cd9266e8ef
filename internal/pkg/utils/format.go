package utils

import (
	"fmt"
	"math"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// FormatMoney renders an amount for display in the given ISO currency,
// e.g. 1234.5 USD -> "$1,234.50". Display only: amounts are rounded to the
// currency's minor unit here and never fed back into calculations.
func FormatMoney(amount float64, currency string) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		amount = 0
	}
	cur := money.New(0, strings.ToUpper(currency)).Currency()
	minor := decimal.NewFromFloat(amount).Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}

// FormatPercent renders a percentage with an explicit sign and two digits.
func FormatPercent(p float64) string {
	return fmt.Sprintf("%+.2f%%", Round2(p))
}
