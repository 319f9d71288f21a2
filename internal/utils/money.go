package utils

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DisplayCurrency is the currency every account is denominated in
const DisplayCurrency = money.USD

// FormatMoney renders amount for humans, e.g. "$1,234.56". Amounts are
// rounded half away from zero to the currency's minor unit.
func FormatMoney(amount decimal.Decimal) string {
	cur := money.GetCurrency(DisplayCurrency)
	factor := decimal.New(1, int32(cur.Fraction))
	minor := amount.Mul(factor).Round(0).IntPart()
	return money.New(minor, DisplayCurrency).Display()
}

// FormatPercent renders a percentage with two decimals and a sign, e.g. "+5.00%"
func FormatPercent(pct decimal.Decimal) string {
	s := pct.StringFixed(2) + "%"
	if pct.IsPositive() {
		return "+" + s
	}
	return s
}
