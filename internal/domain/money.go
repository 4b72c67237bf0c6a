package domain

import "github.com/shopspring/decimal"

func init() {
	// Money goes over the wire as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

var hundred = decimal.NewFromInt(100)

// Round2 rounds half away from zero to two decimal places.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// HasAtMostTwoDecimals reports whether d fits in whole cents.
func HasAtMostTwoDecimals(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(2))
}

// PercentOf returns amount × rate / 100 at full precision.
func PercentOf(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Div(hundred)
}
