package domain

import "github.com/shopspring/decimal"

// Money rounds d to cents, the precision every stored amount uses.
func Money(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
