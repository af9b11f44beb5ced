package models

import "github.com/shopspring/decimal"

// UnitPriceUSD is the price of one token.
var UnitPriceUSD = decimal.NewFromInt(1)

// AllowedTokenAmounts are the bundles offered on the purchase page.
var AllowedTokenAmounts = []int64{10, 50, 100, 150, 200, 250}

func IsAllowedTokenAmount(amount int64) bool {
	for _, a := range AllowedTokenAmounts {
		if a == amount {
			return true
		}
	}
	return false
}

// AmountUSD is tokens x unit price.
func AmountUSD(tokens int64) decimal.Decimal {
	return UnitPriceUSD.Mul(decimal.NewFromInt(tokens))
}

// UnitAmountCents is the Stripe line item price for a bundle, in cents.
func UnitAmountCents(tokens int64) int64 {
	return AmountUSD(tokens).Shift(2).Round(0).IntPart()
}
