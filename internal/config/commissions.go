package config

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Commissions holds the acquiring commission percents. It is built once at
// startup and passed by value; there are no setters.
type Commissions struct {
	sber     decimal.Decimal
	yookassa decimal.Decimal
}

func NewCommissions(sber, yookassa float64) Commissions {
	return Commissions{
		sber:     decimal.NewFromFloat(sber),
		yookassa: decimal.NewFromFloat(yookassa),
	}
}

// AcquiringFee is the acquiring commission charged by provider on amount,
// rounded to kopecks. Unknown providers charge nothing.
func (c Commissions) AcquiringFee(provider string, amount decimal.Decimal) decimal.Decimal {
	var pct decimal.Decimal
	switch provider {
	case "sber":
		pct = c.sber
	case "yookassa":
		pct = c.yookassa
	default:
		return decimal.Zero
	}
	return amount.Mul(pct).Div(hundred).Round(2)
}
