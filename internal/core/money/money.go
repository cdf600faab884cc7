// Package money holds the cent-precision arithmetic shared by the splitter, the resolver and the
// aggregators. Amounts travel as float64 on the wire and in storage; every sum and rounding step
// goes through decimal so totals reconcile to the cent.
package money

import "github.com/shopspring/decimal"

// Places is the precision of every persisted amount.
const Places = 2

func Dec(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

// Round rounds half away from zero to cents.
func Round(v float64) float64 {
	return Dec(v).Round(Places).InexactFloat64()
}

func RoundDec(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Cents returns v in minor units after rounding.
func Cents(v float64) int64 {
	return Dec(v).Round(Places).Shift(Places).IntPart()
}

func FromCents(c int64) float64 {
	return decimal.New(c, -Places).InexactFloat64()
}

func Sum(values ...float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(Dec(v))
	}
	return total.InexactFloat64()
}

func Float(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

// HasFraction reports whether v carries more precision than cents.
func HasFraction(v float64) bool {
	d := Dec(v)
	return !d.Equal(d.Round(Places))
}
