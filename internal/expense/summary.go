package expense

import (
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/trip-expense/internal/core/money"
	"github.com/frahmantamala/trip-expense/internal/currency"
)

type CurrencyTotal struct {
	Amount        float64 `json:"amount"`
	USDEquivalent float64 `json:"usdEquivalent"`
}

// Summary describes every expense matching a filter. TotalAmount and ByCategory are raw sums
// across currencies; TotalAmountUSD and the breakdown equivalents are in the reference currency.
type Summary struct {
	TotalAmount       float64                  `json:"totalAmount"`
	TotalExpenses     int                      `json:"totalExpenses"`
	ByCategory        map[string]float64       `json:"byCategory"`
	TotalAmountUSD    float64                  `json:"totalAmountUSD"`
	CurrencyBreakdown map[string]CurrencyTotal `json:"currencyBreakdown"`
	ReferenceCurrency string                   `json:"referenceCurrency"`
}

func Summarize(expenses []*Expense, converter *currency.Converter) Summary {
	total := decimal.Zero
	reference := decimal.Zero
	byCategory := map[string]decimal.Decimal{}
	byCurrency := map[string]decimal.Decimal{}

	for _, e := range expenses {
		amount := money.Dec(e.Amount)
		total = total.Add(amount)
		reference = reference.Add(converter.ToReferenceDec(amount, e.Currency))
		byCategory[e.Category] = byCategory[e.Category].Add(amount)
		byCurrency[e.Currency] = byCurrency[e.Currency].Add(amount)
	}

	s := Summary{
		TotalAmount:       money.Float(money.RoundDec(total)),
		TotalExpenses:     len(expenses),
		ByCategory:        make(map[string]float64, len(byCategory)),
		TotalAmountUSD:    money.Float(money.RoundDec(reference)),
		CurrencyBreakdown: make(map[string]CurrencyTotal, len(byCurrency)),
		ReferenceCurrency: converter.Reference(),
	}
	for cat, sum := range byCategory {
		s.ByCategory[cat] = money.Float(money.RoundDec(sum))
	}
	for code, sum := range byCurrency {
		s.CurrencyBreakdown[code] = CurrencyTotal{
			Amount:        money.Float(money.RoundDec(sum)),
			USDEquivalent: money.Float(money.RoundDec(converter.ToReferenceDec(sum, code))),
		}
	}
	return s
}
