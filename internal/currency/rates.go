package currency

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// RateTable maps a currency code to units of the reference currency per one unit of that code.
// It is built once at startup and never mutated; share it by pointer.
type RateTable struct {
	reference string
	rates     map[string]decimal.Decimal
}

type Rate struct {
	Code string  `json:"code"`
	Rate float64 `json:"rate"`
}

// NewRateTable normalizes codes to upper case and pins the reference currency at 1.
func NewRateTable(reference string, rates map[string]float64) (*RateTable, error) {
	ref := Normalize(reference)
	if ref == "" {
		return nil, fmt.Errorf("reference currency is required")
	}

	table := &RateTable{
		reference: ref,
		rates:     make(map[string]decimal.Decimal, len(rates)+1),
	}
	for code, rate := range rates {
		c := Normalize(code)
		if c == "" {
			return nil, fmt.Errorf("empty currency code in rate table")
		}
		if rate <= 0 {
			return nil, fmt.Errorf("rate for %s must be positive, got %v", c, rate)
		}
		table.rates[c] = decimal.NewFromFloat(rate)
	}
	if r, ok := table.rates[ref]; ok && !r.Equal(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("reference currency %s must have rate 1, got %s", ref, r)
	}
	table.rates[ref] = decimal.NewFromInt(1)

	return table, nil
}

func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (t *RateTable) Reference() string {
	return t.reference
}

func (t *RateTable) Supports(code string) bool {
	_, ok := t.rates[Normalize(code)]
	return ok
}

// RateOf returns the rate for code, or 1 for codes the table does not know.
func (t *RateTable) RateOf(code string) decimal.Decimal {
	if r, ok := t.rates[Normalize(code)]; ok {
		return r
	}
	return decimal.NewFromInt(1)
}

// Rates lists the table sorted by code.
func (t *RateTable) Rates() []Rate {
	out := make([]Rate, 0, len(t.rates))
	for code, r := range t.rates {
		out = append(out, Rate{Code: code, Rate: r.InexactFloat64()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
