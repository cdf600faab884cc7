package currency

import (
	"github.com/shopspring/decimal"
)

// Converter moves amounts between a currency and the reference unit. All methods are pure.
type Converter struct {
	table *RateTable
}

func NewConverter(table *RateTable) *Converter {
	return &Converter{table: table}
}

func (c *Converter) Reference() string {
	return c.table.Reference()
}

func (c *Converter) Supports(code string) bool {
	return c.table.Supports(code)
}

func (c *Converter) Table() *RateTable {
	return c.table
}

func (c *Converter) ToReference(amount float64, code string) float64 {
	return c.ToReferenceDec(decimal.NewFromFloat(amount), code).InexactFloat64()
}

func (c *Converter) FromReference(reference float64, code string) float64 {
	return c.FromReferenceDec(decimal.NewFromFloat(reference), code).InexactFloat64()
}

func (c *Converter) ToReferenceDec(amount decimal.Decimal, code string) decimal.Decimal {
	return amount.Mul(c.table.RateOf(code))
}

func (c *Converter) FromReferenceDec(reference decimal.Decimal, code string) decimal.Decimal {
	return reference.Div(c.table.RateOf(code))
}
