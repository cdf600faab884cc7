// Package settlement derives payment state from share lines. It is the single source of truth for
// an expense's status; the persisted status columns are a cache of Resolve's output.
package settlement

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/frahmantamala/trip-expense/internal/core/money"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusPartial Status = "partial"
	StatusSettled Status = "settled"
)

// Coarse folds the derived status into the two persisted values: settled or pending.
func (s Status) Coarse() Status {
	if s == StatusSettled {
		return StatusSettled
	}
	return StatusPending
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPartial, StatusSettled:
		return true
	}
	return false
}

// Line is one share as the resolver sees it.
type Line struct {
	ExpenseID string     `json:"expenseId,omitempty"`
	MemberID  string     `json:"memberId"`
	Amount    float64    `json:"amount"`
	Currency  string     `json:"currency,omitempty"`
	Paid      bool       `json:"-"`
	PaidAt    *time.Time `json:"paidAt,omitempty"`
}

// Resolve works in cents. An expense is settled only once every share is paid, partial once
// anything is paid, pending otherwise. Paid shares reaching the amount while another share is still
// pending is partial.
func Resolve(amount float64, lines []Line) Status {
	if len(lines) == 0 {
		return StatusPending
	}

	var paid int64
	allPaid := true
	for _, l := range lines {
		if l.Paid {
			paid += money.Cents(l.Amount)
		} else {
			allPaid = false
		}
	}

	switch {
	case allPaid:
		return StatusSettled
	case paid > 0:
		return StatusPartial
	default:
		return StatusPending
	}
}

type Summary struct {
	TotalPaid    float64 `json:"totalPaid"`
	TotalPending float64 `json:"totalPending"`
	Pending      []Line  `json:"pending"`
	Paid         []Line  `json:"paid"`
}

// Summarize partitions lines into paid and pending and sums each side as given.
func Summarize(lines []Line) Summary {
	return SummarizeWith(lines, func(l Line) decimal.Decimal { return money.Dec(l.Amount) })
}

// SummarizeWith lets callers normalize each line before summing, e.g. into a reference currency.
func SummarizeWith(lines []Line, value func(Line) decimal.Decimal) Summary {
	s := Summary{
		Pending: make([]Line, 0),
		Paid:    make([]Line, 0),
	}
	paid, pending := decimal.Zero, decimal.Zero
	for _, l := range lines {
		if l.Paid {
			s.Paid = append(s.Paid, l)
			paid = paid.Add(value(l))
		} else {
			s.Pending = append(s.Pending, l)
			pending = pending.Add(value(l))
		}
	}
	s.TotalPaid = money.Float(money.RoundDec(paid))
	s.TotalPending = money.Float(money.RoundDec(pending))
	return s
}
