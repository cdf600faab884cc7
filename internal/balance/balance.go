package balance

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/frahmantamala/trip-expense/internal/core/money"
	"github.com/frahmantamala/trip-expense/internal/currency"
	"github.com/frahmantamala/trip-expense/internal/expense"
)

// Entry is one member's position over a set of expenses, in the reference currency.
// Positive Balance means the group owes the member.
type Entry struct {
	User    string  `json:"user"`
	Paid    float64 `json:"paid"`
	Owes    float64 `json:"owes"`
	Balance float64 `json:"balance"`
}

type View struct {
	Balances          []Entry `json:"balances"`
	TotalExpenses     int     `json:"totalExpenses"`
	TotalAmount       float64 `json:"totalAmount"`
	ReferenceCurrency string  `json:"referenceCurrency"`
}

// Entry returns the position of user, or a zero entry when the view does not mention them.
func (v View) Entry(user string) Entry {
	for _, e := range v.Balances {
		if e.User == user {
			return e
		}
	}
	return Entry{User: user}
}

type position struct {
	paid decimal.Decimal
	owes decimal.Decimal
}

// Aggregate folds expenses into per-member positions. Every listed member gets an entry, in the
// given order; contributors and share holders outside the list are appended so totals reconcile.
// Owes counts every share, paid or pending.
func Aggregate(expenses []*expense.Expense, members []string, converter *currency.Converter) View {
	positions := make(map[string]*position, len(members))
	order := make([]string, 0, len(members))
	track := func(id string) *position {
		p, ok := positions[id]
		if !ok {
			p = &position{paid: decimal.Zero, owes: decimal.Zero}
			positions[id] = p
			order = append(order, id)
		}
		return p
	}
	for _, m := range members {
		track(m)
	}

	total := decimal.Zero
	for _, exp := range expenses {
		amount := converter.ToReferenceDec(money.Dec(exp.Amount), exp.Currency)
		total = total.Add(amount)

		payer := track(exp.ContributorID)
		payer.paid = payer.paid.Add(amount)

		for _, s := range exp.Shares {
			p := track(s.MemberID)
			p.owes = p.owes.Add(converter.ToReferenceDec(money.Dec(s.Amount), exp.Currency))
		}
	}

	paid := make([]decimal.Decimal, len(order))
	owes := make([]decimal.Decimal, len(order))
	for i, id := range order {
		paid[i] = positions[id].paid
		owes[i] = positions[id].owes
	}
	paid = roundToTotal(paid)
	owes = roundToTotal(owes)

	entries := make([]Entry, len(order))
	for i, id := range order {
		entries[i] = Entry{
			User:    id,
			Paid:    money.Float(paid[i]),
			Owes:    money.Float(owes[i]),
			Balance: money.Float(paid[i].Sub(owes[i])),
		}
	}

	return View{
		Balances:          entries,
		TotalExpenses:     len(expenses),
		TotalAmount:       money.Float(money.RoundDec(total)),
		ReferenceCurrency: converter.Reference(),
	}
}

// roundToTotal rounds each value to cents and moves any rounding drift onto the largest value,
// so the rounded column sums to the rounded exact total.
func roundToTotal(values []decimal.Decimal) []decimal.Decimal {
	if len(values) == 0 {
		return values
	}
	exact := decimal.Zero
	rounded := decimal.Zero
	largest := 0
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		exact = exact.Add(v)
		out[i] = money.RoundDec(v)
		rounded = rounded.Add(out[i])
		if v.Abs().GreaterThan(values[largest].Abs()) {
			largest = i
		}
	}
	if drift := money.RoundDec(exact).Sub(rounded); !drift.IsZero() {
		out[largest] = out[largest].Add(drift)
	}
	return out
}

// Transfer is one suggested payment that moves the group toward zero balances.
type Transfer struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Amount float64 `json:"amount"`
}

type party struct {
	user  string
	cents int64
}

// Simplify turns balances into settle-up transfers, greedily matching the largest debtor with the
// largest creditor. Works in cents; ties break on user id so the plan is stable.
func Simplify(entries []Entry) []Transfer {
	var debtors, creditors []party
	for _, e := range entries {
		c := money.Cents(e.Balance)
		switch {
		case c < 0:
			debtors = append(debtors, party{user: e.User, cents: -c})
		case c > 0:
			creditors = append(creditors, party{user: e.User, cents: c})
		}
	}
	byLargest := func(ps []party) {
		sort.SliceStable(ps, func(i, j int) bool {
			if ps[i].cents != ps[j].cents {
				return ps[i].cents > ps[j].cents
			}
			return ps[i].user < ps[j].user
		})
	}
	byLargest(debtors)
	byLargest(creditors)

	transfers := make([]Transfer, 0, len(debtors)+len(creditors))
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := debtors[i].cents
		if creditors[j].cents < amount {
			amount = creditors[j].cents
		}
		transfers = append(transfers, Transfer{
			From:   debtors[i].user,
			To:     creditors[j].user,
			Amount: money.FromCents(amount),
		})
		debtors[i].cents -= amount
		creditors[j].cents -= amount
		if debtors[i].cents == 0 {
			i++
		}
		if creditors[j].cents == 0 {
			j++
		}
	}
	return transfers
}
