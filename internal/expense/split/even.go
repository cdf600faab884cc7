package split

import (
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/trip-expense/internal/core/money"
)

// EvenStrategy gives every participant amount/n rounded to cents. The contributor's share absorbs
// the rounding remainder so shares always add up to the amount; when the contributor is not
// splitting, the first participant absorbs it. If rounding up would leave the absorber negative,
// the other shares are rounded down instead.
type EvenStrategy struct{}

func (s *EvenStrategy) Type() SplitType {
	return SplitTypeEven
}

func (s *EvenStrategy) Validate(in Input) error {
	return validateCommon(in)
}

func (s *EvenStrategy) Calculate(in Input) ([]Share, error) {
	if err := s.Validate(in); err != nil {
		return nil, err
	}

	total := money.RoundDec(money.Dec(in.Amount))
	n := int64(len(in.Participants))
	each := money.RoundDec(total.Div(decimal.NewFromInt(n)))

	absorber := absorberIndex(in)

	remainder := total.Sub(each.Mul(decimal.NewFromInt(n - 1)))
	if remainder.IsNegative() {
		each = total.Div(decimal.NewFromInt(n)).RoundDown(2)
		remainder = total.Sub(each.Mul(decimal.NewFromInt(n - 1)))
	}

	shares := make([]Share, len(in.Participants))
	for i, p := range in.Participants {
		amount := each
		if i == absorber {
			amount = remainder
		}
		shares[i] = Share{
			MemberID: p,
			Amount:   amount.InexactFloat64(),
			Paid:     p == in.ContributorID,
		}
	}
	return shares, nil
}
