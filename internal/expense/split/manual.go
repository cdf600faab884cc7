package split

import (
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/trip-expense/internal/core/money"
)

// ManualStrategy takes caller-supplied amounts. With Strict set the amounts must add up to the
// expense amount within Epsilon.
type ManualStrategy struct {
	Strict  bool
	Epsilon float64
}

func (s *ManualStrategy) Type() SplitType {
	return SplitTypeManual
}

func (s *ManualStrategy) Validate(in Input) error {
	if err := validateCommon(in); err != nil {
		return err
	}

	inSplit := make(map[string]struct{}, len(in.Participants))
	for _, p := range in.Participants {
		inSplit[p] = struct{}{}
		v, ok := in.ManualAmounts[p]
		if !ok {
			return ErrMissingManualAmount.WithDetails(map[string]string{"memberId": p})
		}
		if v < 0 {
			return ErrNegativeAmount.WithDetails(map[string]string{"memberId": p})
		}
	}
	for memberID := range in.ManualAmounts {
		if _, ok := inSplit[memberID]; !ok {
			return ErrUnknownManualMember.WithDetails(map[string]string{"memberId": memberID})
		}
	}

	if s.Strict {
		sum := decimal.Zero
		for _, p := range in.Participants {
			sum = sum.Add(money.RoundDec(money.Dec(in.ManualAmounts[p])))
		}
		diff := sum.Sub(money.RoundDec(money.Dec(in.Amount))).Abs()
		if diff.GreaterThan(money.Dec(s.Epsilon)) {
			return ErrManualSumMismatch.WithDetails(map[string]float64{
				"amount": in.Amount,
				"sum":    sum.InexactFloat64(),
			})
		}
	}
	return nil
}

func (s *ManualStrategy) Calculate(in Input) ([]Share, error) {
	if err := s.Validate(in); err != nil {
		return nil, err
	}

	amounts := make([]decimal.Decimal, len(in.Participants))
	sum := decimal.Zero
	for i, p := range in.Participants {
		amounts[i] = money.RoundDec(money.Dec(in.ManualAmounts[p]))
		sum = sum.Add(amounts[i])
	}

	if s.Strict {
		// the accepted difference goes to one share so the shares add up to the amount exactly
		if diff := money.RoundDec(money.Dec(in.Amount)).Sub(sum); !diff.IsZero() {
			i := absorberIndex(in)
			if amounts[i].Add(diff).IsNegative() {
				i = largestIndex(amounts)
			}
			amounts[i] = amounts[i].Add(diff)
		}
	}

	shares := make([]Share, len(in.Participants))
	for i, p := range in.Participants {
		shares[i] = Share{
			MemberID: p,
			Amount:   amounts[i].InexactFloat64(),
			Paid:     p == in.ContributorID,
		}
	}
	return shares, nil
}

func absorberIndex(in Input) int {
	for i, p := range in.Participants {
		if p == in.ContributorID {
			return i
		}
	}
	return 0
}

func largestIndex(amounts []decimal.Decimal) int {
	best := 0
	for i, a := range amounts {
		if a.GreaterThan(amounts[best]) {
			best = i
		}
	}
	return best
}
