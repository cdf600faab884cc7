// Package split turns one expense amount into per-member shares.
package split

import (
	"fmt"
	"strings"

	"github.com/frahmantamala/trip-expense/internal"
)

type SplitType string

const (
	SplitTypeEven   SplitType = "even"
	SplitTypeManual SplitType = "manual"
)

func ParseSplitType(s string) (SplitType, error) {
	switch SplitType(strings.ToLower(strings.TrimSpace(s))) {
	case SplitTypeEven, "":
		return SplitTypeEven, nil
	case SplitTypeManual:
		return SplitTypeManual, nil
	default:
		return "", internal.NewValidationFieldError("splitType", fmt.Sprintf("unknown split type %q", s), internal.ErrCodeInvalidSplitType)
	}
}

// Input is everything a strategy needs. Participants is ordered and the output keeps that order.
type Input struct {
	Amount        float64
	ContributorID string
	Participants  []string
	ManualAmounts map[string]float64
}

// Share is one computed obligation. Paid is set for the contributor, who fronted the money.
type Share struct {
	MemberID string
	Amount   float64
	Paid     bool
}

type Strategy interface {
	Type() SplitType
	Validate(in Input) error
	Calculate(in Input) ([]Share, error)
}

// Options configures the manual-sum check. Epsilon is in currency units.
type Options struct {
	StrictManualSum bool
	Epsilon         float64
}

func DefaultOptions() Options {
	return Options{StrictManualSum: true, Epsilon: 0.01}
}

type Factory struct {
	opts Options
}

func NewFactory(opts Options) *Factory {
	return &Factory{opts: opts}
}

func (f *Factory) Create(splitType SplitType) (Strategy, error) {
	switch splitType {
	case SplitTypeEven:
		return &EvenStrategy{}, nil
	case SplitTypeManual:
		return &ManualStrategy{Strict: f.opts.StrictManualSum, Epsilon: f.opts.Epsilon}, nil
	default:
		return nil, internal.NewValidationFieldError("splitType", fmt.Sprintf("unknown split type %q", splitType), internal.ErrCodeInvalidSplitType)
	}
}

var (
	ErrNoParticipants       = internal.NewValidationError("at least one participant is required", internal.ErrCodeNoParticipants)
	ErrNonPositiveAmount    = internal.NewValidationError("amount must be greater than zero", internal.ErrCodeInvalidAmount)
	ErrNegativeAmount       = internal.NewValidationError("manual amounts cannot be negative", internal.ErrCodeNegativeShare)
	ErrDuplicateParticipant = internal.NewValidationError("participants must be unique", internal.ErrCodeDuplicateMember)
	ErrMissingManualAmount  = internal.NewValidationError("manual amount required for every participant", internal.ErrCodeMissingManual)
	ErrUnknownManualMember  = internal.NewValidationError("manual amount given for a member outside the split", internal.ErrCodeUnknownMember)
	ErrManualSumMismatch    = internal.NewValidationError("manual amounts must sum to the expense amount", internal.ErrCodeManualSumMismatch)
)

func validateCommon(in Input) error {
	if in.Amount <= 0 {
		return ErrNonPositiveAmount
	}
	if len(in.Participants) == 0 {
		return ErrNoParticipants
	}
	seen := make(map[string]struct{}, len(in.Participants))
	for _, p := range in.Participants {
		if p == "" {
			return ErrNoParticipants
		}
		if _, dup := seen[p]; dup {
			return ErrDuplicateParticipant.WithDetails(map[string]string{"memberId": p})
		}
		seen[p] = struct{}{}
	}
	return nil
}
