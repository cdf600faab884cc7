package expense

import (
	"sort"
	"time"

	expenseDatamodel "github.com/frahmantamala/trip-expense/internal/core/datamodel/expense"
	"github.com/frahmantamala/trip-expense/internal/expense/split"
	"github.com/frahmantamala/trip-expense/internal/settlement"
)

type ShareState string

const (
	ShareStatePending ShareState = expenseDatamodel.ShareStatePending
	ShareStatePaid    ShareState = expenseDatamodel.ShareStatePaid
)

const DefaultCategory = "other"

// Share is one member's portion of an expense. Once paid, PaidAt never changes.
type Share struct {
	MemberID string     `json:"memberId"`
	Amount   float64    `json:"amount"`
	State    ShareState `json:"state"`
	PaidAt   *time.Time `json:"paidAt,omitempty"`
}

func (s Share) IsPaid() bool {
	return s.State == ShareStatePaid
}

type Expense struct {
	ID               string            `json:"id"`
	TripID           string            `json:"tripId"`
	ContributorID    string            `json:"contributorId"`
	Amount           float64           `json:"amount"`
	Currency         string            `json:"currency"`
	Description      string            `json:"description"`
	Category         string            `json:"category"`
	SplitType        split.SplitType   `json:"splitType"`
	Date             time.Time         `json:"date"`
	Shares           []Share           `json:"shares"`
	Status           settlement.Status `json:"status"`
	SettlementStatus settlement.Status `json:"settlementStatus"`
	ChatMessageID    *string           `json:"chatMessageId,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// Lines is the resolver's view of the shares.
func (e *Expense) Lines() []settlement.Line {
	lines := make([]settlement.Line, len(e.Shares))
	for i, s := range e.Shares {
		lines[i] = settlement.Line{
			ExpenseID: e.ID,
			MemberID:  s.MemberID,
			Amount:    s.Amount,
			Currency:  e.Currency,
			Paid:      s.IsPaid(),
			PaidAt:    s.PaidAt,
		}
	}
	return lines
}

// Refresh recomputes both status fields from the shares.
func (e *Expense) Refresh() {
	e.SettlementStatus = settlement.Resolve(e.Amount, e.Lines())
	e.Status = e.SettlementStatus.Coarse()
}

func (e *Expense) ShareOf(memberID string) (*Share, bool) {
	for i := range e.Shares {
		if e.Shares[i].MemberID == memberID {
			return &e.Shares[i], true
		}
	}
	return nil, false
}

func (e *Expense) HasMember(memberID string) bool {
	_, ok := e.ShareOf(memberID)
	return ok
}

func (e *Expense) IsContributor(userID string) bool {
	return e.ContributorID == userID
}

// ResolveStatus is handed to the repository so the status cache is written inside the same
// transaction as the share update.
func ResolveStatus(data *expenseDatamodel.Expense) (status, settlementStatus string) {
	exp := FromDataModel(data)
	exp.Refresh()
	return string(exp.Status), string(exp.SettlementStatus)
}

func ToDataModel(e *Expense) *expenseDatamodel.Expense {
	shares := make([]expenseDatamodel.Share, len(e.Shares))
	for i, s := range e.Shares {
		shares[i] = expenseDatamodel.Share{
			ExpenseID: e.ID,
			MemberID:  s.MemberID,
			Position:  i,
			Amount:    s.Amount,
			State:     string(s.State),
			PaidAt:    s.PaidAt,
		}
	}
	return &expenseDatamodel.Expense{
		ID:               e.ID,
		TripID:           e.TripID,
		ContributorID:    e.ContributorID,
		Amount:           e.Amount,
		Currency:         e.Currency,
		Description:      e.Description,
		Category:         e.Category,
		SplitType:        string(e.SplitType),
		Status:           string(e.Status),
		SettlementStatus: string(e.SettlementStatus),
		ExpenseDate:      e.Date,
		ChatMessageID:    e.ChatMessageID,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
		Shares:           shares,
	}
}

func FromDataModel(d *expenseDatamodel.Expense) *Expense {
	ordered := make([]expenseDatamodel.Share, len(d.Shares))
	copy(ordered, d.Shares)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Position < ordered[j].Position })

	shares := make([]Share, len(ordered))
	for i, s := range ordered {
		shares[i] = Share{
			MemberID: s.MemberID,
			Amount:   s.Amount,
			State:    ShareState(s.State),
			PaidAt:   s.PaidAt,
		}
	}
	return &Expense{
		ID:               d.ID,
		TripID:           d.TripID,
		ContributorID:    d.ContributorID,
		Amount:           d.Amount,
		Currency:         d.Currency,
		Description:      d.Description,
		Category:         d.Category,
		SplitType:        split.SplitType(d.SplitType),
		Date:             d.ExpenseDate,
		Shares:           shares,
		Status:           settlement.Status(d.Status),
		SettlementStatus: settlement.Status(d.SettlementStatus),
		ChatMessageID:    d.ChatMessageID,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}
