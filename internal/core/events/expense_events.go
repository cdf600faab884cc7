package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeExpenseCreated = "expense.created"
	EventTypeSharePaid      = "expense.share_paid"
	EventTypeExpenseDeleted = "expense.deleted"
)

// AllExpenseEventTypes is what relays subscribe to.
var AllExpenseEventTypes = []string{
	EventTypeExpenseCreated,
	EventTypeSharePaid,
	EventTypeExpenseDeleted,
}

type ExpenseCreatedEvent struct {
	BaseEvent
	ExpenseID     string  `json:"expense_id"`
	TripID        string  `json:"trip_id"`
	ContributorID string  `json:"contributor_id"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	Description   string  `json:"description"`
}

func NewExpenseCreatedEvent(expenseID, tripID, contributorID string, amount float64, currency, description string) *ExpenseCreatedEvent {
	return &ExpenseCreatedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeExpenseCreated,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"expense_id":     expenseID,
				"trip_id":        tripID,
				"contributor_id": contributorID,
				"amount":         amount,
				"currency":       currency,
				"description":    description,
			},
		},
		ExpenseID:     expenseID,
		TripID:        tripID,
		ContributorID: contributorID,
		Amount:        amount,
		Currency:      currency,
		Description:   description,
	}
}

type SharePaidEvent struct {
	BaseEvent
	ExpenseID        string  `json:"expense_id"`
	TripID           string  `json:"trip_id"`
	MemberID         string  `json:"member_id"`
	MarkedBy         string  `json:"marked_by"`
	Amount           float64 `json:"amount"`
	Currency         string  `json:"currency"`
	SettlementStatus string  `json:"settlement_status"`
}

func NewSharePaidEvent(expenseID, tripID, memberID, markedBy string, amount float64, currency, settlementStatus string) *SharePaidEvent {
	return &SharePaidEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeSharePaid,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"expense_id":        expenseID,
				"trip_id":           tripID,
				"member_id":         memberID,
				"marked_by":         markedBy,
				"amount":            amount,
				"currency":          currency,
				"settlement_status": settlementStatus,
			},
		},
		ExpenseID:        expenseID,
		TripID:           tripID,
		MemberID:         memberID,
		MarkedBy:         markedBy,
		Amount:           amount,
		Currency:         currency,
		SettlementStatus: settlementStatus,
	}
}

type ExpenseDeletedEvent struct {
	BaseEvent
	ExpenseID string `json:"expense_id"`
	TripID    string `json:"trip_id"`
	DeletedBy string `json:"deleted_by"`
}

func NewExpenseDeletedEvent(expenseID, tripID, deletedBy string) *ExpenseDeletedEvent {
	return &ExpenseDeletedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeExpenseDeleted,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"expense_id": expenseID,
				"trip_id":    tripID,
				"deleted_by": deletedBy,
			},
		},
		ExpenseID: expenseID,
		TripID:    tripID,
		DeletedBy: deletedBy,
	}
}
