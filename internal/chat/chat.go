package chat

import (
	"fmt"
	"strings"
	"time"

	chatDatamodel "github.com/frahmantamala/trip-expense/internal/core/datamodel/chat"
)

const KindSystem = "system"

type Message struct {
	ID        string    `json:"id"`
	TripID    string    `json:"tripId"`
	AuthorID  string    `json:"authorId,omitempty"`
	Kind      string    `json:"kind"`
	Body      string    `json:"body"`
	ExpenseID *string   `json:"expenseId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ExpenseNotice is what the expense engine hands over when it wants a system message posted.
type ExpenseNotice struct {
	ExpenseID     string
	TripID        string
	ContributorID string
	Amount        float64
	Currency      string
	Description   string
}

func (n ExpenseNotice) Body() string {
	desc := strings.TrimSpace(n.Description)
	if desc == "" {
		desc = "an expense"
	}
	return fmt.Sprintf("%s added %s: %.2f %s", n.ContributorID, desc, n.Amount, n.Currency)
}

func ToDataModel(m *Message) *chatDatamodel.Message {
	return &chatDatamodel.Message{
		ID:        m.ID,
		TripID:    m.TripID,
		AuthorID:  m.AuthorID,
		Kind:      m.Kind,
		Body:      m.Body,
		ExpenseID: m.ExpenseID,
		CreatedAt: m.CreatedAt,
	}
}

func FromDataModel(m *chatDatamodel.Message) *Message {
	return &Message{
		ID:        m.ID,
		TripID:    m.TripID,
		AuthorID:  m.AuthorID,
		Kind:      m.Kind,
		Body:      m.Body,
		ExpenseID: m.ExpenseID,
		CreatedAt: m.CreatedAt,
	}
}
