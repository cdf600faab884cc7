package expense

import "time"

type Expense struct {
	ID               string    `gorm:"primaryKey;type:varchar(36)"`
	TripID           string    `gorm:"column:trip_id;type:varchar(36);not null;index"`
	ContributorID    string    `gorm:"column:contributor_id;type:varchar(64);not null;index"`
	Amount           float64   `gorm:"column:amount;type:numeric(14,2);not null"`
	Currency         string    `gorm:"column:currency;type:varchar(8);not null"`
	Description      string    `gorm:"column:description;not null"`
	Category         string    `gorm:"column:category"`
	SplitType        string    `gorm:"column:split_type;type:varchar(16);not null"`
	Status           string    `gorm:"column:status;type:varchar(16);not null"`
	SettlementStatus string    `gorm:"column:settlement_status;type:varchar(16);not null"`
	ExpenseDate      time.Time `gorm:"column:expense_date"`
	ChatMessageID    *string   `gorm:"column:chat_message_id;type:varchar(36)"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
	Shares           []Share   `gorm:"foreignKey:ExpenseID;references:ID;constraint:OnDelete:CASCADE"`
}

func (Expense) TableName() string {
	return "expenses"
}

type Share struct {
	ID        int64      `gorm:"primaryKey;autoIncrement"`
	ExpenseID string     `gorm:"column:expense_id;type:varchar(36);not null;uniqueIndex:idx_expense_shares_member"`
	MemberID  string     `gorm:"column:member_id;type:varchar(64);not null;uniqueIndex:idx_expense_shares_member;index"`
	Position  int        `gorm:"column:position;not null"`
	Amount    float64    `gorm:"column:amount;type:numeric(14,2);not null"`
	State     string     `gorm:"column:state;type:varchar(16);not null"`
	PaidAt    *time.Time `gorm:"column:paid_at"`
}

func (Share) TableName() string {
	return "expense_shares"
}

const (
	ShareStatePending = "pending"
	ShareStatePaid    = "paid"
)
