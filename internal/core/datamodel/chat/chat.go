package chat

import "time"

type Message struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"`
	TripID    string    `gorm:"column:trip_id;type:varchar(36);not null;index"`
	AuthorID  string    `gorm:"column:author_id;type:varchar(64)"`
	Kind      string    `gorm:"column:kind;type:varchar(16);not null"`
	Body      string    `gorm:"column:body;not null"`
	ExpenseID *string   `gorm:"column:expense_id;type:varchar(36);index"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Message) TableName() string {
	return "chat_messages"
}
