package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/frahmantamala/trip-expense/internal"
	chatDatamodel "github.com/frahmantamala/trip-expense/internal/core/datamodel/chat"
)

type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) Create(ctx context.Context, m *chatDatamodel.Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *ChatRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&chatDatamodel.Message{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return internal.ErrMessageNotFound
	}
	return nil
}

// ListByTrip returns the newest messages first.
func (r *ChatRepository) ListByTrip(ctx context.Context, tripID string, limit int) ([]*chatDatamodel.Message, error) {
	var messages []*chatDatamodel.Message
	err := r.db.WithContext(ctx).
		Where("trip_id = ?", tripID).
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}
