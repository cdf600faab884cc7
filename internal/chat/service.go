package chat

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/frahmantamala/trip-expense/internal"
	chatDatamodel "github.com/frahmantamala/trip-expense/internal/core/datamodel/chat"
)

type RepositoryAPI interface {
	Create(ctx context.Context, m *chatDatamodel.Message) error
	Delete(ctx context.Context, id string) error
	ListByTrip(ctx context.Context, tripID string, limit int) ([]*chatDatamodel.Message, error)
}

type MembershipChecker interface {
	IsMember(ctx context.Context, tripID, userID string) (bool, error)
}

type Service struct {
	repo   RepositoryAPI
	trips  MembershipChecker
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, trips MembershipChecker, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		trips:  trips,
		logger: logger,
	}
}

// PostExpenseMessage appends the system message announcing a new expense and returns its id.
func (s *Service) PostExpenseMessage(ctx context.Context, notice ExpenseNotice) (string, error) {
	expenseID := notice.ExpenseID
	msg := &Message{
		ID:        uuid.NewString(),
		TripID:    notice.TripID,
		Kind:      KindSystem,
		Body:      notice.Body(),
		ExpenseID: &expenseID,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, ToDataModel(msg)); err != nil {
		return "", internal.NewInternalError("failed to post chat message", err)
	}

	s.logger.Debug("system message posted", "message_id", msg.ID, "trip_id", msg.TripID, "expense_id", expenseID)
	return msg.ID, nil
}

func (s *Service) DeleteMessage(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if _, ok := internal.IsAppError(err); ok {
			return err
		}
		return internal.NewInternalError("failed to delete chat message", err)
	}
	return nil
}

func (s *Service) ListTripMessages(ctx context.Context, actorID, tripID string, limit int) ([]*Message, error) {
	ok, err := s.trips.IsMember(ctx, tripID, actorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, internal.ErrNotTripMember
	}

	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.repo.ListByTrip(ctx, tripID, limit)
	if err != nil {
		s.logger.Error("failed to list chat messages", "error", err, "trip_id", tripID)
		return nil, internal.NewInternalError("failed to list messages", err)
	}

	messages := make([]*Message, len(rows))
	for i, row := range rows {
		messages[i] = FromDataModel(row)
	}
	return messages, nil
}
