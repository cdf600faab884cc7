package trip

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/frahmantamala/trip-expense/internal"
	tripDatamodel "github.com/frahmantamala/trip-expense/internal/core/datamodel/trip"
)

type RepositoryAPI interface {
	Create(ctx context.Context, t *tripDatamodel.Trip, members []tripDatamodel.Member) error
	GetByID(ctx context.Context, id string) (*tripDatamodel.Trip, error)
	ListMembers(ctx context.Context, tripID string) ([]tripDatamodel.Member, error)
	AddMember(ctx context.Context, m tripDatamodel.Member) error
	IsMember(ctx context.Context, tripID, userID string) (bool, error)
	ListTripIDsForUser(ctx context.Context, userID string) ([]string, error)
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// CreateTrip makes the actor the owner and first member.
func (s *Service) CreateTrip(ctx context.Context, actorID string, dto CreateTripDTO) (*Trip, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	t := &Trip{
		ID:        uuid.NewString(),
		Name:      dto.Name,
		OwnerID:   actorID,
		CreatedAt: now,
		Members:   []Member{{UserID: actorID, JoinedAt: now}},
	}
	seen := map[string]bool{actorID: true}
	for i, userID := range dto.Members {
		if seen[userID] {
			continue
		}
		seen[userID] = true
		// keep the listed order stable when members are read back by join time
		t.Members = append(t.Members, Member{UserID: userID, JoinedAt: now.Add(time.Duration(i+1) * time.Microsecond)})
	}

	data, members := ToDataModel(t)
	if err := s.repo.Create(ctx, data, members); err != nil {
		s.logger.Error("failed to create trip", "error", err, "owner_id", actorID)
		return nil, internal.NewInternalError("failed to create trip", err)
	}

	s.logger.Info("trip created", "trip_id", t.ID, "owner_id", actorID, "members", len(t.Members))
	return t, nil
}

func (s *Service) GetTrip(ctx context.Context, actorID, tripID string) (*Trip, error) {
	t, err := s.load(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if !t.HasMember(actorID) {
		return nil, internal.ErrNotTripMember
	}
	return t, nil
}

func (s *Service) AddMember(ctx context.Context, actorID, tripID string, dto AddMemberDTO) (*Trip, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	t, err := s.load(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if !t.IsOwner(actorID) {
		return nil, internal.ErrNotTripOwner
	}
	if t.HasMember(dto.UserID) {
		return nil, internal.ErrMemberAlreadyJoined
	}

	m := tripDatamodel.Member{TripID: tripID, UserID: dto.UserID, JoinedAt: time.Now().UTC()}
	if err := s.repo.AddMember(ctx, m); err != nil {
		s.logger.Error("failed to add trip member", "error", err, "trip_id", tripID, "user_id", dto.UserID)
		return nil, internal.NewInternalError("failed to add member", err)
	}
	t.Members = append(t.Members, Member{UserID: m.UserID, JoinedAt: m.JoinedAt})

	s.logger.Info("trip member added", "trip_id", tripID, "user_id", dto.UserID, "added_by", actorID)
	return t, nil
}

// Members is the membership lookup the expense engine depends on.
func (s *Service) Members(ctx context.Context, tripID string) ([]string, error) {
	t, err := s.load(ctx, tripID)
	if err != nil {
		return nil, err
	}
	return t.MemberIDs(), nil
}

func (s *Service) IsMember(ctx context.Context, tripID, userID string) (bool, error) {
	if _, err := s.repo.GetByID(ctx, tripID); err != nil {
		return false, err
	}
	ok, err := s.repo.IsMember(ctx, tripID, userID)
	if err != nil {
		return false, internal.NewInternalError("failed to check membership", err)
	}
	return ok, nil
}

func (s *Service) TripsForUser(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.repo.ListTripIDsForUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list trips for user", "error", err, "user_id", userID)
		return nil, internal.NewInternalError("failed to list trips", err)
	}
	return ids, nil
}

func (s *Service) load(ctx context.Context, tripID string) (*Trip, error) {
	data, err := s.repo.GetByID(ctx, tripID)
	if err != nil {
		if _, ok := internal.IsAppError(err); ok {
			return nil, err
		}
		return nil, internal.NewInternalError("failed to load trip", err)
	}
	members, err := s.repo.ListMembers(ctx, tripID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load trip members", err)
	}
	return FromDataModel(data, members), nil
}
