package balance

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/frahmantamala/trip-expense/internal"
	"github.com/frahmantamala/trip-expense/internal/core/money"
	"github.com/frahmantamala/trip-expense/internal/currency"
	"github.com/frahmantamala/trip-expense/internal/expense"
)

const defaultFanOut = 4

type TripDirectory interface {
	Members(ctx context.Context, tripID string) ([]string, error)
	TripsForUser(ctx context.Context, userID string) ([]string, error)
}

type ExpenseSource interface {
	TripExpenses(ctx context.Context, tripID string) ([]*expense.Expense, error)
}

type Service struct {
	trips     TripDirectory
	expenses  ExpenseSource
	converter *currency.Converter
	logger    *slog.Logger
	fanOut    int
}

func NewService(trips TripDirectory, expenses ExpenseSource, converter *currency.Converter, logger *slog.Logger) *Service {
	return &Service{
		trips:     trips,
		expenses:  expenses,
		converter: converter,
		logger:    logger,
		fanOut:    defaultFanOut,
	}
}

type TripView struct {
	TripID string `json:"tripId"`
	View
}

type SettleUpPlan struct {
	TripID            string     `json:"tripId"`
	ReferenceCurrency string     `json:"referenceCurrency"`
	Transfers         []Transfer `json:"transfers"`
}

type TripPosition struct {
	TripID  string  `json:"tripId"`
	Paid    float64 `json:"paid"`
	Owes    float64 `json:"owes"`
	Balance float64 `json:"balance"`
}

// MemberView is one user's position across every trip they belong to.
type MemberView struct {
	User              string         `json:"user"`
	Paid              float64        `json:"paid"`
	Owes              float64        `json:"owes"`
	Balance           float64        `json:"balance"`
	ReferenceCurrency string         `json:"referenceCurrency"`
	Trips             []TripPosition `json:"trips"`
}

func (s *Service) TripBalances(ctx context.Context, actorID, tripID string) (*TripView, error) {
	view, err := s.load(ctx, actorID, tripID)
	if err != nil {
		return nil, err
	}
	return &TripView{TripID: tripID, View: view}, nil
}

func (s *Service) SettleUp(ctx context.Context, actorID, tripID string) (*SettleUpPlan, error) {
	view, err := s.load(ctx, actorID, tripID)
	if err != nil {
		return nil, err
	}
	return &SettleUpPlan{
		TripID:            tripID,
		ReferenceCurrency: view.ReferenceCurrency,
		Transfers:         Simplify(view.Balances),
	}, nil
}

// MemberBalances aggregates each of the actor's trips separately, loading them concurrently, then
// sums the actor's positions.
func (s *Service) MemberBalances(ctx context.Context, actorID string) (*MemberView, error) {
	tripIDs, err := s.trips.TripsForUser(ctx, actorID)
	if err != nil {
		return nil, err
	}

	positions := make([]TripPosition, len(tripIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fanOut)
	for i, tripID := range tripIDs {
		g.Go(func() error {
			view, err := s.load(gctx, actorID, tripID)
			if err != nil {
				return err
			}
			e := view.Entry(actorID)
			positions[i] = TripPosition{TripID: tripID, Paid: e.Paid, Owes: e.Owes, Balance: e.Balance}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if _, ok := internal.IsAppError(err); ok {
			return nil, err
		}
		s.logger.Error("failed to load member balances", "error", err, "user_id", actorID)
		return nil, internal.NewInternalError("failed to load balances", err)
	}

	paid, owes := decimal.Zero, decimal.Zero
	for _, p := range positions {
		paid = paid.Add(money.Dec(p.Paid))
		owes = owes.Add(money.Dec(p.Owes))
	}
	return &MemberView{
		User:              actorID,
		Paid:              money.Float(paid),
		Owes:              money.Float(owes),
		Balance:           money.Float(paid.Sub(owes)),
		ReferenceCurrency: s.converter.Reference(),
		Trips:             positions,
	}, nil
}

func (s *Service) load(ctx context.Context, actorID, tripID string) (View, error) {
	members, err := s.trips.Members(ctx, tripID)
	if err != nil {
		return View{}, err
	}
	if !contains(members, actorID) {
		return View{}, internal.ErrNotTripMember
	}
	expenses, err := s.expenses.TripExpenses(ctx, tripID)
	if err != nil {
		return View{}, err
	}
	return Aggregate(expenses, members, s.converter), nil
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
