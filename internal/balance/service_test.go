package balance_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/trip-expense/internal"
	"github.com/frahmantamala/trip-expense/internal/balance"
	"github.com/frahmantamala/trip-expense/internal/expense"
	"github.com/frahmantamala/trip-expense/internal/transport"
)

type stubDirectory struct {
	members map[string][]string
}

func (d stubDirectory) Members(_ context.Context, tripID string) ([]string, error) {
	m, ok := d.members[tripID]
	if !ok {
		return nil, internal.ErrTripNotFound
	}
	return m, nil
}

func (d stubDirectory) TripsForUser(_ context.Context, userID string) ([]string, error) {
	var ids []string
	for _, tripID := range []string{"t1", "t2", "t3"} {
		if containsMember(d.members[tripID], userID) {
			ids = append(ids, tripID)
		}
	}
	return ids, nil
}

type stubExpenses struct {
	byTrip map[string][]*expense.Expense
	err    error
}

func (s stubExpenses) TripExpenses(_ context.Context, tripID string) ([]*expense.Expense, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.byTrip[tripID], nil
}

var _ = Describe("Balance Service", func() {
	var (
		service  *balance.Service
		expenses stubExpenses
		ctx      context.Context
		logger   *slog.Logger
	)

	directory := stubDirectory{members: map[string][]string{
		"t1": {"alice", "bob", "carol"},
		"t2": {"alice", "dave"},
		"t3": {"erin"},
	}}

	BeforeEach(func() {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		trip2 := evenExpense("e3", "dave", 100, "EUR", "alice", "dave")
		trip2.TripID = "t2"
		expenses = stubExpenses{byTrip: map[string][]*expense.Expense{
			"t1": {
				evenExpense("e1", "alice", 90, "USD", "alice", "bob", "carol"),
				evenExpense("e2", "bob", 50, "EUR", "bob", "carol"),
			},
			"t2": {trip2},
		}}
		service = balance.NewService(directory, expenses, newConverter(), logger)
		ctx = context.Background()
	})

	Describe("TripBalances", func() {
		It("returns the trip view for a member", func() {
			view, err := service.TripBalances(ctx, "carol", "t1")
			Expect(err).NotTo(HaveOccurred())
			Expect(view.TripID).To(Equal("t1"))
			Expect(view.TotalExpenses).To(Equal(2))
			Expect(view.TotalAmount).To(Equal(144.0))
			Expect(view.Entry("carol").Balance).To(Equal(-57.0))
		})

		It("rejects outsiders and unknown trips", func() {
			_, err := service.TripBalances(ctx, "dave", "t1")
			Expect(err).To(MatchError(internal.ErrNotTripMember))

			_, err = service.TripBalances(ctx, "alice", "nope")
			Expect(err).To(MatchError(internal.ErrTripNotFound))
		})

		It("passes load failures through", func() {
			failing := balance.NewService(directory, stubExpenses{err: internal.NewInternalError("failed to load expenses", errors.New("db down"))}, newConverter(), logger)
			_, err := failing.TripBalances(ctx, "alice", "t1")
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(http.StatusInternalServerError))
		})
	})

	Describe("SettleUp", func() {
		It("suggests the transfers that clear the trip", func() {
			plan, err := service.SettleUp(ctx, "alice", "t1")
			Expect(err).NotTo(HaveOccurred())
			Expect(plan.ReferenceCurrency).To(Equal("USD"))
			Expect(plan.Transfers).To(Equal([]balance.Transfer{
				{From: "carol", To: "alice", Amount: 57},
				{From: "bob", To: "alice", Amount: 3},
			}))
		})
	})

	Describe("MemberBalances", func() {
		It("sums the actor's position over every trip", func() {
			view, err := service.MemberBalances(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(view.User).To(Equal("alice"))
			Expect(view.Trips).To(Equal([]balance.TripPosition{
				{TripID: "t1", Paid: 90, Owes: 30, Balance: 60},
				{TripID: "t2", Paid: 0, Owes: 54, Balance: -54},
			}))
			Expect(view.Paid).To(Equal(90.0))
			Expect(view.Owes).To(Equal(84.0))
			Expect(view.Balance).To(Equal(6.0))
		})

		It("returns zeros for a user on a trip with no expenses", func() {
			view, err := service.MemberBalances(ctx, "erin")
			Expect(err).NotTo(HaveOccurred())
			Expect(view.Trips).To(Equal([]balance.TripPosition{{TripID: "t3"}}))
			Expect(view.Balance).To(BeZero())
		})

		It("returns an empty list for a user without trips", func() {
			view, err := service.MemberBalances(ctx, "nobody")
			Expect(err).NotTo(HaveOccurred())
			Expect(view.Trips).To(BeEmpty())
		})
	})

	Describe("Handler", func() {
		var router chi.Router

		BeforeEach(func() {
			handler := balance.NewHandler(transport.NewBaseHandler(logger), service)
			router = chi.NewRouter()
			router.Get("/trips/{tripId}/balances", handler.TripBalances)
			router.Get("/trips/{tripId}/balances/settle-up", handler.SettleUp)
			router.Get("/users/me/balances", handler.MemberBalances)
		})

		get := func(path, actor string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			if actor != "" {
				req = req.WithContext(internal.ContextWithActor(req.Context(), actor))
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			return rec
		}

		It("serves trip balances in the documented shape", func() {
			rec := get("/trips/t1/balances", "bob")
			Expect(rec.Code).To(Equal(http.StatusOK))

			var body struct {
				Balances []struct {
					User    string  `json:"user"`
					Paid    float64 `json:"paid"`
					Owes    float64 `json:"owes"`
					Balance float64 `json:"balance"`
				} `json:"balances"`
				TotalExpenses int     `json:"totalExpenses"`
				TotalAmount   float64 `json:"totalAmount"`
			}
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
			Expect(body.Balances).To(HaveLen(3))
			Expect(body.Balances[1].User).To(Equal("bob"))
			Expect(body.Balances[1].Balance).To(Equal(-3.0))
			Expect(body.TotalExpenses).To(Equal(2))
			Expect(body.TotalAmount).To(Equal(144.0))
		})

		It("serves settle-up and member balances", func() {
			Expect(get("/trips/t1/balances/settle-up", "alice").Code).To(Equal(http.StatusOK))
			Expect(get("/users/me/balances", "alice").Code).To(Equal(http.StatusOK))
		})

		It("maps errors to status codes", func() {
			Expect(get("/trips/t1/balances", "").Code).To(Equal(http.StatusUnauthorized))
			Expect(get("/trips/t1/balances", "dave").Code).To(Equal(http.StatusForbidden))
			Expect(get("/trips/nope/balances", "alice").Code).To(Equal(http.StatusNotFound))
		})
	})
})
