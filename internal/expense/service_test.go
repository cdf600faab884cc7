package expense_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/trip-expense/internal"
	"github.com/frahmantamala/trip-expense/internal/chat"
	expenseDatamodel "github.com/frahmantamala/trip-expense/internal/core/datamodel/expense"
	"github.com/frahmantamala/trip-expense/internal/core/events"
	"github.com/frahmantamala/trip-expense/internal/currency"
	"github.com/frahmantamala/trip-expense/internal/expense"
	"github.com/frahmantamala/trip-expense/internal/expense/split"
	"github.com/frahmantamala/trip-expense/internal/settlement"
)

func TestExpense(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Expense Service Suite")
}

// mockExpenseRepository keeps expenses in memory and applies the same pending->paid swap as the
// database repository.
type mockExpenseRepository struct {
	mu        sync.Mutex
	expenses  map[string]*expenseDatamodel.Expense
	order     []string
	createErr error
	linkErr   error
	finds     int
}

func newMockExpenseRepository() *mockExpenseRepository {
	return &mockExpenseRepository{expenses: make(map[string]*expenseDatamodel.Expense)}
}

func clone(e *expenseDatamodel.Expense) *expenseDatamodel.Expense {
	cp := *e
	cp.Shares = make([]expenseDatamodel.Share, len(e.Shares))
	copy(cp.Shares, e.Shares)
	return &cp
}

func (m *mockExpenseRepository) Create(_ context.Context, exp *expenseDatamodel.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.expenses[exp.ID] = clone(exp)
	m.order = append(m.order, exp.ID)
	return nil
}

func (m *mockExpenseRepository) GetByID(_ context.Context, id string) (*expenseDatamodel.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.expenses[id]
	if !ok {
		return nil, internal.ErrExpenseNotFound
	}
	return clone(exp), nil
}

func (m *mockExpenseRepository) matching(f expense.ListFilter) []*expenseDatamodel.Expense {
	out := []*expenseDatamodel.Expense{}
	for _, id := range m.order {
		exp, ok := m.expenses[id]
		if !ok || exp.TripID != f.TripID {
			continue
		}
		if f.Category != "" && exp.Category != f.Category {
			continue
		}
		if f.Currency != "" && exp.Currency != f.Currency {
			continue
		}
		if f.ContributorID != "" && exp.ContributorID != f.ContributorID {
			continue
		}
		if f.Status != "" && exp.SettlementStatus != f.Status {
			continue
		}
		if f.MemberID != "" {
			found := false
			for _, s := range exp.Shares {
				found = found || s.MemberID == f.MemberID
			}
			if !found {
				continue
			}
		}
		out = append(out, clone(exp))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ExpenseDate.After(out[j].ExpenseDate) })
	return out
}

func (m *mockExpenseRepository) Find(_ context.Context, f expense.ListFilter) ([]*expenseDatamodel.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finds++
	rows := m.matching(f)
	if f.Limit > 0 {
		if f.Offset >= len(rows) {
			return []*expenseDatamodel.Expense{}, nil
		}
		end := f.Offset + f.Limit
		if end > len(rows) {
			end = len(rows)
		}
		rows = rows[f.Offset:end]
	}
	return rows, nil
}

func (m *mockExpenseRepository) MarkSharePaid(_ context.Context, expenseID, memberID string, paidAt time.Time, resolve expense.StatusFunc) (*expenseDatamodel.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.expenses[expenseID]
	if !ok {
		return nil, internal.ErrExpenseNotFound
	}
	for i := range exp.Shares {
		if exp.Shares[i].MemberID != memberID {
			continue
		}
		if exp.Shares[i].State != expenseDatamodel.ShareStatePending {
			return nil, internal.ErrShareAlreadyPaid
		}
		at := paidAt
		exp.Shares[i].State = expenseDatamodel.ShareStatePaid
		exp.Shares[i].PaidAt = &at
		exp.Status, exp.SettlementStatus = resolve(exp)
		return clone(exp), nil
	}
	return nil, internal.ErrShareNotFound
}

func (m *mockExpenseRepository) SetChatMessageID(_ context.Context, expenseID, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.linkErr != nil {
		return m.linkErr
	}
	exp, ok := m.expenses[expenseID]
	if !ok {
		return internal.ErrExpenseNotFound
	}
	exp.ChatMessageID = &messageID
	return nil
}

func (m *mockExpenseRepository) UpdateContent(_ context.Context, expenseID string, update expense.ContentUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.expenses[expenseID]
	if !ok {
		return internal.ErrExpenseNotFound
	}
	if update.Description != nil {
		exp.Description = *update.Description
	}
	if update.Category != nil {
		exp.Category = *update.Category
	}
	if update.Date != nil {
		exp.ExpenseDate = *update.Date
	}
	return nil
}

func (m *mockExpenseRepository) Delete(_ context.Context, expenseID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.expenses[expenseID]; !ok {
		return internal.ErrExpenseNotFound
	}
	delete(m.expenses, expenseID)
	return nil
}

type stubTrips map[string][]string

func (s stubTrips) Members(_ context.Context, tripID string) ([]string, error) {
	members, ok := s[tripID]
	if !ok {
		return nil, internal.ErrTripNotFound
	}
	return members, nil
}

type fakeChat struct {
	mu       sync.Mutex
	posted   map[string]chat.ExpenseNotice
	deleted  []string
	postErr  error
	sequence int
}

func newFakeChat() *fakeChat {
	return &fakeChat{posted: map[string]chat.ExpenseNotice{}}
}

func (f *fakeChat) PostExpenseMessage(_ context.Context, notice chat.ExpenseNotice) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.postErr != nil {
		return "", f.postErr
	}
	f.sequence++
	id := fmt.Sprintf("msg-%d", f.sequence)
	f.posted[id] = notice
	return id, nil
}

func (f *fakeChat) DeleteMessage(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

type countingRecorder struct {
	created, paid, conflicts, chatFailures int
}

func (c *countingRecorder) ExpenseCreated(string) { c.created++ }
func (c *countingRecorder) SharePaid()            { c.paid++ }
func (c *countingRecorder) ShareConflict()        { c.conflicts++ }
func (c *countingRecorder) ChatMessageFailed()    { c.chatFailures++ }

func newConverter() *currency.Converter {
	table, err := currency.NewRateTable("USD", map[string]float64{"USD": 1, "EUR": 1.08})
	Expect(err).NotTo(HaveOccurred())
	return currency.NewConverter(table)
}

var _ = Describe("Expense Service", func() {
	var (
		repo      *mockExpenseRepository
		chatSink  *fakeChat
		publisher *recordingPublisher
		metrics   *countingRecorder
		service   *expense.Service
		ctx       context.Context
		clock     time.Time
	)

	BeforeEach(func() {
		repo = newMockExpenseRepository()
		chatSink = newFakeChat()
		publisher = &recordingPublisher{}
		metrics = &countingRecorder{}
		clock = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		service = expense.NewService(
			repo,
			stubTrips{"t1": {"alice", "bob", "carol"}, "t2": {"dave"}},
			chatSink,
			publisher,
			newConverter(),
			split.NewFactory(split.DefaultOptions()),
			logger,
		).WithMetrics(metrics).WithClock(func() time.Time { return clock })
		ctx = context.Background()
	})

	create := func(actor string, dto expense.CreateExpenseDTO) *expense.CreateResult {
		result, err := service.CreateExpense(ctx, actor, "t1", dto)
		Expect(err).NotTo(HaveOccurred())
		return result
	}

	Describe("the $90 dinner", func() {
		It("moves from auto-paid contributor to partial to settled", func() {
			result := create("alice", expense.CreateExpenseDTO{Amount: 90, Currency: "usd", Description: "Dinner"})
			exp := result.Expense
			Expect(result.Warnings).To(BeEmpty())
			Expect(exp.Currency).To(Equal("USD"))
			Expect(exp.Category).To(Equal(expense.DefaultCategory))
			Expect(exp.Shares).To(HaveLen(3))
			Expect(exp.Shares[0].MemberID).To(Equal("alice"))
			Expect(exp.Shares[0].State).To(Equal(expense.ShareStatePaid))
			Expect(exp.Shares[0].PaidAt).NotTo(BeNil())
			Expect(exp.Shares[1].Amount).To(Equal(30.0))
			Expect(exp.Shares[1].State).To(Equal(expense.ShareStatePending))
			Expect(exp.SettlementStatus).To(Equal(settlement.StatusPartial))
			Expect(exp.Status).To(Equal(settlement.StatusPending))

			_, err := service.MarkSharePaid(ctx, "bob", exp.ID, "bob")
			Expect(err).NotTo(HaveOccurred())

			detail, err := service.GetSettlementDetail(ctx, "carol", exp.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(detail.Settlements.SettlementStatus).To(Equal(settlement.StatusPartial))
			Expect(detail.Settlements.Status).To(Equal(settlement.StatusPending))
			Expect(detail.Settlements.TotalPaid).To(Equal(60.0))
			Expect(detail.Settlements.TotalPending).To(Equal(30.0))
			Expect(detail.Settlements.TotalAmount).To(Equal(90.0))
			Expect(detail.Settlements.Pending).To(HaveLen(1))
			Expect(detail.Settlements.Pending[0].MemberID).To(Equal("carol"))

			updated, err := service.MarkSharePaid(ctx, "alice", exp.ID, "carol")
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.SettlementStatus).To(Equal(settlement.StatusSettled))
			Expect(updated.Status).To(Equal(settlement.StatusSettled))

			detail, err = service.GetSettlementDetail(ctx, "bob", exp.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(detail.Settlements.TotalPaid).To(Equal(90.0))
			Expect(detail.Settlements.TotalPending).To(Equal(0.0))
			Expect(detail.Settlements.Pending).To(BeEmpty())

			Expect(metrics.created).To(Equal(1))
			Expect(metrics.paid).To(Equal(2))
			Expect(publisher.types()).To(Equal([]string{
				events.EventTypeExpenseCreated,
				events.EventTypeSharePaid,
				events.EventTypeSharePaid,
			}))
		})
	})

	Describe("CreateExpense", func() {
		It("posts a chat message and links it", func() {
			result := create("alice", expense.CreateExpenseDTO{Amount: 12, Currency: "USD", Description: "Coffee"})
			Expect(result.ChatMessageID).NotTo(BeNil())
			Expect(chatSink.posted).To(HaveKey(*result.ChatMessageID))

			stored, err := repo.GetByID(ctx, result.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(*stored.ChatMessageID).To(Equal(*result.ChatMessageID))
		})

		It("keeps the expense when the chat message fails", func() {
			chatSink.postErr = errors.New("chat down")
			result := create("alice", expense.CreateExpenseDTO{Amount: 12, Currency: "USD", Description: "Coffee"})
			Expect(result.Warnings).To(ConsistOf(expense.WarningChatMessageNotPosted))
			Expect(result.ChatMessageID).To(BeNil())
			Expect(metrics.chatFailures).To(Equal(1))

			stored, err := repo.GetByID(ctx, result.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Amount).To(Equal(12.0))
		})

		It("keeps the expense when linking the message fails", func() {
			repo.linkErr = errors.New("write failed")
			result := create("alice", expense.CreateExpenseDTO{Amount: 12, Currency: "USD", Description: "Coffee"})
			Expect(result.Warnings).To(ConsistOf(expense.WarningChatMessageNotPosted))
			_, err := repo.GetByID(ctx, result.ID)
			Expect(err).NotTo(HaveOccurred())
		})

		It("splits between an explicit subset on behalf of another contributor", func() {
			result := create("alice", expense.CreateExpenseDTO{
				ContributorID: "bob",
				Amount:        100,
				Currency:      "USD",
				Description:   "Taxi",
				SplitBetween:  []string{"alice", "bob", "carol"},
			})
			Expect(result.ContributorID).To(Equal("bob"))
			Expect(result.Shares[0].Amount).To(Equal(33.33))
			Expect(result.Shares[1].Amount).To(Equal(33.34))
			Expect(result.Shares[1].State).To(Equal(expense.ShareStatePaid))
			Expect(result.Shares[2].Amount).To(Equal(33.33))
		})

		It("uses the members named in a manual split, in trip order", func() {
			result := create("bob", expense.CreateExpenseDTO{
				Amount:       50,
				Currency:     "EUR",
				Description:  "Museum",
				SplitType:    "manual",
				ManualSplits: map[string]float64{"carol": 20, "bob": 30},
			})
			Expect(result.SplitType).To(Equal(split.SplitTypeManual))
			Expect(result.Shares).To(HaveLen(2))
			Expect(result.Shares[0].MemberID).To(Equal("bob"))
			Expect(result.Shares[1].MemberID).To(Equal("carol"))
			Expect(result.Shares[1].Amount).To(Equal(20.0))
		})

		It("warns about currencies without a rate", func() {
			result := create("alice", expense.CreateExpenseDTO{Amount: 1000, Currency: "JPY", Description: "Sushi"})
			Expect(result.Warnings).To(HaveLen(1))
			Expect(result.Warnings[0]).To(ContainSubstring("JPY"))
		})

		DescribeTable("rejections",
			func(actor, tripID string, dto expense.CreateExpenseDTO, expected error) {
				_, err := service.CreateExpense(ctx, actor, tripID, dto)
				Expect(err).To(MatchError(expected))
				Expect(repo.order).To(BeEmpty())
			},
			Entry("unknown trip", "alice", "nope",
				expense.CreateExpenseDTO{Amount: 10, Currency: "USD", Description: "x"}, internal.ErrTripNotFound),
			Entry("actor outside the trip", "dave", "t1",
				expense.CreateExpenseDTO{Amount: 10, Currency: "USD", Description: "x"}, internal.ErrNotTripMember),
			Entry("manual sum that does not reconcile", "alice", "t1",
				expense.CreateExpenseDTO{Amount: 10, Currency: "USD", Description: "x", SplitType: "manual", ManualSplits: map[string]float64{"alice": 4, "bob": 4}},
				split.ErrManualSumMismatch),
			Entry("negative manual amount", "alice", "t1",
				expense.CreateExpenseDTO{Amount: 10, Currency: "USD", Description: "x", SplitType: "manual", ManualSplits: map[string]float64{"alice": 15, "bob": -5}},
				split.ErrNegativeAmount),
			Entry("manual split with no members", "alice", "t1",
				expense.CreateExpenseDTO{Amount: 10, Currency: "USD", Description: "x", SplitType: "manual"},
				split.ErrNoParticipants),
			Entry("duplicate participants", "alice", "t1",
				expense.CreateExpenseDTO{Amount: 10, Currency: "USD", Description: "x", SplitBetween: []string{"alice", "alice"}},
				split.ErrDuplicateParticipant),
		)

		DescribeTable("validation failures",
			func(dto expense.CreateExpenseDTO) {
				_, err := service.CreateExpense(ctx, "alice", "t1", dto)
				appErr, ok := internal.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
				Expect(appErr.StatusCode).To(Equal(400))
				Expect(repo.order).To(BeEmpty())
			},
			Entry("zero amount", expense.CreateExpenseDTO{Amount: 0, Currency: "USD", Description: "x"}),
			Entry("negative amount", expense.CreateExpenseDTO{Amount: -4, Currency: "USD", Description: "x"}),
			Entry("sub-cent amount", expense.CreateExpenseDTO{Amount: 0.004, Currency: "USD", Description: "x"}),
			Entry("bad currency", expense.CreateExpenseDTO{Amount: 4, Currency: "DOLLARS", Description: "x"}),
			Entry("missing description", expense.CreateExpenseDTO{Amount: 4, Currency: "USD"}),
			Entry("unknown split type", expense.CreateExpenseDTO{Amount: 4, Currency: "USD", Description: "x", SplitType: "shares"}),
			Entry("bad date", expense.CreateExpenseDTO{Amount: 4, Currency: "USD", Description: "x", Date: "yesterday"}),
			Entry("contributor outside the trip", expense.CreateExpenseDTO{Amount: 4, Currency: "USD", Description: "x", ContributorID: "dave"}),
			Entry("participant outside the trip", expense.CreateExpenseDTO{Amount: 4, Currency: "USD", Description: "x", SplitBetween: []string{"alice", "dave"}}),
			Entry("manual amount for an outsider", expense.CreateExpenseDTO{Amount: 4, Currency: "USD", Description: "x", SplitType: "manual", ManualSplits: map[string]float64{"alice": 2, "dave": 2}}),
		)
	})

	Describe("MarkSharePaid", func() {
		var exp *expense.Expense

		BeforeEach(func() {
			exp = create("alice", expense.CreateExpenseDTO{Amount: 90, Currency: "USD", Description: "Dinner"}).Expense
		})

		It("rejects paying twice and keeps the first paidAt", func() {
			first, err := service.MarkSharePaid(ctx, "bob", exp.ID, "bob")
			Expect(err).NotTo(HaveOccurred())
			share, _ := first.ShareOf("bob")
			firstPaidAt := *share.PaidAt

			clock = clock.Add(time.Hour)
			_, err = service.MarkSharePaid(ctx, "bob", exp.ID, "bob")
			Expect(err).To(MatchError(internal.ErrShareAlreadyPaid))
			Expect(metrics.conflicts).To(Equal(1))

			again, err := service.GetExpense(ctx, "bob", exp.ID)
			Expect(err).NotTo(HaveOccurred())
			share, _ = again.ShareOf("bob")
			Expect(share.PaidAt.Equal(firstPaidAt)).To(BeTrue())
		})

		It("does not let a member pay someone else's share", func() {
			_, err := service.MarkSharePaid(ctx, "bob", exp.ID, "carol")
			Expect(err).To(MatchError(internal.ErrCannotPayShare))
		})

		It("rejects outsiders, unknown expenses and members without a share", func() {
			_, err := service.MarkSharePaid(ctx, "dave", exp.ID, "dave")
			Expect(err).To(MatchError(internal.ErrNotTripMember))

			_, err = service.MarkSharePaid(ctx, "bob", "missing", "bob")
			Expect(err).To(MatchError(internal.ErrExpenseNotFound))

			partial := create("alice", expense.CreateExpenseDTO{Amount: 10, Currency: "USD", Description: "x", SplitBetween: []string{"alice", "bob"}})
			_, err = service.MarkSharePaid(ctx, "carol", partial.ID, "carol")
			Expect(err).To(MatchError(internal.ErrShareNotFound))
		})

		It("never moves a settled expense back", func() {
			for _, m := range []string{"bob", "carol"} {
				_, err := service.MarkSharePaid(ctx, m, exp.ID, m)
				Expect(err).NotTo(HaveOccurred())
			}
			for _, m := range []string{"alice", "bob", "carol"} {
				_, err := service.MarkSharePaid(ctx, "alice", exp.ID, m)
				Expect(err).To(MatchError(internal.ErrShareAlreadyPaid))
			}
			got, err := service.GetExpense(ctx, "alice", exp.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.SettlementStatus).To(Equal(settlement.StatusSettled))
		})
	})

	Describe("UpdateExpense and DeleteExpense", func() {
		var exp *expense.Expense

		BeforeEach(func() {
			exp = create("alice", expense.CreateExpenseDTO{Amount: 30, Currency: "USD", Description: "Lunch"}).Expense
		})

		It("lets the contributor edit content", func() {
			desc := "Long lunch"
			cat := "Food"
			updated, err := service.UpdateExpense(ctx, "alice", exp.ID, expense.UpdateExpenseDTO{Description: &desc, Category: &cat})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Description).To(Equal(desc))
			Expect(updated.Category).To(Equal("food"))
			Expect(updated.Amount).To(Equal(30.0))
		})

		It("keeps other members and outsiders out", func() {
			desc := "mine now"
			_, err := service.UpdateExpense(ctx, "bob", exp.ID, expense.UpdateExpenseDTO{Description: &desc})
			Expect(err).To(MatchError(internal.ErrNotContributor))

			Expect(service.DeleteExpense(ctx, "bob", exp.ID)).To(MatchError(internal.ErrNotContributor))
			Expect(service.DeleteExpense(ctx, "dave", exp.ID)).To(MatchError(internal.ErrNotTripMember))
		})

		It("deletes the expense and its chat message", func() {
			Expect(exp.ChatMessageID).NotTo(BeNil())
			Expect(service.DeleteExpense(ctx, "alice", exp.ID)).To(Succeed())

			_, err := service.GetExpense(ctx, "alice", exp.ID)
			Expect(err).To(MatchError(internal.ErrExpenseNotFound))
			Expect(chatSink.deleted).To(ConsistOf(*exp.ChatMessageID))
			Expect(publisher.types()).To(ContainElement(events.EventTypeExpenseDeleted))
		})
	})

	Describe("ListTripExpenses", func() {
		BeforeEach(func() {
			create("alice", expense.CreateExpenseDTO{Amount: 100, Currency: "USD", Description: "Hotel", Category: "lodging", Date: "2024-05-01"})
			create("bob", expense.CreateExpenseDTO{Amount: 50, Currency: "EUR", Description: "Train", Category: "transport", Date: "2024-05-02"})
		})

		It("summarizes mixed currencies in the reference currency", func() {
			result, err := service.ListTripExpenses(ctx, "carol", "t1", expense.ListQuery{})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Total).To(Equal(int64(2)))
			Expect(result.Page).To(Equal(1))
			Expect(result.Limit).To(Equal(expense.DefaultLimit))
			Expect(result.Summary.TotalExpenses).To(Equal(2))
			Expect(result.Summary.TotalAmount).To(Equal(150.0))
			Expect(result.Summary.TotalAmountUSD).To(Equal(154.0))
			Expect(result.Summary.ByCategory).To(Equal(map[string]float64{"lodging": 100, "transport": 50}))
			Expect(result.Summary.CurrencyBreakdown).To(Equal(map[string]expense.CurrencyTotal{
				"USD": {Amount: 100, USDEquivalent: 100},
				"EUR": {Amount: 50, USDEquivalent: 54},
			}))
		})

		It("summarizes every match, not only the page", func() {
			result, err := service.ListTripExpenses(ctx, "alice", "t1", expense.ListQuery{Page: 2, Limit: 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Expenses).To(HaveLen(1))
			Expect(result.Expenses[0].Description).To(Equal("Hotel"))
			Expect(result.Total).To(Equal(int64(2)))
			Expect(result.Summary.TotalExpenses).To(Equal(2))
		})

		It("takes the page, total and summary from a single read", func() {
			repo.finds = 0
			result, err := service.ListTripExpenses(ctx, "alice", "t1", expense.ListQuery{Page: 1, Limit: 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.finds).To(Equal(1))
			Expect(result.Expenses).To(HaveLen(1))
			Expect(result.Expenses[0].Description).To(Equal("Train"))
			Expect(result.Total).To(Equal(int64(result.Summary.TotalExpenses)))
		})

		It("returns an empty page past the last match and still counts everything", func() {
			result, err := service.ListTripExpenses(ctx, "alice", "t1", expense.ListQuery{Page: 5, Limit: 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Expenses).To(BeEmpty())
			Expect(result.Total).To(Equal(int64(2)))
			Expect(result.Page).To(Equal(5))
			Expect(result.Summary.TotalExpenses).To(Equal(2))
		})

		It("applies filters", func() {
			result, err := service.ListTripExpenses(ctx, "alice", "t1", expense.ListQuery{Currency: "eur"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Total).To(Equal(int64(1)))
			Expect(result.Summary.CurrencyBreakdown).To(HaveKey("EUR"))
		})

		DescribeTable("bad queries",
			func(q expense.ListQuery) {
				_, err := service.ListTripExpenses(ctx, "alice", "t1", q)
				appErr, ok := internal.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
			},
			Entry("negative page", expense.ListQuery{Page: -1}),
			Entry("limit above max", expense.ListQuery{Limit: 1000}),
			Entry("unknown status", expense.ListQuery{Status: "closed"}),
			Entry("bad date", expense.ListQuery{From: "May 1st"}),
			Entry("inverted range", expense.ListQuery{From: "2024-05-03", To: "2024-05-01"}),
		)

		It("hides the list from outsiders", func() {
			_, err := service.ListTripExpenses(ctx, "dave", "t1", expense.ListQuery{})
			Expect(err).To(MatchError(internal.ErrNotTripMember))
		})
	})

	Describe("GetTripSettlements", func() {
		It("partitions every share and converts totals", func() {
			create("alice", expense.CreateExpenseDTO{Amount: 90, Currency: "USD", Description: "Dinner"})
			create("bob", expense.CreateExpenseDTO{Amount: 30, Currency: "EUR", Description: "Tickets"})

			all, err := service.GetTripSettlements(ctx, "alice", "t1", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(all.ReferenceCurrency).To(Equal("USD"))
			Expect(all.Paid).To(HaveLen(2))
			Expect(all.Pending).To(HaveLen(4))
			Expect(all.TotalPaid).To(Equal(40.8))
			Expect(all.TotalPending).To(Equal(81.6))

			carol, err := service.GetTripSettlements(ctx, "alice", "t1", "carol")
			Expect(err).NotTo(HaveOccurred())
			Expect(carol.MemberID).To(Equal("carol"))
			Expect(carol.Paid).To(BeEmpty())
			Expect(carol.Pending).To(HaveLen(2))
			Expect(carol.TotalPending).To(Equal(40.8))
		})
	})
})
