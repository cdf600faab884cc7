package expense

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/trip-expense/internal"
	"github.com/frahmantamala/trip-expense/internal/chat"
	expenseDatamodel "github.com/frahmantamala/trip-expense/internal/core/datamodel/expense"
	"github.com/frahmantamala/trip-expense/internal/core/events"
	"github.com/frahmantamala/trip-expense/internal/core/money"
	"github.com/frahmantamala/trip-expense/internal/currency"
	"github.com/frahmantamala/trip-expense/internal/expense/split"
	"github.com/frahmantamala/trip-expense/internal/settlement"
)

const WarningChatMessageNotPosted = "chat message not posted"

// StatusFunc computes (status, settlementStatus) from an expense's current shares.
type StatusFunc func(exp *expenseDatamodel.Expense) (status, settlementStatus string)

type RepositoryAPI interface {
	Create(ctx context.Context, exp *expenseDatamodel.Expense) error
	GetByID(ctx context.Context, id string) (*expenseDatamodel.Expense, error)
	Find(ctx context.Context, f ListFilter) ([]*expenseDatamodel.Expense, error)
	MarkSharePaid(ctx context.Context, expenseID, memberID string, paidAt time.Time, resolve StatusFunc) (*expenseDatamodel.Expense, error)
	SetChatMessageID(ctx context.Context, expenseID, messageID string) error
	UpdateContent(ctx context.Context, expenseID string, update ContentUpdate) error
	Delete(ctx context.Context, expenseID string) error
}

// TripDirectory resolves a trip's ordered member list; unknown trips are ErrTripNotFound.
type TripDirectory interface {
	Members(ctx context.Context, tripID string) ([]string, error)
}

type MessagePoster interface {
	PostExpenseMessage(ctx context.Context, notice chat.ExpenseNotice) (string, error)
	DeleteMessage(ctx context.Context, id string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Recorder interface {
	ExpenseCreated(currency string)
	SharePaid()
	ShareConflict()
	ChatMessageFailed()
}

type nopRecorder struct{}

func (nopRecorder) ExpenseCreated(string) {}
func (nopRecorder) SharePaid()            {}
func (nopRecorder) ShareConflict()        {}
func (nopRecorder) ChatMessageFailed()    {}

type Service struct {
	repo        RepositoryAPI
	trips       TripDirectory
	messages    MessagePoster
	events      EventPublisher
	converter   *currency.Converter
	splitter    *split.Factory
	metrics     Recorder
	logger      *slog.Logger
	now         func() time.Time
	maxPageSize int
}

// NewService wires the engine. messages and publisher may be nil when those side effects are
// not configured.
func NewService(
	repo RepositoryAPI,
	trips TripDirectory,
	messages MessagePoster,
	publisher EventPublisher,
	converter *currency.Converter,
	splitter *split.Factory,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:        repo,
		trips:       trips,
		messages:    messages,
		events:      publisher,
		converter:   converter,
		splitter:    splitter,
		metrics:     nopRecorder{},
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
		maxPageSize: 100,
	}
}

func (s *Service) WithMetrics(r Recorder) *Service {
	if r != nil {
		s.metrics = r
	}
	return s
}

func (s *Service) WithMaxPageSize(n int) *Service {
	if n > 0 {
		s.maxPageSize = n
	}
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateResult is the created expense plus any side-effect warnings.
type CreateResult struct {
	*Expense
	Warnings []string `json:"warnings,omitempty"`
}

// CreateExpense persists the expense and its shares first, then posts the chat message. A failed
// message only adds a warning; the expense stays.
func (s *Service) CreateExpense(ctx context.Context, actorID, tripID string, dto CreateExpenseDTO) (*CreateResult, error) {
	members, err := s.requireMember(ctx, tripID, actorID)
	if err != nil {
		return nil, err
	}

	if appErr := dto.Validate(); appErr != nil {
		s.logger.Info("expense validation failed", "trip_id", tripID, "actor_id", actorID, "error", appErr.GetDetailedMessage())
		return nil, appErr
	}

	contributorID := dto.ContributorID
	if contributorID == "" {
		contributorID = actorID
	}
	if !contains(members, contributorID) {
		return nil, internal.NewValidationFieldError("contributorId", "contributor must be a trip member", internal.ErrCodeUnknownMember)
	}

	splitType, err := split.ParseSplitType(dto.SplitType)
	if err != nil {
		return nil, err
	}
	participants, err := chooseParticipants(members, splitType, dto)
	if err != nil {
		return nil, err
	}

	strategy, err := s.splitter.Create(splitType)
	if err != nil {
		return nil, err
	}
	computed, err := strategy.Calculate(split.Input{
		Amount:        dto.Amount,
		ContributorID: contributorID,
		Participants:  participants,
		ManualAmounts: dto.ManualSplits,
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	date, _ := ParseDate(dto.Date)
	if date.IsZero() {
		date = now
	}

	exp := &Expense{
		ID:            uuid.NewString(),
		TripID:        tripID,
		ContributorID: contributorID,
		Amount:        dto.Amount,
		Currency:      dto.Currency,
		Description:   dto.Description,
		Category:      dto.Category,
		SplitType:     splitType,
		Date:          date,
		Shares:        make([]Share, len(computed)),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for i, c := range computed {
		share := Share{MemberID: c.MemberID, Amount: c.Amount, State: ShareStatePending}
		if c.Paid {
			paidAt := now
			share.State = ShareStatePaid
			share.PaidAt = &paidAt
		}
		exp.Shares[i] = share
	}
	exp.Refresh()

	if err := s.repo.Create(ctx, ToDataModel(exp)); err != nil {
		s.logger.Error("failed to create expense", "error", err, "trip_id", tripID, "actor_id", actorID)
		return nil, internal.NewInternalError("failed to create expense", err)
	}
	s.metrics.ExpenseCreated(exp.Currency)

	s.logger.Info("expense created",
		"expense_id", exp.ID,
		"trip_id", tripID,
		"contributor_id", contributorID,
		"amount", exp.Amount,
		"currency", exp.Currency,
		"split_type", splitType,
		"shares", len(exp.Shares))

	result := &CreateResult{Expense: exp}
	if !s.converter.Supports(exp.Currency) {
		result.Warnings = append(result.Warnings, "currency "+exp.Currency+" has no configured rate and is converted 1:1")
	}
	if warning := s.postChatMessage(ctx, exp); warning != "" {
		result.Warnings = append(result.Warnings, warning)
	}

	s.publish(ctx, events.NewExpenseCreatedEvent(exp.ID, exp.TripID, exp.ContributorID, exp.Amount, exp.Currency, exp.Description))
	return result, nil
}

func (s *Service) postChatMessage(ctx context.Context, exp *Expense) string {
	if s.messages == nil {
		return ""
	}

	messageID, err := s.messages.PostExpenseMessage(ctx, chat.ExpenseNotice{
		ExpenseID:     exp.ID,
		TripID:        exp.TripID,
		ContributorID: exp.ContributorID,
		Amount:        exp.Amount,
		Currency:      exp.Currency,
		Description:   exp.Description,
	})
	if err != nil {
		s.metrics.ChatMessageFailed()
		s.logger.Warn("chat message not posted, expense kept", "expense_id", exp.ID, "trip_id", exp.TripID, "error", err)
		return WarningChatMessageNotPosted
	}

	if err := s.repo.SetChatMessageID(ctx, exp.ID, messageID); err != nil {
		s.metrics.ChatMessageFailed()
		s.logger.Warn("chat message posted but not linked", "expense_id", exp.ID, "message_id", messageID, "error", err)
		return WarningChatMessageNotPosted
	}
	exp.ChatMessageID = &messageID
	return ""
}

func (s *Service) GetExpense(ctx context.Context, actorID, expenseID string) (*Expense, error) {
	exp, err := s.load(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireMember(ctx, exp.TripID, actorID); err != nil {
		return nil, err
	}
	return exp, nil
}

// UpdateExpense edits content fields only. Amount and shares are fixed once created.
func (s *Service) UpdateExpense(ctx context.Context, actorID, expenseID string, dto UpdateExpenseDTO) (*Expense, error) {
	exp, err := s.loadForContributor(ctx, actorID, expenseID)
	if err != nil {
		return nil, err
	}
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}

	update := ContentUpdate{Description: dto.Description, Category: dto.Category}
	if dto.Date != nil {
		date, _ := ParseDate(*dto.Date)
		update.Date = &date
	}

	if err := s.repo.UpdateContent(ctx, expenseID, update); err != nil {
		if _, ok := internal.IsAppError(err); ok {
			return nil, err
		}
		s.logger.Error("failed to update expense", "error", err, "expense_id", expenseID)
		return nil, internal.NewInternalError("failed to update expense", err)
	}

	if update.Description != nil {
		exp.Description = *update.Description
	}
	if update.Category != nil {
		exp.Category = *update.Category
	}
	if update.Date != nil {
		exp.Date = *update.Date
	}
	exp.UpdatedAt = s.now()

	s.logger.Info("expense updated", "expense_id", expenseID, "actor_id", actorID)
	return exp, nil
}

// MarkSharePaid flips one share from pending to paid. The member may pay their own share and the
// contributor may record anyone's. A second call for the same share is a conflict.
func (s *Service) MarkSharePaid(ctx context.Context, actorID, expenseID, memberID string) (*Expense, error) {
	exp, err := s.load(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireMember(ctx, exp.TripID, actorID); err != nil {
		return nil, err
	}
	if actorID != memberID && !exp.IsContributor(actorID) {
		return nil, internal.ErrCannotPayShare
	}
	if !exp.HasMember(memberID) {
		return nil, internal.ErrShareNotFound
	}

	data, err := s.repo.MarkSharePaid(ctx, expenseID, memberID, s.now(), ResolveStatus)
	if err != nil {
		if errors.Is(err, internal.ErrShareAlreadyPaid) {
			s.metrics.ShareConflict()
			s.logger.Info("share already paid", "expense_id", expenseID, "member_id", memberID, "actor_id", actorID)
			return nil, err
		}
		if _, ok := internal.IsAppError(err); ok {
			return nil, err
		}
		s.logger.Error("failed to mark share paid", "error", err, "expense_id", expenseID, "member_id", memberID)
		return nil, internal.NewInternalError("failed to mark share paid", err)
	}

	updated := FromDataModel(data)
	s.metrics.SharePaid()
	s.logger.Info("share marked paid",
		"expense_id", expenseID,
		"member_id", memberID,
		"actor_id", actorID,
		"settlement_status", updated.SettlementStatus)

	var amount float64
	if share, ok := updated.ShareOf(memberID); ok {
		amount = share.Amount
	}
	s.publish(ctx, events.NewSharePaidEvent(updated.ID, updated.TripID, memberID, actorID, amount, updated.Currency, string(updated.SettlementStatus)))
	return updated, nil
}

// DeleteExpense removes the expense and its shares, then best-effort removes the chat message.
func (s *Service) DeleteExpense(ctx context.Context, actorID, expenseID string) error {
	exp, err := s.loadForContributor(ctx, actorID, expenseID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, expenseID); err != nil {
		if _, ok := internal.IsAppError(err); ok {
			return err
		}
		s.logger.Error("failed to delete expense", "error", err, "expense_id", expenseID)
		return internal.NewInternalError("failed to delete expense", err)
	}

	if exp.ChatMessageID != nil && s.messages != nil {
		if err := s.messages.DeleteMessage(ctx, *exp.ChatMessageID); err != nil && !errors.Is(err, internal.ErrMessageNotFound) {
			s.logger.Warn("chat message not removed", "expense_id", expenseID, "message_id", *exp.ChatMessageID, "error", err)
		}
	}

	s.logger.Info("expense deleted", "expense_id", expenseID, "trip_id", exp.TripID, "actor_id", actorID)
	s.publish(ctx, events.NewExpenseDeletedEvent(exp.ID, exp.TripID, actorID))
	return nil
}

type ListResult struct {
	Expenses []*Expense `json:"expenses"`
	Total    int64      `json:"total"`
	Page     int        `json:"page"`
	Limit    int        `json:"limit"`
	Summary  Summary    `json:"summary"`
}

// ListTripExpenses returns one page plus a summary over every expense matching the filters.
func (s *Service) ListTripExpenses(ctx context.Context, actorID, tripID string, q ListQuery) (*ListResult, error) {
	if _, err := s.requireMember(ctx, tripID, actorID); err != nil {
		return nil, err
	}

	filter, appErr := q.ToFilter(tripID, s.maxPageSize)
	if appErr != nil {
		return nil, appErr
	}

	// one read feeds the page, the total and the summary so they always agree
	unpaged := filter
	unpaged.Limit, unpaged.Offset = 0, 0
	all, err := s.repo.Find(ctx, unpaged)
	if err != nil {
		s.logger.Error("failed to list trip expenses", "error", err, "trip_id", tripID)
		return nil, internal.NewInternalError("failed to list expenses", err)
	}

	start := min(filter.Offset, len(all))
	end := min(start+filter.Limit, len(all))

	result := &ListResult{
		Expenses: fromDataModels(all[start:end]),
		Total:    int64(len(all)),
		Page:     filter.Offset/filter.Limit + 1,
		Limit:    filter.Limit,
		Summary:  Summarize(fromDataModels(all), s.converter),
	}
	return result, nil
}

type SettlementView struct {
	TotalAmount      float64           `json:"totalAmount"`
	Currency         string            `json:"currency"`
	TotalPaid        float64           `json:"totalPaid"`
	TotalPending     float64           `json:"totalPending"`
	Pending          []settlement.Line `json:"pending"`
	Paid             []settlement.Line `json:"paid"`
	Status           settlement.Status `json:"status"`
	SettlementStatus settlement.Status `json:"settlementStatus"`
}

type SettlementDetail struct {
	Expense     *Expense       `json:"expense"`
	Settlements SettlementView `json:"settlements"`
}

// GetSettlementDetail reports one expense's paid and pending shares in its own currency. The
// status is always derived from the shares, never read from the cache column.
func (s *Service) GetSettlementDetail(ctx context.Context, actorID, expenseID string) (*SettlementDetail, error) {
	exp, err := s.GetExpense(ctx, actorID, expenseID)
	if err != nil {
		return nil, err
	}

	cached := exp.SettlementStatus
	exp.Refresh()
	if cached != exp.SettlementStatus {
		s.logger.Warn("settlement status cache out of date", "expense_id", exp.ID, "cached", cached, "derived", exp.SettlementStatus)
	}

	summary := settlement.Summarize(exp.Lines())
	return &SettlementDetail{
		Expense: exp,
		Settlements: SettlementView{
			TotalAmount:      exp.Amount,
			Currency:         exp.Currency,
			TotalPaid:        summary.TotalPaid,
			TotalPending:     summary.TotalPending,
			Pending:          summary.Pending,
			Paid:             summary.Paid,
			Status:           exp.Status,
			SettlementStatus: exp.SettlementStatus,
		},
	}, nil
}

type TripSettlementSummary struct {
	TripID            string `json:"tripId"`
	MemberID          string `json:"memberId,omitempty"`
	ReferenceCurrency string `json:"referenceCurrency"`
	settlement.Summary
}

// GetTripSettlements partitions every share of a trip, or one member's shares, into paid and
// pending. Totals are in the reference currency; lines keep their own currency.
func (s *Service) GetTripSettlements(ctx context.Context, actorID, tripID, memberID string) (*TripSettlementSummary, error) {
	if _, err := s.requireMember(ctx, tripID, actorID); err != nil {
		return nil, err
	}

	expenses, err := s.TripExpenses(ctx, tripID)
	if err != nil {
		return nil, err
	}

	lines := make([]settlement.Line, 0)
	for _, exp := range expenses {
		for _, l := range exp.Lines() {
			if memberID == "" || l.MemberID == memberID {
				lines = append(lines, l)
			}
		}
	}

	summary := settlement.SummarizeWith(lines, func(l settlement.Line) decimal.Decimal {
		return s.converter.ToReferenceDec(money.Dec(l.Amount), l.Currency)
	})
	return &TripSettlementSummary{
		TripID:            tripID,
		MemberID:          memberID,
		ReferenceCurrency: s.converter.Reference(),
		Summary:           summary,
	}, nil
}

// TripExpenses loads every expense of a trip in one query. Callers do their own access checks.
func (s *Service) TripExpenses(ctx context.Context, tripID string) ([]*Expense, error) {
	rows, err := s.repo.Find(ctx, ListFilter{TripID: tripID})
	if err != nil {
		s.logger.Error("failed to load trip expenses", "error", err, "trip_id", tripID)
		return nil, internal.NewInternalError("failed to load expenses", err)
	}
	return fromDataModels(rows), nil
}

func (s *Service) requireMember(ctx context.Context, tripID, actorID string) ([]string, error) {
	members, err := s.trips.Members(ctx, tripID)
	if err != nil {
		if _, ok := internal.IsAppError(err); ok {
			return nil, err
		}
		return nil, internal.NewInternalError("failed to load trip members", err)
	}
	if !contains(members, actorID) {
		return nil, internal.ErrNotTripMember
	}
	return members, nil
}

func (s *Service) load(ctx context.Context, expenseID string) (*Expense, error) {
	data, err := s.repo.GetByID(ctx, expenseID)
	if err != nil {
		if _, ok := internal.IsAppError(err); ok {
			return nil, err
		}
		s.logger.Error("failed to load expense", "error", err, "expense_id", expenseID)
		return nil, internal.NewInternalError("failed to load expense", err)
	}
	return FromDataModel(data), nil
}

// loadForContributor answers non-members with NotTripMember and other members with
// NotContributor.
func (s *Service) loadForContributor(ctx context.Context, actorID, expenseID string) (*Expense, error) {
	exp, err := s.load(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if exp.IsContributor(actorID) {
		return exp, nil
	}
	if _, err := s.requireMember(ctx, exp.TripID, actorID); err != nil {
		return nil, err
	}
	return nil, internal.ErrNotContributor
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish event", "event_type", event.EventType(), "error", err)
	}
}

// chooseParticipants picks who splits the expense. An explicit list must be trip members. Manual
// splits without a list use the trip members named in manualSplits, in trip order.
func chooseParticipants(members []string, splitType split.SplitType, dto CreateExpenseDTO) ([]string, error) {
	if len(dto.SplitBetween) > 0 {
		for _, p := range dto.SplitBetween {
			if !contains(members, p) {
				return nil, internal.NewValidationFieldError("splitBetween", "participant "+p+" is not a trip member", internal.ErrCodeUnknownMember)
			}
		}
		return dto.SplitBetween, nil
	}

	if splitType != split.SplitTypeManual {
		return members, nil
	}

	for memberID := range dto.ManualSplits {
		if !contains(members, memberID) {
			return nil, internal.NewValidationFieldError("manualSplits", "participant "+memberID+" is not a trip member", internal.ErrCodeUnknownMember)
		}
	}
	participants := make([]string, 0, len(dto.ManualSplits))
	for _, m := range members {
		if _, ok := dto.ManualSplits[m]; ok {
			participants = append(participants, m)
		}
	}
	return participants, nil
}

func fromDataModels(rows []*expenseDatamodel.Expense) []*Expense {
	out := make([]*Expense, len(rows))
	for i, row := range rows {
		out[i] = FromDataModel(row)
	}
	return out
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
