package expense

import (
	"context"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/trip-expense/internal"
	"github.com/frahmantamala/trip-expense/internal/transport"
)

type ServiceAPI interface {
	CreateExpense(ctx context.Context, actorID, tripID string, dto CreateExpenseDTO) (*CreateResult, error)
	GetExpense(ctx context.Context, actorID, expenseID string) (*Expense, error)
	UpdateExpense(ctx context.Context, actorID, expenseID string, dto UpdateExpenseDTO) (*Expense, error)
	MarkSharePaid(ctx context.Context, actorID, expenseID, memberID string) (*Expense, error)
	DeleteExpense(ctx context.Context, actorID, expenseID string) error
	ListTripExpenses(ctx context.Context, actorID, tripID string, q ListQuery) (*ListResult, error)
	GetSettlementDetail(ctx context.Context, actorID, expenseID string) (*SettlementDetail, error)
	GetTripSettlements(ctx context.Context, actorID, tripID, memberID string) (*TripSettlementSummary, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	actorID, err := internal.RequireActor(r.Context())
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	var dto CreateExpenseDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	result, err := h.Service.CreateExpense(r.Context(), actorID, chi.URLParam(r, "tripId"), dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, result)
}

func (h *Handler) ListTripExpenses(w http.ResponseWriter, r *http.Request) {
	actorID, err := internal.RequireActor(r.Context())
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	page, err := transport.QueryInt(r, "page", DefaultPage)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	limit, err := transport.QueryInt(r, "limit", DefaultLimit)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	query := r.URL.Query()
	result, err := h.Service.ListTripExpenses(r.Context(), actorID, chi.URLParam(r, "tripId"), ListQuery{
		Page:        page,
		Limit:       limit,
		Category:    query.Get("category"),
		Currency:    query.Get("currency"),
		Contributor: query.Get("contributor"),
		Member:      query.Get("member"),
		Status:      query.Get("status"),
		From:        query.Get("from"),
		To:          query.Get("to"),
	})
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) GetExpense(w http.ResponseWriter, r *http.Request) {
	actorID, err := internal.RequireActor(r.Context())
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	exp, err := h.Service.GetExpense(r.Context(), actorID, chi.URLParam(r, "expenseId"))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, exp)
}

func (h *Handler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	actorID, err := internal.RequireActor(r.Context())
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	var dto UpdateExpenseDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	exp, err := h.Service.UpdateExpense(r.Context(), actorID, chi.URLParam(r, "expenseId"), dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, exp)
}

func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	actorID, err := internal.RequireActor(r.Context())
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	if err := h.Service.DeleteExpense(r.Context(), actorID, chi.URLParam(r, "expenseId")); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) MarkSharePaid(w http.ResponseWriter, r *http.Request) {
	actorID, err := internal.RequireActor(r.Context())
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	exp, err := h.Service.MarkSharePaid(r.Context(), actorID, chi.URLParam(r, "expenseId"), chi.URLParam(r, "memberId"))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, exp)
}

func (h *Handler) GetSettlementDetail(w http.ResponseWriter, r *http.Request) {
	actorID, err := internal.RequireActor(r.Context())
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	detail, err := h.Service.GetSettlementDetail(r.Context(), actorID, chi.URLParam(r, "expenseId"))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, detail)
}

func (h *Handler) GetTripSettlements(w http.ResponseWriter, r *http.Request) {
	actorID, err := internal.RequireActor(r.Context())
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	summary, err := h.Service.GetTripSettlements(r.Context(), actorID, chi.URLParam(r, "tripId"), r.URL.Query().Get("member"))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, summary)
}
