package balance

import (
	"context"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/trip-expense/internal"
	"github.com/frahmantamala/trip-expense/internal/transport"
)

type ServiceAPI interface {
	TripBalances(ctx context.Context, actorID, tripID string) (*TripView, error)
	SettleUp(ctx context.Context, actorID, tripID string) (*SettleUpPlan, error)
	MemberBalances(ctx context.Context, actorID string) (*MemberView, error)
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

func (h *Handler) TripBalances(w http.ResponseWriter, r *http.Request) {
	actorID, err := internal.RequireActor(r.Context())
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	view, err := h.Service.TripBalances(r.Context(), actorID, chi.URLParam(r, "tripId"))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) SettleUp(w http.ResponseWriter, r *http.Request) {
	actorID, err := internal.RequireActor(r.Context())
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	plan, err := h.Service.SettleUp(r.Context(), actorID, chi.URLParam(r, "tripId"))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, plan)
}

func (h *Handler) MemberBalances(w http.ResponseWriter, r *http.Request) {
	actorID, err := internal.RequireActor(r.Context())
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	view, err := h.Service.MemberBalances(r.Context(), actorID)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, view)
}
