package trip

import (
	"context"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/trip-expense/internal"
	"github.com/frahmantamala/trip-expense/internal/transport"
)

type ServiceAPI interface {
	CreateTrip(ctx context.Context, actorID string, dto CreateTripDTO) (*Trip, error)
	GetTrip(ctx context.Context, actorID, tripID string) (*Trip, error)
	AddMember(ctx context.Context, actorID, tripID string, dto AddMemberDTO) (*Trip, error)
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

func (h *Handler) CreateTrip(w http.ResponseWriter, r *http.Request) {
	actorID, err := internal.RequireActor(r.Context())
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	var dto CreateTripDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	t, err := h.Service.CreateTrip(r.Context(), actorID, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, t)
}

func (h *Handler) GetTrip(w http.ResponseWriter, r *http.Request) {
	actorID, err := internal.RequireActor(r.Context())
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	t, err := h.Service.GetTrip(r.Context(), actorID, chi.URLParam(r, "tripId"))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	actorID, err := internal.RequireActor(r.Context())
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	var dto AddMemberDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	t, err := h.Service.AddMember(r.Context(), actorID, chi.URLParam(r, "tripId"), dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, t)
}
