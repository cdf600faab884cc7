package chat

import (
	"context"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/trip-expense/internal"
	"github.com/frahmantamala/trip-expense/internal/transport"
)

type ServiceAPI interface {
	ListTripMessages(ctx context.Context, actorID, tripID string, limit int) ([]*Message, error)
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

func (h *Handler) ListTripMessages(w http.ResponseWriter, r *http.Request) {
	actorID, err := internal.RequireActor(r.Context())
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	limit, err := transport.QueryInt(r, "limit", 50)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	messages, err := h.Service.ListTripMessages(r.Context(), actorID, chi.URLParam(r, "tripId"), limit)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"messages": messages,
	})
}
