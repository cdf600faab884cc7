package currency

import (
	"net/http"

	"github.com/frahmantamala/trip-expense/internal/transport"
)

type Handler struct {
	*transport.BaseHandler
	Converter *Converter
}

func NewHandler(baseHandler *transport.BaseHandler, converter *Converter) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Converter:   converter,
	}
}

type RatesResponse struct {
	Reference string `json:"reference"`
	Rates     []Rate `json:"rates"`
}

// ListRates reports the configured table; rates are units of the reference currency per unit.
func (h *Handler) ListRates(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, RatesResponse{
		Reference: h.Converter.Reference(),
		Rates:     h.Converter.Table().Rates(),
	})
}
