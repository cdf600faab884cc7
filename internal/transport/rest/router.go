package rest

import (
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/trip-expense/internal/balance"
	"github.com/frahmantamala/trip-expense/internal/chat"
	"github.com/frahmantamala/trip-expense/internal/currency"
	"github.com/frahmantamala/trip-expense/internal/expense"
	"github.com/frahmantamala/trip-expense/internal/transport"
	"github.com/frahmantamala/trip-expense/internal/transport/middleware"
	"github.com/frahmantamala/trip-expense/internal/transport/swagger"
	"github.com/frahmantamala/trip-expense/internal/trip"
)

// Routes is everything RegisterAllRoutes mounts. Optional parts are nil when disabled.
type Routes struct {
	Base           *transport.BaseHandler
	Health         *HealthHandler
	Trips          *trip.Handler
	Expenses       *expense.Handler
	Balances       *balance.Handler
	Chat           *chat.Handler
	Currencies     *currency.Handler
	Authenticator  middleware.Authenticator
	AllowHeaderID  bool
	AllowedOrigins string

	OpenAPISpecPath string
	Validator       *middleware.RequestValidator

	Metrics     middleware.HTTPObserver
	MetricsPath string
	MetricsView http.Handler
}

func RegisterAllRoutes(router *chi.Mux, routes Routes) {
	router.Use(middleware.RequestID)
	router.Use(middleware.Recovery(routes.Base))
	router.Use(middleware.CORS(routes.AllowedOrigins))
	if routes.Metrics != nil {
		router.Use(middleware.Metrics(routes.Metrics))
	}
	router.Use(middleware.Logging)

	if routes.MetricsView != nil {
		router.Handle(routes.MetricsPath, routes.MetricsView)
	}

	if routes.OpenAPISpecPath != "" {
		router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
			http.ServeFile(w, r, routes.OpenAPISpecPath)
		})
		router.Handle("/swagger/*", swagger.Handler("/openapi.yml"))
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", routes.Health.Health)
		r.Get("/ping", routes.Health.Ping)
		r.Get("/currencies", routes.Currencies.ListRates)

		r.Group(func(pr chi.Router) {
			pr.Use(middleware.Authenticate(routes.Authenticator, routes.AllowHeaderID, routes.Base))
			if routes.Validator != nil {
				pr.Use(routes.Validator.Middleware)
			}

			pr.Post("/trips", routes.Trips.CreateTrip)
			pr.Route("/trips/{tripId}", func(tr chi.Router) {
				tr.Get("/", routes.Trips.GetTrip)
				tr.Post("/members", routes.Trips.AddMember)

				tr.Post("/expenses", routes.Expenses.CreateExpense)
				tr.Get("/expenses", routes.Expenses.ListTripExpenses)
				tr.Get("/settlements", routes.Expenses.GetTripSettlements)

				tr.Get("/balances", routes.Balances.TripBalances)
				tr.Get("/balances/settle-up", routes.Balances.SettleUp)

				tr.Get("/messages", routes.Chat.ListTripMessages)
			})

			pr.Route("/expenses/{expenseId}", func(er chi.Router) {
				er.Get("/", routes.Expenses.GetExpense)
				er.Patch("/", routes.Expenses.UpdateExpense)
				er.Delete("/", routes.Expenses.DeleteExpense)
				er.Get("/settlements", routes.Expenses.GetSettlementDetail)
				er.Post("/shares/{memberId}/pay", routes.Expenses.MarkSharePaid)
			})

			pr.Get("/users/me/balances", routes.Balances.MemberBalances)
		})
	})
}
