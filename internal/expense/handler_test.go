package expense_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/trip-expense/internal"
	"github.com/frahmantamala/trip-expense/internal/expense"
	"github.com/frahmantamala/trip-expense/internal/expense/split"
	"github.com/frahmantamala/trip-expense/internal/transport"
)

var _ = Describe("Expense Handler", func() {
	var router chi.Router

	do := func(method, path, actor, body string) *httptest.ResponseRecorder {
		var req *http.Request
		if body == "" {
			req = httptest.NewRequest(method, path, nil)
		} else {
			req = httptest.NewRequest(method, path, strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
		}
		if actor != "" {
			req = req.WithContext(internal.ContextWithActor(req.Context(), actor))
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	errorCode := func(rec *httptest.ResponseRecorder) string {
		var body struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		return body.Error.Code
	}

	BeforeEach(func() {
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service := expense.NewService(
			newMockExpenseRepository(),
			stubTrips{"t1": {"alice", "bob", "carol"}},
			newFakeChat(),
			nil,
			newConverter(),
			split.NewFactory(split.DefaultOptions()),
			slogger,
		)
		handler := expense.NewHandler(&transport.BaseHandler{Logger: slogger}, service)

		router = chi.NewRouter()
		router.Post("/trips/{tripId}/expenses", handler.CreateExpense)
		router.Get("/trips/{tripId}/expenses", handler.ListTripExpenses)
		router.Get("/trips/{tripId}/settlements", handler.GetTripSettlements)
		router.Get("/expenses/{expenseId}", handler.GetExpense)
		router.Patch("/expenses/{expenseId}", handler.UpdateExpense)
		router.Delete("/expenses/{expenseId}", handler.DeleteExpense)
		router.Post("/expenses/{expenseId}/shares/{memberId}/pay", handler.MarkSharePaid)
		router.Get("/expenses/{expenseId}/settlements", handler.GetSettlementDetail)
	})

	createDinner := func() string {
		rec := do(http.MethodPost, "/trips/t1/expenses", "alice",
			`{"amount":90,"currency":"USD","description":"Dinner","category":"food","splitType":"even"}`)
		Expect(rec.Code).To(Equal(http.StatusCreated))
		var created map[string]interface{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &created)).To(Succeed())
		return created["id"].(string)
	}

	It("creates an expense and returns camelCase fields with shares", func() {
		rec := do(http.MethodPost, "/trips/t1/expenses", "alice",
			`{"amount":90,"currency":"USD","description":"Dinner","splitBetween":["alice","bob","carol"]}`)
		Expect(rec.Code).To(Equal(http.StatusCreated))

		var created map[string]interface{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &created)).To(Succeed())
		Expect(created["contributorId"]).To(Equal("alice"))
		Expect(created["settlementStatus"]).To(Equal("partial"))
		Expect(created["status"]).To(Equal("pending"))
		Expect(created["shares"]).To(HaveLen(3))
		Expect(created).NotTo(HaveKey("warnings"))
	})

	It("maps validation, auth and membership errors", func() {
		rec := do(http.MethodPost, "/trips/t1/expenses", "alice", `{"amount":-1,"currency":"USD","description":"x"}`)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))

		rec = do(http.MethodPost, "/trips/t1/expenses", "alice", `not json`)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(errorCode(rec)).To(Equal(string(internal.ErrCodeInvalidRequestBody)))

		rec = do(http.MethodPost, "/trips/t1/expenses", "", `{"amount":1,"currency":"USD","description":"x"}`)
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))

		rec = do(http.MethodPost, "/trips/t1/expenses", "mallory", `{"amount":1,"currency":"USD","description":"x"}`)
		Expect(rec.Code).To(Equal(http.StatusForbidden))
		Expect(errorCode(rec)).To(Equal(string(internal.ErrCodeNotTripMember)))

		rec = do(http.MethodPost, "/trips/t9/expenses", "alice", `{"amount":1,"currency":"USD","description":"x"}`)
		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("marks a share paid once and then answers 409", func() {
		id := createDinner()

		rec := do(http.MethodPost, "/expenses/"+id+"/shares/bob/pay", "bob", "")
		Expect(rec.Code).To(Equal(http.StatusOK))

		rec = do(http.MethodPost, "/expenses/"+id+"/shares/bob/pay", "bob", "")
		Expect(rec.Code).To(Equal(http.StatusConflict))
		Expect(errorCode(rec)).To(Equal(string(internal.ErrCodeShareAlreadyPaid)))

		rec = do(http.MethodPost, "/expenses/"+id+"/shares/carol/pay", "bob", "")
		Expect(rec.Code).To(Equal(http.StatusForbidden))

		rec = do(http.MethodPost, "/expenses/"+id+"/shares/zed/pay", "alice", "")
		Expect(rec.Code).To(Equal(http.StatusNotFound))
		Expect(errorCode(rec)).To(Equal(string(internal.ErrCodeShareNotFound)))
	})

	It("returns the settlement detail", func() {
		id := createDinner()
		Expect(do(http.MethodPost, "/expenses/"+id+"/shares/bob/pay", "bob", "").Code).To(Equal(http.StatusOK))

		rec := do(http.MethodGet, "/expenses/"+id+"/settlements", "carol", "")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var body struct {
			Expense     map[string]interface{} `json:"expense"`
			Settlements struct {
				TotalAmount      float64       `json:"totalAmount"`
				TotalPaid        float64       `json:"totalPaid"`
				TotalPending     float64       `json:"totalPending"`
				Pending          []interface{} `json:"pending"`
				Paid             []interface{} `json:"paid"`
				Status           string        `json:"status"`
				SettlementStatus string        `json:"settlementStatus"`
			} `json:"settlements"`
		}
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		Expect(body.Expense["id"]).To(Equal(id))
		Expect(body.Settlements.TotalAmount).To(Equal(90.0))
		Expect(body.Settlements.TotalPaid).To(Equal(60.0))
		Expect(body.Settlements.TotalPending).To(Equal(30.0))
		Expect(body.Settlements.Paid).To(HaveLen(2))
		Expect(body.Settlements.Pending).To(HaveLen(1))
		Expect(body.Settlements.Status).To(Equal("pending"))
		Expect(body.Settlements.SettlementStatus).To(Equal("partial"))
	})

	It("lists expenses with a summary and validates paging", func() {
		createDinner()

		rec := do(http.MethodGet, "/trips/t1/expenses?page=1&limit=10&category=food", "bob", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		var body struct {
			Expenses []interface{}   `json:"expenses"`
			Total    int             `json:"total"`
			Summary  expense.Summary `json:"summary"`
		}
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		Expect(body.Total).To(Equal(1))
		Expect(body.Summary.TotalAmountUSD).To(Equal(90.0))
		Expect(body.Summary.CurrencyBreakdown).To(HaveKey("USD"))

		rec = do(http.MethodGet, "/trips/t1/expenses?limit=abc", "bob", "")
		Expect(rec.Code).To(Equal(http.StatusBadRequest))

		rec = do(http.MethodGet, "/trips/t1/expenses?limit=0", "bob", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
	})

	It("edits and deletes as the contributor only", func() {
		id := createDinner()

		rec := do(http.MethodPatch, "/expenses/"+id, "bob", `{"description":"mine"}`)
		Expect(rec.Code).To(Equal(http.StatusForbidden))
		Expect(errorCode(rec)).To(Equal(string(internal.ErrCodeNotContributor)))

		rec = do(http.MethodPatch, "/expenses/"+id, "alice", `{"description":"Dinner by the river"}`)
		Expect(rec.Code).To(Equal(http.StatusOK))

		rec = do(http.MethodDelete, "/expenses/"+id, "alice", "")
		Expect(rec.Code).To(Equal(http.StatusNoContent))

		rec = do(http.MethodGet, "/expenses/"+id, "alice", "")
		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("summarizes a member's settlements across the trip", func() {
		createDinner()
		rec := do(http.MethodGet, "/trips/t1/settlements?member=bob", "alice", "")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var body map[string]interface{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		Expect(body["memberId"]).To(Equal("bob"))
		Expect(body["totalPending"]).To(Equal(30.0))
		Expect(body["referenceCurrency"]).To(Equal("USD"))
	})
})
