package trip_test

import (
	"context"
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
	"github.com/frahmantamala/trip-expense/internal/transport"
	"github.com/frahmantamala/trip-expense/internal/trip"
)

var _ = Describe("Trip Handler", func() {
	var (
		router  chi.Router
		service *trip.Service
	)

	withActor := func(req *http.Request, actor string) *http.Request {
		return req.WithContext(internal.ContextWithActor(req.Context(), actor))
	}

	decodeError := func(rec *httptest.ResponseRecorder) map[string]interface{} {
		var body map[string]map[string]interface{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		return body["error"]
	}

	BeforeEach(func() {
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = trip.NewService(newMockTripRepository(), slogger)
		handler := trip.NewHandler(&transport.BaseHandler{Logger: slogger}, service)

		router = chi.NewRouter()
		router.Post("/trips", handler.CreateTrip)
		router.Get("/trips/{tripId}", handler.GetTrip)
		router.Post("/trips/{tripId}/members", handler.AddMember)
	})

	It("creates a trip for the caller", func() {
		req := withActor(httptest.NewRequest(http.MethodPost, "/trips", strings.NewReader(`{"name":"Lisbon","members":["bob"]}`)), "alice")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusCreated))
		var t trip.Trip
		Expect(json.Unmarshal(rec.Body.Bytes(), &t)).To(Succeed())
		Expect(t.OwnerID).To(Equal("alice"))
		Expect(t.MemberIDs()).To(Equal([]string{"alice", "bob"}))
	})

	It("requires an authenticated caller", func() {
		req := httptest.NewRequest(http.MethodPost, "/trips", strings.NewReader(`{"name":"Lisbon"}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		Expect(decodeError(rec)["code"]).To(Equal(string(internal.ErrCodeMissingToken)))
	})

	It("rejects unknown fields", func() {
		req := withActor(httptest.NewRequest(http.MethodPost, "/trips", strings.NewReader(`{"name":"Lisbon","budget":10}`)), "alice")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(decodeError(rec)["code"]).To(Equal(string(internal.ErrCodeInvalidRequestBody)))
	})

	It("maps membership failures to 403 and 404", func() {
		t, err := service.CreateTrip(context.Background(), "alice", trip.CreateTripDTO{Name: "Lisbon"})
		Expect(err).NotTo(HaveOccurred())

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, withActor(httptest.NewRequest(http.MethodGet, "/trips/"+t.ID, nil), "mallory"))
		Expect(rec.Code).To(Equal(http.StatusForbidden))

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, withActor(httptest.NewRequest(http.MethodGet, "/trips/missing", nil), "alice"))
		Expect(rec.Code).To(Equal(http.StatusNotFound))
		Expect(decodeError(rec)["code"]).To(Equal(string(internal.ErrCodeTripNotFound)))
	})

	It("adds a member and reports duplicates as conflicts", func() {
		t, err := service.CreateTrip(context.Background(), "alice", trip.CreateTripDTO{Name: "Lisbon"})
		Expect(err).NotTo(HaveOccurred())

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, withActor(httptest.NewRequest(http.MethodPost, "/trips/"+t.ID+"/members", strings.NewReader(`{"userId":"bob"}`)), "alice"))
		Expect(rec.Code).To(Equal(http.StatusCreated))

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, withActor(httptest.NewRequest(http.MethodPost, "/trips/"+t.ID+"/members", strings.NewReader(`{"userId":"bob"}`)), "alice"))
		Expect(rec.Code).To(Equal(http.StatusConflict))
	})
})
