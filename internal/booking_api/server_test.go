package booking_api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kerya-reservation-engine/internal/booking_api/middleware"
	"github.com/kerya-reservation-engine/internal/config"
	"github.com/kerya-reservation-engine/internal/data/memory"
	"github.com/kerya-reservation-engine/internal/domain/property"
	"github.com/kerya-reservation-engine/internal/domain/shared"
	"github.com/kerya-reservation-engine/internal/policy"
	"github.com/kerya-reservation-engine/internal/reservation"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	host     = "7"
	renter   = "11"
	intruder = "12"
	payments = "900"
)

type testServer struct {
	handler http.Handler
	store   *memory.Store
	points  *reservation.Points
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	now := func() time.Time { return time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC) }
	rules := policy.Rules{
		Window:       policy.WindowRules{MaxBookingDays: 30, MinNotice: 2 * time.Hour},
		Cancellation: policy.CancellationPolicy{NoticeHours: 24},
		ReviewDays:   14,
		Points:       policy.PointsRules{RegistrationBonus: 100, BookingEarn: 50, ReviewEarn: 25, PostCost: 10},
	}

	st := memory.NewStore()
	catalog := memory.NewPropertyCatalog(property.Property{
		ID:            42,
		HostID:        7,
		PricePerNight: decimal.RequireFromString("75.00"),
		MaxGuests:     4,
	})
	engine := reservation.NewEngine(logger, st, catalog, rules, 5*time.Second, reservation.WithClock(now))
	points := reservation.NewPoints(logger, st, rules.Points, 5*time.Second, reservation.WithClock(now))

	cfg := &config.Config{
		Application: config.ApplicationConfig{Env: "test"},
		Server: config.ServerConfig{
			Port:            8080,
			ShutdownTimeout: time.Second,
			ReadTimeout:     time.Second,
			WriteTimeout:    time.Second,
			IdleTimeout:     time.Second,
		},
	}
	server := NewServer(logger, cfg, engine, points)
	return &testServer{handler: server.Handler(), store: st, points: points}
}

func (s *testServer) do(t *testing.T, method, path, actor string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	return s.doAs(t, method, path, actor, "", body)
}

func (s *testServer) doAs(t *testing.T, method, path, actor, role string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.CorrelationIDHeader, "flow-"+actor)
	if actor != "" {
		req.Header.Set(middleware.ActorIDHeader, actor)
	}
	if role != "" {
		req.Header.Set(middleware.ActorRoleHeader, role)
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)

	var envelope map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	return rr.Code, envelope
}

func data(t *testing.T, envelope map[string]interface{}) map[string]interface{} {
	t.Helper()
	d, ok := envelope["data"].(map[string]interface{})
	require.True(t, ok, "'data' field should be a map, got %v", envelope)
	return d
}

func TestServer_BookingLifecycle(t *testing.T) {
	s := newTestServer(t)
	stay := map[string]interface{}{
		"property_id":  42,
		"check_in":     "2024-02-01",
		"check_out":    "2024-02-05",
		"guests_count": 2,
	}

	status, envelope := s.do(t, http.MethodPost, "/api/v1/bookings", renter, stay)
	require.Equal(t, http.StatusCreated, status)
	created := data(t, envelope)
	id := created["id"].(string)
	assert.Equal(t, "300.00", created["total_price"])
	assert.Equal(t, "pending", created["status"])
	assert.Equal(t, "flow-"+renter, envelope["correlation_id"])

	status, envelope = s.do(t, http.MethodPost, "/api/v1/bookings", intruder, map[string]interface{}{
		"property_id":  42,
		"check_in":     "2024-02-04",
		"check_out":    "2024-02-06",
		"guests_count": 1,
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "PROPERTY_NOT_AVAILABLE", envelope["error"].(map[string]interface{})["code"])

	status, _ = s.do(t, http.MethodPut, "/api/v1/bookings/"+id+"/confirm", renter, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, envelope = s.do(t, http.MethodPut, "/api/v1/bookings/"+id+"/confirm", host, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "confirmed", data(t, envelope)["status"])

	status, _ = s.do(t, http.MethodGet, "/api/v1/bookings/"+id, intruder, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, envelope = s.do(t, http.MethodGet, "/api/v1/properties/42/availability?from=2024-02-01&to=2024-03-01", intruder, nil)
	require.Equal(t, http.StatusOK, status)
	occupied := data(t, envelope)["occupied"].([]interface{})
	require.Len(t, occupied, 1)
	assert.Equal(t, id, occupied[0].(map[string]interface{})["booking_id"])

	status, envelope = s.do(t, http.MethodPut, "/api/v1/bookings/"+id+"/payment", renter, map[string]string{"status": "paid"})
	assert.Equal(t, http.StatusForbidden, status, "a renter cannot mark their own booking paid")
	assert.Equal(t, "FORBIDDEN", envelope["error"].(map[string]interface{})["code"])

	status, _ = s.do(t, http.MethodPut, "/api/v1/bookings/"+id+"/payment", intruder, map[string]string{"status": "refunded"})
	assert.Equal(t, http.StatusForbidden, status)

	status, envelope = s.do(t, http.MethodGet, "/api/v1/bookings/"+id, renter, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "unpaid", data(t, envelope)["payment_status"])

	status, envelope = s.doAs(t, http.MethodPut, "/api/v1/bookings/"+id+"/payment", payments, middleware.RolePaymentService, map[string]string{"status": "paid"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "paid", data(t, envelope)["payment_status"])

	status, envelope = s.do(t, http.MethodPut, "/api/v1/bookings/"+id+"/cancel", renter, map[string]string{"reason": "plans changed"})
	require.Equal(t, http.StatusOK, status)
	cancelled := data(t, envelope)
	assert.Equal(t, "cancelled", cancelled["status"])
	assert.Equal(t, "1", cancelled["refund_fraction"])
	assert.Equal(t, "300.00", cancelled["refund_amount"])

	status, envelope = s.do(t, http.MethodPut, "/api/v1/bookings/"+id+"/cancel", renter, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "BOOKING_CANNOT_CANCEL", envelope["error"].(map[string]interface{})["code"])

	status, envelope = s.do(t, http.MethodGet, "/api/v1/properties/42/availability?from=2024-02-01&to=2024-03-01", intruder, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, data(t, envelope)["occupied"])

	status, envelope = s.do(t, http.MethodGet, "/api/v1/bookings?role=host", host, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, envelope["data"], 1)

	pending, err := s.store.Outbox().GetPending(context.Background(), 0)
	require.NoError(t, err)
	require.NotEmpty(t, pending)
	first, err := pending[0].GetEvent()
	require.NoError(t, err)
	assert.Equal(t, shared.EventBookingCreated, first.Type)
	assert.Equal(t, "flow-"+renter, first.CorrelationID)
}

func TestServer_Points(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.points.GrantRegistrationBonus(context.Background(), 11))

	status, envelope := s.do(t, http.MethodPost, "/api/v1/accounts/11/points/spend", renter, map[string]string{"reference_id": "post-1"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(90), data(t, envelope)["balance"])

	status, envelope = s.do(t, http.MethodGet, "/api/v1/accounts/11/points/entries", renter, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, envelope["data"], 2)

	status, _ = s.do(t, http.MethodGet, "/api/v1/accounts/11/points", intruder, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, envelope = s.do(t, http.MethodPost, "/api/v1/accounts/12/points/spend", intruder, map[string]string{"reference_id": "post-2"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INSUFFICIENT_POINTS", envelope["error"].(map[string]interface{})["code"])
}

func TestServer_RequiresActor(t *testing.T) {
	s := newTestServer(t)

	status, envelope := s.do(t, http.MethodGet, "/api/v1/bookings", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", envelope["error"].(map[string]interface{})["code"])

	status, envelope = s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", envelope["status"])
}

func TestServer_RejectsOutOfRangePage(t *testing.T) {
	s := newTestServer(t)

	status, envelope := s.do(t, http.MethodGet, "/api/v1/bookings?page=92233720368547760&size=100", renter, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "BAD_REQUEST", envelope["error"].(map[string]interface{})["code"])

	status, envelope = s.do(t, http.MethodGet, "/api/v1/accounts/11/points/entries?page=92233720368547760&per_page=100", renter, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "BAD_REQUEST", envelope["error"].(map[string]interface{})["code"])
}
