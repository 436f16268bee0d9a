package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/pennyekart/pennyekart-backend/api/controllers"
	"github.com/pennyekart/pennyekart-backend/internal/cart"
	"github.com/pennyekart/pennyekart-backend/internal/fulfillment"
	"github.com/pennyekart/pennyekart-backend/internal/orders"
	"github.com/pennyekart/pennyekart-backend/pkg/auth"
	"github.com/pennyekart/pennyekart-backend/pkg/config"
	"github.com/pennyekart/pennyekart-backend/pkg/db/models"
	"github.com/pennyekart/pennyekart-backend/pkg/enums"
	"github.com/pennyekart/pennyekart-backend/pkg/logger"
	"github.com/pennyekart/pennyekart-backend/pkg/metrics"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

type stubCart struct{}

func (stubCart) Get(_ context.Context, userID uuid.UUID) (*cart.Cart, error) {
	return &cart.Cart{UserID: userID, Items: []models.CartItem{}, TotalPrice: decimal.Zero}, nil
}

func (stubCart) Add(_ context.Context, userID uuid.UUID, _ cart.AddInput) (*cart.Cart, error) {
	return &cart.Cart{UserID: userID}, nil
}

func (stubCart) Remove(_ context.Context, userID, _ uuid.UUID) (*cart.Cart, error) {
	return &cart.Cart{UserID: userID}, nil
}

func (stubCart) UpdateQuantity(_ context.Context, userID, _ uuid.UUID, _ int) (*cart.Cart, error) {
	return &cart.Cart{UserID: userID}, nil
}

func (stubCart) Clear(context.Context, uuid.UUID) error {
	return nil
}

type stubFulfillment struct {
	lastActor fulfillment.Actor
	lastKey   string
}

func (s *stubFulfillment) Advance(_ context.Context, actor fulfillment.Actor, orderID uuid.UUID, key string) (*fulfillment.TransitionResult, error) {
	s.lastActor = actor
	s.lastKey = key
	return &fulfillment.TransitionResult{
		Order: &models.Order{ID: orderID, Status: enums.OrderStatusPickup},
		Transition: models.OrderStatusTransition{
			OrderID:    orderID,
			FromStatus: enums.OrderStatusAccepted,
			ToStatus:   enums.OrderStatusPickup,
		},
	}, nil
}

func (s *stubFulfillment) ConfirmSellerOrder(context.Context, uuid.UUID, uuid.UUID) (*fulfillment.TransitionResult, error) {
	return &fulfillment.TransitionResult{}, nil
}

func (s *stubFulfillment) DeclineSellerOrder(context.Context, uuid.UUID, uuid.UUID, string) (*fulfillment.TransitionResult, error) {
	return &fulfillment.TransitionResult{}, nil
}

func (s *stubFulfillment) AssignDeliveryStaff(_ context.Context, _ fulfillment.Actor, orderID, staffID uuid.UUID) (*models.Order, error) {
	return &models.Order{ID: orderID, AssignedDeliveryStaffID: &staffID}, nil
}

func (s *stubFulfillment) ListStaffOrders(context.Context, uuid.UUID, orders.StaffOrderFilter) (*orders.OrderList, error) {
	return &orders.OrderList{Orders: []models.Order{}}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "pennyekart", ExpirationMinutes: 15},
	}
}

func bearer(t *testing.T, cfg *config.Config, role enums.UserRole) (uuid.UUID, string) {
	t.Helper()
	userID := uuid.New()
	token, err := auth.MintAccessToken(cfg.JWT, time.Now(), auth.AccessTokenPayload{UserID: userID, Role: role})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return userID, "Bearer " + token
}

func newTestRouter(t *testing.T, ready map[string]controllers.Pinger, fulfill fulfillment.Service) (*config.Config, http.Handler) {
	t.Helper()
	cfg := testConfig()
	reg := prometheus.NewRegistry()
	metrics.NewCommerceMetrics(reg).IncTransition("pickup")
	handler := NewRouter(cfg, logger.Nop(), Deps{Ready: ready, Metrics: reg}, Services{
		Cart:        stubCart{},
		Fulfillment: fulfill,
	})
	return cfg, handler
}

func TestHealthRoutes(t *testing.T) {
	_, router := newTestRouter(t, map[string]controllers.Pinger{"db": stubPinger{}}, nil)

	for _, path := range []string{"/health/live", "/health/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, rec.Code)
		}
		if rec.Header().Get("X-Pennyekart-Env") != "test" {
			t.Fatalf("%s: expected env header", path)
		}
	}
}

func TestHealthReadyReportsFailingDependency(t *testing.T) {
	_, router := newTestRouter(t, map[string]controllers.Pinger{
		"db":    stubPinger{},
		"redis": stubPinger{err: context.DeadlineExceeded},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"redis":"down"`) {
		t.Fatalf("expected redis check in body, got %s", rec.Body.String())
	}
}

func TestMetricsRoute(t *testing.T) {
	_, router := newTestRouter(t, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "order_transitions_total") {
		t.Fatalf("expected commerce metrics exposed, got %s", rec.Body.String())
	}
}

func TestAPIRequiresToken(t *testing.T) {
	_, router := newTestRouter(t, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestRoleGroups(t *testing.T) {
	cfg, router := newTestRouter(t, nil, &stubFulfillment{})

	tests := []struct {
		name   string
		role   enums.UserRole
		method string
		path   string
		want   int
	}{
		{"customer reads cart", enums.UserRoleCustomer, http.MethodGet, "/api/v1/cart", http.StatusOK},
		{"staff cannot read cart", enums.UserRoleDeliveryStaff, http.MethodGet, "/api/v1/cart", http.StatusForbidden},
		{"customer cannot read stock", enums.UserRoleCustomer, http.MethodGet, "/api/v1/admin/stock", http.StatusForbidden},
		{"seller cannot list deliveries", enums.UserRoleSeller, http.MethodGet, "/api/v1/delivery/orders", http.StatusForbidden},
		{"staff lists deliveries", enums.UserRoleDeliveryStaff, http.MethodGet, "/api/v1/delivery/orders?view=active", http.StatusOK},
		{"admin without service", enums.UserRoleAdmin, http.MethodGet, "/api/v1/admin/stock", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		_, token := bearer(t, cfg, tt.role)
		req := httptest.NewRequest(tt.method, tt.path, nil)
		req.Header.Set("Authorization", token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Fatalf("%s: expected %d got %d (%s)", tt.name, tt.want, rec.Code, rec.Body.String())
		}
	}
}

func TestDeliveryAdvancePassesActorAndKey(t *testing.T) {
	fulfill := &stubFulfillment{}
	cfg, router := newTestRouter(t, nil, fulfill)
	staffID, token := bearer(t, cfg, enums.UserRoleDeliveryStaff)
	orderID := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/delivery/orders/"+orderID.String()+"/advance", nil)
	req.Header.Set("Authorization", token)
	req.Header.Set("Idempotency-Key", "adv-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
	if fulfill.lastActor.UserID != staffID || fulfill.lastActor.Role != enums.UserRoleDeliveryStaff {
		t.Fatalf("unexpected actor %+v", fulfill.lastActor)
	}
	if fulfill.lastKey != "adv-1" {
		t.Fatalf("expected idempotency key forwarded, got %q", fulfill.lastKey)
	}

	var body struct {
		Data struct {
			Order struct {
				Status string `json:"status"`
			} `json:"order"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.Order.Status != string(enums.OrderStatusPickup) {
		t.Fatalf("expected pickup got %q", body.Data.Order.Status)
	}
}

func TestDeliveryOrdersRejectsUnknownView(t *testing.T) {
	cfg, router := newTestRouter(t, nil, &stubFulfillment{})
	_, token := bearer(t, cfg, enums.UserRoleDeliveryStaff)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/delivery/orders?view=archived", nil)
	req.Header.Set("Authorization", token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}
