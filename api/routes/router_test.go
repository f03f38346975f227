package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/orderdesk/orderdesk-backend/pkg/config"
)

func testDeps() Deps {
	return Deps{
		Config: &config.Config{
			App: config.AppConfig{Env: "test"},
			JWT: config.JWTConfig{Secret: "secret", Issuer: "orderdesk-test", ExpirationMinutes: 15},
		},
	}
}

func TestHealthLive(t *testing.T) {
	router := NewRouter(testDeps())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var payload struct {
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Data["status"] != "live" {
		t.Fatalf("payload = %+v", payload)
	}
	if rec.Header().Get("X-OrderDesk-Env") != "test" {
		t.Fatalf("env header = %q", rec.Header().Get("X-OrderDesk-Env"))
	}
}

func TestAPIRequiresAuth(t *testing.T) {
	router := NewRouter(testDeps())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestCommerceRoutesAreMounted(t *testing.T) {
	router := NewRouter(testDeps())

	// 401 (not 404) means the route exists behind auth.
	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/carts"},
		{http.MethodGet, "/api/v1/carts/0b09e9a5-0d52-4c0f-9c6e-0a2c44c9a111/validate"},
		{http.MethodPost, "/api/v1/carts/0b09e9a5-0d52-4c0f-9c6e-0a2c44c9a111/checkout"},
		{http.MethodPost, "/api/v1/orders/0b09e9a5-0d52-4c0f-9c6e-0a2c44c9a111/status"},
	}
	for _, route := range routes {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(route.method, route.path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: status = %d, want 401", route.method, route.path, rec.Code)
		}
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	router := NewRouter(testDeps())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}
