package routes

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/saeid-a/GymSessionsBack/internal/config"
	"github.com/saeid-a/GymSessionsBack/internal/metrics"
	sessionws "github.com/saeid-a/GymSessionsBack/internal/websocket"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	reg := prometheus.NewRegistry()
	cfg := &config.Config{
		JWTSecret:               "test-secret",
		AppEnv:                  "test",
		TxMaxAttempts:           3,
		RateLimitPerMinute:      100,
		SessionsRequireApproval: true,
	}
	app := fiber.New()
	err := RegisterRoutes(app, cfg, Dependencies{
		Metrics:  metrics.NewCollector(reg),
		Gatherer: reg,
		Hub:      sessionws.NewHub(),
	})
	if err != nil {
		t.Fatalf("RegisterRoutes: %v", err)
	}
	return app
}

func TestRegisterRoutesRequiresDependencies(t *testing.T) {
	if err := RegisterRoutes(fiber.New(), &config.Config{}, Dependencies{}); err == nil {
		t.Fatalf("expected missing dependencies to fail")
	}
}

func TestAPIRequiresBearerToken(t *testing.T) {
	app := newTestApp(t)

	for _, target := range []string{"/api/v1/sessions", "/api/v1/bookings", "/api/v1/sessions/1/participants"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
		if err != nil {
			t.Fatalf("app.Test %s: %v", target, err)
		}
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", target, resp.StatusCode)
		}
	}
}

func TestWebSocketRouteRequiresToken(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/ws", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestMetricsEndpointIsServed(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

// Every documented path must be routed, and every API route documented.
func TestOpenAPIPathsMatchRoutes(t *testing.T) {
	app := newTestApp(t)
	doc, err := parseOpenAPISpec(openAPISpec)
	if err != nil {
		t.Fatalf("parseOpenAPISpec: %v", err)
	}

	routed := map[string]bool{}
	for _, route := range app.GetRoutes(true) {
		if !strings.HasPrefix(route.Path, "/api/v1/") {
			continue
		}
		routed[toOpenAPIPath(strings.TrimPrefix(route.Path, "/api/v1"))] = true
	}

	for path := range doc.Paths {
		if !routed[path] {
			t.Errorf("documented path %s has no route", path)
		}
	}
	for path := range routed {
		if _, ok := doc.Paths[path]; !ok {
			t.Errorf("route %s is not documented", path)
		}
	}
}

func toOpenAPIPath(path string) string {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		if strings.HasPrefix(segment, ":") {
			segments[i] = "{" + strings.TrimPrefix(segment, ":") + "}"
		}
	}
	return strings.Join(segments, "/")
}
