package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

type recordingObserver struct {
	method string
	route  string
	status int
}

func (o *recordingObserver) Observe(method, route string, status int, _ time.Duration) {
	o.method, o.route, o.status = method, route, status
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	obs := &recordingObserver{}
	r := chi.NewRouter()
	r.Use(Metrics(obs))
	r.Get("/api/v1/orders/{orderId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/orders/42", nil))

	if obs.route != "/api/v1/orders/{orderId}" {
		t.Fatalf("expected route pattern, got %q", obs.route)
	}
	if obs.status != http.StatusTeapot || obs.method != http.MethodGet {
		t.Fatalf("unexpected observation %+v", obs)
	}
}
