package telemetry

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsMiddlewareLabelsByRoutePattern(t *testing.T) {
	router := chi.NewRouter()
	router.Use(MetricsMiddleware)
	router.Get("/teapots/{teapotID}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/teapots/42", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d, want 418", rec.Code)
	}

	// Counted under the route pattern, not the concrete path.
	count := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/teapots/{teapotID}", "418"))
	if count != 1 {
		t.Errorf("pattern-labeled count = %v, want 1", count)
	}
	leaked := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/teapots/42", "418"))
	if leaked != 0 {
		t.Errorf("raw-path-labeled count = %v, want 0", leaked)
	}
}

func TestMetricsMiddlewareDefaultsStatusTo200(t *testing.T) {
	router := chi.NewRouter()
	router.Use(MetricsMiddleware)
	router.Get("/silent", func(w http.ResponseWriter, r *http.Request) {
		// Neither WriteHeader nor Write called.
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/silent", nil))

	count := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/silent", "200"))
	if count != 1 {
		t.Errorf("count = %v, want 1", count)
	}
}
