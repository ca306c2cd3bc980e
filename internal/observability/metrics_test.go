package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusTeapot, rr.Code)

	body := scrape(t, metrics)
	require.Contains(t, body, `flaelle_http_requests_total{code="418",route="/test"} 1`)
	require.Contains(t, body, `flaelle_http_request_duration_seconds_bucket{route="/test"`)
}

func TestMetricsMiddlewareDefaultsToOK(t *testing.T) {
	metrics := NewMetrics()
	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, 1.0, testutil.ToFloat64(metrics.requestsTotal.WithLabelValues("unknown", "200")))
}

func TestDomainCounters(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveMovement("sale", "ok")
	metrics.ObserveMovement("sale", "insufficient_stock")
	metrics.ObserveDistribution("ok", 2)
	metrics.ObserveDistribution("zero_supplier_value", 0)

	require.Equal(t, 1.0, testutil.ToFloat64(metrics.movements.WithLabelValues("sale", "insufficient_stock")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.distributions.WithLabelValues("zero_supplier_value")))
	require.Contains(t, scrape(t, metrics), "flaelle_cost_distribution_products_count 1")
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	metrics.ObserveMovement("sale", "ok")
	metrics.ObserveDistribution("ok", 1)

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
