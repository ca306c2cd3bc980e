package costing

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/flaelle/flaelle/internal/inventory"
)

type stubDistribution struct {
	distributeFn func(ctx context.Context, id, actor string) (Result, error)
	previewFn    func(ctx context.Context, id string) (Result, error)
}

func (s *stubDistribution) DistributeCosts(ctx context.Context, id, actor string) (Result, error) {
	return s.distributeFn(ctx, id, actor)
}

func (s *stubDistribution) PreviewDistribution(ctx context.Context, id string) (Result, error) {
	return s.previewFn(ctx, id)
}

func newTestRouter(svc DistributionService) http.Handler {
	r := chi.NewRouter()
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)
	r.Route("/shipments", h.MountRoutes)
	return r
}

func TestHandleDistributeReturnsPlan(t *testing.T) {
	var gotID string
	svc := &stubDistribution{distributeFn: func(ctx context.Context, id, actor string) (Result, error) {
		gotID = id
		return Result{ShipmentID: id, Applied: true, Warning: OverwriteWarning, Plan: Plan{
			Coefficient: decimal.RequireFromString("69.565217"),
			Allocations: []Allocation{{ProductID: "p1", UnitAcquisitionCost: decimal.NewFromInt(55652)}},
		}}, nil
	}}
	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/shipments/s1/distribution", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "s1", gotID)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, true, body["applied"])
	require.Equal(t, OverwriteWarning, body["warning"])
	require.Len(t, body["allocations"], 1)
}

func TestHandleDistributeMapsErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{err: ErrZeroSupplierValue, status: http.StatusUnprocessableEntity},
		{err: ErrDistributionBusy, status: http.StatusConflict},
		{err: inventory.ErrShipmentNotFound, status: http.StatusNotFound},
	}
	for _, tc := range cases {
		svc := &stubDistribution{distributeFn: func(ctx context.Context, id, actor string) (Result, error) {
			return Result{}, tc.err
		}}
		rec := httptest.NewRecorder()
		newTestRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/shipments/s1/distribution", nil))
		require.Equal(t, tc.status, rec.Code, tc.err.Error())
		require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	}
}

func TestHandlePreview(t *testing.T) {
	svc := &stubDistribution{previewFn: func(ctx context.Context, id string) (Result, error) {
		return Result{ShipmentID: id}, nil
	}}
	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/shipments/s9/distribution", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"shipmentId":"s9"`)
	require.Contains(t, rec.Body.String(), `"applied":false`)
}
