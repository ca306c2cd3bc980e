package reports

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/flaelle/flaelle/internal/inventory"
	"github.com/flaelle/flaelle/internal/shared"
)

type stubRepo struct {
	totalsCalls atomic.Int32
	failTop     bool
}

func (s *stubRepo) Totals(ctx context.Context, filter Filter) (Totals, error) {
	s.totalsCalls.Add(1)
	return Totals{
		SalesRevenue: decimal.NewFromInt(25000),
		SalesProfit:  decimal.NewFromInt(7500),
		Purchases:    decimal.NewFromInt(1039),
		Shipments:    decimal.NewFromInt(160000),
	}, nil
}

func (s *stubRepo) DailySales(ctx context.Context, filter Filter) ([]DailyAmount, error) {
	return []DailyAmount{{Day: day("2026-03-02"), Amount: decimal.NewFromInt(25000)}}, nil
}

func (s *stubRepo) DailyExpenses(ctx context.Context, filter Filter) ([]DailyAmount, error) {
	return []DailyAmount{{Day: day("2026-03-01"), Amount: decimal.NewFromInt(161039)}}, nil
}

func (s *stubRepo) TopProducts(ctx context.Context, filter Filter, limit int) ([]TopProduct, error) {
	if s.failTop {
		return nil, errors.New("boom")
	}
	return []TopProduct{{Name: "Robe", Quantity: 5}}, nil
}

func (s *stubRepo) ShipmentSales(ctx context.Context) ([]ShipmentSales, error) {
	return []ShipmentSales{{
		Shipment: inventory.Shipment{ID: "s1", Name: "Robes", Status: inventory.ShipmentActive, TotalAcquisitionCost: decimal.NewFromInt(160000), EstimatedItemCount: 10},
		Revenue:  decimal.NewFromInt(25000), ItemsSold: 5,
	}}, nil
}

func (s *stubRepo) SaleRows(ctx context.Context, filter Filter) ([]SaleRow, error) {
	return []SaleRow{{Date: day("2026-03-02"), ProductName: "Robe", Quantity: 5, TotalPrice: decimal.NewFromInt(25000), Profit: decimal.NewFromInt(7500), ShipmentName: "Robes"}}, nil
}

func newCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewCache(client, time.Minute), mr
}

func TestDashboardCombinesSources(t *testing.T) {
	svc := NewService(&stubRepo{}, nil, nil)
	d, err := svc.Dashboard(context.Background(), Filter{})
	require.NoError(t, err)
	require.Equal(t, "25000", d.Summary.Revenue.String())
	require.Equal(t, "161039", d.Summary.Expenses.String())
	require.Len(t, d.Daily, 2)
	require.Equal(t, "2026-03-01", d.Daily[0].Date)
	require.Equal(t, []TopProduct{{Name: "Robe", Quantity: 5}}, d.TopProducts)
}

func TestDashboardPropagatesLoadError(t *testing.T) {
	svc := NewService(&stubRepo{failTop: true}, nil, nil)
	_, err := svc.Dashboard(context.Background(), Filter{})
	require.Error(t, err)
}

func TestDashboardRejectsInvertedRange(t *testing.T) {
	svc := NewService(&stubRepo{}, nil, nil)
	_, err := svc.Dashboard(context.Background(), Filter{From: day("2026-03-02"), To: day("2026-03-01")})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestDashboardIsCachedUntilBump(t *testing.T) {
	repo := &stubRepo{}
	cache, _ := newCache(t)
	svc := NewService(repo, cache, nil)
	ctx := context.Background()

	first, err := svc.Dashboard(ctx, Filter{})
	require.NoError(t, err)
	second, err := svc.Dashboard(ctx, Filter{})
	require.NoError(t, err)
	require.Equal(t, int32(1), repo.totalsCalls.Load())
	require.True(t, first.Summary.Revenue.Equal(second.Summary.Revenue))

	require.NoError(t, cache.Bump(ctx))
	_, err = svc.Dashboard(ctx, Filter{})
	require.NoError(t, err)
	require.Equal(t, int32(2), repo.totalsCalls.Load())
}

func TestInvalidateOnWriteBumpsOnlyOnSuccessfulWrites(t *testing.T) {
	cache, _ := newCache(t)
	ctx := context.Background()
	start, err := cache.Version(ctx)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(cache.InvalidateOnWrite)
	r.Get("/x", func(w http.ResponseWriter, r *http.Request) {})
	r.Post("/ok", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusCreated) })
	r.Post("/bad", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusConflict) })

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/x", nil),
		httptest.NewRequest(http.MethodPost, "/bad", nil),
	} {
		r.ServeHTTP(httptest.NewRecorder(), req)
	}
	ver, err := cache.Version(ctx)
	require.NoError(t, err)
	require.Equal(t, start, ver)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/ok", nil))
	ver, err = cache.Version(ctx)
	require.NoError(t, err)
	require.Equal(t, start+1, ver)
}

func TestExportWritesWorkbook(t *testing.T) {
	router := chi.NewRouter()
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), NewService(&stubRepo{}, nil, nil))
	h.now = func() time.Time { return day("2026-03-05") }
	router.Route("/reports", h.MountRoutes)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/export.xlsx?from=2026-03-01&to=2026-03-31", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Header().Get("Content-Disposition"), "flaelle-report-20260305.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	require.Equal(t, []string{summarySheet, salesSheet, shipmentsSheet}, f.GetSheetList())
	revenue, err := f.GetCellValue(summarySheet, "B2")
	require.NoError(t, err)
	require.Equal(t, "25000", revenue)
	product, err := f.GetCellValue(salesSheet, "B2")
	require.NoError(t, err)
	require.Equal(t, "Robe", product)
	progress, err := f.GetCellValue(shipmentsSheet, "I2")
	require.NoError(t, err)
	require.Equal(t, "50", progress)
}

func TestSummaryRejectsBadDate(t *testing.T) {
	router := chi.NewRouter()
	router.Route("/reports", NewHandler(nil, NewService(&stubRepo{}, nil, nil)).MountRoutes)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/summary?from=03/01/2026", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
