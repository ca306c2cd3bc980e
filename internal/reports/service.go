package reports

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/flaelle/flaelle/internal/shared"
)

// RepositoryPort exposes the aggregate queries reports rely on.
type RepositoryPort interface {
	Totals(ctx context.Context, filter Filter) (Totals, error)
	DailySales(ctx context.Context, filter Filter) ([]DailyAmount, error)
	DailyExpenses(ctx context.Context, filter Filter) ([]DailyAmount, error)
	TopProducts(ctx context.Context, filter Filter, limit int) ([]TopProduct, error)
	ShipmentSales(ctx context.Context) ([]ShipmentSales, error)
	SaleRows(ctx context.Context, filter Filter) ([]SaleRow, error)
}

// Service computes dashboard reports.
type Service struct {
	repo   RepositoryPort
	cache  *Cache
	logger *slog.Logger
}

// NewService wires a Repository with an optional Cache.
func NewService(repo RepositoryPort, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, logger: logger}
}

// Dashboard loads summary, daily series and top products concurrently.
func (s *Service) Dashboard(ctx context.Context, filter Filter) (Dashboard, error) {
	if err := validateFilter(filter); err != nil {
		return Dashboard{}, err
	}
	key, err := s.cache.BuildKey(ctx, "dashboard", filterToken(filter))
	if err != nil {
		s.logger.Warn("reports cache key", slog.Any("error", err))
		return s.loadDashboard(ctx, filter)
	}
	var out Dashboard
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		return s.loadDashboard(ctx, filter)
	})
	return out, err
}

func (s *Service) loadDashboard(ctx context.Context, filter Filter) (Dashboard, error) {
	var (
		totals   Totals
		sales    []DailyAmount
		expenses []DailyAmount
		top      []TopProduct
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		totals, err = s.repo.Totals(ctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		sales, err = s.repo.DailySales(ctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		expenses, err = s.repo.DailyExpenses(ctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		top, err = s.repo.TopProducts(ctx, filter, DefaultTopProducts)
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return Dashboard{
		Summary:     totals.Summary(),
		Daily:       MergeDaily(sales, expenses),
		TopProducts: RankProducts(top, DefaultTopProducts),
	}, nil
}

// Shipments reports the performance of every shipment.
func (s *Service) Shipments(ctx context.Context) (ShipmentReport, error) {
	key, err := s.cache.BuildKey(ctx, "shipments")
	if err != nil {
		s.logger.Warn("reports cache key", slog.Any("error", err))
		return s.loadShipments(ctx)
	}
	var out ShipmentReport
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		return s.loadShipments(ctx)
	})
	return out, err
}

func (s *Service) loadShipments(ctx context.Context) (ShipmentReport, error) {
	rows, err := s.repo.ShipmentSales(ctx)
	if err != nil {
		return ShipmentReport{}, err
	}
	return BuildShipmentReport(rows), nil
}

// ExportData gathers everything the spreadsheet export needs.
func (s *Service) ExportData(ctx context.Context, filter Filter) (Dashboard, ShipmentReport, []SaleRow, error) {
	if err := validateFilter(filter); err != nil {
		return Dashboard{}, ShipmentReport{}, nil, err
	}
	var (
		dashboard Dashboard
		shipments ShipmentReport
		sales     []SaleRow
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		dashboard, err = s.loadDashboard(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		shipments, err = s.loadShipments(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		sales, err = s.repo.SaleRows(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, ShipmentReport{}, nil, err
	}
	return dashboard, shipments, sales, nil
}

func validateFilter(filter Filter) error {
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return shared.NewValidationError("to", "must not be before from")
	}
	return nil
}

func filterToken(filter Filter) string {
	return dayToken(filter.From) + ":" + dayToken(filter.To)
}

func dayToken(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.DateOnly)
}
