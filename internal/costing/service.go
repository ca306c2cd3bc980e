package costing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flaelle/flaelle/internal/inventory"
	"github.com/flaelle/flaelle/internal/platform/cache"
	"github.com/flaelle/flaelle/internal/shared"
)

// OverwriteWarning accompanies every applied distribution.
const OverwriteWarning = "unit acquisition costs of every product in the shipment were overwritten; profits of past sales are unchanged"

const lockTTL = 30 * time.Second

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	GetShipmentForUpdate(ctx context.Context, id string) (inventory.Shipment, error)
	LockShipmentItems(ctx context.Context, shipmentID string) ([]Item, error)
	UpdateProductCost(ctx context.Context, productID string, cost decimal.Decimal) error
	SetCoefficient(ctx context.Context, shipmentID string, coefficient decimal.Decimal) error
}

// Locker serializes distributions of the same shipment across processes.
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort receives distribution outcomes.
type MetricsPort interface {
	ObserveDistribution(outcome string, products int)
}

// Result is returned by DistributeCosts and PreviewDistribution.
type Result struct {
	ShipmentID string `json:"shipmentId"`
	Applied    bool   `json:"applied"`
	Warning    string `json:"warning,omitempty"`
	Plan
}

// Service applies shipment cost distributions.
type Service struct {
	repo    RepositoryPort
	locker  Locker
	audit   AuditPort
	metrics MetricsPort
	logger  *slog.Logger
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	Locker  Locker
	Logger  *slog.Logger
	Metrics MetricsPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, locker: cfg.Locker, audit: audit, metrics: cfg.Metrics, logger: logger}
}

// DistributeCosts overwrites the unit acquisition cost of every product linked
// to the shipment and stores the coefficient. Shipment and product rows stay
// locked until the new costs are committed, so a concurrent sale sees either
// the old or the new cost of a product, never a mix within the shipment.
func (s *Service) DistributeCosts(ctx context.Context, shipmentID, actor string) (Result, error) {
	if err := validateShipmentID(shipmentID); err != nil {
		return Result{}, err
	}
	release, err := s.lock(ctx, shipmentID)
	if err != nil {
		s.observe(err, 0)
		return Result{}, err
	}
	defer release()

	var plan Plan
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		plan, err = planFor(ctx, tx, shipmentID)
		if err != nil {
			return err
		}
		for _, alloc := range plan.Allocations {
			if err := tx.UpdateProductCost(ctx, alloc.ProductID, alloc.UnitAcquisitionCost); err != nil {
				return err
			}
		}
		return tx.SetCoefficient(ctx, shipmentID, plan.Coefficient)
	})
	s.observe(err, len(plan.Allocations))
	if err != nil {
		return Result{}, err
	}
	if !plan.WithinTolerance() {
		s.logger.Warn("distribution rounding drift above tolerance",
			slog.String("shipment_id", shipmentID),
			slog.String("difference", plan.RoundingDifference.String()))
	}
	s.record(ctx, shared.AuditLog{
		Actor:    actor,
		Action:   "costing:distribute",
		Entity:   "shipment",
		EntityID: shipmentID,
		Meta: map[string]any{
			"products":             len(plan.Allocations),
			"coefficient":          plan.Coefficient.String(),
			"real_total_cost":      plan.RealTotalCost.String(),
			"total_supplier_value": plan.TotalSupplierValue.String(),
			"rounding_difference":  plan.RoundingDifference.String(),
		},
	})
	return Result{ShipmentID: shipmentID, Applied: true, Warning: OverwriteWarning, Plan: plan}, nil
}

// PreviewDistribution computes the plan DistributeCosts would apply without writing it.
func (s *Service) PreviewDistribution(ctx context.Context, shipmentID string) (Result, error) {
	if err := validateShipmentID(shipmentID); err != nil {
		return Result{}, err
	}
	var plan Plan
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		plan, err = planFor(ctx, tx, shipmentID)
		return err
	})
	if err != nil {
		return Result{}, err
	}
	return Result{ShipmentID: shipmentID, Plan: plan}, nil
}

// planFor locks products before the shipment, the order sales and cascades use.
func planFor(ctx context.Context, tx TxRepository, shipmentID string) (Plan, error) {
	items, err := tx.LockShipmentItems(ctx, shipmentID)
	if err != nil {
		return Plan{}, err
	}
	shipment, err := tx.GetShipmentForUpdate(ctx, shipmentID)
	if err != nil {
		return Plan{}, err
	}
	return Distribute(shipment.RealTotalCost(), items)
}

func (s *Service) lock(ctx context.Context, shipmentID string) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	release, err := s.locker.Obtain(ctx, shared.ShipmentLockKey(shipmentID), lockTTL)
	if err != nil {
		if errors.Is(err, cache.ErrLockNotObtained) {
			return nil, ErrDistributionBusy
		}
		return nil, err
	}
	return func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("release distribution lock", slog.String("shipment_id", shipmentID), slog.Any("error", err))
		}
	}, nil
}

func (s *Service) record(ctx context.Context, log shared.AuditLog) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, log); err != nil {
		s.logger.Warn("audit record", slog.String("action", log.Action), slog.Any("error", err))
	}
}

func (s *Service) observe(err error, products int) {
	if s.metrics == nil {
		return
	}
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrZeroSupplierValue):
		outcome = "zero_supplier_value"
	case errors.Is(err, ErrDistributionBusy):
		outcome = "busy"
	case errors.Is(err, shared.ErrNotFound):
		outcome = "not_found"
	default:
		outcome = "error"
	}
	s.metrics.ObserveDistribution(outcome, products)
}

func validateShipmentID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return shared.NewValidationError("shipmentId", "must be a valid id")
	}
	return nil
}
