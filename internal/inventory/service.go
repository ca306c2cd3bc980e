package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flaelle/flaelle/internal/shared"
)

const idempotencyModule = "inventory"

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListSales(ctx context.Context, filter RecordFilter) ([]SaleRecord, int, error)
	ListPurchases(ctx context.Context, filter RecordFilter) ([]PurchaseRecord, int, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort guards against replayed requests.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key, module string) error
}

// MetricsPort receives ledger outcomes.
type MetricsPort interface {
	ObserveMovement(kind, outcome string)
}

// Service coordinates ledger operations.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency IdempotencyPort
	metrics     MetricsPort
	logger      *slog.Logger
	now         func() time.Time
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	Logger  *slog.Logger
	Metrics MetricsPort
	Now     func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, idem IdempotencyPort, cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{repo: repo, audit: audit, idempotency: idem, metrics: cfg.Metrics, logger: logger, now: now}
}

// RecordSale decrements stock and appends a SaleRecord in one transaction.
// Profit is computed from the catalog prices read under the row lock.
func (s *Service) RecordSale(ctx context.Context, input SaleInput) (SaleRecord, error) {
	if err := validateSale(input); err != nil {
		return SaleRecord{}, err
	}
	var record SaleRecord
	err := s.guarded(ctx, input.IdempotencyKey, func() error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			product, err := tx.GetProductForUpdate(ctx, input.ProductID)
			if err != nil {
				return err
			}
			if product.OnHandQuantity < input.Quantity {
				return &InsufficientStockError{ProductID: product.ID, Available: product.OnHandQuantity, Requested: input.Quantity}
			}
			if err := tx.UpdateStock(ctx, product.ID, product.OnHandQuantity-input.Quantity, product.UnitAcquisitionCost); err != nil {
				return err
			}
			shipmentID := input.ShipmentID
			if shipmentID == nil {
				shipmentID = product.ShipmentID
			}
			record, err = tx.InsertSale(ctx, SaleRecord{
				ProductID:     product.ID,
				ProductName:   product.Name,
				Quantity:      input.Quantity,
				UnitPrice:     input.UnitPrice,
				TotalPrice:    input.TotalPrice,
				TransportCost: input.TransportCost,
				Profit:        SaleProfit(product, input.Quantity, input.TransportCost),
				Date:          s.now(),
				ShipmentID:    shipmentID,
			})
			return err
		})
	})
	s.observe("sale", err)
	if err != nil {
		return SaleRecord{}, err
	}
	s.record(ctx, shared.AuditLog{
		Actor:    input.Actor,
		Action:   "inventory:sale",
		Entity:   "sale_record",
		EntityID: record.ID,
		Meta: map[string]any{
			"product_id":  record.ProductID,
			"quantity":    record.Quantity,
			"total_price": record.TotalPrice.String(),
			"profit":      record.Profit.String(),
		},
	})
	return record, nil
}

// RecordPurchase increments stock, overwrites the unit acquisition cost and
// appends a PurchaseRecord in one transaction.
func (s *Service) RecordPurchase(ctx context.Context, input PurchaseInput) (PurchaseRecord, error) {
	if err := validatePurchase(input); err != nil {
		return PurchaseRecord{}, err
	}
	var record PurchaseRecord
	err := s.guarded(ctx, input.IdempotencyKey, func() error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			product, err := tx.GetProductForUpdate(ctx, input.ProductID)
			if err != nil {
				return err
			}
			if err := tx.UpdateStock(ctx, product.ID, product.OnHandQuantity+input.Quantity, input.UnitCost); err != nil {
				return err
			}
			record, err = tx.InsertPurchase(ctx, PurchaseRecord{
				ProductID:   product.ID,
				ProductName: product.Name,
				Quantity:    input.Quantity,
				UnitPrice:   input.UnitCost,
				TotalPrice:  input.TotalCost,
				Date:        s.now(),
				ShipmentID:  input.ShipmentID,
			})
			return err
		})
	})
	s.observe("purchase", err)
	if err != nil {
		return PurchaseRecord{}, err
	}
	s.record(ctx, shared.AuditLog{
		Actor:    input.Actor,
		Action:   "inventory:purchase",
		Entity:   "purchase_record",
		EntityID: record.ID,
		Meta: map[string]any{
			"product_id": record.ProductID,
			"quantity":   record.Quantity,
			"unit_cost":  record.UnitPrice.String(),
		},
	})
	return record, nil
}

// DeleteShipmentCascade removes a shipment with its products and every movement
// record referencing either. Dependents go first; any failure rolls back all of it.
func (s *Service) DeleteShipmentCascade(ctx context.Context, shipmentID, actor string) (CascadeResult, error) {
	if _, err := uuid.Parse(shipmentID); err != nil {
		return CascadeResult{}, shared.NewValidationError("shipmentId", "must be a valid id")
	}
	var result CascadeResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		// Products before the shipment, the same order a sale takes them.
		if err := tx.LockShipmentProducts(ctx, shipmentID); err != nil {
			return err
		}
		if _, err := tx.GetShipmentForUpdate(ctx, shipmentID); err != nil {
			return err
		}
		var err error
		if result.Sales, err = tx.DeleteShipmentSales(ctx, shipmentID); err != nil {
			return fmt.Errorf("inventory: delete sales: %w", err)
		}
		if result.Purchases, err = tx.DeleteShipmentPurchases(ctx, shipmentID); err != nil {
			return fmt.Errorf("inventory: delete purchases: %w", err)
		}
		if result.Products, err = tx.DeleteShipmentProducts(ctx, shipmentID); err != nil {
			return fmt.Errorf("inventory: delete products: %w", err)
		}
		if err := tx.DeleteShipment(ctx, shipmentID); err != nil {
			return fmt.Errorf("inventory: delete shipment: %w", err)
		}
		return nil
	})
	s.observe("shipment_cascade", err)
	if err != nil {
		return CascadeResult{}, err
	}
	s.record(ctx, shared.AuditLog{
		Actor:    actor,
		Action:   "inventory:shipment_delete",
		Entity:   "shipment",
		EntityID: shipmentID,
		Meta: map[string]any{
			"products":  result.Products,
			"sales":     result.Sales,
			"purchases": result.Purchases,
		},
	})
	return result, nil
}

// Reset deletes every movement record, product and shipment in one transaction.
func (s *Service) Reset(ctx context.Context, actor string) (ResetResult, error) {
	var result ResetResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		result, err = tx.DeleteAll(ctx)
		return err
	})
	s.observe("reset", err)
	if err != nil {
		return ResetResult{}, err
	}
	s.logger.Warn("inventory reset",
		slog.String("actor", actor),
		slog.Int("sales", result.Sales),
		slog.Int("purchases", result.Purchases),
		slog.Int("products", result.Products),
		slog.Int("shipments", result.Shipments))
	s.record(ctx, shared.AuditLog{
		Actor:    actor,
		Action:   "inventory:reset",
		Entity:   "inventory",
		EntityID: "all",
		Meta: map[string]any{
			"sales":     result.Sales,
			"purchases": result.Purchases,
			"products":  result.Products,
			"shipments": result.Shipments,
		},
	})
	return result, nil
}

// ListSales returns sale records, newest first, with the total match count.
func (s *Service) ListSales(ctx context.Context, filter RecordFilter) ([]SaleRecord, int, error) {
	if err := validateFilter(filter); err != nil {
		return nil, 0, err
	}
	return s.repo.ListSales(ctx, filter)
}

// ListPurchases returns purchase records, newest first, with the total match count.
func (s *Service) ListPurchases(ctx context.Context, filter RecordFilter) ([]PurchaseRecord, int, error) {
	if err := validateFilter(filter); err != nil {
		return nil, 0, err
	}
	return s.repo.ListPurchases(ctx, filter)
}

// SaleProfit is (unit sale price - unit acquisition cost) * quantity - transport.
func SaleProfit(product Product, quantity int, transport decimal.NullDecimal) decimal.Decimal {
	margin := product.UnitSalePrice.Sub(product.UnitAcquisitionCost)
	profit := margin.Mul(decimal.NewFromInt(int64(quantity)))
	if transport.Valid {
		profit = profit.Sub(transport.Decimal)
	}
	return profit
}

// guarded runs fn once per idempotency key. The key is released when fn fails
// so the client may retry.
func (s *Service) guarded(ctx context.Context, key string, fn func() error) error {
	if key == "" || s.idempotency == nil {
		return fn()
	}
	if err := s.idempotency.CheckAndInsert(ctx, key, idempotencyModule); err != nil {
		return err
	}
	if err := fn(); err != nil {
		if delErr := s.idempotency.Delete(ctx, key, idempotencyModule); delErr != nil {
			s.logger.Warn("release idempotency key", slog.String("key", key), slog.Any("error", delErr))
		}
		return err
	}
	return nil
}

func (s *Service) record(ctx context.Context, log shared.AuditLog) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, log); err != nil {
		s.logger.Warn("audit record", slog.String("action", log.Action), slog.Any("error", err))
	}
}

func (s *Service) observe(kind string, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrInsufficientStock):
		outcome = "insufficient_stock"
	case errors.Is(err, shared.ErrNotFound):
		outcome = "not_found"
	case errors.Is(err, shared.ErrConflict):
		outcome = "conflict"
	default:
		outcome = "error"
	}
	s.metrics.ObserveMovement(kind, outcome)
}
