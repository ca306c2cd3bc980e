package catalog

import (
	"context"
	"log/slog"
	"time"

	"github.com/flaelle/flaelle/internal/inventory"
	"github.com/flaelle/flaelle/internal/shared"
)

// RepositoryPort abstracts catalog persistence.
type RepositoryPort interface {
	ListProducts(ctx context.Context, filter ProductFilter) ([]inventory.Product, int, error)
	GetProduct(ctx context.Context, id string) (inventory.Product, error)
	CreateProduct(ctx context.Context, in ProductInput) (inventory.Product, error)
	UpdateProduct(ctx context.Context, id string, in ProductUpdate) (inventory.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	ListShipments(ctx context.Context, filter ShipmentFilter) ([]inventory.Shipment, int, error)
	GetShipment(ctx context.Context, id string) (inventory.Shipment, error)
	CreateShipment(ctx context.Context, in ShipmentInput, date time.Time) (inventory.Shipment, error)
	UpdateShipment(ctx context.Context, id string, in ShipmentUpdate, date time.Time) (inventory.Shipment, error)
	SetShipmentStatus(ctx context.Context, id string, status inventory.ShipmentStatus) (inventory.Shipment, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages products and shipments.
type Service struct {
	repo   RepositoryPort
	audit  AuditPort
	logger *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger}
}

// ListProducts returns a page of products.
func (s *Service) ListProducts(ctx context.Context, filter ProductFilter) ([]inventory.Product, int, error) {
	if err := validateProductFilter(filter); err != nil {
		return nil, 0, err
	}
	return s.repo.ListProducts(ctx, filter)
}

// GetProduct returns a product by id.
func (s *Service) GetProduct(ctx context.Context, id string) (inventory.Product, error) {
	if err := validateID("id", id); err != nil {
		return inventory.Product{}, err
	}
	return s.repo.GetProduct(ctx, id)
}

// CreateProduct adds a product to the catalog.
func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (inventory.Product, error) {
	normalizeProduct(&in)
	if err := validate.Struct(in); err != nil {
		return inventory.Product{}, err
	}
	if err := productAmounts(in); err != nil {
		return inventory.Product{}, err
	}
	p, err := s.repo.CreateProduct(ctx, in)
	if err != nil {
		return inventory.Product{}, err
	}
	s.record(ctx, "catalog:product_create", "product", p.ID, map[string]any{"name": p.Name, "quantity": p.OnHandQuantity})
	return p, nil
}

// UpdateProduct edits a product's name, sale price, supplier value,
// shipment link and image. Stock and acquisition cost are not editable here.
func (s *Service) UpdateProduct(ctx context.Context, id string, in ProductUpdate) (inventory.Product, error) {
	if err := validateID("id", id); err != nil {
		return inventory.Product{}, err
	}
	normalizeProductUpdate(&in)
	if err := validate.Struct(in); err != nil {
		return inventory.Product{}, err
	}
	if err := productUpdateAmounts(in); err != nil {
		return inventory.Product{}, err
	}
	p, err := s.repo.UpdateProduct(ctx, id, in)
	if err != nil {
		return inventory.Product{}, err
	}
	s.record(ctx, "catalog:product_update", "product", id, map[string]any{"name": p.Name})
	return p, nil
}

// DeleteProduct removes a product that no movement record references.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if err := validateID("id", id); err != nil {
		return err
	}
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.record(ctx, "catalog:product_delete", "product", id, nil)
	return nil
}

// ListShipments returns a page of shipments.
func (s *Service) ListShipments(ctx context.Context, filter ShipmentFilter) ([]inventory.Shipment, int, error) {
	if err := validateShipmentFilter(filter); err != nil {
		return nil, 0, err
	}
	return s.repo.ListShipments(ctx, filter)
}

// GetShipment returns a shipment by id.
func (s *Service) GetShipment(ctx context.Context, id string) (inventory.Shipment, error) {
	if err := validateID("id", id); err != nil {
		return inventory.Shipment{}, err
	}
	return s.repo.GetShipment(ctx, id)
}

// CreateShipment registers a new shipment, active unless stated otherwise.
func (s *Service) CreateShipment(ctx context.Context, in ShipmentInput) (inventory.Shipment, error) {
	normalizeShipment(&in)
	if in.Status == "" {
		in.Status = inventory.ShipmentActive
	}
	date, err := parseShipmentDate(in, in.Date)
	if err != nil {
		return inventory.Shipment{}, err
	}
	if err := shipmentAmounts(in); err != nil {
		return inventory.Shipment{}, err
	}
	sh, err := s.repo.CreateShipment(ctx, in, date)
	if err != nil {
		return inventory.Shipment{}, err
	}
	s.record(ctx, "catalog:shipment_create", "shipment", sh.ID, map[string]any{
		"name":                   sh.Name,
		"total_acquisition_cost": sh.TotalAcquisitionCost.String(),
	})
	return sh, nil
}

// UpdateShipment replaces a shipment's name, date, estimated count and
// status. Acquisition and transport costs never change after creation.
func (s *Service) UpdateShipment(ctx context.Context, id string, in ShipmentUpdate) (inventory.Shipment, error) {
	if err := validateID("id", id); err != nil {
		return inventory.Shipment{}, err
	}
	normalizeShipmentUpdate(&in)
	if in.Status == "" {
		in.Status = inventory.ShipmentActive
	}
	date, err := parseShipmentDate(in, in.Date)
	if err != nil {
		return inventory.Shipment{}, err
	}
	sh, err := s.repo.UpdateShipment(ctx, id, in, date)
	if err != nil {
		return inventory.Shipment{}, err
	}
	s.record(ctx, "catalog:shipment_update", "shipment", id, map[string]any{"status": string(sh.Status)})
	return sh, nil
}

// ArchiveShipment hides a shipment from dashboard totals.
func (s *Service) ArchiveShipment(ctx context.Context, id string) (inventory.Shipment, error) {
	if err := validateID("id", id); err != nil {
		return inventory.Shipment{}, err
	}
	sh, err := s.repo.SetShipmentStatus(ctx, id, inventory.ShipmentArchived)
	if err != nil {
		return inventory.Shipment{}, err
	}
	s.record(ctx, "catalog:shipment_archive", "shipment", id, nil)
	return sh, nil
}

func parseShipmentDate(in any, raw string) (time.Time, error) {
	if err := validate.Struct(in); err != nil {
		return time.Time{}, err
	}
	date, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, shared.NewValidationError("date", "must be a YYYY-MM-DD date")
	}
	return date, nil
}

func (s *Service) record(ctx context.Context, action, entity, id string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		Actor:    shared.ActorFromContext(ctx),
		Action:   action,
		Entity:   entity,
		EntityID: id,
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}
