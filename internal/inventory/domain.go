package inventory

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/flaelle/flaelle/internal/shared"
)

// ShipmentStatus enumerates the lifecycle of an arrival batch.
type ShipmentStatus string

const (
	// ShipmentActive marks a shipment still being sold through.
	ShipmentActive ShipmentStatus = "active"
	// ShipmentArchived hides a shipment from dashboard totals.
	ShipmentArchived ShipmentStatus = "archived"
)

// Valid reports whether s is a known status.
func (s ShipmentStatus) Valid() bool {
	return s == ShipmentActive || s == ShipmentArchived
}

// Product is a sellable catalog item. OnHandQuantity and UnitAcquisitionCost
// are only written by the ledger and the cost distribution engine.
type Product struct {
	ID                  string              `json:"id"`
	Name                string              `json:"name"`
	OnHandQuantity      int                 `json:"onHandQuantity"`
	UnitSalePrice       decimal.Decimal     `json:"unitSalePrice"`
	UnitAcquisitionCost decimal.Decimal     `json:"unitAcquisitionCost"`
	SupplierQuotedValue decimal.NullDecimal `json:"supplierQuotedValue"`
	ShipmentID          *string             `json:"shipmentId"`
	ImageURL            string              `json:"imageUrl"`
	CreatedAt           time.Time           `json:"createdAt"`
	UpdatedAt           time.Time           `json:"updatedAt"`
}

// Shipment is a batch of goods bought together ("arrivage").
type Shipment struct {
	ID                      string              `json:"id"`
	Name                    string              `json:"name"`
	Date                    time.Time           `json:"date"`
	TotalAcquisitionCost    decimal.Decimal     `json:"totalAcquisitionCost"`
	TransportCost           decimal.NullDecimal `json:"transportCost"`
	EstimatedItemCount      int                 `json:"estimatedItemCount"`
	Status                  ShipmentStatus      `json:"status"`
	DistributionCoefficient decimal.NullDecimal `json:"distributionCoefficient"`
	CreatedAt               time.Time           `json:"createdAt"`
}

// RealTotalCost is the acquisition cost plus transport.
func (s Shipment) RealTotalCost() decimal.Decimal {
	total := s.TotalAcquisitionCost
	if s.TransportCost.Valid {
		total = total.Add(s.TransportCost.Decimal)
	}
	return total
}

// SaleRecord is the immutable trace of a sale.
type SaleRecord struct {
	ID            string              `json:"id"`
	ProductID     string              `json:"productId"`
	ProductName   string              `json:"productName"`
	Quantity      int                 `json:"quantity"`
	UnitPrice     decimal.Decimal     `json:"unitPrice"`
	TotalPrice    decimal.Decimal     `json:"totalPrice"`
	TransportCost decimal.NullDecimal `json:"transportCost"`
	Profit        decimal.Decimal     `json:"profit"`
	Date          time.Time           `json:"date"`
	ShipmentID    *string             `json:"shipmentId"`
}

// PurchaseRecord is the immutable trace of a restock.
type PurchaseRecord struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
	Date        time.Time       `json:"date"`
	ShipmentID  *string         `json:"shipmentId"`
}

// SaleInput describes a sale request.
type SaleInput struct {
	ProductID      string              `json:"productId" validate:"required,uuid"`
	Quantity       int                 `json:"quantity" validate:"gt=0"`
	UnitPrice      decimal.Decimal     `json:"unitPrice" validate:"gte=0"`
	TotalPrice     decimal.Decimal     `json:"totalPrice" validate:"gte=0"`
	TransportCost  decimal.NullDecimal `json:"transportCost" validate:"omitempty,gte=0"`
	ShipmentID     *string             `json:"shipmentId" validate:"omitempty,uuid"`
	IdempotencyKey string              `json:"-"`
	Actor          string              `json:"-"`
}

// PurchaseInput describes a restock request.
type PurchaseInput struct {
	ProductID      string          `json:"productId" validate:"required,uuid"`
	Quantity       int             `json:"quantity" validate:"gt=0"`
	UnitCost       decimal.Decimal `json:"unitCost" validate:"gte=0"`
	TotalCost      decimal.Decimal `json:"totalCost" validate:"gte=0"`
	ShipmentID     *string         `json:"shipmentId" validate:"omitempty,uuid"`
	IdempotencyKey string          `json:"-"`
	Actor          string          `json:"-"`
}

// CascadeResult counts the rows removed with a shipment.
type CascadeResult struct {
	Products  int `json:"products"`
	Sales     int `json:"sales"`
	Purchases int `json:"purchases"`
}

// ResetResult counts the rows removed by a full reset.
type ResetResult struct {
	Sales     int `json:"sales"`
	Purchases int `json:"purchases"`
	Products  int `json:"products"`
	Shipments int `json:"shipments"`
}

// RecordFilter narrows movement record listings.
type RecordFilter struct {
	ShipmentID string
	ProductID  string
	From       time.Time
	To         time.Time
	Page       shared.PageRequest
}

var (
	// ErrProductNotFound is returned when the referenced product does not exist.
	ErrProductNotFound = fmt.Errorf("inventory: product %w", shared.ErrNotFound)
	// ErrShipmentNotFound is returned when the referenced shipment does not exist.
	ErrShipmentNotFound = fmt.Errorf("inventory: shipment %w", shared.ErrNotFound)
	// ErrInsufficientStock is the kind behind every InsufficientStockError.
	ErrInsufficientStock = fmt.Errorf("inventory: insufficient stock: %w", shared.ErrConflict)
	// ErrProductInUse is returned when deleting a product that has movement records.
	ErrProductInUse = fmt.Errorf("inventory: product has sale or purchase records: %w", shared.ErrConflict)
)

// InsufficientStockError reports the quantity that was actually available.
type InsufficientStockError struct {
	ProductID string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("inventory: insufficient stock for product %s: %d available, %d requested", e.ProductID, e.Available, e.Requested)
}

// Unwrap exposes ErrInsufficientStock.
func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}
