package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/flaelle/flaelle/internal/inventory"
	"github.com/flaelle/flaelle/internal/shared"
)

// ProductInput creates a product. Initial quantity and cost may be given
// once; afterwards only the ledger and cost distribution change them.
type ProductInput struct {
	Name                string              `json:"name" validate:"required,max=200"`
	OnHandQuantity      int                 `json:"onHandQuantity" validate:"gte=0"`
	UnitSalePrice       decimal.Decimal     `json:"unitSalePrice" validate:"gte=0"`
	UnitAcquisitionCost decimal.Decimal     `json:"unitAcquisitionCost" validate:"gte=0"`
	SupplierQuotedValue decimal.NullDecimal `json:"supplierQuotedValue" validate:"omitempty,gte=0"`
	ShipmentID          *string             `json:"shipmentId" validate:"omitempty,uuid"`
	ImageURL            string              `json:"imageUrl" validate:"omitempty,url,max=1024"`
}

// ProductUpdate replaces the descriptive fields of a product.
type ProductUpdate struct {
	Name                string              `json:"name" validate:"required,max=200"`
	UnitSalePrice       decimal.Decimal     `json:"unitSalePrice" validate:"gte=0"`
	SupplierQuotedValue decimal.NullDecimal `json:"supplierQuotedValue" validate:"omitempty,gte=0"`
	ShipmentID          *string             `json:"shipmentId" validate:"omitempty,uuid"`
	ImageURL            string              `json:"imageUrl" validate:"omitempty,url,max=1024"`
}

// ShipmentInput creates a shipment. Date is YYYY-MM-DD. The cost fields are
// fixed at creation.
type ShipmentInput struct {
	Name                 string                   `json:"name" validate:"required,max=200"`
	Date                 string                   `json:"date" validate:"required,datetime=2006-01-02"`
	TotalAcquisitionCost decimal.Decimal          `json:"totalAcquisitionCost" validate:"gte=0"`
	TransportCost        decimal.NullDecimal      `json:"transportCost" validate:"omitempty,gte=0"`
	EstimatedItemCount   int                      `json:"estimatedItemCount" validate:"gte=0"`
	Status               inventory.ShipmentStatus `json:"status" validate:"omitempty,oneof=active archived"`
}

// ShipmentUpdate replaces the descriptive fields of a shipment.
type ShipmentUpdate struct {
	Name               string                   `json:"name" validate:"required,max=200"`
	Date               string                   `json:"date" validate:"required,datetime=2006-01-02"`
	EstimatedItemCount int                      `json:"estimatedItemCount" validate:"gte=0"`
	Status             inventory.ShipmentStatus `json:"status" validate:"omitempty,oneof=active archived"`
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	ShipmentID string
	Search     string
	Page       shared.PageRequest
}

// ShipmentFilter narrows shipment listings.
type ShipmentFilter struct {
	Status inventory.ShipmentStatus
	Page   shared.PageRequest
}
