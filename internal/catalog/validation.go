package catalog

import (
	"strings"

	"github.com/google/uuid"

	"github.com/flaelle/flaelle/internal/platform/validation"
	"github.com/flaelle/flaelle/internal/shared"
)

var validate = validation.New()

func validateID(field, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return shared.NewValidationError(field, "must be a valid id")
	}
	return nil
}

func normalizeProduct(in *ProductInput) {
	in.Name = strings.TrimSpace(in.Name)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	in.ShipmentID = blankToNil(in.ShipmentID)
}

func normalizeProductUpdate(in *ProductUpdate) {
	in.Name = strings.TrimSpace(in.Name)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	in.ShipmentID = blankToNil(in.ShipmentID)
}

func normalizeShipment(in *ShipmentInput) {
	in.Name = strings.TrimSpace(in.Name)
	in.Date = strings.TrimSpace(in.Date)
}

func normalizeShipmentUpdate(in *ShipmentUpdate) {
	in.Name = strings.TrimSpace(in.Name)
	in.Date = strings.TrimSpace(in.Date)
}

func productAmounts(in ProductInput) error {
	var amounts validation.Amounts
	return amounts.
		Cents("unitSalePrice", in.UnitSalePrice).
		Cents("unitAcquisitionCost", in.UnitAcquisitionCost).
		NullCents("supplierQuotedValue", in.SupplierQuotedValue).
		Err()
}

func productUpdateAmounts(in ProductUpdate) error {
	var amounts validation.Amounts
	return amounts.
		Cents("unitSalePrice", in.UnitSalePrice).
		NullCents("supplierQuotedValue", in.SupplierQuotedValue).
		Err()
}

func shipmentAmounts(in ShipmentInput) error {
	var amounts validation.Amounts
	return amounts.
		Cents("totalAcquisitionCost", in.TotalAcquisitionCost).
		NullCents("transportCost", in.TransportCost).
		Err()
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func validateProductFilter(f ProductFilter) error {
	if f.ShipmentID == "" {
		return nil
	}
	return validateID("shipment_id", f.ShipmentID)
}

func validateShipmentFilter(f ShipmentFilter) error {
	if f.Status != "" && !f.Status.Valid() {
		return shared.NewValidationError("status", "must be one of active archived")
	}
	return nil
}
