package inventory

import (
	"github.com/google/uuid"

	"github.com/flaelle/flaelle/internal/platform/validation"
	"github.com/flaelle/flaelle/internal/shared"
)

var validate = validation.New()

func validateSale(input SaleInput) error {
	if err := validate.Struct(input); err != nil {
		return err
	}
	var amounts validation.Amounts
	return amounts.
		Cents("unitPrice", input.UnitPrice).
		Cents("totalPrice", input.TotalPrice).
		NullCents("transportCost", input.TransportCost).
		Err()
}

func validatePurchase(input PurchaseInput) error {
	if err := validate.Struct(input); err != nil {
		return err
	}
	var amounts validation.Amounts
	return amounts.
		Cents("unitCost", input.UnitCost).
		Cents("totalCost", input.TotalCost).
		Err()
}

func validateFilter(filter RecordFilter) error {
	problems := &shared.ValidationError{}
	if filter.ShipmentID != "" {
		if _, err := uuid.Parse(filter.ShipmentID); err != nil {
			problems.Add("shipment_id", "must be a valid id")
		}
	}
	if filter.ProductID != "" {
		if _, err := uuid.Parse(filter.ProductID); err != nil {
			problems.Add("product_id", "must be a valid id")
		}
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		problems.Add("to", "must not be before from")
	}
	return problems.OrNil()
}
