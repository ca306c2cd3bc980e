// Package purchasing builds supplier purchase orders from the catalog and
// delivers them as PDF, either downloaded or e-mailed.
package purchasing

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineInput requests quantity units of one product.
type LineInput struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
}

// OrderInput is the body of a purchase order request.
type OrderInput struct {
	Supplier string      `json:"supplier" validate:"max=120"`
	Note     string      `json:"note" validate:"max=500"`
	Lines    []LineInput `json:"lines" validate:"required,min=1,max=200,dive"`
}

// EmailInput adds optional recipients to an order request. Without
// recipients the configured order address is used.
type EmailInput struct {
	OrderInput
	To []string `json:"to" validate:"omitempty,max=10,dive,email"`
}

// CatalogItem is the product data needed to price a line.
type CatalogItem struct {
	ID                  string
	Name                string
	UnitAcquisitionCost decimal.Decimal
}

// Line is a priced order line.
type Line struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unitCost"`
	Total     decimal.Decimal `json:"total"`
}

// Order is a priced purchase order.
type Order struct {
	Number   string          `json:"number"`
	IssuedAt time.Time       `json:"issuedAt"`
	Supplier string          `json:"supplier,omitempty"`
	Note     string          `json:"note,omitempty"`
	Lines    []Line          `json:"lines"`
	Total    decimal.Decimal `json:"total"`
}

// Units sums the quantities of every line.
func (o Order) Units() int {
	n := 0
	for _, l := range o.Lines {
		n += l.Quantity
	}
	return n
}

// Filename is the attachment name of the rendered order.
func (o Order) Filename() string {
	return "bon-de-commande-" + o.Number + ".pdf"
}
