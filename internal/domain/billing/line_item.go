package billing

import (
	"fmt"

	"github.com/clinicore/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemCategory classifies a billable charge
type ItemCategory string

const (
	ItemCategoryConsultation ItemCategory = "CONSULTATION"
	ItemCategoryProcedure    ItemCategory = "PROCEDURE"
	ItemCategoryMedication   ItemCategory = "MEDICATION"
	ItemCategoryLab          ItemCategory = "LAB"
	ItemCategoryImaging      ItemCategory = "IMAGING"
	ItemCategorySupply       ItemCategory = "SUPPLY"
	ItemCategoryOther        ItemCategory = "OTHER"
)

// IsValid checks if the category is a valid ItemCategory
func (c ItemCategory) IsValid() bool {
	switch c {
	case ItemCategoryConsultation, ItemCategoryProcedure, ItemCategoryMedication,
		ItemCategoryLab, ItemCategoryImaging, ItemCategorySupply, ItemCategoryOther:
		return true
	}
	return false
}

// String returns the string representation of ItemCategory
func (c ItemCategory) String() string {
	return string(c)
}

// LineItem represents one billable charge belonging to an invoice.
// TotalPrice is computed from quantity/price/discount/tax and is recomputed
// before every persist; it is never stored independently of its inputs.
type LineItem struct {
	shared.BaseEntity
	InvoiceID   uuid.UUID       `json:"invoice_id"`
	Category    ItemCategory    `json:"category"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Discount    decimal.Decimal `json:"discount"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// LineItemInput carries the caller-supplied fields for a new line item.
// Quantity defaults to 1 when zero.
type LineItemInput struct {
	Category    ItemCategory
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
	Discount    decimal.Decimal
	TaxAmount   decimal.Decimal
}

// LineItemPatch carries a partial update to an existing line item.
// Nil fields are left unchanged.
type LineItemPatch struct {
	Category    *ItemCategory
	Description *string
	Quantity    *int
	UnitPrice   *decimal.Decimal
	Discount    *decimal.Decimal
	TaxAmount   *decimal.Decimal
}

// NewLineItem creates a validated line item for the given invoice
func NewLineItem(invoiceID uuid.UUID, input LineItemInput) (*LineItem, error) {
	if input.Quantity == 0 {
		input.Quantity = 1
	}

	item := &LineItem{
		BaseEntity:  shared.NewBaseEntity(),
		InvoiceID:   invoiceID,
		Category:    input.Category,
		Description: input.Description,
		Quantity:    input.Quantity,
		UnitPrice:   input.UnitPrice,
		Discount:    input.Discount,
		TaxAmount:   input.TaxAmount,
	}
	if err := item.validate(); err != nil {
		return nil, err
	}
	item.recomputeTotal()
	return item, nil
}

// Apply merges a patch into the line item, revalidates the merged fields and
// recomputes the line total.
func (li *LineItem) Apply(patch LineItemPatch) error {
	merged := *li
	if patch.Category != nil {
		merged.Category = *patch.Category
	}
	if patch.Description != nil {
		merged.Description = *patch.Description
	}
	if patch.Quantity != nil {
		merged.Quantity = *patch.Quantity
	}
	if patch.UnitPrice != nil {
		merged.UnitPrice = *patch.UnitPrice
	}
	if patch.Discount != nil {
		merged.Discount = *patch.Discount
	}
	if patch.TaxAmount != nil {
		merged.TaxAmount = *patch.TaxAmount
	}
	if err := merged.validate(); err != nil {
		return err
	}
	merged.recomputeTotal()
	*li = merged
	return nil
}

// validate checks all field constraints, naming the offending field
func (li *LineItem) validate() error {
	if !li.Category.IsValid() {
		return shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("category: %q is not a valid item category", li.Category))
	}
	if li.Description == "" {
		return shared.NewDomainError("INVALID_INPUT", "description: cannot be empty")
	}
	if li.Quantity < 1 {
		return shared.NewDomainError("INVALID_INPUT", "quantity: must be at least 1")
	}
	if li.UnitPrice.IsNegative() {
		return shared.NewDomainError("INVALID_INPUT", "unit_price: cannot be negative")
	}
	if li.Discount.IsNegative() {
		return shared.NewDomainError("INVALID_INPUT", "discount: cannot be negative")
	}
	grossAmount := li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
	if li.Discount.GreaterThan(grossAmount) {
		return shared.NewDomainError("INVALID_INPUT",
			fmt.Sprintf("discount: %s exceeds line value %s", li.Discount.StringFixed(2), grossAmount.StringFixed(2)))
	}
	if li.TaxAmount.IsNegative() {
		return shared.NewDomainError("INVALID_INPUT", "tax_amount: cannot be negative")
	}
	return nil
}

// recomputeTotal rebuilds TotalPrice from its inputs:
// max(0, quantity*unitPrice - discount + tax)
func (li *LineItem) recomputeTotal() {
	total := li.UnitPrice.
		Mul(decimal.NewFromInt(int64(li.Quantity))).
		Sub(li.Discount).
		Add(li.TaxAmount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	li.TotalPrice = total
}

// GrossAmount returns quantity * unitPrice before discount and tax
func (li *LineItem) GrossAmount() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}
