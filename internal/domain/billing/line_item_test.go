package billing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validItemInput() LineItemInput {
	return LineItemInput{
		Category:    ItemCategoryConsultation,
		Description: "General consultation",
		Quantity:    1,
		UnitPrice:   decimal.NewFromFloat(75.00),
		Discount:    decimal.Zero,
		TaxAmount:   decimal.Zero,
	}
}

func TestNewLineItem(t *testing.T) {
	invoiceID := uuid.New()

	t.Run("creates item and computes total", func(t *testing.T) {
		input := validItemInput()
		input.Quantity = 3
		input.UnitPrice = decimal.NewFromFloat(20.00)
		input.Discount = decimal.NewFromFloat(5.00)
		input.TaxAmount = decimal.NewFromFloat(2.50)

		item, err := NewLineItem(invoiceID, input)
		require.NoError(t, err)

		// 3*20 - 5 + 2.50 = 57.50
		assert.True(t, item.TotalPrice.Equal(decimal.NewFromFloat(57.50)))
		assert.Equal(t, invoiceID, item.InvoiceID)
	})

	t.Run("quantity defaults to 1", func(t *testing.T) {
		input := validItemInput()
		input.Quantity = 0

		item, err := NewLineItem(invoiceID, input)
		require.NoError(t, err)
		assert.Equal(t, 1, item.Quantity)
		assert.True(t, item.TotalPrice.Equal(decimal.NewFromFloat(75.00)))
	})

	t.Run("validation names the offending field", func(t *testing.T) {
		tests := []struct {
			name    string
			mutate  func(*LineItemInput)
			wantMsg string
		}{
			{"invalid category", func(in *LineItemInput) { in.Category = "VIBES" }, "category"},
			{"empty description", func(in *LineItemInput) { in.Description = "" }, "description"},
			{"negative quantity", func(in *LineItemInput) { in.Quantity = -2 }, "quantity"},
			{"negative unit price", func(in *LineItemInput) { in.UnitPrice = decimal.NewFromFloat(-1) }, "unit_price"},
			{"negative discount", func(in *LineItemInput) { in.Discount = decimal.NewFromFloat(-1) }, "discount"},
			{"discount exceeds line value", func(in *LineItemInput) { in.Discount = decimal.NewFromFloat(100) }, "discount"},
			{"negative tax", func(in *LineItemInput) { in.TaxAmount = decimal.NewFromFloat(-1) }, "tax_amount"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				input := validItemInput()
				tt.mutate(&input)

				_, err := NewLineItem(invoiceID, input)
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantMsg)
			})
		}
	})

	t.Run("discount equal to line value is allowed", func(t *testing.T) {
		input := validItemInput()
		input.Discount = decimal.NewFromFloat(75.00)

		item, err := NewLineItem(invoiceID, input)
		require.NoError(t, err)
		assert.True(t, item.TotalPrice.IsZero())
	})
}

func TestLineItem_Apply(t *testing.T) {
	invoiceID := uuid.New()

	t.Run("merges patch and recomputes total", func(t *testing.T) {
		item, err := NewLineItem(invoiceID, validItemInput())
		require.NoError(t, err)

		qty := 4
		price := decimal.NewFromFloat(10.00)
		require.NoError(t, item.Apply(LineItemPatch{Quantity: &qty, UnitPrice: &price}))

		assert.Equal(t, 4, item.Quantity)
		assert.True(t, item.TotalPrice.Equal(decimal.NewFromFloat(40.00)))
	})

	t.Run("rejects patch that breaks constraints", func(t *testing.T) {
		item, err := NewLineItem(invoiceID, validItemInput())
		require.NoError(t, err)
		before := *item

		badDiscount := decimal.NewFromFloat(500)
		err = item.Apply(LineItemPatch{Discount: &badDiscount})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "discount")

		// a failed patch leaves the item untouched
		assert.Equal(t, before, *item)
	})

	t.Run("patch validates against merged state", func(t *testing.T) {
		input := validItemInput()
		input.Quantity = 2
		input.UnitPrice = decimal.NewFromFloat(50.00)
		input.Discount = decimal.NewFromFloat(80.00)
		item, err := NewLineItem(invoiceID, input)
		require.NoError(t, err)

		// lowering quantity makes the existing discount exceed the new
		// line value (1*50 < 80)
		qty := 1
		err = item.Apply(LineItemPatch{Quantity: &qty})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "discount")
	})
}
