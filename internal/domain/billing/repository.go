package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// InvoiceFilter defines filtering options for invoice list queries
type InvoiceFilter struct {
	PatientID *uuid.UUID
	Status    *PaymentStatus
	DateFrom  *time.Time
	DateTo    *time.Time
	Voided    *bool
	Page      int
	PageSize  int
}

// InvoiceRepository persists the Invoice aggregate together with its line
// items and payments. Loads return the full aggregate; saves write the
// invoice row and its children in one transaction.
type InvoiceRepository interface {
	// FindByID loads an invoice with its line items and payments
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByInvoiceNumber loads an invoice by its human-facing number
	FindByInvoiceNumber(ctx context.Context, invoiceNumber string) (*Invoice, error)

	// FindByPaymentID loads the invoice owning the given payment
	FindByPaymentID(ctx context.Context, paymentID uuid.UUID) (*Invoice, error)

	// FindAll lists invoices matching the filter (children not loaded)
	FindAll(ctx context.Context, filter InvoiceFilter) ([]Invoice, error)

	// Count counts invoices matching the filter
	Count(ctx context.Context, filter InvoiceFilter) (int64, error)

	// Save inserts a new invoice aggregate
	Save(ctx context.Context, invoice *Invoice) error

	// SaveWithLock persists a mutated aggregate with an optimistic version
	// check on the invoice row. Returns CONCURRENCY_CONFLICT when the stored
	// version no longer matches, in which case nothing is written.
	SaveWithLock(ctx context.Context, invoice *Invoice) error

	// Delete hard-deletes an invoice and its line items. Callers must have
	// verified the invoice has no payments (EnsureDeletable).
	Delete(ctx context.Context, id uuid.UUID) error
}
