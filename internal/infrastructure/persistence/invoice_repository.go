package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/clinicore/backend/internal/domain/billing"
	"github.com/clinicore/backend/internal/domain/shared"
	"github.com/clinicore/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormInvoiceRepository implements billing.InvoiceRepository using GORM.
// The aggregate is persisted across three tables (invoices,
// invoice_line_items, payments); every save writes all of them in one
// transaction so a reader never observes the invoice row disagreeing with
// its children.
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID loads an invoice with its line items and payments
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Preload("LineItems").
		Preload("Payments").
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByInvoiceNumber loads an invoice by its human-facing number
func (r *GormInvoiceRepository) FindByInvoiceNumber(ctx context.Context, invoiceNumber string) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Preload("LineItems").
		Preload("Payments").
		Where("invoice_number = ?", invoiceNumber).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByPaymentID loads the invoice owning the given payment
func (r *GormInvoiceRepository) FindByPaymentID(ctx context.Context, paymentID uuid.UUID) (*billing.Invoice, error) {
	var payment models.PaymentModel
	if err := r.db.WithContext(ctx).
		Select("invoice_id").
		First(&payment, "id = ?", paymentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return r.FindByID(ctx, payment.InvoiceID)
}

// FindAll lists invoices matching the filter. Children are not loaded.
func (r *GormInvoiceRepository) FindAll(ctx context.Context, filter billing.InvoiceFilter) ([]billing.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.InvoiceModel{}), filter)

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 200 {
		pageSize = 20
	}
	query = query.Order("invoice_date DESC, created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize)

	if err := query.Find(&invoiceModels).Error; err != nil {
		return nil, err
	}
	invoices := make([]billing.Invoice, len(invoiceModels))
	for i := range invoiceModels {
		invoices[i] = *invoiceModels[i].ToDomain()
	}
	return invoices, nil
}

// Count counts invoices matching the filter
func (r *GormInvoiceRepository) Count(ctx context.Context, filter billing.InvoiceFilter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.InvoiceModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save inserts a new invoice aggregate with its children
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(model).Error
	})
}

// SaveWithLock persists a mutated aggregate with an optimistic version check
// on the invoice row. The children are reconciled against the aggregate's
// current collections inside the same transaction. Nothing is written when
// the stored version no longer matches.
func (r *GormInvoiceRepository) SaveWithLock(ctx context.Context, invoice *billing.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Select("*") forces zero-valued columns through: a fully refunded
		// invoice must write paid_amount = 0.
		result := tx.Model(&models.InvoiceModel{}).
			Where("id = ? AND version = ?", invoice.ID, invoice.Version-1).
			Select("*").
			Omit("id", "created_at", "LineItems", "Payments").
			Updates(model)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		if err := r.reconcileLineItems(tx, invoice.ID, model.LineItems); err != nil {
			return err
		}
		return r.upsertPayments(tx, model.Payments)
	})
}

// reconcileLineItems makes the invoice_line_items rows match the aggregate's
// current collection: removed items are deleted, the rest upserted.
func (r *GormInvoiceRepository) reconcileLineItems(tx *gorm.DB, invoiceID uuid.UUID, items []models.InvoiceLineItemModel) error {
	if len(items) == 0 {
		return tx.Delete(&models.InvoiceLineItemModel{}, "invoice_id = ?", invoiceID).Error
	}

	keep := make([]uuid.UUID, len(items))
	for i := range items {
		keep[i] = items[i].ID
	}
	if err := tx.Delete(&models.InvoiceLineItemModel{}, "invoice_id = ? AND id NOT IN ?", invoiceID, keep).Error; err != nil {
		return err
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&items).Error
}

// upsertPayments writes the aggregate's payments. Payments are never removed
// from an invoice, so no delete pass is needed; refund mutations flow through
// the update side of the upsert.
func (r *GormInvoiceRepository) upsertPayments(tx *gorm.DB, payments []models.PaymentModel) error {
	if len(payments) == 0 {
		return nil
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&payments).Error
}

// Delete hard-deletes an invoice and its line items. Callers must have
// verified the invoice has no payments.
func (r *GormInvoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Re-checked inside the transaction: a payment recorded after the
		// caller's deletability check still blocks the delete.
		var paymentCount int64
		if err := tx.Model(&models.PaymentModel{}).Where("invoice_id = ?", id).Count(&paymentCount).Error; err != nil {
			return err
		}
		if paymentCount > 0 {
			return shared.ErrReferentialBlock
		}
		if err := tx.Delete(&models.InvoiceLineItemModel{}, "invoice_id = ?", id).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.InvoiceModel{}, "id = ?", id)
		if result.Error != nil {
			// The payments FK restricts invoice deletion; a payment that
			// slips in between the count above and this delete surfaces
			// here rather than as a raw driver error.
			if isForeignKeyViolation(result.Error) {
				return shared.ErrReferentialBlock
			}
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// isForeignKeyViolation reports whether err is a referential-integrity
// failure from postgres (SQLSTATE 23503) or sqlite.
func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLSTATE 23503") ||
		strings.Contains(msg, "FOREIGN KEY constraint failed")
}

func (r *GormInvoiceRepository) applyFilter(query *gorm.DB, filter billing.InvoiceFilter) *gorm.DB {
	if filter.PatientID != nil {
		query = query.Where("patient_id = ?", *filter.PatientID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.DateFrom != nil {
		query = query.Where("invoice_date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("invoice_date <= ?", *filter.DateTo)
	}
	if filter.Voided != nil {
		if *filter.Voided {
			query = query.Where("voided_at IS NOT NULL")
		} else {
			query = query.Where("voided_at IS NULL")
		}
	}
	return query
}

// Ensure GormInvoiceRepository implements InvoiceRepository
var _ billing.InvoiceRepository = (*GormInvoiceRepository)(nil)
