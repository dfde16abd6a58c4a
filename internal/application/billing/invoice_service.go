package billing

import (
	"context"
	"errors"
	"time"

	"github.com/clinicore/backend/internal/domain/billing"
	"github.com/clinicore/backend/internal/domain/patient"
	"github.com/clinicore/backend/internal/domain/shared"
	"github.com/clinicore/backend/internal/domain/shared/valueobject"
	"github.com/clinicore/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// maxSaveAttempts bounds the optimistic-lock retry loop. Each attempt
// re-reads the aggregate, so a retry always operates on current state.
const maxSaveAttempts = 3

// InvoiceService provides application-level invoice operations
type InvoiceService struct {
	invoiceRepo billing.InvoiceRepository
	patientRepo patient.PatientRepository
	eventBus    shared.EventPublisher
	logger      *zap.Logger
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	invoiceRepo billing.InvoiceRepository,
	patientRepo patient.PatientRepository,
	eventBus shared.EventPublisher,
	logger *zap.Logger,
) *InvoiceService {
	return &InvoiceService{
		invoiceRepo: invoiceRepo,
		patientRepo: patientRepo,
		eventBus:    eventBus,
		logger:      logger,
	}
}

// LineItemRequest carries one charge in a create or add-item request
type LineItemRequest struct {
	Category    string          `json:"category" binding:"required"`
	Description string          `json:"description" binding:"required"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Discount    decimal.Decimal `json:"discount"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
}

// InitialPaymentRequest carries an optional payment collected at creation
// time, e.g. a walk-in patient settling at the front desk
type InitialPaymentRequest struct {
	Amount  decimal.Decimal        `json:"amount" binding:"required"`
	Method  string                 `json:"method" binding:"required"`
	Details billing.PaymentDetails `json:"details"`
}

// CreateInvoiceRequest represents a request to create an invoice
type CreateInvoiceRequest struct {
	PatientID     uuid.UUID              `json:"patient_id" binding:"required"`
	VisitID       *uuid.UUID             `json:"visit_id"`
	AppointmentID *uuid.UUID             `json:"appointment_id"`
	DoctorID      *uuid.UUID             `json:"doctor_id"`
	FlatAmount    decimal.Decimal        `json:"flat_amount"`
	Discount      decimal.Decimal        `json:"discount"`
	TaxAmount     decimal.Decimal        `json:"tax_amount"`
	DueDate       *time.Time             `json:"due_date"`
	Notes         string                 `json:"notes"`
	LineItems     []LineItemRequest      `json:"line_items"`
	InitialPaid   *InitialPaymentRequest `json:"initial_paid"`
	RecordedBy    uuid.UUID              `json:"-"`
}

// UpdateLineItemRequest represents a partial update to a line item.
// Nil fields are left unchanged.
type UpdateLineItemRequest struct {
	Category    *string          `json:"category"`
	Description *string          `json:"description"`
	Quantity    *int             `json:"quantity"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
	Discount    *decimal.Decimal `json:"discount"`
	TaxAmount   *decimal.Decimal `json:"tax_amount"`
}

// InvoiceListFilter defines filtering options for invoice list queries
type InvoiceListFilter struct {
	PatientID *uuid.UUID `form:"patient_id"`
	Status    string     `form:"status"`
	FromDate  *time.Time `form:"from_date" time_format:"2006-01-02"`
	ToDate    *time.Time `form:"to_date" time_format:"2006-01-02"`
	Voided    *bool      `form:"voided"`
	Page      int        `form:"page"`
	PageSize  int        `form:"page_size"`
}

// CreateInvoice creates a new invoice for a patient. Initial line items and
// an initial payment may be supplied; everything is written in one
// transaction so the invoice is never observable half-built.
func (s *InvoiceService) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*InvoiceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "create")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrPatientID, req.PatientID.String())

	p, err := s.patientRepo.FindByID(ctx, req.PatientID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			err = shared.NewDomainError("NOT_FOUND", "patient not found")
		}
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !p.IsActive() {
		err := shared.NewDomainError("INVALID_STATE", "patient is inactive and cannot be billed")
		telemetry.RecordError(span, err)
		return nil, err
	}

	inv, err := billing.NewInvoice(
		billing.GenerateInvoiceNumber(time.Now()),
		req.PatientID,
		valueobject.NewMoneyUSD(req.FlatAmount),
		valueobject.NewMoneyUSD(req.Discount),
		valueobject.NewMoneyUSD(req.TaxAmount),
		req.DueDate,
	)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	inv.AttachEncounter(req.VisitID, req.AppointmentID, req.DoctorID)
	if req.Notes != "" {
		inv.SetNotes(req.Notes)
	}

	for _, item := range req.LineItems {
		if _, err := inv.AddLineItem(toLineItemInput(item)); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	}

	if req.InitialPaid != nil {
		_, err := inv.RecordPayment(
			billing.GeneratePaymentNumber(time.Now()),
			valueobject.NewMoneyUSD(req.InitialPaid.Amount),
			billing.PaymentMethod(req.InitialPaid.Method),
			req.InitialPaid.Details,
			req.RecordedBy,
		)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	}

	if err := s.invoiceRepo.Save(ctx, inv); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.publishEvents(ctx, inv)

	telemetry.SetAttribute(span, telemetry.SpanAttrInvoiceNumber, inv.InvoiceNumber)
	return toInvoiceResponse(inv), nil
}

// GetInvoice returns an invoice with its line items and payments
func (s *InvoiceService) GetInvoice(ctx context.Context, id uuid.UUID) (*InvoiceResponse, error) {
	inv, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toInvoiceResponse(inv), nil
}

// GetInvoiceByNumber returns an invoice by its human-facing number
func (s *InvoiceService) GetInvoiceByNumber(ctx context.Context, invoiceNumber string) (*InvoiceResponse, error) {
	inv, err := s.invoiceRepo.FindByInvoiceNumber(ctx, invoiceNumber)
	if err != nil {
		return nil, err
	}
	return toInvoiceResponse(inv), nil
}

// ListInvoices lists invoices with filtering and pagination
func (s *InvoiceService) ListInvoices(ctx context.Context, filter InvoiceListFilter) ([]InvoiceResponse, int64, error) {
	domainFilter := billing.InvoiceFilter{
		PatientID: filter.PatientID,
		DateFrom:  filter.FromDate,
		DateTo:    filter.ToDate,
		Voided:    filter.Voided,
		Page:      filter.Page,
		PageSize:  filter.PageSize,
	}
	if filter.Status != "" {
		status := billing.PaymentStatus(filter.Status)
		if !status.IsValid() {
			return nil, 0, shared.NewDomainError("INVALID_INPUT", "status: must be one of UNPAID, PARTIAL, PAID")
		}
		domainFilter.Status = &status
	}

	invoices, err := s.invoiceRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.invoiceRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]InvoiceResponse, len(invoices))
	for i := range invoices {
		responses[i] = *toInvoiceResponse(&invoices[i])
	}
	return responses, total, nil
}

// ListPatientInvoices lists the billing history of one patient
func (s *InvoiceService) ListPatientInvoices(ctx context.Context, patientID uuid.UUID, filter InvoiceListFilter) ([]InvoiceResponse, int64, error) {
	if _, err := s.patientRepo.FindByID(ctx, patientID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, 0, shared.NewDomainError("NOT_FOUND", "patient not found")
		}
		return nil, 0, err
	}
	filter.PatientID = &patientID
	return s.ListInvoices(ctx, filter)
}

// AddLineItem appends a charge to an invoice
func (s *InvoiceService) AddLineItem(ctx context.Context, invoiceID uuid.UUID, req LineItemRequest) (*InvoiceResponse, error) {
	inv, err := s.mutateInvoice(ctx, invoiceID, func(inv *billing.Invoice) error {
		_, err := inv.AddLineItem(toLineItemInput(req))
		return err
	})
	if err != nil {
		return nil, err
	}
	return toInvoiceResponse(inv), nil
}

// UpdateLineItem merges a partial update into an existing charge
func (s *InvoiceService) UpdateLineItem(ctx context.Context, invoiceID, itemID uuid.UUID, req UpdateLineItemRequest) (*InvoiceResponse, error) {
	patch := billing.LineItemPatch{
		Description: req.Description,
		Quantity:    req.Quantity,
		UnitPrice:   req.UnitPrice,
		Discount:    req.Discount,
		TaxAmount:   req.TaxAmount,
	}
	if req.Category != nil {
		category := billing.ItemCategory(*req.Category)
		patch.Category = &category
	}

	inv, err := s.mutateInvoice(ctx, invoiceID, func(inv *billing.Invoice) error {
		_, err := inv.UpdateLineItem(itemID, patch)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toInvoiceResponse(inv), nil
}

// RemoveLineItem deletes a charge from an invoice
func (s *InvoiceService) RemoveLineItem(ctx context.Context, invoiceID, itemID uuid.UUID) (*InvoiceResponse, error) {
	inv, err := s.mutateInvoice(ctx, invoiceID, func(inv *billing.Invoice) error {
		return inv.RemoveLineItem(itemID)
	})
	if err != nil {
		return nil, err
	}
	return toInvoiceResponse(inv), nil
}

// VoidInvoice cancels an invoice while preserving its payment trail
func (s *InvoiceService) VoidInvoice(ctx context.Context, invoiceID uuid.UUID, reason string) (*InvoiceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "void")
	defer span.End()

	inv, err := s.mutateInvoice(ctx, invoiceID, func(inv *billing.Invoice) error {
		return inv.Void(reason)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrInvoiceNumber, inv.InvoiceNumber)
	return toInvoiceResponse(inv), nil
}

// DeleteInvoice hard-deletes an invoice. Deletion is refused once any
// payment has been recorded; such invoices must be voided instead.
func (s *InvoiceService) DeleteInvoice(ctx context.Context, invoiceID uuid.UUID) error {
	inv, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return err
	}
	if err := inv.EnsureDeletable(); err != nil {
		return err
	}
	return s.invoiceRepo.Delete(ctx, invoiceID)
}

// mutateInvoice runs one invoice mutation as load-mutate-save with bounded
// optimistic-lock retry. A CONCURRENCY_CONFLICT from the repository means
// another request committed first; the operation is re-run against the
// freshly loaded state so its validations see the winner's writes.
func (s *InvoiceService) mutateInvoice(ctx context.Context, invoiceID uuid.UUID, mutate func(*billing.Invoice) error) (*billing.Invoice, error) {
	var lastErr error
	for attempt := 1; attempt <= maxSaveAttempts; attempt++ {
		inv, err := s.invoiceRepo.FindByID(ctx, invoiceID)
		if err != nil {
			return nil, err
		}

		if err := mutate(inv); err != nil {
			return nil, err
		}

		err = s.invoiceRepo.SaveWithLock(ctx, inv)
		if err == nil {
			s.publishEvents(ctx, inv)
			return inv, nil
		}
		if !errors.Is(err, shared.ErrConcurrencyConflict) {
			return nil, err
		}

		lastErr = err
		s.logger.Warn("invoice save lost optimistic lock, retrying",
			zap.String("invoice_id", invoiceID.String()),
			zap.Int("attempt", attempt),
		)
	}
	return nil, lastErr
}

// publishEvents flushes the aggregate's pending domain events onto the bus.
// Publication is fire-and-forget: the mutation has already committed.
func (s *InvoiceService) publishEvents(ctx context.Context, inv *billing.Invoice) {
	events := inv.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.eventBus.Publish(ctx, events...); err != nil {
		s.logger.Error("failed to publish invoice events",
			zap.String("invoice_id", inv.ID.String()),
			zap.Error(err),
		)
	}
	inv.ClearDomainEvents()
}

func toLineItemInput(req LineItemRequest) billing.LineItemInput {
	return billing.LineItemInput{
		Category:    billing.ItemCategory(req.Category),
		Description: req.Description,
		Quantity:    req.Quantity,
		UnitPrice:   req.UnitPrice,
		Discount:    req.Discount,
		TaxAmount:   req.TaxAmount,
	}
}
