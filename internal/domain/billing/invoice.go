package billing

import (
	"fmt"
	"time"

	"github.com/clinicore/backend/internal/domain/shared"
	"github.com/clinicore/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice is the billing record for a patient encounter. It is the aggregate
// root of the payment reconciliation engine: it exclusively owns its line
// items and payments, and every mutation ends with a full recalculation of
// the derived monetary fields so the aggregate invariants hold after each
// committed change:
//
//	subtotal  = flatAmount + sum(lineItem.totalPrice)
//	total     = max(0, subtotal - discount + tax)
//	paid      = sum(payment.netAmount)
//	remaining = max(0, total - paid)
//	status    = DerivePaymentStatus(total, paid)
//
// An invoice created with a flat amount keeps that amount as a fixed
// subtotal baseline; line items added later bill on top of it. An invoice
// created as an empty shell has a zero baseline, so its subtotal is exactly
// the item sum.
type Invoice struct {
	shared.BaseAggregateRoot
	InvoiceNumber   string          `json:"invoice_number"`
	PatientID       uuid.UUID       `json:"patient_id"`
	VisitID         *uuid.UUID      `json:"visit_id,omitempty"`
	AppointmentID   *uuid.UUID      `json:"appointment_id,omitempty"`
	DoctorID        *uuid.UUID      `json:"doctor_id,omitempty"`
	FlatAmount      decimal.Decimal `json:"flat_amount"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Discount        decimal.Decimal `json:"discount"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	PaidAmount      decimal.Decimal `json:"paid_amount"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	Status          PaymentStatus   `json:"status"`
	InvoiceDate     time.Time       `json:"invoice_date"`
	DueDate         *time.Time      `json:"due_date,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	VoidedAt        *time.Time      `json:"voided_at,omitempty"`
	VoidReason      string          `json:"void_reason,omitempty"`
	LineItems       []LineItem      `json:"line_items"`
	Payments        []Payment       `json:"payments"`
}

// NewInvoice creates an invoice for a patient. The flat amount may be zero,
// in which case the invoice starts as an empty shell that accumulates line
// items.
func NewInvoice(invoiceNumber string, patientID uuid.UUID, flatAmount, discount, tax valueobject.Money, dueDate *time.Time) (*Invoice, error) {
	if invoiceNumber == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "invoice_number: cannot be empty")
	}
	if len(invoiceNumber) > 50 {
		return nil, shared.NewDomainError("INVALID_INPUT", "invoice_number: cannot exceed 50 characters")
	}
	if patientID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "patient_id: cannot be empty")
	}
	if flatAmount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_INPUT", "flat_amount: cannot be negative")
	}
	if discount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_INPUT", "discount: cannot be negative")
	}
	if tax.IsNegative() {
		return nil, shared.NewDomainError("INVALID_INPUT", "tax_amount: cannot be negative")
	}

	inv := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		InvoiceNumber:     invoiceNumber,
		PatientID:         patientID,
		FlatAmount:        flatAmount.Amount(),
		Discount:          discount.Amount(),
		TaxAmount:         tax.Amount(),
		PaidAmount:        decimal.Zero,
		InvoiceDate:       time.Now(),
		DueDate:           dueDate,
		LineItems:         []LineItem{},
		Payments:          []Payment{},
	}
	inv.Recalculate()

	inv.AddDomainEvent(NewInvoiceCreatedEvent(inv))

	return inv, nil
}

// AttachEncounter links the invoice to the clinical records it bills for.
// The links are informational; no ledger invariant depends on them.
func (inv *Invoice) AttachEncounter(visitID, appointmentID, doctorID *uuid.UUID) {
	inv.VisitID = visitID
	inv.AppointmentID = appointmentID
	inv.DoctorID = doctorID
}

// Recalculate rebuilds all derived monetary fields from the invoice's
// current children plus its own discount and tax. It is a pure function of
// that state - it never reads its own previous output - so re-running it any
// number of times converges on the same result.
func (inv *Invoice) Recalculate() {
	subtotal := inv.FlatAmount
	for i := range inv.LineItems {
		subtotal = subtotal.Add(inv.LineItems[i].TotalPrice)
	}
	inv.Subtotal = subtotal

	total := subtotal.Sub(inv.Discount).Add(inv.TaxAmount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	inv.TotalAmount = total

	paid := decimal.Zero
	for i := range inv.Payments {
		paid = paid.Add(inv.Payments[i].NetAmount())
	}
	inv.PaidAmount = paid

	remaining := total.Sub(paid)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	inv.RemainingAmount = remaining

	inv.Status = DerivePaymentStatus(total, paid)
}

// AddLineItem appends a new charge and recalculates the aggregate.
// Adding a charge to a settled invoice reopens it.
func (inv *Invoice) AddLineItem(input LineItemInput) (*LineItem, error) {
	if err := inv.ensureMutable(); err != nil {
		return nil, err
	}

	item, err := NewLineItem(inv.ID, input)
	if err != nil {
		return nil, err
	}

	prev := inv.Status
	inv.LineItems = append(inv.LineItems, *item)
	inv.Recalculate()
	inv.touch()
	inv.recordTransition(prev)

	return &inv.LineItems[len(inv.LineItems)-1], nil
}

// UpdateLineItem merges a patch into an existing charge and recalculates
func (inv *Invoice) UpdateLineItem(itemID uuid.UUID, patch LineItemPatch) (*LineItem, error) {
	if err := inv.ensureMutable(); err != nil {
		return nil, err
	}

	idx := inv.lineItemIndex(itemID)
	if idx < 0 {
		return nil, shared.NewDomainError("NOT_FOUND", fmt.Sprintf("line item %s not found on invoice %s", itemID, inv.InvoiceNumber))
	}

	prev := inv.Status
	if err := inv.LineItems[idx].Apply(patch); err != nil {
		return nil, err
	}
	inv.Recalculate()
	inv.touch()
	inv.recordTransition(prev)

	return &inv.LineItems[idx], nil
}

// RemoveLineItem deletes a charge and recalculates. Removing the last
// remaining item is permitted; the subtotal falls back to the flat baseline.
func (inv *Invoice) RemoveLineItem(itemID uuid.UUID) error {
	if err := inv.ensureMutable(); err != nil {
		return err
	}

	idx := inv.lineItemIndex(itemID)
	if idx < 0 {
		return shared.NewDomainError("NOT_FOUND", fmt.Sprintf("line item %s not found on invoice %s", itemID, inv.InvoiceNumber))
	}

	prev := inv.Status
	inv.LineItems = append(inv.LineItems[:idx], inv.LineItems[idx+1:]...)
	inv.Recalculate()
	inv.touch()
	inv.recordTransition(prev)

	return nil
}

// RecordPayment validates and records a payment against the invoice.
// A payment exceeding the current remaining balance is rejected outright,
// never clamped, and leaves the aggregate untouched.
func (inv *Invoice) RecordPayment(paymentNumber string, amount valueobject.Money, method PaymentMethod, details PaymentDetails, recordedBy uuid.UUID) (*Payment, error) {
	if err := inv.ensureMutable(); err != nil {
		return nil, err
	}

	payment, err := NewPayment(inv.ID, paymentNumber, amount, method, details, recordedBy)
	if err != nil {
		return nil, err
	}

	if amount.Amount().GreaterThan(inv.RemainingAmount) {
		return nil, shared.NewDomainError("OVERPAYMENT_REJECTED",
			fmt.Sprintf("payment amount %s exceeds remaining balance %s of invoice %s",
				amount.Amount().StringFixed(2), inv.RemainingAmount.StringFixed(2), inv.InvoiceNumber))
	}

	prev := inv.Status
	inv.Payments = append(inv.Payments, *payment)
	inv.Recalculate()
	inv.touch()

	recorded := &inv.Payments[len(inv.Payments)-1]
	inv.AddDomainEvent(NewPaymentRecordedEvent(inv, recorded))
	inv.recordTransition(prev)

	return recorded, nil
}

// RefundPayment applies a partial or full refund to one of the invoice's
// payments and recalculates the aggregate. Refunds are final; correcting an
// erroneous refund requires a new, separate payment.
func (inv *Invoice) RefundPayment(paymentID uuid.UUID, amount valueobject.Money, reason string) (*Payment, error) {
	idx := inv.paymentIndex(paymentID)
	if idx < 0 {
		return nil, shared.NewDomainError("NOT_FOUND", fmt.Sprintf("payment %s not found on invoice %s", paymentID, inv.InvoiceNumber))
	}

	prev := inv.Status
	if err := inv.Payments[idx].Refund(amount, reason); err != nil {
		return nil, err
	}
	inv.Recalculate()
	inv.touch()

	refunded := &inv.Payments[idx]
	inv.AddDomainEvent(NewPaymentRefundedEvent(inv, refunded, amount.Amount()))
	inv.recordTransition(prev)

	return refunded, nil
}

// Void cancels the invoice while preserving its payment trail. Voiding is
// the only way to retire an invoice that has recorded payments.
func (inv *Invoice) Void(reason string) error {
	if inv.IsVoided() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("invoice %s is already voided", inv.InvoiceNumber))
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_INPUT", "void_reason: cannot be empty")
	}

	now := time.Now()
	inv.VoidedAt = &now
	inv.VoidReason = reason
	inv.touch()

	inv.AddDomainEvent(NewInvoiceVoidedEvent(inv))

	return nil
}

// EnsureDeletable returns an error unless the invoice may be hard-deleted.
// Once any payment exists the invoice must be voided instead, so the
// financial record is never orphaned.
func (inv *Invoice) EnsureDeletable() error {
	if len(inv.Payments) > 0 {
		return shared.NewDomainError("REFERENTIAL_BLOCK",
			fmt.Sprintf("invoice %s has %d recorded payment(s) and cannot be deleted; void it instead", inv.InvoiceNumber, len(inv.Payments)))
	}
	return nil
}

// SetNotes sets free-form billing notes
func (inv *Invoice) SetNotes(notes string) {
	inv.Notes = notes
	inv.touch()
}

// SetDueDate updates the due date
func (inv *Invoice) SetDueDate(dueDate *time.Time) error {
	if err := inv.ensureMutable(); err != nil {
		return err
	}
	inv.DueDate = dueDate
	inv.touch()
	return nil
}

// IsVoided returns true if the invoice has been voided
func (inv *Invoice) IsVoided() bool {
	return inv.VoidedAt != nil
}

// HasPayments returns true if any payment has been recorded
func (inv *Invoice) HasPayments() bool {
	return len(inv.Payments) > 0
}

// FindPayment returns the payment with the given ID, or nil
func (inv *Invoice) FindPayment(paymentID uuid.UUID) *Payment {
	if idx := inv.paymentIndex(paymentID); idx >= 0 {
		return &inv.Payments[idx]
	}
	return nil
}

// FindLineItem returns the line item with the given ID, or nil
func (inv *Invoice) FindLineItem(itemID uuid.UUID) *LineItem {
	if idx := inv.lineItemIndex(itemID); idx >= 0 {
		return &inv.LineItems[idx]
	}
	return nil
}

func (inv *Invoice) ensureMutable() error {
	if inv.IsVoided() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("invoice %s is voided", inv.InvoiceNumber))
	}
	return nil
}

func (inv *Invoice) lineItemIndex(itemID uuid.UUID) int {
	for i := range inv.LineItems {
		if inv.LineItems[i].ID == itemID {
			return i
		}
	}
	return -1
}

func (inv *Invoice) paymentIndex(paymentID uuid.UUID) int {
	for i := range inv.Payments {
		if inv.Payments[i].ID == paymentID {
			return i
		}
	}
	return -1
}

func (inv *Invoice) touch() {
	inv.Touch()
	inv.IncrementVersion()
}

// recordTransition emits settlement transition events by comparing the
// status before a mutation with the recalculated one.
func (inv *Invoice) recordTransition(prev PaymentStatus) {
	switch {
	case prev != PaymentStatusPaid && inv.Status == PaymentStatusPaid:
		inv.AddDomainEvent(NewInvoiceSettledEvent(inv))
	case prev == PaymentStatusPaid && inv.Status != PaymentStatusPaid:
		inv.AddDomainEvent(NewInvoiceReopenedEvent(inv, prev))
	}
}
