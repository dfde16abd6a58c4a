package billing

import (
	"time"

	"github.com/clinicore/backend/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID              uuid.UUID          `json:"id"`
	InvoiceNumber   string             `json:"invoice_number"`
	PatientID       uuid.UUID          `json:"patient_id"`
	VisitID         *uuid.UUID         `json:"visit_id,omitempty"`
	AppointmentID   *uuid.UUID         `json:"appointment_id,omitempty"`
	DoctorID        *uuid.UUID         `json:"doctor_id,omitempty"`
	FlatAmount      decimal.Decimal    `json:"flat_amount"`
	Subtotal        decimal.Decimal    `json:"subtotal"`
	Discount        decimal.Decimal    `json:"discount"`
	TaxAmount       decimal.Decimal    `json:"tax_amount"`
	TotalAmount     decimal.Decimal    `json:"total_amount"`
	PaidAmount      decimal.Decimal    `json:"paid_amount"`
	RemainingAmount decimal.Decimal    `json:"remaining_amount"`
	Status          string             `json:"status"`
	InvoiceDate     time.Time          `json:"invoice_date"`
	DueDate         *time.Time         `json:"due_date,omitempty"`
	Notes           string             `json:"notes,omitempty"`
	VoidedAt        *time.Time         `json:"voided_at,omitempty"`
	VoidReason      string             `json:"void_reason,omitempty"`
	LineItems       []LineItemResponse `json:"line_items,omitempty"`
	Payments        []PaymentResponse  `json:"payments,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
	Version         int                `json:"version"`
}

// LineItemResponse represents an invoice line item in API responses
type LineItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Discount    decimal.Decimal `json:"discount"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID             uuid.UUID       `json:"id"`
	InvoiceID      uuid.UUID       `json:"invoice_id"`
	PaymentNumber  string          `json:"payment_number"`
	Amount         decimal.Decimal `json:"amount"`
	Method         string          `json:"method"`
	CardLastDigits string          `json:"card_last_digits,omitempty"`
	CheckNumber    string          `json:"check_number,omitempty"`
	BankName       string          `json:"bank_name,omitempty"`
	Reference      string          `json:"reference,omitempty"`
	ReceivedAt     time.Time       `json:"received_at"`
	RecordedBy     uuid.UUID       `json:"recorded_by"`
	RefundedAmount decimal.Decimal `json:"refunded_amount"`
	NetAmount      decimal.Decimal `json:"net_amount"`
	RefundedAt     *time.Time      `json:"refunded_at,omitempty"`
	RefundReason   string          `json:"refund_reason,omitempty"`
}

func toInvoiceResponse(inv *billing.Invoice) *InvoiceResponse {
	resp := &InvoiceResponse{
		ID:              inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		PatientID:       inv.PatientID,
		VisitID:         inv.VisitID,
		AppointmentID:   inv.AppointmentID,
		DoctorID:        inv.DoctorID,
		FlatAmount:      inv.FlatAmount,
		Subtotal:        inv.Subtotal,
		Discount:        inv.Discount,
		TaxAmount:       inv.TaxAmount,
		TotalAmount:     inv.TotalAmount,
		PaidAmount:      inv.PaidAmount,
		RemainingAmount: inv.RemainingAmount,
		Status:          string(inv.Status),
		InvoiceDate:     inv.InvoiceDate,
		DueDate:         inv.DueDate,
		Notes:           inv.Notes,
		VoidedAt:        inv.VoidedAt,
		VoidReason:      inv.VoidReason,
		CreatedAt:       inv.CreatedAt,
		UpdatedAt:       inv.UpdatedAt,
		Version:         inv.Version,
	}
	if len(inv.LineItems) > 0 {
		resp.LineItems = make([]LineItemResponse, len(inv.LineItems))
		for i := range inv.LineItems {
			resp.LineItems[i] = toLineItemResponse(&inv.LineItems[i])
		}
	}
	if len(inv.Payments) > 0 {
		resp.Payments = make([]PaymentResponse, len(inv.Payments))
		for i := range inv.Payments {
			resp.Payments[i] = toPaymentResponse(&inv.Payments[i])
		}
	}
	return resp
}

func toLineItemResponse(item *billing.LineItem) LineItemResponse {
	return LineItemResponse{
		ID:          item.ID,
		Category:    string(item.Category),
		Description: item.Description,
		Quantity:    item.Quantity,
		UnitPrice:   item.UnitPrice,
		Discount:    item.Discount,
		TaxAmount:   item.TaxAmount,
		TotalPrice:  item.TotalPrice,
	}
}

func toPaymentResponse(p *billing.Payment) PaymentResponse {
	return PaymentResponse{
		ID:             p.ID,
		InvoiceID:      p.InvoiceID,
		PaymentNumber:  p.PaymentNumber,
		Amount:         p.Amount,
		Method:         string(p.Method),
		CardLastDigits: p.Details.CardLastDigits,
		CheckNumber:    p.Details.CheckNumber,
		BankName:       p.Details.BankName,
		Reference:      p.Details.Reference,
		ReceivedAt:     p.ReceivedAt,
		RecordedBy:     p.RecordedBy,
		RefundedAmount: p.RefundedAmount,
		NetAmount:      p.NetAmount(),
		RefundedAt:     p.RefundedAt,
		RefundReason:   p.RefundReason,
	}
}
