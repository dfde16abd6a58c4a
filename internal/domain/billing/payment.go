package billing

import (
	"fmt"
	"time"

	"github.com/clinicore/backend/internal/domain/shared"
	"github.com/clinicore/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod represents the method of payment
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"          // Cash at the front desk
	PaymentMethodCard         PaymentMethod = "CARD"          // Credit/debit card
	PaymentMethodCheck        PaymentMethod = "CHECK"         // Check/Cheque
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER" // Bank transfer
	PaymentMethodInsurance    PaymentMethod = "INSURANCE"     // Insurance settlement
	PaymentMethodOther        PaymentMethod = "OTHER"         // Other methods
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodCheck,
		PaymentMethodBankTransfer, PaymentMethodInsurance, PaymentMethodOther:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// PaymentDetails holds optional, method-specific reference data.
// Purely informational; no ledger invariant depends on it.
type PaymentDetails struct {
	CardLastDigits string `json:"card_last_digits,omitempty"`
	CheckNumber    string `json:"check_number,omitempty"`
	BankName       string `json:"bank_name,omitempty"`
	Reference      string `json:"reference,omitempty"`
}

// Payment represents a recorded inbound amount against an invoice.
// Refund state is embedded in the payment's own record: RefundedAmount can
// only grow, never exceed Amount, and never be reduced. A refund is not a
// new negative payment.
type Payment struct {
	shared.BaseEntity
	InvoiceID      uuid.UUID       `json:"invoice_id"`
	PaymentNumber  string          `json:"payment_number"`
	Amount         decimal.Decimal `json:"amount"`
	Method         PaymentMethod   `json:"method"`
	Details        PaymentDetails  `json:"details"`
	ReceivedAt     time.Time       `json:"received_at"`
	RecordedBy     uuid.UUID       `json:"recorded_by"`
	RefundedAmount decimal.Decimal `json:"refunded_amount"`
	RefundedAt     *time.Time      `json:"refunded_at,omitempty"`
	RefundReason   string          `json:"refund_reason,omitempty"`
}

// NewPayment creates a validated payment for the given invoice
func NewPayment(invoiceID uuid.UUID, paymentNumber string, amount valueobject.Money, method PaymentMethod, details PaymentDetails, recordedBy uuid.UUID) (*Payment, error) {
	if paymentNumber == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "payment_number: cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_INPUT", "amount: must be positive")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("method: %q is not a valid payment method", method))
	}

	return &Payment{
		BaseEntity:     shared.NewBaseEntity(),
		InvoiceID:      invoiceID,
		PaymentNumber:  paymentNumber,
		Amount:         amount.Amount(),
		Method:         method,
		Details:        details,
		ReceivedAt:     time.Now(),
		RecordedBy:     recordedBy,
		RefundedAmount: decimal.Zero,
	}, nil
}

// NetAmount returns the payment's remaining contribution to the invoice:
// amount - refundedAmount
func (p *Payment) NetAmount() decimal.Decimal {
	return p.Amount.Sub(p.RefundedAmount)
}

// RefundableAmount returns how much of this payment can still be refunded
func (p *Payment) RefundableAmount() decimal.Decimal {
	return p.NetAmount()
}

// IsFullyRefunded returns true when nothing of the payment remains
func (p *Payment) IsFullyRefunded() bool {
	return p.NetAmount().IsZero()
}

// Refund increases the refunded amount. Refunds are monotonic and final:
// there is no un-refund, and the cumulative refunded amount can never exceed
// the original payment amount.
func (p *Payment) Refund(amount valueobject.Money, reason string) error {
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_REFUND", "refund amount must be positive")
	}
	if p.IsFullyRefunded() {
		return shared.NewDomainError("INVALID_REFUND",
			fmt.Sprintf("payment %s is already fully refunded", p.PaymentNumber))
	}
	if amount.Amount().GreaterThan(p.RefundableAmount()) {
		return shared.NewDomainError("INVALID_REFUND",
			fmt.Sprintf("refund amount %s exceeds refundable balance %s of payment %s",
				amount.Amount().StringFixed(2), p.RefundableAmount().StringFixed(2), p.PaymentNumber))
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REFUND", "refund reason is required")
	}

	now := time.Now()
	p.RefundedAmount = p.RefundedAmount.Add(amount.Amount())
	p.RefundedAt = &now
	p.RefundReason = reason
	p.UpdatedAt = now
	return nil
}
