package billing

import "github.com/shopspring/decimal"

// PaymentStatus represents the derived settlement state of an invoice
type PaymentStatus string

const (
	PaymentStatusUnpaid  PaymentStatus = "UNPAID"  // No net payment applied
	PaymentStatusPartial PaymentStatus = "PARTIAL" // 0 < paid < total
	PaymentStatusPaid    PaymentStatus = "PAID"    // paid >= total
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusUnpaid, PaymentStatusPartial, PaymentStatusPaid:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// DerivePaymentStatus maps (total, paid) to a settlement status.
// The status is a pure function of the two amounts and is recomputed after
// every mutation; it is never incremented or decremented by operation-specific
// logic, so the stored label can never drift from the numbers behind it.
// An invoice can move backwards (PAID -> PARTIAL/UNPAID) when a new charge
// reopens it or a refund reduces the paid amount.
func DerivePaymentStatus(total, paid decimal.Decimal) PaymentStatus {
	switch {
	case paid.LessThanOrEqual(decimal.Zero):
		return PaymentStatusUnpaid
	case paid.GreaterThanOrEqual(total):
		return PaymentStatusPaid
	default:
		return PaymentStatusPartial
	}
}
