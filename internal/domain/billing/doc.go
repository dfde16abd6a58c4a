// Package billing implements the clinic's invoice and payment
// reconciliation engine.
//
// The Invoice aggregate keeps its three derived amounts (subtotal, paid,
// remaining) and its settlement status consistent with its line items and
// payment history. Rather than patching the aggregate fields incrementally
// on each event, every mutation ends with an idempotent recalculation over
// the current children, so concurrent editors can never leave the stored
// numbers disagreeing with the rows that justify them.
package billing
