package event

import (
	"context"

	"github.com/clinicore/backend/internal/domain/billing"
	"github.com/clinicore/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// AuditLogHandler writes an audit trail entry for every billing event.
// It is a fire-and-forget subscriber: a failed audit write never blocks
// or fails the money movement that produced the event.
type AuditLogHandler struct {
	logger *zap.Logger
}

// NewAuditLogHandler creates a new AuditLogHandler
func NewAuditLogHandler(logger *zap.Logger) *AuditLogHandler {
	return &AuditLogHandler{
		logger: logger.Named("audit"),
	}
}

// Handle logs the event with its money fields where present
func (h *AuditLogHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_id", event.EventID().String()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	}

	switch e := event.(type) {
	case *billing.PaymentRecordedEvent:
		fields = append(fields,
			zap.String("invoice_number", e.InvoiceNumber),
			zap.String("payment_number", e.PaymentNumber),
			zap.String("amount", e.Amount.String()),
			zap.String("method", string(e.Method)),
			zap.String("recorded_by", e.RecordedBy.String()),
			zap.String("remaining_amount", e.RemainingAmount.String()),
		)
	case *billing.PaymentRefundedEvent:
		fields = append(fields,
			zap.String("invoice_number", e.InvoiceNumber),
			zap.String("payment_number", e.PaymentNumber),
			zap.String("refund_amount", e.RefundAmount.String()),
			zap.String("refund_reason", e.RefundReason),
		)
	case *billing.InvoiceVoidedEvent:
		fields = append(fields,
			zap.String("invoice_number", e.InvoiceNumber),
			zap.String("void_reason", e.VoidReason),
			zap.String("paid_amount", e.PaidAmount.String()),
		)
	case *billing.InvoiceSettledEvent:
		fields = append(fields,
			zap.String("invoice_number", e.InvoiceNumber),
			zap.String("total_amount", e.TotalAmount.String()),
		)
	case *billing.InvoiceReopenedEvent:
		fields = append(fields,
			zap.String("invoice_number", e.InvoiceNumber),
			zap.String("previous_status", string(e.PreviousStatus)),
			zap.String("new_status", string(e.NewStatus)),
		)
	case *billing.InvoiceCreatedEvent:
		fields = append(fields,
			zap.String("invoice_number", e.InvoiceNumber),
			zap.String("total_amount", e.TotalAmount.String()),
		)
	}

	h.logger.Info(event.EventType(), fields...)
	return nil
}

// EventTypes returns the billing event types this handler subscribes to
func (h *AuditLogHandler) EventTypes() []string {
	return []string{
		billing.EventTypeInvoiceCreated,
		billing.EventTypePaymentRecorded,
		billing.EventTypePaymentRefunded,
		billing.EventTypeInvoiceSettled,
		billing.EventTypeInvoiceReopened,
		billing.EventTypeInvoiceVoided,
	}
}

// Ensure AuditLogHandler implements EventHandler
var _ shared.EventHandler = (*AuditLogHandler)(nil)
