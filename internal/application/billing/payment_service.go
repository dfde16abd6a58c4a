package billing

import (
	"context"
	"errors"
	"time"

	"github.com/clinicore/backend/internal/domain/billing"
	"github.com/clinicore/backend/internal/domain/shared"
	"github.com/clinicore/backend/internal/domain/shared/valueobject"
	"github.com/clinicore/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentService handles payment recording and refunds against invoices
type PaymentService struct {
	invoiceRepo      billing.InvoiceRepository
	idempotencyStore shared.IdempotencyStore
	idempotencyCfg   shared.IdempotencyConfig
	eventBus         shared.EventPublisher
	logger           *zap.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	invoiceRepo billing.InvoiceRepository,
	idempotencyStore shared.IdempotencyStore,
	idempotencyCfg shared.IdempotencyConfig,
	eventBus shared.EventPublisher,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		invoiceRepo:      invoiceRepo,
		idempotencyStore: idempotencyStore,
		idempotencyCfg:   idempotencyCfg,
		eventBus:         eventBus,
		logger:           logger,
	}
}

// RecordPaymentRequest represents a request to record a payment
type RecordPaymentRequest struct {
	Amount         decimal.Decimal        `json:"amount" binding:"required"`
	Method         string                 `json:"method" binding:"required"`
	Details        billing.PaymentDetails `json:"details"`
	RecordedBy     uuid.UUID              `json:"-"`
	IdempotencyKey string                 `json:"-"`
}

// RefundPaymentRequest represents a request to refund part or all of a payment
type RefundPaymentRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
	Reason string          `json:"reason" binding:"required"`
}

// RecordPayment records a payment against an invoice. When the request
// carries an idempotency key, a repeated submission within the key's TTL is
// answered with the invoice's current state and no second payment is written.
func (s *PaymentService) RecordPayment(ctx context.Context, invoiceID uuid.UUID, req RecordPaymentRequest) (*InvoiceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "record")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrInvoiceID, invoiceID.String(),
		telemetry.SpanAttrPaymentMethod, req.Method,
	)

	keyMarked := false
	if s.idempotencyCfg.Enabled && req.IdempotencyKey != "" {
		firstSeen, err := s.idempotencyStore.MarkProcessed(ctx, req.IdempotencyKey, s.idempotencyCfg.TTL)
		if err != nil {
			// A broken store must not block payment intake. Log and proceed
			// without the duplicate guard.
			s.logger.Error("idempotency store unavailable, accepting payment without duplicate guard",
				zap.String("invoice_id", invoiceID.String()),
				zap.Error(err),
			)
		} else if !firstSeen {
			s.logger.Info("duplicate payment submission ignored",
				zap.String("invoice_id", invoiceID.String()),
				zap.String("idempotency_key", req.IdempotencyKey),
			)
			telemetry.AddEvent(span, "duplicate_submission_ignored")
			inv, err := s.invoiceRepo.FindByID(ctx, invoiceID)
			if err != nil {
				telemetry.RecordError(span, err)
				return nil, err
			}
			return toInvoiceResponse(inv), nil
		} else {
			keyMarked = true
		}
	}

	var payment *billing.Payment
	inv, err := s.mutateInvoice(ctx, invoiceID, func(inv *billing.Invoice) error {
		p, err := inv.RecordPayment(
			billing.GeneratePaymentNumber(time.Now()),
			valueobject.NewMoneyUSD(req.Amount),
			billing.PaymentMethod(req.Method),
			req.Details,
			req.RecordedBy,
		)
		if err != nil {
			return err
		}
		payment = p
		return nil
	})
	if err != nil {
		// The key was claimed for a payment that never committed. Release it
		// so the client's retry with the same key is not silently swallowed.
		if keyMarked {
			if forgetErr := s.idempotencyStore.Forget(ctx, req.IdempotencyKey); forgetErr != nil {
				s.logger.Error("failed to release idempotency key after failed payment",
					zap.String("invoice_id", invoiceID.String()),
					zap.String("idempotency_key", req.IdempotencyKey),
					zap.Error(forgetErr),
				)
			}
		}
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrPaymentNumber, payment.PaymentNumber,
		telemetry.SpanAttrInvoiceStatus, string(inv.Status),
	)
	s.logger.Info("payment recorded",
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.String("payment_number", payment.PaymentNumber),
		zap.String("amount", req.Amount.String()),
		zap.String("method", req.Method),
	)
	return toInvoiceResponse(inv), nil
}

// RefundPayment refunds part or all of a payment. The payment record stays
// on the invoice with its refunded amount; refunding may move a PAID invoice
// back to PARTIAL or UNPAID.
func (s *PaymentService) RefundPayment(ctx context.Context, paymentID uuid.UUID, req RefundPaymentRequest) (*InvoiceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "refund")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrPaymentID, paymentID.String())

	owner, err := s.invoiceRepo.FindByPaymentID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			err = shared.NewDomainError("NOT_FOUND", "payment not found")
		}
		telemetry.RecordError(span, err)
		return nil, err
	}

	inv, err := s.mutateInvoice(ctx, owner.ID, func(inv *billing.Invoice) error {
		_, err := inv.RefundPayment(paymentID, valueobject.NewMoneyUSD(req.Amount), req.Reason)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttribute(span, telemetry.SpanAttrInvoiceStatus, string(inv.Status))
	s.logger.Info("payment refunded",
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.String("payment_id", paymentID.String()),
		zap.String("amount", req.Amount.String()),
	)
	return toInvoiceResponse(inv), nil
}

// GetPayment returns a single payment together with its owning invoice id
func (s *PaymentService) GetPayment(ctx context.Context, paymentID uuid.UUID) (*PaymentResponse, error) {
	inv, err := s.invoiceRepo.FindByPaymentID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("NOT_FOUND", "payment not found")
		}
		return nil, err
	}
	p := inv.FindPayment(paymentID)
	if p == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "payment not found")
	}
	resp := toPaymentResponse(p)
	return &resp, nil
}

// mutateInvoice mirrors the invoice service's load-mutate-save retry loop.
func (s *PaymentService) mutateInvoice(ctx context.Context, invoiceID uuid.UUID, mutate func(*billing.Invoice) error) (*billing.Invoice, error) {
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

func (s *PaymentService) publishEvents(ctx context.Context, inv *billing.Invoice) {
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
