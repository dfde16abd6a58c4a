package models

import (
	"time"

	"github.com/clinicore/backend/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the persistence model for the Invoice aggregate root.
// Line items and payments are child tables keyed by invoice id and are
// loaded and saved together with the invoice row.
type InvoiceModel struct {
	AggregateModel
	InvoiceNumber   string                `gorm:"type:varchar(50);not null;uniqueIndex"`
	PatientID       uuid.UUID             `gorm:"type:uuid;not null;index"`
	VisitID         *uuid.UUID            `gorm:"type:uuid;index"`
	AppointmentID   *uuid.UUID            `gorm:"type:uuid;index"`
	DoctorID        *uuid.UUID            `gorm:"type:uuid;index"`
	FlatAmount      decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	Subtotal        decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	Discount        decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	TaxAmount       decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	TotalAmount     decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	PaidAmount      decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	RemainingAmount decimal.Decimal       `gorm:"type:decimal(18,4);not null;index"`
	Status          billing.PaymentStatus `gorm:"type:varchar(20);not null;default:'UNPAID';index"`
	InvoiceDate     time.Time             `gorm:"not null;index"`
	DueDate         *time.Time            `gorm:"index"`
	Notes           string                `gorm:"type:text"`
	VoidedAt        *time.Time            `gorm:"index"`
	VoidReason      string                `gorm:"type:varchar(500)"`
	LineItems       []InvoiceLineItemModel `gorm:"foreignKey:InvoiceID;references:ID"`
	Payments        []PaymentModel         `gorm:"foreignKey:InvoiceID;references:ID"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// InvoiceLineItemModel is the persistence model for an invoice line item
type InvoiceLineItemModel struct {
	BaseModel
	InvoiceID   uuid.UUID            `gorm:"type:uuid;not null;index"`
	Category    billing.ItemCategory `gorm:"type:varchar(20);not null"`
	Description string               `gorm:"type:varchar(500);not null"`
	Quantity    int                  `gorm:"not null;default:1"`
	UnitPrice   decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	Discount    decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	TaxAmount   decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	TotalPrice  decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (InvoiceLineItemModel) TableName() string {
	return "invoice_line_items"
}

// PaymentModel is the persistence model for a payment against an invoice
type PaymentModel struct {
	BaseModel
	InvoiceID      uuid.UUID             `gorm:"type:uuid;not null;index"`
	PaymentNumber  string                `gorm:"type:varchar(50);not null;uniqueIndex"`
	Amount         decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	Method         billing.PaymentMethod `gorm:"type:varchar(20);not null"`
	CardLastDigits string                `gorm:"type:varchar(4)"`
	CheckNumber    string                `gorm:"type:varchar(50)"`
	BankName       string                `gorm:"type:varchar(100)"`
	Reference      string                `gorm:"type:varchar(100)"`
	ReceivedAt     time.Time             `gorm:"not null;index"`
	RecordedBy     uuid.UUID             `gorm:"type:uuid;not null"`
	RefundedAmount decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	RefundedAt     *time.Time
	RefundReason   string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Invoice aggregate
func (m *InvoiceModel) ToDomain() *billing.Invoice {
	inv := &billing.Invoice{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		InvoiceNumber:     m.InvoiceNumber,
		PatientID:         m.PatientID,
		VisitID:           m.VisitID,
		AppointmentID:     m.AppointmentID,
		DoctorID:          m.DoctorID,
		FlatAmount:        m.FlatAmount,
		Subtotal:          m.Subtotal,
		Discount:          m.Discount,
		TaxAmount:         m.TaxAmount,
		TotalAmount:       m.TotalAmount,
		PaidAmount:        m.PaidAmount,
		RemainingAmount:   m.RemainingAmount,
		Status:            m.Status,
		InvoiceDate:       m.InvoiceDate,
		DueDate:           m.DueDate,
		Notes:             m.Notes,
		VoidedAt:          m.VoidedAt,
		VoidReason:        m.VoidReason,
		LineItems:         make([]billing.LineItem, len(m.LineItems)),
		Payments:          make([]billing.Payment, len(m.Payments)),
	}
	for i := range m.LineItems {
		inv.LineItems[i] = *m.LineItems[i].ToDomain()
	}
	for i := range m.Payments {
		inv.Payments[i] = *m.Payments[i].ToDomain()
	}
	return inv
}

// FromDomain populates the persistence model from a domain Invoice aggregate
func (m *InvoiceModel) FromDomain(inv *billing.Invoice) {
	m.FromDomainAggregateRoot(inv.BaseAggregateRoot)
	m.InvoiceNumber = inv.InvoiceNumber
	m.PatientID = inv.PatientID
	m.VisitID = inv.VisitID
	m.AppointmentID = inv.AppointmentID
	m.DoctorID = inv.DoctorID
	m.FlatAmount = inv.FlatAmount
	m.Subtotal = inv.Subtotal
	m.Discount = inv.Discount
	m.TaxAmount = inv.TaxAmount
	m.TotalAmount = inv.TotalAmount
	m.PaidAmount = inv.PaidAmount
	m.RemainingAmount = inv.RemainingAmount
	m.Status = inv.Status
	m.InvoiceDate = inv.InvoiceDate
	m.DueDate = inv.DueDate
	m.Notes = inv.Notes
	m.VoidedAt = inv.VoidedAt
	m.VoidReason = inv.VoidReason
	m.LineItems = make([]InvoiceLineItemModel, len(inv.LineItems))
	for i := range inv.LineItems {
		m.LineItems[i].FromDomain(&inv.LineItems[i])
	}
	m.Payments = make([]PaymentModel, len(inv.Payments))
	for i := range inv.Payments {
		m.Payments[i].FromDomain(&inv.Payments[i])
	}
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice
func InvoiceModelFromDomain(inv *billing.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

// ToDomain converts the persistence model to a domain LineItem
func (m *InvoiceLineItemModel) ToDomain() *billing.LineItem {
	return &billing.LineItem{
		BaseEntity:  m.BaseModel.ToDomain(),
		InvoiceID:   m.InvoiceID,
		Category:    m.Category,
		Description: m.Description,
		Quantity:    m.Quantity,
		UnitPrice:   m.UnitPrice,
		Discount:    m.Discount,
		TaxAmount:   m.TaxAmount,
		TotalPrice:  m.TotalPrice,
	}
}

// FromDomain populates the persistence model from a domain LineItem
func (m *InvoiceLineItemModel) FromDomain(item *billing.LineItem) {
	m.FromDomainBaseEntity(item.BaseEntity)
	m.InvoiceID = item.InvoiceID
	m.Category = item.Category
	m.Description = item.Description
	m.Quantity = item.Quantity
	m.UnitPrice = item.UnitPrice
	m.Discount = item.Discount
	m.TaxAmount = item.TaxAmount
	m.TotalPrice = item.TotalPrice
}

// ToDomain converts the persistence model to a domain Payment
func (m *PaymentModel) ToDomain() *billing.Payment {
	return &billing.Payment{
		BaseEntity:    m.BaseModel.ToDomain(),
		InvoiceID:     m.InvoiceID,
		PaymentNumber: m.PaymentNumber,
		Amount:        m.Amount,
		Method:        m.Method,
		Details: billing.PaymentDetails{
			CardLastDigits: m.CardLastDigits,
			CheckNumber:    m.CheckNumber,
			BankName:       m.BankName,
			Reference:      m.Reference,
		},
		ReceivedAt:     m.ReceivedAt,
		RecordedBy:     m.RecordedBy,
		RefundedAmount: m.RefundedAmount,
		RefundedAt:     m.RefundedAt,
		RefundReason:   m.RefundReason,
	}
}

// FromDomain populates the persistence model from a domain Payment
func (m *PaymentModel) FromDomain(p *billing.Payment) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.InvoiceID = p.InvoiceID
	m.PaymentNumber = p.PaymentNumber
	m.Amount = p.Amount
	m.Method = p.Method
	m.CardLastDigits = p.Details.CardLastDigits
	m.CheckNumber = p.Details.CheckNumber
	m.BankName = p.Details.BankName
	m.Reference = p.Details.Reference
	m.ReceivedAt = p.ReceivedAt
	m.RecordedBy = p.RecordedBy
	m.RefundedAmount = p.RefundedAmount
	m.RefundedAt = p.RefundedAt
	m.RefundReason = p.RefundReason
}
