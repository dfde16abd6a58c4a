package models

import (
	"time"

	"github.com/clinicore/backend/internal/domain/patient"
)

// PatientModel is the persistence model for the Patient aggregate
type PatientModel struct {
	AggregateModel
	MedicalRecordNumber string                `gorm:"type:varchar(50);not null;uniqueIndex"`
	FirstName           string                `gorm:"type:varchar(100);not null"`
	LastName            string                `gorm:"type:varchar(100);not null;index"`
	DateOfBirth         *time.Time
	Gender              patient.Gender        `gorm:"type:varchar(10);not null;default:'UNKNOWN'"`
	Phone               string                `gorm:"type:varchar(50)"`
	Email               string                `gorm:"type:varchar(200)"`
	Address             string                `gorm:"type:varchar(500)"`
	Status              patient.PatientStatus `gorm:"type:varchar(20);not null;default:'ACTIVE';index"`
	Notes               string                `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (PatientModel) TableName() string {
	return "patients"
}

// ToDomain converts the persistence model to a domain Patient
func (m *PatientModel) ToDomain() *patient.Patient {
	return &patient.Patient{
		BaseAggregateRoot:   m.ToDomainAggregateRoot(),
		MedicalRecordNumber: m.MedicalRecordNumber,
		FirstName:           m.FirstName,
		LastName:            m.LastName,
		DateOfBirth:         m.DateOfBirth,
		Gender:              m.Gender,
		Phone:               m.Phone,
		Email:               m.Email,
		Address:             m.Address,
		Status:              m.Status,
		Notes:               m.Notes,
	}
}

// FromDomain populates the persistence model from a domain Patient
func (m *PatientModel) FromDomain(p *patient.Patient) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.MedicalRecordNumber = p.MedicalRecordNumber
	m.FirstName = p.FirstName
	m.LastName = p.LastName
	m.DateOfBirth = p.DateOfBirth
	m.Gender = p.Gender
	m.Phone = p.Phone
	m.Email = p.Email
	m.Address = p.Address
	m.Status = p.Status
	m.Notes = p.Notes
}

// PatientModelFromDomain creates a new persistence model from a domain Patient
func PatientModelFromDomain(p *patient.Patient) *PatientModel {
	m := &PatientModel{}
	m.FromDomain(p)
	return m
}
