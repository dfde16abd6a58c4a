package patient

import (
	"regexp"
	"strings"
	"time"

	"github.com/clinicore/backend/internal/domain/shared"
)

// PatientStatus represents the registration status of a patient
type PatientStatus string

const (
	PatientStatusActive   PatientStatus = "ACTIVE"
	PatientStatusInactive PatientStatus = "INACTIVE"
)

// Gender as recorded on the patient's registration
type Gender string

const (
	GenderMale    Gender = "MALE"
	GenderFemale  Gender = "FEMALE"
	GenderOther   Gender = "OTHER"
	GenderUnknown Gender = "UNKNOWN"
)

// Patient is the billing-facing patient record. The engine only needs the
// identity and contact surface of a patient; clinical data lives elsewhere.
type Patient struct {
	shared.BaseAggregateRoot
	MedicalRecordNumber string        `json:"medical_record_number"`
	FirstName           string        `json:"first_name"`
	LastName            string        `json:"last_name"`
	DateOfBirth         *time.Time    `json:"date_of_birth,omitempty"`
	Gender              Gender        `json:"gender"`
	Phone               string        `json:"phone,omitempty"`
	Email               string        `json:"email,omitempty"`
	Address             string        `json:"address,omitempty"`
	Status              PatientStatus `json:"status"`
	Notes               string        `json:"notes,omitempty"`
}

// NewPatient registers a patient with the minimum identity the billing
// engine requires.
func NewPatient(mrn, firstName, lastName string) (*Patient, error) {
	if err := validateMRN(mrn); err != nil {
		return nil, err
	}
	if err := validateName("first_name", firstName); err != nil {
		return nil, err
	}
	if err := validateName("last_name", lastName); err != nil {
		return nil, err
	}

	return &Patient{
		BaseAggregateRoot:   shared.NewBaseAggregateRoot(),
		MedicalRecordNumber: strings.ToUpper(mrn),
		FirstName:           firstName,
		LastName:            lastName,
		Gender:              GenderUnknown,
		Status:              PatientStatusActive,
	}, nil
}

// FullName returns the patient's display name
func (p *Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// UpdateName changes the patient's legal name
func (p *Patient) UpdateName(firstName, lastName string) error {
	if err := validateName("first_name", firstName); err != nil {
		return err
	}
	if err := validateName("last_name", lastName); err != nil {
		return err
	}

	p.FirstName = firstName
	p.LastName = lastName
	p.touch()
	return nil
}

// SetDemographics sets date of birth and gender
func (p *Patient) SetDemographics(dateOfBirth *time.Time, gender Gender) error {
	if dateOfBirth != nil && dateOfBirth.After(time.Now()) {
		return shared.NewDomainError("INVALID_INPUT", "date_of_birth: cannot be in the future")
	}
	if gender != "" && !gender.IsValid() {
		return shared.NewDomainError("INVALID_INPUT", "gender: must be one of MALE, FEMALE, OTHER, UNKNOWN")
	}

	p.DateOfBirth = dateOfBirth
	if gender != "" {
		p.Gender = gender
	}
	p.touch()
	return nil
}

// SetContact sets the patient's contact information
func (p *Patient) SetContact(phone, email, address string) error {
	if phone != "" {
		if err := validatePhone(phone); err != nil {
			return err
		}
	}
	if email != "" {
		if err := validateEmail(email); err != nil {
			return err
		}
	}
	if len(address) > 500 {
		return shared.NewDomainError("INVALID_INPUT", "address: cannot exceed 500 characters")
	}

	p.Phone = phone
	p.Email = email
	p.Address = address
	p.touch()
	return nil
}

// SetNotes sets free-form registration notes
func (p *Patient) SetNotes(notes string) {
	p.Notes = notes
	p.touch()
}

// Deactivate marks the patient record inactive. Inactive patients keep
// their invoices but cannot be billed for new ones.
func (p *Patient) Deactivate() error {
	if p.Status == PatientStatusInactive {
		return shared.NewDomainError("INVALID_STATE", "patient is already inactive")
	}
	p.Status = PatientStatusInactive
	p.touch()
	return nil
}

// Activate reinstates an inactive patient record
func (p *Patient) Activate() error {
	if p.Status == PatientStatusActive {
		return shared.NewDomainError("INVALID_STATE", "patient is already active")
	}
	p.Status = PatientStatusActive
	p.touch()
	return nil
}

// IsActive returns true if the patient may be billed
func (p *Patient) IsActive() bool {
	return p.Status == PatientStatusActive
}

// IsValid reports whether the gender value is one of the known labels
func (g Gender) IsValid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther, GenderUnknown:
		return true
	}
	return false
}

func (p *Patient) touch() {
	p.Touch()
	p.IncrementVersion()
}

var (
	mrnPattern   = regexp.MustCompile(`^[A-Za-z0-9\-]+$`)
	phonePattern = regexp.MustCompile(`^[\d\s\-\(\)\+]+$`)
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

func validateMRN(mrn string) error {
	if mrn == "" {
		return shared.NewDomainError("INVALID_INPUT", "medical_record_number: cannot be empty")
	}
	if len(mrn) > 50 {
		return shared.NewDomainError("INVALID_INPUT", "medical_record_number: cannot exceed 50 characters")
	}
	if !mrnPattern.MatchString(mrn) {
		return shared.NewDomainError("INVALID_INPUT", "medical_record_number: can only contain letters, numbers and hyphens")
	}
	return nil
}

func validateName(field, name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_INPUT", field+": cannot be empty")
	}
	if len(name) > 100 {
		return shared.NewDomainError("INVALID_INPUT", field+": cannot exceed 100 characters")
	}
	return nil
}

func validatePhone(phone string) error {
	if len(phone) > 50 {
		return shared.NewDomainError("INVALID_INPUT", "phone: cannot exceed 50 characters")
	}
	if !phonePattern.MatchString(phone) {
		return shared.NewDomainError("INVALID_INPUT", "phone: invalid format")
	}
	return nil
}

func validateEmail(email string) error {
	if len(email) > 200 {
		return shared.NewDomainError("INVALID_INPUT", "email: cannot exceed 200 characters")
	}
	if !emailPattern.MatchString(email) {
		return shared.NewDomainError("INVALID_INPUT", "email: invalid format")
	}
	return nil
}
