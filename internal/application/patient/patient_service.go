package patient

import (
	"context"
	"time"

	"github.com/clinicore/backend/internal/domain/billing"
	"github.com/clinicore/backend/internal/domain/patient"
	"github.com/clinicore/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PatientService provides application-level patient registry operations
type PatientService struct {
	patientRepo patient.PatientRepository
	invoiceRepo billing.InvoiceRepository
	logger      *zap.Logger
}

// NewPatientService creates a new PatientService
func NewPatientService(
	patientRepo patient.PatientRepository,
	invoiceRepo billing.InvoiceRepository,
	logger *zap.Logger,
) *PatientService {
	return &PatientService{
		patientRepo: patientRepo,
		invoiceRepo: invoiceRepo,
		logger:      logger,
	}
}

// RegisterPatientRequest represents a request to register a patient
type RegisterPatientRequest struct {
	MedicalRecordNumber string     `json:"medical_record_number" binding:"required"`
	FirstName           string     `json:"first_name" binding:"required"`
	LastName            string     `json:"last_name" binding:"required"`
	DateOfBirth         *time.Time `json:"date_of_birth"`
	Gender              string     `json:"gender"`
	Phone               string     `json:"phone"`
	Email               string     `json:"email"`
	Address             string     `json:"address"`
	Notes               string     `json:"notes"`
}

// UpdatePatientRequest represents a partial update to a patient record.
// Nil fields are left unchanged.
type UpdatePatientRequest struct {
	FirstName   *string    `json:"first_name"`
	LastName    *string    `json:"last_name"`
	DateOfBirth *time.Time `json:"date_of_birth"`
	Gender      *string    `json:"gender"`
	Phone       *string    `json:"phone"`
	Email       *string    `json:"email"`
	Address     *string    `json:"address"`
	Notes       *string    `json:"notes"`
}

// PatientListFilter defines filtering options for patient list queries
type PatientListFilter struct {
	Search   string `form:"search"`
	Status   string `form:"status"`
	Gender   string `form:"gender"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// PatientResponse represents a patient in API responses
type PatientResponse struct {
	ID                  uuid.UUID  `json:"id"`
	MedicalRecordNumber string     `json:"medical_record_number"`
	FirstName           string     `json:"first_name"`
	LastName            string     `json:"last_name"`
	FullName            string     `json:"full_name"`
	DateOfBirth         *time.Time `json:"date_of_birth,omitempty"`
	Gender              string     `json:"gender"`
	Phone               string     `json:"phone,omitempty"`
	Email               string     `json:"email,omitempty"`
	Address             string     `json:"address,omitempty"`
	Status              string     `json:"status"`
	Notes               string     `json:"notes,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// Register registers a new patient. Medical record numbers are unique across
// the registry and stored uppercased.
func (s *PatientService) Register(ctx context.Context, req RegisterPatientRequest) (*PatientResponse, error) {
	exists, err := s.patientRepo.ExistsByMRN(ctx, req.MedicalRecordNumber)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "a patient with this medical record number already exists")
	}

	p, err := patient.NewPatient(req.MedicalRecordNumber, req.FirstName, req.LastName)
	if err != nil {
		return nil, err
	}
	if req.DateOfBirth != nil || req.Gender != "" {
		if err := p.SetDemographics(req.DateOfBirth, patient.Gender(req.Gender)); err != nil {
			return nil, err
		}
	}
	if req.Phone != "" || req.Email != "" || req.Address != "" {
		if err := p.SetContact(req.Phone, req.Email, req.Address); err != nil {
			return nil, err
		}
	}
	if req.Notes != "" {
		p.SetNotes(req.Notes)
	}

	if err := s.patientRepo.Save(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("patient registered",
		zap.String("patient_id", p.ID.String()),
		zap.String("mrn", p.MedicalRecordNumber),
	)
	return toPatientResponse(p), nil
}

// Get returns a patient by internal id
func (s *PatientService) Get(ctx context.Context, id uuid.UUID) (*PatientResponse, error) {
	p, err := s.patientRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toPatientResponse(p), nil
}

// GetByMRN returns a patient by medical record number
func (s *PatientService) GetByMRN(ctx context.Context, mrn string) (*PatientResponse, error) {
	p, err := s.patientRepo.FindByMRN(ctx, mrn)
	if err != nil {
		return nil, err
	}
	return toPatientResponse(p), nil
}

// List lists patients with filtering and pagination
func (s *PatientService) List(ctx context.Context, filter PatientListFilter) ([]PatientResponse, int64, error) {
	domainFilter := shared.Filter{
		Search:   filter.Search,
		Page:     filter.Page,
		PageSize: filter.PageSize,
		Filters:  map[string]interface{}{},
	}
	if filter.Status != "" {
		domainFilter.Filters["status"] = filter.Status
	}
	if filter.Gender != "" {
		domainFilter.Filters["gender"] = filter.Gender
	}

	patients, err := s.patientRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.patientRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]PatientResponse, len(patients))
	for i := range patients {
		responses[i] = *toPatientResponse(&patients[i])
	}
	return responses, total, nil
}

// Update merges a partial update into a patient record
func (s *PatientService) Update(ctx context.Context, id uuid.UUID, req UpdatePatientRequest) (*PatientResponse, error) {
	p, err := s.patientRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.FirstName != nil || req.LastName != nil {
		firstName := p.FirstName
		lastName := p.LastName
		if req.FirstName != nil {
			firstName = *req.FirstName
		}
		if req.LastName != nil {
			lastName = *req.LastName
		}
		if err := p.UpdateName(firstName, lastName); err != nil {
			return nil, err
		}
	}

	if req.DateOfBirth != nil || req.Gender != nil {
		dob := p.DateOfBirth
		gender := p.Gender
		if req.DateOfBirth != nil {
			dob = req.DateOfBirth
		}
		if req.Gender != nil {
			gender = patient.Gender(*req.Gender)
		}
		if err := p.SetDemographics(dob, gender); err != nil {
			return nil, err
		}
	}

	if req.Phone != nil || req.Email != nil || req.Address != nil {
		phone := p.Phone
		email := p.Email
		address := p.Address
		if req.Phone != nil {
			phone = *req.Phone
		}
		if req.Email != nil {
			email = *req.Email
		}
		if req.Address != nil {
			address = *req.Address
		}
		if err := p.SetContact(phone, email, address); err != nil {
			return nil, err
		}
	}

	if req.Notes != nil {
		p.SetNotes(*req.Notes)
	}

	if err := s.patientRepo.Save(ctx, p); err != nil {
		return nil, err
	}
	return toPatientResponse(p), nil
}

// Deactivate marks a patient record inactive
func (s *PatientService) Deactivate(ctx context.Context, id uuid.UUID) (*PatientResponse, error) {
	return s.changeStatus(ctx, id, (*patient.Patient).Deactivate)
}

// Activate reinstates an inactive patient record
func (s *PatientService) Activate(ctx context.Context, id uuid.UUID) (*PatientResponse, error) {
	return s.changeStatus(ctx, id, (*patient.Patient).Activate)
}

// Delete removes a patient record. Patients with billing history cannot be
// deleted; deactivate them instead.
func (s *PatientService) Delete(ctx context.Context, id uuid.UUID) error {
	p, err := s.patientRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	invoiceCount, err := s.invoiceRepo.Count(ctx, billing.InvoiceFilter{PatientID: &p.ID})
	if err != nil {
		return err
	}
	if invoiceCount > 0 {
		return shared.NewDomainError("REFERENTIAL_BLOCK", "patient has invoices and cannot be deleted")
	}

	if err := s.patientRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("patient deleted",
		zap.String("patient_id", id.String()),
		zap.String("mrn", p.MedicalRecordNumber),
	)
	return nil
}

func (s *PatientService) changeStatus(ctx context.Context, id uuid.UUID, change func(*patient.Patient) error) (*PatientResponse, error) {
	p, err := s.patientRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := change(p); err != nil {
		return nil, err
	}
	if err := s.patientRepo.Save(ctx, p); err != nil {
		return nil, err
	}
	return toPatientResponse(p), nil
}

func toPatientResponse(p *patient.Patient) *PatientResponse {
	return &PatientResponse{
		ID:                  p.ID,
		MedicalRecordNumber: p.MedicalRecordNumber,
		FirstName:           p.FirstName,
		LastName:            p.LastName,
		FullName:            p.FullName(),
		DateOfBirth:         p.DateOfBirth,
		Gender:              string(p.Gender),
		Phone:               p.Phone,
		Email:               p.Email,
		Address:             p.Address,
		Status:              string(p.Status),
		Notes:               p.Notes,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}
