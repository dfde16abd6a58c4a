package patient

import (
	"context"

	"github.com/clinicore/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// PatientRepository defines the interface for patient persistence
type PatientRepository interface {
	// FindByID finds a patient by internal id
	FindByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	// FindByMRN finds a patient by medical record number
	FindByMRN(ctx context.Context, mrn string) (*Patient, error)

	// FindAll lists patients matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Patient, error)

	// Count counts patients matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// ExistsByMRN reports whether a patient with the given number exists
	ExistsByMRN(ctx context.Context, mrn string) (bool, error)

	// Save creates or updates a patient
	Save(ctx context.Context, p *Patient) error

	// Delete removes a patient record
	Delete(ctx context.Context, id uuid.UUID) error
}
