package patient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPatient(t *testing.T) {
	t.Run("registers active patient with uppercased record number", func(t *testing.T) {
		p, err := NewPatient("mrn-00042", "Ada", "Lovelace")
		require.NoError(t, err)

		assert.Equal(t, "MRN-00042", p.MedicalRecordNumber)
		assert.Equal(t, "Ada Lovelace", p.FullName())
		assert.Equal(t, PatientStatusActive, p.Status)
		assert.Equal(t, GenderUnknown, p.Gender)
		assert.True(t, p.IsActive())
	})

	t.Run("validation", func(t *testing.T) {
		_, err := NewPatient("", "Ada", "Lovelace")
		assert.ErrorContains(t, err, "medical_record_number")

		_, err = NewPatient("MRN 42", "Ada", "Lovelace")
		assert.ErrorContains(t, err, "medical_record_number")

		_, err = NewPatient("MRN-42", "", "Lovelace")
		assert.ErrorContains(t, err, "first_name")

		_, err = NewPatient("MRN-42", "Ada", "")
		assert.ErrorContains(t, err, "last_name")
	})
}

func TestPatient_SetDemographics(t *testing.T) {
	p, err := NewPatient("MRN-42", "Ada", "Lovelace")
	require.NoError(t, err)

	dob := time.Date(1990, 3, 14, 0, 0, 0, 0, time.UTC)
	require.NoError(t, p.SetDemographics(&dob, GenderFemale))
	assert.Equal(t, GenderFemale, p.Gender)
	assert.Equal(t, dob, *p.DateOfBirth)

	future := time.Now().Add(24 * time.Hour)
	err = p.SetDemographics(&future, GenderFemale)
	assert.ErrorContains(t, err, "date_of_birth")

	err = p.SetDemographics(&dob, Gender("ROBOT"))
	assert.ErrorContains(t, err, "gender")
}

func TestPatient_SetContact(t *testing.T) {
	p, err := NewPatient("MRN-42", "Ada", "Lovelace")
	require.NoError(t, err)

	require.NoError(t, p.SetContact("+1 (555) 010-2030", "ada@example.com", "12 Analytical Way"))
	assert.Equal(t, "ada@example.com", p.Email)

	assert.ErrorContains(t, p.SetContact("call me", "", ""), "phone")
	assert.ErrorContains(t, p.SetContact("", "not-an-email", ""), "email")
}

func TestPatient_StatusTransitions(t *testing.T) {
	p, err := NewPatient("MRN-42", "Ada", "Lovelace")
	require.NoError(t, err)

	require.NoError(t, p.Deactivate())
	assert.False(t, p.IsActive())
	assert.Error(t, p.Deactivate())

	require.NoError(t, p.Activate())
	assert.True(t, p.IsActive())
	assert.Error(t, p.Activate())
}
