package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	billingapp "github.com/clinicore/backend/internal/application/billing"
	patientapp "github.com/clinicore/backend/internal/application/patient"
)

// PatientHandler handles patient API endpoints
type PatientHandler struct {
	BaseHandler
	patientService *patientapp.PatientService
	invoiceService *billingapp.InvoiceService
}

// NewPatientHandler creates a new PatientHandler
func NewPatientHandler(patientService *patientapp.PatientService, invoiceService *billingapp.InvoiceService) *PatientHandler {
	return &PatientHandler{
		patientService: patientService,
		invoiceService: invoiceService,
	}
}

// RegisterRoutes registers patient routes on the given group
func (h *PatientHandler) RegisterRoutes(rg *gin.RouterGroup) {
	patients := rg.Group("/patients")
	{
		patients.POST("", h.Register)
		patients.GET("", h.List)
		patients.GET("/mrn/:mrn", h.GetByMRN)
		patients.GET("/:id", h.GetByID)
		patients.PUT("/:id", h.Update)
		patients.DELETE("/:id", h.Delete)
		patients.POST("/:id/activate", h.Activate)
		patients.POST("/:id/deactivate", h.Deactivate)
		patients.GET("/:id/invoices", h.ListInvoices)
	}
}

// Register registers a new patient
func (h *PatientHandler) Register(c *gin.Context) {
	var req patientapp.RegisterPatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	patient, err := h.patientService.Register(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, patient)
}

// GetByID retrieves a patient by ID
func (h *PatientHandler) GetByID(c *gin.Context) {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid patient ID format")
		return
	}

	patient, err := h.patientService.Get(c.Request.Context(), patientID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, patient)
}

// GetByMRN retrieves a patient by medical record number
func (h *PatientHandler) GetByMRN(c *gin.Context) {
	mrn := c.Param("mrn")
	if mrn == "" {
		h.BadRequest(c, "Medical record number is required")
		return
	}

	patient, err := h.patientService.GetByMRN(c.Request.Context(), mrn)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, patient)
}

// List retrieves a paginated list of patients with optional filtering
func (h *PatientHandler) List(c *gin.Context) {
	var filter patientapp.PatientListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	patients, total, err := h.patientService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, patients, total, filter.Page, filter.PageSize)
}

// Update updates a patient's demographics and contact details
func (h *PatientHandler) Update(c *gin.Context) {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid patient ID format")
		return
	}

	var req patientapp.UpdatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	patient, err := h.patientService.Update(c.Request.Context(), patientID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, patient)
}

// Activate reactivates an inactive patient
func (h *PatientHandler) Activate(c *gin.Context) {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid patient ID format")
		return
	}

	patient, err := h.patientService.Activate(c.Request.Context(), patientID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, patient)
}

// Deactivate deactivates an active patient
func (h *PatientHandler) Deactivate(c *gin.Context) {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid patient ID format")
		return
	}

	patient, err := h.patientService.Deactivate(c.Request.Context(), patientID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, patient)
}

// Delete deletes a patient with no billing history
func (h *PatientHandler) Delete(c *gin.Context) {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid patient ID format")
		return
	}

	if err := h.patientService.Delete(c.Request.Context(), patientID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// ListInvoices retrieves a patient's invoices
func (h *PatientHandler) ListInvoices(c *gin.Context) {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid patient ID format")
		return
	}

	var filter billingapp.InvoiceListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	invoices, total, err := h.invoiceService.ListPatientInvoices(c.Request.Context(), patientID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, invoices, total, filter.Page, filter.PageSize)
}
