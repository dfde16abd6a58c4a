package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	billingapp "github.com/clinicore/backend/internal/application/billing"
	patientapp "github.com/clinicore/backend/internal/application/patient"
	"github.com/clinicore/backend/internal/domain/billing"
	"github.com/clinicore/backend/internal/domain/patient"
	"github.com/clinicore/backend/internal/domain/shared"
	"github.com/clinicore/backend/internal/domain/shared/valueobject"
	"github.com/clinicore/backend/internal/interfaces/http/dto"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// =============================================================================
// Mock Repositories
// =============================================================================

// MockInvoiceRepository implements billing.InvoiceRepository for testing
type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByInvoiceNumber(ctx context.Context, invoiceNumber string) (*billing.Invoice, error) {
	args := m.Called(ctx, invoiceNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByPaymentID(ctx context.Context, paymentID uuid.UUID) (*billing.Invoice, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindAll(ctx context.Context, filter billing.InvoiceFilter) ([]billing.Invoice, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) Count(ctx context.Context, filter billing.InvoiceFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) SaveWithLock(ctx context.Context, invoice *billing.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

var _ billing.InvoiceRepository = (*MockInvoiceRepository)(nil)

// MockPatientRepository implements patient.PatientRepository for testing
type MockPatientRepository struct {
	mock.Mock
}

func (m *MockPatientRepository) FindByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*patient.Patient), args.Error(1)
}

func (m *MockPatientRepository) FindByMRN(ctx context.Context, mrn string) (*patient.Patient, error) {
	args := m.Called(ctx, mrn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*patient.Patient), args.Error(1)
}

func (m *MockPatientRepository) FindAll(ctx context.Context, filter shared.Filter) ([]patient.Patient, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]patient.Patient), args.Error(1)
}

func (m *MockPatientRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPatientRepository) ExistsByMRN(ctx context.Context, mrn string) (bool, error) {
	args := m.Called(ctx, mrn)
	return args.Bool(0), args.Error(1)
}

func (m *MockPatientRepository) Save(ctx context.Context, p *patient.Patient) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPatientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

var _ patient.PatientRepository = (*MockPatientRepository)(nil)

// MockIdempotencyStore implements shared.IdempotencyStore for testing
type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Forget(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockIdempotencyStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

var _ shared.IdempotencyStore = (*MockIdempotencyStore)(nil)

// nopPublisher discards domain events
type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, ...shared.DomainEvent) error { return nil }

// =============================================================================
// Test Helper Functions
// =============================================================================

type handlerFixture struct {
	engine       *gin.Engine
	invoiceRepo  *MockInvoiceRepository
	patientRepo  *MockPatientRepository
	idempotency  *MockIdempotencyStore
	testStaffID  uuid.UUID
	testPatient  *patient.Patient
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	invoiceRepo := new(MockInvoiceRepository)
	patientRepo := new(MockPatientRepository)
	idempotency := new(MockIdempotencyStore)
	log := zap.NewNop()

	invoiceService := billingapp.NewInvoiceService(invoiceRepo, patientRepo, nopPublisher{}, log)
	paymentService := billingapp.NewPaymentService(invoiceRepo, idempotency, shared.DefaultIdempotencyConfig(), nopPublisher{}, log)
	patientService := patientapp.NewPatientService(patientRepo, invoiceRepo, log)

	engine := gin.New()
	api := engine.Group("/api/v1")
	NewInvoiceHandler(invoiceService).RegisterRoutes(api)
	NewPaymentHandler(paymentService).RegisterRoutes(api)
	NewPatientHandler(patientService, invoiceService).RegisterRoutes(api)

	p, err := patient.NewPatient("MRN-9001", "Jane", "Doe")
	require.NoError(t, err)
	p.ID = uuid.MustParse("11111111-1111-1111-1111-111111111111")

	return &handlerFixture{
		engine:      engine,
		invoiceRepo: invoiceRepo,
		patientRepo: patientRepo,
		idempotency: idempotency,
		testStaffID: uuid.MustParse("22222222-2222-2222-2222-222222222222"),
		testPatient: p,
	}
}

// do performs a JSON request against the fixture's router with the dev
// staff-identity header set
func (f *handlerFixture) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Staff-ID", f.testStaffID.String())
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func newOpenInvoice(t *testing.T, patientID uuid.UUID) *billing.Invoice {
	t.Helper()
	inv, err := billing.NewInvoice(
		billing.GenerateInvoiceNumber(time.Now()),
		patientID,
		valueobject.NewMoneyUSD(decimal.NewFromInt(100)),
		valueobject.NewMoneyUSD(decimal.Zero),
		valueobject.NewMoneyUSD(decimal.Zero),
		nil,
	)
	require.NoError(t, err)
	inv.ClearDomainEvents()
	return inv
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// =============================================================================
// InvoiceHandler Tests
// =============================================================================

func TestInvoiceHandler_Create_Success(t *testing.T) {
	f := newHandlerFixture(t)

	f.patientRepo.On("FindByID", mock.Anything, f.testPatient.ID).Return(f.testPatient, nil)
	f.invoiceRepo.On("Save", mock.Anything, mock.AnythingOfType("*billing.Invoice")).Return(nil)

	w := f.do("POST", "/api/v1/invoices", gin.H{
		"patient_id":  f.testPatient.ID.String(),
		"flat_amount": "120.00",
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)

	data := resp.Data.(map[string]any)
	assert.Equal(t, f.testPatient.ID.String(), data["patient_id"])
	assert.Equal(t, "UNPAID", data["status"])
	f.invoiceRepo.AssertExpectations(t)
}

func TestInvoiceHandler_Create_MissingPatientID(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.do("POST", "/api/v1/invoices", gin.H{
		"flat_amount": "120.00",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	f.invoiceRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestInvoiceHandler_Create_NoStaffIdentity(t *testing.T) {
	f := newHandlerFixture(t)

	raw, _ := json.Marshal(gin.H{"patient_id": f.testPatient.ID.String()})
	req := httptest.NewRequest("POST", "/api/v1/invoices", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_UNAUTHORIZED")
}

func TestInvoiceHandler_GetByID_Success(t *testing.T) {
	f := newHandlerFixture(t)
	inv := newOpenInvoice(t, f.testPatient.ID)

	f.invoiceRepo.On("FindByID", mock.Anything, inv.ID).Return(inv, nil)

	w := f.do("GET", "/api/v1/invoices/"+inv.ID.String(), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	data := resp.Data.(map[string]any)
	assert.Equal(t, inv.InvoiceNumber, data["invoice_number"])
}

func TestInvoiceHandler_GetByID_InvalidUUID(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.do("GET", "/api/v1/invoices/not-a-uuid", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_BAD_REQUEST")
}

func TestInvoiceHandler_GetByID_NotFound(t *testing.T) {
	f := newHandlerFixture(t)
	missing := uuid.New()

	f.invoiceRepo.On("FindByID", mock.Anything, missing).Return(nil, shared.ErrNotFound)

	w := f.do("GET", "/api/v1/invoices/"+missing.String(), nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_NOT_FOUND")
}

func TestInvoiceHandler_GetByNumber_Success(t *testing.T) {
	f := newHandlerFixture(t)
	inv := newOpenInvoice(t, f.testPatient.ID)

	f.invoiceRepo.On("FindByInvoiceNumber", mock.Anything, inv.InvoiceNumber).Return(inv, nil)

	w := f.do("GET", "/api/v1/invoices/number/"+inv.InvoiceNumber, nil)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestInvoiceHandler_List_Success(t *testing.T) {
	f := newHandlerFixture(t)
	inv := newOpenInvoice(t, f.testPatient.ID)

	f.invoiceRepo.On("FindAll", mock.Anything, mock.AnythingOfType("billing.InvoiceFilter")).Return([]billing.Invoice{*inv}, nil)
	f.invoiceRepo.On("Count", mock.Anything, mock.AnythingOfType("billing.InvoiceFilter")).Return(int64(1), nil)

	w := f.do("GET", "/api/v1/invoices?page=1&page_size=10", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(1), resp.Meta.Total)
}

func TestInvoiceHandler_List_InvalidStatus(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.do("GET", "/api/v1/invoices?status=BOGUS", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_INVALID_INPUT")
}

func TestInvoiceHandler_AddLineItem_Success(t *testing.T) {
	f := newHandlerFixture(t)
	inv := newOpenInvoice(t, f.testPatient.ID)

	f.invoiceRepo.On("FindByID", mock.Anything, inv.ID).Return(inv, nil)
	f.invoiceRepo.On("SaveWithLock", mock.Anything, mock.AnythingOfType("*billing.Invoice")).Return(nil)

	w := f.do("POST", "/api/v1/invoices/"+inv.ID.String()+"/items", gin.H{
		"category":    "LAB",
		"description": "Blood panel",
		"quantity":    1,
		"unit_price":  "45.00",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	f.invoiceRepo.AssertExpectations(t)
}

func TestInvoiceHandler_Void_Success(t *testing.T) {
	f := newHandlerFixture(t)
	inv := newOpenInvoice(t, f.testPatient.ID)

	f.invoiceRepo.On("FindByID", mock.Anything, inv.ID).Return(inv, nil)
	f.invoiceRepo.On("SaveWithLock", mock.Anything, mock.AnythingOfType("*billing.Invoice")).Return(nil)

	w := f.do("POST", "/api/v1/invoices/"+inv.ID.String()+"/void", gin.H{
		"reason": "duplicate entry",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	data := resp.Data.(map[string]any)
	assert.NotEmpty(t, data["voided_at"])
	assert.Equal(t, "duplicate entry", data["void_reason"])
}

func TestInvoiceHandler_Void_MissingReason(t *testing.T) {
	f := newHandlerFixture(t)
	inv := newOpenInvoice(t, f.testPatient.ID)

	w := f.do("POST", "/api/v1/invoices/"+inv.ID.String()+"/void", gin.H{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	f.invoiceRepo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestInvoiceHandler_Delete_Success(t *testing.T) {
	f := newHandlerFixture(t)
	inv := newOpenInvoice(t, f.testPatient.ID)

	f.invoiceRepo.On("FindByID", mock.Anything, inv.ID).Return(inv, nil)
	f.invoiceRepo.On("Delete", mock.Anything, inv.ID).Return(nil)

	w := f.do("DELETE", "/api/v1/invoices/"+inv.ID.String(), nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	f.invoiceRepo.AssertExpectations(t)
}
