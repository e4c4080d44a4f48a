package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"storefront-service/controllers"
	apperrors "storefront-service/errors"
	"storefront-service/gateways"
	"storefront-service/models"
	"storefront-service/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// --- Mock CheckoutService ---

type mockCheckoutService struct {
	processFn  func(ctx context.Context, userID string, registered bool, req *models.CheckoutRequest) (*models.CheckoutResponse, *apperrors.Error)
	previewFn  func(ctx context.Context, userID string, req *models.ValidateCouponRequest) (*models.ValidateCouponResponse, *apperrors.Error)
	deliveryFn func(ctx context.Context, city string) (float64, *apperrors.Error)
	methods    []string
}

func (m *mockCheckoutService) ProcessCheckout(ctx context.Context, userID string, registered bool, req *models.CheckoutRequest) (*models.CheckoutResponse, *apperrors.Error) {
	return m.processFn(ctx, userID, registered, req)
}
func (m *mockCheckoutService) PreviewCoupon(ctx context.Context, userID string, req *models.ValidateCouponRequest) (*models.ValidateCouponResponse, *apperrors.Error) {
	return m.previewFn(ctx, userID, req)
}
func (m *mockCheckoutService) DeliveryFee(ctx context.Context, city string) (float64, *apperrors.Error) {
	return m.deliveryFn(ctx, city)
}
func (m *mockCheckoutService) PaymentMethods() []string {
	return m.methods
}

// --- Mock PaymentService ---

type mockPaymentService struct {
	initiateFn func(ctx context.Context, slug string, orderID uuid.UUID, userID *uuid.UUID) (*gateways.InitiateResult, *apperrors.Error)
	verifyFn   func(ctx context.Context, slug, reference string) (*services.VerifyPaymentResult, *apperrors.Error)
	statusFn   func(ctx context.Context, orderID uuid.UUID, userID *uuid.UUID) (*services.PaymentStatusResult, *apperrors.Error)
}

func (m *mockPaymentService) InitiatePayment(ctx context.Context, slug string, orderID uuid.UUID, userID *uuid.UUID) (*gateways.InitiateResult, *apperrors.Error) {
	return m.initiateFn(ctx, slug, orderID, userID)
}
func (m *mockPaymentService) VerifyPayment(ctx context.Context, slug, reference string) (*services.VerifyPaymentResult, *apperrors.Error) {
	return m.verifyFn(ctx, slug, reference)
}
func (m *mockPaymentService) PaymentStatus(ctx context.Context, orderID uuid.UUID, userID *uuid.UUID) (*services.PaymentStatusResult, *apperrors.Error) {
	return m.statusFn(ctx, orderID, userID)
}

// --- Helpers ---

func setupCheckoutRouter(checkoutSvc services.CheckoutService, paymentSvc services.PaymentService) *gin.Engine {
	r := gin.New()
	cc := controllers.NewCheckoutController(checkoutSvc, paymentSvc)

	r.GET("/checkout/methods", cc.PaymentMethods)
	r.GET("/checkout/status/:orderID", cc.PaymentStatus)
	r.POST("/checkout/process", cc.ProcessCheckout)
	r.POST("/checkout/validate-coupon", cc.ValidateCoupon)
	r.POST("/checkout/delivery-fee", cc.DeliveryFee)
	r.POST("/checkout/initiate/:gateway/:orderID", cc.InitiatePayment)
	r.GET("/checkout/verify/:gateway", cc.VerifyPayment)
	return r
}

func validCheckoutBody() []byte {
	body, _ := json.Marshal(models.CheckoutRequest{
		RecipientName: "Sita Sharma",
		Phone:         "9841000000",
		AddressLine1:  "Baneshwor",
		City:          "Kathmandu",
		Gateway:       "cod",
	})
	return body
}

// --- Tests ---

func TestController_ProcessCheckout_Success(t *testing.T) {
	svc := &mockCheckoutService{
		processFn: func(_ context.Context, userID string, registered bool, _ *models.CheckoutRequest) (*models.CheckoutResponse, *apperrors.Error) {
			assert.Equal(t, "guest-session-1", userID)
			assert.False(t, registered)
			return &models.CheckoutResponse{
				Success:     true,
				OrderID:     uuid.NewString(),
				Invoice:     "NTX202608310042",
				TotalAmount: 1230.0,
			}, nil
		},
	}
	r := setupCheckoutRouter(svc, &mockPaymentService{})

	req, _ := http.NewRequest(http.MethodPost, "/checkout/process", bytes.NewBuffer(validCheckoutBody()))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Session-ID", "guest-session-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp models.CheckoutResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.True(t, resp.Success)
	assert.Equal(t, "NTX202608310042", resp.Invoice)
}

func TestController_ProcessCheckout_MissingSession(t *testing.T) {
	r := setupCheckoutRouter(&mockCheckoutService{}, &mockPaymentService{})

	req, _ := http.NewRequest(http.MethodPost, "/checkout/process", bytes.NewBuffer(validCheckoutBody()))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestController_ProcessCheckout_BadBody(t *testing.T) {
	r := setupCheckoutRouter(&mockCheckoutService{}, &mockPaymentService{})

	req, _ := http.NewRequest(http.MethodPost, "/checkout/process", bytes.NewBufferString(`{"gateway":"cod"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Session-ID", "guest-session-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestController_ProcessCheckout_ServiceErrorMapped(t *testing.T) {
	svc := &mockCheckoutService{
		processFn: func(_ context.Context, _ string, _ bool, _ *models.CheckoutRequest) (*models.CheckoutResponse, *apperrors.Error) {
			return nil, apperrors.ErrOutOfStock
		},
	}
	r := setupCheckoutRouter(svc, &mockPaymentService{})

	req, _ := http.NewRequest(http.MethodPost, "/checkout/process", bytes.NewBuffer(validCheckoutBody()))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Session-ID", "guest-session-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, apperrors.ErrOutOfStock.Code, w.Code)
}

func TestController_ValidateCoupon_Success(t *testing.T) {
	svc := &mockCheckoutService{
		previewFn: func(_ context.Context, _ string, req *models.ValidateCouponRequest) (*models.ValidateCouponResponse, *apperrors.Error) {
			return &models.ValidateCouponResponse{
				Success:     true,
				Code:        req.Code,
				Discount:    100.0,
				FinalAmount: 1017.0,
			}, nil
		},
	}
	r := setupCheckoutRouter(svc, &mockPaymentService{})

	req, _ := http.NewRequest(http.MethodPost, "/checkout/validate-coupon",
		bytes.NewBufferString(`{"code":"SAVE10","city":"Kathmandu"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Session-ID", "guest-session-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp models.ValidateCouponResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.True(t, resp.Success)
	assert.Equal(t, 100.0, resp.Discount)
}

func TestController_DeliveryFee_Success(t *testing.T) {
	svc := &mockCheckoutService{
		deliveryFn: func(_ context.Context, city string) (float64, *apperrors.Error) {
			assert.Equal(t, "Pokhara", city)
			return 150.0, nil
		},
	}
	r := setupCheckoutRouter(svc, &mockPaymentService{})

	req, _ := http.NewRequest(http.MethodPost, "/checkout/delivery-fee",
		bytes.NewBufferString(`{"city":"Pokhara"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, 150.0, resp["delivery_fee"])
}

func TestController_DeliveryFee_MissingCity(t *testing.T) {
	r := setupCheckoutRouter(&mockCheckoutService{}, &mockPaymentService{})

	req, _ := http.NewRequest(http.MethodPost, "/checkout/delivery-fee", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestController_InitiatePayment_Success(t *testing.T) {
	orderID := uuid.New()
	svc := &mockPaymentService{
		initiateFn: func(_ context.Context, slug string, id uuid.UUID, _ *uuid.UUID) (*gateways.InitiateResult, *apperrors.Error) {
			assert.Equal(t, "khalti", slug)
			assert.Equal(t, orderID, id)
			return &gateways.InitiateResult{
				Reference:  "pidx-123",
				PaymentURL: "https://pay.khalti.com/?pidx=pidx-123",
			}, nil
		},
	}
	r := setupCheckoutRouter(&mockCheckoutService{}, svc)

	req, _ := http.NewRequest(http.MethodPost, "/checkout/initiate/khalti/"+orderID.String(), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp gateways.InitiateResult
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, "pidx-123", resp.Reference)
}

func TestController_InitiatePayment_InvalidOrderID(t *testing.T) {
	r := setupCheckoutRouter(&mockCheckoutService{}, &mockPaymentService{})

	req, _ := http.NewRequest(http.MethodPost, "/checkout/initiate/khalti/not-a-uuid", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestController_VerifyPayment_PidxFallback(t *testing.T) {
	svc := &mockPaymentService{
		verifyFn: func(_ context.Context, slug, reference string) (*services.VerifyPaymentResult, *apperrors.Error) {
			assert.Equal(t, "khalti", slug)
			assert.Equal(t, "pidx-789", reference)
			return &services.VerifyPaymentResult{
				Status:  gateways.VerifyCompleted,
				OrderID: uuid.NewString(),
			}, nil
		},
	}
	r := setupCheckoutRouter(&mockCheckoutService{}, svc)

	req, _ := http.NewRequest(http.MethodGet, "/checkout/verify/khalti?pidx=pidx-789", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestController_VerifyPayment_MissingReference(t *testing.T) {
	r := setupCheckoutRouter(&mockCheckoutService{}, &mockPaymentService{})

	req, _ := http.NewRequest(http.MethodGet, "/checkout/verify/khalti", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestController_PaymentMethods(t *testing.T) {
	svc := &mockCheckoutService{methods: []string{"bank_transfer", "cod", "esewa", "khalti"}}
	r := setupCheckoutRouter(svc, &mockPaymentService{})

	req, _ := http.NewRequest(http.MethodGet, "/checkout/methods", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string][]string
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, []string{"bank_transfer", "cod", "esewa", "khalti"}, resp["methods"])
}

func TestController_PaymentStatus_Success(t *testing.T) {
	orderID := uuid.New()
	svc := &mockPaymentService{
		statusFn: func(_ context.Context, id uuid.UUID, _ *uuid.UUID) (*services.PaymentStatusResult, *apperrors.Error) {
			assert.Equal(t, orderID, id)
			return &services.PaymentStatusResult{
				OrderID:       id.String(),
				PaymentStatus: models.PaymentStatusPending,
				Gateway:       "khalti",
				AttemptStatus: models.PaymentRecordInitiated,
				Reference:     "pidx-42",
			}, nil
		},
	}
	r := setupCheckoutRouter(&mockCheckoutService{}, svc)

	req, _ := http.NewRequest(http.MethodGet, "/checkout/status/"+orderID.String(), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp services.PaymentStatusResult
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, models.PaymentStatusPending, resp.PaymentStatus)
	assert.Equal(t, "pidx-42", resp.Reference)
}

func TestController_PaymentStatus_InvalidID(t *testing.T) {
	r := setupCheckoutRouter(&mockCheckoutService{}, &mockPaymentService{})

	req, _ := http.NewRequest(http.MethodGet, "/checkout/status/not-a-uuid", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestController_VerifyPayment_GatewayTimeout(t *testing.T) {
	svc := &mockPaymentService{
		verifyFn: func(_ context.Context, _, _ string) (*services.VerifyPaymentResult, *apperrors.Error) {
			return nil, apperrors.ErrGatewayTimeout
		},
	}
	r := setupCheckoutRouter(&mockCheckoutService{}, svc)

	req, _ := http.NewRequest(http.MethodGet, "/checkout/verify/esewa?reference=uuid-1|1230.00", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, apperrors.ErrGatewayTimeout.Code, w.Code)
}
