package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"storefront-service/middleware"
	"storefront-service/models"
	"storefront-service/services"
)

// CheckoutController handles HTTP requests for the checkout flow and
// online payments.
type CheckoutController struct {
	checkoutService services.CheckoutService
	paymentService  services.PaymentService
}

// NewCheckoutController creates a new CheckoutController.
func NewCheckoutController(checkoutService services.CheckoutService, paymentService services.PaymentService) *CheckoutController {
	return &CheckoutController{
		checkoutService: checkoutService,
		paymentService:  paymentService,
	}
}

// clientKey resolves the cart owner: the authenticated user ID, or the
// guest session header.
func clientKey(ctx *gin.Context) string {
	if id := middleware.GetUserID(ctx); id != "" {
		return id
	}
	return ctx.GetHeader("X-Session-ID")
}

// ProcessCheckout handles POST /checkout/process.
func (cc *CheckoutController) ProcessCheckout(ctx *gin.Context) {
	var req models.CheckoutRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	key := clientKey(ctx)
	if key == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Missing session"})
		return
	}
	registered := middleware.GetUserUUID(ctx) != nil

	resp, svcErr := cc.checkoutService.ProcessCheckout(ctx.Request.Context(), key, registered, &req)
	if svcErr != nil {
		middleware.RecordCheckoutOperation("checkout", false)
		ctx.JSON(svcErr.Code, gin.H{"error": svcErr.Message})
		return
	}

	middleware.RecordCheckoutOperation("checkout", true)
	ctx.JSON(http.StatusCreated, resp)
}

// ValidateCoupon handles POST /checkout/validate-coupon.
func (cc *CheckoutController) ValidateCoupon(ctx *gin.Context) {
	var req models.ValidateCouponRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	key := clientKey(ctx)
	if key == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Missing session"})
		return
	}

	resp, svcErr := cc.checkoutService.PreviewCoupon(ctx.Request.Context(), key, &req)
	if svcErr != nil {
		ctx.JSON(svcErr.Code, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, resp)
}

// DeliveryFeeRequest is the payload for a delivery fee lookup.
type DeliveryFeeRequest struct {
	City string `json:"city" binding:"required"`
}

// DeliveryFee handles POST /checkout/delivery-fee.
func (cc *CheckoutController) DeliveryFee(ctx *gin.Context) {
	var req DeliveryFeeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	city := req.City

	fee, svcErr := cc.checkoutService.DeliveryFee(ctx.Request.Context(), city)
	if svcErr != nil {
		ctx.JSON(svcErr.Code, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"city": city, "delivery_fee": fee})
}

// PaymentMethods handles GET /checkout/methods.
func (cc *CheckoutController) PaymentMethods(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"methods": cc.checkoutService.PaymentMethods()})
}

// PaymentStatus handles GET /checkout/status/:orderID, polled by the
// checkout page while the customer pays at the gateway.
func (cc *CheckoutController) PaymentStatus(ctx *gin.Context) {
	orderID, err := uuid.Parse(ctx.Param("orderID"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	result, svcErr := cc.paymentService.PaymentStatus(ctx.Request.Context(), orderID, middleware.GetUserUUID(ctx))
	if svcErr != nil {
		ctx.JSON(svcErr.Code, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, result)
}

// InitiatePayment handles POST /checkout/initiate/:gateway/:orderID.
func (cc *CheckoutController) InitiatePayment(ctx *gin.Context) {
	orderID, err := uuid.Parse(ctx.Param("orderID"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	result, svcErr := cc.paymentService.InitiatePayment(ctx.Request.Context(),
		ctx.Param("gateway"), orderID, middleware.GetUserUUID(ctx))
	if svcErr != nil {
		middleware.RecordCheckoutOperation("initiate_payment", false)
		ctx.JSON(svcErr.Code, gin.H{"error": svcErr.Message})
		return
	}

	middleware.RecordCheckoutOperation("initiate_payment", true)
	ctx.JSON(http.StatusOK, result)
}

// VerifyPayment handles GET /checkout/verify/:gateway?reference=...
// Gateways redirect the customer back here after the hosted payment
// page.
func (cc *CheckoutController) VerifyPayment(ctx *gin.Context) {
	reference := ctx.Query("reference")
	if reference == "" {
		// Khalti returns the reference as pidx on its redirect.
		reference = ctx.Query("pidx")
	}
	if reference == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Payment reference is required"})
		return
	}

	result, svcErr := cc.paymentService.VerifyPayment(ctx.Request.Context(), ctx.Param("gateway"), reference)
	if svcErr != nil {
		middleware.RecordCheckoutOperation("verify_payment", false)
		ctx.JSON(svcErr.Code, gin.H{"error": svcErr.Message})
		return
	}

	middleware.RecordCheckoutOperation("verify_payment", true)
	ctx.JSON(http.StatusOK, result)
}
