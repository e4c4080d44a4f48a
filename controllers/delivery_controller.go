package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront-service/models"
	"storefront-service/services"
)

// DeliveryController handles admin management of per-city delivery
// charges.
type DeliveryController struct {
	deliveryService services.DeliveryService
}

// NewDeliveryController creates a new DeliveryController.
func NewDeliveryController(deliveryService services.DeliveryService) *DeliveryController {
	return &DeliveryController{deliveryService: deliveryService}
}

// UpsertCharge handles POST /admin/delivery-charges.
func (dc *DeliveryController) UpsertCharge(ctx *gin.Context) {
	var req models.CreateDeliveryChargeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	charge, svcErr := dc.deliveryService.UpsertCharge(ctx.Request.Context(), &req)
	if svcErr != nil {
		ctx.JSON(svcErr.Code, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"delivery_charge": charge})
}

// ListCharges handles GET /admin/delivery-charges.
func (dc *DeliveryController) ListCharges(ctx *gin.Context) {
	charges, svcErr := dc.deliveryService.ListCharges(ctx.Request.Context())
	if svcErr != nil {
		ctx.JSON(svcErr.Code, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"delivery_charges": charges})
}
