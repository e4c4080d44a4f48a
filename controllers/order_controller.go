package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"storefront-service/middleware"
	"storefront-service/models"
	"storefront-service/services"
)

// OrderController handles HTTP requests for order queries and admin
// lifecycle updates.
type OrderController struct {
	orderService services.OrderService
}

// NewOrderController creates a new OrderController.
func NewOrderController(orderService services.OrderService) *OrderController {
	return &OrderController{orderService: orderService}
}

// UpdateOrderStatusRequest is the admin payload for a fulfillment move.
type UpdateOrderStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

// UpdatePaymentStatusRequest is the admin payload for a payment move.
type UpdatePaymentStatusRequest struct {
	PaymentStatus models.PaymentStatus `json:"payment_status" binding:"required"`
}

// ListOrders handles GET /orders for the authenticated user.
func (oc *OrderController) ListOrders(ctx *gin.Context) {
	userID := middleware.GetUserUUID(ctx)
	if userID == nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	page, limit := parsePaginationParams(ctx)
	orders, total, svcErr := oc.orderService.ListOrders(ctx.Request.Context(), *userID, page, limit)
	if svcErr != nil {
		ctx.JSON(svcErr.Code, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"meta":   paginationMeta(page, limit, total),
	})
}

// GetOrder handles GET /orders/:orderID.
func (oc *OrderController) GetOrder(ctx *gin.Context) {
	userID := middleware.GetUserUUID(ctx)
	if userID == nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	orderID, err := uuid.Parse(ctx.Param("orderID"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	order, svcErr := oc.orderService.GetOrder(ctx.Request.Context(), orderID, *userID)
	if svcErr != nil {
		ctx.JSON(svcErr.Code, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"order": order})
}

// TrackOrder handles GET /track/:invoice. Open to guests; an invoice
// number is the tracking credential.
func (oc *OrderController) TrackOrder(ctx *gin.Context) {
	invoice := ctx.Param("invoice")
	if invoice == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invoice is required"})
		return
	}

	order, svcErr := oc.orderService.TrackByInvoice(ctx.Request.Context(), invoice)
	if svcErr != nil {
		ctx.JSON(svcErr.Code, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"invoice":        order.Invoice,
		"status":         order.Status,
		"payment_status": order.PaymentStatus,
		"total_amount":   order.TotalAmount,
		"created_at":     order.CreatedAt,
	})
}

// CancelOrder handles POST /orders/:orderID/cancel.
func (oc *OrderController) CancelOrder(ctx *gin.Context) {
	userID := middleware.GetUserUUID(ctx)
	if userID == nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	orderID, err := uuid.Parse(ctx.Param("orderID"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	if svcErr := oc.orderService.CancelOrder(ctx.Request.Context(), orderID, *userID); svcErr != nil {
		ctx.JSON(svcErr.Code, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Order cancelled"})
}

// ListAllOrders handles GET /admin/orders.
func (oc *OrderController) ListAllOrders(ctx *gin.Context) {
	page, limit := parsePaginationParams(ctx)
	status := ctx.Query("status")

	orders, total, svcErr := oc.orderService.ListAllOrders(ctx.Request.Context(), status, page, limit)
	if svcErr != nil {
		ctx.JSON(svcErr.Code, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"meta":   paginationMeta(page, limit, total),
	})
}

// UpdateOrderStatus handles PATCH /admin/orders/:orderID/status.
func (oc *OrderController) UpdateOrderStatus(ctx *gin.Context) {
	orderID, err := uuid.Parse(ctx.Param("orderID"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	var req UpdateOrderStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	if svcErr := oc.orderService.UpdateOrderStatus(ctx.Request.Context(), orderID, req.Status); svcErr != nil {
		ctx.JSON(svcErr.Code, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Order status updated"})
}

// UpdatePaymentStatus handles PATCH /admin/orders/:orderID/payment-status.
func (oc *OrderController) UpdatePaymentStatus(ctx *gin.Context) {
	orderID, err := uuid.Parse(ctx.Param("orderID"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	var req UpdatePaymentStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	if svcErr := oc.orderService.UpdatePaymentStatus(ctx.Request.Context(), orderID, req.PaymentStatus); svcErr != nil {
		ctx.JSON(svcErr.Code, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Payment status updated"})
}

// parsePaginationParams extracts and validates pagination parameters.
func parsePaginationParams(ctx *gin.Context) (int, int) {
	const MaxLimit = 100

	page := 1
	limit := 10

	if p, err := strconv.Atoi(ctx.DefaultQuery("page", "1")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(ctx.DefaultQuery("limit", "10")); err == nil && l > 0 {
		limit = l
		if limit > MaxLimit {
			limit = MaxLimit
		}
	}

	return page, limit
}

func paginationMeta(page, limit int, total int64) gin.H {
	totalPages := int64(0)
	if limit > 0 {
		totalPages = (total + int64(limit) - 1) / int64(limit)
	}
	return gin.H{
		"page":        page,
		"limit":       limit,
		"total":       total,
		"total_pages": totalPages,
		"has_more":    total > int64(page*limit),
	}
}
