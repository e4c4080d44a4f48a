package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront-service/models"
	"storefront-service/services"
)

// CartController handles HTTP requests for the shopping cart. Guests
// are identified by the X-Session-ID header, registered users by their
// token.
type CartController struct {
	cartService services.CartService
}

// NewCartController creates a new CartController.
func NewCartController(cartService services.CartService) *CartController {
	return &CartController{cartService: cartService}
}

// GetCart handles GET /cart.
func (cc *CartController) GetCart(ctx *gin.Context) {
	key := clientKey(ctx)
	if key == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Missing session"})
		return
	}

	cart, svcErr := cc.cartService.GetCart(ctx.Request.Context(), key)
	if svcErr != nil {
		ctx.JSON(svcErr.Code, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"cart": cart})
}

// UpsertItem handles POST /cart/items.
func (cc *CartController) UpsertItem(ctx *gin.Context) {
	var item models.CartItem
	if err := ctx.ShouldBindJSON(&item); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	key := clientKey(ctx)
	if key == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Missing session"})
		return
	}

	cart, svcErr := cc.cartService.UpsertItem(ctx.Request.Context(), key, item)
	if svcErr != nil {
		ctx.JSON(svcErr.Code, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"cart": cart})
}

// RemoveItem handles DELETE /cart/items/:productID.
func (cc *CartController) RemoveItem(ctx *gin.Context) {
	productID := ctx.Param("productID")
	if productID == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Product ID is required"})
		return
	}

	key := clientKey(ctx)
	if key == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Missing session"})
		return
	}

	cart, svcErr := cc.cartService.RemoveItem(ctx.Request.Context(), key, productID)
	if svcErr != nil {
		ctx.JSON(svcErr.Code, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"cart": cart})
}

// ClearCart handles DELETE /cart.
func (cc *CartController) ClearCart(ctx *gin.Context) {
	key := clientKey(ctx)
	if key == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Missing session"})
		return
	}

	if svcErr := cc.cartService.ClearCart(ctx.Request.Context(), key); svcErr != nil {
		ctx.JSON(svcErr.Code, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}
