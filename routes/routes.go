package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"storefront-service/controllers"
	"storefront-service/middleware"
)

// Controllers bundles everything the router needs.
type Controllers struct {
	Checkout *controllers.CheckoutController
	Cart     *controllers.CartController
	Order    *controllers.OrderController
	Coupon   *controllers.CouponController
	Download *controllers.DownloadController
	Delivery *controllers.DeliveryController
}

// Register sets up all storefront routes.
func Register(r *gin.Engine, c Controllers) {
	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "OK", "service": "storefront-service"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")

	// Checkout: guests allowed, identified by X-Session-ID.
	checkout := api.Group("/checkout")
	checkout.Use(middleware.OptionalAuth())
	checkout.GET("/methods", c.Checkout.PaymentMethods)
	checkout.GET("/status/:orderID", c.Checkout.PaymentStatus)
	checkout.POST("/process", middleware.CheckoutRateLimit(), c.Checkout.ProcessCheckout)
	checkout.POST("/validate-coupon", c.Checkout.ValidateCoupon)
	checkout.POST("/delivery-fee", c.Checkout.DeliveryFee)
	checkout.POST("/initiate/:gateway/:orderID", c.Checkout.InitiatePayment)
	// Gateways redirect back with GET; the checkout page polls with POST.
	checkout.GET("/verify/:gateway", c.Checkout.VerifyPayment)
	checkout.POST("/verify/:gateway", c.Checkout.VerifyPayment)

	// Cart: guests allowed.
	cart := api.Group("/cart")
	cart.Use(middleware.OptionalAuth())
	cart.GET("", c.Cart.GetCart)
	cart.POST("/items", c.Cart.UpsertItem)
	cart.DELETE("/items/:productID", c.Cart.RemoveItem)
	cart.DELETE("", c.Cart.ClearCart)

	// Public order tracking by invoice number.
	api.GET("/track/:invoice", c.Order.TrackOrder)

	// Orders: registered customers only.
	orders := api.Group("/orders")
	orders.Use(middleware.AuthMiddleware())
	orders.GET("", c.Order.ListOrders)
	orders.GET("/:orderID", c.Order.GetOrder)
	orders.POST("/:orderID/cancel", c.Order.CancelOrder)

	// Digital downloads: registered customers only.
	downloads := api.Group("/products/download")
	downloads.Use(middleware.AuthMiddleware())
	downloads.GET("/:productID", c.Download.Download)
	downloads.GET("/:productID/grants", c.Download.ListGrants)

	// Admin.
	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(), middleware.AdminOnly())
	admin.GET("/orders", c.Order.ListAllOrders)
	admin.PATCH("/orders/:orderID/status", c.Order.UpdateOrderStatus)
	admin.PATCH("/orders/:orderID/payment-status", c.Order.UpdatePaymentStatus)
	admin.POST("/coupons", c.Coupon.CreateCoupon)
	admin.GET("/coupons", c.Coupon.ListCoupons)
	admin.DELETE("/coupons/:code", c.Coupon.DeactivateCoupon)
	admin.POST("/delivery-charges", c.Delivery.UpsertCharge)
	admin.GET("/delivery-charges", c.Delivery.ListCharges)
}
