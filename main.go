package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront-service/controllers"
	"storefront-service/database"
	"storefront-service/events"
	"storefront-service/gateways"
	"storefront-service/middleware"
	"storefront-service/models"
	"storefront-service/repository"
	"storefront-service/routes"
	"storefront-service/services"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	cfg := LoadConfig()

	// --- Database ---
	if err := database.Connect(logger,
		&models.Product{},
		&models.DeliveryCharge{},
		&models.Coupon{},
		&models.Order{},
		&models.OrderItem{},
		&models.PaymentRecord{},
		&models.DigitalDownload{},
	); err != nil {
		logger.Fatal("DB connection failed", zap.Error(err))
	}

	redisClient := database.NewRedisClient(cfg.RedisURL)

	// --- Event publisher ---
	var publisher events.Publisher
	rmq, err := events.NewRabbitMQPublisher(cfg.RabbitMQURL, cfg.OrderEventsQueue, logger)
	if err != nil {
		logger.Warn("RabbitMQ unavailable, order events disabled", zap.Error(err))
		publisher = events.NopPublisher{}
	} else {
		publisher = rmq
	}

	// --- Payment gateways ---
	registry := gateways.NewRegistry(
		gateways.NewCODGateway(),
		gateways.NewBankTransferGateway(),
		gateways.NewKhaltiGateway(
			cfg.KhaltiSecretKey,
			cfg.KhaltiBaseURL,
			cfg.BaseURL+"/api/checkout/verify/khalti",
			cfg.BaseURL,
		),
		gateways.NewEsewaGateway(
			cfg.EsewaMerchantCode,
			cfg.EsewaSecretKey,
			cfg.EsewaPaymentURL,
			cfg.EsewaStatusURL,
			cfg.BaseURL+"/api/checkout/verify/esewa",
			cfg.BaseURL+"/api/checkout/verify/esewa",
		),
	)

	// --- HTTP router ---
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.PrometheusMiddleware())

	// Structured HTTP request logging
	r.Use(func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("body_size", c.Writer.Size()),
		}
		switch {
		case status >= 500:
			logger.Error("http_request", fields...)
		case status >= 400:
			logger.Warn("http_request", fields...)
		default:
			logger.Info("http_request", fields...)
		}
	})

	// Request timeout middleware
	r.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	// --- Dependency injection ---
	productRepo := repository.NewGormProductRepository(database.DB)
	couponRepo := repository.NewGormCouponRepository(database.DB)
	orderRepo := repository.NewGormOrderRepository(database.DB)
	paymentRepo := repository.NewGormPaymentRepository(database.DB)
	downloadRepo := repository.NewGormDownloadRepository(database.DB)
	deliveryRepo := repository.NewGormDeliveryRepository(database.DB)
	checkoutRepo := repository.NewGormCheckoutRepository(database.DB)
	cartRepo := repository.NewRedisCartRepository(redisClient, 7*24*time.Hour)

	couponService := services.NewCouponService(couponRepo, logger)
	cartService := services.NewCartService(cartRepo, productRepo, logger)
	downloadService := services.NewDownloadService(downloadRepo, productRepo, logger)
	orderService := services.NewOrderService(orderRepo, productRepo, downloadService, publisher, logger)
	paymentService := services.NewPaymentService(registry, paymentRepo, orderRepo, orderService, logger)
	deliveryService := services.NewDeliveryService(deliveryRepo, logger)
	checkoutService := services.NewCheckoutService(
		checkoutRepo,
		productRepo,
		deliveryRepo,
		cartRepo,
		couponService,
		registry,
		publisher,
		cfg.TaxRatePercent,
		cfg.BaseURL,
		logger,
	)

	routes.Register(r, routes.Controllers{
		Checkout: controllers.NewCheckoutController(checkoutService, paymentService),
		Cart:     controllers.NewCartController(cartService),
		Order:    controllers.NewOrderController(orderService),
		Coupon:   controllers.NewCouponController(couponService),
		Download: controllers.NewDownloadController(downloadService),
		Delivery: controllers.NewDeliveryController(deliveryService),
	})

	// --- HTTP server ---
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		logger.Info("Storefront service started", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Initiating graceful shutdown...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}
	if err := publisher.Close(); err != nil {
		logger.Error("Publisher close error", zap.Error(err))
	}
	if err := redisClient.Close(); err != nil {
		logger.Error("Redis close error", zap.Error(err))
	}
	if err := database.Close(); err != nil {
		logger.Error("Database close error", zap.Error(err))
	}

	logger.Info("Storefront service stopped gracefully")
}
