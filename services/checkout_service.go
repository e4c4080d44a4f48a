package services

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "storefront-service/errors"
	"storefront-service/events"
	"storefront-service/gateways"
	"storefront-service/models"
	"storefront-service/pricing"
	"storefront-service/repository"
)

// invoiceAttempts bounds retries when a generated invoice number
// collides with an existing order.
const invoiceAttempts = 3

// CheckoutService turns a cart into an order. Stock deduction, coupon
// redemption and order creation happen in one database transaction; a
// failure anywhere leaves no trace.
type CheckoutService interface {
	ProcessCheckout(ctx context.Context, userID string, registered bool, req *models.CheckoutRequest) (*models.CheckoutResponse, *apperrors.Error)
	PreviewCoupon(ctx context.Context, userID string, req *models.ValidateCouponRequest) (*models.ValidateCouponResponse, *apperrors.Error)
	DeliveryFee(ctx context.Context, city string) (float64, *apperrors.Error)
	PaymentMethods() []string
}

type checkoutServiceImpl struct {
	checkout  repository.CheckoutRepository
	products  repository.ProductRepository
	delivery  repository.DeliveryRepository
	carts     repository.CartRepository
	coupons   CouponService
	registry  *gateways.Registry
	publisher events.Publisher
	taxRate   float64
	baseURL   string
	logger    *zap.Logger
}

// NewCheckoutService creates a new CheckoutService.
func NewCheckoutService(
	checkout repository.CheckoutRepository,
	products repository.ProductRepository,
	delivery repository.DeliveryRepository,
	carts repository.CartRepository,
	coupons CouponService,
	registry *gateways.Registry,
	publisher events.Publisher,
	taxRate float64,
	baseURL string,
	logger *zap.Logger,
) CheckoutService {
	return &checkoutServiceImpl{
		checkout:  checkout,
		products:  products,
		delivery:  delivery,
		carts:     carts,
		coupons:   coupons,
		registry:  registry,
		publisher: publisher,
		taxRate:   taxRate,
		baseURL:   baseURL,
		logger:    logger,
	}
}

// ProcessCheckout validates the cart, prices the order from the live
// catalog, applies the coupon and commits everything atomically.
func (s *checkoutServiceImpl) ProcessCheckout(ctx context.Context, userID string, registered bool, req *models.CheckoutRequest) (*models.CheckoutResponse, *apperrors.Error) {
	gateway, err := s.registry.Get(req.Gateway)
	if err != nil {
		return nil, apperrors.New(400, "Unknown payment gateway: "+req.Gateway, nil)
	}

	if gateway.Slug() == "bank_transfer" && (req.TransactionID == "" || req.ScreenshotURL == "") {
		return nil, apperrors.New(400, "Bank transfer requires a transaction reference and payment screenshot", nil)
	}

	cart, cartErr := s.carts.GetCart(ctx, userID)
	if cartErr != nil {
		s.logger.Error("Failed to load cart", zap.String("user_id", userID), zap.Error(cartErr))
		return nil, apperrors.New(500, "Failed to load cart", cartErr)
	}
	if cart == nil || len(cart.Items) == 0 {
		return nil, apperrors.New(400, "Cart is empty", nil)
	}

	items, svcErr := s.snapshotItems(ctx, cart.Items)
	if svcErr != nil {
		return nil, svcErr
	}

	order := &models.Order{
		RecipientName: req.RecipientName,
		Phone:         req.Phone,
		AddressLine1:  req.AddressLine1,
		City:          req.City,
		State:         req.State,
		OrderNotes:    req.OrderNotes,
		PaymentMethod: gateway.Slug(),
		Items:         items,
	}
	if registered {
		if uid, parseErr := uuid.Parse(userID); parseErr == nil {
			order.UserID = &uid
		}
	}
	if req.TransactionID != "" {
		order.TransactionID = &req.TransactionID
	}
	if req.ScreenshotURL != "" {
		order.ScreenshotURL = &req.ScreenshotURL
	}

	if order.HasDigitalItems() && order.UserID == nil {
		return nil, apperrors.New(403, "Digital products require an account to purchase", nil)
	}

	order.Subtotal = pricing.ItemSubtotal(items)

	couponCode := strings.TrimSpace(req.CouponCode)
	if couponCode != "" {
		coupon, discount, svcErr := s.coupons.Validate(ctx, couponCode, order.Subtotal)
		if svcErr != nil {
			return nil, svcErr
		}
		order.CouponCode = &coupon.Code
		order.DiscountAmount = discount
	}

	if !order.DigitalOnly() {
		fee, feeErr := s.delivery.ChargeForLocation(ctx, req.City)
		if feeErr != nil {
			s.logger.Error("Failed to load delivery charge", zap.String("city", req.City), zap.Error(feeErr))
			return nil, apperrors.New(500, "Failed to determine delivery fee", feeErr)
		}
		order.DeliveryFee = fee
	}

	totals := pricing.CalculateTotals(order.Subtotal, order.DiscountAmount, order.DeliveryFee, s.taxRate)
	order.TaxAmount = totals.Tax
	order.TotalAmount = totals.Total

	if svcErr := s.commitOrder(ctx, order); svcErr != nil {
		return nil, svcErr
	}

	s.publishOrderCreated(ctx, order)

	if clearErr := s.carts.DeleteCart(ctx, userID); clearErr != nil {
		s.logger.Warn("Failed to clear cart after checkout",
			zap.String("user_id", userID), zap.Error(clearErr))
	}

	s.logger.Info("Order placed",
		zap.String("order_id", order.ID.String()),
		zap.String("invoice", order.Invoice),
		zap.String("gateway", order.PaymentMethod),
		zap.Float64("total", order.TotalAmount))

	resp := &models.CheckoutResponse{
		Success:     true,
		OrderID:     order.ID.String(),
		Invoice:     order.Invoice,
		TotalAmount: order.TotalAmount,
	}
	switch gateway.Slug() {
	case "khalti", "esewa":
		resp.RedirectURL = fmt.Sprintf("%s/api/checkout/initiate/%s/%s", s.baseURL, gateway.Slug(), order.ID)
	}
	return resp, nil
}

// PreviewCoupon is the checkout page AJAX: validate the code against
// the current cart and show the would-be grand total without spending a
// use.
func (s *checkoutServiceImpl) PreviewCoupon(ctx context.Context, userID string, req *models.ValidateCouponRequest) (*models.ValidateCouponResponse, *apperrors.Error) {
	cart, cartErr := s.carts.GetCart(ctx, userID)
	if cartErr != nil {
		return nil, apperrors.New(500, "Failed to load cart", cartErr)
	}
	if cart == nil || len(cart.Items) == 0 {
		return nil, apperrors.New(400, "Cart is empty", nil)
	}

	items, svcErr := s.snapshotItems(ctx, cart.Items)
	if svcErr != nil {
		return nil, svcErr
	}
	subtotal := pricing.ItemSubtotal(items)

	coupon, discount, svcErr := s.coupons.Validate(ctx, req.Code, subtotal)
	if svcErr != nil {
		if svcErr.Code >= 500 {
			return nil, svcErr
		}
		// Business rejects come back as a normal response so the
		// checkout page can show the reason inline.
		return &models.ValidateCouponResponse{
			Success: false,
			Code:    req.Code,
			Message: svcErr.Message,
		}, nil
	}

	var deliveryFee float64
	digitalOnly := true
	for _, item := range items {
		if !item.IsDigital {
			digitalOnly = false
			break
		}
	}
	if !digitalOnly && req.City != "" {
		fee, feeErr := s.delivery.ChargeForLocation(ctx, req.City)
		if feeErr != nil {
			return nil, apperrors.New(500, "Failed to determine delivery fee", feeErr)
		}
		deliveryFee = fee
	}

	totals := pricing.CalculateTotals(subtotal, discount, deliveryFee, s.taxRate)
	return &models.ValidateCouponResponse{
		Success:     true,
		Code:        coupon.Code,
		Discount:    discount,
		FinalAmount: totals.Total,
		Message:     "Coupon applied successfully",
	}, nil
}

// DeliveryFee returns the fee charged for a city.
func (s *checkoutServiceImpl) DeliveryFee(ctx context.Context, city string) (float64, *apperrors.Error) {
	fee, err := s.delivery.ChargeForLocation(ctx, city)
	if err != nil {
		s.logger.Error("Failed to load delivery charge", zap.String("city", city), zap.Error(err))
		return 0, apperrors.New(500, "Failed to determine delivery fee", err)
	}
	return fee, nil
}

// snapshotItems prices cart lines from the live catalog. Prices, names
// and the digital flag are frozen here; later catalog edits cannot
// change what the customer pays.
func (s *checkoutServiceImpl) snapshotItems(ctx context.Context, cartItems []models.CartItem) ([]models.OrderItem, *apperrors.Error) {
	ids := make([]uuid.UUID, 0, len(cartItems))
	for _, item := range cartItems {
		id, err := uuid.Parse(item.ProductID)
		if err != nil {
			return nil, apperrors.New(400, "Invalid product ID in cart", nil)
		}
		ids = append(ids, id)
	}

	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		s.logger.Error("Failed to load products", zap.Error(err))
		return nil, apperrors.New(500, "Failed to load products", err)
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	items := make([]models.OrderItem, 0, len(cartItems))
	for i, cartItem := range cartItems {
		product, ok := byID[ids[i]]
		if !ok {
			return nil, apperrors.New(404, "Product no longer available: "+cartItem.ProductID, nil)
		}
		if cartItem.Quantity <= 0 {
			return nil, apperrors.New(400, "Invalid quantity for "+product.Name, nil)
		}

		unitPrice := product.CurrentPrice()
		items = append(items, models.OrderItem{
			ProductID:     product.ID,
			ProductName:   product.Name,
			UnitPrice:     unitPrice,
			Quantity:      cartItem.Quantity,
			SelectedColor: cartItem.SelectedColor,
			SelectedSize:  cartItem.SelectedSize,
			IsDigital:     product.IsDigital,
			LineTotal:     pricing.Round2(unitPrice * float64(cartItem.Quantity)),
		})
	}
	return items, nil
}

// commitOrder runs the atomic write set. The guarded updates inside the
// transaction turn races into clean business errors: the first checkout
// to claim the last stock or coupon use wins, the loser rolls back.
func (s *checkoutServiceImpl) commitOrder(ctx context.Context, order *models.Order) *apperrors.Error {
	var svcErr *apperrors.Error

	for attempt := 0; attempt < invoiceAttempts; attempt++ {
		order.Invoice = generateInvoice()
		svcErr = nil

		err := s.checkout.RunInTransaction(ctx, func(tx repository.CheckoutTx) error {
			for _, item := range order.Items {
				if item.IsDigital {
					continue
				}
				ok, err := tx.DecrementStock(item.ProductID, item.Quantity)
				if err != nil {
					return err
				}
				if !ok {
					svcErr = apperrors.New(apperrors.ErrOutOfStock.Code,
						item.ProductName+" is out of stock", nil)
					return svcErr
				}
			}

			if order.CouponCode != nil {
				ok, err := tx.RedeemCoupon(*order.CouponCode)
				if err != nil {
					return err
				}
				if !ok {
					svcErr = classifyRedeemFailure(tx, *order.CouponCode)
					return svcErr
				}
			}

			return tx.CreateOrder(order)
		})
		if err == nil {
			return nil
		}
		if svcErr != nil {
			return svcErr
		}
		if strings.Contains(err.Error(), "duplicate") || strings.Contains(err.Error(), "unique") {
			continue
		}
		s.logger.Error("Checkout transaction failed", zap.Error(err))
		return apperrors.New(500, "Failed to place order", err)
	}

	return apperrors.New(500, "Failed to allocate an invoice number", nil)
}

// PaymentMethods lists the configured gateway slugs for the checkout
// page to render.
func (s *checkoutServiceImpl) PaymentMethods() []string {
	slugs := s.registry.Slugs()
	sort.Strings(slugs)
	return slugs
}

// classifyRedeemFailure explains why the guarded coupon update matched
// no row: a coupon deactivated or expired since validation is a
// different failure than one whose last use was just claimed.
func classifyRedeemFailure(tx repository.CheckoutTx, code string) *apperrors.Error {
	coupon, err := tx.FindCoupon(code)
	if err != nil || coupon == nil {
		return apperrors.ErrCouponNoLongerValid
	}
	if !coupon.Active || !coupon.ExpiresAt.After(time.Now()) {
		return apperrors.ErrCouponNoLongerValid
	}
	return apperrors.ErrCouponExhausted
}

func (s *checkoutServiceImpl) publishOrderCreated(ctx context.Context, order *models.Order) {
	event := models.OrderCreatedEvent{
		EventType:     "order_created",
		OrderID:       order.ID.String(),
		Invoice:       order.Invoice,
		TotalAmount:   order.TotalAmount,
		PaymentMethod: order.PaymentMethod,
		Timestamp:     time.Now(),
	}
	if order.UserID != nil {
		event.UserID = order.UserID.String()
	}

	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish order_created event",
			zap.String("order_id", order.ID.String()), zap.Error(err))
	}
}

// generateInvoice builds an invoice number like NTX202601154821: a
// fixed prefix, the date, and four random digits.
func generateInvoice() string {
	return fmt.Sprintf("NTX%s%04d", time.Now().Format("20060102"), rand.Intn(10000))
}
