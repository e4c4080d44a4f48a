package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "storefront-service/errors"
	"storefront-service/events"
	"storefront-service/models"
	"storefront-service/repository"
)

// OrderService owns the order lifecycle after checkout: customer
// queries, cancellation, admin transitions and the pending->paid flip
// with its side effects.
type OrderService interface {
	ListOrders(ctx context.Context, userID uuid.UUID, page, limit int) ([]models.Order, int64, *apperrors.Error)
	GetOrder(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, *apperrors.Error)
	TrackByInvoice(ctx context.Context, invoice string) (*models.Order, *apperrors.Error)
	CancelOrder(ctx context.Context, orderID, userID uuid.UUID) *apperrors.Error

	ListAllOrders(ctx context.Context, status string, page, limit int) ([]models.Order, int64, *apperrors.Error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, to models.OrderStatus) *apperrors.Error
	UpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, to models.PaymentStatus) *apperrors.Error

	MarkOrderPaid(ctx context.Context, orderID uuid.UUID, externalRef string) (bool, *apperrors.Error)
}

type orderServiceImpl struct {
	orders    repository.OrderRepository
	products  repository.ProductRepository
	downloads DownloadService
	publisher events.Publisher
	logger    *zap.Logger
}

// NewOrderService creates a new OrderService.
func NewOrderService(
	orders repository.OrderRepository,
	products repository.ProductRepository,
	downloads DownloadService,
	publisher events.Publisher,
	logger *zap.Logger,
) OrderService {
	return &orderServiceImpl{
		orders:    orders,
		products:  products,
		downloads: downloads,
		publisher: publisher,
		logger:    logger,
	}
}

// ListOrders returns a user's orders, newest first.
func (s *orderServiceImpl) ListOrders(ctx context.Context, userID uuid.UUID, page, limit int) ([]models.Order, int64, *apperrors.Error) {
	orders, total, err := s.orders.FindByUserID(ctx, userID, page, limit)
	if err != nil {
		s.logger.Error("Failed to list orders", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, 0, apperrors.New(500, "Failed to list orders", err)
	}
	return orders, total, nil
}

// GetOrder returns one order, scoped to its owner.
func (s *orderServiceImpl) GetOrder(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, *apperrors.Error) {
	order, err := s.orders.FindByIDAndUserID(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrOrderNotFound
		}
		s.logger.Error("Failed to load order", zap.String("order_id", orderID.String()), zap.Error(err))
		return nil, apperrors.New(500, "Failed to load order", err)
	}
	return order, nil
}

// TrackByInvoice looks an order up by invoice number. Guests track
// their orders this way.
func (s *orderServiceImpl) TrackByInvoice(ctx context.Context, invoice string) (*models.Order, *apperrors.Error) {
	order, err := s.orders.FindByInvoice(ctx, invoice)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrOrderNotFound
		}
		return nil, apperrors.New(500, "Failed to load order", err)
	}
	return order, nil
}

// CancelOrder cancels a customer's own order while it is still pending
// or processing, and returns the reserved stock.
func (s *orderServiceImpl) CancelOrder(ctx context.Context, orderID, userID uuid.UUID) *apperrors.Error {
	order, svcErr := s.GetOrder(ctx, orderID, userID)
	if svcErr != nil {
		return svcErr
	}

	changed, err := s.orders.Cancel(ctx, orderID)
	if err != nil {
		s.logger.Error("Failed to cancel order", zap.String("order_id", orderID.String()), zap.Error(err))
		return apperrors.New(500, "Failed to cancel order", err)
	}
	if !changed {
		return apperrors.New(apperrors.ErrInvalidTransition.Code,
			"Order can no longer be cancelled", nil)
	}

	s.restoreStock(ctx, order)

	s.logger.Info("Order cancelled",
		zap.String("order_id", orderID.String()),
		zap.String("invoice", order.Invoice))
	return nil
}

// ListAllOrders returns all orders for the admin view.
func (s *orderServiceImpl) ListAllOrders(ctx context.Context, status string, page, limit int) ([]models.Order, int64, *apperrors.Error) {
	if status != "" && !models.ValidOrderStatus(models.OrderStatus(status)) {
		return nil, 0, apperrors.New(400, "Unknown order status: "+status, nil)
	}
	orders, total, err := s.orders.FindAll(ctx, status, page, limit)
	if err != nil {
		s.logger.Error("Failed to list orders", zap.Error(err))
		return nil, 0, apperrors.New(500, "Failed to list orders", err)
	}
	return orders, total, nil
}

// UpdateOrderStatus performs an admin fulfillment transition through
// the state machine.
func (s *orderServiceImpl) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, to models.OrderStatus) *apperrors.Error {
	if !models.ValidOrderStatus(to) {
		return apperrors.New(400, "Unknown order status: "+string(to), nil)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrOrderNotFound
		}
		return apperrors.New(500, "Failed to load order", err)
	}

	if order.Status == to {
		return nil
	}
	if !models.CanTransitionStatus(order.Status, to) {
		return apperrors.New(apperrors.ErrInvalidTransition.Code,
			"Cannot move order from "+string(order.Status)+" to "+string(to), nil)
	}

	changed, err := s.orders.UpdateStatus(ctx, orderID, order.Status, to)
	if err != nil {
		s.logger.Error("Failed to update order status", zap.String("order_id", orderID.String()), zap.Error(err))
		return apperrors.New(500, "Failed to update order status", err)
	}
	if !changed {
		// Another admin moved the order first.
		return apperrors.ErrInvalidTransition
	}

	if to == models.OrderStatusCancelled {
		s.restoreStock(ctx, order)
	}

	s.logger.Info("Order status updated",
		zap.String("order_id", orderID.String()),
		zap.String("from", string(order.Status)),
		zap.String("to", string(to)))
	return nil
}

// UpdatePaymentStatus performs an admin payment transition. Moving to
// paid goes through MarkOrderPaid so the digital grant and event side
// effects fire exactly once.
func (s *orderServiceImpl) UpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, to models.PaymentStatus) *apperrors.Error {
	if !models.ValidPaymentStatus(to) {
		return apperrors.New(400, "Unknown payment status: "+string(to), nil)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrOrderNotFound
		}
		return apperrors.New(500, "Failed to load order", err)
	}

	if order.PaymentStatus == to {
		return nil
	}

	if to == models.PaymentStatusPaid {
		changed, svcErr := s.MarkOrderPaid(ctx, orderID, "")
		if svcErr != nil {
			return svcErr
		}
		if !changed {
			return apperrors.New(apperrors.ErrInvalidTransition.Code,
				"Order is not awaiting payment", nil)
		}
		return nil
	}

	if !models.CanTransitionPayment(order.PaymentStatus, to) {
		return apperrors.New(apperrors.ErrInvalidTransition.Code,
			"Cannot move payment from "+string(order.PaymentStatus)+" to "+string(to), nil)
	}

	changed, err := s.orders.UpdatePaymentStatus(ctx, orderID, order.PaymentStatus, to)
	if err != nil {
		s.logger.Error("Failed to update payment status", zap.String("order_id", orderID.String()), zap.Error(err))
		return apperrors.New(500, "Failed to update payment status", err)
	}
	if !changed {
		return apperrors.ErrInvalidTransition
	}

	s.logger.Info("Payment status updated",
		zap.String("order_id", orderID.String()),
		zap.String("to", string(to)))
	return nil
}

// MarkOrderPaid flips the order to paid and runs the success side
// effects. The guarded update makes the flip idempotent: a replayed
// confirmation reports changed=false and skips the side effects.
func (s *orderServiceImpl) MarkOrderPaid(ctx context.Context, orderID uuid.UUID, externalRef string) (bool, *apperrors.Error) {
	changed, err := s.orders.MarkPaid(ctx, orderID, externalRef)
	if err != nil {
		s.logger.Error("Failed to mark order paid", zap.String("order_id", orderID.String()), zap.Error(err))
		return false, apperrors.New(500, "Failed to update payment", err)
	}
	if !changed {
		return false, nil
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		s.logger.Error("Failed to reload paid order", zap.String("order_id", orderID.String()), zap.Error(err))
		return true, nil
	}

	if order.HasDigitalItems() {
		if err := s.downloads.GrantAccessForOrder(ctx, order); err != nil {
			s.logger.Error("Failed to grant digital access",
				zap.String("order_id", orderID.String()), zap.Error(err))
		}
	}

	event := models.OrderPaidEvent{
		EventType:     "order_paid",
		OrderID:       order.ID.String(),
		Invoice:       order.Invoice,
		TotalAmount:   order.TotalAmount,
		PaymentMethod: order.PaymentMethod,
		ExternalRef:   externalRef,
		Timestamp:     time.Now(),
	}
	if order.UserID != nil {
		event.UserID = order.UserID.String()
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish order_paid event",
			zap.String("order_id", orderID.String()), zap.Error(err))
	}

	s.logger.Info("Order paid",
		zap.String("order_id", order.ID.String()),
		zap.String("invoice", order.Invoice),
		zap.String("gateway", order.PaymentMethod))
	return true, nil
}

// restoreStock returns the physical stock held by an order's items.
// Best effort: a failure is logged, not surfaced, since the order is
// already cancelled.
func (s *orderServiceImpl) restoreStock(ctx context.Context, order *models.Order) {
	for _, item := range order.Items {
		if item.IsDigital {
			continue
		}
		if err := s.products.RestoreStock(ctx, item.ProductID, item.Quantity); err != nil {
			s.logger.Error("Failed to restore stock",
				zap.String("product_id", item.ProductID.String()),
				zap.Int("quantity", item.Quantity),
				zap.Error(err))
		}
	}
}
