package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "storefront-service/errors"
	"storefront-service/gateways"
	"storefront-service/models"
	"storefront-service/repository"
)

// VerifyPaymentResult is what the verify endpoint returns to the
// client after asking the gateway about a payment.
type VerifyPaymentResult struct {
	Status  gateways.VerifyStatus `json:"status"`
	OrderID string                `json:"order_id"`
}

// PaymentStatusResult is the checkout page's polling view of an order:
// the order-level payment status plus the most recent gateway attempt,
// when one exists.
type PaymentStatusResult struct {
	OrderID       string                     `json:"order_id"`
	PaymentStatus models.PaymentStatus       `json:"payment_status"`
	Gateway       string                     `json:"gateway,omitempty"`
	AttemptStatus models.PaymentRecordStatus `json:"attempt_status,omitempty"`
	Reference     string                     `json:"reference,omitempty"`
}

// PaymentService drives online payments: starting an attempt with a
// gateway and settling the order when the gateway confirms it.
type PaymentService interface {
	InitiatePayment(ctx context.Context, gatewaySlug string, orderID uuid.UUID, userID *uuid.UUID) (*gateways.InitiateResult, *apperrors.Error)
	VerifyPayment(ctx context.Context, gatewaySlug, reference string) (*VerifyPaymentResult, *apperrors.Error)
	PaymentStatus(ctx context.Context, orderID uuid.UUID, userID *uuid.UUID) (*PaymentStatusResult, *apperrors.Error)
}

type paymentServiceImpl struct {
	registry *gateways.Registry
	payments repository.PaymentRepository
	orders   repository.OrderRepository
	orderSvc OrderService
	logger   *zap.Logger
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(
	registry *gateways.Registry,
	payments repository.PaymentRepository,
	orders repository.OrderRepository,
	orderSvc OrderService,
	logger *zap.Logger,
) PaymentService {
	return &paymentServiceImpl{
		registry: registry,
		payments: payments,
		orders:   orders,
		orderSvc: orderSvc,
		logger:   logger,
	}
}

// InitiatePayment starts a gateway attempt for an order that is still
// awaiting payment and records it for later verification.
func (s *paymentServiceImpl) InitiatePayment(ctx context.Context, gatewaySlug string, orderID uuid.UUID, userID *uuid.UUID) (*gateways.InitiateResult, *apperrors.Error) {
	gateway, err := s.registry.Get(gatewaySlug)
	if err != nil {
		return nil, apperrors.ErrPaymentNotConfigured
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrOrderNotFound
		}
		return nil, apperrors.New(500, "Failed to load order", err)
	}

	if order.UserID != nil && (userID == nil || *userID != *order.UserID) {
		return nil, apperrors.ErrOrderNotFound
	}
	if order.PaymentStatus != models.PaymentStatusPending {
		return nil, apperrors.New(409, "Order is not awaiting payment", nil)
	}
	if order.PaymentMethod != gateway.Slug() {
		return nil, apperrors.New(409, "Order was placed with a different payment method", nil)
	}

	result, initErr := gateway.Initiate(ctx, order)
	if initErr != nil {
		if appErr, ok := initErr.(*apperrors.Error); ok {
			return nil, appErr
		}
		s.logger.Error("Gateway initiation failed",
			zap.String("gateway", gatewaySlug),
			zap.String("order_id", orderID.String()),
			zap.Error(initErr))
		return nil, apperrors.New(apperrors.ErrGatewayError.Code, "Payment gateway error", initErr)
	}

	record := &models.PaymentRecord{
		OrderID:   order.ID,
		Gateway:   gateway.Slug(),
		Amount:    order.TotalAmount,
		Reference: result.Reference,
		Status:    models.PaymentRecordInitiated,
	}
	if err := s.payments.Create(ctx, record); err != nil {
		s.logger.Error("Failed to record payment attempt",
			zap.String("order_id", orderID.String()), zap.Error(err))
		return nil, apperrors.New(500, "Failed to record payment attempt", err)
	}

	s.logger.Info("Payment initiated",
		zap.String("gateway", gatewaySlug),
		zap.String("order_id", orderID.String()),
		zap.String("reference", result.Reference))
	return result, nil
}

// PaymentStatus reports where an order's payment stands, for the
// checkout page to poll while the customer is off at the gateway.
func (s *paymentServiceImpl) PaymentStatus(ctx context.Context, orderID uuid.UUID, userID *uuid.UUID) (*PaymentStatusResult, *apperrors.Error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrOrderNotFound
		}
		return nil, apperrors.New(500, "Failed to load order", err)
	}

	if order.UserID != nil && (userID == nil || *userID != *order.UserID) {
		return nil, apperrors.ErrOrderNotFound
	}

	result := &PaymentStatusResult{
		OrderID:       order.ID.String(),
		PaymentStatus: order.PaymentStatus,
	}

	record, err := s.payments.FindLatestByOrderID(ctx, orderID)
	if err != nil {
		// COD and manual orders never start a gateway attempt.
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return result, nil
		}
		return nil, apperrors.New(500, "Failed to load payment attempt", err)
	}

	result.Gateway = record.Gateway
	result.AttemptStatus = record.Status
	result.Reference = record.Reference
	return result, nil
}

// VerifyPayment asks the gateway about a reference and settles the
// order accordingly. A transport failure leaves everything pending; a
// verified payment flips the order paid exactly once; a definitive
// rejection marks the attempt and the order failed.
func (s *paymentServiceImpl) VerifyPayment(ctx context.Context, gatewaySlug, reference string) (*VerifyPaymentResult, *apperrors.Error) {
	gateway, err := s.registry.Get(gatewaySlug)
	if err != nil {
		return nil, apperrors.ErrPaymentNotConfigured
	}

	record, err := s.payments.FindByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(404, "Unknown payment reference", nil)
		}
		return nil, apperrors.New(500, "Failed to load payment record", err)
	}
	if record.Gateway != gateway.Slug() {
		return nil, apperrors.New(400, "Reference belongs to a different gateway", nil)
	}

	result, verifyErr := gateway.Verify(ctx, reference)
	if verifyErr != nil {
		// Unknown outcome: the order stays pending so a later retry
		// can settle it.
		s.logger.Warn("Gateway verification unavailable",
			zap.String("gateway", gatewaySlug),
			zap.String("reference", reference),
			zap.Error(verifyErr))
		if appErr, ok := verifyErr.(*apperrors.Error); ok {
			return nil, appErr
		}
		return nil, apperrors.New(apperrors.ErrGatewayError.Code, "Payment gateway error", verifyErr)
	}

	out := &VerifyPaymentResult{Status: result.Status, OrderID: record.OrderID.String()}

	switch result.Status {
	case gateways.VerifyCompleted:
		if err := s.payments.UpdateStatus(ctx, record.ID, models.PaymentRecordCompleted, result.ExternalRef); err != nil {
			s.logger.Error("Failed to update payment record", zap.Error(err))
		}
		if _, svcErr := s.orderSvc.MarkOrderPaid(ctx, record.OrderID, result.ExternalRef); svcErr != nil {
			return nil, svcErr
		}

	case gateways.VerifyPending:
		if err := s.payments.UpdateStatus(ctx, record.ID, models.PaymentRecordPending, result.ExternalRef); err != nil {
			s.logger.Error("Failed to update payment record", zap.Error(err))
		}

	case gateways.VerifyFailed:
		if err := s.payments.UpdateStatus(ctx, record.ID, models.PaymentRecordFailed, result.ExternalRef); err != nil {
			s.logger.Error("Failed to update payment record", zap.Error(err))
		}
		// Only a still-pending order moves to failed; a paid order is
		// never clawed back by a stale verification.
		if _, err := s.orders.UpdatePaymentStatus(ctx, record.OrderID,
			models.PaymentStatusPending, models.PaymentStatusFailed); err != nil {
			s.logger.Error("Failed to mark payment failed",
				zap.String("order_id", record.OrderID.String()), zap.Error(err))
		}
	}

	return out, nil
}
