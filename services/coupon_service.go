package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "storefront-service/errors"
	"storefront-service/models"
	"storefront-service/pricing"
	"storefront-service/repository"
)

// CouponService defines the interface for coupon business logic. The
// validation path is read-only: usage is only spent when an order
// commits, so previewing a coupon never burns a use.
type CouponService interface {
	CreateCoupon(ctx context.Context, req *models.CreateCouponRequest) (*models.Coupon, *apperrors.Error)
	Validate(ctx context.Context, code string, subtotal float64) (*models.Coupon, float64, *apperrors.Error)
	DeactivateCoupon(ctx context.Context, code string) *apperrors.Error
	ListCoupons(ctx context.Context, page, limit int) ([]models.Coupon, int64, *apperrors.Error)
}

type couponServiceImpl struct {
	repo   repository.CouponRepository
	logger *zap.Logger
}

// NewCouponService creates a new CouponService.
func NewCouponService(repo repository.CouponRepository, logger *zap.Logger) CouponService {
	return &couponServiceImpl{repo: repo, logger: logger}
}

// CreateCoupon creates a new coupon.
func (s *couponServiceImpl) CreateCoupon(ctx context.Context, req *models.CreateCouponRequest) (*models.Coupon, *apperrors.Error) {
	if req.ExpiresAt.Before(time.Now()) {
		return nil, apperrors.New(400, "Expiry date must be in the future", nil)
	}

	if req.Type == models.CouponTypePercentage && req.Value > 100 {
		return nil, apperrors.New(400, "Percentage discount cannot exceed 100", nil)
	}

	coupon := &models.Coupon{
		Code:          strings.ToUpper(strings.TrimSpace(req.Code)),
		Type:          req.Type,
		Value:         req.Value,
		MinOrderValue: req.MinOrderValue,
		UsageLimit:    req.UsageLimit,
		ExpiresAt:     req.ExpiresAt,
		Active:        true,
	}

	if err := s.repo.Create(ctx, coupon); err != nil {
		if strings.Contains(err.Error(), "duplicate") || strings.Contains(err.Error(), "unique") {
			return nil, apperrors.New(409, "Coupon code already exists", nil)
		}
		s.logger.Error("Failed to create coupon", zap.Error(err))
		return nil, apperrors.New(500, "Failed to create coupon", err)
	}

	s.logger.Info("Coupon created",
		zap.String("code", coupon.Code),
		zap.String("type", string(coupon.Type)))
	return coupon, nil
}

// Validate checks a coupon against an order subtotal and returns the
// coupon and the discount it grants. It never mutates used_count.
func (s *couponServiceImpl) Validate(ctx context.Context, code string, subtotal float64) (*models.Coupon, float64, *apperrors.Error) {
	coupon, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, apperrors.New(apperrors.ErrCouponInvalid.Code, "Coupon not found or inactive", nil)
		}
		s.logger.Error("Failed to look up coupon", zap.String("code", code), zap.Error(err))
		return nil, 0, apperrors.New(500, "Failed to validate coupon", err)
	}

	if time.Now().After(coupon.ExpiresAt) {
		return nil, 0, apperrors.New(apperrors.ErrCouponInvalid.Code, "Coupon has expired", nil)
	}

	if coupon.Exhausted() {
		return nil, 0, apperrors.ErrCouponExhausted
	}

	if subtotal < coupon.MinOrderValue {
		return nil, 0, apperrors.New(apperrors.ErrCouponInvalid.Code,
			fmt.Sprintf("Minimum order value of %.2f required", coupon.MinOrderValue), nil)
	}

	return coupon, Discount(coupon, subtotal), nil
}

// DeactivateCoupon deactivates a coupon by code.
func (s *couponServiceImpl) DeactivateCoupon(ctx context.Context, code string) *apperrors.Error {
	if err := s.repo.Deactivate(ctx, code); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.New(404, "Coupon not found", nil)
		}
		s.logger.Error("Failed to deactivate coupon", zap.String("code", code), zap.Error(err))
		return apperrors.New(500, "Failed to deactivate coupon", err)
	}

	s.logger.Info("Coupon deactivated", zap.String("code", code))
	return nil
}

// ListCoupons returns paginated coupons.
func (s *couponServiceImpl) ListCoupons(ctx context.Context, page, limit int) ([]models.Coupon, int64, *apperrors.Error) {
	coupons, total, err := s.repo.FindAll(ctx, page, limit)
	if err != nil {
		s.logger.Error("Failed to list coupons", zap.Error(err))
		return nil, 0, apperrors.New(500, "Failed to list coupons", err)
	}
	return coupons, total, nil
}

// Discount computes the discount a coupon grants on a subtotal. A fixed
// coupon never discounts more than the subtotal itself.
func Discount(coupon *models.Coupon, subtotal float64) float64 {
	var discount float64
	switch coupon.Type {
	case models.CouponTypePercentage:
		discount = subtotal * coupon.Value / 100
	case models.CouponTypeFixed:
		discount = coupon.Value
	}
	if discount > subtotal {
		discount = subtotal
	}
	return pricing.Round2(discount)
}
