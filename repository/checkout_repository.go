package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"storefront-service/models"
)

// CheckoutTx is the set of writes a checkout performs atomically:
// stock deduction, coupon redemption and order creation either all
// commit or all roll back.
type CheckoutTx interface {
	DecrementStock(productID uuid.UUID, quantity int) (bool, error)
	RedeemCoupon(code string) (bool, error)
	FindCoupon(code string) (*models.Coupon, error)
	CreateOrder(order *models.Order) error
}

// CheckoutRepository opens database transactions for checkout.
type CheckoutRepository interface {
	RunInTransaction(ctx context.Context, fn func(tx CheckoutTx) error) error
}

// GormCheckoutRepository implements CheckoutRepository using GORM.
type GormCheckoutRepository struct {
	db *gorm.DB
}

// NewGormCheckoutRepository creates a new GormCheckoutRepository.
func NewGormCheckoutRepository(db *gorm.DB) CheckoutRepository {
	return &GormCheckoutRepository{db: db}
}

// RunInTransaction executes fn inside a database transaction. Any error
// from fn rolls back everything the transaction wrote.
func (r *GormCheckoutRepository) RunInTransaction(ctx context.Context, fn func(tx CheckoutTx) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormCheckoutTx{tx: tx})
	})
}

type gormCheckoutTx struct {
	tx *gorm.DB
}

func (t *gormCheckoutTx) DecrementStock(productID uuid.UUID, quantity int) (bool, error) {
	result := t.tx.
		Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, quantity).
		UpdateColumn("stock", gorm.Expr("stock - ?", quantity))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (t *gormCheckoutTx) RedeemCoupon(code string) (bool, error) {
	result := t.tx.
		Model(&models.Coupon{}).
		Where("LOWER(code) = ? AND active = ?", strings.ToLower(strings.TrimSpace(code)), true).
		Where("expires_at > ?", time.Now()).
		Where("usage_limit = 0 OR used_count < usage_limit").
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// FindCoupon reads the coupon row regardless of its active flag, so a
// failed redeem can be told apart: deactivated/expired versus used up.
func (t *gormCheckoutTx) FindCoupon(code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := t.tx.
		Where("LOWER(code) = ?", strings.ToLower(strings.TrimSpace(code))).
		First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (t *gormCheckoutTx) CreateOrder(order *models.Order) error {
	return t.tx.Create(order).Error
}
