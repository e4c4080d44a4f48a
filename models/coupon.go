package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CouponType represents the type of discount a coupon provides.
type CouponType string

const (
	CouponTypePercentage CouponType = "percentage"
	CouponTypeFixed      CouponType = "fixed"
)

// Coupon represents a promotional coupon. UsedCount only moves forward
// inside the order-commit transaction; abandoned checkouts never spend
// a use.
type Coupon struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Code          string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"code"`
	Type          CouponType     `gorm:"type:varchar(20);not null" json:"type"`
	Value         float64        `gorm:"not null" json:"value"` // percentage or flat amount
	MinOrderValue float64        `gorm:"not null;default:0" json:"min_order_value"`
	UsageLimit    int            `gorm:"not null;default:0" json:"usage_limit"` // 0 = unlimited
	UsedCount     int            `gorm:"not null;default:0" json:"used_count"`
	ExpiresAt     time.Time      `gorm:"not null" json:"expires_at"`
	Active        bool           `gorm:"not null;default:true" json:"active"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// Exhausted reports whether the coupon has no uses left.
func (c *Coupon) Exhausted() bool {
	return c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit
}

// CreateCouponRequest is the payload for creating a new coupon.
type CreateCouponRequest struct {
	Code          string     `json:"code" binding:"required,min=3,max=64"`
	Type          CouponType `json:"type" binding:"required,oneof=percentage fixed"`
	Value         float64    `json:"value" binding:"required,gt=0"`
	MinOrderValue float64    `json:"min_order_value" binding:"gte=0"`
	UsageLimit    int        `json:"usage_limit" binding:"gte=0"`
	ExpiresAt     time.Time  `json:"expires_at" binding:"required"`
}

// ValidateCouponRequest is the AJAX payload from the checkout page.
// City is optional; when present the preview includes the delivery fee
// for that city in the final amount.
type ValidateCouponRequest struct {
	Code string `json:"code" binding:"required"`
	City string `json:"city"`
}

// ValidateCouponResponse mirrors what the checkout page renders: the
// discount and the grand total the customer would pay with the coupon
// applied.
type ValidateCouponResponse struct {
	Success     bool    `json:"success"`
	Code        string  `json:"code,omitempty"`
	Discount    float64 `json:"discount,omitempty"`
	FinalAmount float64 `json:"final_amount,omitempty"`
	Message     string  `json:"message,omitempty"`
}
