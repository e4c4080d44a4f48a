package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderStatus is the fulfillment lifecycle of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// PaymentStatus is the payment lifecycle, tracked separately from
// fulfillment so a cancelled order keeps its payment history.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Order represents a customer order. Customer and pricing fields are
// snapshots taken at checkout time; catalog edits never touch them.
// total_amount always equals subtotal - discount_amount + tax_amount +
// delivery_fee and is recomputed server-side, never read from a client.
type Order struct {
	ID      uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Invoice string     `gorm:"type:varchar(32);uniqueIndex;not null" json:"invoice"`
	UserID  *uuid.UUID `gorm:"type:uuid;index" json:"user_id,omitempty"` // nil for guest orders

	RecipientName string `gorm:"type:varchar(120);not null" json:"recipient_name"`
	Phone         string `gorm:"type:varchar(32);not null" json:"phone"`
	AddressLine1  string `gorm:"type:varchar(255);not null" json:"address_line1"`
	City          string `gorm:"type:varchar(80);not null" json:"city"`
	State         string `gorm:"type:varchar(80)" json:"state,omitempty"`
	Country       string `gorm:"type:varchar(80);not null;default:'Nepal'" json:"country"`
	OrderNotes    string `gorm:"type:text" json:"order_notes,omitempty"`

	Subtotal       float64 `gorm:"not null" json:"subtotal"`
	DiscountAmount float64 `gorm:"not null;default:0" json:"discount_amount"`
	TaxAmount      float64 `gorm:"not null;default:0" json:"tax_amount"`
	DeliveryFee    float64 `gorm:"not null;default:0" json:"delivery_fee"`
	TotalAmount    float64 `gorm:"not null" json:"total_amount"`

	Status        OrderStatus   `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"payment_status"`
	PaymentMethod string        `gorm:"type:varchar(40);not null" json:"payment_method"`
	CouponCode    *string       `gorm:"type:varchar(64)" json:"coupon_code,omitempty"`
	TransactionID *string       `gorm:"type:varchar(128)" json:"transaction_id,omitempty"`
	ScreenshotURL *string       `gorm:"type:varchar(255)" json:"screenshot_url,omitempty"` // manual bank transfer proof

	PaidAt      *time.Time     `json:"paid_at,omitempty"`
	CancelledAt *time.Time     `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
}

// OrderItem is a purchased line. Product name, price and the digital
// flag are copied from the catalog at purchase time.
type OrderItem struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID       uuid.UUID `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID     uuid.UUID `gorm:"type:uuid;not null" json:"product_id"`
	ProductName   string    `gorm:"type:varchar(200);not null" json:"product_name"`
	UnitPrice     float64   `gorm:"not null" json:"unit_price"`
	Quantity      int       `gorm:"not null" json:"quantity"`
	SelectedColor string    `gorm:"type:varchar(40)" json:"selected_color,omitempty"`
	SelectedSize  string    `gorm:"type:varchar(40)" json:"selected_size,omitempty"`
	IsDigital     bool      `gorm:"not null;default:false" json:"is_digital"`
	LineTotal     float64   `gorm:"not null" json:"line_total"`
}

// HasDigitalItems reports whether any line item is a digital product.
func (o *Order) HasDigitalItems() bool {
	for _, item := range o.Items {
		if item.IsDigital {
			return true
		}
	}
	return false
}

// DigitalOnly reports whether every line item is digital. Such orders
// are delivered the moment payment completes.
func (o *Order) DigitalOnly() bool {
	if len(o.Items) == 0 {
		return false
	}
	for _, item := range o.Items {
		if !item.IsDigital {
			return false
		}
	}
	return true
}

// statusTransitions is the closed set of legal fulfillment moves. The
// state machine, not the admin UI, is the enforcement point.
var statusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
}

// paymentTransitions is the closed set of legal payment moves. Refund
// is the only way off paid.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:  {PaymentStatusPaid, PaymentStatusFailed},
	PaymentStatusPaid:     {PaymentStatusRefunded},
	PaymentStatusFailed:   {PaymentStatusPending},
	PaymentStatusRefunded: {},
}

// CanTransitionStatus reports whether from -> to is a legal fulfillment
// transition.
func CanTransitionStatus(from, to OrderStatus) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CanTransitionPayment reports whether from -> to is a legal payment
// transition.
func CanTransitionPayment(from, to PaymentStatus) bool {
	for _, next := range paymentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidOrderStatus reports whether s is a known fulfillment status.
func ValidOrderStatus(s OrderStatus) bool {
	_, ok := statusTransitions[s]
	return ok
}

// ValidPaymentStatus reports whether s is a known payment status.
func ValidPaymentStatus(s PaymentStatus) bool {
	_, ok := paymentTransitions[s]
	return ok
}
