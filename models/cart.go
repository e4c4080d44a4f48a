package models

import "time"

// CartItem is one line of a server-side cart. Only the product
// reference, quantity and variant selection live here; prices are
// resolved from the catalog at checkout, never trusted from the cart.
type CartItem struct {
	ProductID     string `json:"product_id" binding:"required,uuid"`
	Quantity      int    `json:"quantity" binding:"required,min=1"`
	SelectedColor string `json:"selected_color,omitempty"`
	SelectedSize  string `json:"selected_size,omitempty"`
}

// Cart is the Redis-backed cart for one user or guest session.
type Cart struct {
	UserID    string     `json:"user_id"`
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CheckoutRequest is the payload for POST /checkout/process. The cart
// itself is read server-side; the client only sends delivery details,
// the gateway choice and an optional coupon code.
type CheckoutRequest struct {
	RecipientName string `json:"recipient_name" binding:"required"`
	Phone         string `json:"phone" binding:"required"`
	AddressLine1  string `json:"address_line1" binding:"required"`
	City          string `json:"city" binding:"required"`
	State         string `json:"state"`
	OrderNotes    string `json:"order_notes"`
	Gateway       string `json:"gateway" binding:"required"`
	CouponCode    string `json:"coupon_code"`
	TransactionID string `json:"transaction_id"` // required by the bank transfer gateway
	ScreenshotURL string `json:"screenshot_url"` // payment proof for manual gateways
}

// CheckoutResponse tells the client where to go next: straight to the
// success page (COD, bank transfer) or to a gateway payment page.
type CheckoutResponse struct {
	Success     bool    `json:"success"`
	OrderID     string  `json:"order_id"`
	Invoice     string  `json:"invoice"`
	TotalAmount float64 `json:"total_amount"`
	RedirectURL string  `json:"redirect_url"`
}
