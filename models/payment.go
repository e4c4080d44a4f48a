package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentRecordStatus tracks a single gateway attempt.
type PaymentRecordStatus string

const (
	PaymentRecordInitiated PaymentRecordStatus = "initiated"
	PaymentRecordPending   PaymentRecordStatus = "pending"
	PaymentRecordCompleted PaymentRecordStatus = "completed"
	PaymentRecordFailed    PaymentRecordStatus = "failed"
)

// PaymentRecord is the per-order, per-attempt audit trail of a gateway
// interaction. Created at initiation, updated at verification, and left
// untouched once the order is paid.
type PaymentRecord struct {
	ID            uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID       uuid.UUID           `gorm:"type:uuid;not null;index" json:"order_id"`
	Gateway       string              `gorm:"type:varchar(40);not null" json:"gateway"`
	Amount        float64             `gorm:"not null" json:"amount"`
	Reference     string              `gorm:"type:varchar(128);index" json:"reference"` // pidx / transaction_uuid
	TransactionID string              `gorm:"type:varchar(128)" json:"transaction_id,omitempty"`
	Status        PaymentRecordStatus `gorm:"type:varchar(20);not null;default:'initiated'" json:"status"`
	CreatedAt     time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

// OrderCreatedEvent is published after an order commits.
type OrderCreatedEvent struct {
	EventType     string    `json:"event_type"`
	OrderID       string    `json:"order_id"`
	Invoice       string    `json:"invoice"`
	UserID        string    `json:"user_id,omitempty"`
	TotalAmount   float64   `json:"total_amount"`
	PaymentMethod string    `json:"payment_method"`
	Timestamp     time.Time `json:"timestamp"`
}

// OrderPaidEvent is published exactly once, from the pending->paid
// transition.
type OrderPaidEvent struct {
	EventType     string    `json:"event_type"`
	OrderID       string    `json:"order_id"`
	Invoice       string    `json:"invoice"`
	UserID        string    `json:"user_id,omitempty"`
	TotalAmount   float64   `json:"total_amount"`
	PaymentMethod string    `json:"payment_method"`
	ExternalRef   string    `json:"external_ref,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}
