package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product is the slice of the catalog this service reads at checkout:
// live price, stock and the digital flag. Catalog management itself is
// owned elsewhere.
type Product struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string         `gorm:"type:varchar(200);not null" json:"name"`
	Price     float64        `gorm:"not null" json:"price"`
	SalePrice float64        `gorm:"not null;default:0" json:"sale_price"` // 0 = no sale
	Stock     int            `gorm:"not null;default:0" json:"stock"`
	IsDigital bool           `gorm:"not null;default:false" json:"is_digital"`
	FileURL   string         `gorm:"type:varchar(500)" json:"file_url,omitempty"` // download target for digital goods
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// CurrentPrice returns the effective unit price, honoring an active
// sale price when it undercuts the list price.
func (p *Product) CurrentPrice() float64 {
	if p.SalePrice > 0 && p.SalePrice < p.Price {
		return p.SalePrice
	}
	return p.Price
}

// DeliveryCharge maps a delivery city to its fee.
type DeliveryCharge struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Location  string    `gorm:"type:varchar(80);uniqueIndex;not null" json:"location"`
	Charge    float64   `gorm:"not null" json:"charge"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// DefaultDeliveryFee applies when a city has no configured charge.
const DefaultDeliveryFee = 300.0

// CreateDeliveryChargeRequest is the admin payload for a city fee.
type CreateDeliveryChargeRequest struct {
	Location string  `json:"location" binding:"required"`
	Charge   float64 `json:"charge" binding:"gte=0"`
}
