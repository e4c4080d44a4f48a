package models

import (
	"time"

	"github.com/google/uuid"
)

// Digital access policy constants.
const (
	DefaultMaxDownloads = 5
	DefaultAccessDays   = 30
)

// DigitalDownload grants a user download access to one digital product
// bought in one order. At most one grant exists per (user, product,
// order); only download_count ever changes after creation.
type DigitalDownload struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_grant_triple" json:"user_id"`
	ProductID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_grant_triple" json:"product_id"`
	OrderID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_grant_triple" json:"order_id"`
	ExpireDate    time.Time `gorm:"not null" json:"expire_date"`
	DownloadCount int       `gorm:"not null;default:0" json:"download_count"`
	MaxDownload   int       `gorm:"not null;default:5" json:"max_download"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Usable reports whether the grant still permits a download at t.
func (d *DigitalDownload) Usable(t time.Time) bool {
	return t.Before(d.ExpireDate) && d.DownloadCount < d.MaxDownload
}

// RemainingDownloads returns how many downloads are left on the grant.
func (d *DigitalDownload) RemainingDownloads() int {
	remaining := d.MaxDownload - d.DownloadCount
	if remaining < 0 {
		return 0
	}
	return remaining
}
