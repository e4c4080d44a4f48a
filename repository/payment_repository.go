package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"storefront-service/models"
)

// PaymentRepository defines the interface for gateway attempt records.
type PaymentRepository interface {
	Create(ctx context.Context, record *models.PaymentRecord) error
	FindByReference(ctx context.Context, reference string) (*models.PaymentRecord, error)
	FindLatestByOrderID(ctx context.Context, orderID uuid.UUID) (*models.PaymentRecord, error)
	UpdateStatus(ctx context.Context, recordID uuid.UUID, status models.PaymentRecordStatus, transactionID string) error
}

// GormPaymentRepository implements PaymentRepository using GORM.
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository.
func NewGormPaymentRepository(db *gorm.DB) PaymentRepository {
	return &GormPaymentRepository{db: db}
}

// Create inserts a new payment record.
func (r *GormPaymentRepository) Create(ctx context.Context, record *models.PaymentRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// FindByReference retrieves the record for a gateway reference
// (Khalti pidx, eSewa transaction_uuid).
func (r *GormPaymentRepository) FindByReference(ctx context.Context, reference string) (*models.PaymentRecord, error) {
	var record models.PaymentRecord
	if err := r.db.WithContext(ctx).
		Where("reference = ?", reference).
		First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// FindLatestByOrderID retrieves the most recent attempt for an order.
func (r *GormPaymentRepository) FindLatestByOrderID(ctx context.Context, orderID uuid.UUID) (*models.PaymentRecord, error) {
	var record models.PaymentRecord
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// UpdateStatus moves a payment record to its verification outcome.
func (r *GormPaymentRepository) UpdateStatus(ctx context.Context, recordID uuid.UUID, status models.PaymentRecordStatus, transactionID string) error {
	updates := map[string]interface{}{"status": status}
	if transactionID != "" {
		updates["transaction_id"] = transactionID
	}
	return r.db.WithContext(ctx).
		Model(&models.PaymentRecord{}).
		Where("id = ?", recordID).
		Updates(updates).
		Error
}
