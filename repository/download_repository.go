package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"storefront-service/models"
)

// DownloadRepository defines the interface for digital access grants.
type DownloadRepository interface {
	Find(ctx context.Context, userID, productID, orderID uuid.UUID) (*models.DigitalDownload, error)
	FindByUserAndProduct(ctx context.Context, userID, productID uuid.UUID) ([]models.DigitalDownload, error)
	Create(ctx context.Context, grant *models.DigitalDownload) error
	IncrementDownloadCount(ctx context.Context, grantID uuid.UUID) (bool, error)
}

// GormDownloadRepository implements DownloadRepository using GORM.
type GormDownloadRepository struct {
	db *gorm.DB
}

// NewGormDownloadRepository creates a new GormDownloadRepository.
func NewGormDownloadRepository(db *gorm.DB) DownloadRepository {
	return &GormDownloadRepository{db: db}
}

// Find retrieves the grant for one (user, product, order) triple.
func (r *GormDownloadRepository) Find(ctx context.Context, userID, productID, orderID uuid.UUID) (*models.DigitalDownload, error) {
	var grant models.DigitalDownload
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ? AND order_id = ?", userID, productID, orderID).
		First(&grant).Error; err != nil {
		return nil, err
	}
	return &grant, nil
}

// FindByUserAndProduct retrieves every grant a user holds for a product,
// newest first. A user who bought the same product twice has two grants.
func (r *GormDownloadRepository) FindByUserAndProduct(ctx context.Context, userID, productID uuid.UUID) ([]models.DigitalDownload, error) {
	var grants []models.DigitalDownload
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Order("created_at DESC").
		Find(&grants).Error; err != nil {
		return nil, err
	}
	return grants, nil
}

// Create inserts a new grant.
func (r *GormDownloadRepository) Create(ctx context.Context, grant *models.DigitalDownload) error {
	return r.db.WithContext(ctx).Create(grant).Error
}

// IncrementDownloadCount consumes one download, guarded so the count
// never exceeds the grant limit under concurrent requests.
func (r *GormDownloadRepository) IncrementDownloadCount(ctx context.Context, grantID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.DigitalDownload{}).
		Where("id = ? AND download_count < max_download", grantID).
		UpdateColumn("download_count", gorm.Expr("download_count + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
