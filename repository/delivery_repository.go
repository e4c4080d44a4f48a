package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"storefront-service/models"
)

// DeliveryRepository defines the interface for per-city delivery fees.
type DeliveryRepository interface {
	ChargeForLocation(ctx context.Context, location string) (float64, error)
	Upsert(ctx context.Context, charge *models.DeliveryCharge) error
	FindAll(ctx context.Context) ([]models.DeliveryCharge, error)
}

// GormDeliveryRepository implements DeliveryRepository using GORM.
type GormDeliveryRepository struct {
	db *gorm.DB
}

// NewGormDeliveryRepository creates a new GormDeliveryRepository.
func NewGormDeliveryRepository(db *gorm.DB) DeliveryRepository {
	return &GormDeliveryRepository{db: db}
}

// ChargeForLocation returns the fee for a city, falling back to the
// default when the city has no configured charge.
func (r *GormDeliveryRepository) ChargeForLocation(ctx context.Context, location string) (float64, error) {
	var charge models.DeliveryCharge
	err := r.db.WithContext(ctx).
		Where("LOWER(location) = ?", strings.ToLower(strings.TrimSpace(location))).
		First(&charge).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.DefaultDeliveryFee, nil
	}
	if err != nil {
		return 0, err
	}
	return charge.Charge, nil
}

// Upsert creates or updates the charge for a city.
func (r *GormDeliveryRepository) Upsert(ctx context.Context, charge *models.DeliveryCharge) error {
	charge.Location = strings.TrimSpace(charge.Location)

	var existing models.DeliveryCharge
	err := r.db.WithContext(ctx).
		Where("LOWER(location) = ?", strings.ToLower(charge.Location)).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.WithContext(ctx).Create(charge).Error
	}
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).
		Model(&models.DeliveryCharge{}).
		Where("id = ?", existing.ID).
		Update("charge", charge.Charge).
		Error
}

// FindAll retrieves all configured city charges.
func (r *GormDeliveryRepository) FindAll(ctx context.Context) ([]models.DeliveryCharge, error) {
	var charges []models.DeliveryCharge
	if err := r.db.WithContext(ctx).
		Order("location ASC").
		Find(&charges).Error; err != nil {
		return nil, err
	}
	return charges, nil
}
