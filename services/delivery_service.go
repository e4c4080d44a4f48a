package services

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	apperrors "storefront-service/errors"
	"storefront-service/models"
	"storefront-service/repository"
)

// DeliveryService manages the per-city delivery charge table.
type DeliveryService interface {
	UpsertCharge(ctx context.Context, req *models.CreateDeliveryChargeRequest) (*models.DeliveryCharge, *apperrors.Error)
	ListCharges(ctx context.Context) ([]models.DeliveryCharge, *apperrors.Error)
}

type deliveryServiceImpl struct {
	deliveries repository.DeliveryRepository
	logger     *zap.Logger
}

// NewDeliveryService creates a new DeliveryService.
func NewDeliveryService(deliveries repository.DeliveryRepository, logger *zap.Logger) DeliveryService {
	return &deliveryServiceImpl{deliveries: deliveries, logger: logger}
}

func (s *deliveryServiceImpl) UpsertCharge(ctx context.Context, req *models.CreateDeliveryChargeRequest) (*models.DeliveryCharge, *apperrors.Error) {
	location := strings.TrimSpace(req.Location)
	if location == "" {
		return nil, apperrors.New(http.StatusBadRequest, "Location is required", nil)
	}
	if req.Charge < 0 {
		return nil, apperrors.New(http.StatusBadRequest, "Charge must not be negative", nil)
	}

	charge := &models.DeliveryCharge{
		Location: location,
		Charge:   req.Charge,
	}
	if err := s.deliveries.Upsert(ctx, charge); err != nil {
		s.logger.Error("failed to upsert delivery charge",
			zap.String("location", location), zap.Error(err))
		return nil, apperrors.New(http.StatusInternalServerError, "Failed to save delivery charge", err)
	}

	s.logger.Info("delivery charge saved",
		zap.String("location", location), zap.Float64("charge", req.Charge))
	return charge, nil
}

func (s *deliveryServiceImpl) ListCharges(ctx context.Context) ([]models.DeliveryCharge, *apperrors.Error) {
	charges, err := s.deliveries.FindAll(ctx)
	if err != nil {
		s.logger.Error("failed to list delivery charges", zap.Error(err))
		return nil, apperrors.New(http.StatusInternalServerError, "Failed to list delivery charges", err)
	}
	return charges, nil
}
