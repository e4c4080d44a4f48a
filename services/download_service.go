package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "storefront-service/errors"
	"storefront-service/models"
	"storefront-service/repository"
)

// DownloadService manages digital access grants: created when an order
// is paid, consumed by download requests until they expire or run out.
type DownloadService interface {
	GrantAccessForOrder(ctx context.Context, order *models.Order) error
	Download(ctx context.Context, userID, productID uuid.UUID) (string, *apperrors.Error)
	ListGrants(ctx context.Context, userID, productID uuid.UUID) ([]models.DigitalDownload, *apperrors.Error)
}

type downloadServiceImpl struct {
	grants   repository.DownloadRepository
	products repository.ProductRepository
	logger   *zap.Logger
}

// NewDownloadService creates a new DownloadService.
func NewDownloadService(grants repository.DownloadRepository, products repository.ProductRepository, logger *zap.Logger) DownloadService {
	return &downloadServiceImpl{grants: grants, products: products, logger: logger}
}

// GrantAccessForOrder creates one grant per digital line item. Grants
// are looked up before insert, so replayed payment confirmations reuse
// the existing grant instead of resetting its counters.
func (s *downloadServiceImpl) GrantAccessForOrder(ctx context.Context, order *models.Order) error {
	if order.UserID == nil {
		return nil
	}

	for _, item := range order.Items {
		if !item.IsDigital {
			continue
		}

		_, err := s.grants.Find(ctx, *order.UserID, item.ProductID, order.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		grant := &models.DigitalDownload{
			UserID:      *order.UserID,
			ProductID:   item.ProductID,
			OrderID:     order.ID,
			ExpireDate:  time.Now().AddDate(0, 0, models.DefaultAccessDays),
			MaxDownload: models.DefaultMaxDownloads,
		}
		if err := s.grants.Create(ctx, grant); err != nil {
			// A concurrent confirmation may have inserted the grant
			// between the lookup and here; the unique index makes
			// that harmless.
			if !isDuplicateKey(err) {
				return err
			}
		}

		s.logger.Info("Digital access granted",
			zap.String("user_id", order.UserID.String()),
			zap.String("product_id", item.ProductID.String()),
			zap.String("order_id", order.ID.String()))
	}
	return nil
}

// Download consumes one download from the newest usable grant and
// returns the file URL to stream.
func (s *downloadServiceImpl) Download(ctx context.Context, userID, productID uuid.UUID) (string, *apperrors.Error) {
	grants, err := s.grants.FindByUserAndProduct(ctx, userID, productID)
	if err != nil {
		s.logger.Error("Failed to load download grants", zap.Error(err))
		return "", apperrors.New(500, "Failed to load download access", err)
	}

	now := time.Now()
	for i := range grants {
		grant := &grants[i]
		if !grant.Usable(now) {
			continue
		}

		ok, err := s.grants.IncrementDownloadCount(ctx, grant.ID)
		if err != nil {
			s.logger.Error("Failed to consume download", zap.Error(err))
			return "", apperrors.New(500, "Failed to record download", err)
		}
		if !ok {
			// Lost a race to the last download on this grant; try the
			// next one.
			continue
		}

		product, err := s.products.FindByID(ctx, productID)
		if err != nil {
			return "", apperrors.New(500, "Failed to load product file", err)
		}
		if product.FileURL == "" {
			return "", apperrors.New(404, "No downloadable file for this product", nil)
		}
		return product.FileURL, nil
	}

	if len(grants) == 0 {
		return "", apperrors.New(apperrors.ErrDownloadNotAllowed.Code, "You have not purchased this product", nil)
	}
	return "", apperrors.New(apperrors.ErrDownloadNotAllowed.Code, "Download limit reached or access expired", nil)
}

// ListGrants returns a user's grants for one product.
func (s *downloadServiceImpl) ListGrants(ctx context.Context, userID, productID uuid.UUID) ([]models.DigitalDownload, *apperrors.Error) {
	grants, err := s.grants.FindByUserAndProduct(ctx, userID, productID)
	if err != nil {
		return nil, apperrors.New(500, "Failed to load download access", err)
	}
	return grants, nil
}

func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		containsAny(msg, "duplicate", "unique")
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
