package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "storefront-service/errors"
	"storefront-service/models"
	"storefront-service/repository"
)

// CartService defines the interface for the server-side cart. The cart
// key is the user ID for logged-in customers and the session ID for
// guests; both are opaque strings here.
type CartService interface {
	GetCart(ctx context.Context, userID string) (*models.Cart, *apperrors.Error)
	UpsertItem(ctx context.Context, userID string, item models.CartItem) (*models.Cart, *apperrors.Error)
	RemoveItem(ctx context.Context, userID, productID string) (*models.Cart, *apperrors.Error)
	ClearCart(ctx context.Context, userID string) *apperrors.Error
}

type cartServiceImpl struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	logger   *zap.Logger
}

// NewCartService creates a new CartService.
func NewCartService(carts repository.CartRepository, products repository.ProductRepository, logger *zap.Logger) CartService {
	return &cartServiceImpl{carts: carts, products: products, logger: logger}
}

// GetCart returns the cart, empty rather than nil when none exists.
func (s *cartServiceImpl) GetCart(ctx context.Context, userID string) (*models.Cart, *apperrors.Error) {
	cart, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to load cart", zap.String("user_id", userID), zap.Error(err))
		return nil, apperrors.New(500, "Failed to load cart", err)
	}
	if cart == nil {
		cart = &models.Cart{UserID: userID, Items: []models.CartItem{}}
	}
	return cart, nil
}

// UpsertItem adds a product to the cart or replaces its quantity and
// variant selection. The product must exist and have stock to cover the
// requested quantity.
func (s *cartServiceImpl) UpsertItem(ctx context.Context, userID string, item models.CartItem) (*models.Cart, *apperrors.Error) {
	productID, err := uuid.Parse(item.ProductID)
	if err != nil {
		return nil, apperrors.New(400, "Invalid product ID", nil)
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(404, "Product not found", nil)
		}
		s.logger.Error("Failed to load product", zap.String("product_id", item.ProductID), zap.Error(err))
		return nil, apperrors.New(500, "Failed to load product", err)
	}

	if !product.IsDigital && product.Stock < item.Quantity {
		return nil, apperrors.ErrOutOfStock
	}

	cart, svcErr := s.GetCart(ctx, userID)
	if svcErr != nil {
		return nil, svcErr
	}

	replaced := false
	for i := range cart.Items {
		if cart.Items[i].ProductID == item.ProductID {
			cart.Items[i] = item
			replaced = true
			break
		}
	}
	if !replaced {
		cart.Items = append(cart.Items, item)
	}

	if err := s.carts.SaveCart(ctx, cart); err != nil {
		s.logger.Error("Failed to save cart", zap.String("user_id", userID), zap.Error(err))
		return nil, apperrors.New(500, "Failed to save cart", err)
	}
	return cart, nil
}

// RemoveItem drops a product from the cart. Removing a product that is
// not in the cart is a no-op.
func (s *cartServiceImpl) RemoveItem(ctx context.Context, userID, productID string) (*models.Cart, *apperrors.Error) {
	cart, svcErr := s.GetCart(ctx, userID)
	if svcErr != nil {
		return nil, svcErr
	}

	kept := cart.Items[:0]
	for _, item := range cart.Items {
		if item.ProductID != productID {
			kept = append(kept, item)
		}
	}
	cart.Items = kept

	if err := s.carts.SaveCart(ctx, cart); err != nil {
		s.logger.Error("Failed to save cart", zap.String("user_id", userID), zap.Error(err))
		return nil, apperrors.New(500, "Failed to save cart", err)
	}
	return cart, nil
}

// ClearCart empties the cart.
func (s *cartServiceImpl) ClearCart(ctx context.Context, userID string) *apperrors.Error {
	if err := s.carts.DeleteCart(ctx, userID); err != nil {
		s.logger.Error("Failed to clear cart", zap.String("user_id", userID), zap.Error(err))
		return apperrors.New(500, "Failed to clear cart", err)
	}
	return nil
}
