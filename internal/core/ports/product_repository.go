package ports

import (
	"context"

	"github.com/99minutos/storefront-api/internal/core/domain"
)

// ProductRepository persists products. Soft-deleted products are invisible
// to every read.
type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) (*domain.Product, error)
	Count(ctx context.Context) (int64, error)
	FindAll(ctx context.Context) ([]*domain.Product, error)
	FindByID(ctx context.Context, id string) (*domain.Product, error)
	Update(ctx context.Context, id string, patch domain.ProductPatch) (*domain.Product, error)
	// SoftDelete marks the product deleted. Missing or already deleted
	// products yield domain.ErrProductNotFound.
	SoftDelete(ctx context.Context, id string) error
}

// CategoryRepository persists categories.
type CategoryRepository interface {
	Create(ctx context.Context, c *domain.Category) (*domain.Category, error)
	FindByID(ctx context.Context, id string) (*domain.Category, error)
	FindAll(ctx context.Context) ([]*domain.Category, error)
}
