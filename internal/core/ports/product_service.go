package ports

import (
	"context"

	"github.com/99minutos/storefront-api/internal/core/domain"
)

// CreateProductInput carries the fields required to create a product.
type CreateProductInput struct {
	CategoryID  string
	Name        string
	Description string
}

// CreateCategoryInput carries the fields required to create a category.
type CreateCategoryInput struct {
	Name        string
	Description string
}

// ProductService defines catalogue use cases.
type ProductService interface {
	CreateProduct(ctx context.Context, in CreateProductInput) (*domain.Product, error)
	CountProducts(ctx context.Context) (int64, error)
	ListProducts(ctx context.Context) ([]*domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id string, patch domain.ProductPatch) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error

	CreateCategory(ctx context.Context, in CreateCategoryInput) (*domain.Category, error)
	ListCategories(ctx context.Context) ([]*domain.Category, error)
}
