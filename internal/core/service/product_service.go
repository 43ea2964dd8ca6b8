package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/storefront-api/internal/core/domain"
	"github.com/99minutos/storefront-api/internal/core/ports"
)

type ProductService struct {
	products   ports.ProductRepository
	categories ports.CategoryRepository
	logger     zerolog.Logger
	now        func() time.Time
}

func NewProductService(products ports.ProductRepository, categories ports.CategoryRepository, logger zerolog.Logger) *ProductService {
	return &ProductService{
		products:   products,
		categories: categories,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// CreateProduct stores a product under an existing category.
func (s *ProductService) CreateProduct(ctx context.Context, in ports.CreateProductInput) (*domain.Product, error) {
	if err := s.ensureCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	now := s.now()
	p, err := s.products.Create(ctx, &domain.Product{
		CategoryID:  in.CategoryID,
		Name:        in.Name,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.logger.Info().Str("product_id", p.ID).Str("category_id", p.CategoryID).Msg("product created")
	return p, nil
}

func (s *ProductService) CountProducts(ctx context.Context) (int64, error) {
	n, err := s.products.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

func (s *ProductService) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	list, err := s.products.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return list, nil
}

func (s *ProductService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// UpdateProduct applies a partial update. Moving a product to another
// category requires that category to exist.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, patch domain.ProductPatch) (*domain.Product, error) {
	if patch.CategoryID != nil {
		if err := s.ensureCategory(ctx, *patch.CategoryID); err != nil {
			return nil, err
		}
	}
	if patch.Empty() {
		return s.GetProduct(ctx, id)
	}

	p, err := s.products.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update product: %w", err)
	}

	s.logger.Info().Str("product_id", p.ID).Msg("product updated")
	return p, nil
}

func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.products.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			return err
		}
		return fmt.Errorf("delete product: %w", err)
	}
	s.logger.Info().Str("product_id", id).Msg("product deleted")
	return nil
}

func (s *ProductService) CreateCategory(ctx context.Context, in ports.CreateCategoryInput) (*domain.Category, error) {
	c, err := s.categories.Create(ctx, &domain.Category{
		Name:        in.Name,
		Description: in.Description,
		CreatedAt:   s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	s.logger.Info().Str("category_id", c.ID).Str("name", c.Name).Msg("category created")
	return c, nil
}

func (s *ProductService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	list, err := s.categories.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return list, nil
}

func (s *ProductService) ensureCategory(ctx context.Context, id string) error {
	if id == "" {
		return domain.ErrCategoryNotFound
	}
	if _, err := s.categories.FindByID(ctx, id); err != nil {
		if errors.Is(err, domain.ErrCategoryNotFound) {
			return err
		}
		return fmt.Errorf("lookup category: %w", err)
	}
	return nil
}
