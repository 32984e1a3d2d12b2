package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sandeepkv93/catalog-gateway-platform/internal/domain"
	"github.com/sandeepkv93/catalog-gateway-platform/internal/observability"
	"github.com/sandeepkv93/catalog-gateway-platform/internal/repository"
)

// ProductInput carries the three mutable product fields for create and
// full-replacement update.
type ProductInput struct {
	Name        string
	Description string
	Price       float64
}

type ProductServiceImpl struct {
	repo   repository.ProductRepository
	logger *slog.Logger
}

func NewProductService(repo repository.ProductRepository, logger *slog.Logger) *ProductServiceImpl {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProductServiceImpl{repo: repo, logger: logger}
}

func (s *ProductServiceImpl) Create(ctx context.Context, input ProductInput) (*domain.Product, error) {
	start := time.Now()
	outcome := "success"
	defer func() { observability.RecordProductOperation(ctx, "create", outcome, time.Since(start)) }()

	s.logger.DebugContext(ctx, "creating product", "name", input.Name)
	product := &domain.Product{Name: input.Name, Description: input.Description, Price: input.Price}
	if err := s.repo.Create(ctx, product); err != nil {
		outcome = "error"
		return nil, fmt.Errorf("create product: %w", err)
	}
	s.logger.InfoContext(ctx, "product saved", "product_id", product.ID)
	return product, nil
}

func (s *ProductServiceImpl) ListAll(ctx context.Context) ([]domain.Product, error) {
	start := time.Now()
	outcome := "success"
	defer func() { observability.RecordProductOperation(ctx, "list", outcome, time.Since(start)) }()

	s.logger.DebugContext(ctx, "listing products")
	products, err := s.repo.List(ctx)
	if err != nil {
		outcome = "error"
		return nil, fmt.Errorf("list products: %w", err)
	}
	if products == nil {
		products = []domain.Product{}
	}
	return products, nil
}

// Update replaces name, description and price of the product with id and
// returns id. A missing product is not an error: nothing is written and id is
// returned unchanged.
func (s *ProductServiceImpl) Update(ctx context.Context, id string, input ProductInput) (string, error) {
	start := time.Now()
	outcome := "success"
	defer func() { observability.RecordProductOperation(ctx, "update", outcome, time.Since(start)) }()

	s.logger.DebugContext(ctx, "updating product", "product_id", id)
	err := s.repo.Update(ctx, &domain.Product{
		ID:          id,
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
	})
	switch {
	case err == nil:
		s.logger.InfoContext(ctx, "product updated", "product_id", id)
	case errors.Is(err, repository.ErrProductNotFound):
		outcome = "not_found"
		s.logger.DebugContext(ctx, "product not found, update skipped", "product_id", id)
	default:
		outcome = "error"
		return "", fmt.Errorf("update product: %w", err)
	}
	return id, nil
}

// Delete removes the product with id. Deleting a missing product succeeds.
func (s *ProductServiceImpl) Delete(ctx context.Context, id string) error {
	start := time.Now()
	outcome := "success"
	defer func() { observability.RecordProductOperation(ctx, "delete", outcome, time.Since(start)) }()

	s.logger.DebugContext(ctx, "deleting product", "product_id", id)
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			outcome = "not_found"
			return nil
		}
		outcome = "error"
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}
