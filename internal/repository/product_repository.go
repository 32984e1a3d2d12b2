package repository

import (
	"context"
	"errors"

	"github.com/sandeepkv93/catalog-gateway-platform/internal/domain"
)

var ErrProductNotFound = errors.New("product not found")

// ProductRepository is the catalog store port. Implementations report a
// missing record as ErrProductNotFound and wrap driver failures with %w.
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	List(ctx context.Context) ([]domain.Product, error)
	Update(ctx context.Context, product *domain.Product) error
	DeleteByID(ctx context.Context, id string) error
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrProductNotFound):
		return "not_found"
	default:
		return "error"
	}
}
