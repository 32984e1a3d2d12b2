package service

import (
	"context"

	"github.com/sandeepkv93/catalog-gateway-platform/internal/domain"
)

//go:generate go run go.uber.org/mock/mockgen -destination=gomock/product_service_mock.go -package=gomock . ProductService

type ProductService interface {
	Create(ctx context.Context, input ProductInput) (*domain.Product, error)
	ListAll(ctx context.Context) ([]domain.Product, error)
	Update(ctx context.Context, id string, input ProductInput) (string, error)
	Delete(ctx context.Context, id string) error
}
