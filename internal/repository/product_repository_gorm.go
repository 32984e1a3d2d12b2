package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sandeepkv93/catalog-gateway-platform/internal/domain"
	"github.com/sandeepkv93/catalog-gateway-platform/internal/observability"
)

const gormStoreLabel = "sql"

// ProductRow is the products table layout used by the postgres and sqlite
// stores.
type ProductRow struct {
	ID          string  `gorm:"primaryKey;size:36"`
	Name        string  `gorm:"size:255;not null;index"`
	Description string  `gorm:"size:2000"`
	Price       float64 `gorm:"not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (ProductRow) TableName() string { return "products" }

func (r ProductRow) toDomain() domain.Product {
	return domain.Product{ID: r.ID, Name: r.Name, Description: r.Description, Price: r.Price}
}

type GormProductRepository struct{ db *gorm.DB }

func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) Create(ctx context.Context, product *domain.Product) (err error) {
	defer func() { observability.RecordRepositoryOperation(ctx, gormStoreLabel, "create", outcomeOf(err)) }()

	row := ProductRow{
		ID:          uuid.NewString(),
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	product.ID = row.ID
	return nil
}

func (r *GormProductRepository) List(ctx context.Context) (_ []domain.Product, err error) {
	defer func() { observability.RecordRepositoryOperation(ctx, gormStoreLabel, "list", outcomeOf(err)) }()

	var rows []ProductRow
	if err := r.db.WithContext(ctx).Order("created_at asc").Order("id asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	out := make([]domain.Product, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// FindByID reads back one record. The catalog service never needs a single
// lookup, so it sits on the adapter rather than on ProductRepository.
func (r *GormProductRepository) FindByID(ctx context.Context, id string) (_ *domain.Product, err error) {
	defer func() { observability.RecordRepositoryOperation(ctx, gormStoreLabel, "find_by_id", outcomeOf(err)) }()

	var row ProductRow
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("find product: %w", err)
	}
	p := row.toDomain()
	return &p, nil
}

func (r *GormProductRepository) Update(ctx context.Context, product *domain.Product) (err error) {
	defer func() { observability.RecordRepositoryOperation(ctx, gormStoreLabel, "update", outcomeOf(err)) }()

	res := r.db.WithContext(ctx).Model(&ProductRow{}).Where("id = ?", product.ID).Updates(map[string]any{
		"name":        product.Name,
		"description": product.Description,
		"price":       product.Price,
	})
	if res.Error != nil {
		return fmt.Errorf("update product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *GormProductRepository) DeleteByID(ctx context.Context, id string) (err error) {
	defer func() { observability.RecordRepositoryOperation(ctx, gormStoreLabel, "delete_by_id", outcomeOf(err)) }()

	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&ProductRow{})
	if res.Error != nil {
		return fmt.Errorf("delete product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}
