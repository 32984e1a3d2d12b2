package database

import (
	"github.com/sandeepkv93/catalog-gateway-platform/internal/repository"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&repository.ProductRow{})
}
