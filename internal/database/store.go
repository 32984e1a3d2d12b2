package database

import (
	"fmt"

	"github.com/sandeepkv93/catalog-gateway-platform/internal/config"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects the SQL catalog store selected by CATALOG_STORE.
func Open(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.CatalogStore {
	case config.CatalogStorePostgres:
		dialector = postgres.Open(cfg.DatabaseURL)
	case config.CatalogStoreSQLite:
		dialector = sqlite.Open(cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("catalog store %q is not a sql store", cfg.CatalogStore)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.CatalogStore, err)
	}
	return db, nil
}
