package database

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"

	"github.com/sandeepkv93/catalog-gateway-platform/internal/config"
	"github.com/sandeepkv93/catalog-gateway-platform/internal/repository"
)

// CatalogStore is the opened product store together with the driver handle
// that backs it. Exactly one of DB and Mongo is set.
type CatalogStore struct {
	Kind       string
	Products   repository.ProductRepository
	DB         *gorm.DB
	Mongo      *mongo.Client
	Collection *mongo.Collection
}

// OpenCatalogStore connects the store named by CATALOG_STORE. It does not
// migrate; call Migrate when the schema must exist.
func OpenCatalogStore(ctx context.Context, cfg *config.Config) (*CatalogStore, error) {
	if cfg.CatalogStore == config.CatalogStoreMongo {
		client, err := OpenMongo(ctx, cfg)
		if err != nil {
			return nil, err
		}
		coll := ProductCollection(client, cfg)
		return &CatalogStore{
			Kind:       cfg.CatalogStore,
			Products:   repository.NewMongoProductRepository(coll),
			Mongo:      client,
			Collection: coll,
		}, nil
	}
	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	return &CatalogStore{
		Kind:     cfg.CatalogStore,
		Products: repository.NewGormProductRepository(db),
		DB:       db,
	}, nil
}

// Migrate creates the products table or the collection indexes and returns a
// line per applied step.
func (s *CatalogStore) Migrate(ctx context.Context) ([]string, error) {
	if s.Mongo != nil {
		names, err := EnsureMongoIndexes(ctx, s.Collection)
		if err != nil {
			return nil, err
		}
		details := []string{"collection: " + s.Collection.Database().Name() + "." + s.Collection.Name()}
		for _, n := range names {
			details = append(details, "index ensured: "+n)
		}
		return details, nil
	}
	if err := Migrate(s.DB.WithContext(ctx)); err != nil {
		return nil, fmt.Errorf("migrate products: %w", err)
	}
	return []string{"table ensured: products"}, nil
}

func (s *CatalogStore) Ping(ctx context.Context) error {
	if s.Mongo != nil {
		if err := s.Mongo.Ping(ctx, nil); err != nil {
			return fmt.Errorf("mongo ping: %w", err)
		}
		return nil
	}
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}
	return nil
}

func (s *CatalogStore) Close(ctx context.Context) error {
	if s == nil {
		return nil
	}
	var errs []error
	if s.Mongo != nil {
		if err := s.Mongo.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("disconnect mongo: %w", err))
		}
	}
	if s.DB != nil {
		if sqlDB, err := s.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close database: %w", err))
			}
		}
	}
	return errors.Join(errs...)
}
