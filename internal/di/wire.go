//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"github.com/sandeepkv93/catalog-gateway-platform/internal/app"
	"github.com/sandeepkv93/catalog-gateway-platform/internal/database"
)

func InitializeGateway() (*app.App, error) {
	panic(wire.Build(
		GatewayConfigSet,
		ObservabilitySet,
		SecuritySet,
		GatewayHTTPSet,
	))
}

func InitializeCatalog() (*app.App, error) {
	panic(wire.Build(
		CatalogConfigSet,
		ObservabilitySet,
		CatalogSet,
	))
}

func InitializeCatalogStore() (*database.CatalogStore, error) {
	panic(wire.Build(
		CatalogConfigSet,
		provideToolCatalogStore,
	))
}
