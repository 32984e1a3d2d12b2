package seed

import (
	"context"
	"fmt"

	"github.com/sandeepkv93/catalog-gateway-platform/internal/database"
	"github.com/sandeepkv93/catalog-gateway-platform/internal/domain"
	"github.com/sandeepkv93/catalog-gateway-platform/internal/service"
)

type productCreator interface {
	Create(ctx context.Context, input service.ProductInput) (*domain.Product, error)
}

// Apply creates every seed item in order and stops at the first failure. The
// report counts what was created before the failure.
func Apply(ctx context.Context, svc productCreator, items []database.SeedProduct) (database.SeedReport, error) {
	report := database.SeedReport{Planned: len(items), Noop: len(items) == 0}
	for i, it := range items {
		p, err := svc.Create(ctx, service.ProductInput{Name: it.Name, Description: it.Description, Price: it.Price})
		if err != nil {
			return report, fmt.Errorf("seed item %d (%s): %w", i, it.Name, err)
		}
		report.Created++
		report.IDs = append(report.IDs, p.ID)
	}
	return report, nil
}

func planLines(items []database.SeedProduct) []string {
	if len(items) == 0 {
		return []string{"nothing to seed"}
	}
	lines := make([]string, 0, len(items)+1)
	lines = append(lines, fmt.Sprintf("would create %d products", len(items)))
	for _, it := range items {
		lines = append(lines, fmt.Sprintf("%s (%.2f)", it.Name, it.Price))
	}
	return lines
}
