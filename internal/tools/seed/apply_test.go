package seed

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sandeepkv93/catalog-gateway-platform/internal/config"
	"github.com/sandeepkv93/catalog-gateway-platform/internal/database"
	"github.com/sandeepkv93/catalog-gateway-platform/internal/domain"
	"github.com/sandeepkv93/catalog-gateway-platform/internal/service"
)

type failingCreator struct {
	failAt int
	calls  int
}

func (f *failingCreator) Create(_ context.Context, input service.ProductInput) (*domain.Product, error) {
	defer func() { f.calls++ }()
	if f.calls == f.failAt {
		return nil, errors.New("store down")
	}
	return &domain.Product{ID: input.Name, Name: input.Name}, nil
}

func TestApplyCreatesThroughSQLiteStore(t *testing.T) {
	ctx := context.Background()
	store, err := database.OpenCatalogStore(ctx, &config.Config{
		CatalogStore: config.CatalogStoreSQLite,
		DatabaseURL:  "file:" + filepath.Join(t.TempDir(), "seed.db"),
	})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close(ctx) })
	if _, err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	report, err := Apply(ctx, service.NewProductService(store.Products, nil), database.DefaultSeedProducts)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if report.Planned != 3 || report.Created != 3 || len(report.IDs) != 3 || report.Noop {
		t.Fatalf("unexpected report: %+v", report)
	}
	products, err := store.Products.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(products) != 3 {
		t.Fatalf("expected 3 products, got %d", len(products))
	}
}

func TestApplyStopsAtFirstFailure(t *testing.T) {
	creator := &failingCreator{failAt: 1}
	report, err := Apply(context.Background(), creator, database.DefaultSeedProducts)
	if err == nil || !strings.Contains(err.Error(), "seed item 1 (Notebook)") {
		t.Fatalf("expected item error, got %v", err)
	}
	if report.Created != 1 || creator.calls != 2 {
		t.Fatalf("unexpected report %+v after %d calls", report, creator.calls)
	}
}

func TestApplyEmptyIsNoop(t *testing.T) {
	report, err := Apply(context.Background(), &failingCreator{failAt: 0}, nil)
	if err != nil || !report.Noop || report.Created != 0 {
		t.Fatalf("unexpected report %+v err %v", report, err)
	}
}

func TestPlanLines(t *testing.T) {
	lines := planLines(database.DefaultSeedProducts)
	if lines[0] != "would create 3 products" || lines[1] != "Pen (1.50)" {
		t.Fatalf("unexpected plan: %v", lines)
	}
	if got := planLines(nil); len(got) != 1 || got[0] != "nothing to seed" {
		t.Fatalf("unexpected empty plan: %v", got)
	}
}
