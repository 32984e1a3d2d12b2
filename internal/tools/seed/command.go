package seed

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/catalog-gateway-platform/internal/database"
	"github.com/sandeepkv93/catalog-gateway-platform/internal/di"
	"github.com/sandeepkv93/catalog-gateway-platform/internal/observability"
	"github.com/sandeepkv93/catalog-gateway-platform/internal/service"
	"github.com/sandeepkv93/catalog-gateway-platform/internal/tools/common"
	"github.com/sandeepkv93/catalog-gateway-platform/internal/tools/ui"
)

type options struct {
	envFile string
	file    string
	timeout time.Duration
	ci      bool
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{Use: "seed", Short: "Catalog seed and schema tooling"}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to env file")
	cmd.PersistentFlags().StringVar(&opts.file, "file", "", "JSON array of products to seed (defaults to built-in sample)")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "operation timeout")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.AddCommand(
		newApplyCommand(opts),
		newDryRunCommand(opts),
		newMigrateCommand(opts),
		newStatusCommand(opts),
	)
	return cmd
}

func newApplyCommand(opts *options) *cobra.Command {
	return newStoreCommand(opts, "apply", "Create seed products through the catalog service", func(ctx context.Context, store *database.CatalogStore) ([]string, error) {
		items, err := database.LoadSeedFile(opts.file)
		if err != nil {
			return nil, err
		}
		if _, err := store.Migrate(ctx); err != nil {
			return nil, err
		}
		svc := service.NewProductService(store.Products, slog.Default())
		report, err := Apply(ctx, svc, items)
		details := []string{
			"store: " + store.Kind,
			fmt.Sprintf("planned=%d created=%d", report.Planned, report.Created),
		}
		for _, id := range report.IDs {
			details = append(details, "created: "+id)
		}
		return details, err
	})
}

func newDryRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "dry-run",
		Short: "Show what seeding would do",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(opts, "seed dry-run", func(ctx context.Context) ([]string, error) {
				items, err := database.LoadSeedFile(opts.file)
				if err != nil {
					return nil, err
				}
				return planLines(items), nil
			})
		},
	}
}

func newMigrateCommand(opts *options) *cobra.Command {
	return newStoreCommand(opts, "migrate", "Ensure the products table or collection indexes", func(ctx context.Context, store *database.CatalogStore) ([]string, error) {
		details, err := store.Migrate(ctx)
		if err != nil {
			return nil, err
		}
		return append([]string{"store: " + store.Kind}, details...), nil
	})
}

func newStatusCommand(opts *options) *cobra.Command {
	return newStoreCommand(opts, "status", "Check catalog store connectivity", func(ctx context.Context, store *database.CatalogStore) ([]string, error) {
		if err := store.Ping(ctx); err != nil {
			return nil, err
		}
		return []string{"store: " + store.Kind, "catalog store reachable"}, nil
	})
}

func newStoreCommand(opts *options, use, short string, fn func(context.Context, *database.CatalogStore) ([]string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(opts, "seed "+use, func(ctx context.Context) ([]string, error) {
				if _, err := common.LoadEnvFile(opts.envFile); err != nil {
					return nil, err
				}
				store, err := di.InitializeCatalogStore()
				if err != nil {
					return nil, err
				}
				defer func() { _ = store.Close(context.Background()) }()
				return fn(ctx, store)
			})
		},
	}
}

func execute(opts *options, title string, fn func(context.Context) ([]string, error)) error {
	start := time.Now()
	details, err := run(opts, title, fn)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	elapsed := time.Since(start)
	ctx := context.Background()
	observability.RecordToolCommandRun(ctx, "seed", title, outcome)
	observability.RecordToolCommandDuration(ctx, "seed", title, outcome, elapsed)
	if opts.ci {
		common.PrintCIResult(common.NewCIResult("seed", title, elapsed, details, err))
	}
	if err != nil {
		os.Exit(3)
	}
	return nil
}

func run(opts *options, title string, fn func(context.Context) ([]string, error)) ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()
	if opts.ci {
		return fn(ctx)
	}
	return ui.Run(ctx, title, fn)
}
