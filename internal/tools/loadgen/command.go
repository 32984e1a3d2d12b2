package loadgen

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/sandeepkv93/catalog-gateway-platform/internal/observability"
	"github.com/sandeepkv93/catalog-gateway-platform/internal/tools/common"
	"github.com/sandeepkv93/catalog-gateway-platform/internal/tools/ui"
)

type options struct {
	envFile      string
	baseURL      string
	profile      string
	duration     time.Duration
	rps          int
	concurrency  int
	seed         int64
	token        string
	tokenURL     string
	clientID     string
	clientSecret string
	scopes       []string
	ci           bool
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{Use: "loadgen", Short: "Generate traffic through the gateway"}
	f := cmd.PersistentFlags()
	f.StringVar(&opts.envFile, "env-file", "", "optional env file (LOADGEN_TOKEN, LOADGEN_CLIENT_SECRET)")
	f.StringVar(&opts.baseURL, "base-url", "http://localhost:8080", "gateway base URL")
	f.StringVar(&opts.profile, "profile", "mixed", "traffic profile: mixed|read|write|docs|anonymous")
	f.DurationVar(&opts.duration, "duration", 15*time.Second, "traffic duration")
	f.IntVar(&opts.rps, "rps", 20, "requests per second")
	f.IntVar(&opts.concurrency, "concurrency", 6, "concurrent workers")
	f.Int64Var(&opts.seed, "seed", 42, "random seed")
	f.StringVar(&opts.token, "token", "", "static bearer token")
	f.StringVar(&opts.tokenURL, "token-url", "", "OAuth2 token endpoint for client credentials")
	f.StringVar(&opts.clientID, "client-id", "", "OAuth2 client id")
	f.StringVar(&opts.clientSecret, "client-secret", "", "OAuth2 client secret")
	f.StringSliceVar(&opts.scopes, "scopes", nil, "OAuth2 scopes")
	f.BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.AddCommand(newRunCommand(opts))
	return cmd
}

func newRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run load generation",
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			details, err := run(opts, "loadgen run", func(ctx context.Context) ([]string, error) {
				cfg, err := buildConfig(ctx, opts)
				if err != nil {
					return nil, err
				}
				res, err := Run(ctx, cfg)
				if err != nil {
					return nil, err
				}
				return summarize(cfg.Profile, res), nil
			})
			outcome := "success"
			if err != nil {
				outcome = "error"
			}
			elapsed := time.Since(start)
			observability.RecordToolCommandRun(context.Background(), "loadgen", "run", outcome)
			observability.RecordToolCommandDuration(context.Background(), "loadgen", "run", outcome, elapsed)
			if opts.ci {
				common.PrintCIResult(common.NewCIResult("loadgen", "loadgen run", elapsed, details, err))
			}
			if err != nil {
				os.Exit(4)
			}
			return nil
		},
	}
}

func buildConfig(ctx context.Context, opts *options) (Config, error) {
	if _, err := common.LoadEnvFile(opts.envFile); err != nil {
		return Config{}, err
	}
	cfg := Config{
		BaseURL:     opts.baseURL,
		Profile:     opts.profile,
		Duration:    opts.duration,
		RPS:         opts.rps,
		Concurrency: opts.concurrency,
		Seed:        opts.seed,
		Token:       firstNonEmpty(opts.token, os.Getenv("LOADGEN_TOKEN")),
	}
	if cfg.Token != "" || opts.tokenURL == "" {
		return cfg, nil
	}
	if strings.TrimSpace(opts.clientID) == "" {
		return Config{}, fmt.Errorf("--client-id is required with --token-url")
	}
	cc := clientcredentials.Config{
		ClientID:     opts.clientID,
		ClientSecret: firstNonEmpty(opts.clientSecret, os.Getenv("LOADGEN_CLIENT_SECRET")),
		TokenURL:     opts.tokenURL,
		Scopes:       opts.scopes,
	}
	cfg.TokenSource = cc.TokenSource(ctx)
	return cfg, nil
}

func summarize(profile string, res Result) []string {
	return []string{
		"profile=" + profile,
		fmt.Sprintf("total_requests=%d", res.TotalRequests),
		fmt.Sprintf("failures=%d", res.Failures),
		fmt.Sprintf("status_2xx=%d", res.Status2xx),
		fmt.Sprintf("status_401=%d", res.Status401),
		fmt.Sprintf("status_4xx=%d", res.Status4xx),
		fmt.Sprintf("status_5xx=%d", res.Status5xx),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func run(opts *options, title string, fn func(context.Context) ([]string, error)) ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opts.duration+15*time.Second)
	defer cancel()
	if opts.ci {
		return fn(ctx)
	}
	return ui.Run(ctx, title, fn)
}
