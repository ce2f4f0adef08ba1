package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/BerriAI/fireworks-ai-cost-agent/internal/cache"
	"github.com/BerriAI/fireworks-ai-cost-agent/internal/config"
	"github.com/BerriAI/fireworks-ai-cost-agent/internal/coordinator"
	"github.com/BerriAI/fireworks-ai-cost-agent/internal/diff"
	"github.com/BerriAI/fireworks-ai-cost-agent/internal/httpclient"
	"github.com/BerriAI/fireworks-ai-cost-agent/internal/litellm"
	"github.com/BerriAI/fireworks-ai-cost-agent/internal/normalize"
	"github.com/BerriAI/fireworks-ai-cost-agent/internal/pipeline"
	"github.com/BerriAI/fireworks-ai-cost-agent/internal/propose"
	"github.com/BerriAI/fireworks-ai-cost-agent/internal/scrape"
	"github.com/BerriAI/fireworks-ai-cost-agent/internal/server"
)

// exitChanges is the exit code of `diff` when missing models were found,
// so CI jobs can gate on it.
const exitChanges = 2

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "costagent",
		Short: "Fireworks AI cost agent",
		Long:  "Scrapes the Fireworks AI model listing and opens PRs adding missing models to the LiteLLM pricing table.",
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	rootCmd.AddCommand(
		serveCmd(),
		syncCmd(),
		diffCmd(),
		scrapeCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the agent: scheduled syncs plus the HTTP status surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			setupLogging(cfg)

			runner, err := buildRunner(cfg)
			if err != nil {
				return err
			}

			schedule, err := buildSchedule(cfg)
			if err != nil {
				return err
			}

			coord := coordinator.New(runner, schedule)
			coord.Start()

			srv := server.New(cfg.ListenAddr, coord)
			srv.Start()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			sig := <-sigCh
			slog.Info("shutting down", "signal", sig.String())

			if err := srv.Stop(); err != nil {
				slog.Error("stopping http server", "error", err)
			}
			coord.Close()
			return nil
		},
	}
}

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one full sync in the foreground: scrape → diff → patch → PR",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			setupLogging(cfg)

			if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
				cfg.DryRun = true
			}

			runner, err := buildRunner(cfg)
			if err != nil {
				return err
			}

			outcome := runner.Run(cmd.Context())
			out, _ := json.MarshalIndent(outcome, "", "  ")
			fmt.Println(string(out))

			if outcome.Status == pipeline.StatusFailure {
				return fmt.Errorf("sync failed at %s: %s", outcome.Stage, outcome.Reason)
			}
			return nil
		},
	}

	cmd.Flags().Bool("dry-run", false, "Compute and log the proposal without opening a PR")

	return cmd
}

func diffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff",
		Short: "Show which scraped models are missing upstream (no writes)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			setupLogging(cfg)

			client, err := buildHTTPClient(cfg)
			if err != nil {
				return err
			}
			scraper := buildScraper(cfg, client)
			norm := normalize.New(normalize.WithAliases(cfg.Aliases))

			records, err := scraper.FetchModels(cmd.Context())
			if err != nil {
				return fmt.Errorf("scraping models: %w", err)
			}

			doc, err := litellm.NewClient(client, cfg.LiteLLM.DocumentURL).FetchDocument(cmd.Context())
			if err != nil {
				return fmt.Errorf("fetching pricing table: %w", err)
			}

			result := diff.Compute(norm, records, norm.TargetKeys(doc.Keys))
			for _, a := range result.Missing {
				fmt.Printf("%-70s %-10s %s\n", a.CatalogKey, a.Record.Kind, a.Record.Pricing.Shape)
			}
			fmt.Printf("\nScraped: %d  Missing: %d  Skipped (unknown): %d\n",
				result.ScrapedCount, len(result.Missing), result.SkippedUnknown)

			if result.HasChanges() {
				os.Exit(exitChanges)
			}
			return nil
		},
	}
}

func scrapeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scrape",
		Short: "Scrape only, print models to stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			setupLogging(cfg)

			client, err := buildHTTPClient(cfg)
			if err != nil {
				return err
			}
			scraper := buildScraper(cfg, client)

			records, err := scraper.FetchModels(cmd.Context())
			if err != nil {
				return err
			}

			for _, r := range records {
				fmt.Printf("%-50s %-10s ctx=%-8d %s\n", r.ID, r.Kind, r.ContextWindow, r.Pricing.Shape)
			}
			fmt.Printf("\nTotal: %d models\n", len(records))
			return nil
		},
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func setupLogging(cfg *config.Config) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func buildHTTPClient(cfg *config.Config) (*httpclient.Client, error) {
	opts := []httpclient.Option{
		httpclient.WithRateLimit(cfg.RateLimit),
		httpclient.WithTimeout(cfg.CallTimeoutDuration()),
	}
	if cfg.NoCache {
		opts = append(opts, httpclient.WithNoCache())
	} else {
		fc, err := cache.New(cfg.CacheDir, cfg.CacheTTLDuration())
		if err != nil {
			slog.Warn("failed to create cache, continuing without", "error", err)
		} else {
			opts = append(opts, httpclient.WithCache(fc))
		}
	}
	return httpclient.New(opts...), nil
}

// buildScraper picks Firecrawl when an API key is available, falling
// back to direct HTML parsing.
func buildScraper(cfg *config.Config, client *httpclient.Client) scrape.Scraper {
	mode := cfg.Scrape.Mode
	if mode == "auto" {
		if cfg.Firecrawl.APIKey != "" {
			mode = "firecrawl"
		} else {
			mode = "html"
		}
	}
	switch mode {
	case "firecrawl":
		return scrape.NewFirecrawl(client, cfg.Firecrawl.APIKey, cfg.Firecrawl.BaseURL, cfg.Scrape.PageURL)
	default:
		return scrape.NewHTML(client, cfg.Scrape.PageURL)
	}
}

func buildSink(cfg *config.Config) (propose.Sink, error) {
	if cfg.DryRun {
		return propose.DryRun{}, nil
	}
	if cfg.GitHub.Token == "" {
		return nil, fmt.Errorf("GITHUB_TOKEN is required (or set dry_run: true)")
	}
	if cfg.GitHub.CheckoutPath != "" {
		return propose.NewCheckout(propose.CheckoutOptions{
			RepoPath:    cfg.GitHub.CheckoutPath,
			FilePath:    cfg.GitHub.FilePath,
			Token:       cfg.GitHub.Token,
			Owner:       cfg.GitHub.Owner,
			Repo:        cfg.GitHub.Repo,
			BaseBranch:  cfg.GitHub.BaseBranch,
			SourceURL:   cfg.Scrape.PageURL,
			AuthorName:  cfg.GitHub.AuthorName,
			AuthorEmail: cfg.GitHub.AuthorEmail,
		}), nil
	}
	return propose.NewGitHub(propose.GitHubOptions{
		Token:      cfg.GitHub.Token,
		Owner:      cfg.GitHub.Owner,
		Repo:       cfg.GitHub.Repo,
		BaseBranch: cfg.GitHub.BaseBranch,
		FilePath:   cfg.GitHub.FilePath,
		SourceURL:  cfg.Scrape.PageURL,
	}), nil
}

func buildRunner(cfg *config.Config) (*pipeline.Runner, error) {
	client, err := buildHTTPClient(cfg)
	if err != nil {
		return nil, err
	}

	sink, err := buildSink(cfg)
	if err != nil {
		return nil, err
	}

	scraper := buildScraper(cfg, client)
	target := litellm.NewClient(client, cfg.LiteLLM.DocumentURL)
	norm := normalize.New(normalize.WithAliases(cfg.Aliases))

	return pipeline.New(scraper, target, sink, norm, cfg.CallTimeoutDuration()), nil
}

func buildSchedule(cfg *config.Config) (coordinator.Schedule, error) {
	interval, err := cfg.IntervalDuration()
	if err != nil {
		return coordinator.Schedule{}, err
	}
	sched := coordinator.Schedule{Interval: interval}
	if cfg.CronSpec != "" {
		cs, err := coordinator.ParseCronSpec(cfg.CronSpec)
		if err != nil {
			return coordinator.Schedule{}, err
		}
		sched.Cron = cs
	}
	return sched, nil
}
