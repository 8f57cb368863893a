package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/arxiv-digest/internal/analysis"
	"github.com/jonathan/arxiv-digest/internal/config"
	"github.com/jonathan/arxiv-digest/internal/db"
	"github.com/jonathan/arxiv-digest/internal/feed"
	"github.com/jonathan/arxiv-digest/internal/llm"
	"github.com/jonathan/arxiv-digest/internal/logging"
	"github.com/jonathan/arxiv-digest/internal/notion"
	"github.com/jonathan/arxiv-digest/internal/observability"
	"github.com/jonathan/arxiv-digest/internal/persist"
	"github.com/jonathan/arxiv-digest/internal/pipeline"
	"github.com/jonathan/arxiv-digest/internal/types"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run the full digest pipeline end-to-end",
	Long: `Orchestrates one digest run: fetching -> deduplicating -> analyzing -> persisting.

Configuration can be loaded from a JSON file using --config. Command-line arguments override config file values.`,
	RunE: runPipelineCmd,
}

var (
	runConfigPath  string
	runCategories  []string
	runDays        int
	runTop         int
	runConcurrency int
	runRetries     int
	runMaxResults  int
	runSource      string
	runProvider    string
	runModel       string
	runAPIKey      string
	runDryRun      bool
	runVerbose     bool
	runDatabaseURL string
	runOutput      string
)

func init() {
	// Config file flag (processed first)
	runCommand.Flags().StringVar(&runConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	runCommand.Flags().StringSliceVar(&runCategories, "categories", nil, "arXiv categories to monitor (default cs.AI,cs.LG,cs.CL,cs.CV,cs.RO)")
	runCommand.Flags().IntVar(&runDays, "days", 0, "Days back to include in the fetch window")
	runCommand.Flags().IntVar(&runTop, "top", 0, "Number of top-ranked papers to persist")
	runCommand.Flags().IntVar(&runConcurrency, "concurrency", 0, "Oracle worker pool size")
	runCommand.Flags().IntVar(&runRetries, "retries", 0, "Retry budget per oracle call")
	runCommand.Flags().IntVar(&runMaxResults, "max", 0, "Maximum results fetched per category")
	runCommand.Flags().StringVar(&runSource, "source", "", "Feed source: api or listing")
	runCommand.Flags().StringVar(&runProvider, "provider", "", "Oracle provider: anthropic or gemini")
	runCommand.Flags().StringVar(&runModel, "model", "", "Oracle model override (anthropic also honors the CLAUDE_MODEL env var)")
	runCommand.Flags().BoolVar(&runDryRun, "dry-run", false, "Analyze papers without writing to the workspace")
	runCommand.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print detailed stage output")
	runCommand.Flags().StringVarP(&runOutput, "output", "o", "", "Path to write the final RunSummary JSON (optional)")

	// API key can be passed as a flag, or read from the provider's env var
	runCommand.Flags().StringVar(&runAPIKey, "api-key", "", "Oracle API key (optional, defaults to ANTHROPIC_API_KEY / GEMINI_API_KEY env var)")

	// Database URL for run history persistence
	runCommand.Flags().StringVar(&runDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")

	rootCmd.AddCommand(runCommand)
}

func runPipelineCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	// Step 1: Load config file if provided
	var cfg config.Config
	if runConfigPath != "" {
		loadedCfg, err := config.LoadConfig(runConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// Validate loaded config
		if err := loadedCfg.Validate(); err != nil {
			return err
		}

		cfg = *loadedCfg
		if runVerbose {
			_, _ = fmt.Fprintf(os.Stdout, "Loaded config from: %s\n", runConfigPath)
		}
	}

	// Step 2: Apply CLI overrides (command-line args take priority)
	// Only override if the flag was explicitly set
	if cmd.Flags().Changed("categories") {
		cfg.Categories = runCategories
	}
	if cmd.Flags().Changed("days") {
		cfg.DaysBack = runDays
	}
	if cmd.Flags().Changed("top") {
		cfg.TopN = runTop
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.Concurrency = runConcurrency
	}
	if cmd.Flags().Changed("retries") {
		cfg.RetryBudget = runRetries
	}
	if cmd.Flags().Changed("max") {
		cfg.MaxResults = runMaxResults
	}
	if cmd.Flags().Changed("source") {
		cfg.Source = runSource
	}
	if cmd.Flags().Changed("provider") {
		cfg.LLM.Provider = runProvider
	}
	if cmd.Flags().Changed("model") {
		cfg.LLM.Model = runModel
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = runDatabaseURL
	}

	// Step 3: Apply defaults for unset values
	cfg = cfg.MergeWithDefaults(defaultRunConfig())

	// Step 4: Fill workspace and store settings from the environment
	cfg.FromEnv()

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.NewLoggerWithService("arxiv-digest")

	// Step 5: Oracle API key handling
	apiKey := runAPIKey
	if apiKey == "" {
		apiKey = os.Getenv(oracleKeyEnvName(cfg.LLM.Provider))
	}
	if apiKey == "" {
		return fmt.Errorf("%s environment variable or --api-key flag is required", oracleKeyEnvName(cfg.LLM.Provider))
	}

	oracle, err := llm.NewClient(ctx, oracleConfig(cfg.LLM), apiKey)
	if err != nil {
		return fmt.Errorf("failed to create oracle client: %w", err)
	}
	defer func() { _ = oracle.Close() }()

	// Step 6: Feed source
	source, err := feedSource(cfg, logger)
	if err != nil {
		return err
	}

	// Step 7: Workspace client; a dry run never touches the workspace
	var store persist.Store
	if !runDryRun {
		notionKey := os.Getenv(config.EnvNotionAPIKey)
		if notionKey == "" {
			return fmt.Errorf("NOTION_API_KEY environment variable is required (or use --dry-run)")
		}
		if cfg.Notion.DatabaseID == "" {
			return fmt.Errorf("NOTION_DATABASE_ID environment variable is required (or use --dry-run)")
		}
		if cfg.Notion.ParentPageID == "" {
			return fmt.Errorf("NOTION_PARENT_PAGE_ID environment variable is required (or use --dry-run)")
		}
		client, err := notion.NewClient(notion.Config{
			APIKey:       notionKey,
			DatabaseID:   cfg.Notion.DatabaseID,
			ParentPageID: cfg.Notion.ParentPageID,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to create workspace client: %w", err)
		}
		store = client
	}

	analyzer := analysis.NewEngine(oracle, logger, &analysis.Options{
		Concurrency: cfg.Concurrency,
		RetryBudget: cfg.RetryBudget,
	})
	persister := persist.NewCoordinator(store, logger, &persist.Options{
		Concurrency: cfg.Concurrency,
		DryRun:      runDryRun,
	})

	p := pipeline.New(source, analyzer, persister, logger, pipeline.Options{
		Categories:  cfg.Categories,
		TopN:        cfg.TopN,
		DaysBack:    cfg.DaysBack,
		RunDeadline: cfg.RunDeadline(),
		OnProgress:  printProgress,
	})

	// Step 8: Optional run-history store; an unreachable database is not fatal
	if cfg.DatabaseURL != "" {
		history, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.WithField("error", err.Error()).Warn("Run history disabled: database unreachable")
		} else {
			defer history.Close()
			p = p.WithHistory(history)
		}
	}

	printer := observability.NewPrinter(os.Stdout)

	result, err := p.Run(ctx)

	// The summary artifact is written for failed runs too so CI can inspect them
	if result != nil && runOutput != "" {
		if writeErr := writeRunSummary(runOutput, result.Summary); writeErr != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Warning: failed to write run summary: %v\n", writeErr)
		}
	}

	if err != nil {
		if result != nil {
			printer.PrintRunSummary(result.Summary)
		}
		return fmt.Errorf("pipeline run failed: %w", err)
	}

	if runVerbose {
		printer.PrintDigest(result.Digest)
	}
	printer.PrintRunSummary(result.Summary)

	return nil
}

// writeRunSummary writes the final RunSummary as indented JSON.
func writeRunSummary(path string, summary *types.RunSummary) error {
	jsonOutput, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run summary to JSON: %w", err)
	}

	outputDir := filepath.Dir(path)
	if outputDir != "" && outputDir != "." {
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
		}
	}

	return os.WriteFile(path, jsonOutput, 0644)
}

// printProgress renders one line per stage transition for operators watching
// the terminal; the structured logs carry the same events.
func printProgress(event pipeline.ProgressEvent) {
	_, _ = fmt.Fprintf(os.Stdout, "[%s] %s\n", event.Stage, event.Message)
}

// defaultRunConfig returns the baseline configuration applied after the config
// file and flag overrides.
func defaultRunConfig() config.Config {
	return config.Config{
		Categories:         types.DefaultCategories,
		TopN:               config.DefaultTopN,
		DaysBack:           config.DefaultDaysBack,
		Concurrency:        config.DefaultConcurrency,
		RetryBudget:        config.DefaultRetryBudget,
		MaxResults:         config.DefaultMaxResults,
		RunDeadlineMinutes: int(config.DefaultRunDeadline / time.Minute),
		Source:             config.DefaultSource,
		LLM:                config.LLMConfig{Provider: string(llm.ProviderAnthropic)},
	}
}

// oracleKeyEnvName returns the environment variable consulted for a provider's
// API key.
func oracleKeyEnvName(provider string) string {
	if provider == string(llm.ProviderGemini) {
		return config.EnvGeminiAPIKey
	}
	return config.EnvAnthropicAPIKey
}

// oracleConfig maps the file/flag LLM settings onto a provider client config.
// The anthropic model falls back to CLAUDE_MODEL before the built-in default.
func oracleConfig(cfg config.LLMConfig) *llm.Config {
	var base *llm.Config
	if cfg.Provider == string(llm.ProviderGemini) {
		base = llm.DefaultGeminiConfig()
	} else {
		model := config.GetEnv(config.EnvClaudeModel, llm.DefaultAnthropicModel)
		base = llm.DefaultAnthropicConfig().WithModel(model)
	}
	if cfg.Model != "" {
		base = base.WithModel(cfg.Model)
	}
	if cfg.MaxTokens > 0 {
		base.MaxTokens = cfg.MaxTokens
	}
	return base
}

// feedSource resolves the configured feed implementation from the registry.
func feedSource(cfg config.Config, logger logging.Logger) (feed.Source, error) {
	registry := feed.NewRegistry()
	registry.Register(feed.NewAPISource(logger, cfg.MaxResults))
	registry.Register(feed.NewListingSource(logger, cfg.MaxResults))
	return registry.Resolve(cfg.Source)
}
