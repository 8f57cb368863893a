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
	"github.com/jonathan/arxiv-digest/internal/llm"
	"github.com/jonathan/arxiv-digest/internal/logging"
	"github.com/jonathan/arxiv-digest/internal/schemas"
	"github.com/jonathan/arxiv-digest/internal/types"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Rank paper candidates through the LLM oracle",
	Long:  "Scores a CandidateBatch through the configured oracle, validates every verdict, and writes the ranked top-N papers as a ScoredBatch JSON artifact.",
	RunE:  runAnalyze,
}

var (
	analyzeInput       string
	analyzeOutput      string
	analyzeTop         int
	analyzeConcurrency int
	analyzeRetries     int
	analyzeProvider    string
	analyzeModel       string
	analyzeAPIKey      string
)

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeInput, "in", "i", "", "Path to input CandidateBatch JSON file (required)")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "out", "o", "", "Path to output ScoredBatch JSON file (required)")
	analyzeCmd.Flags().IntVar(&analyzeTop, "top", config.DefaultTopN, "Number of top-ranked papers to keep")
	analyzeCmd.Flags().IntVar(&analyzeConcurrency, "concurrency", config.DefaultConcurrency, "Oracle worker pool size")
	analyzeCmd.Flags().IntVar(&analyzeRetries, "retries", config.DefaultRetryBudget, "Retry budget per oracle call")
	analyzeCmd.Flags().StringVar(&analyzeProvider, "provider", string(llm.ProviderAnthropic), "Oracle provider: anthropic or gemini")
	analyzeCmd.Flags().StringVar(&analyzeModel, "model", "", "Oracle model override")
	analyzeCmd.Flags().StringVar(&analyzeAPIKey, "api-key", "", "Oracle API key (optional, defaults to the provider's env var)")

	if err := analyzeCmd.MarkFlagRequired("in"); err != nil {
		panic(fmt.Sprintf("failed to mark in flag as required: %v", err))
	}
	if err := analyzeCmd.MarkFlagRequired("out"); err != nil {
		panic(fmt.Sprintf("failed to mark out flag as required: %v", err))
	}

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	logger := logging.NewLogger()

	// 1. Load CandidateBatch
	content, err := os.ReadFile(analyzeInput)
	if err != nil {
		return fmt.Errorf("failed to read candidate batch file %s: %w", analyzeInput, err)
	}

	var batch types.CandidateBatch
	if err := json.Unmarshal(content, &batch); err != nil {
		return fmt.Errorf("failed to unmarshal candidate batch JSON: %w", err)
	}

	// 2. Oracle client
	apiKey := analyzeAPIKey
	if apiKey == "" {
		apiKey = os.Getenv(oracleKeyEnvName(analyzeProvider))
	}
	if apiKey == "" {
		return fmt.Errorf("%s environment variable or --api-key flag is required", oracleKeyEnvName(analyzeProvider))
	}

	oracle, err := llm.NewClient(ctx, oracleConfig(config.LLMConfig{Provider: analyzeProvider, Model: analyzeModel}), apiKey)
	if err != nil {
		return fmt.Errorf("failed to create oracle client: %w", err)
	}
	defer func() { _ = oracle.Close() }()

	// 3. Analyze candidates
	engine := analysis.NewEngine(oracle, logger, &analysis.Options{
		Concurrency: analyzeConcurrency,
		RetryBudget: analyzeRetries,
	})
	result, err := engine.Analyze(ctx, batch.Candidates, analyzeTop)
	if err != nil {
		return fmt.Errorf("failed to analyze candidates: %w", err)
	}

	scored := types.ScoredBatch{
		GeneratedAt: time.Now().UTC(),
		Model:       engine.Model(),
		TopN:        analyzeTop,
		Analyzed:    result.Analyzed,
		Failed:      result.Failed,
		Papers:      result.Papers,
	}

	// 4. Marshal to JSON with indentation
	jsonOutput, err := json.MarshalIndent(scored, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal scored batch to JSON: %w", err)
	}

	// Ensure output directory exists
	outputDir := filepath.Dir(analyzeOutput)
	if outputDir != "" && outputDir != "." {
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
		}
	}

	// 5. Write to output file
	if err := os.WriteFile(analyzeOutput, jsonOutput, 0644); err != nil {
		return fmt.Errorf("failed to write scored batch to output file %s: %w", analyzeOutput, err)
	}

	// 6. Validate output against schema (optional - non-fatal)
	schemaPath := schemas.ResolveSchemaPath("schemas/scored_papers.schema.json")
	if schemaPath != "" {
		if err := schemas.ValidateJSON(schemaPath, analyzeOutput); err != nil {
			// Output validation is a safety check, not a requirement
			_, _ = fmt.Fprintf(os.Stderr, "Warning: Output validation failed: %v\n", err)
		}
	}

	_, _ = fmt.Fprintf(os.Stdout, "Successfully analyzed %d candidates (%d failed), wrote top %d to %s\n", result.Analyzed, result.Failed, len(result.Papers), analyzeOutput)

	return nil
}
