package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/arxiv-digest/internal/config"
	"github.com/jonathan/arxiv-digest/internal/dedup"
	"github.com/jonathan/arxiv-digest/internal/logging"
	"github.com/jonathan/arxiv-digest/internal/schemas"
	"github.com/jonathan/arxiv-digest/internal/types"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch and deduplicate paper candidates",
	Long:  "Fetches new papers from the configured arXiv categories, filters malformed entries, collapses cross-listed duplicates, and writes a CandidateBatch JSON artifact.",
	RunE:  runFetch,
}

var (
	fetchCategories []string
	fetchDays       int
	fetchMax        int
	fetchSource     string
	fetchOutput     string
)

func init() {
	fetchCmd.Flags().StringSliceVar(&fetchCategories, "categories", nil, "arXiv categories to fetch (default cs.AI,cs.LG,cs.CL,cs.CV,cs.RO)")
	fetchCmd.Flags().IntVar(&fetchDays, "days", config.DefaultDaysBack, "Days back to include in the fetch window")
	fetchCmd.Flags().IntVar(&fetchMax, "max", config.DefaultMaxResults, "Maximum results fetched per category")
	fetchCmd.Flags().StringVar(&fetchSource, "source", config.DefaultSource, "Feed source: api or listing")
	fetchCmd.Flags().StringVarP(&fetchOutput, "out", "o", "", "Path to output CandidateBatch JSON file (required)")

	if err := fetchCmd.MarkFlagRequired("out"); err != nil {
		panic(fmt.Sprintf("failed to mark out flag as required: %v", err))
	}

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	logger := logging.NewLogger()

	categories := fetchCategories
	if len(categories) == 0 {
		categories = types.DefaultCategories
	}

	// 1. Resolve the feed source
	source, err := feedSource(config.Config{MaxResults: fetchMax, Source: fetchSource}, logger)
	if err != nil {
		return err
	}

	// 2. Fetch and deduplicate
	since := time.Now().AddDate(0, 0, -fetchDays)
	candidates, err := source.Fetch(ctx, categories, since)
	if err != nil {
		return fmt.Errorf("failed to fetch candidates: %w", err)
	}

	deduped := dedup.Dedupe(candidates)
	batch := types.CandidateBatch{
		GeneratedAt: time.Now().UTC(),
		Since:       since.Format("2006-01-02"),
		Categories:  categories,
		Fetched:     len(candidates),
		Malformed:   deduped.Malformed,
		Duplicates:  deduped.Duplicates,
		Candidates:  deduped.Unique,
	}

	// 3. Marshal to JSON with indentation
	jsonOutput, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal candidate batch to JSON: %w", err)
	}

	// Ensure output directory exists
	outputDir := filepath.Dir(fetchOutput)
	if outputDir != "" && outputDir != "." {
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
		}
	}

	// 4. Write to output file
	if err := os.WriteFile(fetchOutput, jsonOutput, 0644); err != nil {
		return fmt.Errorf("failed to write candidate batch to output file %s: %w", fetchOutput, err)
	}

	// 5. Validate output against schema (optional - non-fatal)
	schemaPath := schemas.ResolveSchemaPath("schemas/candidate_batch.schema.json")
	if schemaPath != "" {
		if err := schemas.ValidateJSON(schemaPath, fetchOutput); err != nil {
			// Output validation is a safety check, not a requirement
			_, _ = fmt.Fprintf(os.Stderr, "Warning: Output validation failed: %v\n", err)
		}
	}

	_, _ = fmt.Fprintf(os.Stdout, "Successfully fetched %d candidates (%d unique) to %s\n", batch.Fetched, len(batch.Candidates), fetchOutput)

	return nil
}
