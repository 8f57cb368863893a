package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/arxiv-digest/internal/config"
	"github.com/jonathan/arxiv-digest/internal/db"
	"github.com/jonathan/arxiv-digest/internal/observability"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect recorded pipeline runs",
	Long:  "Lists recent runs from the history store, or shows one run's summary, a stage artifact, or its digest.",
	RunE:  runRuns,
}

var (
	runsDatabaseURL string
	runsLimit       int
	runsRunID       string
	runsStage       string
	runsDigest      bool
)

func init() {
	runsCmd.Flags().StringVar(&runsDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 10, "Number of recent runs to list")
	runsCmd.Flags().StringVar(&runsRunID, "run", "", "Show one run by ID")
	runsCmd.Flags().StringVar(&runsStage, "stage", "", "Print a stage artifact for --run (candidates, scored_papers, digest)")
	runsCmd.Flags().BoolVar(&runsDigest, "digest", false, "Pretty-print the digest for --run")

	rootCmd.AddCommand(runsCmd)
}

func runRuns(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	// Flag validation happens before any connection attempt
	if runsRunID == "" && (runsStage != "" || runsDigest) {
		return fmt.Errorf("--stage and --digest require --run")
	}

	var runID uuid.UUID
	if runsRunID != "" {
		parsed, err := uuid.Parse(runsRunID)
		if err != nil {
			return fmt.Errorf("invalid run ID format: %w", err)
		}
		runID = parsed
	}

	databaseURL := runsDatabaseURL
	if databaseURL == "" {
		databaseURL = os.Getenv(config.EnvDatabaseURL)
	}
	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable or --db-url flag is required")
	}

	history, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer history.Close()

	switch {
	case runsRunID == "":
		return listRuns(ctx, history)
	case runsDigest:
		return showDigest(ctx, history, runID)
	case runsStage != "":
		return showArtifact(ctx, history, runID, runsStage)
	default:
		return showRun(ctx, history, runID)
	}
}

func listRuns(ctx context.Context, history *db.DB) error {
	runs, err := history.ListRuns(ctx, runsLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(os.Stdout, "No runs recorded.")
		return nil
	}

	for _, run := range runs {
		completed := "-"
		if run.CompletedAt != nil {
			completed = run.CompletedAt.Format(time.RFC3339)
		}
		_, _ = fmt.Fprintf(os.Stdout, "%s  %s  %-8s  started %s  completed %s\n",
			run.ID, run.Date, run.State, run.StartedAt.Format(time.RFC3339), completed)
	}
	return nil
}

func showRun(ctx context.Context, history *db.DB, runID uuid.UUID) error {
	run, err := history.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run not found: %s", runID)
	}

	output, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}
	_, _ = fmt.Fprintln(os.Stdout, string(output))
	return nil
}

func showArtifact(ctx context.Context, history *db.DB, runID uuid.UUID, stage string) error {
	content, err := history.GetArtifact(ctx, runID, stage)
	if err != nil {
		return err
	}
	if content == nil {
		return fmt.Errorf("no %s artifact recorded for run %s", stage, runID)
	}

	// Artifacts are stored as compact JSONB; re-indent for the terminal
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, content, "", "  "); err != nil {
		_, _ = os.Stdout.Write(content)
		_, _ = fmt.Fprintln(os.Stdout)
		return nil
	}
	_, _ = fmt.Fprintln(os.Stdout, pretty.String())
	return nil
}

func showDigest(ctx context.Context, history *db.DB, runID uuid.UUID) error {
	digest, err := history.GetDigest(ctx, runID)
	if err != nil {
		return err
	}
	if digest == nil {
		return fmt.Errorf("no digest recorded for run %s", runID)
	}

	observability.NewPrinter(os.Stdout).PrintDigest(digest)
	return nil
}
