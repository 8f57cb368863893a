// Package pipeline provides the high-level orchestration for one digest run:
// fetch candidates, deduplicate, rank through the oracle, persist to the
// workspace. A run moves through an explicit state machine and produces a
// RunSummary whatever the outcome.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/arxiv-digest/internal/analysis"
	"github.com/jonathan/arxiv-digest/internal/db"
	"github.com/jonathan/arxiv-digest/internal/dedup"
	"github.com/jonathan/arxiv-digest/internal/feed"
	"github.com/jonathan/arxiv-digest/internal/logging"
	"github.com/jonathan/arxiv-digest/internal/persist"
	"github.com/jonathan/arxiv-digest/internal/types"
)

// DefaultRunDeadline bounds one whole pipeline run.
const DefaultRunDeadline = 15 * time.Minute

// ProgressEvent represents a state change during pipeline execution.
type ProgressEvent struct {
	RunID   string `json:"run_id"`
	Stage   State  `json:"stage"`
	Message string `json:"message"`
	Content any    `json:"content,omitempty"`
}

// ProgressCallback is called on every state transition.
type ProgressCallback func(event ProgressEvent)

// Analyzer scores candidates and summarizes the ranked set. Implemented by
// analysis.Engine.
type Analyzer interface {
	Analyze(ctx context.Context, candidates []types.PaperCandidate, topN int) (*analysis.Result, error)
	Summarize(ctx context.Context, papers []types.ScoredPaper, date string) (string, error)
	Model() string
}

// Persister writes the ranked papers and publishes the digest. Implemented
// by persist.Coordinator.
type Persister interface {
	Persist(ctx context.Context, papers []types.ScoredPaper, date time.Time, summary string) (*persist.Result, error)
}

// Options holds the per-run configuration.
type Options struct {
	// Categories to fetch; the feed source receives them in this order
	Categories []string
	// TopN bounds the ranked subset handed to the persister
	TopN int
	// DaysBack sets the date window (papers submitted in the last N days)
	DaysBack int
	// RunDeadline caps the whole run; zero means DefaultRunDeadline
	RunDeadline time.Duration
	// OnProgress, when set, receives every state transition
	OnProgress ProgressCallback
}

// Pipeline sequences one run. The orchestrator never retries a failed run;
// the external scheduler re-invokes the whole pipeline on its next cycle.
type Pipeline struct {
	source    feed.Source
	analyzer  Analyzer
	persister Persister
	history   *db.DB
	logger    logging.Logger
	opts      Options
}

// New wires a pipeline from its stage components.
func New(source feed.Source, analyzer Analyzer, persister Persister, logger logging.Logger, opts Options) *Pipeline {
	if logger == nil {
		logger = logging.NewLogger()
	}
	if len(opts.Categories) == 0 {
		opts.Categories = types.DefaultCategories
	}
	if opts.DaysBack <= 0 {
		opts.DaysBack = 1
	}
	if opts.RunDeadline <= 0 {
		opts.RunDeadline = DefaultRunDeadline
	}

	return &Pipeline{
		source:    source,
		analyzer:  analyzer,
		persister: persister,
		logger:    logger,
		opts:      opts,
	}
}

// WithHistory attaches the optional run-history store. A nil store keeps
// history recording disabled.
func (p *Pipeline) WithHistory(store *db.DB) *Pipeline {
	p.history = store
	return p
}

// Result carries the run summary plus the composed digest for inspection.
type Result struct {
	Summary *types.RunSummary
	Digest  *types.DigestDocument
}

// Run executes one pipeline run under a single deadline. It always returns
// a summary; the error is non-nil only for the fatal conditions (feed
// unavailable, total analysis outage, digest page failure) that leave the
// run in the Failed state.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	runID := uuid.New()
	started := time.Now()

	ctx, cancel := context.WithTimeout(ctx, p.opts.RunDeadline)
	defer cancel()

	summary := &types.RunSummary{
		RunID:     runID.String(),
		Date:      started.Format("2006-01-02"),
		State:     string(StateIdle),
		StartedAt: started,
	}
	p.recordStart(ctx, runID, summary)

	// Fetching
	p.transition(summary, StateFetching,
		fmt.Sprintf("fetching %d categories, %d day window", len(p.opts.Categories), p.opts.DaysBack), nil)
	since := started.AddDate(0, 0, -p.opts.DaysBack)
	candidates, err := p.source.Fetch(ctx, p.opts.Categories, since)
	if err != nil {
		return p.fail(ctx, runID, summary, fmt.Errorf("fetch: %w", err))
	}
	summary.Fetched = len(candidates)

	// Deduplicating; proceeds even with zero candidates so an empty day
	// still publishes a digest saying so
	p.transition(summary, StateDeduplicating, fmt.Sprintf("deduplicating %d candidates", len(candidates)), nil)
	deduped := dedup.Dedupe(candidates)
	summary.Malformed = deduped.Malformed
	summary.Deduplicated = len(deduped.Unique)
	p.saveArtifact(ctx, runID, db.StageCandidates, &types.CandidateBatch{
		GeneratedAt: time.Now(),
		Since:       since.Format("2006-01-02"),
		Categories:  p.opts.Categories,
		Fetched:     summary.Fetched,
		Malformed:   deduped.Malformed,
		Duplicates:  deduped.Duplicates,
		Candidates:  deduped.Unique,
	})

	// Analyzing
	p.transition(summary, StateAnalyzing,
		fmt.Sprintf("analyzing %d unique candidates, top %d", len(deduped.Unique), p.opts.TopN), nil)
	analyzed, err := p.analyzer.Analyze(ctx, deduped.Unique, p.opts.TopN)
	if err != nil {
		// Only a total oracle outage reaches here; partial failures are
		// counted inside the result
		return p.fail(ctx, runID, summary, fmt.Errorf("analyze: %w", err))
	}
	summary.Analyzed = analyzed.Analyzed
	summary.AnalysisFailed = analyzed.Failed
	summary.Failures = append(summary.Failures, analyzed.Failures...)
	p.saveArtifact(ctx, runID, db.StageScored, &types.ScoredBatch{
		GeneratedAt: time.Now(),
		Model:       p.analyzer.Model(),
		TopN:        p.opts.TopN,
		Analyzed:    analyzed.Analyzed,
		Failed:      analyzed.Failed,
		Papers:      analyzed.Papers,
	})

	digestSummary := p.executiveSummary(ctx, analyzed.Papers, summary.Date)

	// Persisting
	p.transition(summary, StatePersisting, fmt.Sprintf("persisting %d papers", len(analyzed.Papers)), nil)
	persisted, err := p.persister.Persist(ctx, analyzed.Papers, started, digestSummary)
	if err != nil {
		return p.fail(ctx, runID, summary, fmt.Errorf("persist: %w", err))
	}
	summary.Persisted = persisted.Persisted()
	summary.PersistFailed = persisted.Failed
	summary.Failures = append(summary.Failures, persisted.Failures...)
	summary.DigestPageID = persisted.PageID
	p.saveArtifact(ctx, runID, db.StageDigest, persisted.Digest)

	summary.State = string(StateDone)
	summary.CompletedAt = time.Now()
	p.emit(summary, StateDone,
		fmt.Sprintf("run complete: %d persisted, %d failed", summary.Persisted, summary.AnalysisFailed+summary.PersistFailed),
		persisted.Digest)
	p.recordCompletion(ctx, runID, summary)

	p.logger.WithFields(logging.Fields{
		"run_id":    summary.RunID,
		"fetched":   summary.Fetched,
		"deduped":   summary.Deduplicated,
		"analyzed":  summary.Analyzed,
		"persisted": summary.Persisted,
		"failed":    summary.AnalysisFailed + summary.PersistFailed,
	}).Info("pipeline run finished")

	return &Result{Summary: summary, Digest: persisted.Digest}, nil
}

// executiveSummary asks the oracle for the digest's executive summary and
// falls back to the deterministic composition when the call fails or there
// is nothing to summarize.
func (p *Pipeline) executiveSummary(ctx context.Context, papers []types.ScoredPaper, date string) string {
	if len(papers) > 0 {
		text, err := p.analyzer.Summarize(ctx, papers, date)
		if err == nil && text != "" {
			return text
		}
		if err != nil {
			p.logger.WithField("error", err.Error()).Warn("oracle summary failed, composing fallback")
		}
	}
	return analysis.FallbackSummary(papers, date)
}

// transition moves the run to the next state, logging and emitting progress.
func (p *Pipeline) transition(summary *types.RunSummary, next State, message string, content any) {
	from := State(summary.State)
	if !canTransition(from, next) {
		// A wired pipeline never hits this; it guards refactors
		p.logger.WithFields(logging.Fields{"from": string(from), "to": string(next)}).
			Error("illegal state transition")
	}
	summary.State = string(next)
	p.logger.WithFields(logging.Fields{
		"run_id": summary.RunID,
		"state":  string(next),
	}).Info(message)
	p.emit(summary, next, message, content)
}

func (p *Pipeline) emit(summary *types.RunSummary, stage State, message string, content any) {
	if p.opts.OnProgress != nil {
		p.opts.OnProgress(ProgressEvent{
			RunID:   summary.RunID,
			Stage:   stage,
			Message: message,
			Content: content,
		})
	}
}

// fail moves the run to the terminal Failed state and surfaces the cause.
func (p *Pipeline) fail(ctx context.Context, runID uuid.UUID, summary *types.RunSummary, cause error) (*Result, error) {
	summary.State = string(StateFailed)
	summary.CompletedAt = time.Now()
	p.logger.WithFields(logging.Fields{
		"run_id": summary.RunID,
		"error":  cause.Error(),
	}).Error("pipeline run failed")
	p.emit(summary, StateFailed, cause.Error(), nil)
	p.recordCompletion(ctx, runID, summary)
	return &Result{Summary: summary}, cause
}

// History recording is best-effort: a missing or failing store logs a
// warning and the run continues.

func (p *Pipeline) recordStart(ctx context.Context, runID uuid.UUID, summary *types.RunSummary) {
	if p.history == nil {
		return
	}
	if err := p.history.CreateRun(ctx, runID, summary.Date); err != nil {
		p.logger.WithField("error", err.Error()).Warn("failed to record run start")
	}
}

func (p *Pipeline) recordCompletion(ctx context.Context, runID uuid.UUID, summary *types.RunSummary) {
	if p.history == nil {
		return
	}
	if err := p.history.CompleteRun(ctx, runID, summary.State, summary); err != nil {
		p.logger.WithField("error", err.Error()).Warn("failed to record run completion")
	}
}

func (p *Pipeline) saveArtifact(ctx context.Context, runID uuid.UUID, stage string, content any) {
	if p.history == nil {
		return
	}
	if err := p.history.SaveArtifact(ctx, runID, stage, content); err != nil {
		p.logger.WithFields(logging.Fields{
			"stage": stage,
			"error": err.Error(),
		}).Warn("failed to save stage artifact")
	}
}
