// Package analysis implements the ranking and summarization engine: it scores
// paper candidates through the LLM oracle, validates the structured responses,
// and selects the bounded top-N subset for persistence.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/arxiv-digest/internal/llm"
	"github.com/jonathan/arxiv-digest/internal/logging"
	"github.com/jonathan/arxiv-digest/internal/prompts"
	"github.com/jonathan/arxiv-digest/internal/schemas"
	"github.com/jonathan/arxiv-digest/internal/types"
)

// Defaults applied when Options leave a field unset.
const (
	DefaultTopN        = 10
	DefaultConcurrency = 6
	DefaultRetryBudget = 2

	defaultBaseDelay = 1 * time.Second
	defaultMaxDelay  = 4 * time.Second
)

// Options configures the engine.
type Options struct {
	// Concurrency bounds the oracle worker pool
	Concurrency int
	// RetryBudget is the number of retries after the first failed attempt
	RetryBudget int

	// Backoff schedule for the retry policy; tests shrink these
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() *Options {
	return &Options{
		Concurrency: DefaultConcurrency,
		RetryBudget: DefaultRetryBudget,
		BaseDelay:   defaultBaseDelay,
		MaxDelay:    defaultMaxDelay,
	}
}

// Engine scores and summarizes paper candidates through an LLM oracle.
// The oracle is treated as unreliable: calls may time out, return malformed
// JSON, or return out-of-range scores, so every response is schema-validated
// and failing candidates are retried on a bounded budget before being dropped.
type Engine struct {
	client llm.Client
	logger logging.Logger
	opts   *Options
}

// NewEngine creates an engine around an oracle client.
func NewEngine(client llm.Client, logger logging.Logger, opts *Options) *Engine {
	if logger == nil {
		logger = logging.NewLogger()
	}
	if opts == nil {
		opts = DefaultOptions()
	}
	normalized := *opts
	if normalized.Concurrency <= 0 {
		normalized.Concurrency = DefaultConcurrency
	}
	if normalized.RetryBudget < 0 {
		normalized.RetryBudget = DefaultRetryBudget
	}
	if normalized.BaseDelay <= 0 {
		normalized.BaseDelay = defaultBaseDelay
	}
	if normalized.MaxDelay < normalized.BaseDelay {
		normalized.MaxDelay = normalized.BaseDelay
	}

	return &Engine{
		client: client,
		logger: logger,
		opts:   &normalized,
	}
}

// Model returns the oracle model the engine is configured with.
func (e *Engine) Model() string {
	return e.client.GetModel()
}

// Result carries the ranked papers plus the oracle bookkeeping for the run.
type Result struct {
	// Papers is the top-N subset, descending by innovation score with ties
	// keeping original fetch order
	Papers []types.ScoredPaper
	// Analyzed counts candidates that produced a valid analysis
	Analyzed int
	// Failed counts candidates dropped after the retry budget
	Failed int
	// Failures holds one message per dropped candidate
	Failures []string
}

// analysisResponse mirrors the JSON object the oracle must return per paper.
type analysisResponse struct {
	InnovationScore       int    `json:"innovation_score"`
	Summary               string `json:"summary"`
	KeyInnovation         string `json:"key_innovation"`
	ImplementationDetails string `json:"implementation_details"`
	ProblemSolved         string `json:"problem_solved"`
	PotentialImpact       string `json:"potential_impact"`
}

// Analyze scores every candidate through the oracle and returns the top-N
// subset sorted descending by innovation score. Candidates whose responses
// still fail validation after the retry budget are dropped and counted, not
// fatal; if every candidate fails the run cannot distinguish an oracle outage
// from a quiet day, so Analyze returns *UnavailableError instead of an empty
// result. The input is never mutated.
func (e *Engine) Analyze(ctx context.Context, candidates []types.PaperCandidate, topN int) (*Result, error) {
	if topN <= 0 {
		topN = DefaultTopN
	}
	if len(candidates) == 0 {
		return &Result{}, nil
	}

	// One slot per candidate: workers write disjoint indexes, and the slot
	// order preserves fetch order for the stable sort below.
	scored := make([]*types.ScoredPaper, len(candidates))
	var (
		mu       sync.Mutex
		failures []string
	)

	retry := newRetryPolicy[*types.ScoredPaper](e.opts)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)
	for i := range candidates {
		i := i // per-iteration copy; required for go directives below 1.22
		g.Go(func() error {
			paper, err := e.analyzeCandidate(gctx, retry, candidates[i])
			if err != nil {
				e.logger.WithFields(logging.Fields{
					"arxiv_id": candidates[i].ID,
					"error":    err.Error(),
				}).Warn("dropping candidate after failed analysis")
				mu.Lock()
				failures = append(failures, fmt.Sprintf("%s: %v", candidates[i].ID, err))
				mu.Unlock()
				return nil
			}
			scored[i] = paper
			return nil
		})
	}
	// Workers report failures through the collections, never as errors
	_ = g.Wait()

	ranked := make([]types.ScoredPaper, 0, len(candidates))
	for _, paper := range scored {
		if paper != nil {
			ranked = append(ranked, *paper)
		}
	}

	analyzed := len(ranked)
	if analyzed == 0 {
		return nil, &UnavailableError{Attempted: len(candidates), Cause: ctx.Err()}
	}

	// Stable sort keeps fetch order for tied scores, so output is
	// deterministic given deterministic oracle responses
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].InnovationScore > ranked[j].InnovationScore
	})
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}

	return &Result{
		Papers:   ranked,
		Analyzed: analyzed,
		Failed:   len(candidates) - analyzed,
		Failures: failures,
	}, nil
}

// analyzeCandidate runs one candidate through the oracle under the retry
// policy. Transport failures and invalid payloads both consume retries.
func (e *Engine) analyzeCandidate(ctx context.Context, retry retrypolicy.RetryPolicy[*types.ScoredPaper], candidate types.PaperCandidate) (*types.ScoredPaper, error) {
	prompt := buildScorePrompt(candidate)

	return failsafe.With(retry).WithContext(ctx).Get(func() (*types.ScoredPaper, error) {
		return e.scoreOnce(ctx, prompt, candidate)
	})
}

// scoreOnce performs a single oracle exchange and validates the response.
func (e *Engine) scoreOnce(ctx context.Context, prompt string, candidate types.PaperCandidate) (*types.ScoredPaper, error) {
	raw, err := e.client.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	cleaned := llm.CleanJSONBlock(raw)
	if err := schemas.ValidatePaperAnalysis(cleaned); err != nil {
		return nil, &SchemaError{ID: candidate.ID, Cause: err}
	}

	var parsed analysisResponse
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, &SchemaError{ID: candidate.ID, Cause: err}
	}

	return &types.ScoredPaper{
		Paper:                 candidate,
		InnovationScore:       parsed.InnovationScore,
		Summary:               parsed.Summary,
		KeyInnovation:         parsed.KeyInnovation,
		ImplementationDetails: parsed.ImplementationDetails,
		ProblemSolved:         parsed.ProblemSolved,
		PotentialImpact:       parsed.PotentialImpact,
	}, nil
}

// Summarize asks the oracle for the digest's executive summary over the
// ranked papers. Callers treat a failure here as recoverable and fall back
// to FallbackSummary.
func (e *Engine) Summarize(ctx context.Context, papers []types.ScoredPaper, date string) (string, error) {
	if len(papers) == 0 {
		return "", fmt.Errorf("no papers to summarize")
	}

	prompt := buildSummaryPrompt(papers, date)
	retry := newRetryPolicy[string](e.opts)

	text, err := failsafe.With(retry).WithContext(ctx).Get(func() (string, error) {
		return e.client.Complete(ctx, prompt)
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// FallbackSummary composes a deterministic executive summary for when the
// oracle summary call fails or there is nothing to summarize.
func FallbackSummary(papers []types.ScoredPaper, date string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# ArXiv AI Research Summary - %s\n\n", date))

	if len(papers) == 0 {
		sb.WriteString("No significant papers found today.")
		return sb.String()
	}

	top := papers[0]
	sb.WriteString(fmt.Sprintf("%d papers made today's cut. Top score: %d/10 for \"%s\".\n",
		len(papers), top.InnovationScore, top.Paper.Title))

	for _, category := range categoriesInOrder(papers) {
		sb.WriteString(fmt.Sprintf("\n## %s\n", types.CategoryDisplayName(category)))
		for _, paper := range papers {
			if paper.Paper.Category != category {
				continue
			}
			sb.WriteString(fmt.Sprintf("- **%s** (Score: %d/10)\n", paper.Paper.Title, paper.InnovationScore))
		}
	}

	return strings.TrimSuffix(sb.String(), "\n")
}

// newRetryPolicy builds the bounded-retry policy applied uniformly around
// whole oracle exchanges. Every error retries until the budget runs out.
func newRetryPolicy[R any](opts *Options) retrypolicy.RetryPolicy[R] {
	return retrypolicy.NewBuilder[R]().
		WithBackoff(opts.BaseDelay, opts.MaxDelay).
		WithMaxRetries(opts.RetryBudget).
		WithJitterFactor(0.1).
		Build()
}

// buildScorePrompt renders the per-paper analysis instruction.
func buildScorePrompt(candidate types.PaperCandidate) string {
	template := prompts.MustGet("analysis.json", "score-paper")
	return prompts.Format(template, map[string]string{
		"Title":    candidate.Title,
		"Authors":  strings.Join(candidate.Authors, ", "),
		"Category": types.CategoryDisplayName(candidate.Category),
		"ArxivID":  candidate.ID,
		"Abstract": candidate.AbstractText,
	})
}

// buildSummaryPrompt renders the daily-summary instruction over the ranked
// papers, grouped by category in first-seen order.
func buildSummaryPrompt(papers []types.ScoredPaper, date string) string {
	var sb strings.Builder
	for _, category := range categoriesInOrder(papers) {
		sb.WriteString(fmt.Sprintf("\n## %s\n", types.CategoryDisplayName(category)))
		for _, paper := range papers {
			if paper.Paper.Category != category {
				continue
			}
			sb.WriteString(fmt.Sprintf("\n- **%s** (Score: %d/10)\n  Key Innovation: %s\n  Impact: %s\n",
				paper.Paper.Title, paper.InnovationScore, paper.KeyInnovation, paper.PotentialImpact))
		}
	}

	template := prompts.MustGet("analysis.json", "daily-summary")
	return prompts.Format(template, map[string]string{
		"Date":             date,
		"PaperCount":       fmt.Sprintf("%d", len(papers)),
		"PapersByCategory": sb.String(),
	})
}

// categoriesInOrder returns the primary categories present in the papers,
// first-seen order.
func categoriesInOrder(papers []types.ScoredPaper) []string {
	seen := make(map[string]bool, len(papers))
	var categories []string
	for _, paper := range papers {
		category := paper.Paper.Category
		if category == "" || seen[category] {
			continue
		}
		seen[category] = true
		categories = append(categories, category)
	}
	return categories
}
