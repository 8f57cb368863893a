// Package persist implements the persistence coordinator: it upserts ranked
// papers into the workspace records database and composes the daily digest
// page from the subset that was actually written.
package persist

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/arxiv-digest/internal/logging"
	"github.com/jonathan/arxiv-digest/internal/types"
)

// DefaultConcurrency bounds the upsert worker pool when Options leave it unset.
const DefaultConcurrency = 6

// Store is the workspace surface the coordinator writes through. The notion
// client implements it; tests substitute fakes.
type Store interface {
	// FindPaperByID returns the record ID for an arXiv ID, or "" when no
	// record exists yet.
	FindPaperByID(ctx context.Context, arxivID string) (string, error)
	// CreatePaperRecord inserts a new record and returns its ID.
	CreatePaperRecord(ctx context.Context, paper types.ScoredPaper) (string, error)
	// UpdatePaperRecord rewrites an existing record's fields in place.
	UpdatePaperRecord(ctx context.Context, recordID string, paper types.ScoredPaper) error
	// CreateDigestPage publishes the daily summary page and returns its ID.
	CreateDigestPage(ctx context.Context, date string, markdown string, papers []types.PaperRef) (string, error)
}

// Options configures the coordinator.
type Options struct {
	// Concurrency bounds the upsert worker pool
	Concurrency int
	// DryRun composes the digest without touching the store
	DryRun bool
}

// Coordinator writes scored papers to the workspace. Each upsert is keyed by
// arXiv ID so overlapping runs update records in place instead of inserting
// duplicates; one paper's failure never aborts the rest of the batch.
type Coordinator struct {
	store  Store
	logger logging.Logger
	opts   *Options
}

// NewCoordinator creates a coordinator around a workspace store.
func NewCoordinator(store Store, logger logging.Logger, opts *Options) *Coordinator {
	if logger == nil {
		logger = logging.NewLogger()
	}
	if opts == nil {
		opts = &Options{}
	}
	normalized := *opts
	if normalized.Concurrency <= 0 {
		normalized.Concurrency = DefaultConcurrency
	}

	return &Coordinator{
		store:  store,
		logger: logger,
		opts:   &normalized,
	}
}

// Result carries the composed digest plus the upsert bookkeeping for the run.
type Result struct {
	Digest *types.DigestDocument
	// PageID is the digest page's workspace ID; empty on dry runs
	PageID string

	// Created and Updated split the successful upserts by kind
	Created int
	Updated int
	// Failed counts papers that could not be written
	Failed int
	// Failures holds one message per failed upsert
	Failures []string
}

// Persisted returns the total number of successfully written records.
func (r *Result) Persisted() int {
	return r.Created + r.Updated
}

// Persist upserts every paper into the records database, then composes the
// daily digest from the successfully persisted subset and publishes it as a
// page. Papers arrive ranked descending by score and the digest preserves
// that order within each category. Upsert failures are collected, never
// fatal; a digest page creation failure is fatal because the page is the
// run's primary deliverable. In dry-run mode nothing is written and the
// digest covers the whole input.
func (c *Coordinator) Persist(ctx context.Context, papers []types.ScoredPaper, date time.Time, summary string) (*Result, error) {
	day := date.Format("2006-01-02")

	if c.opts.DryRun {
		refs := make([]types.PaperRef, len(papers))
		for i, paper := range papers {
			refs[i] = paperRef(paper, "")
		}
		c.logger.WithFields(logging.Fields{
			"date":   day,
			"papers": len(papers),
		}).Info("dry run: skipping workspace writes")
		return &Result{Digest: composeDigest(day, summary, papers, refs, 0)}, nil
	}

	refs, outcome := c.upsertAll(ctx, papers)

	persisted := make([]types.ScoredPaper, 0, len(papers))
	persistedRefs := make([]types.PaperRef, 0, len(papers))
	for i, ref := range refs {
		if ref == nil {
			continue
		}
		persisted = append(persisted, papers[i])
		persistedRefs = append(persistedRefs, *ref)
	}

	digest := composeDigest(day, summary, persisted, persistedRefs, outcome.failed)

	pageID, err := c.store.CreateDigestPage(ctx, day, summary, persistedRefs)
	if err != nil {
		return nil, fmt.Errorf("digest page for %s: %w", day, err)
	}

	c.logger.WithFields(logging.Fields{
		"date":    day,
		"created": outcome.created,
		"updated": outcome.updated,
		"failed":  outcome.failed,
		"page_id": pageID,
	}).Info("persisted run results")

	return &Result{
		Digest:   digest,
		PageID:   pageID,
		Created:  outcome.created,
		Updated:  outcome.updated,
		Failed:   outcome.failed,
		Failures: outcome.failures,
	}, nil
}

type upsertOutcome struct {
	created  int
	updated  int
	failed   int
	failures []string
}

// upsertAll writes every paper on a bounded worker pool. Workers fill
// disjoint slots of the refs slice so input order survives concurrent
// completion; failures collect under a mutex.
func (c *Coordinator) upsertAll(ctx context.Context, papers []types.ScoredPaper) ([]*types.PaperRef, upsertOutcome) {
	refs := make([]*types.PaperRef, len(papers))
	var (
		mu      sync.Mutex
		outcome upsertOutcome
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)
	for i := range papers {
		i := i // per-iteration copy; required for go directives below 1.22
		g.Go(func() error {
			recordID, updated, err := c.upsertOne(gctx, papers[i])
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				c.logger.WithFields(logging.Fields{
					"arxiv_id": papers[i].Paper.ID,
					"error":    err.Error(),
				}).Warn("failed to persist paper")
				outcome.failed++
				outcome.failures = append(outcome.failures, fmt.Sprintf("%s: %v", papers[i].Paper.ID, err))
				return nil
			}
			if updated {
				outcome.updated++
			} else {
				outcome.created++
			}
			ref := paperRef(papers[i], recordID)
			refs[i] = &ref
			return nil
		})
	}
	// Workers report failures through the collections, never as errors
	_ = g.Wait()

	return refs, outcome
}

// upsertOne writes a single paper: update in place when a record with the
// same arXiv ID already exists, insert otherwise. Reports whether the write
// was an update.
func (c *Coordinator) upsertOne(ctx context.Context, paper types.ScoredPaper) (string, bool, error) {
	existing, err := c.store.FindPaperByID(ctx, paper.Paper.ID)
	if err != nil {
		return "", false, err
	}

	if existing != "" {
		if err := c.store.UpdatePaperRecord(ctx, existing, paper); err != nil {
			return "", false, err
		}
		return existing, true, nil
	}

	recordID, err := c.store.CreatePaperRecord(ctx, paper)
	if err != nil {
		return "", false, err
	}
	return recordID, false, nil
}

func paperRef(paper types.ScoredPaper, recordID string) types.PaperRef {
	return types.PaperRef{
		ID:              paper.Paper.ID,
		Title:           paper.Paper.Title,
		InnovationScore: paper.InnovationScore,
		AbstractURL:     paper.Paper.AbstractURL,
		RecordID:        recordID,
	}
}

// composeDigest groups the persisted papers by primary category, categories
// in first-seen order, papers keeping their descending score order.
func composeDigest(day, summary string, papers []types.ScoredPaper, refs []types.PaperRef, failed int) *types.DigestDocument {
	digest := &types.DigestDocument{
		Date:             day,
		ExecutiveSummary: summary,
		PersistFailed:    failed,
	}

	index := make(map[string]int, len(papers))
	for i, paper := range papers {
		category := paper.Paper.Category
		at, seen := index[category]
		if !seen {
			at = len(digest.Highlights)
			index[category] = at
			digest.Highlights = append(digest.Highlights, types.CategoryHighlights{Category: category})
		}
		digest.Highlights[at].Papers = append(digest.Highlights[at].Papers, refs[i])
	}

	return digest
}
