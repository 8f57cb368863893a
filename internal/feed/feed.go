// Package feed provides the arXiv sources that supply paper candidates to
// the pipeline.
package feed

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jonathan/arxiv-digest/internal/types"
)

// Source captures a single feed strategy (Atom API, HTML listings).
type Source interface {
	Name() string
	// Fetch returns candidates submitted since the given time across the
	// requested categories, newest first. It fails with *UnavailableError
	// only on total failure; malformed entries are filtered, not returned.
	Fetch(ctx context.Context, categories []string, since time.Time) ([]types.PaperCandidate, error)
}

// Registry keeps a mapping from source names to their implementations.
type Registry struct {
	sources map[string]Source
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{sources: map[string]Source{}}
}

// Register adds or replaces a source implementation.
func (r *Registry) Register(source Source) {
	if r.sources == nil {
		r.sources = map[string]Source{}
	}
	r.sources[source.Name()] = source
}

// Resolve returns a source by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Source, error) {
	if source, ok := r.sources[name]; ok {
		return source, nil
	}
	return nil, fmt.Errorf("feed source %s is not registered", name)
}

// sortNewestFirst orders candidates descending by submission date. The sort
// is stable so candidates sharing a date keep their per-category fetch order.
func sortNewestFirst(candidates []types.PaperCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].SubmittedDate.After(candidates[j].SubmittedDate)
	})
}
