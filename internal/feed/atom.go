package feed

import (
	"context"
	"encoding/xml"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/arxiv-digest/internal/fetch"
	"github.com/jonathan/arxiv-digest/internal/logging"
	"github.com/jonathan/arxiv-digest/internal/types"
)

const (
	apiBaseURL        = "https://export.arxiv.org/api/query"
	defaultMaxResults = 50

	// cutoffBuffer widens the date window by a day to absorb timezone skew
	// between the feed's timestamps and the local clock
	cutoffBuffer = 24 * time.Hour
)

// APISource fetches candidates from the arXiv Atom API, one query per
// category, newest submissions first.
type APISource struct {
	baseURL    string
	maxResults int
	opts       *fetch.Options
	logger     logging.Logger
}

// NewAPISource builds the Atom API source. maxResults bounds each category
// query and defaults to 50.
func NewAPISource(logger logging.Logger, maxResults int) *APISource {
	if logger == nil {
		logger = logging.NewLogger()
	}
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	return &APISource{
		baseURL:    apiBaseURL,
		maxResults: maxResults,
		opts:       fetch.DefaultOptions(),
		logger:     logger,
	}
}

// WithBaseURL overrides the API endpoint. This is useful when tests serve
// canned feeds from a local server.
func (s *APISource) WithBaseURL(baseURL string) *APISource {
	s.baseURL = strings.TrimRight(baseURL, "/")
	return s
}

// Name identifies the strategy inside the registry.
func (s *APISource) Name() string {
	return "api"
}

// Fetch queries each category and aggregates the candidates submitted since
// the cutoff, sorted newest first across categories.
func (s *APISource) Fetch(ctx context.Context, categories []string, since time.Time) ([]types.PaperCandidate, error) {
	if len(categories) == 0 {
		return nil, &UnavailableError{Source: s.Name(), Message: "no categories configured"}
	}

	cutoff := since.Add(-cutoffBuffer)
	candidates := make([]types.PaperCandidate, 0, len(categories)*s.maxResults)

	for _, category := range categories {
		fromCategory, err := s.fetchCategory(ctx, category, cutoff)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, fromCategory...)
	}

	sortNewestFirst(candidates)
	return candidates, nil
}

func (s *APISource) fetchCategory(ctx context.Context, category string, cutoff time.Time) ([]types.PaperCandidate, error) {
	query := url.Values{}
	query.Set("search_query", "cat:"+category)
	query.Set("start", "0")
	query.Set("max_results", strconv.Itoa(s.maxResults))
	query.Set("sortBy", "submittedDate")
	query.Set("sortOrder", "descending")

	result, err := fetch.Get(ctx, s.baseURL+"?"+query.Encode(), s.opts)
	if err != nil {
		return nil, &UnavailableError{Source: s.Name(), Message: "category " + category, Cause: err}
	}

	var parsed atomFeed
	if err := xml.Unmarshal(result.Body, &parsed); err != nil {
		return nil, &UnavailableError{Source: s.Name(), Message: "decode feed for " + category, Cause: err}
	}

	candidates := make([]types.PaperCandidate, 0, len(parsed.Entries))
	for _, entry := range parsed.Entries {
		candidate, ok := parseAtomEntry(entry)
		if !ok {
			s.logger.WithField("entry_id", entry.ID).Debug("skipping malformed feed entry")
			continue
		}
		// Entries arrive newest first; everything after the cutoff line is older
		if candidate.SubmittedDate.Before(cutoff) {
			break
		}
		candidates = append(candidates, candidate)
	}

	return candidates, nil
}

// Atom feed structures for the arXiv API

type atomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID         string         `xml:"id"`
	Title      string         `xml:"title"`
	Summary    string         `xml:"summary"`
	Authors    []atomAuthor   `xml:"author"`
	Categories []atomCategory `xml:"category"`
	Published  string         `xml:"published"`
	Updated    string         `xml:"updated"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

type atomCategory struct {
	Term string `xml:"term,attr"`
}

// parseAtomEntry converts an atom entry to a candidate. Entries without an
// extractable ID or submission date are reported malformed.
func parseAtomEntry(entry atomEntry) (types.PaperCandidate, bool) {
	// Extract ID from the URL (e.g., http://arxiv.org/abs/2301.00001v1 -> 2301.00001)
	paperID := ""
	if idx := strings.LastIndex(entry.ID, "/abs/"); idx >= 0 {
		paperID = entry.ID[idx+5:]
		// Remove version suffix
		if vIdx := strings.LastIndex(paperID, "v"); vIdx > 0 {
			paperID = paperID[:vIdx]
		}
	}
	if paperID == "" {
		return types.PaperCandidate{}, false
	}

	published, err := time.Parse(time.RFC3339, entry.Published)
	if err != nil {
		return types.PaperCandidate{}, false
	}
	updated, _ := time.Parse(time.RFC3339, entry.Updated)

	var authors []string
	for _, author := range entry.Authors {
		if name := strings.TrimSpace(author.Name); name != "" {
			authors = append(authors, name)
		}
	}

	var categories []string
	for _, category := range entry.Categories {
		if category.Term != "" {
			categories = append(categories, category.Term)
		}
	}
	// The API lists the primary category first
	primary := ""
	if len(categories) > 0 {
		primary = categories[0]
	}

	return types.PaperCandidate{
		ID:            paperID,
		Title:         strings.TrimSpace(entry.Title),
		Authors:       authors,
		Category:      primary,
		Categories:    categories,
		SubmittedDate: published,
		UpdatedDate:   updated,
		AbstractURL:   entry.ID,
		PDFURL:        strings.Replace(entry.ID, "/abs/", "/pdf/", 1),
		AbstractText:  strings.TrimSpace(entry.Summary),
	}, true
}
