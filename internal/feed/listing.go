package feed

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/arxiv-digest/internal/fetch"
	"github.com/jonathan/arxiv-digest/internal/logging"
	"github.com/jonathan/arxiv-digest/internal/types"
)

const listingBaseURL = "https://arxiv.org"

var dateExpr = regexp.MustCompile(`\d{1,2} [A-Za-z]{3} \d{4}`)

// ListingSource scrapes the per-category recent listing pages. It exists as
// a fallback for when the Atom API is unavailable; the listings carry less
// metadata (no abstracts on most entries, one category per page).
type ListingSource struct {
	baseURL  string
	pageSize int
	opts     *fetch.Options
	logger   logging.Logger
}

// NewListingSource builds the HTML listing source. pageSize bounds each
// category and defaults to 50.
func NewListingSource(logger logging.Logger, pageSize int) *ListingSource {
	if logger == nil {
		logger = logging.NewLogger()
	}
	if pageSize <= 0 {
		pageSize = defaultMaxResults
	}
	return &ListingSource{
		baseURL:  listingBaseURL,
		pageSize: pageSize,
		opts:     fetch.DefaultOptions(),
		logger:   logger,
	}
}

// WithBaseURL overrides the listing host. This is useful when tests serve
// canned pages from a local server.
func (s *ListingSource) WithBaseURL(baseURL string) *ListingSource {
	s.baseURL = strings.TrimRight(baseURL, "/")
	return s
}

// Name identifies the strategy inside the registry.
func (s *ListingSource) Name() string {
	return "listing"
}

// Fetch walks each category's recent listing and returns the candidates
// dated since the cutoff, newest first across categories.
func (s *ListingSource) Fetch(ctx context.Context, categories []string, since time.Time) ([]types.PaperCandidate, error) {
	if len(categories) == 0 {
		return nil, &UnavailableError{Source: s.Name(), Message: "no categories configured"}
	}

	cutoff := since.Add(-cutoffBuffer).UTC().Truncate(24 * time.Hour)
	var candidates []types.PaperCandidate

	for _, category := range categories {
		fromCategory, err := s.scanCategory(ctx, category, cutoff)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, fromCategory...)
	}

	sortNewestFirst(candidates)
	return candidates, nil
}

func (s *ListingSource) scanCategory(ctx context.Context, category string, cutoff time.Time) ([]types.PaperCandidate, error) {
	var collected []types.PaperCandidate

	skip := 0
	for {
		pageURL, err := buildListingURL(s.baseURL, category, skip, s.pageSize)
		if err != nil {
			return nil, &UnavailableError{Source: s.Name(), Message: "category " + category, Cause: err}
		}

		result, err := fetch.Get(ctx, pageURL, s.opts)
		if err != nil {
			return nil, &UnavailableError{Source: s.Name(), Message: "category " + category, Cause: err}
		}

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(result.Body))
		if err != nil {
			return nil, &UnavailableError{Source: s.Name(), Message: "parse listing for " + category, Cause: err}
		}

		pageCandidates, shouldContinue := s.extractEntries(doc, category, cutoff)
		collected = append(collected, pageCandidates...)

		if !shouldContinue {
			break
		}
		skip += s.pageSize
	}

	return collected, nil
}

// extractEntries walks the dl > dt/dd listing structure. It reports whether
// the next page may still hold entries inside the window.
func (s *ListingSource) extractEntries(doc *goquery.Document, category string, cutoff time.Time) ([]types.PaperCandidate, bool) {
	var (
		collected    []types.PaperCandidate
		continueScan = true
		processed    int
	)

	doc.Find("dl > dt").EachWithBreak(func(_ int, dt *goquery.Selection) bool {
		dd := dt.Next()
		processed++

		candidate, ok := s.parseListingEntry(dt, dd, category)
		if !ok {
			return true
		}

		entryDay := candidate.SubmittedDate.UTC().Truncate(24 * time.Hour)
		if entryDay.Before(cutoff) {
			continueScan = false
			return false
		}
		collected = append(collected, candidate)
		return true
	})

	if processed < s.pageSize {
		continueScan = false
	}

	return collected, continueScan
}

func (s *ListingSource) parseListingEntry(dt, dd *goquery.Selection, category string) (types.PaperCandidate, bool) {
	link := dt.Find(`a[href*="/abs/"]`).First()
	href, _ := link.Attr("href")

	id := strings.TrimSpace(link.Text())
	id = strings.TrimPrefix(id, "arXiv:")
	if id == "" {
		id = strings.TrimPrefix(href, "/abs/")
	}
	if id == "" {
		s.logger.WithField("category", category).Debug("skipping listing entry without ID")
		return types.PaperCandidate{}, false
	}

	if !strings.HasPrefix(href, "http") {
		href = s.baseURL + href
	}

	title := strings.TrimSpace(dd.Find(".list-title").First().Text())
	title = strings.TrimSpace(strings.TrimPrefix(title, "Title:"))

	var authors []string
	dd.Find(".list-authors a").Each(func(_ int, author *goquery.Selection) {
		if name := strings.TrimSpace(author.Text()); name != "" {
			authors = append(authors, name)
		}
	})

	// The title div also carries the mathjax class, so match the paragraph
	abstract := strings.TrimSpace(dd.Find("p.mathjax").First().Text())
	abstract = strings.TrimSpace(strings.TrimPrefix(abstract, "Abstract:"))

	dateText := strings.TrimSpace(dd.Find(".list-date").First().Text())
	if dateText == "" {
		dateText = strings.TrimSpace(dd.Find(".list-dateline").First().Text())
	}
	submitted := time.Now().UTC()
	if match := dateExpr.FindString(dateText); match != "" {
		if parsed, err := time.Parse("2 Jan 2006", match); err == nil {
			submitted = parsed
		}
	}

	return types.PaperCandidate{
		ID:            id,
		Title:         title,
		Authors:       authors,
		Category:      category,
		Categories:    []string{category},
		SubmittedDate: submitted,
		AbstractURL:   href,
		PDFURL:        fmt.Sprintf("%s/pdf/%s", s.baseURL, id),
		AbstractText:  abstract,
	}, true
}

func buildListingURL(base, category string, skip, pageSize int) (string, error) {
	parsed, err := url.Parse(fmt.Sprintf("%s/list/%s/recent", base, category))
	if err != nil {
		return "", fmt.Errorf("invalid listing url for %s: %w", category, err)
	}

	query := parsed.Query()
	query.Set("skip", strconv.Itoa(skip))
	query.Set("show", strconv.Itoa(pageSize))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
