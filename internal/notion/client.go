// Package notion implements the workspace client. Paper records live in a
// Notion database keyed by arXiv ID; daily digests are created as child pages
// of a configured parent page.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jonathan/arxiv-digest/internal/fetch"
	"github.com/jonathan/arxiv-digest/internal/logging"
	"github.com/jonathan/arxiv-digest/internal/types"
)

const (
	// DefaultBaseURL is the Notion REST API root.
	DefaultBaseURL = "https://api.notion.com/v1"

	apiVersion = "2022-06-28"

	// maxRichTextLen is Notion's limit for one rich_text fragment.
	maxRichTextLen = 2000
	// maxPageBlocks is Notion's per-request children limit.
	maxPageBlocks = 100
	// maxDigestPapers bounds the link list on the digest page.
	maxDigestPapers = 20
	// maxBulletTitleLen bounds paper titles in digest bullets.
	maxBulletTitleLen = 80
)

// Config holds the workspace client settings.
type Config struct {
	APIKey       string
	DatabaseID   string
	ParentPageID string
	// BaseURL overrides the API root; empty means DefaultBaseURL
	BaseURL string
	// HTTP overrides the retry/timeout options; nil means defaults
	HTTP *fetch.Options
}

// Client talks to the Notion REST API.
type Client struct {
	baseURL      string
	apiKey       string
	databaseID   string
	parentPageID string
	httpClient   *http.Client
	opts         *fetch.Options
	logger       logging.Logger
}

// NewClient creates a workspace client. DatabaseID and ParentPageID are
// validated per operation, matching which operations need them.
func NewClient(cfg Config, logger logging.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("notion API key is required")
	}
	if logger == nil {
		logger = logging.NewLogger()
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	opts := cfg.HTTP
	if opts == nil {
		opts = defaultHTTPOptions()
	}

	return &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		apiKey:       cfg.APIKey,
		databaseID:   cfg.DatabaseID,
		parentPageID: cfg.ParentPageID,
		httpClient:   &http.Client{Timeout: opts.Timeout},
		opts:         opts,
		logger:       logger,
	}, nil
}

// defaultHTTPOptions mirrors the write retry schedule the workspace tolerates
// well: three attempts with exponential backoff between 2s and 10s.
func defaultHTTPOptions() *fetch.Options {
	return &fetch.Options{
		Timeout:     30 * time.Second,
		MaxRetries:  2,
		BaseDelay:   2 * time.Second,
		MaxDelay:    10 * time.Second,
		ShouldRetry: fetch.DefaultShouldRetry,
	}
}

// Wire types for the subset of the API the pipeline uses.

type parentRef struct {
	DatabaseID string `json:"database_id,omitempty"`
	PageID     string `json:"page_id,omitempty"`
}

type pageIcon struct {
	Type  string `json:"type"`
	Emoji string `json:"emoji"`
}

type propertyValue struct {
	Title    []richText   `json:"title,omitempty"`
	RichText []richText   `json:"rich_text,omitempty"`
	Select   *selectValue `json:"select,omitempty"`
	Date     *dateValue   `json:"date,omitempty"`
	Number   *int         `json:"number,omitempty"`
	URL      string       `json:"url,omitempty"`
}

type selectValue struct {
	Name string `json:"name"`
}

type dateValue struct {
	Start string `json:"start"`
}

type pageRequest struct {
	Parent     *parentRef               `json:"parent,omitempty"`
	Icon       *pageIcon                `json:"icon,omitempty"`
	Properties map[string]propertyValue `json:"properties"`
	Children   []block                  `json:"children,omitempty"`
}

type queryRequest struct {
	Filter queryFilter `json:"filter"`
}

type queryFilter struct {
	Property string      `json:"property"`
	RichText *textFilter `json:"rich_text,omitempty"`
}

type textFilter struct {
	Equals string `json:"equals"`
}

type objectResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type queryResponse struct {
	Results []objectResponse `json:"results"`
}

// do executes one API exchange under the retry policy and returns the
// response body and status. The request is rebuilt per attempt.
func (c *Client) do(ctx context.Context, op, method, path string, payload any) ([]byte, int, error) {
	var body []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, &WriteError{Op: op, Message: "encode request", Cause: err}
		}
		body = encoded
	}

	url := c.baseURL + path
	resp, err := fetch.Do(ctx, c.httpClient, c.opts, func() (*http.Request, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, reqErr := http.NewRequestWithContext(ctx, method, url, reader)
		if reqErr != nil {
			return nil, reqErr
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Notion-Version", apiVersion)
		return req, nil
	})
	if err != nil {
		return nil, 0, &WriteError{Op: op, Message: "request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &WriteError{Op: op, Status: resp.StatusCode, Message: "read response", Cause: err}
	}
	return respBody, resp.StatusCode, nil
}

// apiMessage pulls the human-readable message out of an API error body.
func apiMessage(body []byte) string {
	var parsed objectResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ""
	}
	return parsed.Message
}

// FindPaperByID returns the record page ID for an arXiv ID, or "" when no
// record exists. A missing database is a not-found, not an error.
func (c *Client) FindPaperByID(ctx context.Context, arxivID string) (string, error) {
	if c.databaseID == "" {
		return "", &WriteError{Op: "query papers", Message: "database ID not configured"}
	}

	payload := queryRequest{
		Filter: queryFilter{
			Property: "arXiv ID",
			RichText: &textFilter{Equals: arxivID},
		},
	}

	body, status, err := c.do(ctx, "query papers", http.MethodPost, "/databases/"+c.databaseID+"/query", payload)
	if err != nil {
		return "", err
	}
	if status == http.StatusNotFound {
		return "", nil
	}
	if status != http.StatusOK {
		return "", &WriteError{Op: "query papers", Status: status, Message: apiMessage(body)}
	}

	var result queryResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", &WriteError{Op: "query papers", Status: status, Message: "decode response", Cause: err}
	}
	if len(result.Results) == 0 {
		return "", nil
	}
	return result.Results[0].ID, nil
}

// CreatePaperRecord adds a scored paper to the papers database and returns
// the new record's page ID.
func (c *Client) CreatePaperRecord(ctx context.Context, paper types.ScoredPaper) (string, error) {
	if c.databaseID == "" {
		return "", &WriteError{Op: "create paper", Message: "database ID not configured"}
	}

	payload := pageRequest{
		Parent:     &parentRef{DatabaseID: c.databaseID},
		Properties: paperProperties(paper),
	}

	body, status, err := c.do(ctx, "create paper", http.MethodPost, "/pages", payload)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", &WriteError{Op: "create paper", Status: status, Message: apiMessage(body)}
	}

	var result objectResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", &WriteError{Op: "create paper", Status: status, Message: "decode response", Cause: err}
	}

	c.logger.WithFields(logging.Fields{
		"arxiv_id": paper.Paper.ID,
		"page_id":  result.ID,
	}).Debug("created paper record")
	return result.ID, nil
}

// UpdatePaperRecord rewrites an existing record's properties, refreshing the
// score and summaries when a later run re-analyzes the paper.
func (c *Client) UpdatePaperRecord(ctx context.Context, pageID string, paper types.ScoredPaper) error {
	payload := pageRequest{Properties: paperProperties(paper)}

	body, status, err := c.do(ctx, "update paper", http.MethodPatch, "/pages/"+pageID, payload)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return &WriteError{Op: "update paper", Status: status, Message: apiMessage(body)}
	}

	c.logger.WithFields(logging.Fields{
		"arxiv_id": paper.Paper.ID,
		"page_id":  pageID,
	}).Debug("updated paper record")
	return nil
}

// CreateDigestPage creates the daily summary page under the parent page:
// the executive summary as markdown blocks, then a "Papers Analyzed Today"
// section linking up to 20 papers. Returns the new page's ID.
func (c *Client) CreateDigestPage(ctx context.Context, date string, markdown string, papers []types.PaperRef) (string, error) {
	if c.parentPageID == "" {
		return "", &WriteError{Op: "create digest", Message: "parent page ID not configured"}
	}

	blocks := MarkdownToBlocks(markdown)
	blocks = append(blocks,
		newBlock("heading_2", "Papers Analyzed Today"),
		newBlock("divider", ""),
	)
	for i, paper := range papers {
		if i >= maxDigestPapers {
			break
		}
		blocks = append(blocks, digestBullet(paper))
	}
	if len(blocks) > maxPageBlocks {
		blocks = blocks[:maxPageBlocks]
	}

	payload := pageRequest{
		Parent: &parentRef{PageID: c.parentPageID},
		Icon:   &pageIcon{Type: "emoji", Emoji: "📚"},
		Properties: map[string]propertyValue{
			"title": {Title: []richText{plainText("Daily Summary - " + date)}},
		},
		Children: blocks,
	}

	body, status, err := c.do(ctx, "create digest", http.MethodPost, "/pages", payload)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", &WriteError{Op: "create digest", Status: status, Message: apiMessage(body)}
	}

	var result objectResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", &WriteError{Op: "create digest", Status: status, Message: "decode response", Cause: err}
	}

	c.logger.WithFields(logging.Fields{
		"date":    date,
		"page_id": result.ID,
		"papers":  len(papers),
	}).Info("created daily summary page")
	return result.ID, nil
}

// digestBullet renders one "[score/10] title" list entry linking the paper.
func digestBullet(paper types.PaperRef) block {
	title := paper.Title
	if runes := []rune(title); len(runes) > maxBulletTitleLen {
		title = string(runes[:maxBulletTitleLen]) + "..."
	}

	return block{
		Object: "block",
		Type:   "bulleted_list_item",
		Bulleted: &blockText{RichText: []richText{
			{
				Type:        "text",
				Text:        &textContent{Content: fmt.Sprintf("[%d/10] ", paper.InnovationScore)},
				Annotations: &annotations{Bold: true},
			},
			{
				Type: "text",
				Text: &textContent{Content: title, Link: &link{URL: paper.AbstractURL}},
			},
		}},
	}
}

// paperProperties maps a scored paper onto the database's property schema.
func paperProperties(paper types.ScoredPaper) map[string]propertyValue {
	score := paper.InnovationScore
	return map[string]propertyValue{
		"Title":                  {Title: []richText{plainText(paper.Paper.Title)}},
		"Authors":                {RichText: []richText{plainText(strings.Join(paper.Paper.Authors, ", "))}},
		"Category":               {Select: &selectValue{Name: types.CategorySelectValue(paper.Paper.Category)}},
		"Date":                   {Date: &dateValue{Start: paper.Paper.SubmittedDate.Format("2006-01-02")}},
		"Innovation Score":       {Number: &score},
		"Summary":                {RichText: []richText{plainText(paper.Summary)}},
		"Key Innovation":         {RichText: []richText{plainText(paper.KeyInnovation)}},
		"Implementation Details": {RichText: []richText{plainText(paper.ImplementationDetails)}},
		"arXiv Link":             {URL: paper.Paper.AbstractURL},
		"PDF Link":               {URL: paper.Paper.PDFURL},
		"arXiv ID":               {RichText: []richText{plainText(paper.Paper.ID)}},
	}
}
