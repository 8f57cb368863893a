// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
)

// Default values applied by MergeWithDefaults when the config file and flags
// leave a field unset.
const (
	DefaultTopN        = 10
	DefaultDaysBack    = 1
	DefaultConcurrency = 6
	DefaultRetryBudget = 2
	DefaultMaxResults  = 50
	DefaultSource      = "api"
	DefaultRunDeadline = 15 * time.Minute
)

// LLMConfig selects the oracle provider and model.
type LLMConfig struct {
	Provider  string `json:"provider,omitempty" validate:"omitempty,oneof=anthropic gemini"`
	Model     string `json:"model,omitempty"`
	MaxTokens int    `json:"max_tokens,omitempty" validate:"min=0"`
}

// NotionConfig identifies the workspace targets. IDs normally come from the
// environment (NOTION_DATABASE_ID, NOTION_PARENT_PAGE_ID); file values win
// when both are present.
type NotionConfig struct {
	DatabaseID   string `json:"database_id,omitempty"`
	ParentPageID string `json:"parent_page_id,omitempty"`
}

// Config represents the pipeline configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Categories lists the arXiv categories to monitor (e.g. ["cs.AI", "cs.LG"])
	Categories []string `json:"categories,omitempty"`

	// Limits
	TopN        int `json:"top_n,omitempty" validate:"min=0"`
	DaysBack    int `json:"days_back,omitempty" validate:"min=0"`
	Concurrency int `json:"concurrency,omitempty" validate:"min=0"`
	RetryBudget int `json:"retry_budget,omitempty" validate:"min=0"`
	MaxResults  int `json:"max_results,omitempty" validate:"min=0"`

	// RunDeadlineMinutes bounds one whole pipeline run
	RunDeadlineMinutes int `json:"run_deadline_minutes,omitempty" validate:"min=0"`

	// Source selects the feed client ("api" or "listing")
	Source string `json:"source,omitempty" validate:"omitempty,oneof=api listing"`

	LLM    LLMConfig    `json:"llm,omitempty"`
	Notion NotionConfig `json:"notion,omitempty"`

	// DatabaseURL enables the optional run-history store
	DatabaseURL string `json:"database_url,omitempty"`
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Required settings are not checked here since they may still arrive via
// CLI flags or the environment after merging.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	for _, category := range c.Categories {
		if category == "" {
			return fmt.Errorf("config error: 'categories' must not contain empty entries")
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with unset fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if len(result.Categories) == 0 {
		result.Categories = defaults.Categories
	}
	if result.TopN == 0 {
		result.TopN = defaults.TopN
	}
	if result.DaysBack == 0 {
		result.DaysBack = defaults.DaysBack
	}
	if result.Concurrency == 0 {
		result.Concurrency = defaults.Concurrency
	}
	if result.RetryBudget == 0 {
		result.RetryBudget = defaults.RetryBudget
	}
	if result.MaxResults == 0 {
		result.MaxResults = defaults.MaxResults
	}
	if result.RunDeadlineMinutes == 0 {
		result.RunDeadlineMinutes = defaults.RunDeadlineMinutes
	}
	if result.Source == "" {
		result.Source = defaults.Source
	}
	if result.LLM.Provider == "" {
		result.LLM.Provider = defaults.LLM.Provider
	}
	if result.LLM.Model == "" {
		result.LLM.Model = defaults.LLM.Model
	}
	if result.LLM.MaxTokens == 0 {
		result.LLM.MaxTokens = defaults.LLM.MaxTokens
	}
	if result.Notion.DatabaseID == "" {
		result.Notion.DatabaseID = defaults.Notion.DatabaseID
	}
	if result.Notion.ParentPageID == "" {
		result.Notion.ParentPageID = defaults.Notion.ParentPageID
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}

	return result
}

// RunDeadline returns the run deadline as a duration.
func (c *Config) RunDeadline() time.Duration {
	if c.RunDeadlineMinutes <= 0 {
		return DefaultRunDeadline
	}
	return time.Duration(c.RunDeadlineMinutes) * time.Minute
}
