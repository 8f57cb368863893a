package config

import (
	"os"
	"strconv"
)

// Environment variable names recognized by the pipeline.
const (
	EnvAnthropicAPIKey    = "ANTHROPIC_API_KEY"
	EnvClaudeModel        = "CLAUDE_MODEL"
	EnvGeminiAPIKey       = "GEMINI_API_KEY"
	EnvNotionAPIKey       = "NOTION_API_KEY"
	EnvNotionDatabaseID   = "NOTION_DATABASE_ID"
	EnvNotionParentPageID = "NOTION_PARENT_PAGE_ID"
	EnvDatabaseURL        = "DATABASE_URL"
)

// GetEnv gets an environment variable with a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvInt gets an integer environment variable with a default value
func GetEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// FromEnv fills workspace and store settings from the environment where the
// config file left them empty.
func (c *Config) FromEnv() {
	if c.Notion.DatabaseID == "" {
		c.Notion.DatabaseID = os.Getenv(EnvNotionDatabaseID)
	}
	if c.Notion.ParentPageID == "" {
		c.Notion.ParentPageID = os.Getenv(EnvNotionParentPageID)
	}
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv(EnvDatabaseURL)
	}
}
