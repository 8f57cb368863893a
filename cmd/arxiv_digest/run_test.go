package main

import (
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/arxiv-digest/internal/config"
	"github.com/jonathan/arxiv-digest/internal/llm"
	"github.com/jonathan/arxiv-digest/internal/logging"
	"github.com/jonathan/arxiv-digest/internal/types"
)

func TestDefaultRunConfig(t *testing.T) {
	cfg := defaultRunConfig()

	assert.Equal(t, types.DefaultCategories, cfg.Categories)
	assert.Equal(t, 10, cfg.TopN)
	assert.Equal(t, 1, cfg.DaysBack)
	assert.Equal(t, 6, cfg.Concurrency)
	assert.Equal(t, 2, cfg.RetryBudget)
	assert.Equal(t, 50, cfg.MaxResults)
	assert.Equal(t, 15, cfg.RunDeadlineMinutes)
	assert.Equal(t, "api", cfg.Source)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
}

func TestOracleKeyEnvName(t *testing.T) {
	assert.Equal(t, "ANTHROPIC_API_KEY", oracleKeyEnvName("anthropic"))
	assert.Equal(t, "GEMINI_API_KEY", oracleKeyEnvName("gemini"))
	assert.Equal(t, "ANTHROPIC_API_KEY", oracleKeyEnvName(""))
}

func TestOracleConfig(t *testing.T) {
	cfg := oracleConfig(config.LLMConfig{Provider: "gemini"})
	assert.Equal(t, llm.ProviderGemini, cfg.Provider)
	assert.Equal(t, llm.DefaultGeminiModel, cfg.GetModel())

	cfg = oracleConfig(config.LLMConfig{Provider: "anthropic", Model: "custom-model", MaxTokens: 1024})
	assert.Equal(t, llm.ProviderAnthropic, cfg.Provider)
	assert.Equal(t, "custom-model", cfg.GetModel())
	assert.Equal(t, 1024, cfg.MaxTokens)

	t.Setenv(config.EnvClaudeModel, "")
	cfg = oracleConfig(config.LLMConfig{Provider: "anthropic"})
	assert.Equal(t, llm.DefaultAnthropicModel, cfg.GetModel())

	t.Setenv(config.EnvClaudeModel, "env-model")
	cfg = oracleConfig(config.LLMConfig{})
	assert.Equal(t, "env-model", cfg.GetModel())

	// An explicit model wins over the environment, and gemini ignores it.
	cfg = oracleConfig(config.LLMConfig{Provider: "anthropic", Model: "custom-model"})
	assert.Equal(t, "custom-model", cfg.GetModel())
	cfg = oracleConfig(config.LLMConfig{Provider: "gemini"})
	assert.Equal(t, llm.DefaultGeminiModel, cfg.GetModel())
}

func TestFeedSource(t *testing.T) {
	logger := logging.NewLogger()

	source, err := feedSource(config.Config{Source: "api", MaxResults: 10}, logger)
	require.NoError(t, err)
	assert.Equal(t, "api", source.Name())

	source, err = feedSource(config.Config{Source: "listing", MaxResults: 10}, logger)
	require.NoError(t, err)
	assert.Equal(t, "listing", source.Name())

	_, err = feedSource(config.Config{Source: "rss"}, logger)
	assert.Error(t, err)
}

func TestRunCommand_FlagsValidation(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantError   bool
		errorString string
	}{
		{
			name:        "Nonexistent config file",
			args:        []string{"run", "--config", "testdata/does-not-exist.json"},
			wantError:   true,
			errorString: "failed to load config",
		},
		{
			name:        "Invalid feed source",
			args:        []string{"run", "--source", "rss"},
			wantError:   true,
			errorString: "config error",
		},
		{
			name:        "Invalid oracle provider",
			args:        []string{"run", "--provider", "claude"},
			wantError:   true,
			errorString: "config error",
		},
	}

	binaryPath := getBinaryPath(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := exec.Command(binaryPath, tt.args...)
			output, err := cmd.CombinedOutput()

			if tt.wantError {
				assert.Error(t, err)
				if tt.errorString != "" {
					assert.Contains(t, string(output), tt.errorString)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRunCommand_MissingOracleKey(t *testing.T) {
	binaryPath := getBinaryPath(t)

	cmd := exec.Command(binaryPath, "run")
	// Empty values keep godotenv from re-filling the keys from a local .env
	cmd.Env = []string{"ANTHROPIC_API_KEY=", "GEMINI_API_KEY=", "NOTION_API_KEY=", "DATABASE_URL="}
	output, err := cmd.CombinedOutput()

	assert.Error(t, err)
	assert.Contains(t, string(output), "ANTHROPIC_API_KEY")
}
