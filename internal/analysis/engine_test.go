package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/arxiv-digest/internal/types"
)

// fakeOracle scripts Complete responses per arXiv ID, keyed off the
// "ARXIV ID:" line the score prompt always carries. Summary prompts carry no
// ID and are dispatched with id == "".
type fakeOracle struct {
	mu      sync.Mutex
	calls   map[string]int
	respond func(id string, attempt int) (string, error)
}

func newFakeOracle(respond func(id string, attempt int) (string, error)) *fakeOracle {
	return &fakeOracle{
		calls:   make(map[string]int),
		respond: respond,
	}
}

func (f *fakeOracle) Complete(_ context.Context, prompt string) (string, error) {
	id := extractArxivID(prompt)
	f.mu.Lock()
	f.calls[id]++
	attempt := f.calls[id]
	f.mu.Unlock()
	return f.respond(id, attempt)
}

func (f *fakeOracle) GetModel() string { return "fake-oracle" }
func (f *fakeOracle) Close() error     { return nil }

func (f *fakeOracle) callCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

func extractArxivID(prompt string) string {
	for _, line := range strings.Split(prompt, "\n") {
		if strings.HasPrefix(line, "ARXIV ID: ") {
			return strings.TrimPrefix(line, "ARXIV ID: ")
		}
	}
	return ""
}

func analysisJSON(score int) string {
	return fmt.Sprintf(`{
		"innovation_score": %d,
		"summary": "A concise summary.",
		"problem_solved": "A hard problem.",
		"key_innovation": "A novel method.",
		"implementation_details": "Transformers all the way down.",
		"potential_impact": "High."
	}`, score)
}

func candidate(id, title, category string) types.PaperCandidate {
	return types.PaperCandidate{
		ID:           id,
		Title:        title,
		Authors:      []string{"A. Researcher", "B. Researcher"},
		Category:     category,
		Categories:   []string{category},
		AbstractText: "We propose a method.",
	}
}

func testOptions() *Options {
	return &Options{
		Concurrency: 4,
		RetryBudget: 1,
		BaseDelay:   time.Millisecond,
		MaxDelay:    2 * time.Millisecond,
	}
}

func TestAnalyze_RanksAndTruncates(t *testing.T) {
	// Scores chosen so the bottom two candidates fall outside topN.
	scores := map[string]int{
		"2501.00001": 5, "2501.00002": 9, "2501.00003": 3, "2501.00004": 8,
		"2501.00005": 2, "2501.00006": 7, "2501.00007": 10, "2501.00008": 6,
		"2501.00009": 1, "2501.00010": 4, "2501.00011": 9, "2501.00012": 2,
	}
	oracle := newFakeOracle(func(id string, _ int) (string, error) {
		return analysisJSON(scores[id]), nil
	})

	// Five cs.AI candidates followed by seven cs.CV.
	candidates := make([]types.PaperCandidate, 0, len(scores))
	for i := 1; i <= 12; i++ {
		id := fmt.Sprintf("2501.%05d", i)
		category := "cs.AI"
		if i > 5 {
			category = "cs.CV"
		}
		candidates = append(candidates, candidate(id, "Paper "+id, category))
	}

	engine := NewEngine(oracle, nil, testOptions())
	result, err := engine.Analyze(context.Background(), candidates, 10)
	require.NoError(t, err)

	assert.Equal(t, 12, result.Analyzed)
	assert.Equal(t, 0, result.Failed)
	require.Len(t, result.Papers, 10)

	for i := 1; i < len(result.Papers); i++ {
		assert.GreaterOrEqual(t, result.Papers[i-1].InnovationScore, result.Papers[i].InnovationScore)
	}
	assert.Equal(t, "2501.00007", result.Papers[0].Paper.ID)
	// The two score-2 and the score-1 papers are beyond the cut, minus one slot.
	for _, paper := range result.Papers {
		assert.NotEqual(t, "2501.00009", paper.Paper.ID)
		assert.NotEqual(t, "2501.00012", paper.Paper.ID)
	}
}

func TestAnalyze_TiesKeepFetchOrder(t *testing.T) {
	oracle := newFakeOracle(func(id string, _ int) (string, error) {
		if id == "2501.00002" {
			return analysisJSON(9), nil
		}
		return analysisJSON(7), nil
	})

	candidates := []types.PaperCandidate{
		candidate("2501.00001", "First", "cs.AI"),
		candidate("2501.00002", "Second", "cs.LG"),
		candidate("2501.00003", "Third", "cs.AI"),
		candidate("2501.00004", "Fourth", "cs.CL"),
	}

	engine := NewEngine(oracle, nil, testOptions())
	result, err := engine.Analyze(context.Background(), candidates, 10)
	require.NoError(t, err)
	require.Len(t, result.Papers, 4)

	assert.Equal(t, "2501.00002", result.Papers[0].Paper.ID)
	// Tied scores stay in fetch order.
	assert.Equal(t, "2501.00001", result.Papers[1].Paper.ID)
	assert.Equal(t, "2501.00003", result.Papers[2].Paper.ID)
	assert.Equal(t, "2501.00004", result.Papers[3].Paper.ID)
}

func TestAnalyze_PartialFailuresAreDropped(t *testing.T) {
	failing := map[string]bool{"2501.00003": true, "2501.00007": true}
	oracle := newFakeOracle(func(id string, _ int) (string, error) {
		if failing[id] {
			return "", errors.New("oracle timeout")
		}
		return analysisJSON(6), nil
	})

	var candidates []types.PaperCandidate
	for i := 1; i <= 10; i++ {
		id := fmt.Sprintf("2501.%05d", i)
		candidates = append(candidates, candidate(id, "Paper "+id, "cs.AI"))
	}

	engine := NewEngine(oracle, nil, testOptions())
	result, err := engine.Analyze(context.Background(), candidates, 10)
	require.NoError(t, err)

	assert.Equal(t, 8, result.Analyzed)
	assert.Equal(t, 2, result.Failed)
	assert.Len(t, result.Papers, 8)
	require.Len(t, result.Failures, 2)

	joined := strings.Join(result.Failures, "\n")
	assert.Contains(t, joined, "2501.00003")
	assert.Contains(t, joined, "2501.00007")
	for _, paper := range result.Papers {
		assert.False(t, failing[paper.Paper.ID])
	}
}

func TestAnalyze_AllFailuresUnavailable(t *testing.T) {
	oracle := newFakeOracle(func(string, int) (string, error) {
		return "", errors.New("oracle down")
	})

	candidates := []types.PaperCandidate{
		candidate("2501.00001", "First", "cs.AI"),
		candidate("2501.00002", "Second", "cs.LG"),
	}

	engine := NewEngine(oracle, nil, testOptions())
	result, err := engine.Analyze(context.Background(), candidates, 10)
	require.Error(t, err)
	assert.Nil(t, result)

	var unavailable *UnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, 2, unavailable.Attempted)
}

func TestAnalyze_EmptyInput(t *testing.T) {
	oracle := newFakeOracle(func(string, int) (string, error) {
		t.Fatal("oracle must not be called for an empty batch")
		return "", nil
	})

	engine := NewEngine(oracle, nil, testOptions())
	result, err := engine.Analyze(context.Background(), nil, 10)
	require.NoError(t, err)
	assert.Empty(t, result.Papers)
	assert.Equal(t, 0, result.Analyzed)
	assert.Equal(t, 0, result.Failed)
}

func TestAnalyze_OutOfRangeScoreDropped(t *testing.T) {
	oracle := newFakeOracle(func(id string, _ int) (string, error) {
		if id == "2501.00002" {
			return analysisJSON(11), nil
		}
		return analysisJSON(5), nil
	})

	candidates := []types.PaperCandidate{
		candidate("2501.00001", "Valid", "cs.AI"),
		candidate("2501.00002", "Overscored", "cs.AI"),
	}

	engine := NewEngine(oracle, nil, testOptions())
	result, err := engine.Analyze(context.Background(), candidates, 10)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Analyzed)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Papers, 1)
	assert.Equal(t, "2501.00001", result.Papers[0].Paper.ID)
	// Invalid payloads consume the full retry budget before the drop.
	assert.Equal(t, 2, oracle.callCount("2501.00002"))
}

func TestAnalyze_RetryRecovers(t *testing.T) {
	oracle := newFakeOracle(func(id string, attempt int) (string, error) {
		if attempt == 1 {
			return "not json at all", nil
		}
		return analysisJSON(8), nil
	})

	candidates := []types.PaperCandidate{candidate("2501.00001", "Flaky", "cs.AI")}

	engine := NewEngine(oracle, nil, testOptions())
	result, err := engine.Analyze(context.Background(), candidates, 10)
	require.NoError(t, err)

	require.Len(t, result.Papers, 1)
	assert.Equal(t, 8, result.Papers[0].InnovationScore)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 2, oracle.callCount("2501.00001"))
}

func TestAnalyze_AcceptsFencedJSON(t *testing.T) {
	oracle := newFakeOracle(func(string, int) (string, error) {
		return "```json\n" + analysisJSON(7) + "\n```", nil
	})

	candidates := []types.PaperCandidate{candidate("2501.00001", "Fenced", "cs.AI")}

	engine := NewEngine(oracle, nil, testOptions())
	result, err := engine.Analyze(context.Background(), candidates, 10)
	require.NoError(t, err)
	require.Len(t, result.Papers, 1)
	assert.Equal(t, 7, result.Papers[0].InnovationScore)
	assert.Equal(t, "A concise summary.", result.Papers[0].Summary)
}

func TestAnalyze_TopNLargerThanInput(t *testing.T) {
	oracle := newFakeOracle(func(string, int) (string, error) {
		return analysisJSON(5), nil
	})

	candidates := []types.PaperCandidate{
		candidate("2501.00001", "Only", "cs.AI"),
		candidate("2501.00002", "Pair", "cs.LG"),
	}

	engine := NewEngine(oracle, nil, testOptions())
	result, err := engine.Analyze(context.Background(), candidates, 50)
	require.NoError(t, err)
	assert.Len(t, result.Papers, 2)
}

func TestSummarize(t *testing.T) {
	oracle := newFakeOracle(func(id string, _ int) (string, error) {
		require.Empty(t, id, "summary prompt must not carry a paper ID")
		return "\n# Today in AI\n\nBig week for robots.\n", nil
	})

	papers := []types.ScoredPaper{
		{Paper: candidate("2501.00001", "Robots", "cs.RO"), InnovationScore: 9, KeyInnovation: "k", PotentialImpact: "x"},
	}

	engine := NewEngine(oracle, nil, testOptions())
	summary, err := engine.Summarize(context.Background(), papers, "2026-08-25")
	require.NoError(t, err)
	assert.Equal(t, "# Today in AI\n\nBig week for robots.", summary)
}

func TestSummarize_ErrorSurfaces(t *testing.T) {
	oracle := newFakeOracle(func(string, int) (string, error) {
		return "", errors.New("oracle down")
	})

	papers := []types.ScoredPaper{
		{Paper: candidate("2501.00001", "Robots", "cs.RO"), InnovationScore: 9},
	}

	engine := NewEngine(oracle, nil, testOptions())
	_, err := engine.Summarize(context.Background(), papers, "2026-08-25")
	require.Error(t, err)
	// The budget applies to the summary call too.
	assert.Equal(t, 2, oracle.callCount(""))
}

func TestFallbackSummary_Empty(t *testing.T) {
	summary := FallbackSummary(nil, "2026-08-25")
	assert.Equal(t, "# ArXiv AI Research Summary - 2026-08-25\n\nNo significant papers found today.", summary)
}

func TestFallbackSummary_GroupsByCategory(t *testing.T) {
	papers := []types.ScoredPaper{
		{Paper: candidate("2501.00001", "Vision Thing", "cs.CV"), InnovationScore: 9},
		{Paper: candidate("2501.00002", "Language Thing", "cs.CL"), InnovationScore: 8},
		{Paper: candidate("2501.00003", "Another Vision Thing", "cs.CV"), InnovationScore: 7},
	}

	summary := FallbackSummary(papers, "2026-08-25")

	assert.Contains(t, summary, "# ArXiv AI Research Summary - 2026-08-25")
	assert.Contains(t, summary, "3 papers made today's cut. Top score: 9/10 for \"Vision Thing\".")
	assert.Contains(t, summary, "## Computer Vision")
	assert.Contains(t, summary, "## Computation and Language")
	assert.Contains(t, summary, "- **Language Thing** (Score: 8/10)")

	// First-seen category order: cs.CV before cs.CL.
	assert.Less(t, strings.Index(summary, "## Computer Vision"), strings.Index(summary, "## Computation and Language"))
}
