package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to State }{
		{StateIdle, StateFetching},
		{StateFetching, StateDeduplicating},
		{StateFetching, StateFailed},
		{StateDeduplicating, StateAnalyzing},
		{StateDeduplicating, StateFailed},
		{StateAnalyzing, StatePersisting},
		{StateAnalyzing, StateFailed},
		{StatePersisting, StateDone},
		{StatePersisting, StateFailed},
	}
	for _, tc := range allowed {
		assert.True(t, canTransition(tc.from, tc.to), "%s -> %s should be allowed", tc.from, tc.to)
	}

	denied := []struct{ from, to State }{
		{StateIdle, StateAnalyzing},
		{StateFetching, StatePersisting},
		{StateDone, StateFetching},
		{StateFailed, StateFetching},
		{StateAnalyzing, StateDeduplicating},
	}
	for _, tc := range denied {
		assert.False(t, canTransition(tc.from, tc.to), "%s -> %s should be denied", tc.from, tc.to)
	}
}

func TestTerminalStates(t *testing.T) {
	assert.True(t, StateDone.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateIdle.Terminal())
	assert.False(t, StatePersisting.Terminal())
}
