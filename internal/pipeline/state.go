package pipeline

// State identifies where a run is in its lifecycle.
type State string

// Run states, in execution order. Failed is terminal and reachable from
// every state except Idle and Done.
const (
	StateIdle          State = "idle"
	StateFetching      State = "fetching"
	StateDeduplicating State = "deduplicating"
	StateAnalyzing     State = "analyzing"
	StatePersisting    State = "persisting"
	StateDone          State = "done"
	StateFailed        State = "failed"
)

// transitions lists the legal successor states for each state.
var transitions = map[State][]State{
	StateIdle:          {StateFetching},
	StateFetching:      {StateDeduplicating, StateFailed},
	StateDeduplicating: {StateAnalyzing, StateFailed},
	StateAnalyzing:     {StatePersisting, StateFailed},
	StatePersisting:    {StateDone, StateFailed},
	StateDone:          {},
	StateFailed:        {},
}

// canTransition reports whether a run may move from one state to another.
func canTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the state ends the run.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}
