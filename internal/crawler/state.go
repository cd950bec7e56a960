package crawler

// State is the lifecycle state of an Engine.
type State int32

const (
	// StateIdle means Crawl has not been called.
	StateIdle State = iota

	// StateRunning means the engine is fetching pages.
	StateRunning

	// StateDraining means the visit budget was reached.
	StateDraining

	// StateExhausted means the frontier ran empty before the budget.
	StateExhausted

	// StateDone means the crawl finished and the result is final.
	StateDone
)

// String returns the lower-case name of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateExhausted:
		return "exhausted"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// outcome is the result of processing one popped URL.
type outcome int

const (
	// outcomeVisited means the URL was fetched and added to the seen set.
	outcomeVisited outcome = iota

	// outcomeSkipped means the URL was already seen.
	outcomeSkipped

	// outcomeFailed means the fetch failed and the URL was abandoned.
	outcomeFailed
)
