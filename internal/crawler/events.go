package crawler

// EventKind identifies what happened to a URL.
type EventKind int

const (
	// EventEnqueue means the URL was added to the frontier.
	EventEnqueue EventKind = iota

	// EventDequeue means the URL was popped for fetching.
	EventDequeue

	// EventVisit means the URL was fetched and added to the seen set.
	EventVisit

	// EventFail means the fetch failed and the URL was abandoned.
	EventFail

	// EventSkip means a popped URL was already seen.
	EventSkip

	// EventReject means a candidate link was dropped by the filters.
	EventReject
)

// String returns the lower-case name of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventEnqueue:
		return "enqueue"
	case EventDequeue:
		return "dequeue"
	case EventVisit:
		return "visit"
	case EventFail:
		return "fail"
	case EventSkip:
		return "skip"
	case EventReject:
		return "reject"
	default:
		return "unknown"
	}
}

// Event describes one step of a crawl. Observers run on the coordinator
// goroutine and must not block.
type Event struct {
	Kind EventKind

	// URL is the URL concerned. For rejected links it is the raw href.
	URL string

	// Reason explains a rejection ("parse", "scheme", "scope", "pattern").
	Reason string

	// Err is set for EventFail and parse rejections.
	Err error

	// Seen is the size of the seen set after the event.
	Seen int

	// Queued is the size of the frontier after the event.
	Queued int
}
