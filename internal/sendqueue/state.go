package sendqueue

// State tracks one feed through a batch.
type State int

const (
	StateQueued State = iota
	StateSending
	StateSent
	StateFailed
	StateArchived
)

func (s State) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateSending:
		return "sending"
	case StateSent:
		return "sent"
	case StateFailed:
		return "failed"
	case StateArchived:
		return "archived"
	default:
		return "unknown"
	}
}

// Summary is the per-batch outcome surfaced to the operator.
type Summary struct {
	Total  int
	Sent   int
	Failed int
}
