package engine

// State is a step of a single download. Complete and Failed are terminal.
type State int

const (
	StatePending State = iota
	StateResolving
	StateSizeKnown
	StateSpaceChecked
	StateAllocated
	StateDownloading
	StateComplete
	StateFailed
)

var stateNames = [...]string{
	StatePending:      "pending",
	StateResolving:    "resolving",
	StateSizeKnown:    "size-known",
	StateSpaceChecked: "space-checked",
	StateAllocated:    "allocated",
	StateDownloading:  "downloading",
	StateComplete:     "complete",
	StateFailed:       "failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}
