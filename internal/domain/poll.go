package domain

// PollStatus classifies the outcome of one reader sampling window.
type PollStatus int

const (
	// PollNone means the window completed with no tags in the field.
	PollNone PollStatus = iota

	// PollDetected means one or two tag UIDs were sensed.
	PollDetected

	// PollTransient means every probe in the window failed. The
	// stability engine treats it exactly like PollNone; the error is
	// surfaced for logging only.
	PollTransient
)

// PollResult is the outcome of sampling a position's reader once.
// The hardware can sense at most two overlapping tags per window.
type PollResult struct {
	Status PollStatus
	UIDs   []string
	Err    error
}

// Detected builds a result carrying the sensed UIDs (may be empty).
func Detected(uids []string) PollResult {
	if len(uids) == 0 {
		return PollResult{Status: PollNone}
	}
	return PollResult{Status: PollDetected, UIDs: uids}
}

// Transient builds a result for a window in which every probe errored.
func Transient(err error) PollResult {
	return PollResult{Status: PollTransient, Err: err}
}
