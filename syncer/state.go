package syncer

import "time"

// Phase is a state of the batch sync controller.
type Phase int

const (
	// PhaseIdle is the state before Start.
	PhaseIdle Phase = iota
	// PhaseRunning means the page loop is active.
	PhaseRunning
	// PhasePaused means the loop is suspended between pages with state
	// retained verbatim.
	PhasePaused
	// PhaseStopping means a stop was requested and the loop is draining.
	PhaseStopping
	// PhaseCompleted is terminal: the run finished or was stopped by the
	// user with totals preserved.
	PhaseCompleted
	// PhaseError is terminal: a fatal fetch error or an exhausted retry
	// budget ended the run.
	PhaseError
)

// String returns the phase's display name.
func (p Phase) String() string {
	switch p {
	case PhaseRunning:
		return "running"
	case PhasePaused:
		return "paused"
	case PhaseStopping:
		return "stopping"
	case PhaseCompleted:
		return "completed"
	case PhaseError:
		return "error"
	default:
		return "idle"
	}
}

// Terminal reports whether the phase ends a run.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseError
}

// Totals accumulates run-wide counters. Processed counts every item seen
// in a page, including filtered and unchanged ones.
type Totals struct {
	Processed int
	New       int
	Updated   int
	Errors    int
}

// State is the controller's live state. It has a single writer, the
// controller's own loop; accessors hand out copies.
type State struct {
	// Phase is the current lifecycle phase.
	Phase Phase
	// PagesProcessed counts fetched-and-ingested pages.
	PagesProcessed int
	// EmptyPageStreak counts consecutive pages contributing zero new
	// items; any new item resets it.
	EmptyPageStreak int
	// Totals are the run-wide counters.
	Totals Totals
	// StartTime is when the run entered PhaseRunning.
	StartTime time.Time
	// Cursor is the last confirmed pagination cursor. It advances
	// monotonically; resume-from-pause re-enters the loop from here, so
	// no page is skipped.
	Cursor string
	// TotalEstimate is the channel-wide item estimate reported by the
	// fetcher, zero when unknown.
	TotalEstimate int
	// LastError is the terminal error of a failed run.
	LastError error
	// ItemErrors accumulates item-level ingestion errors for display.
	ItemErrors []string
}
