package copilot

// State is one step of the copilot pipeline as the operator sees it.
type State string

const (
	StateUpload     State = "upload"
	StateProcessing State = "processing"
	StateMatching   State = "matching"
	StateResults    State = "results"
)

// Event drives the pipeline state machine.
type Event string

const (
	EventFileAccepted Event = "file_accepted"
	EventExtracted    Event = "extracted"
	EventMatched      Event = "matched"
	EventFailed       Event = "failed"
	EventReset        Event = "reset"
)

// Next is the single transition function. A failure at processing or
// matching returns the flow to upload: progress is discarded and the
// operator retries from scratch. Undefined (state, event) pairs keep the
// current state.
func Next(state State, event Event) State {
	switch event {
	case EventFileAccepted:
		if state == StateUpload {
			return StateProcessing
		}
	case EventExtracted:
		if state == StateProcessing {
			return StateMatching
		}
	case EventMatched:
		if state == StateMatching {
			return StateResults
		}
	case EventFailed:
		if state == StateProcessing || state == StateMatching {
			return StateUpload
		}
	case EventReset:
		return StateUpload
	}
	return state
}

// Flow tracks the current state plus a generation counter. Every return to
// upload bumps the generation, so a response from an abandoned extraction
// or matching call can be recognized as stale and discarded instead of
// mutating a flow that has already moved on.
type Flow struct {
	state      State
	generation uint64
}

func NewFlow() *Flow {
	return &Flow{state: StateUpload}
}

func (f *Flow) State() State { return f.state }

func (f *Flow) Generation() uint64 { return f.generation }

// Apply transitions the flow and returns the new state.
func (f *Flow) Apply(event Event) State {
	next := Next(f.state, event)
	if next == StateUpload && f.state != StateUpload {
		f.generation++
	}
	f.state = next
	return next
}

// Stale reports whether a response tagged with gen belongs to an abandoned
// run.
func (f *Flow) Stale(gen uint64) bool {
	return gen != f.generation
}
