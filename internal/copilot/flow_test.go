package copilot

import "testing"

func TestNextTransitions(t *testing.T) {
	cases := []struct {
		state State
		event Event
		want  State
	}{
		{StateUpload, EventFileAccepted, StateProcessing},
		{StateProcessing, EventExtracted, StateMatching},
		{StateMatching, EventMatched, StateResults},
		{StateProcessing, EventFailed, StateUpload},
		{StateMatching, EventFailed, StateUpload},
		{StateResults, EventReset, StateUpload},
		// Undefined pairs keep the current state.
		{StateUpload, EventMatched, StateUpload},
		{StateResults, EventFileAccepted, StateResults},
		{StateResults, EventFailed, StateResults},
	}
	for _, tc := range cases {
		if got := Next(tc.state, tc.event); got != tc.want {
			t.Fatalf("Next(%s, %s) = %s, want %s", tc.state, tc.event, got, tc.want)
		}
	}
}

func TestFlowGenerationDiscardsStaleRuns(t *testing.T) {
	flow := NewFlow()

	flow.Apply(EventFileAccepted)
	gen := flow.Generation()
	if flow.Stale(gen) {
		t.Fatalf("current generation reported stale")
	}

	// Failure returns to upload and invalidates in-flight responses.
	flow.Apply(EventFailed)
	if !flow.Stale(gen) {
		t.Fatalf("failed run should be stale")
	}

	flow.Apply(EventFileAccepted)
	flow.Apply(EventExtracted)
	flow.Apply(EventMatched)
	if flow.State() != StateResults {
		t.Fatalf("state: %s", flow.State())
	}

	gen = flow.Generation()
	flow.Apply(EventReset)
	if flow.State() != StateUpload {
		t.Fatalf("reset state: %s", flow.State())
	}
	if !flow.Stale(gen) {
		t.Fatalf("reset should invalidate the finished run")
	}
}
