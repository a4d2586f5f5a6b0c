package navigate

import (
	"fmt"
	"testing"

	"github.com/google/uuid"

	"screen-assistant/src/geometry"
	"screen-assistant/src/llm"
	"screen-assistant/src/shape"
)

// fakeRequester records step requests and lets the test deliver responses.
type fakeRequester struct {
	requests []stepRequest
}

type stepRequest struct {
	sessionID uuid.UUID
	goal      string
	step      int
	image     []byte
	done      func(uuid.UUID, *llm.StepResult, error)
}

func (f *fakeRequester) RequestStep(sessionID uuid.UUID, goal string, step int, imageData []byte, done func(uuid.UUID, *llm.StepResult, error)) {
	f.requests = append(f.requests, stepRequest{sessionID, goal, step, imageData, done})
}

type fakeDisplay struct {
	loaded  []shape.Set
	cleared int
}

func (f *fakeDisplay) Load(set shape.Set) { f.loaded = append(f.loaded, set) }
func (f *fakeDisplay) Clear()             { f.cleared++ }

type fakeNotifier struct {
	messages  []string
	steps     []int
	completed int
}

func (f *fakeNotifier) Notify(msg string) { f.messages = append(f.messages, msg) }

func (f *fakeNotifier) NotifyStep(step, total int, instruction string) {
	f.steps = append(f.steps, step)
}

func (f *fakeNotifier) NotifyComplete() { f.completed++ }

func stepResult(instruction string) *llm.StepResult {
	s := shape.New(shape.KindRect, geometry.Rect{X: 100, Y: 100, Width: 80, Height: 40})
	s.Label = instruction
	return &llm.StepResult{
		Instruction: instruction,
		Shapes:      []shape.Shape{s},
	}
}

func TestStartRequestsFirstStep(t *testing.T) {
	req := &fakeRequester{}
	nav := New(req, &fakeDisplay{}, &fakeNotifier{})

	if err := nav.Start("open settings", 111, nil); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if nav.State() != StepRequested {
		t.Errorf("Expected state step_requested, got %s", nav.State())
	}
	if len(req.requests) != 1 {
		t.Fatalf("Expected 1 step request, got %d", len(req.requests))
	}
	if req.requests[0].step != 1 {
		t.Errorf("Expected step 1, got %d", req.requests[0].step)
	}
}

func TestStartEmptyGoal(t *testing.T) {
	nav := New(&fakeRequester{}, &fakeDisplay{}, &fakeNotifier{})
	if err := nav.Start("   ", 0, nil); err == nil {
		t.Error("Expected error for empty goal")
	}
}

func TestHashUnchangedDoesNotAdvance(t *testing.T) {
	req := &fakeRequester{}
	disp := &fakeDisplay{}
	notif := &fakeNotifier{}
	nav := New(req, disp, notif)

	nav.Start("open settings", 111, nil)
	req.requests[0].done(req.requests[0].sessionID, stepResult("Click the gear icon"), nil)

	if nav.State() != StepShown {
		t.Fatalf("Expected state step_shown, got %s", nav.State())
	}
	if len(disp.loaded) != 1 {
		t.Fatalf("Expected 1 loaded set, got %d", len(disp.loaded))
	}
	if len(notif.steps) != 1 || notif.steps[0] != 1 {
		t.Errorf("Expected step 1 notification, got %v", notif.steps)
	}

	// Same hash as at show time: user has not acted yet.
	nav.OnPoll(111, nil)
	nav.OnPoll(111, nil)
	if len(req.requests) != 1 {
		t.Errorf("Expected no new requests while screen unchanged, got %d", len(req.requests))
	}
}

func TestHashChangeAdvancesStep(t *testing.T) {
	req := &fakeRequester{}
	disp := &fakeDisplay{}
	nav := New(req, disp, &fakeNotifier{})

	nav.Start("open settings", 111, nil)
	req.requests[0].done(req.requests[0].sessionID, stepResult("Click the gear icon"), nil)

	nav.OnPoll(222, nil)
	if len(req.requests) != 2 {
		t.Fatalf("Expected second step request after hash change, got %d requests", len(req.requests))
	}
	if req.requests[1].step != 2 {
		t.Errorf("Expected step 2, got %d", req.requests[1].step)
	}
	if nav.State() != StepRequested {
		t.Errorf("Expected state step_requested, got %s", nav.State())
	}
}

func TestNoSecondRequestWhileInFlight(t *testing.T) {
	req := &fakeRequester{}
	nav := New(req, &fakeDisplay{}, &fakeNotifier{})

	nav.Start("open settings", 111, nil)
	// Response not delivered yet; polls must not pile up requests.
	nav.OnPoll(222, nil)
	nav.OnPoll(333, nil)
	if len(req.requests) != 1 {
		t.Errorf("Expected 1 request while in flight, got %d", len(req.requests))
	}
}

func TestTaskComplete(t *testing.T) {
	req := &fakeRequester{}
	disp := &fakeDisplay{}
	notif := &fakeNotifier{}
	nav := New(req, disp, notif)

	nav.Start("open settings", 111, nil)
	req.requests[0].done(req.requests[0].sessionID, &llm.StepResult{Complete: true}, nil)

	if nav.State() != Complete {
		t.Errorf("Expected state complete, got %s", nav.State())
	}
	if nav.Active() {
		t.Error("Expected session inactive after completion")
	}
	if notif.completed != 1 {
		t.Errorf("Expected 1 completion notification, got %d", notif.completed)
	}
}

func TestStaleResponseDiscarded(t *testing.T) {
	req := &fakeRequester{}
	disp := &fakeDisplay{}
	nav := New(req, disp, &fakeNotifier{})

	nav.Start("open settings", 111, nil)
	first := req.requests[0]
	nav.Stop()

	// Response for the stopped session arrives late.
	first.done(first.sessionID, stepResult("Click the gear icon"), nil)
	if nav.State() != Idle {
		t.Errorf("Expected state idle after stale response, got %s", nav.State())
	}
	if len(disp.loaded) != 0 {
		t.Errorf("Expected no shapes loaded from stale response, got %d sets", len(disp.loaded))
	}
}

func TestStepErrorResetsToIdle(t *testing.T) {
	req := &fakeRequester{}
	nav := New(req, &fakeDisplay{}, &fakeNotifier{})

	nav.Start("open settings", 111, nil)
	req.requests[0].done(req.requests[0].sessionID, nil, fmt.Errorf("request failed with status 503"))

	if nav.State() != Idle {
		t.Errorf("Expected state idle after error, got %s", nav.State())
	}
	if nav.Active() {
		t.Error("Expected session inactive after error")
	}
}

func TestRestartReplacesSession(t *testing.T) {
	req := &fakeRequester{}
	disp := &fakeDisplay{}
	nav := New(req, disp, &fakeNotifier{})

	nav.Start("open settings", 111, nil)
	firstID := req.requests[0].sessionID
	nav.Start("close the window", 111, nil)

	if len(req.requests) != 2 {
		t.Fatalf("Expected 2 requests, got %d", len(req.requests))
	}
	if req.requests[1].sessionID == firstID {
		t.Error("Expected a fresh session ID for the new goal")
	}
	if req.requests[1].goal != "close the window" {
		t.Errorf("Expected new goal, got %q", req.requests[1].goal)
	}
}
