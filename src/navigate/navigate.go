// Package navigate drives multi-step guided navigation. A session walks a
// goal one step at a time: request the next step from the vision model, show
// its annotations, then wait for the screen to change before advancing.
package navigate

import (
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"screen-assistant/src/llm"
	"screen-assistant/src/shape"
)

// State is the navigator's phase within the current session.
type State int

const (
	// Idle means no guidance session is active.
	Idle State = iota
	// StepRequested means a vision request for the next step is in flight.
	StepRequested
	// StepShown means annotations are on screen and the navigator is
	// waiting for the screen to change.
	StepShown
	// Complete means the model reported the goal reached.
	Complete
)

func (s State) String() string {
	switch s {
	case StepRequested:
		return "step_requested"
	case StepShown:
		return "step_shown"
	case Complete:
		return "complete"
	default:
		return "idle"
	}
}

// Session holds one guidance run. The ID fences stale vision responses after
// a stop or restart.
type Session struct {
	ID          uuid.UUID
	Goal        string
	Step        int
	TotalSteps  int
	Instruction string
	ShownHash   uint64
}

// Requester issues the asynchronous vision call for the next step. The
// callback runs on the event loop, never on the requester's goroutine.
type Requester interface {
	RequestStep(sessionID uuid.UUID, goal string, step int, imageData []byte, done func(sessionID uuid.UUID, result *llm.StepResult, err error))
}

// Display receives annotation sets and clear requests.
type Display interface {
	Load(set shape.Set)
	Clear()
}

// Notifier surfaces user-facing guidance messages. Step and completion
// events carry structure so the status feed can report progress, not just
// text.
type Notifier interface {
	Notify(message string)
	NotifyStep(step, total int, instruction string)
	NotifyComplete()
}

// Navigator owns the session state machine. All methods must be called from
// a single goroutine; the event loop provides that.
type Navigator struct {
	requester Requester
	display   Display
	notifier  Notifier

	state   State
	session *Session
}

func New(requester Requester, display Display, notifier Notifier) *Navigator {
	return &Navigator{
		requester: requester,
		display:   display,
		notifier:  notifier,
		state:     Idle,
	}
}

// State reports the current phase.
func (n *Navigator) State() State {
	return n.state
}

// Active reports whether a session is running.
func (n *Navigator) Active() bool {
	return n.state == StepRequested || n.state == StepShown
}

// Instruction returns the text of the step currently shown, for clipboard
// copy. Empty when nothing is shown.
func (n *Navigator) Instruction() string {
	if n.session == nil {
		return ""
	}
	return n.session.Instruction
}

// Start begins a new session toward goal, replacing any in-progress one.
func (n *Navigator) Start(goal string, screenHash uint64, imageData []byte) error {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		return fmt.Errorf("empty goal")
	}
	if n.Active() {
		log.Printf("Navigator: replacing active session with new goal: %s", goal)
		n.display.Clear()
	}
	n.session = &Session{
		ID:        uuid.New(),
		Goal:      goal,
		Step:      1,
		ShownHash: screenHash,
	}
	n.requestStep(imageData)
	return nil
}

// Stop ends the session and clears the overlay. Safe to call when idle.
func (n *Navigator) Stop() {
	if n.session != nil {
		log.Printf("Navigator: stopping session %s at step %d", n.session.ID, n.session.Step)
	}
	n.session = nil
	n.state = Idle
	n.display.Clear()
}

// OnPoll feeds the navigator one screen sample. When a step is shown and the
// hash differs from the one captured at show time, the user acted and the
// next step is requested. Identical hashes are ignored, as are polls in any
// other state.
func (n *Navigator) OnPoll(hash uint64, imageData []byte) {
	if n.state != StepShown || n.session == nil {
		return
	}
	if hash == n.session.ShownHash {
		return
	}
	log.Printf("Navigator: screen changed (step %d done), requesting step %d",
		n.session.Step, n.session.Step+1)
	n.session.Step++
	n.session.ShownHash = hash
	n.display.Clear()
	n.requestStep(imageData)
}

func (n *Navigator) requestStep(imageData []byte) {
	n.state = StepRequested
	sessionID := n.session.ID
	n.requester.RequestStep(sessionID, n.session.Goal, n.session.Step, imageData, func(id uuid.UUID, result *llm.StepResult, err error) {
		n.onStepResult(id, result, err)
	})
}

// onStepResult handles a vision response. Responses carrying a session ID
// other than the current one are from a stopped or replaced session and are
// dropped.
func (n *Navigator) onStepResult(id uuid.UUID, result *llm.StepResult, err error) {
	if n.session == nil || id != n.session.ID {
		log.Printf("Navigator: discarding stale step response for session %s", id)
		return
	}
	if err != nil {
		log.Printf("Navigator: step %d request failed: %v", n.session.Step, err)
		n.notifier.Notify(fmt.Sprintf("Guidance failed: %v", err))
		n.session = nil
		n.state = Idle
		n.display.Clear()
		return
	}
	if result.Complete {
		log.Printf("Navigator: goal reached after %d steps", n.session.Step-1)
		n.notifier.NotifyComplete()
		n.state = Complete
		n.session = nil
		n.display.Clear()
		return
	}

	if result.TotalSteps > 0 {
		n.session.TotalSteps = result.TotalSteps
	}
	n.session.Instruction = result.Instruction
	n.state = StepShown

	// Shapes carry the session's step number; show exactly that step.
	set := shape.NewSet(result.Shapes)
	set.CurrentStep = n.session.Step
	if n.session.TotalSteps > set.TotalSteps {
		set.TotalSteps = n.session.TotalSteps
	}
	n.display.Load(set)
	n.notifier.NotifyStep(n.session.Step, n.session.TotalSteps, n.session.Instruction)
}

// RecordShownHash updates the baseline hash once annotations are loaded, so
// the overlay's own appearance is not mistaken for user action. The event
// loop calls this with a fresh capture right after a step is shown.
func (n *Navigator) RecordShownHash(hash uint64) {
	if n.state == StepShown && n.session != nil {
		n.session.ShownHash = hash
	}
}
