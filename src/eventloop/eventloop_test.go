package eventloop

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"screen-assistant/src/assistant"
	"screen-assistant/src/config"
	"screen-assistant/src/geometry"
	"screen-assistant/src/llm"
	"screen-assistant/src/overlay"
	"screen-assistant/src/shape"
	"screen-assistant/src/singleinstance"
)

// fakeConn records the response to one delegated command.
type fakeConn struct {
	req     singleinstance.Request
	success []string
	errors  []string
	closed  int
}

func (f *fakeConn) Request() singleinstance.Request { return f.req }

func (f *fakeConn) RespondSuccess(text string) error {
	f.success = append(f.success, text)
	return nil
}

func (f *fakeConn) RespondError(msg string) error {
	f.errors = append(f.errors, msg)
	return nil
}

func (f *fakeConn) Close() error {
	f.closed++
	return nil
}

func testLoop() (*Loop, *overlay.Engine) {
	cfg := &config.Config{PollIntervalSec: 1, AnalyzeDeadlineSec: 1}
	engine := overlay.NewEngine(geometry.Size{Width: 1920, Height: 1080})
	coord := assistant.New(assistant.Config{
		FuzzyConfidence:     0.6,
		SelectionConfidence: 0.6,
		UndersizedRetries:   1,
		MinBoxSize:          12,
	}, nil, nil, engine, popupNotifier{})
	return New(cfg, coord, engine, nil), engine
}

func twoStepSet() shape.Set {
	a := shape.New(shape.KindRect, geometry.Rect{X: 100, Y: 100, Width: 80, Height: 40})
	a.Step = 1
	b := shape.New(shape.KindRect, geometry.Rect{X: 300, Y: 300, Width: 80, Height: 40})
	b.Step = 2
	return shape.NewSet([]shape.Shape{a, b})
}

func TestReplyNextAdvancesOverlay(t *testing.T) {
	loop, engine := testLoop()
	engine.Load(twoStepSet())

	conn := &fakeConn{req: singleinstance.Request{Command: singleinstance.CmdReply, Argument: "next"}}
	loop.handleConn(context.Background(), conn)

	if engine.CurrentStep() != 2 {
		t.Errorf("Expected step 2 after next, got %d", engine.CurrentStep())
	}
	if len(conn.success) != 1 || conn.closed != 1 {
		t.Errorf("Expected one success response and close, got %+v", conn)
	}
}

func TestReplyNextPastLastStepClears(t *testing.T) {
	loop, engine := testLoop()
	engine.Load(twoStepSet())

	for _, arg := range []string{"next", "NEXT "} {
		conn := &fakeConn{req: singleinstance.Request{Command: singleinstance.CmdReply, Argument: arg}}
		loop.handleConn(context.Background(), conn)
	}
	if !engine.Empty() {
		t.Error("Expected overlay cleared after advancing past the last step")
	}
}

func TestStopCommandClearsOverlay(t *testing.T) {
	loop, engine := testLoop()
	engine.Load(twoStepSet())

	conn := &fakeConn{req: singleinstance.Request{Command: singleinstance.CmdStop}}
	loop.handleConn(context.Background(), conn)

	if !engine.Empty() {
		t.Error("Expected overlay cleared on stop")
	}
	if len(conn.success) != 1 {
		t.Errorf("Expected success response, got %+v", conn)
	}
}

func TestUnknownCommandRejected(t *testing.T) {
	loop, _ := testLoop()

	conn := &fakeConn{req: singleinstance.Request{Command: "BOGUS"}}
	loop.handleConn(context.Background(), conn)

	if len(conn.errors) != 1 {
		t.Errorf("Expected error response for unknown command, got %+v", conn)
	}
}

func TestReplyRejectedWhileAnalyzing(t *testing.T) {
	loop, engine := testLoop()
	engine.Load(twoStepSet())

	// A highlight in flight owns the coordinator on the pool goroutine;
	// candidate replies must wait rather than race it.
	loop.busy = true
	conn := &fakeConn{req: singleinstance.Request{Command: singleinstance.CmdReply, Argument: "1"}}
	loop.handleConn(context.Background(), conn)

	if len(conn.errors) != 1 || len(conn.success) != 0 {
		t.Errorf("Expected reply rejected while busy, got %+v", conn)
	}

	// Overlay step advance only touches the engine, which has its own
	// lock, so it stays available.
	next := &fakeConn{req: singleinstance.Request{Command: singleinstance.CmdReply, Argument: "next"}}
	loop.handleConn(context.Background(), next)
	if engine.CurrentStep() != 2 {
		t.Errorf("Expected next to advance while busy, got step %d", engine.CurrentStep())
	}
}

func TestStepRequestWhileBusyFailsSynchronously(t *testing.T) {
	loop, _ := testLoop()
	loop.busy = true

	var gotErr error
	called := 0
	loop.RequestStep(uuid.New(), "open settings", 1, nil, func(_ uuid.UUID, _ *llm.StepResult, err error) {
		called++
		gotErr = err
	})

	if called != 1 || gotErr == nil {
		t.Fatalf("Expected synchronous failure callback, called=%d err=%v", called, gotErr)
	}
	if !loop.busy {
		t.Error("Expected the in-flight request's busy flag left alone")
	}
}

func TestStepRequestQueueFullFailsSynchronously(t *testing.T) {
	loop, _ := testLoop()

	// Occupy the worker and the single queue slot so the next submit is
	// refused.
	started := make(chan struct{})
	release := make(chan struct{})
	loop.pool.Submit(context.Background(), func(ctx context.Context) {
		close(started)
		<-release
	})
	<-started
	loop.pool.Submit(context.Background(), func(ctx context.Context) {})
	defer close(release)

	var gotErr error
	loop.RequestStep(uuid.New(), "open settings", 1, nil, func(_ uuid.UUID, _ *llm.StepResult, err error) {
		gotErr = err
	})

	if gotErr == nil {
		t.Fatal("Expected failure when the analysis queue is full")
	}
	if loop.busy {
		t.Error("Expected busy cleared after refused submit")
	}
}

func TestReplyCancelForwardedToCoordinator(t *testing.T) {
	loop, _ := testLoop()

	conn := &fakeConn{req: singleinstance.Request{Command: singleinstance.CmdReply, Argument: "cancel"}}
	loop.handleConn(context.Background(), conn)

	if len(conn.success) != 1 {
		t.Errorf("Expected cancel reply accepted, got %+v", conn)
	}
}

func TestGuideRejectedWhileBusy(t *testing.T) {
	loop, _ := testLoop()
	loop.busy = true

	conn := &fakeConn{req: singleinstance.Request{Command: singleinstance.CmdGuide, Argument: "open settings"}}
	loop.handleConn(context.Background(), conn)

	if len(conn.errors) != 1 || len(conn.success) != 0 {
		t.Errorf("Expected guide rejected while busy, got %+v", conn)
	}
}
