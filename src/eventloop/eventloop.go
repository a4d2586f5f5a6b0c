// Package eventloop is the single-threaded coordinator of the resident
// process. Every state mutation (coordinator, navigator, overlay engine)
// happens on the loop goroutine; slow work (OCR, vision calls) runs in the
// worker pool and posts a closure back into the loop.
package eventloop

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"screen-assistant/src/assistant"
	"screen-assistant/src/config"
	"screen-assistant/src/geometry"
	"screen-assistant/src/hotkey"
	"screen-assistant/src/llm"
	"screen-assistant/src/navigate"
	"screen-assistant/src/overlay"
	"screen-assistant/src/popup"
	"screen-assistant/src/screenshot"
	"screen-assistant/src/singleinstance"
	"screen-assistant/src/worker"
)

// EditModeToggler lets the loop flip overlay edit mode; the render surface
// implements it, with click-through handled per platform.
type EditModeToggler interface {
	SetEditMode(enabled bool)
}

// Loop owns the resident process's state machine.
type Loop struct {
	cfg         *config.Config
	coordinator *assistant.Coordinator
	navigator   *navigate.Navigator
	engine      *overlay.Engine
	surface     EditModeToggler
	hasher      screenshot.Hasher
	pool        *worker.Pool
	srv         singleinstance.Server

	// busy is true while a highlight or step request is in flight. Polls
	// that would start a new analysis are suppressed, never queued.
	busy     bool
	editMode bool

	results  chan func()
	hotkeyCh chan struct{}

	pollInterval time.Duration
	deadline     time.Duration
}

// New creates the loop. The navigator is constructed here because the loop
// itself is its step requester.
func New(cfg *config.Config, coordinator *assistant.Coordinator, engine *overlay.Engine, surface EditModeToggler) *Loop {
	pollSec := cfg.PollIntervalSec
	if pollSec <= 0 {
		pollSec = 3
	}
	deadlineSec := cfg.AnalyzeDeadlineSec
	if deadlineSec <= 0 {
		deadlineSec = 45
	}

	l := &Loop{
		cfg:          cfg,
		coordinator:  coordinator,
		engine:       engine,
		surface:      surface,
		hasher:       screenshot.NewHasher(),
		pool:         worker.New(1),
		results:      make(chan func(), 4),
		hotkeyCh:     make(chan struct{}, 4),
		pollInterval: time.Duration(pollSec) * time.Second,
		deadline:     time.Duration(deadlineSec) * time.Second,
	}
	l.navigator = navigate.New(l, engine, popupNotifier{})
	return l
}

// popupNotifier routes navigator messages onto the shared popup surface.
type popupNotifier struct{}

func (popupNotifier) Notify(msg string) { popup.Notify(msg) }

func (popupNotifier) NotifyStep(step, total int, instruction string) {
	popup.NotifyStep(step, total, instruction)
}

func (popupNotifier) NotifyComplete() { popup.NotifyComplete() }

// Navigator exposes the guided-navigation state machine, mainly for the
// tray's stop and copy-instruction actions.
func (l *Loop) Navigator() *navigate.Navigator { return l.navigator }

// StartHotkey registers the global chord that toggles overlay edit mode.
func (l *Loop) StartHotkey(chord string) {
	if chord == "" {
		return
	}
	hotkey.Listen(chord, func() {
		select {
		case l.hotkeyCh <- struct{}{}:
		default:
		}
	})
}

// Run starts the singleinstance server and processes commands, polls, and
// results until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	l.srv = singleinstance.NewServer()
	if err := l.srv.Start(ctx); err != nil {
		return err
	}
	if p := l.srv.Port(); p > 0 {
		log.Printf("Resident listening on 127.0.0.1:%d", p)
	}
	defer l.pool.Close()

	reqCh := make(chan singleinstance.Conn, 4)
	go func() {
		for {
			conn, err := l.srv.Next(ctx)
			if err != nil {
				close(reqCh)
				return
			}
			reqCh <- conn
		}
	}()

	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.handlePoll()
		case <-l.hotkeyCh:
			l.toggleEditMode()
		case conn, ok := <-reqCh:
			if !ok {
				return nil
			}
			l.handleConn(ctx, conn)
		case fn := <-l.results:
			fn()
		}
	}
}

// Post schedules fn onto the loop goroutine. Used by tray callbacks.
func (l *Loop) Post(fn func()) {
	select {
	case l.results <- fn:
	default:
		// Loop backlogged; run rather than drop, accepting the race.
		go fn()
	}
}

// handlePoll drives guided navigation: capture, hash, feed the navigator.
// Capture failures are logged and skipped; the next tick tries again.
func (l *Loop) handlePoll() {
	if !l.navigator.Active() {
		return
	}
	if l.busy {
		// Never start a new analysis on top of one in flight.
		return
	}
	png, img, err := screenshot.CapturePNG()
	if err != nil {
		log.Printf("Poll: capture failed: %v", err)
		return
	}
	hash := l.hasher.Hash(img)
	l.navigator.OnPoll(hash, png)
}

func (l *Loop) toggleEditMode() {
	l.editMode = !l.editMode
	log.Printf("Edit mode: %v", l.editMode)
	if l.surface != nil {
		l.surface.SetEditMode(l.editMode)
	} else {
		l.engine.SetEditMode(l.editMode)
	}
	if l.editMode {
		popup.Notify("Overlay edit mode on: drag to move, scroll to resize")
	} else {
		popup.Notify("Overlay edit mode off")
	}
}

// handleConn dispatches one delegated command. The response is sent before
// slow work completes for HIGHLIGHT and GUIDE; the overlay is the real
// output surface, the CLI just needs an acknowledgement.
func (l *Loop) handleConn(ctx context.Context, conn singleinstance.Conn) {
	req := conn.Request()
	switch req.Command {
	case singleinstance.CmdHighlight:
		l.startHighlight(ctx, conn, req.Argument)
	case singleinstance.CmdGuide:
		l.startGuide(ctx, conn, req.Argument)
	case singleinstance.CmdReply:
		if strings.EqualFold(strings.TrimSpace(req.Argument), "next") {
			l.engine.AdvanceStep()
			_ = conn.RespondSuccess("")
			_ = conn.Close()
			return
		}
		// The coordinator runs on the pool goroutine while an analysis is
		// in flight; replies must not touch it until that finishes.
		if l.busy {
			_ = conn.RespondError("busy, please retry")
			_ = conn.Close()
			return
		}
		if err := l.coordinator.HandleReply(req.Argument); err != nil {
			_ = conn.RespondError(err.Error())
		} else {
			_ = conn.RespondSuccess("")
		}
		_ = conn.Close()
	case singleinstance.CmdStop:
		l.navigator.Stop()
		l.engine.Clear()
		_ = conn.RespondSuccess("stopped")
		_ = conn.Close()
	default:
		_ = conn.RespondError(fmt.Sprintf("unsupported command %q", req.Command))
		_ = conn.Close()
	}
}

func (l *Loop) startHighlight(ctx context.Context, conn singleinstance.Conn, target string) {
	if l.busy {
		_ = conn.RespondError("busy, please retry")
		_ = conn.Close()
		return
	}
	frame, _, err := l.captureFrame()
	if err != nil {
		_ = conn.RespondError(fmt.Sprintf("capture failed: %v", err))
		_ = conn.Close()
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, l.deadline)
	l.busy = true
	submitted := l.pool.Submit(jobCtx, func(taskCtx context.Context) {
		err := l.coordinator.Highlight(target, frame)
		l.results <- func() {
			l.busy = false
			cancel()
			if err != nil {
				log.Printf("Highlight failed: %v", err)
				popup.NotifyError(fmt.Sprintf("Highlight failed: %v", err))
			}
		}
	})
	if !submitted {
		cancel()
		l.busy = false
		_ = conn.RespondError("busy, please retry")
		_ = conn.Close()
		return
	}
	_ = conn.RespondSuccess(fmt.Sprintf("highlighting %q", target))
	_ = conn.Close()
}

func (l *Loop) startGuide(ctx context.Context, conn singleinstance.Conn, goal string) {
	if l.busy {
		_ = conn.RespondError("busy, please retry")
		_ = conn.Close()
		return
	}
	png, img, err := screenshot.CapturePNG()
	if err != nil {
		_ = conn.RespondError(fmt.Sprintf("capture failed: %v", err))
		_ = conn.Close()
		return
	}
	if err := l.navigator.Start(goal, l.hasher.Hash(img), png); err != nil {
		_ = conn.RespondError(err.Error())
		_ = conn.Close()
		return
	}
	_ = conn.RespondSuccess(fmt.Sprintf("guiding toward %q", goal))
	_ = conn.Close()
}

// RequestStep implements navigate.Requester: the vision call runs in the
// worker pool and its result is posted back onto the loop goroutine. Shape
// coordinates are mapped from image space to display space before the
// navigator sees them.
func (l *Loop) RequestStep(sessionID uuid.UUID, goal string, step int, imageData []byte, done func(uuid.UUID, *llm.StepResult, error)) {
	// Callers are on the loop goroutine, so failures report synchronously;
	// posting into l.results here could deadlock the loop against itself.
	if l.busy {
		done(sessionID, nil, fmt.Errorf("analysis already in flight"))
		return
	}
	l.busy = true
	submitted := l.pool.Submit(context.Background(), func(taskCtx context.Context) {
		result, err := llm.NextStep(imageData, goal, step)
		if err == nil && result != nil && !result.Complete {
			l.mapStepShapes(result, imageData)
		}
		l.results <- func() {
			l.busy = false
			done(sessionID, result, err)
			// Re-baseline the change hash with the annotations visible so
			// the overlay's own appearance never counts as user action.
			if l.navigator.State() == navigate.StepShown {
				if img, err := screenshot.Capture(); err == nil {
					l.navigator.RecordShownHash(l.hasher.Hash(img))
				}
			}
		}
	})
	if !submitted {
		l.busy = false
		done(sessionID, nil, fmt.Errorf("analysis queue full"))
	}
}

// mapStepShapes rescales step-annotation rectangles from the captured
// image's pixel space into display space.
func (l *Loop) mapStepShapes(result *llm.StepResult, imageData []byte) {
	pngCfg, err := png.DecodeConfig(bytes.NewReader(imageData))
	if err != nil {
		log.Printf("Step: could not read capture dimensions: %v", err)
		return
	}
	imageSize := geometry.Size{Width: pngCfg.Width, Height: pngCfg.Height}
	displaySize := imageSize
	if vb, err := screenshot.VirtualBounds(); err == nil {
		displaySize = geometry.Size{Width: vb.Dx(), Height: vb.Dy()}
	}
	minSize := l.cfg.MinBoxSize
	if minSize <= 0 {
		minSize = 12
	}
	for i := range result.Shapes {
		result.Shapes[i].Rect = geometry.MapToDisplay(result.Shapes[i].Rect, imageSize, displaySize, minSize)
	}
}

// captureFrame grabs the virtual desktop once and packages it for the
// highlight pipeline.
func (l *Loop) captureFrame() (*assistant.Frame, uint64, error) {
	png, img, err := screenshot.CapturePNG()
	if err != nil {
		return nil, 0, err
	}
	bounds := img.Bounds()
	displaySize := geometry.Size{Width: bounds.Dx(), Height: bounds.Dy()}
	if vb, err := screenshot.VirtualBounds(); err == nil {
		displaySize = geometry.Size{Width: vb.Dx(), Height: vb.Dy()}
	}
	return &assistant.Frame{
		Image:       img,
		PNG:         png,
		ImageSize:   geometry.Size{Width: bounds.Dx(), Height: bounds.Dy()},
		DisplaySize: displaySize,
	}, l.hasher.Hash(img), nil
}
