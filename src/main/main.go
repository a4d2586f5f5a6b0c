package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"

	"screen-assistant/src/assistant"
	"screen-assistant/src/clipboard"
	"screen-assistant/src/config"
	"screen-assistant/src/eventloop"
	"screen-assistant/src/geometry"
	"screen-assistant/src/llm"
	"screen-assistant/src/logutil"
	"screen-assistant/src/ocr"
	"screen-assistant/src/overlay"
	"screen-assistant/src/popup"
	"screen-assistant/src/screenshot"
	"screen-assistant/src/singleinstance"
	"screen-assistant/src/status"
	"screen-assistant/src/tray"
)

// enableDPIAwareness attempts to set per-monitor DPI awareness on Windows to
// fix scaling issues.
func enableDPIAwareness() {
	if runtime.GOOS != "windows" {
		return
	}
	// Prefer per-monitor DPI awareness via Shcore.SetProcessDpiAwareness (Win 8.1+)
	shcore := syscall.NewLazyDLL("Shcore.dll")
	setProcessDpiAwareness := shcore.NewProc("SetProcessDpiAwareness")
	const PROCESS_PER_MONITOR_DPI_AWARE = 2
	if err := setProcessDpiAwareness.Find(); err == nil {
		_, _, _ = setProcessDpiAwareness.Call(uintptr(PROCESS_PER_MONITOR_DPI_AWARE))
		return
	}
	// Fallback: user32.SetProcessDPIAware (Vista+)
	user32 := syscall.NewLazyDLL("user32.dll")
	setProcessDPIAware := user32.NewProc("SetProcessDPIAware")
	if err := setProcessDPIAware.Find(); err == nil {
		_, _, _ = setProcessDPIAware.Call()
	}
}

func main() {
	// Ensure DPI awareness before creating any windows or querying metrics.
	enableDPIAwareness()

	// The overlay window requires the GUI loop to own the main thread.
	runtime.LockOSThread()

	highlightArg := flag.String("highlight", "", "Highlight a UI element and exit (delegates to resident)")
	guideArg := flag.String("guide", "", "Start guided navigation toward a goal (delegates to resident)")
	replyArg := flag.String("reply", "", "Answer a pending disambiguation prompt (delegates to resident)")
	stopFlag := flag.Bool("stop", false, "Stop guidance and clear the overlay (delegates to resident)")
	flag.Parse()

	// Delegation modes forward to an existing resident and exit.
	if cmd, arg := delegationCommand(*highlightArg, *guideArg, *replyArg, *stopFlag); cmd != "" {
		// Load .env early so SCREEN_ASSISTANT_PORT_* are applied before
		// the delegation scan.
		_, _ = config.Load()
		delegateAndExit(cmd, arg)
		return
	}

	_, _ = config.Load()
	// ---------- SINGLE-INSTANCE PRE-FLIGHT ----------
	startPort, _ := singleinstance.PortRange()
	addr := fmt.Sprintf("127.0.0.1:%d", startPort)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Printf("Pre-flight: port %d busy, resident already exists", startPort)
		fmt.Printf("screen-assistant is already running on port %d\n", startPort)
		os.Exit(1)
	}
	// We claimed the port; release it so the event loop can re-bind.
	_ = listener.Close()
	log.Printf("Pre-flight: port %d free, we are the resident", startPort)
	// ------------------------------------------------

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logutil.Setup(cfg.EnableFileLogging)

	if cfg.APIKey == "" {
		log.Fatalf("OPENROUTER_API_KEY is required. Please set it in your .env file.")
	}
	if cfg.Model == "" {
		log.Fatalf("MODEL is required. Please set it in your .env file.")
	}

	// Status feed first so retry/progress messages have somewhere to go.
	hub := status.NewHub()
	if err := hub.Start(cfg.StatusPort); err != nil {
		log.Printf("Status feed unavailable: %v", err)
	}
	defer hub.Close()
	popup.Init(hub)

	// Initialize the vision client and validate connectivity immediately.
	llm.Init(&llm.Config{
		APIKey:    cfg.APIKey,
		Model:     cfg.Model,
		Providers: cfg.Providers,
		OnRetry:   popup.NotifyRetry,
	})
	if err := llm.Ping(); err != nil {
		log.Fatalf("Startup check failed: %v. Please verify your API key and network connectivity.", err)
	}
	log.Printf("Vision model ping succeeded")

	screenshot.Init()
	if err := clipboard.Init(); err != nil {
		log.Fatalf("Failed to initialize clipboard: %v", err)
	}

	// Local OCR is optional: without it every highlight goes straight to
	// the vision fallback.
	var extractor assistant.Extractor
	engine, err := ocr.NewEngine()
	if err != nil {
		log.Printf("Local OCR unavailable, vision fallback only: %v", err)
	} else {
		extractor = engine
		defer engine.Close()
	}

	log.Printf("Screen Assistant initialized")
	log.Printf("Using model: %s (key %s)", cfg.Model, logutil.RedactKey(cfg.APIKey))
	log.Printf("Hotkey: %s", cfg.Hotkey)
	log.Printf("Poll interval: %ds, analyze deadline: %ds", cfg.PollIntervalSec, cfg.AnalyzeDeadlineSec)

	bounds := displayBounds()
	overlayEngine := overlay.NewEngine(bounds)

	fyneApp := fyneapp.New()
	surface := overlay.NewSurface(fyneApp, overlayEngine, bounds)

	coordinator := assistant.New(assistant.Config{
		FuzzyConfidence:     cfg.FuzzyConfidence,
		SelectionConfidence: cfg.SelectionConfidence,
		UndersizedRetries:   cfg.UndersizedRetries,
		MinBoxSize:          cfg.MinBoxSize,
	}, extractor, visionClient{}, overlayEngine, notifier{})

	loop := eventloop.New(cfg, coordinator, overlayEngine, surface)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go tray.Run(tray.Config{
		Tooltip: fmt.Sprintf("Screen Assistant - %s toggles edit mode", cfg.Hotkey),
		OnStopGuidance: func() {
			loop.Post(func() {
				loop.Navigator().Stop()
				overlayEngine.Clear()
			})
		},
		OnCopyInstruction: func() {
			loop.Post(func() {
				if text := loop.Navigator().Instruction(); text != "" {
					if err := clipboard.Write(text); err != nil {
						log.Printf("Clipboard write failed: %v", err)
					}
				}
			})
		},
		OnToggleEditMode: func(enabled bool) {
			loop.Post(func() { surface.SetEditMode(enabled) })
		},
		OnClearOverlay: func() {
			loop.Post(func() { overlayEngine.Clear() })
		},
		OnQuit: cancel,
	})
	defer tray.Quit()

	loop.StartHotkey(cfg.Hotkey)

	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
	}()

	go func() {
		if err := loop.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("event loop stopped: %v", err)
		}
		fyne.Do(func() { fyneApp.Quit() })
	}()

	surface.Run()
	fyneApp.Run()
	cancel()
	surface.Stop()
}

// visionClient adapts the package-level llm API to the coordinator's
// interface.
type visionClient struct{}

func (visionClient) Localize(imageData []byte, target string) ([]llm.OverlayBox, error) {
	return llm.Localize(imageData, target)
}

func (visionClient) LocalizeEnlarged(imageData []byte, target string) ([]llm.OverlayBox, error) {
	return llm.LocalizeEnlarged(imageData, target)
}

func (visionClient) SelectCandidate(imageData []byte, target string, candidates []llm.CandidateInfo) (*llm.Selection, error) {
	return llm.SelectCandidate(imageData, target, candidates)
}

type notifier struct{}

func (notifier) Notify(message string) { popup.Notify(message) }

func delegationCommand(highlightArg, guideArg, replyArg string, stop bool) (string, string) {
	switch {
	case stop:
		return singleinstance.CmdStop, ""
	case strings.TrimSpace(highlightArg) != "":
		return singleinstance.CmdHighlight, strings.TrimSpace(highlightArg)
	case strings.TrimSpace(guideArg) != "":
		return singleinstance.CmdGuide, strings.TrimSpace(guideArg)
	case strings.TrimSpace(replyArg) != "":
		return singleinstance.CmdReply, strings.TrimSpace(replyArg)
	}
	return "", ""
}

func delegateAndExit(command, argument string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := singleinstance.NewClient()
	delegated, text, err := client.Delegate(ctx, command, argument)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if !delegated {
		fmt.Fprintln(os.Stderr, "No resident assistant found; start screen-assistant first")
		os.Exit(1)
	}
	if text != "" {
		fmt.Println(text)
	}
}

// displayBounds reports the virtual-desktop size the overlay should cover.
func displayBounds() geometry.Size {
	if vb, err := screenshot.VirtualBounds(); err == nil {
		return geometry.Size{Width: vb.Dx(), Height: vb.Dy()}
	}
	// A blind default beats refusing to start on a headless check.
	return geometry.Size{Width: 1920, Height: 1080}
}
