// Package tray puts the resident assistant in the system tray with the few
// controls that make sense outside the chat UI.
package tray

import (
	"log"

	"github.com/getlantern/systray"
)

// Config carries the menu callbacks. All callbacks run on the systray
// goroutine; handlers should hand work to the event loop, not do it inline.
type Config struct {
	Tooltip           string
	OnStopGuidance    func()
	OnCopyInstruction func()
	OnToggleEditMode  func(enabled bool)
	OnClearOverlay    func()
	OnQuit            func()
}

// Run starts the systray loop and blocks until Quit. Must be called from a
// dedicated goroutine or the main thread, per systray's requirements.
func Run(cfg Config) {
	systray.Run(func() { onReady(cfg) }, func() {
		log.Printf("Tray: exited")
	})
}

// Quit tears the tray down and unblocks Run.
func Quit() {
	systray.Quit()
}

func onReady(cfg Config) {
	systray.SetIcon(getIcon())
	systray.SetTitle("Screen Assistant")
	if cfg.Tooltip != "" {
		systray.SetTooltip(cfg.Tooltip)
	} else {
		systray.SetTooltip("Screen Assistant")
	}

	mStop := systray.AddMenuItem("Stop Guidance", "Abandon the current guided task")
	mCopy := systray.AddMenuItem("Copy Instruction", "Copy the current step's instruction")
	mEdit := systray.AddMenuItemCheckbox("Edit Overlay", "Drag and resize annotations", false)
	mClear := systray.AddMenuItem("Clear Overlay", "Remove all annotations")
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Quit the assistant")

	go func() {
		for {
			select {
			case <-mStop.ClickedCh:
				if cfg.OnStopGuidance != nil {
					cfg.OnStopGuidance()
				}
			case <-mCopy.ClickedCh:
				if cfg.OnCopyInstruction != nil {
					cfg.OnCopyInstruction()
				}
			case <-mEdit.ClickedCh:
				if mEdit.Checked() {
					mEdit.Uncheck()
				} else {
					mEdit.Check()
				}
				if cfg.OnToggleEditMode != nil {
					cfg.OnToggleEditMode(mEdit.Checked())
				}
			case <-mClear.ClickedCh:
				if cfg.OnClearOverlay != nil {
					cfg.OnClearOverlay()
				}
			case <-mQuit.ClickedCh:
				systray.Quit()
				if cfg.OnQuit != nil {
					cfg.OnQuit()
				}
				return
			}
		}
	}()
}
