//go:build !windows

package overlay

import "fyne.io/fyne/v2"

// applyClickThrough is a no-op outside Windows. Compositors that support
// input regions handle pass-through at the window-manager level.
func applyClickThrough(win fyne.Window) {}

func setClickThrough(win fyne.Window, enabled bool) {}
