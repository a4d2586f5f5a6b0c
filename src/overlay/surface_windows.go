//go:build windows

package overlay

import (
	"log"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver"

	"golang.org/x/sys/windows"
)

const (
	gwlExStyle      = -20
	wsExLayered     = 0x00080000
	wsExTransparent = 0x00000020
	wsExToolWindow  = 0x00000080
)

var (
	user32           = windows.NewLazySystemDLL("user32.dll")
	procGetWindowLng = user32.NewProc("GetWindowLongW")
	procSetWindowLng = user32.NewProc("SetWindowLongW")
)

// applyClickThrough marks the overlay window layered and input-transparent so
// clicks pass to the application underneath. Edit mode clears the transparent
// bit again via setClickThrough.
func applyClickThrough(win fyne.Window) {
	setClickThrough(win, true)
}

func setClickThrough(win fyne.Window, enabled bool) {
	native, ok := win.(driver.NativeWindow)
	if !ok {
		log.Printf("Overlay: window does not expose a native handle")
		return
	}
	native.RunNative(func(ctx any) {
		wc, ok := ctx.(driver.WindowsWindowContext)
		if !ok {
			return
		}
		hwnd := uintptr(wc.HWND)
		style, _, _ := procGetWindowLng.Call(hwnd, uintptr(gwlExStyle)&0xffffffff)
		style |= wsExLayered | wsExToolWindow
		if enabled {
			style |= wsExTransparent
		} else {
			style &^= wsExTransparent
		}
		if ret, _, err := procSetWindowLng.Call(hwnd, uintptr(gwlExStyle)&0xffffffff, style); ret == 0 {
			log.Printf("Overlay: SetWindowLong failed: %v", err)
		}
	})
}
