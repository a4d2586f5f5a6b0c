// Package hotkey registers the assistant's global key chord. Detection is
// rawcode-based so it works regardless of keyboard layout.
package hotkey

import (
	"log"
	"strings"
	"sync"

	gohook "github.com/robotn/gohook"
)

// modifierCodes maps modifier names to their left and right virtual-key
// rawcodes.
var modifierCodes = map[string][]uint16{
	"ctrl":  {162, 163},
	"alt":   {164, 165},
	"shift": {160, 161},
	"cmd":   {91, 92},
}

// namedCodes covers the non-alphanumeric keys a chord is likely to use.
var namedCodes = map[string][]uint16{
	"space":  {32},
	"tab":    {9},
	"enter":  {13},
	"escape": {27},
	"esc":    {27},
	"f1":     {112},
	"f2":     {113},
	"f3":     {114},
	"f4":     {115},
	"f5":     {116},
	"f6":     {117},
	"f7":     {118},
	"f8":     {119},
	"f9":     {120},
	"f10":    {121},
	"f11":    {122},
	"f12":    {123},
}

// Rawcodes returns the virtual-key codes for one key name, or nil when the
// name is unknown. Letters and digits map to their VK codes directly.
func Rawcodes(keyName string) []uint16 {
	keyName = strings.ToLower(strings.TrimSpace(keyName))
	switch keyName {
	case "win", "super":
		keyName = "cmd"
	}
	if codes, ok := modifierCodes[keyName]; ok {
		return codes
	}
	if codes, ok := namedCodes[keyName]; ok {
		return codes
	}
	if len(keyName) == 1 {
		c := keyName[0]
		if c >= 'a' && c <= 'z' {
			return []uint16{uint16(c - 'a' + 'A')}
		}
		if c >= '0' && c <= '9' {
			return []uint16{uint16(c)}
		}
	}
	return nil
}

// Parse splits a chord like "Ctrl+Alt+g" into normalized key names.
func Parse(chord string) []string {
	var keys []string
	for _, part := range strings.Split(strings.ToLower(chord), "+") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		switch part {
		case "win", "super":
			part = "cmd"
		}
		keys = append(keys, part)
	}
	return keys
}

type keyState struct {
	name     string
	rawcodes []uint16
	pressed  bool
}

// Listen registers the chord and invokes callback each time every key in it
// is held simultaneously. The callback runs on the hook goroutine; it should
// post into the event loop rather than doing work inline.
func Listen(chord string, callback func()) {
	var states []keyState
	for _, name := range Parse(chord) {
		codes := Rawcodes(name)
		if codes == nil {
			log.Printf("Hotkey: unknown key %q in chord %q", name, chord)
			continue
		}
		states = append(states, keyState{name: name, rawcodes: codes})
	}
	if len(states) == 0 {
		log.Printf("Hotkey: no usable keys in chord %q, hotkey disabled", chord)
		return
	}
	log.Printf("Hotkey: listening for %s", chord)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Hotkey: PANIC in hook goroutine: %v", r)
			}
		}()

		evChan := gohook.Start()
		if evChan == nil {
			log.Printf("Hotkey: gohook.Start returned nil channel")
			return
		}

		var mu sync.Mutex
		for ev := range evChan {
			switch ev.Kind {
			case gohook.KeyDown:
				mu.Lock()
				mark(states, ev.Rawcode, true)
				if allPressed(states) {
					log.Printf("Hotkey: %s activated", chord)
					for i := range states {
						states[i].pressed = false
					}
					mu.Unlock()
					if callback != nil {
						callback()
					}
					continue
				}
				mu.Unlock()
			case gohook.KeyUp:
				mu.Lock()
				mark(states, ev.Rawcode, false)
				mu.Unlock()
			}
		}
		log.Printf("Hotkey: event channel closed")
	}()
}

func mark(states []keyState, rawcode uint16, pressed bool) {
	for i := range states {
		for _, code := range states[i].rawcodes {
			if code == rawcode {
				states[i].pressed = pressed
				return
			}
		}
	}
}

func allPressed(states []keyState) bool {
	for i := range states {
		if !states[i].pressed {
			return false
		}
	}
	return true
}
