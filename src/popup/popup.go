// Package popup is the user-facing message surface: every notification goes
// to the log and onto the websocket status feed, where the companion UI
// renders it as a toast or chat line.
package popup

import (
	"log"
	"time"

	"screen-assistant/src/status"
)

var hub *status.Hub

// Init wires the popup layer to the status feed. A nil hub leaves messages
// log-only, which is the degraded mode when the feed port is taken.
func Init(h *status.Hub) {
	hub = h
}

// Notify shows a user-visible informational message.
func Notify(text string) {
	log.Printf("Popup: %s", truncateForLog(text, 120))
	publish(status.Event{Kind: status.KindInfo, Message: text})
}

// NotifyError shows a user-visible error message.
func NotifyError(text string) {
	log.Printf("Popup: ERROR: %s", truncateForLog(text, 120))
	publish(status.Event{Kind: status.KindError, Message: text})
}

// NotifyStep announces a guided-navigation step.
func NotifyStep(step, total int, instruction string) {
	log.Printf("Popup: step %d/%d: %s", step, total, truncateForLog(instruction, 120))
	publish(status.Event{Kind: status.KindStep, Message: instruction, Step: step, Total: total})
}

// NotifyComplete announces guided-navigation completion.
func NotifyComplete() {
	log.Printf("Popup: task complete")
	publish(status.Event{Kind: status.KindComplete, Message: "Task complete!"})
}

// NotifyRetry surfaces a model-busy retry so the user knows the assistant is
// waiting, not stuck.
func NotifyRetry(attempt int, wait time.Duration) {
	log.Printf("Popup: model busy, retry %d in %s", attempt, wait)
	publish(status.Event{Kind: status.KindRetry, Message: "Model busy, retrying...", Step: attempt})
}

func publish(ev status.Event) {
	if hub != nil {
		hub.Publish(ev)
	}
}

func truncateForLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
