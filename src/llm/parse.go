package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Vision models wrap JSON in code fences or surround it with prose no matter
// how firmly the prompt forbids it. Parsing is therefore two-stage: strict
// decode of the whole text first, then a best-effort scan for the first
// balanced JSON object. Malformed JSON is a reported error, never a panic.

// OverlayBox is one localization answer in image-pixel space.
type OverlayBox struct {
	Type   string `json:"type"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Color  string `json:"color"`
	Label  string `json:"label"`
}

type overlaysPayload struct {
	Overlays []OverlayBox `json:"overlays"`
}

// Selection is the model's pick among OCR candidates. Confidence gates
// acceptance; Padding is extra pixels added around the candidate box.
type Selection struct {
	OCRID      int     `json:"ocr_id"`
	Padding    int     `json:"padding"`
	Confidence float64 `json:"confidence"`
}

type selectionPayload struct {
	Selection *Selection `json:"selection"`
}

// ParseOverlays extracts the overlays payload from a response. An explicit
// empty list is a valid no-match result, distinct from a parse failure.
func ParseOverlays(text string) ([]OverlayBox, error) {
	raw, ok := ExtractJSON(text)
	if !ok {
		return nil, fmt.Errorf("no JSON object in localization response: %q", truncate(text, 120))
	}
	var payload overlaysPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("malformed localization response: %v", err)
	}
	return payload.Overlays, nil
}

// ParseSelection extracts the selection payload. A null selection decodes to
// nil, meaning "no confident pick".
func ParseSelection(text string) (*Selection, error) {
	raw, ok := ExtractJSON(text)
	if !ok {
		return nil, fmt.Errorf("no JSON object in selection response: %q", truncate(text, 120))
	}
	var payload selectionPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("malformed selection response: %v", err)
	}
	return payload.Selection, nil
}

// ExtractJSON returns the first balanced top-level JSON object in text,
// tolerating code fences and leading/trailing prose.
func ExtractJSON(text string) (string, bool) {
	text = stripFences(text)

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

func stripFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.Contains(trimmed, "```") {
		return trimmed
	}
	// Keep whatever sits between the first pair of fences; the language tag
	// on the opening fence is dropped with its line.
	first := strings.Index(trimmed, "```")
	rest := trimmed[first+3:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[nl+1:]
	}
	if end := strings.Index(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}
