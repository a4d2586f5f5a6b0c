package llm

import "testing"

func TestParseOverlaysPlain(t *testing.T) {
	text := `{"overlays":[{"type":"rect","x":10,"y":20,"width":100,"height":40,"color":"red","label":"Save"}]}`
	boxes, err := ParseOverlays(text)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(boxes) != 1 {
		t.Fatalf("Expected 1 box, got %d", len(boxes))
	}
	b := boxes[0]
	if b.Type != "rect" || b.X != 10 || b.Y != 20 || b.Width != 100 || b.Height != 40 {
		t.Errorf("Unexpected box: %+v", b)
	}
}

func TestParseOverlaysFenced(t *testing.T) {
	text := "Here is the result:\n```json\n{\"overlays\":[{\"type\":\"circle\",\"x\":1,\"y\":2,\"width\":3,\"height\":4}]}\n```\nHope that helps!"
	boxes, err := ParseOverlays(text)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(boxes) != 1 || boxes[0].Type != "circle" {
		t.Errorf("Expected fenced JSON parsed, got %v", boxes)
	}
}

func TestParseOverlaysEmptyIsNoMatch(t *testing.T) {
	boxes, err := ParseOverlays(`{"overlays":[]}`)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(boxes) != 0 {
		t.Errorf("Expected empty overlay list, got %v", boxes)
	}
}

func TestParseOverlaysMalformed(t *testing.T) {
	if _, err := ParseOverlays(`{"overlays":[{`); err == nil {
		t.Errorf("Expected error for truncated JSON")
	}
	if _, err := ParseOverlays("no json here at all"); err == nil {
		t.Errorf("Expected error for missing JSON")
	}
}

func TestParseSelection(t *testing.T) {
	sel, err := ParseSelection(`{"selection":{"ocr_id":3,"padding":4,"confidence":0.85}}`)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if sel == nil || sel.OCRID != 3 || sel.Padding != 4 || sel.Confidence != 0.85 {
		t.Errorf("Unexpected selection: %+v", sel)
	}
}

func TestParseSelectionNull(t *testing.T) {
	sel, err := ParseSelection(`{"selection":null}`)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if sel != nil {
		t.Errorf("Expected nil selection, got %+v", sel)
	}
}

func TestExtractJSONWithProse(t *testing.T) {
	raw, ok := ExtractJSON(`Sure! The answer is {"a":{"b":"c}"}} as requested.`)
	if !ok {
		t.Fatal("Expected JSON found")
	}
	if raw != `{"a":{"b":"c}"}}` {
		t.Errorf("Expected balanced object with brace-in-string handled, got %q", raw)
	}
}

func TestExtractJSONNone(t *testing.T) {
	if _, ok := ExtractJSON("nothing here"); ok {
		t.Errorf("Expected no JSON found")
	}
}
