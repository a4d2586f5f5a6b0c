package shape

import (
	"regexp"
	"strconv"
	"strings"

	"screen-assistant/src/geometry"
)

// The assistant can embed shape directives in otherwise free-form text:
//
//	SHAPE[type:rect, x:100, y:50, w:80, h:20, color:red, label:"Save", step:2]
//
// Every line is scanned for the pattern; matched directives are stripped from
// the text shown to the user and any missing field falls back to its default.
var (
	typeRe  = regexp.MustCompile(`\btype:\s*(rect|circle|arrow)`)
	xRe     = regexp.MustCompile(`\bx:\s*(-?\d+)`)
	yRe     = regexp.MustCompile(`\by:\s*(-?\d+)`)
	wRe     = regexp.MustCompile(`\bw:\s*(\d+)`)
	hRe     = regexp.MustCompile(`\bh:\s*(\d+)`)
	colorRe = regexp.MustCompile(`\bcolor:\s*([a-zA-Z]+)`)
	labelRe = regexp.MustCompile(`\blabel:\s*"([^"]*)"`)
	stepRe  = regexp.MustCompile(`\bstep:\s*(\d+)`)
)

const directivePrefix = "SHAPE["

// ParseDirectives extracts all shape directives from text. It returns the
// parsed shapes and the remaining display text with directives removed.
func ParseDirectives(text string) ([]Shape, string) {
	var shapes []Shape
	var kept []string

	for _, line := range strings.Split(text, "\n") {
		var rest strings.Builder
		found := 0
		pos := 0
		for {
			start, end, ok := findDirective(line, pos)
			if !ok {
				rest.WriteString(line[pos:])
				break
			}
			rest.WriteString(line[pos:start])
			shapes = append(shapes, parseDirective(line[start:end]))
			found++
			pos = end
		}
		remainder := strings.TrimSpace(rest.String())
		if remainder != "" || found == 0 {
			kept = append(kept, remainder)
		}
	}

	return shapes, strings.TrimSpace(strings.Join(kept, "\n"))
}

// findDirective locates the next directive in line starting at from. The
// closing bracket is matched outside quotes, so a quoted label may contain
// brackets. An unterminated directive is left in the text untouched.
func findDirective(line string, from int) (start, end int, ok bool) {
	idx := strings.Index(line[from:], directivePrefix)
	if idx < 0 {
		return 0, 0, false
	}
	start = from + idx
	inQuote := false
	for i := start + len(directivePrefix); i < len(line); i++ {
		switch line[i] {
		case '"':
			inQuote = !inQuote
		case ']':
			if !inQuote {
				return start, i + 1, true
			}
		}
	}
	return 0, 0, false
}

func parseDirective(directive string) Shape {
	s := Shape{
		Kind:  KindRect,
		Color: DefaultColor,
		Step:  1,
	}

	if m := typeRe.FindStringSubmatch(directive); m != nil {
		s.Kind = KindFromString(m[1])
	}
	if m := colorRe.FindStringSubmatch(directive); m != nil {
		s.Color = strings.ToLower(m[1])
	}
	if m := labelRe.FindStringSubmatch(directive); m != nil {
		s.Label = m[1]
	}
	if m := stepRe.FindStringSubmatch(directive); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			s.Step = n
		}
	}

	s.Rect = geometry.Rect{
		X:      intField(xRe, directive),
		Y:      intField(yRe, directive),
		Width:  intField(wRe, directive),
		Height: intField(hRe, directive),
	}

	s.Normalize()
	return s
}

func intField(re *regexp.Regexp, directive string) int {
	if m := re.FindStringSubmatch(directive); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	return 0
}
