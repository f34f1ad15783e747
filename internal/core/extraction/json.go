package extraction

import (
	"encoding/json"
	"errors"
	"strings"
)

var errNoJSONPayload = errors.New("no parseable JSON payload")

// JSONFormat recovers JSON from model text: whole-text parse, then the first
// complete balanced span, then the first fenced block.
type JSONFormat struct{}

func (JSONFormat) ContentType() string { return ContentTypeJSON }

func (JSONFormat) Parse(raw string, want Shape) (any, error) {
	text := strings.TrimSpace(trimBOM(raw))

	if out, ok := strictParse(text); ok {
		return out, nil
	}
	if out, ok := firstBalanced(text, want); ok {
		return out, nil
	}
	if inner, ok := firstFencedBlock(text); ok {
		if out, ok := strictParse(inner); ok {
			return out, nil
		}
	}
	return nil, errNoJSONPayload
}

func strictParse(s string) (any, bool) {
	if s == "" {
		return nil, false
	}
	var out any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, false
	}
	switch out.(type) {
	case map[string]any, []any:
		return out, true
	default:
		// Bare scalars are never a usable payload.
		return nil, false
	}
}

// firstBalanced returns the first balanced span that parses strictly.
// Openers are restricted by shape so prose like "[1]" ahead of an object is
// skipped. A candidate span is never searched for nested payloads: a span
// cut off by the end of the text ends the search, and a broken or
// unparseable one is skipped as a whole.
func firstBalanced(s string, want Shape) (any, bool) {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '{' && c != '[' {
			continue
		}
		end, state := balancedSpan(s, i)
		if want == ShapeObject && c != '{' {
			if state == spanClosed {
				i = end
			}
			continue
		}
		switch state {
		case spanTruncated:
			return nil, false
		case spanBroken:
			i = end
			continue
		}
		if out, ok := strictParse(s[i : end+1]); ok {
			return out, true
		}
		i = end
	}
	return nil, false
}

type spanState int

const (
	spanClosed spanState = iota
	spanTruncated
	spanBroken
)

// balancedSpan scans from start to the matching closer, ignoring brackets
// inside strings. end is the index of the closer, or of the mismatched one
// when the span is broken.
func balancedSpan(s string, start int) (int, spanState) {
	stack := []byte{s[start]}
	inString, escaped := false, false

	for i := start + 1; i < len(s); i++ {
		c := s[i]
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
		case '{', '[':
			stack = append(stack, c)
		case '}', ']':
			top := stack[len(stack)-1]
			if (top == '{' && c != '}') || (top == '[' && c != ']') {
				return i, spanBroken
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i, spanClosed
			}
		}
	}
	return len(s), spanTruncated
}

// firstFencedBlock returns the content between the first ``` (or ~~~) fence
// and the next matching one, with residual fence lines removed.
func firstFencedBlock(s string) (string, bool) {
	for _, fence := range []string{"```", "~~~"} {
		open := strings.Index(s, fence)
		if open < 0 {
			continue
		}
		rest := s[open+len(fence):]
		nl := strings.IndexByte(rest, '\n')
		if nl < 0 {
			continue
		}
		rest = rest[nl+1:]
		end := strings.Index(rest, fence)
		if end < 0 {
			continue
		}
		return stripFenceLines(rest[:end], fence), true
	}
	return "", false
}

func stripFenceLines(block, fence string) string {
	lines := strings.Split(block, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), fence) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func trimBOM(s string) string {
	return strings.TrimPrefix(s, "\uFEFF")
}
