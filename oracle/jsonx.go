package oracle

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSON is returned when no parseable JSON value can be recovered from
// an oracle reply. Callers treat it as an extraction failure for that source,
// never as a fatal error.
var ErrNoJSON = errors.New("oracle: no parseable JSON in reply")

// ExtractJSON recovers the first JSON object or array embedded in free-form
// text. Oracle replies routinely wrap JSON in prose or markdown code fences;
// this strips fences, then scans for the first balanced {...} or [...] that
// unmarshals cleanly, and decodes it into v.
func ExtractJSON(reply string, v any) error {
	s := stripFences(reply)

	// Fast path: the whole reply is JSON.
	if err := json.Unmarshal([]byte(s), v); err == nil {
		return nil
	}

	for i := 0; i < len(s); i++ {
		open := s[i]
		if open != '{' && open != '[' {
			continue
		}
		if end := balancedEnd(s, i); end > i {
			if err := json.Unmarshal([]byte(s[i:end+1]), v); err == nil {
				return nil
			}
		}
	}
	return fmt.Errorf("%w: %.80q", ErrNoJSON, reply)
}

// stripFences removes ```json ... ``` markdown fencing if present.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// drop the language tag line ("json", "JSON", or empty)
		s = s[nl+1:]
	}
	if end := strings.LastIndex(s, "```"); end >= 0 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}

// balancedEnd returns the index of the bracket closing the one at start,
// or -1. String literals and escapes are honored so braces inside quoted
// values do not confuse the scan.
func balancedEnd(s string, start int) int {
	open := s[start]
	var close byte = '}'
	if open == '[' {
		close = ']'
	}
	depth := 0
	inString := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
