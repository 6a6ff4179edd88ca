// Package jsonx extracts JSON payloads from noisy agent output.
//
// Agent CLIs wrap their structured replies in prose, markdown fences, and
// trailing commentary. ExtractJSONObject tolerates all of that and recovers
// the first complete top-level object.
package jsonx

import (
	"encoding/json"
	"strings"

	ixerrors "github.com/ixado/ixado/internal/errors"
)

// ExtractJSONObject returns the raw bytes of the first complete JSON object
// found in text.
//
// Three strategies are tried in order:
//  1. the whole input parses as a JSON object
//  2. a fenced ```json block contains a JSON object
//  3. a balanced-brace scan over the raw text, string-literal aware
//
// Returns ErrRecoveryContract when no object can be recovered.
func ExtractJSONObject(text string) ([]byte, error) {
	trimmed := strings.TrimSpace(text)
	if isObject(trimmed) {
		return []byte(trimmed), nil
	}

	if block, ok := fencedBlock(trimmed); ok && isObject(block) {
		return []byte(block), nil
	}

	if obj, ok := scanBalanced(trimmed); ok {
		return []byte(obj), nil
	}

	return nil, ixerrors.ErrRecoveryContract
}

func isObject(s string) bool {
	if !strings.HasPrefix(s, "{") {
		return false
	}
	var probe map[string]json.RawMessage
	return json.Unmarshal([]byte(s), &probe) == nil
}

// fencedBlock returns the contents of the first ```json fenced block.
func fencedBlock(s string) (string, bool) {
	const fence = "```json"
	start := strings.Index(s, fence)
	if start == -1 {
		return "", false
	}
	rest := s[start+len(fence):]
	end := strings.Index(rest, "```")
	if end == -1 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

// scanBalanced walks the text counting brace depth outside string literals
// and returns the first balanced top-level object that parses.
func scanBalanced(s string) (string, bool) {
	for start := strings.IndexByte(s, '{'); start != -1; {
		depth := 0
		inString := false
		escaped := false
		for i := start; i < len(s); i++ {
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
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					candidate := s[start : i+1]
					if isObject(candidate) {
						return candidate, true
					}
					// Malformed candidate, resume after this opener.
					i = len(s)
				}
			}
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next == -1 {
			return "", false
		}
		start += 1 + next
	}
	return "", false
}
