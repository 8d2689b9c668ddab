// Package llmjson extracts JSON from free-form LLM output.
//
// Model output is untrusted: it may be wrapped in Markdown fences, wrapped in
// an envelope object, or cut off mid-array when the token limit is reached.
// Nothing in this package panics on malformed input.
package llmjson

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	// ErrNotJSON signals output that does not start with an array or object.
	ErrNotJSON = errors.New("llm output is not json")
	// ErrUnrepairable signals output that stays invalid after truncation repair.
	ErrUnrepairable = errors.New("llm output could not be repaired")
)

// envelopeKeys are object fields models commonly wrap result arrays in.
var envelopeKeys = []string{"recommendations", "results", "dishes", "items", "data"}

// StripFences removes a surrounding Markdown code fence, with or without a language tag.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// drop the info string ("json", "JSON", ...)
		if !strings.ContainsAny(s[:nl], "[{") {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// Result describes how Elements were obtained.
type Result struct {
	Elements []json.RawMessage
	Repaired bool
}

// Elements parses text as a list of JSON values.
// Accepts a bare array, an envelope object holding an array, or a single object.
// When parsing fails, one repair pass closes a truncated array after its last
// complete element and parsing is retried.
func Elements(text string) (Result, error) {
	s := StripFences(text)
	if s == "" || (s[0] != '[' && s[0] != '{') {
		return Result{}, ErrNotJSON
	}

	elems, err := parseElements(s)
	if err == nil {
		return Result{Elements: elems}, nil
	}

	repaired, ok := RepairTruncated(s)
	if !ok {
		return Result{}, fmt.Errorf("%w: %w", ErrUnrepairable, err)
	}
	elems, rerr := parseElements(repaired)
	if rerr != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrUnrepairable, rerr)
	}
	return Result{Elements: elems, Repaired: true}, nil
}

// Object decodes the first JSON object found in text into v.
func Object(text string, v any) error {
	s := StripFences(text)
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return ErrNotJSON
	}
	if err := json.Unmarshal([]byte(s[start:end+1]), v); err != nil {
		return fmt.Errorf("decode object: %w", err)
	}
	return nil
}

func parseElements(s string) ([]json.RawMessage, error) {
	if s[0] == '[' {
		var elems []json.RawMessage
		if err := json.Unmarshal([]byte(s), &elems); err != nil {
			return nil, fmt.Errorf("decode array: %w", err)
		}
		return elems, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, fmt.Errorf("decode object: %w", err)
	}
	for _, k := range envelopeKeys {
		raw, ok := obj[k]
		if !ok {
			continue
		}
		var elems []json.RawMessage
		if err := json.Unmarshal(raw, &elems); err == nil {
			return elems, nil
		}
	}
	return []json.RawMessage{json.RawMessage(s)}, nil
}

// RepairTruncated cuts s after the last complete value nested directly in an
// array and closes every bracket still open at that point. Brackets inside
// string literals are ignored. Reports false when no such value exists or the
// brackets are mismatched.
func RepairTruncated(s string) (string, bool) {
	var (
		stack    []byte
		cutStack []byte
		cut      = -1
		inString bool
		escaped  bool
	)

	for i := 0; i < len(s); i++ {
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
		case '[', '{':
			stack = append(stack, c)
		case ']', '}':
			if len(stack) == 0 {
				return "", false
			}
			open := stack[len(stack)-1]
			if (c == ']') != (open == '[') {
				return "", false
			}
			stack = stack[:len(stack)-1]
			if len(stack) > 0 && stack[len(stack)-1] == '[' {
				cut = i
				cutStack = append(cutStack[:0], stack...)
			}
		}
	}

	if cut < 0 {
		return "", false
	}

	var b strings.Builder
	b.Grow(cut + 1 + len(cutStack))
	b.WriteString(s[:cut+1])
	for j := len(cutStack) - 1; j >= 0; j-- {
		if cutStack[j] == '[' {
			b.WriteByte(']')
		} else {
			b.WriteByte('}')
		}
	}
	return b.String(), true
}

// Preview shortens s to at most n bytes for log output, never splitting a rune.
func Preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
