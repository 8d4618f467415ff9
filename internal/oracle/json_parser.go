package oracle

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Pre-compiled patterns. Model output wraps JSON in code fences, prepends
// prose, or leaves trailing commas often enough that a bare json.Unmarshal
// is the exception rather than the rule.
var (
	codeFenceRegex     = regexp.MustCompile("(?s)```(?:json)?\\s*\n?([\\s\\S]*?)\n?```")
	trailingCommaRegex = regexp.MustCompile(`,(\s*[}\]])`)
	objectRegex        = regexp.MustCompile(`(?s)\{[\s\S]*\}`)
	arrayRegex         = regexp.MustCompile(`(?s)\[[\s\S]*\]`)
)

// ExtractJSON pulls the first JSON object or array out of raw model output.
//
// Strategy sequence:
//  1. Direct parse of the trimmed text
//  2. Strip code fences and retry
//  3. Extract the outermost {...} or [...] from mixed content
//  4. Remove trailing commas and retry
//
// Returns the raw payload and true on success.
func ExtractJSON(text string) (json.RawMessage, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, false
	}

	if payload, ok := tryParse(trimmed); ok {
		return payload, true
	}

	if m := codeFenceRegex.FindStringSubmatch(trimmed); m != nil {
		if payload, ok := tryParse(strings.TrimSpace(m[1])); ok {
			return payload, true
		}
		// Fall through with the fenced content as the new candidate
		trimmed = strings.TrimSpace(m[1])
	}

	candidate := ""
	if m := objectRegex.FindString(trimmed); m != "" {
		candidate = m
	} else if m := arrayRegex.FindString(trimmed); m != "" {
		candidate = m
	}
	if candidate != "" {
		if payload, ok := tryParse(candidate); ok {
			return payload, true
		}
		cleaned := trailingCommaRegex.ReplaceAllString(candidate, "$1")
		if payload, ok := tryParse(cleaned); ok {
			return payload, true
		}
	}

	return nil, false
}

// tryParse accepts only top-level objects and arrays; bare strings and
// numbers are valid JSON but never a structured oracle payload.
func tryParse(text string) (json.RawMessage, bool) {
	if text == "" {
		return nil, false
	}
	if text[0] != '{' && text[0] != '[' {
		return nil, false
	}
	if !json.Valid([]byte(text)) {
		return nil, false
	}
	return json.RawMessage(text), true
}
