// Package jsonx extracts JSON objects from LLM free-text responses. Model
// output is not guaranteed well-formed: objects arrive wrapped in prose,
// inside fenced code blocks, or with trailing commas. This is the most
// failure-prone boundary in the pipeline, so it lives in one small,
// independently tested utility.
package jsonx

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	fenceRe         = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	trailingComma   = regexp.MustCompile(`,\s*}`)
	trailingCommaSl = regexp.MustCompile(`,\s*]`)
)

// Extract locates the first JSON object in raw and returns it as valid JSON.
// It tries, in order: a fenced code block, the first balanced brace block,
// and a trailing-comma cleanup of either. Returns false when no parseable
// object can be recovered.
func Extract(raw string) (string, bool) {
	if m := fenceRe.FindStringSubmatch(raw); m != nil {
		if s, ok := sanitize(m[1]); ok {
			return s, true
		}
	}
	if obj, ok := balancedObject(raw); ok {
		if s, ok := sanitize(obj); ok {
			return s, true
		}
	}
	return "", false
}

// Unmarshal extracts the first JSON object from raw and decodes it into v.
func Unmarshal(raw string, v any) bool {
	s, ok := Extract(raw)
	if !ok {
		return false
	}
	return json.Unmarshal([]byte(s), v) == nil
}

// Affirmative is the last-resort heuristic for responses where no JSON object
// could be recovered: the response both names the key and contains an
// affirmative token.
func Affirmative(raw, key string) bool {
	lower := strings.ToLower(raw)
	return strings.Contains(lower, "true") && strings.Contains(lower, strings.ToLower(key))
}

// sanitize validates candidate JSON, fixing trailing commas if needed.
func sanitize(candidate string) (string, bool) {
	if json.Valid([]byte(candidate)) {
		return candidate, true
	}
	cleaned := trailingComma.ReplaceAllString(candidate, "}")
	cleaned = trailingCommaSl.ReplaceAllString(cleaned, "]")
	if json.Valid([]byte(cleaned)) {
		return cleaned, true
	}
	return "", false
}

// balancedObject scans for the first brace-balanced object, tracking string
// literals so braces inside values do not confuse the depth count.
func balancedObject(raw string) (string, bool) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return raw[start : i+1], true
				}
			}
		}
	}
	return "", false
}
