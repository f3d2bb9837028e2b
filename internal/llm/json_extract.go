package llm

import (
	"encoding/json"
	"strings"
)

// ExtractJSONObject cuts the outermost JSON object out of a model answer that may be
// wrapped in prose or a markdown fence. The input is returned trimmed when no
// object can be found.
func ExtractJSONObject(s string) string {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return raw
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return raw
	}
	candidate := raw[start : end+1]
	if json.Valid([]byte(candidate)) {
		return candidate
	}

	// trailing prose may contain braces; fall back to the first balanced object
	dec := json.NewDecoder(strings.NewReader(raw[start:]))
	var obj json.RawMessage
	if err := dec.Decode(&obj); err == nil {
		return string(obj)
	}
	return candidate
}
