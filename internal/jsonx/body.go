package jsonx

import (
	"bytes"
	"encoding/json"
)

// Decode parses body as a generic JSON document. The second return is
// false when the body is empty or not valid JSON; callers fall back to
// the raw bytes in that case rather than treating the response as
// malformed.
func Decode(body []byte) (any, bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, false
	}
	var payload any
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return nil, false
	}
	return payload, true
}

// Message extracts a human-readable error message from a decoded JSON
// payload. It looks for a "message" field first, then "exceptionMessage"
// (the shape emitted by the upstream APIs this library was written
// against). Returns false when neither is present as a non-empty string.
func Message(payload any) (string, bool) {
	obj, ok := payload.(map[string]any)
	if !ok {
		return "", false
	}
	for _, key := range []string{"message", "exceptionMessage"} {
		if raw, ok := obj[key]; ok {
			if s, ok := raw.(string); ok && s != "" {
				return s, true
			}
		}
	}
	return "", false
}
