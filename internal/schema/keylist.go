package schema

import (
	"encoding/json"
	"strings"
)

// ParseKeyList parses a persisted key-list column. Historical rows stored
// the lists either as a JSON array of strings or as a comma-separated
// string, so both are accepted; entries are trimmed and empties dropped.
// Malformed JSON falls back to comma splitting rather than failing a read.
func ParseKeyList(raw string) []string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return []string{}
	}

	var values []string
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal([]byte(trimmed), &values); err != nil {
			values = strings.Split(trimmed, ",")
		}
	} else {
		values = strings.Split(trimmed, ",")
	}

	keys := make([]string, 0, len(values))
	for _, v := range values {
		if key := strings.TrimSpace(v); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

// EncodeKeyList serializes a key list in the canonical form written on
// every save: a JSON array of strings, "[]" when empty.
func EncodeKeyList(keys []string) string {
	if keys == nil {
		keys = []string{}
	}
	// json.Marshal of a []string cannot fail.
	encoded, _ := json.Marshal(keys)
	return string(encoded)
}
