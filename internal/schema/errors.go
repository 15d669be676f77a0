package schema

import (
	"fmt"
	"strings"
)

// RowError describes one violation found while reducing edited rows.
type RowError struct {
	Index  int    `json:"index"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError aggregates every violation in an edited row set. The
// reduction collects all of them before failing, so the operator can fix the
// whole grid in one pass.
type ValidationError struct {
	Rows []RowError `json:"rows"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Rows))
	for i, re := range e.Rows {
		parts[i] = fmt.Sprintf("row %d: %s", re.Index, re.Reason)
	}
	return "schema validation failed: " + strings.Join(parts, "; ")
}
