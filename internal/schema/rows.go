package schema

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// EditableRow is the flattened, grid-facing view of one field descriptor.
// It exists only for the duration of an editing session and is always
// reduced back to a FieldDescriptor before anything is persisted.
type EditableRow struct {
	SourceName       string `json:"sourceName"`
	TargetName       string `json:"targetName"`
	DataType         string `json:"dataType"`
	Nullable         bool   `json:"nullable"`
	IsPrimaryKey     bool   `json:"isPrimaryKey"`
	IsScdJoinKey     bool   `json:"isScdJoinKey"`
	IsScdSequenceKey bool   `json:"isScdSequenceKey"`
	Comment          string `json:"comment"`
}

// ToEditableRows projects a schema document onto grid rows, one per field,
// in document order. The projection is pure: no field is dropped or
// duplicated, and an empty document yields an empty slice.
func ToEditableRows(doc Document) []EditableRow {
	rows := make([]EditableRow, 0, len(doc.Fields))
	for _, field := range doc.Fields {
		row := EditableRow{
			SourceName:       field.Metadata.SourceName,
			TargetName:       field.Metadata.TargetName,
			DataType:         string(field.Type),
			Nullable:         field.Nullable,
			IsPrimaryKey:     field.Metadata.IsPrimaryKey,
			IsScdJoinKey:     field.Metadata.IsScdJoinKey,
			IsScdSequenceKey: field.Metadata.IsScdSequenceKey,
			Comment:          field.Metadata.Comment,
		}
		if row.SourceName == "" {
			row.SourceName = field.Name
		}
		if row.TargetName == "" {
			row.TargetName = field.Name
		}
		rows = append(rows, row)
	}
	return rows
}

// Reduction is the result of folding edited rows back into canonical form:
// the rebuilt document plus the three key lists derived wholesale from the
// per-row flags. Recomputing the lists on every reduction is what keeps them
// from drifting away from the flags.
type Reduction struct {
	Document        Document
	PrimaryKeys     []string
	ScdJoinKeys     []string
	ScdSequenceKeys []string
}

// FromEditableRows validates and reduces edited rows into a Reduction.
//
// Validation runs over the whole row set before any output is produced: an
// empty target name, an unrecognized data type, or a duplicated target name
// each contribute a RowError, and a single violation fails the entire
// reduction so partial schemas are never persisted.
//
// Unrecognized metadata entries are carried over from the original document
// by position; rows beyond the original field count (added in the grid)
// start with no extra metadata.
func FromEditableRows(rows []EditableRow, original Document) (Reduction, error) {
	var rowErrs []RowError

	targets := make([]string, len(rows))
	types := make([]DataType, len(rows))
	for i, row := range rows {
		targets[i] = strings.TrimSpace(row.TargetName)
		if targets[i] == "" {
			rowErrs = append(rowErrs, RowError{Index: i, Field: "targetName", Reason: "target name is empty"})
		}

		dt, err := ParseDataType(row.DataType)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Index: i, Field: "dataType", Reason: err.Error()})
			continue
		}
		types[i] = dt
	}

	seen := make(map[string][]int, len(rows))
	for i, target := range targets {
		if target == "" {
			continue
		}
		seen[target] = append(seen[target], i)
	}
	for target, indices := range seen {
		if len(indices) < 2 {
			continue
		}
		for _, i := range indices {
			rowErrs = append(rowErrs, RowError{
				Index:  i,
				Field:  "targetName",
				Reason: fmt.Sprintf("duplicate target name: %s", target),
			})
		}
	}

	if len(rowErrs) > 0 {
		sort.Slice(rowErrs, func(a, b int) bool {
			if rowErrs[a].Index != rowErrs[b].Index {
				return rowErrs[a].Index < rowErrs[b].Index
			}
			return rowErrs[a].Reason < rowErrs[b].Reason
		})
		return Reduction{}, &ValidationError{Rows: rowErrs}
	}

	reduction := Reduction{
		Document:        Document{Fields: make([]FieldDescriptor, 0, len(rows))},
		PrimaryKeys:     []string{},
		ScdJoinKeys:     []string{},
		ScdSequenceKeys: []string{},
	}

	for i, row := range rows {
		metadata := FieldMetadata{
			SourceName:       strings.TrimSpace(row.SourceName),
			TargetName:       targets[i],
			IsPrimaryKey:     row.IsPrimaryKey,
			IsScdJoinKey:     row.IsScdJoinKey,
			IsScdSequenceKey: row.IsScdSequenceKey,
			Comment:          row.Comment,
		}
		if i < len(original.Fields) {
			metadata.Extra = copyRaw(original.Fields[i].Metadata.Extra)
		}

		reduction.Document.Fields = append(reduction.Document.Fields, FieldDescriptor{
			Name:     targets[i],
			Type:     types[i],
			Nullable: row.Nullable,
			Metadata: metadata,
		})

		if row.IsPrimaryKey {
			reduction.PrimaryKeys = append(reduction.PrimaryKeys, targets[i])
		}
		if row.IsScdJoinKey {
			reduction.ScdJoinKeys = append(reduction.ScdJoinKeys, targets[i])
		}
		if row.IsScdSequenceKey {
			reduction.ScdSequenceKeys = append(reduction.ScdSequenceKeys, targets[i])
		}
	}

	return reduction, nil
}

// FlagDrift records a disagreement, observed at load time, between a field's
// metadata flag and the separately stored key-list column.
type FlagDrift struct {
	Field        string `json:"field"`
	Flag         string `json:"flag"`
	MetadataFlag bool   `json:"metadataFlag"`
	KeyList      bool   `json:"keyList"`
}

// ApplyKeyLists reconciles grid rows with the key-list columns read from
// storage. The stored lists win for display; every disagreement with the
// metadata-derived flags is reported so the operator can see the drift
// before saving (a save rewrites both sides from the grid, which resolves
// it).
func ApplyKeyLists(rows []EditableRow, primaryKeys, scdJoinKeys, scdSequenceKeys []string) ([]EditableRow, []FlagDrift) {
	pk := toSet(primaryKeys)
	join := toSet(scdJoinKeys)
	seq := toSet(scdSequenceKeys)

	out := make([]EditableRow, len(rows))
	var drift []FlagDrift
	for i, row := range rows {
		applied := row
		applied.IsPrimaryKey = pk[row.TargetName]
		applied.IsScdJoinKey = join[row.TargetName]
		applied.IsScdSequenceKey = seq[row.TargetName]

		if row.IsPrimaryKey != applied.IsPrimaryKey {
			drift = append(drift, FlagDrift{Field: row.TargetName, Flag: metaIsPrimaryKey, MetadataFlag: row.IsPrimaryKey, KeyList: applied.IsPrimaryKey})
		}
		if row.IsScdJoinKey != applied.IsScdJoinKey {
			drift = append(drift, FlagDrift{Field: row.TargetName, Flag: metaIsScdJoinKey, MetadataFlag: row.IsScdJoinKey, KeyList: applied.IsScdJoinKey})
		}
		if row.IsScdSequenceKey != applied.IsScdSequenceKey {
			drift = append(drift, FlagDrift{Field: row.TargetName, Flag: metaIsScdSequenceKey, MetadataFlag: row.IsScdSequenceKey, KeyList: applied.IsScdSequenceKey})
		}
		out[i] = applied
	}
	return out, drift
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

func copyRaw(src map[string]json.RawMessage) map[string]json.RawMessage {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]json.RawMessage, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
