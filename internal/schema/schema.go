package schema

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DataType is the canonical lowercase token for a field's type
type DataType string

const (
	TypeString    DataType = "string"
	TypeInteger   DataType = "integer"
	TypeLong      DataType = "long"
	TypeDouble    DataType = "double"
	TypeFloat     DataType = "float"
	TypeBoolean   DataType = "boolean"
	TypeDate      DataType = "date"
	TypeTimestamp DataType = "timestamp"
	TypeDecimal   DataType = "decimal"
	TypeArray     DataType = "array"
	TypeStruct    DataType = "struct"
	TypeMap       DataType = "map"
)

var supportedTypes = []DataType{
	TypeString, TypeInteger, TypeLong, TypeDouble, TypeFloat, TypeBoolean,
	TypeDate, TypeTimestamp, TypeDecimal, TypeArray, TypeStruct, TypeMap,
}

// ParseDataType matches a type token case-insensitively and returns the
// canonical lowercase form.
func ParseDataType(s string) (DataType, error) {
	token := strings.ToLower(strings.TrimSpace(s))
	for _, dt := range supportedTypes {
		if string(dt) == token {
			return dt, nil
		}
	}
	return "", fmt.Errorf("unrecognized data type: %s", s)
}

// DataTypes returns the supported type tokens in display order, for the
// grid's data-type dropdown.
func DataTypes() []string {
	tokens := make([]string, len(supportedTypes))
	for i, dt := range supportedTypes {
		tokens[i] = string(dt)
	}
	return tokens
}

// Recognized metadata keys. These names are a persisted contract shared with
// the pipeline that consumes the configuration table.
const (
	metaSourceName       = "source_name"
	metaTargetName       = "target_name"
	metaIsPrimaryKey     = "is_primary_key"
	metaIsScdJoinKey     = "is_scd_join_key"
	metaIsScdSequenceKey = "is_scd_sequence_key"
	metaComment          = "comment"
)

// FieldMetadata is the metadata map of one field, split into the keys the
// editor understands plus everything else. Unrecognized entries are kept as
// raw JSON so they survive an edit/save cycle byte-for-byte.
type FieldMetadata struct {
	SourceName       string
	TargetName       string
	IsPrimaryKey     bool
	IsScdJoinKey     bool
	IsScdSequenceKey bool
	Comment          string
	Extra            map[string]json.RawMessage
}

// UnmarshalJSON decodes the metadata object, pulling recognized keys into
// typed fields and collecting the rest into Extra.
func (m *FieldMetadata) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode field metadata: %w", err)
	}

	*m = FieldMetadata{}
	for key, value := range raw {
		var err error
		switch key {
		case metaSourceName:
			err = json.Unmarshal(value, &m.SourceName)
		case metaTargetName:
			err = json.Unmarshal(value, &m.TargetName)
		case metaIsPrimaryKey:
			err = json.Unmarshal(value, &m.IsPrimaryKey)
		case metaIsScdJoinKey:
			err = json.Unmarshal(value, &m.IsScdJoinKey)
		case metaIsScdSequenceKey:
			err = json.Unmarshal(value, &m.IsScdSequenceKey)
		case metaComment:
			err = json.Unmarshal(value, &m.Comment)
		default:
			if m.Extra == nil {
				m.Extra = make(map[string]json.RawMessage)
			}
			m.Extra[key] = value
		}
		if err != nil {
			return fmt.Errorf("invalid metadata value for %q: %w", key, err)
		}
	}
	return nil
}

// MarshalJSON emits recognized keys plus the preserved extra entries. The
// three key-role flags are always written; source_name and comment are
// omitted when empty, matching what the pipeline expects.
func (m FieldMetadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(m.Extra)+6)
	for key, value := range m.Extra {
		out[key] = value
	}

	set := func(key string, value interface{}) error {
		encoded, err := json.Marshal(value)
		if err != nil {
			return err
		}
		out[key] = encoded
		return nil
	}

	if m.SourceName != "" {
		if err := set(metaSourceName, m.SourceName); err != nil {
			return nil, err
		}
	}
	if m.TargetName != "" {
		if err := set(metaTargetName, m.TargetName); err != nil {
			return nil, err
		}
	}
	if err := set(metaIsPrimaryKey, m.IsPrimaryKey); err != nil {
		return nil, err
	}
	if err := set(metaIsScdJoinKey, m.IsScdJoinKey); err != nil {
		return nil, err
	}
	if err := set(metaIsScdSequenceKey, m.IsScdSequenceKey); err != nil {
		return nil, err
	}
	if m.Comment != "" {
		if err := set(metaComment, m.Comment); err != nil {
			return nil, err
		}
	}

	return json.Marshal(out)
}

// FieldDescriptor is one field of the canonical schema document.
type FieldDescriptor struct {
	Name     string        `json:"name"`
	Type     DataType      `json:"type"`
	Nullable bool          `json:"nullable"`
	Metadata FieldMetadata `json:"metadata"`
}

// Document is the canonical schema representation persisted in the
// DataSchema column: an ordered list of field descriptors. Order is
// meaningful and matches display order.
type Document struct {
	Fields []FieldDescriptor `json:"fields"`
}

// ParseDocument parses the canonical JSON wire format. An empty or blank
// input yields an empty document, mirroring a table with no schema yet.
func ParseDocument(raw string) (Document, error) {
	if strings.TrimSpace(raw) == "" {
		return Document{}, nil
	}

	var doc Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return Document{}, fmt.Errorf("invalid schema document: %w", err)
	}
	return doc, nil
}

// Encode serializes the document into the canonical wire format.
func (d Document) Encode() (string, error) {
	fields := d.Fields
	if fields == nil {
		fields = []FieldDescriptor{}
	}
	encoded, err := json.Marshal(Document{Fields: fields})
	if err != nil {
		return "", fmt.Errorf("failed to encode schema document: %w", err)
	}
	return string(encoded), nil
}

// FieldNames returns the field names in document order.
func (d Document) FieldNames() []string {
	names := make([]string, 0, len(d.Fields))
	for _, f := range d.Fields {
		names = append(names, f.Name)
	}
	return names
}
