package schema

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseDataType(t *testing.T) {
	cases := []struct {
		input string
		want  DataType
		ok    bool
	}{
		{"string", TypeString, true},
		{"STRING", TypeString, true},
		{" Timestamp ", TypeTimestamp, true},
		{"decimal", TypeDecimal, true},
		{"varchar", "", false},
		{"", "", false},
	}

	for _, tc := range cases {
		got, err := ParseDataType(tc.input)
		if tc.ok && (err != nil || got != tc.want) {
			t.Errorf("ParseDataType(%q) = %q, %v; want %q", tc.input, got, err, tc.want)
		}
		if !tc.ok && err == nil {
			t.Errorf("ParseDataType(%q) should fail", tc.input)
		}
	}
}

func TestParseDataTypeErrorNamesToken(t *testing.T) {
	_, err := ParseDataType("varchar")
	if err == nil || err.Error() != "unrecognized data type: varchar" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseDocumentEmpty(t *testing.T) {
	for _, raw := range []string{"", "   "} {
		doc, err := ParseDocument(raw)
		if err != nil {
			t.Errorf("ParseDocument(%q) failed: %v", raw, err)
		}
		if len(doc.Fields) != 0 {
			t.Errorf("ParseDocument(%q) should yield an empty document", raw)
		}
	}
}

func TestParseDocumentInvalid(t *testing.T) {
	if _, err := ParseDocument("not json"); err == nil {
		t.Error("expected error for malformed document")
	}
}

func TestMetadataRoundTripPreservesUnknownKeys(t *testing.T) {
	raw := `{"source_name":"SRC","target_name":"id","is_primary_key":true,"legacy_flag":"x","retention_days":30,"pii":false}`

	var meta FieldMetadata
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if meta.SourceName != "SRC" || meta.TargetName != "id" || !meta.IsPrimaryKey {
		t.Errorf("recognized keys not extracted: %+v", meta)
	}
	if len(meta.Extra) != 3 {
		t.Fatalf("expected 3 extra keys, got %v", meta.Extra)
	}

	encoded, err := json.Marshal(meta)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var out map[string]json.RawMessage
	if err := json.Unmarshal(encoded, &out); err != nil {
		t.Fatalf("re-unmarshal failed: %v", err)
	}
	if string(out["legacy_flag"]) != `"x"` {
		t.Errorf("legacy_flag = %s, want \"x\"", out["legacy_flag"])
	}
	if string(out["retention_days"]) != "30" {
		t.Errorf("retention_days = %s, want 30 (value must survive verbatim)", out["retention_days"])
	}
	if string(out["pii"]) != "false" {
		t.Errorf("pii = %s, want false", out["pii"])
	}
}

func TestMetadataMarshalOmitsEmptyOptionalKeys(t *testing.T) {
	encoded, err := json.Marshal(FieldMetadata{TargetName: "id"})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	s := string(encoded)
	if strings.Contains(s, "source_name") || strings.Contains(s, "comment") {
		t.Errorf("empty optional keys should be omitted: %s", s)
	}
	for _, key := range []string{"is_primary_key", "is_scd_join_key", "is_scd_sequence_key"} {
		if !strings.Contains(s, key) {
			t.Errorf("flag %s should always be written: %s", key, s)
		}
	}
}

func TestDocumentEncodeWireFormat(t *testing.T) {
	doc := Document{Fields: []FieldDescriptor{{
		Name:     "amt",
		Type:     TypeDouble,
		Nullable: true,
		Metadata: FieldMetadata{TargetName: "amt", IsPrimaryKey: true},
	}}}

	encoded, err := doc.Encode()
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	parsed, err := ParseDocument(encoded)
	if err != nil {
		t.Fatalf("re-parse failed: %v", err)
	}
	if len(parsed.Fields) != 1 || parsed.Fields[0].Name != "amt" || parsed.Fields[0].Type != TypeDouble {
		t.Errorf("round trip mismatch: %+v", parsed)
	}

	// Field names of the wire format are a persisted contract.
	for _, key := range []string{`"fields"`, `"name"`, `"type"`, `"nullable"`, `"metadata"`} {
		if !strings.Contains(encoded, key) {
			t.Errorf("encoded document missing %s: %s", key, encoded)
		}
	}
}

func TestDocumentEncodeEmpty(t *testing.T) {
	encoded, err := Document{}.Encode()
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if encoded != `{"fields":[]}` {
		t.Errorf("empty document = %s, want {\"fields\":[]}", encoded)
	}
}
