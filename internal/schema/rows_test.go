package schema

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func mustParse(t *testing.T, raw string) Document {
	t.Helper()
	doc, err := ParseDocument(raw)
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}
	return doc
}

func TestToEditableRowsDefaults(t *testing.T) {
	doc := mustParse(t, `{"fields":[{"name":"amt","type":"double","nullable":true,"metadata":{"is_primary_key":true}}]}`)

	rows := ToEditableRows(doc)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}

	expected := EditableRow{
		SourceName:   "amt",
		TargetName:   "amt",
		DataType:     "double",
		Nullable:     true,
		IsPrimaryKey: true,
	}
	if rows[0] != expected {
		t.Errorf("expected row %+v, got %+v", expected, rows[0])
	}
}

func TestToEditableRowsEmptyDocument(t *testing.T) {
	rows := ToEditableRows(Document{})
	if len(rows) != 0 {
		t.Errorf("empty document should yield no rows, got %d", len(rows))
	}
}

func TestToEditableRowsPreservesOrder(t *testing.T) {
	doc := mustParse(t, `{"fields":[
		{"name":"c","type":"string","nullable":true,"metadata":{}},
		{"name":"a","type":"long","nullable":false,"metadata":{}},
		{"name":"b","type":"date","nullable":true,"metadata":{}}]}`)

	rows := ToEditableRows(doc)
	got := []string{rows[0].TargetName, rows[1].TargetName, rows[2].TargetName}
	want := []string{"c", "a", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("row order %v does not match field order %v", got, want)
	}
}

func TestRoundTrip(t *testing.T) {
	doc := mustParse(t, `{"fields":[
		{"name":"id","type":"long","nullable":false,"metadata":{"is_primary_key":true,"is_scd_join_key":true}},
		{"name":"name","type":"string","nullable":true,"metadata":{"comment":"customer name"}},
		{"name":"updated_at","type":"timestamp","nullable":false,"metadata":{"is_scd_sequence_key":true}}]}`)

	reduction, err := FromEditableRows(ToEditableRows(doc), doc)
	if err != nil {
		t.Fatalf("reduction failed: %v", err)
	}

	if len(reduction.Document.Fields) != len(doc.Fields) {
		t.Fatalf("expected %d fields, got %d", len(doc.Fields), len(reduction.Document.Fields))
	}
	for i, field := range reduction.Document.Fields {
		orig := doc.Fields[i]
		if field.Name != orig.Name || field.Type != orig.Type || field.Nullable != orig.Nullable {
			t.Errorf("field %d: got %s/%s/%v, want %s/%s/%v",
				i, field.Name, field.Type, field.Nullable, orig.Name, orig.Type, orig.Nullable)
		}
	}

	if !reflect.DeepEqual(reduction.PrimaryKeys, []string{"id"}) {
		t.Errorf("primary keys = %v, want [id]", reduction.PrimaryKeys)
	}
	if !reflect.DeepEqual(reduction.ScdJoinKeys, []string{"id"}) {
		t.Errorf("scd join keys = %v, want [id]", reduction.ScdJoinKeys)
	}
	if !reflect.DeepEqual(reduction.ScdSequenceKeys, []string{"updated_at"}) {
		t.Errorf("scd sequence keys = %v, want [updated_at]", reduction.ScdSequenceKeys)
	}
}

func TestReductionIdempotent(t *testing.T) {
	rows := []EditableRow{
		{TargetName: "id", DataType: "Long", Nullable: false, IsPrimaryKey: true},
		{SourceName: " src_name ", TargetName: " name ", DataType: "STRING", Nullable: true, Comment: "display name"},
	}
	original := Document{}

	first, err := FromEditableRows(rows, original)
	if err != nil {
		t.Fatalf("first reduction failed: %v", err)
	}
	second, err := FromEditableRows(rows, original)
	if err != nil {
		t.Fatalf("second reduction failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("reduction is not idempotent: %+v vs %+v", first, second)
	}

	// Types normalized, names trimmed.
	if first.Document.Fields[0].Type != TypeLong {
		t.Errorf("expected normalized type long, got %s", first.Document.Fields[0].Type)
	}
	if first.Document.Fields[1].Name != "name" {
		t.Errorf("expected trimmed target name, got %q", first.Document.Fields[1].Name)
	}
	if first.Document.Fields[1].Metadata.SourceName != "src_name" {
		t.Errorf("expected trimmed source name, got %q", first.Document.Fields[1].Metadata.SourceName)
	}
}

func TestValidationCollectsAllViolations(t *testing.T) {
	rows := []EditableRow{
		{TargetName: "", DataType: "string"},
		{TargetName: "id", DataType: "varchar"},
		{TargetName: "id", DataType: "long"},
		{TargetName: "id", DataType: "long"},
	}

	_, err := FromEditableRows(rows, Document{})
	if err == nil {
		t.Fatal("expected validation error")
	}

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}

	// One empty name, one bad type, three duplicates.
	if len(verr.Rows) != 5 {
		t.Fatalf("expected 5 row errors, got %d: %v", len(verr.Rows), verr.Rows)
	}

	byReason := make(map[string][]int)
	for _, re := range verr.Rows {
		byReason[re.Reason] = append(byReason[re.Reason], re.Index)
	}
	if got := byReason["target name is empty"]; !reflect.DeepEqual(got, []int{0}) {
		t.Errorf("empty-name indices = %v, want [0]", got)
	}
	if got := byReason["unrecognized data type: varchar"]; !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("bad-type indices = %v, want [1]", got)
	}
	if got := byReason["duplicate target name: id"]; !reflect.DeepEqual(got, []int{1, 2, 3}) {
		t.Errorf("duplicate indices = %v, want [1 2 3]", got)
	}
}

func TestDuplicateTargetNamesReportEveryIndex(t *testing.T) {
	rows := []EditableRow{
		{TargetName: "id", DataType: "long"},
		{TargetName: "id", DataType: "long"},
	}

	_, err := FromEditableRows(rows, Document{})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if len(verr.Rows) != 2 {
		t.Fatalf("expected both rows reported, got %v", verr.Rows)
	}
	for i, re := range verr.Rows {
		if re.Index != i || re.Reason != "duplicate target name: id" {
			t.Errorf("row error %d = %+v", i, re)
		}
	}
	if !strings.Contains(err.Error(), "duplicate target name: id") {
		t.Errorf("error message %q should name the duplicate", err.Error())
	}
}

func TestNoPartialOutputOnValidationFailure(t *testing.T) {
	rows := []EditableRow{
		{TargetName: "ok", DataType: "string"},
		{TargetName: "bad", DataType: "varchar"},
	}

	reduction, err := FromEditableRows(rows, Document{})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if len(reduction.Document.Fields) != 0 || reduction.PrimaryKeys != nil {
		t.Errorf("failed reduction must produce no output, got %+v", reduction)
	}
}

func TestExtraMetadataCarryOver(t *testing.T) {
	doc := mustParse(t, `{"fields":[{"name":"id","type":"long","nullable":false,"metadata":{"legacy_flag":"x","is_primary_key":true}}]}`)

	rows := ToEditableRows(doc)
	rows[0].Comment = "edited"

	reduction, err := FromEditableRows(rows, doc)
	if err != nil {
		t.Fatalf("reduction failed: %v", err)
	}

	extra := reduction.Document.Fields[0].Metadata.Extra
	raw, ok := extra["legacy_flag"]
	if !ok {
		t.Fatal("legacy_flag should survive an edit/reduce cycle")
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil || value != "x" {
		t.Errorf("legacy_flag = %s, want \"x\"", string(raw))
	}
}

func TestCarryOverIsPositional(t *testing.T) {
	doc := mustParse(t, `{"fields":[{"name":"a","type":"string","nullable":true,"metadata":{"legacy_flag":"x"}}]}`)

	// Row added in the grid beyond the original field count gets no extras.
	rows := append(ToEditableRows(doc), EditableRow{TargetName: "b", DataType: "string", Nullable: true})

	reduction, err := FromEditableRows(rows, doc)
	if err != nil {
		t.Fatalf("reduction failed: %v", err)
	}
	if reduction.Document.Fields[0].Metadata.Extra == nil {
		t.Error("first row should keep its carried-over metadata")
	}
	if reduction.Document.Fields[1].Metadata.Extra != nil {
		t.Error("new row should not inherit extra metadata")
	}
}

func TestDerivedKeySets(t *testing.T) {
	rows := []EditableRow{
		{TargetName: "a", DataType: "string", IsPrimaryKey: true},
		{TargetName: "b", DataType: "string"},
		{TargetName: "c", DataType: "string", IsPrimaryKey: true},
	}

	reduction, err := FromEditableRows(rows, Document{})
	if err != nil {
		t.Fatalf("reduction failed: %v", err)
	}
	if !reflect.DeepEqual(reduction.PrimaryKeys, []string{"a", "c"}) {
		t.Errorf("primary keys = %v, want [a c]", reduction.PrimaryKeys)
	}
	if len(reduction.ScdJoinKeys) != 0 || len(reduction.ScdSequenceKeys) != 0 {
		t.Errorf("unexpected scd keys: %v %v", reduction.ScdJoinKeys, reduction.ScdSequenceKeys)
	}
}

func TestApplyKeyListsReportsDrift(t *testing.T) {
	rows := []EditableRow{
		{TargetName: "id", DataType: "long", IsPrimaryKey: true},
		{TargetName: "seq", DataType: "timestamp"},
	}

	applied, drift := ApplyKeyLists(rows, nil, nil, []string{"seq"})

	if applied[0].IsPrimaryKey {
		t.Error("stored key list should win over the metadata flag")
	}
	if !applied[1].IsScdSequenceKey {
		t.Error("seq should be flagged from the stored list")
	}
	if len(drift) != 2 {
		t.Fatalf("expected 2 drift entries, got %v", drift)
	}
	if drift[0].Field != "id" || drift[0].Flag != "is_primary_key" || !drift[0].MetadataFlag || drift[0].KeyList {
		t.Errorf("unexpected drift entry: %+v", drift[0])
	}
}

func TestApplyKeyListsNoDriftWhenConsistent(t *testing.T) {
	rows := []EditableRow{{TargetName: "id", DataType: "long", IsPrimaryKey: true}}

	applied, drift := ApplyKeyLists(rows, []string{"id"}, nil, nil)
	if len(drift) != 0 {
		t.Errorf("expected no drift, got %v", drift)
	}
	if !applied[0].IsPrimaryKey {
		t.Error("flag should remain set")
	}
}
