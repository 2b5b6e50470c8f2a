package formatter

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

type moduleRow struct {
	ID      string `json:"id"`
	State   string `json:"state"`
	Enabled bool   `json:"enabled"`
}

func testValue() ([]moduleRow, Table) {
	rows := []moduleRow{
		{ID: "hello", State: "active", Enabled: true},
		{ID: "cpt", State: "disabled"},
	}
	t := Table{Header: []string{"id", "state", "enabled"}}
	for _, r := range rows {
		enabled := "no"
		if r.Enabled {
			enabled = "yes"
		}
		t.Rows = append(t.Rows, []string{r.ID, r.State, enabled})
	}
	return rows, t
}

func TestDefaultRegistry(t *testing.T) {
	if got := strings.Join(List(), ","); got != "json,table,yaml" {
		t.Errorf("List = %s, want json,table,yaml", got)
	}

	f, ok := Get("")
	if !ok || f.Name() != "table" {
		t.Errorf("default formatter = %v, want table", f)
	}
}

func TestRegistry_DuplicateAndUnknown(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(NewJSONFormatter()); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(NewJSONFormatter()); err == nil {
		t.Error("duplicate registration should fail")
	}

	var buf bytes.Buffer
	err := r.Write(&buf, "csv", nil, Table{})
	if err == nil || !strings.Contains(err.Error(), "csv") {
		t.Errorf("err = %v, want unknown format error", err)
	}
}

func TestTableFormatter(t *testing.T) {
	v, tbl := testValue()
	var buf bytes.Buffer
	if err := Write(&buf, "table", v, tbl); err != nil {
		t.Fatalf("Write: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "ID") || !strings.Contains(lines[0], "STATE") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "hello") || !strings.Contains(lines[1], "yes") {
		t.Errorf("row = %q", lines[1])
	}
}

func TestTableFormatter_EmptyAndCells(t *testing.T) {
	var buf bytes.Buffer
	NewTableFormatter().Format(&buf, nil, Table{Header: []string{"key"}})
	if !strings.Contains(buf.String(), "No records found.") {
		t.Errorf("empty output = %q", buf.String())
	}

	f := &TableFormatter{MaxWidth: 10}
	if got := f.cell(""); got != "-" {
		t.Errorf("empty cell = %q, want -", got)
	}
	if got := f.cell("abcdefghijklmnop"); got != "abcdefg..." {
		t.Errorf("truncated = %q", got)
	}
	if got := f.cell("a\nb"); got != "a b" {
		t.Errorf("newline cell = %q", got)
	}
}

func TestJSONFormatter(t *testing.T) {
	v, tbl := testValue()
	var buf bytes.Buffer
	if err := Write(&buf, "json", v, tbl); err != nil {
		t.Fatalf("Write: %v", err)
	}

	var got []moduleRow
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(got) != 2 || got[0].ID != "hello" || !got[0].Enabled {
		t.Errorf("decoded = %+v", got)
	}
}

func TestYAMLFormatter_UsesJSONKeys(t *testing.T) {
	v, tbl := testValue()
	var buf bytes.Buffer
	if err := Write(&buf, "yaml", v, tbl); err != nil {
		t.Fatalf("Write: %v", err)
	}

	var got []map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not YAML: %v", err)
	}
	if len(got) != 2 || got[1]["id"] != "cpt" || got[1]["state"] != "disabled" {
		t.Errorf("decoded = %+v", got)
	}
}
