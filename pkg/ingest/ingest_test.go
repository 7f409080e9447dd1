package ingest

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	input := `{
		"nodes": ["smoking", "cancer", "tar"],
		"edges": [["smoking", "tar"], ["tar", "cancer"]],
		"exposure": "smoking",
		"outcome": "cancer"
	}`

	doc, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !reflect.DeepEqual(doc.Nodes, []string{"smoking", "cancer", "tar"}) {
		t.Errorf("Expected 3 nodes, got %v", doc.Nodes)
	}
	if len(doc.Edges) != 2 {
		t.Errorf("Expected 2 edges, got %v", doc.Edges)
	}
	if doc.Exposure != "smoking" || doc.Outcome != "cancer" {
		t.Errorf("Expected smoking/cancer designations, got %s/%s", doc.Exposure, doc.Outcome)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	input := `{"nodes": ["a"], "edges": [], "exposure": "a", "outcome": "a", "extra": 1}`
	if _, err := Parse(strings.NewReader(input)); err == nil {
		t.Error("Expected an error for unknown fields")
	}
}

func TestParseRejectsMalformedJSON(t *testing.T) {
	if _, err := Parse(strings.NewReader("{not json")); err == nil {
		t.Error("Expected an error for malformed JSON")
	}
}

func TestLoadFile(t *testing.T) {
	path := writeDocument(t, `{
		"nodes": ["x", "y", "z"],
		"edges": [["z", "x"], ["z", "y"], ["x", "y"]],
		"exposure": "x",
		"outcome": "y"
	}`)

	g, err := LoadFile(path, "", "")
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if g.Exposure() != "x" || g.Outcome() != "y" {
		t.Errorf("Expected x/y designations, got %s/%s", g.Exposure(), g.Outcome())
	}
	if g.NodeCount() != 3 || g.EdgeCount() != 3 {
		t.Errorf("Expected 3 nodes and 3 edges, got %d and %d", g.NodeCount(), g.EdgeCount())
	}
}

func TestLoadFileOverrides(t *testing.T) {
	path := writeDocument(t, `{
		"nodes": ["x", "y", "z"],
		"edges": [["z", "x"], ["z", "y"], ["x", "y"]],
		"exposure": "x",
		"outcome": "y"
	}`)

	g, err := LoadFile(path, "z", "y")
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if g.Exposure() != "z" {
		t.Errorf("Override should win, got exposure %s", g.Exposure())
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.json"), "", ""); err == nil {
		t.Error("Expected an error for a missing file")
	}
}

func TestLoadFileInvalidGraph(t *testing.T) {
	path := writeDocument(t, `{
		"nodes": ["x", "y"],
		"edges": [["x", "y"]],
		"exposure": "x",
		"outcome": "nope"
	}`)

	if _, err := LoadFile(path, "", ""); err == nil {
		t.Error("Expected a validation error for an unknown outcome")
	}
}

func writeDocument(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "graph.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}
