// Package ingest loads the JSON graph documents the analyzer consumes. The
// engine itself never depends on this format; richer ingestion (literature
// databases, other graph formats) is owned by host applications.
package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ritzau/dag-analyzer/pkg/graph"
)

// Document is the on-disk graph description
type Document struct {
	Nodes    []string    `json:"nodes"`
	Edges    [][2]string `json:"edges"`
	Exposure string      `json:"exposure"`
	Outcome  string      `json:"outcome"`
}

// Parse reads a graph document from a reader
func Parse(r io.Reader) (*Document, error) {
	var doc Document
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parsing graph document: %w", err)
	}
	return &doc, nil
}

// LoadFile reads a graph document from disk and builds the graph. The
// exposure and outcome arguments override the document's designations when
// non-empty.
func LoadFile(path, exposure, outcome string) (*graph.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening graph file: %w", err)
	}
	defer f.Close()

	doc, err := Parse(f)
	if err != nil {
		return nil, err
	}
	if exposure == "" {
		exposure = doc.Exposure
	}
	if outcome == "" {
		outcome = doc.Outcome
	}
	return graph.Build(doc.Nodes, doc.Edges, exposure, outcome)
}
