package roadnet

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Document is the on-disk road network format: a flat node list plus
// directed edges referencing node IDs. Costs are travel expense in the
// network's own unit (usually meters).
type Document struct {
	Nodes []Node `json:"nodes"`
	Edges []Arc  `json:"edges"`
}

// Load decodes a road network document from r and builds a Graph from it.
func Load(r io.Reader, opts ...Option) (*Graph, error) {
	var doc Document
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding road network: %w", err)
	}
	g, err := New(doc.Nodes, doc.Edges, opts...)
	if err != nil {
		return nil, fmt.Errorf("building road network: %w", err)
	}
	return g, nil
}

// LoadFile reads a road network document from path. Files ending in .zst
// are decompressed transparently, so large extracts can ship compressed.
func LoadFile(path string, opts ...Option) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening road network file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".zst") {
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("opening zstd reader for %s: %w", path, err)
		}
		defer zr.Close()
		r = zr
	}
	return Load(r, opts...)
}
