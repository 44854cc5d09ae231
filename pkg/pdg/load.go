package pdg

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// Sentinel errors for loading.
var (
	// ErrUnknownVertex is returned when an edge names a vertex that does not exist.
	ErrUnknownVertex = errors.New("edge references unknown vertex")

	// ErrNegativeTimestamp is returned for vertices stamped before zero.
	ErrNegativeTimestamp = errors.New("negative timestamp")
)

// Decode reads and validates a PDG export.
func Decode(r io.Reader) (*PDG, error) {
	var p PDG
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode pdg: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadFile reads a PDG export from disk.
func LoadFile(path string) (*PDG, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(bufio.NewReader(f))
}

// Validate checks edge endpoints and timestamps.
func (p *PDG) Validate() error {
	n := uint32(len(p.Vertices))
	for i, e := range p.Edges {
		if e.From >= n || e.To >= n {
			return fmt.Errorf("edge %d (%d -> %d): %w", i, e.From, e.To, ErrUnknownVertex)
		}
	}
	for i := range p.Vertices {
		if p.Vertices[i].Timestamp < 0 {
			return fmt.Errorf("vertex %d: %w", i, ErrNegativeTimestamp)
		}
	}
	return nil
}
