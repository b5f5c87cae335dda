package passage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Lookup holds the parallel row tables of the passage ANN index.
type Lookup struct {
	PassageIDs []string `json:"passage_ids"`
	Passages   []string `json:"passages"`
}

// Validate checks that both tables cover the same rows.
func (l Lookup) Validate() error {
	if len(l.PassageIDs) != len(l.Passages) {
		return fmt.Errorf("lookup tables differ in length: %d ids, %d passages",
			len(l.PassageIDs), len(l.Passages))
	}
	for i, id := range l.PassageIDs {
		if id == "" {
			return fmt.Errorf("lookup row %d: empty passage id", i)
		}
	}
	return nil
}

// ReadLookup decodes a JSON lookup document.
func ReadLookup(r io.Reader) (Lookup, error) {
	var l Lookup
	if err := json.NewDecoder(r).Decode(&l); err != nil {
		return Lookup{}, fmt.Errorf("decode lookup: %w", err)
	}
	if err := l.Validate(); err != nil {
		return Lookup{}, err
	}
	return l, nil
}

// LoadIndex reads the lookup file at path and builds an Index with g.
func LoadIndex(path string, g Grouping) (*Index, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open lookup: %w", err)
	}
	defer f.Close()

	l, err := ReadLookup(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return NewIndex(l, g)
}
