// Package passage maps documents to their passages and ANN row indices to documents.
package passage

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/argrank/internal/domain"
)

// Grouping decides which document a passage id belongs to.
type Grouping string

const (
	// GroupByDocument truncates the passage id at the first '.', so
	// "doc42.3" and "doc42.7" both belong to "doc42".
	GroupByDocument Grouping = "document"
	// GroupByPassage keeps the full passage id; every passage is its own document.
	GroupByPassage Grouping = "passage"
)

// ParseGrouping validates a grouping name. Empty selects GroupByDocument.
func ParseGrouping(s string) (Grouping, error) {
	switch Grouping(s) {
	case "", GroupByDocument:
		return GroupByDocument, nil
	case GroupByPassage:
		return GroupByPassage, nil
	default:
		return "", fmt.Errorf("unknown passage grouping %q", s)
	}
}

// DocID returns the document id for a passage id under g.
func (g Grouping) DocID(passageID string) string {
	if g == GroupByPassage {
		return passageID
	}
	if i := strings.IndexByte(passageID, '.'); i >= 0 {
		return passageID[:i]
	}
	return passageID
}

// Index is the read-only document → passages lookup plus the
// ANN row → document mapping.
type Index struct {
	grouping Grouping
	docs     map[string][]string
	order    []string
	rowDoc   []string
}

// NewIndex groups passages by document. Row i of the ANN index holds
// lookup.PassageIDs[i] with text lookup.Passages[i]. Passages keep row order
// within each document.
func NewIndex(lookup Lookup, g Grouping) (*Index, error) {
	if err := lookup.Validate(); err != nil {
		return nil, err
	}

	idx := &Index{
		grouping: g,
		docs:     make(map[string][]string),
		rowDoc:   make([]string, len(lookup.PassageIDs)),
	}
	for i, pid := range lookup.PassageIDs {
		doc := g.DocID(pid)
		if _, ok := idx.docs[doc]; !ok {
			idx.order = append(idx.order, doc)
		}
		idx.docs[doc] = append(idx.docs[doc], lookup.Passages[i])
		idx.rowDoc[i] = doc
	}
	return idx, nil
}

// Passages returns a copy of the passages of docID in row order.
func (x *Index) Passages(docID string) ([]string, error) {
	ps, ok := x.docs[docID]
	if !ok || len(ps) == 0 {
		return nil, fmt.Errorf("doc %s: %w", docID, domain.ErrPassagesNotFound)
	}
	out := make([]string, len(ps))
	copy(out, ps)
	return out, nil
}

// DocID returns the document owning ANN row idx.
func (x *Index) DocID(row int) (string, bool) {
	if row < 0 || row >= len(x.rowDoc) {
		return "", false
	}
	return x.rowDoc[row], true
}

// Grouping returns the policy the index was built with.
func (x *Index) Grouping() Grouping { return x.grouping }

// Documents returns document ids in first-seen row order.
func (x *Index) Documents() []string {
	out := make([]string, len(x.order))
	copy(out, x.order)
	return out
}

// Rows returns the number of ANN rows covered.
func (x *Index) Rows() int { return len(x.rowDoc) }
