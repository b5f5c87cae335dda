// Package run models ranked result lists keyed by topic.
//
// A Ranking is ordered descending by score, with exact ties kept in the
// order the documents were first seen. Document ids are unique within a
// Ranking. Rankings and Runs are immutable once built; every stage that
// changes scores builds a new Run.
package run

import "sort"

// Entry is a single (document, score) pair.
type Entry struct {
	DocID string
	Score float64
}

// Ranking is an immutable, score-ordered list of entries for one topic.
type Ranking struct {
	entries []Entry
}

// NewRanking builds a Ranking from entries in encounter order.
// Duplicate document ids keep their first occurrence. The result is
// stable-sorted descending by score.
func NewRanking(entries ...Entry) Ranking {
	seen := make(map[string]struct{}, len(entries))
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if _, dup := seen[e.DocID]; dup {
			continue
		}
		seen[e.DocID] = struct{}{}
		out = append(out, e)
	}
	sortDescending(out)
	return Ranking{entries: out}
}

// Len returns the number of entries.
func (r Ranking) Len() int { return len(r.entries) }

// At returns the entry at position i (0-based).
func (r Ranking) At(i int) Entry { return r.entries[i] }

// Entries returns a copy of the ordered entries.
func (r Ranking) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// DocIDs returns the document ids in rank order.
func (r Ranking) DocIDs() []string {
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.DocID
	}
	return out
}

// Top returns the first n entries. n <= 0 or n >= Len returns the whole ranking.
func (r Ranking) Top(n int) Ranking {
	if n <= 0 || n >= len(r.entries) {
		return r
	}
	return Ranking{entries: r.entries[:n:n]}
}

// Score returns the score of docID and whether it is present.
func (r Ranking) Score(docID string) (float64, bool) {
	for _, e := range r.entries {
		if e.DocID == docID {
			return e.Score, true
		}
	}
	return 0, false
}

// Run maps topic ids to rankings and remembers topic insertion order.
type Run struct {
	topics   []string
	rankings map[string]Ranking
}

// Topics returns topic ids in insertion order.
func (r Run) Topics() []string {
	out := make([]string, len(r.topics))
	copy(out, r.topics)
	return out
}

// Ranking returns the ranking for a topic.
func (r Run) Ranking(topic string) (Ranking, bool) {
	rk, ok := r.rankings[topic]
	return rk, ok
}

// Has reports whether the run covers topic.
func (r Run) Has(topic string) bool {
	_, ok := r.rankings[topic]
	return ok
}

// Len returns the number of topics.
func (r Run) Len() int { return len(r.topics) }

// Builder assembles a Run. It is not safe for concurrent use.
type Builder struct {
	topics   []string
	rankings map[string]Ranking
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{rankings: make(map[string]Ranking)}
}

// Set assigns the ranking for a topic. Re-setting a topic keeps its
// original position in the topic order.
func (b *Builder) Set(topic string, r Ranking) *Builder {
	if _, ok := b.rankings[topic]; !ok {
		b.topics = append(b.topics, topic)
	}
	b.rankings[topic] = r
	return b
}

// Build returns the assembled Run. The Builder must not be reused.
func (b *Builder) Build() Run {
	return Run{topics: b.topics, rankings: b.rankings}
}

func sortDescending(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
}
