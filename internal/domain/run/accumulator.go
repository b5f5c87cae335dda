package run

// Accumulator sums per-document scores and remembers first-insertion order.
// Ranking sorts by score with ties left in that order.
type Accumulator struct {
	order  []string
	scores map[string]float64
}

// NewAccumulator creates an accumulator sized for n documents.
func NewAccumulator(n int) *Accumulator {
	return &Accumulator{
		order:  make([]string, 0, n),
		scores: make(map[string]float64, n),
	}
}

// Add adds delta to the score of docID, inserting it at 0 if absent.
func (a *Accumulator) Add(docID string, delta float64) {
	if _, ok := a.scores[docID]; !ok {
		a.order = append(a.order, docID)
	}
	a.scores[docID] += delta
}

// Len returns the number of distinct documents.
func (a *Accumulator) Len() int { return len(a.order) }

// Ranking returns the accumulated scores as a Ranking.
func (a *Accumulator) Ranking() Ranking {
	entries := make([]Entry, len(a.order))
	for i, id := range a.order {
		entries[i] = Entry{DocID: id, Score: a.scores[id]}
	}
	sortDescending(entries)
	return Ranking{entries: entries}
}
