// Package history models the rank history of a live ranked list.
package history

import (
	"math"

	"github.com/kailas-cloud/argrank/internal/domain/run"
)

// DocStat tracks one document inside a history entry.
type DocStat struct {
	DocID string `json:"doc_id"`
	// Count is how many consecutive earlier entries also held the document.
	Count    int `json:"count"`
	Position int `json:"position"`
	// PositionChange is previous minus current position; positive means the document moved up.
	PositionChange int     `json:"position_change"`
	Score          float64 `json:"score"`
	ScoreChange    float64 `json:"score_change"`
}

// Entry is the snapshot produced by one ingested window.
type Entry struct {
	dcg   float64
	docs  []DocStat
	index map[string]int
}

// Build creates the entry for ranking, diffed against prev (nil for the first entry).
//
// Documents new to this entry keep Count 0, PositionChange 0 and report their
// full score as ScoreChange. Documents also present in prev carry prev.Count+1,
// the position and score deltas, and add 1/ln(position+2) to the entry's DCG.
func Build(prev *Entry, ranking run.Ranking) Entry {
	e := Entry{
		docs:  make([]DocStat, ranking.Len()),
		index: make(map[string]int, ranking.Len()),
	}
	for i := 0; i < ranking.Len(); i++ {
		hit := ranking.At(i)
		stat := DocStat{
			DocID:       hit.DocID,
			Position:    i,
			Score:       hit.Score,
			ScoreChange: hit.Score,
		}
		if prev != nil {
			if p, ok := prev.Doc(hit.DocID); ok {
				stat.Count = p.Count + 1
				stat.PositionChange = p.Position - i
				stat.ScoreChange = hit.Score - p.Score
				e.dcg += Gain(i)
			}
		}
		e.docs[i] = stat
		e.index[hit.DocID] = i
	}
	return e
}

// Gain is the discounted gain of a 0-based position.
func Gain(position int) float64 {
	return 1 / math.Log(float64(position)+2)
}

// DCG returns the accumulated discounted gain of retained documents.
func (e Entry) DCG() float64 { return e.dcg }

// Len returns the number of documents in the entry.
func (e Entry) Len() int { return len(e.docs) }

// Docs returns the document stats in rank order.
func (e Entry) Docs() []DocStat {
	out := make([]DocStat, len(e.docs))
	copy(out, e.docs)
	return out
}

// Doc returns the stats of docID.
func (e Entry) Doc(docID string) (DocStat, bool) {
	i, ok := e.index[docID]
	if !ok {
		return DocStat{}, false
	}
	return e.docs[i], true
}

// Above returns the ids of documents whose position is strictly below n.
func (e Entry) Above(n int) []string {
	var out []string
	for _, d := range e.docs {
		if d.Position < n {
			out = append(out, d.DocID)
		}
	}
	return out
}
