// Package rerank holds per-document rerank outcomes.
package rerank

import "github.com/kailas-cloud/argrank/internal/domain/run"

// Status is the outcome of reranking one document.
type Status string

// Outcome status values.
const (
	StatusScored  Status = "scored"
	StatusSkipped Status = "skipped"
)

// SkipReason classifies why a document was left out.
type SkipReason string

// Skip reasons.
const (
	ReasonNoPassages SkipReason = "no_passages"
	ReasonScoreError SkipReason = "score_error"
)

// Outcome is the result of reranking a single document.
type Outcome struct {
	docID  string
	score  float64
	status Status
	reason SkipReason
	err    error
}

// Scored creates a successful outcome.
func Scored(docID string, score float64) Outcome {
	return Outcome{docID: docID, score: score, status: StatusScored}
}

// Skipped creates an outcome for a document that could not be scored.
func Skipped(docID string, reason SkipReason, err error) Outcome {
	return Outcome{docID: docID, status: StatusSkipped, reason: reason, err: err}
}

// DocID returns the document identifier.
func (o Outcome) DocID() string { return o.docID }

// Score returns the score. Zero for skipped outcomes.
func (o Outcome) Score() float64 { return o.score }

// Status returns the outcome status.
func (o Outcome) Status() Status { return o.status }

// Reason returns the skip reason, empty when scored.
func (o Outcome) Reason() SkipReason { return o.reason }

// Err returns the underlying cause of a skip.
func (o Outcome) Err() error { return o.err }

// Collect turns outcomes into a ranking of the scored documents and returns
// the skipped ones separately, both in input order.
func Collect(outcomes []Outcome) (run.Ranking, []Outcome) {
	acc := run.NewAccumulator(len(outcomes))
	var skipped []Outcome
	for _, o := range outcomes {
		if o.status != StatusScored {
			skipped = append(skipped, o)
			continue
		}
		acc.Add(o.docID, o.score)
	}
	return acc.Ranking(), skipped
}
