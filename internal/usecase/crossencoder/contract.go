package crossencoder

import "context"

// Scorer scores one (query, passage) pair.
type Scorer interface {
	Score(ctx context.Context, query, passage string) (float64, error)
}

// PassageIndex resolves a document to its passages.
type PassageIndex interface {
	Passages(docID string) ([]string, error)
}
