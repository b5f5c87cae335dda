package tracker

import (
	"context"

	"github.com/kailas-cloud/argrank/internal/domain/run"
)

// Searcher runs a lexical query over the corpus.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]run.Entry, error)
}
