package retrieval

import (
	"context"

	"github.com/kailas-cloud/argrank/internal/domain"
	"github.com/kailas-cloud/argrank/internal/domain/passage"
	"github.com/kailas-cloud/argrank/internal/domain/run"
)

// LexicalSearcher runs a BM25 query.
type LexicalSearcher interface {
	Search(ctx context.Context, query string, k int) ([]run.Entry, error)
}

// Encoder vectorizes topic titles in one batch.
type Encoder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}

// NeighborIndex answers batched k-NN queries over the passage vectors.
type NeighborIndex interface {
	KNN(ctx context.Context, vectors [][]float32, k int) ([][]passage.Neighbor, error)
}

// RowResolver maps an ANN row to its (grouped) document id.
type RowResolver interface {
	DocID(row int) (string, bool)
}
