package prf

import (
	"context"

	"github.com/kailas-cloud/argrank/internal/domain"
	"github.com/kailas-cloud/argrank/internal/domain/passage"
)

// Encoder vectorizes feedback passages in one batch.
type Encoder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}

// NeighborIndex answers batched k-NN queries over the passage vectors.
type NeighborIndex interface {
	KNN(ctx context.Context, vectors [][]float32, k int) ([][]passage.Neighbor, error)
}

// PassageIndex resolves documents to passages and ANN rows to documents.
type PassageIndex interface {
	Passages(docID string) ([]string, error)
	DocID(row int) (string, bool)
}
