package retrieval

import (
	"context"

	"github.com/kailas-cloud/argrank/internal/domain"
	"github.com/kailas-cloud/argrank/internal/domain/passage"
	"github.com/kailas-cloud/argrank/internal/domain/run"
)

type mockLexical struct {
	searchFn func(ctx context.Context, query string, k int) ([]run.Entry, error)
}

func (m *mockLexical) Search(ctx context.Context, query string, k int) ([]run.Entry, error) {
	return m.searchFn(ctx, query, k)
}

type mockEncoder struct {
	batchEmbedFn func(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}

func (m *mockEncoder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	return m.batchEmbedFn(ctx, texts)
}

type mockIndex struct {
	knnFn func(ctx context.Context, vectors [][]float32, k int) ([][]passage.Neighbor, error)
}

func (m *mockIndex) KNN(ctx context.Context, vectors [][]float32, k int) ([][]passage.Neighbor, error) {
	return m.knnFn(ctx, vectors, k)
}

// vectorsFor returns one single-component vector per text, holding its position.
func vectorsFor(texts []string) domain.BatchEmbeddingResult {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i)}
	}
	return domain.BatchEmbeddingResult{Embeddings: out}
}
