package prf

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/argrank/internal/domain"
	"github.com/kailas-cloud/argrank/internal/domain/passage"
	"github.com/kailas-cloud/argrank/internal/domain/run"
	"github.com/kailas-cloud/argrank/internal/domain/topic"
)

// mockEncoder maps each text to a one-dimensional vector holding its id.
type mockEncoder struct {
	ids   map[string]float32
	err   error
	calls [][]string
}

func (m *mockEncoder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.calls = append(m.calls, texts)
	if m.err != nil {
		return domain.BatchEmbeddingResult{}, m.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{m.ids[t]}
	}
	return domain.BatchEmbeddingResult{Embeddings: out}, nil
}

// mockIndex answers each vector from a fixed neighbor table keyed by the vector id.
type mockIndex struct {
	table map[float32][]passage.Neighbor
	knnFn func(ctx context.Context, vectors [][]float32, k int) ([][]passage.Neighbor, error)
	ks    []int
}

func (m *mockIndex) KNN(ctx context.Context, vectors [][]float32, k int) ([][]passage.Neighbor, error) {
	m.ks = append(m.ks, k)
	if m.knnFn != nil {
		return m.knnFn(ctx, vectors, k)
	}
	out := make([][]passage.Neighbor, len(vectors))
	for i, v := range vectors {
		out[i] = m.table[v[0]]
	}
	return out, nil
}

// Rows: 0 A.0, 1 A.1, 2 B.0, 3 C.0, 4 D.0
func newTestPassages(t *testing.T) *passage.Index {
	t.Helper()
	idx, err := passage.NewIndex(passage.Lookup{
		PassageIDs: []string{"A.0", "A.1", "B.0", "C.0", "D.0"},
		Passages:   []string{"a zero", "a one", "b zero", "c zero", "d zero"},
	}, passage.GroupByDocument)
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	return idx
}

func newTestEncoder() *mockEncoder {
	return &mockEncoder{ids: map[string]float32{
		"a zero": 0, "a one": 1, "b zero": 2, "c zero": 3, "d zero": 4,
	}}
}

func newTestIndex() *mockIndex {
	return &mockIndex{table: map[float32][]passage.Neighbor{
		0: {{Idx: 3, Distance: 0.1}, {Idx: 2, Distance: 0.5}},
		1: {{Idx: 3, Distance: 0.2}},
		2: {{Idx: 0, Distance: 0}, {Idx: 4, Distance: 0.5}},
		3: {{Idx: 1, Distance: 0.3}},
	}}
}

func newTestService(t *testing.T, opts Options) (*Service, *mockEncoder, *mockIndex) {
	t.Helper()
	enc, idx := newTestEncoder(), newTestIndex()
	return New(enc, idx, newTestPassages(t), opts, zap.NewNop()), enc, idx
}

func seedRun(entries ...run.Entry) run.Run {
	return run.NewBuilder().Set("1", run.NewRanking(entries...)).Build()
}

func testTopics() topic.Set {
	return topic.NewSet(topic.Topic{ID: "1", Title: "should zoos exist"})
}
