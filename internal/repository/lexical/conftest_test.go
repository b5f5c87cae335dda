package lexical

import (
	"context"
	"testing"

	"github.com/kailas-cloud/argrank/internal/db"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	searchBM25Fn func(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
}

func (m *mockStore) SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	if m.searchBM25Fn != nil {
		return m.searchBM25Fn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	repo := New(ms, Options{IndexName: "argrank:docs:idx", KeyPrefix: "argrank:doc:"})
	return repo, ms
}
