package ann

import (
	"context"
	"testing"

	"github.com/kailas-cloud/argrank/internal/db"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	searchKNNBatchFn func(ctx context.Context, qs []*db.KNNQuery) ([]*db.SearchResult, error)
}

func (m *mockStore) SearchKNNBatch(ctx context.Context, qs []*db.KNNQuery) ([]*db.SearchResult, error) {
	if m.searchKNNBatchFn != nil {
		return m.searchKNNBatchFn(ctx, qs)
	}
	return make([]*db.SearchResult, len(qs)), nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	repo := New(ms, Options{IndexName: "argrank:passages:idx", KeyPrefix: "argrank:passage:"})
	return repo, ms
}
