package tracker

import (
	"context"
	"sync"

	"github.com/kailas-cloud/argrank/internal/domain/run"
)

// fakeSearcher answers each query from a fixed table and records the calls.
type fakeSearcher struct {
	mu      sync.Mutex
	hits    map[string][]run.Entry
	err     error
	queries []string
	ks      []int
	// block, when set, holds every search until it is closed.
	block   chan struct{}
	started chan struct{}
}

func (f *fakeSearcher) Search(_ context.Context, query string, k int) ([]run.Entry, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.ks = append(f.ks, k)
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	hits := f.hits[query]
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func hits(pairs ...any) []run.Entry {
	out := make([]run.Entry, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, run.Entry{DocID: pairs[i].(string), Score: pairs[i+1].(float64)})
	}
	return out
}
