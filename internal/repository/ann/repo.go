package ann

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/argrank/internal/db"
	"github.com/kailas-cloud/argrank/internal/domain/passage"
)

// store is the consumer interface for vector search (ISP).
type store interface {
	SearchKNNBatch(ctx context.Context, qs []*db.KNNQuery) ([]*db.SearchResult, error)
}

// Options configures index layout. Passage hashes live at KeyPrefix+<row>.
type Options struct {
	IndexName   string
	VectorField string
	KeyPrefix   string
}

// Repo adapts a RediSearch vector index to row/distance neighbor lists.
type Repo struct {
	store store
	opts  Options
}

// New creates an ANN repository.
func New(s store, opts Options) *Repo {
	if opts.VectorField == "" {
		opts.VectorField = db.DefaultVectorField
	}
	return &Repo{store: s, opts: opts}
}

// KNN returns k neighbors per query vector, nearest first, as one pipelined round trip.
func (r *Repo) KNN(ctx context.Context, vectors [][]float32, k int) ([][]passage.Neighbor, error) {
	if len(vectors) == 0 {
		return nil, nil
	}

	qs := make([]*db.KNNQuery, len(vectors))
	for i, v := range vectors {
		qs[i] = &db.KNNQuery{
			IndexName:    r.opts.IndexName,
			VectorField:  r.opts.VectorField,
			Vector:       v,
			K:            k,
			ReturnFields: []string{"__vector_score"},
		}
	}

	results, err := r.store.SearchKNNBatch(ctx, qs)
	if err != nil {
		return nil, fmt.Errorf("knn batch %s: %w", r.opts.IndexName, err)
	}
	if len(results) != len(vectors) {
		return nil, fmt.Errorf("knn batch %s: got %d results for %d queries",
			r.opts.IndexName, len(results), len(vectors))
	}

	out := make([][]passage.Neighbor, len(results))
	for i, sr := range results {
		ns, err := r.neighbors(sr)
		if err != nil {
			return nil, fmt.Errorf("knn batch %s: query %d: %w", r.opts.IndexName, i, err)
		}
		out[i] = ns
	}
	return out, nil
}

func (r *Repo) neighbors(sr *db.SearchResult) ([]passage.Neighbor, error) {
	if sr == nil {
		return nil, nil
	}
	ns := make([]passage.Neighbor, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		idx, err := r.rowOf(e.Key)
		if err != nil {
			return nil, err
		}
		ns = append(ns, passage.Neighbor{Idx: idx, Distance: e.Score})
	}
	return ns, nil
}

func (r *Repo) rowOf(key string) (int, error) {
	suffix, ok := strings.CutPrefix(key, r.opts.KeyPrefix)
	if !ok {
		return 0, fmt.Errorf("unexpected key %q: missing prefix %q", key, r.opts.KeyPrefix)
	}
	idx, err := strconv.Atoi(suffix)
	if err != nil || idx < 0 {
		return 0, fmt.Errorf("unexpected key %q: row is not a non-negative integer", key)
	}
	return idx, nil
}
