package lexical

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/argrank/internal/db"
	"github.com/kailas-cloud/argrank/internal/domain/run"
)

// DefaultIDField holds the document id on each indexed hash.
const DefaultIDField = "docno"

// Scorer is the FT.SEARCH scoring function for lexical retrieval.
const Scorer = "BM25STD"

// store is the consumer interface for lexical search (ISP).
type store interface {
	SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
}

// Options configures index layout.
type Options struct {
	IndexName    string
	ContentField string
	IDField      string
	// KeyPrefix is stripped from hit keys when a hit carries no IDField.
	KeyPrefix string
}

// Repo is a BM25 retriever over a RediSearch text index.
type Repo struct {
	store store
	opts  Options
}

// New creates a lexical repository.
func New(s store, opts Options) *Repo {
	if opts.IDField == "" {
		opts.IDField = DefaultIDField
	}
	if opts.ContentField == "" {
		opts.ContentField = db.DefaultContentField
	}
	return &Repo{store: s, opts: opts}
}

// Search returns up to k hits for query, deduplicated by doc id keeping the first (best) hit.
func (r *Repo) Search(ctx context.Context, query string, k int) ([]run.Entry, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	sr, err := r.store.SearchBM25(ctx, &db.TextQuery{
		IndexName:    r.opts.IndexName,
		Field:        r.opts.ContentField,
		Query:        query,
		TopK:         k,
		ReturnFields: []string{r.opts.IDField},
		Scorer:       Scorer,
	})
	if err != nil {
		return nil, fmt.Errorf("search bm25 %s: %w", r.opts.IndexName, err)
	}
	if sr == nil || len(sr.Entries) == 0 {
		return nil, nil
	}

	seen := make(map[string]struct{}, len(sr.Entries))
	out := make([]run.Entry, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		id := r.docID(e)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, run.Entry{DocID: id, Score: e.Score})
	}
	return out, nil
}

func (r *Repo) docID(e db.SearchEntry) string {
	if id := e.Fields[r.opts.IDField]; id != "" {
		return id
	}
	return strings.TrimPrefix(e.Key, r.opts.KeyPrefix)
}
