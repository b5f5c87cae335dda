package retrieval

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/argrank/internal/domain/run"
	"github.com/kailas-cloud/argrank/internal/domain/topic"
	"github.com/kailas-cloud/argrank/internal/metrics"
)

// Default retrieval depths.
const (
	DefaultLexicalK  = 1000
	DefaultSemanticK = 100
)

// Options sets how many hits each retriever returns per topic.
type Options struct {
	LexicalK  int
	SemanticK int
}

// Service produces first-stage runs from topic titles.
type Service struct {
	lexical LexicalSearcher
	encoder Encoder
	index   NeighborIndex
	rows    RowResolver
	opts    Options
	logger  *zap.Logger
}

// New creates a retrieval service.
func New(lexical LexicalSearcher, enc Encoder, idx NeighborIndex, rows RowResolver, opts Options, logger *zap.Logger) *Service {
	if opts.LexicalK <= 0 {
		opts.LexicalK = DefaultLexicalK
	}
	if opts.SemanticK <= 0 {
		opts.SemanticK = DefaultSemanticK
	}
	return &Service{
		lexical: lexical,
		encoder: enc,
		index:   idx,
		rows:    rows,
		opts:    opts,
		logger:  logger,
	}
}

// LexicalRun searches each topic title with BM25, one query per topic.
func (s *Service) LexicalRun(ctx context.Context, topics topic.Set) (run.Run, error) {
	defer observe("lexical", time.Now())

	b := run.NewBuilder()
	for _, t := range topics.All() {
		hits, err := s.lexical.Search(ctx, t.Title, s.opts.LexicalK)
		if err != nil {
			return run.Run{}, fmt.Errorf("topic %s: lexical search: %w", t.ID, err)
		}
		b.Set(t.ID, run.NewRanking(hits...))
		metrics.StageTopicsTotal.WithLabelValues("lexical").Inc()
	}
	return b.Build(), nil
}

// SemanticRun encodes all topic titles in one batch and ranks documents by the
// similarity of their nearest passage. Only a document's best passage counts.
func (s *Service) SemanticRun(ctx context.Context, topics topic.Set) (run.Run, error) {
	defer observe("semantic", time.Now())

	all := topics.All()
	if len(all) == 0 {
		return run.NewBuilder().Build(), nil
	}

	titles := make([]string, len(all))
	for i, t := range all {
		titles[i] = t.Title
	}

	emb, err := s.encoder.BatchEmbed(ctx, titles)
	if err != nil {
		return run.Run{}, fmt.Errorf("encode topics: %w", err)
	}
	if len(emb.Embeddings) != len(all) {
		return run.Run{}, fmt.Errorf("encode topics: got %d vectors for %d topics", len(emb.Embeddings), len(all))
	}

	neighbors, err := s.index.KNN(ctx, emb.Embeddings, s.opts.SemanticK)
	if err != nil {
		return run.Run{}, fmt.Errorf("knn: %w", err)
	}
	if len(neighbors) != len(all) {
		return run.Run{}, fmt.Errorf("knn: got %d neighbor lists for %d topics", len(neighbors), len(all))
	}

	b := run.NewBuilder()
	for i, t := range all {
		seen := make(map[string]struct{}, len(neighbors[i]))
		entries := make([]run.Entry, 0, len(neighbors[i]))
		for _, n := range neighbors[i] {
			docID, ok := s.rows.DocID(n.Idx)
			if !ok {
				s.logger.Warn("Neighbor row not in passage lookup",
					zap.String("topic", t.ID), zap.Int("row", n.Idx))
				continue
			}
			if _, dup := seen[docID]; dup {
				continue
			}
			seen[docID] = struct{}{}
			entries = append(entries, run.Entry{DocID: docID, Score: n.Similarity()})
		}
		b.Set(t.ID, run.NewRanking(entries...))
		metrics.StageTopicsTotal.WithLabelValues("semantic").Inc()
	}
	return b.Build(), nil
}

func observe(stage string, start time.Time) {
	metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
