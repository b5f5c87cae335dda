package crossencoder

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/argrank/internal/domain/rerank"
	"github.com/kailas-cloud/argrank/internal/domain/run"
	"github.com/kailas-cloud/argrank/internal/domain/topic"
	"github.com/kailas-cloud/argrank/internal/metrics"
)

const stage = "crossencoder"

// DefaultTopK is how many seed documents are rescored per topic.
const DefaultTopK = 20

// Options tunes the reranker.
type Options struct {
	// TopK is how many seed documents per topic are rescored.
	TopK int
}

// Service reranks the head of each topic by pointwise cross-encoder scores.
// A document scores the maximum over its passages, so one strongly relevant
// passage is enough to surface it.
type Service struct {
	scorer   Scorer
	passages PassageIndex
	topK     int
	logger   *zap.Logger
}

// New creates a cross-encoder reranker.
func New(scorer Scorer, passages PassageIndex, opts Options, logger *zap.Logger) *Service {
	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Service{scorer: scorer, passages: passages, topK: topK, logger: logger}
}

// Rerank rescores the top documents of every seed topic against the topic title.
// Each topic's result holds only the scored documents. A document that cannot
// be scored is skipped and logged; it never fails the topic. Seed topics with
// no entry in topics have no query text and are carried over unchanged.
func (s *Service) Rerank(ctx context.Context, seed run.Run, topics topic.Set) (run.Run, error) {
	start := time.Now()
	defer func() { metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds()) }()

	b := run.NewBuilder()
	for _, id := range seed.Topics() {
		ranking, _ := seed.Ranking(id)

		t, ok := topics.Get(id)
		if !ok {
			s.logger.Warn("Topic has no query text, ranking left as is", zap.String("topic", id))
			b.Set(id, ranking)
			continue
		}

		if err := ctx.Err(); err != nil {
			return run.Run{}, fmt.Errorf("topic %s: %w", id, err)
		}

		outcomes := s.scoreTopic(ctx, t.Title, ranking.Top(s.topK))
		if err := ctx.Err(); err != nil {
			return run.Run{}, fmt.Errorf("topic %s: %w", id, err)
		}
		reranked, skipped := rerank.Collect(outcomes)
		for _, o := range skipped {
			metrics.RerankSkippedTotal.WithLabelValues(stage, string(o.Reason())).Inc()
			s.logger.Warn("Document skipped",
				zap.String("topic", id),
				zap.String("doc_id", o.DocID()),
				zap.String("reason", string(o.Reason())),
				zap.Error(o.Err()),
			)
		}

		b.Set(id, reranked)
		metrics.StageTopicsTotal.WithLabelValues(stage).Inc()
	}
	return b.Build(), nil
}

func (s *Service) scoreTopic(ctx context.Context, query string, head run.Ranking) []rerank.Outcome {
	outcomes := make([]rerank.Outcome, 0, head.Len())
	for _, e := range head.Entries() {
		if ctx.Err() != nil {
			break
		}
		outcomes = append(outcomes, s.scoreDoc(ctx, query, e.DocID))
	}
	return outcomes
}

func (s *Service) scoreDoc(ctx context.Context, query, docID string) rerank.Outcome {
	passages, err := s.passages.Passages(docID)
	if err != nil {
		return rerank.Skipped(docID, rerank.ReasonNoPassages, err)
	}

	var best float64
	for i, p := range passages {
		score, err := s.scorer.Score(ctx, query, p)
		if err != nil {
			return rerank.Skipped(docID, rerank.ReasonScoreError, fmt.Errorf("passage %d: %w", i, err))
		}
		// scores are not floored at zero
		if i == 0 || score > best {
			best = score
		}
	}
	return rerank.Scored(docID, best)
}
