package prf

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/argrank/internal/domain/run"
	"github.com/kailas-cloud/argrank/internal/domain/topic"
	"github.com/kailas-cloud/argrank/internal/metrics"
)

const stage = "prf"

// Default feedback parameters.
const (
	DefaultRelDocs = 5
	DefaultK       = 20
)

// Options tunes the feedback set and neighborhood size.
type Options struct {
	// RelDocs is how many top seed documents are assumed relevant.
	RelDocs int
	// K is the number of neighbors fetched per feedback passage.
	K int
	// Cutoff, when positive, bounds the seed slice before RelDocs applies.
	Cutoff int
}

func (o Options) withDefaults() Options {
	if o.RelDocs <= 0 {
		o.RelDocs = DefaultRelDocs
	}
	if o.K <= 0 {
		o.K = DefaultK
	}
	if o.Cutoff < 0 {
		o.Cutoff = 0
	}
	return o
}

// FeedbackSize is the number of seed documents used as feedback:
// min(Cutoff, RelDocs) when Cutoff is set, RelDocs otherwise.
func (o Options) FeedbackSize() int {
	o = o.withDefaults()
	if o.Cutoff > 0 && o.Cutoff < o.RelDocs {
		return o.Cutoff
	}
	return o.RelDocs
}

// Service reranks a run by pseudo-relevance feedback over the passage manifold:
// documents whose passages sit near the feedback passages score highest.
type Service struct {
	encoder  Encoder
	index    NeighborIndex
	passages PassageIndex
	opts     Options
	logger   *zap.Logger
}

// New creates a PRF reranker.
func New(enc Encoder, idx NeighborIndex, passages PassageIndex, opts Options, logger *zap.Logger) *Service {
	return &Service{
		encoder:  enc,
		index:    idx,
		passages: passages,
		opts:     opts.withDefaults(),
		logger:   logger,
	}
}

// Rerank replaces the ranking of every seed topic listed in topics with the
// accumulated neighbor similarity of its feedback passages. Seed topics not in
// topics are carried over unchanged. Encoder and index failures abort the call.
func (s *Service) Rerank(ctx context.Context, seed run.Run, topics topic.Set) (run.Run, error) {
	start := time.Now()
	defer func() { metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds()) }()

	b := run.NewBuilder()
	for _, id := range seed.Topics() {
		ranking, _ := seed.Ranking(id)
		if _, ok := topics.Get(id); !ok {
			b.Set(id, ranking)
			continue
		}

		reranked, err := s.rerankTopic(ctx, id, ranking)
		if err != nil {
			return run.Run{}, fmt.Errorf("topic %s: %w", id, err)
		}
		b.Set(id, reranked)
		metrics.StageTopicsTotal.WithLabelValues(stage).Inc()
	}
	return b.Build(), nil
}

func (s *Service) rerankTopic(ctx context.Context, topicID string, seed run.Ranking) (run.Ranking, error) {
	feedback := seed.Top(s.opts.FeedbackSize())

	var texts []string
	for _, e := range feedback.Entries() {
		ps, err := s.passages.Passages(e.DocID)
		if err != nil {
			s.logger.Warn("Feedback document has no passages",
				zap.String("topic", topicID), zap.String("doc_id", e.DocID), zap.Error(err))
			continue
		}
		texts = append(texts, ps...)
	}

	if len(texts) == 0 {
		s.logger.Warn("No feedback passages for topic", zap.String("topic", topicID))
		return run.NewRanking(), nil
	}

	emb, err := s.encoder.BatchEmbed(ctx, texts)
	if err != nil {
		return run.Ranking{}, fmt.Errorf("encode %d passages: %w", len(texts), err)
	}

	neighbors, err := s.index.KNN(ctx, emb.Embeddings, s.opts.K)
	if err != nil {
		return run.Ranking{}, fmt.Errorf("knn query: %w", err)
	}

	acc := run.NewAccumulator(len(texts) * s.opts.K)
	var orphans int
	for _, row := range neighbors {
		for _, n := range row {
			doc, ok := s.passages.DocID(n.Idx)
			if !ok {
				orphans++
				continue
			}
			acc.Add(doc, n.Similarity())
		}
	}
	if orphans > 0 {
		s.logger.Warn("Neighbors outside the passage lookup were ignored",
			zap.String("topic", topicID), zap.Int("count", orphans))
	}

	s.logger.Debug("PRF topic reranked",
		zap.String("topic", topicID),
		zap.Int("feedback_docs", feedback.Len()),
		zap.Int("feedback_passages", len(texts)),
		zap.Int("documents", acc.Len()),
	)

	return acc.Ranking(), nil
}
